package timeline

type eventEntry[F any] struct {
	id int
	fn F
}

// event is an ordered listener list. Removal funcs are idempotent.
type event[F any] struct {
	nextID  int
	entries []eventEntry[F]
}

func (e *event[F]) add(fn F) func() {
	e.nextID++
	id := e.nextID
	e.entries = append(e.entries, eventEntry[F]{id: id, fn: fn})
	return func() {
		for i, entry := range e.entries {
			if entry.id == id {
				e.entries = append(e.entries[:i:i], e.entries[i+1:]...)
				return
			}
		}
	}
}

func (e *event[F]) each(call func(F)) {
	if len(e.entries) == 0 {
		return
	}
	for _, entry := range append([]eventEntry[F](nil), e.entries...) {
		call(entry.fn)
	}
}
