package automation

import (
	"fmt"
	"slices"
	"sort"

	"framekit/internal/params"
	"framekit/internal/statetree"
)

// Data holds the sequences of one owner, ordered by parameter index.
type Data struct {
	owner     params.Owner
	seqs      []Automated
	listeners []func(Automated)
}

// NewData returns empty automation data for owner.
func NewData(owner params.Owner) *Data {
	return &Data{owner: owner}
}

// Owner returns the owner whose parameters are automated.
func (d *Data) Owner() params.Owner {
	return d.owner
}

// For returns the sequence for p, creating it on first use.
func For[T any](d *Data, p *params.Param[T]) (*Sequence[T], error) {
	if existing, ok := d.Sequence(p); ok {
		seq, ok := existing.(*Sequence[T])
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, p.Key())
		}
		return seq, nil
	}
	if err := checkParam(d, p); err != nil {
		return nil, err
	}
	seq := newSequence(d, p)
	d.insert(seq)
	return seq, nil
}

// Ensure returns the sequence for an untyped parameter, creating it on
// first use.
func (d *Data) Ensure(p params.Parameter) (Automated, error) {
	if existing, ok := d.Sequence(p); ok {
		return existing, nil
	}
	switch tp := p.(type) {
	case *params.Param[float32]:
		return For(d, tp)
	case *params.Param[float64]:
		return For(d, tp)
	case *params.Param[int64]:
		return For(d, tp)
	case *params.Param[bool]:
		return For(d, tp)
	case *params.Param[params.Vector2]:
		return For(d, tp)
	case *params.Param[string]:
		return For(d, tp)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedType, p)
	}
}

func (d *Data) insert(seq Automated) {
	idx := seq.Parameter().Index()
	i := sort.Search(len(d.seqs), func(i int) bool { return d.seqs[i].Parameter().Index() >= idx })
	d.seqs = slices.Insert(d.seqs, i, seq)
}

// Sequence finds the sequence for p.
func (d *Data) Sequence(p params.Parameter) (Automated, bool) {
	idx := p.Index()
	i := sort.Search(len(d.seqs), func(i int) bool { return d.seqs[i].Parameter().Index() >= idx })
	if i < len(d.seqs) && d.seqs[i].Parameter().Index() == idx {
		return d.seqs[i], true
	}
	return nil, false
}

// Has reports whether p has a sequence.
func (d *Data) Has(p params.Parameter) bool {
	_, ok := d.Sequence(p)
	return ok
}

// IsAutomated reports whether p is currently driven by keyframes.
func (d *Data) IsAutomated(p params.Parameter) bool {
	seq, ok := d.Sequence(p)
	return ok && seq.CanAutomate()
}

// Sequences returns every sequence in parameter index order.
func (d *Data) Sequences() []Automated {
	return slices.Clone(d.seqs)
}

// OnChanged registers fn to run when keyframes or the override flag of any
// sequence change.
func (d *Data) OnChanged(fn func(Automated)) {
	d.listeners = append(d.listeners, fn)
}

func (d *Data) changed(seq Automated) {
	for _, fn := range d.listeners {
		fn(seq)
	}
}

// UpdateAll pushes the value at frame for every sequence, including
// overridden ones, which write their default.
func (d *Data) UpdateAll(frame int64) {
	for _, seq := range d.seqs {
		seq.Update(frame)
	}
}

// UpdateAutomated pushes the value at frame for every sequence that is not
// overridden and has keyframes. It returns the number of values written.
func (d *Data) UpdateAutomated(frame int64) int {
	n := 0
	for _, seq := range d.seqs {
		if !seq.CanAutomate() {
			continue
		}
		seq.Update(frame)
		n++
	}
	return n
}

// WriteState appends one entry per sequence to list.
func (d *Data) WriteState(list *statetree.List) {
	for _, seq := range d.seqs {
		seq.writeState(list.AppendDict())
	}
}

// ReadState restores sequences from list. Entries naming parameters that are
// not registered or do not apply to the owner are skipped.
func (d *Data) ReadState(list *statetree.List, reg *params.Registry) {
	for _, entry := range list.Dicts() {
		raw, ok := entry.String("param")
		if !ok {
			continue
		}
		key, err := params.ParseKey(raw)
		if err != nil {
			continue
		}
		p, ok := reg.Lookup(key)
		if !ok {
			continue
		}
		seq, err := d.Ensure(p)
		if err != nil {
			continue
		}
		seq.readState(entry)
	}
}
