package params

import "slices"

// Stage is a listener category. Stages run in declaration order at the end
// of every value change.
type Stage int

const (
	StagePriority Stage = iota
	StageInstance
	StageAnyInstance
	StageNormal
)

var stageOrder = [...]Stage{StagePriority, StageInstance, StageAnyInstance, StageNormal}

func (s Stage) String() string {
	switch s {
	case StagePriority:
		return "priority"
	case StageInstance:
		return "instance"
	case StageAnyInstance:
		return "any-instance"
	case StageNormal:
		return "normal"
	default:
		return "unknown"
	}
}

// Data is the per-instance parameter bag. The zero value is not usable;
// construct with NewData.
type Data struct {
	kinds  []string
	states map[int]*instanceState
	any    listenerList
}

type instanceState struct {
	changing  bool
	listeners listenerList
}

// NewData returns a bag for an owner that is an instance of every listed
// kind. Parameters registered against any of those kinds apply to it.
func NewData(kinds ...string) *Data {
	return &Data{
		kinds:  slices.Clone(kinds),
		states: make(map[int]*instanceState),
	}
}

// Kinds returns the owner kinds this bag answers for.
func (d *Data) Kinds() []string {
	return slices.Clone(d.kinds)
}

// Is reports whether the owner is an instance of kind.
func (d *Data) Is(kind string) bool {
	return slices.Contains(d.kinds, kind)
}

// AddKind extends the owner with another kind, used when a clip's content
// contributes its own parameters.
func (d *Data) AddKind(kind string) {
	if !d.Is(kind) {
		d.kinds = append(d.kinds, kind)
	}
}

// IsChanging reports whether a transaction for p is in progress.
func (d *Data) IsChanging(p Parameter) bool {
	st, ok := d.states[p.Index()]
	return ok && st.changing
}

// AddValueChanged registers a listener for p on this instance only.
func (d *Data) AddValueChanged(p Parameter, fn Listener) func() {
	return d.state(p).listeners.add(fn, nil)
}

// AddAnyValueChanged registers a listener for every parameter on this instance.
func (d *Data) AddAnyValueChanged(fn Listener) func() {
	return d.any.add(fn, nil)
}

func (d *Data) state(p Parameter) *instanceState {
	idx := p.Index()
	st, ok := d.states[idx]
	if !ok {
		st = &instanceState{}
		d.states[idx] = st
	}
	return st
}
