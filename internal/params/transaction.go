package params

import (
	"errors"
	"fmt"
)

var (
	// ErrReentrantChange is raised when a parameter is written while a write
	// to the same parameter on the same owner is still notifying.
	ErrReentrantChange = errors.New("re-entrant parameter value change")
	// ErrNotApplicable is raised when writing a parameter to an owner of the
	// wrong kind.
	ErrNotApplicable = errors.New("parameter does not apply to owner")
)

// TransactionError carries failures raised while a value change was in
// flight. Listeners still run when the mutation fails. The error is
// re-panicked after the changing flag has been cleared.
type TransactionError struct {
	Key   Key
	Stage string
	Err   error
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("parameter %s: %s: %v", e.Key, e.Stage, e.Err)
}

func (e *TransactionError) Unwrap() error {
	return e.Err
}

// PanicError wraps a non-error panic value.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// transact runs one complete value change for p on owner.
func transact(p Parameter, owner Owner, mutate func()) {
	data := owner.ParamData()
	st := beginValueChange(p, data)

	mutErr := capture(mutate)
	notifyErr := capture(func() { notify(p, owner, data, st) })
	st.changing = false

	var stage string
	switch {
	case mutErr != nil && notifyErr != nil:
		stage = "mutate, notify"
	case mutErr != nil:
		stage = "mutate"
	case notifyErr != nil:
		stage = "notify"
	default:
		return
	}
	panic(&TransactionError{Key: p.Key(), Stage: stage, Err: errors.Join(mutErr, notifyErr)})
}

func beginValueChange(p Parameter, data *Data) *instanceState {
	st := data.state(p)
	if st.changing {
		panic(fmt.Errorf("%w: %s", ErrReentrantChange, p.Key()))
	}
	st.changing = true
	return st
}

func notify(p Parameter, owner Owner, data *Data, st *instanceState) {
	base := p.base()
	for _, stage := range stageOrder {
		var listeners []Listener
		switch stage {
		case StagePriority, StageNormal:
			listeners = base.snapshot(stage)
		case StageInstance:
			listeners = st.listeners.snapshot()
		case StageAnyInstance:
			listeners = data.any.snapshot()
		}
		for _, fn := range listeners {
			fn(p, owner)
		}
	}
}

func capture(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = e
				return
			}
			err = &PanicError{Value: r}
		}
	}()
	fn()
	return nil
}
