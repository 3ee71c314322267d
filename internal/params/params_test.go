package params_test

import (
	"errors"
	"strings"
	"testing"

	"framekit/internal/params"
	"framekit/internal/statetree"
)

type widget struct {
	data    *params.Data
	level   float32
	opacity float64
	count   int64
	visible bool
	pos     params.Vector2
	label   string
}

func newWidget() *widget {
	return &widget{data: params.NewData("widget")}
}

func (w *widget) ParamData() *params.Data { return w.data }

type widgetParams struct {
	Level   *params.Param[float32]
	Opacity *params.Param[float64]
	Count   *params.Param[int64]
	Visible *params.Param[bool]
	Pos     *params.Param[params.Vector2]
	Label   *params.Param[string]
}

func registerWidget(t *testing.T) (*params.Registry, widgetParams) {
	t.Helper()
	reg := params.NewRegistry()
	wp := widgetParams{
		Level: params.Float("widget", "Level", 0.5, func(o params.Owner) *float32 { return &o.(*widget).level },
			params.WithRange(0, 1), params.WithFlags(params.Automatable)),
		Opacity: params.Double("widget", "Opacity", 1, func(o params.Owner) *float64 { return &o.(*widget).opacity },
			params.WithRange(0, 1), params.WithFlags(params.Automatable|params.AffectsRender)),
		Count: params.Long("widget", "Count", 4, func(o params.Owner) *int64 { return &o.(*widget).count },
			params.WithLongRange(1, 10)),
		Visible: params.Bool("widget", "Visible", true, func(o params.Owner) *bool { return &o.(*widget).visible }),
		Pos: params.Vector("widget", "Pos", params.Vector2{}, func(o params.Owner) *params.Vector2 { return &o.(*widget).pos },
			params.WithVectorRange(params.Vector2{X: -10, Y: -10}, params.Vector2{X: 10, Y: 10})),
		Label: params.String("widget", "Label", "w", func(o params.Owner) *string { return &o.(*widget).label },
			params.WithCharLimits(3, 5)),
	}
	reg.MustRegister(wp.Level, wp.Opacity, wp.Count, wp.Visible, wp.Pos, wp.Label)
	return reg, wp
}

func TestRegistryIndicesAndDuplicates(t *testing.T) {
	reg, wp := registerWidget(t)
	if wp.Level.Index() != 1 || wp.Label.Index() != 6 {
		t.Fatalf("unexpected indices: level=%d label=%d", wp.Level.Index(), wp.Label.Index())
	}
	dup := params.Double("widget", "Opacity", 0, func(o params.Owner) *float64 { return &o.(*widget).opacity })
	if err := reg.Register(dup); !errors.Is(err, params.ErrDuplicateKey) {
		t.Fatalf("Register duplicate error = %v, want ErrDuplicateKey", err)
	}
	if dup.Index() != 0 {
		t.Fatalf("rejected parameter received index %d", dup.Index())
	}
	if err := reg.Register(wp.Level); !errors.Is(err, params.ErrAlreadyRegistered) {
		t.Fatalf("re-register error = %v", err)
	}

	defer func() {
		r := recover()
		err, ok := r.(error)
		if !ok || !errors.Is(err, params.ErrDuplicateKey) {
			t.Fatalf("MustRegister panic = %v, want ErrDuplicateKey", r)
		}
	}()
	reg.MustRegister(dup)
}

func TestRegistryLookup(t *testing.T) {
	reg, wp := registerWidget(t)
	key, err := params.ParseKey("widget::Count")
	if err != nil {
		t.Fatalf("ParseKey failed: %v", err)
	}
	got, ok := reg.Lookup(key)
	if !ok || got != params.Parameter(wp.Count) {
		t.Fatalf("Lookup(%s) = %v, %v", key, got, ok)
	}
	if p, ok := reg.ByIndex(wp.Pos.Index()); !ok || p.Key().Name != "Pos" {
		t.Fatalf("ByIndex mismatch: %v", p)
	}
	other := &widget{data: params.NewData("gadget")}
	if n := len(reg.Applicable(other)); n != 0 {
		t.Fatalf("expected no applicable params for gadget, got %d", n)
	}
	if n := len(reg.Applicable(newWidget())); n != 6 {
		t.Fatalf("expected 6 applicable params, got %d", n)
	}
}

func TestRangedWritesClamp(t *testing.T) {
	_, wp := registerWidget(t)
	w := newWidget()
	cases := []struct {
		in   float64
		want float64
	}{
		{1.5, 1.0},
		{-0.2, 0.0},
		{0.25, 0.25},
	}
	for _, tc := range cases {
		wp.Opacity.SetValue(w, tc.in)
		if got := wp.Opacity.Get(w); got != tc.want {
			t.Fatalf("Opacity after writing %v = %v, want %v", tc.in, got, tc.want)
		}
	}
	wp.Level.SetValue(w, 1.5)
	if w.level != 1 {
		t.Fatalf("float level = %v, want 1", w.level)
	}
	wp.Count.SetValue(w, 99)
	if w.count != 10 {
		t.Fatalf("count = %d, want 10", w.count)
	}
	wp.Pos.SetValue(w, params.Vector2{X: 50, Y: -50})
	if w.pos != (params.Vector2{X: 10, Y: -10}) {
		t.Fatalf("pos = %v", w.pos)
	}
}

func TestStringCharLimits(t *testing.T) {
	_, wp := registerWidget(t)
	w := newWidget()
	wp.Label.SetValue(w, "a")
	if w.label != "a  " {
		t.Fatalf("label = %q, want padded to 3", w.label)
	}
	wp.Label.SetValue(w, "héllo world")
	if w.label != "héllo" {
		t.Fatalf("label = %q, want truncated to 5 runes", w.label)
	}
	if got := wp.Label.DefaultValue(); got != "w  " {
		t.Fatalf("default = %q, want coerced default", got)
	}
}

func TestListenerStageOrder(t *testing.T) {
	_, wp := registerWidget(t)
	w := newWidget()
	var order []string
	wp.Opacity.AddListener(func(params.Parameter, params.Owner) { order = append(order, "normal") })
	w.data.AddAnyValueChanged(func(params.Parameter, params.Owner) { order = append(order, "any") })
	w.data.AddValueChanged(wp.Opacity, func(params.Parameter, params.Owner) { order = append(order, "instance") })
	wp.Opacity.AddPriorityListener(func(params.Parameter, params.Owner) { order = append(order, "priority") })

	wp.Opacity.SetValue(w, 0.5)
	if got := strings.Join(order, ","); got != "priority,instance,any,normal" {
		t.Fatalf("listener order = %s", got)
	}
}

func TestListenerRemoval(t *testing.T) {
	_, wp := registerWidget(t)
	w := newWidget()
	calls := 0
	remove := w.data.AddValueChanged(wp.Count, func(params.Parameter, params.Owner) { calls++ })
	wp.Count.SetValue(w, 2)
	remove()
	remove()
	wp.Count.SetValue(w, 3)
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestReentrantChangeFailsBeforeListeners(t *testing.T) {
	_, wp := registerWidget(t)
	w := newWidget()
	calls := 0
	w.data.AddValueChanged(wp.Opacity, func(p params.Parameter, o params.Owner) {
		calls++
		wp.Opacity.SetValue(o, 0.1)
	})

	func() {
		defer func() {
			r := recover()
			err, ok := r.(error)
			if !ok || !errors.Is(err, params.ErrReentrantChange) {
				t.Fatalf("panic = %v, want ErrReentrantChange", r)
			}
			var txErr *params.TransactionError
			if !errors.As(err, &txErr) || txErr.Key.Name != "Opacity" {
				t.Fatalf("expected TransactionError for Opacity, got %v", err)
			}
		}()
		wp.Opacity.SetValue(w, 0.7)
	}()

	if calls != 1 {
		t.Fatalf("listener ran %d times, want 1", calls)
	}
	if w.data.IsChanging(wp.Opacity) {
		t.Fatal("changing flag must be cleared after a failed transaction")
	}
	if w.opacity != 0.7 {
		t.Fatalf("opacity = %v, want the outer write to stand", w.opacity)
	}
}

func TestListenerPanicClearsState(t *testing.T) {
	_, wp := registerWidget(t)
	w := newWidget()
	remove := w.data.AddAnyValueChanged(func(params.Parameter, params.Owner) { panic("boom") })
	func() {
		defer func() {
			r := recover()
			var perr *params.PanicError
			err, _ := r.(error)
			if !errors.As(err, &perr) {
				t.Fatalf("panic = %v, want wrapped PanicError", r)
			}
		}()
		wp.Visible.SetValue(w, false)
	}()
	remove()
	if w.data.IsChanging(wp.Visible) {
		t.Fatal("changing flag leaked")
	}
	wp.Visible.SetValue(w, true)
	if !w.visible {
		t.Fatal("subsequent write did not apply")
	}
}

func TestFailedMutationStillNotifies(t *testing.T) {
	reg := params.NewRegistry()
	broken := params.Long("widget", "Broken", 0, func(params.Owner) *int64 { panic("no field") })
	reg.MustRegister(broken)
	w := newWidget()
	notified := 0
	w.data.AddAnyValueChanged(func(params.Parameter, params.Owner) { notified++ })

	func() {
		defer func() {
			var terr *params.TransactionError
			err, _ := recover().(error)
			if !errors.As(err, &terr) || terr.Stage != "mutate" {
				t.Fatalf("panic = %v, want TransactionError at mutate", err)
			}
		}()
		broken.SetValue(w, 3)
	}()
	if notified != 1 {
		t.Fatalf("listeners ran %d times, want 1", notified)
	}
	if w.data.IsChanging(broken) {
		t.Fatal("changing flag leaked")
	}

	w.data.AddAnyValueChanged(func(params.Parameter, params.Owner) { panic("listener") })
	func() {
		defer func() {
			var terr *params.TransactionError
			var perr *params.PanicError
			err, _ := recover().(error)
			if !errors.As(err, &terr) || terr.Stage != "mutate, notify" || !errors.As(err, &perr) {
				t.Fatalf("panic = %v, want joined mutate and notify failure", err)
			}
		}()
		broken.SetValue(w, 4)
	}()
}

func TestSetValueHelperAvoidsReentry(t *testing.T) {
	_, wp := registerWidget(t)
	w := newWidget()
	calls := 0
	w.data.AddValueChanged(wp.Count, func(p params.Parameter, o params.Owner) {
		calls++
		ww := o.(*widget)
		params.SetValueHelper(o, wp.Count, &ww.count, ww.count*2)
	})
	params.SetValueHelper(w, wp.Count, &w.count, 3)
	if w.count != 6 {
		t.Fatalf("count = %d, want 6", w.count)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestNotApplicablePanics(t *testing.T) {
	_, wp := registerWidget(t)
	other := &widget{data: params.NewData("gadget")}
	defer func() {
		err, _ := recover().(error)
		if !errors.Is(err, params.ErrNotApplicable) {
			t.Fatalf("panic = %v, want ErrNotApplicable", err)
		}
	}()
	wp.Opacity.SetValue(other, 0.2)
}

func TestWriteReadValues(t *testing.T) {
	reg, wp := registerWidget(t)
	src := newWidget()
	reg.ResetAll(src)
	wp.Opacity.SetValue(src, 0.3)
	wp.Pos.SetValue(src, params.Vector2{X: 1, Y: 2})
	wp.Label.SetValue(src, "abcd")

	d := statetree.NewDict()
	reg.WriteValues(src, d)
	d.SetString("widget::Unknown", "ignored")
	d.SetString("widget::Count", "not a number")

	dst := newWidget()
	reg.ResetAll(dst)
	reg.ReadValues(dst, d)
	if dst.opacity != 0.3 || dst.pos != (params.Vector2{X: 1, Y: 2}) || dst.label != "abcd" {
		t.Fatalf("restored = %+v", dst)
	}
	if dst.count != 4 {
		t.Fatalf("malformed count should keep default, got %d", dst.count)
	}
}

func TestInterpolate(t *testing.T) {
	_, wp := registerWidget(t)
	if got := wp.Count.Interpolate(1, 4, 0.5); got != 3 {
		t.Fatalf("long lerp = %d, want 3 (round half away from zero)", got)
	}
	if wp.Visible.Interpolate(false, true, 0.49) || !wp.Visible.Interpolate(false, true, 0.5) {
		t.Fatal("bool lerp should flip at 0.5")
	}
	if got := wp.Pos.Interpolate(params.Vector2{}, params.Vector2{X: 2, Y: 4}, 0.5); got != (params.Vector2{X: 1, Y: 2}) {
		t.Fatalf("vector lerp = %v", got)
	}
	if got := wp.Label.Interpolate("a", "b", 0.9); got != "a" {
		t.Fatalf("string lerp = %q, want step", got)
	}
}

func TestInfo(t *testing.T) {
	_, wp := registerWidget(t)
	info := wp.Opacity.Info()
	if info.Type != "double" || info.Min != "0" || info.Max != "1" || info.Default != "1" {
		t.Fatalf("info = %+v", info)
	}
	if !info.Flags.Has(params.AffectsRender) {
		t.Fatal("expected AffectsRender flag")
	}
}
