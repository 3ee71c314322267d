package automation_test

import (
	"errors"
	"math"
	"testing"

	"framekit/internal/automation"
	"framekit/internal/params"
	"framekit/internal/statetree"
)

type knob struct {
	data   *params.Data
	gain   float64
	steps  int64
	on     bool
	locked string
}

func (k *knob) ParamData() *params.Data { return k.data }

var (
	reg     = params.NewRegistry()
	gainP   = params.Double("knob", "Gain", 0, func(o params.Owner) *float64 { return &o.(*knob).gain }, params.WithRange(0, 100), params.WithFlags(params.Automatable))
	stepsP  = params.Long("knob", "Steps", 0, func(o params.Owner) *int64 { return &o.(*knob).steps }, params.WithFlags(params.Automatable))
	onP     = params.Bool("knob", "On", false, func(o params.Owner) *bool { return &o.(*knob).on }, params.WithFlags(params.Automatable))
	lockedP = params.String("knob", "Locked", "", func(o params.Owner) *string { return &o.(*knob).locked })
)

func init() {
	reg.MustRegister(gainP, stepsP, onP, lockedP)
}

func newKnob() (*knob, *automation.Data) {
	k := &knob{data: params.NewData("knob")}
	return k, automation.NewData(k)
}

func TestValueAtInterpolates(t *testing.T) {
	_, data := newKnob()
	seq, err := automation.For(data, gainP)
	if err != nil {
		t.Fatalf("For failed: %v", err)
	}
	seq.AddKeyFrame(automation.KeyFrame[float64]{Frame: 10, Value: 0})
	seq.AddKeyFrame(automation.KeyFrame[float64]{Frame: 30, Value: 80})
	seq.AddKeyFrame(automation.KeyFrame[float64]{Frame: 20, Value: 40, Curve: 0.5})

	cases := []struct {
		frame int64
		want  float64
	}{
		{-1, 0},
		{0, 0},
		{10, 0},
		{15, 20},
		{20, 40},
		{25, 40 + 40*0.25},
		{30, 80},
		{500, 80},
	}
	for _, tc := range cases {
		if got := seq.ValueAt(tc.frame); math.Abs(got-tc.want) > 1e-9 {
			t.Fatalf("ValueAt(%d) = %v, want %v", tc.frame, got, tc.want)
		}
	}
}

func TestAddKeyFrameReplacesAndClamps(t *testing.T) {
	_, data := newKnob()
	seq, _ := automation.For(data, gainP)
	seq.AddKeyFrame(automation.KeyFrame[float64]{Frame: 5, Value: 10})
	seq.AddKeyFrame(automation.KeyFrame[float64]{Frame: 5, Value: 500})
	frames := seq.KeyFrames()
	if len(frames) != 1 || frames[0].Value != 100 {
		t.Fatalf("keyframes = %+v", frames)
	}
	seq.RemoveKeyFrameAt(0)
	if seq.HasKeyFrames() {
		t.Fatal("expected no keyframes")
	}
}

func TestUpdateAutomatedSkipsOverride(t *testing.T) {
	k, data := newKnob()
	gain, _ := automation.For(data, gainP)
	gain.AddKeyFrame(automation.KeyFrame[float64]{Frame: 0, Value: 10})
	gain.AddKeyFrame(automation.KeyFrame[float64]{Frame: 10, Value: 20})
	steps, _ := automation.For(data, stepsP)
	steps.AddKeyFrame(automation.KeyFrame[int64]{Frame: 0, Value: 7})
	if _, err := automation.For(data, onP); err != nil {
		t.Fatalf("For(onP) failed: %v", err)
	}

	writes := map[string]int{}
	k.data.AddAnyValueChanged(func(p params.Parameter, _ params.Owner) { writes[p.Key().Name]++ })

	if n := data.UpdateAutomated(5); n != 2 {
		t.Fatalf("UpdateAutomated wrote %d values, want 2", n)
	}
	if k.gain != 15 || k.steps != 7 {
		t.Fatalf("gain=%v steps=%d", k.gain, k.steps)
	}
	if writes["Gain"] != 1 || writes["Steps"] != 1 || writes["On"] != 0 {
		t.Fatalf("writes = %v, want one per automated parameter", writes)
	}

	gainP.SetValue(k, 42)
	gain.SetOverride(true)
	if gain.Default() != 42 {
		t.Fatalf("override should capture current value, got %v", gain.Default())
	}
	data.UpdateAutomated(9)
	if k.gain != 42 {
		t.Fatalf("overridden gain changed to %v", k.gain)
	}
	if !data.IsAutomated(stepsP) || data.IsAutomated(gainP) {
		t.Fatal("IsAutomated mismatch")
	}
}

func TestForRejectsNonAutomatable(t *testing.T) {
	_, data := newKnob()
	if _, err := automation.For(data, lockedP); !errors.Is(err, automation.ErrNotAutomatable) {
		t.Fatalf("For(locked) error = %v", err)
	}
	stranger := &knob{data: params.NewData("other")}
	if _, err := automation.For(automation.NewData(stranger), gainP); !errors.Is(err, params.ErrNotApplicable) {
		t.Fatalf("For on wrong owner error = %v", err)
	}
}

func TestSequencesOrderedByIndex(t *testing.T) {
	_, data := newKnob()
	automation.For(data, onP)
	automation.For(data, gainP)
	automation.For(data, stepsP)
	seqs := data.Sequences()
	for i := 1; i < len(seqs); i++ {
		if seqs[i-1].Parameter().Index() >= seqs[i].Parameter().Index() {
			t.Fatalf("sequences out of order at %d", i)
		}
	}
}

func TestStateRoundTrip(t *testing.T) {
	_, data := newKnob()
	gain, _ := automation.For(data, gainP)
	gain.AddKeyFrame(automation.KeyFrame[float64]{Frame: 3, Value: 9, Curve: 2})
	on, _ := automation.For(data, onP)
	on.AddKeyFrame(automation.KeyFrame[bool]{Frame: 1, Value: true})
	on.SetOverride(true)

	list := statetree.NewList()
	data.WriteState(list)
	list.AppendDict().SetString("param", "knob::Missing")

	k2, data2 := newKnob()
	data2.ReadState(list, reg)
	if len(data2.Sequences()) != 2 {
		t.Fatalf("restored %d sequences, want 2", len(data2.Sequences()))
	}
	restored, _ := automation.For(data2, gainP)
	kfs := restored.KeyFrames()
	if len(kfs) != 1 || kfs[0].Frame != 3 || kfs[0].Value != 9 || kfs[0].Curve != 2 {
		t.Fatalf("restored keyframes = %+v", kfs)
	}
	onSeq, _ := automation.For(data2, onP)
	if !onSeq.Override() {
		t.Fatal("override flag lost")
	}
	data2.UpdateAll(5)
	if k2.gain != 9 {
		t.Fatalf("gain after UpdateAll = %v", k2.gain)
	}
}

func TestChangedListener(t *testing.T) {
	_, data := newKnob()
	count := 0
	data.OnChanged(func(automation.Automated) { count++ })
	seq, _ := automation.For(data, stepsP)
	seq.AddKeyFrame(automation.KeyFrame[int64]{Frame: 0, Value: 1})
	seq.SetOverride(true)
	seq.SetOverride(true)
	if count != 2 {
		t.Fatalf("changed fired %d times, want 2", count)
	}
}
