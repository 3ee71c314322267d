package frame_test

import (
	"errors"
	"testing"

	"framekit/internal/frame"
)

func TestWithEnd(t *testing.T) {
	s := frame.New(10, 20)
	got, err := s.WithEnd(25)
	if err != nil {
		t.Fatalf("WithEnd failed: %v", err)
	}
	if got != frame.New(10, 15) {
		t.Fatalf("WithEnd(25) = %v, want 10->25 (15)", got)
	}
	if _, err := s.WithEnd(5); !errors.Is(err, frame.ErrInvalidSpan) {
		t.Fatalf("WithEnd(5) error = %v, want ErrInvalidSpan", err)
	}
	if got := s.WithEndClamped(5, 100); got != frame.New(10, 0) {
		t.Fatalf("WithEndClamped(5) = %v, want zero length at 10", got)
	}
	if got := s.WithEndClamped(500, 100); got != frame.New(10, 90) {
		t.Fatalf("WithEndClamped(500, 100) = %v, want 10->100", got)
	}
}

func TestMoveBegin(t *testing.T) {
	s := frame.New(10, 20)
	got, err := s.MoveBegin(5)
	if err != nil {
		t.Fatalf("MoveBegin failed: %v", err)
	}
	if got.End() != s.End() || got.Begin != 5 {
		t.Fatalf("MoveBegin(5) = %v, want 5->30", got)
	}
	if _, err := s.MoveBegin(31); !errors.Is(err, frame.ErrInvalidSpan) {
		t.Fatalf("MoveBegin(31) error = %v, want ErrInvalidSpan", err)
	}
	if got := s.MoveBeginClamped(40); got != frame.New(30, 0) {
		t.Fatalf("MoveBeginClamped(40) = %v, want 30->30", got)
	}
	if got := s.MoveBeginClamped(-4); got != frame.New(0, 30) {
		t.Fatalf("MoveBeginClamped(-4) = %v, want 0->30", got)
	}
}

func TestIntersects(t *testing.T) {
	s := frame.New(100, 50)
	cases := []struct {
		frame int64
		want  bool
	}{
		{99, false},
		{100, true},
		{149, true},
		{150, false},
	}
	for _, tc := range cases {
		if got := s.Intersects(tc.frame); got != tc.want {
			t.Fatalf("Intersects(%d) = %v, want %v", tc.frame, got, tc.want)
		}
	}
}

func TestUnionProperties(t *testing.T) {
	spans := []frame.Span{
		frame.New(0, 10),
		frame.New(5, 3),
		frame.New(-20, 4),
		frame.New(40, 0),
		frame.New(7, 100),
	}
	for _, a := range spans {
		for _, b := range spans {
			u := frame.Union(a, b)
			if !u.Contains(a) || !u.Contains(b) {
				t.Fatalf("Union(%v, %v) = %v does not contain both", a, b, u)
			}
			if u != frame.Union(b, a) {
				t.Fatalf("Union(%v, %v) not commutative", a, b)
			}
			for _, c := range spans {
				left := frame.Union(frame.Union(a, b), c)
				right := frame.Union(a, frame.Union(b, c))
				if left != right {
					t.Fatalf("Union not associative for %v %v %v: %v vs %v", a, b, c, left, right)
				}
			}
		}
	}
}

func TestClamp(t *testing.T) {
	cases := []struct {
		name  string
		s     frame.Span
		bound frame.Span
		want  frame.Span
	}{
		{"inside", frame.New(10, 5), frame.New(0, 100), frame.New(10, 5)},
		{"overlap left", frame.New(-5, 10), frame.New(0, 100), frame.New(0, 5)},
		{"overlap right", frame.New(95, 10), frame.New(0, 100), frame.New(95, 5)},
		{"disjoint", frame.New(200, 10), frame.New(0, 100), frame.New(200, 0)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := frame.Clamp(tc.s, tc.bound); got != tc.want {
				t.Fatalf("Clamp = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestUnionAll(t *testing.T) {
	if _, ok := frame.UnionAll(); ok {
		t.Fatal("expected UnionAll of nothing to fail")
	}
	got, ok := frame.UnionAll(frame.New(0, 100), frame.New(150, 100), frame.New(300, 250))
	if !ok || got != frame.New(0, 550) {
		t.Fatalf("UnionAll = %v, %v; want 0->550", got, ok)
	}
}

func TestValidateAndString(t *testing.T) {
	if err := frame.New(0, 0).Validate(); err == nil {
		t.Fatal("expected zero duration to be rejected")
	}
	if err := frame.New(-1, 5).Validate(); err == nil {
		t.Fatal("expected negative begin to be rejected")
	}
	if got := frame.New(3, 4).String(); got != "3->7 (4)" {
		t.Fatalf("String = %q", got)
	}
	if got := frame.New(10, -4).Abs(); got != frame.New(6, 4) {
		t.Fatalf("Abs = %v", got)
	}
	if got := frame.New(10, 4).Expand(2); got != frame.New(8, 8) {
		t.Fatalf("Expand = %v", got)
	}
}
