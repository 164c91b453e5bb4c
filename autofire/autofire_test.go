package autofire

import (
	"math/rand"
	"testing"

	"gspn/sched"
)

type fakeTransition struct {
	priority int
	weight   float64
	timed    bool
	enabled  bool
	sample   float64
}

func (f *fakeTransition) Priority() int           { return f.priority }
func (f *fakeTransition) Weight() float64         { return f.weight }
func (f *fakeTransition) IsTimed() bool           { return f.timed }
func (f *fakeTransition) IsEnabled() bool         { return f.enabled }
func (f *fakeTransition) Sample() (float64, error) { return f.sample, nil }
func (f *fakeTransition) Fire() error             { return nil }

var _ sched.Transition = (*fakeTransition)(nil)

func TestGotEnabledEnqueuesDuringBuild(t *testing.T) {
	s := sched.New(rand.New(rand.NewSource(1)))
	ft := &fakeTransition{priority: 1, weight: 1, enabled: true}
	o := New(s, ft)

	o.GotEnabled()
	if err := o.Err(); err != nil {
		t.Fatalf("GotEnabled during build should not error, got: %v", err)
	}

	if err := s.Start(); err != nil {
		t.Fatal(err)
	}
	if _, next, err := s.SelectNext(); err != nil || next != sched.Transition(ft) {
		t.Fatalf("expected ft scheduled after Start, got %v, %v", next, err)
	}
}

func TestGotDisabledAfterRunningRemovesFromSchedule(t *testing.T) {
	s := sched.New(rand.New(rand.NewSource(1)))
	ft := &fakeTransition{priority: 1, weight: 1, enabled: true}
	o := New(s, ft)
	o.GotEnabled()
	if err := s.Start(); err != nil {
		t.Fatal(err)
	}

	ft.enabled = false
	o.GotDisabled()
	if err := o.Err(); err != nil {
		t.Fatalf("GotDisabled should not error, got: %v", err)
	}
	if _, _, err := s.SelectNext(); err != sched.ErrNoEnabledTransition {
		t.Fatalf("expected no enabled transition after disable, got err=%v", err)
	}
}
