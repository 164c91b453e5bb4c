package sched

import (
	"errors"
	"math/rand"
	"testing"
)

// fakeTransition is a minimal Transition test double: immediate
// transitions fire by incrementing a counter and optionally toggling
// enabled; timed transitions return a scripted sequence of samples.
type fakeTransition struct {
	name     string
	priority int
	weight   float64
	timed    bool
	samples  []float64
	sampleAt int

	enabled  bool
	fireHook func(*fakeTransition)
	fires    int
}

func (f *fakeTransition) Priority() int   { return f.priority }
func (f *fakeTransition) Weight() float64 { return f.weight }
func (f *fakeTransition) IsTimed() bool   { return f.timed }
func (f *fakeTransition) IsEnabled() bool { return f.enabled }

func (f *fakeTransition) Sample() (float64, error) {
	d := f.samples[f.sampleAt%len(f.samples)]
	f.sampleAt++
	return d, nil
}

func (f *fakeTransition) Fire() error {
	f.fires++
	if f.fireHook != nil {
		f.fireHook(f)
	}
	return nil
}

var _ Transition = (*fakeTransition)(nil)

func TestPriorityPreemption(t *testing.T) {
	// Scenario 3: A at priority 1, B at priority 2, both self-sustaining.
	// The next firing is always B until B becomes disabled, even though A
	// has greater weight.
	s := New(rand.New(rand.NewSource(1)))

	a := &fakeTransition{name: "A", priority: 1, weight: 100, enabled: true}
	b := &fakeTransition{name: "B", priority: 2, weight: 1, enabled: true}
	bFirings := 0
	b.fireHook = func(f *fakeTransition) {
		bFirings++
		if bFirings >= 3 {
			f.enabled = false
			if err := s.Disable(f); err != nil {
				t.Fatalf("disable B: %v", err)
			}
		}
	}

	if err := s.Enable(a); err != nil {
		t.Fatalf("enable A: %v", err)
	}
	if err := s.Enable(b); err != nil {
		t.Fatalf("enable B: %v", err)
	}
	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	for i := 0; i < 3; i++ {
		_, next, err := s.SelectNext()
		if err != nil {
			t.Fatalf("select %d: %v", i, err)
		}
		if next != Transition(b) {
			t.Fatalf("firing %d: expected B, got %v", i, next)
		}
		if err := s.FireNext(); err != nil {
			t.Fatalf("fire %d: %v", i, err)
		}
	}

	_, next, err := s.SelectNext()
	if err != nil {
		t.Fatalf("select after B disabled: %v", err)
	}
	if next != Transition(a) {
		t.Fatalf("expected A once B is disabled, got %v", next)
	}
}

func TestWeightedTieBreak(t *testing.T) {
	// Scenario 2: two immediates at the same priority, weights 1 and 3,
	// both continuously re-enabled. Over many firings the observed split
	// converges to 25%/75% within 1% absolute.
	s := New(rand.New(rand.NewSource(42)))

	var counts [2]int
	var transitions [2]*fakeTransition
	transitions[0] = &fakeTransition{name: "light", priority: 1, weight: 1, enabled: true}
	transitions[1] = &fakeTransition{name: "heavy", priority: 1, weight: 3, enabled: true}
	for i, tr := range transitions {
		idx := i
		tr.fireHook = func(f *fakeTransition) { counts[idx]++ }
	}

	if err := s.Enable(transitions[0]); err != nil {
		t.Fatal(err)
	}
	if err := s.Enable(transitions[1]); err != nil {
		t.Fatal(err)
	}
	if err := s.Start(); err != nil {
		t.Fatal(err)
	}

	const n = 40000
	for i := 0; i < n; i++ {
		if err := s.FireNext(); err != nil {
			t.Fatalf("fire %d: %v", i, err)
		}
	}

	total := counts[0] + counts[1]
	if total != n {
		t.Fatalf("expected %d firings total, got %d", n, total)
	}
	lightFrac := float64(counts[0]) / float64(total)
	heavyFrac := float64(counts[1]) / float64(total)
	if diff := lightFrac - 0.25; diff < -0.01 || diff > 0.01 {
		t.Errorf("light fraction %.4f not within 1%% of 0.25", lightFrac)
	}
	if diff := heavyFrac - 0.75; diff < -0.01 || diff > 0.01 {
		t.Errorf("heavy fraction %.4f not within 1%% of 0.75", heavyFrac)
	}
}

func TestTimedInterleaving(t *testing.T) {
	// Scenario 4: two timed transitions, deterministic samplers 1.0 and
	// 1.5, both enabled at t=0 and self-sustaining (each re-enabled with
	// a fresh sample after firing, which FireNext does automatically for
	// a transition still enabled post-fire).
	s := New(rand.New(rand.NewSource(7)))

	fast := &fakeTransition{name: "fast", timed: true, samples: []float64{1.0}, enabled: true}
	slow := &fakeTransition{name: "slow", timed: true, samples: []float64{1.5}, enabled: true}

	if err := s.Enable(fast); err != nil {
		t.Fatal(err)
	}
	if err := s.Enable(slow); err != nil {
		t.Fatal(err)
	}
	if err := s.Start(); err != nil {
		t.Fatal(err)
	}

	want := []float64{1.0, 1.5, 2.0, 3.0, 3.0, 4.0, 4.5, 5.0, 6.0, 6.0}
	got := make([]float64, 0, len(want))
	for i := 0; i < len(want); i++ {
		if err := s.FireNext(); err != nil {
			t.Fatalf("fire %d: %v", i, err)
		}
		got = append(got, s.CurrentTime())
	}

	for i := range want {
		if got[i] != want[i] {
			t.Errorf("firing %d: currentTime = %v, want %v (full: %v)", i, got[i], want[i], got)
			break
		}
	}
}

func TestSelectNextNoEnabledTransition(t *testing.T) {
	s := New(rand.New(rand.NewSource(1)))
	if err := s.Start(); err != nil {
		t.Fatal(err)
	}
	if _, _, err := s.SelectNext(); !errors.Is(err, ErrNoEnabledTransition) {
		t.Fatalf("expected ErrNoEnabledTransition, got %v", err)
	}
}

func TestBuildModeDefersEnable(t *testing.T) {
	s := New(rand.New(rand.NewSource(1)))
	a := &fakeTransition{name: "A", priority: 1, weight: 1, enabled: true}
	if err := s.Enable(a); err != nil {
		t.Fatal(err)
	}
	// Still building: SelectNext must see nothing scheduled yet.
	if _, _, err := s.SelectNext(); !errors.Is(err, ErrNoEnabledTransition) {
		t.Fatalf("expected no scheduled work before Start, got %v", err)
	}
	if err := s.Start(); err != nil {
		t.Fatal(err)
	}
	if _, next, err := s.SelectNext(); err != nil || next != Transition(a) {
		t.Fatalf("expected A scheduled after Start, got %v, %v", next, err)
	}
}

func TestResetReplaysBuildSnapshot(t *testing.T) {
	s := New(rand.New(rand.NewSource(1)))
	a := &fakeTransition{name: "A", priority: 1, weight: 1, enabled: true}
	if err := s.Enable(a); err != nil {
		t.Fatal(err)
	}
	if err := s.Start(); err != nil {
		t.Fatal(err)
	}
	if err := s.FireNext(); err != nil {
		t.Fatal(err)
	}
	if err := s.Disable(a); err != nil {
		t.Fatal(err)
	}
	a.enabled = false

	s.Reset()
	a.enabled = true
	if err := s.Start(); err != nil {
		t.Fatal(err)
	}
	if _, next, err := s.SelectNext(); err != nil || next != Transition(a) {
		t.Fatalf("expected A re-enabled after Reset+Start, got %v, %v", next, err)
	}
}
