// Package sched implements the discrete-event fire-control scheduler: a
// priority-bucketed max-heap for immediate transitions with weighted
// random tie-breaking, and a deadline min-heap for timed transitions.
//
// It is deliberately independent of package gspn: it knows nothing about
// places, arcs or tokens, only the small Transition contract below. This
// keeps the heap machinery reusable and avoids an import cycle with the
// net structure that drives it.
package sched

import (
	"container/heap"
	"errors"
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/stat/distuv"
)

var (
	// ErrNoEnabledTransition is returned by SelectNext when both the
	// priority heap and the timed heap are empty.
	ErrNoEnabledTransition = errors.New("sched: no enabled transition")
)

// Transition is the contract fire control needs from whatever it schedules.
// gspn.Transition satisfies it without either package importing the other.
type Transition interface {
	Priority() int
	Weight() float64
	IsTimed() bool
	IsEnabled() bool
	Sample() (float64, error)
	Fire() error
}

// Scheduler is the fire-control state machine. It is not safe for
// concurrent use; the net it drives is single-threaded by design.
type Scheduler struct {
	rng *rand.Rand

	currentTime float64
	building    bool

	initialEnable map[Transition]bool
	buildOrder    []Transition
	buildSeen     map[Transition]bool

	levels    map[int]*bucket
	heap      priorityHeap
	activeSet map[int]bool

	timed    timedHeap
	tieCount uint64
}

// New creates a Scheduler in build mode: Enable/Disable calls are recorded
// but not acted on until Start is called.
func New(rng *rand.Rand) *Scheduler {
	return &Scheduler{
		rng:           rng,
		building:      true,
		initialEnable: make(map[Transition]bool),
		buildSeen:     make(map[Transition]bool),
		levels:        make(map[int]*bucket),
		activeSet:     make(map[int]bool),
	}
}

func (s *Scheduler) CurrentTime() float64 { return s.currentTime }

func (s *Scheduler) recordBuildOrder(t Transition) {
	if !s.buildSeen[t] {
		s.buildSeen[t] = true
		s.buildOrder = append(s.buildOrder, t)
	}
}

// Enable routes to fire control's internal enable once running; during
// build it only records the transition's initial state.
func (s *Scheduler) Enable(t Transition) error {
	if s.building {
		s.recordBuildOrder(t)
		s.initialEnable[t] = true
		return nil
	}
	return s.internalEnable(t)
}

// Disable is the symmetric counterpart of Enable.
func (s *Scheduler) Disable(t Transition) error {
	if s.building {
		s.recordBuildOrder(t)
		s.initialEnable[t] = false
		return nil
	}
	return s.internalDisable(t)
}

// Start transitions the scheduler to running and primes the schedule from
// every transition whose initial enablement was recorded true, in the
// order those transitions were first touched during build.
func (s *Scheduler) Start() error {
	s.building = false
	for _, t := range s.buildOrder {
		if s.initialEnable[t] {
			if err := s.internalEnable(t); err != nil {
				return err
			}
		}
	}
	return nil
}

// Reset clears the running schedule and re-enters build mode without
// discarding the original build-time enablement recorded by Enable/Disable;
// a subsequent Start replays that original snapshot.
func (s *Scheduler) Reset() {
	s.currentTime = 0
	s.building = true
	s.levels = make(map[int]*bucket)
	s.heap = nil
	s.activeSet = make(map[int]bool)
	s.timed = nil
	s.tieCount = 0
}

func (s *Scheduler) internalEnable(t Transition) error {
	if t.IsTimed() {
		d, err := t.Sample()
		if err != nil {
			return err
		}
		heap.Push(&s.timed, timedEntry{deadline: s.currentTime + d, seq: s.nextSeq(), t: t})
		return nil
	}
	p := t.Priority()
	b, ok := s.levels[p]
	if !ok {
		b = &bucket{priority: p, index: make(map[Transition]int)}
		s.levels[p] = b
	}
	b.insert(t)
	if !s.activeSet[p] {
		heap.Push(&s.heap, b)
		s.activeSet[p] = true
	}
	return nil
}

func (s *Scheduler) internalDisable(t Transition) error {
	if t.IsTimed() {
		// The place-status FSM guarantees a timed transition's sole
		// consuming arc makes it the only writer of its own disable;
		// that happens mid-Fire, with this transition's stale deadline
		// entry still at the heap's head.
		if len(s.timed) == 0 || s.timed[0].t != t {
			return fmt.Errorf("sched: internal disable of timed transition not at heap head")
		}
		heap.Pop(&s.timed)
		return nil
	}
	b, ok := s.levels[t.Priority()]
	if !ok {
		return nil
	}
	b.remove(t)
	return nil
}

func (s *Scheduler) nextSeq() uint64 {
	s.tieCount++
	return s.tieCount
}

// SelectNext implements the firing rule: any non-empty immediate bucket at
// the top of the priority heap preempts every timed transition, with empty
// buckets lazily discarded; otherwise the earliest timed deadline wins.
func (s *Scheduler) SelectNext() (float64, Transition, error) {
	for len(s.heap) > 0 {
		b := s.heap[0]
		if len(b.order) == 0 {
			heap.Pop(&s.heap)
			delete(s.activeSet, b.priority)
			continue
		}
		weights := make([]float64, len(b.order))
		for i, t := range b.order {
			weights[i] = t.Weight()
		}
		idx := weightedChoice(s.rng, weights)
		return s.currentTime, b.order[idx], nil
	}
	if len(s.timed) == 0 {
		return 0, nil, ErrNoEnabledTransition
	}
	top := s.timed[0]
	return top.deadline, top.t, nil
}

// FireNext selects, advances virtual time, and fires. A timed transition
// that is still enabled after firing gets its stale deadline entry
// replaced with a fresh sample; one that became disabled during firing has
// already had its entry popped by the disable path running inside Fire.
func (s *Scheduler) FireNext() error {
	newTime, t, err := s.SelectNext()
	if err != nil {
		return err
	}
	s.currentTime = newTime
	if err := t.Fire(); err != nil {
		return err
	}
	if t.IsTimed() && t.IsEnabled() {
		heap.Pop(&s.timed)
		if err := s.internalEnable(t); err != nil {
			return err
		}
	}
	return nil
}

// expRandSource adapts a *math/rand.Rand to the golang.org/x/exp/rand.Source
// interface that gonum's distuv package expects.
type expRandSource struct{ r *rand.Rand }

func (s expRandSource) Uint64() uint64  { return s.r.Uint64() }
func (s expRandSource) Seed(seed uint64) { s.r.Seed(int64(seed)) }

func weightedChoice(rng *rand.Rand, weights []float64) int {
	c := distuv.NewCategorical(weights, expRandSource{rng})
	return int(c.Rand())
}
