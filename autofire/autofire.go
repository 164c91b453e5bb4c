// Package autofire bridges structural enablement (a transition's
// disabled-arc-count crossing zero) into fire-control scheduler state. It
// is the sole path through which the net structure and the scheduler talk
// to each other.
package autofire

import "gspn/sched"

// Observer implements a transition-observer that forwards gotEnabled and
// gotDisabled to the scheduler's Enable/Disable. One Observer is attached
// per transition.
type Observer struct {
	scheduler  *sched.Scheduler
	transition sched.Transition
	lastErr    error
}

// New returns a transition-observer wiring t's enablement into s.
func New(s *sched.Scheduler, t sched.Transition) *Observer {
	return &Observer{scheduler: s, transition: t}
}

func (o *Observer) BeforeFiring() {}
func (o *Observer) AfterFiring()  {}

// GotEnabled and GotDisabled also run during build, where the scheduler
// only records them; TransitionObserver has no error return, so a bad
// sample raised after Start is surfaced on the next call that can report
// it (Net.FireNext) rather than here.
func (o *Observer) GotEnabled() {
	o.lastErr = o.scheduler.Enable(o.transition)
}

func (o *Observer) GotDisabled() {
	o.lastErr = o.scheduler.Disable(o.transition)
}

// Err returns the error from the most recent Enable/Disable call, if any.
func (o *Observer) Err() error { return o.lastErr }
