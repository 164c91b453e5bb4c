package meter

import "gspn"

// TransitionFiringCollector accumulates one row per firing of an observed
// transition: when it fired, and how long since its previous firing.
type TransitionFiringCollector struct {
	quota
	Transition []uint32
	FiringTime []float64
	Interval   []float64
}

func NewTransitionFiringCollector(required int) *TransitionFiringCollector {
	return &TransitionFiringCollector{quota: quota{required: required}}
}

func (c *TransitionFiringCollector) collect(transition uint32, firingTime, interval float64) {
	c.Transition = append(c.Transition, transition)
	c.FiringTime = append(c.FiringTime, firingTime)
	c.Interval = append(c.Interval, interval)
	c.bump()
}

func (c *TransitionFiringCollector) GetObservations() map[string]any {
	return map[string]any{
		"transition":  c.Transition,
		"firing_time": c.FiringTime,
		"interval":    c.Interval,
	}
}

func (c *TransitionFiringCollector) Reset() {
	c.reset()
	c.Transition = nil
	c.FiringTime = nil
	c.Interval = nil
}

// TransitionFiringPlugin feeds a TransitionFiringCollector from every
// observed transition's afterFiring callback, optionally restricted to a
// subset of transitions.
type TransitionFiringPlugin struct {
	gspn.BasePlugin
	Collector *TransitionFiringCollector

	clock func() float64
	ords  map[uint32]bool
}

func NewTransitionFiringPlugin(required int, clock func() float64, transitions map[uint32]bool) *TransitionFiringPlugin {
	return &TransitionFiringPlugin{
		Collector: NewTransitionFiringCollector(required),
		clock:     clock,
		ords:      transitions,
	}
}

func (p *TransitionFiringPlugin) ObserveTransition(t *gspn.Transition) gspn.TransitionObserver {
	if p.ords != nil && !p.ords[uint32(t.Ordinal())] {
		return nil
	}
	return &transitionFiringObserver{plugin: p, transition: t, previousFiringTime: p.clock()}
}

type transitionFiringObserver struct {
	plugin             *TransitionFiringPlugin
	transition         *gspn.Transition
	previousFiringTime float64
}

func (o *transitionFiringObserver) BeforeFiring() {}
func (o *transitionFiringObserver) GotEnabled()   {}
func (o *transitionFiringObserver) GotDisabled()  {}

func (o *transitionFiringObserver) AfterFiring() {
	now := o.plugin.clock()
	interval := now - o.previousFiringTime
	o.plugin.Collector.collect(uint32(o.transition.Ordinal()), now, interval)
	o.previousFiringTime = now
}

var _ gspn.TransitionObserver = (*transitionFiringObserver)(nil)
var _ gspn.Plugin = (*TransitionFiringPlugin)(nil)
var _ Collector = (*TransitionFiringCollector)(nil)
