package gspn

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"gspn/autofire"
	"gspn/sched"
)

// Net is the net-structure registry: it owns every type, place, transition
// and arc by name, assigns dense ordinals in creation order, allocates and
// destroys tokens, and drives the fire-control scheduler through the
// auto-fire bridge attached to every transition.
type Net struct {
	ID   string
	Name string

	rng    *rand.Rand
	logger *zap.Logger

	types      []*TokenType
	typeByName map[string]*TokenType

	places      []*Place
	placeByName map[string]*Place

	transitions      []*Transition
	transitionByName map[string]*Transition

	arcs      []*Arc
	arcByName map[string]*Arc

	tokens      []*Token
	nextTokenID uint64

	plugins []Plugin

	scheduler *sched.Scheduler
	autofires []*autofire.Observer
	started   bool
}

// NewNet creates an empty net named name, driven by the single pluggable
// rng that feeds both timed-transition samplers and the scheduler's
// weighted choice among immediates. logger may be nil, in which case a
// no-op logger is kept. The net does not write to its logger: construction
// and runtime errors are returned to the caller (e.g. the CLI driver),
// which is responsible for logging them.
func NewNet(name string, rng *rand.Rand, logger *zap.Logger) *Net {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Net{
		ID:               uuid.NewString(),
		Name:             name,
		rng:              rng,
		logger:           logger,
		typeByName:       make(map[string]*TokenType),
		placeByName:      make(map[string]*Place),
		transitionByName: make(map[string]*Transition),
		arcByName:        make(map[string]*Arc),
		scheduler:        sched.New(rng),
	}
}

func (n *Net) CurrentTime() float64 { return n.scheduler.CurrentTime() }

func (n *Net) Type(name string) *TokenType { return n.typeByName[name] }
func (n *Net) Place(name string) *Place    { return n.placeByName[name] }
func (n *Net) Transition(name string) *Transition { return n.transitionByName[name] }
func (n *Net) Arc(name string) *Arc        { return n.arcByName[name] }

func (n *Net) Types() []*TokenType           { return n.types }
func (n *Net) Places() []*Place              { return n.places }
func (n *Net) Transitions() []*Transition     { return n.transitions }
func (n *Net) Arcs() []*Arc                  { return n.arcs }

// TokenByID looks up a token by its identity in the dense arena; it
// returns nil once the token has been destroyed.
func (n *Net) TokenByID(id uint64) *Token {
	idx := int(id) - 1
	if idx < 0 || idx >= len(n.tokens) {
		return nil
	}
	return n.tokens[idx]
}

// AddType registers a new token type.
func (n *Net) AddType(name string) (*TokenType, error) {
	if _, ok := n.typeByName[name]; ok {
		return nil, fmt.Errorf("%w: token type %q", ErrDuplicateName, name)
	}
	t := &TokenType{ID: uuid.NewString(), Name: name, ordinal: len(n.types)}
	n.types = append(n.types, t)
	n.typeByName[name] = t
	return t, nil
}

// AddPlace registers a new place accepting tokens of typ, queued per policy.
func (n *Net) AddPlace(name string, typ *TokenType, policy QueuePolicy) (*Place, error) {
	if _, ok := n.placeByName[name]; ok {
		return nil, fmt.Errorf("%w: place %q", ErrDuplicateName, name)
	}
	if typ == nil {
		return nil, fmt.Errorf("%w: place %q given a nil token type", ErrInvalidStructure, name)
	}
	p := &Place{ID: uuid.NewString(), Name: name, ordinal: len(n.places), typ: typ, policy: policy}
	n.places = append(n.places, p)
	n.placeByName[name] = p
	for _, pl := range n.plugins {
		if o := pl.ObservePlace(p); o != nil {
			p.attachObserver(o)
		}
	}
	return p, nil
}

// AddImmediateTransition registers an immediate transition: priority and
// weight must both be strictly positive.
func (n *Net) AddImmediateTransition(name string, priority int, weight float64) (*Transition, error) {
	if priority <= 0 || weight <= 0 {
		return nil, fmt.Errorf("%w: immediate transition %q needs priority>0 and weight>0, got priority=%d weight=%v",
			ErrInvalidStructure, name, priority, weight)
	}
	return n.addTransition(name, false, priority, weight, nil)
}

// AddTimedTransition registers a timed transition (priority 0) drawing its
// firing delay from sampler.
func (n *Net) AddTimedTransition(name string, sampler Sampler) (*Transition, error) {
	if sampler == nil {
		return nil, fmt.Errorf("%w: timed transition %q given a nil sampler", ErrInvalidStructure, name)
	}
	return n.addTransition(name, true, 0, 0, sampler)
}

func (n *Net) addTransition(name string, timed bool, priority int, weight float64, sampler Sampler) (*Transition, error) {
	if _, ok := n.transitionByName[name]; ok {
		return nil, fmt.Errorf("%w: transition %q", ErrDuplicateName, name)
	}
	t := &Transition{
		ID:       uuid.NewString(),
		Name:     name,
		ordinal:  len(n.transitions),
		net:      n,
		timed:    timed,
		priority: priority,
		weight:   weight,
		sampler:  sampler,
	}
	n.transitions = append(n.transitions, t)
	n.transitionByName[name] = t

	af := autofire.New(n.scheduler, t)
	n.autofires = append(n.autofires, af)
	t.attachObserver(af)
	for _, pl := range n.plugins {
		if o := pl.ObserveTransition(t); o != nil {
			t.attachObserver(o)
		}
	}
	return t, nil
}

func (n *Net) resolveTransition(name string) (*Transition, error) {
	t, ok := n.transitionByName[name]
	if !ok {
		return nil, fmt.Errorf("%w: transition %q", ErrUnknownName, name)
	}
	return t, nil
}

func (n *Net) resolvePlace(name string) (*Place, error) {
	p, ok := n.placeByName[name]
	if !ok {
		return nil, fmt.Errorf("%w: place %q", ErrUnknownName, name)
	}
	return p, nil
}

func (n *Net) newArc(name string, kind ArcKind, transition *Transition, place, outputPlace *Place, tokenType *TokenType) (*Arc, error) {
	if _, ok := n.arcByName[name]; ok {
		return nil, fmt.Errorf("%w: arc %q", ErrDuplicateName, name)
	}
	a := &Arc{
		ID:             uuid.NewString(),
		Name:           name,
		kind:           kind,
		transition:     transition,
		place:          place,
		outputPlace:    outputPlace,
		tokenType:      tokenType,
		locallyEnabled: true,
	}
	n.arcs = append(n.arcs, a)
	n.arcByName[name] = a
	transition.addArc(a)
	return a, nil
}

// AddTest adds a non-consuming presence arc: transitionName is enabled only
// while placeName is non-empty.
func (n *Net) AddTest(name, transitionName, placeName string) (*Arc, error) {
	t, err := n.resolveTransition(transitionName)
	if err != nil {
		return nil, err
	}
	p, err := n.resolvePlace(placeName)
	if err != nil {
		return nil, err
	}
	if err := p.acceptArc(Test, t.IsTimed()); err != nil {
		return nil, err
	}
	a, err := n.newArc(name, Test, t, p, nil, nil)
	if err != nil {
		return nil, err
	}
	p.attachPresenceObserver(a)
	return a, nil
}

// AddInhibitor adds an inverse presence arc: transitionName is enabled only
// while placeName is empty.
func (n *Net) AddInhibitor(name, placeName, transitionName string) (*Arc, error) {
	t, err := n.resolveTransition(transitionName)
	if err != nil {
		return nil, err
	}
	p, err := n.resolvePlace(placeName)
	if err != nil {
		return nil, err
	}
	if err := p.acceptArc(Inhibitor, t.IsTimed()); err != nil {
		return nil, err
	}
	a, err := n.newArc(name, Inhibitor, t, p, nil, nil)
	if err != nil {
		return nil, err
	}
	p.attachPresenceObserver(a)
	return a, nil
}

// AddDestructor adds a consuming presence arc: firing pops a token from
// placeName and destroys it.
func (n *Net) AddDestructor(name, transitionName, placeName string) (*Arc, error) {
	t, err := n.resolveTransition(transitionName)
	if err != nil {
		return nil, err
	}
	p, err := n.resolvePlace(placeName)
	if err != nil {
		return nil, err
	}
	if err := p.acceptArc(Destructor, t.IsTimed()); err != nil {
		return nil, err
	}
	a, err := n.newArc(name, Destructor, t, p, nil, nil)
	if err != nil {
		return nil, err
	}
	p.attachPresenceObserver(a)
	return a, nil
}

// AddConstructor adds a token-placer arc: firing allocates a fresh token of
// placeName's type and pushes it there. Constructor arcs take no part in
// the place status FSM: they are not presence observers.
func (n *Net) AddConstructor(name, transitionName, placeName string) (*Arc, error) {
	t, err := n.resolveTransition(transitionName)
	if err != nil {
		return nil, err
	}
	p, err := n.resolvePlace(placeName)
	if err != nil {
		return nil, err
	}
	return n.newArc(name, Constructor, t, nil, p, p.typ)
}

// AddTransfer adds a presence-observing token-placer arc: firing moves one
// token from inputPlace to outputPlace atomically. Only inputPlace
// participates in the place status FSM.
func (n *Net) AddTransfer(name, transitionName, inputPlace, outputPlace string) (*Arc, error) {
	t, err := n.resolveTransition(transitionName)
	if err != nil {
		return nil, err
	}
	in, err := n.resolvePlace(inputPlace)
	if err != nil {
		return nil, err
	}
	out, err := n.resolvePlace(outputPlace)
	if err != nil {
		return nil, err
	}
	if in.typ != out.typ {
		return nil, fmt.Errorf("%w: transfer %q moves between places of different token types (%q vs %q)",
			ErrInvalidStructure, name, in.typ.Name, out.typ.Name)
	}
	if err := in.acceptArc(Transfer, t.IsTimed()); err != nil {
		return nil, err
	}
	a, err := n.newArc(name, Transfer, t, in, out, in.typ)
	if err != nil {
		return nil, err
	}
	in.attachPresenceObserver(a)
	return a, nil
}

// RegisterPlugin attaches plugin's observers to every place and transition
// that already exists, and arranges for every future token, place and
// transition to be offered to it too.
func (n *Net) RegisterPlugin(plugin Plugin) {
	n.plugins = append(n.plugins, plugin)
	for _, p := range n.places {
		if o := plugin.ObservePlace(p); o != nil {
			p.attachObserver(o)
		}
	}
	for _, t := range n.transitions {
		if o := plugin.ObserveTransition(t); o != nil {
			t.attachObserver(o)
		}
	}
}

func (n *Net) newToken(typ *TokenType) *Token {
	n.nextTokenID++
	tok := &Token{id: n.nextTokenID, typ: typ}
	for _, pl := range n.plugins {
		if o := pl.ObserveToken(tok); o != nil {
			tok.attachObserver(o)
		}
	}
	n.tokens = append(n.tokens, tok)
	tok.reportConstruction()
	return tok
}

func (n *Net) destroyToken(tok *Token) {
	tok.reportDestruction()
	if idx := int(tok.id) - 1; idx >= 0 && idx < len(n.tokens) {
		n.tokens[idx] = nil
	}
}

// Start primes the schedule from the enablement recorded while the net was
// built and transitions the net to running.
func (n *Net) Start() error {
	if err := n.scheduler.Start(); err != nil {
		return err
	}
	n.started = true
	return nil
}

// FireNext asks fire control to select and fire the next transition,
// advancing virtual time as needed. It also surfaces the most recent
// autofire bridge error, if any: GotEnabled/GotDisabled have no error
// return of their own, so a bad sample raised while the previous firing's
// arcs crossed a transition's enablement is reported here instead.
func (n *Net) FireNext() error {
	if err := n.scheduler.FireNext(); err != nil {
		if errors.Is(err, sched.ErrNoEnabledTransition) {
			return fmt.Errorf("%w: %w", ErrNoEnabledTransition, err)
		}
		return err
	}
	return n.autofireErr()
}

func (n *Net) autofireErr() error {
	for _, af := range n.autofires {
		if err := af.Err(); err != nil {
			return err
		}
	}
	return nil
}

// Reset empties every place (which drives transitions back to their
// build-time disabled-arc-count through the ordinary push/pop observer
// path) and replays the scheduler's original build-time enablement,
// restoring the marking and schedule produced by the original build.
func (n *Net) Reset() error {
	for _, p := range n.places {
		for !p.IsEmpty() {
			if _, err := p.pop(); err != nil {
				return err
			}
		}
	}
	n.tokens = n.tokens[:0]
	n.nextTokenID = 0
	n.scheduler.Reset()
	n.started = false
	return n.Start()
}
