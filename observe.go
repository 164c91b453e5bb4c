package gspn

// Plugin supplies per-entity observers. All three factories are optional;
// returning nil attaches no observer for that entity. The net
// asks every registered plugin for a token-observer whenever it constructs
// a token, and for a place/transition-observer whenever a place or
// transition is added.
type Plugin interface {
	ObservePlace(p *Place) PlaceObserver
	ObserveToken(t *Token) TokenObserver
	ObserveTransition(t *Transition) TransitionObserver
}

// BasePlugin implements Plugin with every factory returning nil; embed it
// and override only the factories a concrete plugin needs.
type BasePlugin struct{}

func (BasePlugin) ObservePlace(p *Place) PlaceObserver             { return nil }
func (BasePlugin) ObserveToken(t *Token) TokenObserver             { return nil }
func (BasePlugin) ObserveTransition(t *Transition) TransitionObserver { return nil }

var _ Plugin = BasePlugin{}
