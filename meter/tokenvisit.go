package meter

import "gspn"

// TokenVisitCollector accumulates one row per place visit a token
// completes: how long the token sat at the place, and which visit (for
// that token) it was.
type TokenVisitCollector struct {
	quota
	TokenID     []uint64
	TokenType   []uint32
	StartTime   []float64
	VisitNumber []uint64
	Place       []uint32
	Duration    []float64
}

// NewTokenVisitCollector creates a collector targeting required rows.
func NewTokenVisitCollector(required int) *TokenVisitCollector {
	return &TokenVisitCollector{quota: quota{required: required}}
}

func (c *TokenVisitCollector) collect(tokenID uint64, tokenType uint32, startTime float64, visitNumber uint64, place uint32, duration float64) {
	c.TokenID = append(c.TokenID, tokenID)
	c.TokenType = append(c.TokenType, tokenType)
	c.StartTime = append(c.StartTime, startTime)
	c.VisitNumber = append(c.VisitNumber, visitNumber)
	c.Place = append(c.Place, place)
	c.Duration = append(c.Duration, duration)
	c.bump()
}

func (c *TokenVisitCollector) GetObservations() map[string]any {
	return map[string]any{
		"token_id":     c.TokenID,
		"token_type":   c.TokenType,
		"start_time":   c.StartTime,
		"visit_number": c.VisitNumber,
		"place":        c.Place,
		"duration":     c.Duration,
	}
}

func (c *TokenVisitCollector) Reset() {
	c.reset()
	c.TokenID = nil
	c.TokenType = nil
	c.StartTime = nil
	c.VisitNumber = nil
	c.Place = nil
	c.Duration = nil
}

// TokenVisitPlugin feeds a TokenVisitCollector from every token's
// arrival/departure stream, optionally restricted to a subset of places.
type TokenVisitPlugin struct {
	gspn.BasePlugin
	Collector *TokenVisitCollector

	clock      func() float64
	placeOrds  map[uint32]bool // nil means "observe every place"
	tokenCount uint64
}

// NewTokenVisitPlugin creates a plugin writing into a fresh collector.
// places, when non-nil, restricts which place ordinals generate rows.
func NewTokenVisitPlugin(required int, clock func() float64, places map[uint32]bool) *TokenVisitPlugin {
	return &TokenVisitPlugin{
		Collector: NewTokenVisitCollector(required),
		clock:     clock,
		placeOrds: places,
	}
}

func (p *TokenVisitPlugin) ObserveToken(t *gspn.Token) gspn.TokenObserver {
	p.tokenCount++
	return &tokenVisitObserver{plugin: p, token: t, tokenID: t.ID()}
}

type tokenVisitObserver struct {
	plugin      *TokenVisitPlugin
	token       *gspn.Token
	tokenID     uint64
	visitNumber uint64
	arrivalTime float64
}

func (o *tokenVisitObserver) ReportConstruction() {}
func (o *tokenVisitObserver) ReportDestruction()  {}

func (o *tokenVisitObserver) ReportArrivalAt(p *gspn.Place) {
	o.arrivalTime = o.plugin.clock()
	o.visitNumber++
}

func (o *tokenVisitObserver) ReportDepartureFrom(p *gspn.Place) {
	if o.plugin.placeOrds != nil && !o.plugin.placeOrds[uint32(p.Ordinal())] {
		return
	}
	now := o.plugin.clock()
	o.plugin.Collector.collect(o.tokenID, uint32(o.token.Type().Ordinal()), o.arrivalTime, o.visitNumber,
		uint32(p.Ordinal()), now-o.arrivalTime)
}

var _ gspn.TokenObserver = (*tokenVisitObserver)(nil)
var _ gspn.Plugin = (*TokenVisitPlugin)(nil)
var _ Collector = (*TokenVisitCollector)(nil)
