package meter

import "gspn"

// PlacePopulationCollector accumulates one row every time a place's token
// count changes after a positive stretch of virtual time, recording how
// long the place held the previous count. Changes at the same instant as
// the previous change produce no row.
type PlacePopulationCollector struct {
	quota
	StartTime []float64
	Place     []uint32
	Count     []uint64
	Duration  []float64
}

func NewPlacePopulationCollector(required int) *PlacePopulationCollector {
	return &PlacePopulationCollector{quota: quota{required: required}}
}

func (c *PlacePopulationCollector) collect(startTime float64, place uint32, count uint64, duration float64) {
	c.StartTime = append(c.StartTime, startTime)
	c.Place = append(c.Place, place)
	c.Count = append(c.Count, count)
	c.Duration = append(c.Duration, duration)
	c.bump()
}

func (c *PlacePopulationCollector) GetObservations() map[string]any {
	return map[string]any{
		"start_time": c.StartTime,
		"place":      c.Place,
		"count":      c.Count,
		"duration":   c.Duration,
	}
}

func (c *PlacePopulationCollector) Reset() {
	c.reset()
	c.StartTime = nil
	c.Place = nil
	c.Count = nil
	c.Duration = nil
}

// PlacePopulationPlugin feeds a PlacePopulationCollector from every
// observed place's arrival/departure stream, optionally restricted to a
// subset of places.
type PlacePopulationPlugin struct {
	gspn.BasePlugin
	Collector *PlacePopulationCollector

	clock func() float64
	ords  map[uint32]bool
}

func NewPlacePopulationPlugin(required int, clock func() float64, places map[uint32]bool) *PlacePopulationPlugin {
	return &PlacePopulationPlugin{
		Collector: NewPlacePopulationCollector(required),
		clock:     clock,
		ords:      places,
	}
}

func (p *PlacePopulationPlugin) ObservePlace(pl *gspn.Place) gspn.PlaceObserver {
	if p.ords != nil && !p.ords[uint32(pl.Ordinal())] {
		return nil
	}
	return &placePopulationObserver{plugin: p, place: pl, lastMove: p.clock()}
}

type placePopulationObserver struct {
	plugin    *PlacePopulationPlugin
	place     *gspn.Place
	numTokens int64
	lastMove  float64
}

func (o *placePopulationObserver) update(delta int64) {
	now := o.plugin.clock()
	duration := now - o.lastMove
	if duration > 0 {
		o.plugin.Collector.collect(o.lastMove, uint32(o.place.Ordinal()), uint64(o.numTokens), duration)
	}
	o.lastMove = now
	o.numTokens += delta
}

func (o *placePopulationObserver) ReportArrivalOf(t *gspn.Token)   { o.update(1) }
func (o *placePopulationObserver) ReportDepartureOf(t *gspn.Token) { o.update(-1) }

var _ gspn.PlaceObserver = (*placePopulationObserver)(nil)
var _ gspn.Plugin = (*PlacePopulationPlugin)(nil)
var _ Collector = (*PlacePopulationCollector)(nil)
