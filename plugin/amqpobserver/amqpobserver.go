// Package amqpobserver is an example gspn.Plugin that publishes a JSON
// message per transition firing and per token visit onto a RabbitMQ topic
// exchange, grounded on the teacher corpus's amqp/client controller and
// cmd/petrid driver. It demonstrates that the observer surface composes
// with an external message bus without the core depending on AMQP at all:
// the dependency is confined to this one optional package.
package amqpobserver

import (
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"gspn"
)

// Plugin publishes firing and visit events asynchronously: the firing
// thread only enqueues onto a buffered channel, which a background
// goroutine drains into the broker, so a slow broker never blocks a
// firing. This is the one place in this repository a goroutine is
// justified, and it sits entirely outside the core's single-threaded
// contract.
type Plugin struct {
	gspn.BasePlugin

	netName  string
	clock    func() float64
	logger   *zap.Logger
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
	jobs     chan publishJob
}

type publishJob struct {
	routingKey string
	body       []byte
}

// New dials amqpURL, declares a durable topic exchange named
// "<netName>.events", and starts the background publisher. clock supplies
// the net's current virtual time for every published event.
func New(amqpURL, netName string, clock func() float64, logger *zap.Logger) (*Plugin, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, fmt.Errorf("amqpobserver: dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("amqpobserver: open channel: %w", err)
	}
	exchange := netName + ".events"
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("amqpobserver: declare exchange %q: %w", exchange, err)
	}

	p := &Plugin{
		netName:  netName,
		clock:    clock,
		logger:   logger,
		conn:     conn,
		ch:       ch,
		exchange: exchange,
		jobs:     make(chan publishJob, 256),
	}
	go p.drain()
	return p, nil
}

// Close stops the background publisher and tears down the channel and
// connection. The net does not call this; the owner of the plugin does.
func (p *Plugin) Close() error {
	close(p.jobs)
	if err := p.ch.Close(); err != nil {
		p.conn.Close()
		return err
	}
	return p.conn.Close()
}

func (p *Plugin) drain() {
	for job := range p.jobs {
		err := p.ch.Publish(p.exchange, job.routingKey, false, false, amqp.Publishing{
			ContentType: "application/json",
			Body:        job.body,
		})
		if err != nil {
			p.logger.Warn("amqpobserver: publish failed",
				zap.String("routingKey", job.routingKey), zap.Error(err))
		}
	}
}

func (p *Plugin) publish(routingKey string, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		p.logger.Warn("amqpobserver: marshal failed", zap.Error(err))
		return
	}
	select {
	case p.jobs <- publishJob{routingKey: routingKey, body: body}:
	default:
		p.logger.Warn("amqpobserver: dropped event, publisher backlogged", zap.String("routingKey", routingKey))
	}
}

type firingEvent struct {
	Net        string  `json:"net"`
	Transition string  `json:"transition"`
	Time       float64 `json:"time"`
}

type visitEvent struct {
	Net     string  `json:"net"`
	Place   string  `json:"place"`
	TokenID uint64  `json:"token_id"`
	Time    float64 `json:"time"`
}

func (p *Plugin) ObserveTransition(t *gspn.Transition) gspn.TransitionObserver {
	return &firingObserver{plugin: p, transition: t}
}

func (p *Plugin) ObservePlace(pl *gspn.Place) gspn.PlaceObserver {
	return &visitObserver{plugin: p, place: pl}
}

type firingObserver struct {
	plugin     *Plugin
	transition *gspn.Transition
}

func (o *firingObserver) BeforeFiring() {}
func (o *firingObserver) GotEnabled()   {}
func (o *firingObserver) GotDisabled()  {}

func (o *firingObserver) AfterFiring() {
	routingKey := fmt.Sprintf("%s.firings.%s", o.plugin.netName, o.transition.Name)
	o.plugin.publish(routingKey, firingEvent{Net: o.plugin.netName, Transition: o.transition.Name, Time: o.plugin.clock()})
}

type visitObserver struct {
	plugin *Plugin
	place  *gspn.Place
}

func (o *visitObserver) ReportArrivalOf(t *gspn.Token) {
	routingKey := fmt.Sprintf("%s.visits.%s", o.plugin.netName, o.plugin.exchangeSafeName(o.place.Name))
	o.plugin.publish(routingKey, visitEvent{Net: o.plugin.netName, Place: o.place.Name, TokenID: t.ID(), Time: o.plugin.clock()})
}

func (o *visitObserver) ReportDepartureOf(t *gspn.Token) {}

// exchangeSafeName is a no-op placeholder for routing-key sanitisation;
// AMQP topic segments already tolerate the characters net/place names use.
func (p *Plugin) exchangeSafeName(name string) string { return name }

var _ gspn.Plugin = (*Plugin)(nil)
var _ gspn.TransitionObserver = (*firingObserver)(nil)
var _ gspn.PlaceObserver = (*visitObserver)(nil)
