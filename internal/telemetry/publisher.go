// Package telemetry publishes target states to NATS so other plant systems
// can follow the bonder without the video feed.
package telemetry

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/wirebond/bondtrack"
	"github.com/wirebond/bondtrack/internal/feed"
	"github.com/wirebond/bondtrack/internal/log"
	"github.com/wirebond/bondtrack/tracker"
)

// EventSuffix is appended to the subject for phase change events
const EventSuffix = ".events"

// conn is the part of *nats.Conn the Publisher uses
type conn interface {
	Publish(subject string, data []byte) error
	Drain() error
	Close()
}

// Event is published whenever a target changes phase
type Event struct {
	Session string               `json:"session"`
	Time    time.Time            `json:"time"`
	Frame   uint64               `json:"frame"`
	Kind    bondtrack.TargetKind `json:"kind"`
	From    tracker.Phase        `json:"from"`
	To      tracker.Phase        `json:"to"`
	State   tracker.State        `json:"state"`
}

// Stats are the publisher counters
type Stats struct {
	Snapshots uint64
	Events    uint64
	Failures  uint64
}

// Publisher sends snapshots at a limited rate and phase change events as
// they happen.  Publishing while disconnected is a no-op.
type Publisher struct {
	subject  string
	throttle *bondtrack.Throttle
	conn     conn
	enabled  bool
	phases   [bondtrack.NumTargets]tracker.Phase
	stats    Stats
	mutex    sync.Mutex
}

// NewPublisher returns a disconnected Publisher for the given subject that
// sends at most one snapshot per interval
func NewPublisher(subject string, interval time.Duration) *Publisher {
	return &Publisher{
		subject:  subject,
		throttle: bondtrack.NewThrottle(interval),
	}
}

// Connect dials the NATS server, reconnecting forever in the background
// once connected
func (p *Publisher) Connect(url, name string) error {

	opts := []nats.Option{
		nats.Name(name),
		nats.ReconnectWait(2 * time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Warn("nats disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			log.Debug("nats connection closed")
		}),
	}

	nc, err := nats.Connect(url, opts...)

	if err != nil {
		return fmt.Errorf("error connecting to nats: %w", err)
	}

	p.setConn(nc)
	log.Info("nats connected", "url", url, "subject", p.subject)
	return nil
}

func (p *Publisher) setConn(c conn) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	p.conn = c
	p.enabled = c != nil
}

// Enabled reports if the publisher has a connection
func (p *Publisher) Enabled() bool {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.enabled
}

// Publish sends phase change events for msg and, if the interval has
// elapsed, the snapshot itself
func (p *Publisher) Publish(msg feed.Message) error {

	p.mutex.Lock()
	defer p.mutex.Unlock()

	if !p.enabled || p.conn == nil {
		return nil
	}

	for _, kind := range bondtrack.TargetKinds {
		st := msg.Targets[kind]

		if st.Phase == p.phases[kind] {
			continue
		}

		ev := Event{
			Session: msg.Session,
			Time:    msg.Time,
			Frame:   msg.Frame,
			Kind:    kind,
			From:    p.phases[kind],
			To:      st.Phase,
			State:   st,
		}

		p.phases[kind] = st.Phase

		if err := p.send(p.subject+EventSuffix, ev); err != nil {
			return err
		}

		p.stats.Events++
	}

	if !p.throttle.Allow() {
		return nil
	}

	if err := p.send(p.subject, msg); err != nil {
		return err
	}

	p.stats.Snapshots++
	return nil
}

// send marshals and publishes data, must be called with the mutex held
func (p *Publisher) send(subject string, data any) error {

	payload, err := json.Marshal(data)

	if err != nil {
		p.stats.Failures++
		return fmt.Errorf("error serializing %s: %w", subject, err)
	}

	if err := p.conn.Publish(subject, payload); err != nil {
		p.stats.Failures++
		return fmt.Errorf("error publishing to %s: %w", subject, err)
	}

	return nil
}

// Reset forgets the last known phases, used when a new camera session starts
func (p *Publisher) Reset() {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	p.phases = [bondtrack.NumTargets]tracker.Phase{}
	p.throttle.Reset()
}

// Stats returns the publisher counters
func (p *Publisher) Stats() Stats {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.stats
}

// Close drains pending messages and closes the connection
func (p *Publisher) Close() error {

	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.conn == nil {
		return nil
	}

	err := p.conn.Drain()

	if err != nil {
		p.conn.Close()
	}

	p.conn = nil
	p.enabled = false

	return err
}
