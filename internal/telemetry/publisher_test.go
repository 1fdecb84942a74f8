package telemetry

import (
	"encoding/json"
	"errors"
	"io"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wirebond/bondtrack"
	"github.com/wirebond/bondtrack/internal/feed"
	"github.com/wirebond/bondtrack/internal/log"
	"github.com/wirebond/bondtrack/tracker"
)

func TestMain(m *testing.M) {
	log.SetOutput(io.Discard, "error")
	os.Exit(m.Run())
}

type published struct {
	subject string
	data    []byte
}

type fakeConn struct {
	msgs     []published
	err      error
	drainErr error
	drained  bool
	closed   bool
}

func (f *fakeConn) Publish(subject string, data []byte) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, published{subject, data})
	return nil
}

func (f *fakeConn) Drain() error {
	f.drained = true
	return f.drainErr
}

func (f *fakeConn) Close() {
	f.closed = true
}

func (f *fakeConn) subjects() []string {
	var out []string
	for _, m := range f.msgs {
		out = append(out, m.subject)
	}
	return out
}

func message(frame uint64, tip tracker.Phase) feed.Message {
	msg := feed.Message{
		Session: "s1",
		Time:    time.Unix(1700000000, 0).UTC(),
		Frame:   frame,
	}
	msg.Targets[bondtrack.Tip] = tracker.State{Kind: bondtrack.Tip, Phase: tip, OK: tip == tracker.Tracking}
	msg.Targets[bondtrack.Reel] = tracker.State{Kind: bondtrack.Reel}
	return msg
}

func TestPublishDisconnectedIsNoop(t *testing.T) {

	p := NewPublisher("bondtrack.targets", 0)

	assert.False(t, p.Enabled())
	assert.NoError(t, p.Publish(message(1, tracker.Tracking)))
	assert.Equal(t, Stats{}, p.Stats())
	assert.NoError(t, p.Close())
}

func TestPublishSnapshotAndEvents(t *testing.T) {

	fc := &fakeConn{}
	p := NewPublisher("bondtrack.targets", 0)
	p.setConn(fc)
	require.True(t, p.Enabled())

	require.NoError(t, p.Publish(message(1, tracker.Uninitialized)))
	require.NoError(t, p.Publish(message(2, tracker.Tracking)))
	require.NoError(t, p.Publish(message(3, tracker.Tracking)))
	require.NoError(t, p.Publish(message(4, tracker.Degraded)))

	assert.Equal(t, []string{
		"bondtrack.targets",
		"bondtrack.targets.events",
		"bondtrack.targets",
		"bondtrack.targets",
		"bondtrack.targets.events",
		"bondtrack.targets",
	}, fc.subjects())

	assert.Equal(t, Stats{Snapshots: 4, Events: 2}, p.Stats())

	var ev Event
	require.NoError(t, json.Unmarshal(fc.msgs[4].data, &ev))
	assert.Equal(t, bondtrack.Tip, ev.Kind)
	assert.Equal(t, tracker.Tracking, ev.From)
	assert.Equal(t, tracker.Degraded, ev.To)
	assert.Equal(t, uint64(4), ev.Frame)

	var snap feed.Message
	require.NoError(t, json.Unmarshal(fc.msgs[5].data, &snap))
	assert.Equal(t, uint64(4), snap.Frame)
	assert.Equal(t, "s1", snap.Session)
}

func TestPublishThrottlesSnapshotsNotEvents(t *testing.T) {

	fc := &fakeConn{}
	p := NewPublisher("t", time.Hour)
	p.setConn(fc)

	require.NoError(t, p.Publish(message(1, tracker.Tracking)))
	require.NoError(t, p.Publish(message(2, tracker.Degraded)))
	require.NoError(t, p.Publish(message(3, tracker.Degraded)))

	assert.Equal(t, []string{"t.events", "t", "t.events"}, fc.subjects())
	assert.Equal(t, Stats{Snapshots: 1, Events: 2}, p.Stats())

	// a new session sends again straight away
	p.Reset()
	require.NoError(t, p.Publish(message(1, tracker.Uninitialized)))
	assert.Equal(t, []string{"t.events", "t", "t.events", "t"}, fc.subjects())
}

func TestPublishError(t *testing.T) {

	fc := &fakeConn{err: errors.New("connection lost")}
	p := NewPublisher("t", 0)
	p.setConn(fc)

	err := p.Publish(message(1, tracker.Uninitialized))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection lost")
	assert.Equal(t, uint64(1), p.Stats().Failures)
}

func TestClose(t *testing.T) {

	fc := &fakeConn{}
	p := NewPublisher("t", 0)
	p.setConn(fc)

	require.NoError(t, p.Close())
	assert.True(t, fc.drained)
	assert.False(t, fc.closed)
	assert.False(t, p.Enabled())

	fc = &fakeConn{drainErr: errors.New("drain failed")}
	p.setConn(fc)

	assert.Error(t, p.Close())
	assert.True(t, fc.closed)
}

func TestConnectFails(t *testing.T) {

	p := NewPublisher("t", 0)

	// nothing listens on port 1
	err := p.Connect("nats://127.0.0.1:1", "bondtrack-test")
	require.Error(t, err)
	assert.False(t, p.Enabled())
}
