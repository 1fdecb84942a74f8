// Package feed serves the live target states over a websocket and the
// annotated camera frames as an MJPEG stream.
package feed

import (
	"time"

	"github.com/wirebond/bondtrack"
	"github.com/wirebond/bondtrack/tracker"
)

// Message is the JSON document sent for every published frame
type Message struct {
	// Session identifies the camera session that produced the frame
	Session string    `json:"session"`
	Time    time.Time `json:"time"`
	Frame   uint64    `json:"frame"`
	// Seq of the last detection set applied
	Seq     uint64                              `json:"seq"`
	Targets [bondtrack.NumTargets]tracker.State `json:"targets"`
}

// NewMessage builds a Message from a Manager snapshot
func NewMessage(session string, snap tracker.Snapshot, ts time.Time) Message {
	return Message{
		Session: session,
		Time:    ts,
		Frame:   snap.Frame,
		Seq:     snap.Seq,
		Targets: snap.Targets,
	}
}
