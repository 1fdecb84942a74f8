package feed

import (
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/wirebond/bondtrack/internal/log"
	"gocv.io/x/gocv"
)

// DefaultJPEGQuality is used when a Stream is created with a quality
// outside 1..100
const DefaultJPEGQuality = 80

// Stream holds the latest JPEG frame and serves it as MJPEG
type Stream struct {
	mu      sync.Mutex
	frame   []byte
	notify  chan struct{}
	quality int
	// clients is the number of connected MJPEG viewers
	clients atomic.Int32
}

// NewStream returns a Stream encoding frames at the given JPEG quality
func NewStream(quality int) *Stream {

	if quality < 1 || quality > 100 {
		quality = DefaultJPEGQuality
	}

	return &Stream{
		notify:  make(chan struct{}),
		quality: quality,
	}
}

// Publish encodes img as JPEG and makes it the current frame.  Nothing is
// encoded while no client is watching.
func (s *Stream) Publish(img gocv.Mat) error {

	if img.Empty() || s.clients.Load() == 0 {
		return nil
	}

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, img,
		[]int{gocv.IMWriteJpegQuality, s.quality})

	if err != nil {
		return fmt.Errorf("error encoding jpeg: %w", err)
	}

	defer buf.Close()

	s.PublishJPEG(buf.GetBytes())
	return nil
}

// PublishJPEG makes the already encoded data the current frame and wakes
// all waiting clients
func (s *Stream) PublishJPEG(data []byte) {

	frame := make([]byte, len(data))
	copy(frame, data)

	s.mu.Lock()
	s.frame = frame
	// closing the channel wakes every waiter at once
	close(s.notify)
	s.notify = make(chan struct{})
	s.mu.Unlock()
}

// Frame returns the current JPEG frame, nil if none has been published
func (s *Stream) Frame() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frame
}

// Clients returns the number of connected MJPEG clients
func (s *Stream) Clients() int {
	return int(s.clients.Load())
}

// wait returns the current frame and a channel closed on the next Publish
func (s *Stream) wait() ([]byte, chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frame, s.notify
}

// ServeHTTP writes frames as multipart/x-mixed-replace until the client
// disconnects
func (s *Stream) ServeHTTP(w http.ResponseWriter, r *http.Request) {

	flusher, ok := w.(http.Flusher)

	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	s.clients.Add(1)
	defer s.clients.Add(-1)

	frame, next := s.wait()

	for {
		if frame != nil {
			if err := writePart(w, frame); err != nil {
				log.Debug("mjpeg client gone", "remote", r.RemoteAddr, "error", err)
				return
			}
			flusher.Flush()
		}

		select {
		case <-r.Context().Done():
			return
		case <-next:
			frame, next = s.wait()
		}
	}
}

func writePart(w http.ResponseWriter, frame []byte) error {

	_, err := fmt.Fprintf(w, "--frame\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", len(frame))

	if err != nil {
		return err
	}

	if _, err = w.Write(frame); err != nil {
		return err
	}

	_, err = w.Write([]byte("\r\n"))
	return err
}
