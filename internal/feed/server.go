package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/wirebond/bondtrack/internal/log"
)

const indexPage = `<!DOCTYPE html>
<html>
<head><title>bondtrack</title></head>
<body style="margin:0;background:#f5f6f8;font-family:sans-serif">
<img src="/stream" style="display:block;max-width:100%%">
<pre id="state" style="padding:8px"></pre>
<script>
const ws = new WebSocket("ws://" + location.host + "/ws");
ws.onmessage = (e) => { document.getElementById("state").textContent = JSON.stringify(JSON.parse(e.data), null, 2); };
</script>
<p style="padding:8px;color:#666">session %s</p>
</body>
</html>
`

// Server exposes the Hub and Stream over HTTP
type Server struct {
	addr    string
	session string
	hub     *Hub
	stream  *Stream
	server  *http.Server

	mu       sync.Mutex
	snapshot *Message
	listener net.Listener
}

// NewServer returns a Server listening on addr once Start is called
func NewServer(addr, session string, jpegQuality int) *Server {

	s := &Server{
		addr:    addr,
		session: session,
		hub:     NewHub(),
		stream:  NewStream(jpegQuality),
	}

	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

// Routes returns the handler serving the feed endpoints
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/stream", s.stream)
	mux.HandleFunc("/ws", s.hub.HandleWebSocket)
	mux.HandleFunc("/snapshot.json", s.handleSnapshot)
	mux.HandleFunc("/", s.handleIndex)
	return mux
}

// Hub returns the websocket hub
func (s *Server) Hub() *Hub {
	return s.hub
}

// Stream returns the MJPEG stream
func (s *Server) Stream() *Stream {
	return s.stream
}

// Publish sends msg to websocket clients and keeps it for /snapshot.json
func (s *Server) Publish(msg Message) {
	s.mu.Lock()
	s.snapshot = &msg
	s.mu.Unlock()

	s.hub.Broadcast(msg)
}

// Start binds the listener and serves in the background
func (s *Server) Start() error {

	ln, err := net.Listen("tcp", s.addr)

	if err != nil {
		return fmt.Errorf("error listening on %s: %w", s.addr, err)
	}

	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	go s.hub.Run()

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("feed server stopped", "error", err)
		}
	}()

	log.Info("feed server started", "addr", ln.Addr().String())
	return nil
}

// Addr returns the bound address, or the configured one before Start
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return s.listener.Addr().String()
	}

	return s.addr
}

// Shutdown stops the server, waiting up to the context deadline for
// requests to finish
func (s *Server) Shutdown(ctx context.Context) error {

	s.mu.Lock()
	started := s.listener != nil
	s.mu.Unlock()

	if !started {
		return nil
	}

	s.hub.Close()

	// MJPEG handlers only return once their request context is cancelled
	// so force close if the graceful shutdown runs out of time
	if err := s.server.Shutdown(ctx); err != nil {
		log.Warn("feed server shutdown error", "error", err)
		return s.server.Close()
	}

	return nil
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {

	s.mu.Lock()
	snap := s.snapshot
	s.mu.Unlock()

	if snap == nil {
		http.Error(w, "no snapshot yet", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(snap); err != nil {
		log.Debug("error writing snapshot", "error", err)
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {

	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, indexPage, s.session)
}
