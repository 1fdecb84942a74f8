package feed

import (
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/wirebond/bondtrack/internal/log"
)

// writeWait bounds a single websocket write, a client that can not take a
// message in this time is dropped
const writeWait = 2 * time.Second

// client is a websocket connection with its own outgoing slot.  Only the
// newest message is kept so a slow reader never delays the others.
type client struct {
	conn *websocket.Conn
	send chan Message
}

// Hub fans Messages out to every connected websocket client
type Hub struct {
	clients    map[*client]bool
	broadcast  chan Message
	register   chan *client
	unregister chan *client
	quit       chan struct{}
	closeOnce  sync.Once
	count      atomic.Int32
	writeWait  time.Duration
	// latest message, sent to clients as soon as they connect
	latest atomic.Pointer[Message]
}

// NewHub returns a Hub, Run must be called to start delivering messages
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*client]bool),
		broadcast:  make(chan Message, 1),
		register:   make(chan *client),
		unregister: make(chan *client),
		quit:       make(chan struct{}),
		writeWait:  writeWait,
	}
}

// Run delivers messages until Close is called.  It never writes to a
// connection itself, each client has a writer goroutine.
func (h *Hub) Run() {

	for {
		select {
		case <-h.quit:
			for c := range h.clients {
				h.drop(c)
			}
			return

		case c := <-h.register:
			h.clients[c] = true
			h.count.Store(int32(len(h.clients)))
			log.Debug("feed client connected", "remote", c.conn.RemoteAddr(), "clients", len(h.clients))

			if msg := h.latest.Load(); msg != nil {
				offer(c.send, *msg)
			}

			go h.write(c)

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				h.drop(c)
				log.Debug("feed client disconnected", "remote", c.conn.RemoteAddr(), "clients", len(h.clients))
			}

		case msg := <-h.broadcast:
			for c := range h.clients {
				offer(c.send, msg)
			}
		}
	}
}

// drop removes c, its writer closes the connection.  Only called from Run.
func (h *Hub) drop(c *client) {
	delete(h.clients, c)
	h.count.Store(int32(len(h.clients)))
	close(c.send)
}

// write sends queued messages to c until its slot is closed or a write
// fails or exceeds the write deadline
func (h *Hub) write(c *client) {

	defer c.conn.Close()

	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(h.writeWait))

		if err := c.conn.WriteJSON(msg); err != nil {
			log.Debug("feed write failed, dropping client", "remote", c.conn.RemoteAddr(), "error", err)
			// the reader sees the closed connection and unregisters c
			return
		}
	}
}

// offer puts msg into ch, replacing a message that is still queued
func offer(ch chan Message, msg Message) {

	for {
		select {
		case ch <- msg:
			return
		default:
		}

		// drop the stale queued message and retry
		select {
		case <-ch:
		default:
		}
	}
}

// Broadcast queues msg for all clients without blocking.  If the previous
// message has not been delivered yet it is replaced.
func (h *Hub) Broadcast(msg Message) {

	h.latest.Store(&msg)

	if h.count.Load() == 0 {
		return
	}

	offer(h.broadcast, msg)
}

// Clients returns the number of connected clients
func (h *Hub) Clients() int {
	return int(h.count.Load())
}

// Close stops Run and disconnects every client
func (h *Hub) Close() {
	h.closeOnce.Do(func() {
		close(h.quit)
	})
}

// upgrader accepts connections from any origin, the feed is read only
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// HandleWebSocket upgrades the request and registers the client
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {

	if !websocket.IsWebSocketUpgrade(r) {
		http.Error(w, "not a websocket request", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)

	if err != nil {
		log.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &client{conn: conn, send: make(chan Message, 1)}

	select {
	case h.register <- c:
	case <-h.quit:
		conn.Close()
		return
	}

	// read until the client goes away, incoming messages are ignored
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err,
					websocket.CloseGoingAway,
					websocket.CloseAbnormalClosure) {
					log.Debug("websocket read error", "error", err)
				}

				select {
				case h.unregister <- c:
				case <-h.quit:
				}
				return
			}
		}
	}()
}
