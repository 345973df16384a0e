package hub

import (
	"context"
	"log"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"

	"nhooyr.io/websocket"

	"github.com/user/termbridge/internal/protocol"
)

// RunController is the subset of the run manager the hub drives on behalf of
// connected clients.
type RunController interface {
	WriteInput(data []byte) error
	Resize(cols, rows int) error
	Snapshot() (lines []string, x, y int, err error)
}

type Hub struct {
	ctrl       RunController
	token      string
	origins    []string
	clients    map[string]*Client
	register   chan *clientRegistration
	unregister chan *Client
	broadcast  chan []byte
	mu         sync.RWMutex
	ctxWrap    *ctxWrapper
	running    atomic.Bool
}

type ctxWrapper struct {
	ctx context.Context
}

type clientRegistration struct {
	client  *Client
	initial [][]byte
}

// New creates a hub guarding access with token. An empty token disables
// authentication.
func New(token string, ctrl RunController) *Hub {
	return &Hub{
		ctrl:       ctrl,
		token:      token,
		clients:    make(map[string]*Client),
		register:   make(chan *clientRegistration, 16),
		unregister: make(chan *Client, 16),
		broadcast:  make(chan []byte, 256),
		ctxWrap:    &ctxWrapper{ctx: context.Background()},
	}
}

// SetOrigins restricts websocket upgrades to the given origin patterns.
// Call before Run; an empty list allows any origin.
func (h *Hub) SetOrigins(patterns []string) {
	h.origins = patterns
}

func (h *Hub) getContext() context.Context {
	if h.ctxWrap != nil {
		return h.ctxWrap.ctx
	}
	return context.Background()
}

func (h *Hub) Run(ctx context.Context) {
	h.ctxWrap = &ctxWrapper{ctx: ctx}
	h.running.Store(true)
	defer h.running.Store(false)

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for _, c := range h.clients {
				close(c.send)
			}
			h.clients = make(map[string]*Client)
			h.mu.Unlock()
			return

		case reg := <-h.register:
			h.mu.Lock()
			h.clients[reg.client.id] = reg.client
			h.mu.Unlock()
			for _, frame := range reg.initial {
				select {
				case reg.client.send <- frame:
				default:
				}
			}
			go reg.client.writePump(h.getContext())
			go reg.client.readPump(h.getContext())
			log.Printf("client connected: %s (total: %d)", reg.client.id, h.ClientCount())

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.id]; ok {
				delete(h.clients, client.id)
				close(client.send)
			}
			h.mu.Unlock()
			log.Printf("client disconnected: %s (total: %d)", client.id, h.ClientCount())

		case data := <-h.broadcast:
			h.mu.RLock()
			for _, c := range h.clients {
				select {
				case c.send <- data:
				default:
					log.Printf("client %s send buffer full, dropping message", c.id)
				}
			}
			h.mu.RUnlock()
		}
	}
}

func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	origins := h.origins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: origins,
	})
	if err != nil {
		log.Printf("websocket accept error: %v", err)
		return
	}

	client := newClient(conn, h)

	select {
	case h.register <- &clientRegistration{client: client, initial: h.screenFrames()}:
	default:
		log.Printf("hub not accepting connections")
		conn.Close(websocket.StatusTryAgainLater, "server busy")
		return
	}
}

func (h *Hub) authorized(r *http.Request) bool {
	if h.token == "" {
		return true
	}
	if r.URL.Query().Get("token") == h.token {
		return true
	}
	const prefix = "Bearer "
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, prefix) && strings.TrimPrefix(auth, prefix) == h.token
}

// screenFrames marshals the live screen into an output frame and a cursor
// frame, or nil when no run is live yet.
func (h *Hub) screenFrames() [][]byte {
	if h.ctrl == nil {
		return nil
	}
	lines, x, y, err := h.ctrl.Snapshot()
	if err != nil {
		return nil
	}
	return marshalScreen(lines, x, y)
}

func marshalScreen(lines []string, x, y int) [][]byte {
	out, err := protocol.Encode(protocol.EventOutput, protocol.OutputPayload{Output: lines})
	if err != nil {
		log.Printf("error marshaling output frame: %v", err)
		return nil
	}
	cur, err := protocol.Encode(protocol.EventCursorPosition, protocol.CursorPayload{X: x, Y: y})
	if err != nil {
		log.Printf("error marshaling cursor frame: %v", err)
		return nil
	}
	return [][]byte{out, cur}
}

// BroadcastScreen fans the rendered screen and cursor out to every connected
// client. It is wired as the run manager's flush sink.
func (h *Hub) BroadcastScreen(lines []string, x, y int) {
	for _, frame := range marshalScreen(lines, x, y) {
		select {
		case h.broadcast <- frame:
		default:
			log.Printf("broadcast channel full, dropping frame")
		}
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) isRunning() bool {
	return h.running.Load()
}

func (h *Hub) unregisterClient(c *Client) {
	if !h.isRunning() {
		c.conn.Close(websocket.StatusNormalClosure, "")
		return
	}
	select {
	case h.unregister <- c:
	default:
		log.Printf("unregister channel full for client %s, forcing close", c.id)
		c.conn.Close(websocket.StatusNormalClosure, "")
	}
}
