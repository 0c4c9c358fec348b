package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/always-cache/section-viewer/navigation"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
)

const (
	writeWait    = 10 * time.Second
	clientBuffer = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// hub fans navigation changes out to websocket clients.
// Slow clients drop changes rather than blocking navigation.
type hub struct {
	log zerolog.Logger

	mu      sync.Mutex
	clients map[chan navigation.Change]struct{}
	closed  bool
}

func newHub(log zerolog.Logger) *hub {
	return &hub{log: log, clients: make(map[chan navigation.Change]struct{})}
}

func (h *hub) subscribe() (chan navigation.Change, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, false
	}
	ch := make(chan navigation.Change, clientBuffer)
	h.clients[ch] = struct{}{}
	return ch, true
}

func (h *hub) unsubscribe(ch chan navigation.Change) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[ch]; ok {
		delete(h.clients, ch)
		close(ch)
	}
}

func (h *hub) broadcast(change navigation.Change) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.clients {
		select {
		case ch <- change:
		default:
			h.log.Warn().Str("section", change.ID).Msg("Event client too slow, dropping change")
		}
	}
}

func (h *hub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for ch := range h.clients {
		delete(h.clients, ch)
		close(ch)
	}
}

func (h *hub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// handleEvents streams navigation changes as JSON messages.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	logger := hlog.FromRequest(r)
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn().Err(err).Msg("Websocket upgrade failed")
		return
	}
	defer conn.Close()

	changes, ok := s.events.subscribe()
	if !ok {
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
		return
	}
	defer s.events.unsubscribe(changes)

	// the reader only notices when the client goes away
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					logger.Debug().Err(err).Msg("Websocket read")
				}
				return
			}
		}
	}()

	for {
		select {
		case <-gone:
			return
		case change, ok := <-changes:
			if !ok {
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(change); err != nil {
				logger.Debug().Err(err).Msg("Websocket write")
				return
			}
		}
	}
}
