package events

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"isl-announcer/internal/logging"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	bufferSize = 32
)

// Event is a generation progress update for one announcement.
type Event struct {
	AnnouncementID string    `json:"announcementId"`
	Stage          string    `json:"stage"`
	Segment        int       `json:"segment,omitempty"`
	Total          int       `json:"total,omitempty"`
	Message        string    `json:"message,omitempty"`
	Time           time.Time `json:"time"`
}

// Terminal reports whether no further events follow e.
func (e Event) Terminal() bool {
	return e.Stage == "done" || e.Stage == "failed"
}

// Hub fans out events to subscribers keyed by announcement ID.
type Hub struct {
	mu   sync.Mutex
	subs map[string]map[chan Event]struct{}

	upgrader websocket.Upgrader
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		subs: make(map[string]map[chan Event]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// Subscribe registers for events about id. Call the returned function to stop.
func (h *Hub) Subscribe(id string) (<-chan Event, func()) {
	ch := make(chan Event, bufferSize)

	h.mu.Lock()
	if h.subs[id] == nil {
		h.subs[id] = make(map[chan Event]struct{})
	}
	h.subs[id][ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[id], ch)
			if len(h.subs[id]) == 0 {
				delete(h.subs, id)
			}
			h.mu.Unlock()
		})
	}
}

// Publish sends ev to every subscriber of ev.AnnouncementID. Slow subscribers
// miss events rather than block the generator.
func (h *Hub) Publish(ev Event) {
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.subs[ev.AnnouncementID] {
		select {
		case ch <- ev:
		default:
			logging.Debug("Events: dropped %s event for slow subscriber of %s", ev.Stage, ev.AnnouncementID)
		}
	}
}

// Subscribers returns the number of listeners for id.
func (h *Hub) Subscribers(id string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[id])
}

// ServeWS upgrades the request and streams events for id as JSON messages
// until a terminal event is sent or the client goes away.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, id string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn("Events: websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	events, unsubscribe := h.Subscribe(id)
	defer unsubscribe()

	// The client sends nothing; reading is only for control frames and close.
	closed := make(chan struct{})
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case ev := <-events:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(ev); err != nil {
				logging.Debug("Events: write to %s failed: %v", r.RemoteAddr, err)
				return
			}
			if ev.Terminal() {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ev.Stage),
					time.Now().Add(writeWait))
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-closed:
			return
		case <-r.Context().Done():
			return
		}
	}
}
