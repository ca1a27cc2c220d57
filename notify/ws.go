package notify

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/warp/attendance-engine/generic"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origin policy is enforced by the CORS layer in front of the router.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// TopicFromRequest resolves the topic a WebSocket client asks for:
// ?employee_id=<id> for a personal feed, ?admin=1 for the dashboard feed.
func TopicFromRequest(r *http.Request) (string, bool) {
	q := r.URL.Query()
	if q.Get("admin") == "1" || q.Get("admin") == "true" {
		return AdminTopic, true
	}
	if id := q.Get("employee_id"); id != "" {
		return EmployeeTopic(generic.EmployeeID(id)), true
	}
	return "", false
}

// ServeWS upgrades the request and streams the topic's payloads as JSON
// text frames until the client disconnects or the hub stops.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	topic, ok := TopicFromRequest(r)
	if !ok {
		http.Error(w, "employee_id or admin=1 is required", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		h.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	sub := h.Subscribe(topic)
	closed := make(chan struct{})
	go h.readPump(conn, closed)
	h.writePump(conn, sub, closed)
}

// readPump discards client frames and signals when the connection ends.
func (h *Hub) readPump(conn *websocket.Conn, closed chan<- struct{}) {
	defer close(closed)

	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(conn *websocket.Conn, sub *Subscription, closed <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		h.Unsubscribe(sub)
		conn.Close()
	}()

	for {
		select {
		case msg, ok := <-sub.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := conn.WriteJSON(msg.Payload); err != nil {
				h.logger.Debug().Err(err).Str("subscription", sub.ID).Msg("websocket write failed")
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-closed:
			return
		}
	}
}
