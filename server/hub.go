package main

import (
	"net/http"
	"sync"
	"time"

	"github.com/burntcarrot/slatepad/commons"
	"github.com/burntcarrot/slatepad/merge"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// writeWait bounds a single write to a client. Broadcasts run on the drainer,
// so a stalled peer must not hold it up for longer than this.
const writeWait = 10 * time.Second

// client is one WebSocket connection. gorilla/websocket allows a single writer at a time.
type client struct {
	id      uuid.UUID
	conn    *websocket.Conn
	timeout time.Duration
	mu      sync.Mutex // serializes writes
}

func (c *client) send(msg commons.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timeout > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.timeout)); err != nil {
			return err
		}
	}
	return c.conn.WriteJSON(msg)
}

// hub tracks live WebSocket clients and pushes the canonical document to them after every drain.
type hub struct {
	api      *api
	upgrader websocket.Upgrader
	log      logrus.FieldLogger
	timeout  time.Duration

	mu      sync.Mutex // protects clients
	clients map[*client]bool
}

func newHub(a *api, origin string, log logrus.FieldLogger) *hub {
	return &hub{
		api: a,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				o := r.Header.Get("Origin")
				return origin == "*" || o == "" || o == origin
			},
		},
		log:     log,
		timeout: writeWait,
		clients: make(map[*client]bool),
	}
}

// handleConn upgrades the connection, sends the current document and then serves the client's messages.
func (h *hub) handleConn(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("error upgrading connection to websocket")
		return
	}
	defer conn.Close()

	c := &client{id: uuid.New(), conn: conn, timeout: h.timeout}
	log := h.log.WithField("client", c.id)

	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()
	log.WithField("clients", h.count()).Info("client connected")

	defer func() {
		h.mu.Lock()
		delete(h.clients, c)
		h.mu.Unlock()
		log.Info("closing connection")
	}()

	if err := c.send(commons.Message{Type: commons.DocSyncMessage, ID: c.id, Document: h.api.store.Current()}); err != nil {
		log.WithError(err).Warn("error sending initial document")
		return
	}

	for {
		var msg commons.Message
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.WithError(err).Warn("websocket error")
			}
			return
		}

		switch msg.Type {
		case commons.DocReqMessage:
			err = c.send(commons.Message{Type: commons.DocSyncMessage, ID: c.id, Document: h.api.store.Current()})

		case commons.SendDataMessage:
			resp, _ := h.api.submit(msg.Document)
			err = c.send(commons.Message{Type: commons.AckMessage, ID: c.id, Response: &resp})

		default:
			log.WithField("type", msg.Type).Debug("ignoring unknown message type")
		}

		if err != nil {
			log.WithError(err).Warn("error sending message to client")
			return
		}
	}
}

// broadcast sends doc to every connected client. Clients that cannot be written to are dropped.
func (h *hub) broadcast(doc merge.Document) {
	h.mu.Lock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		if err := c.send(commons.Message{Type: commons.DocSyncMessage, ID: c.id, Document: doc}); err != nil {
			h.log.WithError(err).WithField("client", c.id).Warn("error broadcasting document")
			c.conn.Close()
		}
	}
}

// count returns the number of connected clients.
func (h *hub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
