package websocket

import (
	"context"
	"encoding/json"

	"github.com/sirupsen/logrus"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	valkeylib "github.com/valkey-io/valkey-go"
	"github.com/wppweb/gateway/infrastructure/valkey"
)

type client struct {
	instanceID string
}

// BroadcastMessage is one realtime frame fanned out to browser sessions
// subscribed to an instance channel.
type BroadcastMessage struct {
	InstanceID string `json:"instance_id"`
	Event      string `json:"event"`
	Payload    any    `json:"payload,omitempty"`
	SenderID   string `json:"sender_id,omitempty"`
}

type registration struct {
	conn       *websocket.Conn
	instanceID string
}

// Hub fans realtime events out to connected browser sessions, one logical
// channel per instance. With a Valkey client attached, broadcasts also
// propagate to sibling gateway nodes over pub/sub. Implements
// domains/realtime.IPublisher.
type Hub struct {
	clients    map[*websocket.Conn]client
	register   chan registration
	unregister chan *websocket.Conn
	broadcast  chan BroadcastMessage

	vkClient *valkey.Client
	localID  string
}

const wsChannel = "wppweb:ws_broadcast"

func NewHub(vkClient *valkey.Client) *Hub {
	return &Hub{
		clients:    make(map[*websocket.Conn]client),
		register:   make(chan registration),
		unregister: make(chan *websocket.Conn),
		broadcast:  make(chan BroadcastMessage, 256),
		vkClient:   vkClient,
		localID:    uuid.NewString(),
	}
}

// Publish queues one event for the instance's sessions. Never blocks the
// caller; when the hub is saturated the frame is dropped with a warning.
func (h *Hub) Publish(instanceID, event string, payload any) {
	msg := BroadcastMessage{InstanceID: instanceID, Event: event, Payload: payload}
	select {
	case h.broadcast <- msg:
	default:
		logrus.Warnf("[WS] Broadcast queue full, dropping %s for %s", event, instanceID)
	}
}

func (h *Hub) handleRegister(reg registration) {
	h.clients[reg.conn] = client{instanceID: reg.instanceID}
	logrus.Debugf("[WS] Session registered on instance %s", reg.instanceID)
}

func (h *Hub) handleUnregister(conn *websocket.Conn) {
	delete(h.clients, conn)
	logrus.Debug("[WS] Session unregistered")
}

func (h *Hub) broadcastToLocal(message BroadcastMessage) {
	frame, err := json.Marshal(message)
	if err != nil {
		logrus.Errorf("[WS] Marshal error: %v", err)
		return
	}

	for conn, cl := range h.clients {
		if cl.instanceID != message.InstanceID {
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			logrus.Errorf("[WS] Write error: %v", err)
			h.closeConnection(conn)
		}
	}
}

func (h *Hub) publishToValkey(message BroadcastMessage) {
	if h.vkClient == nil {
		return
	}

	// Attach local ID as sender so the subscriber can ignore its own frames
	message.SenderID = h.localID

	data, err := json.Marshal(message)
	if err != nil {
		return
	}

	ctx := context.Background()
	inner := h.vkClient.Inner()
	cmd := inner.B().Publish().Channel(wsChannel).Message(string(data)).Build()
	if err := inner.Do(ctx, cmd).Error(); err != nil {
		logrus.Errorf("[WS] Failed to publish to Valkey: %v", err)
	}
}

func (h *Hub) startValkeySubscriber() {
	if h.vkClient == nil {
		return
	}

	logrus.Info("[WS] Starting Valkey Pub/Sub subscriber for distributed events")
	go func() {
		inner := h.vkClient.Inner()
		err := inner.Receive(context.Background(), inner.B().Subscribe().Channel(wsChannel).Build(), func(msg valkeylib.PubSubMessage) {
			var broadcastMsg BroadcastMessage
			if err := json.Unmarshal([]byte(msg.Message), &broadcastMsg); err == nil {
				// Avoid loops: ignore messages sent by this same node
				if broadcastMsg.SenderID == h.localID {
					return
				}
				h.broadcastToLocal(broadcastMsg)
			}
		})
		if err != nil {
			logrus.Errorf("[WS] Valkey subscriber failed: %v", err)
		}
	}()
}

func (h *Hub) closeConnection(conn *websocket.Conn) {
	_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
	_ = conn.Close()
	delete(h.clients, conn)
}

func (h *Hub) RunHub() {
	h.startValkeySubscriber()

	for {
		select {
		case reg := <-h.register:
			h.handleRegister(reg)

		case conn := <-h.unregister:
			h.handleUnregister(conn)

		case message := <-h.broadcast:
			// 1. Send to local sessions immediately
			h.broadcastToLocal(message)

			// 2. If Valkey is active, propagate to other nodes
			h.publishToValkey(message)
		}
	}
}

func RegisterRoutes(app fiber.Router, hub *Hub) {
	app.Use("/ws/:instance", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return c.SendStatus(fiber.StatusUpgradeRequired)
	})

	app.Get("/ws/:instance", websocket.New(func(conn *websocket.Conn) {
		instanceID := conn.Params("instance")
		defer func() {
			hub.unregister <- conn
			_ = conn.Close()
		}()

		hub.register <- registration{conn: conn, instanceID: instanceID}

		// The browser never sends commands on this socket; the read loop
		// only notices disconnects and discards keepalive frames.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					logrus.Debugf("[WS] Read error: %v", err)
				}
				return
			}
		}
	}))
}
