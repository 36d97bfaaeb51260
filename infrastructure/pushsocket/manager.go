package pushsocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	domainEvent "github.com/wppweb/gateway/domains/event"
)

// Handler receives every decoded event from an instance's push channel.
type Handler func(instanceID string, evt domainEvent.Event)

type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Manager maintains one websocket subscription per instance against the
// provider's push channel, reconnecting with a growing backoff when the
// connection drops. Subscriptions are idempotent: Ensure on an already
// subscribed instance is a no-op.
type Manager struct {
	baseURL string
	apiKey  string
	handler Handler

	mu   sync.Mutex
	subs map[string]context.CancelFunc
}

func NewManager(baseURL, apiKey string, handler Handler) *Manager {
	return &Manager{
		baseURL: wsBaseURL(baseURL),
		apiKey:  apiKey,
		handler: handler,
		subs:    make(map[string]context.CancelFunc),
	}
}

func wsBaseURL(httpURL string) string {
	switch {
	case strings.HasPrefix(httpURL, "https://"):
		return "wss://" + strings.TrimPrefix(httpURL, "https://")
	case strings.HasPrefix(httpURL, "http://"):
		return "ws://" + strings.TrimPrefix(httpURL, "http://")
	}
	return httpURL
}

// Ensure starts the subscription loop for an instance if one is not
// already running.
func (m *Manager) Ensure(instanceID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.subs[instanceID]; ok {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.subs[instanceID] = cancel
	go m.subscribe(ctx, instanceID)
	logrus.Infof("[PUSH_SOCKET] Subscribed to instance %s", instanceID)
}

// Drop terminates the subscription for an instance.
func (m *Manager) Drop(instanceID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cancel, ok := m.subs[instanceID]; ok {
		cancel()
		delete(m.subs, instanceID)
	}
}

// Close terminates every subscription.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, cancel := range m.subs {
		cancel()
		delete(m.subs, id)
	}
}

const (
	initialReconnectDelay = time.Second
	maxReconnectDelay     = 30 * time.Second

	// A connection that held this long was healthy, so the next reconnect
	// cycle starts from the shortest delay again.
	stableConnAge = time.Minute
)

// reconnectDelay returns the wait before the next dial attempt. It doubles
// on consecutive quick failures up to a cap and resets once a connection
// proved stable.
func reconnectDelay(prev, connectedFor time.Duration) time.Duration {
	if prev <= 0 || connectedFor >= stableConnAge {
		return initialReconnectDelay
	}
	next := prev * 2
	if next > maxReconnectDelay {
		next = maxReconnectDelay
	}
	return next
}

func (m *Manager) subscribe(ctx context.Context, instanceID string) {
	var delay time.Duration

	for {
		if ctx.Err() != nil {
			return
		}

		started := time.Now()
		err := m.readLoop(ctx, instanceID)
		if ctx.Err() != nil {
			return
		}

		delay = reconnectDelay(delay, time.Since(started))
		if err != nil {
			logrus.Warnf("[PUSH_SOCKET] Connection to %s lost: %v, reconnecting in %s", instanceID, err, delay)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

func (m *Manager) readLoop(ctx context.Context, instanceID string) error {
	header := http.Header{}
	if m.apiKey != "" {
		header.Set("apikey", m.apiKey)
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, m.baseURL+"/"+instanceID, header)
	if err != nil {
		return err
	}
	defer conn.Close()

	// Close the connection when the subscription is cancelled so ReadMessage
	// unblocks.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	logrus.Infof("[PUSH_SOCKET] Connected to %s", instanceID)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var f frame
		if err := json.Unmarshal(data, &f); err != nil {
			logrus.Warnf("[PUSH_SOCKET] Dropping malformed frame from %s: %v", instanceID, err)
			continue
		}

		evt, err := domainEvent.Decode(f.Event, f.Data)
		if err != nil {
			var unknown *domainEvent.ErrUnknownEvent
			if errors.As(err, &unknown) {
				continue
			}
			logrus.Debugf("[PUSH_SOCKET] Ignoring event %q from %s: %v", f.Event, instanceID, err)
			continue
		}

		m.handler(instanceID, evt)
	}
}
