package network

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tesora-labs/tesora/events"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512

	sendQueueSize = 100
)

// WebSocketManager fans the event bus out to websocket clients and pushes
// balance updates to clients watching specific addresses.
type WebSocketManager struct {
	bus         *events.Bus
	upgrader    websocket.Upgrader
	connections map[*wsClient]struct{}
	mutex       sync.RWMutex
}

type wsClient struct {
	conn      *websocket.Conn
	send      chan []byte
	addresses map[string]bool
	mu        sync.RWMutex
}

// Subscription is the client-to-server control message.
type Subscription struct {
	Type      string   `json:"type"`
	Addresses []string `json:"addresses,omitempty"`
}

func NewWebSocketManager(bus *events.Bus) *WebSocketManager {
	m := &WebSocketManager{
		bus:         bus,
		connections: make(map[*wsClient]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				allowedOrigins := []string{"", "http://localhost:3000"}
				for _, allowed := range allowedOrigins {
					if origin == allowed {
						return true
					}
				}
				return false
			},
		},
	}

	feed := make(chan events.Event, sendQueueSize)
	bus.SubscribeAll(feed)
	go m.broadcastLoop(feed)
	return m
}

// EventFeedHandler upgrades the request and streams events until the
// client goes away.
func (m *WebSocketManager) EventFeedHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Failed to upgrade websocket: %v", err)
		return
	}

	client := &wsClient{
		conn:      conn,
		send:      make(chan []byte, sendQueueSize),
		addresses: make(map[string]bool),
	}

	m.mutex.Lock()
	m.connections[client] = struct{}{}
	m.mutex.Unlock()

	go m.writePump(client)
	go m.readPump(client)
}

func (m *WebSocketManager) readPump(client *wsClient) {
	defer m.drop(client)

	client.conn.SetReadLimit(maxMessageSize)
	client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		client.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := client.conn.ReadMessage()
		if err != nil {
			return
		}

		var sub Subscription
		if err := json.Unmarshal(raw, &sub); err != nil {
			continue
		}
		switch sub.Type {
		case "subscribe":
			client.mu.Lock()
			for _, addr := range sub.Addresses {
				client.addresses[addr] = true
			}
			client.mu.Unlock()
		case "unsubscribe":
			client.mu.Lock()
			for _, addr := range sub.Addresses {
				delete(client.addresses, addr)
			}
			client.mu.Unlock()
		}
	}
}

func (m *WebSocketManager) writePump(client *wsClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		m.drop(client)
	}()

	for {
		select {
		case msg, ok := <-client.send:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (m *WebSocketManager) drop(client *wsClient) {
	m.mutex.Lock()
	if _, ok := m.connections[client]; ok {
		delete(m.connections, client)
		close(client.send)
	}
	m.mutex.Unlock()
	client.conn.Close()
}

func (m *WebSocketManager) broadcastLoop(feed chan events.Event) {
	for ev := range feed {
		msg, err := json.Marshal(map[string]interface{}{
			"type":  "event",
			"event": ev,
		})
		if err != nil {
			log.Printf("Failed to encode event %s: %v", ev.ID, err)
			continue
		}

		m.mutex.RLock()
		for client := range m.connections {
			select {
			case client.send <- msg:
			default:
				// slow consumer, skip this event for it
			}
		}
		m.mutex.RUnlock()
	}
}

// NotifyBalanceUpdate pushes a balance update to every client watching the
// address. Satisfies the balance manager's notifier.
func (m *WebSocketManager) NotifyBalanceUpdate(address string, balance int64) error {
	msg, err := json.Marshal(map[string]interface{}{
		"type":    "balance",
		"address": address,
		"balance": balance,
	})
	if err != nil {
		return err
	}

	m.mutex.RLock()
	defer m.mutex.RUnlock()
	for client := range m.connections {
		client.mu.RLock()
		watching := client.addresses[address]
		client.mu.RUnlock()
		if !watching {
			continue
		}
		select {
		case client.send <- msg:
		default:
		}
	}
	return nil
}
