// Package front contains the outward-facing bridges: a WebSocket server
// and an MQTT publisher that mirror the engine's egress topics to
// external consumers and feed their commands back onto the bus.
package front

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/fluxgatelabs/coilscope/internal/bus"
	"github.com/fluxgatelabs/coilscope/pkg/logging"
)

// WebSocket timing constants
const (
	wsWriteTimeout = 10 * time.Second
	wsPongTimeout  = 60 * time.Second
	wsPingInterval = 30 * time.Second
	wsSendQueue    = 32
)

// WebSocketConfig configures the WebSocket front end
type WebSocketConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Addr    string `json:"addr" mapstructure:"addr"`
	Path    string `json:"path" mapstructure:"path"`
}

// wsFrame is the JSON envelope exchanged with WebSocket clients; it
// mirrors the bus message shape
type wsFrame struct {
	Topic    string          `json:"topic"`
	Payload  json.RawMessage `json:"payload"`
	Metadata map[string]any  `json:"metadata,omitempty"`
}

type wsClient struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// WebSocketServer fans engine egress out to connected clients as JSON
// frames and forwards inbound calculation commands onto the bus
type WebSocketServer struct {
	cfg      WebSocketConfig
	b        *bus.Bus
	logger   logging.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[string]*wsClient
}

// NewWebSocketServer creates the WebSocket front end
func NewWebSocketServer(cfg WebSocketConfig, b *bus.Bus, logger logging.Logger) *WebSocketServer {
	if cfg.Path == "" {
		cfg.Path = "/ws"
	}
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	return &WebSocketServer{
		cfg:    cfg,
		b:      b,
		logger: logger.WithFields(logging.Fields{"component": "websocket"}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clients: make(map[string]*wsClient),
	}
}

// Handler returns the upgrade handler for the configured path
func (s *WebSocketServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(s.cfg.Path, s.handleUpgrade)
	return mux
}

// Run serves WebSocket clients and broadcasts engine egress until ctx is
// cancelled
func (s *WebSocketServer) Run(ctx context.Context) error {
	sub := s.b.Subscribe(bus.EngineEgress()...)
	defer sub.Close()

	server := &http.Server{Addr: s.cfg.Addr, Handler: s.Handler()}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	s.logger.Info("websocket server listening", logging.Fields{
		"addr": s.cfg.Addr,
		"path": s.cfg.Path,
	})

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = server.Shutdown(shutdownCtx)
			s.closeAllClients()
			return nil
		case err := <-errCh:
			if err == http.ErrServerClosed {
				return nil
			}
			return err
		case msg, ok := <-sub.C:
			if !ok {
				return nil
			}
			s.broadcast(msg)
		}
	}
}

func (s *WebSocketServer) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error(err, "websocket upgrade failed", logging.Fields{"remote": r.RemoteAddr})
		return
	}

	client := &wsClient{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, wsSendQueue),
	}

	s.mu.Lock()
	s.clients[client.id] = client
	count := len(s.clients)
	s.mu.Unlock()

	s.logger.Info("client connected", logging.Fields{
		"client_id": client.id,
		"remote":    r.RemoteAddr,
		"clients":   count,
	})

	go s.writePump(client)
	go s.readPump(client)
}

// broadcast encodes a bus message once and queues it on every client,
// dropping it for clients whose queue is full
func (s *WebSocketServer) broadcast(msg bus.Message) {
	payload, err := json.Marshal(msg.Payload)
	if err != nil {
		s.logger.Error(err, "payload not encodable", logging.Fields{"topic": msg.Topic})
		return
	}
	data, err := json.Marshal(wsFrame{Topic: msg.Topic, Payload: payload, Metadata: msg.Metadata})
	if err != nil {
		s.logger.Error(err, "frame not encodable", logging.Fields{"topic": msg.Topic})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, client := range s.clients {
		select {
		case client.send <- data:
		default:
			// Slow client: this frame is stale by the time it drains
		}
	}
}

func (s *WebSocketServer) writePump(client *wsClient) {
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()
	defer client.conn.Close()

	for {
		select {
		case data, ok := <-client.send:
			if !ok {
				_ = client.conn.WriteControl(websocket.CloseMessage, nil, time.Now().Add(wsWriteTimeout))
				return
			}
			_ = client.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := client.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			if err := client.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout)); err != nil {
				return
			}
		}
	}
}

// readPump consumes inbound frames. Only calculation commands are
// accepted; their payloads cross the bus as generic JSON maps so the
// engine performs the field validation.
func (s *WebSocketServer) readPump(client *wsClient) {
	defer s.dropClient(client)

	_ = client.conn.SetReadDeadline(time.Now().Add(wsPongTimeout))
	client.conn.SetPongHandler(func(string) error {
		return client.conn.SetReadDeadline(time.Now().Add(wsPongTimeout))
	})

	for {
		_, data, err := client.conn.ReadMessage()
		if err != nil {
			return
		}

		var frame wsFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			s.logger.Warn("discarding malformed frame", logging.Fields{"client_id": client.id})
			continue
		}
		if frame.Topic != bus.TopicCalculationCommand {
			s.logger.Warn("discarding frame for non-command topic", logging.Fields{
				"client_id": client.id,
				"topic":     frame.Topic,
			})
			continue
		}

		var payload map[string]any
		if err := json.Unmarshal(frame.Payload, &payload); err != nil {
			s.logger.Warn("discarding command with malformed payload", logging.Fields{"client_id": client.id})
			continue
		}

		s.b.Publish(bus.Message{
			Topic:    bus.TopicCalculationCommand,
			Payload:  payload,
			Metadata: map[string]any{"client_id": client.id},
		})
	}
}

func (s *WebSocketServer) dropClient(client *wsClient) {
	s.mu.Lock()
	_, present := s.clients[client.id]
	if present {
		delete(s.clients, client.id)
		close(client.send)
	}
	count := len(s.clients)
	s.mu.Unlock()

	if present {
		s.logger.Info("client disconnected", logging.Fields{
			"client_id": client.id,
			"clients":   count,
		})
	}
	client.conn.Close()
}

func (s *WebSocketServer) closeAllClients() {
	s.mu.Lock()
	clients := make([]*wsClient, 0, len(s.clients))
	for _, c := range s.clients {
		clients = append(clients, c)
	}
	s.clients = make(map[string]*wsClient)
	s.mu.Unlock()

	for _, c := range clients {
		close(c.send)
		c.conn.Close()
	}
}
