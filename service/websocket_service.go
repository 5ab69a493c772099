package service

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/senjoyee/ewa-mcp/types"
)

// WebSocketService streams processing events to connected clients. It
// implements EventPublisher so it can sit next to the NATS publisher in
// a CompositeEventPublisher; a slow or dead client never blocks the
// pipeline because sends are buffered and drop on overflow.
type WebSocketService struct {
	upgrader websocket.Upgrader
	logger   *zap.Logger

	mu      sync.Mutex
	clients map[*wsClient]struct{}
}

type wsClient struct {
	conn *websocket.Conn
	send chan *types.ProcessingEvent
}

func NewWebSocketService(logger *zap.Logger) *WebSocketService {
	return &WebSocketService{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins (adjust for production)
			},
		},
		logger:  logger,
		clients: make(map[*wsClient]struct{}),
	}
}

// HandleEvents upgrades the request and streams events until the
// client disconnects.
func (s *WebSocketService) HandleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	conn.SetReadLimit(4 * 1024)
	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	client := &wsClient{
		conn: conn,
		send: make(chan *types.ProcessingEvent, 16),
	}
	s.addClient(client)
	defer s.removeClient(client)

	// Reader goroutine: we only care about detecting the close.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					s.logger.Debug("websocket read error", zap.Error(err))
				}
				return
			}
		}
	}()

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case event := <-client.send:
			if err := conn.WriteJSON(event); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Publish fans the event out to all connected clients, dropping it for
// clients whose buffers are full.
func (s *WebSocketService) Publish(event *types.ProcessingEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for client := range s.clients {
		select {
		case client.send <- event:
		default:
		}
	}
}

func (s *WebSocketService) addClient(c *wsClient) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[c] = struct{}{}
}

func (s *WebSocketService) removeClient(c *wsClient) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.clients, c)
}
