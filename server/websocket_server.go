// Package server exposes the WebSocket endpoint guests connect to and
// adapts each connection into a session transport.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/opsabarsec/hotel-receptionist-voice-bot/booking"
	"github.com/opsabarsec/hotel-receptionist-voice-bot/config"
	"github.com/opsabarsec/hotel-receptionist-voice-bot/messages"
	"github.com/opsabarsec/hotel-receptionist-voice-bot/policy"
	"github.com/opsabarsec/hotel-receptionist-voice-bot/session"
)

const (
	writeBufferSize = 64
	writeTimeout    = 10 * time.Second
	maxMessageSize  = 64 * 1024
)

var errClientEnded = errors.New("client ended the session")

type Server struct {
	httpServer     *http.Server
	upgrader       websocket.Upgrader
	sessionManager *session.Manager
	config         *config.Config
}

func NewServer(cfg *config.Config, sessionManager *session.Manager) *Server {
	s := &Server{
		sessionManager: sessionManager,
		config:         cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:    4 * 1024,
			WriteBufferSize:   4 * 1024,
			EnableCompression: true,
			CheckOrigin: func(r *http.Request) bool {
				// Check allowed origins
				origin := r.Header.Get("Origin")
				for _, allowed := range cfg.AllowedOrigins {
					if allowed == "*" || allowed == origin {
						return true
					}
				}
				return false
			},
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	return s
}

// Start begins listening for connections
func (s *Server) Start() error {
	log.Printf("🚀 WebSocket server starting on port %d", s.config.Port)
	log.Printf("📡 WebSocket endpoint: ws://localhost:%d/ws", s.config.Port)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("🛑 Shutting down server...")
	s.sessionManager.Shutdown()
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	// Upgrade HTTP to WebSocket
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	transport := newWSTransport(conn)
	go transport.writePump()

	sess, err := s.sessionManager.StartSession(r.Context(), transport)
	if err != nil {
		log.Printf("Failed to create session: %v", err)
		transport.queueMessage(messages.NewErrorMessage("", messages.ErrCodeSessionFailed, err.Error()))
		transport.Close()
		return
	}
	log.Printf("✅ New session created: %s", sess.ID)

	// If the session ends first (terminal state, idle cleanup), force the
	// blocked read loop to return so the handler can finish.
	done := make(chan struct{})
	go func() {
		select {
		case <-sess.CloseChan:
			conn.SetReadDeadline(time.Now())
		case <-done:
		}
	}()

	// Run the turn loop until the session reaches a terminal state or the
	// client goes away.
	sess.Run(r.Context())
	close(done)

	switch sess.State() {
	case policy.StateCommitted:
		transport.queueMessage(messages.NewStatusMessage(sess.ID, messages.StatusCommitted, "Reservation confirmed"))
	case policy.StateHandedOff:
		transport.queueMessage(messages.NewStatusMessage(sess.ID, messages.StatusHandedOff, "A receptionist will take over"))
	}
	transport.queueMessage(messages.NewStatusMessage(sess.ID, messages.StatusClosed, ""))

	_ = s.sessionManager.RemoveSession(context.Background(), sess.ID)
	transport.Close()
	log.Printf("🔌 Session closed: %s", sess.ID)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"ok","sessions":%d}`, s.sessionManager.GetActiveSessionCount())
}

// wsTransport adapts one WebSocket connection to the session.Transport
// interface. All writes go through a single pump goroutine.
type wsTransport struct {
	conn      *websocket.Conn
	writeChan chan any

	mu        sync.RWMutex
	sessionID string
	closed    bool
}

func newWSTransport(conn *websocket.Conn) *wsTransport {
	conn.SetReadLimit(maxMessageSize)
	return &wsTransport{
		conn:      conn,
		writeChan: make(chan any, writeBufferSize),
	}
}

// BindSession stamps outgoing messages with the session id and tells the
// client its session is established. Called by the session manager once the
// session exists.
func (t *wsTransport) BindSession(id string) {
	t.mu.Lock()
	t.sessionID = id
	t.mu.Unlock()
	t.queueMessage(messages.NewStatusMessage(id, messages.StatusConnected, "Session established"))
}

func (t *wsTransport) id() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.sessionID
}

// ReceiveTurn blocks until the client sends a guest utterance. Control
// messages are handled inline; malformed messages are answered with an
// error and skipped.
func (t *wsTransport) ReceiveTurn(ctx context.Context) (booking.Turn, error) {
	for {
		if err := ctx.Err(); err != nil {
			return booking.Turn{}, err
		}

		_, data, err := t.conn.ReadMessage()
		if err != nil {
			return booking.Turn{}, err
		}

		var msg messages.ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			t.queueMessage(messages.NewErrorMessage(t.id(), messages.ErrCodeInvalidMessage, "Invalid message format"))
			continue
		}

		switch msg.Type {
		case messages.TypeTurn:
			var payload messages.TurnPayload
			if err := json.Unmarshal(msg.Payload, &payload); err != nil || strings.TrimSpace(payload.Text) == "" {
				t.queueMessage(messages.NewErrorMessage(t.id(), messages.ErrCodeInvalidMessage, "Invalid turn payload"))
				continue
			}
			return booking.Turn{
				Speaker:   booking.SpeakerGuest,
				Text:      payload.Text,
				Timestamp: time.Now(),
			}, nil

		case "control":
			var payload messages.ControlPayload
			if err := json.Unmarshal(msg.Payload, &payload); err != nil {
				t.queueMessage(messages.NewErrorMessage(t.id(), messages.ErrCodeInvalidMessage, "Invalid control payload"))
				continue
			}
			switch payload.Action {
			case "ping":
				t.queueMessage(messages.NewStatusMessage(t.id(), "pong", ""))
			case "end":
				return booking.Turn{}, errClientEnded
			default:
				t.queueMessage(messages.NewErrorMessage(t.id(), messages.ErrCodeInvalidMessage, "Unknown control action: "+payload.Action))
			}

		default:
			t.queueMessage(messages.NewErrorMessage(t.id(), messages.ErrCodeInvalidMessage, "Unknown message type: "+msg.Type))
		}
	}
}

// SendTurn queues one assistant utterance for the client.
func (t *wsTransport) SendTurn(ctx context.Context, text, language string) error {
	t.mu.RLock()
	closed := t.closed
	t.mu.RUnlock()
	if closed {
		return errors.New("transport closed")
	}
	t.queueMessage(messages.NewTurnMessage(t.id(), text, language))
	return nil
}

// queueMessage adds a message to the write queue (non-blocking)
func (t *wsTransport) queueMessage(msg any) {
	t.mu.RLock()
	closed := t.closed
	t.mu.RUnlock()
	if closed {
		return
	}
	select {
	case t.writeChan <- msg:
	default:
		// Queue full, drop message (shouldn't happen with proper sizing)
	}
}

// writePump handles all outgoing messages in a single goroutine. It drains
// the queue after Close so final status messages still reach the client.
func (t *wsTransport) writePump() {
	for msg := range t.writeChan {
		t.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := t.conn.WriteJSON(msg); err != nil {
			// Connection is gone; keep draining so senders never block.
			continue
		}
	}

	t.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	t.conn.WriteMessage(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
	)
	t.conn.Close()
}

// Close stops the transport. Queued messages are flushed before the
// connection closes.
func (t *wsTransport) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	t.mu.Unlock()

	close(t.writeChan)
}
