// Package feed serves the live checklist state over WebSocket.
//
// Every connected client receives the latest state on connect and again after
// each change, together with per-task statuses and status counts. The feed
// binds to the loopback interface unless a host is configured.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/nhle/taskcheck/internal/model"
	"github.com/nhle/taskcheck/internal/status"
)

// MessageType tells clients how to read a message's data.
type MessageType string

const (
	// MessageTypeHello is sent to a client that connects before any state
	// has been published.
	MessageTypeHello MessageType = "hello"

	// MessageTypeState carries a full snapshot with derived statuses.
	MessageTypeState MessageType = "state"
)

// Message is the envelope written to clients.
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// StateData is the payload of a state message.
type StateData struct {
	State    model.Snapshot              `json:"state"`
	Statuses map[string]model.TaskStatus `json:"statuses"`
	Counts   map[model.TaskStatus]int    `json:"counts"`
}

// NewStateData derives statuses and counts for snap.
func NewStateData(snap model.Snapshot) StateData {
	statuses := status.Index(snap.Tasks, snap.TaskChecks)
	return StateData{
		State:    snap.Clone(),
		Statuses: statuses,
		Counts:   status.Counts(statuses),
	}
}

// sendBuffer is how many messages a client may fall behind before it is
// dropped.
const sendBuffer = 64

// client owns one connection. Only its writer goroutine writes to conn, so
// messages arrive in the order they were queued on send.
type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Server fans published states out to WebSocket clients.
type Server struct {
	addr     string
	listener net.Listener
	srv      *http.Server

	// mu orders publishing against client registration: a new client is
	// queued the latest state and registered in one step, so it never sees
	// an older state after a newer one.
	mu      sync.Mutex
	clients map[*client]struct{}
	latest  []byte

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	logger *log.Logger
}

// Config controls where the feed listens and where it logs.
type Config struct {
	// Host to bind; empty means 127.0.0.1.
	Host string

	// Port to listen on; 0 picks a free port.
	Port int

	// Logger receives connection activity. Nil means log.Default().
	Logger *log.Logger
}

// DefaultConfig returns a loopback-only config on port 8787.
func DefaultConfig() *Config {
	return &Config{
		Host:   "127.0.0.1",
		Port:   8787,
		Logger: log.Default(),
	}
}

// NewServer returns a server for config. Call Start to listen.
func NewServer(config *Config) *Server {
	if config == nil {
		config = DefaultConfig()
	}
	logger := config.Logger
	if logger == nil {
		logger = log.Default()
	}
	host := config.Host
	if host == "" {
		host = "127.0.0.1"
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		addr:    net.JoinHostPort(host, fmt.Sprint(config.Port)),
		clients: make(map[*client]struct{}),
		ctx:     ctx,
		cancel:  cancel,
		logger:  logger,
	}
}

// Start listens and serves /ws and /health in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.listener = ln

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	s.srv = &http.Server{
		Handler:     mux,
		ReadTimeout: 10 * time.Second,
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.logger.Printf("Feed listening on %s", ln.Addr())
		if err := s.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Printf("Feed server error: %v", err)
		}
	}()
	return nil
}

// Stop disconnects every client and shuts the listener down.
func (s *Server) Stop() error {
	s.logger.Println("Stopping feed")
	s.cancel()

	s.mu.Lock()
	for c := range s.clients {
		s.dropLocked(c)
		_ = c.conn.Close(websocket.StatusGoingAway, "feed shutting down")
	}
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if s.srv != nil {
		if err := s.srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("feed shutdown: %w", err)
		}
	}
	s.wg.Wait()

	s.logger.Println("Feed stopped")
	return nil
}

// Run publishes every state received on updates until ctx is done or
// updates is closed.
func (s *Server) Run(ctx context.Context, updates <-chan model.Snapshot) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.ctx.Done():
			return
		case snap, ok := <-updates:
			if !ok {
				return
			}
			if err := s.Publish(snap); err != nil {
				s.logger.Printf("Failed to publish state: %v", err)
			}
		}
	}
}

// Publish records snap as the latest state and queues it for every client.
func (s *Server) Publish(snap model.Snapshot) error {
	data, err := json.Marshal(NewStateData(snap))
	if err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}
	encoded, err := json.Marshal(Message{Type: MessageTypeState, Timestamp: time.Now(), Data: data})
	if err != nil {
		return fmt.Errorf("encoding message: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest = encoded
	for c := range s.clients {
		select {
		case c.send <- encoded:
		default:
			s.logger.Println("Dropping slow feed client")
			s.dropLocked(c)
		}
	}
	return nil
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"localhost:*", "127.0.0.1:*"},
	})
	if err != nil {
		s.logger.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	hello, _ := json.Marshal(Message{Type: MessageTypeHello, Timestamp: time.Now()})
	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}

	s.mu.Lock()
	if s.ctx.Err() != nil {
		s.mu.Unlock()
		_ = conn.Close(websocket.StatusGoingAway, "feed shutting down")
		return
	}
	if s.latest != nil {
		c.send <- s.latest
	} else {
		c.send <- hello
	}
	s.clients[c] = struct{}{}
	n := len(s.clients)
	s.mu.Unlock()

	s.logger.Printf("Client connected (total: %d)", n)

	go s.writeLoop(c)
	go s.readLoop(c)
}

// writeLoop drains c.send until it is closed or the server stops.
func (s *Server) writeLoop(c *client) {
	for {
		select {
		case <-s.ctx.Done():
			return
		case data, ok := <-c.send:
			if !ok {
				_ = c.conn.Close(websocket.StatusNormalClosure, "")
				return
			}
			ctx, cancel := context.WithTimeout(s.ctx, 5*time.Second)
			err := c.conn.Write(ctx, websocket.MessageText, data)
			cancel()
			if err != nil {
				s.logger.Printf("Failed to send to client: %v", err)
				s.removeClient(c)
				return
			}
		}
	}
}

// readLoop notices disconnects; client messages are ignored.
func (s *Server) readLoop(c *client) {
	defer s.removeClient(c)
	for {
		if _, _, err := c.conn.Read(s.ctx); err != nil {
			return
		}
	}
}

func (s *Server) removeClient(c *client) {
	s.mu.Lock()
	_, ok := s.clients[c]
	if ok {
		s.dropLocked(c)
	}
	n := len(s.clients)
	s.mu.Unlock()

	if ok {
		s.logger.Printf("Client disconnected (total: %d)", n)
	}
}

// dropLocked unregisters c and ends its writer. s.mu must be held.
func (s *Server) dropLocked(c *client) {
	delete(s.clients, c)
	close(c.send)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"clients": s.ClientCount(),
	})
}

// GetAddr returns the bound address once started, else the configured one.
func (s *Server) GetAddr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// ClientCount returns the number of connected clients.
func (s *Server) ClientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}
