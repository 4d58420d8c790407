package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pthm-cable/swarm/config"
	"github.com/pthm-cable/swarm/game"
)

// Client operations.
const (
	OpRandomize = "randomize"
	OpPause     = "pause"
	OpResume    = "resume"
	OpSet       = "set"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 4096
	sendBuffer     = 4 // frames queued per client before it starts dropping
)

// Command is a message sent by a client.
type Command struct {
	Op    string        `json:"op"`
	Patch *config.Patch `json:"patch,omitempty"`
}

// reply is sent to a single client when its command fails.
type reply struct {
	Error string `json:"error"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Server steps one simulation and streams its state to every connected
// WebSocket client as JSON snapshots.
type Server struct {
	mu           sync.Mutex // guards runner and sim
	runner       *game.Runner
	sim          *game.Simulation
	maxParticles int

	clientsMu sync.Mutex
	clients   map[*client]struct{}

	upgrader websocket.Upgrader
	log      *slog.Logger
}

// NewServer wraps r. Client edits to the particle count are capped at
// maxParticles.
func NewServer(r *game.Runner, maxParticles int, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		runner:       r,
		sim:          r.Sim(),
		maxParticles: maxParticles,
		clients:      make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		log: logger,
	}
}

// Handle applies one client command.
func (s *Server) Handle(cmd Command) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch cmd.Op {
	case OpRandomize:
		s.sim.Randomize()
	case OpPause:
		s.sim.Pause()
	case OpResume:
		s.sim.Resume()
	case OpSet:
		if cmd.Patch == nil {
			return errors.New("set: missing patch")
		}
		patch := *cmd.Patch
		if patch.ParticleCount != nil && *patch.ParticleCount > float64(s.maxParticles) {
			patch.ParticleCount = config.Float(float64(s.maxParticles))
		}
		return s.sim.SetConfiguration(patch)
	default:
		return fmt.Errorf("unknown op %q", cmd.Op)
	}
	return nil
}

// Frame encodes the current simulation state.
func (s *Server) Frame() ([]byte, error) {
	s.mu.Lock()
	snap := s.sim.Snapshot()
	s.mu.Unlock()
	return json.Marshal(snap)
}

// Tick advances the simulation one update and broadcasts a frame when it
// moved.
func (s *Server) Tick() {
	s.mu.Lock()
	steps := s.runner.Update()
	s.mu.Unlock()
	if steps == 0 {
		return
	}

	frame, err := s.Frame()
	if err != nil {
		s.log.Error("failed to encode frame", "error", err)
		return
	}
	s.broadcast(frame)
}

// Run ticks at fps until ctx is done.
func (s *Server) Run(ctx context.Context, fps int) {
	if fps <= 0 {
		fps = 60
	}
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick()
		}
	}
}

// broadcast queues frame for every client. A client whose queue is full
// misses this frame.
func (s *Server) broadcast(frame []byte) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	for c := range s.clients {
		select {
		case c.send <- frame:
		default:
			s.log.Debug("dropped frame for slow client", "remote", c.conn.RemoteAddr().String())
		}
	}
}

func (s *Server) register(c *client) {
	s.clientsMu.Lock()
	s.clients[c] = struct{}{}
	n := len(s.clients)
	s.clientsMu.Unlock()
	s.log.Info("client connected", "remote", c.conn.RemoteAddr().String(), "clients", n)
}

// unregister removes c and closes its queue, which stops its writer.
func (s *Server) unregister(c *client) {
	s.clientsMu.Lock()
	if _, ok := s.clients[c]; ok {
		delete(s.clients, c)
		close(c.send)
	}
	n := len(s.clients)
	s.clientsMu.Unlock()
	s.log.Info("client disconnected", "remote", c.conn.RemoteAddr().String(), "clients", n)
}

// CloseClients disconnects every client.
func (s *Server) CloseClients() {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	for c := range s.clients {
		delete(s.clients, c)
		close(c.send)
	}
}

// ServeHTTP upgrades the request to a WebSocket and serves the client
// until it disconnects.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		var herr websocket.HandshakeError
		if !errors.As(err, &herr) {
			s.log.Warn("websocket upgrade failed", "error", err)
		}
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	if frame, err := s.Frame(); err == nil {
		c.send <- frame
	}
	s.register(c)

	go s.writePump(c)
	s.readPump(c)
}

func (s *Server) readPump(c *client) {
	defer s.unregister(c)

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.log.Warn("websocket read failed", "error", err)
			}
			return
		}

		var cmd Command
		if err := json.Unmarshal(msg, &cmd); err != nil {
			err = fmt.Errorf("decode command: %w", err)
			s.replyError(c, err)
			continue
		}
		if err := s.Handle(cmd); err != nil {
			s.log.Warn("command rejected", "op", cmd.Op, "error", err)
			s.replyError(c, err)
		}
	}
}

func (s *Server) replyError(c *client, err error) {
	data, merr := json.Marshal(reply{Error: err.Error()})
	if merr != nil {
		return
	}
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	if _, ok := s.clients[c]; !ok {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

func (s *Server) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
