package stream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pthm-cable/pbfluid/components"
)

// Frame is one broadcast of the particle state.
type Frame struct {
	Type      string     `json:"type"`
	Tick      uint64     `json:"tick"`
	Bounds    [4]float32 `json:"bounds"`    // min x, min y, max x, max y
	Positions []float32  `json:"positions"` // x0, y0, x1, y1, ...
	Speeds    []float32  `json:"speeds"`
}

// ErrorMessage reports a rejected control edit to the client that sent it.
type ErrorMessage struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// Source provides particle snapshots. runner.Runner satisfies it.
type Source interface {
	Snapshot(dst []components.Particle) ([]components.Particle, uint64)
}

// Server upgrades /ws requests and pushes a Frame to every client on each interval.
type Server struct {
	// OnControl handles edits sent by clients. A returned error is echoed
	// back to the sender. Nil ignores client messages.
	OnControl func(Control) error

	hub      *Hub
	src      Source
	bounds   components.Rect
	interval time.Duration
	upgrader websocket.Upgrader

	mu  sync.Mutex
	buf []components.Particle
}

// NewServer returns a server reading from src. bounds is sent with every frame
// so clients can scale the view.
func NewServer(src Source, bounds components.Rect, interval time.Duration) *Server {
	if interval <= 0 {
		interval = 33 * time.Millisecond
	}
	return &Server{
		hub:      NewHub(),
		src:      src,
		bounds:   bounds,
		interval: interval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Hub returns the client registry.
func (s *Server) Hub() *Hub {
	return s.hub
}

// SetBounds replaces the rectangle reported in frames.
func (s *Server) SetBounds(r components.Rect) {
	s.mu.Lock()
	s.bounds = r
	s.mu.Unlock()
}

// Handler returns the HTTP handler serving the websocket endpoint.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.ServeWS)
	return mux
}

// ServeWS upgrades the request, sends the current frame and then reads
// control messages until the client goes away.
func (s *Server) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		if _, ok := err.(websocket.HandshakeError); !ok {
			slog.Error("websocket upgrade failed", "error", err)
		}
		return
	}
	defer conn.Close()

	m := s.hub.add(conn)
	defer s.hub.remove(conn)
	slog.Info("stream client connected", "remote", r.RemoteAddr)

	if err := writeJSON(conn, m, s.frame()); err != nil {
		return
	}

	for {
		var c Control
		if err := conn.ReadJSON(&c); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Info("stream client read failed", "remote", r.RemoteAddr, "error", err)
			}
			return
		}
		if s.OnControl == nil {
			continue
		}
		if err := s.OnControl(c); err != nil {
			if err := writeJSON(conn, m, ErrorMessage{Type: "error", Error: err.Error()}); err != nil {
				return
			}
		}
	}
}

func (s *Server) frame() Frame {
	s.mu.Lock()
	defer s.mu.Unlock()

	var tick uint64
	s.buf, tick = s.src.Snapshot(s.buf)

	f := Frame{
		Type:      "frame",
		Tick:      tick,
		Bounds:    [4]float32{s.bounds.Min.X, s.bounds.Min.Y, s.bounds.Max.X, s.bounds.Max.Y},
		Positions: make([]float32, 0, 2*len(s.buf)),
		Speeds:    make([]float32, 0, len(s.buf)),
	}
	for i := range s.buf {
		p := &s.buf[i]
		f.Positions = append(f.Positions, p.Pos.X, p.Pos.Y)
		f.Speeds = append(f.Speeds, p.Speed())
	}
	return f
}

// Publish broadcasts the current frame to every client. Skipped when no one
// is connected.
func (s *Server) Publish() {
	if s.hub.Len() == 0 {
		return
	}
	s.hub.Broadcast(s.frame())
}

// Run publishes a frame every interval until ctx is done.
func (s *Server) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Publish()
		}
	}
}

// ListenAndServe serves on addr and publishes frames until ctx is done,
// then shuts the listener down and disconnects every client.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}

	go s.Run(ctx)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
		s.hub.CloseAll()
	}()

	slog.Info("stream listening", "address", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("stream server: %w", err)
	}
	return nil
}
