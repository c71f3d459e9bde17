package stream

import (
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pthm-cable/pbfluid/components"
	"github.com/pthm-cable/pbfluid/sim"
)

type fakeSource struct {
	mu   sync.Mutex
	ps   []components.Particle
	tick uint64
}

func (f *fakeSource) Snapshot(dst []components.Particle) ([]components.Particle, uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append(dst[:0], f.ps...), f.tick
}

func (f *fakeSource) set(tick uint64, ps ...components.Particle) {
	f.mu.Lock()
	f.ps = ps
	f.tick = tick
	f.mu.Unlock()
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) Frame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var f Frame
	if err := conn.ReadJSON(&f); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	return f
}

func waitForClients(t *testing.T, h *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.Len() != n {
		if time.Now().After(deadline) {
			t.Fatalf("hub has %d clients, want %d", h.Len(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestServerSendsFrameOnConnect(t *testing.T) {
	src := &fakeSource{}
	src.set(7,
		components.Particle{Pos: components.Vec2{X: 1, Y: 2}, Vel: components.Vec2{X: 3, Y: 4}},
		components.Particle{Pos: components.Vec2{X: 5, Y: 6}},
	)
	s := NewServer(src, components.NewRect(0, 0, 100, 50), time.Hour)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	f := readFrame(t, dial(t, srv))

	if f.Type != "frame" || f.Tick != 7 {
		t.Errorf("header = %q tick %d", f.Type, f.Tick)
	}
	if f.Bounds != [4]float32{0, 0, 100, 50} {
		t.Errorf("bounds = %v", f.Bounds)
	}
	wantPos := []float32{1, 2, 5, 6}
	if len(f.Positions) != len(wantPos) {
		t.Fatalf("positions = %v, want %v", f.Positions, wantPos)
	}
	for i := range wantPos {
		if f.Positions[i] != wantPos[i] {
			t.Errorf("positions[%d] = %v, want %v", i, f.Positions[i], wantPos[i])
		}
	}
	if len(f.Speeds) != 2 || f.Speeds[0] != 5 || f.Speeds[1] != 0 {
		t.Errorf("speeds = %v, want [5 0]", f.Speeds)
	}
}

func TestPublishReachesEveryClient(t *testing.T) {
	src := &fakeSource{}
	s := NewServer(src, components.Rect{}, time.Hour)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	a, b := dial(t, srv), dial(t, srv)
	readFrame(t, a)
	readFrame(t, b)
	waitForClients(t, s.Hub(), 2)

	src.set(42, components.NewParticle(9, 9))
	s.Publish()

	for _, conn := range []*websocket.Conn{a, b} {
		if f := readFrame(t, conn); f.Tick != 42 || len(f.Positions) != 2 {
			t.Errorf("frame = %+v, want tick 42 with one particle", f)
		}
	}

	a.Close()
	waitForClients(t, s.Hub(), 1)
}

func TestControlMessages(t *testing.T) {
	src := &fakeSource{}
	s := NewServer(src, components.Rect{}, time.Hour)

	got := make(chan Control, 1)
	s.OnControl = func(c Control) error {
		if c.Gravity != nil && *c.Gravity < 0 {
			return errors.New("gravity must point down")
		}
		got <- c
		return nil
	}
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	conn := dial(t, srv)
	readFrame(t, conn)

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"gravity": 50, "paused": true}`)); err != nil {
		t.Fatal(err)
	}
	select {
	case c := <-got:
		if c.Gravity == nil || *c.Gravity != 50 || c.Paused == nil || !*c.Paused {
			t.Errorf("control = %+v", c)
		}
		if c.RestDensity != nil {
			t.Error("absent field decoded as set")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("control message not delivered")
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"gravity": -1}`)); err != nil {
		t.Fatal(err)
	}
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg ErrorMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatal(err)
	}
	if msg.Type != "error" || !strings.Contains(msg.Error, "gravity") {
		t.Errorf("error message = %+v", msg)
	}
}

func TestControlApply(t *testing.T) {
	s, err := sim.NewBuilder().WithBoundaries(components.NewRect(0, 0, 10, 10)).Build()
	if err != nil {
		t.Fatal(err)
	}

	g, rd := float32(10), float32(2)
	if err := (Control{Gravity: &g, RestDensity: &rd}).Apply(s); err != nil {
		t.Fatal(err)
	}
	if s.Gravity != 10 || s.RestDensity != 2 || s.InteractionRadius != sim.DefaultInteractionRadius {
		t.Errorf("after apply: gravity %v rest %v radius %v", s.Gravity, s.RestDensity, s.InteractionRadius)
	}

	zero, bad := float32(0), float32(0.7)
	tests := []struct {
		name string
		c    Control
	}{
		{"zero radius", Control{InteractionRadius: &zero}},
		{"positive restitution", Control{Restitution: &bad, Gravity: &zero}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.c.Apply(s); !errors.Is(err, sim.ErrInvalidParameter) {
				t.Errorf("Apply error = %v, want ErrInvalidParameter", err)
			}
			if s.Gravity != 10 || s.InteractionRadius != sim.DefaultInteractionRadius {
				t.Error("rejected edit changed the engine")
			}
		})
	}
}
