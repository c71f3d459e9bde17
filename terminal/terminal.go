// Package terminal draws the running fluid as ASCII density in a terminal.
package terminal

import (
	"context"
	"fmt"
	"time"

	"github.com/nsf/termbox-go"

	"github.com/pthm-cable/pbfluid/components"
)

// Ramp maps occupancy from empty to densest.
const Ramp = " .:-=+*#%@"

var rampRunes = []rune(Ramp)

// Source provides particle snapshots. runner.Runner satisfies it.
type Source interface {
	Snapshot(dst []components.Particle) ([]components.Particle, uint64)
}

// Rasterize bins ps into a w x h character grid covering bounds, row-major,
// and returns it in dst (grown as needed). Particles outside bounds are
// dropped. The busiest cell gets the last Ramp character.
func Rasterize(dst []rune, counts []int, ps []components.Particle, bounds components.Rect, w, h int) ([]rune, []int) {
	n := w * h
	if n <= 0 {
		return dst[:0], counts[:0]
	}
	if cap(dst) < n {
		dst = make([]rune, n)
	}
	dst = dst[:n]
	if cap(counts) < n {
		counts = make([]int, n)
	}
	counts = counts[:n]
	for i := range counts {
		counts[i] = 0
	}

	bw, bh := bounds.Width(), bounds.Height()
	maxCount := 0
	if bw > 0 && bh > 0 {
		for i := range ps {
			p := ps[i].Pos
			if !bounds.Contains(p) {
				continue
			}
			cx := int((p.X - bounds.Min.X) / bw * float32(w))
			cy := int((p.Y - bounds.Min.Y) / bh * float32(h))
			// The max edge is inclusive.
			cx = min(cx, w-1)
			cy = min(cy, h-1)
			c := &counts[cy*w+cx]
			*c++
			maxCount = max(maxCount, *c)
		}
	}

	levels := len(rampRunes) - 1
	for i, c := range counts {
		if c == 0 || maxCount == 0 {
			dst[i] = rampRunes[0]
			continue
		}
		// Ceiling so that a single particle is always visible.
		lvl := (c*levels + maxCount - 1) / maxCount
		dst[i] = rampRunes[lvl]
	}
	return dst, counts
}

// Terminal owns the termbox screen while Run is active.
type Terminal struct {
	// TogglePause and Reset are bound to Space and R. Either may be nil.
	TogglePause func()
	Reset       func()

	src    Source
	bounds components.Rect

	backbuf  []rune
	counts   []int
	bbw, bbh int
	buf      []components.Particle
	tick     uint64
}

// New returns a terminal view of src covering bounds.
func New(src Source, bounds components.Rect) *Terminal {
	return &Terminal{src: src, bounds: bounds}
}

// Run takes over the terminal and redraws every interval until ctx is done
// or the user presses Esc or q.
func (t *Terminal) Run(ctx context.Context, interval time.Duration) error {
	if err := termbox.Init(); err != nil {
		return fmt.Errorf("initializing terminal: %w", err)
	}
	defer termbox.Close()
	termbox.SetInputMode(termbox.InputEsc)
	t.reallocBackBuffer(termbox.Size())

	events := make(chan termbox.Event)
	go func() {
		for {
			ev := termbox.PollEvent()
			if ev.Type == termbox.EventInterrupt {
				close(events)
				return
			}
			events <- ev
		}
	}()
	// Unblock the poller once we return.
	defer func() {
		termbox.Interrupt()
		for range events {
		}
	}()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-events:
			switch ev.Type {
			case termbox.EventKey:
				switch {
				case ev.Key == termbox.KeyEsc || ev.Ch == 'q':
					return nil
				case ev.Key == termbox.KeySpace && t.TogglePause != nil:
					t.TogglePause()
				case (ev.Ch == 'r' || ev.Ch == 'R') && t.Reset != nil:
					t.Reset()
				}
			case termbox.EventResize:
				t.reallocBackBuffer(ev.Width, ev.Height)
			case termbox.EventError:
				return fmt.Errorf("terminal event: %w", ev.Err)
			}
		case <-ticker.C:
			t.redraw()
		}
	}
}

func (t *Terminal) reallocBackBuffer(w, h int) {
	t.bbw, t.bbh = w, h
	t.backbuf = make([]rune, 0, w*h)
}

func (t *Terminal) redraw() {
	t.buf, t.tick = t.src.Snapshot(t.buf)

	// Bottom row is the status line.
	rows := t.bbh - 1
	t.backbuf, t.counts = Rasterize(t.backbuf, t.counts, t.buf, t.bounds, t.bbw, rows)

	termbox.Clear(termbox.ColorDefault, termbox.ColorDefault)
	for y := 0; y < rows; y++ {
		for x := 0; x < t.bbw; x++ {
			termbox.SetCell(x, y, t.backbuf[y*t.bbw+x], termbox.ColorCyan, termbox.ColorDefault)
		}
	}
	status := fmt.Sprintf(" tick %d  particles %d  [space] pause  [r] reset  [q] quit", t.tick, len(t.buf))
	for x, r := range []rune(status) {
		if x >= t.bbw {
			break
		}
		termbox.SetCell(x, rows, r, termbox.ColorBlack, termbox.ColorWhite)
	}
	termbox.Flush()
}
