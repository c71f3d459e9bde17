package systems

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/pthm-cable/pbfluid/components"
)

// checkGrid verifies that every live particle sits in exactly one cell at its recorded slot.
func checkGrid(t *testing.T, g *HashGrid, ps []components.Particle, live map[int]CellKey) {
	t.Helper()

	seen := make(map[int]CellKey)
	for key, cell := range g.cells {
		for slot, id := range cell {
			if prev, dup := seen[id]; dup {
				t.Fatalf("particle %d found in cells %v and %v", id, prev, key)
			}
			seen[id] = key
			if ps[id].CellSlot != slot {
				t.Fatalf("particle %d: CellSlot = %d, actual slot %d in cell %v", id, ps[id].CellSlot, slot, key)
			}
		}
	}

	if len(seen) != len(live) {
		t.Fatalf("grid holds %d particles, want %d", len(seen), len(live))
	}
	for id, key := range live {
		if got, ok := seen[id]; !ok || got != key {
			t.Fatalf("particle %d in cell %v (present=%v), want %v", id, got, ok, key)
		}
	}
	if g.Len() != len(live) {
		t.Fatalf("Len() = %d, want %d", g.Len(), len(live))
	}
}

func TestHashGridKeyFor(t *testing.T) {
	g := NewHashGrid(10) // 20-unit cells

	tests := []struct {
		name string
		pos  components.Vec2
		want CellKey
	}{
		{"origin", components.Vec2{X: 0, Y: 0}, CellKey{0, 0}},
		{"inside first cell", components.Vec2{X: 19.9, Y: 5}, CellKey{0, 0}},
		{"on cell edge", components.Vec2{X: 20, Y: 0}, CellKey{1, 0}},
		{"just below zero", components.Vec2{X: -0.1, Y: -20}, CellKey{-1, -1}},
		{"mixed signs", components.Vec2{X: -20.5, Y: 45}, CellKey{-2, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := g.KeyFor(tt.pos); got != tt.want {
				t.Errorf("KeyFor(%v) = %v, want %v", tt.pos, got, tt.want)
			}
		})
	}

	if g.CellSize() != 20 {
		t.Errorf("CellSize() = %v, want 20", g.CellSize())
	}
}

func TestHashGridSwapRemove(t *testing.T) {
	g := NewHashGrid(10)
	ps := make([]components.Particle, 4)
	key := CellKey{0, 0}

	for i := range ps {
		g.Insert(ps, i, key)
	}

	g.Remove(ps, 1, key)
	assertCell(t, g.Cell(key), []int{0, 3, 2})
	if ps[3].CellSlot != 1 {
		t.Errorf("moved particle 3 CellSlot = %d, want 1", ps[3].CellSlot)
	}
	if ps[1].CellSlot != -1 {
		t.Errorf("removed particle CellSlot = %d, want -1", ps[1].CellSlot)
	}

	g.Remove(ps, 3, key)
	assertCell(t, g.Cell(key), []int{0, 2})
	if ps[2].CellSlot != 1 {
		t.Errorf("moved particle 2 CellSlot = %d, want 1", ps[2].CellSlot)
	}

	// Removing the last element moves nothing.
	g.Remove(ps, 2, key)
	assertCell(t, g.Cell(key), []int{0})
	if ps[0].CellSlot != 0 {
		t.Errorf("particle 0 CellSlot = %d, want 0", ps[0].CellSlot)
	}
}

func assertCell(t *testing.T, got, want []int) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("cell = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("cell = %v, want %v", got, want)
		}
	}
}

func TestHashGridRandomOpsStayConsistent(t *testing.T) {
	const n = 200
	rng := rand.New(rand.NewSource(7))
	g := NewHashGrid(5)
	ps := make([]components.Particle, n)
	live := make(map[int]CellKey)

	randomKey := func() CellKey {
		return CellKey{X: int32(rng.Intn(7) - 3), Y: int32(rng.Intn(7) - 3)}
	}

	for step := 0; step < 5000; step++ {
		id := rng.Intn(n)
		key, indexed := live[id]

		switch {
		case !indexed:
			k := randomKey()
			g.Insert(ps, id, k)
			live[id] = k
		case rng.Intn(2) == 0:
			g.Remove(ps, id, key)
			delete(live, id)
		default:
			k := randomKey()
			g.Move(ps, id, key, k)
			live[id] = k
		}

		if step%250 == 0 {
			checkGrid(t, g, ps, live)
		}
	}
	checkGrid(t, g, ps, live)
}

func TestHashGridNeighborsComplete(t *testing.T) {
	g := NewHashGrid(5) // 10-unit cells
	var ps []components.Particle
	want := make(map[int]bool)

	// One particle in the middle of every cell from -3 to 3 on both axes.
	for cy := -3; cy <= 3; cy++ {
		for cx := -3; cx <= 3; cx++ {
			ps = append(ps, components.NewParticle(float32(cx)*10+5, float32(cy)*10+5))
			if cx >= 0 && cx <= 2 && cy >= -2 && cy <= 0 {
				want[len(ps)-1] = true
			}
		}
	}
	g.Rebuild(ps)

	got := g.NeighborsInto(nil, CellKey{X: 1, Y: -1})
	if len(got) != len(want) {
		t.Fatalf("got %d neighbours, want %d", len(got), len(want))
	}
	for _, id := range got {
		if !want[id] {
			k := g.KeyFor(ps[id].Pos)
			t.Errorf("unexpected particle %d from cell %v", id, k)
		}
	}
}

func TestHashGridNeighborsIntoReusesBuffer(t *testing.T) {
	g := NewHashGrid(5)
	ps := []components.Particle{
		components.NewParticle(1, 1),
		components.NewParticle(2, 2),
	}
	g.Rebuild(ps)

	buf := make([]int, 0, 8)
	buf = g.NeighborsInto(buf, CellKey{})
	buf = g.NeighborsInto(buf[:0], CellKey{})

	sort.Ints(buf)
	assertCell(t, buf, []int{0, 1})
}

func TestHashGridReindexOnlyMovesChangedCells(t *testing.T) {
	g := NewHashGrid(5) // 10-unit cells
	ps := []components.Particle{
		components.NewParticle(1, 1),
		components.NewParticle(2, 2),
		components.NewParticle(15, 15),
	}
	g.Rebuild(ps)

	// Particle 0 crosses into the next cell, particle 1 stays put.
	ps[0].Pos = components.Vec2{X: 12, Y: 1}
	ps[1].Pos = components.Vec2{X: 3, Y: 3}

	moved := g.Reindex(ps)
	if moved != 1 {
		t.Errorf("Reindex moved %d particles, want 1", moved)
	}

	checkGrid(t, g, ps, map[int]CellKey{
		0: {1, 0},
		1: {0, 0},
		2: {1, 1},
	})
}

func TestHashGridRemoveAbsentCellPanics(t *testing.T) {
	g := NewHashGrid(5)
	ps := make([]components.Particle, 1)

	defer func() {
		if recover() == nil {
			t.Error("expected panic removing from an absent cell")
		}
	}()
	g.Remove(ps, 0, CellKey{X: 9, Y: 9})
}

func TestHashGridClear(t *testing.T) {
	g := NewHashGrid(5)
	ps := []components.Particle{components.NewParticle(1, 1)}
	g.Rebuild(ps)
	g.Clear()

	if g.Len() != 0 {
		t.Errorf("Len() after Clear = %d", g.Len())
	}
	if n := len(g.NeighborsInto(nil, CellKey{})); n != 0 {
		t.Errorf("neighbours after Clear = %d", n)
	}
}
