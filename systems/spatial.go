// Package systems provides the per-step kernels of the particle simulation.
package systems

import (
	"fmt"
	"math"

	"github.com/pthm-cable/pbfluid/components"
)

// CellKey identifies one uniform grid cell.
type CellKey struct {
	X, Y int32
}

// HashGrid maps cell keys to the indices of the particles inside each cell.
// Cells are unbounded; only occupied (or once-occupied) cells are stored.
//
// Every indexed particle appears in exactly one cell list, and its CellSlot
// equals its position in that list. Removal swaps with the last element, so
// list order is not stable.
type HashGrid struct {
	cellSize float32
	radius   float32
	cells    map[CellKey][]int
	count    int
}

// NewHashGrid creates a grid for the given interaction radius.
// Cells are twice the radius wide. The radius must be positive.
func NewHashGrid(interactionRadius float32) *HashGrid {
	return &HashGrid{
		cellSize: 2 * interactionRadius,
		radius:   interactionRadius,
		cells:    make(map[CellKey][]int),
	}
}

// CellSize returns the cell edge length.
func (g *HashGrid) CellSize() float32 {
	return g.cellSize
}

// Radius returns the interaction radius the grid was sized for.
func (g *HashGrid) Radius() float32 {
	return g.radius
}

// Len returns the number of indexed particles.
func (g *HashGrid) Len() int {
	return g.count
}

// KeyFor returns the cell containing pos.
func (g *HashGrid) KeyFor(pos components.Vec2) CellKey {
	return CellKey{
		X: int32(math.Floor(float64(pos.X / g.cellSize))),
		Y: int32(math.Floor(float64(pos.Y / g.cellSize))),
	}
}

// Cell returns the particle indices stored at key. The slice must not be modified.
func (g *HashGrid) Cell(key CellKey) []int {
	return g.cells[key]
}

// Clear removes every particle, keeping cell capacity for reuse.
func (g *HashGrid) Clear() {
	for k, c := range g.cells {
		g.cells[k] = c[:0]
	}
	g.count = 0
}

// Insert appends particle id to the cell at key and records its slot.
// The particle must not already be indexed.
func (g *HashGrid) Insert(ps []components.Particle, id int, key CellKey) {
	cell := append(g.cells[key], id)
	g.cells[key] = cell
	ps[id].CellSlot = len(cell) - 1
	g.count++
}

// Remove takes particle id out of the cell at key in O(1) by moving the
// cell's last element into the vacated slot.
// Panics if the cell is absent or does not hold id at its recorded slot.
func (g *HashGrid) Remove(ps []components.Particle, id int, key CellKey) {
	cell, ok := g.cells[key]
	if !ok {
		panic(fmt.Sprintf("systems: remove particle %d from absent cell %v", id, key))
	}

	slot := ps[id].CellSlot
	last := len(cell) - 1
	if slot < 0 || slot > last || cell[slot] != id {
		panic(fmt.Sprintf("systems: particle %d not at slot %d of cell %v", id, slot, key))
	}

	moved := cell[last]
	cell[slot] = moved
	ps[moved].CellSlot = slot
	g.cells[key] = cell[:last]

	ps[id].CellSlot = -1
	g.count--
}

// Move re-files particle id from one cell to another. No-op when the keys match.
func (g *HashGrid) Move(ps []components.Particle, id int, from, to CellKey) {
	if from == to {
		return
	}
	g.Remove(ps, id, from)
	g.Insert(ps, id, to)
}

// Rebuild clears the grid and indexes every particle by its PrevPos,
// the position the next Reindex treats as current.
func (g *HashGrid) Rebuild(ps []components.Particle) {
	g.Clear()
	for i := range ps {
		g.Insert(ps, i, g.KeyFor(ps[i].PrevPos))
	}
}

// Reindex moves every particle whose cell changed between PrevPos and Pos.
// Returns the number of particles moved.
func (g *HashGrid) Reindex(ps []components.Particle) int {
	moved := 0
	for i := range ps {
		from := g.KeyFor(ps[i].PrevPos)
		to := g.KeyFor(ps[i].Pos)
		if from != to {
			g.Move(ps, i, from, to)
			moved++
		}
	}
	return moved
}

// NeighborsInto appends every index stored in the 3x3 block of cells centred
// on key and returns the extended slice. Reuse dst across calls to avoid allocations.
func (g *HashGrid) NeighborsInto(dst []int, key CellKey) []int {
	for dy := int32(-1); dy <= 1; dy++ {
		for dx := int32(-1); dx <= 1; dx++ {
			dst = append(dst, g.cells[CellKey{X: key.X + dx, Y: key.Y + dy}]...)
		}
	}
	return dst
}
