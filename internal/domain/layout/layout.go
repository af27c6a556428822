// Package layout assigns vertical lanes to comments so that concurrently
// visible comments do not overlap. Comments must be fed in ascending
// (start, stamp, seq) order; grid state after comment i is what makes the
// decision for comment i+1 correct.
package layout

import (
	"math"

	"github.com/ShigureLab/danmaku2ass/internal/types"
)

// laneModes is the number of independent lane spaces: scroll, top, bottom
// and reverse each keep their own row occupancy.
const laneModes = 4

// Grid indexes the pixel rows each lane-allocated mode currently occupies.
// Cells hold indices into the comment arena; -1 marks a free row. The grid
// never owns a comment, it only back-references the arena.
type Grid struct {
	arena  []types.Comment
	rows   [laneModes][]int
	usable int
	width  int
}

// NewGrid builds an empty grid over the comment arena for one rendering
// run. usable vertical space is the stage height minus the reserved bottom
// margin.
func NewGrid(arena []types.Comment, stageWidth, stageHeight, bottomReserved int) *Grid {
	g := &Grid{
		arena:  arena,
		usable: stageHeight - bottomReserved,
		width:  stageWidth,
	}
	for m := range g.rows {
		g.rows[m] = make([]int, g.usable+1)
		for i := range g.rows[m] {
			g.rows[m][i] = -1
		}
	}
	return g
}

// Occupant returns the arena index occupying the row, or -1.
func (g *Grid) Occupant(mode types.Mode, row int) int {
	return g.rows[mode][row]
}

func (g *Grid) mark(idx, row int) {
	c := &g.arena[idx]
	lane := g.rows[c.Mode]
	end := row + int(math.Ceil(c.Height))
	// Heights larger than the remaining grid are truncated, never an error.
	if end > len(lane) {
		end = len(lane)
	}
	for i := row; i < end; i++ {
		lane[i] = idx
	}
}

// alternativeRow is the collision-exhausted fallback: the first fully empty
// row wins, otherwise the row whose occupant appeared earliest.
func (g *Grid) alternativeRow(c *types.Comment) int {
	lane := g.rows[c.Mode]
	best := 0
	for row := 0; row < g.usable-int(math.Ceil(c.Height)); row++ {
		if lane[row] < 0 {
			return row
		}
		if g.arena[lane[row]].Start < g.arena[lane[best]].Start {
			best = row
		}
	}
	return best
}

// Allocator places comments on a Grid under the configured display
// durations. With Reduce set, comments that find no free lane are skipped
// instead of force-placed.
type Allocator struct {
	Grid           *Grid
	DurationScroll float64
	DurationStatic float64
	Reduce         bool
}

// Place assigns a lane to the arena comment at idx, marking the grid rows it
// covers. The returned row is valid only when placed is true; placed is
// false only in reduced mode when the stage is exhausted.
func (a *Allocator) Place(idx int) (row int, placed bool) {
	g := a.Grid
	c := &g.arena[idx]
	rowMax := float64(g.usable) - c.Height
	for float64(row) <= rowMax {
		free := a.freeRows(c, row)
		if float64(free) >= c.Height {
			g.mark(idx, row)
			return row, true
		}
		// Always advance, even through a fully blocked row.
		if free == 0 {
			free = 1
		}
		row += free
	}
	if a.Reduce {
		return 0, false
	}
	row = g.alternativeRow(c)
	g.mark(idx, row)
	return row, true
}

// freeRows probes how many consecutive rows starting at row could hold the
// comment before a blocking occupant, under the mode's collision rule.
// Consecutive cells holding the same occupant are only checked once.
func (a *Allocator) freeRows(c *types.Comment, row int) int {
	g := a.Grid
	lane := g.rows[c.Mode]
	res := 0
	last := -2 // sentinel distinct from both "empty" and any arena index

	if c.Mode.Static() {
		for row < g.usable && float64(res) < c.Height {
			if lane[row] != last {
				last = lane[row]
				if last >= 0 && g.arena[last].Start+a.DurationStatic > c.Start {
					break
				}
			}
			row++
			res++
		}
		return res
	}

	// A scrolling candidate collides when the occupant either started too
	// recently to have cleared the candidate's entry point, or will not have
	// fully left the stage edge by the candidate's start. Both thresholds
	// derive from the shared horizontal speed model: a comment crosses
	// stage_width+width pixels in DurationScroll seconds.
	threshold := c.Start - a.DurationScroll
	if d := c.Width + float64(g.width); d != 0 {
		threshold = c.Start - a.DurationScroll*(1-float64(g.width)/d)
	}
	for row < g.usable && float64(res) < c.Height {
		if lane[row] != last {
			last = lane[row]
			if last >= 0 {
				occ := &g.arena[last]
				if occ.Start > threshold {
					break
				}
				// Zero-width degenerate occupants never block here.
				if d := occ.Width + float64(g.width); d != 0 &&
					occ.Start+occ.Width*a.DurationScroll/d > c.Start {
					break
				}
			}
		}
		row++
		res++
	}
	return res
}
