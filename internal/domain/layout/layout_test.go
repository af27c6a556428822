package layout

import (
	"testing"

	"github.com/ShigureLab/danmaku2ass/internal/types"
)

func scroll(start, size, width float64, seq int) types.Comment {
	return types.Comment{
		Start:  start,
		Seq:    seq,
		Mode:   types.ModeScroll,
		Size:   size,
		Height: size,
		Width:  width,
	}
}

func static(mode types.Mode, start, size float64, seq int) types.Comment {
	return types.Comment{
		Start:  start,
		Seq:    seq,
		Mode:   mode,
		Size:   size,
		Height: size,
		Width:  size * 4,
	}
}

func place(t *testing.T, arena []types.Comment, width, height int, reduce bool) []int {
	t.Helper()
	a := &Allocator{
		Grid:           NewGrid(arena, width, height, 0),
		DurationScroll: 5,
		DurationStatic: 5,
		Reduce:         reduce,
	}
	rows := make([]int, 0, len(arena))
	for i := range arena {
		row, ok := a.Place(i)
		if !ok {
			row = -1
		}
		rows = append(rows, row)
	}
	return rows
}

func TestPlace_EmptyGridUsesRowZero(t *testing.T) {
	rows := place(t, []types.Comment{scroll(0, 25, 100, 0)}, 800, 600, false)
	if rows[0] != 0 {
		t.Fatalf("expected row 0 on an empty grid, got %d", rows[0])
	}
}

func TestPlace_SimultaneousTopCommentsGetDistinctLanes(t *testing.T) {
	arena := []types.Comment{
		static(types.ModeTop, 0, 25, 0),
		static(types.ModeTop, 0, 25, 1),
	}
	rows := place(t, arena, 800, 600, false)
	if rows[0] != 0 {
		t.Fatalf("first comment should take row 0, got %d", rows[0])
	}
	if rows[1] == rows[0] {
		t.Fatalf("second simultaneous comment must not share the lane, got %d", rows[1])
	}
	if rows[1] != 25 {
		t.Fatalf("second comment should stack directly below, got %d", rows[1])
	}
}

func TestPlace_StaticLaneReusedAfterDisplayWindow(t *testing.T) {
	arena := []types.Comment{
		static(types.ModeBottom, 0, 25, 0),
		static(types.ModeBottom, 6, 25, 1), // starts after the 5s window
	}
	rows := place(t, arena, 800, 600, false)
	if rows[1] != 0 {
		t.Fatalf("expected lane 0 reuse after the display window, got %d", rows[1])
	}
}

func TestPlace_StaticNoOverlapInvariant(t *testing.T) {
	// A burst of top comments: any two sharing a row must have disjoint
	// [start, start+5) windows.
	var arena []types.Comment
	for i := 0; i < 40; i++ {
		arena = append(arena, static(types.ModeTop, float64(i)*0.5, 30, i))
	}
	grid := NewGrid(arena, 800, 240, 0)
	a := &Allocator{Grid: grid, DurationScroll: 5, DurationStatic: 5, Reduce: true}
	rowOf := make(map[int]int)
	for i := range arena {
		if row, ok := a.Place(i); ok {
			rowOf[i] = row
		}
	}
	for i, ri := range rowOf {
		for j, rj := range rowOf {
			if i >= j || ri != rj {
				continue
			}
			a, b := arena[i].Start, arena[j].Start
			if a > b {
				a, b = b, a
			}
			if b < a+5 {
				t.Fatalf("comments %d and %d overlap in row %d", i, j, ri)
			}
		}
	}
}

func TestPlace_ScrollCollisionBlocksLane(t *testing.T) {
	// Occupant still crossing the stage when the candidate starts.
	arena := []types.Comment{
		scroll(0, 25, 400, 0),
		scroll(0.1, 25, 400, 1),
	}
	rows := place(t, arena, 800, 600, false)
	if rows[1] == rows[0] {
		t.Fatalf("candidate must avoid a freshly started occupant, got row %d twice", rows[1])
	}
}

func TestPlace_ScrollLaneFreeAfterClearance(t *testing.T) {
	// Narrow occupant clears the right edge quickly: width*dur/(width+stage)
	// = 100*5/900 ≈ 0.56s, and the safety margin dur*(1-stage/(w+stage))
	// ≈ 0.56s too, so a candidate 2s later reuses the lane.
	arena := []types.Comment{
		scroll(0, 25, 100, 0),
		scroll(2, 25, 100, 1),
	}
	rows := place(t, arena, 800, 600, false)
	if rows[1] != 0 {
		t.Fatalf("expected lane reuse after clearance, got %d", rows[1])
	}
}

func TestPlace_ReducedModeSkips(t *testing.T) {
	// Stage with room for exactly two 25px lanes.
	arena := []types.Comment{
		static(types.ModeTop, 0, 25, 0),
		static(types.ModeTop, 0, 25, 1),
		static(types.ModeTop, 0, 25, 2),
	}
	rows := place(t, arena, 800, 50, true)
	if rows[0] == -1 || rows[1] == -1 {
		t.Fatalf("first two comments should fit: %v", rows)
	}
	if rows[2] != -1 {
		t.Fatalf("third comment should be skipped in reduced mode, got %d", rows[2])
	}
}

func TestPlace_ReducedNeverEmitsMoreThanStrict(t *testing.T) {
	var arena []types.Comment
	for i := 0; i < 30; i++ {
		arena = append(arena, static(types.ModeTop, float64(i)*0.1, 25, i))
	}
	strict := place(t, append([]types.Comment(nil), arena...), 800, 100, false)
	reduced := place(t, append([]types.Comment(nil), arena...), 800, 100, true)
	count := func(rows []int) int {
		n := 0
		for _, r := range rows {
			if r >= 0 {
				n++
			}
		}
		return n
	}
	if count(reduced) > count(strict) {
		t.Fatalf("reduced run emitted more: %d > %d", count(reduced), count(strict))
	}
	if count(strict) != len(arena) {
		t.Fatalf("strict mode must place everything, placed %d", count(strict))
	}
}

func TestPlace_ExhaustedEvictsEarliestOccupant(t *testing.T) {
	// Two lanes; the fallback must choose the lane whose occupant appeared
	// earliest once the stage is exhausted.
	arena := []types.Comment{
		static(types.ModeTop, 0.0, 25, 0),
		static(types.ModeTop, 0.5, 25, 1),
		static(types.ModeTop, 1.0, 25, 2),
	}
	grid := NewGrid(arena, 800, 50, 0)
	a := &Allocator{Grid: grid, DurationScroll: 5, DurationStatic: 5}
	r0, _ := a.Place(0)
	r1, _ := a.Place(1)
	r2, _ := a.Place(2)
	if r0 != 0 || r1 != 25 {
		t.Fatalf("setup rows unexpected: %d, %d", r0, r1)
	}
	if r2 != r0 {
		t.Fatalf("expected eviction of the earliest occupant's lane %d, got %d", r0, r2)
	}
	if grid.Occupant(types.ModeTop, 0) != 2 {
		t.Fatalf("grid should index the new occupant, got %d", grid.Occupant(types.ModeTop, 0))
	}
}

func TestPlace_OversizedCommentAlwaysFallsBack(t *testing.T) {
	arena := []types.Comment{scroll(0, 700, 100, 0)}
	grid := NewGrid(arena, 800, 600, 0)
	a := &Allocator{Grid: grid, DurationScroll: 5, DurationStatic: 5}
	row, ok := a.Place(0)
	if !ok || row != 0 {
		t.Fatalf("oversized comment should force-place at the fallback row, got (%d, %v)", row, ok)
	}

	reduced := &Allocator{Grid: NewGrid(arena, 800, 600, 0), DurationScroll: 5, DurationStatic: 5, Reduce: true}
	if _, ok := reduced.Place(0); ok {
		t.Fatal("oversized comment should be skipped in reduced mode")
	}
}

func TestPlace_ModesUseIndependentLaneSpaces(t *testing.T) {
	arena := []types.Comment{
		scroll(0, 25, 100, 0),
		static(types.ModeTop, 0, 25, 1),
		static(types.ModeBottom, 0, 25, 2),
		{Start: 0, Seq: 3, Mode: types.ModeReverse, Size: 25, Height: 25, Width: 100},
	}
	rows := place(t, arena, 800, 600, false)
	for i, r := range rows {
		if r != 0 {
			t.Fatalf("comment %d should get row 0 in its own lane space, got %d", i, r)
		}
	}
}

func TestPlace_BottomReservedShrinksUsableArea(t *testing.T) {
	arena := []types.Comment{
		static(types.ModeTop, 0, 25, 0),
		static(types.ModeTop, 0, 25, 1),
	}
	grid := NewGrid(arena, 800, 75, 30) // usable = 45: one full lane + remainder
	a := &Allocator{Grid: grid, DurationScroll: 5, DurationStatic: 5, Reduce: true}
	if _, ok := a.Place(0); !ok {
		t.Fatal("first comment should fit the reduced stage")
	}
	if _, ok := a.Place(1); ok {
		t.Fatal("second comment should not fit inside the reserved margin")
	}
}

func TestPlace_ZeroWidthNeverBlocks(t *testing.T) {
	// Degenerate zero-width occupant on a zero-width stage: the threshold
	// math would divide by zero; the rule must simply not apply.
	arena := []types.Comment{
		scroll(0, 25, 0, 0),
		scroll(0.1, 25, 0, 1),
	}
	grid := NewGrid(arena, 0, 600, 0)
	a := &Allocator{Grid: grid, DurationScroll: 5, DurationStatic: 5}
	if _, ok := a.Place(0); !ok {
		t.Fatal("first placement failed")
	}
	if _, ok := a.Place(1); !ok {
		t.Fatal("second placement failed")
	}
}
