package types

// Mode classifies how a comment is displayed. The first four modes are laid
// out by the lane allocator, each in its own lane space; positioned comments
// carry their full placement in the payload and bypass allocation.
type Mode int

const (
	ModeScroll Mode = iota
	ModeTop
	ModeBottom
	ModeReverse
	ModePositioned
)

// LaneAllocated reports whether comments of this mode occupy lane grid rows.
func (m Mode) LaneAllocated() bool {
	return m >= ModeScroll && m <= ModeReverse
}

// Static reports whether the mode pins the comment to a fixed position for
// the still-display duration instead of scrolling it.
func (m Mode) Static() bool {
	return m == ModeTop || m == ModeBottom
}

func (m Mode) String() string {
	switch m {
	case ModeScroll:
		return "scroll"
	case ModeTop:
		return "top"
	case ModeBottom:
		return "bottom"
	case ModeReverse:
		return "reverse"
	case ModePositioned:
		return "positioned"
	}
	return "unknown"
}

// Comment is one normalized danmaku record. It is immutable once read; the
// layout grid refers to comments by index, never by owning them.
type Comment struct {
	// Start is the playback position in seconds when the comment appears.
	// Primary sort key.
	Start float64
	// Stamp is the originating submission timestamp, used only as a sort
	// tie-break.
	Stamp int64
	// Seq increases strictly in input order and makes the sort total.
	Seq int

	Text  string
	Mode  Mode
	Color uint32 // 0xRRGGBB

	// Size is the effective font size: the per-comment scale applied to the
	// configured base size. Positioned comments keep their raw size here and
	// are rescaled by the stage zoom at render time.
	Size float64
	// Height and Width estimate the rendered extent in pixels:
	// (newlines+1)*Size and longest-line-runes*Size. Zero for positioned
	// comments.
	Height float64
	Width  float64

	// Pos is set if and only if Mode == ModePositioned.
	Pos *PositionedPayload
}

// Coord is one axis of a positioned-comment anchor. Relative values are
// fractions of the reference player viewport rather than absolute pixels.
type Coord struct {
	Value    float64
	Relative bool
}

// PositionedPayload is the decoded placement of a positioned comment,
// validated once when the record is read.
type PositionedPayload struct {
	Text string

	FromX, FromY Coord
	ToX, ToY     Coord

	// FromAlpha and ToAlpha are opacities in [0, 1].
	FromAlpha float64
	ToAlpha   float64

	// RotateY and RotateZ are Flash-engine rotations in degrees.
	RotateY int
	RotateZ int

	// Lifetime is the total display time in seconds; Duration and Delay time
	// the movement animation in milliseconds.
	Lifetime float64
	Duration int
	Delay    int

	FontFace string
	Border   bool
}
