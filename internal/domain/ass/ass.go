// Package ass renders placed comments as Advanced SubStation Alpha dialogue
// events and serializes the track: one header, then events in production
// order, CRLF-terminated behind a UTF-8 byte-order mark.
package ass

import (
	"fmt"
	"io"
	"math"
	"math/rand"
	"strings"

	"go.uber.org/zap"

	"github.com/ShigureLab/danmaku2ass/internal/domain/geometry"
	"github.com/ShigureLab/danmaku2ass/internal/types"
)

// Options are the global style parameters of one track.
type Options struct {
	StageWidth     int
	StageHeight    int
	BottomReserved int
	FontFace       string
	FontSize       float64
	// Opacity of the default style, 1 fully opaque.
	Opacity float64
	// Display durations in seconds for scrolling and still comments.
	DurationScroll float64
	DurationStatic float64
}

// Reference viewport positioned comments are authored against (the 2014
// player layout); their coordinates are zoomed from here onto the stage.
const (
	playerWidth  = 672
	playerHeight = 438
)

// Track writes one ASS document. The header goes out on construction; each
// accepted comment then produces exactly one complete dialogue line.
type Track struct {
	w       io.Writer
	opt     Options
	styleID string
	zoom    geometry.Zoom
	log     *zap.Logger
}

// NewTrack writes the BOM and header and returns an emitter for the run.
// The style identifier carries a random 16-bit suffix from rng so that
// concatenated tracks do not clash; pass a seeded source for reproducible
// output.
func NewTrack(w io.Writer, opt Options, rng *rand.Rand, log *zap.Logger) (*Track, error) {
	if log == nil {
		log = zap.NewNop()
	}
	t := &Track{
		w:       w,
		opt:     opt,
		styleID: fmt.Sprintf("Danmaku2ASS_%04x", rng.Intn(0x10000)),
		zoom: geometry.ZoomFactor(
			playerWidth, playerHeight,
			float64(opt.StageWidth), float64(opt.StageHeight),
		),
		log: log,
	}
	if err := t.writeHeader(); err != nil {
		return nil, err
	}
	return t, nil
}

// StyleID is the per-run style name referenced by every event.
func (t *Track) StyleID() string { return t.styleID }

func (t *Track) writeHeader() error {
	alpha := 255 - int(math.Round(t.opt.Opacity*255))
	outline := math.Max(t.opt.FontSize/25.0, 1)
	header := fmt.Sprintf(strings.TrimLeft(`
[Script Info]
; Script generated by Danmaku2ASS
; https://github.com/m13253/danmaku2ass
Script Updated By: Danmaku2ASS (https://github.com/m13253/danmaku2ass)
ScriptType: v4.00+
PlayResX: %[1]d
PlayResY: %[2]d
Aspect Ratio: %[1]d:%[2]d
Collisions: Normal
WrapStyle: 2
ScaledBorderAndShadow: yes
YCbCr Matrix: TV.601

[V4+ Styles]
Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding
Style: %[3]s, %[4]s, %.0[5]f, &H%02[6]XFFFFFF, &H%02[6]XFFFFFF, &H%02[6]X000000, &H%02[6]X000000, 0, 0, 0, 0, 100, 100, 0.00, 0.00, 1, %.0[7]f, 0, 7, 0, 0, 0, 0

[Events]
Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text
`, "\n"),
		t.opt.StageWidth, t.opt.StageHeight, t.styleID, t.opt.FontFace,
		t.opt.FontSize, alpha, outline,
	)
	if _, err := io.WriteString(t.w, "\uFEFF"+strings.ReplaceAll(header, "\n", "\r\n")); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	return nil
}

// WriteLane emits the event for a lane-allocated comment placed at row.
func (t *Track) WriteLane(c *types.Comment, row int) error {
	var tags strings.Builder
	var duration float64
	switch c.Mode {
	case types.ModeTop:
		fmt.Fprintf(&tags, `\an8\pos(%d, %d)`, t.opt.StageWidth/2, row)
		duration = t.opt.DurationStatic
	case types.ModeBottom:
		// Bottom lanes mirror the top-anchored row coordinate.
		fmt.Fprintf(&tags, `\an2\pos(%d, %d)`,
			t.opt.StageWidth/2, t.opt.StageHeight-t.opt.BottomReserved-row)
		duration = t.opt.DurationStatic
	case types.ModeReverse:
		fmt.Fprintf(&tags, `\move(%d, %d, %d, %d)`,
			-int(math.Ceil(c.Width)), row, t.opt.StageWidth, row)
		duration = t.opt.DurationScroll
	default:
		fmt.Fprintf(&tags, `\move(%d, %d, %d, %d)`,
			t.opt.StageWidth, row, -int(math.Ceil(c.Width)), row)
		duration = t.opt.DurationScroll
	}
	// A 1-unit tolerance avoids redundant \fs overrides.
	if d := c.Size - t.opt.FontSize; d <= -1 || d >= 1 {
		fmt.Fprintf(&tags, `\fs%.0f`, c.Size)
	}
	t.appendColor(&tags, c.Color)

	return t.writeLine(fmt.Sprintf("Dialogue: 2,%s,%s,%s,,0000,0000,0000,,{%s}%s",
		Timestamp(c.Start), Timestamp(c.Start+duration), t.styleID, tags.String(), Escape(c.Text)))
}

// WritePositioned emits the event for a positioned comment, projecting its
// anchors through the stage zoom and the Flash rotation model.
func (t *Track) WritePositioned(c *types.Comment) error {
	p := c.Pos
	w := float64(t.opt.StageWidth)
	h := float64(t.opt.StageHeight)

	fromX := t.anchor(p.FromX, false)
	fromY := t.anchor(p.FromY, true)
	toX := t.anchor(p.ToX, false)
	toY := t.anchor(p.ToY, true)
	from, approxFrom := geometry.FlashRotation(p.RotateY, p.RotateZ, fromX, fromY, w, h)
	to, approxTo := geometry.FlashRotation(p.RotateY, p.RotateZ, toX, toY, w, h)
	if approxFrom || approxTo {
		t.log.Warn("rotation places comment behind the camera, approximating",
			zap.Int("seq", c.Seq),
			zap.Int("rotate_y", p.RotateY),
			zap.Int("rotate_z", p.RotateZ))
	}

	var tags strings.Builder
	fmt.Fprintf(&tags, `\org(%d, %d)`, t.opt.StageWidth/2, t.opt.StageHeight/2)
	if from.X == to.X && from.Y == to.Y {
		fmt.Fprintf(&tags, `\pos(%.0f, %.0f)`, from.X, from.Y)
	} else {
		fmt.Fprintf(&tags, `\move(%.0f, %.0f, %.0f, %.0f, %d, %d)`,
			from.X, from.Y, to.X, to.Y, p.Delay, p.Delay+p.Duration)
	}
	fmt.Fprintf(&tags, `\frx%.0f\fry%.0f\frz%.0f\fscx%.0f\fscy%.0f`,
		from.RotX, from.RotY, from.RotZ, from.ScaleX, from.ScaleY)
	if fromX != toX || fromY != toY {
		fmt.Fprintf(&tags, `\t(%d, %d, `, p.Delay, p.Delay+p.Duration)
		fmt.Fprintf(&tags, `\frx%.0f\fry%.0f\frz%.0f\fscx%.0f\fscy%.0f`,
			to.RotX, to.RotY, to.RotZ, to.ScaleX, to.ScaleY)
		tags.WriteString(")")
	}
	if p.FontFace != "" {
		fmt.Fprintf(&tags, `\fn%s`, Escape(p.FontFace))
	}
	fmt.Fprintf(&tags, `\fs%.0f`, c.Size*t.zoom.Scale)
	t.appendColor(&tags, c.Color)
	t.appendAlpha(&tags, p)
	if !p.Border {
		tags.WriteString(`\bord0`)
	}

	return t.writeLine(fmt.Sprintf("Dialogue: -1,%s,%s,%s,,0,0,0,,{%s}%s",
		Timestamp(c.Start), Timestamp(c.Start+p.Lifetime), t.styleID, tags.String(), Escape(p.Text)))
}

func (t *Track) appendColor(tags *strings.Builder, color uint32) {
	if color == 0xFFFFFF {
		return
	}
	fmt.Fprintf(tags, `\c&H%s&`, geometry.ASSColor(color, t.opt.StageWidth, t.opt.StageHeight))
	// White outline keeps pure black text visible.
	if color == 0x000000 {
		tags.WriteString(`\3c&HFFFFFF&`)
	}
}

// appendAlpha picks between a constant alpha, the simple fade-in/out forms
// and the general from→to interpolation.
func (t *Track) appendAlpha(tags *strings.Builder, p *types.PositionedPayload) {
	fromA := 255 - int(math.Round(p.FromAlpha*255))
	toA := 255 - int(math.Round(p.ToAlpha*255))
	end := p.Lifetime * 1000
	switch {
	case fromA == toA:
		fmt.Fprintf(tags, `\alpha&H%02X`, fromA)
	case fromA == 255 && toA == 0:
		fmt.Fprintf(tags, `\fad(%.0f,0)`, end)
	case fromA == 0 && toA == 255:
		fmt.Fprintf(tags, `\fad(0, %.0f)`, end)
	default:
		fmt.Fprintf(tags, `\fade(%d, %d, %d, 0, %.0f, %.0f, %.0f)`, fromA, toA, toA, end, end, end)
	}
}

// anchor resolves a payload coordinate to stage pixels: relative values are
// fractions of the reference player viewport, absolute values zoom as-is.
func (t *Track) anchor(c types.Coord, vertical bool) float64 {
	v := c.Value
	if c.Relative {
		if vertical {
			v *= playerHeight
		} else {
			v *= playerWidth
		}
	}
	if vertical {
		return t.zoom.Y(v)
	}
	return t.zoom.X(v)
}

// writeLine emits one complete CRLF-terminated line; an event is either
// fully written or not written at all.
func (t *Track) writeLine(line string) error {
	if _, err := io.WriteString(t.w, line+"\r\n"); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	return nil
}

// Timestamp formats seconds as the H:MM:SS.CC form ASS events use.
func Timestamp(seconds float64) string {
	cs := int64(math.Round(seconds * 100))
	h := cs / 360000
	cs %= 360000
	m := cs / 6000
	cs %= 6000
	s := cs / 100
	cs %= 100
	return fmt.Sprintf("%d:%02d:%02d.%02d", h, m, s, cs)
}

// Escape makes raw comment text safe inside a dialogue line: override
// braces and backslashes are escaped, newlines become explicit \N breaks,
// and significant space runs at line edges are preserved with U+2007 figure
// spaces so renderers do not collapse them. A line that ends up empty
// becomes a single space, since ASS forbids empty text segments.
func Escape(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "{", `\{`)
	s = strings.ReplaceAll(s, "}", `\}`)
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		line = padEdges(line)
		if line == "" {
			line = " "
		}
		lines[i] = line
	}
	return strings.Join(lines, `\N`)
}

func padEdges(s string) string {
	trimmed := strings.Trim(s, " ")
	if len(trimmed) == len(s) {
		return s
	}
	lead := len(s) - len(strings.TrimLeft(s, " "))
	trail := len(s) - len(strings.TrimRight(s, " "))
	return strings.Repeat("\u2007", lead) + trimmed + strings.Repeat("\u2007", trail)
}
