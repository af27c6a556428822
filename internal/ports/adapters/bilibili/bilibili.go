// Package bilibili reads the Bilibili XML comment format: one <d> element
// per comment, with a comma-separated "p" attribute carrying timing, mode,
// size, color and submission timestamp.
package bilibili

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/ShigureLab/danmaku2ass/internal/types"
)

type Adapter struct {
	log *zap.Logger
}

func New(log *zap.Logger) *Adapter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Adapter{log: log}
}

// modeCodes maps the wire mode field onto display modes.
var modeCodes = map[string]types.Mode{
	"1": types.ModeScroll,
	"4": types.ModeBottom,
	"5": types.ModeTop,
	"6": types.ModeReverse,
}

func (a *Adapter) Read(r io.Reader, baseFontSize float64, firstSeq int) ([]types.Comment, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read comment stream: %w", err)
	}
	doc := sanitize(string(raw))

	var out []types.Comment
	dec := newElementScanner(doc)
	for {
		el, err := dec.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse comment xml: %w", err)
		}
		c, ok := a.parse(el, baseFontSize, firstSeq+len(out))
		if !ok {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (a *Adapter) parse(el element, baseFontSize float64, seq int) (types.Comment, bool) {
	fields := strings.Split(el.attr, ",")
	if len(fields) < 5 {
		a.log.Warn("invalid comment: short attribute list", zap.String("p", el.attr))
		return types.Comment{}, false
	}
	start, err0 := strconv.ParseFloat(fields[0], 64)
	rawSize, err1 := strconv.Atoi(fields[2])
	color, err2 := strconv.ParseUint(fields[3], 10, 32)
	stamp, err3 := strconv.ParseInt(fields[4], 10, 64)
	if err0 != nil || err1 != nil || err2 != nil || err3 != nil {
		a.log.Warn("invalid comment: bad numeric field", zap.String("p", el.attr))
		return types.Comment{}, false
	}

	switch fields[1] {
	case "1", "4", "5", "6":
		if el.text == "" {
			return types.Comment{}, false
		}
		mode := modeCodes[fields[1]]
		text := strings.ReplaceAll(el.text, "/n", "\n")
		size := float64(rawSize) * baseFontSize / 25.0
		return types.Comment{
			Start:  start,
			Stamp:  stamp,
			Seq:    seq,
			Text:   text,
			Mode:   mode,
			Color:  uint32(color),
			Size:   size,
			Height: float64(strings.Count(text, "\n")+1) * size,
			Width:  float64(longestLine(text)) * size,
		}, true
	case "7":
		pos, err := parsePayload(el.text)
		if err != nil {
			a.log.Warn("invalid positioned comment", zap.String("payload", el.text), zap.Error(err))
			return types.Comment{}, false
		}
		return types.Comment{
			Start: start,
			Stamp: stamp,
			Seq:   seq,
			Mode:  types.ModePositioned,
			Color: uint32(color),
			Size:  float64(rawSize),
			Pos:   pos,
		}, true
	case "8":
		// Scripted comments are not renderable as subtitles.
		return types.Comment{}, false
	default:
		a.log.Warn("invalid comment: unknown mode", zap.String("mode", fields[1]))
		return types.Comment{}, false
	}
}

// parsePayload decodes the positional JSON array:
// [from_x, from_y, alpha, lifetime, text, rotate_z, rotate_y, to_x, to_y,
// duration_ms, delay_ms, border, font_face].
func parsePayload(raw string) (*types.PositionedPayload, error) {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var args []any
	if err := dec.Decode(&args); err != nil {
		return nil, err
	}
	at := func(i int) any {
		if i < len(args) {
			return args[i]
		}
		return nil
	}

	text, ok := at(4).(string)
	if !ok {
		return nil, fmt.Errorf("missing comment text")
	}
	p := types.PositionedPayload{
		Text:   strings.ReplaceAll(text, "/n", "\n"),
		Border: true,
	}

	var err error
	if p.FromX, err = coordAt(at(0), types.Coord{}); err != nil {
		return nil, fmt.Errorf("from_x: %w", err)
	}
	if p.FromY, err = coordAt(at(1), types.Coord{}); err != nil {
		return nil, fmt.Errorf("from_y: %w", err)
	}
	if p.ToX, err = coordAt(at(7), p.FromX); err != nil {
		return nil, fmt.Errorf("to_x: %w", err)
	}
	if p.ToY, err = coordAt(at(8), p.FromY); err != nil {
		return nil, fmt.Errorf("to_y: %w", err)
	}
	if p.FromAlpha, p.ToAlpha, err = parseAlpha(at(2)); err != nil {
		return nil, fmt.Errorf("alpha: %w", err)
	}
	if p.RotateZ, err = intAt(at(5), 0); err != nil {
		return nil, fmt.Errorf("rotate_z: %w", err)
	}
	if p.RotateY, err = intAt(at(6), 0); err != nil {
		return nil, fmt.Errorf("rotate_y: %w", err)
	}
	if p.Lifetime, err = floatAt(at(3), 4500); err != nil {
		return nil, fmt.Errorf("lifetime: %w", err)
	}
	if p.Duration, err = intAt(at(9), int(p.Lifetime*1000)); err != nil {
		return nil, fmt.Errorf("duration: %w", err)
	}
	if p.Delay, err = intAt(at(10), 0); err != nil {
		return nil, fmt.Errorf("delay: %w", err)
	}
	if f, ok := at(12).(string); ok {
		p.FontFace = f
	}
	if b, ok := at(11).(string); ok && b == "false" {
		p.Border = false
	}
	return &p, nil
}

// coordAt distinguishes absolute pixels from viewport fractions: integer
// tokens are always absolute, fractional tokens are relative unless they
// exceed 1.
func coordAt(v any, def types.Coord) (types.Coord, error) {
	switch t := v.(type) {
	case nil:
		return def, nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return types.Coord{}, err
		}
		if !strings.ContainsAny(t.String(), ".eE") || f > 1 {
			return types.Coord{Value: f}, nil
		}
		return types.Coord{Value: f, Relative: true}, nil
	case string:
		if n, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64); err == nil {
			return types.Coord{Value: float64(n)}, nil
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return types.Coord{}, fmt.Errorf("non-numeric position %q", t)
		}
		if f > 1 {
			return types.Coord{Value: f}, nil
		}
		return types.Coord{Value: f, Relative: true}, nil
	default:
		return types.Coord{}, fmt.Errorf("unsupported position value %v", v)
	}
}

// parseAlpha reads either a single opacity or a "from-to" pair.
func parseAlpha(v any) (from, to float64, err error) {
	s := "1"
	switch t := v.(type) {
	case nil:
	case json.Number:
		s = t.String()
	case string:
		s = t
	default:
		return 0, 0, fmt.Errorf("unsupported alpha value %v", v)
	}
	parts := strings.SplitN(s, "-", 2)
	from, err = strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("non-numeric alpha %q", s)
	}
	to = from
	if len(parts) == 2 {
		to, err = strconv.ParseFloat(parts[1], 64)
		if err != nil {
			return 0, 0, fmt.Errorf("non-numeric alpha %q", s)
		}
	}
	return from, to, nil
}

func intAt(v any, def int) (int, error) {
	switch t := v.(type) {
	case nil:
		return def, nil
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return int(i), nil
		}
		f, err := t.Float64()
		if err != nil {
			return 0, err
		}
		return int(f), nil
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("non-integer value %q", t)
		}
		return int(i), nil
	default:
		return 0, fmt.Errorf("unsupported integer value %v", v)
	}
}

func floatAt(v any, def float64) (float64, error) {
	switch t := v.(type) {
	case nil:
		return def, nil
	case json.Number:
		return t.Float64()
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, fmt.Errorf("non-numeric value %q", t)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("unsupported numeric value %v", v)
	}
}

// longestLine approximates the rendered width in character cells.
func longestLine(s string) int {
	max := 0
	for _, line := range strings.Split(s, "\n") {
		if n := utf8.RuneCountInString(line); n > max {
			max = n
		}
	}
	return max
}

// sanitize replaces bytes the XML parser would choke on: invalid UTF-8 and
// the control characters some danmaku dumps carry verbatim.
func sanitize(s string) string {
	s = strings.ToValidUTF8(s, "�")
	return strings.Map(func(r rune) rune {
		if r <= 0x08 || r == 0x0b || r == 0x0c || (r >= 0x0e && r <= 0x1f) {
			return '�'
		}
		return r
	}, s)
}
