package usecase

import (
	"io"
	"math/rand"
	"regexp"

	"go.uber.org/zap"

	"github.com/ShigureLab/danmaku2ass/internal/domain/ass"
	"github.com/ShigureLab/danmaku2ass/internal/domain/layout"
	"github.com/ShigureLab/danmaku2ass/internal/ports"
	"github.com/ShigureLab/danmaku2ass/internal/types"
)

// progressEvery is how many records pass between progress callbacks.
const progressEvery = 1000

type Deps struct {
	Log *zap.Logger
}

type Usecase struct{ d Deps }

func New(d Deps) Usecase {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	return Usecase{d: d}
}

type Input struct {
	// Comments sorted ascending by (Start, Stamp, Seq). The slice doubles as
	// the arena the lane grid indexes into and must not be mutated during
	// the run.
	Comments []types.Comment
	Out      io.Writer
	Options  ass.Options

	// Filters drop a lane-allocated comment when any expression matches its
	// text.
	Filters []*regexp.Regexp
	// Reduce skips comments on a full stage instead of force-placing them.
	Reduce bool
	// Rand feeds the per-run style identifier.
	Rand     *rand.Rand
	Progress ports.Progress
}

type Result struct {
	// Events is the number of dialogue lines written, Dropped the number of
	// comments skipped by filters, reduction or validation.
	Events  int
	Dropped int
}

// Run lays out and renders every comment in order. Grid state is carried
// from one comment to the next, so the loop is strictly sequential.
func (u Usecase) Run(in Input) (Result, error) {
	rng := in.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	track, err := ass.NewTrack(in.Out, in.Options, rng, u.d.Log)
	if err != nil {
		return Result{}, err
	}
	alloc := &layout.Allocator{
		Grid: layout.NewGrid(
			in.Comments,
			in.Options.StageWidth,
			in.Options.StageHeight,
			in.Options.BottomReserved,
		),
		DurationScroll: in.Options.DurationScroll,
		DurationStatic: in.Options.DurationStatic,
		Reduce:         in.Reduce,
	}

	var res Result
	for i := range in.Comments {
		if in.Progress != nil && i%progressEvery == 0 {
			in.Progress(i, len(in.Comments))
		}
		c := &in.Comments[i]
		switch {
		case c.Mode.LaneAllocated():
			if matchesAny(in.Filters, c.Text) {
				res.Dropped++
				continue
			}
			row, placed := alloc.Place(i)
			if !placed {
				res.Dropped++
				continue
			}
			if err := track.WriteLane(c, row); err != nil {
				return res, err
			}
			res.Events++
		case c.Mode == types.ModePositioned && c.Pos != nil:
			if err := track.WritePositioned(c); err != nil {
				return res, err
			}
			res.Events++
		default:
			u.d.Log.Warn("comment has no renderable mode",
				zap.Int("seq", c.Seq), zap.Stringer("mode", c.Mode))
			res.Dropped++
		}
	}
	if in.Progress != nil {
		in.Progress(len(in.Comments), len(in.Comments))
	}
	return res, nil
}

func matchesAny(filters []*regexp.Regexp, text string) bool {
	for _, re := range filters {
		if re != nil && re.MatchString(text) {
			return true
		}
	}
	return false
}
