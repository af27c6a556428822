package pipeline

import (
	"bufio"
	"cmp"
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"regexp"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/ShigureLab/danmaku2ass/internal/domain/ass"
	"github.com/ShigureLab/danmaku2ass/internal/ports"
	"github.com/ShigureLab/danmaku2ass/internal/ports/adapters/bilibili"
	"github.com/ShigureLab/danmaku2ass/internal/types"
	"github.com/ShigureLab/danmaku2ass/internal/usecase"
)

type Config struct {
	// Inputs are comment files, read and sorted together. Output empty
	// means stdout.
	Inputs []string
	Output string

	StageWidth     int
	StageHeight    int
	BottomReserved int

	FontFace       string
	FontSize       float64
	TextOpacity    float64
	DurationScroll float64
	DurationStatic float64

	// Filter is a single expression; FilterFile adds one expression per
	// line. A comment matching any of them is dropped.
	Filter     string
	FilterFile string

	Reduce bool

	Progress ports.Progress
	Log      *zap.Logger
	// Rand feeds the style identifier; nil draws a fresh seed.
	Rand *rand.Rand
}

func (c Config) Validate() error {
	if len(c.Inputs) == 0 {
		return errors.New("no input files")
	}
	if c.StageWidth <= 0 || c.StageHeight <= 0 {
		return fmt.Errorf("invalid stage size %dx%d", c.StageWidth, c.StageHeight)
	}
	if c.BottomReserved < 0 || c.BottomReserved >= c.StageHeight {
		return fmt.Errorf("reserved bottom margin %d does not fit stage height %d",
			c.BottomReserved, c.StageHeight)
	}
	if c.FontSize <= 0 {
		return fmt.Errorf("font size must be > 0")
	}
	if c.TextOpacity < 0 || c.TextOpacity > 1 {
		return fmt.Errorf("text opacity must be within [0, 1]")
	}
	if c.DurationScroll <= 0 || c.DurationStatic <= 0 {
		return fmt.Errorf("display durations must be > 0")
	}
	return nil
}

// Run converts the configured inputs into one ASS track. Configuration and
// filter errors surface before any output is written.
func Run(ctx context.Context, cfg Config) error {
	log := cfg.Log
	if log == nil {
		log = zap.NewNop()
	}

	filters, err := compileFilters(cfg.Filter, cfg.FilterFile)
	if err != nil {
		return err
	}

	source := bilibili.New(log)
	comments, err := readAll(ctx, source, cfg.Inputs, cfg.FontSize)
	if err != nil {
		return err
	}
	sortComments(comments)
	log.Info("comments loaded",
		zap.Int("count", len(comments)), zap.Int("files", len(cfg.Inputs)))

	out := os.Stdout
	if cfg.Output != "" {
		f, err := os.Create(cfg.Output)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		out = f
	}
	bw := bufio.NewWriter(out)

	res, err := usecase.New(usecase.Deps{Log: log}).Run(usecase.Input{
		Comments: comments,
		Out:      bw,
		Options: ass.Options{
			StageWidth:     cfg.StageWidth,
			StageHeight:    cfg.StageHeight,
			BottomReserved: cfg.BottomReserved,
			FontFace:       cfg.FontFace,
			FontSize:       cfg.FontSize,
			Opacity:        cfg.TextOpacity,
			DurationScroll: cfg.DurationScroll,
			DurationStatic: cfg.DurationStatic,
		},
		Filters:  filters,
		Reduce:   cfg.Reduce,
		Rand:     cfg.Rand,
		Progress: cfg.Progress,
	})
	if err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}
	log.Info("track written",
		zap.Int("events", res.Events), zap.Int("dropped", res.Dropped))
	return nil
}

func readAll(ctx context.Context, source ports.CommentSource, inputs []string, fontSize float64) ([]types.Comment, error) {
	var comments []types.Comment
	for _, path := range inputs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open input: %w", err)
		}
		batch, err := source.Read(f, fontSize, len(comments))
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		comments = append(comments, batch...)
	}
	return comments, nil
}

// sortComments orders the arena by appearance time, breaking ties by
// submission time, then by the unique sequence number.
func sortComments(comments []types.Comment) {
	slices.SortFunc(comments, func(a, b types.Comment) int {
		if c := cmp.Compare(a.Start, b.Start); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Stamp, b.Stamp); c != 0 {
			return c
		}
		return cmp.Compare(a.Seq, b.Seq)
	})
}

func compileFilters(expr, file string) ([]*regexp.Regexp, error) {
	exprs := []string{}
	if expr != "" {
		exprs = append(exprs, expr)
	}
	if file != "" {
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read filter file: %w", err)
		}
		for _, line := range strings.Split(string(b), "\n") {
			if line = strings.TrimSpace(line); line != "" {
				exprs = append(exprs, line)
			}
		}
	}
	var out []*regexp.Regexp
	for _, e := range exprs {
		re, err := regexp.Compile(e)
		if err != nil {
			return nil, fmt.Errorf("invalid filter expression %q: %w", e, err)
		}
		out = append(out, re)
	}
	return out, nil
}

// ensure the adapter implements its port
var _ ports.CommentSource = (*bilibili.Adapter)(nil)
