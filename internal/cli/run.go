package cli

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/ShigureLab/danmaku2ass/internal/pipeline"
	"github.com/ShigureLab/danmaku2ass/internal/ports"
)

func run(cmd *cobra.Command, inputs []string) error {
	fl := cmd.Flags()

	var p Preset
	if path, _ := fl.GetString("preset"); path != "" {
		var err error
		if p, err = loadPreset(path); err != nil {
			return err
		}
	}

	size := stringOpt(fl, "size", p.Size, "")
	if size == "" {
		return errors.New("stage size is required (-s WIDTHxHEIGHT)")
	}
	width, height, err := parseSize(size)
	if err != nil {
		return err
	}

	quiet, _ := fl.GetBool("quiet")
	log, err := newLogger(quiet)
	if err != nil {
		return err
	}
	defer log.Sync()

	var progress ports.Progress
	if !quiet {
		progress = func(done, total int) {
			fmt.Fprintf(os.Stderr, "\r%d/%d comments", done, total)
			if done == total {
				fmt.Fprintln(os.Stderr)
			}
		}
	}

	cfg := pipeline.Config{
		Inputs: inputs,
		Output: stringOpt(fl, "output", p.Output, ""),

		StageWidth:     width,
		StageHeight:    height,
		BottomReserved: intOpt(fl, "protect", p.Protect, 0),

		FontFace:       stringOpt(fl, "font", p.Font, getenvDefault("DANMAKU2ASS_FONT", "sans-serif")),
		FontSize:       float64Opt(fl, "fontsize", p.FontSize, envFontSize()),
		TextOpacity:    float64Opt(fl, "alpha", p.Alpha, 1),
		DurationScroll: float64Opt(fl, "duration-marquee", p.DurationMarquee, 5),
		DurationStatic: float64Opt(fl, "duration-still", p.DurationStill, 5),

		Filter:     stringOpt(fl, "filter", p.Filter, ""),
		FilterFile: stringOpt(fl, "filter-file", p.FilterFile, ""),
		Reduce:     boolOpt(fl, "reduce", p.Reduce, false),

		Progress: progress,
		Log:      log,
		Rand:     rand.New(rand.NewSource(rand.Int63())),
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return pipeline.Run(context.Background(), cfg)
}

func newLogger(quiet bool) (*zap.Logger, error) {
	if quiet {
		return zap.NewNop(), nil
	}
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	return cfg.Build()
}

// parseSize accepts 1920x1080, 1280X720 and the Unicode multiplication
// sign variant.
func parseSize(s string) (width, height int, err error) {
	for _, sep := range []string{"x", "X", "×"} {
		ws, hs, ok := strings.Cut(s, sep)
		if !ok {
			continue
		}
		w, errW := strconv.Atoi(ws)
		h, errH := strconv.Atoi(hs)
		if errW != nil || errH != nil || w <= 0 || h <= 0 {
			break
		}
		return w, h, nil
	}
	return 0, 0, fmt.Errorf("invalid stage size %q, want WIDTHxHEIGHT", s)
}

// Option resolution order: explicit flag, then preset value, then default.

func stringOpt(fl *pflag.FlagSet, name, preset, def string) string {
	if fl.Changed(name) {
		v, _ := fl.GetString(name)
		return v
	}
	if preset != "" {
		return preset
	}
	return def
}

func float64Opt(fl *pflag.FlagSet, name string, preset *float64, def float64) float64 {
	if fl.Changed(name) {
		v, _ := fl.GetFloat64(name)
		return v
	}
	if preset != nil {
		return *preset
	}
	return def
}

func intOpt(fl *pflag.FlagSet, name string, preset *int, def int) int {
	if fl.Changed(name) {
		v, _ := fl.GetInt(name)
		return v
	}
	if preset != nil {
		return *preset
	}
	return def
}

func boolOpt(fl *pflag.FlagSet, name string, preset *bool, def bool) bool {
	if fl.Changed(name) {
		v, _ := fl.GetBool(name)
		return v
	}
	if preset != nil {
		return *preset
	}
	return def
}

func envFontSize() float64 {
	if v := os.Getenv("DANMAKU2ASS_FONTSIZE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			return f
		}
	}
	return 25
}

func getenvDefault(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}
