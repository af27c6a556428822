package cli

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func Main() {
	_ = godotenv.Load() // best-effort: load .env if present

	root := &cobra.Command{
		Use:          "danmaku2ass -s WIDTHxHEIGHT [flags] <file>...",
		Short:        "Convert danmaku comment streams into an ASS subtitle track",
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args)
		},
	}

	root.SetOut(os.Stdout)
	root.SetErr(os.Stderr)
	root.SilenceErrors = true

	root.Flags().StringP("output", "o", "", "Output file (default stdout)")
	root.Flags().StringP("size", "s", "", "Stage size in pixels, WIDTHxHEIGHT")
	root.Flags().String("font", "", "Font face")
	root.Flags().Float64("fontsize", 0, "Default font size")
	root.Flags().Float64P("alpha", "a", 1.0, "Text opacity, 0 to 1")
	root.Flags().Float64("duration-marquee", 5.0, "Seconds a scrolling comment stays on screen")
	root.Flags().Float64("duration-still", 5.0, "Seconds a still comment stays on screen")
	root.Flags().String("filter", "", "Regular expression that drops matching comments")
	root.Flags().String("filter-file", "", "File with one filter expression per line")
	root.Flags().IntP("protect", "p", 0, "Reserve blank pixels at the bottom of the stage")
	root.Flags().BoolP("reduce", "r", false, "Drop comments when the stage is full instead of stacking them")
	root.Flags().String("preset", "", "YAML file supplying option defaults")
	root.Flags().BoolP("quiet", "q", false, "Suppress progress output and warnings")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
