package cli

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Preset mirrors the flag surface so option defaults can ship in a YAML
// file next to the comment dumps. Explicitly set flags always win over
// preset values.
type Preset struct {
	Size            string   `yaml:"size"`
	Output          string   `yaml:"output"`
	Font            string   `yaml:"font"`
	FontSize        *float64 `yaml:"fontsize"`
	Alpha           *float64 `yaml:"alpha"`
	DurationMarquee *float64 `yaml:"duration-marquee"`
	DurationStill   *float64 `yaml:"duration-still"`
	Filter          string   `yaml:"filter"`
	FilterFile      string   `yaml:"filter-file"`
	Protect         *int     `yaml:"protect"`
	Reduce          *bool    `yaml:"reduce"`
}

func loadPreset(path string) (Preset, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Preset{}, fmt.Errorf("read preset: %w", err)
	}
	var p Preset
	if err := yaml.Unmarshal(b, &p); err != nil {
		return Preset{}, fmt.Errorf("parse preset %s: %w", path, err)
	}
	return p, nil
}
