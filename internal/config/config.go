// Package config loads incremental-marker tuning from a YAML file,
// matching spec §10's ambient-stack requirement that configuration use
// the teacher's own library rather than a hand-rolled parser.
package config

import (
	"fmt"
	"os"

	"github.com/inhies/go-bytesize"
	incmark "github.com/domyhero/v8gc"
	"gopkg.in/yaml.v2"
)

// File is the on-disk shape of a tuning file; byte-size fields are
// written as human strings ("64KiB", "128MiB") and parsed with
// go-bytesize rather than raw integers.
type File struct {
	AllocatedThreshold      string `yaml:"allocated_threshold"`
	OldGenerationDivisor    uint   `yaml:"old_generation_divisor"`
	MinStepSize             string `yaml:"min_step_size"`
	StepSizeWindowMs        float64 `yaml:"step_size_window_ms"`
	OOMDivisor              uint   `yaml:"oom_divisor"`
	YoungGenerationCapacity string `yaml:"young_generation_capacity"`
	OOMSlack                string `yaml:"oom_slack"`
	MaxStepSizeMs           float64 `yaml:"max_step_size_ms"`
	MaxFinalizationRounds   int    `yaml:"max_finalization_rounds"`
	MinFinalizationProgress string `yaml:"min_finalization_progress"`
	MaxMapAge               int    `yaml:"max_map_age"`
	IdleDelayLimit          int    `yaml:"idle_delay_limit"`
}

// Load reads and parses a tuning file at path, falling back to
// incmark.DefaultTuning for any zero-valued field.
func Load(path string) (incmark.Tuning, error) {
	t := incmark.DefaultTuning()

	raw, err := os.ReadFile(path)
	if err != nil {
		return t, fmt.Errorf("config: read %s: %w", path, err)
	}
	var f File
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return t, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if v, err := parseSize(f.AllocatedThreshold); err == nil && v > 0 {
		t.AllocatedThreshold = v
	}
	if f.OldGenerationDivisor > 0 {
		t.OldGenerationDivisor = uintptr(f.OldGenerationDivisor)
	}
	if v, err := parseSize(f.MinStepSize); err == nil && v > 0 {
		t.MinStepSize = v
	}
	if f.StepSizeWindowMs > 0 {
		t.StepSizeWindowMs = f.StepSizeWindowMs
	}
	if f.OOMDivisor > 0 {
		t.OOMDivisor = uintptr(f.OOMDivisor)
	}
	if v, err := parseSize(f.YoungGenerationCapacity); err == nil && v > 0 {
		t.YoungGenerationCapacity = v
	}
	if v, err := parseSize(f.OOMSlack); err == nil && v > 0 {
		t.OOMSlackBytes = v
	}
	if f.MaxStepSizeMs > 0 {
		t.MaxStepSizeMs = f.MaxStepSizeMs
	}
	if f.MaxFinalizationRounds > 0 {
		t.MaxFinalizationRounds = f.MaxFinalizationRounds
	}
	if v, err := parseSize(f.MinFinalizationProgress); err == nil && v > 0 {
		t.MinFinalizationProgress = v
	}
	if f.MaxMapAge > 0 {
		t.MaxMapAge = f.MaxMapAge
	}
	if f.IdleDelayLimit > 0 {
		t.IdleDelayLimit = f.IdleDelayLimit
	}
	return t, nil
}

func parseSize(s string) (uintptr, error) {
	if s == "" {
		return 0, fmt.Errorf("config: empty size")
	}
	bs, err := bytesize.Parse(s)
	if err != nil {
		return 0, fmt.Errorf("config: parse size %q: %w", s, err)
	}
	return uintptr(bs), nil
}
