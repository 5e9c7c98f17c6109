package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultAnalysisConfigPath is the canonical analysis defaults file, relative
// to the repository root.
const DefaultAnalysisConfigPath = "config/analysis.defaults.json"

// Stream names used as keys in the thresholds table and throughout the tools.
const (
	StreamSonar   = "sonar"
	StreamCamera1 = "camera1"
	StreamCamera2 = "camera2"
)

// AnalysisConfig holds the alignment, compositing and anomaly-classification
// parameters. Fields are pointers so a partial JSON file only overrides what
// it names; the Get* methods supply defaults for the rest.
type AnalysisConfig struct {
	StepSeconds      *float64 `json:"step_seconds,omitempty"`
	SubimageWidth    *int     `json:"subimage_width,omitempty"`
	SubimageHeight   *int     `json:"subimage_height,omitempty"`
	CloseRangeOffset *int     `json:"close_range_offset,omitempty"`
	LabelOffset      *int     `json:"label_offset,omitempty"`

	Thresholds map[string]*ThresholdConfig `json:"thresholds,omitempty"`
}

// ThresholdConfig is one stream's anomaly triple.
type ThresholdConfig struct {
	Black  *float64 `json:"black,omitempty"`
	Bright *float64 `json:"bright,omitempty"`
	Noise  *float64 `json:"noise,omitempty"`
}

// defaultThresholds applies when a stream (or one of its values) is not set.
// Cameras share their defaults.
var defaultThresholds = map[string][3]float64{
	StreamSonar:   {2.0, 150.0, 7.5},
	StreamCamera1: {15.0, 230.0, 7.6},
	StreamCamera2: {15.0, 230.0, 7.6},
}

// EmptyAnalysisConfig returns an AnalysisConfig with every field unset.
func EmptyAnalysisConfig() *AnalysisConfig {
	return &AnalysisConfig{}
}

// LoadAnalysisConfig loads an AnalysisConfig from a JSON file.
// The file must have a .json extension and be at most 1MB.
func LoadAnalysisConfig(path string) (*AnalysisConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyAnalysisConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// LoadAnalysisConfigOrDefault loads path, or returns the built-in defaults
// when path is empty.
func LoadAnalysisConfigOrDefault(path string) (*AnalysisConfig, error) {
	if path == "" {
		return EmptyAnalysisConfig(), nil
	}
	return LoadAnalysisConfig(path)
}

// Validate checks that the configured values are usable.
func (c *AnalysisConfig) Validate() error {
	if c.StepSeconds != nil && *c.StepSeconds <= 0 {
		return fmt.Errorf("step_seconds must be positive, got %f", *c.StepSeconds)
	}
	if c.SubimageWidth != nil && *c.SubimageWidth <= 0 {
		return fmt.Errorf("subimage_width must be positive, got %d", *c.SubimageWidth)
	}
	if c.SubimageHeight != nil && *c.SubimageHeight <= 0 {
		return fmt.Errorf("subimage_height must be positive, got %d", *c.SubimageHeight)
	}
	if c.CloseRangeOffset != nil && *c.CloseRangeOffset < 0 {
		return fmt.Errorf("close_range_offset must be non-negative, got %d", *c.CloseRangeOffset)
	}
	if c.LabelOffset != nil && *c.LabelOffset < 0 {
		return fmt.Errorf("label_offset must be non-negative, got %d", *c.LabelOffset)
	}
	for name, t := range c.Thresholds {
		if _, ok := defaultThresholds[name]; !ok {
			return fmt.Errorf("unknown stream %q in thresholds", name)
		}
		if t == nil {
			continue
		}
		black, bright, _ := c.GetThresholds(name)
		if black < 0 || bright > 255 {
			return fmt.Errorf("%s: thresholds must lie within [0, 255]", name)
		}
		if black >= bright {
			return fmt.Errorf("%s: black threshold %.2f must be below bright threshold %.2f", name, black, bright)
		}
		if t.Noise != nil && (*t.Noise <= 0 || *t.Noise > 8) {
			return fmt.Errorf("%s: noise threshold must be in (0, 8] bits, got %f", name, *t.Noise)
		}
	}
	return nil
}

// GetStepSeconds returns the alignment tick interval or the default of 0.05s.
func (c *AnalysisConfig) GetStepSeconds() float64 {
	if c.StepSeconds == nil {
		return 0.05
	}
	return *c.StepSeconds
}

// GetSubimageSize returns the per-view size in the composite grid.
func (c *AnalysisConfig) GetSubimageSize() (width, height int) {
	width, height = 640, 480
	if c.SubimageWidth != nil {
		width = *c.SubimageWidth
	}
	if c.SubimageHeight != nil {
		height = *c.SubimageHeight
	}
	return width, height
}

// GetCloseRangeOffset returns the first sonar row of the close-range crop.
func (c *AnalysisConfig) GetCloseRangeOffset() int {
	if c.CloseRangeOffset == nil {
		return 400
	}
	return *c.CloseRangeOffset
}

// GetLabelOffset returns the label baseline distance from the bottom edge.
func (c *AnalysisConfig) GetLabelOffset() int {
	if c.LabelOffset == nil {
		return 20
	}
	return *c.LabelOffset
}

// GetThresholds returns the black, bright and noise thresholds for stream,
// falling back to the built-in defaults per value.
func (c *AnalysisConfig) GetThresholds(stream string) (black, bright, noise float64) {
	d, ok := defaultThresholds[stream]
	if !ok {
		d = defaultThresholds[StreamCamera1]
	}
	black, bright, noise = d[0], d[1], d[2]

	t := c.Thresholds[stream]
	if t == nil {
		return black, bright, noise
	}
	if t.Black != nil {
		black = *t.Black
	}
	if t.Bright != nil {
		bright = *t.Bright
	}
	if t.Noise != nil {
		noise = *t.Noise
	}
	return black, bright, noise
}
