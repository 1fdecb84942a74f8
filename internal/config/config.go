// Package config holds the runtime configuration of the bonder monitor.
// A YAML document is decoded over the defaults so partial files are safe.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// maxFileSize is the largest config file accepted
const maxFileSize = 1 * 1024 * 1024

// Config is the root configuration
type Config struct {
	Camera    CameraConfig    `yaml:"camera"`
	Model     ModelConfig     `yaml:"model"`
	Detect    DetectConfig    `yaml:"detect"`
	Tracking  TrackingConfig  `yaml:"tracking"`
	Display   DisplayConfig   `yaml:"display"`
	Feed      FeedConfig      `yaml:"feed"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Log       LogConfig       `yaml:"log"`
}

// CameraConfig selects and opens the camera
type CameraConfig struct {
	// MaxIndex is the highest device index probed when searching
	MaxIndex int `yaml:"max_index"`
	Width    int `yaml:"width"`
	Height   int `yaml:"height"`
	FPS      int `yaml:"fps"`
	// Retry is the delay before searching again after no camera was found
	Retry time.Duration `yaml:"retry"`
}

// ModelConfig describes the detection model
type ModelConfig struct {
	Path   string `yaml:"path"`
	Labels string `yaml:"labels"`
	// TipClass and ReelClass are the model class names of the targets
	TipClass     string  `yaml:"tip_class"`
	ReelClass    string  `yaml:"reel_class"`
	InputSize    int     `yaml:"input_size"`
	BoxThreshold float32 `yaml:"box_threshold"`
	NMSThreshold float32 `yaml:"nms_threshold"`
}

// DetectConfig tunes the background detector
type DetectConfig struct {
	// Interval is the minimum time between frames submitted for detection
	Interval    time.Duration `yaml:"interval"`
	StopTimeout time.Duration `yaml:"stop_timeout"`
}

// TrackingConfig tunes the per target trackers
type TrackingConfig struct {
	// Kalman filter
	Dt float64 `yaml:"dt"`
	Q  float64 `yaml:"q"`
	R  float64 `yaml:"r"`
	// optical flow refiner used for the tip
	MaxCorners   int `yaml:"max_corners"`
	MinPoints    int `yaml:"min_points"`
	MinSurvivors int `yaml:"min_survivors"`
	Pad          int `yaml:"pad"`
	// TrailSize is the number of positions kept per target for display
	TrailSize int `yaml:"trail_size"`
}

// DisplayConfig controls the local preview window
type DisplayConfig struct {
	Enabled bool   `yaml:"enabled"`
	Title   string `yaml:"title"`
	Width   int    `yaml:"width"`
	Height  int    `yaml:"height"`
	// ShowDetections overlays the raw detector boxes
	ShowDetections bool `yaml:"show_detections"`
	// FontFile is an optional TrueType font for the status screens
	FontFile string `yaml:"font_file"`
}

// FeedConfig controls the HTTP feed, an empty Addr disables it
type FeedConfig struct {
	Addr        string `yaml:"addr"`
	JPEGQuality int    `yaml:"jpeg_quality"`
}

// TelemetryConfig controls publishing of target states to NATS, an empty
// URL disables it
type TelemetryConfig struct {
	URL      string        `yaml:"url"`
	Subject  string        `yaml:"subject"`
	Interval time.Duration `yaml:"interval"`
}

// LogConfig controls logging
type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	return &Config{
		Camera: CameraConfig{
			MaxIndex: 5,
			Width:    640,
			Height:   480,
			FPS:      30,
			Retry:    2 * time.Second,
		},
		Model: ModelConfig{
			Path:         "models/bonder.onnx",
			Labels:       "models/bonder_labels.txt",
			TipClass:     "bonder_tip",
			ReelClass:    "gold_reel",
			InputSize:    416,
			BoxThreshold: 0.25,
			NMSThreshold: 0.45,
		},
		Detect: DetectConfig{
			Interval:    100 * time.Millisecond,
			StopTimeout: 2 * time.Second,
		},
		Tracking: TrackingConfig{
			Dt:           1.0 / 30,
			Q:            1e-2,
			R:            1e-1,
			MaxCorners:   40,
			MinPoints:    6,
			MinSurvivors: 4,
			Pad:          2,
			TrailSize:    30,
		},
		Display: DisplayConfig{
			Enabled: true,
			Title:   "bondtrack",
			Width:   960,
			Height:  540,
		},
		Feed: FeedConfig{
			JPEGQuality: 80,
		},
		Telemetry: TelemetryConfig{
			Subject:  "bondtrack.targets",
			Interval: 200 * time.Millisecond,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads a YAML config file over the defaults and validates it
func Load(path string) (*Config, error) {

	cleanPath := filepath.Clean(path)

	if ext := filepath.Ext(cleanPath); ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("config file must have .yaml extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)

	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}

	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)

	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse decodes YAML over the defaults and validates the result
func Parse(data []byte) (*Config, error) {

	cfg := Default()

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are usable
func (c *Config) Validate() error {

	if c.Camera.MaxIndex < 0 {
		return fmt.Errorf("camera.max_index must be non-negative, got %d", c.Camera.MaxIndex)
	}

	if c.Camera.Width <= 0 || c.Camera.Height <= 0 || c.Camera.FPS <= 0 {
		return fmt.Errorf("camera width, height and fps must be positive, got %dx%d@%d",
			c.Camera.Width, c.Camera.Height, c.Camera.FPS)
	}

	if c.Model.Path == "" {
		return fmt.Errorf("model.path is required")
	}

	if c.Model.TipClass == "" || c.Model.ReelClass == "" {
		return fmt.Errorf("model.tip_class and model.reel_class are required")
	}

	if strings.EqualFold(c.Model.TipClass, c.Model.ReelClass) {
		return fmt.Errorf("model.tip_class and model.reel_class must differ, both are %q", c.Model.TipClass)
	}

	if c.Model.InputSize <= 0 || c.Model.InputSize%32 != 0 {
		return fmt.Errorf("model.input_size must be a positive multiple of 32, got %d", c.Model.InputSize)
	}

	if c.Model.BoxThreshold < 0 || c.Model.BoxThreshold > 1 {
		return fmt.Errorf("model.box_threshold must be between 0 and 1, got %f", c.Model.BoxThreshold)
	}

	if c.Model.NMSThreshold < 0 || c.Model.NMSThreshold > 1 {
		return fmt.Errorf("model.nms_threshold must be between 0 and 1, got %f", c.Model.NMSThreshold)
	}

	if c.Detect.Interval < 0 {
		return fmt.Errorf("detect.interval must be non-negative, got %s", c.Detect.Interval)
	}

	if c.Detect.StopTimeout <= 0 {
		return fmt.Errorf("detect.stop_timeout must be positive, got %s", c.Detect.StopTimeout)
	}

	if c.Tracking.Dt <= 0 || c.Tracking.Q <= 0 || c.Tracking.R <= 0 {
		return fmt.Errorf("tracking dt, q and r must be positive")
	}

	if c.Tracking.MaxCorners < c.Tracking.MinPoints {
		return fmt.Errorf("tracking.max_corners (%d) must be at least min_points (%d)",
			c.Tracking.MaxCorners, c.Tracking.MinPoints)
	}

	if c.Tracking.MinSurvivors <= 0 || c.Tracking.Pad < 0 || c.Tracking.TrailSize < 0 {
		return fmt.Errorf("tracking.min_survivors must be positive and pad, trail_size non-negative")
	}

	// fewer seeded points than survivors would fail every refinement
	if c.Tracking.MinPoints < c.Tracking.MinSurvivors {
		return fmt.Errorf("tracking.min_points (%d) must be at least min_survivors (%d)",
			c.Tracking.MinPoints, c.Tracking.MinSurvivors)
	}

	if c.Display.Width <= 0 || c.Display.Height <= 0 {
		return fmt.Errorf("display size must be positive, got %dx%d", c.Display.Width, c.Display.Height)
	}

	if c.Feed.JPEGQuality < 1 || c.Feed.JPEGQuality > 100 {
		return fmt.Errorf("feed.jpeg_quality must be between 1 and 100, got %d", c.Feed.JPEGQuality)
	}

	if c.Telemetry.URL != "" && strings.TrimSpace(c.Telemetry.Subject) == "" {
		return fmt.Errorf("telemetry.subject is required when telemetry.url is set")
	}

	if c.Telemetry.Interval < 0 {
		return fmt.Errorf("telemetry.interval must be non-negative, got %s", c.Telemetry.Interval)
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error, got %q", c.Log.Level)
	}

	return nil
}
