package config

import (
	"github.com/wirebond/bondtrack"
	"github.com/wirebond/bondtrack/postprocess"
	"github.com/wirebond/bondtrack/tracker"
)

// TargetNames maps the configured model class names to targets
func (c *Config) TargetNames() bondtrack.TargetNames {
	return bondtrack.TargetNames{
		c.Model.TipClass:  bondtrack.Tip,
		c.Model.ReelClass: bondtrack.Reel,
	}
}

// YOLOParams returns the post processing parameters of the model
func (c *Config) YOLOParams() postprocess.YOLOv8Params {
	params := postprocess.YOLOv8DefaultParams()
	params.BoxThreshold = c.Model.BoxThreshold
	params.NMSThreshold = c.Model.NMSThreshold
	params.InputWidth = c.Model.InputSize
	params.InputHeight = c.Model.InputSize
	return params
}

// DetectorOptions returns the background detector options
func (c *Config) DetectorOptions() bondtrack.DetectorOptions {
	opts := bondtrack.DefaultDetectorOptions()
	opts.InputSize = c.Model.InputSize
	opts.StopTimeout = c.Detect.StopTimeout
	return opts
}

// ManagerOptions returns the tracking options for every target
func (c *Config) ManagerOptions() tracker.ManagerOptions {

	opts := tracker.DefaultManagerOptions()
	opts.TrailSize = c.Tracking.TrailSize

	for _, kind := range bondtrack.TargetKinds {
		t := &opts.Targets[kind]

		t.Kalman = tracker.KalmanParams{
			Dt: c.Tracking.Dt,
			Q:  c.Tracking.Q,
			R:  c.Tracking.R,
		}

		t.Flow.MaxCorners = c.Tracking.MaxCorners
		t.Flow.MinPoints = c.Tracking.MinPoints
		t.Flow.MinSurvivors = c.Tracking.MinSurvivors
		t.Flow.Pad = c.Tracking.Pad
	}

	return opts
}
