package main

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wirebond/bondtrack"
	"github.com/wirebond/bondtrack/postprocess"
	"gocv.io/x/gocv"
)

// slowModel blocks in Detect until released and records Close
type slowModel struct {
	entered chan struct{}
	release chan struct{}
	closed  atomic.Bool
	// closedInDetect is set if Close ran while Detect was blocked
	closedInDetect atomic.Bool
	inDetect       atomic.Bool
}

func (m *slowModel) Detect(img gocv.Mat) ([]postprocess.DetectResult, error) {
	m.inDetect.Store(true)
	m.entered <- struct{}{}
	<-m.release
	m.inDetect.Store(false)
	return nil, nil
}

func (m *slowModel) Labels() []string {
	return []string{"bonder_tip", "gold_reel"}
}

func (m *slowModel) Close() error {
	if m.inDetect.Load() {
		m.closedInDetect.Store(true)
	}
	m.closed.Store(true)
	return nil
}

func TestMonitorCloseWaitsForInference(t *testing.T) {

	model := &slowModel{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}

	resolver, err := bondtrack.ResolveTargets(model.Labels(), bondtrack.DefaultTargetNames)
	require.NoError(t, err)

	opts := bondtrack.DefaultDetectorOptions()
	opts.StopTimeout = 20 * time.Millisecond

	detector := bondtrack.NewDetector(model, resolver, opts)
	require.NoError(t, detector.Start())

	frame := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer frame.Close()

	require.True(t, detector.Submit(frame))
	<-model.entered

	m := &Monitor{model: model, detector: detector}
	m.Close()

	// the worker is still inside Detect so the model must stay open
	time.Sleep(20 * time.Millisecond)
	assert.False(t, model.closed.Load())

	close(model.release)

	require.Eventually(t, model.closed.Load, time.Second, 5*time.Millisecond)
	assert.False(t, model.closedInDetect.Load())
}

func TestMonitorCloseStoppedDetector(t *testing.T) {

	model := &slowModel{}

	resolver, err := bondtrack.ResolveTargets(model.Labels(), bondtrack.DefaultTargetNames)
	require.NoError(t, err)

	detector := bondtrack.NewDetector(model, resolver, bondtrack.DefaultDetectorOptions())
	require.NoError(t, detector.Start())

	m := &Monitor{model: model, detector: detector}
	m.Close()

	assert.True(t, model.closed.Load())
}
