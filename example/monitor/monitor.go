/*
Example monitor program that finds the bonder camera, detects the bonder tip
and gold reel in the background and tracks both on every frame.  The
annotated preview is shown in a window and optionally streamed over HTTP and
published to NATS.
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/wirebond/bondtrack"
	"github.com/wirebond/bondtrack/internal/camera"
	"github.com/wirebond/bondtrack/internal/config"
	"github.com/wirebond/bondtrack/internal/feed"
	"github.com/wirebond/bondtrack/internal/log"
	"github.com/wirebond/bondtrack/internal/telemetry"
	"github.com/wirebond/bondtrack/render"
	"github.com/wirebond/bondtrack/tracker"
	"gocv.io/x/gocv"
)

// Monitor holds the resources that live across camera sessions
type Monitor struct {
	cfg       *config.Config
	window    *gocv.Window
	screen    render.Screen
	model     bondtrack.Model
	detector  *bondtrack.Detector
	feed      *feed.Server
	telemetry *telemetry.Publisher
	font      render.Font
	status    render.Font
	style     render.TrailStyle
}

// NewMonitor creates the monitor, the model is not loaded until Run
func NewMonitor(cfg *config.Config) (*Monitor, error) {

	m := &Monitor{
		cfg:    cfg,
		screen: render.NewScreen(cfg.Display.Width, cfg.Display.Height),
		font:   render.DefaultFont(),
		status: render.StatusFont(),
		style:  render.DefaultTrailStyle(),
	}

	if cfg.Display.FontFile != "" {
		face, err := render.LoadFace(cfg.Display.FontFile, 28)

		if err != nil {
			return nil, err
		}

		m.screen.Face = face
	}

	if cfg.Display.Enabled {
		m.window = gocv.NewWindow(cfg.Display.Title)
		m.window.ResizeWindow(cfg.Display.Width, cfg.Display.Height)
	}

	if cfg.Feed.Addr != "" {
		m.feed = feed.NewServer(cfg.Feed.Addr, uuid.NewString(), cfg.Feed.JPEGQuality)

		if err := m.feed.Start(); err != nil {
			m.Close()
			return nil, err
		}
	}

	if cfg.Telemetry.URL != "" {
		m.telemetry = telemetry.NewPublisher(cfg.Telemetry.Subject, cfg.Telemetry.Interval)

		// telemetry is optional, the monitor runs without it
		if err := m.telemetry.Connect(cfg.Telemetry.URL, cfg.Display.Title); err != nil {
			log.Warn("telemetry disabled", "error", err)
		}
	}

	return m, nil
}

// Close releases every resource of the monitor
func (m *Monitor) Close() {

	m.closeDetector()

	if m.telemetry != nil {
		m.telemetry.Close()
	}

	if m.feed != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		m.feed.Shutdown(ctx)
	}

	if m.window != nil {
		m.window.Close()
	}
}

// closeDetector stops the detector and closes the model.  When the worker
// is still inside an inference the model is closed once the worker exits.
func (m *Monitor) closeDetector() {

	if m.detector == nil {
		if m.model != nil {
			m.model.Close()
		}

		return
	}

	err := m.detector.Close()

	if err == nil {
		m.model.Close()
		return
	}

	log.Warn("detector did not stop cleanly", "error", err)

	if !errors.Is(err, bondtrack.ErrStopTimeout) {
		m.model.Close()
		return
	}

	model, done := m.model, m.detector.Done()

	go func() {
		<-done
		model.Close()
		log.Debug("model closed after detector worker exited")
	}()
}

// Run loads the model then alternates between camera discovery and
// preview sessions until the operator quits or ctx is cancelled
func (m *Monitor) Run(ctx context.Context) error {

	for m.detector == nil {
		m.show("Loading model", m.cfg.Model.Path)

		err := m.loadModel()

		if err == nil {
			break
		}

		log.Error("model load failed", "error", err)

		if m.prompt(ctx, "Model failed to load", "r to retry, q to quit") == actionQuit {
			return err
		}
	}

	for ctx.Err() == nil {

		m.show("Searching for camera", "please wait")

		cam, err := camera.Find(m.cfg.Camera.MaxIndex, m.cfg.Camera.Width,
			m.cfg.Camera.Height, m.cfg.Camera.FPS)

		if err != nil {
			log.Warn("no camera", "error", err)

			if m.prompt(ctx, "No camera found", "r to retry, q to quit") == actionQuit {
				return nil
			}

			continue
		}

		act, err := m.session(ctx, cam)
		cam.Close()

		if err != nil {
			log.Warn("camera session ended", "error", err)

			if m.prompt(ctx, "Camera disconnected", "r to retry, q to quit") == actionQuit {
				return nil
			}

			continue
		}

		if act == actionQuit {
			return nil
		}
	}

	return nil
}

// loadModel loads the labels and model and starts the detector
func (m *Monitor) loadModel() error {

	labels, err := bondtrack.LoadLabels(m.cfg.Model.Labels)

	if err != nil {
		return fmt.Errorf("%w: %w", bondtrack.ErrModelLoad, err)
	}

	resolver, err := bondtrack.ResolveTargets(labels, m.cfg.TargetNames())

	if err != nil {
		return err
	}

	for _, kind := range resolver.Missing() {
		log.Warn("model has no class for target", "target", kind)
	}

	model, err := bondtrack.NewNetModel(m.cfg.Model.Path, labels, m.cfg.YOLOParams())

	if err != nil {
		return err
	}

	detector := bondtrack.NewDetector(model, resolver, m.cfg.DetectorOptions())

	if err := detector.Start(); err != nil {
		model.Close()
		return err
	}

	m.model = model
	m.detector = detector

	log.Info("model loaded", "path", m.cfg.Model.Path, "classes", len(labels))
	return nil
}

// session runs the preview on cam until the operator quits or goes back,
// or the camera fails
func (m *Monitor) session(ctx context.Context, cam *camera.Camera) (action, error) {

	sessionID := uuid.NewString()
	logger := log.With("session", sessionID, "camera", cam.Index())

	w, h := cam.Size()
	logger.Info("session started", "width", w, "height", h)

	manager := tracker.NewManager(m.cfg.ManagerOptions())
	defer manager.Close()

	// ignore what the detector found in the previous session
	manager.SkipTo(m.detector.Poll().Seq)

	canvas := render.NewCanvas(m.cfg.Display.Width, m.cfg.Display.Height, render.ScreenBackground)
	defer canvas.Close()

	throttle := bondtrack.NewThrottle(m.cfg.Detect.Interval)

	if m.telemetry != nil {
		m.telemetry.Reset()
	}

	frame := gocv.NewMat()
	defer frame.Close()

	annotated := gocv.NewMat()
	defer annotated.Close()

	startTime := time.Now()
	frameCount := 0
	fps := 0.0
	var total uint64

	defer func() {
		logger.Info("session ended", "frames", total, "stats", m.detector.Stats())
	}()

	for {
		if ctx.Err() != nil {
			return actionQuit, nil
		}

		if err := cam.Read(&frame); err != nil {
			return actionNone, err
		}

		if throttle.Allow() {
			m.detector.Submit(frame)
		}

		set := m.detector.Poll()
		snap := manager.Update(frame, set)

		frame.CopyTo(&annotated)
		m.annotate(&annotated, snap, manager.Trail(), set, fps)

		m.publish(sessionID, snap, annotated)

		// calculate FPS
		total++
		frameCount++
		elapsed := time.Since(startTime).Seconds()

		if elapsed >= 1.0 {
			fps = float64(frameCount) / elapsed
			frameCount = 0
			startTime = time.Now()
		}

		if m.window == nil {
			continue
		}

		m.window.IMShow(canvas.Fit(annotated))

		switch keyAction(m.window.WaitKey(1)) {
		case actionQuit:
			return actionQuit, nil
		case actionBack:
			logger.Info("operator returned to camera search")
			return actionBack, nil
		}
	}
}

// annotate draws the target boxes, trails and status onto img
func (m *Monitor) annotate(img *gocv.Mat, snap tracker.Snapshot, trail *tracker.Trail,
	set bondtrack.DetectionSet, fps float64) {

	if m.cfg.Display.ShowDetections {
		render.Detections(img, set, m.font)
	}

	render.Trail(img, snap, trail, m.style)
	render.Targets(img, snap, m.font, 2)

	if !snap.AnyOK() {
		render.Badge(img, render.WaitingText, render.Red, m.status)
	}

	render.StatusLine(img, render.StatsText(fps, m.detector.Stats()), m.status)
}

// publish sends the snapshot to the feed and telemetry when enabled
func (m *Monitor) publish(sessionID string, snap tracker.Snapshot, img gocv.Mat) {

	if m.feed == nil && m.telemetry == nil {
		return
	}

	msg := feed.NewMessage(sessionID, snap, time.Now())

	if m.feed != nil {
		m.feed.Publish(msg)

		if err := m.feed.Stream().Publish(img); err != nil {
			log.Debug("mjpeg publish failed", "error", err)
		}
	}

	if m.telemetry != nil {
		if err := m.telemetry.Publish(msg); err != nil {
			log.Debug("telemetry publish failed", "error", err)
		}
	}
}

// show draws a status screen in the window
func (m *Monitor) show(title, subtitle string) {

	log.Info(title, "detail", subtitle)

	if m.window == nil {
		return
	}

	img, err := m.screen.Mat(title, subtitle)

	if err != nil {
		log.Warn("error rendering screen", "error", err)
		return
	}

	defer img.Close()

	m.window.IMShow(img)
	m.window.WaitKey(1)
}

// prompt shows an error screen and waits for retry or quit.  Without a
// window it waits for the configured retry delay instead.
func (m *Monitor) prompt(ctx context.Context, title, subtitle string) action {

	if m.window == nil {
		log.Info(title, "retry", m.cfg.Camera.Retry)

		select {
		case <-ctx.Done():
			return actionQuit
		case <-time.After(m.cfg.Camera.Retry):
			return actionRetry
		}
	}

	m.show(title, subtitle)

	for ctx.Err() == nil {
		switch keyAction(m.window.WaitKey(100)) {
		case actionQuit:
			return actionQuit
		case actionRetry:
			return actionRetry
		}
	}

	return actionQuit
}

func main() {
	configFile := flag.String("c", "", "YAML config file, defaults are used when empty")
	modelFile := flag.String("m", "", "ONNX YOLOv8 model file, overrides model.path")
	labelFile := flag.String("l", "", "Text file containing model labels, overrides model.labels")
	httpAddr := flag.String("a", "", "HTTP address for the MJPEG and websocket feed, format address:port")
	natsURL := flag.String("n", "", "NATS server URL for telemetry")
	logLevel := flag.String("log", "", "Log level [debug|info|warn|error]")
	headless := flag.Bool("headless", false, "Run without the preview window")

	flag.Parse()

	cfg := config.Default()

	if *configFile != "" {
		var err error
		cfg, err = config.Load(*configFile)

		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
	}

	if *modelFile != "" {
		cfg.Model.Path = *modelFile
	}

	if *labelFile != "" {
		cfg.Model.Labels = *labelFile
	}

	if *httpAddr != "" {
		cfg.Feed.Addr = *httpAddr
	}

	if *natsURL != "" {
		cfg.Telemetry.URL = *natsURL
	}

	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}

	if *headless {
		cfg.Display.Enabled = false
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log.Init(cfg.Log.Level)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	monitor, err := NewMonitor(cfg)

	if err != nil {
		log.Error("error creating monitor", "error", err)
		os.Exit(1)
	}

	if cfg.Feed.Addr != "" {
		log.Info("open browser to view the feed", "url", fmt.Sprintf("http://%s/", cfg.Feed.Addr))
	}

	err = monitor.Run(ctx)
	monitor.Close()

	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error("monitor stopped", "error", err)
		os.Exit(1)
	}
}
