// facepipe - live face landmark and head pose pipeline
// Captures the camera, tracks face regions from the detector stream and
// extracts landmarks for the newest frame, reporting results to stdout and
// the dashboard.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/teslashibe/go-facepipe/internal/config"
	"github.com/teslashibe/go-facepipe/internal/log"
	"github.com/teslashibe/go-facepipe/pkg/capture"
	"github.com/teslashibe/go-facepipe/pkg/debug"
	"github.com/teslashibe/go-facepipe/pkg/hub"
	"github.com/teslashibe/go-facepipe/pkg/landmark"
	"github.com/teslashibe/go-facepipe/pkg/pipeline"
	"github.com/teslashibe/go-facepipe/pkg/render"
	"github.com/teslashibe/go-facepipe/pkg/report"
	"github.com/teslashibe/go-facepipe/pkg/web"
)

// options is everything main needs from flags and the environment.
type options struct {
	Capture   capture.Config
	Pipeline  pipeline.Config
	Extractor string
	Socket    string
	Port      string
	StaticDir string
	Parts     bool
	Angles    bool
	Stream    render.StreamConfig
	NoStart   bool
	LogLevel  string
}

func main() {
	opts := parseFlags()
	log.Init(opts.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, opts, log.L()); err != nil {
		log.Error("facepipe failed", "error", err)
		os.Exit(1)
	}
}

// parseFlags parses command line flags and returns configuration.
func parseFlags() options {
	opts := options{
		Capture:  capture.DefaultConfig(),
		Pipeline: pipeline.DefaultConfig(),
		Stream:   render.DefaultStreamConfig(),
	}

	debugFlag := flag.Bool("debug", false, "Enable verbose debug logging")
	debugPipeline := flag.Bool("debug-pipeline", false, "Trace every frame, snapshot and extraction")
	camera := flag.Int("camera", -1, "Camera device index (overrides FACEPIPE_CAMERA)")
	preset := flag.String("preset", opts.Capture.Preset, fmt.Sprintf("Capture preset: %v", capture.PresetNames()))
	orientation := flag.String("orientation", opts.Capture.Orientation, "portrait, portrait-upside-down, landscape-right, landscape-left")
	keepLate := flag.Bool("keep-late-frames", false, "Block capture instead of discarding frames when delivery falls behind")
	model := flag.String("model", "", "YuNet ONNX model (overrides FACEPIPE_YUNET_MODEL)")
	interval := flag.Duration("detect-interval", opts.Capture.DetectionInterval, "Face metadata interval")
	extractor := flag.String("extractor", "socket", "Landmark extractor: socket, mock")
	socket := flag.String("socket", "", "Landmark service socket (overrides FACEPIPE_LANDMARK_SOCKET)")
	timeout := flag.Duration("extract-timeout", opts.Pipeline.ExtractTimeout, "Per-extraction timeout")
	port := flag.String("port", "", "Dashboard port (overrides FACEPIPE_PORT)")
	static := flag.String("static", "", "Directory served at / by the dashboard")
	parts := flag.Bool("parts", true, "Draw landmarks on the camera stream")
	angles := flag.Bool("angles", true, "Draw head pose on the camera stream")
	quality := flag.Int("jpeg-quality", opts.Stream.Quality, "Camera stream JPEG quality")
	fps := flag.Int("stream-fps", opts.Stream.MaxFPS, "Camera stream frame rate cap")
	noStart := flag.Bool("no-start", false, "Wait for POST /api/session/start instead of capturing immediately")
	flag.Parse()

	debug.Enabled, debug.Pipeline = *debugFlag, *debugPipeline
	opts.LogLevel = config.LogLevel(config.DefaultLogLevel)
	if *debugFlag {
		opts.LogLevel = "debug"
	}

	opts.Capture.Preset = *preset
	opts.Capture.Orientation = *orientation
	opts.Capture.DiscardLateFrames = !*keepLate
	opts.Capture.DetectionInterval = *interval
	opts.Pipeline.ExtractTimeout = *timeout
	opts.Extractor = *extractor
	opts.StaticDir = *static
	opts.Parts, opts.Angles = *parts, *angles
	opts.Stream.Quality, opts.Stream.MaxFPS = *quality, *fps
	opts.NoStart = *noStart

	// Environment variables
	opts.Capture.DeviceIndex = config.CameraIndex(config.DefaultCameraIndex)
	if *camera >= 0 {
		opts.Capture.DeviceIndex = *camera
	}
	opts.Capture.ModelPath = config.ModelPath(config.DefaultYuNetModel)
	if *model != "" {
		opts.Capture.ModelPath = *model
	}
	opts.Socket = config.LandmarkSocket(config.DefaultLandmarkSocket)
	if *socket != "" {
		opts.Socket = *socket
	}
	opts.Port = config.Port(config.DefaultPort)
	if *port != "" {
		opts.Port = *port
	}
	return opts
}

func run(ctx context.Context, opts options, logger *slog.Logger) error {
	if errs := opts.Pipeline.Validate(); len(errs) > 0 {
		return fmt.Errorf("pipeline config: %v", errs)
	}

	var ext landmark.Extractor
	switch opts.Extractor {
	case "socket":
		ext = landmark.NewSocketExtractor(opts.Socket, landmark.DefaultSocketTimeout, logger)
	case "mock":
		ext = landmark.NewMock()
	default:
		return fmt.Errorf("unknown extractor %q", opts.Extractor)
	}

	cameraHub := hub.New("camera", logger)
	resultsHub := hub.New("results", logger)

	toggles := render.NewToggles(opts.Parts, opts.Angles)
	session, err := capture.NewSession(capture.Options{
		Config:     opts.Capture,
		Pipeline:   opts.Pipeline,
		Discoverer: capture.CVDiscoverer{Logger: logger}.At(opts.Capture.DeviceIndex),
		Extractor:  ext,
		Reporter: report.Multi{
			report.NewLogReporter(os.Stdout),
			report.NewHubReporter(resultsHub),
		},
		Renderer: render.NewStreamRenderer(cameraHub, opts.Stream, logger),
		Toggles:  toggles,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	server, err := web.NewServer(web.Options{
		Port:      opts.Port,
		StaticDir: opts.StaticDir,
		Session:   session,
		Camera:    cameraHub,
		Results:   resultsHub,
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	serveErr := make(chan error, 1)
	go func() { serveErr <- server.Start(ctx) }()

	if !opts.NoStart {
		if err := session.Start(ctx); err != nil {
			var cerr *capture.ConfigurationError
			switch {
			case errors.Is(err, capture.ErrDeviceUnavailable):
				logger.Error("no camera available; start from the dashboard once connected", "error", err)
			case errors.As(err, &cerr):
				logger.Error("capture configuration failed", "stage", cerr.Stage, "error", cerr.Err)
			default:
				return err
			}
		}
	}

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			logger.Error("dashboard stopped", "error", err)
		}
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := session.Stop(stopCtx); err != nil {
		return fmt.Errorf("stop session: %w", err)
	}
	logger.Info("facepipe stopped")
	return nil
}
