// Package web provides the facepipe dashboard: session control, overlay
// toggles, stats, and websocket feeds for the camera stream, landmark
// results and session status.
package web

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-facepipe/pkg/capture"
	"github.com/teslashibe/go-facepipe/pkg/hub"
	"github.com/teslashibe/go-facepipe/pkg/render"
)

// Session is the capture session the dashboard controls.
type Session interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Stats() capture.Stats
	Toggles() *render.Toggles
}

// Options configure a Server.
type Options struct {
	Port      string
	StaticDir string // served at / when set
	Session   Session

	// Hubs the pipeline publishes into. Nil hubs are created.
	Camera  *hub.Hub
	Results *hub.Hub
	Status  *hub.Hub

	// StatusInterval is how often session status is pushed to /ws/status.
	StatusInterval time.Duration

	// StopTimeout bounds POST /api/session/stop.
	StopTimeout time.Duration

	Logger *slog.Logger
}

// Status is the dashboard's view of the session.
type Status struct {
	State    string             `json:"state"`
	ID       string             `json:"id,omitempty"`
	Overlays render.ToggleState `json:"overlays"`
	Viewers  Viewers            `json:"viewers"`
	Stats    capture.Stats      `json:"stats"`
}

// Viewers counts websocket subscribers per feed.
type Viewers struct {
	Camera  int `json:"camera"`
	Results int `json:"results"`
	Status  int `json:"status"`
}

// Server is the dashboard server
type Server struct {
	app    *fiber.App
	opts   Options
	logger *slog.Logger

	// Hubs for websocket broadcast
	cameraHub  *hub.Hub
	resultsHub *hub.Hub
	statusHub  *hub.Hub

	// Context that owns session runs started from the API.
	mu      sync.Mutex
	baseCtx context.Context
}

// NewServer creates the dashboard server.
func NewServer(opts Options) (*Server, error) {
	if opts.Session == nil {
		return nil, errors.New("web: session required")
	}
	if opts.Port == "" {
		opts.Port = "8080"
	}
	if opts.StatusInterval <= 0 {
		opts.StatusInterval = time.Second
	}
	if opts.StopTimeout <= 0 {
		opts.StopTimeout = 5 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Camera == nil {
		opts.Camera = hub.New("camera", opts.Logger)
	}
	if opts.Results == nil {
		opts.Results = hub.New("results", opts.Logger)
	}
	if opts.Status == nil {
		opts.Status = hub.New("status", opts.Logger)
	}

	s := &Server{
		opts:       opts,
		logger:     opts.Logger.With("component", "web"),
		cameraHub:  opts.Camera,
		resultsHub: opts.Results,
		statusHub:  opts.Status,
		baseCtx:    context.Background(),
	}

	app := fiber.New(fiber.Config{
		AppName:               "facepipe",
		DisableStartupMessage: true,
	})

	// CORS for local development
	app.Use(cors.New())

	if opts.StaticDir != "" {
		app.Static("/", opts.StaticDir)
	}

	// API routes
	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/stats", s.handleStats)
	api.Get("/overlays", s.handleGetOverlays)
	api.Post("/overlays", s.handleSetOverlays)
	api.Post("/session/start", s.handleStartSession)
	api.Post("/session/stop", s.handleStopSession)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/camera", websocket.New(s.subscribe(s.cameraHub)))
	app.Get("/ws/results", websocket.New(s.subscribe(s.resultsHub)))
	app.Get("/ws/status", websocket.New(s.subscribe(s.statusHub)))

	s.app = app
	return s, nil
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App { return s.app }

// CameraHub returns the hub that carries JPEG frames.
func (s *Server) CameraHub() *hub.Hub { return s.cameraHub }

// ResultsHub returns the hub that carries landmark results.
func (s *Server) ResultsHub() *hub.Hub { return s.resultsHub }

// StatusHub returns the hub that carries session status.
func (s *Server) StatusHub() *hub.Hub { return s.statusHub }

// Start runs the hubs and the status ticker, then serves until ctx is done
// or the listener fails. Sessions started from the API inherit ctx.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	s.baseCtx = ctx
	s.mu.Unlock()

	s.RunHubs(ctx)
	go s.statusLoop(ctx)

	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.app.ShutdownWithContext(sctx); err != nil {
			s.logger.Warn("shutdown failed", "error", err)
		}
	}()

	s.logger.Info("dashboard listening", "url", "http://localhost:"+s.opts.Port)
	return s.app.Listen(":" + s.opts.Port)
}

// RunHubs starts the three hubs on ctx. Start calls it; tests that drive
// the app without a listener call it directly.
func (s *Server) RunHubs(ctx context.Context) {
	for _, h := range []*hub.Hub{s.cameraHub, s.resultsHub, s.statusHub} {
		if !h.IsRunning() {
			go h.Run(ctx)
		}
	}
}

// Shutdown gracefully stops the web server
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// Status returns the current dashboard status.
func (s *Server) Status() Status {
	st := s.opts.Session.Stats()
	return Status{
		State:    st.State,
		ID:       st.ID,
		Overlays: s.opts.Session.Toggles().State(),
		Viewers: Viewers{
			Camera:  s.cameraHub.ClientCount(),
			Results: s.resultsHub.ClientCount(),
			Status:  s.statusHub.ClientCount(),
		},
		Stats: st,
	}
}

// PublishStatus pushes the current status to /ws/status subscribers.
func (s *Server) PublishStatus() {
	if err := s.statusHub.BroadcastJSON(s.Status()); err != nil {
		s.logger.Debug("status broadcast dropped", "error", err)
	}
}

func (s *Server) statusLoop(ctx context.Context) {
	ticker := time.NewTicker(s.opts.StatusInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.statusHub.ClientCount() > 0 {
				s.PublishStatus()
			}
		}
	}
}

func (s *Server) base() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.baseCtx
}
