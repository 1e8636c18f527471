// Package api implements the engine's minimal HTTP/WebSocket surface:
// start/stop/status/candles/symbols plus a streaming subscriber feed.
// Grounded on the teacher's internal/api/server.go for the gin router,
// CORS, and route-grouping style, trimmed to the handful of endpoints
// spec.md §6 names -- this engine is analysis-only and carries none of
// the teacher's trading/billing/auth route surface.
package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"marketanalysis/internal/analyzer/registry"
	"marketanalysis/internal/bridge"
	"marketanalysis/internal/bus"
	"marketanalysis/internal/candle"
	"marketanalysis/internal/catalog"
	"marketanalysis/internal/config"
	"marketanalysis/internal/distcache"
	"marketanalysis/internal/engine"
	"marketanalysis/internal/logging"
	"marketanalysis/internal/marketcache"
	"marketanalysis/internal/session"
)

// Server is the HTTP/WebSocket front end over a single, restartable
// analysis Engine.
type Server struct {
	router     *gin.Engine
	httpServer *http.Server

	cfg      config.Config
	bridge   bridge.Bridge
	cache    *marketcache.Cache
	registry *registry.Registry
	monitor  *session.Monitor
	bus      *bus.Bus
	mirror   *distcache.Mirror
	logger   logging.Logger

	mu           sync.Mutex
	current      *engine.Engine
	engineCancel context.CancelFunc
}

// Deps bundles the wiring NewServer needs; every field mirrors a
// component cmd/engine constructs at startup.
type Deps struct {
	Config   config.Config
	Bridge   bridge.Bridge
	Cache    *marketcache.Cache
	Registry *registry.Registry
	Monitor  *session.Monitor
	Bus      *bus.Bus
	Mirror   *distcache.Mirror
	Logger   logging.Logger
}

// NewServer constructs a Server and registers its routes.
func NewServer(deps Deps) *Server {
	if deps.Config.Server.Addr == "" {
		deps.Config.Server.Addr = ":8080"
	}
	if deps.Config.AnalysisOnlyMode {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowAllOrigins = true
	corsCfg.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsCfg.AllowHeaders = []string{"Origin", "Content-Type"}
	router.Use(cors.New(corsCfg))

	s := &Server{
		router:   router,
		cfg:      deps.Config,
		bridge:   deps.Bridge,
		cache:    deps.Cache,
		registry: deps.Registry,
		monitor:  deps.Monitor,
		bus:      deps.Bus,
		mirror:   deps.Mirror,
		logger:   deps.Logger.WithComponent("api"),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)
	s.router.POST("/start", s.handleStart)
	s.router.POST("/stop", s.handleStop)
	s.router.GET("/status", s.handleStatus)
	s.router.GET("/candles", s.handleCandles)
	s.router.GET("/symbols", s.handleSymbols)
	s.router.GET("/ws", s.handleWebSocket)
}

// Handler exposes the underlying router for tests that drive requests
// through httptest without opening a real listener.
func (s *Server) Handler() http.Handler { return s.router }

// Run starts the HTTP server and blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:    s.cfg.Server.Addr,
		Handler: s.router,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", s.cfg.Server.Addr).Info("api server listening")
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type startRequest struct {
	Symbol       string `json:"symbol" binding:"required"`
	Timeframe    string `json:"timeframe" binding:"required"`
	HistoryDays  int    `json:"history_days"`
	PollInterval int    `json:"poll_interval"`
}

func (s *Server) handleStart(c *gin.Context) {
	var req startRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tf := candle.Timeframe(req.Timeframe)
	if !tf.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid timeframe %q", req.Timeframe)})
		return
	}

	pollInterval := time.Duration(req.PollInterval) * time.Second
	if req.PollInterval <= 0 {
		pollInterval = time.Duration(s.cfg.PollIntervalSecs) * time.Second
	}

	params := engine.Params{
		Symbol:        req.Symbol,
		Timeframes:    []candle.Timeframe{tf},
		HistoryDays:   req.HistoryDays,
		PollInterval:  pollInterval,
		MinConfidence: s.cfg.MinConfidenceThreshold,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil {
		s.engineCancel()
		s.current.Stop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.engineCancel = cancel
	s.current = engine.New(params, s.bridge, s.cache, s.registry, s.monitor, s.onUpdate, s.logger)
	s.current.Start(ctx)

	c.JSON(http.StatusOK, gin.H{"status": "started"})
}

func (s *Server) handleStop(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		c.JSON(http.StatusOK, gin.H{"status": "stopped"})
		return
	}
	s.engineCancel()
	s.current.Stop()
	s.current = nil
	c.JSON(http.StatusOK, gin.H{"status": "stopped"})
}

func (s *Server) handleStatus(c *gin.Context) {
	s.mu.Lock()
	running := s.current != nil && s.current.State() == engine.Running
	s.mu.Unlock()

	connected := false
	if s.monitor != nil {
		connected = s.monitor.CurrentSnapshot() != nil
	}

	c.JSON(http.StatusOK, gin.H{"running": running, "connected": connected})
}

func (s *Server) handleCandles(c *gin.Context) {
	symbol := c.Query("symbol")
	tf := candle.Timeframe(c.Query("timeframe"))
	count, _ := strconv.Atoi(c.Query("count"))
	if symbol == "" || !tf.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol and a valid timeframe are required"})
		return
	}
	if count <= 0 {
		count = 200
	}

	w, err := s.cache.GetCandles(c.Request.Context(), symbol, tf, count, false)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	out := make([]gin.H, w.Len())
	for i, bar := range w.Candles {
		out[i] = gin.H{
			"timestamp": bar.Timestamp,
			"open":      bar.Open,
			"high":      bar.High,
			"low":       bar.Low,
			"close":     bar.Close,
			"volume":    bar.TickVolume,
		}
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleSymbols(c *gin.Context) {
	refs, err := s.bridge.SymbolsList(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	out := make([]gin.H, len(refs))
	for i, r := range refs {
		out[i] = gin.H{
			"name":     r.Name,
			"path":     r.Path,
			"visible":  r.Visible,
			"category": catalog.Classify(r.Name).String(),
		}
	}
	c.JSON(http.StatusOK, out)
}

// onUpdate is the Engine's broadcast callback: publish on the live bus and
// best-effort mirror to Redis.
func (s *Server) onUpdate(update bus.ConfluenceUpdate) {
	s.bus.Publish(bus.Message{Kind: bus.KindConfluenceUpdate, Payload: &update})
	if s.mirror != nil && s.mirror.Enabled() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := s.mirror.Publish(ctx, update); err != nil {
			s.logger.WithError(err).Warn("distcache mirror publish failed")
		}
	}
}
