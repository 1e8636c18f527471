// Command engine is the analysis engine's process entrypoint: it wires
// configuration, logging, the terminal bridge (optionally Vault-backed),
// the market-data cache, the session monitor, the subscriber bus, the
// optional Redis mirror, and the HTTP/WebSocket surface, then blocks until
// an interrupt signal triggers a graceful shutdown.
//
// Grounded on the teacher's main.go for overall shape (config.Load ->
// logging init -> component construction -> signal.Notify -> graceful
// shutdown), trimmed to the handful of components SPEC_FULL.md names --
// no database, no event notifiers, no risk/autopilot/billing wiring.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"marketanalysis/internal/analyzer/candlestick"
	"marketanalysis/internal/analyzer/chart"
	"marketanalysis/internal/analyzer/forex"
	"marketanalysis/internal/analyzer/general"
	"marketanalysis/internal/analyzer/registry"
	"marketanalysis/internal/analyzer/structural"
	"marketanalysis/internal/analyzer/synthetic"
	"marketanalysis/internal/api"
	"marketanalysis/internal/bridge"
	"marketanalysis/internal/bus"
	"marketanalysis/internal/config"
	"marketanalysis/internal/distcache"
	"marketanalysis/internal/logging"
	"marketanalysis/internal/marketcache"
	"marketanalysis/internal/session"
	"marketanalysis/internal/vaultsecrets"
)

func main() {
	cfgPath := os.Getenv("ENGINE_CONFIG_PATH")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := logging.New(os.Stdout)
	logging.SetDefault(logger)
	logger.Info("configuration loaded")

	br, err := buildBridge(cfg, logger)
	if err != nil {
		log.Fatalf("failed to build terminal bridge: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Bridge.Timeout)
	if _, err := br.Initialize(ctx); err != nil {
		logger.WithError(err).Warn("bridge initialize failed; continuing in degraded mode")
	}
	cancel()

	cache := marketcache.New(br)
	reg := buildRegistry()
	eventBus := bus.New()

	monitor := session.New(br, func(ev session.Event) {
		logger.WithField("kind", "session_event").Info("session event")
		if ev.Kind == session.AccountChanged {
			eventBus.Publish(bus.Message{
				Kind:    bus.KindSessionChanged,
				Payload: &bus.SessionChanged{OldAccount: ev.Old, NewAccount: ev.New},
			})
		}
	})
	monitor.PollInterval = time.Duration(cfg.SessionPollSecs) * time.Second
	go monitor.Run(context.Background())

	mirror := distcache.New(cfg.Redis)

	server := api.NewServer(api.Deps{
		Config:   cfg,
		Bridge:   br,
		Cache:    cache,
		Registry: reg,
		Monitor:  monitor,
		Bus:      eventBus,
		Mirror:   mirror,
		Logger:   logger,
	})

	runCtx, runCancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Run(runCtx)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.WithField("signal", sig.String()).Info("shutting down")
	case err := <-errCh:
		if err != nil {
			logger.WithError(err).Error("api server exited unexpectedly")
		}
	}

	runCancel()
	_ = mirror.Close()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := br.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("bridge shutdown reported an error")
	}

	logger.Info("shutdown complete")
}

// buildBridge selects between the HTTP-shaped bridge adapter and the
// in-memory mock based on BridgeConfig.Address, optionally retrieving
// connection credentials from Vault first.
func buildBridge(cfg config.Config, logger logging.Logger) (bridge.Bridge, error) {
	if cfg.Vault.Enabled {
		vc, err := vaultsecrets.New(cfg.Vault)
		if err != nil {
			return nil, err
		}
		if _, err := vc.Get(context.Background(), "bridge"); err != nil {
			logger.WithError(err).Warn("vault credential lookup failed; bridge will use local config only")
		}
	}

	if cfg.Bridge.Address == "" {
		logger.Warn("bridge.address not set; running against the in-memory mock bridge")
		return bridge.NewMock(), nil
	}
	return bridge.NewHTTPBridge(cfg.Bridge.Address, cfg.Bridge.Timeout), nil
}

func buildRegistry() *registry.Registry {
	return &registry.Registry{
		Forex:       registry.Group{Name: "forex", Analyzers: forex.Analyzers()},
		Synthetic:   registry.Group{Name: "synthetic", Analyzers: synthetic.Analyzers()},
		General:     registry.Group{Name: "general", Analyzers: general.Analyzers()},
		Candlestick: registry.Group{Name: "candlestick", Analyzers: candlestick.Analyzers()},
		Chart:       registry.Group{Name: "chart", Analyzers: chart.Analyzers()},
		Structural:  registry.Group{Name: "structural", Analyzers: structural.Analyzers()},
	}
}
