package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/iudanet/meshsync/internal/config"
	"github.com/iudanet/meshsync/internal/identity"
	"github.com/iudanet/meshsync/internal/models"
	"github.com/iudanet/meshsync/internal/offline"
	"github.com/iudanet/meshsync/internal/registry"
	"github.com/iudanet/meshsync/internal/router"
	"github.com/iudanet/meshsync/internal/scheduler"
	"github.com/iudanet/meshsync/internal/server/handlers"
	"github.com/iudanet/meshsync/internal/server/middleware"
	"github.com/iudanet/meshsync/internal/store"
	"github.com/iudanet/meshsync/internal/store/sqlite"
	"github.com/iudanet/meshsync/internal/syncer"
	"github.com/iudanet/meshsync/internal/transport"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

const coordNodeID = "coordinator"

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	configPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "coordd: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	logger.Info("coordinator starting", "version", Version)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Каноническое хранилище сущностей
	entityStore, err := sqlite.New(ctx, cfg.Storage.SQLitePath)
	if err != nil {
		return fmt.Errorf("failed to open entity store: %w", err)
	}
	defer func() {
		if err := entityStore.Close(); err != nil {
			logger.Error("failed to close entity store", "error", err)
		}
	}()

	// Журнал оффлайн-операций
	opQueue, err := offline.New(ctx, cfg.Storage.BoltPath)
	if err != nil {
		return fmt.Errorf("failed to open offline queue: %w", err)
	}
	defer func() {
		if err := opQueue.Close(); err != nil {
			logger.Error("failed to close offline queue", "error", err)
		}
	}()

	ident, err := identity.NewService(cfg.Server.SigningSecret, cfg.Server.JoinSecret, cfg.Server.TokenTTL)
	if err != nil {
		return fmt.Errorf("failed to init identity service: %w", err)
	}

	reg := registry.New(registry.Config{
		MissDegraded:  cfg.Registry.MissDegraded,
		MissOffline:   cfg.Registry.MissOffline,
		OfflineTTL:    cfg.Registry.OfflineTTL,
		ProbeInterval: cfg.Registry.ProbeInterval,
		ProbeTimeout:  cfg.Registry.ProbeTimeout,
	}, logger)

	client := transport.NewClient(cfg.Scheduler.DispatchTimeout, 3, cfg.Scheduler.BackoffBase)

	sched := scheduler.New(scheduler.Config{
		QueueSize:       cfg.Scheduler.QueueSize,
		MaxRetries:      cfg.Scheduler.MaxRetries,
		BackoffBase:     cfg.Scheduler.BackoffBase,
		BackoffCap:      cfg.Scheduler.BackoffCap,
		MaxWait:         cfg.Scheduler.MaxWait,
		DispatchTimeout: cfg.Scheduler.DispatchTimeout,
	}, reg, transport.NewNodeDispatcher(client), logger)

	rtr := router.New(router.Config{
		HealthThreshold:  cfg.Router.HealthThreshold,
		BreakerThreshold: cfg.Router.BreakerThreshold,
		BreakerCooldown:  cfg.Router.BreakerCooldown,
	}, buildRoutes(cfg.Routes), reg, func(nodeID string) {
		if err := reg.MarkDegraded(nodeID); err != nil {
			logger.Warn("failed to degrade node", "node_id", nodeID, "error", err)
		}
	}, logger)

	// Возвращение узла в строй будит и планировщик, и drain
	syncSvc := syncer.New(opQueue, entityStore, coordNodeID, sched.Kick, logger)
	reg.OnTransition(syncSvc.OnNodeTransition)
	reg.OnTransition(func(nodeID string, from, to models.NodeStatus) {
		if to == models.NodeOnline {
			sched.Kick()
		}
	})

	monitor := registry.NewMonitor(reg, func(ctx context.Context, node models.Node) (time.Duration, error) {
		return client.Probe(ctx, node.Addr)
	}, logger)

	go monitor.Run(ctx)
	go sched.Run(ctx)
	go syncSvc.Run(ctx, cfg.Registry.ProbeInterval*4)

	httpSrv := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           buildHandler(cfg, logger, reg, ident, sched, rtr, opQueue, syncSvc, entityStore),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", cfg.Server.ListenAddr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown failed: %w", err)
	}

	logger.Info("coordinator stopped")
	return nil
}

func buildHandler(
	cfg *config.Config,
	logger *slog.Logger,
	reg *registry.Registry,
	ident *identity.Service,
	sched *scheduler.Scheduler,
	rtr *router.Router,
	opQueue *offline.Queue,
	syncSvc *syncer.Service,
	entityStore store.EntityStore,
) http.Handler {
	nodesH := handlers.NewNodesHandler(logger, reg, ident)
	tasksH := handlers.NewTasksHandler(logger, sched)
	routeH := handlers.NewRouteHandler(logger, rtr)
	opsH := handlers.NewOpsHandler(logger, opQueue, syncSvc)
	conflictsH := handlers.NewConflictsHandler(logger, entityStore)
	healthH := handlers.NewHealthHandler(logger, Version)

	auth := middleware.AuthMiddleware(logger, ident)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", healthH.Health)
	mux.HandleFunc("POST /api/v1/nodes/register", nodesH.Register)
	mux.Handle("POST /api/v1/nodes/heartbeat", auth(http.HandlerFunc(nodesH.Heartbeat)))
	mux.HandleFunc("GET /api/v1/health/nodes", nodesH.Snapshot)
	mux.HandleFunc("POST /api/v1/tasks", tasksH.Submit)
	mux.HandleFunc("GET /api/v1/tasks/{id}", tasksH.Status)
	mux.HandleFunc("DELETE /api/v1/tasks/{id}", tasksH.Cancel)
	mux.HandleFunc("GET /api/v1/route/{service}", routeH.Resolve)
	mux.Handle("POST /api/v1/ops", auth(http.HandlerFunc(opsH.Enqueue)))
	mux.HandleFunc("GET /api/v1/sync/status", opsH.DrainStatus)
	mux.HandleFunc("GET /api/v1/conflicts", conflictsH.List)

	var h http.Handler = mux
	h = middleware.RateLimitMiddleware(cfg.Server.RateLimit, cfg.Server.RateWindow, logger)(h)
	h = middleware.LoggingMiddleware(logger)(h)
	h = middleware.RecoveryMiddleware(logger)(h)
	return h
}

func buildRoutes(routes []config.RouteConfig) []models.Route {
	out := make([]models.Route, 0, len(routes))
	for _, rc := range routes {
		route := models.Route{
			Service: rc.Service,
			Policy:  models.PolicyTag(rc.DefaultPolicy),
		}
		for _, c := range rc.Candidates {
			route.Candidates = append(route.Candidates, models.Candidate{
				NodeID: c.NodeID,
				Addr:   c.Addr,
				Role:   models.NodeRole(c.Role),
			})
		}
		out = append(out, route)
	}
	return out
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

func printVersion() {
	fmt.Printf("MeshSync Coordinator\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
