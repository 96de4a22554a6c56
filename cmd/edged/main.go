package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/iudanet/meshsync/internal/config"
	"github.com/iudanet/meshsync/internal/crdt"
	"github.com/iudanet/meshsync/internal/offline"
	"github.com/iudanet/meshsync/internal/server/middleware"
	"github.com/iudanet/meshsync/internal/transport"
	"github.com/iudanet/meshsync/pkg/api"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	configPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "edged: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.Node.ID == "" {
		return fmt.Errorf("node.id is required")
	}
	if cfg.Node.Coordinator == "" {
		return fmt.Errorf("node.coordinator is required")
	}

	logger := newLogger(cfg.LogLevel).With("node_id", cfg.Node.ID)
	logger.Info("edge agent starting", "version", Version)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Локальный журнал операций: захват продолжается и без связи
	localQueue, err := offline.New(ctx, cfg.Storage.BoltPath)
	if err != nil {
		return fmt.Errorf("failed to open local queue: %w", err)
	}
	defer func() {
		if err := localQueue.Close(); err != nil {
			logger.Error("failed to close local queue", "error", err)
		}
	}()

	client := transport.NewClient(cfg.Registry.ProbeTimeout*5, 3, 500*time.Millisecond)

	agent := &agent{
		cfg:    cfg,
		client: client,
		queue:  localQueue,
		clock:  crdt.NewLamportClockWithNodeID(cfg.Node.ID),
		logger: logger,
	}

	// После рестарта часы догоняют метки непримененного хвоста журнала,
	// иначе новые захваты получат уже выданные timestamp
	if err := agent.restoreClock(ctx); err != nil {
		return fmt.Errorf("failed to restore lamport clock: %w", err)
	}

	// Регистрация ретраится до успеха: координатор может стартовать позже
	if err := agent.register(ctx); err != nil {
		return fmt.Errorf("failed to register: %w", err)
	}

	go agent.heartbeatLoop(ctx)
	go agent.flushLoop(ctx)

	httpSrv := &http.Server{
		Addr:              cfg.Node.Addr,
		Handler:           agent.buildHandler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("edge http server listening", "addr", cfg.Node.Addr)
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

	logger.Info("edge agent stopped")
	return nil
}

// agent связывает локальный журнал, транспорт и heartbeat с координатором.
type agent struct {
	cfg    *config.Config
	client *transport.Client
	queue  *offline.Queue
	clock  *crdt.LamportClock
	logger *slog.Logger
	token  string
}

// restoreClock продвигает Lamport часы по LWW-меткам непримененных
// операций журнала.
func (a *agent) restoreClock(ctx context.Context) error {
	pending, err := a.queue.Pending(ctx, a.cfg.Node.ID)
	if err != nil {
		return err
	}
	for _, op := range pending {
		for _, f := range op.Delta {
			if f.Kind == crdt.FieldLWW {
				a.clock.Update(f.Stamp)
			}
		}
	}
	return nil
}

func (a *agent) register(ctx context.Context) error {
	req := api.RegisterNodeRequest{
		Node: api.NodeInfo{
			ID:             a.cfg.Node.ID,
			Role:           a.cfg.Node.Role,
			Addr:           a.cfg.Node.Addr,
			Capabilities:   a.cfg.Node.Capabilities,
			MaxConcurrency: a.cfg.Node.MaxConcurrency,
		},
		JoinSecret: a.cfg.Server.JoinSecret,
	}

	b := retry.WithMaxDuration(2*time.Minute, retry.NewExponential(time.Second))
	return retry.Do(ctx, b, func(ctx context.Context) error {
		resp, err := a.client.RegisterNode(ctx, a.cfg.Node.Coordinator, req)
		if err != nil {
			a.logger.Warn("registration attempt failed", "error", err)
			return retry.RetryableError(err)
		}
		a.token = resp.Token
		a.logger.Info("registered with coordinator")
		return nil
	})
}

// heartbeatLoop отправляет heartbeat с текущей загрузкой.
// Потерянные heartbeat не ретраятся: пропуск и есть сигнал монитору.
func (a *agent) heartbeatLoop(ctx context.Context) {
	ticker := time.NewTicker(a.cfg.Node.HeartbeatEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := a.client.SendHeartbeat(ctx, a.cfg.Node.Coordinator, a.token, api.HeartbeatRequest{})
			if err != nil {
				a.logger.Warn("heartbeat failed", "error", err)
			}
		}
	}
}

// flushLoop проталкивает захваченные операции координатору в порядке
// захвата. Watermark продвигается по одной операции, так что обрыв
// связи посреди прохода не теряет и не дублирует хвост.
func (a *agent) flushLoop(ctx context.Context) {
	ticker := time.NewTicker(a.cfg.Node.HeartbeatEvery * 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := a.flush(ctx); err != nil {
				a.logger.Warn("flush interrupted", "error", err)
			}
		}
	}
}

func (a *agent) flush(ctx context.Context) error {
	pending, err := a.queue.Pending(ctx, a.cfg.Node.ID)
	if err != nil {
		return fmt.Errorf("failed to read pending ops: %w", err)
	}

	for _, op := range pending {
		req := api.EnqueueOpRequest{Operation: opToAPI(op)}
		if _, err := a.client.EnqueueOp(ctx, a.cfg.Node.Coordinator, a.token, req); err != nil {
			return fmt.Errorf("failed to push op seq=%d: %w", op.Seq, err)
		}
		if err := a.queue.MarkApplied(ctx, a.cfg.Node.ID, op.Seq); err != nil {
			return fmt.Errorf("failed to advance watermark: %w", err)
		}
	}

	if len(pending) > 0 {
		a.logger.Info("flushed pending operations", "count", len(pending))
	}
	return nil
}

func (a *agent) buildHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok", "version": Version})
	})
	mux.HandleFunc("POST /api/v1/execute", a.handleExecute)
	mux.HandleFunc("POST /api/v1/capture", a.handleCapture)

	var h http.Handler = mux
	h = middleware.LoggingMiddleware(a.logger)(h)
	h = middleware.RecoveryMiddleware(a.logger)(h)
	return h
}

// handleExecute выполняет доставленную планировщиком задачу.
// Конкретная обработка payload остается за нагрузкой узла; агент
// подтверждает прием и возвращает результат.
func (a *agent) handleExecute(w http.ResponseWriter, r *http.Request) {
	var req api.DispatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	a.logger.Info("task received", "task_id", req.TaskID, "payload_bytes", len(req.Payload))

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(api.DispatchResponse{
		TaskID: req.TaskID,
		Result: req.Payload,
	})
}

// handleCapture принимает локальную операцию в журнал. Операция
// доедет до координатора при следующем успешном flush.
func (a *agent) handleCapture(w http.ResponseWriter, r *http.Request) {
	var req api.EnqueueOpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	op := opFromAPI(req.Operation)
	op.Origin = a.cfg.Node.ID

	// LWW-метки выдают локальные часы, присланным по проводу не доверяем:
	// один tick на событие захвата
	stamp := a.clock.Tick()
	for name, f := range op.Delta {
		if f.Kind == crdt.FieldLWW {
			f.Stamp = stamp
			f.Origin = a.cfg.Node.ID
			op.Delta[name] = f
		}
	}

	stored, err := a.queue.Enqueue(r.Context(), op)
	if err != nil {
		a.logger.Error("failed to capture operation", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(api.EnqueueOpResponse{
		OperationID: stored.ID,
		Seq:         stored.Seq,
	})
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

func printVersion() {
	fmt.Printf("MeshSync Edge Agent\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
