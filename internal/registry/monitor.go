package registry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/iudanet/meshsync/internal/models"
)

// ProbeFunc выполняет одну активную проверку узла и возвращает латентность.
// Реализация обязана уважать deadline контекста.
type ProbeFunc func(ctx context.Context, node models.Node) (time.Duration, error)

// Monitor периодически опрашивает все известные узлы.
// Результаты проб питают тот же счетчик пропусков, что и heartbeat.
type Monitor struct {
	registry *Registry
	probe    ProbeFunc
	logger   *slog.Logger
}

// NewMonitor создает монитор здоровья поверх реестра.
func NewMonitor(registry *Registry, probe ProbeFunc, logger *slog.Logger) *Monitor {
	return &Monitor{
		registry: registry,
		probe:    probe,
		logger:   logger,
	}
}

// Run запускает цикл проб. Блокируется до отмены контекста.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.registry.cfg.ProbeInterval)
	defer ticker.Stop()

	m.logger.Info("health monitor started", "interval", m.registry.cfg.ProbeInterval)

	for {
		select {
		case <-ticker.C:
			m.probeAll(ctx)
			m.registry.reapExpired(time.Now())
		case <-ctx.Done():
			m.logger.Info("health monitor stopped")
			return
		}
	}
}

// probeAll опрашивает узлы параллельно и дожидается завершения цикла.
// Каждая проба ограничена собственным deadline: истечение таймаута
// всегда уходит в ветку пропуска, а не зависает.
func (m *Monitor) probeAll(ctx context.Context) {
	views := m.registry.Snapshot()

	var wg sync.WaitGroup
	for _, v := range views {
		wg.Add(1)
		go func(node models.Node) {
			defer wg.Done()
			m.probeOne(ctx, node)
		}(v.Node)
	}
	wg.Wait()
}

func (m *Monitor) probeOne(ctx context.Context, node models.Node) {
	probeCtx, cancel := context.WithTimeout(ctx, m.registry.cfg.ProbeTimeout)
	defer cancel()

	latency, err := m.probe(probeCtx, node)
	if err != nil {
		m.logger.Debug("probe missed", "node_id", node.ID, "error", err)
		_ = m.registry.RecordMiss(node.ID)
		return
	}

	_ = m.registry.RecordSuccess(node.ID, latency)
}
