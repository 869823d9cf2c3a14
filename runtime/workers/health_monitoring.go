package workers

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/shirou/gopsutil/process"

	"chat-broker/contract"
)

var _ contract.Worker = (*HealthWorker)(nil)

// StatsProvider supplies engine counters to report alongside process
// metrics on every tick.
type StatsProvider func() map[string]any

// HealthWorker periodically logs process vitals (RSS, CPU, status) and
// broker counters. Purely observational; it never touches engine state.
type HealthWorker struct {
	log      *slog.Logger
	interval time.Duration
	stats    StatsProvider
}

func NewHealthWorker(log *slog.Logger, interval time.Duration, stats StatsProvider) *HealthWorker {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &HealthWorker{log: log, interval: interval, stats: stats}
}

func (w *HealthWorker) Run(ctx context.Context) error {
	w.log.Info("Starting health monitoring worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			rss, cpu, status, err := selfStats(p)
			if err != nil {
				w.log.Error("Failed to collect self stats", "err", err)
				continue
			}
			attrs := []any{
				"pid_status", status,
				"cpu_percent", cpu,
				"ram_bytes", rss,
			}
			if w.stats != nil {
				for k, v := range w.stats() {
					attrs = append(attrs, k, v)
				}
			}
			w.log.Info("Health", attrs...)
		}
	}
}

// selfStats retrieves technical metrics (memory, CPU and OS status) for
// the given process.
func selfStats(p *process.Process) (uint64, float64, string, error) {
	memInfo, err := p.MemoryInfo()
	if err != nil {
		return 0, 0, "", err
	}
	cpuPercent, err := p.CPUPercent()
	if err != nil {
		return 0, 0, "", err
	}
	status, err := p.Status()
	if err != nil {
		return 0, 0, "", err
	}
	return memInfo.RSS, cpuPercent, status, nil
}
