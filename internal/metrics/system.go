package metrics

import (
	"context"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shirou/gopsutil/v3/process"
)

// SystemSampler periodically samples this process's CPU and memory and
// exposes them as gauges, the way go-server-2/server.go and
// go-server/internal/metrics/system.go sample with gopsutil.
type SystemSampler struct {
	cpuPercent prometheus.Gauge
	rssBytes   prometheus.Gauge
	proc       *process.Process
}

// NewSystemSampler registers the process gauges against reg.
func NewSystemSampler(reg prometheus.Registerer, namespace string) (*SystemSampler, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, err
	}

	s := &SystemSampler{
		cpuPercent: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "process_cpu_percent",
			Help:      "Process CPU usage percent, sampled via gopsutil.",
		}),
		rssBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "process_rss_bytes",
			Help:      "Process resident memory in bytes, sampled via gopsutil.",
		}),
		proc: proc,
	}

	reg.MustRegister(s.cpuPercent, s.rssBytes)
	return s, nil
}

// Run samples at interval until ctx is cancelled.
func (s *SystemSampler) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if pct, err := s.proc.CPUPercent(); err == nil {
				s.cpuPercent.Set(pct)
			}
			if mem, err := s.proc.MemoryInfo(); err == nil && mem != nil {
				s.rssBytes.Set(float64(mem.RSS))
			}
		}
	}
}
