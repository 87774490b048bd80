// Package health probes the server's backing services on an interval and
// reports their state on /healthz.
package health

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Status values reported per dependency.
const (
	StatusHealthy  = "healthy"
	StatusDegraded = "degraded"
)

// Config holds health check configuration.
type Config struct {
	CheckInterval time.Duration
	ProbeTimeout  time.Duration
	FailThreshold int
}

// Probe checks one dependency. A nil error means healthy.
type Probe func(ctx context.Context) error

// MetricsRecordFunc is an optional callback for recording probe results.
type MetricsRecordFunc func(dependency string, success bool)

// Checker runs periodic dependency probes. A dependency is reported degraded
// once it has failed FailThreshold probes in a row and recovers on the next
// success.
type Checker struct {
	probes     map[string]Probe
	failCounts map[string]int
	lastErr    map[string]string
	mu         sync.Mutex
	cfg        Config
	onMetrics  MetricsRecordFunc
	logger     *zap.Logger
}

// New creates a Checker with no probes.
func New(cfg Config, logger *zap.Logger) *Checker {
	if cfg.CheckInterval == 0 {
		cfg.CheckInterval = 30 * time.Second
	}
	if cfg.ProbeTimeout == 0 {
		cfg.ProbeTimeout = 5 * time.Second
	}
	if cfg.FailThreshold == 0 {
		cfg.FailThreshold = 3
	}
	return &Checker{
		probes:     make(map[string]Probe),
		failCounts: make(map[string]int),
		lastErr:    make(map[string]string),
		cfg:        cfg,
		logger:     logger,
	}
}

// Add registers a probe under name. Call before Start.
func (h *Checker) Add(name string, p Probe) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.probes[name] = p
}

// SetMetricsRecord configures the metrics recording callback.
func (h *Checker) SetMetricsRecord(fn MetricsRecordFunc) {
	h.onMetrics = fn
}

// Start runs the check loop until ctx is cancelled.
func (h *Checker) Start(ctx context.Context) {
	h.CheckAll(ctx)
	ticker := time.NewTicker(h.cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			h.CheckAll(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// CheckAll runs every probe concurrently and waits for them.
func (h *Checker) CheckAll(ctx context.Context) {
	h.mu.Lock()
	probes := make(map[string]Probe, len(h.probes))
	for name, p := range h.probes {
		probes[name] = p
	}
	h.mu.Unlock()

	var wg sync.WaitGroup
	for name, p := range probes {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pctx, cancel := context.WithTimeout(ctx, h.cfg.ProbeTimeout)
			defer cancel()
			h.observe(name, p(pctx))
		}()
	}
	wg.Wait()
}

func (h *Checker) observe(name string, err error) {
	success := err == nil
	if h.onMetrics != nil {
		h.onMetrics(name, success)
	}

	h.mu.Lock()
	prevCount := h.failCounts[name]
	if success {
		h.failCounts[name] = 0
		delete(h.lastErr, name)
	} else {
		h.failCounts[name]++
		h.lastErr[name] = err.Error()
	}
	count := h.failCounts[name]
	h.mu.Unlock()

	switch {
	case success && prevCount >= h.cfg.FailThreshold:
		h.logger.Info("health: recovered", zap.String("dependency", name))
	case !success && count == h.cfg.FailThreshold:
		h.logger.Warn("health: degraded",
			zap.String("dependency", name),
			zap.Int("fail_count", count),
			zap.Error(err),
		)
	}
}

// DependencyStatus is the reported state of one dependency.
type DependencyStatus struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Status reports whether every dependency is healthy, plus per-dependency
// detail sorted by name.
func (h *Checker) Status() (bool, []DependencyStatus) {
	h.mu.Lock()
	defer h.mu.Unlock()

	healthy := true
	out := make([]DependencyStatus, 0, len(h.probes))
	for name := range h.probes {
		ds := DependencyStatus{Name: name, Status: StatusHealthy}
		if h.failCounts[name] >= h.cfg.FailThreshold {
			ds.Status = StatusDegraded
			ds.Error = h.lastErr[name]
			healthy = false
		}
		out = append(out, ds)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return healthy, out
}

// Handler serves /healthz: 200 when all dependencies are healthy, 503 otherwise.
func (h *Checker) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		healthy, deps := h.Status()
		if !healthy {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": StatusDegraded, "dependencies": deps})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "dependencies": deps})
	}
}
