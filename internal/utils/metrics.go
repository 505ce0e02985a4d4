// internal/utils/metrics.go
package utils

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// MetricsCollector collects application metrics
type MetricsCollector struct {
	counters   map[string]*int64
	gauges     map[string]*int64
	histograms map[string]*Histogram

	mu sync.RWMutex
}

// Histogram tracks count, sum, min and max of observed values
type Histogram struct {
	count int64
	sum   int64
	min   int64
	max   int64
	mu    sync.Mutex
}

var (
	globalMetrics *MetricsCollector
	metricsOnce   sync.Once
)

// NewMetricsCollector creates an empty collector
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		counters:   make(map[string]*int64),
		gauges:     make(map[string]*int64),
		histograms: make(map[string]*Histogram),
	}
}

// GetMetricsCollector returns the global metrics collector
func GetMetricsCollector() *MetricsCollector {
	metricsOnce.Do(func() {
		globalMetrics = NewMetricsCollector()
	})
	return globalMetrics
}

// slot returns the atomic cell for name, creating it on first use
func (m *MetricsCollector) slot(set map[string]*int64, name string) *int64 {
	m.mu.RLock()
	v, ok := set[name]
	m.mu.RUnlock()
	if ok {
		return v
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok = set[name]; !ok {
		v = new(int64)
		set[name] = v
	}
	return v
}

// IncrementCounter increments a counter metric
func (m *MetricsCollector) IncrementCounter(name string) {
	atomic.AddInt64(m.slot(m.counters, name), 1)
}

// AddCounter adds value to a counter metric
func (m *MetricsCollector) AddCounter(name string, value int64) {
	atomic.AddInt64(m.slot(m.counters, name), value)
}

// SetGauge sets a gauge metric
func (m *MetricsCollector) SetGauge(name string, value int64) {
	atomic.StoreInt64(m.slot(m.gauges, name), value)
}

// IncGauge increments a gauge metric
func (m *MetricsCollector) IncGauge(name string) {
	atomic.AddInt64(m.slot(m.gauges, name), 1)
}

// DecGauge decrements a gauge metric
func (m *MetricsCollector) DecGauge(name string) {
	atomic.AddInt64(m.slot(m.gauges, name), -1)
}

// GetGauge returns the current value of a gauge
func (m *MetricsCollector) GetGauge(name string) int64 {
	m.mu.RLock()
	v, ok := m.gauges[name]
	m.mu.RUnlock()
	if !ok {
		return 0
	}
	return atomic.LoadInt64(v)
}

// GetCounterValue returns the current value of a counter
func (m *MetricsCollector) GetCounterValue(name string) int64 {
	m.mu.RLock()
	v, ok := m.counters[name]
	m.mu.RUnlock()
	if !ok {
		return 0
	}
	return atomic.LoadInt64(v)
}

// RecordHistogram records a value in a histogram
func (m *MetricsCollector) RecordHistogram(name string, value int64) {
	m.mu.RLock()
	h, ok := m.histograms[name]
	m.mu.RUnlock()

	if !ok {
		m.mu.Lock()
		if h, ok = m.histograms[name]; !ok {
			h = &Histogram{min: value, max: value}
			m.histograms[name] = h
		}
		m.mu.Unlock()
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.count++
	h.sum += value
	if value < h.min {
		h.min = value
	}
	if value > h.max {
		h.max = value
	}
}

// GetMetrics returns a snapshot of all metrics
func (m *MetricsCollector) GetMetrics() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	counters := make(map[string]int64, len(m.counters))
	for name, v := range m.counters {
		counters[name] = atomic.LoadInt64(v)
	}

	gauges := make(map[string]int64, len(m.gauges))
	for name, v := range m.gauges {
		gauges[name] = atomic.LoadInt64(v)
	}

	histograms := make(map[string]map[string]int64, len(m.histograms))
	for name, h := range m.histograms {
		h.mu.Lock()
		histograms[name] = map[string]int64{
			"count": h.count,
			"sum":   h.sum,
			"min":   h.min,
			"max":   h.max,
		}
		h.mu.Unlock()
	}

	return map[string]interface{}{
		"counters":   counters,
		"gauges":     gauges,
		"histograms": histograms,
	}
}

// WorkflowMetrics records studio-specific metrics
type WorkflowMetrics struct {
	metrics *MetricsCollector
	logger  *Logger
}

// NewWorkflowMetrics creates metrics backed by the global collector and logger
func NewWorkflowMetrics() *WorkflowMetrics {
	return &WorkflowMetrics{
		metrics: GetMetricsCollector(),
		logger:  GetLogger(),
	}
}

// NewWorkflowMetricsWith creates metrics over an explicit collector
func NewWorkflowMetricsWith(collector *MetricsCollector, logger *Logger) *WorkflowMetrics {
	return &WorkflowMetrics{metrics: collector, logger: logger}
}

// Collector exposes the underlying collector
func (wm *WorkflowMetrics) Collector() *MetricsCollector {
	return wm.metrics
}

// RecordAPIRequest records metrics for an API request
func (wm *WorkflowMetrics) RecordAPIRequest(route, method string, statusCode int, duration time.Duration) {
	wm.metrics.IncrementCounter("api_requests_total")
	wm.metrics.IncrementCounter("api_requests_" + method + "_" + route)
	wm.metrics.IncrementCounter("api_responses_" + strconv.Itoa(statusCode/100) + "xx")
	wm.metrics.RecordHistogram("api_response_time_ms", duration.Milliseconds())

	wm.logger.Debug("API request completed", map[string]interface{}{
		"route":    route,
		"method":   method,
		"status":   statusCode,
		"duration": duration.Milliseconds(),
	})
}

// RecordRunStarted counts a new run and bumps the active gauge
func (wm *WorkflowMetrics) RecordRunStarted(sessionID string) {
	wm.metrics.IncrementCounter("runs_started_total")
	wm.metrics.IncGauge("runs_active")
	wm.logger.Debug("Run started", map[string]interface{}{"session_id": sessionID})
}

// RecordStepCompleted records the wall time a step spent running
func (wm *WorkflowMetrics) RecordStepCompleted(stepID string, duration time.Duration) {
	wm.metrics.IncrementCounter("steps_completed_total")
	wm.metrics.IncrementCounter("steps_completed_" + stepID)
	wm.metrics.RecordHistogram("step_duration_ms", duration.Milliseconds())
}

// RecordRunCompleted records a run that published its result
func (wm *WorkflowMetrics) RecordRunCompleted(duration time.Duration) {
	wm.metrics.IncrementCounter("runs_completed_total")
	wm.metrics.DecGauge("runs_active")
	wm.metrics.RecordHistogram("run_duration_ms", duration.Milliseconds())
}

// RecordRunAborted records a run stopped by a reset before publishing
func (wm *WorkflowMetrics) RecordRunAborted() {
	wm.metrics.IncrementCounter("runs_aborted_total")
	wm.metrics.DecGauge("runs_active")
}

// RecordReset counts reset requests
func (wm *WorkflowMetrics) RecordReset() {
	wm.metrics.IncrementCounter("resets_total")
}

// StartMetricsReport periodically logs a metrics summary until ctx is done
func (wm *WorkflowMetrics) StartMetricsReport(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				wm.logger.Info("Periodic metrics report", map[string]interface{}{
					"metrics": wm.metrics.GetMetrics(),
				})
			}
		}
	}()
}
