package heapview

import (
	"sync/atomic"
	"time"
)

// EventOp names one of the three record entry points.
type EventOp string

const (
	// OpMalloc is an allocation event.
	OpMalloc EventOp = "malloc"
	// OpFree is a free event.
	OpFree EventOp = "free"
	// OpRealloc is a realloc event (a free plus a malloc).
	OpRealloc EventOp = "realloc"
)

// MetricsCollector defines an interface for collecting operational
// metrics. Implement this interface to integrate with monitoring
// systems like Prometheus.
type MetricsCollector interface {
	// RecordEvent is called after each record operation.
	// duration is the time taken, err is nil if the event was accepted.
	RecordEvent(op EventOp, duration time.Duration, err error)

	// RecordRebuild is called after each spatial-index rebuild.
	// blocks is the number of blocks indexed.
	RecordRebuild(blocks int, duration time.Duration)

	// RecordDump is called after each geometry dump.
	// vertices is the number of vertices emitted.
	RecordDump(vertices int, duration time.Duration)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordEvent(EventOp, time.Duration, error) {}
func (NoopMetricsCollector) RecordRebuild(int, time.Duration)          {}
func (NoopMetricsCollector) RecordDump(int, time.Duration)             {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external
// dependencies.
type BasicMetricsCollector struct {
	EventCount        atomic.Int64
	EventErrors       atomic.Int64
	EventTotalNanos   atomic.Int64
	RebuildCount      atomic.Int64
	RebuildTotalNanos atomic.Int64
	DumpCount         atomic.Int64
	DumpVertices      atomic.Int64
	DumpTotalNanos    atomic.Int64
}

// RecordEvent implements MetricsCollector.
func (c *BasicMetricsCollector) RecordEvent(_ EventOp, duration time.Duration, err error) {
	c.EventCount.Add(1)
	c.EventTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		c.EventErrors.Add(1)
	}
}

// RecordRebuild implements MetricsCollector.
func (c *BasicMetricsCollector) RecordRebuild(_ int, duration time.Duration) {
	c.RebuildCount.Add(1)
	c.RebuildTotalNanos.Add(duration.Nanoseconds())
}

// RecordDump implements MetricsCollector.
func (c *BasicMetricsCollector) RecordDump(vertices int, duration time.Duration) {
	c.DumpCount.Add(1)
	c.DumpVertices.Add(int64(vertices))
	c.DumpTotalNanos.Add(duration.Nanoseconds())
}

// AverageEventDuration returns the mean record-operation latency.
func (c *BasicMetricsCollector) AverageEventDuration() time.Duration {
	count := c.EventCount.Load()
	if count == 0 {
		return 0
	}
	return time.Duration(c.EventTotalNanos.Load() / count)
}
