package metrics

import (
	"net/http"
	"sync/atomic"
	"time"
)

type Collector struct {
	totalRequests   uint64
	errorRequests   uint64
	forbidden       uint64
	unavailable     uint64
	rateLimited     uint64
	totalDurationMs uint64
	roleResolutions uint64
	degraded        uint64
}

func New() *Collector {
	return &Collector{}
}

func (c *Collector) Record(status int, duration time.Duration) {
	atomic.AddUint64(&c.totalRequests, 1)
	switch {
	case status == http.StatusForbidden:
		atomic.AddUint64(&c.forbidden, 1)
	case status == http.StatusTooManyRequests:
		atomic.AddUint64(&c.rateLimited, 1)
	case status == http.StatusServiceUnavailable:
		atomic.AddUint64(&c.unavailable, 1)
	}
	if status >= 500 {
		atomic.AddUint64(&c.errorRequests, 1)
	}
	atomic.AddUint64(&c.totalDurationMs, uint64(duration.Milliseconds()))
}

// RecordResolution counts role lookups; degraded ones had a source fail.
func (c *Collector) RecordResolution(degraded bool) {
	atomic.AddUint64(&c.roleResolutions, 1)
	if degraded {
		atomic.AddUint64(&c.degraded, 1)
	}
}

func (c *Collector) Snapshot() map[string]any {
	total := atomic.LoadUint64(&c.totalRequests)
	totalMs := atomic.LoadUint64(&c.totalDurationMs)
	avg := float64(0)
	if total > 0 {
		avg = float64(totalMs) / float64(total)
	}
	return map[string]any{
		"requestsTotal":            total,
		"errorsTotal":              atomic.LoadUint64(&c.errorRequests),
		"forbiddenTotal":           atomic.LoadUint64(&c.forbidden),
		"unavailableTotal":         atomic.LoadUint64(&c.unavailable),
		"rateLimitedTotal":         atomic.LoadUint64(&c.rateLimited),
		"roleResolutionsTotal":     atomic.LoadUint64(&c.roleResolutions),
		"degradedResolutionsTotal": atomic.LoadUint64(&c.degraded),
		"avgDurationMs":            avg,
		"totalDurationMs":          totalMs,
	}
}
