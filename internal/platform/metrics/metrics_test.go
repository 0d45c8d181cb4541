package metrics

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCollectorSnapshot(t *testing.T) {
	c := New()
	c.Record(http.StatusOK, 10*time.Millisecond)
	c.Record(http.StatusForbidden, 20*time.Millisecond)
	c.Record(http.StatusServiceUnavailable, 30*time.Millisecond)
	c.Record(http.StatusTooManyRequests, 0)
	c.RecordResolution(false)
	c.RecordResolution(true)

	snap := c.Snapshot()
	assert.Equal(t, uint64(4), snap["requestsTotal"])
	assert.Equal(t, uint64(1), snap["errorsTotal"])
	assert.Equal(t, uint64(1), snap["forbiddenTotal"])
	assert.Equal(t, uint64(1), snap["unavailableTotal"])
	assert.Equal(t, uint64(1), snap["rateLimitedTotal"])
	assert.Equal(t, uint64(2), snap["roleResolutionsTotal"])
	assert.Equal(t, uint64(1), snap["degradedResolutionsTotal"])
	assert.Equal(t, float64(15), snap["avgDurationMs"])
}

func TestCollectorEmptySnapshot(t *testing.T) {
	assert.Equal(t, float64(0), New().Snapshot()["avgDurationMs"])
}
