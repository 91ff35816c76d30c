package observability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMetricsCounters(t *testing.T) {
	m := NewMetrics()
	m.RecordRequest("/searches", "POST", 201, time.Millisecond)
	m.RecordRequest("/searches", "POST", 201, time.Millisecond)
	m.RecordError("/searches", "POST", "SEARCH_LIMIT_REACHED")
	m.RecordSearchStatus("completed")
	m.RecordVerification("rejected")
	m.RecordVerification("rejected")

	snap := m.Snapshot()
	assert.Equal(t, int64(2), snap.Requests["/searches|POST|201"])
	assert.Equal(t, int64(1), snap.Errors["/searches|POST|SEARCH_LIMIT_REACHED"])
	assert.Equal(t, int64(1), snap.Searches["completed"])
	assert.Equal(t, int64(2), snap.Verifications["rejected"])
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.RecordSearchStatus("failed")
	m.RecordVerification("technical_error")
	assert.Empty(t, m.Snapshot().Searches)
}
