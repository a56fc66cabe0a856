package database

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/event"
)

func TestPoolStatsCollector_Describe(t *testing.T) {
	c := NewPoolStatsCollector(nil, "marketplace")

	ch := make(chan *prometheus.Desc, 20)
	c.Describe(ch)
	close(ch)

	var names []string
	for d := range ch {
		names = append(names, d.String())
	}
	require.Len(t, names, 12)

	joined := strings.Join(names, "\n")
	for _, want := range []string{
		"db_pool_acquired_connections",
		"db_pool_idle_connections",
		"db_pool_total_connections",
		"db_pool_max_connections",
		"db_pool_acquire_count_total",
		"db_pool_max_idle_destroy_total",
	} {
		assert.Contains(t, joined, want)
	}
}

func TestMongoPoolMetrics_TracksEvents(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMongoPoolMetrics(reg, "marketplace")
	mon := m.Monitor()

	for _, typ := range []string{
		event.ConnectionCreated,
		event.ConnectionCreated,
		event.GetSucceeded,
		event.GetSucceeded,
		event.ConnectionReturned,
		event.GetFailed,
		event.ConnectionClosed,
		event.PoolCleared,
	} {
		mon.Event(&event.PoolEvent{Type: typ})
	}

	assert.Equal(t, 1.0, testutil.ToFloat64(m.open))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.inUse))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.checkoutFailure))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cleared))

	count, err := testutil.GatherAndCount(reg)
	require.NoError(t, err)
	assert.Equal(t, 4, count)
}

func TestObserveQuery_Outcome(t *testing.T) {
	before := testutil.CollectAndCount(queryDuration)
	observeQuery("test-system", "observe.outcome", 0.01, nil)
	observeQuery("test-system", "observe.outcome", 0.02, assert.AnError)

	assert.Equal(t, before+2, testutil.CollectAndCount(queryDuration))
}
