package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsRegistered(t *testing.T) {
	t.Parallel()

	// Verify all metrics are non-nil (registered via promauto on package init).
	assert.NotNil(t, HTTPRequestDuration)
	assert.NotNil(t, HTTPRequestsTotal)
	assert.NotNil(t, HealthzUp)
	assert.NotNil(t, ReadyzUp)
	assert.NotNil(t, PollsTotal)
	assert.NotNil(t, PollErrorsTotal)
	assert.NotNil(t, PollDuration)
	assert.NotNil(t, LongRestsTotal)
	assert.NotNil(t, FindingsTotal)
	assert.NotNil(t, NotificationsSentTotal)
	assert.NotNil(t, NotificationFailuresTotal)
	assert.NotNil(t, NotificationsSuppressedTotal)
	assert.NotNil(t, ReservationsTotal)
	assert.NotNil(t, HistoryWriteFailuresTotal)
	assert.NotNil(t, PollersAlive)
	assert.NotNil(t, PollerRestartsTotal)
	assert.NotNil(t, PollerCrashesTotal)
	assert.NotNil(t, PollersStalled)
}

func TestLabelledCounters(t *testing.T) {
	t.Parallel()

	before := testutil.ToFloat64(PollErrorsTotal.WithLabelValues("metrics-test", "transport"))
	PollErrorsTotal.WithLabelValues("metrics-test", "transport").Inc()
	after := testutil.ToFloat64(PollErrorsTotal.WithLabelValues("metrics-test", "transport"))
	assert.InDelta(t, 1, after-before, 0.001)
}
