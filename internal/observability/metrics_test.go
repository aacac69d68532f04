package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nillzand/ehsan-meals/internal/config"
)

func TestMetricsRecord(t *testing.T) {
	m := NewMetrics()

	m.RecordGatewayCall("GET", 200, 10*time.Millisecond)
	m.RecordGatewayCall("GET", 401, 10*time.Millisecond)
	m.RecordReplay()
	m.RecordRenewal("success")
	m.RecordRenewal("success")
	m.RecordForcedLogout()
	m.RecordDecision(false, "INSUFFICIENT_BUDGET")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.gatewayRequests.WithLabelValues("GET", "401")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.gatewayReplays))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.renewals.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.forcedLogouts))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.eligibility.WithLabelValues("false", "INSUFFICIENT_BUDGET")))

	families, err := m.Registry().Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordRequest("/", "GET", 200, time.Millisecond)
		m.RecordError("/", "GET", "X")
		m.RecordGatewayCall("GET", 200, time.Millisecond)
		m.RecordReplay()
		m.RecordRenewal("success")
		m.RecordForcedLogout()
		m.RecordDecision(true, "")
	})
	assert.NotNil(t, m.Handler())
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger(config.LoggerConfig{Level: "debug", Encoding: "console"})
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(-1))

	logger, err = NewLogger(config.LoggerConfig{Level: "nonsense"})
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(-1))
}
