package observability

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewLogger_InvalidLevelFallsBackToInfo(t *testing.T) {
	logger, err := NewLogger("loud")
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zap.InfoLevel))
	assert.False(t, logger.Core().Enabled(zap.DebugLevel))

	logger, err = NewLogger("DEBUG")
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zap.DebugLevel))
}

func TestFromContext_DefaultsToNop(t *testing.T) {
	assert.NotNil(t, FromContext(context.Background()))

	logger := zap.NewExample()
	ctx := WithLogger(context.Background(), logger)
	assert.Same(t, logger, FromContext(ctx))

	fallback := zap.NewExample()
	assert.Same(t, fallback, FromContextOr(context.Background(), fallback))
	assert.Same(t, logger, FromContextOr(ctx, fallback))
}

func TestMetrics_ObserveCalculation(t *testing.T) {
	m := NewMetrics()
	m.ObserveCalculation("primary", "completed", 2*time.Millisecond)
	m.ObserveCalculation("primary", "completed", time.Millisecond)
	m.ObserveCalculation("primary", "invalid_input", 0)
	m.ObserveBatch(3)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.calculations.WithLabelValues("primary", "completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.calculations.WithLabelValues("primary", "invalid_input")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.duration))

	var nilMetrics *Metrics
	nilMetrics.ObserveCalculation("primary", "completed", 0)
}
