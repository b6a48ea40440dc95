package observability

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"quiz-leaderboard/internal/domain"
)

func TestMetricsCountGenerationsByStatus(t *testing.T) {
	m := NewMetrics()
	m.ObserveGeneration(domain.ScopeGlobal, 10*time.Millisecond, nil)
	m.ObserveGeneration(domain.ScopeGlobal, 10*time.Millisecond, errors.New("boom"))
	m.ObserveGeneration(domain.ScopeDepartment, 10*time.Millisecond, nil)

	require.Equal(t, 1.0, testutil.ToFloat64(m.generationsTotal.WithLabelValues("global", "ok")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.generationsTotal.WithLabelValues("global", "error")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.generationsTotal.WithLabelValues("department", "ok")))
}

func TestMetricsTrackSubscribersAndDeliveries(t *testing.T) {
	m := NewMetrics()
	m.SubscriberDelta(1)
	m.SubscriberDelta(1)
	m.SubscriberDelta(-1)
	m.ObserveDelivery(false)

	require.Equal(t, 1.0, testutil.ToFloat64(m.activeSubscribers))
	require.Equal(t, 1.0, testutil.ToFloat64(m.deliveriesTotal.WithLabelValues("ok")))
}

func TestMetricsHandlerServesText(t *testing.T) {
	m := NewMetrics()
	m.ObserveDelivery(true)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, strings.Contains(rec.Body.String(), "leaderboard_live_deliveries_total"))
}
