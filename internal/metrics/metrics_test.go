package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordRender(t *testing.T) {
	r := New()

	r.RecordRender("custom", 3, 0)
	r.RecordRender("custom", 2, 1)
	r.RecordRender("agenda", 5, 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.viewRenders.WithLabelValues("custom")))
	assert.Equal(t, 5.0, testutil.ToFloat64(r.segments.WithLabelValues("custom")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.malformedEvents.WithLabelValues("custom")))
	assert.Equal(t, 5.0, testutil.ToFloat64(r.segments.WithLabelValues("agenda")))
}

func TestRecordRefreshKeepsGaugeOnFailure(t *testing.T) {
	r := New()

	r.RecordRefresh("ok", 20*time.Millisecond, 12)
	r.RecordRefresh("failed", time.Millisecond, 0)

	assert.Equal(t, 12.0, testutil.ToFloat64(r.catalogEvents))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.refreshes.WithLabelValues("failed")))
}

func TestNilRecorderIsNoop(t *testing.T) {
	var r *Recorder

	assert.NotPanics(t, func() {
		r.RecordRender("custom", 1, 1)
		r.RecordRefresh("ok", time.Second, 1)
	})
	assert.Nil(t, r.Registry())
}

func TestHandlerExposesCollectors(t *testing.T) {
	r := New()
	r.RecordRender("custom", 1, 0)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `calview_view_renders_total{view="custom"} 1`)
}
