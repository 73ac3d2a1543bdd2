package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func labelsToMap(m *dto.Metric) map[string]string {
	out := map[string]string{}
	for _, lp := range m.GetLabel() {
		out[lp.GetName()] = lp.GetValue()
	}
	return out
}

func find(t *testing.T, name string, labels map[string]string) *dto.Metric {
	t.Helper()
	mfs, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)

	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			got := labelsToMap(m)
			match := true
			for k, v := range labels {
				if got[k] != v {
					match = false
					break
				}
			}
			if match {
				return m
			}
		}
	}
	return nil
}

func TestObserveMutation(t *testing.T) {
	ObserveMutation("delete", ResultError, 50*time.Millisecond)

	m := find(t, "studio_mutations_total", map[string]string{"op": "delete", "result": ResultError})
	require.NotNil(t, m, "expected studio_mutations_total for delete/error")
	require.GreaterOrEqual(t, m.GetCounter().GetValue(), float64(1))

	h := find(t, "studio_mutation_latency_seconds", map[string]string{"op": "delete", "result": ResultError})
	require.NotNil(t, h)
	require.GreaterOrEqual(t, h.GetHistogram().GetSampleCount(), uint64(1))
}

func TestStreamGauge(t *testing.T) {
	before := 0.0
	if m := find(t, "studio_event_streams", nil); m != nil {
		before = m.GetGauge().GetValue()
	}

	StreamOpened()
	StreamOpened()
	StreamClosed()

	m := find(t, "studio_event_streams", nil)
	require.NotNil(t, m)
	require.InDelta(t, before+1, m.GetGauge().GetValue(), 0)
	StreamClosed()
}

func TestHandlerServesMetrics(t *testing.T) {
	NotificationShown("success")
	ChatMessage("user")

	w := httptest.NewRecorder()
	Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)

	body, err := io.ReadAll(w.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "studio_notifications_total")
	require.Contains(t, string(body), "studio_chat_messages_total")
}
