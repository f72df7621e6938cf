package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gathered returns the value of the counter or gauge named name whose
// labels include every pair in labels.
func gathered(t *testing.T, m *MetricsServer, name string, labels map[string]string) float64 {
	families, err := m.Registry().Gather()
	require.NoError(t, err)

	for _, family := range families {
		if family.GetName() != name {
			continue
		}
	metrics:
		for _, metric := range family.GetMetric() {
			for _, pair := range metric.GetLabel() {
				if want, ok := labels[pair.GetName()]; ok && want != pair.GetValue() {
					continue metrics
				}
			}
			if metric.GetCounter() != nil {
				return metric.GetCounter().GetValue()
			}
			return metric.GetGauge().GetValue()
		}
	}
	return 0
}

func TestRecordTokenLookup(t *testing.T) {
	m, err := New("ledger_signer", "")
	require.NoError(t, err)

	m.RecordTokenLookup("found")
	m.RecordTokenLookup("found")
	m.RecordTokenLookup("unknown")
	m.SetRegistryTokens(7)

	assert.Equal(t, 2.0, gathered(t, m, "ledger_signer_registry_token_lookups_total", map[string]string{"result": "found"}))
	assert.Equal(t, 1.0, gathered(t, m, "ledger_signer_registry_token_lookups_total", map[string]string{"result": "unknown"}))
	assert.Equal(t, 7.0, gathered(t, m, "ledger_signer_registry_tokens", nil))
}

func TestNilMetricsServer(t *testing.T) {
	var m *MetricsServer
	m.RecordTokenLookup("found")
	m.SetRegistryTokens(1)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	assert.NotNil(t, m.Middleware(next))
}

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	m, err := New("ledger_signer", "")
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/api/public/tokens/{token_id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, id := range []string{"aa", "bb"} {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/public/tokens/"+id, nil))
		assert.Equal(t, http.StatusNotFound, rr.Code)
	}

	assert.Equal(t, 2.0, gathered(t, m, "ledger_signer_http_requests_total", map[string]string{
		"method": http.MethodGet,
		"route":  "/api/public/tokens/{token_id}",
		"status": "404",
	}))

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, err := io.ReadAll(rr.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "ledger_signer_http_requests_total")
}
