package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Observers(t *testing.T) {
	m := New()

	m.ObserveRoute("weather_agent")
	m.ObserveRoute("weather_agent")
	m.ObserveToolCall("get_current_weather", 120*time.Millisecond)
	m.ObserveLLMCall("openai", 350, nil)
	m.ObserveLLMCall("openai", 10, errors.New("rate limited"))
	m.ObserveRAGScore("persistent", 0.62)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.routes.WithLabelValues("weather_agent")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.toolCalls.WithLabelValues("get_current_weather")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.llmCalls.WithLabelValues("openai", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.llmCalls.WithLabelValues("openai", "error")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.ragScores))
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.ObserveRoute("sql_agent")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `cr_agent_routes_total{agent="sql_agent"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
