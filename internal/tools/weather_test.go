package tools

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sibikrish3000/cr-agent/internal/config"
	redisrepo "github.com/Sibikrish3000/cr-agent/internal/repository/redis"
)

const forecastBody = `{"list":[{"main":{"temp":24.5},"weather":[{"main":"Rain","description":"light rain"}]}]}`

func newWeatherServer(t *testing.T, status int, body string) (*httptest.Server, *int32) {
	t.Helper()
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		assert.Equal(t, "metric", r.URL.Query().Get("units"))
		assert.Equal(t, "test-key", r.URL.Query().Get("appid"))
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestWeatherClient_NotConfigured(t *testing.T) {
	c := NewWeatherClient(config.WeatherConfig{}, nil)

	result := c.Current(context.Background(), "Chennai")
	assert.Equal(t, "Weather API key not configured.", result["error"])

	_, err := c.Lookup(context.Background(), "forecast", "Chennai")
	assert.ErrorIs(t, err, ErrWeatherNotConfigured)
	assert.Equal(t, "weather API key not configured", err.Error())
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "Light", Truncate("Light rain", 5))
	assert.Equal(t, "Sunny", Truncate("Sunny", 200))
	assert.Equal(t, "☀️", Truncate("☀️ Clear", 2))
}

func TestWeatherClient_Current(t *testing.T) {
	srv, _ := newWeatherServer(t, http.StatusOK, `{"name":"Chennai","main":{"temp":31.2}}`)
	c := NewWeatherClient(config.WeatherConfig{APIKey: "test-key", BaseURL: srv.URL}, nil)

	result := c.Current(context.Background(), "Chennai")
	assert.Equal(t, "Chennai", result["name"])
	assert.NotContains(t, result, "error")
}

func TestWeatherClient_APIError(t *testing.T) {
	srv, _ := newWeatherServer(t, http.StatusNotFound, `{"cod":"404","message":"city not found"}`)
	c := NewWeatherClient(config.WeatherConfig{APIKey: "test-key", BaseURL: srv.URL}, nil)

	result := c.Forecast(context.Background(), "Atlantis")
	assert.Equal(t, `API Error: {"cod":"404","message":"city not found"}`, result["error"])

	_, err := c.Lookup(context.Background(), "forecast", "Atlantis")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
}

func TestWeatherClient_UsesCache(t *testing.T) {
	srv, hits := newWeatherServer(t, http.StatusOK, forecastBody)
	mr := miniredis.RunT(t)
	client := redisrepo.Wrap(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { client.Close() })

	c := NewWeatherClient(config.WeatherConfig{APIKey: "test-key", BaseURL: srv.URL}, redisrepo.NewToolCache(client, time.Minute))

	first := c.Forecast(context.Background(), "Chennai")
	second := c.Forecast(context.Background(), "chennai")

	assert.Equal(t, int32(1), atomic.LoadInt32(hits))
	assert.Equal(t, ForecastSummary(first), ForecastSummary(second))
}

func TestForecastSummary(t *testing.T) {
	tests := []struct {
		name     string
		forecast map[string]any
		want     string
	}{
		{
			name: "first entry",
			forecast: map[string]any{"list": []any{
				map[string]any{
					"main":    map[string]any{"temp": 24.5},
					"weather": []any{map[string]any{"main": "Rain", "description": "light rain"}},
				},
			}},
			want: "light rain, 24.5°C",
		},
		{
			name:     "empty list",
			forecast: map[string]any{"list": []any{}},
			want:     "unknown, N/A°C",
		},
		{
			name:     "error result",
			forecast: map[string]any{"error": "Weather API key not configured."},
			want:     `{"error":"Weather API key not configured."}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ForecastSummary(tt.forecast))
		})
	}
}

func TestForecastCondition(t *testing.T) {
	forecast := map[string]any{"list": []any{
		map[string]any{"weather": []any{map[string]any{"main": "Clouds"}}},
	}}
	assert.Equal(t, "Clouds", ForecastCondition(forecast))
	assert.Empty(t, ForecastCondition(map[string]any{}))
}
