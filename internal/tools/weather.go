package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Sibikrish3000/cr-agent/internal/config"
)

const defaultWeatherBaseURL = "http://api.openweathermap.org/data/2.5"

// Cache stores raw tool results keyed by tool name and input.
type Cache interface {
	Get(ctx context.Context, tool, input string) ([]byte, bool, error)
	Set(ctx context.Context, tool, input string, data []byte) error
}

// WeatherClient talks to the OpenWeatherMap REST API.
type WeatherClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	cache      Cache
}

// NewWeatherClient creates a weather client. cache may be nil.
func NewWeatherClient(cfg config.WeatherConfig, cache Cache) *WeatherClient {
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultWeatherBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &WeatherClient{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		cache:      cache,
	}
}

// Configured reports whether an API key is set.
func (c *WeatherClient) Configured() bool {
	return c.apiKey != ""
}

// ErrWeatherNotConfigured is returned when no API key is set.
var ErrWeatherNotConfigured = errors.New("weather API key not configured")

const weatherNotConfiguredMsg = "Weather API key not configured."

// APIError is a non-200 answer from the weather API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return "API Error: " + e.Body
}

// Current returns the current conditions for a city. Failures are reported under the "error" key.
func (c *WeatherClient) Current(ctx context.Context, city string) map[string]any {
	return asResult(c.Lookup(ctx, "weather", city))
}

// Forecast returns the 5 day / 3 hour forecast for a city. Failures are reported under the "error" key.
func (c *WeatherClient) Forecast(ctx context.Context, city string) map[string]any {
	return asResult(c.Lookup(ctx, "forecast", city))
}

// Lookup calls endpoint ("weather" or "forecast") for city in metric units.
func (c *WeatherClient) Lookup(ctx context.Context, endpoint, city string) (map[string]any, error) {
	if !c.Configured() {
		return nil, ErrWeatherNotConfigured
	}

	cacheTool := "weather_" + endpoint
	cacheKey := strings.ToLower(strings.TrimSpace(city))
	if c.cache != nil {
		if data, ok, err := c.cache.Get(ctx, cacheTool, cacheKey); err != nil {
			log.Warn().Err(err).Str("tool", cacheTool).Msg("Tool cache read failed")
		} else if ok {
			var cached map[string]any
			if err := json.Unmarshal(data, &cached); err == nil {
				return cached, nil
			}
		}
	}

	query := url.Values{}
	query.Set("q", city)
	query.Set("appid", c.apiKey)
	query.Set("units", "metric")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var result map[string]any
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, cacheTool, cacheKey, body); err != nil {
			log.Warn().Err(err).Str("tool", cacheTool).Msg("Tool cache write failed")
		}
	}

	return result, nil
}

func asResult(result map[string]any, err error) map[string]any {
	if errors.Is(err, ErrWeatherNotConfigured) {
		return errorResult(weatherNotConfiguredMsg)
	}
	if err != nil {
		return errorResult(err.Error())
	}
	return result
}

func errorResult(msg string) map[string]any {
	return map[string]any{"error": msg}
}

// ForecastCondition returns list[0].weather[0].main of a forecast, or "" when absent.
func ForecastCondition(forecast map[string]any) string {
	weather := firstEntry(firstEntry(forecast, "list"), "weather")
	main, _ := weather["main"].(string)
	return main
}

// ForecastSummary renders the first forecast entry as "{description}, {temp}°C".
// Responses without a forecast list are rendered as JSON, truncated to 200 characters.
func ForecastSummary(forecast map[string]any) string {
	if _, ok := forecast["list"]; !ok {
		data, _ := json.Marshal(forecast)
		return Truncate(string(data), 200)
	}

	first := firstEntry(forecast, "list")
	desc := "unknown"
	if d, ok := firstEntry(first, "weather")["description"].(string); ok {
		desc = d
	}

	temp := "N/A"
	if main, ok := first["main"].(map[string]any); ok {
		if t, ok := main["temp"].(float64); ok {
			temp = strconv.FormatFloat(t, 'f', -1, 64)
		}
	}

	return fmt.Sprintf("%s, %s°C", desc, temp)
}

func firstEntry(m map[string]any, key string) map[string]any {
	list, ok := m[key].([]any)
	if !ok || len(list) == 0 {
		return map[string]any{}
	}
	entry, _ := list[0].(map[string]any)
	if entry == nil {
		return map[string]any{}
	}
	return entry
}

// Truncate keeps at most n runes of s.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
