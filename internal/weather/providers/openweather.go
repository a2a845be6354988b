package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/i474232898/weather-logbook/internal/weather"
	"github.com/sony/gobreaker"
)

// DefaultOpenWeatherURL is the OpenWeatherMap current weather endpoint.
const DefaultOpenWeatherURL = "https://api.openweathermap.org/data/2.5/weather"

// OpenWeatherProvider implements weather.Fetcher for OpenWeatherMap. The
// request timeout is the http.Client's.
type OpenWeatherProvider struct {
	name    string
	baseURL string
	client  *http.Client
	circuit *gobreaker.CircuitBreaker
}

// NewOpenWeatherProvider creates a provider calling baseURL, or
// DefaultOpenWeatherURL when baseURL is empty.
func NewOpenWeatherProvider(client *http.Client, baseURL string) *OpenWeatherProvider {
	if baseURL == "" {
		baseURL = DefaultOpenWeatherURL
	}
	return &OpenWeatherProvider{
		name:    "openweathermap",
		baseURL: baseURL,
		client:  client,
		circuit: newCircuitBreaker("openweather"),
	}
}

func (p *OpenWeatherProvider) Name() string {
	return p.name
}

// FetchLatest issues one GET <baseURL>?q=<location key>&appid=<apiKey> and
// parses the body as a record. Units are left to upstream's default (Kelvin).
func (p *OpenWeatherProvider) FetchLatest(ctx context.Context, loc weather.Location, apiKey string) (weather.Record, error) {
	if strings.TrimSpace(apiKey) == "" {
		return weather.Record{}, weather.ErrConfigurationMissing
	}

	values := url.Values{}
	values.Set("q", loc.Key())
	values.Set("appid", apiKey)

	u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
	req, err := http.NewRequest(http.MethodGet, u, nil)
	if err != nil {
		return weather.Record{}, fmt.Errorf("%w: %v", weather.ErrNetwork, err)
	}

	body, err := doRequest(ctx, p.client, p.circuit, req)
	if err != nil {
		return weather.Record{}, fmt.Errorf("%w: %s: %v", weather.ErrNetwork, p.name, redact(err.Error(), apiKey))
	}

	return weather.ParseRecord(body)
}

// upstreamMessage extracts OpenWeatherMap's {"message": "..."} from an error
// body, falling back to a truncated body.
func upstreamMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		return payload.Message
	}
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}

// redact keeps the API key out of error messages; url.Error embeds the full URL.
func redact(msg, apiKey string) string {
	if apiKey == "" {
		return msg
	}
	return strings.ReplaceAll(msg, url.QueryEscape(apiKey), "REDACTED")
}
