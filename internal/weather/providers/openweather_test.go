package providers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/i474232898/weather-logbook/internal/weather"
)

const currentWeather = `{"weather":[{"id":500,"main":"Rain","description":"light rain"}],"main":{"temp":281.4,"feels_like":279.9,"humidity":87},"visibility":9000,"clouds":{"all":90},"dt":1700000000,"timezone":3600,"name":"London","cod":200}`

func TestOpenWeatherFetchLatest(t *testing.T) {
	var gotQuery, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		gotKey = r.URL.Query().Get("appid")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(currentWeather))
	}))
	defer srv.Close()

	p := NewOpenWeatherProvider(srv.Client(), srv.URL)
	loc := weather.Location{City: "Austin", State: "TX", Country: "US"}

	rec, err := p.FetchLatest(context.Background(), loc, "secret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotQuery != "Austin,TX,US" {
		t.Errorf("expected q=Austin,TX,US, got %q", gotQuery)
	}
	if gotKey != "secret" {
		t.Errorf("expected appid=secret, got %q", gotKey)
	}
	if string(rec.Raw()) != currentWeather {
		t.Error("expected the response body to be kept verbatim")
	}
}

func TestOpenWeatherMakesExactlyOneRequest(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, `{"cod":500,"message":"internal error"}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := NewOpenWeatherProvider(srv.Client(), srv.URL)
	_, err := p.FetchLatest(context.Background(), weather.Location{City: "London", Country: "UK"}, "secret")

	if !errors.Is(err, weather.ErrNetwork) {
		t.Fatalf("expected ErrNetwork, got %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("expected exactly 1 request, got %d", n)
	}
}

func TestOpenWeatherClientErrorMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"cod":401,"message":"Invalid API key. Please see https://openweathermap.org/faq#error401 for more info."}`))
	}))
	defer srv.Close()

	p := NewOpenWeatherProvider(srv.Client(), srv.URL)
	_, err := p.FetchLatest(context.Background(), weather.Location{City: "London", Country: "UK"}, "bad")

	if !errors.Is(err, weather.ErrNetwork) {
		t.Fatalf("expected ErrNetwork, got %v", err)
	}
	if !strings.Contains(err.Error(), "401 Invalid API key") {
		t.Errorf("expected upstream message in error, got %v", err)
	}
}

func TestOpenWeatherMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"cod":200,"main":{"temp":280}}`))
	}))
	defer srv.Close()

	p := NewOpenWeatherProvider(srv.Client(), srv.URL)
	_, err := p.FetchLatest(context.Background(), weather.Location{City: "London", Country: "UK"}, "secret")

	if !errors.Is(err, weather.ErrMalformedRecord) {
		t.Fatalf("expected ErrMalformedRecord, got %v", err)
	}
}

func TestOpenWeatherTransportErrorRedactsKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	client := srv.Client()
	client.Timeout = 20 * time.Millisecond
	p := NewOpenWeatherProvider(client, srv.URL)

	_, err := p.FetchLatest(context.Background(), weather.Location{City: "London", Country: "UK"}, "topsecret")
	if !errors.Is(err, weather.ErrNetwork) {
		t.Fatalf("expected ErrNetwork, got %v", err)
	}
	if strings.Contains(err.Error(), "topsecret") {
		t.Errorf("expected the api key to be redacted, got %v", err)
	}
}

func TestOpenWeatherCircuitOpens(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	p := NewOpenWeatherProvider(srv.Client(), srv.URL)
	loc := weather.Location{City: "London", Country: "UK"}

	for i := 0; i < 5; i++ {
		if _, err := p.FetchLatest(context.Background(), loc, "secret"); err == nil {
			t.Fatal("expected an error")
		}
	}

	_, err := p.FetchLatest(context.Background(), loc, "secret")
	if !errors.Is(err, weather.ErrNetwork) || !strings.Contains(err.Error(), "circuit breaker open") {
		t.Fatalf("expected an open circuit network error, got %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 5 {
		t.Errorf("expected 5 requests to reach the server, got %d", n)
	}
}

func TestOpenWeatherRequiresKey(t *testing.T) {
	p := NewOpenWeatherProvider(http.DefaultClient, "")
	_, err := p.FetchLatest(context.Background(), weather.Location{City: "London", Country: "UK"}, "")
	if !errors.Is(err, weather.ErrConfigurationMissing) {
		t.Fatalf("expected ErrConfigurationMissing, got %v", err)
	}
}
