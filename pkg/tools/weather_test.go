package tools

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestWeatherTool_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") != "Pune" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"name": "Pune",
			"weather": [{"description": "clear sky"}],
			"main": {"temp": 28.5, "feels_like": 29.1, "humidity": 40},
			"wind": {"speed": 5.0}
		}`))
	}))
	defer server.Close()

	tool := NewWeatherTool("test-key")
	tool.endpoint = server.URL

	result := tool.Execute(context.Background(), map[string]any{"city": "Pune"})
	if !result.Success {
		t.Fatalf("unexpected failure: %s", result.Error)
	}
	if result.Data["city"] != "Pune" || result.Data["description"] != "clear sky" {
		t.Fatalf("unexpected payload: %+v", result.Data)
	}
	if result.Data["wind_kmh"] != 18.0 {
		t.Fatalf("expected wind 18 km/h, got %v", result.Data["wind_kmh"])
	}
}

func TestWeatherTool_CityNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	tool := NewWeatherTool("test-key")
	tool.endpoint = server.URL

	result := tool.Execute(context.Background(), map[string]any{"city": "Atlantis"})
	if result.Success {
		t.Fatalf("expected failure for unknown city")
	}
	if !strings.Contains(result.Error, "Atlantis") {
		t.Fatalf("error should name the city: %q", result.Error)
	}
}

func TestWeatherTool_Unconfigured(t *testing.T) {
	tool := NewWeatherTool("")
	result := tool.Execute(context.Background(), map[string]any{"city": "Pune"})
	if result.Success {
		t.Fatalf("expected failure without api key")
	}
	if result.Error != "weather service is not configured" {
		t.Fatalf("unexpected error %q", result.Error)
	}
}

func TestWeatherTool_RequiresCity(t *testing.T) {
	tool := NewWeatherTool("key")
	if result := tool.Execute(context.Background(), map[string]any{}); result.Success {
		t.Fatalf("expected failure without city")
	}
}
