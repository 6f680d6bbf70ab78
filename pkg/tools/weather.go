package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const openWeatherEndpoint = "https://api.openweathermap.org/data/2.5/weather"

// WeatherTool fetches current conditions from OpenWeatherMap. An empty API
// key is a runtime failure result, not a construction error: the rest of the
// assistant works without it.
type WeatherTool struct {
	apiKey   string
	endpoint string
	client   *http.Client
}

func NewWeatherTool(apiKey string) *WeatherTool {
	return &WeatherTool{
		apiKey:   apiKey,
		endpoint: openWeatherEndpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (t *WeatherTool) Name() string { return "get_weather" }

func (t *WeatherTool) Description() string {
	return "Get the current weather for a city."
}

func (t *WeatherTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"city": map[string]any{
				"type":        "string",
				"description": "City name, e.g. 'Mumbai' or 'London'",
			},
		},
		"required": []string{"city"},
	}
}

type openWeatherResponse struct {
	Name    string `json:"name"`
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Humidity  int     `json:"humidity"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"` // m/s in metric mode
	} `json:"wind"`
}

func (t *WeatherTool) Execute(ctx context.Context, args map[string]any) *Result {
	city := stringArg(args, "city")
	if city == "" {
		return Fail("city is required")
	}
	if t.apiKey == "" {
		return Fail("weather service is not configured")
	}

	query := url.Values{}
	query.Set("q", city)
	query.Set("appid", t.apiKey)
	query.Set("units", "metric")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return Fail(fmt.Sprintf("weather request failed: %v", err))
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return Fail(fmt.Sprintf("weather service unreachable: %v", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return Fail(fmt.Sprintf("could not find weather for %q", city))
	}
	if resp.StatusCode != http.StatusOK {
		return Fail(fmt.Sprintf("weather service returned status %d", resp.StatusCode))
	}

	var payload openWeatherResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Fail(fmt.Sprintf("could not parse weather response: %v", err))
	}

	description := ""
	if len(payload.Weather) > 0 {
		description = payload.Weather[0].Description
	}
	return Ok(map[string]any{
		"city":        payload.Name,
		"description": description,
		"temp_c":      payload.Main.Temp,
		"feels_like":  payload.Main.FeelsLike,
		"humidity":    payload.Main.Humidity,
		"wind_kmh":    payload.Wind.Speed * 3.6,
	})
}
