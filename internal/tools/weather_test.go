package tools

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/heimassist/assistant-platform/internal/model"
)

func geocodeServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := r.URL.Query().Get("name")
		if strings.Contains(name, "Nirgendwo") {
			fmt.Fprint(w, `{"results": []}`)
			return
		}
		fmt.Fprintf(w, `{"results": [{"latitude": 52.52, "longitude": 13.405, "name": %q, "country": "Deutschland", "admin1": "Berlin"}]}`, name)
	}))
}

func forecastServer(t *testing.T, check func(r *http.Request)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			check(r)
		}
		fmt.Fprint(w, `{
			"current": {"time": "2024-03-15T14:00", "temperature_2m": 11.5, "wind_speed_10m": 18.0, "precipitation": 0.0},
			"daily": {
				"time": ["2024-03-15", "2024-03-16", "2024-03-17", "2024-03-18"],
				"temperature_2m_max": [12.1, 13.0, 9.8, 8.0],
				"temperature_2m_min": [4.2, 5.1, 3.0, 2.0],
				"precipitation_sum": [0.0, 1.2, 4.5, 0.3],
				"wind_speed_10m_max": [20.0, 15.0, 30.0, 12.0]
			}
		}`)
	}))
}

func TestGetWeatherWithLocation(t *testing.T) {
	geo := geocodeServer(t)
	defer geo.Close()

	var gotUnits string
	fc := forecastServer(t, func(r *http.Request) {
		gotUnits = r.URL.Query().Get("temperature_unit")
		if r.URL.Query().Get("forecast_days") != "4" {
			t.Errorf("forecast_days = %q, want 4", r.URL.Query().Get("forecast_days"))
		}
	})
	defer fc.Close()

	tool := newGetWeather(Config{GeocodeURL: geo.URL, ForecastURL: fc.URL, WeatherTimeout: 2 * time.Second})

	result, err := tool.Run(context.Background(), map[string]any{"location": "Berlin"}, Context{Settings: model.DefaultSettings()})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if gotUnits != "celsius" {
		t.Errorf("temperature_unit = %q, want celsius", gotUnits)
	}

	loc, ok := result["location"].(map[string]any)
	if !ok {
		t.Fatalf("location missing: %v", result)
	}
	if loc["name"] != "Berlin, Berlin, Deutschland" {
		t.Errorf("location name = %v", loc["name"])
	}

	days, ok := result["forecast"].([]map[string]any)
	if !ok || len(days) != 3 {
		t.Fatalf("forecast = %v, want 3 days", result["forecast"])
	}
	if days[0]["date"] != "2024-03-15" {
		t.Errorf("first day = %v", days[0])
	}

	current, ok := result["current"].(map[string]any)
	if !ok {
		t.Fatalf("current missing: %v", result)
	}
	if current["temperature"] != 11.5 {
		t.Errorf("current temperature = %v", current["temperature"])
	}
}

func TestGetWeatherImperialUnits(t *testing.T) {
	geo := geocodeServer(t)
	defer geo.Close()

	var gotTemp, gotWind string
	fc := forecastServer(t, func(r *http.Request) {
		gotTemp = r.URL.Query().Get("temperature_unit")
		gotWind = r.URL.Query().Get("wind_speed_unit")
	})
	defer fc.Close()

	settings := model.DefaultSettings()
	settings.Units = "imperial"

	tool := newGetWeather(Config{GeocodeURL: geo.URL, ForecastURL: fc.URL})
	if _, err := tool.Run(context.Background(), map[string]any{"location": "Boston"}, Context{Settings: settings}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if gotTemp != "fahrenheit" || gotWind != "mph" {
		t.Errorf("units sent = %q/%q, want fahrenheit/mph", gotTemp, gotWind)
	}
}

func TestGetWeatherDefaultLocation(t *testing.T) {
	fc := forecastServer(t, func(r *http.Request) {
		if r.URL.Query().Get("latitude") != "48.1" {
			t.Errorf("latitude = %q, want 48.1", r.URL.Query().Get("latitude"))
		}
	})
	defer fc.Close()

	lat, lon := 48.1, 11.6
	settings := model.DefaultSettings()
	settings.DefaultLat = &lat
	settings.DefaultLon = &lon
	settings.DefaultLocationName = "München"

	tool := newGetWeather(Config{ForecastURL: fc.URL})
	result, err := tool.Run(context.Background(), nil, Context{Settings: settings})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	loc := result["location"].(map[string]any)
	if loc["name"] != "München" {
		t.Errorf("location name = %v, want München", loc["name"])
	}
}

func TestGetWeatherNoLocationNoDefault(t *testing.T) {
	tool := newGetWeather(Config{})

	_, err := tool.Run(context.Background(), nil, Context{Settings: model.DefaultSettings()})
	if err == nil {
		t.Fatal("expected error without location and defaults")
	}
	te, ok := err.(*ToolError)
	if !ok {
		t.Fatalf("error type = %T, want *ToolError", err)
	}
	if !strings.Contains(te.Message, "Default location nicht gesetzt") {
		t.Errorf("message = %q", te.Message)
	}
}

func TestGetWeatherUnknownPlace(t *testing.T) {
	geo := geocodeServer(t)
	defer geo.Close()

	tool := newGetWeather(Config{GeocodeURL: geo.URL})

	_, err := tool.Run(context.Background(), map[string]any{"location": "Nirgendwo"}, Context{Settings: model.DefaultSettings()})
	if err == nil {
		t.Fatal("expected error for unknown place")
	}
	if !strings.Contains(err.Error(), "Ort nicht gefunden: Nirgendwo") {
		t.Errorf("error = %v", err)
	}
}
