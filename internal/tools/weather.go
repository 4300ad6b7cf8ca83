package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
)

const (
	defaultGeocodeURL  = "https://geocoding-api.open-meteo.com/v1/search"
	defaultForecastURL = "https://api.open-meteo.com/v1/forecast"
)

// getWeather resolves a location (argument or configured default) and
// fetches a current + 3-day forecast from Open-Meteo.
type getWeather struct {
	geocodeURL  string
	forecastURL string
	httpClient  *http.Client
}

type weatherArgs struct {
	Location string `json:"location"`
}

func newGetWeather(cfg Config) *getWeather {
	geocodeURL := cfg.GeocodeURL
	if geocodeURL == "" {
		geocodeURL = defaultGeocodeURL
	}
	forecastURL := cfg.ForecastURL
	if forecastURL == "" {
		forecastURL = defaultForecastURL
	}
	return &getWeather{
		geocodeURL:  geocodeURL,
		forecastURL: forecastURL,
		httpClient:  newHTTPClient(cfg.WeatherTimeout),
	}
}

func (t *getWeather) Name() string { return "get_weather" }

func (t *getWeather) Run(ctx context.Context, raw map[string]any, tc Context) (map[string]any, error) {
	var args weatherArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, Errorf("Invalid args for get_weather: %v", err)
	}

	tz := tc.Settings.Timezone
	if tz == "" {
		tz = "Europe/Berlin"
	}
	units := tc.Settings.Units
	if units == "" {
		units = "metric"
	}

	var (
		lat, lon     float64
		resolvedName string
	)
	location := strings.TrimSpace(args.Location)
	if location != "" {
		var err error
		lat, lon, resolvedName, err = geocode(ctx, t.httpClient, t.geocodeURL, location, localeLanguage(tc.Settings.Locale))
		if err != nil {
			return nil, err
		}
	} else {
		if tc.Settings.DefaultLat == nil || tc.Settings.DefaultLon == nil {
			return nil, Errorf("Default location nicht gesetzt. Bitte in den Settings default_lat/default_lon setzen oder eine Location angeben.")
		}
		lat = *tc.Settings.DefaultLat
		lon = *tc.Settings.DefaultLon
		resolvedName = tc.Settings.DefaultLocationName
		if resolvedName == "" {
			resolvedName = "Default Location"
		}
	}

	raw2, err := t.forecast(ctx, lat, lon, tz, units)
	if err != nil {
		return nil, err
	}

	current, _ := raw2["current"].(map[string]any)
	daily, _ := raw2["daily"].(map[string]any)

	times := anyStrings(daily["time"])
	tmax := anyFloats(daily["temperature_2m_max"])
	tmin := anyFloats(daily["temperature_2m_min"])
	psum := anyFloats(daily["precipitation_sum"])
	wmax := anyFloats(daily["wind_speed_10m_max"])

	days := make([]map[string]any, 0, 3)
	for i := 0; i < len(times) && i < 3; i++ {
		days = append(days, map[string]any{
			"date":              times[i],
			"temp_max":          floatAt(tmax, i),
			"temp_min":          floatAt(tmin, i),
			"precipitation_sum": floatAt(psum, i),
			"wind_max":          floatAt(wmax, i),
		})
	}

	out := map[string]any{
		"location": map[string]any{
			"name":      resolvedName,
			"latitude":  lat,
			"longitude": lon,
		},
		"timezone": tz,
		"units":    units,
		"forecast": days,
	}
	if current != nil {
		out["current"] = map[string]any{
			"time":          current["time"],
			"temperature":   current["temperature_2m"],
			"wind_speed":    current["wind_speed_10m"],
			"precipitation": current["precipitation"],
		}
	}
	return out, nil
}

func (t *getWeather) forecast(ctx context.Context, lat, lon float64, tz, units string) (map[string]any, error) {
	params := url.Values{
		"latitude":  {fmt.Sprintf("%g", lat)},
		"longitude": {fmt.Sprintf("%g", lon)},
		"timezone":  {tz},
		"current":   {"temperature_2m,wind_speed_10m,precipitation"},
		"daily":     {"temperature_2m_max,temperature_2m_min,precipitation_sum,wind_speed_10m_max"},
		"forecast_days": {"4"},
	}
	for k, v := range unitParams(units) {
		params.Set(k, v)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.forecastURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, Errorf("Weather request failed")
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, Errorf("Weather request timeout")
		}
		return nil, Errorf("Weather request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, Errorf("Weather request failed")
	}

	var data map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, Errorf("Weather request failed")
	}
	return data, nil
}

// unitParams maps the configured unit system to explicit Open-Meteo units.
func unitParams(units string) map[string]string {
	if units == "imperial" {
		return map[string]string{
			"temperature_unit":   "fahrenheit",
			"wind_speed_unit":    "mph",
			"precipitation_unit": "inch",
		}
	}
	return map[string]string{
		"temperature_unit":   "celsius",
		"wind_speed_unit":    "kmh",
		"precipitation_unit": "mm",
	}
}

// geocode resolves a place name to coordinates and a display name via the
// Open-Meteo geocoding API.
func geocode(ctx context.Context, client *http.Client, baseURL, name, language string) (float64, float64, string, error) {
	params := url.Values{
		"name":     {name},
		"count":    {"1"},
		"language": {language},
		"format":   {"json"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return 0, 0, "", Errorf("Geocoding fehlgeschlagen für: %s", name)
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, 0, "", Errorf("Geocoding fehlgeschlagen für: %s", name)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, 0, "", Errorf("Geocoding fehlgeschlagen für: %s", name)
	}

	var data struct {
		Results []struct {
			Latitude  *float64 `json:"latitude"`
			Longitude *float64 `json:"longitude"`
			Name      string   `json:"name"`
			Country   string   `json:"country"`
			Admin1    string   `json:"admin1"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return 0, 0, "", Errorf("Geocoding fehlgeschlagen für: %s", name)
	}

	if len(data.Results) == 0 {
		return 0, 0, "", Errorf("Ort nicht gefunden: %s", name)
	}

	top := data.Results[0]
	if top.Latitude == nil || top.Longitude == nil {
		return 0, 0, "", Errorf("Geocoding fehlgeschlagen für: %s", name)
	}

	parts := make([]string, 0, 3)
	for _, p := range []string{top.Name, top.Admin1, top.Country} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	display := name
	if len(parts) > 0 {
		display = strings.Join(parts, ", ")
	}

	return *top.Latitude, *top.Longitude, display, nil
}

func localeLanguage(locale string) string {
	if i := strings.IndexAny(locale, "-_"); i > 0 {
		locale = locale[:i]
	}
	if locale == "" {
		return "de"
	}
	return strings.ToLower(locale)
}

func isTimeout(err error) bool {
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, os.ErrDeadlineExceeded) || errors.Is(err, context.DeadlineExceeded)
}

func anyStrings(v any) []string {
	items, _ := v.([]any)
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func anyFloats(v any) []any {
	items, _ := v.([]any)
	return items
}

func floatAt(items []any, i int) any {
	if i < len(items) {
		return items[i]
	}
	return nil
}
