package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strings"
)

const defaultOSRMURL = "http://router.project-osrm.org"

// calculateRoute geocodes both endpoints and asks an OSRM server for the
// fastest route.
type calculateRoute struct {
	geocodeURL string
	osrmURL    string
	httpClient *http.Client
}

type routeArgs struct {
	Start string `json:"start"`
	End   string `json:"end"`
	Mode  string `json:"mode"`
}

func newCalculateRoute(cfg Config) *calculateRoute {
	geocodeURL := cfg.GeocodeURL
	if geocodeURL == "" {
		geocodeURL = defaultGeocodeURL
	}
	osrmURL := cfg.OSRMURL
	if osrmURL == "" {
		osrmURL = defaultOSRMURL
	}
	return &calculateRoute{
		geocodeURL: geocodeURL,
		osrmURL:    strings.TrimRight(osrmURL, "/"),
		httpClient: newHTTPClient(cfg.RouteTimeout),
	}
}

func (t *calculateRoute) Name() string { return "calculate_route" }

func (t *calculateRoute) Run(ctx context.Context, raw map[string]any, _ Context) (map[string]any, error) {
	var args routeArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, Errorf("Invalid args for calculate_route: %v", err)
	}

	start := strings.TrimSpace(args.Start)
	end := strings.TrimSpace(args.End)
	if start == "" || end == "" {
		return nil, Errorf("Start und Ziel werden benötigt.")
	}

	lat1, lon1, name1, err := geocode(ctx, t.httpClient, t.geocodeURL, start, "de")
	if err != nil {
		return nil, Errorf("Konnte Adressen nicht finden: %v", err)
	}
	lat2, lon2, name2, err := geocode(ctx, t.httpClient, t.geocodeURL, end, "de")
	if err != nil {
		return nil, Errorf("Konnte Adressen nicht finden: %v", err)
	}

	profile := osrmProfile(args.Mode)

	// OSRM expects lon,lat pairs.
	routeURL := fmt.Sprintf("%s/route/v1/%s/%g,%g;%g,%g?overview=false",
		t.osrmURL, profile, lon1, lat1, lon2, lat2)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, routeURL, nil)
	if err != nil {
		return nil, Errorf("Routing-Server nicht erreichbar.")
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, Errorf("Routing-Server nicht erreichbar.")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, Errorf("Routing-Server nicht erreichbar.")
	}

	var data struct {
		Routes []struct {
			Duration float64 `json:"duration"`
			Distance float64 `json:"distance"`
		} `json:"routes"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, Errorf("Routing-Server nicht erreichbar.")
	}

	if len(data.Routes) == 0 {
		return nil, Errorf("Keine Route gefunden.")
	}

	route := data.Routes[0]
	return map[string]any{
		"start":            name1,
		"end":              name2,
		"mode":             profile,
		"duration_minutes": int(math.Round(route.Duration / 60)),
		"distance_km":      math.Round(route.Distance/10) / 100,
	}, nil
}

// osrmProfile maps free-form mode words to OSRM profiles.
func osrmProfile(mode string) string {
	m := strings.ToLower(mode)
	switch {
	case strings.Contains(m, "bike"), strings.Contains(m, "rad"), strings.Contains(m, "cycling"):
		return "cycling"
	case strings.Contains(m, "walk"), strings.Contains(m, "fuß"), strings.Contains(m, "foot"):
		return "walking"
	default:
		return "driving"
	}
}
