package model

// Settings is a snapshot of the assistant-wide preferences. It is read once
// per request and passed explicitly into the context builder and the tools,
// never fetched ad hoc from inside the pipeline.
type Settings struct {
	Timezone            string   `json:"timezone"`
	Locale              string   `json:"locale"`
	Country             string   `json:"country"`
	DefaultLocationName string   `json:"default_location_name"`
	DefaultLat          *float64 `json:"default_lat"`
	DefaultLon          *float64 `json:"default_lon"`
	Units               string   `json:"units"`
}

// DefaultSettings returns the settings used until an operator changes them.
func DefaultSettings() Settings {
	return Settings{
		Timezone: "Europe/Berlin",
		Locale:   "de-DE",
		Country:  "DE",
		Units:    "metric",
	}
}
