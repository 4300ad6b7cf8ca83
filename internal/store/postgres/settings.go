package postgres

import (
	"context"
	"fmt"

	"github.com/heimassist/assistant-platform/internal/model"
)

// Settings reads the singleton settings row.
func (s *PGStore) Settings(ctx context.Context) (model.Settings, error) {
	var set model.Settings
	err := s.db.QueryRow(ctx,
		`SELECT timezone, locale, country, default_location_name, default_lat, default_lon, units
		 FROM assistant_settings WHERE id = 1`,
	).Scan(&set.Timezone, &set.Locale, &set.Country, &set.DefaultLocationName,
		&set.DefaultLat, &set.DefaultLon, &set.Units)
	if err != nil {
		return model.Settings{}, fmt.Errorf("store: settings: %w", err)
	}
	return set, nil
}

// UpdateSettings replaces the singleton settings row.
func (s *PGStore) UpdateSettings(ctx context.Context, set model.Settings) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO assistant_settings (id, timezone, locale, country, default_location_name, default_lat, default_lon, units)
		 VALUES (1, $1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (id) DO UPDATE SET
		   timezone = EXCLUDED.timezone,
		   locale = EXCLUDED.locale,
		   country = EXCLUDED.country,
		   default_location_name = EXCLUDED.default_location_name,
		   default_lat = EXCLUDED.default_lat,
		   default_lon = EXCLUDED.default_lon,
		   units = EXCLUDED.units`,
		set.Timezone, set.Locale, set.Country, set.DefaultLocationName,
		set.DefaultLat, set.DefaultLon, set.Units,
	)
	if err != nil {
		return fmt.Errorf("store: update settings: %w", err)
	}
	return nil
}
