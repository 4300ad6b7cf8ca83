package tools

import (
	"context"
	"testing"
	"time"

	"github.com/heimassist/assistant-platform/internal/model"
)

func TestGetDatetimeGermanLocale(t *testing.T) {
	fixed := time.Date(2024, 3, 15, 13, 45, 0, 0, time.UTC) // a Friday
	tool := &getDatetime{now: func() time.Time { return fixed }}

	settings := model.DefaultSettings()
	result, err := tool.Run(context.Background(), nil, Context{Settings: settings})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result["weekday"] != "Freitag" {
		t.Errorf("weekday = %v, want Freitag", result["weekday"])
	}
	if result["timezone"] != "Europe/Berlin" {
		t.Errorf("timezone = %v, want Europe/Berlin", result["timezone"])
	}
	// Berlin is UTC+1 in March (before DST switch on the last Sunday).
	if result["local_datetime"] != "15.03.2024 14:45" {
		t.Errorf("local_datetime = %v", result["local_datetime"])
	}
	if result["date"] != "2024-03-15" {
		t.Errorf("date = %v", result["date"])
	}
}

func TestGetDatetimeInvalidTimezoneFallsBackToUTC(t *testing.T) {
	fixed := time.Date(2024, 6, 2, 8, 0, 0, 0, time.UTC)
	tool := &getDatetime{now: func() time.Time { return fixed }}

	settings := model.DefaultSettings()
	settings.Timezone = "Mars/Olympus_Mons"
	settings.Locale = "en-US"

	result, err := tool.Run(context.Background(), nil, Context{Settings: settings})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result["timezone"] != "UTC" {
		t.Errorf("timezone = %v, want UTC", result["timezone"])
	}
	if result["weekday"] != "Sunday" {
		t.Errorf("weekday = %v, want Sunday (en locale)", result["weekday"])
	}
	if result["local_datetime"] != "2024-06-02 08:00" {
		t.Errorf("local_datetime = %v", result["local_datetime"])
	}
}
