package weather

import (
	"testing"
)

func TestParseDaily(t *testing.T) {
	body := []byte(`{
		"daily": {
			"time": ["2024-03-01", "2024-03-02"],
			"temperature_2m_mean": [1.5, null],
			"temperature_2m_min": [-2.0, -3.0],
			"temperature_2m_max": [4.0, 2.0],
			"precipitation_sum": [0.0, 3.2],
			"snowfall_sum": [0.0, 1.4],
			"wind_speed_10m_max": [12.0, 18.0],
			"pressure_msl_mean": [1013.2, 1009.8],
			"sunshine_duration": [18000, null]
		}
	}`)
	days, err := parseDaily(body)
	if err != nil {
		t.Fatal(err)
	}
	if len(days) != 2 {
		t.Fatalf("got %d days, want 2", len(days))
	}

	d1 := days[0]
	if d1.Day.Format("2006-01-02") != "2024-03-01" {
		t.Errorf("day = %v", d1.Day)
	}
	if d1.TempAvg == nil || *d1.TempAvg != 1.5 {
		t.Errorf("TempAvg = %v", d1.TempAvg)
	}
	if d1.SunMin == nil || *d1.SunMin != 300 {
		t.Errorf("sunshine should convert seconds to minutes, got %v", d1.SunMin)
	}

	d2 := days[1]
	if d2.TempAvg != nil {
		t.Errorf("null TempAvg parsed as %v", *d2.TempAvg)
	}
	if d2.SnowMM == nil || *d2.SnowMM != 14 {
		t.Errorf("snow should convert cm to mm, got %v", d2.SnowMM)
	}
	if d2.SunMin != nil {
		t.Errorf("null sunshine parsed as %v", *d2.SunMin)
	}
}

func TestParseDailyEmpty(t *testing.T) {
	if _, err := parseDaily([]byte(`{"daily":{}}`)); err == nil {
		t.Error("expected error for response without daily.time")
	}
}
