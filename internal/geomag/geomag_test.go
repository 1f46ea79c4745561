package geomag

import (
	"testing"
	"time"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestParseIndex(t *testing.T) {
	body := []byte(`{
		"datetime": ["2024-03-01 00:00:00", "2024-03-01 03:00:00", "2024-03-02 00:00:00"],
		"Kp": [2.0, 4.0, 6.0]
	}`)
	samples, err := ParseIndex(body)
	if err != nil {
		t.Fatal(err)
	}
	if len(samples) != 3 {
		t.Fatalf("got %d samples, want 3", len(samples))
	}
	if samples[1].Value != 4.0 {
		t.Errorf("sample value = %v", samples[1].Value)
	}
}

func TestParseIndexSkipsNulls(t *testing.T) {
	body := []byte(`{
		"datetime": ["2024-03-01 00:00:00", "2024-03-01 03:00:00"],
		"ap": [7, null]
	}`)
	samples, err := ParseIndex(body)
	if err != nil {
		t.Fatal(err)
	}
	if len(samples) != 1 || samples[0].Value != 7 {
		t.Fatalf("samples = %+v", samples)
	}
}

func TestParseIndexRejectsMismatch(t *testing.T) {
	if _, err := ParseIndex([]byte(`{"datetime":["2024-03-01"],"Kp":[1,2]}`)); err == nil {
		t.Error("expected error for mismatched arrays")
	}
	if _, err := ParseIndex([]byte(`{}`)); err == nil {
		t.Error("expected error for empty payload")
	}
}

func TestDailyMeans(t *testing.T) {
	kp := []Sample{
		{At: day(2024, 3, 1).Add(0 * time.Hour), Value: 2},
		{At: day(2024, 3, 1).Add(3 * time.Hour), Value: 4},
		{At: day(2024, 3, 2), Value: 6},
	}
	ap := []Sample{
		{At: day(2024, 3, 1), Value: 10},
	}
	days := DailyMeans(kp, ap)
	if len(days) != 2 {
		t.Fatalf("got %d days, want 2", len(days))
	}
	if !days[0].KpDaily.Valid || days[0].KpDaily.Float64 != 3 {
		t.Errorf("Kp mean = %+v, want 3", days[0].KpDaily)
	}
	if !days[0].ApDaily.Valid || days[0].ApDaily.Float64 != 10 {
		t.Errorf("ap mean = %+v", days[0].ApDaily)
	}
	if days[1].ApDaily.Valid {
		t.Error("day without ap samples should be null")
	}
}

func TestStormLevel(t *testing.T) {
	tests := []struct {
		kp   float64
		want string
	}{
		{2, "спокойно"},
		{4, "спокойно"},
		{4.5, "слабая буря"},
		{5.5, "умеренная буря"},
		{7, "сильная буря"},
		{9, "экстремальная буря"},
	}
	for _, tt := range tests {
		if got := StormLevel(tt.kp); got != tt.want {
			t.Errorf("StormLevel(%v) = %q, want %q", tt.kp, got, tt.want)
		}
	}
}

func TestStormChange(t *testing.T) {
	tests := []struct {
		d    float64
		want string
	}{
		{2, "резкий рост"},
		{1, "рост"},
		{0.2, "стабильно"},
		{-0.4, "стабильно"},
		{-1, "падение"},
		{-2, "резкое падение"},
	}
	for _, tt := range tests {
		if got := StormChange(tt.d); got != tt.want {
			t.Errorf("StormChange(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestBuildFeatures(t *testing.T) {
	kp := []Sample{
		{At: day(2024, 3, 1), Value: 2},
		{At: day(2024, 3, 2), Value: 6},
		{At: day(2024, 3, 3), Value: 5},
	}
	mag := DailyMeans(kp, nil)
	days := []time.Time{day(2024, 3, 1), day(2024, 3, 2), day(2024, 3, 3), day(2024, 3, 4), {}}
	feats := BuildFeatures(mag, days)

	if got := feats[day(2024, 3, 1)]["mag_storm_change_cat"]; got != "нет данных" {
		t.Errorf("first day change = %q, want нет данных", got)
	}
	if got := feats[day(2024, 3, 2)]["mag_storm_level_cat"]; got != "умеренная буря" {
		t.Errorf("level = %q", got)
	}
	if got := feats[day(2024, 3, 2)]["mag_storm_change_cat"]; got != "резкий рост" {
		t.Errorf("change = %q, want резкий рост (2 -> 6)", got)
	}
	if got := feats[day(2024, 3, 3)]["mag_storm_change_cat"]; got != "падение" {
		t.Errorf("change = %q, want падение (6 -> 5)", got)
	}
	// March 4 has no reading and takes the record-level median (5).
	if got := feats[day(2024, 3, 4)]["mag_storm_level_cat"]; got != "слабая буря" {
		t.Errorf("median-filled level = %q, want слабая буря", got)
	}
	if _, ok := feats[time.Time{}]; ok {
		t.Error("zero day should be skipped")
	}
}

func TestBuildFeaturesMedianWeighsRecords(t *testing.T) {
	kp := []Sample{
		{At: day(2024, 3, 1), Value: 2},
		{At: day(2024, 3, 2), Value: 6},
	}
	mag := DailyMeans(kp, nil)
	// Three records fall on the stormy day, one on the calm day: the
	// imputation median follows the records (6), not the index table (4).
	days := []time.Time{
		day(2024, 3, 2), day(2024, 3, 2), day(2024, 3, 2),
		day(2024, 3, 1), day(2024, 3, 4),
	}
	feats := BuildFeatures(mag, days)
	if got := feats[day(2024, 3, 4)]["mag_storm_level_cat"]; got != "умеренная буря" {
		t.Errorf("imputed level = %q, want умеренная буря (record-weighted median 6)", got)
	}
}

func TestBuildFeaturesNoOverlap(t *testing.T) {
	kp := []Sample{{At: day(2024, 3, 1), Value: 2}}
	if feats := BuildFeatures(DailyMeans(kp, nil), []time.Time{day(2024, 5, 1)}); feats != nil {
		t.Errorf("no overlap with the index should yield nil, got %v", feats)
	}
}

func TestBuildFeaturesEmptyTable(t *testing.T) {
	if feats := BuildFeatures(nil, []time.Time{day(2024, 3, 1)}); feats != nil {
		t.Errorf("expected nil features for empty table, got %v", feats)
	}
	u := Unavailable()
	if u["mag_storm_level_cat"] != "данные недоступны" || u["mag_storm_change_cat"] != "данные недоступны" {
		t.Errorf("Unavailable() = %v", u)
	}
}
