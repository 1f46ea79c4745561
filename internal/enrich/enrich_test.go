package enrich

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/avdeyev/npsenrich/internal/models"
	"github.com/avdeyev/npsenrich/internal/regions"
	"github.com/avdeyev/npsenrich/internal/weather"
)

func newTestPipeline(t *testing.T) *Pipeline {
	t.Helper()
	resolver, err := regions.NewResolverWithFinder(nil)
	if err != nil {
		t.Fatal(err)
	}
	return New(resolver, nil, Config{})
}

func TestRunEndToEnd(t *testing.T) {
	p := newTestPipeline(t)
	recs := []*models.Record{
		{
			BusinessDT: time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC),
			Region:     "Московской области",
		},
		{
			Region: "Пермского края", // no timestamp at all
		},
	}

	catalog, err := p.Run(context.Background(), recs)
	if err != nil {
		t.Fatal(err)
	}

	r := recs[0]
	if r.RegionStd != "Московская область" {
		t.Errorf("RegionStd = %q", r.RegionStd)
	}
	if r.TZ != "Europe/Moscow" {
		t.Errorf("TZ = %q", r.TZ)
	}
	wantDay := time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC)
	if !r.MSKDay.Equal(wantDay) || !r.DayLocal.Equal(wantDay) {
		t.Errorf("MSKDay = %v, DayLocal = %v, want %v", r.MSKDay, r.DayLocal, wantDay)
	}

	checks := map[string]string{
		"cal_season":               "Весна",
		"cal_month_phase3":         "середина",
		"знак_Солнца":              "Овен",
		"mag_storm_level_cat":      "данные недоступны",
		"news_day_group7":          "нет",
		"news_holiday_overlay_cat": "нет",
		"astro_tension_last5_cat":  "Спокойно",
	}
	for col, want := range checks {
		if got, _ := r.Feature(col); got != want {
			t.Errorf("%s = %q, want %q", col, got, want)
		}
	}

	// The record without a timestamp degrades to neutral calendar features
	// and never receives date-keyed ones.
	if got, _ := recs[1].Feature("cal_day_type3"); got != "рабочий" {
		t.Errorf("neutral day type = %q", got)
	}
	if _, ok := recs[1].Feature("знак_Солнца"); ok {
		t.Error("record without a date should have no astro features")
	}

	inCatalog := make(map[string]bool, len(catalog))
	for _, col := range catalog {
		inCatalog[col] = true
	}
	for _, col := range []string{"cal_season", "знак_Солнца", "mag_storm_level_cat", "news_day_group7", "astro_tension_last5_cat"} {
		if !inCatalog[col] {
			t.Errorf("catalog missing %s", col)
		}
	}
	// No weather service wired, so no weather columns may appear.
	if inCatalog["wth_daylight_duration_cat"] {
		t.Error("catalog should not list weather columns without a weather service")
	}
}

type rejectTransport struct{}

func (rejectTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return &http.Response{
		StatusCode: http.StatusBadRequest,
		Body:       io.NopCloser(strings.NewReader("bad request")),
		Header:     make(http.Header),
		Request:    req,
	}, nil
}

func TestRunWeatherUnavailableKeepsDaylightOnly(t *testing.T) {
	resolver, err := regions.NewResolverWithFinder(nil)
	if err != nil {
		t.Fatal(err)
	}
	svc := weather.NewService(weather.NewClient(&http.Client{Transport: rejectTransport{}}), nil)
	p := New(resolver, svc, Config{})

	rec := &models.Record{
		BusinessDT: time.Date(2024, 6, 20, 12, 0, 0, 0, time.UTC),
		Region:     "Московской области",
	}
	catalog, err := p.Run(context.Background(), []*models.Record{rec})
	if err != nil {
		t.Fatal(err)
	}

	if got, _ := rec.Feature("wth_daylight_duration_cat"); got != "очень длинный" {
		t.Errorf("June daylight near Moscow = %q, want очень длинный", got)
	}
	// Nothing but daylight: a dead weather source must not surface as calm
	// weather.
	for _, col := range []string{"wth_precipitation_cat", "wth_wind_speed_cat", "wth_complex_weather_cat"} {
		if v, ok := rec.Feature(col); ok {
			t.Errorf("%s = %q, want unset when all stations fail", col, v)
		}
	}
	inCatalog := make(map[string]bool, len(catalog))
	for _, col := range catalog {
		inCatalog[col] = true
	}
	if !inCatalog["wth_daylight_duration_cat"] {
		t.Error("catalog missing the daylight column")
	}
	if inCatalog["wth_complex_weather_cat"] {
		t.Error("catalog lists weather columns that were never produced")
	}
}

func TestRunUnreadableEventFeedDegrades(t *testing.T) {
	resolver, err := regions.NewResolverWithFinder(nil)
	if err != nil {
		t.Fatal(err)
	}
	// A directory opens fine but fails on read, unlike the missing-file path.
	p := New(resolver, nil, Config{EventsPath: t.TempDir()})

	rec := &models.Record{
		BusinessDT: time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC),
		Region:     "Московской области",
	}
	if _, err := p.Run(context.Background(), []*models.Record{rec}); err != nil {
		t.Fatalf("broken news feed must not abort the run: %v", err)
	}
	if got, _ := rec.Feature("news_day_group7"); got != "нет" {
		t.Errorf("news_day_group7 = %q, want the empty-feed default", got)
	}
}

func TestRunEmptyDataset(t *testing.T) {
	p := newTestPipeline(t)
	if _, err := p.Run(context.Background(), nil); err == nil {
		t.Fatal("expected error for empty dataset")
	}
}

func TestMissingness(t *testing.T) {
	full := &models.Record{}
	full.SetFeature("cal_season", "Весна")
	full.SetFeature("знак_Солнца", "Овен")
	partial := &models.Record{}
	partial.SetFeature("cal_season", "Зима")

	gaps := Missingness([]*models.Record{full, partial}, []string{"cal_season", "знак_Солнца"})
	if len(gaps) != 1 {
		t.Fatalf("got %d gaps, want 1", len(gaps))
	}
	if gaps[0].Column != "знак_Солнца" || gaps[0].Pct != 50 {
		t.Errorf("gap = %+v", gaps[0])
	}
	if gaps[0].Group != "Астрология" {
		t.Errorf("group = %q", gaps[0].Group)
	}
}

func TestFeatureGroup(t *testing.T) {
	tests := []struct {
		col, want string
	}{
		{"cal_day_type3", "Календарь"},
		{"wth_wind_speed_cat", "Погода и геомагнетизм"},
		{"mag_storm_level_cat", "Погода и геомагнетизм"},
		{"news_tone_day_cat", "Новости"},
		{"astro_tension_last5_cat", "Астрология"},
		{"фаза_луны", "Астрология"},
		{"segment", "Прочее"},
	}
	for _, tt := range tests {
		if got := FeatureGroup(tt.col); got != tt.want {
			t.Errorf("FeatureGroup(%q) = %q, want %q", tt.col, got, tt.want)
		}
	}
}
