package weather

import (
	"database/sql"
	"math"
	"testing"
	"time"

	"github.com/avdeyev/npsenrich/internal/models"
)

func f(v float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: true}
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestFeelsLike(t *testing.T) {
	if got := FeelsLike(15, 30); got != 15 {
		t.Errorf("warm day should pass through, got %.2f", got)
	}
	if got := FeelsLike(-10, 3); got != -10 {
		t.Errorf("calm day should pass through, got %.2f", got)
	}
	got := FeelsLike(-10, 20)
	if math.Abs(got-(-17.86)) > 0.1 {
		t.Errorf("FeelsLike(-10, 20) = %.2f, want about -17.86", got)
	}
	if FeelsLike(-10, 20) >= -10 {
		t.Error("wind chill should lower the apparent temperature")
	}
}

func TestDayLength(t *testing.T) {
	if got := DayLength(0, day(2024, 3, 20)); math.Abs(got-12) > 0.5 {
		t.Errorf("equatorial day length = %.2f, want about 12", got)
	}
	if got := DayLength(55.75, day(2024, 6, 21)); got < 16.5 || got > 18 {
		t.Errorf("Moscow June day length = %.2f, want 16.5..18", got)
	}
	if got := DayLength(55.75, day(2024, 12, 21)); got < 6 || got > 7.5 {
		t.Errorf("Moscow December day length = %.2f, want 6..7.5", got)
	}
	if got := DayLength(75, day(2024, 12, 21)); got != 0 {
		t.Errorf("polar night day length = %.2f, want 0", got)
	}
	if got := DayLength(75, day(2024, 6, 21)); got != 24 {
		t.Errorf("polar day length = %.2f, want 24", got)
	}
}

func TestBinEdges(t *testing.T) {
	edges := []float64{-1, 0, 1, 5, 10000}
	labels := []string{"без осадков", "легкие", "умеренные", "сильные"}
	tests := []struct {
		v    float64
		want string
	}{
		{0, "без осадков"},
		{0.5, "легкие"},
		{1, "легкие"},
		{1.1, "умеренные"},
		{5, "умеренные"},
		{5.1, "сильные"},
	}
	for _, tt := range tests {
		if got := binRight(tt.v, edges, labels); got != tt.want {
			t.Errorf("binRight(%v) = %q, want %q", tt.v, got, tt.want)
		}
	}

	ledges := []float64{-100, -20, -5, 10, 20, 100}
	llabels := []string{"экстр. холод", "холод", "прохладно", "комфорт", "жара"}
	ltests := []struct {
		v    float64
		want string
	}{
		{-20, "холод"},
		{-20.01, "экстр. холод"},
		{-5, "прохладно"},
		{9.99, "прохладно"},
		{10, "комфорт"},
		{20, "жара"},
		{150, ""},
	}
	for _, tt := range ltests {
		if got := binLeft(tt.v, ledges, llabels); got != tt.want {
			t.Errorf("binLeft(%v) = %q, want %q", tt.v, got, tt.want)
		}
	}
}

func TestPrecipChange(t *testing.T) {
	tests := []struct {
		prev, cur float64
		want      string
	}{
		{0, 0, "Без изменений"},
		{0, 2, "Начались осадки"},
		{2, 0, "Осадки прекратились"},
		{1, 3, "Осадки усилились"},
		{3, 1, "Осадки ослабли"},
	}
	for _, tt := range tests {
		if got := precipChange(tt.prev, tt.cur); got != tt.want {
			t.Errorf("precipChange(%v, %v) = %q, want %q", tt.prev, tt.cur, got, tt.want)
		}
	}
}

func TestBuildFeaturesRegional(t *testing.T) {
	rows := []models.WeatherDay{
		{Region: "Регион А", Day: day(2024, 3, 1), TempAvg: f(0), WindKMH: f(30), PrecipMM: f(10), Pressure: f(1010), DaylightHours: f(10)},
		{Region: "Регион А", Day: day(2024, 3, 2), TempAvg: f(1), WindKMH: f(10), PrecipMM: f(0), Pressure: f(1013), DaylightHours: f(10.1)},
		{Region: "Регион А", Day: day(2024, 3, 3), TempAvg: f(4.5), WindKMH: f(10), PrecipMM: f(2), Pressure: f(1019), DaylightHours: f(10.2)},
	}
	table := BuildFeatures(rows, nil)

	d1, ok := table.Regional("Регион А", day(2024, 3, 1))
	if !ok {
		t.Fatal("no features for first day")
	}
	checks := map[string]string{
		"wth_precipitation_cat":    "сильные",
		"wth_wind_speed_cat":       "сильный",
		"wth_complex_weather_cat":  "экстремальная",
		"wth_daylight_duration_cat": "короткий",
		"wth_bad_weather_last5_cat": "0 дней", // own day never counts
	}
	for col, want := range checks {
		if got := d1[col]; got != want {
			t.Errorf("day1 %s = %q, want %q", col, got, want)
		}
	}
	if _, ok := d1["wth_temp_change_cat"]; ok {
		t.Error("day1 has temp change without a previous day")
	}

	d2, _ := table.Regional("Регион А", day(2024, 3, 2))
	checks2 := map[string]string{
		"wth_complex_weather_cat":      "спокойная",
		"wth_precipitation_change_cat": "Осадки прекратились",
		"wth_temp_change_cat":          "без изменений",
		"wth_wind_speed_change_cat":    "сильно стих",
		"wth_pressure_change_cat":      "рост",
		"wth_bad_weather_last5_cat":    "1 день",
	}
	for col, want := range checks2 {
		if got := d2[col]; got != want {
			t.Errorf("day2 %s = %q, want %q", col, got, want)
		}
	}

	d3, _ := table.Regional("Регион А", day(2024, 3, 3))
	checks3 := map[string]string{
		"wth_complex_weather_cat":      "осадки",
		"wth_precipitation_cat":        "умеренные",
		"wth_precipitation_change_cat": "Начались осадки",
		"wth_temp_change_cat":          "потепление",
		"wth_pressure_change_cat":      "сильный рост",
		"wth_bad_weather_last5_cat":    "1 день",
	}
	for col, want := range checks3 {
		if got := d3[col]; got != want {
			t.Errorf("day3 %s = %q, want %q", col, got, want)
		}
	}
}

func TestBuildFeaturesDeltaNeedsAdjacentDay(t *testing.T) {
	rows := []models.WeatherDay{
		{Region: "Регион А", Day: day(2024, 3, 1), TempAvg: f(0), WindKMH: f(10), Pressure: f(1010)},
		{Region: "Регион А", Day: day(2024, 3, 5), TempAvg: f(10), WindKMH: f(10), Pressure: f(1020)},
	}
	table := BuildFeatures(rows, nil)
	d, _ := table.Regional("Регион А", day(2024, 3, 5))
	for _, col := range []string{"wth_temp_change_cat", "wth_pressure_change_cat", "wth_wind_speed_change_cat"} {
		if v, ok := d[col]; ok {
			t.Errorf("%s = %q across a four-day gap, want missing", col, v)
		}
	}
}

func TestBuildFeaturesNationalScale(t *testing.T) {
	d := day(2024, 3, 1)
	rows := []models.WeatherDay{
		{Region: "Регион А", Day: d, TempAvg: f(0), WindKMH: f(30), PrecipMM: f(10)},
		{Region: "Регион Б", Day: d, TempAvg: f(0), WindKMH: f(3), PrecipMM: f(0)},
	}
	table := BuildFeatures(rows, nil)
	nat, ok := table.National(d)
	if !ok {
		t.Fatal("no national features")
	}
	if got := nat["wth_national_bad_weather_scale_cat"]; got != "многие регионы" {
		t.Errorf("bad weather scale at 50%% = %q, want многие регионы", got)
	}
	if got := nat["wth_national_temp_anomaly_scale_cat"]; got != "локально" {
		t.Errorf("temp anomaly scale at 0%% = %q, want локально", got)
	}
}

func TestBuildFeaturesNationalKeyedByMoscowDay(t *testing.T) {
	local := day(2024, 3, 2)
	msk := day(2024, 3, 1)
	rows := []models.WeatherDay{
		{Region: "Регион А", Day: local, TempAvg: f(0), WindKMH: f(30), PrecipMM: f(10)},
	}
	table := BuildFeatures(rows, map[Key]time.Time{{Region: "Регион А", Day: local}: msk})
	if _, ok := table.National(local); ok {
		t.Error("national features keyed by local day despite mapping")
	}
	if _, ok := table.National(msk); !ok {
		t.Error("national features missing for the mapped Moscow day")
	}
}

func TestSeasonalAnomalyUsesPriorYears(t *testing.T) {
	var rows []models.WeatherDay
	for d := 1; d <= 3; d++ {
		rows = append(rows, models.WeatherDay{Region: "Регион А", Day: day(2023, 1, d), TempAvg: f(-5), WindKMH: f(3)})
		rows = append(rows, models.WeatherDay{Region: "Регион А", Day: day(2024, 1, d), TempAvg: f(-20), WindKMH: f(3)})
	}
	table := BuildFeatures(rows, nil)

	d23, _ := table.Regional("Регион А", day(2023, 1, 2))
	if got := d23["wth_seasonal_temp_anomaly_cat"]; got != "норма" {
		t.Errorf("first year anomaly = %q, want норма (backfilled expectation)", got)
	}
	d24, _ := table.Regional("Регион А", day(2024, 1, 2))
	if got := d24["wth_seasonal_temp_anomaly_cat"]; got != "сильно холоднее" {
		t.Errorf("second year anomaly = %q, want сильно холоднее", got)
	}
}

func TestSeasonalAnomalySingleYearMissing(t *testing.T) {
	rows := []models.WeatherDay{
		{Region: "Регион А", Day: day(2024, 1, 1), TempAvg: f(-5), WindKMH: f(3)},
		{Region: "Регион А", Day: day(2024, 1, 2), TempAvg: f(-6), WindKMH: f(3)},
	}
	table := BuildFeatures(rows, nil)
	d, _ := table.Regional("Регион А", day(2024, 1, 2))
	if v, ok := d["wth_seasonal_temp_anomaly_cat"]; ok {
		t.Errorf("anomaly = %q with one year of history, want missing", v)
	}
}
