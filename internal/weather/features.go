package weather

import (
	"math"
	"sort"
	"time"

	"github.com/avdeyev/npsenrich/internal/dates"
	"github.com/avdeyev/npsenrich/internal/models"
)

// Columns lists the weather features in output order. The geomagnetic
// columns that follow them in the final catalog live in the geomag package.
var Columns = []string{
	"wth_daylight_duration_cat", "wth_temp_feels_like_cat", "wth_precipitation_cat",
	"wth_wind_speed_cat", "wth_complex_weather_cat", "wth_bad_weather_last5_cat",
	"wth_extreme_temp_last5_cat", "wth_national_bad_weather_scale_cat",
	"wth_national_temp_anomaly_scale_cat", "wth_seasonal_temp_anomaly_cat",
	"wth_temp_change_cat", "wth_sunshine_ratio_cat", "wth_precipitation_change_cat",
	"wth_pressure_change_cat", "wth_wind_speed_change_cat",
}

// Key addresses one region-day in the feature table.
type Key struct {
	Region string
	Day    time.Time
}

// FeatureTable holds region-level features keyed by (region, local day) and
// national aggregates keyed by Moscow day.
type FeatureTable struct {
	regional map[Key]map[string]string
	national map[time.Time]map[string]string
}

func (t *FeatureTable) Regional(region string, day time.Time) (map[string]string, bool) {
	m, ok := t.regional[Key{Region: region, Day: day}]
	return m, ok
}

func (t *FeatureTable) National(mskDay time.Time) (map[string]string, bool) {
	m, ok := t.national[mskDay]
	return m, ok
}

// DaylightCategory bins hours of daylight. It is the one weather feature
// still computable when every station fetch fails, since it needs no network.
func DaylightCategory(hours float64) string {
	return binRight(hours,
		[]float64{-0.1, 8, 12, 16, 24.1},
		[]string{"очень короткий", "короткий", "длинный", "очень длинный"})
}

// FeelsLike applies the wind-chill formula; above 10 C or below 5 km/h wind
// it is just the air temperature.
func FeelsLike(t, w float64) float64 {
	if t > 10 || w < 5 {
		return t
	}
	wp := math.Pow(w, 0.16)
	return 13.12 + 0.6215*t - 11.37*wp + 0.3965*t*wp
}

type dayDerived struct {
	key     Key
	mskDay  time.Time
	bad     bool
	extreme bool
	feats   map[string]string
}

// BuildFeatures computes all weather features from the per-region daily rows.
// mskOf maps a (region, local day) to the Moscow day used for the national
// aggregates; pairs not present fall back to the local day itself.
func BuildFeatures(rows []models.WeatherDay, mskOf map[Key]time.Time) *FeatureTable {
	byRegion := make(map[string][]models.WeatherDay)
	for _, r := range rows {
		byRegion[r.Region] = append(byRegion[r.Region], r)
	}
	regionNames := make([]string, 0, len(byRegion))
	for name := range byRegion {
		regionNames = append(regionNames, name)
	}
	sort.Strings(regionNames)

	seasonal := seasonalMeans(byRegion)

	t := &FeatureTable{
		regional: make(map[Key]map[string]string),
		national: make(map[time.Time]map[string]string),
	}

	type natAgg struct {
		bad, extreme, n float64
	}
	national := make(map[time.Time]*natAgg)

	for _, region := range regionNames {
		days := byRegion[region]
		sort.Slice(days, func(i, j int) bool { return days[i].Day.Before(days[j].Day) })

		derived := make([]dayDerived, len(days))
		for i, w := range days {
			key := Key{Region: region, Day: w.Day}
			feats := make(map[string]string)

			if w.DaylightHours.Valid {
				setIf(feats, "wth_daylight_duration_cat", DaylightCategory(w.DaylightHours.Float64))
				sunMin := 0.0
				if w.SunshineMin.Valid {
					sunMin = w.SunshineMin.Float64
				}
				if w.DaylightHours.Float64 > 0 {
					setIf(feats, "wth_sunshine_ratio_cat", binRight(sunMin/60/w.DaylightHours.Float64,
						[]float64{-0.1, 0.1, 0.4, 0.7, 1.1},
						[]string{"пасмурно", "облачно", "переменная облачность", "ясно"}))
				}
			}

			feels := math.NaN()
			if w.TempAvg.Valid && w.WindKMH.Valid {
				feels = FeelsLike(w.TempAvg.Float64, w.WindKMH.Float64)
				setIf(feats, "wth_temp_feels_like_cat", binLeft(feels,
					[]float64{-100, -20, -5, 10, 20, 100},
					[]string{"экстр. холод", "холод", "прохладно", "комфорт", "жара"}))
			}

			precip := 0.0
			if w.PrecipMM.Valid {
				precip = w.PrecipMM.Float64
			}
			setIf(feats, "wth_precipitation_cat", binRight(precip,
				[]float64{-1, 0, 1, 5, 10000},
				[]string{"без осадков", "легкие", "умеренные", "сильные"}))

			wind := 0.0
			if w.WindKMH.Valid {
				wind = w.WindKMH.Float64
			}
			setIf(feats, "wth_wind_speed_cat", binRight(wind,
				[]float64{-1, 5, 15, 25, 10000},
				[]string{"штиль", "слабый", "умеренный", "сильный"}))

			// Day-over-day deltas need the immediately preceding
			// calendar day.
			var prev *models.WeatherDay
			if i > 0 && dates.DaysBetween(days[i-1].Day, w.Day) == 1 {
				prev = &days[i-1]
			}
			if prev != nil && prev.TempAvg.Valid && w.TempAvg.Valid {
				setIf(feats, "wth_temp_change_cat", binLeft(w.TempAvg.Float64-prev.TempAvg.Float64,
					[]float64{-100, -5, -2, 2, 5, 100},
					[]string{"сильное похолодание", "похолодание", "без изменений", "потепление", "сильное потепление"}))
			}
			if prev != nil && prev.Pressure.Valid && w.Pressure.Valid {
				setIf(feats, "wth_pressure_change_cat", binLeft(w.Pressure.Float64-prev.Pressure.Float64,
					[]float64{-1000, -5, -1, 1, 5, 1000},
					[]string{"сильное падение", "падение", "стабильно", "рост", "сильный рост"}))
			}
			if prev != nil && prev.WindKMH.Valid && w.WindKMH.Valid {
				setIf(feats, "wth_wind_speed_change_cat", binLeft(w.WindKMH.Float64-prev.WindKMH.Float64,
					[]float64{-100, -10, -3, 3, 10, 100},
					[]string{"сильно стих", "стих", "без изменений", "усилился", "сильно усилился"}))
			}
			prevPrecip := 0.0
			if prev != nil && prev.PrecipMM.Valid {
				prevPrecip = prev.PrecipMM.Float64
			}
			feats["wth_precipitation_change_cat"] = precipChange(prevPrecip, precip)

			anomaly := math.NaN()
			if w.TempAvg.Valid {
				if base, ok := seasonal[monthKey{region, w.Day.Year(), w.Day.Month()}]; ok {
					anomaly = w.TempAvg.Float64 - base
					setIf(feats, "wth_seasonal_temp_anomaly_cat", binLeft(anomaly,
						[]float64{-100, -8, -3, 3, 8, 100},
						[]string{"сильно холоднее", "холоднее нормы", "норма", "теплее нормы", "сильно теплее"}))
				}
			}

			complexCat := "спокойная"
			switch {
			case precip > 5 || wind > 25 || (!math.IsNaN(feels) && feels < -20):
				complexCat = "экстремальная"
			case precip > 0:
				complexCat = "осадки"
			}
			feats["wth_complex_weather_cat"] = complexCat

			msk, ok := mskOf[key]
			if !ok {
				msk = w.Day
			}
			derived[i] = dayDerived{
				key:     key,
				mskDay:  msk,
				bad:     complexCat != "спокойная",
				extreme: !math.IsNaN(anomaly) && (anomaly < -8 || anomaly >= 8),
				feats:   feats,
			}
		}

		// Rolling windows over the previous five rows, never the
		// current day.
		for i := range derived {
			badN, extN := 0, 0
			for j := i - 5; j < i; j++ {
				if j < 0 {
					continue
				}
				if derived[j].bad {
					badN++
				}
				if derived[j].extreme {
					extN++
				}
			}
			setIf(derived[i].feats, "wth_bad_weather_last5_cat", binRight(float64(badN),
				[]float64{-1, 0, 1, 3, 6},
				[]string{"0 дней", "1 день", "2-3 дня", "4-5 дней"}))
			setIf(derived[i].feats, "wth_extreme_temp_last5_cat", binRight(float64(extN),
				[]float64{-1, 0, 1, 3, 6},
				[]string{"0 дней", "1 день", "2-3 дня", "4+ дней"}))
		}

		for _, d := range derived {
			t.regional[d.key] = d.feats
			agg := national[d.mskDay]
			if agg == nil {
				agg = &natAgg{}
				national[d.mskDay] = agg
			}
			if d.bad {
				agg.bad++
			}
			if d.extreme {
				agg.extreme++
			}
			agg.n++
		}
	}

	for day, agg := range national {
		feats := make(map[string]string, 2)
		scale := []float64{-0.1, 0.1, 0.3, 0.6, 1.1}
		labels := []string{"локально", "местами", "многие регионы", "по всей стране"}
		setIf(feats, "wth_national_bad_weather_scale_cat", binRight(agg.bad/agg.n, scale, labels))
		setIf(feats, "wth_national_temp_anomaly_scale_cat", binRight(agg.extreme/agg.n, scale, labels))
		t.national[day] = feats
	}
	return t
}

func precipChange(prev, cur float64) string {
	switch {
	case prev <= 0 && cur > 0:
		return "Начались осадки"
	case prev > 0 && cur <= 0:
		return "Осадки прекратились"
	case cur > prev:
		return "Осадки усилились"
	case cur < prev:
		return "Осадки ослабли"
	}
	return "Без изменений"
}

type monthKey struct {
	region string
	year   int
	month  time.Month
}

// seasonalMeans returns the expected mean temperature per region-month: the
// expanding mean of the same month in strictly earlier years, with the first
// year backfilled from the next year's expectation. Regions with a single
// year of history get no expectation at all.
func seasonalMeans(byRegion map[string][]models.WeatherDay) map[monthKey]float64 {
	sums := make(map[monthKey]float64)
	counts := make(map[monthKey]int)
	for region, days := range byRegion {
		for _, w := range days {
			if !w.TempAvg.Valid {
				continue
			}
			k := monthKey{region, w.Day.Year(), w.Day.Month()}
			sums[k] += w.TempAvg.Float64
			counts[k]++
		}
	}
	monthly := make(map[monthKey]float64, len(sums))
	for k, s := range sums {
		monthly[k] = s / float64(counts[k])
	}

	yearsOf := make(map[string]map[time.Month][]int)
	for k := range monthly {
		if yearsOf[k.region] == nil {
			yearsOf[k.region] = make(map[time.Month][]int)
		}
		yearsOf[k.region][k.month] = append(yearsOf[k.region][k.month], k.year)
	}

	out := make(map[monthKey]float64)
	for region, months := range yearsOf {
		for month, years := range months {
			sort.Ints(years)
			expect := make([]float64, len(years))
			run, n := 0.0, 0
			for i, y := range years {
				if n > 0 {
					expect[i] = run / float64(n)
				} else {
					expect[i] = math.NaN()
				}
				run += monthly[monthKey{region, y, month}]
				n++
			}
			// Backfill leading years from the first computed value.
			for i := len(years) - 2; i >= 0; i-- {
				if math.IsNaN(expect[i]) {
					expect[i] = expect[i+1]
				}
			}
			for i, y := range years {
				if !math.IsNaN(expect[i]) {
					out[monthKey{region, y, month}] = expect[i]
				}
			}
		}
	}
	return out
}

func setIf(feats map[string]string, col, val string) {
	if val != "" {
		feats[col] = val
	}
}

// binRight buckets v into half-open intervals (edges[i], edges[i+1]].
// Values outside the outer edges produce no label.
func binRight(v float64, edges []float64, labels []string) string {
	for i := 0; i < len(labels); i++ {
		if v > edges[i] && v <= edges[i+1] {
			return labels[i]
		}
	}
	return ""
}

// binLeft buckets v into half-open intervals [edges[i], edges[i+1]).
func binLeft(v float64, edges []float64, labels []string) string {
	for i := 0; i < len(labels); i++ {
		if v >= edges[i] && v < edges[i+1] {
			return labels[i]
		}
	}
	return ""
}
