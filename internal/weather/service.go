package weather

import (
	"context"
	"database/sql"
	"log"
	"time"

	"github.com/avdeyev/npsenrich/internal/dates"
	"github.com/avdeyev/npsenrich/internal/metrics"
	"github.com/avdeyev/npsenrich/internal/models"
	"github.com/avdeyev/npsenrich/internal/regions"
)

// Service assembles station-averaged daily weather per region, backed by the
// sqlite cache. The cache is reused only when it covers the whole requested
// range; otherwise the region is refetched in full.
type Service struct {
	client *Client
	cache  *Cache
}

func NewService(client *Client, cache *Cache) *Service {
	return &Service{client: client, cache: cache}
}

// RegionDaily returns daily weather for a region over [start, end]. One extra
// leading day is always included so day-over-day deltas have a base. When
// every station fetch fails the region yields no rows and nothing is cached.
func (s *Service) RegionDaily(ctx context.Context, region string, coords []regions.Coord, tz string, start, end time.Time) ([]models.WeatherDay, error) {
	if len(coords) == 0 {
		return nil, nil
	}
	fetchStart := dates.AddDays(start, -1)

	if s.cache != nil {
		covered, err := s.cache.Covers(region, fetchStart, end)
		if err != nil {
			log.Printf("weather: cache check for %s: %v", region, err)
		} else if covered {
			rows, err := s.cache.RegionDays(region)
			if err == nil {
				metrics.WeatherCacheTotal.WithLabelValues("hit").Inc()
				return rows, nil
			}
			log.Printf("weather: cache read for %s: %v", region, err)
		}
		metrics.WeatherCacheTotal.WithLabelValues("miss").Inc()
	}

	rows := s.fetchRegion(ctx, region, coords, tz, fetchStart, end)
	if len(rows) == 0 {
		return nil, nil
	}
	if s.cache != nil {
		if err := s.cache.ReplaceRegion(region, rows, fetchStart, end); err != nil {
			log.Printf("weather: cache write for %s: %v", region, err)
		}
	}
	return rows, nil
}

func (s *Service) fetchRegion(ctx context.Context, region string, coords []regions.Coord, tz string, start, end time.Time) []models.WeatherDay {
	type agg struct {
		sum map[string]float64
		n   map[string]int
	}
	byDay := make(map[time.Time]*agg)

	fetched := 0
	for _, c := range coords {
		stationDays, err := s.client.FetchDaily(ctx, c.Lat, c.Lon, tz, start, end)
		if err != nil {
			metrics.WeatherFetchErrorsTotal.WithLabelValues(region).Inc()
			log.Printf("weather: station %.4f,%.4f for %s: %v", c.Lat, c.Lon, region, err)
			continue
		}
		fetched++
		for _, sd := range stationDays {
			day := dates.Day(sd.Day)
			a := byDay[day]
			if a == nil {
				a = &agg{sum: make(map[string]float64), n: make(map[string]int)}
				byDay[day] = a
			}
			add := func(field string, v *float64) {
				if v != nil {
					a.sum[field] += *v
					a.n[field]++
				}
			}
			add("tavg", sd.TempAvg)
			add("tmin", sd.TempMin)
			add("tmax", sd.TempMax)
			add("prcp", sd.PrecipMM)
			add("snow", sd.SnowMM)
			add("wspd", sd.WindKMH)
			add("pres", sd.Pressure)
			add("tsun", sd.SunMin)
		}
	}

	if fetched == 0 {
		// The region simply lacks weather features; fabricating rows here
		// would read as calm weather downstream and poison the cache span.
		log.Printf("weather: all stations failed for %s, dropping region", region)
		return nil
	}

	var out []models.WeatherDay
	for day := start; !day.After(end); day = dates.AddDays(day, 1) {
		a, ok := byDay[day]
		if !ok {
			continue
		}
		w := models.WeatherDay{Region: region, Day: day}
		get := func(field string) (float64, bool) {
			if a.n[field] == 0 {
				return 0, false
			}
			return a.sum[field] / float64(a.n[field]), true
		}
		if v, ok := get("tavg"); ok {
			w.TempAvg = nullable(v)
		}
		if v, ok := get("tmin"); ok {
			w.TempMin = nullable(v)
		}
		if v, ok := get("tmax"); ok {
			w.TempMax = nullable(v)
		}
		if v, ok := get("prcp"); ok {
			w.PrecipMM = nullable(v)
		}
		if v, ok := get("snow"); ok {
			w.SnowMM = nullable(v)
		}
		if v, ok := get("wspd"); ok {
			w.WindKMH = nullable(v)
		}
		if v, ok := get("pres"); ok {
			w.Pressure = nullable(v)
		}
		if v, ok := get("tsun"); ok {
			w.SunshineMin = nullable(v)
		}
		if !w.TempAvg.Valid && w.TempMin.Valid && w.TempMax.Valid {
			w.TempAvg = nullable((w.TempMin.Float64 + w.TempMax.Float64) / 2)
		}
		w.DaylightHours = nullable(DayLength(coords[0].Lat, day))
		out = append(out, w)
	}
	return out
}

func nullable(v float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: true}
}
