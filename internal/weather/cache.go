package weather

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "modernc.org/sqlite"

	"github.com/avdeyev/npsenrich/internal/models"
)

type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "Initial schema",
		SQL: `
CREATE TABLE IF NOT EXISTS weather_daily (
    region TEXT NOT NULL,
    day TEXT NOT NULL,
    tavg REAL,
    tmin REAL,
    tmax REAL,
    precip_mm REAL,
    snow_mm REAL,
    wspd_kmh REAL,
    pres REAL,
    tsun_min REAL,
    daylight_hours REAL,
    fetched_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (region, day)
);

CREATE TABLE IF NOT EXISTS weather_spans (
    region TEXT PRIMARY KEY,
    start_day TEXT NOT NULL,
    end_day TEXT NOT NULL,
    updated_at DATETIME
);
`,
	},
}

// Cache persists station-averaged daily weather per region so repeated runs
// over the same period skip the archive API entirely.
type Cache struct {
	db *sql.DB
}

// OpenCache opens (or creates) the sqlite cache at path and applies pending
// migrations.
func OpenCache(path string) (*Cache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open weather cache: %w", err)
	}
	c := &Cache{db: db}
	if err := c.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

func (c *Cache) Close() error { return c.db.Close() }

func (c *Cache) migrate() error {
	if _, err := c.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			description TEXT,
			applied_at DATETIME
		)
	`); err != nil {
		return fmt.Errorf("ensure migrations table: %w", err)
	}

	applied := make(map[int]bool)
	rows, err := c.db.Query("SELECT version FROM schema_migrations")
	if err != nil {
		return fmt.Errorf("get applied migrations: %w", err)
	}
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			rows.Close()
			return err
		}
		applied[v] = true
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	for _, m := range migrations {
		if applied[m.Version] {
			continue
		}
		log.Printf("weather cache: applying migration %d - %s", m.Version, m.Description)
		tx, err := c.db.Begin()
		if err != nil {
			return fmt.Errorf("begin tx for migration %d: %w", m.Version, err)
		}
		if _, err := tx.Exec(m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("execute migration %d: %w", m.Version, err)
		}
		if _, err := tx.Exec(
			"INSERT INTO schema_migrations (version, description, applied_at) VALUES (?, ?, ?)",
			m.Version, m.Description, time.Now().UTC(),
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}
	return nil
}

// Day columns are TEXT in this exact format: Covers relies on lexical
// comparison and RegionDays parses the stored value back.
const dayFormat = "2006-01-02"

// Covers reports whether the cached span for region contains [start, end].
func (c *Cache) Covers(region string, start, end time.Time) (bool, error) {
	var s, e string
	err := c.db.QueryRow(
		"SELECT start_day, end_day FROM weather_spans WHERE region = ?", region,
	).Scan(&s, &e)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return s <= start.Format(dayFormat) && e >= end.Format(dayFormat), nil
}

// RegionDays returns all cached rows for a region ordered by day.
func (c *Cache) RegionDays(region string) ([]models.WeatherDay, error) {
	rows, err := c.db.Query(`
		SELECT region, day, tavg, tmin, tmax, precip_mm, snow_mm, wspd_kmh, pres, tsun_min, daylight_hours
		FROM weather_daily WHERE region = ? ORDER BY day
	`, region)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.WeatherDay
	for rows.Next() {
		var w models.WeatherDay
		var day string
		if err := rows.Scan(&w.Region, &day, &w.TempAvg, &w.TempMin, &w.TempMax,
			&w.PrecipMM, &w.SnowMM, &w.WindKMH, &w.Pressure, &w.SunshineMin, &w.DaylightHours); err != nil {
			return nil, err
		}
		d, err := time.Parse(dayFormat, day)
		if err != nil {
			return nil, fmt.Errorf("bad cached day %q: %w", day, err)
		}
		w.Day = d
		out = append(out, w)
	}
	return out, rows.Err()
}

// ReplaceRegion swaps the cached rows and span for a region atomically.
func (c *Cache) ReplaceRegion(region string, days []models.WeatherDay, start, end time.Time) error {
	tx, err := c.db.Begin()
	if err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM weather_daily WHERE region = ?", region); err != nil {
		tx.Rollback()
		return err
	}
	for _, w := range days {
		if _, err := tx.Exec(`
			INSERT INTO weather_daily (region, day, tavg, tmin, tmax, precip_mm, snow_mm, wspd_kmh, pres, tsun_min, daylight_hours)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(region, day) DO UPDATE SET
				tavg = excluded.tavg,
				tmin = excluded.tmin,
				tmax = excluded.tmax,
				precip_mm = excluded.precip_mm,
				snow_mm = excluded.snow_mm,
				wspd_kmh = excluded.wspd_kmh,
				pres = excluded.pres,
				tsun_min = excluded.tsun_min,
				daylight_hours = excluded.daylight_hours
		`, region, w.Day.Format(dayFormat), w.TempAvg, w.TempMin, w.TempMax,
			w.PrecipMM, w.SnowMM, w.WindKMH, w.Pressure, w.SunshineMin, w.DaylightHours); err != nil {
			tx.Rollback()
			return err
		}
	}
	if _, err := tx.Exec(`
		INSERT INTO weather_spans (region, start_day, end_day, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(region) DO UPDATE SET
			start_day = excluded.start_day,
			end_day = excluded.end_day,
			updated_at = excluded.updated_at
	`, region, start.Format(dayFormat), end.Format(dayFormat), time.Now().UTC()); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}
