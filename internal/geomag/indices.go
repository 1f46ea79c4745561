// Package geomag derives geomagnetic storm features from planetary Kp and ap
// index files as published by GFZ Potsdam.
package geomag

import (
	"database/sql"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/tidwall/gjson"

	"github.com/avdeyev/npsenrich/internal/dates"
	"github.com/avdeyev/npsenrich/internal/models"
)

// Sample is one index reading.
type Sample struct {
	At    time.Time
	Value float64
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// LoadIndexFile reads a JSON index file with parallel "datetime" and value
// arrays; the value array is "Kp" or "ap", whichever is present.
func LoadIndexFile(path string) ([]Sample, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read index file: %w", err)
	}
	return ParseIndex(body)
}

// ParseIndex parses the GFZ JSON payload.
func ParseIndex(body []byte) ([]Sample, error) {
	root := gjson.ParseBytes(body)
	times := root.Get("datetime").Array()
	if len(times) == 0 {
		return nil, fmt.Errorf("index payload has no datetime array")
	}
	values := root.Get("Kp").Array()
	if len(values) == 0 {
		values = root.Get("ap").Array()
	}
	if len(values) != len(times) {
		return nil, fmt.Errorf("index payload arrays disagree: %d datetimes, %d values", len(times), len(values))
	}

	out := make([]Sample, 0, len(times))
	for i, tr := range times {
		at, err := parseTime(tr.String())
		if err != nil {
			return nil, err
		}
		if values[i].Type == gjson.Null {
			continue
		}
		out = append(out, Sample{At: at, Value: values[i].Float()})
	}
	return out, nil
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized datetime %q", s)
}

// DailyMeans averages Kp and ap samples down to calendar days.
func DailyMeans(kp, ap []Sample) []models.MagneticDay {
	type acc struct {
		kpSum, apSum float64
		kpN, apN     int
	}
	byDay := make(map[time.Time]*acc)
	get := func(day time.Time) *acc {
		a := byDay[day]
		if a == nil {
			a = &acc{}
			byDay[day] = a
		}
		return a
	}
	for _, s := range kp {
		a := get(dates.Day(s.At))
		a.kpSum += s.Value
		a.kpN++
	}
	for _, s := range ap {
		a := get(dates.Day(s.At))
		a.apSum += s.Value
		a.apN++
	}

	days := make([]time.Time, 0, len(byDay))
	for d := range byDay {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	out := make([]models.MagneticDay, 0, len(days))
	for _, d := range days {
		a := byDay[d]
		m := models.MagneticDay{Day: d}
		if a.kpN > 0 {
			m.KpDaily = sql.NullFloat64{Float64: a.kpSum / float64(a.kpN), Valid: true}
		}
		if a.apN > 0 {
			m.ApDaily = sql.NullFloat64{Float64: a.apSum / float64(a.apN), Valid: true}
		}
		out = append(out, m)
	}
	return out
}
