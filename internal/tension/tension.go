// Package tension scores the rolling astronomical background: a weighted sum
// of retrograde, ingress, station and eclipse days over a trailing window,
// computed per timezone so the day boundaries stay local.
package tension

import (
	"fmt"
	"sort"
	"time"

	"github.com/avdeyev/npsenrich/internal/astro"
	"github.com/avdeyev/npsenrich/internal/models"
)

// DefaultWindow is the trailing window length in days.
const DefaultWindow = 5

const (
	weightRetro   = 1
	weightIngress = 2
	weightStation = 3
	weightEclipse = 5
)

// Column returns the feature name for a window length.
func Column(window int) string {
	return fmt.Sprintf("astro_tension_last%d_cat", window)
}

// dayScore is the event weight contributed by a single day.
func dayScore(c *astro.Context) int {
	s := 0
	if c.RetroAny {
		s += weightRetro
	}
	if c.IngressAny {
		s += weightIngress
	}
	if c.StationAny {
		s += weightStation
	}
	if c.LunarEclipse {
		s += weightEclipse
	}
	if c.SolarEclipse {
		s += weightEclipse
	}
	return s
}

// Enrich sets the tension feature for each record. The score of a day is the
// sum of event weights over the preceding window days observed in the same
// timezone; the day itself never contributes.
func Enrich(engine *astro.Engine, recs []*models.Record, window int) {
	if window <= 0 {
		window = DefaultWindow
	}
	col := Column(window)

	type tzDay struct {
		tz  string
		day time.Time
	}
	uniq := make(map[tzDay]bool)
	byTZ := make(map[string][]time.Time)
	for _, r := range recs {
		if r.DayLocal.IsZero() || r.TZ == "" {
			continue
		}
		k := tzDay{tz: r.TZ, day: r.DayLocal}
		if !uniq[k] {
			uniq[k] = true
			byTZ[r.TZ] = append(byTZ[r.TZ], r.DayLocal)
		}
	}

	scores := make(map[tzDay]int)
	for tz, days := range byTZ {
		sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
		perDay := make([]int, len(days))
		for i, d := range days {
			perDay[i] = dayScore(engine.Context(d, tz))
		}
		for i, d := range days {
			total := 0
			for j := i - window; j < i; j++ {
				if j >= 0 {
					total += perDay[j]
				}
			}
			scores[tzDay{tz: tz, day: d}] = total
		}
	}

	for _, r := range recs {
		if r.DayLocal.IsZero() || r.TZ == "" {
			continue
		}
		r.SetFeature(col, binTension(scores[tzDay{tz: r.TZ, day: r.DayLocal}]))
	}
}

func binTension(v int) string {
	switch {
	case v == 0:
		return "Спокойно"
	case v <= 4:
		return "Легкое напряжение"
	case v <= 9:
		return "Среднее напряжение"
	case v <= 14:
		return "Высокое напряжение"
	}
	return "Очень высокое"
}
