package geomag

import (
	"sort"
	"time"

	"github.com/avdeyev/npsenrich/internal/models"
)

// Columns lists the produced features in output order.
var Columns = []string{"mag_storm_level_cat", "mag_storm_change_cat"}

const unavailable = "данные недоступны"

// Unavailable is the feature row applied when the index files cannot be
// loaded at all.
func Unavailable() map[string]string {
	return map[string]string{
		"mag_storm_level_cat":  unavailable,
		"mag_storm_change_cat": unavailable,
	}
}

// BuildFeatures returns per-day storm features for the requested Moscow days.
// days is the per-record day list, duplicates included: a day without an index
// reading takes the median Kp over the record-level resolved values, so days
// carrying more records weigh more. The change feature compares consecutive
// requested days; the first day has no base and reports нет данных.
func BuildFeatures(mag []models.MagneticDay, days []time.Time) map[time.Time]map[string]string {
	kpByDay := make(map[time.Time]float64)
	for _, m := range mag {
		if m.KpDaily.Valid {
			kpByDay[m.Day] = m.KpDaily.Float64
		}
	}
	var resolved []float64
	for _, d := range days {
		if kp, ok := kpByDay[d]; ok {
			resolved = append(resolved, kp)
		}
	}
	if len(resolved) == 0 {
		return nil
	}
	med := median(resolved)

	uniq := make(map[time.Time]bool)
	var sorted []time.Time
	for _, d := range days {
		if d.IsZero() || uniq[d] {
			continue
		}
		uniq[d] = true
		sorted = append(sorted, d)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	out := make(map[time.Time]map[string]string, len(sorted))
	prev := 0.0
	for i, d := range sorted {
		kp, ok := kpByDay[d]
		if !ok {
			kp = med
		}
		feats := map[string]string{"mag_storm_level_cat": StormLevel(kp)}
		if i == 0 {
			feats["mag_storm_change_cat"] = "нет данных"
		} else {
			feats["mag_storm_change_cat"] = StormChange(kp - prev)
		}
		out[d] = feats
		prev = kp
	}
	return out
}

// StormLevel classifies a daily Kp mean.
func StormLevel(kp float64) string {
	switch {
	case kp <= 4:
		return "спокойно"
	case kp <= 5:
		return "слабая буря"
	case kp <= 6:
		return "умеренная буря"
	case kp <= 8:
		return "сильная буря"
	}
	return "экстремальная буря"
}

// StormChange classifies the day-over-day Kp delta.
func StormChange(change float64) string {
	switch {
	case change > 1.5:
		return "резкий рост"
	case change > 0.5:
		return "рост"
	case change < -1.5:
		return "резкое падение"
	case change < -0.5:
		return "падение"
	}
	return "стабильно"
}

func median(vs []float64) float64 {
	s := append([]float64(nil), vs...)
	sort.Float64s(s)
	n := len(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}
