package weather

import (
	"math"
	"time"
)

// DayLength returns hours of daylight at latitude lat on the given day,
// from the sunrise equation with an approximate solar declination. Polar day
// and night clamp to 24 and 0.
func DayLength(lat float64, day time.Time) float64 {
	n := float64(day.YearDay())
	decl := -23.44 * math.Cos(2*math.Pi/365*(n+10))

	latRad := lat * math.Pi / 180
	declRad := decl * math.Pi / 180
	cosH := -math.Tan(latRad) * math.Tan(declRad)
	if cosH >= 1 {
		return 0
	}
	if cosH <= -1 {
		return 24
	}
	h := math.Acos(cosH) * 180 / math.Pi
	return 2 * h / 15
}
