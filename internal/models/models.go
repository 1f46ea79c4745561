package models

import (
	"database/sql"
	"time"
)

// Record is one survey response. The raw columns survive enrichment untouched;
// engines only append derived categorical features.
type Record struct {
	BusinessDT time.Time
	Region     string
	Segment    string
	RawWeight  string
	Extra      map[string]string // source columns carried through verbatim

	// Resolver / localization output.
	RegionStd string
	TZ        string
	MSKDay    time.Time // calendar date in Moscow time, zero if BusinessDT unparseable
	DayLocal  time.Time // calendar date in the resolved timezone, zero on failure

	Weight   float64
	features map[string]string
}

// SetFeature records a derived categorical value on the record.
func (r *Record) SetFeature(col, val string) {
	if r.features == nil {
		r.features = make(map[string]string)
	}
	r.features[col] = val
}

// Feature returns a derived value; ok is false when the feature is missing
// for this record (degraded source, unresolved key).
func (r *Record) Feature(col string) (string, bool) {
	v, ok := r.features[col]
	return v, ok
}

// WeatherDay is one region's station-averaged daily weather. Null fields mean
// the upstream archive had no value for any station that day.
type WeatherDay struct {
	Region        string
	Day           time.Time
	TempAvg       sql.NullFloat64
	TempMin       sql.NullFloat64
	TempMax       sql.NullFloat64
	PrecipMM      sql.NullFloat64
	SnowMM        sql.NullFloat64
	WindKMH       sql.NullFloat64
	Pressure      sql.NullFloat64
	SunshineMin   sql.NullFloat64
	DaylightHours sql.NullFloat64
}

// NewsEvent is one catalogued event after classification.
type NewsEvent struct {
	Date     time.Time
	Text     string
	RawCat   string
	NormCat  string
	Group    string
	NormText string // dedup key within the security group
}

// MagneticDay is the daily-averaged planetary geomagnetic state.
type MagneticDay struct {
	Day     time.Time
	KpDaily sql.NullFloat64
	ApDaily sql.NullFloat64
}
