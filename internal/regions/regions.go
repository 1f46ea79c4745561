// Package regions standardizes free-form Russian region names and resolves
// them to IANA timezones and station coordinates.
package regions

import (
	"embed"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/ringsaturn/tzf"

	"github.com/avdeyev/npsenrich/internal/dates"
	"github.com/avdeyev/npsenrich/internal/metrics"
	"github.com/avdeyev/npsenrich/internal/models"
)

//go:embed data/*.json
var dataFS embed.FS

// Finder maps a coordinate to an IANA timezone name. An empty result means
// the point could not be resolved.
type Finder interface {
	TimezoneName(lat, lon float64) string
}

type tzfFinder struct {
	f tzf.F
}

func (t tzfFinder) TimezoneName(lat, lon float64) string {
	return t.f.GetTimezoneName(lon, lat)
}

// Coord is a station point, latitude first.
type Coord struct {
	Lat float64
	Lon float64
}

// Resolver holds the gazetteer and timezone tables. Safe for concurrent use.
type Resolver struct {
	finder    Finder
	gazetteer map[string]string
	tzTable   map[string]string
	coords    map[string][]Coord

	mu        sync.Mutex
	tzCache   map[string]string
	fallbacks int64

	msk *time.Location
}

// NewResolver builds a resolver backed by the default polygon timezone finder.
func NewResolver() (*Resolver, error) {
	f, err := tzf.NewDefaultFinder()
	if err != nil {
		return nil, fmt.Errorf("init timezone finder: %w", err)
	}
	return NewResolverWithFinder(tzfFinder{f})
}

// NewResolverWithFinder builds a resolver with a caller-supplied finder.
// A nil finder forces the static-table path.
func NewResolverWithFinder(f Finder) (*Resolver, error) {
	r := &Resolver{
		finder:  f,
		tzCache: make(map[string]string),
	}
	if err := loadJSON("data/gazetteer.json", &r.gazetteer); err != nil {
		return nil, err
	}
	if err := loadJSON("data/timezones.json", &r.tzTable); err != nil {
		return nil, err
	}
	var raw map[string][][2]float64
	if err := loadJSON("data/coordinates.json", &raw); err != nil {
		return nil, err
	}
	r.coords = make(map[string][]Coord, len(raw))
	for region, pts := range raw {
		cs := make([]Coord, len(pts))
		for i, p := range pts {
			cs[i] = Coord{Lat: p[0], Lon: p[1]}
		}
		r.coords[region] = cs
	}
	msk, err := time.LoadLocation("Europe/Moscow")
	if err != nil {
		msk = time.FixedZone("MSK", 3*60*60)
	}
	r.msk = msk
	return r, nil
}

func loadJSON(name string, dst any) error {
	b, err := dataFS.ReadFile(name)
	if err != nil {
		return fmt.Errorf("read embedded %s: %w", name, err)
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return fmt.Errorf("parse embedded %s: %w", name, err)
	}
	return nil
}

// Standardize maps a genitive-case region name to its nominative form.
// Unknown names pass through unchanged.
func (r *Resolver) Standardize(raw string) string {
	if std, ok := r.gazetteer[raw]; ok {
		return std
	}
	return raw
}

// Timezone resolves a standardized region name to an IANA timezone. It first
// asks the polygon finder with the region's primary station coordinate, then
// falls back to the static table, then to Europe/Moscow.
func (r *Resolver) Timezone(regionStd string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if tz, ok := r.tzCache[regionStd]; ok {
		return tz
	}
	tz := r.resolveTZ(regionStd)
	r.tzCache[regionStd] = tz
	return tz
}

func (r *Resolver) resolveTZ(regionStd string) string {
	if r.finder != nil {
		if cs := r.coords[regionStd]; len(cs) > 0 {
			if tz := r.finder.TimezoneName(cs[0].Lat, cs[0].Lon); tz != "" {
				return tz
			}
		}
	}
	r.fallbacks++
	metrics.TimezoneFallbacksTotal.Inc()
	if tz, ok := r.tzTable[regionStd]; ok {
		return tz
	}
	return "Europe/Moscow"
}

// Coordinates returns the station points for a standardized region,
// nil when the region is unknown.
func (r *Resolver) Coordinates(regionStd string) []Coord {
	return r.coords[regionStd]
}

// FallbackCount reports how many distinct regions were resolved without the
// polygon finder.
func (r *Resolver) FallbackCount() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fallbacks
}

// Moscow returns the pipeline's reference timezone.
func (r *Resolver) Moscow() *time.Location {
	return r.msk
}

// Localize fills RegionStd, TZ, MSKDay and DayLocal on a record. An
// unloadable timezone degrades to the Moscow day for both keys.
func (r *Resolver) Localize(rec *models.Record) {
	rec.RegionStd = r.Standardize(rec.Region)
	rec.TZ = r.Timezone(rec.RegionStd)
	if rec.BusinessDT.IsZero() {
		return
	}
	rec.MSKDay = dates.DayIn(rec.BusinessDT, r.msk)
	loc, err := time.LoadLocation(rec.TZ)
	if err != nil {
		rec.DayLocal = rec.MSKDay
		return
	}
	rec.DayLocal = dates.DayIn(rec.BusinessDT, loc)
}
