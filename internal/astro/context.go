package astro

import (
	"math"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/avdeyev/npsenrich/internal/dates"
	"github.com/avdeyev/npsenrich/internal/metrics"
	"github.com/avdeyev/npsenrich/internal/models"
)

// Columns lists the produced features in output order.
var Columns = []string{
	"знак_Солнца", "фаза_луны", "lunar_day_cat",
	"hard_aspects_cat", "pp_hard_aspects_cat",
	"is_retrograde_any_cat", "is_station_any_cat", "is_ingress_any_cat",
	"солнечное_затмение_cat", "лунное_затмение_cat", "is_hecate_moon_cat",
	"astro_weighted_aspects_cat", "astro_moon_voc_proxy_cat",
	"astro_interaction_merc_mars",
}

// Eclipse instants, midnight UTC of the event date.
var (
	solarEclipses = eclipseTimes("2022-10-25", "2023-04-20", "2024-04-08", "2024-10-02")
	lunarEclipses = eclipseTimes("2022-05-16", "2022-11-08", "2023-05-05", "2023-10-28", "2024-03-25", "2024-09-18")
)

func eclipseTimes(ds ...string) []time.Time {
	out := make([]time.Time, len(ds))
	for i, s := range ds {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			panic("astro: bad eclipse date " + s)
		}
		out[i] = t
	}
	return out
}

// Context is the full astronomical state of one local calendar day, evaluated
// at local noon.
type Context struct {
	SunSign       string
	MoonPhase     string
	LunarDay      int
	HardAspects   int
	PersonalHard  int
	WeightedScore int

	RetroAny     bool
	StationAny   bool
	IngressAny   bool
	SolarEclipse bool
	LunarEclipse bool
	HecateMoon   bool
	MoonVoc      bool
	MercMars     bool
}

// Apply writes the categorical features onto a record.
func (c *Context) Apply(r *models.Record) {
	r.SetFeature("знак_Солнца", c.SunSign)
	r.SetFeature("фаза_луны", c.MoonPhase)
	r.SetFeature("lunar_day_cat", binLunarDay(c.LunarDay))
	r.SetFeature("hard_aspects_cat", binHard(c.HardAspects))
	r.SetFeature("pp_hard_aspects_cat", binHard(c.PersonalHard))
	r.SetFeature("is_retrograde_any_cat", yesNo(c.RetroAny))
	r.SetFeature("is_station_any_cat", yesNo(c.StationAny))
	r.SetFeature("is_ingress_any_cat", yesNo(c.IngressAny))
	r.SetFeature("солнечное_затмение_cat", yesNo(c.SolarEclipse))
	r.SetFeature("лунное_затмение_cat", yesNo(c.LunarEclipse))
	r.SetFeature("is_hecate_moon_cat", yesNo(c.HecateMoon))
	r.SetFeature("astro_weighted_aspects_cat", binWeightedHard(c.WeightedScore))
	r.SetFeature("astro_moon_voc_proxy_cat", yesNo(c.MoonVoc))
	r.SetFeature("astro_interaction_merc_mars", yesNo(c.MercMars))
}

type ctxKey struct {
	day int64
	tz  string
}

// Engine memoizes per-(day, timezone) contexts. Safe for concurrent use.
type Engine struct {
	cache *lru.Cache[ctxKey, *Context]

	mu   sync.Mutex
	locs map[string]*time.Location
}

func NewEngine() *Engine {
	cache, err := lru.New[ctxKey, *Context](50000)
	if err != nil {
		panic(err)
	}
	return &Engine{
		cache: cache,
		locs:  make(map[string]*time.Location),
	}
}

func (e *Engine) location(tz string) *time.Location {
	e.mu.Lock()
	defer e.mu.Unlock()
	if loc, ok := e.locs[tz]; ok {
		return loc
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		loc = time.UTC
	}
	e.locs[tz] = loc
	return loc
}

// Context returns the astronomical state of the given local calendar day.
func (e *Engine) Context(day time.Time, tz string) *Context {
	day = dates.Day(day)
	k := ctxKey{day: day.Unix(), tz: tz}
	if c, ok := e.cache.Get(k); ok {
		return c
	}
	c := e.compute(day, tz)
	e.cache.Add(k, c)
	metrics.AstroContextsComputed.Inc()
	return c
}

// Enrich applies astro features to each record keyed by its local day and
// timezone. Records without a local day are skipped.
func (e *Engine) Enrich(recs []*models.Record) {
	for _, r := range recs {
		if r.DayLocal.IsZero() || r.TZ == "" {
			continue
		}
		e.Context(r.DayLocal, r.TZ).Apply(r)
	}
}

func (e *Engine) compute(day time.Time, tz string) *Context {
	loc := e.location(tz)
	noon := time.Date(day.Year(), day.Month(), day.Day(), 12, 0, 0, 0, loc)
	prev := noon.AddDate(0, 0, -1)

	c := &Context{}
	c.SunSign = Sign(Longitude(Sun, noon))

	pct := IlluminatedPct(noon)
	c.MoonPhase = moonPhaseName(pct)
	age := LunarAge(noon)
	c.LunarDay = int(math.Floor(age)) + 1
	c.HecateMoon = SynodicMonth-age < 2.5
	c.MoonVoc = math.Mod(Longitude(Moon, noon), 30) > 27

	c.SolarEclipse = inEclipseWindow(day, loc, solarEclipses)
	c.LunarEclipse = inEclipseWindow(day, loc, lunarEclipses)

	retroMercury := false
	hardToMars := false
	for _, p := range TrackedPlanets {
		spd, spdPrev := Speed(p, noon), Speed(p, prev)
		if spd < 0 {
			c.RetroAny = true
			if p == Mercury {
				retroMercury = true
			}
		}
		if (spd < 0) != (spdPrev < 0) {
			c.StationAny = true
		}
		if Sign(Longitude(p, noon)) != Sign(Longitude(p, prev)) {
			c.IngressAny = true
		}
	}

	lons := make(map[Planet]float64, len(AspectPlanets))
	for _, p := range AspectPlanets {
		lons[p] = Longitude(p, noon)
	}
	for i, p1 := range AspectPlanets {
		for _, p2 := range AspectPlanets[i+1:] {
			sep := math.Abs(lons[p1] - lons[p2])
			if sep > 180 {
				sep = 360 - sep
			}
			orb := 6.0
			if p1 == Sun || p1 == Moon || p2 == Sun || p2 == Moon {
				orb = 8.0
			}
			if math.Abs(sep-180) > orb && math.Abs(sep-90) > orb {
				continue
			}
			c.HardAspects++
			if personal[p1] && personal[p2] {
				c.PersonalHard++
			}
			if heavy[p1] || heavy[p2] {
				c.WeightedScore += 2
			} else {
				c.WeightedScore++
			}
			if p1 == Mars || p2 == Mars {
				hardToMars = true
			}
		}
	}
	c.MercMars = retroMercury && hardToMars
	return c
}

func inEclipseWindow(day time.Time, loc *time.Location, eclipses []time.Time) bool {
	for _, ecl := range eclipses {
		local := dates.DayIn(ecl, loc)
		if abs(dates.DaysBetween(local, day)) <= 3 {
			return true
		}
	}
	return false
}

func moonPhaseName(pct float64) string {
	switch {
	case pct < 5 || pct > 95:
		return "Новолуние"
	case pct < 45:
		return "Растущая"
	case pct < 55:
		return "Полнолуние"
	default:
		return "Убывающая"
	}
}

func binLunarDay(n int) string {
	switch {
	case n <= 7:
		return "1-7"
	case n <= 14:
		return "8-14"
	case n <= 21:
		return "15-21"
	}
	return "22-30"
}

func binHard(n int) string {
	switch n {
	case 0:
		return "0"
	case 1:
		return "1"
	}
	return ">=2"
}

func binWeightedHard(s int) string {
	switch {
	case s == 0:
		return "0"
	case s <= 2:
		return "1-2"
	case s <= 4:
		return "3-4"
	}
	return "5+"
}

func yesNo(v bool) string {
	if v {
		return "да"
	}
	return "нет"
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
