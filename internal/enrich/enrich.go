// Package enrich runs the full enrichment pipeline over a loaded survey
// dataset: localization, calendar, astronomy, weather, geomagnetics, news and
// the rolling tension index, in that order. Every external source degrades
// independently; a record only ever loses the features of the failed source.
package enrich

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/avdeyev/npsenrich/internal/astro"
	"github.com/avdeyev/npsenrich/internal/calendar"
	"github.com/avdeyev/npsenrich/internal/dates"
	"github.com/avdeyev/npsenrich/internal/geomag"
	"github.com/avdeyev/npsenrich/internal/models"
	"github.com/avdeyev/npsenrich/internal/news"
	"github.com/avdeyev/npsenrich/internal/regions"
	"github.com/avdeyev/npsenrich/internal/tension"
	"github.com/avdeyev/npsenrich/internal/weather"
)

// Config points the pipeline at its external inputs.
type Config struct {
	EventsPath    string // tab-separated news feed, optional
	KpIndexPath   string // Kp index JSON, optional
	ApIndexPath   string // ap index JSON, optional
	TensionWindow int    // trailing days for the tension index
	AuditSample   int    // max mismatched events quoted by the news audit
}

// Pipeline wires the engines together. Build one per run.
type Pipeline struct {
	resolver *regions.Resolver
	calendar *calendar.Engine
	astro    *astro.Engine
	weather  *weather.Service
	cfg      Config
}

// New assembles a pipeline. weatherSvc may be nil, in which case weather
// features are skipped entirely.
func New(resolver *regions.Resolver, weatherSvc *weather.Service, cfg Config) *Pipeline {
	if cfg.TensionWindow <= 0 {
		cfg.TensionWindow = tension.DefaultWindow
	}
	if cfg.AuditSample <= 0 {
		cfg.AuditSample = 10
	}
	return &Pipeline{
		resolver: resolver,
		calendar: calendar.New(),
		astro:    astro.NewEngine(),
		weather:  weatherSvc,
		cfg:      cfg,
	}
}

// Run enriches the records in place and returns the catalog of feature
// columns that were actually produced, in output order.
func (p *Pipeline) Run(ctx context.Context, recs []*models.Record) ([]string, error) {
	if len(recs) == 0 {
		return nil, fmt.Errorf("empty dataset")
	}

	log.Printf("enrich: localizing %d records", len(recs))
	for _, r := range recs {
		p.resolver.Localize(r)
	}
	if n := p.resolver.FallbackCount(); n > 0 {
		log.Printf("enrich: %d regions resolved without the polygon finder", n)
	}

	log.Printf("enrich: calendar features")
	p.calendar.Enrich(recs)

	log.Printf("enrich: astronomical features")
	p.astro.Enrich(recs)

	if p.weather != nil {
		log.Printf("enrich: weather features")
		p.applyWeather(ctx, recs)
	}

	log.Printf("enrich: geomagnetic features")
	p.applyGeomag(recs)

	log.Printf("enrich: news features")
	p.applyNews(recs)

	log.Printf("enrich: tension index, window %d", p.cfg.TensionWindow)
	tension.Enrich(p.astro, recs, p.cfg.TensionWindow)

	return Catalog(recs, p.cfg.TensionWindow), nil
}

func (p *Pipeline) applyWeather(ctx context.Context, recs []*models.Record) {
	type span struct {
		min, max time.Time
		tz       string
	}
	spans := make(map[string]*span)
	mskOf := make(map[weather.Key]time.Time)
	for _, r := range recs {
		if r.RegionStd == "" || r.DayLocal.IsZero() {
			continue
		}
		s := spans[r.RegionStd]
		if s == nil {
			s = &span{min: r.DayLocal, max: r.DayLocal, tz: r.TZ}
			spans[r.RegionStd] = s
		}
		if r.DayLocal.Before(s.min) {
			s.min = r.DayLocal
		}
		if r.DayLocal.After(s.max) {
			s.max = r.DayLocal
		}
		mskOf[weather.Key{Region: r.RegionStd, Day: r.DayLocal}] = r.MSKDay
	}

	regionNames := make([]string, 0, len(spans))
	for name := range spans {
		regionNames = append(regionNames, name)
	}
	sort.Strings(regionNames)

	var rows []models.WeatherDay
	for _, region := range regionNames {
		s := spans[region]
		got, err := p.weather.RegionDaily(ctx, region, p.resolver.Coordinates(region), s.tz, s.min, s.max)
		if err != nil {
			log.Printf("enrich: weather for %s: %v", region, err)
			continue
		}
		rows = append(rows, got...)
	}
	if len(rows) == 0 {
		// Weather source entirely unavailable: fall back to daylight hours,
		// which only need the region coordinates.
		log.Printf("enrich: no weather data, computing daylight only")
		for _, r := range recs {
			if r.DayLocal.IsZero() {
				continue
			}
			coords := p.resolver.Coordinates(r.RegionStd)
			if len(coords) == 0 {
				continue
			}
			hours := weather.DayLength(coords[0].Lat, r.DayLocal)
			r.SetFeature("wth_daylight_duration_cat", weather.DaylightCategory(hours))
		}
		return
	}

	table := weather.BuildFeatures(rows, mskOf)
	for _, r := range recs {
		if m, ok := table.Regional(r.RegionStd, r.DayLocal); ok {
			for col, v := range m {
				r.SetFeature(col, v)
			}
		}
		if m, ok := table.National(r.MSKDay); ok {
			for col, v := range m {
				r.SetFeature(col, v)
			}
		}
	}
}

func (p *Pipeline) applyGeomag(recs []*models.Record) {
	load := func(path string) []geomag.Sample {
		if path == "" {
			return nil
		}
		samples, err := geomag.LoadIndexFile(path)
		if err != nil {
			log.Printf("enrich: geomagnetic index %s: %v", path, err)
			return nil
		}
		return samples
	}
	kp := load(p.cfg.KpIndexPath)
	ap := load(p.cfg.ApIndexPath)

	var feats map[time.Time]map[string]string
	if len(kp) > 0 || len(ap) > 0 {
		days := make([]time.Time, len(recs))
		for i, r := range recs {
			days[i] = r.MSKDay
		}
		feats = geomag.BuildFeatures(geomag.DailyMeans(kp, ap), days)
	}
	if feats == nil {
		log.Printf("enrich: geomagnetic indices unavailable")
		row := geomag.Unavailable()
		for _, r := range recs {
			for col, v := range row {
				r.SetFeature(col, v)
			}
		}
		return
	}
	for _, r := range recs {
		if m, ok := feats[r.MSKDay]; ok {
			for col, v := range m {
				r.SetFeature(col, v)
			}
		}
	}
}

func (p *Pipeline) applyNews(recs []*models.Record) {
	evs, err := news.LoadEvents(p.cfg.EventsPath)
	if err != nil {
		// An unreadable feed degrades the news signal only, like every
		// other external source.
		log.Printf("enrich: news feed unavailable: %v", err)
		evs = nil
	}
	news.Audit(evs, p.cfg.AuditSample)
	evs = news.CompressSecurityUpdates(evs)

	days := make([]time.Time, len(recs))
	holidayDays := make(map[time.Time]bool)
	for i, r := range recs {
		days[i] = r.MSKDay
		if r.MSKDay.IsZero() {
			continue
		}
		if v, ok := r.Feature("cal_holiday_type4"); ok && v != "нет" {
			holidayDays[r.MSKDay] = true
		}
	}
	start, end, ok := dates.Span(days)
	if !ok {
		log.Printf("enrich: no usable dates, skipping news features")
		return
	}

	feats := news.BuildFeatures(evs, start, end, holidayDays)
	for _, r := range recs {
		if m, ok := feats[r.MSKDay]; ok {
			for col, v := range m {
				r.SetFeature(col, v)
			}
		}
	}
}

// Catalog returns the feature columns present on at least one record, in the
// fixed engine order. Columns a degraded source never produced are dropped so
// the output schema reflects the actual run.
func Catalog(recs []*models.Record, window int) []string {
	full := make([]string, 0, 64)
	full = append(full, calendar.Columns...)
	full = append(full, astro.Columns...)
	full = append(full, weather.Columns...)
	full = append(full, geomag.Columns...)
	full = append(full, news.Columns...)
	full = append(full, tension.Column(window))

	var out []string
	for _, col := range full {
		for _, r := range recs {
			if _, ok := r.Feature(col); ok {
				out = append(out, col)
				break
			}
		}
	}
	return out
}

// Gap is one column's missingness in the enriched dataset.
type Gap struct {
	Column string
	Group  string
	Pct    float64
}

// Missingness reports the share of records lacking each catalog column,
// largest first. Fully populated columns are omitted.
func Missingness(recs []*models.Record, catalog []string) []Gap {
	if len(recs) == 0 {
		return nil
	}
	var out []Gap
	for _, col := range catalog {
		missing := 0
		for _, r := range recs {
			if _, ok := r.Feature(col); !ok {
				missing++
			}
		}
		if missing == 0 {
			continue
		}
		out = append(out, Gap{
			Column: col,
			Group:  FeatureGroup(col),
			Pct:    100 * float64(missing) / float64(len(recs)),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Pct > out[j].Pct })
	return out
}

// FeatureGroup names the high-level source of a feature column.
func FeatureGroup(col string) string {
	switch {
	case strings.HasPrefix(col, "cal_"):
		return "Календарь"
	case strings.HasPrefix(col, "wth_"), strings.HasPrefix(col, "mag_"):
		return "Погода и геомагнетизм"
	case strings.HasPrefix(col, "news_"):
		return "Новости"
	case strings.HasPrefix(col, "astro_"):
		return "Астрология"
	}
	for _, c := range astro.Columns {
		if c == col {
			return "Астрология"
		}
	}
	return "Прочее"
}
