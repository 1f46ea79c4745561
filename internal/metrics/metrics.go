package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TimezoneFallbacksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "npsenrich_timezone_fallbacks_total",
			Help: "Region timezone resolutions that fell back to the static table or Moscow default",
		},
	)

	WeatherFetchErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "npsenrich_weather_fetch_errors_total",
			Help: "Per-station weather archive fetch failures",
		},
		[]string{"region"},
	)

	WeatherCacheTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "npsenrich_weather_cache_total",
			Help: "Weather cache lookups by outcome",
		},
		[]string{"outcome"}, // hit, miss, stale
	)

	EventsClassifiedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "npsenrich_events_classified_total",
			Help: "News events assigned to each topic group",
		},
		[]string{"group"},
	)

	AstroContextsComputed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "npsenrich_astro_contexts_computed_total",
			Help: "Astro context computations that missed the memo cache",
		},
	)
)
