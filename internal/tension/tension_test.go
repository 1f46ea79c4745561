package tension

import (
	"testing"
	"time"

	"github.com/avdeyev/npsenrich/internal/astro"
	"github.com/avdeyev/npsenrich/internal/models"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestColumn(t *testing.T) {
	if got := Column(5); got != "astro_tension_last5_cat" {
		t.Errorf("Column(5) = %q", got)
	}
}

func TestBinTension(t *testing.T) {
	tests := []struct {
		v    int
		want string
	}{
		{0, "Спокойно"},
		{1, "Легкое напряжение"},
		{4, "Легкое напряжение"},
		{5, "Среднее напряжение"},
		{9, "Среднее напряжение"},
		{10, "Высокое напряжение"},
		{14, "Высокое напряжение"},
		{15, "Очень высокое"},
	}
	for _, tt := range tests {
		if got := binTension(tt.v); got != tt.want {
			t.Errorf("binTension(%d) = %q, want %q", tt.v, got, tt.want)
		}
	}
}

func TestEnrichWindowExcludesOwnDay(t *testing.T) {
	engine := astro.NewEngine()
	var recs []*models.Record
	for d := 5; d <= 10; d++ {
		recs = append(recs, &models.Record{
			TZ:       "Europe/Moscow",
			DayLocal: day(2024, 4, d),
		})
	}
	Enrich(engine, recs, DefaultWindow)

	// The first observed day has an empty trailing window no matter how
	// eventful the day itself is.
	if got, _ := recs[0].Feature("astro_tension_last5_cat"); got != "Спокойно" {
		t.Errorf("first day tension = %q, want Спокойно", got)
	}

	// April 5-8 all sit inside the solar eclipse window (5 points each)
	// with Mercury retrograde on top, so April 9 accumulates well past
	// the top bucket threshold.
	if got, _ := recs[4].Feature("astro_tension_last5_cat"); got != "Очень высокое" {
		t.Errorf("April 9 tension = %q, want Очень высокое", got)
	}
}

func TestEnrichSkipsUnresolvedRecords(t *testing.T) {
	engine := astro.NewEngine()
	rec := &models.Record{}
	Enrich(engine, []*models.Record{rec}, 0)
	if _, ok := rec.Feature("astro_tension_last5_cat"); ok {
		t.Error("record without a local day should stay untouched")
	}
}
