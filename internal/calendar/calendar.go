// Package calendar derives the civil-calendar categorical features: day type,
// weekday bucket, month structure, Russian public holidays with proximity and
// long-weekend context, school breaks and payday proximity. All features key
// on the Moscow calendar day.
package calendar

import (
	"fmt"
	"strings"
	"time"

	"github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/ru"

	"github.com/avdeyev/npsenrich/internal/dates"
	"github.com/avdeyev/npsenrich/internal/models"
)

// Columns lists the produced features in output order.
var Columns = []string{
	"cal_day_type3", "cal_weekday_4", "cal_week_of_month", "cal_month_phase3",
	"cal_quarter", "cal_season", "cal_holiday_type4", "cal_holiday_window5",
	"cal_long_weekend", "cal_school_break_ext", "cal_payday_proximity", "cal_is_blue_monday",
}

// majorFragments mark the key federal holidays by name fragment.
var majorFragments = []string{
	"новый год", "23 февраля", "8 марта", "1 мая", "день победы",
	"9 мая", "день россии", "12 июня", "4 ноября",
}

type dayRow struct {
	dayType     string
	holType     string
	proximity   string
	longWeekend string
	blueMonday  string
}

var neutralRow = dayRow{
	dayType:     "рабочий",
	holType:     "нет",
	proximity:   "нет_рядом",
	longWeekend: "нет",
	blueMonday:  "нет",
}

// Engine computes calendar features over a span of Moscow days.
type Engine struct {
	holidays []*cal.Holiday
}

func New() *Engine {
	return &Engine{holidays: ru.Holidays}
}

// Enrich sets all calendar features on the records. Records without a usable
// Moscow day get the neutral holiday row and NA day-structure buckets.
func (e *Engine) Enrich(recs []*models.Record) {
	days := make([]time.Time, len(recs))
	for i, r := range recs {
		days[i] = r.MSKDay
	}
	var table map[time.Time]dayRow
	if min, max, ok := dates.Span(days); ok {
		table = e.table(min, max)
	}
	for _, r := range recs {
		if r.MSKDay.IsZero() {
			r.SetFeature("cal_weekday_4", "NA")
			r.SetFeature("cal_week_of_month", "NA")
			r.SetFeature("cal_month_phase3", "NA")
			r.SetFeature("cal_school_break_ext", "нет")
			r.SetFeature("cal_payday_proximity", "далеко")
			setRow(r, neutralRow)
			continue
		}
		d := r.MSKDay
		r.SetFeature("cal_weekday_4", WeekdayBucket(d))
		r.SetFeature("cal_week_of_month", WeekOfMonth(d))
		r.SetFeature("cal_month_phase3", MonthPhase(d))
		r.SetFeature("cal_quarter", Quarter(d))
		r.SetFeature("cal_season", Season(d))
		r.SetFeature("cal_school_break_ext", SchoolBreak(d))
		r.SetFeature("cal_payday_proximity", PaydayProximity(d))
		row, ok := table[d]
		if !ok {
			row = neutralRow
		}
		setRow(r, row)
	}
}

func setRow(r *models.Record, row dayRow) {
	r.SetFeature("cal_day_type3", row.dayType)
	r.SetFeature("cal_holiday_type4", row.holType)
	r.SetFeature("cal_holiday_window5", row.proximity)
	r.SetFeature("cal_long_weekend", row.longWeekend)
	r.SetFeature("cal_is_blue_monday", row.blueMonday)
}

// holidayNames maps each holiday day inside [start, end] to its name.
func (e *Engine) holidayNames(start, end time.Time) map[time.Time]string {
	names := make(map[time.Time]string)
	for y := start.Year(); y <= end.Year(); y++ {
		for _, h := range e.holidays {
			actual, _ := h.Calc(y)
			if actual.IsZero() {
				continue
			}
			d := dates.Day(actual)
			if d.Before(start) || d.After(end) {
				continue
			}
			if _, dup := names[d]; !dup {
				names[d] = h.Name
			}
		}
	}
	return names
}

// table builds the holiday-derived features for every day of [start, end].
func (e *Engine) table(start, end time.Time) map[time.Time]dayRow {
	all := dates.Range(start, end)
	names := e.holidayNames(start, end)
	n := len(all)

	isHol := make([]bool, n)
	nonwork := make([]bool, n)
	for i, d := range all {
		_, isHol[i] = names[d]
		nonwork[i] = isHol[i] || dates.MondayWeekday(d) >= 5
	}

	// win3[i]: days i..i+2 are all non-working.
	win3 := make([]bool, n)
	for i := 0; i+2 < n; i++ {
		win3[i] = nonwork[i] && nonwork[i+1] && nonwork[i+2]
	}
	longWkd := make([]bool, n)
	for i := range longWkd {
		for j := i - 2; j <= i; j++ {
			if j >= 0 && win3[j] {
				longWkd[i] = true
				break
			}
		}
	}

	// Signed distance to the nearest holiday: positive after, negative
	// before, ties go to the past holiday.
	const far = 9999
	prev := make([]int, n)
	last := -far
	for i := range prev {
		if isHol[i] {
			last = i
		}
		prev[i] = i - last
	}
	next := make([]int, n)
	nxt := n + far
	for i := n - 1; i >= 0; i-- {
		if isHol[i] {
			nxt = i
		}
		next[i] = nxt - i
	}

	rows := make(map[time.Time]dayRow, n)
	for i, d := range all {
		row := dayRow{
			holType:     holidayType(names[d]),
			proximity:   proximityLabel(signedProximity(isHol[i], prev[i], next[i])),
			longWeekend: yesNo(longWkd[i]),
			blueMonday:  yesNo(dates.MondayWeekday(d) == 0 && i > 0 && longWkd[i-1]),
		}
		switch {
		case isHol[i]:
			row.dayType = "праздник"
		case dates.MondayWeekday(d) >= 5:
			row.dayType = "выходной"
		default:
			row.dayType = "рабочий"
		}
		rows[d] = row
	}
	return rows
}

func signedProximity(isHoliday bool, dPrev, dNext int) int {
	if isHoliday {
		return 0
	}
	a, b := dPrev, -dNext
	if abs(a) <= abs(b) {
		return a
	}
	return b
}

func proximityLabel(v int) string {
	switch v {
	case 0:
		return "H0"
	case -1, -2, 1, 2:
		return fmt.Sprintf("H%+d", v)
	default:
		return "нет_рядом"
	}
}

func holidayType(name string) string {
	if strings.TrimSpace(name) == "" {
		return "нет"
	}
	low := strings.ToLower(name)
	for _, frag := range majorFragments {
		if strings.Contains(low, frag) {
			return "фед_ключевой"
		}
	}
	if strings.Contains(low, "пасх") {
		return "религ_пасха"
	}
	return "прочий"
}

// WeekdayBucket groups weekdays into пн-ср / чт-пт / сб / вс.
func WeekdayBucket(d time.Time) string {
	switch w := dates.MondayWeekday(d); {
	case w <= 2:
		return "пн-ср"
	case w <= 4:
		return "чт-пт"
	case w == 5:
		return "сб"
	default:
		return "вс"
	}
}

// WeekOfMonth labels the calendar week of the month W1..W5, counting weeks
// from the first of the month.
func WeekOfMonth(d time.Time) string {
	first := time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
	wom := 1 + (d.Day()+dates.MondayWeekday(first)-1)/7
	if wom < 1 {
		wom = 1
	}
	if wom > 5 {
		wom = 5
	}
	return fmt.Sprintf("W%d", wom)
}

func MonthPhase(d time.Time) string {
	switch day := d.Day(); {
	case day <= 10:
		return "начало"
	case day <= 20:
		return "середина"
	default:
		return "конец"
	}
}

func Quarter(d time.Time) string {
	return fmt.Sprintf("Q%d", (int(d.Month())-1)/3+1)
}

func Season(d time.Time) string {
	switch d.Month() {
	case time.December, time.January, time.February:
		return "Зима"
	case time.March, time.April, time.May:
		return "Весна"
	case time.June, time.July, time.August:
		return "Лето"
	default:
		return "Осень"
	}
}

// SchoolBreak labels the extended school vacation windows.
func SchoolBreak(d time.Time) string {
	m, day := d.Month(), d.Day()
	switch {
	case m == time.January && day <= 9:
		return "зима"
	case m == time.March && day >= 25:
		return "весна"
	case (m == time.October && day >= 26) || (m == time.November && day <= 4):
		return "осень"
	case m >= time.June && m <= time.August:
		return "лето"
	}
	return "нет"
}

// PaydayProximity buckets the distance to the nearest 10th or 25th,
// wrapping across the month boundary.
func PaydayProximity(d time.Time) string {
	day, dim := d.Day(), dates.DaysInMonth(d)
	dist := min(paydayDist(day, 10, dim), paydayDist(day, 25, dim))
	switch {
	case dist == 0:
		return "день выплаты"
	case dist <= 2:
		return "рядом (±2 дня)"
	case dist <= 7:
		return "неделя до/после"
	}
	return "далеко"
}

func paydayDist(day, target, dim int) int {
	return min(abs(day-target), abs(day-target-dim))
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
