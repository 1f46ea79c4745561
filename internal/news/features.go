package news

import (
	"time"

	"github.com/avdeyev/npsenrich/internal/dates"
	"github.com/avdeyev/npsenrich/internal/models"
)

// Columns lists the produced features in output order.
var Columns = []string{
	"news_day_group7", "news_burst_last5_cat", "news_topics_last5_cat",
	"news_tone_day_cat", "news_tone_last5_cat", "news_macro_risk_last5_cat",
	"news_security_risk_last5_cat", "news_it_pay_last5_cat", "news_energy_last5_cat",
	"news_recency_major_cat", "news_span_last14_cat", "news_holiday_overlay_cat",
	"news_tone_change_cat",
}

const (
	shortWindow = 5
	longWindow  = 14
	neverSeen   = 9999
)

var (
	macroGroups = map[string]bool{
		"Санкции/финансы": true, "Экономика/налоги/бюджет": true,
		"Политика/право/выборы": true, "Денежная политика": true,
	}
	// Major groups drive the recency feature; monetary policy counts as
	// major alongside security and sanctions.
	majorGroups = map[string]bool{
		"Безопасность/ЧС": true, "Санкции/финансы": true, "Денежная политика": true,
	}
)

// BuildFeatures computes the daily news table over the Moscow-day range
// [start, end]. holidayDays marks days where the calendar engine saw any
// holiday; it feeds the overlay feature. Events outside the range are
// ignored, so rolling windows never look past the dataset.
func BuildFeatures(evs []models.NewsEvent, start, end time.Time, holidayDays map[time.Time]bool) map[time.Time]map[string]string {
	rng := dates.Range(start, end)
	if len(rng) == 0 {
		return nil
	}

	counts := make([]map[string]int, len(rng))
	index := make(map[time.Time]int, len(rng))
	for i, d := range rng {
		counts[i] = make(map[string]int)
		index[d] = i
	}
	for _, ev := range evs {
		if i, ok := index[dates.Day(ev.Date)]; ok {
			counts[i][ev.Group]++
		}
	}

	dayTotal := make([]int, len(rng))
	dayGroup := make([]string, len(rng))
	toneDay := make([]float64, len(rng))
	major := make([]bool, len(rng))
	for i := range rng {
		total, best, bestN := 0, "нет", 0
		tone := 0.0
		for _, grp := range Groups {
			n := counts[i][grp]
			total += n
			tone += float64(n * GroupWeight(grp))
			if n > bestN {
				best, bestN = grp, n
			}
			if n > 0 && majorGroups[grp] {
				major[i] = true
			}
		}
		dayTotal[i] = total
		if total > 0 {
			dayGroup[i] = best
		}
		toneDay[i] = tone
	}

	out := make(map[time.Time]map[string]string, len(rng))
	lastMajor := -1
	for i, d := range rng {
		feats := make(map[string]string, len(Columns))
		feats["news_day_group7"] = dayGroup[i]
		if dayGroup[i] == "" {
			feats["news_day_group7"] = "нет"
		}

		burst, span := 0, 0
		macroN, secN, itN, energyN := 0, 0, 0, 0
		topicSeen := make(map[string]bool)
		toneSum, toneN := 0.0, 0
		for j := i - shortWindow; j < i; j++ {
			if j < 0 {
				continue
			}
			burst += dayTotal[j]
			toneSum += toneDay[j]
			toneN++
			for _, grp := range Groups {
				n := counts[j][grp]
				if n == 0 {
					continue
				}
				topicSeen[grp] = true
				switch {
				case macroGroups[grp]:
					macroN += n
				case grp == "Безопасность/ЧС":
					secN += n
				case grp == "IT/платежи/сбои":
					itN += n
				case grp == "Энергетика/рынки":
					energyN += n
				}
			}
		}
		for j := i - longWindow; j < i; j++ {
			if j >= 0 && dayTotal[j] > 0 {
				span++
			}
		}
		toneLast5 := 0.0
		if toneN > 0 {
			toneLast5 = toneSum / float64(toneN)
		}

		if major[i] {
			lastMajor = i
		}
		recency := neverSeen
		if lastMajor >= 0 {
			recency = i - lastMajor
		}

		feats["news_burst_last5_cat"] = cutBurst(burst)
		feats["news_topics_last5_cat"] = cutTopics(len(topicSeen))
		feats["news_tone_day_cat"] = cutTone(toneDay[i])
		feats["news_tone_last5_cat"] = cutTone(toneLast5)
		feats["news_macro_risk_last5_cat"] = cutMacro(macroN)
		feats["news_security_risk_last5_cat"] = cutMacro(secN)
		feats["news_it_pay_last5_cat"] = cutSmall(itN)
		feats["news_energy_last5_cat"] = cutSmall(energyN)
		feats["news_recency_major_cat"] = cutRecency(recency)
		feats["news_span_last14_cat"] = cutSpan14(span)

		if i == 0 {
			feats["news_tone_change_cat"] = "без изменений"
		} else {
			feats["news_tone_change_cat"] = cutToneChange(toneDay[i] - toneDay[i-1])
		}

		switch {
		case !holidayDays[d]:
			feats["news_holiday_overlay_cat"] = "нет"
		case dayTotal[i] > 0:
			feats["news_holiday_overlay_cat"] = "праздник+события"
		default:
			feats["news_holiday_overlay_cat"] = "праздник_без_событий"
		}

		out[d] = feats
	}
	return out
}

func cutBurst(x int) string {
	switch {
	case x <= 0:
		return "0"
	case x <= 2:
		return "1-2"
	case x <= 5:
		return "3-5"
	}
	return "6+"
}

func cutTopics(x int) string {
	switch {
	case x <= 0:
		return "0"
	case x <= 2:
		return "1-2"
	case x <= 4:
		return "3-4"
	}
	return "5+"
}

func cutTone(v float64) string {
	switch {
	case v <= -2:
		return "сильно негативный"
	case v < -0.5:
		return "негативный"
	case v <= 0.5:
		return "нейтральный"
	case v < 2:
		return "позитивный"
	}
	return "сильно позитивный"
}

func cutMacro(x int) string {
	switch {
	case x <= 0:
		return "0"
	case x == 1:
		return "1"
	case x <= 3:
		return "2-3"
	}
	return "4+"
}

func cutSmall(x int) string {
	switch {
	case x <= 0:
		return "0"
	case x == 1:
		return "1"
	}
	return "2+"
}

func cutRecency(d int) string {
	switch {
	case d <= 1:
		return "0-1"
	case d <= 3:
		return "2-3"
	case d <= 7:
		return "4-7"
	}
	return ">7"
}

func cutSpan14(x int) string {
	switch {
	case x <= 2:
		return "0-2"
	case x <= 5:
		return "3-5"
	case x <= 9:
		return "6-9"
	}
	return "10-14"
}

func cutToneChange(v float64) string {
	switch {
	case v <= -2:
		return "резко негативнее"
	case v >= 2:
		return "резко позитивнее"
	case v < 0:
		return "негативнее"
	case v > 0:
		return "позитивнее"
	}
	return "без изменений"
}
