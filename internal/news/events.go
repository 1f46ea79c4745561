// Package news loads the catalogued event feed, classifies events into topic
// groups and derives the daily news-background features.
package news

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/avdeyev/npsenrich/internal/metrics"
	"github.com/avdeyev/npsenrich/internal/models"
)

// Groups in classification priority order; the first group whose pattern
// matches wins. DefaultGroup catches everything else.
var Groups = []string{
	"Безопасность/ЧС",
	"Санкции/финансы",
	"Денежная политика",
	"IT/платежи/сбои",
	"Энергетика/рынки",
	"Экономика/налоги/бюджет",
	"Политика/право/выборы",
	"Праздники/общество",
}

const DefaultGroup = "Экономика/налоги/бюджет"

var groupPatterns = map[string][]string{
	"Безопасность/ЧС": {
		"военные действ", "боевые", "бои", "удар", "контрнаступ", "взят", "захват", "вывод войск", "дрг",
		"безопасност", "теракт", "чс", "взрыв", "обстрел", "ракет", "артилл", "штурм", "прорыв",
		"освобожд", "паводк", "происшеств", "дрон", "бпла", "диверс",
	},
	"Санкции/финансы": {
		"санкци", "эмбарго", "swift", "свифт", "нкц", "клиринг", "рейтинг", "мус", "валют", "курс",
		"мосбирж", "спб-биржа", "бирж", "банк",
	},
	"Денежная политика": {"ключевая ставка", "денежная политика"},
	"IT/платежи/сбои": {
		"платеж", "финтех", "сбп", "mir pay", "кошелек", "кошельк", "push", "пуш", "ddos", "сбой",
		"онлайн", "it", "интернет", "соцсеть", "стрим", "dpi", "dnssec",
	},
	"Энергетика/рынки": {
		"энергетик", "нефть", "газ", "сп-1", "северн", "газпром", "опек", "алмаз", "топлив",
	},
	"Экономика/налоги/бюджет": {
		"экономик", "бюджет", "налог", "макро", "форум", "пмэф", "вэф", "ипотек", "торговля", "импорт", "экспорт",
		"логистик", "компани", "промышленност", "металл", "апк", "сельхоз", "опк",
	},
	"Политика/право/выборы": {
		"политика", "право", "закон", "выбор", "междунар", "нато", "брикс", "саммит", "шос", "совет европы",
		"кадры", "территор", "оборона", "призыв", "мобилиз", "инаугурац",
	},
	"Праздники/общество": {"праздник", "общество", "социальн", "мрот", "жкх", "культур", "парад", "траур"},
}

var groupWeights = map[string]int{
	"Безопасность/ЧС":         -2,
	"Санкции/финансы":         -2,
	"Денежная политика":       -1,
	"IT/платежи/сбои":         -1,
	"Энергетика/рынки":        -1,
	"Экономика/налоги/бюджет": 0,
	"Политика/право/выборы":   0,
	"Праздники/общество":      1,
}

var (
	securityHints = regexp.MustCompile(`захват|обстрел|бои|боест|ракет|артилл|штурм|прорыв|освобожд|дрг|теракт|паводк|дрон|бпла|взрыв`)
	parenthetical = regexp.MustCompile(`\(.*?\)`)
	nonAlnum      = regexp.MustCompile(`[^а-яa-z0-9]+`)
	spaces        = regexp.MustCompile(`\s+`)
	// Tokens dropped when collapsing repeated combat updates. Matched
	// against whole tokens; Go's \b is ASCII-only so Cyrillic boundaries
	// need explicit tokenization.
	updateToken = regexp.MustCompile(`^(?:захват|взяти[ея]?|освобожд[а-я0-9]*|обстрел[а-я0-9]*|бои|штурм[а-я0-9]*|прорыв[а-я0-9]*|контр[а-я0-9]*|интенсив[а-я0-9]*|продолжение|попытка|провал|новая|после|стаб[а-я0-9]*)$`)
)

// NormalizeCategory lower-cases a raw category and unifies spelling variants.
func NormalizeCategory(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "междунар.", "международн")
	s = strings.ReplaceAll(s, "чп", "чс")
	return strings.TrimSpace(spaces.ReplaceAllString(s, " "))
}

// MapGroup classifies an event by its normalized category and text combined.
func MapGroup(catNorm, eventText string) string {
	s := strings.ToLower(catNorm + " " + eventText)
	s = strings.ReplaceAll(s, "междунар.", "международн")
	s = strings.ReplaceAll(s, "чп", "чс")
	for _, grp := range Groups {
		for _, pat := range groupPatterns[grp] {
			if strings.Contains(s, pat) {
				return grp
			}
		}
	}
	return DefaultGroup
}

// GroupWeight returns the tone weight of a group; unknown groups weigh zero.
func GroupWeight(group string) int {
	return groupWeights[group]
}

// LoadEvents reads the tab-separated event feed. The first line may be a
// Дата/Событие/Категория header. Rows with unparseable dates are dropped.
// A missing file is not an error: the news engine degrades to an empty feed.
func LoadEvents(path string) ([]models.NewsEvent, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("news: event file %s not found, continuing without news", path)
			return nil, nil
		}
		return nil, fmt.Errorf("open events: %w", err)
	}
	defer f.Close()

	var out []models.NewsEvent
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	first := true
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r\n")
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if first {
			first = false
			if strings.TrimSpace(fields[0]) == "Дата" {
				continue
			}
		}
		if len(fields) < 2 {
			continue
		}
		date, err := time.Parse("02.01.2006", strings.TrimSpace(fields[0]))
		if err != nil {
			continue
		}
		ev := models.NewsEvent{
			Date:   date,
			Text:   strings.TrimSpace(fields[1]),
			RawCat: "Неизвестно",
		}
		if len(fields) > 2 && strings.TrimSpace(fields[2]) != "" {
			ev.RawCat = strings.TrimSpace(fields[2])
		}
		ev.NormCat = NormalizeCategory(ev.RawCat)
		ev.Group = MapGroup(ev.NormCat, ev.Text)
		ev.NormText = normalizeText(ev)
		metrics.EventsClassifiedTotal.WithLabelValues(ev.Group).Inc()
		out = append(out, ev)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read events: %w", err)
	}
	return out, nil
}

// normalizeText builds the dedup key. Security events shed parentheticals
// and the stock update verbs so rolling combat reports collapse; other
// groups just lower-case.
func normalizeText(ev models.NewsEvent) string {
	s := strings.ToLower(ev.Text)
	if ev.Group != "Безопасность/ЧС" {
		return s
	}
	s = parenthetical.ReplaceAllString(s, " ")
	tokens := nonAlnum.Split(s, -1)
	kept := tokens[:0]
	for _, tok := range tokens {
		if tok == "" || updateToken.MatchString(tok) {
			continue
		}
		kept = append(kept, tok)
	}
	return strings.Join(kept, " ")
}

// CompressSecurityUpdates keeps one security event per (day, normalized
// text); other groups pass through untouched.
func CompressSecurityUpdates(evs []models.NewsEvent) []models.NewsEvent {
	type dedupKey struct {
		day  time.Time
		text string
	}
	seen := make(map[dedupKey]bool)
	out := make([]models.NewsEvent, 0, len(evs))
	for _, ev := range evs {
		if ev.Group == "Безопасность/ЧС" {
			k := dedupKey{day: ev.Date, text: ev.NormText}
			if seen[k] {
				continue
			}
			seen[k] = true
		}
		out = append(out, ev)
	}
	return out
}

// Audit logs markup-quality warnings: literal duplicates, the share of
// events that fell through to the default group, and combat-sounding events
// mapped elsewhere. It never modifies the feed.
func Audit(evs []models.NewsEvent, sampleN int) {
	if len(evs) == 0 {
		return
	}
	type litKey struct {
		day  time.Time
		text string
	}
	counts := make(map[litKey]int)
	defaulted := 0
	var misses []models.NewsEvent
	for _, ev := range evs {
		counts[litKey{ev.Date, strings.ToLower(strings.TrimSpace(ev.Text))}]++
		if !anyPatternHit(ev) {
			defaulted++
		}
		if securityHints.MatchString(strings.ToLower(ev.Text)) && ev.Group != "Безопасность/ЧС" {
			if len(misses) < sampleN {
				misses = append(misses, ev)
			}
		}
	}
	dupes := 0
	for _, n := range counts {
		if n > 1 {
			dupes += n - 1
		}
	}
	defaultShare := float64(defaulted) / float64(len(evs))

	if dupes == 0 && defaultShare <= 0.05 && len(misses) == 0 {
		return
	}
	log.Printf("news audit: %d duplicate events beyond the first", dupes)
	log.Printf("news audit: default-group share %.3f", defaultShare)
	for _, ev := range misses {
		log.Printf("news audit: combat-sounding event outside Безопасность/ЧС: %s | %s | cat=%s mapped=%s",
			ev.Date.Format("2006-01-02"), ev.Text, ev.RawCat, ev.Group)
	}
}

func anyPatternHit(ev models.NewsEvent) bool {
	s := strings.ToLower(ev.NormCat + " " + ev.Text)
	for _, pats := range groupPatterns {
		for _, pat := range pats {
			if strings.Contains(s, pat) {
				return true
			}
		}
	}
	return false
}
