// Package dataset reads the raw survey CSV and writes the enriched copy.
// Source columns are carried through verbatim; enrichment only appends.
package dataset

import (
	"compress/gzip"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/avdeyev/npsenrich/internal/models"
)

const dayFormat = "2006-01-02"

// Column names recognized in the source file. Everything else is passed
// through untouched.
const (
	colBusinessDT = "business_dt"
	colRegion     = "region"
	colSegment    = "segment"
	colWeight     = "ww"
)

var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"02.01.2006 15:04:05",
	"02.01.2006",
}

var weightJunk = regexp.MustCompile(`[^0-9eE.\-+]`)

// ParseWeight converts a free-form survey weight to a float. Decimal commas
// are accepted and stray characters stripped; anything unparseable weighs 1.
func ParseWeight(raw string) float64 {
	s := strings.ReplaceAll(raw, ",", ".")
	s = weightJunk.ReplaceAllString(s, "")
	if s == "" {
		return 1.0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 1.0
	}
	return v
}

func parseTimestamp(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// Load reads the survey CSV. The header must name business_dt and region;
// rows with unparseable timestamps are kept with a zero BusinessDT and
// degrade to neutral features downstream.
func Load(path string) ([]*models.Record, []string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[name] = i
	}
	if _, ok := idx[colBusinessDT]; !ok {
		return nil, nil, fmt.Errorf("dataset %s: missing required column %s", path, colBusinessDT)
	}
	if _, ok := idx[colRegion]; !ok {
		return nil, nil, fmt.Errorf("dataset %s: missing required column %s", path, colRegion)
	}

	cell := func(row []string, name string) string {
		i, ok := idx[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var recs []*models.Record
	badDates := 0
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("parse dataset: %w", err)
		}
		rec := &models.Record{
			Region:    cell(row, colRegion),
			Segment:   cell(row, colSegment),
			RawWeight: cell(row, colWeight),
			Extra:     make(map[string]string, len(header)),
		}
		for i, name := range header {
			if i < len(row) {
				rec.Extra[name] = row[i]
			}
		}
		rec.BusinessDT = parseTimestamp(cell(row, colBusinessDT))
		if rec.BusinessDT.IsZero() {
			badDates++
		}
		rec.Weight = ParseWeight(rec.RawWeight)
		recs = append(recs, rec)
	}
	if badDates > 0 {
		log.Printf("dataset: %d of %d rows have unparseable business_dt", badDates, len(recs))
	}
	return recs, header, nil
}

// WriteGzip writes the enriched dataset as gzip-compressed CSV: the source
// columns first, then day_local, msk_day, ww_weight and the feature catalog.
func WriteGzip(path string, recs []*models.Record, srcHeader, featureCols []string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer f.Close()
	gz := gzip.NewWriter(f)
	cw := csv.NewWriter(gz)

	seen := make(map[string]bool, len(srcHeader))
	header := make([]string, 0, len(srcHeader)+len(featureCols)+3)
	for _, name := range srcHeader {
		if !seen[name] {
			seen[name] = true
			header = append(header, name)
		}
	}
	for _, name := range []string{"day_local", "msk_day", "ww_weight"} {
		if !seen[name] {
			seen[name] = true
			header = append(header, name)
		}
	}
	for _, name := range featureCols {
		if !seen[name] {
			seen[name] = true
			header = append(header, name)
		}
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	fmtDay := func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format(dayFormat)
	}

	row := make([]string, len(header))
	for _, rec := range recs {
		for i, name := range header {
			switch name {
			case "day_local":
				row[i] = fmtDay(rec.DayLocal)
			case "msk_day":
				row[i] = fmtDay(rec.MSKDay)
			case "ww_weight":
				row[i] = strconv.FormatFloat(rec.Weight, 'g', -1, 64)
			default:
				if v, ok := rec.Feature(name); ok {
					row[i] = v
				} else {
					row[i] = rec.Extra[name]
				}
			}
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("close gzip: %w", err)
	}
	return nil
}
