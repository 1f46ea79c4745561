package weather

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/tidwall/gjson"
)

const defaultBaseURL = "https://archive-api.open-meteo.com/v1/archive"

var dailyVars = []string{
	"temperature_2m_mean",
	"temperature_2m_min",
	"temperature_2m_max",
	"precipitation_sum",
	"snowfall_sum",
	"wind_speed_10m_max",
	"pressure_msl_mean",
	"sunshine_duration",
}

// StationDay is one station's daily archive row. Nil fields were null in the
// upstream response.
type StationDay struct {
	Day      time.Time
	TempAvg  *float64
	TempMin  *float64
	TempMax  *float64
	PrecipMM *float64
	SnowMM   *float64
	WindKMH  *float64
	Pressure *float64
	SunMin   *float64
}

// Client fetches daily history from the Open-Meteo archive API.
type Client struct {
	hc      *http.Client
	baseURL string
}

func NewClient(hc *http.Client) *Client {
	return &Client{hc: hc, baseURL: defaultBaseURL}
}

// FetchDaily returns the daily rows for one station over [start, end],
// aggregated in the given timezone. Transient failures are retried with
// exponential backoff; client errors abort immediately.
func (c *Client) FetchDaily(ctx context.Context, lat, lon float64, tz string, start, end time.Time) ([]StationDay, error) {
	q := url.Values{}
	q.Set("latitude", fmt.Sprintf("%.4f", lat))
	q.Set("longitude", fmt.Sprintf("%.4f", lon))
	q.Set("start_date", start.Format("2006-01-02"))
	q.Set("end_date", end.Format("2006-01-02"))
	for _, v := range dailyVars {
		q.Add("daily", v)
	}
	q.Set("timezone", tz)
	reqURL := c.baseURL + "?" + q.Encode()

	var body []byte
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err := c.hc.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusNotFound {
			return backoff.Permanent(fmt.Errorf("archive request rejected: status %d", resp.StatusCode))
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("unexpected status %d", resp.StatusCode)
		}
		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 2 * time.Minute
	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
		return nil, fmt.Errorf("fetch archive for %.4f,%.4f: %w", lat, lon, err)
	}
	return parseDaily(body)
}

func parseDaily(body []byte) ([]StationDay, error) {
	root := gjson.ParseBytes(body)
	times := root.Get("daily.time").Array()
	if len(times) == 0 {
		return nil, fmt.Errorf("archive response has no daily.time array")
	}

	cols := make(map[string][]gjson.Result, len(dailyVars))
	for _, v := range dailyVars {
		cols[v] = root.Get("daily." + v).Array()
	}

	out := make([]StationDay, 0, len(times))
	for i, tr := range times {
		day, err := time.Parse("2006-01-02", tr.String())
		if err != nil {
			return nil, fmt.Errorf("bad daily.time value %q: %w", tr.String(), err)
		}
		sd := StationDay{Day: day}
		sd.TempAvg = cell(cols["temperature_2m_mean"], i, 1)
		sd.TempMin = cell(cols["temperature_2m_min"], i, 1)
		sd.TempMax = cell(cols["temperature_2m_max"], i, 1)
		sd.PrecipMM = cell(cols["precipitation_sum"], i, 1)
		sd.SnowMM = cell(cols["snowfall_sum"], i, 10) // cm to mm
		sd.WindKMH = cell(cols["wind_speed_10m_max"], i, 1)
		sd.Pressure = cell(cols["pressure_msl_mean"], i, 1)
		sd.SunMin = cell(cols["sunshine_duration"], i, 1.0/60) // seconds to minutes
		out = append(out, sd)
	}
	return out, nil
}

func cell(col []gjson.Result, i int, scale float64) *float64 {
	if i >= len(col) || col[i].Type == gjson.Null {
		return nil
	}
	v := col[i].Float() * scale
	return &v
}
