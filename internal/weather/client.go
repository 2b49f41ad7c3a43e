// Package weather fetches historical daily weather from the Open-Meteo
// archive API. The API is an opaque data source with a fixed schema; no
// retry logic beyond the client timeout.
package weather

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// Daily is one day of archive weather at a location.
type Daily struct {
	TemperatureMax   float64
	TemperatureMin   float64
	TemperatureMean  float64
	Precipitation    float64
	Rain             float64
	RainHours        float64
	WindSpeedMax     float64
	WindGustsMax     float64
	SunshineDuration float64
}

// Client talks to the Open-Meteo archive endpoint.
type Client struct {
	base string
	rest *resty.Client
}

// NewClient creates an archive API client.
func NewClient(baseURL string, timeout time.Duration) *Client {
	r := resty.New()
	if timeout > 0 {
		r.SetTimeout(timeout)
	} else {
		r.SetTimeout(10 * time.Second)
	}
	return &Client{base: strings.TrimRight(baseURL, "/"), rest: r}
}

var dailyVariables = []string{
	"temperature_2m_max",
	"temperature_2m_min",
	"temperature_2m_mean",
	"precipitation_sum",
	"rain_sum",
	"precipitation_hours",
	"windspeed_10m_max",
	"windgusts_10m_max",
	"sunshine_duration",
}

type archiveResponse struct {
	Daily  map[string][]float64 `json:"daily"`
	Error  bool                 `json:"error"`
	Reason string               `json:"reason"`
}

// FetchDaily returns the daily weather for one location and date
// (YYYY-MM-DD).
func (c *Client) FetchDaily(ctx context.Context, lat, lon float64, date string) (Daily, error) {
	var out archiveResponse
	resp, err := c.rest.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"latitude":   fmt.Sprintf("%v", lat),
			"longitude":  fmt.Sprintf("%v", lon),
			"start_date": date,
			"end_date":   date,
			"daily":      strings.Join(dailyVariables, ","),
			"timezone":   "auto",
		}).
		SetResult(&out).
		Get(c.base + "/v1/archive")
	if err != nil {
		return Daily{}, fmt.Errorf("archive request: %w", err)
	}
	if resp.IsError() {
		return Daily{}, fmt.Errorf("archive request: status %d", resp.StatusCode())
	}
	if out.Error {
		return Daily{}, fmt.Errorf("archive request: %s", out.Reason)
	}
	if len(out.Daily) == 0 {
		return Daily{}, fmt.Errorf("archive response has no daily data for %v,%v on %s", lat, lon, date)
	}

	first := func(name string) float64 {
		if vs := out.Daily[name]; len(vs) > 0 {
			return vs[0]
		}
		return 0
	}
	return Daily{
		TemperatureMax:   first("temperature_2m_max"),
		TemperatureMin:   first("temperature_2m_min"),
		TemperatureMean:  first("temperature_2m_mean"),
		Precipitation:    first("precipitation_sum"),
		Rain:             first("rain_sum"),
		RainHours:        first("precipitation_hours"),
		WindSpeedMax:     first("windspeed_10m_max"),
		WindGustsMax:     first("windgusts_10m_max"),
		SunshineDuration: first("sunshine_duration"),
	}, nil
}

// ParseDate normalizes the event-date formats occurrence exports carry:
// ranges take their start date, timezone suffixes are dropped, and both
// date-only and timestamp forms are accepted. Returns YYYY-MM-DD.
func ParseDate(raw string) (string, error) {
	if raw == "" {
		return "", fmt.Errorf("empty date")
	}
	// Date ranges: take the start.
	if i := strings.Index(raw, "/"); i >= 0 {
		raw = raw[:i]
	}
	raw = strings.ReplaceAll(raw, "T", " ")
	if i := strings.Index(raw, "+"); i >= 0 {
		raw = raw[:i]
	}
	raw = strings.TrimSuffix(raw, "Z")
	raw = strings.TrimSpace(raw)

	for _, layout := range []string{"2006-01-02 15:04:05", "2006-01-02 15:04", "2006-01-02", "2006-01", "2006"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format("2006-01-02"), nil
		}
	}
	return "", fmt.Errorf("unparseable date %q", raw)
}
