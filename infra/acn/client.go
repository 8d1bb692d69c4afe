// Package acn fetches historical charging sessions from the ACN-Data API and
// turns them into optimization scenarios.
package acn

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mdubois44/chargeplan/core/model"
	"github.com/mdubois44/chargeplan/infra/logger"
)

// DefaultAPIURL is the public ACN-Data sessions endpoint.
const DefaultAPIURL = "https://ev.caltech.edu/api/v1/sessions"

// Config holds API access and scenario-building parameters. The battery and
// power fields apply to every vehicle built from a session because the
// dataset does not expose them.
type Config struct {
	APIURL            string  `json:"api_url"`
	APIKey            string  `json:"api_key"`
	Site              string  `json:"site"`
	Date              string  `json:"date"`
	Limit             int     `json:"limit"`
	MaxRetries        int     `json:"max_retries"`
	RetryDelaySeconds float64 `json:"retry_delay_seconds"`
	TimeoutSeconds    float64 `json:"timeout_seconds"`
	BatteryKWh        float64 `json:"battery_capacity"`
	PowerMinKW        float64 `json:"power_min_kw"`
	PowerMaxKW        float64 `json:"power_max_kw"`
	Seed              int64   `json:"seed"`
}

func (c Config) withDefaults() Config {
	if c.APIURL == "" {
		c.APIURL = DefaultAPIURL
	}
	if c.Site == "" {
		c.Site = "caltech"
	}
	if c.Date == "" {
		c.Date = "2019-07-15"
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.RetryDelaySeconds <= 0 {
		c.RetryDelaySeconds = 1
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 30
	}
	if c.BatteryKWh <= 0 {
		c.BatteryKWh = 30
	}
	if c.PowerMinKW == 0 {
		c.PowerMinKW = -6
	}
	if c.PowerMaxKW <= 0 {
		c.PowerMaxKW = 30
	}
	if c.Seed == 0 {
		c.Seed = 42
	}
	return c
}

// Client queries the ACN-Data API.
type Client struct {
	cfg  Config
	http *http.Client
	log  logger.Logger
}

// NewClient creates an ACN-Data client.
func NewClient(cfg Config) *Client {
	cfg = cfg.withDefaults()
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds * float64(time.Second))},
		log:  logger.New("acn-client"),
	}
}

// Site returns the effective site identifier.
func (c *Client) Site() string { return c.cfg.Site }

// Date returns the effective query date, formatted 2006-01-02.
func (c *Client) Date() string { return c.cfg.Date }

// Limit returns the session cap, zero meaning no cap.
func (c *Client) Limit() int { return c.cfg.Limit }

type sessionItem struct {
	ID             string   `json:"_id"`
	UserID         string   `json:"userID"`
	ConnectionTime string   `json:"connectionTime"`
	DisconnectTime string   `json:"disconnectTime"`
	KWhDelivered   *float64 `json:"kWhDelivered"`
	SiteName       string   `json:"siteName"`
}

type sessionsResponse struct {
	Items []sessionItem `json:"_items"`
}

// FetchSessions retrieves the charging sessions recorded at a site on one
// day. Sessions missing required fields or reporting no delivered energy are
// skipped. limit caps the number of sessions the API returns; zero means no
// cap.
func (c *Client) FetchSessions(ctx context.Context, day time.Time, site string, limit int) ([]model.ChargingSession, error) {
	if site == "" {
		site = c.cfg.Site
	}
	// The API filters on RFC 1123 timestamps.
	dayStr := day.Format("Mon, 02 Jan 2006")
	where := fmt.Sprintf(`connectionTime>="%s 00:00:00 GMT" and connectionTime<="%s 23:59:59 GMT"`, dayStr, dayStr)

	q := url.Values{}
	q.Set("where", where)
	if limit > 0 {
		q.Set("max_results", strconv.Itoa(limit))
	}
	endpoint := fmt.Sprintf("%s/%s?%s", strings.TrimSuffix(c.cfg.APIURL, "/"), site, q.Encode())

	c.log.Infof("fetching sessions for %s at %s", day.Format("2006-01-02"), site)
	resp, err := c.getJSON(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	sessions := make([]model.ChargingSession, 0, len(resp.Items))
	skipped := 0
	for _, it := range resp.Items {
		s, ok := parseSession(it)
		if !ok {
			skipped++
			continue
		}
		sessions = append(sessions, s)
	}
	c.log.Infof("fetched %d valid sessions (%d skipped)", len(sessions), skipped)
	return sessions, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string) (*sessionsResponse, error) {
	var lastErr error
	for attempt := 0; attempt < c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(c.cfg.RetryDelaySeconds*float64(time.Second)) << (attempt - 1)
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("waiting for retry: %w", ctx.Err())
			case <-time.After(delay):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		if c.cfg.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = err
			c.log.Warnf("request failed (attempt %d/%d): %v", attempt+1, c.cfg.MaxRetries, err)
			continue
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}
		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
			c.log.Warnf("request failed (attempt %d/%d): %v", attempt+1, c.cfg.MaxRetries, lastErr)
			continue
		}

		var out sessionsResponse
		if err := json.Unmarshal(body, &out); err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
		return &out, nil
	}
	return nil, fmt.Errorf("request failed after %d attempts: %w", c.cfg.MaxRetries, lastErr)
}

func parseSession(it sessionItem) (model.ChargingSession, bool) {
	if it.UserID == "" || it.KWhDelivered == nil || *it.KWhDelivered <= 0 {
		return model.ChargingSession{}, false
	}
	conn, err := time.Parse(time.RFC1123, it.ConnectionTime)
	if err != nil {
		return model.ChargingSession{}, false
	}
	disc, err := time.Parse(time.RFC1123, it.DisconnectTime)
	if err != nil {
		return model.ChargingSession{}, false
	}

	id := it.ID
	if id == "" {
		id = "unknown"
	}
	site := it.SiteName
	if site == "" {
		site = "unknown"
	}
	return model.ChargingSession{
		SessionID:      id,
		UserID:         it.UserID,
		ConnectionTime: conn,
		DisconnectTime: disc,
		KWhDelivered:   *it.KWhDelivered,
		SiteName:       site,
	}, true
}

// BuildScenario turns fetched sessions into an optimization scenario. The
// dataset has no state-of-charge information, so each vehicle gets a seeded
// initial SoC and a target derived from the energy the session actually
// delivered.
func (c *Client) BuildScenario(sessions []model.ChargingSession, siteMaxPowerKW float64, horizon int) (*model.Scenario, error) {
	if len(sessions) == 0 {
		return nil, errors.New("cannot build scenario from an empty session list")
	}

	rng := rand.New(rand.NewSource(c.cfg.Seed))
	vehicles := make([]model.Vehicle, len(sessions))
	for i, s := range sessions {
		socInitial := 0.1 + rng.Float64()*0.3
		socTarget := math.Min(socInitial+s.KWhDelivered/c.cfg.BatteryKWh, 1.0)
		vehicles[i] = model.Vehicle{
			ID:         uuid.NewString(),
			UserID:     s.UserID,
			BatteryKWh: c.cfg.BatteryKWh,
			SoCInitial: socInitial,
			SoCTarget:  socTarget,
			Arrival:    s.ArrivalHour(),
			Departure:  s.DepartureHour(),
			PowerMinKW: c.cfg.PowerMinKW,
			PowerMaxKW: c.cfg.PowerMaxKW,
		}
	}

	name := fmt.Sprintf("caltech_%s", sessions[0].ConnectionTime.Format("2006-01-02"))
	c.log.Infof("building scenario %s from %d sessions", name, len(sessions))
	return model.NewScenario(name, vehicles, TOUPriceProfile(horizon), siteMaxPowerKW, horizon)
}

// TOUPriceProfile returns the California time-of-use tariff: on-peak 16h-22h,
// mid-peak 6h-16h, off-peak otherwise.
func TOUPriceProfile(horizon int) []float64 {
	prices := make([]float64, horizon)
	for h := range prices {
		switch {
		case h >= 16 && h < 22:
			prices[h] = 0.30
		case h >= 6 && h < 16:
			prices[h] = 0.18
		default:
			prices[h] = 0.12
		}
	}
	return prices
}
