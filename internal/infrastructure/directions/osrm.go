// Package directions fetches walking, cycling and driving routes from an
// OSRM-compatible routing engine.
package directions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/rs/zerolog"

	"github.com/endlessworld/campusnav/internal/core/domain"
)

const (
	defaultTimeout         = 10 * time.Second
	defaultMaxRetries      = 3
	defaultInitialInterval = 200 * time.Millisecond
)

// DefaultProfiles maps travel modes to the profile names of the public OSRM
// builds.
var DefaultProfiles = map[string]string{
	domain.ModeWalking: "foot",
	domain.ModeCycling: "bike",
	domain.ModeDriving: "driving",
}

// Config configures the OSRM client.
type Config struct {
	BaseURL         string
	Profiles        map[string]string
	Timeout         time.Duration
	MaxRetries      uint64
	InitialInterval time.Duration
}

// Client calls GET {base}/route/v1/{profile}/{lon},{lat};{lon},{lat}.
type Client struct {
	cfg  Config
	http *http.Client
	log  zerolog.Logger
}

// NewClient returns a Client with defaults applied to unset fields.
func NewClient(cfg Config, log zerolog.Logger) *Client {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = defaultInitialInterval
	}
	if len(cfg.Profiles) == 0 {
		cfg.Profiles = DefaultProfiles
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		log:  log.With().Str("component", "directions").Logger(),
	}
}

type osrmResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Routes  []struct {
		Geometry json.RawMessage `json:"geometry"`
		Distance float64         `json:"distance"`
		Duration float64         `json:"duration"`
	} `json:"routes"`
}

// Route fetches the best route from one point to another. Server errors and
// transport failures are retried with exponential backoff; client errors and
// "no route" answers are not.
func (c *Client) Route(ctx context.Context, from, to domain.Coordinates, mode string) (*domain.Route, error) {
	profile, ok := c.cfg.Profiles[mode]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidMode, mode)
	}
	endpoint := fmt.Sprintf("%s/route/v1/%s/%.6f,%.6f;%.6f,%.6f?overview=full&geometries=geojson",
		c.cfg.BaseURL, url.PathEscape(profile), from.Lon, from.Lat, to.Lon, to.Lat)

	var route *domain.Route
	op := func() error {
		r, err := c.fetch(ctx, endpoint)
		if err != nil {
			return err
		}
		route = r
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.cfg.InitialInterval
	policy := backoff.WithContext(backoff.WithMaxRetries(b, c.cfg.MaxRetries), ctx)

	notify := func(err error, wait time.Duration) {
		c.log.Warn().Err(err).Dur("retry_in", wait).Str("mode", mode).Msg("directions request failed, retrying")
	}
	if err := backoff.RetryNotify(op, policy, notify); err != nil {
		if errors.Is(err, domain.ErrNoRouteFound) || errors.Is(err, domain.ErrDirectionsFailed) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrDirectionsFailed, err)
	}
	return route, nil
}

func (c *Client) fetch(ctx context.Context, endpoint string) (*domain.Route, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("osrm returned %d", resp.StatusCode)
	}

	var parsed osrmResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("%w: decode response: %v", domain.ErrDirectionsFailed, err))
	}

	switch {
	case parsed.Code == "NoRoute" || (parsed.Code == "Ok" && len(parsed.Routes) == 0):
		return nil, backoff.Permanent(domain.ErrNoRouteFound)
	case parsed.Code != "Ok":
		return nil, backoff.Permanent(fmt.Errorf("%w: %s: %s", domain.ErrDirectionsFailed, parsed.Code, parsed.Message))
	}

	best := parsed.Routes[0]
	path, err := decodeLineString(best.Geometry)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("%w: %v", domain.ErrDirectionsFailed, err))
	}
	return &domain.Route{
		Path:            path,
		DistanceMeters:  best.Distance,
		DurationSeconds: best.Duration,
	}, nil
}

func decodeLineString(raw json.RawMessage) (orb.LineString, error) {
	g, err := geojson.UnmarshalGeometry(raw)
	if err != nil {
		return nil, fmt.Errorf("decode geometry: %w", err)
	}
	ls, ok := g.Geometry().(orb.LineString)
	if !ok {
		return nil, fmt.Errorf("unexpected geometry type %s", g.Type)
	}
	return ls, nil
}
