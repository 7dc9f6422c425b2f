package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/paulmach/orb"
	"github.com/sethvargo/go-envconfig"

	"github.com/endlessworld/campusnav/internal/core/proximity"
	"github.com/endlessworld/campusnav/internal/core/tracker"
)

type Config struct {
	Port      string `env:"PORT,       default=8080"`
	Env       string `env:"ENV,        default=development"`
	JWTSecret string `env:"JWT_SECRET"`
	LogLevel  string `env:"LOG_LEVEL,  default=info"`
	LogPretty bool   `env:"LOG_PRETTY, default=false"`

	Mongo      MongoConfig
	Redis      RedisConfig
	Directions DirectionsConfig
	Tracking   TrackingConfig
	Boundary   BoundaryConfig
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=campusnav"`
}

type RedisConfig struct {
	Addr       string        `env:"REDIS_ADDR,     default=localhost:6379"`
	Password   string        `env:"REDIS_PASSWORD"`
	DB         int           `env:"REDIS_DB,       default=0"`
	SessionTTL time.Duration `env:"SESSION_TTL,    default=12h"`
}

type DirectionsConfig struct {
	BaseURL    string            `env:"DIRECTIONS_BASE_URL,    default=https://router.project-osrm.org"`
	Profiles   map[string]string `env:"DIRECTIONS_PROFILES,    default=walking:foot,cycling:bike,driving:driving"`
	Timeout    time.Duration     `env:"DIRECTIONS_TIMEOUT,     default=10s"`
	MaxRetries uint64            `env:"DIRECTIONS_MAX_RETRIES, default=3"`
}

type TrackingConfig struct {
	SnapThreshold        float64       `env:"SNAP_THRESHOLD_METERS,      default=15"`
	OffRouteThreshold    float64       `env:"OFF_ROUTE_THRESHOLD_METERS, default=25"`
	Workers              int           `env:"DISPATCHER_WORKERS,         default=8"`
	RecalculationTimeout time.Duration `env:"RECALCULATION_TIMEOUT,      default=30s"`
	SessionIdle          time.Duration `env:"SESSION_IDLE_EVICT,         default=30m"`
}

// Tracker returns the tracker tuning, measured with the haversine metric.
func (t TrackingConfig) Tracker() tracker.Config {
	return tracker.Config{
		SnapThreshold:     t.SnapThreshold,
		OffRouteThreshold: t.OffRouteThreshold,
		Metric:            proximity.Haversine,
	}
}

// BoundaryConfig is a square of ±Offset degrees around the campus centre.
// Offset 0 disables the check.
type BoundaryConfig struct {
	CenterLat float64 `env:"BOUNDARY_CENTER_LAT, default=-6.771204359255421"`
	CenterLon float64 `env:"BOUNDARY_CENTER_LON, default=39.24001333969674"`
	Offset    float64 `env:"BOUNDARY_OFFSET_DEG, default=0.002"`
}

// Bound returns the boundary as an orb.Bound, or a zero bound when disabled.
func (b BoundaryConfig) Bound() orb.Bound {
	if b.Offset <= 0 {
		return orb.Bound{}
	}
	return orb.Point{b.CenterLon, b.CenterLat}.Bound().Pad(b.Offset)
}

var ErrInvalidConfig = errors.New("config: invalid configuration")

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	return LoadFrom(ctx, envconfig.OsLookuper())
}

// LoadFrom reads configuration through l and validates it.
func LoadFrom(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, fmt.Errorf("config: failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints envconfig cannot express.
func (c *Config) Validate() error {
	if err := c.Tracking.Tracker().Validate(); err != nil {
		return fmt.Errorf("%w: SNAP_THRESHOLD_METERS/OFF_ROUTE_THRESHOLD_METERS: %w", ErrInvalidConfig, err)
	}
	if c.Env == "production" && c.JWTSecret == "" {
		return fmt.Errorf("%w: JWT_SECRET is required in production", ErrInvalidConfig)
	}
	if c.Directions.BaseURL == "" {
		return fmt.Errorf("%w: DIRECTIONS_BASE_URL is empty", ErrInvalidConfig)
	}
	return nil
}
