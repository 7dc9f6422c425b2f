package config

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/sethvargo/go-envconfig"

	"github.com/endlessworld/campusnav/internal/core/tracker"
)

func load(t *testing.T, env map[string]string) (*Config, error) {
	t.Helper()
	return LoadFrom(context.Background(), envconfig.MapLookuper(env))
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(t, map[string]string{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8080" || cfg.Mongo.Database != "campusnav" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.Tracking.SnapThreshold != 15 || cfg.Tracking.OffRouteThreshold != 25 {
		t.Fatalf("unexpected thresholds %+v", cfg.Tracking)
	}
	if cfg.Redis.SessionTTL != 12*time.Hour || cfg.Tracking.Workers != 8 {
		t.Fatalf("unexpected redis/tracking defaults")
	}
	if cfg.Directions.Profiles["walking"] != "foot" || cfg.Directions.Profiles["driving"] != "driving" {
		t.Fatalf("unexpected profiles %v", cfg.Directions.Profiles)
	}
}

func TestLoad_Overrides(t *testing.T) {
	cfg, err := load(t, map[string]string{
		"PORT":                       "9090",
		"SNAP_THRESHOLD_METERS":      "5",
		"OFF_ROUTE_THRESHOLD_METERS": "40",
		"DIRECTIONS_PROFILES":        "walking:walk",
		"LOG_PRETTY":                 "true",
	})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "9090" || cfg.Tracking.SnapThreshold != 5 || cfg.Tracking.OffRouteThreshold != 40 || !cfg.LogPretty {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.Directions.Profiles["walking"] != "walk" {
		t.Fatalf("unexpected profiles %v", cfg.Directions.Profiles)
	}
}

func TestLoad_RejectsInvertedThresholds(t *testing.T) {
	_, err := load(t, map[string]string{
		"SNAP_THRESHOLD_METERS":      "30",
		"OFF_ROUTE_THRESHOLD_METERS": "25",
	})
	if !errors.Is(err, ErrInvalidConfig) || !errors.Is(err, tracker.ErrInvalidThresholds) {
		t.Fatalf("expected ErrInvalidConfig wrapping ErrInvalidThresholds, got %v", err)
	}
}

func TestTrackingConfig_Tracker(t *testing.T) {
	tc := TrackingConfig{SnapThreshold: 15, OffRouteThreshold: 25}.Tracker()
	if tc.SnapThreshold != 15 || tc.OffRouteThreshold != 25 || tc.Metric == nil {
		t.Fatalf("unexpected tracker config %+v", tc)
	}
}

func TestLoad_ProductionNeedsSecret(t *testing.T) {
	if _, err := load(t, map[string]string{"ENV": "production"}); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
	if _, err := load(t, map[string]string{"ENV": "production", "JWT_SECRET": "s"}); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestBoundaryConfig_Bound(t *testing.T) {
	b := BoundaryConfig{CenterLat: -6.77, CenterLon: 39.24, Offset: 0.002}.Bound()
	if !b.Contains(orb.Point{39.241, -6.771}) {
		t.Fatal("point inside the square should be contained")
	}
	if b.Contains(orb.Point{39.245, -6.77}) {
		t.Fatal("point 0.005 deg east should be outside")
	}
	if !(BoundaryConfig{}).Bound().IsZero() {
		t.Fatal("zero offset disables the boundary")
	}
}
