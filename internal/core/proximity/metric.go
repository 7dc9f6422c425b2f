package proximity

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/planar"
)

// Metric measures the distance between two points. Snap and off-route
// thresholds are expressed in the unit of the metric in use.
type Metric func(a, b orb.Point) float64

var (
	// Planar is plain Euclidean distance in coordinate units.
	Planar Metric = planar.Distance
	// Haversine is great-circle distance in meters.
	Haversine Metric = geo.DistanceHaversine
)
