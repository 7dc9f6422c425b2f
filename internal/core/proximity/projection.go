// Package proximity finds where a position sits relative to a route polyline.
//
// Coordinates are treated as a locally flat plane (X=longitude,
// Y=latitude). That is accurate enough at campus and city scale and drifts
// far from the equator or over long segments.
package proximity

import (
	"math"

	"github.com/paulmach/orb"
)

// ProjectOntoSegment returns the point of segment a-b closest to p together
// with the projection parameter t, clamped to [0, 1]. A degenerate segment
// (a == b) projects everything onto a with t = 0.
func ProjectOntoSegment(p, a, b orb.Point) (orb.Point, float64) {
	dx := b[0] - a[0]
	dy := b[1] - a[1]

	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		return a, 0
	}

	t := ((p[0]-a[0])*dx + (p[1]-a[1])*dy) / lenSq
	switch {
	case t <= 0:
		return a, 0
	case t >= 1:
		return b, 1
	}
	return orb.Point{a[0] + t*dx, a[1] + t*dy}, t
}

// ClosestPoint returns the point on line nearest to p. When line has fewer
// than two vertices the projection is undefined: p is returned unchanged and
// ok is false.
func ClosestPoint(line orb.LineString, p orb.Point) (closest orb.Point, ok bool) {
	if len(line) < 2 {
		return p, false
	}

	best := math.Inf(1)
	for i := 0; i < len(line)-1; i++ {
		c, _ := ProjectOntoSegment(p, line[i], line[i+1])
		if d := squaredDistance(p, c); d < best {
			best = d
			closest = c
		}
	}
	return closest, true
}

func squaredDistance(a, b orb.Point) float64 {
	dx := a[0] - b[0]
	dy := a[1] - b[1]
	return dx*dx + dy*dy
}
