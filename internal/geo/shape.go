package geo

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// metersPerDegree is the flat-earth conversion used when buffering a center
// point into a disc. It is only valid for small radii at moderate latitudes,
// which covers the subscription radii this service accepts.
const metersPerDegree = 111000.0

// discSegments is the number of edges used to approximate a disc.
const discSegments = 64

// DiscPolygon approximates a disc of radiusMeters around center as a regular
// polygon, with the radius converted to degrees via the flat-earth factor.
func DiscPolygon(center orb.Point, radiusMeters float64) orb.Polygon {
	r := radiusMeters / metersPerDegree
	ring := make(orb.Ring, 0, discSegments+1)
	for i := 0; i < discSegments; i++ {
		theta := 2 * math.Pi * float64(i) / discSegments
		ring = append(ring, orb.Point{
			center[0] + r*math.Cos(theta),
			center[1] + r*math.Sin(theta),
		})
	}
	ring = append(ring, ring[0])

	return orb.Polygon{ring}
}

// Area returns the planar area of a polygon, independent of ring winding.
func Area(p orb.Polygon) float64 {
	return math.Abs(planar.Area(p))
}

// OverlapArea returns the planar area of the intersection of two convex
// polygons. Both subscription shapes (bounding boxes and disc
// approximations) are convex, so Sutherland-Hodgman clipping is exact here;
// orb has no general boolean overlay.
func OverlapArea(a, b orb.Polygon) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	clipped := clipConvex(a[0], b[0])
	if len(clipped) < 3 {
		return 0
	}
	clipped = append(clipped, clipped[0])

	return Area(orb.Polygon{clipped})
}

// clipConvex clips the subject ring against each edge of the convex clip
// ring. Rings may be open or closed; the result is open.
func clipConvex(subject, clip orb.Ring) orb.Ring {
	output := openRing(subject)
	clip = openRing(clip)
	ccw := isCCW(clip)

	for i := 0; i < len(clip); i++ {
		if len(output) == 0 {
			return nil
		}

		edgeA := clip[i]
		edgeB := clip[(i+1)%len(clip)]
		input := output
		output = nil

		for j := 0; j < len(input); j++ {
			current := input[j]
			previous := input[(j+len(input)-1)%len(input)]

			currIn := inside(edgeA, edgeB, current, ccw)
			prevIn := inside(edgeA, edgeB, previous, ccw)

			switch {
			case currIn && prevIn:
				output = append(output, current)
			case currIn && !prevIn:
				output = append(output, intersect(previous, current, edgeA, edgeB), current)
			case !currIn && prevIn:
				output = append(output, intersect(previous, current, edgeA, edgeB))
			}
		}
	}

	return output
}

func openRing(r orb.Ring) orb.Ring {
	if len(r) > 1 && r[0] == r[len(r)-1] {
		return r[:len(r)-1]
	}

	return r
}

func isCCW(r orb.Ring) bool {
	var sum float64
	for i := 0; i < len(r); i++ {
		p, q := r[i], r[(i+1)%len(r)]
		sum += (q[0] - p[0]) * (q[1] + p[1])
	}

	return sum < 0
}

func inside(a, b, p orb.Point, ccw bool) bool {
	cross := (b[0]-a[0])*(p[1]-a[1]) - (b[1]-a[1])*(p[0]-a[0])
	if ccw {
		return cross >= 0
	}

	return cross <= 0
}

func intersect(p1, p2, a, b orb.Point) orb.Point {
	dx1, dy1 := p2[0]-p1[0], p2[1]-p1[1]
	dx2, dy2 := b[0]-a[0], b[1]-a[1]

	denom := dx1*dy2 - dy1*dx2
	if denom == 0 {
		return p2
	}

	t := ((a[0]-p1[0])*dy2 - (a[1]-p1[1])*dx2) / denom

	return orb.Point{p1[0] + t*dx1, p1[1] + t*dy1}
}
