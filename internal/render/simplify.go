package render

import (
	"math"

	"InkBoard/internal/state"
)

// DefaultEpsilon is the simplification tolerance, in page units, applied to
// freshly drawn strokes.
const DefaultEpsilon = 1.0

// Simplify reduces points with the Ramer–Douglas–Peucker algorithm. The
// first and last points are always kept. The input is never modified.
func Simplify(points []state.Point, epsilon float64) []state.Point {
	if len(points) <= 2 {
		return append([]state.Point(nil), points...)
	}

	first, last := points[0], points[len(points)-1]
	index, maxDist := 0, 0.0
	for i := 1; i < len(points)-1; i++ {
		d := perpendicularDistance(points[i], first, last)
		if d > maxDist {
			index, maxDist = i, d
		}
	}

	if maxDist > epsilon {
		left := Simplify(points[:index+1], epsilon)
		right := Simplify(points[index:], epsilon)
		return append(left[:len(left)-1], right...)
	}
	return []state.Point{first, last}
}

// perpendicularDistance is the distance from p to the line through a and b,
// or to a itself when a and b coincide.
func perpendicularDistance(p, a, b state.Point) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	length := math.Hypot(dx, dy)
	if length == 0 {
		return math.Hypot(p.X-a.X, p.Y-a.Y)
	}
	return math.Abs(dy*p.X-dx*p.Y+b.X*a.Y-b.Y*a.X) / length
}
