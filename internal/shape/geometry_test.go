package shape

import (
	"image"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
)

func square(side float64) orb.Ring {
	return orb.Ring{
		{0, 0}, {side, 0}, {side, side}, {0, side}, {0, 0},
	}
}

func TestRingArea_Square(t *testing.T) {
	assert.InDelta(t, 100, ringArea(square(10)), 1e-9)
}

func TestRingPerimeter_Square(t *testing.T) {
	assert.InDelta(t, 40, ringPerimeter(square(10)), 1e-9)
}

func TestRingCentroid_Square(t *testing.T) {
	c := ringCentroid(square(10))
	assert.InDelta(t, 5, c.X(), 1e-9)
	assert.InDelta(t, 5, c.Y(), 1e-9)
}

func TestConvexHull_SquareWithInteriorPoint(t *testing.T) {
	pts := []image.Point{
		{0, 0}, {10, 0}, {10, 10}, {0, 10}, {5, 5},
	}
	hull := convexHull(pts)
	assert.GreaterOrEqual(t, len(hull), 4)
	for _, p := range hull {
		assert.False(t, p.X == 5 && p.Y == 5, "interior point should not survive hull")
	}
}

func TestDouglasPeucker_SimplifiesCollinearPoints(t *testing.T) {
	ring := orb.Ring{
		{0, 0}, {5, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0},
	}
	simplified := douglasPeucker(ring, 0.5)
	assert.LessOrEqual(t, len(simplified), len(ring))
}

func TestDouglasPeucker_SmallRingUnchanged(t *testing.T) {
	ring := orb.Ring{{0, 0}, {1, 0}, {1, 1}}
	assert.Equal(t, ring, douglasPeucker(ring, 1))
}
