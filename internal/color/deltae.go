package color

import "math"

// DeltaE00 computes the CIEDE2000 color difference between two CIELAB
// colors, the perceptual metric used to separate dominant/accent bins
// and to build per-pixel exclusive assignment masks.
func DeltaE00(l1, a1, b1, l2, a2, b2 float64) float64 {
	const (
		kL, kC, kH = 1.0, 1.0, 1.0
	)

	c1 := math.Hypot(a1, b1)
	c2 := math.Hypot(a2, b2)
	cBar := (c1 + c2) / 2

	c7 := math.Pow(cBar, 7)
	g := 0.5 * (1 - math.Sqrt(c7/(c7+math.Pow(25, 7))))

	a1p := a1 * (1 + g)
	a2p := a2 * (1 + g)

	c1p := math.Hypot(a1p, b1)
	c2p := math.Hypot(a2p, b2)

	h1p := atan2Deg(b1, a1p)
	h2p := atan2Deg(b2, a2p)

	deltaLp := l2 - l1
	deltaCp := c2p - c1p

	var deltahp float64
	switch {
	case c1p*c2p == 0:
		deltahp = 0
	case math.Abs(h2p-h1p) <= 180:
		deltahp = h2p - h1p
	case h2p-h1p > 180:
		deltahp = h2p - h1p - 360
	default:
		deltahp = h2p - h1p + 360
	}
	deltaHp := 2 * math.Sqrt(c1p*c2p) * math.Sin(deg2rad(deltahp)/2)

	lBarp := (l1 + l2) / 2
	cBarp := (c1p + c2p) / 2

	var hBarp float64
	switch {
	case c1p*c2p == 0:
		hBarp = h1p + h2p
	case math.Abs(h1p-h2p) <= 180:
		hBarp = (h1p + h2p) / 2
	case h1p+h2p < 360:
		hBarp = (h1p+h2p+360)/2
	default:
		hBarp = (h1p+h2p-360)/2
	}

	t := 1 - 0.17*math.Cos(deg2rad(hBarp-30)) +
		0.24*math.Cos(deg2rad(2*hBarp)) +
		0.32*math.Cos(deg2rad(3*hBarp+6)) -
		0.20*math.Cos(deg2rad(4*hBarp-63))

	deltaTheta := 30 * math.Exp(-math.Pow((hBarp-275)/25, 2))
	rc := 2 * math.Sqrt(math.Pow(cBarp, 7)/(math.Pow(cBarp, 7)+math.Pow(25, 7)))
	sl := 1 + (0.015*math.Pow(lBarp-50, 2))/math.Sqrt(20+math.Pow(lBarp-50, 2))
	sc := 1 + 0.045*cBarp
	sh := 1 + 0.015*cBarp*t
	rt := -math.Sin(deg2rad(2*deltaTheta)) * rc

	lTerm := deltaLp / (kL * sl)
	cTerm := deltaCp / (kC * sc)
	hTerm := deltaHp / (kH * sh)

	return math.Sqrt(lTerm*lTerm + cTerm*cTerm + hTerm*hTerm + rt*cTerm*hTerm)
}

func deg2rad(d float64) float64 { return d * math.Pi / 180 }

// atan2Deg returns atan2(y, x) in degrees, normalized to [0, 360).
func atan2Deg(y, x float64) float64 {
	if y == 0 && x == 0 {
		return 0
	}
	deg := math.Atan2(y, x) * 180 / math.Pi
	if deg < 0 {
		deg += 360
	}
	return deg
}
