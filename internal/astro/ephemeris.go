// Package astro computes daily astronomical state from low-precision orbital
// elements: geocentric ecliptic longitudes for the Sun, Moon and planets,
// lunar phase and age, and the derived categorical features.
//
// The element sets and perturbation terms follow the classical low-precision
// formulation (Schlyter). Accuracy is within a fraction of a degree for the
// planets and about a tenth of a degree for the Moon, which is ample for
// sign, ingress and aspect detection with multi-degree orbs.
package astro

import (
	"math"
	"time"
)

// Planet identifies a body tracked by the engine.
type Planet int

const (
	Sun Planet = iota
	Moon
	Mercury
	Venus
	Mars
	Jupiter
	Saturn
	Uranus
	Neptune
	Pluto
)

var planetNames = map[Planet]string{
	Sun: "Sun", Moon: "Moon", Mercury: "Mercury", Venus: "Venus",
	Mars: "Mars", Jupiter: "Jupiter", Saturn: "Saturn",
	Uranus: "Uranus", Neptune: "Neptune", Pluto: "Pluto",
}

func (p Planet) String() string { return planetNames[p] }

// TrackedPlanets take part in retrograde, station and ingress detection.
var TrackedPlanets = []Planet{Mercury, Venus, Mars, Jupiter, Saturn, Uranus, Neptune, Pluto}

// AspectPlanets take part in hard-aspect counting.
var AspectPlanets = []Planet{Sun, Moon, Mercury, Venus, Mars, Jupiter, Saturn, Uranus, Neptune, Pluto}

var personal = map[Planet]bool{Sun: true, Moon: true, Mercury: true, Venus: true, Mars: true}
var heavy = map[Planet]bool{Saturn: true, Uranus: true, Neptune: true, Pluto: true}

// Signs in zodiac order, 30 degrees each from 0 Aries.
var Signs = []string{
	"Овен", "Телец", "Близнецы", "Рак", "Лев", "Дева",
	"Весы", "Скорпион", "Стрелец", "Козерог", "Водолей", "Рыбы",
}

// SynodicMonth is the mean lunation period in days.
const SynodicMonth = 29.530588853

const degToRad = math.Pi / 180

// epoch is 1999-12-31 00:00 UT, the zero point of the element polynomials.
var epoch = time.Date(1999, 12, 31, 0, 0, 0, 0, time.UTC)

// daysSinceEpoch returns fractional days from the element epoch to t.
func daysSinceEpoch(t time.Time) float64 {
	return t.UTC().Sub(epoch).Seconds() / 86400
}

func rev(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return deg
}

func sind(deg float64) float64 { return math.Sin(deg * degToRad) }
func cosd(deg float64) float64 { return math.Cos(deg * degToRad) }

func atan2d(y, x float64) float64 { return math.Atan2(y, x) / degToRad }

// elements holds the osculating orbital elements at time d, all angles in
// degrees.
type elements struct {
	n, i, w, a, e, m float64
}

func planetElements(p Planet, d float64) elements {
	switch p {
	case Sun:
		return elements{
			w: 282.9404 + 4.70935e-5*d,
			a: 1.0,
			e: 0.016709 - 1.151e-9*d,
			m: rev(356.0470 + 0.9856002585*d),
		}
	case Moon:
		return elements{
			n: 125.1228 - 0.0529538083*d,
			i: 5.1454,
			w: 318.0634 + 0.1643573223*d,
			a: 60.2666,
			e: 0.054900,
			m: rev(115.3654 + 13.0649929509*d),
		}
	case Mercury:
		return elements{
			n: 48.3313 + 3.24587e-5*d,
			i: 7.0047 + 5.00e-8*d,
			w: 29.1241 + 1.01444e-5*d,
			a: 0.387098,
			e: 0.205635 + 5.59e-10*d,
			m: rev(168.6562 + 4.0923344368*d),
		}
	case Venus:
		return elements{
			n: 76.6799 + 2.46590e-5*d,
			i: 3.3946 + 2.75e-8*d,
			w: 54.8910 + 1.38374e-5*d,
			a: 0.723330,
			e: 0.006773 - 1.302e-9*d,
			m: rev(48.0052 + 1.6021302244*d),
		}
	case Mars:
		return elements{
			n: 49.5574 + 2.11081e-5*d,
			i: 1.8497 - 1.78e-8*d,
			w: 286.5016 + 2.92961e-5*d,
			a: 1.523688,
			e: 0.093405 + 2.516e-9*d,
			m: rev(18.6021 + 0.5240207766*d),
		}
	case Jupiter:
		return elements{
			n: 100.4542 + 2.76854e-5*d,
			i: 1.3030 - 1.557e-7*d,
			w: 273.8777 + 1.64505e-5*d,
			a: 5.20256,
			e: 0.048498 + 4.469e-9*d,
			m: rev(19.8950 + 0.0830853001*d),
		}
	case Saturn:
		return elements{
			n: 113.6634 + 2.38980e-5*d,
			i: 2.4886 - 1.081e-7*d,
			w: 339.3939 + 2.97661e-5*d,
			a: 9.55475,
			e: 0.055546 - 9.499e-9*d,
			m: rev(316.9670 + 0.0334442282*d),
		}
	case Uranus:
		return elements{
			n: 74.0005 + 1.3978e-5*d,
			i: 0.7733 + 1.9e-8*d,
			w: 96.6612 + 3.0565e-5*d,
			a: 19.18171 - 1.55e-8*d,
			e: 0.047318 + 7.45e-9*d,
			m: rev(142.5905 + 0.011725806*d),
		}
	case Neptune:
		return elements{
			n: 131.7806 + 3.0173e-5*d,
			i: 1.7700 - 2.55e-7*d,
			w: 272.8461 - 6.027e-6*d,
			a: 30.05826 + 3.313e-8*d,
			e: 0.008606 + 2.15e-9*d,
			m: rev(260.2471 + 0.005995147*d),
		}
	}
	panic("astro: no elements for " + planetNames[p])
}

// eccentricAnomaly solves Kepler's equation in degrees.
func eccentricAnomaly(m, e float64) float64 {
	e0 := m + e/degToRad*sind(m)*(1+e*cosd(m))
	for iter := 0; iter < 20; iter++ {
		e1 := e0 - (e0-e/degToRad*sind(e0)-m)/(1-e*cosd(e0))
		if math.Abs(e1-e0) < 1e-5 {
			return e1
		}
		e0 = e1
	}
	return e0
}

// sunState returns the Sun's true ecliptic longitude and distance.
func sunState(d float64) (lon, r float64) {
	el := planetElements(Sun, d)
	ea := eccentricAnomaly(el.m, el.e)
	x := cosd(ea) - el.e
	y := sind(ea) * math.Sqrt(1-el.e*el.e)
	v := atan2d(y, x)
	r = math.Sqrt(x*x + y*y)
	return rev(v + el.w), r
}

// orbitalPosition returns heliocentric (or geocentric for the Moon)
// rectangular ecliptic coordinates from the body's elements.
func orbitalPosition(el elements) (x, y, z, r float64) {
	ea := eccentricAnomaly(el.m, el.e)
	xv := el.a * (cosd(ea) - el.e)
	yv := el.a * math.Sqrt(1-el.e*el.e) * sind(ea)
	v := atan2d(yv, xv)
	r = math.Sqrt(xv*xv + yv*yv)
	x = r * (cosd(el.n)*cosd(v+el.w) - sind(el.n)*sind(v+el.w)*cosd(el.i))
	y = r * (sind(el.n)*cosd(v+el.w) + cosd(el.n)*sind(v+el.w)*cosd(el.i))
	z = r * sind(v+el.w) * sind(el.i)
	return x, y, z, r
}

// moonLongitude returns the Moon's geocentric ecliptic longitude with the
// principal perturbation terms applied.
func moonLongitude(d float64) float64 {
	el := planetElements(Moon, d)
	x, y, _, _ := orbitalPosition(el)
	lon := rev(atan2d(y, x))

	sunEl := planetElements(Sun, d)
	ms := sunEl.m
	ls := rev(ms + sunEl.w) // Sun mean longitude
	mm := el.m
	lm := rev(mm + el.w + el.n) // Moon mean longitude
	dd := rev(lm - ls)          // mean elongation
	f := rev(lm - el.n)         // argument of latitude

	lon += -1.274*sind(mm-2*dd) +
		0.658*sind(2*dd) -
		0.186*sind(ms) -
		0.059*sind(2*mm-2*dd) -
		0.057*sind(mm-2*dd+ms) +
		0.053*sind(mm+2*dd) +
		0.046*sind(2*dd-ms) +
		0.041*sind(mm-ms) -
		0.035*sind(dd) -
		0.031*sind(mm+ms) -
		0.015*sind(2*f-2*dd) +
		0.011*sind(mm-4*dd)
	return rev(lon)
}

// plutoLongitude uses the dedicated trigonometric series; Pluto's orbit is
// too eccentric for the standard element form.
func plutoLongitude(d float64) float64 {
	s := 50.03 + 0.033459652*d
	p := 238.95 + 0.003968789*d

	lonecl := 238.9508 + 0.00400703*d -
		19.799*sind(p) + 19.848*cosd(p) +
		0.897*sind(2*p) - 4.956*cosd(2*p) +
		0.610*sind(3*p) + 1.211*cosd(3*p) -
		0.341*sind(4*p) - 0.190*cosd(4*p) +
		0.128*sind(5*p) - 0.034*cosd(5*p) -
		0.038*sind(6*p) + 0.031*cosd(6*p) +
		0.020*sind(s-p) - 0.010*cosd(s-p)
	latecl := -3.9082 -
		5.453*sind(p) - 14.975*cosd(p) -
		1.926*sind(2*p) + 0.840*cosd(2*p) +
		0.121*sind(3*p) + 0.361*cosd(3*p) +
		0.019*sind(4*p) - 0.130*cosd(4*p) -
		0.011*sind(5*p) + 0.123*cosd(5*p) -
		0.029*sind(6*p) - 0.026*cosd(6*p) +
		0.037*cosd(s-p)
	r := 40.72 + 9.75*sind(p) + 4.21*cosd(p)

	xh := r * cosd(lonecl) * cosd(latecl)
	yh := r * sind(lonecl) * cosd(latecl)
	sunLon, sunR := sunState(d)
	xg := xh + sunR*cosd(sunLon)
	yg := yh + sunR*sind(sunLon)
	return rev(atan2d(yg, xg))
}

// Longitude returns the geocentric ecliptic longitude of p at t, in degrees
// [0, 360).
func Longitude(p Planet, t time.Time) float64 {
	d := daysSinceEpoch(t)
	switch p {
	case Sun:
		lon, _ := sunState(d)
		return lon
	case Moon:
		return moonLongitude(d)
	case Pluto:
		return plutoLongitude(d)
	}
	el := planetElements(p, d)
	xh, yh, _, _ := orbitalPosition(el)
	sunLon, sunR := sunState(d)
	xg := xh + sunR*cosd(sunLon)
	yg := yh + sunR*sind(sunLon)
	return rev(atan2d(yg, xg))
}

// Speed returns the apparent daily motion of p in ecliptic longitude,
// degrees per day, negative when retrograde. The luminaries are never
// retrograde and report zero, matching their exclusion from tracking.
func Speed(p Planet, t time.Time) float64 {
	if p == Sun || p == Moon {
		return 0
	}
	lon1 := Longitude(p, t.Add(-12*time.Hour))
	lon2 := Longitude(p, t.Add(12*time.Hour))
	d := lon2 - lon1
	if d > 180 {
		d -= 360
	} else if d < -180 {
		d += 360
	}
	return d
}

// Sign returns the zodiac sign containing longitude lon.
func Sign(lon float64) string {
	idx := int(rev(lon) / 30)
	if idx > 11 {
		idx = 11
	}
	return Signs[idx]
}

// Elongation returns the Moon's elongation from the Sun in [0, 360).
func Elongation(t time.Time) float64 {
	return rev(Longitude(Moon, t) - Longitude(Sun, t))
}

// IlluminatedPct returns the Moon's illuminated fraction as a percentage.
func IlluminatedPct(t time.Time) float64 {
	return (1 - cosd(Elongation(t))) / 2 * 100
}

// LunarAge returns days elapsed since the preceding new moon, derived from
// the mean synodic cycle.
func LunarAge(t time.Time) float64 {
	return Elongation(t) / 360 * SynodicMonth
}
