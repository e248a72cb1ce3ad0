// Package geomath provides geodesic distance computation over an oblate
// Earth model. All latitudes and longitudes are radians, elevations and
// distances are meters.
package geomath

import (
	"math"

	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
)

// WGS-84 reference ellipsoid radii in meters.
const (
	EquatorialRadius = 6378137.0
	PolarRadius      = 6356752.314245
)

// Strategy selects the geodesic distance algorithm. All strategies share the
// same input/output contract so callers can switch without code changes.
type Strategy int

const (
	// StrategyHaversine computes the haversine central angle on a sphere
	// whose radius is interpolated between the polar and equatorial radii
	// at the mean latitude, elevated by the mean elevation. Default.
	StrategyHaversine Strategy = iota

	// StrategySpherical uses the s2 geometry library's spherical angle
	// on the mean Earth radius.
	StrategySpherical

	// StrategyVincenty solves the inverse geodesic problem on the WGS-84
	// ellipsoid. Falls back to StrategyHaversine when the iteration does
	// not converge (near-antipodal points).
	StrategyVincenty
)

func (s Strategy) String() string {
	switch s {
	case StrategyHaversine:
		return "haversine"
	case StrategySpherical:
		return "spherical"
	case StrategyVincenty:
		return "vincenty"
	}
	return "unknown"
}

// DegToRad converts degrees to radians.
func DegToRad(deg float64) float64 {
	return deg * math.Pi / 180.0
}

// RadToDeg converts radians to degrees.
func RadToDeg(rad float64) float64 {
	return rad * 180.0 / math.Pi
}

// EarthRadius returns the Earth radius at the given latitude (radians),
// interpolated between the polar and equatorial radii and elevated by ele
// meters.
func EarthRadius(lat, ele float64) float64 {
	c := math.Abs(math.Cos(lat))
	return PolarRadius + (EquatorialRadius-PolarRadius)*c + ele
}

// Distance returns the planar (surface) and total (elevation-aware) distance
// in meters between two points given as radians and meters of elevation.
// The total distance combines the planar distance and the elevation delta
// via the Pythagorean relation. Identical points yield (0, 0).
func Distance(strategy Strategy, lat1, lat2, lon1, lon2, ele1, ele2 float64) (planar, total float64) {
	if lat1 == lat2 && lon1 == lon2 {
		dEle := ele2 - ele1
		return 0, math.Abs(dEle)
	}

	switch strategy {
	case StrategySpherical:
		planar = sphericalDistance(lat1, lat2, lon1, lon2)
	case StrategyVincenty:
		var ok bool
		planar, ok = vincentyDistance(lat1, lat2, lon1, lon2)
		if !ok {
			planar = haversineDistance(lat1, lat2, lon1, lon2, ele1, ele2)
		}
	default:
		planar = haversineDistance(lat1, lat2, lon1, lon2, ele1, ele2)
	}

	dEle := ele2 - ele1
	total = math.Sqrt(planar*planar + dEle*dEle)
	return planar, total
}

// haversineDistance computes the great-circle distance on a sphere of
// latitude- and elevation-dependent radius.
func haversineDistance(lat1, lat2, lon1, lon2, ele1, ele2 float64) float64 {
	dLat := lat2 - lat1
	dLon := lon2 - lon1

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)

	a := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLon*sinLon
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	meanLat := (lat1 + lat2) / 2
	meanEle := (ele1 + ele2) / 2
	return EarthRadius(meanLat, meanEle) * c
}

// sphericalDistance computes the central angle with the s2 library on the
// mean Earth radius.
func sphericalDistance(lat1, lat2, lon1, lon2 float64) float64 {
	const meanRadius = (2*EquatorialRadius + PolarRadius) / 3

	p1 := s2.LatLng{Lat: s1.Angle(lat1), Lng: s1.Angle(lon1)}
	p2 := s2.LatLng{Lat: s1.Angle(lat2), Lng: s1.Angle(lon2)}
	return p1.Distance(p2).Radians() * meanRadius
}

// vincentyDistance solves the inverse geodesic problem on the WGS-84
// ellipsoid. Returns ok=false when the iteration fails to converge.
func vincentyDistance(lat1, lat2, lon1, lon2 float64) (float64, bool) {
	const (
		a = EquatorialRadius
		b = PolarRadius
		f = (a - b) / a

		maxIterations = 200
		tolerance     = 1e-12
	)

	u1 := math.Atan((1 - f) * math.Tan(lat1))
	u2 := math.Atan((1 - f) * math.Tan(lat2))
	l := lon2 - lon1

	sinU1, cosU1 := math.Sincos(u1)
	sinU2, cosU2 := math.Sincos(u2)

	lambda := l
	var sinSigma, cosSigma, sigma, cosSqAlpha, cos2SigmaM float64
	for i := 0; i < maxIterations; i++ {
		sinLambda, cosLambda := math.Sincos(lambda)
		sinSigma = math.Sqrt(math.Pow(cosU2*sinLambda, 2) +
			math.Pow(cosU1*sinU2-sinU1*cosU2*cosLambda, 2))
		if sinSigma == 0 {
			return 0, true // coincident points
		}
		cosSigma = sinU1*sinU2 + cosU1*cosU2*cosLambda
		sigma = math.Atan2(sinSigma, cosSigma)

		sinAlpha := cosU1 * cosU2 * sinLambda / sinSigma
		cosSqAlpha = 1 - sinAlpha*sinAlpha
		if cosSqAlpha == 0 {
			cos2SigmaM = 0 // equatorial line
		} else {
			cos2SigmaM = cosSigma - 2*sinU1*sinU2/cosSqAlpha
		}

		c := f / 16 * cosSqAlpha * (4 + f*(4-3*cosSqAlpha))
		prev := lambda
		lambda = l + (1-c)*f*sinAlpha*
			(sigma+c*sinSigma*(cos2SigmaM+c*cosSigma*(-1+2*cos2SigmaM*cos2SigmaM)))
		if math.Abs(lambda-prev) < tolerance {
			uSq := cosSqAlpha * (a*a - b*b) / (b * b)
			bigA := 1 + uSq/16384*(4096+uSq*(-768+uSq*(320-175*uSq)))
			bigB := uSq / 1024 * (256 + uSq*(-128+uSq*(74-47*uSq)))
			deltaSigma := bigB * sinSigma * (cos2SigmaM + bigB/4*
				(cosSigma*(-1+2*cos2SigmaM*cos2SigmaM)-
					bigB/6*cos2SigmaM*(-3+4*sinSigma*sinSigma)*(-3+4*cos2SigmaM*cos2SigmaM)))
			return b * bigA * (sigma - deltaSigma), true
		}
	}
	return 0, false
}
