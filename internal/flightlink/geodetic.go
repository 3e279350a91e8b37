package flightlink

import (
	"math"

	"github.com/uwarg/obstacle-avoidance-core/internal/domain"
)

// WGS-84 ellipsoid parameters.
const (
	wgs84SemiMajorAxis = 6378137.0
	wgs84Flattening    = 1.0 / 298.257223563
)

// GlobalPosition is a geodetic position: latitude/longitude in
// degrees, altitude in metres above the WGS-84 ellipsoid.
type GlobalPosition struct {
	Latitude, Longitude, Altitude float64
}

// earthRadii returns the WGS-84 meridional radius of curvature (north-
// south) and prime-vertical radius of curvature (east-west) at
// latitudeDeg, the standard local-tangent-plane approximation inputs.
func earthRadii(latitudeDeg float64) (meridional, primeVertical float64) {
	e2 := wgs84Flattening * (2 - wgs84Flattening)
	sinLat := math.Sin(latitudeDeg * math.Pi / 180)
	denom := 1 - e2*sinLat*sinLat

	meridional = wgs84SemiMajorAxis * (1 - e2) / math.Pow(denom, 1.5)
	primeVertical = wgs84SemiMajorAxis / math.Sqrt(denom)
	return meridional, primeVertical
}

// globalToLocal converts a geodetic position into a NED position
// relative to home, using the earth's radius of curvature at home's
// latitude held fixed across the conversion — a flat-earth local-
// tangent-plane approximation rather than a full ellipsoidal transform.
func globalToLocal(pos, home GlobalPosition) domain.PositionLocal {
	meridional, primeVertical := earthRadii(home.Latitude)

	dLat := (pos.Latitude - home.Latitude) * math.Pi / 180
	dLon := (pos.Longitude - home.Longitude) * math.Pi / 180
	homeLatRad := home.Latitude * math.Pi / 180

	return domain.PositionLocal{
		North: dLat * meridional,
		East:  dLon * primeVertical * math.Cos(homeLatRad),
		Down:  home.Altitude - pos.Altitude,
	}
}
