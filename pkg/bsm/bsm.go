// Package bsm defines the basic safety message and the kinematic field
// computation from consecutive position fixes.
package bsm

import "math"

// earthRadiusKM is the mean Earth radius used for great-circle distance.
const earthRadiusKM = 6371.0

// BSM is the application payload protected by the SPDU signature: a single
// vehicle position fix with derived kinematics.
type BSM struct {
	Latitude  float64
	Longitude float64
	Elevation float64
	Speed     float64 // km/h
	Heading   float64 // degrees clockwise from true north, [0, 360)
}

// New builds a BSM from the current fix and the previous one, deriving speed
// and heading. intervalMS is the trace timestep in milliseconds.
func New(prevLat, prevLon, lat, lon, elevation, intervalMS float64) BSM {
	return BSM{
		Latitude:  lat,
		Longitude: lon,
		Elevation: elevation,
		Speed:     SpeedKPH(prevLat, lat, prevLon, lon, intervalMS),
		Heading:   Heading(prevLat, lat, prevLon, lon),
	}
}

// First builds the BSM for the first trace timestep. With no prior fix the
// kinematic fields are zero.
func First(lat, lon, elevation float64) BSM {
	return BSM{Latitude: lat, Longitude: lon, Elevation: elevation}
}

// SpeedKPH computes speed in km/h from two fixes intervalMS milliseconds
// apart, using the haversine great-circle distance.
func SpeedKPH(lat1, lat2, lon1, lon2, intervalMS float64) float64 {
	if intervalMS <= 0 {
		return 0
	}
	distKM := haversineKM(lat1, lon1, lat2, lon2)
	hours := intervalMS / 3.6e6
	return distKM / hours
}

// Heading computes the initial great-circle bearing from the first fix to the
// second, in degrees clockwise from true north.
func Heading(lat1, lat2, lon1, lon2 float64) float64 {
	phi1 := radians(lat1)
	phi2 := radians(lat2)
	dLambda := radians(lon2 - lon1)

	y := math.Sin(dLambda) * math.Cos(phi2)
	x := math.Cos(phi1)*math.Sin(phi2) - math.Sin(phi1)*math.Cos(phi2)*math.Cos(dLambda)
	bearing := math.Atan2(y, x) * 180 / math.Pi
	return math.Mod(bearing+360, 360)
}

func haversineKM(lat1, lon1, lat2, lon2 float64) float64 {
	dPhi := radians(lat2 - lat1)
	dLambda := radians(lon2 - lon1)
	phi1 := radians(lat1)
	phi2 := radians(lat2)

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKM * c
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
