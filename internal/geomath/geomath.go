// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package geomath holds the small numeric helpers shared by the
// navigation pipeline: angle normalization, window averaging, clamping
// and great-circle distance/bearing on a spherical Earth.
package geomath

import (
	"math"

	geo "github.com/kellydunn/golang-geo"
)

// MeanEarthRadiusMeters is the IUGG mean Earth radius used for distances.
const MeanEarthRadiusMeters = 6371008.8

// Valid coordinate ranges in decimal degrees.
const (
	MinLatitude  = -90.0
	MaxLatitude  = 90.0
	MinLongitude = -180.0
	MaxLongitude = 180.0
)

// Coordinate is a WGS-84 position in decimal degrees.
type Coordinate struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
}

// Finite reports whether both components are real numbers.
func (c Coordinate) Finite() bool {
	return isFinite(c.Latitude) && isFinite(c.Longitude)
}

// ClampCoordinate limits latitude to [-90, 90] and longitude to [-180, 180].
func ClampCoordinate(c Coordinate) Coordinate {
	return Coordinate{
		Latitude:  Clamp(c.Latitude, MinLatitude, MaxLatitude),
		Longitude: Clamp(c.Longitude, MinLongitude, MaxLongitude),
	}
}

// NormalizeDegrees maps any angle onto [0, 360).
func NormalizeDegrees(x float64) float64 {
	r := math.Mod(x, 360)
	if r < 0 {
		r += 360
	}
	// tiny negative remainders round up to exactly 360
	if r >= 360 {
		r -= 360
	}
	return r
}

// Mean returns the arithmetic mean of values summed left to right,
// or 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Clamp returns lo if v < lo, hi if v > hi, else v. lo must not exceed hi.
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// DistanceAndBearing returns the great-circle distance in meters (haversine)
// and the initial bearing in degrees from one coordinate to another.
// The bearing lies in (-180, 180] and is not normalized.
func DistanceAndBearing(from, to Coordinate) (distanceM, bearingDeg float64) {
	p := geo.NewPoint(from.Latitude, from.Longitude)
	q := geo.NewPoint(to.Latitude, to.Longitude)

	distanceM = centralAngle(from, to) * MeanEarthRadiusMeters
	bearingDeg = p.BearingTo(q)
	return distanceM, bearingDeg
}

// centralAngle is the haversine angle in radians between two coordinates.
// The haversine term is clamped to [0, 1]: near antipodes rounding can push
// it past 1, and sqrt(1-a) would then be NaN.
func centralAngle(from, to Coordinate) float64 {
	lat1, lat2 := radians(from.Latitude), radians(to.Latitude)
	dLat := lat2 - lat1
	dLon := radians(to.Longitude - from.Longitude)

	sinLat, sinLon := math.Sin(dLat/2), math.Sin(dLon/2)
	a := sinLat*sinLat + sinLon*sinLon*math.Cos(lat1)*math.Cos(lat2)
	a = Clamp(a, 0, 1)
	return 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180.0
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
