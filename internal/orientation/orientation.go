// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"math"

	"github.com/golang/geo/r3"

	"github.com/relabs-tech/compass_nav/internal/geomath"
	"github.com/relabs-tech/compass_nav/internal/imu"
)

// degenerateNorm is the smallest |m × a| that still yields a usable east axis.
const degenerateNorm = 1e-7

// Orientation is azimuth/pitch/roll in radians, SensorManager convention.
type Orientation struct {
	Azimuth float64 `json:"azimuth"`
	Pitch   float64 `json:"pitch"`
	Roll    float64 `json:"roll"`
}

// Matrix is a row-major rotation from device axes to the world frame
// (X east, Y magnetic north, Z up).
type Matrix [3][3]float64

// RotationMatrix builds the device→world rotation from gravity and the
// geomagnetic vector. Rows are east, north, up. ok is false when the
// vectors are parallel or zero and no heading can be derived.
func RotationMatrix(accel, mag imu.Vector3) (m Matrix, ok bool) {
	a := accel.R3()
	east := mag.R3().Cross(a)
	if east.Norm() < degenerateNorm {
		return Matrix{}, false
	}
	east = east.Normalize()
	up := a.Normalize()
	north := up.Cross(east)

	return Matrix{rowOf(east), rowOf(north), rowOf(up)}, true
}

func rowOf(v r3.Vector) [3]float64 {
	return [3]float64{v.X, v.Y, v.Z}
}

// FromMatrix extracts azimuth, pitch and roll.
func FromMatrix(r Matrix) Orientation {
	return Orientation{
		Azimuth: math.Atan2(r[0][1], r[1][1]),
		Pitch:   math.Asin(-r[2][1]),
		Roll:    math.Atan2(-r[2][0], r[2][2]),
	}
}

// NorthAzimuthDeg converts a device azimuth into the rotation, in whole
// degrees within [0, 360), that turns a compass plate toward north.
func NorthAzimuthDeg(azimuthRad float64) float64 {
	deg := math.Round(geomath.NormalizeDegrees(-azimuthRad * 180.0 / math.Pi))
	// 359.5 and up rounds to 360
	return geomath.NormalizeDegrees(deg)
}

// Degrees returns the orientation with every angle in degrees.
func (o Orientation) Degrees() Orientation {
	return Orientation{
		Azimuth: o.Azimuth * 180.0 / math.Pi,
		Pitch:   o.Pitch * 180.0 / math.Pi,
		Roll:    o.Roll * 180.0 / math.Pi,
	}
}
