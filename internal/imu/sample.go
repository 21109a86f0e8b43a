// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package imu

import (
	"fmt"
	"math"
	"time"

	"github.com/golang/geo/r3"
)

// Kind tags which sensor produced a sample.
type Kind string

const (
	Accelerometer Kind = "accel" // specific force, m/s²
	Magnetometer  Kind = "mag"   // flux density, µT
)

// Vector3 is one immutable sensor reading in device coordinates.
type Vector3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// R3 converts the reading for vector algebra.
func (v Vector3) R3() r3.Vector {
	return r3.Vector{X: v.X, Y: v.Y, Z: v.Z}
}

// Finite reports whether no component is NaN or infinite.
func (v Vector3) Finite() bool {
	for _, c := range [3]float64{v.X, v.Y, v.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// Sample is a Vector3 tagged with its sensor kind, as carried over MQTT.
type Sample struct {
	Kind Kind      `json:"kind"`
	X    float64   `json:"x"`
	Y    float64   `json:"y"`
	Z    float64   `json:"z"`
	Time time.Time `json:"time"`
}

// Vector returns the sample's reading.
func (s Sample) Vector() Vector3 {
	return Vector3{X: s.X, Y: s.Y, Z: s.Z}
}

// Validate checks the kind tag.
func (s Sample) Validate() error {
	switch s.Kind {
	case Accelerometer, Magnetometer:
		return nil
	default:
		return fmt.Errorf("unknown sample kind %q", s.Kind)
	}
}

// Raw is one accelerometer + magnetometer read from a device.
type Raw struct {
	Source string  `json:"source"` // "mock", "mpu9250", ...
	Accel  Vector3 `json:"accel"`
	Mag    Vector3 `json:"mag"`
}

// Samples splits the read into two tagged samples, accelerometer first.
func (r Raw) Samples(t time.Time) []Sample {
	return []Sample{
		{Kind: Accelerometer, X: r.Accel.X, Y: r.Accel.Y, Z: r.Accel.Z, Time: t},
		{Kind: Magnetometer, X: r.Mag.X, Y: r.Mag.Y, Z: r.Mag.Z, Time: t},
	}
}

// RawSource is a device that can be polled for one Raw read.
type RawSource interface {
	NextRaw() (Raw, error)
}
