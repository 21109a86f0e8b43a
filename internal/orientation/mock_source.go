// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"math"
	"time"

	"github.com/relabs-tech/compass_nav/internal/imu"
)

// Earth field used by the mock, roughly central Europe: 22 µT north, 40 µT down.
const (
	mockFieldNorth  = 22.0
	mockFieldUp     = -40.0
	standardGravity = 9.80665
)

type mockSource struct {
	start time.Time
	rate  float64 // degrees per second
}

// NewMockSource creates a mock sensor source for a device lying flat and
// turning clockwise at rateDegPerSec.
func NewMockSource(rateDegPerSec float64) imu.RawSource {
	return &mockSource{start: time.Now(), rate: rateDegPerSec}
}

func (m *mockSource) NextRaw() (imu.Raw, error) {
	elapsed := time.Since(m.start).Seconds()
	raw := SimulateHeading(math.Mod(elapsed*m.rate, 360))
	raw.Source = "mock"
	return raw, nil
}

// SimulateHeading returns the readings of a level device whose top edge
// points headingDeg clockwise from magnetic north.
func SimulateHeading(headingDeg float64) imu.Raw {
	psi := headingDeg * math.Pi / 180.0
	sin, cos := math.Sincos(psi)
	return imu.Raw{
		Accel: imu.Vector3{X: 0, Y: 0, Z: standardGravity},
		Mag: imu.Vector3{
			X: -mockFieldNorth * sin,
			Y: mockFieldNorth * cos,
			Z: mockFieldUp,
		},
	}
}
