// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import "github.com/relabs-tech/compass_nav/internal/imu"

// Fuser keeps the latest accelerometer and magnetometer readings and
// recomputes the north azimuth whenever either one changes.
type Fuser struct {
	accel     imu.Vector3
	mag       imu.Vector3
	haveAccel bool
	haveMag   bool
	last      Orientation
}

// Update stores v as the latest reading of its kind and returns the
// rounded north azimuth. ok is false until both kinds have been seen,
// when v is not finite, or when the geometry is degenerate.
func (f *Fuser) Update(kind imu.Kind, v imu.Vector3) (northDeg float64, ok bool) {
	if !v.Finite() {
		return 0, false
	}
	switch kind {
	case imu.Accelerometer:
		f.accel, f.haveAccel = v, true
	case imu.Magnetometer:
		f.mag, f.haveMag = v, true
	default:
		return 0, false
	}
	if !f.Ready() {
		return 0, false
	}

	r, ok := RotationMatrix(f.accel, f.mag)
	if !ok {
		return 0, false
	}
	f.last = FromMatrix(r)
	return NorthAzimuthDeg(f.last.Azimuth), true
}

// Ready reports whether both sensors have reported at least once.
func (f *Fuser) Ready() bool {
	return f.haveAccel && f.haveMag
}

// Last is the orientation of the most recent usable sample pair.
func (f *Fuser) Last() Orientation {
	return f.last
}

// Reset forgets both readings and the last orientation.
func (f *Fuser) Reset() {
	*f = Fuser{}
}
