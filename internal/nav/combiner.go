// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package nav

import "github.com/relabs-tech/compass_nav/internal/geomath"

// Reading is one published batch.
type Reading struct {
	NorthAzimuthDeg float64 `json:"north_azimuth_deg"`
	// HeadingDeg is the normalized target bearing plus the north azimuth.
	// It is left unnormalized; displays rotate by it modulo 360.
	HeadingDeg float64 `json:"heading_deg"`
	DistanceM  float64 `json:"distance_m"`
}

// Combiner joins the filtered north azimuth with the latest target
// bearing and distance. Only azimuth updates publish; heading and
// distance ride along with the next one.
type Combiner struct {
	sink        Sink
	state       Reading
	bearingDeg  float64 // normalized device→target bearing
	haveBearing bool
}

// NewCombiner returns a combiner publishing to sink, which may be nil.
func NewCombiner(sink Sink) *Combiner {
	return &Combiner{sink: sink}
}

// UpdateNorthAzimuth stores the filtered azimuth, re-derives the heading
// from the last bearing and publishes all three fields. The state is
// updated before the sink runs.
func (c *Combiner) UpdateNorthAzimuth(deg float64) error {
	c.state.NorthAzimuthDeg = deg
	if c.haveBearing {
		c.state.HeadingDeg = c.bearingDeg + deg
	}
	return publish(c.sink, c.state)
}

// UpdateHeading stores the raw device→target bearing, shifted into the
// device frame by the current filtered azimuth.
func (c *Combiner) UpdateHeading(rawBearingDeg float64) {
	c.bearingDeg = geomath.NormalizeDegrees(rawBearingDeg)
	c.haveBearing = true
	c.state.HeadingDeg = c.bearingDeg + c.state.NorthAzimuthDeg
}

// UpdateDistance stores the distance to the target in meters.
func (c *Combiner) UpdateDistance(m float64) {
	c.state.DistanceM = m
}

// State returns the current fields without publishing.
func (c *Combiner) State() Reading {
	return c.state
}

// Reset clears every field and forgets the bearing.
func (c *Combiner) Reset() {
	*c = Combiner{sink: c.sink}
}
