// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package nav

import "github.com/relabs-tech/compass_nav/internal/geomath"

// DefaultWindowSize is how many north-azimuth samples are averaged.
const DefaultWindowSize = 20

// Window is a bounded FIFO of recent north-azimuth samples. Its mean is
// a plain arithmetic mean, so samples straddling 0°/360° average toward
// 180°; display code is calibrated against that.
type Window struct {
	values []float64
	size   int
}

// NewWindow returns an empty window holding at most size samples.
// Sizes below 1 fall back to DefaultWindowSize.
func NewWindow(size int) *Window {
	if size < 1 {
		size = DefaultWindowSize
	}
	return &Window{values: make([]float64, 0, size+1), size: size}
}

// Push appends v, evicts the oldest sample if the window is over
// capacity and returns the new mean.
func (w *Window) Push(v float64) float64 {
	w.values = append(w.values, v)
	if len(w.values) > w.size {
		copy(w.values, w.values[1:])
		w.values = w.values[:w.size]
	}
	return w.Mean()
}

// Mean is the average of the samples oldest first, 0 when empty.
func (w *Window) Mean() float64 {
	return geomath.Mean(w.values)
}

// Reset empties the window. The size is kept.
func (w *Window) Reset() {
	w.values = w.values[:0]
}
