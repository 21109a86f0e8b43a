// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package nav

// Sink receives pipeline output. For every orientation sample that
// produces an update the three methods are called in order: north
// azimuth, heading, distance. A returned error stops the batch and is
// handed back to whoever fed the sample.
type Sink interface {
	OnNorthAzimuthUpdate(deg float64) error
	OnHeadingUpdate(deg float64) error
	OnDistanceUpdate(m float64) error
}

// SinkFuncs adapts three optional callbacks into a Sink. Nil callbacks
// are skipped.
type SinkFuncs struct {
	NorthAzimuth func(deg float64) error
	Heading      func(deg float64) error
	Distance     func(m float64) error
}

func (f SinkFuncs) OnNorthAzimuthUpdate(deg float64) error { return call(f.NorthAzimuth, deg) }
func (f SinkFuncs) OnHeadingUpdate(deg float64) error      { return call(f.Heading, deg) }
func (f SinkFuncs) OnDistanceUpdate(m float64) error       { return call(f.Distance, m) }

func call(fn func(float64) error, v float64) error {
	if fn == nil {
		return nil
	}
	return fn(v)
}

// BatchSink collects one batch of the three callbacks and hands it to
// fn as a single Reading once the distance arrives.
func BatchSink(fn func(Reading) error) Sink {
	return &batchSink{fn: fn}
}

type batchSink struct {
	fn      func(Reading) error
	pending Reading
}

func (b *batchSink) OnNorthAzimuthUpdate(deg float64) error {
	b.pending = Reading{NorthAzimuthDeg: deg}
	return nil
}

func (b *batchSink) OnHeadingUpdate(deg float64) error {
	b.pending.HeadingDeg = deg
	return nil
}

func (b *batchSink) OnDistanceUpdate(m float64) error {
	b.pending.DistanceM = m
	return b.fn(b.pending)
}

func publish(s Sink, r Reading) error {
	if s == nil {
		return nil
	}
	if err := s.OnNorthAzimuthUpdate(r.NorthAzimuthDeg); err != nil {
		return err
	}
	if err := s.OnHeadingUpdate(r.HeadingDeg); err != nil {
		return err
	}
	return s.OnDistanceUpdate(r.DistanceM)
}
