// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package nav

import (
	"errors"
	"sync"

	"github.com/relabs-tech/compass_nav/internal/geomath"
	"github.com/relabs-tech/compass_nav/internal/imu"
)

// Locked serializes every state transition on a Controller with one mutex
// so samples can arrive from several goroutines. Batches are queued under
// the mutex and handed to the sink after it is released, one goroutine at
// a time and in the order they were produced. The sink may call back into
// the Locked value; Stop and Start take effect for every sample that
// follows and discard batches still queued.
//
// A sink error is returned to whichever caller delivered the batch.
type Locked struct {
	mu       sync.Mutex
	c        *Controller
	sink     Sink
	pending  []Reading
	draining bool
}

// NewLocked builds a Controller whose streams deliver through the mutex.
func NewLocked(sink Sink, opts ...Option) *Locked {
	l := &Locked{sink: sink}
	l.c = New(BatchSink(l.queue), opts...)
	l.c.ingress = l
	return l
}

// queue runs inside the controller with l.mu held.
func (l *Locked) queue(r Reading) error {
	l.pending = append(l.pending, r)
	return nil
}

// Start retargets under the mutex. Queued batches for the old target are
// dropped.
func (l *Locked) Start(lat, lon float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pending = nil
	return l.c.Start(lat, lon)
}

// Stop releases the streams. No batch queued before Stop is delivered
// after it returns, apart from one already being handed to the sink.
func (l *Locked) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pending = nil
	l.c.Stop()
}

// OnAccel, OnMag and OnLocationFix may be called from any goroutine.
func (l *Locked) OnAccel(v imu.Vector3) error {
	return l.ingest(func() error { return l.c.OnAccel(v) })
}

func (l *Locked) OnMag(v imu.Vector3) error {
	return l.ingest(func() error { return l.c.OnMag(v) })
}

func (l *Locked) OnLocationFix(device geomath.Coordinate) error {
	return l.ingest(func() error { return l.c.OnLocationFix(device) })
}

// ingest runs fn under the mutex, then delivers queued batches unless
// another goroutine is already doing so.
func (l *Locked) ingest(fn func() error) error {
	l.mu.Lock()
	err := fn()
	if l.draining {
		l.mu.Unlock()
		return err
	}
	l.draining = true
	l.mu.Unlock()
	return errors.Join(err, l.flush())
}

func (l *Locked) flush() error {
	var errs []error
	for {
		l.mu.Lock()
		if len(l.pending) == 0 {
			l.draining = false
			l.mu.Unlock()
			return errors.Join(errs...)
		}
		r := l.pending[0]
		l.pending = l.pending[1:]
		l.mu.Unlock()

		if err := publish(l.sink, r); err != nil {
			errs = append(errs, err)
		}
	}
}

func (l *Locked) Target() geomath.Coordinate {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.c.Target()
}

func (l *Locked) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.c.State()
}

// Reading returns the fields of the newest batch, delivered or not.
func (l *Locked) Reading() Reading {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.c.Reading()
}
