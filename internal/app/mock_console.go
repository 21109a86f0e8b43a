// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/relabs-tech/compass_nav/internal/geomath"
	"github.com/relabs-tech/compass_nav/internal/imu"
	"github.com/relabs-tech/compass_nav/internal/nav"
	"github.com/relabs-tech/compass_nav/internal/orientation"
)

// Where the offline demo pretends to stand: Warsaw, Palace of Culture.
var demoDevice = geomath.Coordinate{Latitude: 52.2318, Longitude: 21.0060}

// RunMockConsole drives the pipeline in-process from the mock sensor
// source and a fixed location, printing every reading. No broker needed.
func RunMockConsole(target geomath.Coordinate, window int) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sink := nav.BatchSink(func(r nav.Reading) error {
		fmt.Println(formatReading(r))
		return nil
	})
	ctrl := nav.NewLocked(sink,
		nav.WithLogger(log.Default()),
		nav.WithWindowSize(window),
		nav.WithSensorStream(&tickerSensorStream{
			src:      orientation.NewMockSource(mockTurnRate),
			interval: 100 * time.Millisecond,
		}),
		nav.WithLocationStream(&fixedLocationStream{
			device:   demoDevice,
			interval: time.Second,
		}),
	)

	if err := ctrl.Start(target.Latitude, target.Longitude); err != nil {
		return err
	}
	<-ctx.Done()
	ctrl.Stop()
	return nil
}

// tickerSubscription stops its goroutine without waiting for it: the
// goroutine may itself be waiting on the controller's lock.
type tickerSubscription struct {
	once sync.Once
	done chan struct{}
}

func newTickerSubscription() *tickerSubscription {
	return &tickerSubscription{done: make(chan struct{})}
}

func (s *tickerSubscription) Unsubscribe() error {
	s.once.Do(func() { close(s.done) })
	return nil
}

func (s *tickerSubscription) tick(interval time.Duration, fn func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			select {
			case <-s.done:
				return
			default:
				fn()
			}
		}
	}
}

// tickerSensorStream polls a RawSource on its own goroutine.
type tickerSensorStream struct {
	src      imu.RawSource
	interval time.Duration
}

func (s *tickerSensorStream) SubscribeSensors(h nav.SensorHandler) (nav.Subscription, error) {
	sub := newTickerSubscription()
	go sub.tick(s.interval, func() {
		raw, err := s.src.NextRaw()
		if err != nil {
			log.Printf("console: sensor read error: %v", err)
			return
		}
		if err := h.OnAccel(raw.Accel); err != nil {
			log.Printf("console: %v", err)
		}
		if err := h.OnMag(raw.Mag); err != nil {
			log.Printf("console: %v", err)
		}
	})
	return sub, nil
}

// fixedLocationStream reports the same position on its own goroutine,
// once immediately and then every interval.
type fixedLocationStream struct {
	device   geomath.Coordinate
	interval time.Duration
}

func (s *fixedLocationStream) SubscribeLocation(h nav.LocationHandler) (nav.Subscription, error) {
	sub := newTickerSubscription()
	report := func() {
		if err := h.OnLocationFix(s.device); err != nil {
			log.Printf("console: %v", err)
		}
	}
	go func() {
		report()
		sub.tick(s.interval, report)
	}()
	return sub, nil
}
