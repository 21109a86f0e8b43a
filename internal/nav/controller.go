// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package nav turns raw accelerometer/magnetometer samples and location
// fixes into compass readings: a smoothed north azimuth, the heading of
// the target in the device frame and the distance to the target.
//
// Controller is not safe for concurrent use. Hosts either call it from a
// single goroutine or use Locked.
package nav

import (
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/relabs-tech/compass_nav/internal/geomath"
	"github.com/relabs-tech/compass_nav/internal/imu"
	"github.com/relabs-tech/compass_nav/internal/orientation"
)

// ErrInvalidTarget is returned by Start for NaN or infinite coordinates.
var ErrInvalidTarget = errors.New("nav: target coordinate is not finite")

// SensorHandler receives raw accelerometer and magnetometer samples.
type SensorHandler interface {
	OnAccel(v imu.Vector3) error
	OnMag(v imu.Vector3) error
}

// LocationHandler receives device location fixes.
type LocationHandler interface {
	OnLocationFix(device geomath.Coordinate) error
}

// Ingress is what streams deliver to.
type Ingress interface {
	SensorHandler
	LocationHandler
}

// Subscription is a live registration with a stream.
type Subscription interface {
	Unsubscribe() error
}

// SensorStream delivers accelerometer and magnetometer samples to h until
// the subscription is released.
type SensorStream interface {
	SubscribeSensors(h SensorHandler) (Subscription, error)
}

// LocationStream delivers device location fixes to h until the
// subscription is released.
type LocationStream interface {
	SubscribeLocation(h LocationHandler) (Subscription, error)
}

// State is the controller lifecycle: Idle until Start, Running until Stop.
type State int

const (
	Idle State = iota
	Running
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Option configures a Controller in New.
type Option func(*Controller)

// WithLogger traces lifecycle changes and dropped samples to l.
func WithLogger(l *log.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithWindowSize sets how many north-azimuth samples are averaged.
func WithWindowSize(n int) Option {
	return func(c *Controller) { c.windowSize = n }
}

// WithSensorStream sets the stream subscribed to on Start.
func WithSensorStream(s SensorStream) Option {
	return func(c *Controller) { c.sensors = s }
}

// WithLocationStream sets the stream subscribed to on Start.
func WithLocationStream(s LocationStream) Option {
	return func(c *Controller) { c.location = s }
}

// Controller owns the pipeline lifecycle, the target and the sink.
type Controller struct {
	logger     *log.Logger
	windowSize int
	sensors    SensorStream
	location   LocationStream
	ingress    Ingress

	state    State
	target   geomath.Coordinate
	device   geomath.Coordinate
	haveFix  bool
	fuser    orientation.Fuser
	window   *Window
	combiner *Combiner
	subs     []Subscription

	// calls made from inside the sink run once it returns
	publishing bool
	deferred   []func() error
}

// New returns an idle controller with target (0, 0).
func New(sink Sink, opts ...Option) *Controller {
	c := &Controller{
		logger:     log.New(io.Discard, "", 0),
		windowSize: DefaultWindowSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.window = NewWindow(c.windowSize)
	c.combiner = NewCombiner(sink)
	c.ingress = c
	return c
}

// Start clamps and stores the target, resets the filter and (re)subscribes
// to the configured streams. Starting while running retargets. If a
// subscription fails the controller is left idle with no subscriptions.
func (c *Controller) Start(lat, lon float64) error {
	if c.publishing {
		c.deferCall(func() error { return c.start(lat, lon) })
		return nil
	}
	return c.start(lat, lon)
}

func (c *Controller) start(lat, lon float64) error {
	requested := geomath.Coordinate{Latitude: lat, Longitude: lon}
	if !requested.Finite() {
		return ErrInvalidTarget
	}
	target := geomath.ClampCoordinate(requested)
	if target != requested {
		c.logger.Printf("nav: target %.6f, %.6f clamped to %.6f, %.6f", lat, lon, target.Latitude, target.Longitude)
	}

	c.unsubscribe()
	c.target = target
	c.haveFix = false
	c.fuser.Reset()
	c.window.Reset()
	c.combiner.Reset()

	if err := c.subscribe(); err != nil {
		c.unsubscribe()
		c.state = Idle
		return err
	}
	c.state = Running
	c.logger.Printf("nav: navigating to %.6f, %.6f", target.Latitude, target.Longitude)
	return nil
}

func (c *Controller) subscribe() error {
	if c.sensors != nil {
		sub, err := c.sensors.SubscribeSensors(c.ingress)
		if err != nil {
			return fmt.Errorf("nav: subscribe sensors: %w", err)
		}
		c.subs = append(c.subs, sub)
	}
	if c.location != nil {
		sub, err := c.location.SubscribeLocation(c.ingress)
		if err != nil {
			return fmt.Errorf("nav: subscribe location: %w", err)
		}
		c.subs = append(c.subs, sub)
	}
	return nil
}

func (c *Controller) unsubscribe() {
	for _, sub := range c.subs {
		if err := sub.Unsubscribe(); err != nil {
			c.logger.Printf("nav: unsubscribe: %v", err)
		}
	}
	c.subs = nil
}

// Stop releases every subscription and returns to Idle. The target is kept.
func (c *Controller) Stop() {
	if c.publishing {
		c.deferCall(func() error { c.stop(); return nil })
		return
	}
	c.stop()
}

func (c *Controller) stop() {
	c.unsubscribe()
	if c.state == Running {
		c.logger.Printf("nav: stopped")
	}
	c.state = Idle
}

// OnAccel and OnMag feed one sensor sample. While running, every sample
// that yields a north azimuth publishes one batch to the sink.
func (c *Controller) OnAccel(v imu.Vector3) error {
	return c.onSensor(imu.Accelerometer, v)
}

func (c *Controller) OnMag(v imu.Vector3) error {
	return c.onSensor(imu.Magnetometer, v)
}

func (c *Controller) onSensor(kind imu.Kind, v imu.Vector3) error {
	if c.publishing {
		c.deferCall(func() error { return c.onSensor(kind, v) })
		return nil
	}
	if c.state != Running {
		return nil
	}
	if !v.Finite() {
		c.logger.Printf("nav: dropped non-finite %s sample %+v", kind, v)
		return nil
	}

	north, ok := c.fuser.Update(kind, v)
	if !ok {
		if c.fuser.Ready() {
			c.logger.Printf("nav: dropped degenerate %s sample %+v", kind, v)
		}
		return nil
	}

	filtered := c.window.Push(north)

	err := c.deliver(filtered)
	return errors.Join(err, c.drain())
}

func (c *Controller) deliver(filtered float64) error {
	c.publishing = true
	defer func() { c.publishing = false }()
	return c.combiner.UpdateNorthAzimuth(filtered)
}

// OnLocationFix updates distance and bearing to the target. Nothing is
// published until the next orientation sample.
func (c *Controller) OnLocationFix(device geomath.Coordinate) error {
	if c.publishing {
		c.deferCall(func() error { return c.OnLocationFix(device) })
		return nil
	}
	if c.state != Running {
		return nil
	}
	if !device.Finite() {
		c.logger.Printf("nav: dropped non-finite fix %+v", device)
		return nil
	}

	distance, bearing := geomath.DistanceAndBearing(device, c.target)
	c.combiner.UpdateDistance(distance)
	c.combiner.UpdateHeading(bearing)
	c.device, c.haveFix = device, true
	return nil
}

func (c *Controller) deferCall(fn func() error) {
	c.deferred = append(c.deferred, fn)
}

func (c *Controller) drain() error {
	var errs []error
	for len(c.deferred) > 0 {
		fn := c.deferred[0]
		c.deferred = c.deferred[1:]
		if err := fn(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Target is the clamped target of the last Start.
func (c *Controller) Target() geomath.Coordinate { return c.target }
func (c *Controller) State() State               { return c.state }

// Device is the last accepted location fix since Start.
func (c *Controller) Device() (geomath.Coordinate, bool) {
	return c.device, c.haveFix
}

// Reading returns the current combined fields without publishing.
func (c *Controller) Reading() Reading {
	return c.combiner.State()
}

// Orientation is the attitude behind the latest azimuth sample.
func (c *Controller) Orientation() orientation.Orientation {
	return c.fuser.Last()
}
