package app

import (
	"context"
	"encoding/json"
	"log"
	"sync/atomic"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/compass_nav/internal/gps"
	"github.com/relabs-tech/compass_nav/internal/imu"
	"github.com/relabs-tech/compass_nav/internal/nav"
)

// eventLoop runs posted closures one at a time on a single goroutine.
// paho invokes message handlers on its own goroutines; they post here
// instead of touching the controller.
type eventLoop struct {
	events chan func()
}

func newEventLoop(size int) *eventLoop {
	return &eventLoop{events: make(chan func(), size)}
}

// post queues fn without blocking and reports whether it was accepted.
func (l *eventLoop) post(fn func()) bool {
	select {
	case l.events <- fn:
		return true
	default:
		return false
	}
}

// call runs fn on the loop and waits for its result.
func (l *eventLoop) call(ctx context.Context, fn func() error) error {
	done := make(chan error, 1)
	select {
	case l.events <- func() { done <- fn() }:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *eventLoop) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case fn := <-l.events:
			fn()
		}
	}
}

// mqttSubscription drops events still queued for a released subscription.
type mqttSubscription struct {
	client mqtt.Client
	topics []string
	active atomic.Bool
}

func (s *mqttSubscription) Unsubscribe() error {
	s.active.Store(false)
	return waitToken(s.client.Unsubscribe(s.topics...), "unsubscribe")
}

// sensorStream feeds accelerometer and magnetometer samples from MQTT.
type sensorStream struct {
	client     mqtt.Client
	loop       *eventLoop
	accelTopic string
	magTopic   string
}

func (s *sensorStream) SubscribeSensors(h nav.SensorHandler) (nav.Subscription, error) {
	sub := &mqttSubscription{client: s.client, topics: []string{s.accelTopic, s.magTopic}}
	sub.active.Store(true)

	handler := func(_ mqtt.Client, msg mqtt.Message) {
		var sample imu.Sample
		if err := json.Unmarshal(msg.Payload(), &sample); err != nil {
			log.Printf("navigator: sample unmarshal error (%s): %v", msg.Topic(), err)
			return
		}
		if err := sample.Validate(); err != nil {
			log.Printf("navigator: %s: %v", msg.Topic(), err)
			return
		}
		queued := s.loop.post(func() {
			if !sub.active.Load() {
				return
			}
			var err error
			if sample.Kind == imu.Accelerometer {
				err = h.OnAccel(sample.Vector())
			} else {
				err = h.OnMag(sample.Vector())
			}
			if err != nil {
				log.Printf("navigator: %s sample: %v", sample.Kind, err)
			}
		})
		if !queued {
			log.Printf("navigator: event queue full, dropped %s sample", sample.Kind)
		}
	}

	filters := map[string]byte{s.accelTopic: 0, s.magTopic: 0}
	if err := waitToken(s.client.SubscribeMultiple(filters, handler), "subscribe sensors"); err != nil {
		sub.active.Store(false)
		return nil, err
	}
	return sub, nil
}

// locationStream feeds valid GPS fixes from MQTT.
type locationStream struct {
	client mqtt.Client
	loop   *eventLoop
	topic  string
}

func (s *locationStream) SubscribeLocation(h nav.LocationHandler) (nav.Subscription, error) {
	sub := &mqttSubscription{client: s.client, topics: []string{s.topic}}
	sub.active.Store(true)

	handler := func(_ mqtt.Client, msg mqtt.Message) {
		fix, ok := decodeFix(msg.Payload())
		if !ok {
			return
		}
		queued := s.loop.post(func() {
			if !sub.active.Load() {
				return
			}
			if err := h.OnLocationFix(fix.Coordinate()); err != nil {
				log.Printf("navigator: location fix: %v", err)
			}
		})
		if !queued {
			log.Printf("navigator: event queue full, dropped GPS fix")
		}
	}

	if err := waitToken(s.client.Subscribe(s.topic, 0, handler), "subscribe location"); err != nil {
		sub.active.Store(false)
		return nil, err
	}
	return sub, nil
}

// decodeFix accepts only fixes the receiver marked valid.
func decodeFix(payload []byte) (gps.Fix, bool) {
	var fix gps.Fix
	if err := json.Unmarshal(payload, &fix); err != nil {
		log.Printf("navigator: gps unmarshal error: %v", err)
		return gps.Fix{}, false
	}
	return fix, fix.Valid()
}
