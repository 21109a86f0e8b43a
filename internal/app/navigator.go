package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/compass_nav/internal/config"
	"github.com/relabs-tech/compass_nav/internal/geomath"
	"github.com/relabs-tech/compass_nav/internal/nav"
)

const (
	eventQueueSize   = 256
	readingQueueSize = 16
)

// RunNavigator hosts the navigation pipeline: it consumes samples and
// fixes from MQTT and publishes one reading per orientation update.
func RunNavigator() error {
	cfg := config.Get()

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDNavigator)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return newNavigator(client, cfg).run(ctx)
}

type navigator struct {
	client   mqtt.Client
	cfg      *config.Config
	loop     *eventLoop
	ctrl     *nav.Controller
	readings chan ReadingMessage
}

func newNavigator(client mqtt.Client, cfg *config.Config) *navigator {
	n := &navigator{
		client:   client,
		cfg:      cfg,
		loop:     newEventLoop(eventQueueSize),
		readings: make(chan ReadingMessage, readingQueueSize),
	}
	n.ctrl = nav.New(nav.BatchSink(n.enqueue),
		nav.WithLogger(log.Default()),
		nav.WithWindowSize(cfg.FilterWindow),
		nav.WithSensorStream(&sensorStream{
			client:     client,
			loop:       n.loop,
			accelTopic: cfg.TopicAccel,
			magTopic:   cfg.TopicMag,
		}),
		nav.WithLocationStream(&locationStream{
			client: client,
			loop:   n.loop,
			topic:  cfg.TopicGPS,
		}),
	)
	return n
}

// enqueue is the pipeline sink. It never blocks: when the publisher falls
// behind the oldest queued reading is dropped.
func (n *navigator) enqueue(r nav.Reading) error {
	msg := ReadingMessage{
		Reading:  r,
		Target:   n.ctrl.Target(),
		Attitude: n.ctrl.Orientation().Degrees(),
		Time:     time.Now().UTC(),
	}
	if device, ok := n.ctrl.Device(); ok {
		msg.Device = &device
	}
	for {
		select {
		case n.readings <- msg:
			return nil
		default:
		}
		select {
		case <-n.readings:
		default:
		}
	}
}

func (n *navigator) publishReadings(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-n.readings:
			if err := publishJSON(n.client, n.cfg.TopicReading, true, msg); err != nil {
				log.Printf("navigator: %v", err)
			}
		}
	}
}

func (n *navigator) run(ctx context.Context) error {
	loopCtx, cancelLoop := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); n.loop.run(loopCtx) }()
	go func() { defer wg.Done(); n.publishReadings(loopCtx) }()
	defer func() {
		cancelLoop()
		wg.Wait()
		// loop goroutine has exited; safe to touch the controller here
		n.ctrl.Stop()
	}()

	log.Printf("navigator: waiting for a valid GPS fix on %s", n.cfg.TopicGPS)
	device, err := n.waitForFix(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	log.Printf("navigator: location available at %.6f, %.6f", device.Latitude, device.Longitude)

	target := n.cfg.Target()
	if err := n.loop.call(ctx, func() error { return n.ctrl.Start(target.Latitude, target.Longitude) }); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("navigator: start: %w", err)
	}

	if err := n.subscribeTarget(); err != nil {
		return err
	}
	defer func() {
		if err := waitToken(n.client.Unsubscribe(n.cfg.TopicTarget), "unsubscribe target"); err != nil {
			log.Printf("navigator: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("navigator: shutting down")
	return nil
}

// waitForFix blocks until the first valid fix arrives, so navigation only
// starts once location is actually available.
func (n *navigator) waitForFix(ctx context.Context) (geomath.Coordinate, error) {
	fixes := make(chan geomath.Coordinate, 1)
	token := n.client.Subscribe(n.cfg.TopicGPS, 0, func(_ mqtt.Client, msg mqtt.Message) {
		fix, ok := decodeFix(msg.Payload())
		if !ok {
			return
		}
		select {
		case fixes <- fix.Coordinate():
		default:
		}
	})
	if err := waitToken(token, "subscribe gps"); err != nil {
		return geomath.Coordinate{}, err
	}
	defer func() {
		if err := waitToken(n.client.Unsubscribe(n.cfg.TopicGPS), "unsubscribe gps"); err != nil {
			log.Printf("navigator: %v", err)
		}
	}()

	select {
	case c := <-fixes:
		return c, nil
	case <-ctx.Done():
		return geomath.Coordinate{}, ctx.Err()
	}
}

// subscribeTarget applies change-target requests as a restart.
func (n *navigator) subscribeTarget() error {
	token := n.client.Subscribe(n.cfg.TopicTarget, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var req TargetRequest
		if err := json.Unmarshal(msg.Payload(), &req); err != nil {
			log.Printf("navigator: target unmarshal error: %v", err)
			return
		}
		queued := n.loop.post(func() {
			next, err := req.Apply(n.ctrl.Target())
			if err != nil {
				log.Printf("navigator: target request: %v", err)
				return
			}
			if err := n.ctrl.Start(next.Latitude, next.Longitude); err != nil {
				log.Printf("navigator: restart: %v", err)
			}
		})
		if !queued {
			log.Printf("navigator: event queue full, dropped target request")
		}
	})
	return waitToken(token, "subscribe target")
}
