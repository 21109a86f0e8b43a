package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/compass_nav/internal/config"
	"github.com/relabs-tech/compass_nav/internal/imu"
	"github.com/relabs-tech/compass_nav/internal/orientation"
	"github.com/relabs-tech/compass_nav/internal/sensors"
)

// mockTurnRate is how fast the mock device spins, degrees per second.
const mockTurnRate = 10.0

// RunSensorProducer reads accelerometer and magnetometer vectors from the
// configured source and publishes them as tagged samples.
func RunSensorProducer() error {
	cfg := config.Get()

	src, closeSrc, err := openSensorSource(cfg)
	if err != nil {
		return err
	}
	defer closeSrc()

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDSensors)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Println("sensors: connected to MQTT, starting publish loop")
	return produceSamples(ctx, client, cfg, src, time.Duration(cfg.SensorSampleInterval)*time.Millisecond)
}

func openSensorSource(cfg *config.Config) (imu.RawSource, func(), error) {
	switch cfg.SensorSource {
	case "mpu9250":
		dev, err := sensors.OpenMPU9250(cfg.IMUI2CBus, cfg.IMUI2CAddr, cfg.MagI2CAddr)
		if err != nil {
			return nil, nil, err
		}
		log.Printf("sensors: using MPU9250 on I2C bus %q", cfg.IMUI2CBus)
		return dev, func() { dev.Close() }, nil
	case "mock":
		log.Printf("sensors: using mock source turning at %.0f°/s", mockTurnRate)
		return orientation.NewMockSource(mockTurnRate), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("sensors: unknown source %q", cfg.SensorSource)
	}
}

func produceSamples(ctx context.Context, client mqtt.Client, cfg *config.Config, src imu.RawSource, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logEvery := time.Duration(cfg.ConsoleLogInterval) * time.Millisecond
	var lastLog time.Time

	for {
		select {
		case <-ctx.Done():
			return nil
		case t := <-ticker.C:
			raw, err := src.NextRaw()
			if errors.Is(err, sensors.ErrMagNotReady) {
				continue
			}
			if err != nil {
				log.Printf("sensors: read error: %v", err)
				continue
			}
			if err := publishSamples(client, cfg, raw, t); err != nil {
				log.Printf("sensors: %v", err)
				continue
			}
			if t.Sub(lastLog) >= logEvery {
				lastLog = t
				log.Printf("sensors: %s accel=(%.2f, %.2f, %.2f) mag=(%.1f, %.1f, %.1f)",
					raw.Source, raw.Accel.X, raw.Accel.Y, raw.Accel.Z, raw.Mag.X, raw.Mag.Y, raw.Mag.Z)
			}
		}
	}
}

// publishSamples publishes the accelerometer sample then the magnetometer
// sample of one read.
func publishSamples(client mqtt.Client, cfg *config.Config, raw imu.Raw, t time.Time) error {
	for _, s := range raw.Samples(t.UTC()) {
		topic := cfg.TopicAccel
		if s.Kind == imu.Magnetometer {
			topic = cfg.TopicMag
		}
		if err := publishJSON(client, topic, false, s); err != nil {
			return err
		}
	}
	return nil
}
