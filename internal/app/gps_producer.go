package app

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/compass_nav/internal/config"
	"github.com/relabs-tech/compass_nav/internal/gps"
)

// RunGPSProducer opens the GPS serial port, parses NMEA sentences, and
// publishes each valid fix as retained JSON.
func RunGPSProducer() error {
	cfg := config.Get()
	if cfg.GPSSerialPort == "" {
		return fmt.Errorf("GPS_SERIAL_PORT is required")
	}

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDGPS)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	port, err := gps.OpenSerial(cfg.GPSSerialPort, uint(cfg.GPSBaudRate))
	if err != nil {
		return err
	}
	defer port.Close()
	log.Printf("GPS serial port opened on %s at %d baud", cfg.GPSSerialPort, cfg.GPSBaudRate)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		// unblocks the pending serial read
		<-ctx.Done()
		port.Close()
	}()

	err = publishFixes(ctx, client, cfg.TopicGPS, port)
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func publishFixes(ctx context.Context, client mqtt.Client, topic string, r io.Reader) error {
	return gps.ReadFixes(ctx, r, func(fix gps.Fix) error {
		if err := publishJSON(client, topic, true, fix); err != nil {
			log.Printf("GPS %v", err)
			return nil
		}
		log.Printf("published GPS fix: %+v", fix)
		return nil
	})
}
