package app

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// subscribeTimeout bounds how long a SUBSCRIBE/UNSUBSCRIBE waits for its ack.
const subscribeTimeout = 5 * time.Second

// connectMQTT connects a client with auto-reconnect to broker.
func connectMQTT(broker, clientID string) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			log.Printf("%s: MQTT connection lost: %v", clientID, err)
		})

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("MQTT connect %s: %w", broker, token.Error())
	}
	log.Printf("%s: connected to MQTT broker at %s", clientID, broker)
	return client, nil
}

// publishJSON marshals v and publishes it at QoS 0.
func publishJSON(client mqtt.Client, topic string, retained bool, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("json marshal (%s): %w", topic, err)
	}
	token := client.Publish(topic, 0, retained, payload)
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("MQTT publish (%s): %w", topic, err)
	}
	return nil
}

func waitToken(token mqtt.Token, what string) error {
	if !token.WaitTimeout(subscribeTimeout) {
		return fmt.Errorf("MQTT %s: timed out after %s", what, subscribeTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("MQTT %s: %w", what, err)
	}
	return nil
}
