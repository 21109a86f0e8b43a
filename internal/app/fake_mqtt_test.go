package app

import (
	"errors"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// fakeBroker is an in-memory mqtt.Client: exact-topic routing, retained
// messages replayed on subscribe, handlers run on the publisher's goroutine.
type fakeBroker struct {
	mu        sync.Mutex
	handlers  map[string]mqtt.MessageHandler
	retained  map[string][]byte
	published map[string][][]byte
	failSub   error
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{
		handlers:  make(map[string]mqtt.MessageHandler),
		retained:  make(map[string][]byte),
		published: make(map[string][][]byte),
	}
}

func (b *fakeBroker) IsConnected() bool      { return true }
func (b *fakeBroker) IsConnectionOpen() bool { return true }
func (b *fakeBroker) Connect() mqtt.Token    { return doneToken{} }
func (b *fakeBroker) Disconnect(uint)        {}
func (b *fakeBroker) AddRoute(topic string, h mqtt.MessageHandler) {
	b.mu.Lock()
	b.handlers[topic] = h
	b.mu.Unlock()
}
func (b *fakeBroker) OptionsReader() mqtt.ClientOptionsReader { return mqtt.ClientOptionsReader{} }

func (b *fakeBroker) Publish(topic string, _ byte, retained bool, payload interface{}) mqtt.Token {
	var data []byte
	switch p := payload.(type) {
	case []byte:
		data = p
	case string:
		data = []byte(p)
	default:
		return doneToken{err: errors.New("fake: unsupported payload")}
	}

	b.mu.Lock()
	b.published[topic] = append(b.published[topic], data)
	if retained {
		b.retained[topic] = data
	}
	h := b.handlers[topic]
	b.mu.Unlock()

	if h != nil {
		h(b, fakeMessage{topic: topic, payload: data, retained: retained})
	}
	return doneToken{}
}

func (b *fakeBroker) Subscribe(topic string, qos byte, h mqtt.MessageHandler) mqtt.Token {
	return b.SubscribeMultiple(map[string]byte{topic: qos}, h)
}

func (b *fakeBroker) SubscribeMultiple(filters map[string]byte, h mqtt.MessageHandler) mqtt.Token {
	b.mu.Lock()
	if b.failSub != nil {
		err := b.failSub
		b.mu.Unlock()
		return doneToken{err: err}
	}
	var replay []fakeMessage
	for topic := range filters {
		b.handlers[topic] = h
		if data, ok := b.retained[topic]; ok {
			replay = append(replay, fakeMessage{topic: topic, payload: data, retained: true})
		}
	}
	b.mu.Unlock()

	for _, m := range replay {
		h(b, m)
	}
	return doneToken{}
}

func (b *fakeBroker) Unsubscribe(topics ...string) mqtt.Token {
	b.mu.Lock()
	for _, topic := range topics {
		delete(b.handlers, topic)
	}
	b.mu.Unlock()
	return doneToken{}
}

func (b *fakeBroker) subscribed(topic string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.handlers[topic]
	return ok
}

func (b *fakeBroker) messages(topic string) [][]byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([][]byte(nil), b.published[topic]...)
}

type doneToken struct{ err error }

func (t doneToken) Wait() bool                     { return true }
func (t doneToken) WaitTimeout(time.Duration) bool { return true }
func (t doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t doneToken) Error() error { return t.err }

type fakeMessage struct {
	topic    string
	payload  []byte
	retained bool
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 0 }
func (m fakeMessage) Retained() bool    { return m.retained }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 0 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}

// eventually polls cond until it holds or a second passes.
func eventually(t *testing.T, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}
