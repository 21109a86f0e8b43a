package app

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gorilla/websocket"

	"github.com/relabs-tech/compass_nav/internal/config"
	"github.com/relabs-tech/compass_nav/internal/geomath"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// wsSendBuffer is how many readings may queue for a slow websocket client
// before it starts missing updates.
const wsSendBuffer = 8

// RunWeb serves the latest reading over HTTP and a websocket, and accepts
// target changes which it forwards to the navigator over MQTT.
func RunWeb() error {
	cfg := config.Get()

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDWeb)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	s := newWebServer(client, cfg.TopicTarget, cfg.Target())
	if err := waitToken(client.Subscribe(cfg.TopicReading, 0, s.onReading), "subscribe reading"); err != nil {
		return err
	}
	log.Printf("web: subscribed to MQTT topic %s", cfg.TopicReading)

	addr := fmt.Sprintf(":%d", cfg.WebServerPort)
	log.Printf("web server listening on %s", addr)
	return http.ListenAndServe(addr, s.routes())
}

type webServer struct {
	client        mqtt.Client
	topicTarget   string
	defaultTarget geomath.Coordinate

	mu      sync.RWMutex
	last    ReadingMessage
	haveAny bool

	subsMu sync.Mutex
	subs   map[*websocket.Conn]chan []byte
}

func newWebServer(client mqtt.Client, topicTarget string, defaultTarget geomath.Coordinate) *webServer {
	return &webServer{
		client:        client,
		topicTarget:   topicTarget,
		defaultTarget: defaultTarget,
		subs:          make(map[*websocket.Conn]chan []byte),
	}
}

func (s *webServer) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/reading", s.handleReading)
	mux.HandleFunc("/api/target", s.handleTarget)
	mux.HandleFunc("/ws/reading", s.handleReadingWS)
	return mux
}

// onReading is the MQTT handler for the reading topic.
func (s *webServer) onReading(_ mqtt.Client, msg mqtt.Message) {
	var r ReadingMessage
	if err := json.Unmarshal(msg.Payload(), &r); err != nil {
		log.Printf("web: reading unmarshal error: %v", err)
		return
	}
	s.mu.Lock()
	s.last, s.haveAny = r, true
	s.mu.Unlock()

	s.broadcast(msg.Payload())
}

func (s *webServer) latest() (ReadingMessage, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last, s.haveAny
}

func (s *webServer) handleReading(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	last, ok := s.latest()
	if !ok {
		http.Error(w, "no data yet", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, last)
}

// handleTarget publishes a change-target request. Empty fields keep the
// current target; values are clamped to valid ranges.
func (s *webServer) handleTarget(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req TargetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request: %v", err), http.StatusBadRequest)
		return
	}

	current := s.defaultTarget
	if last, ok := s.latest(); ok {
		current = last.Target
	}
	next, err := req.Apply(current)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	next = geomath.ClampCoordinate(next)

	out := TargetRequest{Lat: &next.Latitude, Lon: &next.Longitude}
	if err := publishJSON(s.client, s.topicTarget, false, out); err != nil {
		log.Printf("web: %v", err)
		http.Error(w, "could not reach navigator", http.StatusBadGateway)
		return
	}
	log.Printf("web: requested target %.6f, %.6f", next.Latitude, next.Longitude)
	writeJSON(w, next)
}

func (s *webServer) handleReadingWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("web: websocket upgrade error: %v", err)
		return
	}

	send := make(chan []byte, wsSendBuffer)
	if last, ok := s.latest(); ok {
		if payload, err := json.Marshal(last); err == nil {
			send <- payload
		}
	}
	s.subsMu.Lock()
	s.subs[conn] = send
	s.subsMu.Unlock()

	go s.writePump(conn, send)

	// the client never sends anything useful; reading detects close
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("web: websocket error: %v", err)
			}
			break
		}
	}

	s.subsMu.Lock()
	delete(s.subs, conn)
	close(send)
	s.subsMu.Unlock()
}

func (s *webServer) writePump(conn *websocket.Conn, send <-chan []byte) {
	defer conn.Close()
	for payload := range send {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			log.Printf("web: websocket write error: %v", err)
			return
		}
	}
	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func (s *webServer) broadcast(payload []byte) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	for _, send := range s.subs {
		select {
		case send <- payload:
		default:
			// slow client: skip this reading
		}
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("json encode error: %v", err)
	}
}
