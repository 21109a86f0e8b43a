package config

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/relabs-tech/compass_nav/internal/geomath"
)

// Config holds all application configuration values.
type Config struct {
	// MQTT
	MQTTBroker            string
	MQTTClientIDSensors   string
	MQTTClientIDGPS       string
	MQTTClientIDNavigator string
	MQTTClientIDConsole   string
	MQTTClientIDWeb       string

	// Topics
	TopicAccel   string
	TopicMag     string
	TopicGPS     string
	TopicReading string
	TopicTarget  string

	// Sensor hardware
	IMUI2CBus  string // "" opens the first bus found
	IMUI2CAddr uint16
	MagI2CAddr uint16

	// SensorSource selects the sensor producer backend: "mock" or "mpu9250".
	SensorSource         string
	SensorSampleInterval int // milliseconds

	// GPS
	GPSSerialPort string
	GPSBaudRate   int

	// Navigation
	TargetLat    float64
	TargetLon    float64
	FilterWindow int

	// Timing
	ConsoleLogInterval int // milliseconds

	// Web Server
	WebServerPort int
}

var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Defaults returns a Config with every optional value filled in.
func Defaults() *Config {
	return &Config{
		MQTTClientIDSensors:   "compass-sensors",
		MQTTClientIDGPS:       "compass-gps",
		MQTTClientIDNavigator: "compass-navigator",
		MQTTClientIDConsole:   "compass-console",
		MQTTClientIDWeb:       "compass-web",

		TopicAccel:   "compass/sensors/accel",
		TopicMag:     "compass/sensors/mag",
		TopicGPS:     "compass/gps",
		TopicReading: "compass/reading",
		TopicTarget:  "compass/target",

		IMUI2CAddr: 0x68,
		MagI2CAddr: 0x0C,

		SensorSource:         "mock",
		SensorSampleInterval: 200,

		GPSBaudRate: 9600,

		// Main Square, Cracow
		TargetLat:    50.0610055,
		TargetLon:    19.940215,
		FilterWindow: 20,

		ConsoleLogInterval: 1000,
		WebServerPort:      8080,
	}
}

// Load reads the configuration file and returns a Config struct.
// Files ending in .yaml or .yml are parsed as a YAML mapping of the same
// keys; anything else uses KEY=VALUE lines.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	cfg := Defaults()
	switch strings.ToLower(filepath.Ext(configPath)) {
	case ".yaml", ".yml":
		err = cfg.loadYAML(file)
	default:
		err = cfg.loadKeyValue(file)
	}
	if err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadKeyValue(file *os.File) error {
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := c.setValue(key, value); err != nil {
			return fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}
	return nil
}

func (c *Config) loadYAML(file *os.File) error {
	var doc yaml.Node
	if err := yaml.NewDecoder(file).Decode(&doc); err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}
	if len(doc.Content) == 0 {
		return nil
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return fmt.Errorf("config line %d: expected a mapping of KEY: value", root.Line)
	}
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, value := root.Content[i], root.Content[i+1]
		if value.Kind != yaml.ScalarNode {
			return fmt.Errorf("config line %d: %q must be a scalar", value.Line, key.Value)
		}
		if err := c.setValue(key.Value, value.Value); err != nil {
			return fmt.Errorf("config line %d: %w", key.Line, err)
		}
	}
	return nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	var err error
	switch key {
	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_SENSORS":
		c.MQTTClientIDSensors = value
	case "MQTT_CLIENT_ID_GPS":
		c.MQTTClientIDGPS = value
	case "MQTT_CLIENT_ID_NAVIGATOR":
		c.MQTTClientIDNavigator = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_CLIENT_ID_WEB":
		c.MQTTClientIDWeb = value

	// Topics
	case "TOPIC_ACCEL":
		c.TopicAccel = value
	case "TOPIC_MAG":
		c.TopicMag = value
	case "TOPIC_GPS":
		c.TopicGPS = value
	case "TOPIC_READING":
		c.TopicReading = value
	case "TOPIC_TARGET":
		c.TopicTarget = value

	// Sensor hardware
	case "IMU_I2C_BUS":
		c.IMUI2CBus = value
	case "IMU_I2C_ADDR":
		c.IMUI2CAddr, err = parseAddr(key, value)
	case "MAG_I2C_ADDR":
		c.MagI2CAddr, err = parseAddr(key, value)
	case "SENSOR_SOURCE":
		c.SensorSource = strings.ToLower(value)
	case "SENSOR_SAMPLE_INTERVAL":
		c.SensorSampleInterval, err = parseInt(key, value)

	// GPS
	case "GPS_SERIAL_PORT":
		c.GPSSerialPort = value
	case "GPS_BAUD_RATE":
		c.GPSBaudRate, err = parseInt(key, value)

	// Navigation
	case "TARGET_LAT":
		c.TargetLat, err = parseFloat(key, value)
	case "TARGET_LON":
		c.TargetLon, err = parseFloat(key, value)
	case "FILTER_WINDOW":
		c.FilterWindow, err = parseInt(key, value)

	// Timing
	case "CONSOLE_LOG_INTERVAL":
		c.ConsoleLogInterval, err = parseInt(key, value)

	// Web Server
	case "WEB_SERVER_PORT":
		c.WebServerPort, err = parseInt(key, value)

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}
	return err
}

func parseInt(key, value string) (int, error) {
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return v, nil
}

func parseFloat(key, value string) (float64, error) {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return v, nil
}

func parseAddr(key, value string) (uint16, error) {
	addr, err := strconv.ParseUint(value, 0, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if addr > 0x7F {
		return 0, fmt.Errorf("%s must be a 7-bit I2C address, got 0x%X", key, addr)
	}
	return uint16(addr), nil
}

// validate checks that all required fields are set.
func (c *Config) validate() error {
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required")
	}
	switch c.SensorSource {
	case "mock", "mpu9250":
	default:
		return fmt.Errorf("SENSOR_SOURCE must be mock or mpu9250, got %q", c.SensorSource)
	}
	if c.SensorSampleInterval <= 0 {
		return fmt.Errorf("SENSOR_SAMPLE_INTERVAL must be positive, got %d", c.SensorSampleInterval)
	}
	if c.ConsoleLogInterval <= 0 {
		return fmt.Errorf("CONSOLE_LOG_INTERVAL must be positive, got %d", c.ConsoleLogInterval)
	}
	if c.GPSBaudRate <= 0 {
		return fmt.Errorf("GPS_BAUD_RATE must be positive, got %d", c.GPSBaudRate)
	}
	if c.FilterWindow < 1 {
		return fmt.Errorf("FILTER_WINDOW must be at least 1, got %d", c.FilterWindow)
	}
	if math.IsNaN(c.TargetLat) || c.TargetLat < geomath.MinLatitude || c.TargetLat > geomath.MaxLatitude {
		return fmt.Errorf("TARGET_LAT must be within [-90, 90], got %v", c.TargetLat)
	}
	if math.IsNaN(c.TargetLon) || c.TargetLon < geomath.MinLongitude || c.TargetLon > geomath.MaxLongitude {
		return fmt.Errorf("TARGET_LON must be within [-180, 180], got %v", c.TargetLon)
	}
	return nil
}

// Target is the configured initial navigation target.
func (c *Config) Target() geomath.Coordinate {
	return geomath.Coordinate{Latitude: c.TargetLat, Longitude: c.TargetLon}
}

// InitGlobal initializes the global configuration from file.
// Only the first call loads; later calls return the first result.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
