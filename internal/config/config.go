package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	IngestPath      string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Normalization and dispatch.
	WindchillMode   string
	DispatchTimeout time.Duration
	MaxBodyBytes    int64

	// Kafka sink.
	KafkaEnabled bool
	KafkaBrokers []string
	KafkaTopic   string

	// MQTT sink.
	MQTTEnabled     bool
	MQTTBroker      string
	MQTTPort        int
	MQTTClientID    string
	MQTTTopicPrefix string

	// NATS sink.
	NATSEnabled       bool
	NATSURL           string
	NATSSubjectPrefix string

	WebSocketEnabled bool
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	dispatchTimeout, err := time.ParseDuration(sharedcfg.EnvOrDefault("DISPATCH_TIMEOUT", "5s"))
	if err != nil || dispatchTimeout <= 0 {
		return nil, errors.New("invalid DISPATCH_TIMEOUT")
	}

	maxBody, err := strconv.ParseInt(sharedcfg.EnvOrDefault("MAX_BODY_BYTES", "65536"), 10, 64)
	if err != nil || maxBody <= 0 {
		return nil, errors.New("invalid MAX_BODY_BYTES")
	}

	mqttPort, err := strconv.Atoi(sharedcfg.EnvOrDefault("MQTT_PORT", "1883"))
	if err != nil || mqttPort <= 0 || mqttPort > 65535 {
		return nil, errors.New("invalid MQTT_PORT")
	}

	var kafkaBrokers []string
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		kafkaBrokers = sharedcfg.ParseBrokers(v)
	}
	mqttBroker := os.Getenv("MQTT_BROKER")
	natsURL := os.Getenv("NATS_URL")

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":4199"),
		IngestPath:      sharedcfg.EnvOrDefault("INGEST_PATH", "/data/report/"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		WindchillMode:   sharedcfg.EnvOrDefault("WINDCHILL_MODE", "hybrid"),
		DispatchTimeout: dispatchTimeout,
		MaxBodyBytes:    maxBody,

		KafkaEnabled: enabled("KAFKA_ENABLED", len(kafkaBrokers) > 0),
		KafkaBrokers: kafkaBrokers,
		KafkaTopic:   sharedcfg.EnvOrDefault("KAFKA_TOPIC", "ecowitt-reports"),

		MQTTEnabled:     enabled("MQTT_ENABLED", mqttBroker != ""),
		MQTTBroker:      mqttBroker,
		MQTTPort:        mqttPort,
		MQTTClientID:    sharedcfg.EnvOrDefault("MQTT_CLIENT_ID", "ecowitt-ingest"),
		MQTTTopicPrefix: strings.TrimSuffix(sharedcfg.EnvOrDefault("MQTT_TOPIC_PREFIX", "ecowitt"), "/"),

		NATSEnabled:       enabled("NATS_ENABLED", natsURL != ""),
		NATSURL:           natsURL,
		NATSSubjectPrefix: strings.TrimSuffix(sharedcfg.EnvOrDefault("NATS_SUBJECT_PREFIX", "ecowitt"), "."),

		WebSocketEnabled: enabled("WEBSOCKET_ENABLED", true),
	}

	if !strings.HasPrefix(cfg.IngestPath, "/") {
		return nil, errors.New("INGEST_PATH must start with /")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}
	if cfg.KafkaEnabled && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_TOPIC is required")
	}
	if cfg.MQTTEnabled && cfg.MQTTBroker == "" {
		return nil, errors.New("MQTT_ENABLED is true but MQTT_BROKER is not set")
	}
	if cfg.NATSEnabled && cfg.NATSURL == "" {
		return nil, errors.New("NATS_ENABLED is true but NATS_URL is not set")
	}

	return cfg, nil
}

// enabled resolves a feature flag: an explicit env value wins, otherwise
// the flag follows whether the feature is configured.
func enabled(key string, implied bool) bool {
	if v := os.Getenv(key); v != "" {
		return v == "true"
	}
	return implied
}
