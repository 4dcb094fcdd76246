package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration
type Config struct {
	// BindAddress is the address the server listens on (e.g. "0.0.0.0:8080")
	BindAddress string `yaml:"bind_address"`
	// SerialPort is the path to the module's serial port (e.g. "/dev/ttyUSB0")
	SerialPort string `yaml:"serial_port"`
	// BaudRate is the baud rate for serial communication with the module (e.g. 115200)
	BaudRate int `yaml:"baud_rate"`
	// LogLevel sets the logging level (e.g. "debug", "info", "warn", "error")
	LogLevel string `yaml:"log_level"`
	// SSID is the network the gateway keeps the module joined to. Empty
	// disables the connection supervisor.
	SSID string `yaml:"ssid"`
	// Password is the network passphrase. It is handed to the module and
	// never logged.
	Password string `yaml:"password"`
	// MQTTBroker is the broker URL (e.g. "tcp://localhost:1883"). Empty
	// disables MQTT.
	MQTTBroker string `yaml:"mqtt_broker"`
	// MQTTPrefix namespaces the gateway's topics (e.g. "wifigw")
	MQTTPrefix string `yaml:"mqtt_prefix"`
	// PollInterval is how often the supervisor verifies the association
	PollInterval time.Duration `yaml:"poll_interval"`
}

// ConfigOption is a function that modifies a Config
type ConfigOption func(*Config) error

// LoadConfig creates a new config by applying the given options in order
func LoadConfig(opts ...ConfigOption) (*Config, error) {
	config := &Config{}

	for _, opt := range opts {
		if err := opt(config); err != nil {
			return nil, err
		}
	}

	return config, nil
}

// WithDefaults applies default configuration values
func WithDefaults() ConfigOption {
	return func(c *Config) error {
		c.BindAddress = "0.0.0.0:8080"
		c.SerialPort = "/dev/ttyUSB0"
		c.BaudRate = 115200
		c.LogLevel = "info"
		c.MQTTPrefix = "wifigw"
		c.PollInterval = 30 * time.Second
		return nil
	}
}

// WithFile loads configuration from a YAML file. An empty path is a
// no-op so the flag can stay optional.
func WithFile(path string) ConfigOption {
	return func(c *Config) error {
		if path == "" {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("parse config file %s: %w", path, err)
		}
		return nil
	}
}

// WithEnv loads configuration from environment variables
func WithEnv() ConfigOption {
	return func(c *Config) error {
		if addr := os.Getenv("BIND_ADDRESS"); addr != "" {
			c.BindAddress = addr
		}

		if serial := os.Getenv("SERIAL_PORT"); serial != "" {
			c.SerialPort = serial
		}

		if baud := os.Getenv("BAUD_RATE"); baud != "" {
			if b, err := strconv.Atoi(baud); err == nil {
				c.BaudRate = b
			}
		}

		if level := os.Getenv("LOG_LEVEL"); level != "" {
			c.LogLevel = level
		}

		if ssid := os.Getenv("WIFI_SSID"); ssid != "" {
			c.SSID = ssid
		}

		if password := os.Getenv("WIFI_PASSWORD"); password != "" {
			c.Password = password
		}

		if broker := os.Getenv("MQTT_BROKER"); broker != "" {
			c.MQTTBroker = broker
		}

		if prefix := os.Getenv("MQTT_PREFIX"); prefix != "" {
			c.MQTTPrefix = prefix
		}

		if interval := os.Getenv("POLL_INTERVAL"); interval != "" {
			if d, err := time.ParseDuration(interval); err == nil {
				c.PollInterval = d
			}
		}

		return nil
	}
}

// WithFlags loads configuration from command-line flags
func WithFlags(fSet *flag.FlagSet) ConfigOption {
	return func(c *Config) error {
		fSet.Visit(func(f *flag.Flag) {
			switch f.Name {
			case "bind-address":
				c.BindAddress = f.Value.String()
			case "serial-port":
				c.SerialPort = f.Value.String()
			case "baud-rate":
				if b, err := strconv.Atoi(f.Value.String()); err == nil {
					c.BaudRate = b
				}
			case "log-level":
				c.LogLevel = f.Value.String()
			case "ssid":
				c.SSID = f.Value.String()
			case "password":
				c.Password = f.Value.String()
			case "mqtt-broker":
				c.MQTTBroker = f.Value.String()
			case "mqtt-prefix":
				c.MQTTPrefix = f.Value.String()
			case "poll-interval":
				if d, err := time.ParseDuration(f.Value.String()); err == nil {
					c.PollInterval = d
				}
			}
		})
		return nil
	}
}
