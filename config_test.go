package main

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfig(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		config, err := LoadConfig(WithDefaults())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if config.BindAddress != "0.0.0.0:8080" {
			t.Errorf("expected default bind address, got %q", config.BindAddress)
		}
		if config.SerialPort != "/dev/ttyUSB0" {
			t.Errorf("expected default serial port, got %q", config.SerialPort)
		}
		if config.BaudRate != 115200 {
			t.Errorf("expected default baud rate, got %d", config.BaudRate)
		}
		if config.LogLevel != "info" {
			t.Errorf("expected default log level, got %q", config.LogLevel)
		}
		if config.MQTTPrefix != "wifigw" {
			t.Errorf("expected default topic prefix, got %q", config.MQTTPrefix)
		}
		if config.PollInterval != 30*time.Second {
			t.Errorf("expected default poll interval, got %v", config.PollInterval)
		}
	})

	t.Run("File overrides defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		data := "serial_port: /dev/ttyAMA0\nbaud_rate: 9600\nssid: hydra\npoll_interval: 10s\n"
		if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
			t.Fatalf("write config file: %v", err)
		}

		config, err := LoadConfig(WithDefaults(), WithFile(path))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if config.SerialPort != "/dev/ttyAMA0" {
			t.Errorf("expected serial port from file, got %q", config.SerialPort)
		}
		if config.BaudRate != 9600 {
			t.Errorf("expected baud rate from file, got %d", config.BaudRate)
		}
		if config.SSID != "hydra" {
			t.Errorf("expected ssid from file, got %q", config.SSID)
		}
		if config.PollInterval != 10*time.Second {
			t.Errorf("expected poll interval from file, got %v", config.PollInterval)
		}
		if config.BindAddress != "0.0.0.0:8080" {
			t.Errorf("expected untouched default bind address, got %q", config.BindAddress)
		}
	})

	t.Run("Empty file path is skipped", func(t *testing.T) {
		config, err := LoadConfig(WithDefaults(), WithFile(""))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if config.SerialPort != "/dev/ttyUSB0" {
			t.Errorf("expected default serial port, got %q", config.SerialPort)
		}
	})

	t.Run("Missing file fails", func(t *testing.T) {
		_, err := LoadConfig(WithDefaults(), WithFile(filepath.Join(t.TempDir(), "absent.yaml")))
		if err == nil {
			t.Error("expected an error for a missing file")
		}
	})

	t.Run("Malformed file fails", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		if err := os.WriteFile(path, []byte("{{nope"), 0o600); err != nil {
			t.Fatalf("write config file: %v", err)
		}

		_, err := LoadConfig(WithDefaults(), WithFile(path))
		if err == nil {
			t.Error("expected an error for malformed YAML")
		}
	})

	t.Run("Environment overrides file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		if err := os.WriteFile(path, []byte("serial_port: /dev/ttyAMA0\n"), 0o600); err != nil {
			t.Fatalf("write config file: %v", err)
		}

		t.Setenv("SERIAL_PORT", "/dev/ttyS2")
		t.Setenv("BAUD_RATE", "57600")
		t.Setenv("WIFI_PASSWORD", "s3cret")
		t.Setenv("POLL_INTERVAL", "5s")

		config, err := LoadConfig(WithDefaults(), WithFile(path), WithEnv())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if config.SerialPort != "/dev/ttyS2" {
			t.Errorf("expected serial port from environment, got %q", config.SerialPort)
		}
		if config.BaudRate != 57600 {
			t.Errorf("expected baud rate from environment, got %d", config.BaudRate)
		}
		if config.Password != "s3cret" {
			t.Errorf("expected password from environment, got %q", config.Password)
		}
		if config.PollInterval != 5*time.Second {
			t.Errorf("expected poll interval from environment, got %v", config.PollInterval)
		}
	})

	t.Run("Flags override everything", func(t *testing.T) {
		t.Setenv("SERIAL_PORT", "/dev/ttyS2")

		fSet := flag.NewFlagSet("test", flag.ContinueOnError)
		fSet.String("serial-port", "/dev/ttyUSB0", "")
		fSet.String("ssid", "", "")
		fSet.Duration("poll-interval", 30*time.Second, "")
		if err := fSet.Parse([]string{"-serial-port", "/dev/ttyS9", "-ssid", "lab", "-poll-interval", "1m"}); err != nil {
			t.Fatalf("parse flags: %v", err)
		}

		config, err := LoadConfig(WithDefaults(), WithEnv(), WithFlags(fSet))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if config.SerialPort != "/dev/ttyS9" {
			t.Errorf("expected serial port from flags, got %q", config.SerialPort)
		}
		if config.SSID != "lab" {
			t.Errorf("expected ssid from flags, got %q", config.SSID)
		}
		if config.PollInterval != time.Minute {
			t.Errorf("expected poll interval from flags, got %v", config.PollInterval)
		}
		if config.BindAddress != "0.0.0.0:8080" {
			t.Errorf("expected untouched default bind address, got %q", config.BindAddress)
		}
	})
}
