package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/cors"

	"i4.energy/across/wifigw/wifi"
)

func main() {
	configPath := flag.String("config", "", "Path to a YAML configuration file")
	flag.String("serial-port", "/dev/ttyUSB0", "Serial port to connect to the WiFi module")
	flag.Int("baud-rate", 115200, "Baud rate for serial communication")
	flag.String("bind-address", "0.0.0.0:8080", "Bind address for the HTTP server")
	flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.String("ssid", "", "Network the supervisor keeps the module joined to (empty disables it)")
	flag.String("password", "", "Password for the supervised network")
	flag.String("mqtt-broker", "", "MQTT broker URL (empty disables the bridge)")
	flag.String("mqtt-prefix", "wifigw", "Topic prefix for the MQTT bridge")
	flag.Duration("poll-interval", 30*time.Second, "How often the supervisor verifies the association")
	flag.Parse()

	config, err := LoadConfig(WithDefaults(), WithFile(*configPath), WithEnv(), WithFlags(flag.CommandLine))
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logLevel := slog.LevelInfo
	switch config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	deviceConfig, err := wifi.NewConfigBuilder().
		WithLogger(logger.With("component", "wifi")).
		WithDialer(wifi.SerialDialer{
			PortName: config.SerialPort,
			BaudRate: config.BaudRate,
		}).
		Build()
	if err != nil {
		logger.Error("Failed to create device config", "error", err)
		os.Exit(1)
	}

	device, err := wifi.New(context.Background(), deviceConfig)
	if err != nil {
		logger.Error("Failed to create device", "error", err)
		os.Exit(1)
	}

	metrics := NewMetrics(prometheus.DefaultRegisterer)
	hub := NewHub(logger.With("component", "ws"))

	var bridge *Bridge
	if config.MQTTBroker != "" {
		bridge, err = NewBridge(config.MQTTBroker, config.MQTTPrefix, device, logger.With("component", "mqtt"))
		if err != nil {
			logger.Error("Failed to connect MQTT bridge", "error", err)
			os.Exit(1)
		}
	}

	// Fan lifecycle transitions out to the instruments, the websocket
	// clients and the broker. The channel closes with the device.
	go func() {
		for state := range device.StateChanges() {
			metrics.ObserveState(state)
			hub.Broadcast(state.String())
			if bridge != nil {
				bridge.PublishState(state.String())
			}
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if config.SSID != "" {
		go supervise(ctx, device, wifi.Secrets{SSID: config.SSID, Password: config.Password},
			config.PollInterval, metrics, logger.With("component", "supervisor"))
	} else {
		logger.Info("No network configured, supervisor disabled")
	}

	logger.Info("Starting WiFi gateway", "serial_port", config.SerialPort)

	httpServer := &http.Server{
		Addr: config.BindAddress,
		Handler: cors.Default().Handler(&Server{
			Logger:  logger.With("component", "server"),
			Device:  device,
			Hub:     hub,
			Metrics: metrics,
		}),
	}

	// Channel to listen for interrupt signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start HTTP server in a goroutine
	go func() {
		logger.Info("Starting HTTP server", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	sig := <-sigChan
	logger.Info("Received shutdown signal", "signal", sig)

	cancel()
	if bridge != nil {
		logger.Info("Closing MQTT bridge")
		bridge.Close()
	}

	logger.Info("Closing device connection")
	if err := device.Close(); err != nil {
		logger.Error("Failed to close device", "error", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	logger.Info("Closing HTTP server")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Failed to gracefully shutdown server", "error", err)
		os.Exit(1)
	}
}

// supervise keeps the module joined to the configured network: one
// initial join, then a periodic association check with a rejoin when
// the module fell off. It gives up when the network rejects the
// credentials.
func supervise(ctx context.Context, device *wifi.Device, secrets wifi.Secrets,
	interval time.Duration, metrics *Metrics, logger *slog.Logger) {

	if err := device.Connect(ctx, secrets); err != nil {
		logger.Error("Failed to join network", "ssid", secrets.SSID, "error", err)
		return
	}
	logger.Info("Joined network", "ssid", secrets.SSID)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		connected, err := device.IsConnected()
		if err != nil {
			logger.Warn("Association check failed", "error", err)
			continue
		}
		if connected {
			continue
		}

		logger.Warn("Module lost the network, rejoining", "ssid", secrets.SSID)
		metrics.Reconnects.Inc()
		if err := device.Connect(ctx, secrets); err != nil {
			logger.Error("Failed to rejoin network", "ssid", secrets.SSID, "error", err)
			return
		}
		logger.Info("Rejoined network", "ssid", secrets.SSID)
	}
}
