// bridge-device exposes non-Matter devices (zigbee2mqtt, NATS telemetry,
// simulations) as a Matter-style bridged node with versioned attributes,
// event queues, and ICD check-in support.
//
// Usage:
//
//	bridge-device [options]
//
// Options:
//
//	-config     Path to the YAML configuration. Without it the device
//	            runs a pair of simulated sensors.
//	-log-level  Override the configured log level (trace, debug, info,
//	            warn, error).
package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"strings"
	"syscall"

	"github.com/pion/logging"

	"github.com/backkem/matter-bridge/pkg/config"
)

func main() {
	configPath := flag.String("config", "", "path to the YAML configuration")
	logLevel := flag.String("log-level", "", "override the configured log level")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}
		cfg = loaded
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}

	loggerFactory := logging.NewDefaultLoggerFactory()
	loggerFactory.DefaultLogLevel = parseLogLevel(cfg.LogLevel)

	device, err := NewDevice(cfg, loggerFactory)
	if err != nil {
		log.Fatalf("Failed to create bridge device: %v", err)
	}

	if err := device.Start(); err != nil {
		log.Fatalf("Failed to start bridge device: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Println("Shutting down...")
	device.Stop()
}

func parseLogLevel(level string) logging.LogLevel {
	switch strings.ToLower(level) {
	case "trace":
		return logging.LogLevelTrace
	case "debug":
		return logging.LogLevelDebug
	case "warn":
		return logging.LogLevelWarn
	case "error":
		return logging.LogLevelError
	default:
		return logging.LogLevelInfo
	}
}
