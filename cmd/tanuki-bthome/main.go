// Package main is the BTHome ingester: it scans BLE advertisements
// and publishes decoded sensor readings on the Tanuki data plane.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/darkwater/tanuki/internal/bthome"
	"github.com/darkwater/tanuki/internal/buildinfo"
	"github.com/darkwater/tanuki/internal/config"
	"github.com/darkwater/tanuki/internal/connwatch"
)

// deviceMap assigns stable entity ids to known peripherals; unknown
// ones fall back to their snake-cased local name.
var deviceMap = []bthome.DeviceMap{
	{Match: "ATC_164B6D", ID: "atc_balcony", Name: "ATC Balcony"},
	{Match: "ATC_2DB3D7", ID: "atc_door_ceiling", Name: "ATC Door Ceiling"},
}

func main() {
	configPath := flag.String("config", "", "path to config file")
	mqttAddr := flag.String("mqtt", "", "MQTT broker address (host:port), overrides config")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(buildinfo.String())
		return
	}

	cfg := config.Default()
	if path, err := config.FindConfig(*configPath); err == nil {
		loaded, err := config.Load(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "load config %s: %v\n", path, err)
			os.Exit(1)
		}
		cfg = loaded
	} else if *configPath != "" {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *mqttAddr != "" {
		cfg.MQTT.Addr = *mqttAddr
	}

	level, err := config.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := config.NewLogger(level)
	logger.Info("starting tanuki-bthome", "version", buildinfo.Version, "mqtt", cfg.MQTT.Addr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = connwatch.Supervise(ctx, "bthome", connwatch.DefaultBackoffConfig(), logger,
		func(ctx context.Context) error {
			return bthome.Run(ctx, bthome.Config{
				MQTTAddr:   cfg.MQTT.Addr,
				Devices:    deviceMap,
				WillEntity: "tanuki_bthome",
				Logger:     logger,
			})
		})
	if err != nil && ctx.Err() == nil {
		logger.Error("bridge exited", "error", err)
		os.Exit(1)
	}
}
