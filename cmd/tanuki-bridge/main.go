// Package main runs both bridges in one process plus a small consumer
// that binds the rodret remote to a light group — the full data plane
// exercised end to end.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/darkwater/tanuki/internal/bthome"
	"github.com/darkwater/tanuki/internal/buildinfo"
	"github.com/darkwater/tanuki/internal/client"
	"github.com/darkwater/tanuki/internal/config"
	"github.com/darkwater/tanuki/internal/connwatch"
	"github.com/darkwater/tanuki/internal/hass"
	"github.com/darkwater/tanuki/internal/schema"
)

var bthomeDevices = []bthome.DeviceMap{
	{Match: "ATC_164B6D", ID: "atc_balcony", Name: "ATC Balcony"},
	{Match: "ATC_2DB3D7", ID: "atc_door_ceiling", Name: "ATC Door Ceiling"},
}

var lights = [][2]string{
	{"north_lamp", "light.north_light"},
	{"south_lamp", "light.south_light"},
	{"cabinet_strip", "light.cabinet_strip_light"},
	{"couch_strip", "light.couch_strip"},
	{"bed_strip", "light.bed_strip_light"},
	{"cabinet_lamp", "light.cabinet_lamp_light"},
	{"cabinet_extra_lamp", "light.ikea_of_sweden_tradfri_driver_30w_light"},
	{"kitchen_lamp", "light.kitchen_light"},
}

func hassMappings() []hass.MappedEntity {
	out := []hass.MappedEntity{
		{
			TanukiID: "rodret_remote_1",
			FromZha: []hass.ZhaMapping{{
				DeviceIEEE: "88:0f:62:ff:fe:4f:86:e1",
				Translations: []hass.ZhaTranslation{
					{Command: "on", Button: schema.ButtonOn, Action: schema.Pressed},
					{Command: "move_with_on_off", Params: map[string]any{"move_mode": 0},
						Button: schema.ButtonOn, Action: schema.LongPressed},
					{Command: "off", Button: schema.ButtonOff, Action: schema.Pressed},
					{Command: "move", Params: map[string]any{"move_mode": 1},
						Button: schema.ButtonOff, Action: schema.LongPressed},
				},
			}},
		},
	}

	for _, pair := range lights {
		out = append(out, hass.MappedEntity{
			TanukiID: schema.EntityID(pair[0]),
			FromStates: []hass.StateMapping{
				{FromID: pair[1], MapTo: hass.MapLight()},
			},
			ToHass: []hass.ServiceMapping{
				{HassID: pair[1], Service: hass.OnOffService{Domain: "light"}},
				{HassID: pair[1], Service: hass.LightService{}},
			},
		})
	}

	return out
}

// remoteListener binds the remote's buttons to the first lights of
// the group: press for on/off across the board.
func remoteListener(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	conn, err := client.Connect(ctx, "tanuki-bridge", cfg.MQTT.Addr, client.WithLogger(logger))
	if err != nil {
		return err
	}
	defer conn.Close()

	setLights := func(cmd schema.OnOffCommand) {
		// Commands run off the dispatcher goroutine; a listener
		// publishing inline would stall dispatch.
		go func() {
			for _, pair := range lights[:6] {
				onOff := conn.Entity(schema.EntityID(pair[0])).OnOff()
				if err := onOff.Command(ctx, cmd); err != nil {
					logger.Error("light command failed", "entity", pair[0], "error", err)
				}
			}
		}()
	}

	buttons := conn.Entity("rodret_remote_1").Buttons()
	err = buttons.Listen(ctx, func(button schema.ButtonName, action schema.ButtonAction) {
		switch {
		case button == schema.ButtonOn && action == schema.Pressed:
			setLights(schema.CommandOn)
		case button == schema.ButtonOff && action == schema.Pressed:
			setLights(schema.CommandOff)
		default:
			logger.Info("unhandled button event", "button", button, "action", action)
		}
	})
	if err != nil {
		return err
	}

	return conn.Handle()
}

func main() {
	configPath := flag.String("config", "", "path to config file")
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

	level, err := config.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := config.NewLogger(level)
	logger.Info("starting tanuki-bridge", "version", buildinfo.Version, "mqtt", cfg.MQTT.Addr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backoff := connwatch.DefaultBackoffConfig()

	go func() {
		err := connwatch.Supervise(ctx, "bthome", backoff, logger, func(ctx context.Context) error {
			return bthome.Run(ctx, bthome.Config{
				MQTTAddr:   cfg.MQTT.Addr,
				Devices:    bthomeDevices,
				WillEntity: "tanuki_bthome",
				Logger:     logger,
			})
		})
		if err != nil && ctx.Err() == nil {
			logger.Error("bthome supervisor exited", "error", err)
		}
	}()

	if cfg.HomeAssistant.Configured() {
		go func() {
			err := connwatch.Supervise(ctx, "hass", backoff, logger, func(ctx context.Context) error {
				return hass.Run(ctx, hass.Config{
					MQTTAddr:   cfg.MQTT.Addr,
					Host:       cfg.HomeAssistant.Host,
					Token:      cfg.HomeAssistant.Token,
					Mappings:   hassMappings(),
					WillEntity: "tanuki_hass",
					Logger:     logger,
				})
			})
			if err != nil && ctx.Err() == nil {
				logger.Error("hass supervisor exited", "error", err)
			}
		}()
	} else {
		logger.Info("home assistant not configured, bridge disabled")
	}

	err = connwatch.Supervise(ctx, "remote-listener", backoff, logger, func(ctx context.Context) error {
		return remoteListener(ctx, cfg, logger)
	})
	if err != nil && ctx.Err() == nil {
		logger.Error("remote listener exited", "error", err)
		os.Exit(1)
	}
}
