// Package main is the Home Assistant bridge: HA entity states and
// ZHA events become Tanuki publishes, and Tanuki commands become HA
// service calls.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/darkwater/tanuki/internal/buildinfo"
	"github.com/darkwater/tanuki/internal/config"
	"github.com/darkwater/tanuki/internal/connwatch"
	"github.com/darkwater/tanuki/internal/hass"
	"github.com/darkwater/tanuki/internal/schema"
)

// lights pairs Tanuki entity ids with their HA light entities; each
// gets full two-way mapping.
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

func mappings() []hass.MappedEntity {
	out := []hass.MappedEntity{
		{
			TanukiID: "tapo_tv",
			FromStates: []hass.StateMapping{
				{FromID: "sensor.tv_voltage", MapTo: hass.MapSensor("voltage")},
				{FromID: "sensor.tv_current", MapTo: hass.MapSensor("current")},
				{FromID: "sensor.tv_current_consumption", MapTo: hass.MapSensor("current_consumption")},
			},
		},
		{
			TanukiID: "vindstyrka",
			FromStates: []hass.StateMapping{
				{FromID: "sensor.vindstyrka_temperature", MapTo: hass.MapSensor("temperature")},
				{FromID: "sensor.vindstyrka_humidity", MapTo: hass.MapSensor("humidity")},
				{FromID: "sensor.vindstyrka_pm2_5", MapTo: hass.MapSensor("pm2_5")},
			},
		},
		{
			TanukiID: "motion_sensor",
			FromStates: []hass.StateMapping{
				{FromID: "binary_sensor.motion_sensor_motion", MapTo: hass.MapBinarySensor("motion")},
			},
		},
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

	if !cfg.HomeAssistant.Configured() {
		fmt.Fprintln(os.Stderr, "home assistant host and token required (config or HASS_HOST/HASS_TOKEN)")
		os.Exit(1)
	}

	level, err := config.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := config.NewLogger(level)
	logger.Info("starting tanuki-hass",
		"version", buildinfo.Version, "mqtt", cfg.MQTT.Addr, "hass", cfg.HomeAssistant.Host)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = connwatch.Supervise(ctx, "hass", connwatch.DefaultBackoffConfig(), logger,
		func(ctx context.Context) error {
			return hass.Run(ctx, hass.Config{
				MQTTAddr:   cfg.MQTT.Addr,
				Host:       cfg.HomeAssistant.Host,
				Token:      cfg.HomeAssistant.Token,
				Mappings:   mappings(),
				WillEntity: "tanuki_hass",
				Logger:     logger,
			})
		})
	if err != nil && ctx.Err() == nil {
		logger.Error("bridge exited", "error", err)
		os.Exit(1)
	}
}
