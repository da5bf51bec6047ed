package hass

import (
	"context"
	"strconv"

	"github.com/darkwater/tanuki/internal/schema"
)

// MappedEntity wires one Tanuki entity to Home Assistant: inbound
// state and ZHA event sources, and outbound service targets.
type MappedEntity struct {
	TanukiID   schema.EntityID
	FromStates []StateMapping
	FromZha    []ZhaMapping
	ToHass     []ServiceMapping
}

// StateMapping propagates one HA entity's state changes into a Tanuki
// capability.
type StateMapping struct {
	FromID string
	MapTo  CapMapping
}

// CapMapping is how a Home Assistant state lands on the data plane:
// as a sensor reading or as light state.
type CapMapping interface {
	propagate(ctx context.Context, b *bridge, id schema.EntityID, st *State) error
}

// MapSensor publishes the state as a numeric reading under key.
func MapSensor(key string) CapMapping { return sensorMap{key: key} }

// MapBinarySensor publishes the state as a boolean reading under key,
// accepting exactly "on" and "off".
func MapBinarySensor(key string) CapMapping { return sensorMap{key: key, binary: true} }

// MapLight publishes on/off state plus a composite light state with
// brightness and color.
func MapLight() CapMapping { return lightMap{} }

type sensorMap struct {
	key    string
	binary bool
}

func (m sensorMap) propagate(ctx context.Context, b *bridge, id schema.EntityID, st *State) error {
	var value schema.SensorValue
	if m.binary {
		switch st.State {
		case "on":
			value = schema.Boolean(true)
		case "off":
			value = schema.Boolean(false)
		default:
			b.logger.Warn("unparseable binary sensor state", "state", st.State, "entity", id)
			return nil
		}
	} else {
		number, err := strconv.ParseFloat(st.State, 64)
		if err != nil {
			b.logger.Warn("unparseable sensor state", "state", st.State, "entity", id)
			return nil
		}
		value = schema.Number(number)
	}

	sensor, err := b.registry.Sensor(ctx, id, b.entityInit)
	if err != nil {
		return err
	}

	return sensor.Publish(ctx, m.key, schema.SensorPayload{
		Value:     value,
		Unit:      st.Attributes.UnitOfMeasurement,
		Timestamp: st.LastUpdated,
	})
}

// hassFullBrightness is HA's brightness ceiling.
const hassFullBrightness = 254

type lightMap struct{}

func (lightMap) propagate(ctx context.Context, b *bridge, id schema.EntityID, st *State) error {
	var on bool
	switch st.State {
	case "on":
		on = true
	case "off":
		on = false
	default:
		b.logger.Warn("unparseable light state", "state", st.State, "entity", id)
		return nil
	}

	onOff, err := b.registry.OnOff(ctx, id, b.entityInit)
	if err != nil {
		return err
	}
	if err := onOff.PublishOn(ctx, on); err != nil {
		return err
	}

	state := schema.LightState{On: on}

	if st.Attributes.Brightness != nil {
		brightness := *st.Attributes.Brightness / hassFullBrightness
		brightness = min(max(brightness, 0), 1)
		state.Brightness = &brightness
	}

	if st.Attributes.ColorMode != "" {
		if color, ok := schema.ColorFromSlice(st.Attributes.ColorMode, st.Attributes.colorSlice()); ok {
			state.Color = &color
		} else if st.Attributes.colorSlice() != nil {
			b.logger.Warn("unparseable light color",
				"color_mode", st.Attributes.ColorMode, "entity", id)
		}
	}

	light, err := b.registry.Light(ctx, id, b.entityInit)
	if err != nil {
		return err
	}
	return light.PublishState(ctx, state)
}

// ZhaMapping turns raw zha_event frames from one Zigbee device into
// button actions.
type ZhaMapping struct {
	DeviceIEEE   string
	Translations []ZhaTranslation
}

// ZhaTranslation matches a ZHA command and emits a button action. The
// params check is a subset match: every pair here must appear with
// the same value in the event's params; extra event params are
// ignored. Deliberately asymmetric.
type ZhaTranslation struct {
	Command string
	Params  map[string]any
	Button  schema.ButtonName
	Action  schema.ButtonAction
}

func (t ZhaTranslation) matches(ev *ZhaEventData) bool {
	if t.Command != ev.Command {
		return false
	}
	for key, want := range t.Params {
		got, ok := ev.Params[key]
		if !ok || !looseEqual(want, got) {
			return false
		}
	}
	return true
}

// looseEqual compares params across the JSON decode boundary, where
// every number arrives as float64 regardless of how the translation
// table spelled it.
func looseEqual(a, b any) bool {
	if fa, ok := asFloat(a); ok {
		fb, ok := asFloat(b)
		return ok && fa == fb
	}
	return a == b
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	}
	return 0, false
}

// ServiceMapping forwards Tanuki commands on one entity to a Home
// Assistant service target.
type ServiceMapping struct {
	HassID  string
	Service ServiceKind
}

// ServiceKind is the command surface being forwarded.
type ServiceKind interface {
	install(ctx context.Context, b *bridge, tanukiID schema.EntityID, hassID string) error
}

// OnOffService forwards on/off/toggle commands to turn_on, turn_off,
// and toggle on the configured domain.
type OnOffService struct {
	Domain string
}

func (s OnOffService) install(ctx context.Context, b *bridge, tanukiID schema.EntityID, hassID string) error {
	onOff, err := b.registry.OnOff(ctx, tanukiID, b.entityInit)
	if err != nil {
		return err
	}

	return onOff.ListenCommand(ctx, func(cmd schema.OnOffCommand) {
		var service string
		switch cmd {
		case schema.CommandOn:
			service = "turn_on"
		case schema.CommandOff:
			service = "turn_off"
		case schema.CommandToggle:
			service = "toggle"
		}

		// Off the dispatcher goroutine; the session write may block.
		go func() {
			if err := b.session.CallService(s.Domain, service, nil, hassID); err != nil {
				b.logger.Error("service call failed",
					"domain", s.Domain, "service", service, "entity", hassID, "error", err)
			}
		}()
	})
}

// LightService forwards light commands: on=true becomes turn_on with
// the color in service data when present, on=false becomes turn_off.
type LightService struct{}

func (LightService) install(ctx context.Context, b *bridge, tanukiID schema.EntityID, hassID string) error {
	light, err := b.registry.Light(ctx, tanukiID, b.entityInit)
	if err != nil {
		return err
	}

	return light.ListenCommand(ctx, func(cmd schema.LightCommand) {
		service := "turn_off"
		var data map[string]any
		if cmd.On {
			service = "turn_on"
			if cmd.Color != nil {
				data = map[string]any{cmd.Color.HassServiceDataKey(): cmd.Color.ToHass()}
			}
		}

		go func() {
			if err := b.session.CallService("light", service, data, hassID); err != nil {
				b.logger.Error("service call failed",
					"service", service, "entity", hassID, "error", err)
			}
		}()
	})
}
