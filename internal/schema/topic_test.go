package schema

import (
	"errors"
	"testing"
)

func TestParseTopic(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Topic
	}{
		{
			"entity meta",
			"tanuki/entities/atc_balcony/$meta/name",
			EntityMeta{Entity: "atc_balcony", Key: "name"},
		},
		{
			"capability meta",
			"tanuki/entities/lamp/tanuki.on_off/$meta/version",
			CapabilityMeta{Entity: "lamp", Capability: "tanuki.on_off", Key: "version"},
		},
		{
			"capability data",
			"tanuki/entities/vindstyrka/tanuki.sensor/temperature",
			CapabilityData{Entity: "vindstyrka", Capability: "tanuki.sensor", Rest: "temperature"},
		},
		{
			"capability data keeps trailing segments",
			"tanuki/entities/sensor.temperature/temperature_sensor/current/extra",
			CapabilityData{Entity: "sensor.temperature", Capability: "temperature_sensor", Rest: "current/extra"},
		},
		{
			"wildcard entity",
			"tanuki/entities/+/tanuki.buttons/+",
			CapabilityData{Entity: "+", Capability: "tanuki.buttons", Rest: "+"},
		},
		{
			"dotted entity id",
			"tanuki/entities/light.north_light/tanuki.light/state",
			CapabilityData{Entity: "light.north_light", Capability: "tanuki.light", Rest: "state"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTopic(tt.input)
			if err != nil {
				t.Fatalf("ParseTopic(%q) error = %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseTopic(%q) = %#v, want %#v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseTopic_Errors(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantWant string
	}{
		{"empty", "", "tanuki/..."},
		{"wrong root", "zigbee2mqtt/foo", "tanuki/..."},
		{"missing entities", "tanuki/devices/x", "tanuki/entities/..."},
		{"bare prefix", "tanuki/entities", "tanuki/entities/{id}/..."},
		{"empty entity", "tanuki/entities//tanuki.on_off/on", "tanuki/entities/{id}/..."},
		{"entity only", "tanuki/entities/x", "tanuki/entities/{id}/{capability}/..."},
		{"meta without key", "tanuki/entities/x/$meta", "tanuki/entities/{id}/$meta/{key}"},
		{"meta trailing segments", "tanuki/entities/x/$meta/name/extra", "tanuki/entities/{id}/$meta/{key}/..."},
		{"capability without rest", "tanuki/entities/x/tanuki.on_off", "tanuki/entities/{id}/{capability}/{...}"},
		{"capability empty rest", "tanuki/entities/x/tanuki.on_off/", "tanuki/entities/{id}/{capability}/{...}"},
		{"capability meta without key", "tanuki/entities/x/tanuki.on_off/$meta", "tanuki/entities/{id}/{capability}/$meta/{key}"},
		{"capability meta trailing", "tanuki/entities/x/tanuki.on_off/$meta/version/extra", "tanuki/entities/{id}/{capability}/$meta/{key}/..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTopic(tt.input)
			if err == nil {
				t.Fatalf("ParseTopic(%q) succeeded, want error", tt.input)
			}
			var bad *BadTopicError
			if !errors.As(err, &bad) {
				t.Fatalf("ParseTopic(%q) error = %v, want BadTopicError", tt.input, err)
			}
			if bad.Want != tt.wantWant {
				t.Errorf("error want = %q, want %q", bad.Want, tt.wantWant)
			}
		})
	}
}

func TestTopic_RoundTrip(t *testing.T) {
	topics := []Topic{
		EntityMeta{Entity: "atc_balcony", Key: "status"},
		CapabilityMeta{Entity: "lamp", Capability: "tanuki.light", Key: "version"},
		CapabilityData{Entity: "lamp", Capability: "tanuki.on_off", Rest: "command"},
		CapabilityData{Entity: "media.living", Capability: "tanuki.media", Rest: "state"},
		CapabilityData{Entity: "x", Capability: "c", Rest: "a/b/c"},
		CapabilityData{Entity: "+", Capability: "tanuki.buttons", Rest: "+"},
	}

	for _, topic := range topics {
		wire := topic.String()
		parsed, err := ParseTopic(wire)
		if err != nil {
			t.Fatalf("ParseTopic(%q) error = %v", wire, err)
		}
		if parsed != topic {
			t.Errorf("round trip %q: got %#v, want %#v", wire, parsed, topic)
		}
		if parsed.String() != wire {
			t.Errorf("format(parse(%q)) = %q", wire, parsed.String())
		}
	}
}
