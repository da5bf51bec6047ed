package hass

import (
	"encoding/json"
	"testing"

	"github.com/darkwater/tanuki/internal/schema"
)

func TestServerMessage_DecodeStateChanged(t *testing.T) {
	raw := `{
		"id": 1,
		"type": "event",
		"event": {
			"event_type": "state_changed",
			"data": {
				"entity_id": "light.north_light",
				"old_state": {"state": "off", "attributes": {}},
				"new_state": {
					"state": "on",
					"attributes": {
						"brightness": 127,
						"color_mode": "rgb",
						"rgb_color": [255, 0, 128]
					},
					"last_updated": "2024-04-05T22:54:38Z"
				}
			},
			"origin": "LOCAL",
			"time_fired": "2024-04-05T22:54:38Z"
		}
	}`

	var msg ServerMessage
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		t.Fatalf("Unmarshal error = %v", err)
	}
	if msg.Type != "event" || msg.Event == nil {
		t.Fatalf("msg = %#v, want event", msg)
	}
	if msg.Event.EventType != "state_changed" {
		t.Fatalf("event type = %q", msg.Event.EventType)
	}

	var data StateChangedData
	if err := json.Unmarshal(msg.Event.Data, &data); err != nil {
		t.Fatalf("decode data error = %v", err)
	}
	if data.EntityID != "light.north_light" {
		t.Errorf("entity id = %q", data.EntityID)
	}
	if data.NewState == nil || data.NewState.State != "on" {
		t.Fatalf("new state = %#v", data.NewState)
	}
	if *data.NewState.Attributes.Brightness != 127 {
		t.Errorf("brightness = %v, want 127", *data.NewState.Attributes.Brightness)
	}
	if data.NewState.Attributes.ColorMode != schema.ModeRgb {
		t.Errorf("color mode = %q, want rgb", data.NewState.Attributes.ColorMode)
	}
}

func TestServerMessage_DecodeZhaEvent(t *testing.T) {
	raw := `{
		"id": 1,
		"type": "event",
		"event": {
			"event_type": "zha_event",
			"data": {
				"device_id": "abc123",
				"device_ieee": "88:0f:62:ff:fe:4f:86:e1",
				"unique_id": "88:0f:62:ff:fe:4f:86:e1:1:0x0008",
				"command": "move_with_on_off",
				"args": [0, 83],
				"params": {"move_mode": 0, "rate": 83}
			},
			"origin": "LOCAL",
			"time_fired": "2024-04-05T22:54:38Z"
		}
	}`

	var msg ServerMessage
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		t.Fatalf("Unmarshal error = %v", err)
	}

	var data ZhaEventData
	if err := json.Unmarshal(msg.Event.Data, &data); err != nil {
		t.Fatalf("decode data error = %v", err)
	}
	if data.DeviceIEEE != "88:0f:62:ff:fe:4f:86:e1" {
		t.Errorf("device ieee = %q", data.DeviceIEEE)
	}
	if data.Command != "move_with_on_off" {
		t.Errorf("command = %q", data.Command)
	}
	if data.Params["move_mode"] != float64(0) {
		t.Errorf("params move_mode = %#v", data.Params["move_mode"])
	}
}

func TestServerMessage_DecodeGetStatesResult(t *testing.T) {
	raw := `{
		"id": 2,
		"type": "result",
		"success": true,
		"result": [
			{
				"entity_id": "sensor.vindstyrka_temperature",
				"state": "23.5",
				"attributes": {"unit_of_measurement": "°C"},
				"last_updated": "2024-04-05T22:54:38Z"
			}
		]
	}`

	var msg ServerMessage
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		t.Fatalf("Unmarshal error = %v", err)
	}
	if !msg.Success {
		t.Fatal("success = false")
	}

	var states []StateEvent
	if err := json.Unmarshal(msg.Result, &states); err != nil {
		t.Fatalf("decode result error = %v", err)
	}
	if len(states) != 1 {
		t.Fatalf("states = %d, want 1", len(states))
	}
	if states[0].EntityID != "sensor.vindstyrka_temperature" {
		t.Errorf("entity id = %q", states[0].EntityID)
	}
	if states[0].State.State != "23.5" || states[0].Attributes.UnitOfMeasurement != "°C" {
		t.Errorf("state = %#v", states[0].State)
	}
}

func TestCallServiceMessage_JSON(t *testing.T) {
	msg := callServiceMessage{
		ID:          7,
		Type:        "call_service",
		Domain:      "light",
		Service:     "turn_on",
		ServiceData: map[string]any{"rgb_color": []float32{255, 0, 128}},
		Target:      serviceTarget{EntityID: "light.north_light"},
	}

	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("Marshal error = %v", err)
	}
	want := `{"id":7,"type":"call_service","domain":"light","service":"turn_on",` +
		`"service_data":{"rgb_color":[255,0,128]},"target":{"entity_id":"light.north_light"}}`
	if string(data) != want {
		t.Errorf("Marshal = %s\nwant      %s", data, want)
	}
}

func TestCallServiceMessage_OmitsNullServiceData(t *testing.T) {
	msg := callServiceMessage{
		ID:      3,
		Type:    "call_service",
		Domain:  "switch",
		Service: "toggle",
		Target:  serviceTarget{EntityID: "switch.fan"},
	}

	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("Marshal error = %v", err)
	}
	want := `{"id":3,"type":"call_service","domain":"switch","service":"toggle","target":{"entity_id":"switch.fan"}}`
	if string(data) != want {
		t.Errorf("Marshal = %s\nwant      %s", data, want)
	}
}

func TestSubscribeEventsMessage_OmitsNilEventType(t *testing.T) {
	data, err := json.Marshal(subscribeEventsMessage{ID: 1, Type: "subscribe_events"})
	if err != nil {
		t.Fatalf("Marshal error = %v", err)
	}
	if string(data) != `{"id":1,"type":"subscribe_events"}` {
		t.Errorf("Marshal = %s", data)
	}
}
