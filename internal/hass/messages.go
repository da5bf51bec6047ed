// Package hass bridges Home Assistant into the Tanuki data plane over
// the HA WebSocket API: entity states and ZHA events flow in and
// become Tanuki capability publishes; Tanuki commands flow out as
// service calls.
package hass

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/darkwater/tanuki/internal/schema"
)

// Auth-phase message types, exchanged before the session carries ids.
const (
	typeAuthRequired = "auth_required"
	typeAuth         = "auth"
	typeAuthOK       = "auth_ok"
	typeAuthInvalid  = "auth_invalid"
)

// authMessage covers every auth-phase frame in both directions.
type authMessage struct {
	Type        string `json:"type"`
	HAVersion   string `json:"ha_version,omitempty"`
	AccessToken string `json:"access_token,omitempty"`
	Message     string `json:"message,omitempty"`
}

// ServerMessage is one post-auth frame from Home Assistant. Result
// and Event are populated according to Type.
type ServerMessage struct {
	ID      uint32          `json:"id"`
	Type    string          `json:"type"`
	Success bool            `json:"success"`
	Result  json.RawMessage `json:"result"`
	Error   *ServerError    `json:"error"`
	Event   *EventMessage   `json:"event"`
}

// ServerError is Home Assistant's error payload on a failed result.
type ServerError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// EventMessage is the envelope of a subscribed event. Data decodes
// per EventType.
type EventMessage struct {
	EventType string          `json:"event_type"`
	Data      json.RawMessage `json:"data"`
	Origin    string          `json:"origin"`
	TimeFired time.Time       `json:"time_fired"`
}

// StateChangedData is the payload of a state_changed event. Either
// state may be null when an entity appears or disappears.
type StateChangedData struct {
	EntityID string `json:"entity_id"`
	OldState *State `json:"old_state"`
	NewState *State `json:"new_state"`
}

// ZhaEventData is the payload of a zha_event: a raw Zigbee command
// from a remote or button.
type ZhaEventData struct {
	DeviceID   string          `json:"device_id"`
	DeviceIEEE string          `json:"device_ieee"`
	UniqueID   string          `json:"unique_id"`
	Command    string          `json:"command"`
	Args       json.RawMessage `json:"args"`
	Params     map[string]any  `json:"params"`
}

// StateEvent is one entry of a get_states result.
type StateEvent struct {
	EntityID string `json:"entity_id"`
	State
}

// State is a Home Assistant entity state snapshot.
type State struct {
	State       string          `json:"state"`
	Attributes  StateAttributes `json:"attributes"`
	LastChanged time.Time       `json:"last_changed"`
	LastUpdated time.Time       `json:"last_updated"`
}

// StateAttributes carries the subset of HA attributes the bridge
// maps. Unknown attributes are ignored.
type StateAttributes struct {
	UnitOfMeasurement string `json:"unit_of_measurement"`

	// Light attributes. Brightness runs 0-254 in HA convention.
	Brightness *float64         `json:"brightness"`
	ColorMode  schema.ColorMode `json:"color_mode"`
	RgbwwColor []float32        `json:"rgbww_color"`
	RgbwColor  []float32        `json:"rgbw_color"`
	RgbColor   []float32        `json:"rgb_color"`
	HsColor    []float32        `json:"hs_color"`
	XyColor    []float32        `json:"xy_color"`
	ColorTemp  *uint16          `json:"color_temp"`
}

// colorSlice returns the attribute list matching the color mode.
func (a StateAttributes) colorSlice() []float32 {
	switch a.ColorMode {
	case schema.ModeRgbww:
		return a.RgbwwColor
	case schema.ModeRgbw:
		return a.RgbwColor
	case schema.ModeRgb:
		return a.RgbColor
	case schema.ModeHs:
		return a.HsColor
	case schema.ModeXy:
		return a.XyColor
	}
	return nil
}

// Client-to-server session messages. The id field is stamped by the
// session at send time.

type subscribeEventsMessage struct {
	ID   uint32 `json:"id"`
	Type string `json:"type"`
	// nil subscribes to all event types.
	EventType *string `json:"event_type,omitempty"`
}

type getStatesMessage struct {
	ID   uint32 `json:"id"`
	Type string `json:"type"`
}

type callServiceMessage struct {
	ID          uint32         `json:"id"`
	Type        string         `json:"type"`
	Domain      string         `json:"domain"`
	Service     string         `json:"service"`
	ServiceData map[string]any `json:"service_data,omitempty"`
	Target      serviceTarget  `json:"target"`
}

type serviceTarget struct {
	EntityID string `json:"entity_id"`
}
