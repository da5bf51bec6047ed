package schema

import (
	"encoding/json"
	"fmt"
)

// ButtonAction is the event payload of a tanuki.buttons topic. Each
// topic under the capability names a physical button; the payload
// describes what happened to it.
type ButtonAction string

const (
	// Pressed: the button was pressed.
	Pressed ButtonAction = "pressed"
	// LongPressed: the button was held down for some time.
	LongPressed ButtonAction = "long_pressed"
)

// UnmarshalJSON rejects actions outside the closed set.
func (a *ButtonAction) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch ButtonAction(raw) {
	case Pressed, LongPressed:
		*a = ButtonAction(raw)
		return nil
	}
	return fmt.Errorf("unknown button action %q", raw)
}

// ButtonName is the topic segment naming a button. "on" and "off" are
// conventional; anything else is device-specific.
type ButtonName string

const (
	ButtonOn  ButtonName = "on"
	ButtonOff ButtonName = "off"
)
