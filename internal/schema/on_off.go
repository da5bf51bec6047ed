package schema

import (
	"encoding/json"
	"fmt"
)

// OnOffCommand asks an on/off entity to change state.
//
// The tanuki.on_off capability has exactly two topics: "on" carries
// the retained boolean state, "command" carries these.
type OnOffCommand string

const (
	CommandOn     OnOffCommand = "on"
	CommandOff    OnOffCommand = "off"
	CommandToggle OnOffCommand = "toggle"
)

// UnmarshalJSON rejects commands outside the closed set.
func (c *OnOffCommand) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch OnOffCommand(raw) {
	case CommandOn, CommandOff, CommandToggle:
		*c = OnOffCommand(raw)
		return nil
	}
	return fmt.Errorf("unknown on/off command %q", raw)
}
