package client

import (
	"context"

	"github.com/darkwater/tanuki/internal/schema"
)

// OnOff is the user-role tanuki.on_off handle: two topics, "on" for
// retained state and "command" for control.
type OnOff struct {
	cap capability
}

// Command asks the entity to turn on, off, or toggle.
func (o *OnOff) Command(ctx context.Context, cmd schema.OnOffCommand) error {
	return o.cap.command(ctx, schema.KeyCommand, cmd)
}

// ListenCommand invokes fn for each inbound command. Authorities
// install this to act on user commands.
func (o *OnOff) ListenCommand(ctx context.Context, fn func(schema.OnOffCommand)) error {
	return listenTo(ctx, o.cap, schema.KeyCommand, func(_ schema.CapabilityData, cmd schema.OnOffCommand) {
		fn(cmd)
	})
}

// ListenOn invokes fn for each state change.
func (o *OnOff) ListenOn(ctx context.Context, fn func(bool)) error {
	return listenTo(ctx, o.cap, schema.KeyOn, func(_ schema.CapabilityData, on bool) {
		fn(on)
	})
}

// GetOn fetches the retained on/off state.
func (o *OnOff) GetOn(ctx context.Context) (bool, error) {
	return getFrom[bool](ctx, o.cap, schema.KeyOn)
}

// OnOffAuthority adds state publishing to the on/off handle.
type OnOffAuthority struct {
	OnOff
}

// PublishOn publishes the retained on/off state.
func (o *OnOffAuthority) PublishOn(ctx context.Context, on bool) error {
	return o.cap.publishRaw(ctx, schema.KeyOn, on, EntityData())
}
