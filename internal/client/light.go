package client

import (
	"context"

	"github.com/darkwater/tanuki/internal/schema"
)

// Light is the user-role tanuki.light handle. State lives under
// "state"; commands under "command". On/off is mirrored on
// tanuki.on_off by convention.
type Light struct {
	cap capability
}

// Command sends a light command.
func (l *Light) Command(ctx context.Context, cmd schema.LightCommand) error {
	return l.cap.command(ctx, schema.KeyCommand, cmd)
}

// ListenCommand invokes fn for each inbound command.
func (l *Light) ListenCommand(ctx context.Context, fn func(schema.LightCommand)) error {
	return listenTo(ctx, l.cap, schema.KeyCommand, func(_ schema.CapabilityData, cmd schema.LightCommand) {
		fn(cmd)
	})
}

// ListenState invokes fn for each state change.
func (l *Light) ListenState(ctx context.Context, fn func(schema.LightState)) error {
	return listenTo(ctx, l.cap, schema.KeyState, func(_ schema.CapabilityData, st schema.LightState) {
		fn(st)
	})
}

// GetState fetches the retained light state.
func (l *Light) GetState(ctx context.Context) (schema.LightState, error) {
	return getFrom[schema.LightState](ctx, l.cap, schema.KeyState)
}

// LightAuthority adds state publishing to the light handle.
type LightAuthority struct {
	Light
}

// PublishState publishes the retained light state.
func (l *LightAuthority) PublishState(ctx context.Context, st schema.LightState) error {
	return l.cap.publishRaw(ctx, schema.KeyState, st, EntityData())
}
