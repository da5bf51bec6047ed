package client

import (
	"context"

	"github.com/darkwater/tanuki/internal/schema"
)

// Media is the user-role tanuki.media handle: retained capabilities
// and state, plus a command topic.
type Media struct {
	cap capability
}

// Command sends a playback command.
func (m *Media) Command(ctx context.Context, cmd schema.MediaCommand) error {
	return m.cap.command(ctx, schema.KeyCommand, cmd)
}

// ListenCommand invokes fn for each inbound command.
func (m *Media) ListenCommand(ctx context.Context, fn func(schema.MediaCommand)) error {
	return listenTo(ctx, m.cap, schema.KeyCommand, func(_ schema.CapabilityData, cmd schema.MediaCommand) {
		fn(cmd)
	})
}

// ListenState invokes fn for each state change.
func (m *Media) ListenState(ctx context.Context, fn func(schema.MediaState)) error {
	return listenTo(ctx, m.cap, schema.KeyState, func(_ schema.CapabilityData, st schema.MediaState) {
		fn(st)
	})
}

// GetState fetches the retained playback state.
func (m *Media) GetState(ctx context.Context) (schema.MediaState, error) {
	return getFrom[schema.MediaState](ctx, m.cap, schema.KeyState)
}

// GetCapabilities fetches the retained supported-command set.
func (m *Media) GetCapabilities(ctx context.Context) (schema.MediaCapabilities, error) {
	return getFrom[schema.MediaCapabilities](ctx, m.cap, schema.KeyCapabilities)
}

// MediaAuthority adds state publishing to the media handle.
type MediaAuthority struct {
	Media
}

// PublishState publishes the retained playback state.
func (m *MediaAuthority) PublishState(ctx context.Context, st schema.MediaState) error {
	return m.cap.publishRaw(ctx, schema.KeyState, st, EntityData())
}

// PublishCapabilities publishes the retained supported-command set.
func (m *MediaAuthority) PublishCapabilities(ctx context.Context, caps schema.MediaCapabilities) error {
	return m.cap.publishRaw(ctx, schema.KeyCapabilities, caps, EntityData())
}
