package client

import (
	"context"

	"github.com/darkwater/tanuki/internal/schema"
)

// Buttons is the user-role tanuki.buttons handle. Each topic under
// the capability names a physical button and carries press events.
type Buttons struct {
	cap capability
}

// Listen subscribes to every button of the entity and invokes fn with
// the button name and action per event.
func (b *Buttons) Listen(ctx context.Context, fn func(button schema.ButtonName, action schema.ButtonAction)) error {
	return listenTo(ctx, b.cap, "+", func(topic schema.CapabilityData, action schema.ButtonAction) {
		fn(schema.ButtonName(topic.Rest), action)
	})
}

// ButtonsAuthority adds event publishing to the buttons handle.
type ButtonsAuthority struct {
	Buttons
}

// PublishAction publishes one press event, non-retained.
func (b *ButtonsAuthority) PublishAction(ctx context.Context, button schema.ButtonName, action schema.ButtonAction) error {
	return b.cap.publishRaw(ctx, string(button), action, Event())
}
