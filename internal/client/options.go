package client

// PublishOpts selects QoS and retention for a publish. Only the four
// presets below exist; no finer knob is exposed.
type PublishOpts struct {
	QoS    byte
	Retain bool
}

// Metadata is for $meta keys: retained at QoS 1.
func Metadata() PublishOpts { return PublishOpts{QoS: 1, Retain: true} }

// EntityData is for persistent entity state: retained at QoS 1.
func EntityData() PublishOpts { return PublishOpts{QoS: 1, Retain: true} }

// Event is for transient updates: QoS 2, not retained.
func Event() PublishOpts { return PublishOpts{QoS: 2} }

// Control is for commands: QoS 2, not retained.
func Control() PublishOpts { return PublishOpts{QoS: 2} }
