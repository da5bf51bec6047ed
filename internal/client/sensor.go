package client

import (
	"context"

	"github.com/darkwater/tanuki/internal/schema"
)

// Sensor is the user-role tanuki.sensor handle. Readings are keyed by
// measurement name (temperature, humidity, ...) rather than a fixed
// property key.
type Sensor struct {
	cap capability
}

// Listen subscribes to one measurement and invokes fn per reading.
func (s *Sensor) Listen(ctx context.Context, measurement string, fn func(schema.SensorPayload)) error {
	return listenTo(ctx, s.cap, measurement, func(_ schema.CapabilityData, p schema.SensorPayload) {
		fn(p)
	})
}

// ListenAll subscribes to every measurement of the entity and invokes
// fn with the measurement name per reading.
func (s *Sensor) ListenAll(ctx context.Context, fn func(measurement string, p schema.SensorPayload)) error {
	return listenTo(ctx, s.cap, "+", func(topic schema.CapabilityData, p schema.SensorPayload) {
		fn(topic.Rest, p)
	})
}

// Get fetches the retained reading of one measurement.
func (s *Sensor) Get(ctx context.Context, measurement string) (schema.SensorPayload, error) {
	return getFrom[schema.SensorPayload](ctx, s.cap, measurement)
}

// SensorAuthority adds publishing to the sensor handle.
type SensorAuthority struct {
	Sensor
}

// Publish publishes one reading, retained, under its measurement key.
func (s *SensorAuthority) Publish(ctx context.Context, measurement string, payload schema.SensorPayload) error {
	return s.cap.publishRaw(ctx, measurement, payload, EntityData())
}
