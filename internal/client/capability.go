package client

import (
	"context"
	"encoding/json"

	"github.com/darkwater/tanuki/internal/schema"
)

// capability binds an entity handle to one capability namespace. The
// typed facades (Sensor, OnOff, ...) wrap it; role gating happens at
// the facade layer.
type capability struct {
	entity *Entity
	name   string
}

func newCapability(e *Entity, name string) capability {
	return capability{entity: e, name: name}
}

func (c capability) dataTopic(rest string) schema.CapabilityData {
	return schema.CapabilityData{
		Entity:     c.entity.id,
		Capability: c.name,
		Rest:       rest,
	}
}

// publishRaw publishes a payload under an arbitrary key below the
// capability. Sensor-style capabilities use this directly; fixed-key
// properties go through the typed facades.
func (c capability) publishRaw(ctx context.Context, rest string, payload any, opts PublishOpts) error {
	return c.entity.conn.Publish(ctx, c.dataTopic(rest), payload, opts)
}

func (c capability) publishMeta(ctx context.Context, meta schema.MetaField) error {
	topic := schema.CapabilityMeta{
		Entity:     c.entity.id,
		Capability: c.name,
		Key:        meta.Key,
	}
	return c.entity.conn.Publish(ctx, topic, meta.Value, Metadata())
}

func (c capability) command(ctx context.Context, key string, payload any) error {
	return c.publishRaw(ctx, key, payload, Control())
}

// subscribeData subscribes to one key (or the "+" wildcard) under the
// capability and adapts the raw handler to capability-data frames.
// Frames of other shapes are ignored without deregistering.
func (c capability) subscribeData(ctx context.Context, key string, h func(schema.CapabilityData, json.RawMessage) bool) (int, error) {
	filter := c.dataTopic(key)
	conn := c.entity.conn

	return conn.SubscribeWithHandler(ctx, filter, func(ev PublishEvent) bool {
		data, ok := ev.Topic.(schema.CapabilityData)
		if !ok {
			conn.logger.Warn("ignoring non-data frame on capability subscription",
				"topic", ev.Topic.String())
			return true
		}
		return h(data, ev.Payload)
	})
}

// listenTo subscribes to key and decodes each payload into T.
// Payloads that fail to decode are logged and dropped; the
// subscription stays live.
func listenTo[T any](ctx context.Context, c capability, key string, fn func(schema.CapabilityData, T)) error {
	conn := c.entity.conn
	_, err := c.subscribeData(ctx, key, func(topic schema.CapabilityData, payload json.RawMessage) bool {
		var v T
		if err := json.Unmarshal(payload, &v); err != nil {
			conn.logger.Warn("dropping undecodable payload",
				"topic", topic.String(), "error", err)
			return true
		}
		fn(topic, v)
		return true
	})
	return err
}

// getFrom is the one-shot variant of listenTo: it subscribes, waits
// for the first payload that decodes as T (typically the broker's
// retained replay), and deregisters by returning false from the
// handler.
//
// Must not be called from a handler on the same connection's
// dispatcher: the dispatcher would be blocked here and could never
// deliver the reply. Spawn a goroutine for that.
func getFrom[T any](ctx context.Context, c capability, key string) (T, error) {
	var zero T
	conn := c.entity.conn

	ch := make(chan T, 1)
	_, err := c.subscribeData(ctx, key, func(topic schema.CapabilityData, payload json.RawMessage) bool {
		var v T
		if err := json.Unmarshal(payload, &v); err != nil {
			conn.logger.Warn("dropping undecodable payload",
				"topic", topic.String(), "error", err)
			return true
		}
		select {
		case ch <- v:
		default:
		}
		return false
	})
	if err != nil {
		return zero, err
	}

	select {
	case v := <-ch:
		return v, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
