// Package client is the Tanuki MQTT v5 client runtime: a shared
// connection multiplexing concurrent publishes, per-subscription
// handler dispatch, and role-typed entity and capability handles over
// the tanuki/entities topic hierarchy.
//
// Wire framing is delegated to paho's packets codec; session logic —
// identifier allocation, QoS acknowledgment choreography, and handler
// dispatch — lives here.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"

	"github.com/eclipse/paho.golang/packets"

	"github.com/darkwater/tanuki/internal/schema"
)

// maxSubscriptionID is the MQTT v5 ceiling for subscription
// identifiers (a four-byte variable-length integer).
const maxSubscriptionID = 1<<28 - 1

// Handler is invoked by the dispatcher for each publish arriving on
// its subscription. Returning false deregisters the handler; the
// one-shot get pattern is built on that. Handlers run sequentially on
// the dispatcher goroutine and must offload long work.
type Handler func(PublishEvent) bool

// PublishEvent is one inbound PUBLISH after topic parsing.
type PublishEvent struct {
	// SubscriptionID is the subscription-identifier property of the
	// frame, or zero when the broker sent none.
	SubscriptionID int
	Topic          schema.Topic
	Payload        json.RawMessage
}

// Connection is a shared handle on one MQTT v5 session. It is safe
// for concurrent use; all methods may be called from any goroutine
// except Recv and Handle, which belong to a single reader.
type Connection struct {
	conn   net.Conn
	logger *slog.Logger

	writeMu  sync.Mutex
	packetID atomic.Uint32
	subID    atomic.Uint32

	handlersMu sync.Mutex
	handlers   map[int]Handler
}

type connectConfig struct {
	will   *willConfig
	logger *slog.Logger
}

type willConfig struct {
	topic   string
	payload []byte
}

// ConnectOption adjusts session establishment.
type ConnectOption func(*connectConfig)

// WithLogger sets the connection's logger. Defaults to slog.Default.
func WithLogger(logger *slog.Logger) ConnectOption {
	return func(c *connectConfig) { c.logger = logger }
}

// WithStatusWill registers a broker-side will that publishes
// status=lost for the given entity if the session drops without a
// clean disconnect. One will per connection; bridges set it for the
// entity whose liveness tracks the process.
func WithStatusWill(id schema.EntityID) ConnectOption {
	payload, _ := json.Marshal(schema.StatusLost)
	return func(c *connectConfig) {
		c.will = &willConfig{
			topic:   schema.EntityMeta{Entity: id, Key: schema.MetaStatus}.String(),
			payload: payload,
		}
	}
}

// Connect establishes an MQTT v5 session over TCP: dial, CONNECT,
// await CONNACK. The returned connection is shared by reference among
// entity handles and bridges for the life of the process.
func Connect(ctx context.Context, clientID, addr string, opts ...ConnectOption) (*Connection, error) {
	var cfg connectConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial mqtt broker %s: %w", addr, err)
	}

	c, err := connectOver(conn, clientID, cfg)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return c, nil
}

// connectOver runs the CONNECT/CONNACK handshake over an established
// stream. Split from Connect so tests can drive it over a pipe.
func connectOver(conn net.Conn, clientID string, cfg connectConfig) (*Connection, error) {
	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	c := &Connection{
		conn:     conn,
		logger:   logger,
		handlers: make(map[int]Handler),
	}

	connect := packets.NewControlPacket(packets.CONNECT)
	p := connect.Content.(*packets.Connect)
	p.ClientID = clientID
	p.CleanStart = true
	if cfg.will != nil {
		p.WillFlag = true
		p.WillTopic = cfg.will.topic
		p.WillMessage = cfg.will.payload
		p.WillQOS = 1
		p.WillRetain = true
		p.WillProperties = &packets.Properties{}
	}

	if _, err := connect.WriteTo(conn); err != nil {
		return nil, fmt.Errorf("send connect: %w", err)
	}

	recv, err := packets.ReadPacket(conn)
	if err != nil {
		return nil, fmt.Errorf("read connack: %w", err)
	}
	connack, ok := recv.Content.(*packets.Connack)
	if !ok {
		return nil, fmt.Errorf("expected connack, got packet type %d", recv.Type)
	}
	if connack.ReasonCode != 0 {
		return nil, fmt.Errorf("broker refused connection: reason code %d", connack.ReasonCode)
	}

	logger.Debug("mqtt session established", "client_id", clientID)
	return c, nil
}

// Close publishes nothing; it sends DISCONNECT and closes the stream.
// Entities that should read as cleanly gone must publish
// status=disconnected first (see OwnedEntity.Disconnect).
func (c *Connection) Close() error {
	disconnect := packets.NewControlPacket(packets.DISCONNECT)
	if err := c.write(disconnect); err != nil {
		c.conn.Close()
		return err
	}
	return c.conn.Close()
}

// nextPacketID allocates an outbound packet identifier: non-zero,
// monotonic modulo 2^16 with zero skipped on wrap.
func (c *Connection) nextPacketID() uint16 {
	for {
		if id := uint16(c.packetID.Add(1)); id != 0 {
			return id
		}
	}
}

// nextSubscriptionID allocates a subscription identifier: non-zero,
// at most 2^28-1. The counter is independent of the packet-id counter
// so subscription ids use the full v5 range.
func (c *Connection) nextSubscriptionID() int {
	for {
		if id := int(c.subID.Add(1) & maxSubscriptionID); id != 0 {
			return id
		}
	}
}

func (c *Connection) write(p *packets.ControlPacket) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if _, err := p.WriteTo(c.conn); err != nil {
		return fmt.Errorf("mqtt write: %w", err)
	}
	return nil
}

// Publish serialises payload as JSON and sends a PUBLISH with a
// freshly allocated packet id (for QoS > 0).
func (c *Connection) Publish(ctx context.Context, topic schema.Topic, payload any, opts PublishOpts) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload for %s: %w", topic, err)
	}

	pub := packets.NewControlPacket(packets.PUBLISH)
	p := pub.Content.(*packets.Publish)
	p.Topic = topic.String()
	p.Payload = data
	p.QoS = opts.QoS
	p.Retain = opts.Retain
	if opts.QoS > 0 {
		p.PacketID = c.nextPacketID()
	}

	c.logger.Debug("publishing",
		"topic", p.Topic, "qos", p.QoS, "retain", p.Retain, "payload", string(data))

	return c.write(pub)
}

// PublishEntityMeta publishes one $meta key for an entity, retained.
func (c *Connection) PublishEntityMeta(ctx context.Context, id schema.EntityID, meta schema.MetaField) error {
	return c.Publish(ctx, schema.EntityMeta{Entity: id, Key: meta.Key}, meta.Value, Metadata())
}

// Subscribe sends SUBSCRIBE for the filter and returns the allocated
// subscription identifier. Inbound frames matching the filter carry
// the id and surface through Recv.
func (c *Connection) Subscribe(ctx context.Context, filter schema.Topic) (int, error) {
	return c.subscribe(ctx, filter, nil)
}

// SubscribeWithHandler subscribes and registers handler for dispatch
// by Handle. The handler is registered before the SUBSCRIBE packet is
// written so no matching frame can slip past it.
func (c *Connection) SubscribeWithHandler(ctx context.Context, filter schema.Topic, handler Handler) (int, error) {
	return c.subscribe(ctx, filter, handler)
}

func (c *Connection) subscribe(ctx context.Context, filter schema.Topic, handler Handler) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	id := c.nextSubscriptionID()

	if handler != nil {
		c.handlersMu.Lock()
		c.handlers[id] = handler
		c.handlersMu.Unlock()
	}

	sub := packets.NewControlPacket(packets.SUBSCRIBE)
	p := sub.Content.(*packets.Subscribe)
	p.PacketID = c.nextPacketID()
	p.Properties = &packets.Properties{SubscriptionIdentifier: &id}
	p.Subscriptions = []packets.SubOptions{{Topic: filter.String(), QoS: 2}}

	if err := c.write(sub); err != nil {
		if handler != nil {
			c.handlersMu.Lock()
			delete(c.handlers, id)
			c.handlersMu.Unlock()
		}
		return 0, err
	}

	c.logger.Debug("subscribed", "filter", filter.String(), "subscription_id", id)
	return id, nil
}

// Recv blocks until the next inbound PUBLISH and returns it parsed.
// Acknowledgment traffic (puback/pubrec/pubrel/...) is answered
// inline and never surfaces. A frame on an unparseable topic returns
// a BadTopicError; a frame whose payload is not JSON is logged and
// skipped. Transport failures are terminal.
func (c *Connection) Recv() (PublishEvent, error) {
	for {
		recv, err := packets.ReadPacket(c.conn)
		if err != nil {
			return PublishEvent{}, fmt.Errorf("mqtt read: %w", err)
		}

		switch p := recv.Content.(type) {
		case *packets.Publish:
			if err := c.ackInbound(p); err != nil {
				return PublishEvent{}, err
			}

			topic, err := schema.ParseTopic(p.Topic)
			if err != nil {
				return PublishEvent{}, err
			}

			if !json.Valid(p.Payload) {
				c.logger.Warn("dropping publish with non-JSON payload", "topic", p.Topic)
				continue
			}

			ev := PublishEvent{Topic: topic, Payload: json.RawMessage(p.Payload)}
			if p.Properties != nil && p.Properties.SubscriptionIdentifier != nil {
				ev.SubscriptionID = *p.Properties.SubscriptionIdentifier
			}
			return ev, nil

		case *packets.Pubrec:
			// Outbound QoS 2, step two.
			rel := packets.NewControlPacket(packets.PUBREL)
			rel.Content.(*packets.Pubrel).PacketID = p.PacketID
			if err := c.write(rel); err != nil {
				return PublishEvent{}, err
			}

		case *packets.Pubrel:
			// Inbound QoS 2, final step.
			comp := packets.NewControlPacket(packets.PUBCOMP)
			comp.Content.(*packets.Pubcomp).PacketID = p.PacketID
			if err := c.write(comp); err != nil {
				return PublishEvent{}, err
			}

		case *packets.Puback, *packets.Pubcomp, *packets.Suback, *packets.Pingresp:
			c.logger.Debug("acknowledgment received", "packet_type", recv.Type)

		case *packets.Disconnect:
			return PublishEvent{}, fmt.Errorf("broker disconnected: reason code %d", p.ReasonCode)

		default:
			c.logger.Debug("ignoring unexpected packet", "packet_type", recv.Type)
		}
	}
}

func (c *Connection) ackInbound(p *packets.Publish) error {
	switch p.QoS {
	case 1:
		ack := packets.NewControlPacket(packets.PUBACK)
		ack.Content.(*packets.Puback).PacketID = p.PacketID
		return c.write(ack)
	case 2:
		rec := packets.NewControlPacket(packets.PUBREC)
		rec.Content.(*packets.Pubrec).PacketID = p.PacketID
		return c.write(rec)
	}
	return nil
}

// Handle runs the dispatcher loop: Recv, look up the handler for the
// frame's subscription id, invoke it, deregister it if it returned
// false. Frames on bad topics are logged and skipped; anything else
// that fails Recv is returned. Handle never returns nil.
func (c *Connection) Handle() error {
	for {
		ev, err := c.Recv()
		if err != nil {
			var bad *schema.BadTopicError
			if errors.As(err, &bad) {
				c.logger.Warn("dropping publish on bad topic", "error", err)
				continue
			}
			return err
		}
		c.dispatch(ev)
	}
}

// dispatch invokes the handler registered for the event's
// subscription id, if any. The handler map mutex is held only across
// lookup and removal, never across the handler call.
func (c *Connection) dispatch(ev PublishEvent) {
	if ev.SubscriptionID == 0 {
		return
	}

	c.handlersMu.Lock()
	handler, ok := c.handlers[ev.SubscriptionID]
	c.handlersMu.Unlock()
	if !ok {
		return
	}

	if !handler(ev) {
		c.handlersMu.Lock()
		delete(c.handlers, ev.SubscriptionID)
		c.handlersMu.Unlock()
	}
}
