package client

import (
	"context"
	"sync"

	"github.com/darkwater/tanuki/internal/schema"
)

// Entity is a user-role handle on one entity: it may command, listen,
// and get, but never publish state or meta. Handles are cheap and
// share the connection by reference.
type Entity struct {
	id   schema.EntityID
	conn *Connection
}

// Entity returns a user-role handle. No traffic is generated.
func (c *Connection) Entity(id schema.EntityID) *Entity {
	return &Entity{id: id, conn: c}
}

// ID returns the entity id.
func (e *Entity) ID() schema.EntityID { return e.id }

// Connection returns the shared connection.
func (e *Entity) Connection() *Connection { return e.conn }

// Sensor returns the user-role tanuki.sensor handle.
func (e *Entity) Sensor() *Sensor { return &Sensor{newCapability(e, schema.CapSensor)} }

// OnOff returns the user-role tanuki.on_off handle.
func (e *Entity) OnOff() *OnOff { return &OnOff{newCapability(e, schema.CapOnOff)} }

// Light returns the user-role tanuki.light handle.
func (e *Entity) Light() *Light { return &Light{newCapability(e, schema.CapLight)} }

// Buttons returns the user-role tanuki.buttons handle.
func (e *Entity) Buttons() *Buttons { return &Buttons{newCapability(e, schema.CapButtons)} }

// Media returns the user-role tanuki.media handle.
func (e *Entity) Media() *Media { return &Media{newCapability(e, schema.CapMedia)} }

// OwnedEntity is the authority-role handle: everything Entity does,
// plus publishing state, events, and meta. Obtaining one announces
// the entity by publishing status=online.
type OwnedEntity struct {
	*Entity

	mu          sync.Mutex
	initialized map[string]bool
}

// OwnedEntity creates an authority handle and publishes
// status=online for it.
func (c *Connection) OwnedEntity(ctx context.Context, id schema.EntityID) (*OwnedEntity, error) {
	e := &OwnedEntity{
		Entity:      &Entity{id: id, conn: c},
		initialized: make(map[string]bool),
	}
	if err := e.PublishMeta(ctx, schema.StatusMeta(schema.StatusOnline)); err != nil {
		return nil, err
	}
	return e, nil
}

// PublishMeta publishes one $meta key for the entity, retained.
func (e *OwnedEntity) PublishMeta(ctx context.Context, meta schema.MetaField) error {
	return e.conn.PublishEntityMeta(ctx, e.id, meta)
}

// Disconnect publishes status=disconnected, marking a clean shutdown.
// The connection's will, if configured, covers the unclean case.
func (e *OwnedEntity) Disconnect(ctx context.Context) error {
	return e.PublishMeta(ctx, schema.StatusMeta(schema.StatusDisconnected))
}

// Every capability is at schema version 0 so far; the version meta
// exists so payload shapes can evolve per capability later.
const capabilityVersion = 0

// initCapability returns the raw capability handle, publishing its
// version meta the first time the capability is touched through this
// entity handle. Later touches are silent.
func (e *OwnedEntity) initCapability(ctx context.Context, name string) (capability, error) {
	cap := newCapability(e.Entity, name)

	e.mu.Lock()
	done := e.initialized[name]
	if !done {
		e.initialized[name] = true
	}
	e.mu.Unlock()

	if !done {
		if err := cap.publishMeta(ctx, schema.VersionMeta(capabilityVersion)); err != nil {
			e.mu.Lock()
			delete(e.initialized, name)
			e.mu.Unlock()
			return capability{}, err
		}
	}

	return cap, nil
}

// Sensor returns the authority tanuki.sensor handle, publishing the
// capability version meta on first access.
func (e *OwnedEntity) Sensor(ctx context.Context) (*SensorAuthority, error) {
	cap, err := e.initCapability(ctx, schema.CapSensor)
	if err != nil {
		return nil, err
	}
	return &SensorAuthority{Sensor{cap}}, nil
}

// OnOff returns the authority tanuki.on_off handle.
func (e *OwnedEntity) OnOff(ctx context.Context) (*OnOffAuthority, error) {
	cap, err := e.initCapability(ctx, schema.CapOnOff)
	if err != nil {
		return nil, err
	}
	return &OnOffAuthority{OnOff{cap}}, nil
}

// Light returns the authority tanuki.light handle.
func (e *OwnedEntity) Light(ctx context.Context) (*LightAuthority, error) {
	cap, err := e.initCapability(ctx, schema.CapLight)
	if err != nil {
		return nil, err
	}
	return &LightAuthority{Light{cap}}, nil
}

// Buttons returns the authority tanuki.buttons handle.
func (e *OwnedEntity) Buttons(ctx context.Context) (*ButtonsAuthority, error) {
	cap, err := e.initCapability(ctx, schema.CapButtons)
	if err != nil {
		return nil, err
	}
	return &ButtonsAuthority{Buttons{cap}}, nil
}

// Media returns the authority tanuki.media handle.
func (e *OwnedEntity) Media(ctx context.Context) (*MediaAuthority, error) {
	cap, err := e.initCapability(ctx, schema.CapMedia)
	if err != nil {
		return nil, err
	}
	return &MediaAuthority{Media{cap}}, nil
}
