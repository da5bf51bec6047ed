package client

import (
	"context"
	"sync"

	"github.com/darkwater/tanuki/internal/schema"
)

// EntityInitFunc runs exactly once per entity the first time the
// registry creates it. Bridges use it to publish provider, type, and
// name meta.
type EntityInitFunc func(ctx context.Context, e *OwnedEntity) error

// Registry caches authority capability handles keyed by entity id and
// capability type, so bridge programs can resolve handles on every
// update without re-announcing entities or republishing version meta.
type Registry struct {
	conn *Connection

	// mu serialises first-time initialisation; cache hits take it
	// only briefly.
	mu       sync.Mutex
	entities map[schema.EntityID]*OwnedEntity
	sensors  map[schema.EntityID]*SensorAuthority
	onOffs   map[schema.EntityID]*OnOffAuthority
	lights   map[schema.EntityID]*LightAuthority
	buttons  map[schema.EntityID]*ButtonsAuthority
	medias   map[schema.EntityID]*MediaAuthority
}

// NewRegistry creates an empty registry over the connection.
func NewRegistry(conn *Connection) *Registry {
	return &Registry{
		conn:     conn,
		entities: make(map[schema.EntityID]*OwnedEntity),
		sensors:  make(map[schema.EntityID]*SensorAuthority),
		onOffs:   make(map[schema.EntityID]*OnOffAuthority),
		lights:   make(map[schema.EntityID]*LightAuthority),
		buttons:  make(map[schema.EntityID]*ButtonsAuthority),
		medias:   make(map[schema.EntityID]*MediaAuthority),
	}
}

// entity returns the cached owned entity, creating and initialising
// it on first sight. init is invoked at most once per entity id.
// Callers hold r.mu.
func (r *Registry) entity(ctx context.Context, id schema.EntityID, init EntityInitFunc) (*OwnedEntity, error) {
	if e, ok := r.entities[id]; ok {
		return e, nil
	}

	e, err := r.conn.OwnedEntity(ctx, id)
	if err != nil {
		return nil, err
	}
	if init != nil {
		if err := init(ctx, e); err != nil {
			return nil, err
		}
	}

	r.entities[id] = e
	return e, nil
}

// registryGet resolves one capability handle through the cache. The
// generic parameter keeps one map per capability type, so no
// type-erased downcasts are needed.
func registryGet[T any](
	ctx context.Context,
	r *Registry,
	cache map[schema.EntityID]*T,
	id schema.EntityID,
	init EntityInitFunc,
	instantiate func(context.Context, *OwnedEntity) (*T, error),
) (*T, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if handle, ok := cache[id]; ok {
		return handle, nil
	}

	e, err := r.entity(ctx, id, init)
	if err != nil {
		return nil, err
	}

	handle, err := instantiate(ctx, e)
	if err != nil {
		return nil, err
	}
	cache[id] = handle
	return handle, nil
}

// Sensor resolves the authority sensor handle for id.
func (r *Registry) Sensor(ctx context.Context, id schema.EntityID, init EntityInitFunc) (*SensorAuthority, error) {
	return registryGet(ctx, r, r.sensors, id, init,
		func(ctx context.Context, e *OwnedEntity) (*SensorAuthority, error) { return e.Sensor(ctx) })
}

// OnOff resolves the authority on/off handle for id.
func (r *Registry) OnOff(ctx context.Context, id schema.EntityID, init EntityInitFunc) (*OnOffAuthority, error) {
	return registryGet(ctx, r, r.onOffs, id, init,
		func(ctx context.Context, e *OwnedEntity) (*OnOffAuthority, error) { return e.OnOff(ctx) })
}

// Light resolves the authority light handle for id.
func (r *Registry) Light(ctx context.Context, id schema.EntityID, init EntityInitFunc) (*LightAuthority, error) {
	return registryGet(ctx, r, r.lights, id, init,
		func(ctx context.Context, e *OwnedEntity) (*LightAuthority, error) { return e.Light(ctx) })
}

// Buttons resolves the authority buttons handle for id.
func (r *Registry) Buttons(ctx context.Context, id schema.EntityID, init EntityInitFunc) (*ButtonsAuthority, error) {
	return registryGet(ctx, r, r.buttons, id, init,
		func(ctx context.Context, e *OwnedEntity) (*ButtonsAuthority, error) { return e.Buttons(ctx) })
}

// Media resolves the authority media handle for id.
func (r *Registry) Media(ctx context.Context, id schema.EntityID, init EntityInitFunc) (*MediaAuthority, error) {
	return registryGet(ctx, r, r.medias, id, init,
		func(ctx context.Context, e *OwnedEntity) (*MediaAuthority, error) { return e.Media(ctx) })
}
