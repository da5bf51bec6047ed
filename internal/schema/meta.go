package schema

import (
	"encoding/json"
	"fmt"
)

// Reserved $meta keys.
const (
	MetaName     = "name"
	MetaType     = "type"
	MetaProvider = "provider"
	MetaStatus   = "status"
	MetaVersion  = "version"
)

// EntityStatus is the lifecycle state published under $meta/status.
type EntityStatus string

const (
	// StatusInit: the entity is online but its data may not yet be valid.
	StatusInit EntityStatus = "init"
	// StatusOnline: the entity is online and its data is valid.
	StatusOnline EntityStatus = "online"
	// StatusDisconnected: the entity disconnected cleanly.
	StatusDisconnected EntityStatus = "disconnected"
	// StatusLost: the entity was unexpectedly disconnected and its
	// data may not be valid. Delivered by the broker as a last will.
	StatusLost EntityStatus = "lost"
)

// UnmarshalJSON rejects status values outside the lifecycle set.
func (s *EntityStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch EntityStatus(raw) {
	case StatusInit, StatusOnline, StatusDisconnected, StatusLost:
		*s = EntityStatus(raw)
		return nil
	}
	return fmt.Errorf("unknown entity status %q", raw)
}

// MetaField is a $meta key together with its value. Values serialise
// transparently: the payload is the bare JSON value, not an object.
type MetaField struct {
	Key   string
	Value any
}

// NameMeta is the human-readable display name of an entity.
func NameMeta(name string) MetaField { return MetaField{Key: MetaName, Value: name} }

// TypeMeta describes what kind of device an entity is.
func TypeMeta(typ string) MetaField { return MetaField{Key: MetaType, Value: typ} }

// ProviderMeta names the bridge or program publishing the entity.
func ProviderMeta(provider string) MetaField { return MetaField{Key: MetaProvider, Value: provider} }

// StatusMeta is the entity lifecycle status.
func StatusMeta(status EntityStatus) MetaField { return MetaField{Key: MetaStatus, Value: status} }

// VersionMeta is the integer schema version of a capability.
func VersionMeta(version int) MetaField { return MetaField{Key: MetaVersion, Value: version} }
