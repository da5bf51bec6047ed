package bthome

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"github.com/google/uuid"

	"github.com/darkwater/tanuki/internal/client"
	"github.com/darkwater/tanuki/internal/schema"
)

// DeviceMap assigns a Tanuki entity id and display name to a BLE
// peripheral, matched by local name or address. Unmapped peripherals
// fall back to the snake-cased local name.
type DeviceMap struct {
	Match string
	ID    schema.EntityID
	Name  string
}

// Config configures one bridge run.
type Config struct {
	// MQTTAddr is the broker address as "host:port".
	MQTTAddr string

	// Devices maps peripherals to entity ids.
	Devices []DeviceMap

	// WillEntity, when set, names an entity representing the bridge
	// itself: status=online is published at start, status=lost is
	// wired as the broker will, and status=disconnected is published
	// on clean shutdown.
	WillEntity schema.EntityID

	// Scanner overrides the platform BLE scanner. Nil uses NewScanner.
	Scanner Scanner

	Logger *slog.Logger
}

const provider = "tanuki-bthome"

// Run drives the bridge until ctx is cancelled or a terminal error
// occurs: connect to the broker, scan for BTHome advertisements, and
// publish each decoded reading through the sensor capability.
func Run(ctx context.Context, cfg Config) error {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	opts := []client.ConnectOption{client.WithLogger(logger)}
	if cfg.WillEntity != "" {
		opts = append(opts, client.WithStatusWill(cfg.WillEntity))
	}

	// Suffix the client id so two bridge instances cannot take over
	// each other's broker session.
	clientID := provider + "-" + uuid.NewString()[:8]
	conn, err := client.Connect(ctx, clientID, cfg.MQTTAddr, opts...)
	if err != nil {
		return err
	}
	defer conn.Close()

	var bridgeEntity *client.OwnedEntity
	if cfg.WillEntity != "" {
		bridgeEntity, err = conn.OwnedEntity(ctx, cfg.WillEntity)
		if err != nil {
			return err
		}
		if err := bridgeEntity.PublishMeta(ctx, schema.ProviderMeta(provider)); err != nil {
			return err
		}
	}

	scanner := cfg.Scanner
	if scanner == nil {
		scanner = NewScanner(logger)
	}

	errCh := make(chan error, 2)
	go func() { errCh <- conn.Handle() }()

	updates := make(chan Update, 64)
	go func() { errCh <- scanner.Scan(ctx, updates) }()

	b := &bridge{
		registry: client.NewRegistry(conn),
		devices:  cfg.Devices,
		seen:     make(map[string]bool),
		logger:   logger,
	}

	for {
		select {
		case <-ctx.Done():
			if bridgeEntity != nil {
				// Best effort; the transport may already be gone.
				shutdownCtx := context.WithoutCancel(ctx)
				if err := bridgeEntity.Disconnect(shutdownCtx); err != nil {
					logger.Warn("could not publish clean shutdown", "error", err)
				}
			}
			return ctx.Err()
		case err := <-errCh:
			return fmt.Errorf("bthome bridge: %w", err)
		case update := <-updates:
			if err := b.handleUpdate(ctx, update); err != nil {
				return err
			}
		}
	}
}

type bridge struct {
	registry *client.Registry
	devices  []DeviceMap
	seen     map[string]bool
	logger   *slog.Logger
}

func (b *bridge) handleUpdate(ctx context.Context, update Update) error {
	id, name := b.resolve(update)

	if !b.seen[update.Address] {
		b.seen[update.Address] = true
		b.logger.Info("registering new device",
			"name", update.Name, "address", update.Address, "entity", id)
	}

	sensor, err := b.registry.Sensor(ctx, id, func(ctx context.Context, e *client.OwnedEntity) error {
		if err := e.PublishMeta(ctx, schema.NameMeta(name)); err != nil {
			return err
		}
		if err := e.PublishMeta(ctx, schema.TypeMeta("BTHome Sensor")); err != nil {
			return err
		}
		return e.PublishMeta(ctx, schema.ProviderMeta(provider))
	})
	if err != nil {
		return err
	}

	for _, object := range update.Objects {
		err := sensor.Publish(ctx, object.Topic(), schema.SensorPayload{
			Value:     object.Value,
			Unit:      object.Unit(),
			Timestamp: update.Timestamp,
		})
		if err != nil {
			return err
		}
	}

	return nil
}

// resolve picks the entity id and display name for a peripheral:
// mapped by local name, then by address, else derived from the name.
func (b *bridge) resolve(update Update) (schema.EntityID, string) {
	for _, d := range b.devices {
		if d.Match == update.Name || d.Match == update.Address {
			return d.ID, d.Name
		}
	}
	return schema.EntityID(snakeCase(update.Name)), update.Name
}

// snakeCase lowercases a device name into an entity id: separators
// become underscores and case transitions get one inserted.
func snakeCase(s string) string {
	var out strings.Builder
	prevLower := false
	for _, r := range s {
		switch {
		case unicode.IsUpper(r):
			if prevLower {
				out.WriteByte('_')
			}
			out.WriteRune(unicode.ToLower(r))
			prevLower = false
		case r == ' ' || r == '-' || r == '_':
			out.WriteByte('_')
			prevLower = false
		default:
			out.WriteRune(r)
			prevLower = unicode.IsLower(r)
		}
	}
	return out.String()
}
