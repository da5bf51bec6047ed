package hass

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/darkwater/tanuki/internal/client"
	"github.com/darkwater/tanuki/internal/schema"
)

const provider = "tanuki-hass"

// defaultPacing is the self-throttle between consecutive mapped-entity
// initialisations, giving the broker room to settle retained messages
// during state replay and listener installation.
const defaultPacing = 50 * time.Millisecond

// Config configures one bridge run.
type Config struct {
	// MQTTAddr is the broker address as "host:port".
	MQTTAddr string

	// Host and Token authenticate against wss://{host}/api/websocket.
	Host  string
	Token string

	Mappings []MappedEntity

	// WillEntity, when set, names an entity representing the bridge
	// itself, with status tracked through the broker will.
	WillEntity schema.EntityID

	// Pacing overrides the replay self-throttle. Zero means the
	// default; negative disables it.
	Pacing time.Duration

	Logger *slog.Logger
}

type bridge struct {
	registry *client.Registry
	session  *Session
	mappings []MappedEntity
	pacing   time.Duration
	logger   *slog.Logger
}

// entityInit runs once per entity the registry creates on behalf of
// the bridge.
func (b *bridge) entityInit(ctx context.Context, e *client.OwnedEntity) error {
	return e.PublishMeta(ctx, schema.ProviderMeta(provider))
}

func (b *bridge) pace() {
	if b.pacing > 0 {
		time.Sleep(b.pacing)
	}
}

// Run drives the bridge until ctx is cancelled or a terminal error
// occurs: authenticate against Home Assistant, install outbound
// command listeners, subscribe to all events, replay current state,
// then propagate events as they arrive.
func Run(ctx context.Context, cfg Config) error {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	pacing := cfg.Pacing
	if pacing == 0 {
		pacing = defaultPacing
	}

	session, err := Dial(ctx, cfg.Host, cfg.Token, logger)
	if err != nil {
		return err
	}
	defer session.Close()

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

	errCh := make(chan error, 2)
	go func() { errCh <- conn.Handle() }()

	b := &bridge{
		registry: client.NewRegistry(conn),
		session:  session,
		mappings: cfg.Mappings,
		pacing:   pacing,
		logger:   logger,
	}

	if err := b.installListeners(ctx); err != nil {
		return err
	}

	if _, err := session.SubscribeEvents(); err != nil {
		return err
	}
	statesID, err := session.GetStates()
	if err != nil {
		return err
	}

	msgCh := make(chan *ServerMessage, 16)
	go func() {
		for {
			msg, err := session.Next()
			if err != nil {
				errCh <- err
				return
			}
			msgCh <- msg
		}
	}()

	for {
		select {
		case <-ctx.Done():
			if bridgeEntity != nil {
				shutdownCtx := context.WithoutCancel(ctx)
				if err := bridgeEntity.Disconnect(shutdownCtx); err != nil {
					logger.Warn("could not publish clean shutdown", "error", err)
				}
			}
			return ctx.Err()
		case err := <-errCh:
			return fmt.Errorf("hass bridge: %w", err)
		case msg := <-msgCh:
			if err := b.handleMessage(ctx, msg, statesID); err != nil {
				return err
			}
		}
	}
}

// installListeners wires every outbound service mapping, pacing
// between consecutive installations.
func (b *bridge) installListeners(ctx context.Context) error {
	for _, mapped := range b.mappings {
		for _, service := range mapped.ToHass {
			if err := service.Service.install(ctx, b, mapped.TanukiID, service.HassID); err != nil {
				return err
			}
			b.pace()
		}
	}
	return nil
}

func (b *bridge) handleMessage(ctx context.Context, msg *ServerMessage, statesID uint32) error {
	switch msg.Type {
	case "result":
		if !msg.Success {
			if msg.Error != nil {
				return fmt.Errorf("hass request failed: %w", msg.Error)
			}
			return &ProtocolError{Message: "success false with no error given"}
		}
		if msg.ID == statesID {
			return b.replayStates(ctx, msg.Result)
		}
		return nil

	case "event":
		if msg.Event == nil {
			return &ProtocolError{Message: "event frame without event payload"}
		}
		return b.handleEvent(ctx, msg.Event)
	}

	return nil
}

// replayStates seeds current state from the get_states result, pacing
// between propagated entries.
func (b *bridge) replayStates(ctx context.Context, result json.RawMessage) error {
	var states []StateEvent
	if err := json.Unmarshal(result, &states); err != nil {
		return &ProtocolError{Message: fmt.Sprintf("undecodable get_states result: %v", err)}
	}

	b.logger.Info("replaying initial states", "count", len(states))

	for _, state := range states {
		propagated, err := b.propagateState(ctx, state.EntityID, &state.State)
		if err != nil {
			return err
		}
		if propagated {
			b.pace()
		}
	}
	return nil
}

func (b *bridge) handleEvent(ctx context.Context, event *EventMessage) error {
	switch event.EventType {
	case "state_changed":
		var data StateChangedData
		if err := json.Unmarshal(event.Data, &data); err != nil {
			b.logger.Warn("undecodable state_changed event", "error", err)
			return nil
		}
		if data.NewState == nil {
			return nil
		}
		_, err := b.propagateState(ctx, data.EntityID, data.NewState)
		return err

	case "zha_event":
		var data ZhaEventData
		if err := json.Unmarshal(event.Data, &data); err != nil {
			b.logger.Warn("undecodable zha_event", "error", err)
			return nil
		}
		return b.propagateZha(ctx, &data)
	}

	return nil
}

// propagateState routes one HA state through every matching mapping.
// Reports whether anything was propagated.
func (b *bridge) propagateState(ctx context.Context, entityID string, st *State) (bool, error) {
	propagated := false
	for _, mapped := range b.mappings {
		for _, from := range mapped.FromStates {
			if from.FromID != entityID {
				continue
			}
			if err := from.MapTo.propagate(ctx, b, mapped.TanukiID, st); err != nil {
				return propagated, err
			}
			propagated = true
		}
	}
	return propagated, nil
}

// propagateZha matches the event against every translation table for
// its device; the first satisfying translation per mapping wins.
func (b *bridge) propagateZha(ctx context.Context, ev *ZhaEventData) error {
	for _, mapped := range b.mappings {
		for _, zha := range mapped.FromZha {
			if zha.DeviceIEEE != ev.DeviceIEEE {
				continue
			}
			for _, translation := range zha.Translations {
				if !translation.matches(ev) {
					continue
				}

				buttons, err := b.registry.Buttons(ctx, mapped.TanukiID, b.entityInit)
				if err != nil {
					return err
				}
				if err := buttons.PublishAction(ctx, translation.Button, translation.Action); err != nil {
					return err
				}
				break
			}
		}
	}
	return nil
}
