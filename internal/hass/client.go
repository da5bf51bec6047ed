package hass

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
)

// ProtocolError reports a Home Assistant frame that does not fit the
// expected exchange. Terminal for the session.
type ProtocolError struct {
	Message string
}

func (e *ProtocolError) Error() string {
	return "hass protocol error: " + e.Message
}

// AuthError reports a rejected access token, carrying the server's
// message.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string {
	return "hass authentication failed: " + e.Message
}

// Session is an authenticated Home Assistant WebSocket connection.
// Outbound messages may be sent from any goroutine; Next belongs to a
// single reader.
type Session struct {
	conn   *websocket.Conn
	logger *slog.Logger

	writeMu  sync.Mutex
	packetID atomic.Uint32
}

// Dial opens wss://{host}/api/websocket and runs the auth handshake:
// expect auth_required, send the access token, expect auth_ok. A
// rejected token returns an AuthError.
func Dial(ctx context.Context, host, token string, logger *slog.Logger) (*Session, error) {
	return dial(ctx, "wss://"+host+"/api/websocket", token, logger)
}

// dial is Dial against an explicit URL; tests point it at a plain ws
// endpoint.
func dial(ctx context.Context, url, token string, logger *slog.Logger) (*Session, error) {
	if logger == nil {
		logger = slog.Default()
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}

	s := &Session{conn: conn, logger: logger}
	if err := s.authenticate(token); err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

func (s *Session) authenticate(token string) error {
	var required authMessage
	if err := s.conn.ReadJSON(&required); err != nil {
		return fmt.Errorf("read auth_required: %w", err)
	}
	if required.Type != typeAuthRequired {
		return &ProtocolError{Message: fmt.Sprintf("expected auth_required, got %q", required.Type)}
	}
	s.logger.Info("connected to home assistant", "ha_version", required.HAVersion)

	if err := s.conn.WriteJSON(authMessage{Type: typeAuth, AccessToken: token}); err != nil {
		return fmt.Errorf("send auth: %w", err)
	}

	var outcome authMessage
	if err := s.conn.ReadJSON(&outcome); err != nil {
		return fmt.Errorf("read auth outcome: %w", err)
	}
	switch outcome.Type {
	case typeAuthOK:
		s.logger.Info("home assistant authentication successful")
		return nil
	case typeAuthInvalid:
		return &AuthError{Message: outcome.Message}
	default:
		return &ProtocolError{Message: fmt.Sprintf("expected auth outcome, got %q", outcome.Type)}
	}
}

// Close closes the WebSocket.
func (s *Session) Close() error {
	return s.conn.Close()
}

// nextID allocates a session packet id: monotonically increasing,
// never zero. Distinct from the MQTT side's counters.
func (s *Session) nextID() uint32 {
	for {
		if id := s.packetID.Add(1); id != 0 {
			return id
		}
	}
}

func (s *Session) send(msg any) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("hass send: %w", err)
	}
	return nil
}

// SubscribeEvents subscribes to all event types and returns the
// packet id of the request.
func (s *Session) SubscribeEvents() (uint32, error) {
	id := s.nextID()
	return id, s.send(subscribeEventsMessage{ID: id, Type: "subscribe_events"})
}

// GetStates requests a snapshot of every entity state. The result
// arrives on the returned packet id.
func (s *Session) GetStates() (uint32, error) {
	id := s.nextID()
	return id, s.send(getStatesMessage{ID: id, Type: "get_states"})
}

// CallService invokes a Home Assistant service on one entity.
// serviceData may be nil.
func (s *Session) CallService(domain, service string, serviceData map[string]any, entityID string) error {
	return s.send(callServiceMessage{
		ID:          s.nextID(),
		Type:        "call_service",
		Domain:      domain,
		Service:     service,
		ServiceData: serviceData,
		Target:      serviceTarget{EntityID: entityID},
	})
}

// Next blocks until the next session frame. Transport failures are
// terminal.
func (s *Session) Next() (*ServerMessage, error) {
	for {
		var msg ServerMessage
		if err := s.conn.ReadJSON(&msg); err != nil {
			return nil, fmt.Errorf("hass read: %w", err)
		}

		switch msg.Type {
		case "result", "event":
			return &msg, nil
		case "pong":
			// keepalive, ignore
		default:
			s.logger.Debug("ignoring unhandled hass message", "type", msg.Type)
		}
	}
}
