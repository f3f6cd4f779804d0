package socket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/ProlificLabs/captrivia-cli/internal/metrics"
)

// Handler consumes one event. Handlers for an event type run sequentially
// on the receive goroutine, in registration order.
type Handler func(Event)

// Subscription identifies one registered handler so it can be removed.
type Subscription struct {
	event EventType
	id    uint64
}

// Dialer opens game-scoped sockets against one WebSocket origin.
type Dialer struct {
	base    string
	logger  zerolog.Logger
	metrics *metrics.Metrics
}

// NewDialer builds a Dialer for the given ws(s) origin.
func NewDialer(socketBase string, logger zerolog.Logger, m *metrics.Metrics) *Dialer {
	return &Dialer{
		base:    socketBase,
		logger:  logger.With().Str("component", "socket").Logger(),
		metrics: m,
	}
}

// Dial opens the socket for one game at /game/{gameId}/ws. The returned
// socket is connected but silent until Listen is called, so the caller can
// register handlers without racing the first events.
func (d *Dialer) Dial(ctx context.Context, gameID string) (*Socket, error) {
	endpoint := fmt.Sprintf("%s/game/%s/ws", d.base, url.PathEscape(gameID))

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("dial game socket: %w", err)
	}

	return &Socket{
		conn:     conn,
		logger:   d.logger.With().Str("game_id", gameID).Logger(),
		metrics:  d.metrics,
		handlers: make(map[EventType][]handlerEntry),
	}, nil
}

type handlerEntry struct {
	id uint64
	fn Handler
}

// Socket is a typed publish/subscribe interface over one game connection.
type Socket struct {
	conn    *websocket.Conn
	logger  zerolog.Logger
	metrics *metrics.Metrics

	mu       sync.Mutex
	handlers map[EventType][]handlerEntry
	nextID   uint64
	closed   bool

	listenOnce sync.Once
	writeMu    sync.Mutex
}

// On registers a handler for an event type. Multiple handlers per type are
// allowed and fire in registration order.
func (s *Socket) On(event EventType, fn Handler) Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	s.handlers[event] = append(s.handlers[event], handlerEntry{id: s.nextID, fn: fn})
	return Subscription{event: event, id: s.nextID}
}

// Off removes a previously registered handler.
func (s *Socket) Off(sub Subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.handlers[sub.event]
	for i, e := range entries {
		if e.id == sub.id {
			s.handlers[sub.event] = append(entries[:i], entries[i+1:]...)
			return
		}
	}
}

// Listen starts the receive loop on its own goroutine. A connect event is
// delivered first; a disconnect event is delivered when the loop ends.
// Calling Listen more than once is a no-op.
func (s *Socket) Listen() {
	s.listenOnce.Do(func() {
		go s.readPump()
	})
}

// Emit serializes the payload into the envelope's content and sends it. The
// payload is JSON-encoded separately from the envelope on purpose: content
// stays application-level text inside the transport-level frame.
func (s *Socket) Emit(event EventType, id string, payload any) error {
	content, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	env := Envelope{Type: string(event), ID: id, Content: string(content)}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.conn.WriteJSON(env); err != nil {
		return fmt.Errorf("send %s: %w", event, err)
	}
	return nil
}

// Close releases the connection. Safe to call multiple times.
func (s *Socket) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.conn.Close()
}

// readPump decodes frames and dispatches events until the connection ends.
// A frame that fails to decode becomes an error event and the loop keeps
// going; a malformed frame must never take the page down with it.
func (s *Socket) readPump() {
	s.dispatch(ConnectEvent{})

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn().Err(err).Msg("socket read error")
			}
			break
		}

		event, err := decodeEvent(raw)
		if err != nil {
			s.logger.Warn().Err(err).Msg("discarding malformed frame")
			if s.metrics != nil {
				s.metrics.SocketDecodeErrors.Inc()
			}
			s.dispatch(ErrorEvent{Err: err})
			continue
		}

		s.dispatch(event)
	}

	s.dispatch(DisconnectEvent{})
}

// dispatch runs all handlers registered for the event's type, in order.
func (s *Socket) dispatch(event Event) {
	if s.metrics != nil {
		s.metrics.SocketEvents.WithLabelValues(string(event.Type())).Inc()
	}

	s.mu.Lock()
	entries := make([]handlerEntry, len(s.handlers[event.Type()]))
	copy(entries, s.handlers[event.Type()])
	s.mu.Unlock()

	for _, e := range entries {
		e.fn(event)
	}
}
