package socket

import (
	"encoding/json"
	"fmt"

	"github.com/ProlificLabs/captrivia-cli/internal/api"
)

// EventType names the events carried over the game socket. The set is
// closed: every inbound frame decodes to one of the Event structs below or
// is reported as an ErrorEvent.
type EventType string

const (
	EventConnect            EventType = "connect"
	EventDisconnect         EventType = "disconnect"
	EventError              EventType = "error"
	EventAllPlayers         EventType = "allPlayers"
	EventPlayerJoined       EventType = "playerJoined"
	EventScoreUpdate        EventType = "scoreUpdate"
	EventStartGame          EventType = "startGame"
	EventStartGameCountdown EventType = "startGameCountdown"
	EventGameFinished       EventType = "gameFinished"
)

// Envelope is the wire structure in both directions. Content is itself JSON
// text: the envelope is transport-level, the content application-level.
type Envelope struct {
	Type    string `json:"type"`
	ID      string `json:"id,omitempty"`
	Content string `json:"content"`
}

// Event is one typed occurrence delivered by the socket.
type Event interface {
	Type() EventType
}

// ConnectEvent fires once when the connection is established.
type ConnectEvent struct{}

func (ConnectEvent) Type() EventType { return EventConnect }

// DisconnectEvent fires once when the connection ends, regardless of cause.
type DisconnectEvent struct{}

func (DisconnectEvent) Type() EventType { return EventDisconnect }

// ErrorEvent reports a frame that could not be decoded. It never stops the
// receive loop.
type ErrorEvent struct {
	Err error
}

func (ErrorEvent) Type() EventType { return EventError }

// AllPlayersEvent replaces the full roster.
type AllPlayersEvent struct {
	Players []api.ScoreUpdate
}

func (AllPlayersEvent) Type() EventType { return EventAllPlayers }

// PlayerJoinedEvent announces a single new participant.
type PlayerJoinedEvent struct {
	Name      string `json:"name"`
	SessionID string `json:"sessionId"`
}

func (PlayerJoinedEvent) Type() EventType { return EventPlayerJoined }

// ScoreUpdateEvent carries the latest leaderboard rows, unordered.
type ScoreUpdateEvent struct {
	Scores []api.ScoreUpdate
}

func (ScoreUpdateEvent) Type() EventType { return EventScoreUpdate }

// StartGameEvent signals that the multiplayer game is underway.
type StartGameEvent struct{}

func (StartGameEvent) Type() EventType { return EventStartGame }

// CountdownEvent reports seconds remaining before a multiplayer start.
type CountdownEvent struct {
	SecondsLeft int
}

func (CountdownEvent) Type() EventType { return EventStartGameCountdown }

// GameFinishedEvent carries the final standings.
type GameFinishedEvent struct {
	Standings []api.ScoreUpdate
}

func (GameFinishedEvent) Type() EventType { return EventGameFinished }

// decodeEvent turns a raw inbound frame into a typed Event.
func decodeEvent(raw []byte) (Event, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}

	content := []byte(env.Content)
	if len(content) == 0 {
		content = []byte("{}")
	}

	switch EventType(env.Type) {
	case EventAllPlayers:
		var players []api.ScoreUpdate
		if err := json.Unmarshal(content, &players); err != nil {
			return nil, fmt.Errorf("decode allPlayers content: %w", err)
		}
		return AllPlayersEvent{Players: players}, nil

	case EventPlayerJoined:
		var ev PlayerJoinedEvent
		if err := json.Unmarshal(content, &ev); err != nil {
			return nil, fmt.Errorf("decode playerJoined content: %w", err)
		}
		return ev, nil

	case EventScoreUpdate:
		var scores []api.ScoreUpdate
		if err := json.Unmarshal(content, &scores); err != nil {
			return nil, fmt.Errorf("decode scoreUpdate content: %w", err)
		}
		return ScoreUpdateEvent{Scores: scores}, nil

	case EventStartGame:
		return StartGameEvent{}, nil

	case EventStartGameCountdown:
		var payload struct {
			SecondsLeft api.FlexInt `json:"secondsLeft"`
		}
		if err := json.Unmarshal(content, &payload); err != nil {
			return nil, fmt.Errorf("decode countdown content: %w", err)
		}
		return CountdownEvent{SecondsLeft: payload.SecondsLeft.Int()}, nil

	case EventGameFinished:
		var standings []api.ScoreUpdate
		if err := json.Unmarshal(content, &standings); err != nil {
			return nil, fmt.Errorf("decode gameFinished content: %w", err)
		}
		return GameFinishedEvent{Standings: standings}, nil

	default:
		return nil, fmt.Errorf("unknown event type %q", env.Type)
	}
}
