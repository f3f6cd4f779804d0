package api

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// GameSession identifies one player's participation in one game.
type GameSession struct {
	GameID    string `json:"gameId"`
	SessionID string `json:"sessionId"`
}

// Game is the server-authoritative snapshot of a game. The client holds a
// read-only, possibly stale copy refreshed on page entry.
type Game struct {
	ID            string     `json:"id"`
	Multiplayer   bool       `json:"multiplayer"`
	Started       bool       `json:"started"`
	Finished      bool       `json:"finished"`
	QuestionIndex int        `json:"questionIndex"`
	CurrentScore  int        `json:"currentScore"`
	Questions     []Question `json:"questions"`
	Owner         bool       `json:"owner,omitempty"`
}

// Question is one trivia question as served to the client. The correct
// answer index stays server-side.
type Question struct {
	ID           string   `json:"id"`
	QuestionText string   `json:"questionText"`
	Options      []string `json:"options"`
}

// ScoreUpdate is one leaderboard row. Rows arrive unordered; display order
// is produced by sorting.
type ScoreUpdate struct {
	Name      string  `json:"name"`
	Score     FlexInt `json:"score"`
	SessionID string  `json:"sessionId"`
}

// AnswerResponse is the result of one answer submission.
type AnswerResponse struct {
	Correct           bool `json:"correct"`
	AlreadyAnswered   bool `json:"alreadyAnswered"`
	CurrentScore      int  `json:"currentScore"`
	NextQuestionIndex int  `json:"nextQuestionIndex"`
}

// EndGameResponse is the terminal game summary. Players is present only for
// multiplayer games and keeps updating over the socket until Finished.
type EndGameResponse struct {
	FinalScore  int           `json:"finalScore"`
	Multiplayer bool          `json:"multiplayer"`
	Finished    bool          `json:"finished"`
	Players     []ScoreUpdate `json:"players,omitempty"`
}

// StartGameRequest creates a new game.
type StartGameRequest struct {
	Name        string `json:"name"`
	Multiplayer bool   `json:"multiplayer"`
	Questions   int    `json:"questions"`
}

// JoinGameRequest joins an existing multiplayer game.
type JoinGameRequest struct {
	GameID string `json:"gameId"`
	Name   string `json:"name"`
}

// SubmitAnswerRequest submits one answer.
type SubmitAnswerRequest struct {
	GameID     string `json:"gameId"`
	SessionID  string `json:"sessionId"`
	QuestionID string `json:"questionId"`
	Answer     int    `json:"answer"`
}

// EndGameRequest closes out a game for one session.
type EndGameRequest struct {
	GameID    string `json:"gameId"`
	SessionID string `json:"sessionId"`
}

// FlexInt decodes a JSON number or a quoted number. The backend serializes
// scores and countdown seconds as strings on the socket path and as numbers
// over HTTP.
type FlexInt int

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexInt) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = 0
		return nil
	}
	n, err := strconv.Atoi(string(data))
	if err != nil {
		return err
	}
	*f = FlexInt(n)
	return nil
}

// MarshalJSON implements json.Marshaler, always emitting a number.
func (f FlexInt) MarshalJSON() ([]byte, error) {
	return json.Marshal(int(f))
}

// Int returns the plain integer value.
func (f FlexInt) Int() int { return int(f) }
