package game

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ProlificLabs/captrivia-cli/internal/api"
	"github.com/ProlificLabs/captrivia-cli/internal/socket"
)

// finishBackend serves the end-game endpoint.
type finishBackend struct {
	mu     sync.Mutex
	status int
	resp   api.EndGameResponse
}

func (b *finishBackend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/game/end", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.status != 0 {
			w.WriteHeader(b.status)
			json.NewEncoder(w).Encode(map[string]string{"error": "game does not exist"})
			return
		}
		json.NewEncoder(w).Encode(b.resp)
	})
	return mux
}

func newTestFinishController(f *fixture) *FinishController {
	return NewFinishController(FinishConfig{
		API:      f.API,
		Sessions: f.Sessions,
		Dialer:   f.Dialer,
		Logger:   zerolog.Nop(),
	})
}

func TestFinishSinglePlayer(t *testing.T) {
	backend := &finishBackend{resp: api.EndGameResponse{FinalScore: 30, Multiplayer: false}}
	f := newFixture(t, backend.handler())

	ctrl := newTestFinishController(f)
	defer ctrl.Close()

	phase, err := ctrl.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, FinishSinglePlayer, phase)
	assert.Equal(t, 30, ctrl.View().FinalScore)

	// The game is over: current is cleared but the history remains.
	_, ok := f.Sessions.Current()
	assert.False(t, ok)
	assert.Len(t, f.Sessions.Sessions(), 1)

	select {
	case <-ctrl.Done():
	default:
		t.Fatal("single-player finish should be done immediately")
	}
}

func TestFinishErrorSurfacesMessage(t *testing.T) {
	backend := &finishBackend{status: http.StatusNotFound}
	f := newFixture(t, backend.handler())

	ctrl := newTestFinishController(f)
	defer ctrl.Close()

	phase, err := ctrl.Load(context.Background())
	require.Error(t, err)
	assert.Equal(t, FinishError, phase)
	assert.Equal(t, "game does not exist", ctrl.View().ErrMessage)

	// An end-game failure does not evict the session.
	_, ok := f.Sessions.Current()
	assert.True(t, ok)
}

func TestFinishMultiplayerAlreadyFinished(t *testing.T) {
	backend := &finishBackend{resp: api.EndGameResponse{
		FinalScore:  40,
		Multiplayer: true,
		Finished:    true,
		Players: []api.ScoreUpdate{
			{Name: "a", Score: 40, SessionID: "s1"},
			{Name: "b", Score: 50, SessionID: "s2"},
		},
	}}
	f := newFixture(t, backend.handler())

	ctrl := newTestFinishController(f)
	defer ctrl.Close()

	phase, err := ctrl.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, FinishDone, phase)

	v := ctrl.View()
	require.Len(t, v.Standings, 2)
	assert.Equal(t, "b", v.Standings[0].Name)

	select {
	case <-f.wsConns:
		t.Fatal("socket dialed for an already finished game")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestFinishMultiplayerWaitsForGameFinished(t *testing.T) {
	backend := &finishBackend{resp: api.EndGameResponse{
		FinalScore:  10,
		Multiplayer: true,
		Finished:    false,
		Players:     []api.ScoreUpdate{{Name: "a", Score: 10, SessionID: "s1"}},
	}}
	f := newFixture(t, backend.handler())

	ctrl := newTestFinishController(f)
	defer ctrl.Close()

	phase, err := ctrl.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, FinishWaiting, phase)

	server := f.serverConn()

	// Interim updates replace the displayed leaderboard, last write wins.
	f.push(server, socket.EventScoreUpdate, `[{"name":"a","score":"10","sessionId":"s1"},{"name":"b","score":"25","sessionId":"s2"}]`)
	require.Eventually(t, func() bool {
		return len(ctrl.View().Standings) == 2
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "b", ctrl.View().Standings[0].Name)

	// The duplicate gameFinished must not panic or re-open anything; the
	// channel closes exactly once.
	f.push(server, socket.EventGameFinished, `[{"name":"a","score":"30","sessionId":"s1"},{"name":"b","score":"25","sessionId":"s2"}]`)
	f.push(server, socket.EventGameFinished, `[{"name":"a","score":"30","sessionId":"s1"},{"name":"b","score":"25","sessionId":"s2"}]`)

	select {
	case <-ctrl.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("finish controller never completed")
	}

	v := ctrl.View()
	assert.Equal(t, FinishDone, v.Phase)
	require.Len(t, v.Standings, 2)
	assert.Equal(t, "a", v.Standings[0].Name)
	assert.Equal(t, 30, v.Standings[0].Score.Int())

	// Completed game: current session cleared, history intact.
	_, ok := f.Sessions.Current()
	assert.False(t, ok)
	assert.Len(t, f.Sessions.Sessions(), 1)
}

func TestFinishDisconnectWhileWaitingUnblocksDone(t *testing.T) {
	backend := &finishBackend{resp: api.EndGameResponse{
		FinalScore:  10,
		Multiplayer: true,
		Finished:    false,
		Players:     []api.ScoreUpdate{{Name: "a", Score: 10, SessionID: "s1"}},
	}}
	f := newFixture(t, backend.handler())

	ctrl := newTestFinishController(f)
	defer ctrl.Close()

	phase, err := ctrl.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, FinishWaiting, phase)

	server := f.serverConn()
	require.NoError(t, server.Close())

	// gameFinished can never arrive now; the waiter must be released.
	select {
	case <-ctrl.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("waiters stayed blocked after the socket dropped")
	}

	v := ctrl.View()
	assert.Equal(t, FinishError, v.Phase)
	assert.NotEmpty(t, v.ErrMessage)

	// No final result was seen, so the session stays resumable.
	_, ok := f.Sessions.Current()
	assert.True(t, ok)
}

func TestFinishDialFailureWhileWaitingIsTerminal(t *testing.T) {
	backend := &finishBackend{resp: api.EndGameResponse{
		Multiplayer: true,
		Finished:    false,
		Players:     []api.ScoreUpdate{{Name: "a", Score: 10, SessionID: "s1"}},
	}}
	f := newFixture(t, backend.handler())

	// Nothing listens here, so the dial fails outright.
	ctrl := NewFinishController(FinishConfig{
		API:      f.API,
		Sessions: f.Sessions,
		Dialer:   socket.NewDialer("ws://127.0.0.1:1", zerolog.Nop(), nil),
		Logger:   zerolog.Nop(),
	})
	defer ctrl.Close()

	phase, err := ctrl.Load(context.Background())
	require.Error(t, err)
	assert.Equal(t, FinishError, phase)

	select {
	case <-ctrl.Done():
	default:
		t.Fatal("waiters stayed blocked after the dial failed")
	}
}

func TestFinishLateScoreUpdateIgnoredAfterDone(t *testing.T) {
	backend := &finishBackend{resp: api.EndGameResponse{
		Multiplayer: true,
		Players:     []api.ScoreUpdate{{Name: "a", Score: 10, SessionID: "s1"}},
	}}
	f := newFixture(t, backend.handler())

	ctrl := newTestFinishController(f)
	defer ctrl.Close()

	_, err := ctrl.Load(context.Background())
	require.NoError(t, err)
	server := f.serverConn()

	f.push(server, socket.EventGameFinished, `[{"name":"a","score":"99","sessionId":"s1"}]`)
	<-ctrl.Done()

	v := ctrl.View()
	require.Len(t, v.Standings, 1)
	assert.Equal(t, 99, v.Standings[0].Score.Int())
}
