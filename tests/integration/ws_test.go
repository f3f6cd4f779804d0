//go:build integration
// +build integration

package integration

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ProlificLabs/captrivia-cli/internal/api"
	"github.com/ProlificLabs/captrivia-cli/internal/socket"
)

func TestMultiplayerJoinAndStart(t *testing.T) {
	client := newAPIClient(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	owner, err := client.StartGame(ctx, api.StartGameRequest{
		Name:        "integration-owner",
		Multiplayer: true,
		Questions:   3,
	})
	if err != nil {
		t.Fatalf("start multiplayer game: %v", err)
	}

	ownerSock, err := newDialer().Dial(ctx, owner.GameID)
	if err != nil {
		t.Fatalf("dial owner socket: %v", err)
	}
	defer ownerSock.Close()

	var mu sync.Mutex
	var joinedName string
	started := make(chan struct{})
	var startOnce sync.Once

	ownerSock.On(socket.EventPlayerJoined, func(ev socket.Event) {
		joined := ev.(socket.PlayerJoinedEvent)
		mu.Lock()
		joinedName = joined.Name
		mu.Unlock()
	})
	ownerSock.On(socket.EventStartGame, func(socket.Event) {
		startOnce.Do(func() { close(started) })
	})
	ownerSock.Listen()

	guest, err := client.JoinGame(ctx, api.JoinGameRequest{
		GameID: owner.GameID,
		Name:   "integration-guest",
	})
	if err != nil {
		t.Fatalf("join game: %v", err)
	}
	if guest.GameID != owner.GameID {
		t.Fatalf("guest joined a different game: %s vs %s", guest.GameID, owner.GameID)
	}

	deadline := time.After(10 * time.Second)
	for {
		mu.Lock()
		name := joinedName
		mu.Unlock()
		if name != "" {
			break
		}
		select {
		case <-deadline:
			t.Fatal("owner never saw the guest join")
		case <-time.After(100 * time.Millisecond):
		}
	}

	if err := ownerSock.Emit(socket.EventStartGame, owner.GameID, struct{}{}); err != nil {
		t.Fatalf("emit start game: %v", err)
	}

	select {
	case <-started:
	case <-time.After(30 * time.Second):
		t.Fatal("game never started")
	}
}
