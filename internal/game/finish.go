package game

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ProlificLabs/captrivia-cli/internal/api"
	"github.com/ProlificLabs/captrivia-cli/internal/session"
	"github.com/ProlificLabs/captrivia-cli/internal/socket"
)

// FinishPhase is the finish controller's lifecycle state.
type FinishPhase int

const (
	FinishLoading FinishPhase = iota
	FinishError
	// FinishSinglePlayer means the final score is known and nothing more
	// will arrive.
	FinishSinglePlayer
	// FinishWaiting means the leaderboard is live and the server has not
	// yet signalled completion.
	FinishWaiting
	// FinishDone means final standings are in and the socket is closed.
	FinishDone
)

// FinishConfig wires a FinishController's collaborators.
type FinishConfig struct {
	API      *api.Client
	Sessions *session.Registry
	Dialer   *socket.Dialer
	Logger   zerolog.Logger
	OnChange func()
}

// FinishController drives the end-of-game page: the end-game handshake, and
// for multiplayer the live leaderboard until the server declares the game
// finished.
type FinishController struct {
	apiClient *api.Client
	sessions  *session.Registry
	dialer    *socket.Dialer
	logger    zerolog.Logger
	onChange  func()

	mu         sync.Mutex
	phase      FinishPhase
	finalScore int
	standings  []api.ScoreUpdate
	errMessage string

	sock      *socket.Socket
	closeOnce sync.Once
	done      chan struct{}
	doneOnce  sync.Once
}

// NewFinishController builds a FinishController in the Loading phase.
func NewFinishController(cfg FinishConfig) *FinishController {
	onChange := cfg.OnChange
	if onChange == nil {
		onChange = func() {}
	}
	return &FinishController{
		apiClient: cfg.API,
		sessions:  cfg.Sessions,
		dialer:    cfg.Dialer,
		logger:    cfg.Logger.With().Str("component", "finish").Logger(),
		onChange:  onChange,
		phase:     FinishLoading,
		done:      make(chan struct{}),
	}
}

// FinishView is a copy of the render-relevant state.
type FinishView struct {
	Phase      FinishPhase
	ErrMessage string
	FinalScore int
	Standings  []api.ScoreUpdate
}

// View snapshots the current state. Standings come back in display order.
func (c *FinishController) View() FinishView {
	c.mu.Lock()
	defer c.mu.Unlock()
	return FinishView{
		Phase:      c.phase,
		ErrMessage: c.errMessage,
		FinalScore: c.finalScore,
		Standings:  SortStandings(c.standings),
	}
}

// Done is closed when no further updates will arrive: single-player result,
// error, or multiplayer final standings.
func (c *FinishController) Done() <-chan struct{} {
	return c.done
}

// Load performs the end-game handshake for the registry's current session.
// Multiplayer games keep the leaderboard live over the socket until a
// gameFinished event arrives.
func (c *FinishController) Load(ctx context.Context) (FinishPhase, error) {
	current, ok := c.sessions.Current()
	if !ok {
		c.fail("no current game session")
		return FinishError, ErrNoCurrentSession
	}

	resp, err := c.apiClient.EndGame(ctx, api.EndGameRequest{
		GameID:    current.GameID,
		SessionID: current.SessionID,
	})
	if err != nil {
		message := "The game you are looking for does not exist"
		var apiErr *api.Error
		if errors.As(err, &apiErr) {
			message = apiErr.Message
		}
		c.fail(message)
		return FinishError, err
	}

	if !resp.Multiplayer {
		c.mu.Lock()
		c.phase = FinishSinglePlayer
		c.finalScore = resp.FinalScore
		c.mu.Unlock()
		c.endSession()
		c.markDone()
		return FinishSinglePlayer, nil
	}

	c.mu.Lock()
	c.finalScore = resp.FinalScore
	c.standings = resp.Players
	c.mu.Unlock()

	if resp.Finished {
		// All players are already through; there is nothing to wait for.
		c.mu.Lock()
		c.phase = FinishDone
		c.mu.Unlock()
		c.endSession()
		c.markDone()
		return FinishDone, nil
	}

	c.mu.Lock()
	c.phase = FinishWaiting
	c.mu.Unlock()

	if err := c.openSocket(ctx, current.GameID); err != nil {
		c.logger.Warn().Err(err).Msg("could not open finish socket")
		// No socket means gameFinished can never arrive; waiting would
		// block forever.
		c.fail("Lost connection to the game")
		return FinishError, err
	}
	return FinishWaiting, nil
}

// openSocket dials the game channel and keeps the leaderboard current until
// the server signals completion.
func (c *FinishController) openSocket(ctx context.Context, gameID string) error {
	sock, err := c.dialer.Dial(ctx, gameID)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.sock = sock
	c.mu.Unlock()

	// Interim updates replace the whole leaderboard; last write wins.
	sock.On(socket.EventScoreUpdate, func(ev socket.Event) {
		update := ev.(socket.ScoreUpdateEvent)
		c.mu.Lock()
		if c.phase == FinishWaiting {
			c.standings = update.Scores
		}
		c.mu.Unlock()
		c.onChange()
	})
	sock.On(socket.EventDisconnect, func(socket.Event) {
		// A drop while final standings are still pending is terminal; the
		// waiter must not hang. After FinishDone the disconnect is just the
		// socket teardown.
		c.mu.Lock()
		waiting := c.phase == FinishWaiting
		c.mu.Unlock()
		if waiting {
			c.closeSocket()
			c.fail("Lost connection to the game")
			c.onChange()
		}
	})
	sock.On(socket.EventGameFinished, func(ev socket.Event) {
		finished := ev.(socket.GameFinishedEvent)
		c.mu.Lock()
		alreadyDone := c.phase == FinishDone
		if !alreadyDone {
			c.phase = FinishDone
			c.standings = finished.Standings
		}
		c.mu.Unlock()

		// The channel must close exactly once even if the server repeats
		// the event.
		c.closeSocket()
		if !alreadyDone {
			c.endSession()
			c.markDone()
			c.onChange()
		}
	})

	sock.Listen()
	return nil
}

// Close releases the socket, if still open.
func (c *FinishController) Close() {
	c.closeSocket()
}

func (c *FinishController) closeSocket() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		sock := c.sock
		c.mu.Unlock()
		if sock != nil {
			sock.Close()
		}
	})
}

func (c *FinishController) fail(message string) {
	c.mu.Lock()
	c.phase = FinishError
	c.errMessage = message
	c.mu.Unlock()
	c.markDone()
}

// endSession clears the current session while keeping it in the history.
func (c *FinishController) endSession() {
	if err := c.sessions.End(); err != nil {
		c.logger.Warn().Err(err).Msg("failed to clear current session")
	}
}

func (c *FinishController) markDone() {
	c.doneOnce.Do(func() { close(c.done) })
}
