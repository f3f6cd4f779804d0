package game

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ProlificLabs/captrivia-cli/internal/api"
	"github.com/ProlificLabs/captrivia-cli/internal/notify"
	"github.com/ProlificLabs/captrivia-cli/internal/session"
	"github.com/ProlificLabs/captrivia-cli/internal/socket"
)

// ErrNoCurrentSession signals that no game is active in the registry.
var ErrNoCurrentSession = errors.New("no current game session")

// Phase is the controller's lifecycle state.
type Phase int

const (
	PhaseLoading Phase = iota
	PhaseError
	PhaseWaitingForStart
	PhaseActive
	PhaseFinished
)

// AnswerOutcome reports what a submission did to the view state.
type AnswerOutcome int

const (
	// AnswerRetained means nothing changed: the submission failed and may
	// simply be repeated.
	AnswerRetained AnswerOutcome = iota
	// AnswerAdvanced means the controller moved to the next question.
	AnswerAdvanced
	// AnswerFinished means the submitted question was the last one and the
	// game is over for this player.
	AnswerFinished
)

// Config wires a Controller's collaborators. Everything is injected; the
// controller holds no globals.
type Config struct {
	API      *api.Client
	Sessions *session.Registry
	Dialer   *socket.Dialer
	Notifier notify.Notifier
	Logger   zerolog.Logger
	// OnChange, when set, is invoked after socket-driven state mutations so
	// a UI can redraw. It runs on the socket's receive goroutine.
	OnChange func()
}

// Controller drives one visit to the game page: it fetches the
// authoritative snapshot, tracks the active question, submits answers, and
// for multiplayer games reconciles server-pushed events into view state.
type Controller struct {
	apiClient *api.Client
	sessions  *session.Registry
	dialer    *socket.Dialer
	notifier  notify.Notifier
	logger    zerolog.Logger
	onChange  func()

	mu            sync.Mutex
	phase         Phase
	session       api.GameSession
	owner         bool
	multiplayer   bool
	questions     []api.Question
	questionIndex int
	score         int
	players       []string
	scores        []api.ScoreUpdate
	secondsLeft   int
	errMessage    string

	sock      *socket.Socket
	startOnce sync.Once
	started   chan struct{}
}

// NewController builds a Controller in the Loading phase.
func NewController(cfg Config) *Controller {
	// Non-interactive callers still see notifications, in the log.
	notifier := cfg.Notifier
	if notifier == nil {
		notifier = notify.Logger(cfg.Logger)
	}
	onChange := cfg.OnChange
	if onChange == nil {
		onChange = func() {}
	}

	return &Controller{
		apiClient: cfg.API,
		sessions:  cfg.Sessions,
		dialer:    cfg.Dialer,
		notifier:  notifier,
		logger:    cfg.Logger.With().Str("component", "game").Logger(),
		onChange:  onChange,
		phase:     PhaseLoading,
		started:   make(chan struct{}),
	}
}

// View is a copy of the render-relevant state.
type View struct {
	Phase          Phase
	ErrMessage     string
	Owner          bool
	Multiplayer    bool
	SecondsLeft    int
	Players        []string
	Scores         []api.ScoreUpdate
	Score          int
	QuestionIndex  int
	TotalQuestions int
	Question       *api.Question
}

// View snapshots the current state. Scores come back in display order.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	v := View{
		Phase:          c.phase,
		ErrMessage:     c.errMessage,
		Owner:          c.owner,
		Multiplayer:    c.multiplayer,
		SecondsLeft:    c.secondsLeft,
		Players:        append([]string(nil), c.players...),
		Scores:         SortStandings(c.scores),
		Score:          c.score,
		QuestionIndex:  c.questionIndex,
		TotalQuestions: len(c.questions),
	}
	if c.questionIndex >= 0 && c.questionIndex < len(c.questions) {
		q := c.questions[c.questionIndex]
		v.Question = &q
	}
	return v
}

// Started is closed when a waiting multiplayer game transitions to Active.
func (c *Controller) Started() <-chan struct{} {
	return c.started
}

// Load fetches the game for the registry's current session and settles into
// Error, Finished, WaitingForStart or Active. A fetch failure evicts the
// session: the game is treated as terminally invalid, no retry.
func (c *Controller) Load(ctx context.Context) (Phase, error) {
	current, ok := c.sessions.Current()
	if !ok {
		return PhaseError, ErrNoCurrentSession
	}

	c.mu.Lock()
	c.session = current
	c.mu.Unlock()

	game, err := c.apiClient.FetchGame(ctx, current.GameID, current.SessionID)
	if err != nil {
		c.mu.Lock()
		c.phase = PhaseError
		c.errMessage = "The game you are looking for does not exist"
		c.mu.Unlock()

		if deleteErr := c.sessions.Delete(current.GameID); deleteErr != nil {
			c.logger.Warn().Err(deleteErr).Msg("failed to evict session")
		}
		return PhaseError, err
	}

	c.mu.Lock()
	c.owner = game.Owner
	c.multiplayer = game.Multiplayer
	c.score = game.CurrentScore
	c.questionIndex = game.QuestionIndex
	c.questions = game.Questions

	if game.Finished {
		c.phase = PhaseFinished
		c.mu.Unlock()
		return PhaseFinished, nil
	}

	if game.Multiplayer && !game.Started {
		c.phase = PhaseWaitingForStart
	} else {
		c.phase = PhaseActive
		c.markStarted()
	}
	phase := c.phase
	c.mu.Unlock()

	if game.Multiplayer {
		if err := c.openSocket(ctx, game.ID); err != nil {
			c.logger.Warn().Err(err).Msg("could not open game socket")
			// Without the socket a waiting game can never start; the page
			// is unusable, same as a dropped connection.
			if phase == PhaseWaitingForStart {
				c.connectionLost()
				return PhaseError, err
			}
		}
	}

	return phase, nil
}

// connectionLost marks the waiting page terminally broken and unblocks
// anyone waiting on Started.
func (c *Controller) connectionLost() {
	c.mu.Lock()
	c.phase = PhaseError
	c.errMessage = "Lost connection to the game"
	c.mu.Unlock()
	c.markStarted()
	c.onChange()
}

// openSocket dials the game channel and wires the multiplayer handlers.
func (c *Controller) openSocket(ctx context.Context, gameID string) error {
	sock, err := c.dialer.Dial(ctx, gameID)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.sock = sock
	c.mu.Unlock()

	sock.On(socket.EventConnect, func(socket.Event) {
		c.notifier.Notify("Connected to game room")
	})
	sock.On(socket.EventDisconnect, func(socket.Event) {
		// No reconnection: a drop before the game starts is terminal for
		// this visit. Once Active, play continues without live updates.
		c.mu.Lock()
		waiting := c.phase == PhaseWaitingForStart
		c.mu.Unlock()
		if waiting {
			c.connectionLost()
		}
	})
	sock.On(socket.EventStartGameCountdown, func(ev socket.Event) {
		countdown := ev.(socket.CountdownEvent)
		c.mu.Lock()
		c.secondsLeft = countdown.SecondsLeft
		c.mu.Unlock()
		c.onChange()
	})
	sock.On(socket.EventStartGame, func(socket.Event) {
		c.mu.Lock()
		if c.phase == PhaseWaitingForStart {
			c.phase = PhaseActive
		}
		c.markStarted()
		c.mu.Unlock()
		c.onChange()
	})
	sock.On(socket.EventAllPlayers, func(ev socket.Event) {
		all := ev.(socket.AllPlayersEvent)
		names := make([]string, 0, len(all.Players))
		for _, p := range all.Players {
			names = append(names, p.Name)
		}
		c.mu.Lock()
		c.players = names
		c.mu.Unlock()
		c.onChange()
	})
	sock.On(socket.EventScoreUpdate, func(ev socket.Event) {
		update := ev.(socket.ScoreUpdateEvent)
		c.mu.Lock()
		c.scores = update.Scores
		c.mu.Unlock()
		c.onChange()
	})
	sock.On(socket.EventPlayerJoined, func(ev socket.Event) {
		joined := ev.(socket.PlayerJoinedEvent)
		c.notifier.Notify("Player joined: " + joined.Name)
		c.mu.Lock()
		c.players = append(c.players, joined.Name)
		c.scores = append(c.scores, api.ScoreUpdate{
			Name:      joined.Name,
			Score:     0,
			SessionID: joined.SessionID,
		})
		c.mu.Unlock()
		c.onChange()
	})

	sock.Listen()
	return nil
}

// RequestStart asks the server to begin the countdown. Only the owner's
// request has any effect upstream.
func (c *Controller) RequestStart() error {
	c.mu.Lock()
	sock := c.sock
	gameID := c.session.GameID
	owner := c.owner
	c.mu.Unlock()

	if !owner {
		return errors.New("only the game owner can start the game")
	}
	if sock == nil {
		return errors.New("game socket is not open")
	}
	return sock.Emit(socket.EventStartGame, gameID, struct{}{})
}

// SubmitAnswer sends the chosen option for the current question. A failed
// submission changes nothing and is not surfaced; resubmitting is the retry.
// The last question always finishes the game, right or wrong.
func (c *Controller) SubmitAnswer(ctx context.Context, option int) AnswerOutcome {
	c.mu.Lock()
	if c.phase != PhaseActive || c.questionIndex >= len(c.questions) {
		c.mu.Unlock()
		return AnswerRetained
	}
	sess := c.session
	index := c.questionIndex
	questionID := c.questions[index].ID
	lastQuestion := index == len(c.questions)-1
	c.mu.Unlock()

	resp, err := c.apiClient.SubmitAnswer(ctx, api.SubmitAnswerRequest{
		GameID:     sess.GameID,
		SessionID:  sess.SessionID,
		QuestionID: questionID,
		Answer:     option,
	})
	if err != nil {
		c.logger.Debug().Err(err).Msg("answer submission failed")
		return AnswerRetained
	}

	if resp.Correct {
		c.mu.Lock()
		c.score = resp.CurrentScore
		c.mu.Unlock()

		if resp.AlreadyAnswered {
			c.notifier.Notify("🙁 You got the question right, but you weren't first to answer")
		} else {
			c.notifier.Notify("🎉 You got the question right!")
		}
	} else {
		c.notifier.Notify("❌ You got the question wrong")
	}

	if lastQuestion {
		c.mu.Lock()
		c.phase = PhaseFinished
		c.mu.Unlock()
		return AnswerFinished
	}

	c.mu.Lock()
	c.questionIndex = resp.NextQuestionIndex
	c.mu.Unlock()
	return AnswerAdvanced
}

// Close releases the socket if one was opened. Leaving the page always
// cleans up the connection.
func (c *Controller) Close() {
	c.mu.Lock()
	sock := c.sock
	c.sock = nil
	c.mu.Unlock()

	if sock != nil {
		sock.Close()
	}
}

// markStarted closes the started channel once.
func (c *Controller) markStarted() {
	c.startOnce.Do(func() { close(c.started) })
}
