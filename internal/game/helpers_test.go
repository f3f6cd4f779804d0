package game

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/ProlificLabs/captrivia-cli/internal/api"
	"github.com/ProlificLabs/captrivia-cli/internal/notify"
	"github.com/ProlificLabs/captrivia-cli/internal/session"
	"github.com/ProlificLabs/captrivia-cli/internal/socket"
)

// fixture bundles a fake backend, a fake game socket server, and the client
// pieces wired against them.
type fixture struct {
	t        *testing.T
	backend  *httptest.Server
	ws       *httptest.Server
	wsConns  chan *websocket.Conn
	API      *api.Client
	Sessions *session.Registry
	Dialer   *socket.Dialer
	Session  api.GameSession
}

func newFixture(t *testing.T, backendHandler http.Handler) *fixture {
	t.Helper()

	f := &fixture{t: t, wsConns: make(chan *websocket.Conn, 2)}

	f.backend = httptest.NewServer(backendHandler)
	t.Cleanup(f.backend.Close)

	upgrader := websocket.Upgrader{}
	f.ws = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		f.wsConns <- conn
	}))
	t.Cleanup(f.ws.Close)

	client, err := api.NewClient(f.backend.URL, api.Options{Logger: zerolog.Nop()})
	require.NoError(t, err)
	f.API = client

	store := session.NewStore(filepath.Join(t.TempDir(), "state.json"))
	f.Sessions = session.NewRegistry(store, zerolog.Nop())

	f.Session = api.GameSession{GameID: uuid.NewString(), SessionID: uuid.NewString()}
	require.NoError(t, f.Sessions.StartOrResume(f.Session, false))

	wsURL := "ws" + strings.TrimPrefix(f.ws.URL, "http")
	f.Dialer = socket.NewDialer(wsURL, zerolog.Nop(), nil)

	return f
}

// serverConn waits for the client to dial the fake game socket.
func (f *fixture) serverConn() *websocket.Conn {
	f.t.Helper()
	select {
	case conn := <-f.wsConns:
		return conn
	case <-time.After(2 * time.Second):
		f.t.Fatal("client never dialed the game socket")
		return nil
	}
}

func (f *fixture) push(conn *websocket.Conn, eventType socket.EventType, content string) {
	f.t.Helper()
	require.NoError(f.t, conn.WriteJSON(socket.Envelope{
		Type:    string(eventType),
		Content: content,
	}))
}

// memoryNotifier records notifications for assertions.
type memoryNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *memoryNotifier) Notify(message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, message)
}

func (n *memoryNotifier) all() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.messages...)
}

func (n *memoryNotifier) contains(substr string) bool {
	for _, m := range n.all() {
		if strings.Contains(m, substr) {
			return true
		}
	}
	return false
}

var _ notify.Notifier = (*memoryNotifier)(nil)

func questions(n int) []api.Question {
	out := make([]api.Question, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, api.Question{
			ID:           uuid.NewString(),
			QuestionText: "question",
			Options:      []string{"a", "b", "c", "d"},
		})
	}
	return out
}
