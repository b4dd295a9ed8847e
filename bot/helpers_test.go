package bot

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	tele "gopkg.in/telebot.v4"

	coreconfig "github.com/m3rciful/residentbot/core/config"
	"github.com/m3rciful/residentbot/storage"
	"github.com/m3rciful/residentbot/storage/stubs"
)

const testAdminID int64 = 99

// apiCall is one request captured by the stubbed Bot API transport.
type apiCall struct {
	Endpoint string
	ChatID   string
	Text     string
}

// recordingTransport answers Bot API requests locally and records them, so
// bot.Send side channels (admin notices, private warnings) are observable.
type recordingTransport struct {
	mu    sync.Mutex
	calls []apiCall
}

func (rt *recordingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	call := apiCall{Endpoint: path.Base(req.URL.Path)}
	if req.Body != nil {
		data, _ := io.ReadAll(req.Body)
		var payload map[string]any
		if json.Unmarshal(data, &payload) == nil {
			call.ChatID, _ = payload["chat_id"].(string)
			call.Text, _ = payload["text"].(string)
		}
	}
	rt.mu.Lock()
	rt.calls = append(rt.calls, call)
	rt.mu.Unlock()

	body := `{"ok":true,"result":{"message_id":1,"chat":{"id":1,"type":"private"},"date":1}}`
	switch call.Endpoint {
	case "getChatAdministrators":
		body = `{"ok":true,"result":[` +
			`{"status":"creator","user":{"id":99,"first_name":"Admin"}},` +
			`{"status":"administrator","user":{"id":500,"is_bot":true,"first_name":"Helper"}}]}`
	case "deleteMessage":
		body = `{"ok":true,"result":true}`
	}
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}, nil
}

func (rt *recordingTransport) sentTo(chatID int64) []apiCall {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	id := strconv.FormatInt(chatID, 10)
	var out []apiCall
	for _, c := range rt.calls {
		if c.ChatID == id {
			out = append(out, c)
		}
	}
	return out
}

type testEnv struct {
	app       *App
	residents *stubs.MemoryResidents
	meters    *stubs.MemoryMeters
	sanctions *stubs.MemorySanctions
	words     *stubs.MemoryWords
	api       *recordingTransport
	bot       *tele.Bot
}

func newTestEnv(t *testing.T, words ...string) *testEnv {
	t.Helper()

	cfg := &coreconfig.Config{}
	cfg.Telegram.AdminID = testAdminID
	cfg.House.Apartments = 120
	cfg.House.Porches = 4
	cfg.House.GroupChatID = testGroupID
	cfg.Moderation.SweepIntervalSeconds = 60
	cfg.Moderation.MuteMinutes = 30

	env := &testEnv{
		residents: stubs.NewMemoryResidents(),
		meters:    stubs.NewMemoryMeters(),
		sanctions: stubs.NewMemorySanctions(),
		words:     stubs.NewMemoryWords(words...),
		api:       &recordingTransport{},
	}

	b, err := tele.NewBot(tele.Settings{
		Token:   "test-token",
		Offline: true,
		Client:  &http.Client{Transport: env.api},
	})
	require.NoError(t, err)
	env.bot = b

	app, err := New(context.Background(), cfg, Stores{
		Residents: env.residents,
		Meters:    env.meters,
		Sanctions: env.sanctions,
		Words:     env.words,
	})
	require.NoError(t, err)
	env.app = app
	return env
}

func (e *testEnv) seedResident(t *testing.T, teleID int64, name string, apartment int, phone string, confirmed bool) *storage.Resident {
	t.Helper()
	r := &storage.Resident{
		TeleID:    teleID,
		Name:      name,
		Apartment: apartment,
		Phone:     phone,
		Confirmed: confirmed,
	}
	require.NoError(t, e.residents.Upsert(context.Background(), r))
	return r
}

// dialog feeds one text input into the user's active dialog.
func (e *testEnv) dialog(t *testing.T, userID int64, text string) *fakeContext {
	t.Helper()
	c := e.private(userID, text)
	require.NoError(t, e.app.engine.HandleText(c))
	return c
}

func (e *testEnv) private(userID int64, text string) *fakeContext {
	return &fakeContext{
		bot:  e.bot,
		user: &tele.User{ID: userID},
		chat: &tele.Chat{ID: userID, Type: tele.ChatPrivate},
		text: text,
		vals: make(map[string]any),
	}
}

func (e *testEnv) group(user *tele.User, chatID int64, text string) *fakeContext {
	return &fakeContext{
		bot:  e.bot,
		user: user,
		chat: &tele.Chat{ID: chatID, Type: tele.ChatSuperGroup},
		text: text,
		vals: make(map[string]any),
	}
}

// fakeContext implements the parts of tele.Context the handlers touch.
type fakeContext struct {
	tele.Context
	bot     *tele.Bot
	user    *tele.User
	chat    *tele.Chat
	text    string
	sent    []string
	deleted int
	vals    map[string]any
}

var _ tele.Context = (*fakeContext)(nil)

func (f *fakeContext) Bot() tele.API      { return f.bot }
func (f *fakeContext) Sender() *tele.User { return f.user }
func (f *fakeContext) Chat() *tele.Chat   { return f.chat }
func (f *fakeContext) Text() string       { return f.text }
func (f *fakeContext) Update() tele.Update {
	return tele.Update{ID: 1, Message: &tele.Message{Text: f.text}}
}
func (f *fakeContext) Get(key string) any    { return f.vals[key] }
func (f *fakeContext) Set(key string, v any) { f.vals[key] = v }
func (f *fakeContext) Delete() error {
	f.deleted++
	return nil
}
func (f *fakeContext) Send(what interface{}, _ ...interface{}) error {
	if s, ok := what.(string); ok {
		f.sent = append(f.sent, s)
	}
	return nil
}
func (f *fakeContext) Edit(what interface{}, _ ...interface{}) error {
	return f.Send(what)
}
func (f *fakeContext) EditOrSend(what interface{}, _ ...interface{}) error {
	return f.Send(what)
}

func (f *fakeContext) lastSent() string {
	if len(f.sent) == 0 {
		return ""
	}
	return f.sent[len(f.sent)-1]
}
