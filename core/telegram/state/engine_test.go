package state

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tele "gopkg.in/telebot.v4"
)

// fakeContext implements the parts of tele.Context the engine touches.
type fakeContext struct {
	tele.Context
	user *tele.User
	text string
	sent []string
	vals map[string]any
}

func newFakeContext(userID int64, text string) *fakeContext {
	return &fakeContext{
		user: &tele.User{ID: userID},
		text: text,
		vals: make(map[string]any),
	}
}

func (f *fakeContext) Sender() *tele.User { return f.user }
func (f *fakeContext) Chat() *tele.Chat   { return &tele.Chat{ID: f.user.ID, Type: tele.ChatPrivate} }
func (f *fakeContext) Text() string       { return f.text }
func (f *fakeContext) Update() tele.Update {
	return tele.Update{ID: 1, Message: &tele.Message{Text: f.text}}
}
func (f *fakeContext) Get(key string) any      { return f.vals[key] }
func (f *fakeContext) Set(key string, v any)   { f.vals[key] = v }
func (f *fakeContext) Send(what interface{}, _ ...interface{}) error {
	if s, ok := what.(string); ok {
		f.sent = append(f.sent, s)
	}
	return nil
}

const (
	testStateFirst  State = "test/first"
	testStateSecond State = "test/second"
)

func newTestEngine(done *map[string]string, completeErr error) *Engine {
	e := NewEngine()
	e.Register(testStateFirst, Node{
		Field: "first",
		Validate: func(_ tele.Context, input string) (string, error) {
			if input == "bad" {
				return "", Invalid("first value rejected")
			}
			return input, nil
		},
		Next: testStateSecond,
	})
	e.Register(testStateSecond, Node{
		Field: "second",
		Prompt: func(c tele.Context) error {
			return c.Send("enter second")
		},
		Next: StateIdle,
		Complete: func(_ tele.Context, data map[string]string) error {
			if completeErr != nil {
				return completeErr
			}
			*done = data
			return nil
		},
	})
	return e
}

func TestHandleTextIgnoresIdleUsers(t *testing.T) {
	e := newTestEngine(nil, nil)
	c := newFakeContext(1, "hello")

	require.NoError(t, e.HandleText(c))
	assert.Empty(t, c.sent)
	assert.False(t, e.InProgress(1))
}

func TestDialogWalkthrough(t *testing.T) {
	var done map[string]string
	e := newTestEngine(&done, nil)
	e.Set(1, testStateFirst)

	require.NoError(t, e.HandleText(newFakeContext(1, "one")))
	assert.Equal(t, testStateSecond, e.Current(1))

	c := newFakeContext(1, "two")
	require.NoError(t, e.HandleText(c))

	assert.False(t, e.InProgress(1))
	assert.Equal(t, map[string]string{"first": "one", "second": "two"}, done)
}

func TestValidationFailureRepromptsSameNode(t *testing.T) {
	e := newTestEngine(nil, nil)
	e.Set(1, testStateFirst)

	c := newFakeContext(1, "bad")
	require.NoError(t, e.HandleText(c))

	assert.Equal(t, testStateFirst, e.Current(1))
	assert.Equal(t, []string{"first value rejected"}, c.sent)
}

func TestPromptSentOnNodeEntry(t *testing.T) {
	e := newTestEngine(nil, nil)
	e.Set(1, testStateFirst)

	c := newFakeContext(1, "one")
	require.NoError(t, e.HandleText(c))
	assert.Equal(t, []string{"enter second"}, c.sent)
}

func TestCompleteFailureLeavesSessionIntact(t *testing.T) {
	e := newTestEngine(nil, errors.New("store down"))
	e.Set(1, testStateSecond)

	err := e.HandleText(newFakeContext(1, "two"))
	require.Error(t, err)

	// The user can re-send the last input once the store recovers.
	assert.Equal(t, testStateSecond, e.Current(1))
}

func TestCancelClearsFromAnyNode(t *testing.T) {
	e := newTestEngine(nil, nil)
	e.Set(1, testStateSecond)
	e.SetData(1, "first", "one")

	e.Cancel(1)
	assert.False(t, e.InProgress(1))
	_, ok := e.Data(1, "first")
	assert.False(t, ok)

	// Cancelling an idle session is a no-op.
	e.Cancel(1)
	assert.False(t, e.InProgress(1))
}

func TestExclusiveAppliesCallbackTransition(t *testing.T) {
	e := newTestEngine(nil, nil)

	e.Exclusive(1, func() {
		e.SetData(1, "first", "one")
		e.Set(1, testStateSecond)
	})

	assert.Equal(t, testStateSecond, e.Current(1))
	v, ok := e.Data(1, "first")
	require.True(t, ok)
	assert.Equal(t, "one", v)
}

func TestExclusiveBlocksConcurrentTextEvent(t *testing.T) {
	e := newTestEngine(nil, nil)
	e.Set(1, testStateFirst)

	entered := make(chan struct{})
	release := make(chan struct{})
	go e.Exclusive(1, func() {
		close(entered)
		<-release
	})
	<-entered

	handled := make(chan struct{})
	go func() {
		_ = e.HandleText(newFakeContext(1, "one"))
		close(handled)
	}()

	// The text event must wait for the callback section to finish.
	select {
	case <-handled:
		t.Fatal("text event ran while the callback section held the lock")
	case <-time.After(20 * time.Millisecond):
	}

	close(release)
	select {
	case <-handled:
	case <-time.After(time.Second):
		t.Fatal("text event never ran after the lock was released")
	}
	assert.Equal(t, testStateSecond, e.Current(1))
}

func TestSessionsAreIndependentPerUser(t *testing.T) {
	e := newTestEngine(nil, nil)
	e.Set(1, testStateFirst)
	e.Set(2, testStateSecond)

	require.NoError(t, e.HandleText(newFakeContext(1, "one")))

	assert.Equal(t, testStateSecond, e.Current(1))
	assert.Equal(t, testStateSecond, e.Current(2))
}
