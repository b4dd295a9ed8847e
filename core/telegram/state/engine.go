package state

import (
	"errors"
	"fmt"
	"sync"

	"log/slog"

	"github.com/m3rciful/residentbot/core/logger"
	tghelpers "github.com/m3rciful/residentbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// Engine drives sessions through registered nodes. Sessions are process
// local; a restart drops them and dialogs start over.
//
// Two locks are involved: mu guards the session and transition tables,
// while a per-user mutex serializes whole transitions so two events for
// the same user are never processed out of order or concurrently.
type Engine struct {
	mu       sync.RWMutex
	sessions map[int64]*Session
	locks    map[int64]*sync.Mutex
	nodes    map[State]Node
}

// NewEngine returns an engine with an empty transition table.
func NewEngine() *Engine {
	return &Engine{
		sessions: make(map[int64]*Session),
		locks:    make(map[int64]*sync.Mutex),
		nodes:    make(map[State]Node),
	}
}

// Register adds a node to the transition table. Registering the idle state
// or the same state twice is a wiring bug.
func (e *Engine) Register(st State, n Node) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if st == StateIdle {
		panic("state: cannot register the idle state")
	}
	if _, dup := e.nodes[st]; dup {
		panic(fmt.Sprintf("state: node %q registered twice", st))
	}
	e.nodes[st] = n
}

// lockFor returns the serialization mutex for a user.
func (e *Engine) lockFor(userID int64) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		e.locks[userID] = l
	}
	return l
}

func (e *Engine) node(st State) (Node, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	n, ok := e.nodes[st]
	return n, ok
}

// InProgress reports whether the user has an active node.
func (e *Engine) InProgress(userID int64) bool {
	return e.Current(userID) != StateIdle
}

// Current returns the user's active node, or StateIdle.
func (e *Engine) Current(userID int64) State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if s, ok := e.sessions[userID]; ok {
		return s.State
	}
	return StateIdle
}

// Set moves the user to a node without prompting. Used by dialog-start
// handlers that send their own first prompt.
func (e *Engine) Set(userID int64, st State) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sessionLocked(userID).State = st
}

// SetData stores a captured value outside the normal text flow, e.g. a
// menu selection delivered via callback.
func (e *Engine) SetData(userID int64, key, value string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sessionLocked(userID).Data[key] = value
}

// Data returns a captured value.
func (e *Engine) Data(userID int64, key string) (string, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	s, ok := e.sessions[userID]
	if !ok {
		return "", false
	}
	v, ok := s.Data[key]
	return v, ok
}

// Exclusive runs fn under the user's serialization lock, the same one
// HandleText holds for a whole transition. Callback-driven transitions use
// it so they cannot interleave with a concurrent text event for the user.
func (e *Engine) Exclusive(userID int64, fn func()) {
	lock := e.lockFor(userID)
	lock.Lock()
	defer lock.Unlock()
	fn()
}

// Cancel unconditionally clears the session. Safe to call when idle; the
// very next event for the user sees an idle session.
func (e *Engine) Cancel(userID int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.sessions, userID)
}

func (e *Engine) sessionLocked(userID int64) *Session {
	s, ok := e.sessions[userID]
	if !ok {
		s = &Session{State: StateIdle, Data: make(map[string]string)}
		e.sessions[userID] = s
	}
	return s
}

func (e *Engine) snapshot(userID int64) (State, map[string]string) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	s, ok := e.sessions[userID]
	if !ok {
		return StateIdle, nil
	}
	data := make(map[string]string, len(s.Data))
	for k, v := range s.Data {
		data[k] = v
	}
	return s.State, data
}

// HandleText advances the user's session with an inbound text event. When
// the user has no active node the event is not a dialog continuation and is
// left for other routing.
func (e *Engine) HandleText(c tele.Context) error {
	userID := c.Sender().ID
	lock := e.lockFor(userID)
	lock.Lock()
	defer lock.Unlock()

	current, data := e.snapshot(userID)
	if current == StateIdle {
		return nil
	}

	ctx := tghelpers.BuildContext(c)
	node, known := e.node(current)
	if !known {
		logger.Warn(ctx, "fsm", "node.unknown",
			slog.Int64("user_id", userID),
			slog.String("state", string(current)),
		)
		e.Cancel(userID)
		return nil
	}

	value := c.Text()
	if node.Validate != nil {
		v, err := node.Validate(c, value)
		var verr *ValidationError
		if errors.As(err, &verr) {
			logger.Debug(ctx, "fsm", "input.rejected",
				slog.Int64("user_id", userID),
				slog.String("state", string(current)),
			)
			return c.Send(verr.Message)
		}
		if err != nil {
			return fmt.Errorf("state: validate %q: %w", current, err)
		}
		value = v
	}

	if node.Field != "" {
		data[node.Field] = value
		e.SetData(userID, node.Field, value)
	}

	if node.Next == StateIdle || node.Next == "" {
		if node.Complete != nil {
			if err := node.Complete(c, data); err != nil {
				// Leave the session as is so the user can re-send the
				// last input once the collaborator recovers.
				return fmt.Errorf("state: complete %q: %w", current, err)
			}
		}
		logger.Debug(ctx, "fsm", "dialog.done",
			slog.Int64("user_id", userID),
			slog.String("state", string(current)),
		)
		e.Cancel(userID)
		return nil
	}

	e.Set(userID, node.Next)
	if next, ok := e.node(node.Next); ok && next.Prompt != nil {
		return next.Prompt(c)
	}
	return nil
}
