package flow

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/glotchimo/obras/internal/utils"
	"github.com/graxinc/errutil"
)

const (
	DefaultTimeout = 10 * time.Minute
	CancelKeyword  = "cancelar"
)

var (
	ErrBusy      = errors.New("a flow is already active for this user and channel")
	ErrTimeout   = errors.New("timed out waiting for a reply")
	ErrCancelled = errors.New("flow cancelled by user")
	ErrClosed    = errors.New("flow session closed")
)

// Key identifies whose replies a session is waiting for. Only messages from
// UserID in ChannelID are delivered to it.
type Key struct {
	GuildID   string
	ChannelID string
	UserID    string
}

type Attachment struct {
	URL         string
	Filename    string
	ContentType string
}

type Reply struct {
	Content     string
	Attachments []Attachment
}

// PromptFunc sends a prompt to the channel the session is bound to.
type PromptFunc func(ctx context.Context, content string) error

// Engine tracks the open interactive sessions. Each key has at most one.
type Engine struct {
	mu       sync.Mutex
	l        *slog.Logger
	timeout  time.Duration
	prefix   string
	sessions map[Key]*Session
	now      func() time.Time
	done     chan struct{}
	once     sync.Once
}

func NewEngine(l *slog.Logger, timeout time.Duration, prefix string) *Engine {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	e := &Engine{
		l:        l,
		timeout:  timeout,
		prefix:   prefix,
		sessions: make(map[Key]*Session),
		now:      time.Now,
		done:     make(chan struct{}),
	}
	go utils.Sweep(e.done, timeout/2, e.now, e.reap)

	return e
}

func (e *Engine) Timeout() time.Duration {
	return e.timeout
}

// Stop ends the janitor and closes every open session.
func (e *Engine) Stop() {
	e.once.Do(func() {
		close(e.done)

		e.mu.Lock()
		defer e.mu.Unlock()
		for key, s := range e.sessions {
			s.shut()
			delete(e.sessions, key)
		}
	})
}

// Begin opens a session for key. The caller must Close it.
func (e *Engine) Begin(key Key, prompt PromptFunc) (*Session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.sessions[key]; ok {
		return nil, ErrBusy
	}

	s := &Session{
		ID:      utils.GenerateID(),
		Key:     key,
		e:       e,
		prompt:  prompt,
		inbox:   make(chan Reply, 1),
		closed:  make(chan struct{}),
		touched: e.now(),
	}
	e.sessions[key] = s

	e.l.Debug("flow session opened", "session", s.ID, "guild", key.GuildID, "channel", key.ChannelID, "user", key.UserID)
	return s, nil
}

// Deliver hands a message to the session waiting on key. It reports false
// when no session is currently waiting, in which case the message should be
// treated as ordinary input.
func (e *Engine) Deliver(key Key, r Reply) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, ok := e.sessions[key]
	if !ok || !s.waiting {
		return false
	}

	select {
	case s.inbox <- r:
		s.waiting = false
		return true
	default:
		return false
	}
}

func (e *Engine) Active(key Key) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	_, ok := e.sessions[key]
	return ok
}

func (e *Engine) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	return len(e.sessions)
}

// IsCancel reports whether content asks to abandon the current flow, with or
// without the command prefix.
func (e *Engine) IsCancel(content string) bool {
	content = strings.TrimSpace(content)
	if e.prefix != "" {
		content = strings.TrimPrefix(content, e.prefix)
	}
	return strings.EqualFold(content, CancelKeyword)
}

func (e *Engine) release(s *Session) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if current, ok := e.sessions[s.Key]; ok && current == s {
		delete(e.sessions, s.Key)
	}
	s.shut()
}

// reap drops sessions that sat idle between prompts for longer than the
// timeout, which only happens when a handler never closed its session.
func (e *Engine) reap(now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for key, s := range e.sessions {
		if s.waiting || now.Sub(s.touched) < e.timeout {
			continue
		}
		s.shut()
		delete(e.sessions, key)
		e.l.Warn("reaped abandoned flow session", "session", s.ID, "guild", key.GuildID, "user", key.UserID)
	}
}

// Session is one interactive exchange with a single user in a single
// channel. Its methods must be called from one goroutine.
type Session struct {
	ID  string
	Key Key

	e      *Engine
	prompt PromptFunc
	inbox  chan Reply

	// guarded by e.mu
	waiting  bool
	touched  time.Time
	closed   chan struct{}
	isClosed bool
}

// Ask sends prompt and waits for the user's next message. It fails with
// ErrTimeout when no reply arrives in time, ErrCancelled when the reply is
// the cancel keyword, ErrClosed when the session was closed, and the context
// error when ctx ends first.
func (s *Session) Ask(ctx context.Context, prompt string) (Reply, error) {
	if err := s.arm(); err != nil {
		return Reply{}, err
	}
	defer s.disarm()

	if err := s.prompt(ctx, prompt); err != nil {
		return Reply{}, errutil.With(err)
	}

	timer := time.NewTimer(s.e.timeout)
	defer timer.Stop()

	select {
	case r := <-s.inbox:
		if s.e.IsCancel(r.Content) {
			return Reply{}, ErrCancelled
		}
		return r, nil
	case <-timer.C:
		return Reply{}, ErrTimeout
	case <-s.closed:
		return Reply{}, ErrClosed
	case <-ctx.Done():
		return Reply{}, ctx.Err()
	}
}

// Close releases the session's key. It is safe to call more than once.
func (s *Session) Close() {
	s.e.release(s)
	s.e.l.Debug("flow session closed", "session", s.ID, "guild", s.Key.GuildID, "user", s.Key.UserID)
}

func (s *Session) arm() error {
	s.e.mu.Lock()
	defer s.e.mu.Unlock()

	if s.isClosed {
		return ErrClosed
	}

	select {
	case <-s.inbox:
	default:
	}

	s.waiting = true
	return nil
}

func (s *Session) disarm() {
	s.e.mu.Lock()
	defer s.e.mu.Unlock()

	s.waiting = false
	s.touched = s.e.now()
}

// shut must be called with e.mu held.
func (s *Session) shut() {
	if s.isClosed {
		return
	}
	s.isClosed = true
	s.waiting = false
	close(s.closed)
}
