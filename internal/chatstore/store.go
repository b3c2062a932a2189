package chatstore

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"chat-relay/internal/domain"
)

// DefaultHistoryLimit is how many trailing turns are sent with each request.
const DefaultHistoryLimit = 10

var (
	ErrEmptyMessage       = errors.New("chatstore: message is empty")
	ErrSubmissionInFlight = errors.New("chatstore: a submission is already in flight")
)

// Sender delivers the conversation to the relay and returns the assistant turn.
type Sender interface {
	Send(ctx context.Context, turns []domain.Turn) (domain.Turn, error)
}

// Entry is a turn as held on the client side.
type Entry struct {
	ID        string
	Role      domain.Role
	Content   string
	Timestamp time.Time
}

type Store struct {
	sender       Sender
	historyLimit int
	now          func() time.Time
	newID        func() string

	mu      sync.Mutex
	entries []Entry
	loading bool
	errMsg  string
}

type Option func(*Store)

func WithHistoryLimit(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.historyLimit = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

func New(sender Sender, opts ...Option) (*Store, error) {
	if sender == nil {
		return nil, errors.New("chatstore: sender must not be nil")
	}
	s := &Store{
		sender:       sender,
		historyLimit: DefaultHistoryLimit,
		now:          time.Now,
		newID:        uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Submit appends the user turn, sends the recent history and appends the
// reply. On failure the user turn stays, the error message is recorded and
// the error is returned.
func (s *Store) Submit(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}

	s.mu.Lock()
	if s.loading {
		s.mu.Unlock()
		return ErrSubmissionInFlight
	}
	s.entries = append(s.entries, Entry{
		ID:        s.newID(),
		Role:      domain.RoleUser,
		Content:   text,
		Timestamp: s.now(),
	})
	s.errMsg = ""
	s.loading = true
	history := s.recentTurnsLocked()
	s.mu.Unlock()

	reply, err := s.sender.Send(ctx, history)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if err != nil {
		s.errMsg = err.Error()
		return err
	}
	s.entries = append(s.entries, Entry{
		ID:        s.newID(),
		Role:      domain.RoleAssistant,
		Content:   reply.Content,
		Timestamp: s.now(),
	})
	return nil
}

func (s *Store) recentTurnsLocked() []domain.Turn {
	start := 0
	if len(s.entries) > s.historyLimit {
		start = len(s.entries) - s.historyLimit
	}
	turns := make([]domain.Turn, 0, len(s.entries)-start)
	for _, e := range s.entries[start:] {
		turns = append(turns, domain.Turn{Role: e.Role, Content: e.Content})
	}
	return turns
}

// Turns returns a copy of the conversation in order.
func (s *Store) Turns() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Err returns the last failure message, or "" when there is none.
func (s *Store) Err() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errMsg
}

func (s *Store) ClearError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errMsg = ""
}
