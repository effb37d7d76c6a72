// Package conversation owns the chat transcript and drives the lifecycle of
// the single outstanding /ask request.
//
// A Store moves between two states. Submit appends the user's message, marks
// the store pending and starts exactly one request in the background; when
// that request resolves, successfully or not, a bot message is appended and
// the store is idle again. Failures never escape Submit: they become a fixed
// bot reply in the transcript.
package conversation

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/papercomputeco/querybot/pkg/ask"
)

// Asker performs one /ask round trip.
type Asker interface {
	Ask(ctx context.Context, query string) (*ask.Response, error)
}

// State is a snapshot of the conversation.
type State struct {
	Messages []Message
	Pending  bool

	// Version increases with every mutation
	Version uint64
}

// Listener is notified with a fresh snapshot after every mutation.
type Listener func(State)

// DefaultTimeout bounds each request when no WithTimeout option is given.
const DefaultTimeout = 60 * time.Second

// Option configures a Store.
type Option func(*Store)

// WithTimeout sets the per-request deadline.
func WithTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// Store is the conversation state container. It is safe for concurrent use.
type Store struct {
	id     string
	asker  Asker
	logger *zap.Logger

	mu         sync.Mutex
	timeout    time.Duration
	messages   []Message
	pending    bool
	closed     bool
	version    uint64
	generation uint64
	cancel     context.CancelFunc
	listeners  map[int]Listener
	nextID     int

	// notifyMu keeps listener calls in mutation order
	notifyMu sync.Mutex
}

// NewStore creates an empty, idle Store.
func NewStore(asker Asker, logger *zap.Logger, opts ...Option) *Store {
	s := &Store{
		id:        uuid.NewString(),
		asker:     asker,
		timeout:   DefaultTimeout,
		listeners: make(map[int]Listener),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logger.With(zap.String("conversation", s.id))
	return s
}

// ID is a random identifier for this conversation, used in logs.
func (s *Store) ID() string {
	return s.id
}

// SetTimeout changes the deadline applied to requests submitted from now on.
func (s *Store) SetTimeout(d time.Duration) {
	if d <= 0 {
		return
	}
	s.mu.Lock()
	s.timeout = d
	s.mu.Unlock()
}

// State returns a snapshot of the transcript and pending flag.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe registers l and returns a func that removes it. Listeners run
// after the state lock is released, one mutation at a time and in mutation
// order. A listener must not call Submit, Reset or Close synchronously.
func (s *Store) Subscribe(l Listener) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// Submit appends text as a user message, marks the store pending and sends
// text to the server in the background. The returned channel is closed once
// the reply (or the error reply) has been appended and the store is idle.
//
// Submit rejects empty text with ErrEmptyQuery, a second submission while one
// is outstanding with ErrBusy, and any submission after Close with ErrClosed.
// In those cases the state is left untouched.
func (s *Store) Submit(ctx context.Context, text string) (<-chan struct{}, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyQuery
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	if s.pending {
		s.mu.Unlock()
		return nil, ErrBusy
	}

	s.appendLocked(chain(s.lastLocked(), SenderUser, text))
	s.pending = true

	reqCtx, cancel := context.WithTimeout(ctx, s.timeout)
	s.cancel = cancel
	generation := s.generation

	s.publishLocked()

	s.logger.Debug("submitted query",
		zap.Int("length", len(text)),
		zap.Uint64("generation", generation),
	)

	done := make(chan struct{})
	go s.resolve(reqCtx, cancel, generation, text, done)
	return done, nil
}

// Ask submits text and waits until the reply is in the transcript. The
// request itself is bounded by the store's timeout; ctx also bounds it.
func (s *Store) Ask(ctx context.Context, text string) error {
	done, err := s.Submit(ctx, text)
	if err != nil {
		return err
	}
	<-done
	return nil
}

// Reset clears the transcript and abandons any outstanding request. A reply
// that arrives afterwards is discarded.
func (s *Store) Reset() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.abandonLocked()
	s.messages = nil
	s.publishLocked()
	s.logger.Debug("conversation reset")
}

// Close abandons any outstanding request and stops all further mutation and
// notification. It is safe to call more than once.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.abandonLocked()
	s.closed = true
	s.listeners = make(map[int]Listener)
	s.logger.Debug("conversation closed")
}

// resolve performs the request and converges on idle no matter the outcome.
func (s *Store) resolve(ctx context.Context, cancel context.CancelFunc, generation uint64, text string, done chan struct{}) {
	defer close(done)
	defer cancel()

	startTime := time.Now()
	resp, err := s.asker.Ask(ctx, text)
	if err != nil {
		s.logger.Error("ask request failed",
			zap.Error(err),
			zap.Duration("duration", time.Since(startTime)),
		)
	} else if _, ok := resp.Summary(); !ok {
		s.logger.Warn("reply had no summary", zap.Duration("duration", time.Since(startTime)))
	} else {
		s.logger.Debug("reply received", zap.Duration("duration", time.Since(startTime)))
	}

	s.mu.Lock()
	if s.closed || generation != s.generation {
		s.mu.Unlock()
		s.logger.Debug("discarding stale reply",
			zap.Uint64("generation", generation),
		)
		return
	}

	reply := chain(s.lastLocked(), SenderBot, ask.ReplyText(resp, err))
	if err != nil {
		reply.Failed = true
	} else if resp != nil {
		reply.DebugInfo = resp.DebugInfo
		reply.RowCount = resp.RowCount()
	}
	s.appendLocked(reply)
	s.pending = false
	s.cancel = nil

	s.publishLocked()
}

// abandonLocked cancels the in-flight request and makes its reply stale.
func (s *Store) abandonLocked() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.generation++
	s.pending = false
}

func (s *Store) appendLocked(m Message) {
	s.messages = append(s.messages, m)
}

func (s *Store) lastLocked() *Message {
	if len(s.messages) == 0 {
		return nil
	}
	return &s.messages[len(s.messages)-1]
}

func (s *Store) snapshotLocked() State {
	messages := make([]Message, len(s.messages))
	copy(messages, s.messages)
	return State{
		Messages: messages,
		Pending:  s.pending,
		Version:  s.version,
	}
}

// publishLocked bumps the version, releases s.mu and notifies listeners.
// notifyMu is taken before s.mu is released so notifications cannot overtake
// one another.
func (s *Store) publishLocked() {
	s.version++
	state := s.snapshotLocked()
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}

	s.notifyMu.Lock()
	s.mu.Unlock()
	defer s.notifyMu.Unlock()

	for _, l := range listeners {
		l(state)
	}
}
