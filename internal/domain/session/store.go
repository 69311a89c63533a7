// Package session owns the operator's authentication state: at most one
// active session, persisted across launches and shared by every feature
// that talks to the directory service.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/mgajardo/backdesk/internal/outcome"
	"github.com/mgajardo/backdesk/internal/remote"
)

// Subscriber is invoked after every authentication transition. Callbacks
// run outside the store's lock, in subscription order.
type Subscriber func(user remote.Identity, authenticated bool)

// Store holds the current session and keeps the persisted copy in step
// with it. All methods are safe for concurrent use.
type Store struct {
	api    API
	repo   Repository
	sink   outcome.Sink
	logger *slog.Logger

	mu            sync.RWMutex
	current       remote.Session
	authenticated bool
	nextSubID     int
	subscribers   map[int]Subscriber
}

// NewStore creates a session store. repo and sink may be nil when
// persistence or outcome reporting is not wanted.
func NewStore(api API, repo Repository, sink outcome.Sink, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Store{
		api:         api,
		repo:        repo,
		sink:        sink,
		logger:      logger,
		subscribers: make(map[int]Subscriber),
	}
}

// Restore loads the persisted session, if any, and revalidates it against
// the service. A rejected token is evicted and the store stays signed
// out. Any other revalidation failure keeps the stored session active
// until the service concretely rejects it, and is returned alongside
// active == true so callers can warn. The boolean reports whether a
// session is active.
func (s *Store) Restore(ctx context.Context) (bool, error) {
	if s.repo == nil {
		return false, nil
	}

	stored, found, err := s.repo.LoadSession(ctx)
	if err != nil {
		return false, fmt.Errorf("loading stored session: %w", err)
	}
	if !found || stored.Token == "" {
		return false, nil
	}

	ident, err := s.api.Me(ctx, stored.Token)
	switch {
	case err == nil:
		stored.User = ident
	case errors.Is(err, remote.ErrUnauthorized):
		s.logger.Info("stored session no longer valid, evicting")
		if cerr := s.repo.ClearSession(ctx); cerr != nil {
			s.logger.Warn("clearing stored session", "error", cerr)
		}
		return false, nil
	default:
		s.logger.Warn("session revalidation failed, keeping stored session", "error", err)
		s.activate(ctx, stored)
		return true, err
	}

	s.activate(ctx, stored)
	return true, nil
}

// Login exchanges credentials for a session, persists it, and makes it
// current. A failed attempt leaves any existing session untouched.
func (s *Store) Login(ctx context.Context, email, password string) (remote.Identity, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return remote.Identity{}, ErrMissingCredentials
	}

	sess, err := s.api.Login(ctx, email, password)
	if err != nil {
		if errors.Is(err, remote.ErrUnauthorized) {
			s.report(outcome.KindFailure, "sign-in failed", "invalid email or password")
		} else {
			s.report(outcome.KindFailure, "sign-in failed", err.Error())
		}
		return remote.Identity{}, err
	}

	s.activate(ctx, sess)
	return sess.User, nil
}

// Logout revokes the session with the service on a best-effort basis and
// always clears local state, persisted copy included.
func (s *Store) Logout(ctx context.Context) error {
	s.mu.Lock()
	if !s.authenticated {
		s.mu.Unlock()
		s.clearStored(ctx)
		return nil
	}
	token := s.current.Token
	s.current = remote.Session{}
	s.authenticated = false
	subs := s.snapshotLocked()
	s.mu.Unlock()

	if err := s.api.Logout(ctx, token); err != nil {
		s.logger.Warn("remote logout failed", "error", err)
	}
	s.clearStored(ctx)
	s.notify(subs, remote.Identity{}, false)
	return nil
}

// Invalidate drops the current session without calling the service. The
// transport invokes it when a request comes back 401. Repeated calls
// collapse into a single transition.
func (s *Store) Invalidate(ctx context.Context) {
	s.mu.Lock()
	if !s.authenticated {
		s.mu.Unlock()
		return
	}
	s.current = remote.Session{}
	s.authenticated = false
	subs := s.snapshotLocked()
	s.mu.Unlock()

	s.logger.Info("session invalidated by service")
	s.clearStored(ctx)
	s.report(outcome.KindInfo, "session expired", "please sign in again")
	s.notify(subs, remote.Identity{}, false)
}

// Current returns the authenticated identity, if any.
func (s *Store) Current() (remote.Identity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.User, s.authenticated
}

// Token returns the bearer token of the active session. It satisfies the
// transport's token source.
func (s *Store) Token() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.authenticated {
		return "", false
	}
	return s.current.Token, true
}

// Subscribe registers fn for authentication transitions. The returned
// function removes the registration.
func (s *Store) Subscribe(fn Subscriber) func() {
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subscribers, id)
		s.mu.Unlock()
	}
}

func (s *Store) activate(ctx context.Context, sess remote.Session) {
	s.mu.Lock()
	s.current = sess
	s.authenticated = true
	subs := s.snapshotLocked()
	s.mu.Unlock()

	if s.repo != nil {
		if err := s.repo.SaveSession(ctx, sess); err != nil {
			s.logger.Warn("persisting session", "error", err)
		}
	}
	s.notify(subs, sess.User, true)
}

func (s *Store) report(kind outcome.Kind, title, detail string) {
	if s.sink != nil {
		s.sink.Report(kind, title, detail)
	}
}

func (s *Store) clearStored(ctx context.Context) {
	if s.repo == nil {
		return
	}
	if err := s.repo.ClearSession(ctx); err != nil {
		s.logger.Warn("clearing stored session", "error", err)
	}
}

// snapshotLocked copies the subscriber list in registration order so
// callbacks run without the store's lock held.
func (s *Store) snapshotLocked() []Subscriber {
	if len(s.subscribers) == 0 {
		return nil
	}
	ids := make([]int, 0, len(s.subscribers))
	for id := range s.subscribers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	subs := make([]Subscriber, 0, len(ids))
	for _, id := range ids {
		subs = append(subs, s.subscribers[id])
	}
	return subs
}

func (s *Store) notify(subs []Subscriber, user remote.Identity, authenticated bool) {
	for _, fn := range subs {
		fn(user, authenticated)
	}
}
