// Package session keeps the single authenticated session of the client.
//
// The session is persisted under the `user` and `token` keys of local
// storage and mirrored in memory. Observers registered with Subscribe are
// told about every change, after the change is persisted.
package session

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/mindnote/internal/client/models"
	"github.com/dmitrijs2005/mindnote/internal/client/repositories/kv"
	"github.com/dmitrijs2005/mindnote/internal/common"
	"github.com/dmitrijs2005/mindnote/internal/dbx"
	"github.com/dmitrijs2005/mindnote/internal/logging"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"
)

type Session struct {
	User  models.User
	Token string
}

// Listener receives the new session, or nil after the session is cleared.
type Listener func(s *Session)

type Store struct {
	db    *sql.DB
	repo  kv.Repository
	clock clockwork.Clock
	log   logging.Logger

	mu        sync.RWMutex
	current   *Session
	listeners map[int]Listener
	nextID    int
}

func NewStore(db *sql.DB, clock clockwork.Clock, log logging.Logger) *Store {
	return &Store{
		db:        db,
		repo:      kv.NewSQLiteRepository(db),
		clock:     clock,
		log:       log,
		listeners: make(map[int]Listener),
	}
}

// Load reads the persisted session. A session whose token carries an
// expiration in the past is cleared and reported as absent.
func (s *Store) Load(ctx context.Context) (*Session, error) {
	var user models.User
	found, err := kv.GetJSON(ctx, s.repo, kv.KeyUser, &user)
	if err != nil {
		return nil, fmt.Errorf("failed to load session user: %w", err)
	}

	if !found {
		s.set(nil, false)
		return nil, nil
	}

	token, err := s.repo.Get(ctx, kv.KeyToken)
	if err != nil {
		return nil, fmt.Errorf("failed to load session token: %w", err)
	}

	sess := &Session{User: user, Token: string(token)}

	if err := checkToken(sess.Token, s.clock.Now()); err != nil {
		s.log.Info(ctx, "dropping stored session", "email", user.Email, "reason", err)
		if err := s.Clear(ctx); err != nil {
			return nil, err
		}
		return nil, nil
	}

	s.set(sess, false)
	return copySession(sess), nil
}

// Save persists user and token in one transaction and makes them the
// current session. An empty token removes a previously stored one.
func (s *Store) Save(ctx context.Context, sess Session) error {
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := kv.NewSQLiteRepository(tx)
		if err := kv.SetJSON(ctx, repo, kv.KeyUser, sess.User); err != nil {
			return err
		}
		if sess.Token == "" {
			return repo.Delete(ctx, kv.KeyToken)
		}
		return repo.Set(ctx, kv.KeyToken, []byte(sess.Token))
	})
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	s.log.Info(ctx, "session started", "email", sess.User.Email, "role", sess.User.Role)
	s.set(&sess, true)
	return nil
}

// Clear removes the persisted session.
func (s *Store) Clear(ctx context.Context) error {
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := kv.NewSQLiteRepository(tx)
		if err := repo.Delete(ctx, kv.KeyUser); err != nil {
			return err
		}
		return repo.Delete(ctx, kv.KeyToken)
	})
	if err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}

	s.log.Info(ctx, "session cleared")
	s.set(nil, true)
	return nil
}

// Current returns the in-memory session. A session whose token expired
// since it was loaded is reported as absent.
func (s *Store) Current() (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.current == nil {
		return nil, false
	}
	if checkToken(s.current.Token, s.clock.Now()) != nil {
		return nil, false
	}
	return copySession(s.current), true
}

// IsOwner reports whether email belongs to the current session's user.
func (s *Store) IsOwner(email string) bool {
	sess, ok := s.Current()
	return ok && common.NormalizeEmail(sess.User.Email) == common.NormalizeEmail(email)
}

// Subscribe registers l for session changes and returns a function that
// unregisters it.
func (s *Store) Subscribe(l Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.listeners[id] = l

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

func (s *Store) set(sess *Session, notify bool) {
	s.mu.Lock()
	s.current = copySession(sess)
	var listeners []Listener
	if notify {
		listeners = make([]Listener, 0, len(s.listeners))
		for _, l := range s.listeners {
			listeners = append(listeners, l)
		}
	}
	s.mu.Unlock()

	for _, l := range listeners {
		l(copySession(sess))
	}
}

func copySession(s *Session) *Session {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

// checkToken rejects JWTs whose exp claim is not after now. Tokens that are
// not JWTs, or carry no exp, never expire on the client.
func checkToken(token string, now time.Time) error {
	if token == "" {
		return nil
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}
	if exp == nil {
		return nil
	}
	if !exp.After(now) {
		return common.ErrTokenExpired
	}
	return nil
}
