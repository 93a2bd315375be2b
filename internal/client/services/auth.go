// Package services contains application services for the MindNote client.
// This file defines the authentication service: login against the backend
// with a persisted lockout after repeated failures, the lock countdown and
// logout.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/mindnote/internal/client/client"
	"github.com/dmitrijs2005/mindnote/internal/client/models"
	"github.com/dmitrijs2005/mindnote/internal/client/notify"
	"github.com/dmitrijs2005/mindnote/internal/client/repositories/kv"
	"github.com/dmitrijs2005/mindnote/internal/client/scheduler"
	"github.com/dmitrijs2005/mindnote/internal/client/session"
	"github.com/dmitrijs2005/mindnote/internal/common"
	"github.com/dmitrijs2005/mindnote/internal/dbx"
	"github.com/dmitrijs2005/mindnote/internal/logging"
)

const lockTimerKey = "login/lock"

// AuthService defines authentication operations for the CLI.
//
// Contract:
//   - Init: resume a persisted lock (arm its expiry) or drop an expired one.
//   - Login: authenticate against the backend unless a session or a lock
//     is active; failures are counted and lock the login when they reach
//     the configured maximum.
//   - LockStatus: whether the login is locked and for how long.
//   - Countdown: report the remaining lock time once per second until it
//     expires.
//   - Logout: end the current session.
//
// All methods must honor context cancellation/timeouts.
type AuthService interface {
	Init(ctx context.Context) error
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	LockStatus(ctx context.Context) (time.Duration, bool, error)
	Countdown(ctx context.Context, fn func(remaining time.Duration)) error
	Logout(ctx context.Context) error
}

type LoginResult struct {
	User  models.User
	Route Route
}

type AuthConfig struct {
	MaxAttempts  int
	LockDuration time.Duration
}

// rosterUpserter is the part of RosterService the login flow needs.
type rosterUpserter interface {
	Upsert(ctx context.Context, user models.User, password string) error
}

type authService struct {
	client   client.Client
	db       *sql.DB
	repo     kv.Repository
	sessions SessionStore
	roster   rosterUpserter
	sched    *scheduler.Scheduler
	alerter  notify.Alerter
	log      logging.Logger
	cfg      AuthConfig

	// serializes the read-modify-write of the attempt counter
	mu sync.Mutex
}

// NewAuthService constructs an AuthService bound to the given API client
// and local database.
func NewAuthService(c client.Client, db *sql.DB, sessions SessionStore, roster rosterUpserter,
	sched *scheduler.Scheduler, alerter notify.Alerter, log logging.Logger, cfg AuthConfig) AuthService {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.LockDuration <= 0 {
		cfg.LockDuration = 5 * time.Minute
	}
	return &authService{
		client:   c,
		db:       db,
		repo:     kv.NewSQLiteRepository(db),
		sessions: sessions,
		roster:   roster,
		sched:    sched,
		alerter:  alerter,
		log:      log,
		cfg:      cfg,
	}
}

func (a *authService) now() time.Time {
	return a.sched.Clock().Now()
}

func (a *authService) readLock(ctx context.Context) (models.LoginLock, bool, error) {
	var lock models.LoginLock
	found, err := kv.GetJSON(ctx, a.repo, kv.KeyLoginLock, &lock)
	if err != nil {
		return lock, false, fmt.Errorf("failed to read login lock: %w", err)
	}
	return lock, found, nil
}

func (a *authService) Init(ctx context.Context) error {
	lock, found, err := a.readLock(ctx)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}

	if lock.Active(a.now()) {
		a.log.Info(ctx, "resuming login lock", "expiry", lock.Expiry)
		a.armLockTimer(lock.Expiry)
		return nil
	}

	return a.clearLock(ctx)
}

func (a *authService) armLockTimer(expiry time.Time) {
	a.sched.At(lockTimerKey, expiry, func() {
		ctx := context.Background()
		if err := a.clearLock(ctx); err != nil {
			a.log.Error(ctx, "failed to clear expired login lock", "error", err)
			return
		}
		a.alerter.Alert(ctx, notify.Alert{Level: notify.LevelInfo, Title: "login.unlocked"})
	})
}

func (a *authService) clearLock(ctx context.Context) error {
	if err := a.repo.Delete(ctx, kv.KeyLoginLock); err != nil {
		return err
	}
	a.log.Info(ctx, "login lock cleared")
	return nil
}

func (a *authService) LockStatus(ctx context.Context) (time.Duration, bool, error) {
	lock, found, err := a.readLock(ctx)
	if err != nil {
		return 0, false, err
	}
	if !found {
		return 0, false, nil
	}

	now := a.now()
	if !lock.Active(now) {
		return 0, false, nil
	}
	return lock.Remaining(now), true, nil
}

func (a *authService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	if sess, ok := a.sessions.Current(); ok {
		return nil, &AlreadyAuthenticatedError{User: sess.User}
	}

	remaining, locked, err := a.LockStatus(ctx)
	if err != nil {
		return nil, err
	}
	if locked {
		return nil, &LockedError{Remaining: remaining}
	}

	email = common.NormalizeEmail(email)

	resp, err := a.client.Login(ctx, email, password)
	switch {
	case err == nil:
		return a.loginSucceeded(ctx, resp, email, password)
	case errors.Is(err, client.ErrUnauthorized):
		a.log.Info(ctx, "login rejected", "email", email)
		return nil, a.loginFailed(ctx)
	case errors.Is(err, client.ErrUnavailable):
		a.log.Warn(ctx, "backend unavailable", "error", err)
		return nil, err
	default:
		return nil, fmt.Errorf("login error: %w", err)
	}
}

func (a *authService) loginSucceeded(ctx context.Context, resp *client.LoginResponse, email, password string) (*LoginResult, error) {
	user := resp.User
	user.Password = ""
	if user.Email == "" {
		user.Email = email
	}
	if !user.Role.Valid() {
		user.Role = models.RoleUser
	}

	a.mu.Lock()
	err := dbx.WithTx(ctx, a.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := kv.NewSQLiteRepository(tx)
		if err := repo.Delete(ctx, kv.KeyLoginAttempts); err != nil {
			return err
		}
		return repo.Delete(ctx, kv.KeyLoginLock)
	})
	a.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("failed to reset login attempts: %w", err)
	}
	a.sched.Cancel(lockTimerKey)

	if err := a.sessions.Save(ctx, session.Session{User: user, Token: resp.Token}); err != nil {
		return nil, err
	}

	if err := a.roster.Upsert(ctx, user, password); err != nil {
		a.log.Warn(ctx, "failed to update roster", "email", user.Email, "error", err)
	}

	return &LoginResult{User: user, Route: RouteFor(user.Role)}, nil
}

func (a *authService) loginFailed(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	attempts, err := kv.GetInt(ctx, a.repo, kv.KeyLoginAttempts)
	if err != nil {
		return fmt.Errorf("failed to read login attempts: %w", err)
	}
	attempts++

	if attempts < a.cfg.MaxAttempts {
		if err := kv.SetInt(ctx, a.repo, kv.KeyLoginAttempts, attempts); err != nil {
			return fmt.Errorf("failed to store login attempts: %w", err)
		}
		return &CredentialsError{Attempt: attempts, Max: a.cfg.MaxAttempts}
	}

	lock := models.LoginLock{Expiry: a.now().Add(a.cfg.LockDuration)}
	err = dbx.WithTx(ctx, a.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := kv.NewSQLiteRepository(tx)
		if err := kv.SetJSON(ctx, repo, kv.KeyLoginLock, lock); err != nil {
			return err
		}
		return kv.SetInt(ctx, repo, kv.KeyLoginAttempts, 0)
	})
	if err != nil {
		return fmt.Errorf("failed to store login lock: %w", err)
	}

	a.log.Info(ctx, "login locked", "expiry", lock.Expiry)
	a.armLockTimer(lock.Expiry)

	return &LockedError{Remaining: a.cfg.LockDuration, Created: true}
}

// Countdown calls fn with the remaining lock time, rounded up to whole
// seconds, once per second. Each reported value is smaller than the one
// before. It returns nil once the lock has expired and ctx.Err() when ctx
// is done first.
func (a *authService) Countdown(ctx context.Context, fn func(remaining time.Duration)) error {
	ticker := a.sched.Clock().NewTicker(time.Second)
	defer ticker.Stop()

	last := time.Duration(-1)
	for {
		remaining, locked, err := a.LockStatus(ctx)
		if err != nil {
			return err
		}
		if !locked {
			return a.clearLock(ctx)
		}

		secs := (remaining + time.Second - 1).Truncate(time.Second)
		if last < 0 || secs < last {
			fn(secs)
			last = secs
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.Chan():
		}
	}
}

func (a *authService) Logout(ctx context.Context) error {
	if _, ok := a.sessions.Current(); !ok {
		return ErrNotAuthenticated
	}
	return a.sessions.Clear(ctx)
}
