package services

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/mindnote/internal/client/models"
	"github.com/dmitrijs2005/mindnote/internal/client/notify"
	"github.com/dmitrijs2005/mindnote/internal/client/repositories/kv"
	"github.com/dmitrijs2005/mindnote/internal/common"
	"github.com/dmitrijs2005/mindnote/internal/cryptox"
	"github.com/dmitrijs2005/mindnote/internal/logging"
	"github.com/jonboulle/clockwork"
)

// RosterService manages the locally cached list of registered accounts
// shown to administrators.
//
// Contract:
//   - Open: requires an administrator session and loads the roster.
//   - Users: the roster as loaded by Open and changed by Delete/Upsert.
//   - Delete: removes an account after confirmation; deleting the account
//     of the current session also ends the session.
//   - Upsert: records an account on registration and login.
type RosterService interface {
	Open(ctx context.Context) error
	Users() []models.Account
	Delete(ctx context.Context, email string) (*DeleteResult, error)
	Upsert(ctx context.Context, user models.User, password string) error
}

type DeleteResult struct {
	Account     models.Account
	SelfDeleted bool
}

type rosterService struct {
	repo      kv.Repository
	sessions  SessionStore
	confirmer notify.Confirmer
	clock     clockwork.Clock
	log       logging.Logger

	mu       sync.Mutex
	accounts []models.Account
}

func NewRosterService(db *sql.DB, sessions SessionStore, confirmer notify.Confirmer, clock clockwork.Clock, log logging.Logger) RosterService {
	return &rosterService{
		repo:      kv.NewSQLiteRepository(db),
		sessions:  sessions,
		confirmer: confirmer,
		clock:     clock,
		log:       log,
	}
}

func (r *rosterService) requireAdmin() error {
	sess, ok := r.sessions.Current()
	if !ok || !sess.User.IsAdmin() {
		return ErrForbidden
	}
	return nil
}

func (r *rosterService) load(ctx context.Context) ([]models.Account, error) {
	var accounts []models.Account
	if _, err := kv.GetJSON(ctx, r.repo, kv.KeyRegisteredUsers, &accounts); err != nil {
		return nil, fmt.Errorf("failed to load roster: %w", err)
	}
	return accounts, nil
}

func (r *rosterService) store(ctx context.Context, accounts []models.Account) error {
	if accounts == nil {
		accounts = []models.Account{}
	}
	if err := kv.SetJSON(ctx, r.repo, kv.KeyRegisteredUsers, accounts); err != nil {
		return fmt.Errorf("failed to save roster: %w", err)
	}
	return nil
}

func (r *rosterService) Open(ctx context.Context) error {
	if err := r.requireAdmin(); err != nil {
		return err
	}

	accounts, err := r.load(ctx)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.accounts = accounts
	r.mu.Unlock()
	return nil
}

func (r *rosterService) Users() []models.Account {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]models.Account, len(r.accounts))
	for i, a := range r.accounts {
		a.PasswordHash = ""
		out[i] = a
	}
	return out
}

func (r *rosterService) Delete(ctx context.Context, email string) (*DeleteResult, error) {
	if err := r.requireAdmin(); err != nil {
		return nil, err
	}

	email = common.NormalizeEmail(email)

	r.mu.Lock()
	idx := indexOfAccount(r.accounts, email)
	r.mu.Unlock()
	if idx < 0 {
		return nil, ErrNoSuchUser
	}

	ok, err := r.confirmer.Confirm(ctx, notify.Alert{
		Level: notify.LevelWarning,
		Title: "admin.delete.confirm.title",
		Text:  "admin.delete.confirm.text",
		Data:  map[string]any{"Email": email},
	})
	if err != nil {
		return nil, fmt.Errorf("confirmation failed: %w", err)
	}
	if !ok {
		return nil, ErrCancelled
	}

	r.mu.Lock()
	// the roster may have changed while the question was open
	idx = indexOfAccount(r.accounts, email)
	if idx < 0 {
		r.mu.Unlock()
		return nil, ErrNoSuchUser
	}
	removed := r.accounts[idx]
	next := make([]models.Account, 0, len(r.accounts)-1)
	next = append(next, r.accounts[:idx]...)
	next = append(next, r.accounts[idx+1:]...)

	if err := r.store(ctx, next); err != nil {
		r.mu.Unlock()
		return nil, err
	}
	r.accounts = next
	r.mu.Unlock()

	r.log.Info(ctx, "account removed from roster", "email", email)
	removed.PasswordHash = ""
	res := &DeleteResult{Account: removed}

	if r.sessions.IsOwner(email) {
		if err := r.sessions.Clear(ctx); err != nil {
			return nil, err
		}
		res.SelfDeleted = true
	}

	return res, nil
}

// Upsert stores user in the roster. A new password hash is computed only
// when the stored one does not verify against password; the registration
// time of an existing entry is kept.
func (r *rosterService) Upsert(ctx context.Context, user models.User, password string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	accounts, err := r.load(ctx)
	if err != nil {
		return err
	}

	email := common.NormalizeEmail(user.Email)
	idx := indexOfAccount(accounts, email)

	var acc models.Account
	if idx >= 0 {
		acc = accounts[idx]
	} else {
		acc = models.Account{Email: email, RegisteredAt: r.clock.Now()}
	}

	if user.Name != "" {
		acc.Name = user.Name
	}
	if user.Role.Valid() {
		acc.Role = user.Role
	}

	if password != "" {
		same := false
		if acc.PasswordHash != "" {
			same, err = cryptox.VerifyPassword(acc.PasswordHash, []byte(password))
			if err != nil {
				r.log.Warn(ctx, "discarding malformed roster hash", "email", email, "error", err)
			}
		}
		if !same {
			acc.PasswordHash = cryptox.HashPassword([]byte(password))
		}
	}

	if idx >= 0 {
		accounts[idx] = acc
	} else {
		accounts = append(accounts, acc)
	}

	if err := r.store(ctx, accounts); err != nil {
		return err
	}
	r.accounts = accounts
	return nil
}

func indexOfAccount(accounts []models.Account, email string) int {
	for i, a := range accounts {
		if common.NormalizeEmail(a.Email) == email {
			return i
		}
	}
	return -1
}
