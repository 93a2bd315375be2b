package services

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/mindnote/internal/client/client"
	"github.com/dmitrijs2005/mindnote/internal/client/models"
	"github.com/dmitrijs2005/mindnote/internal/client/notify"
	"github.com/dmitrijs2005/mindnote/internal/client/repositories/kv"
	"github.com/dmitrijs2005/mindnote/internal/client/scheduler"
	"github.com/dmitrijs2005/mindnote/internal/client/session"
	"github.com/dmitrijs2005/mindnote/internal/logging"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

const waitFor = time.Second

var (
	ana   = models.User{Name: "Ana", Email: "ana@x.com", Role: models.RoleUser}
	boss  = models.User{Name: "Boss", Email: "boss@x.com", Role: models.RoleAdministrator}
	start = time.Date(2030, 5, 1, 10, 0, 0, 0, time.UTC)
)

// ---- fake client ----

type fakeClient struct {
	mu sync.Mutex

	LoginResp *client.LoginResponse
	LoginErr  error
	// Accounts, when set, makes Login succeed for a known email/password
	// pair and fail with ErrUnauthorized otherwise.
	Accounts map[string]models.User

	RegisterErr error

	LoginCalls    int
	LastEmail     string
	LastPassword  string
	RegisterCalls int
	LastRegister  client.RegisterRequest
}

func (f *fakeClient) Login(_ context.Context, email, password string) (*client.LoginResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.LoginCalls++
	f.LastEmail = email
	f.LastPassword = password

	if f.Accounts != nil {
		u, ok := f.Accounts[email]
		if !ok || u.Password != password {
			return nil, client.ErrUnauthorized
		}
		u.Password = ""
		return &client.LoginResponse{Success: true, User: u, Token: "tok-" + email}, nil
	}
	return f.LoginResp, f.LoginErr
}

func (f *fakeClient) Register(_ context.Context, req client.RegisterRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.RegisterCalls++
	f.LastRegister = req
	if f.RegisterErr != nil {
		return f.RegisterErr
	}
	if f.Accounts != nil {
		f.Accounts[req.Email] = models.User{Name: req.Name, Email: req.Email, Password: req.Password, Role: req.Role}
	}
	return nil
}

func (f *fakeClient) loginCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.LoginCalls
}

// ---- environment ----

type env struct {
	db       *sql.DB
	repo     kv.Repository
	clock    *clockwork.FakeClock
	sched    *scheduler.Scheduler
	sessions *session.Store
	rec      *notify.Recorder
	client   *fakeClient
	log      logging.Logger
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db, err := client.InitDatabase(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	clock := clockwork.NewFakeClockAt(start)
	sched := scheduler.New(clock)
	t.Cleanup(sched.Stop)

	log := logging.Discard()
	return &env{
		db:       db,
		repo:     kv.NewSQLiteRepository(db),
		clock:    clock,
		sched:    sched,
		sessions: session.NewStore(db, clock, log),
		rec:      notify.NewRecorder(),
		client:   &fakeClient{},
		log:      log,
	}
}

func (e *env) roster() RosterService {
	return NewRosterService(e.db, e.sessions, e.rec, e.clock, e.log)
}

func (e *env) auth(cfg AuthConfig) AuthService {
	return NewAuthService(e.client, e.db, e.sessions, e.roster(), e.sched, e.rec, e.log, cfg)
}

func (e *env) registration() RegistrationService {
	return NewRegistrationService(e.client, e.sessions, e.roster(), e.log)
}

func (e *env) notes(t *testing.T) NotesService {
	t.Helper()
	s := NewNotesService(e.db, e.sessions, e.sched, e.rec, e.rec, e.rec, e.log,
		NotesConfig{PreAlertLead: 5 * time.Minute, OverdueGrace: time.Minute})
	t.Cleanup(s.Close)
	return s
}

func (e *env) login(t *testing.T, u models.User) {
	t.Helper()
	require.NoError(t, e.sessions.Save(context.Background(), session.Session{User: u, Token: "tok"}))
}

func (e *env) getInt(t *testing.T, key string) int {
	t.Helper()
	n, err := kv.GetInt(context.Background(), e.repo, key)
	require.NoError(t, err)
	return n
}

func (e *env) has(t *testing.T, key string) bool {
	t.Helper()
	v, err := e.repo.Get(context.Background(), key)
	require.NoError(t, err)
	return v != nil
}

func (e *env) alertTitles() []string {
	return e.rec.AlertTitles()
}
