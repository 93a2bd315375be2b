package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/mindnote/internal/client/models"
	"github.com/dmitrijs2005/mindnote/internal/client/notify"
	"github.com/dmitrijs2005/mindnote/internal/client/services"
	"github.com/dmitrijs2005/mindnote/internal/client/session"
	"github.com/dmitrijs2005/mindnote/internal/logging"
	"github.com/jonboulle/clockwork"
)

var (
	ana  = models.User{Name: "Ana", Email: "ana@example.com", Role: models.RoleUser}
	boss = models.User{Name: "Boss", Email: "boss@example.com", Role: models.RoleAdministrator}

	start = time.Date(2030, 5, 1, 9, 0, 0, 0, time.UTC)
)

// idLocalizer renders a message as its id followed by its data.
type idLocalizer struct{}

func (idLocalizer) T(id string, data map[string]any) string {
	if len(data) == 0 {
		return id
	}
	return id + " " + fmt.Sprint(data)
}

type fakeSessions struct {
	mu   sync.Mutex
	sess *session.Session
}

func (f *fakeSessions) Current() (*session.Session, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sess == nil {
		return nil, false
	}
	s := *f.sess
	return &s, true
}

func (f *fakeSessions) set(u *models.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u == nil {
		f.sess = nil
		return
	}
	f.sess = &session.Session{User: *u}
}

type fakeAuth struct {
	sessions *fakeSessions

	remaining time.Duration
	locked    bool

	loginErr error
	logins   []string
	ticks    []time.Duration
}

func (f *fakeAuth) Init(ctx context.Context) error { return nil }

func (f *fakeAuth) Login(ctx context.Context, email, password string) (*services.LoginResult, error) {
	f.logins = append(f.logins, email+"/"+password)
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	u := ana
	if email == boss.Email {
		u = boss
	}
	f.sessions.set(&u)
	return &services.LoginResult{User: u, Route: services.RouteFor(u.Role)}, nil
}

func (f *fakeAuth) LockStatus(ctx context.Context) (time.Duration, bool, error) {
	return f.remaining, f.locked, nil
}

func (f *fakeAuth) Countdown(ctx context.Context, fn func(time.Duration)) error {
	for _, d := range f.ticks {
		fn(d)
	}
	f.locked = false
	return nil
}

func (f *fakeAuth) Logout(ctx context.Context) error {
	if _, ok := f.sessions.Current(); !ok {
		return services.ErrNotAuthenticated
	}
	f.sessions.set(nil)
	return nil
}

type fakeRegistration struct {
	got []services.Registration
	err error
}

func (f *fakeRegistration) Register(ctx context.Context, r services.Registration) (*services.RegisterResult, error) {
	f.got = append(f.got, r)
	if f.err != nil {
		return nil, f.err
	}
	return &services.RegisterResult{User: models.User{Name: r.Name, Email: r.Email, Role: r.Role}, Route: services.RouteLogin}, nil
}

func (f *fakeRegistration) Terms() services.Terms {
	return services.Terms{Title: "terms.title", Clauses: []string{"terms.clause.1", "terms.clause.2"}}
}

type savedNote struct {
	Text  string
	At    time.Time
	Index int
}

type fakeNotes struct {
	notes []models.Note

	opens   int
	openErr error
	saveErr error
	saved   []savedNote
	toggled []int
	deleted []int
}

func (f *fakeNotes) Open(ctx context.Context) ([]models.IndexedNote, error) {
	f.opens++
	if f.openErr != nil {
		return nil, f.openErr
	}
	return f.Notes(), nil
}

func (f *fakeNotes) Save(ctx context.Context, text string, at time.Time, editIndex int) (*services.SaveResult, error) {
	f.saved = append(f.saved, savedNote{Text: text, At: at, Index: editIndex})
	if f.saveErr != nil {
		return nil, f.saveErr
	}
	n := models.Note{ID: fmt.Sprintf("n%d", len(f.notes)), Text: text, Time: at, Owner: ana.Email}
	if editIndex == services.NewNote {
		f.notes = append(f.notes, n)
		return &services.SaveResult{Note: n, Index: len(f.notes) - 1}, nil
	}
	n.ID = f.notes[editIndex].ID
	f.notes[editIndex] = n
	return &services.SaveResult{Note: n, Index: editIndex, Edited: true}, nil
}

func (f *fakeNotes) Toggle(ctx context.Context, index int) (models.Note, error) {
	f.toggled = append(f.toggled, index)
	f.notes[index].Done = !f.notes[index].Done
	return f.notes[index], nil
}

func (f *fakeNotes) Delete(ctx context.Context, index int) error {
	f.deleted = append(f.deleted, index)
	f.notes = append(f.notes[:index], f.notes[index+1:]...)
	return nil
}

func (f *fakeNotes) Day(day time.Time) []models.IndexedNote {
	var out []models.IndexedNote
	for _, in := range f.Notes() {
		if in.SameDay(day) {
			out = append(out, in)
		}
	}
	return out
}

func (f *fakeNotes) Notes() []models.IndexedNote {
	out := make([]models.IndexedNote, 0, len(f.notes))
	for i, n := range f.notes {
		out = append(out, models.IndexedNote{Index: i, Note: n})
	}
	return out
}

func (f *fakeNotes) Close() {}

type fakeRoster struct {
	sessions *fakeSessions

	accounts  []models.Account
	opens     int
	deleted   []string
	deleteErr error
}

func (f *fakeRoster) Open(ctx context.Context) error {
	f.opens++
	sess, ok := f.sessions.Current()
	if !ok || sess.User.Role != models.RoleAdministrator {
		return services.ErrForbidden
	}
	return nil
}

func (f *fakeRoster) Users() []models.Account { return f.accounts }

func (f *fakeRoster) Delete(ctx context.Context, email string) (*services.DeleteResult, error) {
	f.deleted = append(f.deleted, email)
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}
	res := &services.DeleteResult{Account: models.Account{Email: email}}
	if sess, ok := f.sessions.Current(); ok && sess.User.Email == email {
		f.sessions.set(nil)
		res.SelfDeleted = true
	}
	return res, nil
}

func (f *fakeRoster) Upsert(ctx context.Context, user models.User, password string) error { return nil }

type env struct {
	app      *App
	rec      *notify.Recorder
	sessions *fakeSessions
	auth     *fakeAuth
	reg      *fakeRegistration
	notes    *fakeNotes
	roster   *fakeRoster
	clock    *clockwork.FakeClock
	lines    []string
}

func newEnv(t *testing.T) *env {
	t.Helper()

	e := &env{
		rec:      notify.NewRecorder(),
		sessions: &fakeSessions{},
		reg:      &fakeRegistration{},
		notes:    &fakeNotes{},
		clock:    clockwork.NewFakeClockAt(start),
	}
	e.auth = &fakeAuth{sessions: e.sessions}
	e.roster = &fakeRoster{sessions: e.sessions}

	e.app = &App{
		log:                 logging.Discard(),
		clock:               e.clock,
		tr:                  idLocalizer{},
		alerter:             e.rec,
		confirmer:           e.rec,
		sessions:            e.sessions,
		authService:         e.auth,
		registrationService: e.reg,
		notesService:        e.notes,
		rosterService:       e.roster,
		view:                services.RouteLogin,
		day:                 start,
		reader:              bufio.NewReader(strings.NewReader("")),
		out:                 io.Discard,
	}

	origPrint := printlnFn
	printlnFn = func(a ...any) (int, error) {
		e.lines = append(e.lines, fmt.Sprint(a...))
		return 0, nil
	}
	t.Cleanup(func() { printlnFn = origPrint })

	return e
}

// answers makes getSimpleText return the given answers in order and
// getPassword return passwords in order.
func (e *env) answers(t *testing.T, texts []string, passwords []string) *[]string {
	t.Helper()

	var prompts []string
	origText, origPass := getSimpleText, getPassword
	getSimpleText = func(_ *bufio.Reader, prompt string, _ io.Writer) (string, error) {
		prompts = append(prompts, prompt)
		if len(texts) == 0 {
			return "", io.EOF
		}
		s := texts[0]
		texts = texts[1:]
		return s, nil
	}
	getPassword = func(_ io.Writer, prompt string) ([]byte, error) {
		prompts = append(prompts, prompt)
		if len(passwords) == 0 {
			return nil, io.EOF
		}
		p := passwords[0]
		passwords = passwords[1:]
		return []byte(p), nil
	}
	t.Cleanup(func() { getSimpleText, getPassword = origText, origPass })
	return &prompts
}

func (e *env) output() string {
	return strings.Join(e.lines, "\n")
}
