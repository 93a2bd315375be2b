package cli

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dmitrijs2005/mindnote/internal/client/client"
	"github.com/dmitrijs2005/mindnote/internal/client/config"
	"github.com/dmitrijs2005/mindnote/internal/client/i18n"
	"github.com/dmitrijs2005/mindnote/internal/client/notify"
	"github.com/dmitrijs2005/mindnote/internal/client/scheduler"
	"github.com/dmitrijs2005/mindnote/internal/client/services"
	"github.com/dmitrijs2005/mindnote/internal/client/session"
	"github.com/dmitrijs2005/mindnote/internal/logging"
	"github.com/jonboulle/clockwork"
)

// sessionView is the read side of the session store the CLI needs.
type sessionView interface {
	Current() (*session.Session, bool)
}

type App struct {
	config *config.Config
	log    logging.Logger
	clock  clockwork.Clock

	tr        notify.Localizer
	alerter   notify.Alerter
	confirmer notify.Confirmer
	sessions  sessionView

	authService         services.AuthService
	registrationService services.RegistrationService
	notesService        services.NotesService
	rosterService       services.RosterService

	// view is the current screen; day is the calendar day the notes view shows.
	view services.Route
	day  time.Time

	reader *bufio.Reader
	out    io.Writer

	closers []func()
}

// NewApp opens the local database and wires every service of the client.
func NewApp(ctx context.Context, c *config.Config, log logging.Logger) (*App, error) {
	tr, err := i18n.New(c.Language)
	if err != nil {
		return nil, fmt.Errorf("error loading messages: %w", err)
	}

	db, err := client.InitDatabase(ctx, c.DBPath)
	if err != nil {
		log.Error(ctx, "error initializing database", "path", c.DBPath, "error", err)
		return nil, err
	}

	clock := clockwork.NewRealClock()
	sched := scheduler.New(clock)
	store := session.NewStore(db, clock, log.With("component", "session"))
	apiClient := client.NewHTTPClient(c.BackendURL, c.RequestTimeout)

	a := &App{
		config:   c,
		log:      log,
		clock:    clock,
		tr:       tr,
		sessions: store,
		view:     services.RouteLogin,
		day:      clock.Now(),
		reader:   bufio.NewReader(os.Stdin),
		out:      os.Stdout,
	}

	console := notify.NewConsole(a.out, tr, func(prompt string) (string, error) {
		return getSimpleText(a.reader, prompt, a.out)
	})
	a.alerter = console
	a.confirmer = console

	roster := services.NewRosterService(db, store, console, clock, log.With("component", "roster"))
	a.rosterService = roster
	a.authService = services.NewAuthService(apiClient, db, store, roster, sched, console, log.With("component", "auth"), services.AuthConfig{
		MaxAttempts:  c.MaxLoginAttempts,
		LockDuration: c.LockDuration,
	})
	a.registrationService = services.NewRegistrationService(apiClient, store, roster, log.With("component", "registration"))
	a.notesService = services.NewNotesService(db, store, sched, console, console, console, log.With("component", "notes"), services.NotesConfig{
		PreAlertLead: c.PreAlertLead,
		OverdueGrace: c.OverdueGrace,
	})

	if _, err := store.Load(ctx); err != nil {
		closeDB(ctx, log, db)
		return nil, err
	}

	a.closers = append(a.closers, a.notesService.Close, sched.Stop, func() { closeDB(ctx, log, db) })
	return a, nil
}

func closeDB(ctx context.Context, log logging.Logger, db *sql.DB) {
	if err := db.Close(); err != nil {
		log.Warn(ctx, "error closing database", "error", err)
	}
}

// Run resumes the lock and the session, then blocks in the REPL until the
// user exits or ctx is done.
func (a *App) Run(ctx context.Context) {
	defer a.Close()

	if err := a.authService.Init(ctx); err != nil {
		a.report(ctx, err)
	}

	if sess, ok := a.sessions.Current(); ok {
		a.navigate(ctx, services.RouteFor(sess.User.Role))
	}

	printlnFn(a.t("welcome", nil))
	runREPL(ctx, a, a.status, a.reader)
}

// Close releases timers and the database. It is safe to call more than once.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func (a *App) t(id string, data map[string]any) string {
	return a.tr.T(id, data)
}

func (a *App) isLoggedIn() bool {
	_, ok := a.sessions.Current()
	return ok
}

// status is the prompt text: the lock countdown while locked, otherwise
// the session user and the current view.
func (a *App) status() string {
	if remaining, locked, err := a.authService.LockStatus(context.Background()); err == nil && locked {
		return a.t("status.locked", map[string]any{"Clock": formatClock(remaining)})
	}
	if sess, ok := a.sessions.Current(); ok {
		return fmt.Sprintf("%s %s %s", sess.User.Email, a.t("role."+string(sess.User.Role), nil), a.view)
	}
	return string(a.view)
}

// navigate switches the view and opens the service behind it. A view that
// cannot be opened falls back to login.
func (a *App) navigate(ctx context.Context, route services.Route) {
	a.view = route

	var err error
	switch route {
	case services.RouteNotes:
		err = a.openNotes(ctx)
	case services.RouteAdmin:
		err = a.openAdmin(ctx)
	}
	if err != nil {
		a.report(ctx, err)
		a.view = services.RouteLogin
	}
}

// formatClock renders d as mm:ss, rounded up to the second.
func formatClock(d time.Duration) string {
	secs := int((d + time.Second - 1) / time.Second)
	if secs < 0 {
		secs = 0
	}
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}
