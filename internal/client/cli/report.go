package cli

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/mindnote/internal/client/notify"
	"github.com/dmitrijs2005/mindnote/internal/client/services"
)

var (
	errBadTime  = errors.New("bad note time")
	errBadIndex = errors.New("bad note number")
	errBadDate  = errors.New("bad date")
)

// report turns a command error into an alert. Errors that leave the
// current view unusable also switch the view.
func (a *App) report(ctx context.Context, err error) {
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}

	var (
		already     *services.AlreadyAuthenticatedError
		locked      *services.LockedError
		credentials *services.CredentialsError
		invalid     *services.ValidationError
		rejected    *services.RejectedError
	)

	switch {
	case errors.As(err, &already):
		a.alert(ctx, notify.LevelWarning, "login.already.title", "login.already.text",
			map[string]any{"Role": a.t("role."+string(already.User.Role), nil)})
		a.navigate(ctx, already.Route())

	case errors.As(err, &locked):
		data := map[string]any{"Minutes": locked.Minutes()}
		if locked.Created {
			a.alert(ctx, notify.LevelError, "login.toomany.title", "login.toomany.text", data)
		} else {
			a.alert(ctx, notify.LevelWarning, "login.locked.title", "login.locked.text", data)
		}

	case errors.As(err, &credentials):
		a.alert(ctx, notify.LevelError, "login.bad.title", "login.bad.text",
			map[string]any{"Attempt": credentials.Attempt, "Max": credentials.Max})

	case errors.As(err, &invalid):
		switch {
		case invalid.Missing():
			a.alert(ctx, notify.LevelWarning, "register.required", "", nil)
		case invalid.Has("email"):
			a.alert(ctx, notify.LevelWarning, "register.invalid.email", "", nil)
		default:
			a.alert(ctx, notify.LevelWarning, "register.invalid.role", "", nil)
		}

	case errors.Is(err, services.ErrTermsNotAccepted):
		a.alert(ctx, notify.LevelWarning, "register.terms", "", nil)

	case errors.Is(err, services.ErrBadAdminPassphrase):
		a.alert(ctx, notify.LevelError, "register.passphrase", "", nil)

	case errors.As(err, &rejected):
		if rejected.Message == "" {
			a.alert(ctx, notify.LevelError, "register.rejected", "", nil)
		} else {
			a.alert(ctx, notify.LevelError, "register.rejected.custom", "", map[string]any{"Message": rejected.Message})
		}

	case errors.Is(err, services.ErrUnavailable):
		a.alert(ctx, notify.LevelError, "error.unavailable.title", "error.unavailable.text", nil)

	case errors.Is(err, services.ErrNotAuthenticated):
		a.alert(ctx, notify.LevelWarning, "notes.restricted.title", "notes.restricted.text", nil)
		a.view = services.RouteLogin

	case errors.Is(err, services.ErrForbidden):
		a.alert(ctx, notify.LevelError, "admin.denied.title", "admin.denied.text", nil)
		a.view = services.RouteLogin

	case errors.Is(err, services.ErrCancelled):
		a.alert(ctx, notify.LevelInfo, "cancelled", "", nil)

	case errors.Is(err, services.ErrEmptyNote):
		a.alert(ctx, notify.LevelWarning, "note.empty", "", nil)

	case errors.Is(err, services.ErrPastTime):
		a.alert(ctx, notify.LevelError, "note.past.title", "note.past.text", nil)

	case errors.Is(err, services.ErrDuplicateTime):
		a.alert(ctx, notify.LevelError, "note.duplicate.title", "note.duplicate.text", nil)

	case errors.Is(err, services.ErrNoSuchNote), errors.Is(err, errBadIndex):
		a.alert(ctx, notify.LevelWarning, "note.missing", "", nil)

	case errors.Is(err, errBadTime):
		a.alert(ctx, notify.LevelWarning, "note.badtime", "", nil)

	case errors.Is(err, errBadDate):
		a.alert(ctx, notify.LevelWarning, "notes.baddate", "", nil)

	case errors.Is(err, services.ErrNoSuchUser):
		a.alert(ctx, notify.LevelWarning, "admin.missing", "", nil)

	default:
		a.log.Error(ctx, "command failed", "error", err)
		a.alert(ctx, notify.LevelError, "error.title", "error.generic", map[string]any{"Error": err.Error()})
	}
}

func (a *App) alert(ctx context.Context, level notify.Level, title, text string, data map[string]any) {
	a.alerter.Alert(ctx, notify.Alert{Level: level, Title: title, Text: text, Data: data})
}
