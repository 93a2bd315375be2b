package cli

import (
	"context"
	"strings"
	"time"

	"github.com/dmitrijs2005/mindnote/internal/client/models"
	"github.com/dmitrijs2005/mindnote/internal/client/notify"
	"github.com/dmitrijs2005/mindnote/internal/client/services"
	"github.com/dmitrijs2005/mindnote/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Register asks for the registration form, the administrator passphrase
// when the administrator role is chosen, and the acceptance of the terms.
// On success it shows a notice and switches to the login view.
func (a *App) Register(ctx context.Context) error {
	if sess, ok := a.sessions.Current(); ok {
		return &services.AlreadyAuthenticatedError{User: sess.User}
	}

	name, err := getSimpleText(a.reader, a.t("prompt.name", nil), a.out)
	if err != nil {
		return err
	}

	email, err := getSimpleText(a.reader, a.t("prompt.email", nil), a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.out, a.t("prompt.password", nil))
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	role, err := getSimpleText(a.reader, a.t("prompt.role", nil), a.out)
	if err != nil {
		return err
	}
	if strings.TrimSpace(role) == "" {
		role = string(models.RoleUser)
	}

	r := services.Registration{
		Name:     name,
		Email:    email,
		Password: string(password),
		Role:     models.Role(strings.ToLower(strings.TrimSpace(role))),
	}

	if r.Role == models.RoleAdministrator {
		passphrase, err := getPassword(a.out, a.t("prompt.passphrase", nil))
		if err != nil {
			return err
		}
		r.AdminPassphrase = string(passphrase)
		common.WipeByteArray(passphrase)
	}

	if err := a.Terms(ctx); err != nil {
		return err
	}
	r.AcceptTerms, err = a.confirmer.Confirm(ctx, notify.Alert{Level: notify.LevelInfo, Title: "register.accept"})
	if err != nil {
		return err
	}

	res, err := a.registrationService.Register(ctx, r)
	if err != nil {
		return err
	}

	a.alert(ctx, notify.LevelSuccess, "register.success.title", "register.success.text",
		map[string]any{"Name": res.User.Name})
	a.navigate(ctx, res.Route)
	return nil
}

// Login asks for credentials and authenticates. On success it shows the
// welcome notice and opens the view of the user's role.
func (a *App) Login(ctx context.Context) error {
	if sess, ok := a.sessions.Current(); ok {
		return &services.AlreadyAuthenticatedError{User: sess.User}
	}

	// a locked login is reported before asking for anything
	if remaining, locked, err := a.authService.LockStatus(ctx); err != nil {
		return err
	} else if locked {
		return &services.LockedError{Remaining: remaining}
	}

	email, err := getSimpleText(a.reader, a.t("prompt.email", nil), a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.out, a.t("prompt.password", nil))
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	res, err := a.authService.Login(ctx, email, string(password))
	if err != nil {
		return err
	}

	a.alert(ctx, notify.LevelSuccess, "login.welcome.title", "login.welcome.text", map[string]any{
		"Name": res.User.Name,
		"Role": a.t("role."+string(res.User.Role), nil),
	})
	a.navigate(ctx, res.Route)
	return nil
}

// Terms prints the terms and conditions.
func (a *App) Terms(ctx context.Context) error {
	terms := a.registrationService.Terms()
	printlnFn(a.t(terms.Title, nil))
	for i, id := range terms.Clauses {
		printlnFn(a.t(id, map[string]any{"N": i + 1}))
	}
	return nil
}

// Wait follows the login lock, printing the remaining time once per
// second until it expires.
func (a *App) Wait(ctx context.Context) error {
	if _, locked, err := a.authService.LockStatus(ctx); err != nil {
		return err
	} else if !locked {
		a.alert(ctx, notify.LevelInfo, "login.notlocked", "", nil)
		return nil
	}

	return a.authService.Countdown(ctx, func(remaining time.Duration) {
		secs := int(remaining / time.Second)
		printlnFn(a.t("login.countdown", map[string]any{"Minutes": secs / 60, "Seconds": secs % 60}))
	})
}

// Logout ends the session and returns to the login view.
func (a *App) Logout(ctx context.Context) error {
	if err := a.authService.Logout(ctx); err != nil {
		return err
	}
	a.view = services.RouteLogin
	a.alert(ctx, notify.LevelInfo, "logout.done", "", nil)
	return nil
}

// Help prints the commands of the current view.
func (a *App) Help(ctx context.Context) error {
	switch {
	case !a.isLoggedIn():
		printlnFn(a.t("help.login", nil))
	case a.view == services.RouteAdmin:
		printlnFn(a.t("help.admin", nil))
	default:
		printlnFn(a.t("help.notes", nil))
	}
	return nil
}
