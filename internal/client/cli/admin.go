package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/mindnote/internal/client/notify"
	"github.com/dmitrijs2005/mindnote/internal/client/services"
)

func (a *App) openAdmin(ctx context.Context) error {
	if err := a.rosterService.Open(ctx); err != nil {
		return err
	}
	a.printUsers()
	return nil
}

// Users opens the administrator view (reloading the roster) and lists
// the registered users.
func (a *App) Users(ctx context.Context) error {
	if err := a.openAdmin(ctx); err != nil {
		return err
	}
	a.view = services.RouteAdmin
	return nil
}

// DeleteUser removes email from the roster after confirmation. Deleting
// the session's own account ends the session.
func (a *App) DeleteUser(ctx context.Context, email string) error {
	if a.view != services.RouteAdmin {
		if err := a.Users(ctx); err != nil {
			return err
		}
	}

	res, err := a.rosterService.Delete(ctx, email)
	if err != nil {
		return err
	}

	if res.SelfDeleted {
		a.view = services.RouteLogin
		a.alert(ctx, notify.LevelInfo, "admin.selfdeleted.title", "admin.selfdeleted.text", nil)
		return nil
	}

	a.alert(ctx, notify.LevelSuccess, "admin.deleted.title", "admin.deleted.text",
		map[string]any{"Email": res.Account.Email})
	a.printUsers()
	return nil
}

func (a *App) printUsers() {
	users := a.rosterService.Users()
	printlnFn(a.t("admin.header", map[string]any{"Count": len(users)}))
	if len(users) == 0 {
		printlnFn(a.t("admin.empty", nil))
		return
	}
	for i, u := range users {
		printlnFn(fmt.Sprintf("%3d. %-24s %-32s %s", i+1, u.Name, u.Email, a.t("role."+string(u.Role), nil)))
	}
}
