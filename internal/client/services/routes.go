package services

import (
	"context"

	"github.com/dmitrijs2005/mindnote/internal/client/models"
	"github.com/dmitrijs2005/mindnote/internal/client/session"
)

// Route names the view a flow leads to.
type Route string

const (
	RouteLogin    Route = "login"
	RouteRegister Route = "register"
	RouteNotes    Route = "notes"
	RouteAdmin    Route = "admin"
)

// RouteFor returns the landing view for role.
func RouteFor(role models.Role) Route {
	if role == models.RoleAdministrator {
		return RouteAdmin
	}
	return RouteNotes
}

// SessionStore is the session API the services depend on.
type SessionStore interface {
	Current() (*session.Session, bool)
	IsOwner(email string) bool
	Save(ctx context.Context, s session.Session) error
	Clear(ctx context.Context) error
	Subscribe(l session.Listener) func()
}
