// Package notify delivers alerts, desktop notifications and confirmation
// prompts to the user.
//
// Services describe what to show with message IDs and template data; the
// implementations render them through a Localizer so that services stay
// independent of the display language.
package notify

import (
	"context"

	"github.com/dmitrijs2005/mindnote/internal/client/models"
)

type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Alert is an in-app message. Title and Text are message IDs.
type Alert struct {
	Level Level
	Title string
	Text  string
	Data  map[string]any
}

// Localizer renders a message ID with template data.
type Localizer interface {
	T(id string, data map[string]any) string
}

type Alerter interface {
	Alert(ctx context.Context, a Alert)
}

// Notifier shows system notifications outside the application flow.
type Notifier interface {
	// RequestPermission asks the user whether notifications may be shown.
	RequestPermission(ctx context.Context) (models.NotificationPermission, error)
	Notify(ctx context.Context, n Alert) error
}

// Confirmer asks a yes/no question before a destructive action.
type Confirmer interface {
	Confirm(ctx context.Context, a Alert) (bool, error)
}
