package kv

import "github.com/dmitrijs2005/mindnote/internal/common"

// Well-known storage keys.
const (
	KeyUser                   = "user"
	KeyToken                  = "token"
	KeyRegisteredUsers        = "registeredUsers"
	KeyLoginAttempts          = "loginAttempts"
	KeyLoginLock              = "loginLock"
	KeyNotificationPermission = "notificationPermission"

	tasksPrefix = "tasks_"
)

// TasksKey returns the key holding the note list of the user with email.
func TasksKey(email string) string {
	return tasksPrefix + common.NormalizeEmail(email)
}
