package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/mindnote/internal/client/client"
	"github.com/dmitrijs2005/mindnote/internal/client/models"
)

var (
	ErrAlreadyAuthenticated = errors.New("already authenticated")
	ErrNotAuthenticated     = errors.New("not authenticated")
	ErrForbidden            = errors.New("forbidden")
	ErrCancelled            = errors.New("cancelled")

	// ErrUnavailable is the backend client's error, re-exported so callers
	// of the services need not import the client package.
	ErrUnavailable = client.ErrUnavailable

	ErrTermsNotAccepted   = errors.New("terms and conditions not accepted")
	ErrBadAdminPassphrase = errors.New("wrong administrator passphrase")

	ErrEmptyNote     = errors.New("note text and time are required")
	ErrPastTime      = errors.New("note time is in the past")
	ErrDuplicateTime = errors.New("another note is scheduled at the same time")
	ErrNoSuchNote    = errors.New("no such note")
	ErrNoSuchUser    = errors.New("no such user")
)

// RejectedError is a registration refused by the backend.
type RejectedError = client.RejectedError

// AlreadyAuthenticatedError is returned by login and registration while a
// session is active. It matches ErrAlreadyAuthenticated.
type AlreadyAuthenticatedError struct {
	User models.User
}

func (e *AlreadyAuthenticatedError) Error() string {
	return fmt.Sprintf("already authenticated as %s (%s)", e.User.Email, e.User.Role)
}

func (e *AlreadyAuthenticatedError) Is(target error) bool {
	return target == ErrAlreadyAuthenticated
}

// Route is the view the session's role leads to.
func (e *AlreadyAuthenticatedError) Route() Route {
	return RouteFor(e.User.Role)
}

// LockedError reports an active login lock. Created is set when the failed
// attempt that was just made triggered the lock.
type LockedError struct {
	Remaining time.Duration
	Created   bool
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("login locked for %s", e.Remaining.Round(time.Second))
}

// Minutes is the remaining wait rounded up to whole minutes.
func (e *LockedError) Minutes() int {
	return ceilMinutes(e.Remaining)
}

// CredentialsError is a rejected login below the lock threshold.
type CredentialsError struct {
	Attempt int
	Max     int
}

func (e *CredentialsError) Error() string {
	return fmt.Sprintf("invalid credentials, attempt %d of %d", e.Attempt, e.Max)
}

// FieldError names a registration field and the rule it broke.
type FieldError struct {
	Field string
	Rule  string
}

type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Rule)
	}
	return "invalid registration: " + strings.Join(parts, ", ")
}

// Missing reports whether any required field was left empty.
func (e *ValidationError) Missing() bool {
	for _, f := range e.Fields {
		if f.Rule == "required" {
			return true
		}
	}
	return false
}

// Has reports whether field failed validation.
func (e *ValidationError) Has(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

func ceilMinutes(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Minute - 1) / time.Minute)
}
