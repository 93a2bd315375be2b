package services

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/dmitrijs2005/mindnote/internal/client/client"
	"github.com/dmitrijs2005/mindnote/internal/client/models"
	"github.com/dmitrijs2005/mindnote/internal/common"
	"github.com/dmitrijs2005/mindnote/internal/logging"
	"github.com/go-playground/validator"
	"github.com/microcosm-cc/bluemonday"
)

// AdminPassphrase must be supplied to register an administrator.
const AdminPassphrase = "MindNote.edu"

// Registration is the input of the registration form.
type Registration struct {
	Name            string      `validate:"required"`
	Email           string      `validate:"required,email"`
	Password        string      `validate:"required"`
	Role            models.Role `validate:"required,oneof=user administrator"`
	AdminPassphrase string
	AcceptTerms     bool
}

type RegisterResult struct {
	User  models.User
	Route Route
}

// Terms lists the message IDs of the terms and conditions.
type Terms struct {
	Title   string
	Clauses []string
}

// RegistrationService creates accounts on the backend.
type RegistrationService interface {
	Register(ctx context.Context, r Registration) (*RegisterResult, error)
	Terms() Terms
}

type registrationService struct {
	client   client.Client
	sessions SessionStore
	roster   rosterUpserter
	log      logging.Logger

	validate *validator.Validate
	policy   *bluemonday.Policy
}

func NewRegistrationService(c client.Client, sessions SessionStore, roster rosterUpserter, log logging.Logger) RegistrationService {
	return &registrationService{
		client:   c,
		sessions: sessions,
		roster:   roster,
		log:      log,
		validate: validator.New(),
		policy:   bluemonday.StrictPolicy(),
	}
}

// Register checks, in order: no active session, required and well-formed
// fields, accepted terms, and the administrator passphrase. Only then is
// the backend called.
func (s *registrationService) Register(ctx context.Context, r Registration) (*RegisterResult, error) {
	if sess, ok := s.sessions.Current(); ok {
		return nil, &AlreadyAuthenticatedError{User: sess.User}
	}

	r.Name = strings.TrimSpace(stripTags(s.policy, r.Name))
	r.Email = common.NormalizeEmail(r.Email)
	r.Password = strings.TrimSpace(r.Password)
	r.Role = models.Role(strings.ToLower(strings.TrimSpace(string(r.Role))))

	if err := s.validate.Struct(r); err != nil {
		return nil, toValidationError(err)
	}

	if !r.AcceptTerms {
		return nil, ErrTermsNotAccepted
	}

	// the passphrase must match exactly, surrounding spaces included
	if r.Role == models.RoleAdministrator && r.AdminPassphrase != AdminPassphrase {
		return nil, ErrBadAdminPassphrase
	}

	user := models.User{Name: r.Name, Email: r.Email, Role: r.Role}

	err := s.client.Register(ctx, client.RegisterRequest{
		Name:     r.Name,
		Email:    r.Email,
		Password: r.Password,
		Role:     r.Role,
	})
	if err != nil {
		var rejected *RejectedError
		if errors.As(err, &rejected) {
			s.log.Info(ctx, "registration rejected", "email", r.Email, "message", rejected.Message)
			return nil, err
		}
		if errors.Is(err, client.ErrUnavailable) {
			s.log.Warn(ctx, "backend unavailable", "error", err)
			return nil, err
		}
		return nil, fmt.Errorf("register error: %w", err)
	}

	if err := s.roster.Upsert(ctx, user, r.Password); err != nil {
		s.log.Warn(ctx, "failed to update roster", "email", r.Email, "error", err)
	}

	return &RegisterResult{User: user, Route: RouteLogin}, nil
}

func (s *registrationService) Terms() Terms {
	clauses := make([]string, 0, 8)
	for i := 1; i <= 8; i++ {
		clauses = append(clauses, fmt.Sprintf("terms.clause.%d", i))
	}
	return Terms{Title: "terms.title", Clauses: clauses}
}

func toValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validation failed: %w", err)
	}

	ve := &ValidationError{}
	for _, fe := range verrs {
		ve.Fields = append(ve.Fields, FieldError{Field: strings.ToLower(fe.Field()), Rule: fe.Tag()})
	}
	return ve
}

// stripTags removes markup from user input and undoes the entity escaping
// the policy applies to plain text.
func stripTags(p *bluemonday.Policy, s string) string {
	return html.UnescapeString(p.Sanitize(s))
}
