package client

import (
	"context"

	"github.com/dmitrijs2005/mindnote/internal/client/models"
)

// Client is the backend contract used by the login and registration flows.
type Client interface {
	Login(ctx context.Context, email, password string) (*LoginResponse, error)
	Register(ctx context.Context, req RegisterRequest) error
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Success bool        `json:"success"`
	User    models.User `json:"user"`
	Token   string      `json:"token,omitempty"`
	Message string      `json:"message,omitempty"`
}

type RegisterRequest struct {
	Name     string      `json:"name"`
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Role     models.Role `json:"role"`
}

type registerResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}
