package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	loginPath    = "/api/login"
	registerPath = "/api/users"

	maxResponseSize = 1 << 20
)

type HTTPClient struct {
	baseURL string
	http    *http.Client
}

func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Login posts credentials. A response with success=false maps to
// ErrUnauthorized; transport or decoding failures map to ErrUnavailable.
func (c *HTTPClient) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	var resp LoginResponse
	if err := c.post(ctx, loginPath, LoginRequest{Email: email, Password: password}, &resp); err != nil {
		return nil, err
	}

	if !resp.Success {
		return nil, fmt.Errorf("%w: %s", ErrUnauthorized, resp.Message)
	}

	return &resp, nil
}

// Register creates a user on the backend. A response with success=false
// is returned as *RejectedError.
func (c *HTTPClient) Register(ctx context.Context, req RegisterRequest) error {
	var resp registerResponse
	if err := c.post(ctx, registerPath, req, &resp); err != nil {
		return err
	}

	if !resp.Success {
		return &RejectedError{Message: resp.Message}
	}

	return nil
}

func (c *HTTPClient) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return c.mapError(err)
	}
	defer resp.Body.Close()

	// the backend answers credential failures with a JSON body and a 4xx
	// status, so the body is decoded regardless of the status code
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(out); err != nil {
		return fmt.Errorf("%w: status %d: %v", ErrUnavailable, resp.StatusCode, err)
	}

	return nil
}

func (c *HTTPClient) mapError(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
