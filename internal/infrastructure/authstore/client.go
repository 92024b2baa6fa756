package authstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	domain "github.com/mohammadpnp/identity-migration/internal/domain/identity"
	"github.com/mohammadpnp/identity-migration/internal/observability"
)

const (
	adminSecretHeader = "x-hasura-admin-secret"
	maxBodyBytes      = 64 << 10
)

type Options struct {
	BaseURL     string
	AdminPath   string
	SignupPath  string
	AdminSecret string
	Timeout     time.Duration
}

type Client struct {
	opts       Options
	httpClient *http.Client
}

func NewClient(opts Options, httpClient *http.Client) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{opts: opts, httpClient: httpClient}
}

type adminCreateRequest struct {
	Email         string `json:"email"`
	PasswordHash  string `json:"passwordHash"`
	EmailVerified bool   `json:"emailVerified"`
	DisplayName   string `json:"displayName"`
	DefaultRole   string `json:"defaultRole"`
}

type signupOptions struct {
	DisplayName string `json:"displayName,omitempty"`
}

type signupRequest struct {
	Email    string        `json:"email"`
	Password string        `json:"password"`
	Options  signupOptions `json:"options"`
}

// CreateWithHash creates an identity through the admin endpoint, forwarding the
// pre-hashed credential verbatim.
func (c *Client) CreateWithHash(ctx context.Context, identity domain.TargetIdentity) (string, error) {
	return c.post(ctx, "admin_create", c.opts.AdminPath, true, adminCreateRequest{
		Email:         identity.Email,
		PasswordHash:  identity.Credential.Value,
		EmailVerified: identity.Verified,
		DisplayName:   identity.DisplayName,
		DefaultRole:   identity.Role,
	}, adminShapes)
}

// SignUp registers an identity with a plaintext credential the store hashes itself.
func (c *Client) SignUp(ctx context.Context, identity domain.TargetIdentity) (string, error) {
	return c.post(ctx, "signup", c.opts.SignupPath, false, signupRequest{
		Email:    identity.Email,
		Password: identity.Credential.Value,
		Options:  signupOptions{DisplayName: identity.DisplayName},
	}, signupShapes)
}

func (c *Client) post(ctx context.Context, operation, path string, admin bool, payload any, accepted []Shape) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode %s request: %w", operation, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return "", &domain.ProvisionError{Kind: domain.ErrProvisionRejected, Reason: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	if admin {
		req.Header.Set(adminSecretHeader, c.opts.AdminSecret)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		observability.RecordExternalCall(observability.TargetAuthStore, operation, 0, time.Since(start))
		return "", &domain.ProvisionError{
			Kind:   domain.ErrProvisionRejected,
			Reason: fmt.Sprintf("request failed: %v", err),
		}
	}
	defer resp.Body.Close()
	observability.RecordExternalCall(observability.TargetAuthStore, operation, resp.StatusCode, time.Since(start))

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", &domain.ProvisionError{
			Kind:   domain.ErrProvisionRejected,
			Status: resp.StatusCode,
			Reason: fmt.Sprintf("read response: %v", err),
		}
	}

	return classify(resp.StatusCode, respBody, accepted)
}
