package graphql

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	domain "github.com/mohammadpnp/identity-migration/internal/domain/identity"
	"github.com/mohammadpnp/identity-migration/internal/observability"
)

const (
	adminSecretHeader = "x-hasura-admin-secret"
	maxResponseBytes  = 10 << 20
)

type Client struct {
	endpoint    string
	adminSecret string
	timeout     time.Duration
	httpClient  *http.Client
}

func NewClient(endpoint, adminSecret string, timeout time.Duration, httpClient *http.Client) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		endpoint:    endpoint,
		adminSecret: adminSecret,
		timeout:     timeout,
		httpClient:  httpClient,
	}
}

type request struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type responseError struct {
	Message string `json:"message"`
}

type response struct {
	Data   json.RawMessage `json:"data"`
	Errors []responseError `json:"errors"`
}

// Do posts one document and decodes its data into out. Transport failures wrap
// ErrDataLayerUnreachable; GraphQL errors and undecodable bodies wrap ErrDataLayerError.
func (c *Client) Do(ctx context.Context, operation, query string, variables map[string]any, out any) error {
	payload, err := json.Marshal(request{Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("encode %s: %w", operation, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%w: build %s request: %v", domain.ErrDataLayerUnreachable, operation, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(adminSecretHeader, c.adminSecret)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		observability.RecordExternalCall(observability.TargetDataLayer, operation, 0, time.Since(start))
		return fmt.Errorf("%w: %s: %v", domain.ErrDataLayerUnreachable, operation, err)
	}
	defer resp.Body.Close()
	observability.RecordExternalCall(observability.TargetDataLayer, operation, resp.StatusCode, time.Since(start))

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%w: read %s response: %v", domain.ErrDataLayerUnreachable, operation, err)
	}

	var decoded response
	if err := json.Unmarshal(body, &decoded); err != nil {
		if resp.StatusCode >= http.StatusInternalServerError {
			return fmt.Errorf("%w: %s: status %d", domain.ErrDataLayerUnreachable, operation, resp.StatusCode)
		}
		return fmt.Errorf("%w: %s: undecodable response (status %d): %v", domain.ErrDataLayerError, operation, resp.StatusCode, err)
	}

	if len(decoded.Errors) > 0 {
		messages := make([]string, 0, len(decoded.Errors))
		for _, e := range decoded.Errors {
			messages = append(messages, e.Message)
		}
		return fmt.Errorf("%w: %s: %s", domain.ErrDataLayerError, operation, strings.Join(messages, "; "))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: %s: status %d", domain.ErrDataLayerError, operation, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if len(decoded.Data) == 0 || string(decoded.Data) == "null" {
		return fmt.Errorf("%w: %s: response has no data", domain.ErrDataLayerError, operation)
	}
	if err := json.Unmarshal(decoded.Data, out); err != nil {
		return fmt.Errorf("%w: %s: decode data: %v", domain.ErrDataLayerError, operation, err)
	}
	return nil
}
