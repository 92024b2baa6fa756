package authstore

import (
	"net/http"
	"strings"

	domain "github.com/mohammadpnp/identity-migration/internal/domain/identity"
	"github.com/tidwall/gjson"
)

// Shape names where a response carries the created identity id.
type Shape string

const (
	ShapeUser        Shape = "id"
	ShapeSessionUser Shape = "session.user.id"
	ShapeNestedUser  Shape = "user.id"
)

var (
	adminShapes  = []Shape{ShapeUser}
	signupShapes = []Shape{ShapeSessionUser, ShapeNestedUser}
)

// extractIdentityID returns the first non-empty id among the accepted shapes.
func extractIdentityID(body []byte, accepted []Shape) (string, Shape, bool) {
	for _, shape := range accepted {
		value := gjson.GetBytes(body, string(shape))
		if value.Type == gjson.String && strings.TrimSpace(value.Str) != "" {
			return value.Str, shape, true
		}
	}
	return "", "", false
}

// classify turns one auth-store response into an identity id or a ProvisionError.
func classify(status int, body []byte, accepted []Shape) (string, error) {
	raw := string(body)
	isJSON := gjson.ValidBytes(body)

	if status < 200 || status >= 300 {
		reason := http.StatusText(status)
		if isJSON {
			if msg := errorMessage(body); msg != "" {
				reason = msg
			}
		}
		kind := domain.ErrProvisionRejected
		if status == http.StatusConflict || (isJSON && mentionsExisting(body)) {
			kind = domain.ErrIdentityExists
		}
		perr := &domain.ProvisionError{Kind: kind, Status: status, Reason: reason}
		if !isJSON {
			perr.Raw = raw
		}
		return "", perr
	}

	if !isJSON {
		return "", &domain.ProvisionError{
			Kind:   domain.ErrProvisionMalformedResponse,
			Status: status,
			Reason: "response body is not JSON",
			Raw:    raw,
		}
	}

	if msg := errorMessage(body); msg != "" && mentionsExisting(body) {
		return "", &domain.ProvisionError{Kind: domain.ErrIdentityExists, Status: status, Reason: msg}
	}

	id, _, ok := extractIdentityID(body, accepted)
	if !ok {
		return "", &domain.ProvisionError{
			Kind:   domain.ErrProvisionMalformedResponse,
			Status: status,
			Reason: "unrecognized response shape",
			Raw:    raw,
		}
	}
	return id, nil
}

func errorMessage(body []byte) string {
	for _, path := range []string{"message", "error.message", "error"} {
		value := gjson.GetBytes(body, path)
		if value.Type == gjson.String && value.Str != "" {
			return value.Str
		}
	}
	return ""
}

func mentionsExisting(body []byte) bool {
	for _, path := range []string{"error", "message", "error.message", "error.code"} {
		value := strings.ToLower(gjson.GetBytes(body, path).String())
		if strings.Contains(value, "already") || strings.Contains(value, "exists") {
			return true
		}
	}
	return false
}
