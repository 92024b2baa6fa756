package identity

import (
	"fmt"
	"strings"
)

type Strategy string

const (
	StrategyAdminCreateWithHash Strategy = "admin_create"
	StrategySelfSignupTemporary Strategy = "self_signup"
)

func ParseStrategy(raw string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(raw))) {
	case StrategyAdminCreateWithHash:
		return StrategyAdminCreateWithHash, nil
	case StrategySelfSignupTemporary:
		return StrategySelfSignupTemporary, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, raw)
	}
}

// RequiresPasswordHash reports whether records without a legacy hash must be skipped.
func (s Strategy) RequiresPasswordHash() bool {
	return s == StrategyAdminCreateWithHash
}
