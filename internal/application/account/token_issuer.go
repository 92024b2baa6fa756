package account

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	domain "github.com/mohammadpnp/identity-migration/internal/domain/identity"
)

type Claims struct {
	jwt.RegisteredClaims
	ID       int64  `json:"id"`
	FullName string `json:"full_name"`
}

type TokenIssuer struct {
	secret     []byte
	issuer     string
	expiration time.Duration
	now        func() time.Time
}

func NewTokenIssuer(secret, issuer string, expiration time.Duration) *TokenIssuer {
	return &TokenIssuer{
		secret:     []byte(secret),
		issuer:     issuer,
		expiration: expiration,
		now:        time.Now,
	}
}

func (t *TokenIssuer) Issue(employee domain.Employee) (string, error) {
	now := t.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   t.issuer,
			Subject:  strconv.FormatInt(employee.ID, 10),
			IssuedAt: jwt.NewNumericDate(now),
		},
		ID:       employee.ID,
		FullName: employee.FullName,
	}
	if t.expiration > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(t.expiration))
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Parse validates a token issued by Issue and returns its claims.
func (t *TokenIssuer) Parse(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(t.issuer))
	if err != nil {
		return nil, err
	}
	return claims, nil
}
