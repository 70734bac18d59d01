package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const cookieIssuer = "taskboard"

var ErrInvalidCookie = errors.New("invalid session cookie")

// CookieCodec signs session tokens into cookie values. The session store stays
// authoritative; the signature only keeps forged tokens away from it.
type CookieCodec struct {
	secret  []byte
	nowFunc func() time.Time
}

func NewCookieCodec(secret string) (*CookieCodec, error) {
	if secret == "" {
		return nil, fmt.Errorf("session secret is required")
	}
	return &CookieCodec{secret: []byte(secret), nowFunc: time.Now}, nil
}

func (c *CookieCodec) Encode(token string, expiresAt time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		Issuer:    cookieIssuer,
		Subject:   token,
		IssuedAt:  jwt.NewNumericDate(c.nowFunc()),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign session cookie: %w", err)
	}
	return signed, nil
}

func (c *CookieCodec) Decode(value string) (string, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(value, &claims, func(*jwt.Token) (any, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(cookieIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.nowFunc),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidCookie, err)
	}
	if claims.Subject == "" {
		return "", ErrInvalidCookie
	}
	return claims.Subject, nil
}
