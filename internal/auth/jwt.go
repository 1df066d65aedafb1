package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "puyo-bridge"

var ErrEmptySecret = errors.New("empty signing secret")

// Claims identify the bot a bridge plays for.
type Claims struct {
	Bot string `json:"bot"`
	jwt.RegisteredClaims
}

// Sign issues a bearer token for bot, valid for ttl.
func Sign(secret []byte, bot string, ttl time.Duration) (string, error) {
	if len(secret) == 0 {
		return "", ErrEmptySecret
	}
	now := time.Now()
	claims := Claims{
		Bot: bot,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   bot,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(secret)
}

func Verify(secret []byte, token string) (*Claims, error) {
	t, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(issuer))
	if err != nil {
		return nil, err
	}

	claims, ok := t.Claims.(*Claims)
	if !ok || !t.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}
