package usecase

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// OperatorTokens issues and checks the bearer tokens that guard operator routes.
type OperatorTokens struct {
	secret []byte
}

func NewOperatorTokens(secret string) *OperatorTokens {
	return &OperatorTokens{secret: []byte(secret)}
}

// Issue signs an HS256 token for subject valid for ttl.
func (o *OperatorTokens) Issue(subject string, ttl time.Duration) (string, error) {
	if len(o.secret) == 0 {
		return "", fmt.Errorf("SECRET_KEY is required to issue tokens")
	}
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(o.secret)
}

// Validate returns the token subject.
func (o *OperatorTokens) Validate(tokenString string) (string, error) {
	if len(o.secret) == 0 {
		return "", ErrInvalidToken
	}
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return o.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}
	if claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
