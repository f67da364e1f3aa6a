package service

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// tokenManager signs and verifies HS256 bearer tokens. Tokens carry only the
// subject user ID; everything else is resolved fresh from storage.
type tokenManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

func newTokenManager(secret, issuer string, ttl time.Duration) *tokenManager {
	if issuer == "" {
		issuer = "dealerdesk"
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &tokenManager{secret: []byte(secret), issuer: issuer, ttl: ttl}
}

func (tm *tokenManager) sign(userID string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tm.ttl)),
			Issuer:    tm.issuer,
		},
	})
	return token.SignedString(tm.secret)
}

func (tm *tokenManager) verify(tokenString string) (*claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return tm.secret, nil
	})
	if err != nil {
		return nil, err
	}
	parsed, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return parsed, nil
}
