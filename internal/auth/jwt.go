package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const operatorAudience = "whatsapp-bot-ops"

var ErrMissingOperator = errors.New("token has no operator")

// Claims identify the operator calling the admin API.
type Claims struct {
	Operator string
	TokenID  uuid.UUID
}

type tokenClaims struct {
	jwt.RegisteredClaims
	Operator string `json:"operator"`
}

func GenerateToken(operator string, secret string, expiry time.Duration) (string, error) {
	if operator == "" {
		return "", fmt.Errorf("GenerateToken: %w", ErrMissingOperator)
	}

	now := time.Now()
	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Audience:  jwt.ClaimStrings{operatorAudience},
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		Operator: operator,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("GenerateToken: %w", err)
	}
	return signed, nil
}

func ValidateToken(tokenString string, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &tokenClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithAudience(operatorAudience), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("ValidateToken: %w", err)
	}

	tc, ok := token.Claims.(*tokenClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("ValidateToken: invalid token claims")
	}
	if tc.Operator == "" {
		return nil, fmt.Errorf("ValidateToken: %w", ErrMissingOperator)
	}

	tokenID, err := uuid.Parse(tc.ID)
	if err != nil {
		return nil, fmt.Errorf("ValidateToken: invalid jti in token: %w", err)
	}

	return &Claims{
		Operator: tc.Operator,
		TokenID:  tokenID,
	}, nil
}
