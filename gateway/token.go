package gateway

import (
	"errors"
	"time"

	"github.com/MrPsycho237/digimarketstore/models"
	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for tokens that are malformed or signed with another key.
var ErrInvalidToken = errors.New("invalid session token")

type TokenConfig struct {
	SecretKey string
	TTL       time.Duration
	Issuer    string
}

type TokenClaims struct {
	UserID string      `json:"user_id"`
	Email  string      `json:"email"`
	Role   models.Role `json:"role"`
	jwt.RegisteredClaims
}

// TokenManager signs and parses session tokens. The token ID is the session row ID.
type TokenManager struct {
	config TokenConfig
}

func NewTokenManager(config TokenConfig) *TokenManager {
	if config.TTL <= 0 {
		config.TTL = 24 * time.Hour
	}
	return &TokenManager{config: config}
}

func (m *TokenManager) TTL() time.Duration {
	return m.config.TTL
}

func (m *TokenManager) Issue(sessionID, userID, email string, role models.Role, issuedAt, expiresAt time.Time) (string, error) {
	claims := TokenClaims{
		UserID: userID,
		Email:  email,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sessionID,
			Issuer:    m.config.Issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(m.config.SecretKey))
}

func (m *TokenManager) Parse(tokenString string) (*TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(m.config.SecretKey), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrSessionExpired
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*TokenClaims)
	if !ok || !token.Valid || claims.ID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
