package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const tokenIssuer = "crowdplay"

// Claims identify a player across games. The player id is opaque and stable
// for the lifetime of the token.
type Claims struct {
	PlayerID string `json:"pid"`
	Name     string `json:"name"`
	jwt.RegisteredClaims
}

type IdentityService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewIdentityService(secret string, ttl time.Duration) *IdentityService {
	return &IdentityService{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// NewPlayerID returns a fresh opaque player id.
func (s *IdentityService) NewPlayerID() string {
	return uuid.NewString()
}

func (s *IdentityService) Issue(playerID, name string) (string, error) {
	if strings.TrimSpace(playerID) == "" {
		return "", errors.New("player id is required")
	}
	now := s.now()
	claims := Claims{
		PlayerID: playerID,
		Name:     name,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   playerID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (s *IdentityService) Parse(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.PlayerID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
