package auth

import (
	"time"

	"github.com/tulip-app/tulip/internal/account"
	"github.com/tulip-app/tulip/internal/config"
)

// Service issues access tokens for authenticated accounts.
type Service struct {
	cfg config.Config
}

// NewService creates a token service.
func NewService(cfg config.Config) *Service {
	return &Service{cfg: cfg}
}

// Token is a signed access token with its lifetime in seconds.
type Token struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Issue signs an access token for the account.
func (s *Service) Issue(acc account.Account) (Token, error) {
	now := time.Now()
	exp := now.Add(s.cfg.AccessTokenTTL)
	claims := map[string]any{
		"sub":   acc.ID,
		"email": acc.Email,
		"tier":  string(acc.Tier),
		"iat":   now.Unix(),
		"exp":   exp.Unix(),
	}
	signed, err := SignHS256(claims, []byte(s.cfg.JWTSecret))
	if err != nil {
		return Token{}, err
	}
	return Token{AccessToken: signed, ExpiresIn: int64(exp.Sub(now).Seconds())}, nil
}
