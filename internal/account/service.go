package account

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/tulip-app/tulip/internal/tier"
)

// ErrInvalidCredentials is returned for both unknown emails and wrong
// passwords so login responses do not leak which one failed.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Service manages account lifecycle.
type Service struct {
	repo Repository
}

// NewService creates a new account service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Register creates a new free-tier account with a hashed password.
func (s *Service) Register(ctx context.Context, creds Credentials) (Account, error) {
	email := strings.ToLower(strings.TrimSpace(creds.Email))
	if email == "" || !strings.Contains(email, "@") {
		return Account{}, errors.New("a valid email is required")
	}
	if len(creds.Password) < 8 {
		return Account{}, errors.New("password must be at least 8 characters")
	}
	if strings.TrimSpace(creds.Name) == "" {
		return Account{}, errors.New("name is required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(creds.Password), bcrypt.DefaultCost)
	if err != nil {
		return Account{}, err
	}

	now := time.Now().UTC()
	acc := Account{
		ID:              uuid.New().String(),
		Email:           email,
		Name:            strings.TrimSpace(creds.Name),
		PasswordHash:    hash,
		Tier:            tier.Free,
		ScanPeriodStart: now,
		SavedProducts:   []string{},
		CreatedAt:       now,
	}

	if err := s.repo.Create(ctx, acc); err != nil {
		return Account{}, err
	}

	return acc, nil
}

// Authenticate verifies email/password credentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (Account, error) {
	acc, err := s.repo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Account{}, ErrInvalidCredentials
		}
		return Account{}, err
	}

	if err := bcrypt.CompareHashAndPassword(acc.PasswordHash, []byte(password)); err != nil {
		return Account{}, ErrInvalidCredentials
	}

	return acc, nil
}

// Get fetches an account by id.
func (s *Service) Get(ctx context.Context, id string) (Account, error) {
	return s.repo.FindByID(ctx, id)
}

// Upgrade moves the account to a paid tier and opens a one-month
// subscription window. Downgrading to free goes through support, not here.
func (s *Service) Upgrade(ctx context.Context, id string, target tier.Tier) (Account, error) {
	if target != tier.Basic && target != tier.Premium {
		return Account{}, errors.New("tier must be basic or premium")
	}

	start := time.Now().UTC()
	end := start.AddDate(0, 1, 0)
	if err := s.repo.UpdateTier(ctx, id, target, start, end); err != nil {
		return Account{}, err
	}

	return s.repo.FindByID(ctx, id)
}
