package account

import (
	"time"

	"github.com/tulip-app/tulip/internal/tier"
)

// Account represents a registered scanner user. Scan counters are mutated
// only through the quota tracker's atomic repository operations, and the
// saved-product list only through the saved registry.
type Account struct {
	ID                string
	Email             string
	Name              string
	PasswordHash      []byte
	Tier              tier.Tier
	ScansThisMonth    int
	ScanPeriodStart   time.Time
	SavedProducts     []string
	SubscriptionStart time.Time
	SubscriptionEnd   time.Time
	CreatedAt         time.Time
}

// Credentials carries signup/login input.
type Credentials struct {
	Email    string
	Password string
	Name     string
}
