package tier

import (
	"encoding/json"
	"fmt"
)

// Tier is a subscription level. It governs both the monthly scan quota and
// the saved-product capacity.
type Tier string

const (
	Free    Tier = "free"
	Basic   Tier = "basic"
	Premium Tier = "premium"
)

// Limit is an optional cap. Unbounded limits carry no usable Max value.
type Limit struct {
	Max       int
	Unbounded bool
}

// Bounded builds a finite limit.
func Bounded(max int) Limit {
	return Limit{Max: max}
}

// NoLimit is the unbounded limit used by premium accounts.
var NoLimit = Limit{Unbounded: true}

// Allows reports whether one more unit fits under the limit given current usage.
func (l Limit) Allows(used int) bool {
	return l.Unbounded || used < l.Max
}

// RemainingAfter computes what is left once usage has reached used.
func (l Limit) RemainingAfter(used int) Remaining {
	if l.Unbounded {
		return Remaining{Unbounded: true}
	}
	left := l.Max - used
	if left < 0 {
		left = 0
	}
	return Remaining{Count: left}
}

// Parse validates a stored tier value. Unknown values are rejected rather
// than silently coerced; quota lookups fail closed separately.
func Parse(s string) (Tier, error) {
	switch Tier(s) {
	case Free, Basic, Premium:
		return Tier(s), nil
	}
	return "", fmt.Errorf("unknown tier %q", s)
}

// ScanLimit returns the monthly scan quota for the tier. Tiers outside the
// known set get the free limit so a corrupt value never grants unlimited scans.
func (t Tier) ScanLimit() Limit {
	switch t {
	case Premium:
		return NoLimit
	case Basic:
		return Bounded(100)
	default:
		return Bounded(5)
	}
}

// SaveLimit returns the saved-product capacity for the tier, failing closed
// to the free capacity for unknown values.
func (t Tier) SaveLimit() Limit {
	switch t {
	case Premium:
		return NoLimit
	case Basic:
		return Bounded(100)
	default:
		return Bounded(10)
	}
}

// Remaining reports how much quota is left after an operation. Premium
// accounts report unbounded rather than a number.
type Remaining struct {
	Count     int
	Unbounded bool
}

// MarshalJSON renders a plain number, or the string "unlimited" for
// unbounded tiers, matching the wire format clients already parse.
func (r Remaining) MarshalJSON() ([]byte, error) {
	if r.Unbounded {
		return json.Marshal("unlimited")
	}
	return json.Marshal(r.Count)
}

// UnmarshalJSON accepts either encoding produced by MarshalJSON.
func (r *Remaining) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s != "unlimited" {
			return fmt.Errorf("invalid remaining value %q", s)
		}
		*r = Remaining{Unbounded: true}
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*r = Remaining{Count: n}
	return nil
}
