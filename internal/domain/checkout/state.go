package checkout

import (
	"fmt"
	"strings"

	domainErrors "github.com/yuzvak/cart-checkout-service/internal/domain/errors"
)

type State int

const (
	StateCart State = iota
	StateAddressEntry
	StatePaymentPending
	StateConfirmed
	StateFailed
	StateAbandoned
)

var stateNames = map[State]string{
	StateCart:           "Cart",
	StateAddressEntry:   "AddressEntry",
	StatePaymentPending: "PaymentPending",
	StateConfirmed:      "Confirmed",
	StateFailed:         "Failed",
	StateAbandoned:      "Abandoned",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", int(s))
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(b []byte) error {
	for state, name := range stateNames {
		if name == string(b) {
			*s = state
			return nil
		}
	}
	return fmt.Errorf("unknown checkout state %q", b)
}

// Final reports whether no further transition is possible. Failed is not
// final: the user may start a new payment attempt from it.
func (s State) Final() bool {
	return s == StateConfirmed || s == StateAbandoned
}

type Address struct {
	Name       string `json:"name"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	Region     string `json:"region,omitempty"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// Validate trims every field and reports the required ones left empty.
func (a *Address) Validate() error {
	a.Name = strings.TrimSpace(a.Name)
	a.Line1 = strings.TrimSpace(a.Line1)
	a.Line2 = strings.TrimSpace(a.Line2)
	a.City = strings.TrimSpace(a.City)
	a.Region = strings.TrimSpace(a.Region)
	a.PostalCode = strings.TrimSpace(a.PostalCode)
	a.Country = strings.TrimSpace(a.Country)

	required := []struct {
		field string
		value string
	}{
		{"name", a.Name},
		{"line1", a.Line1},
		{"city", a.City},
		{"postal_code", a.PostalCode},
		{"country", a.Country},
	}

	var missing []string
	for _, r := range required {
		if r.value == "" {
			missing = append(missing, r.field)
		}
	}
	if len(missing) > 0 {
		return &domainErrors.AddressError{Fields: missing}
	}
	return nil
}
