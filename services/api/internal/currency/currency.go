// Package currency converts canonical MAD amounts into the display currency
// of the caller.
package currency

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/apd/v3"
	xcurrency "golang.org/x/text/currency"

	"github.com/YahyaBCR/car-rental-BO-sub002/services/api/internal/domain"
)

type Code string

const (
	MAD Code = "MAD"
	USD Code = "USD"
	EUR Code = "EUR"
)

// Canonical is the storage currency of every amount.
const Canonical = MAD

var supported = []Code{MAD, USD, EUR}

// Supported returns the display currencies offered to clients.
func Supported() []Code {
	out := make([]Code, len(supported))
	copy(out, supported)
	return out
}

// ParseCode validates an ISO 4217 code and checks it is offered for display.
func ParseCode(s string) (Code, error) {
	unit, err := xcurrency.ParseISO(strings.ToUpper(strings.TrimSpace(s)))
	if err != nil {
		return "", fmt.Errorf("%w: %q", domain.ErrUnsupportedCurrency, s)
	}
	code := Code(unit.String())
	for _, c := range supported {
		if c == code {
			return code, nil
		}
	}
	return "", fmt.Errorf("%w: %s", domain.ErrUnsupportedCurrency, code)
}

// Amount is a value already rounded for display.
type Amount struct {
	Value    *apd.Decimal
	Currency Code
}

func (a Amount) String() string {
	v := a.Value.Text('f')
	switch a.Currency {
	case USD:
		return "$" + v
	case EUR:
		return "€" + v
	case MAD:
		return v + " DH"
	default:
		return v + " " + string(a.Currency)
	}
}
