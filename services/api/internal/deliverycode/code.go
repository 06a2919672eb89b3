// Package deliverycode implements the one-time handoff code exchanged when the
// vehicle is delivered: its LLL-DDD-LLL shape, generation, and the local
// usage guards checked before a code is submitted to the authority.
package deliverycode

import (
	"crypto/rand"
	"math/big"
	"regexp"
	"time"

	"github.com/YahyaBCR/car-rental-BO-sub002/services/api/internal/domain"
)

// Length is the number of characters in a code, separators included.
const Length = 11

const (
	template = "LLL-DDD-LLL"
	letters  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	digits   = "0123456789"
)

var pattern = regexp.MustCompile(`^[A-Z]{3}-[0-9]{3}-[A-Z]{3}$`)

// ValidateFormat rejects anything that is not exactly LLL-DDD-LLL with
// uppercase ASCII letters and digits.
func ValidateFormat(code string) error {
	if len(code) != Length || !pattern.MatchString(code) {
		return domain.ErrMalformedCode
	}
	return nil
}

// Generate returns a fresh random code.
func Generate() (string, error) {
	buf := []byte(template)
	for i, c := range buf {
		var alphabet string
		switch c {
		case 'L':
			alphabet = letters
		case 'D':
			alphabet = digits
		default:
			continue
		}
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(alphabet))))
		if err != nil {
			return "", err
		}
		buf[i] = alphabet[n.Int64()]
	}
	return string(buf), nil
}

// BeforeStart reports whether now falls before the booking's start date.
func BeforeStart(b domain.Booking, now time.Time) bool {
	return now.Before(domain.DateOnly(b.StartDate))
}
