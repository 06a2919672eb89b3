package domain

import (
	"github.com/cockroachdb/apd/v3"
)

// Money is an amount in MAD centimes, the canonical storage currency.
type Money int64

// MAD returns m as a decimal number of dirhams.
func (m Money) MAD() *apd.Decimal {
	return apd.New(int64(m), -2)
}

func (m Money) String() string {
	return m.MAD().Text('f')
}

// ParseMoney parses a decimal dirham amount ("1000", "1000.5", "99.99").
// Amounts with more than two decimals are rounded half away from zero.
func ParseMoney(s string) (Money, error) {
	d, _, err := apd.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	return MoneyFromDecimal(d)
}

// MoneyFromDecimal converts a dirham amount into centimes.
func MoneyFromDecimal(d *apd.Decimal) (Money, error) {
	if d.Form != apd.Finite || d.Negative && !d.IsZero() {
		return 0, ErrInvalidAmount
	}
	ctx := apd.BaseContext.WithPrecision(34)
	ctx.Rounding = apd.RoundHalfUp

	var centimes apd.Decimal
	if _, err := ctx.Mul(&centimes, d, apd.New(100, 0)); err != nil {
		return 0, ErrInvalidAmount
	}
	if _, err := ctx.Quantize(&centimes, &centimes, 0); err != nil {
		return 0, ErrInvalidAmount
	}
	v, err := centimes.Int64()
	if err != nil {
		return 0, ErrInvalidAmount
	}
	return Money(v), nil
}
