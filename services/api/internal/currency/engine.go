package currency

import (
	"github.com/cockroachdb/apd/v3"

	"github.com/YahyaBCR/car-rental-BO-sub002/services/api/internal/domain"
)

// Engine renders canonical amounts for a given role and preferred currency.
// It never fails: without a usable rate the MAD amount is shown unconverted.
type Engine struct {
	rates Rates
	ctx   *apd.Context
}

func NewEngine(rates Rates) *Engine {
	ctx := apd.BaseContext.WithPrecision(34)
	ctx.Rounding = apd.RoundHalfUp
	if rates == nil {
		rates = Rates{}
	}
	return &Engine{rates: rates, ctx: ctx}
}

// Target returns the currency role actually sees when it asks for preferred.
// Owners are paid out in MAD and admins reconcile in MAD, so only clients
// get a converted figure.
func Target(role domain.Role, preferred Code) Code {
	if role != domain.RoleClient || preferred == "" {
		return Canonical
	}
	return preferred
}

// Convert returns amount in the currency role should see.
func (e *Engine) Convert(amount domain.Money, role domain.Role, preferred Code) Amount {
	mad := amount.MAD()
	target := Target(role, preferred)
	if target == Canonical {
		return e.round(mad, Canonical)
	}
	rate, ok := e.rates[target]
	if !ok || rate == nil || rate.Sign() <= 0 {
		return e.round(mad, Canonical)
	}

	var out apd.Decimal
	if _, err := e.ctx.Quo(&out, mad, rate); err != nil {
		return e.round(mad, Canonical)
	}
	return e.round(&out, target)
}

// Display is Convert rendered as text ("1000.00 DH", "$100.00", "€100.00").
func (e *Engine) Display(amount domain.Money, role domain.Role, preferred Code) string {
	return e.Convert(amount, role, preferred).String()
}

// Rates returns the rates the engine was built with.
func (e *Engine) Rates() Rates {
	return e.rates
}

func (e *Engine) round(d *apd.Decimal, code Code) Amount {
	var out apd.Decimal
	if _, err := e.ctx.Quantize(&out, d, -2); err != nil {
		out.Set(d)
	}
	return Amount{Value: &out, Currency: code}
}
