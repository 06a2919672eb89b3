package http

import (
	"net/http"

	"github.com/YahyaBCR/car-rental-BO-sub002/services/api/internal/currency"
)

// RatesProvider exposes the configured MAD exchange rates.
type RatesProvider interface {
	Rates() currency.Rates
}

type ratesResponse struct {
	Base  string            `json:"base"`
	Rates map[string]string `json:"rates"`
}

// HandleExchangeRates serves GET /exchange-rates. The values already include
// the platform margin.
func HandleExchangeRates(p RatesProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}
		writeJSON(w, http.StatusOK, ratesResponse{
			Base:  string(currency.Canonical),
			Rates: p.Rates().Strings(),
		})
	}
}
