package currency

import (
	"fmt"
	"os"

	"github.com/cockroachdb/apd/v3"
	"gopkg.in/yaml.v3"
)

// Rates maps a target currency to how many MAD one unit of it costs. The
// platform margin is already included.
type Rates map[Code]*apd.Decimal

// ParseRates builds Rates from decimal strings keyed by ISO code. MAD is
// implicit and ignored if present.
func ParseRates(raw map[string]string) (Rates, error) {
	out := make(Rates, len(raw))
	for k, v := range raw {
		code, err := ParseCode(k)
		if err != nil {
			return nil, err
		}
		if code == Canonical {
			continue
		}
		d, _, err := apd.NewFromString(v)
		if err != nil {
			return nil, fmt.Errorf("rate %s: %w", code, err)
		}
		if d.Form != apd.Finite || d.Sign() <= 0 {
			return nil, fmt.Errorf("rate %s: must be positive, got %s", code, v)
		}
		out[code] = d
	}
	return out, nil
}

// Strings returns the rates as decimal strings keyed by code.
func (r Rates) Strings() map[string]string {
	out := make(map[string]string, len(r))
	for k, v := range r {
		out[string(k)] = v.Text('f')
	}
	return out
}

type ratesFile struct {
	Rates map[string]string `yaml:"rates"`
}

// LoadRatesFile reads a YAML document of the form:
//
//	rates:
//	  USD: 10.60
//	  EUR: 11.20
func LoadRatesFile(path string) (Rates, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rates file: %w", err)
	}
	var f ratesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse rates file: %w", err)
	}
	return ParseRates(f.Rates)
}

// DefaultRates is used when no rates file is configured.
func DefaultRates() Rates {
	r, err := ParseRates(map[string]string{"USD": "10.60", "EUR": "11.20"})
	if err != nil {
		panic(err)
	}
	return r
}
