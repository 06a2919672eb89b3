package currency

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YahyaBCR/car-rental-BO-sub002/services/api/internal/domain"
)

func mustRates(t *testing.T, raw map[string]string) Rates {
	t.Helper()
	r, err := ParseRates(raw)
	require.NoError(t, err)
	return r
}

func TestEngine_Display(t *testing.T) {
	t.Parallel()

	engine := NewEngine(mustRates(t, map[string]string{"USD": "10.60", "EUR": "11.20"}))

	tests := []struct {
		name   string
		amount domain.Money
		role   domain.Role
		target Code
		want   string
	}{
		{name: "owner always sees MAD", amount: 100000, role: domain.RoleOwner, target: USD, want: "1000.00 DH"},
		{name: "admin sees MAD", amount: 100000, role: domain.RoleAdmin, target: EUR, want: "1000.00 DH"},
		{name: "client in USD", amount: 106000, role: domain.RoleClient, target: USD, want: "$100.00"},
		{name: "client in EUR", amount: 112000, role: domain.RoleClient, target: EUR, want: "€100.00"},
		{name: "client in MAD", amount: 5050, role: domain.RoleClient, target: MAD, want: "50.50 DH"},
		{name: "client without preference", amount: 5050, role: domain.RoleClient, target: "", want: "50.50 DH"},
		{name: "rounded to cents", amount: 100000, role: domain.RoleClient, target: USD, want: "$94.34"},
		{name: "zero", amount: 0, role: domain.RoleClient, target: USD, want: "$0.00"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, engine.Display(tt.amount, tt.role, tt.target))
		})
	}
}

func TestEngine_RoundsHalfAwayFromZero(t *testing.T) {
	t.Parallel()

	// 0.01 MAD at 2 MAD per unit is exactly 0.005.
	engine := NewEngine(mustRates(t, map[string]string{"USD": "2"}))
	assert.Equal(t, "$0.01", engine.Display(1, domain.RoleClient, USD))

	// 0.03 MAD / 2 = 0.015
	assert.Equal(t, "$0.02", engine.Display(3, domain.RoleClient, USD))
}

func TestEngine_FallsBackToMADWithoutRate(t *testing.T) {
	t.Parallel()

	engine := NewEngine(mustRates(t, map[string]string{"USD": "10.60"}))
	assert.Equal(t, "1000.00 DH", engine.Display(100000, domain.RoleClient, EUR))

	empty := NewEngine(nil)
	got := empty.Convert(106000, domain.RoleClient, USD)
	assert.Equal(t, MAD, got.Currency)
	assert.Equal(t, "1060.00 DH", got.String())
}

func TestParseCode(t *testing.T) {
	t.Parallel()

	code, err := ParseCode("usd")
	require.NoError(t, err)
	assert.Equal(t, USD, code)

	_, err = ParseCode("GBP")
	assert.ErrorIs(t, err, domain.ErrUnsupportedCurrency)

	_, err = ParseCode("dollars")
	assert.ErrorIs(t, err, domain.ErrUnsupportedCurrency)
}

func TestParseRates(t *testing.T) {
	t.Parallel()

	r, err := ParseRates(map[string]string{"USD": "10.60", "MAD": "1"})
	require.NoError(t, err)
	assert.Len(t, r, 1)
	assert.Equal(t, map[string]string{"USD": "10.60"}, r.Strings())

	_, err = ParseRates(map[string]string{"USD": "0"})
	assert.Error(t, err)

	_, err = ParseRates(map[string]string{"USD": "abc"})
	assert.Error(t, err)
}

func TestLoadRatesFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "rates.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rates:\n  USD: 10.60\n  EUR: \"11.20\"\n"), 0o600))

	r, err := LoadRatesFile(path)
	require.NoError(t, err)
	assert.Equal(t, "10.60", r[USD].Text('f'))
	assert.Equal(t, "11.20", r[EUR].Text('f'))

	_, err = LoadRatesFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
