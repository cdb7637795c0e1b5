package catalog_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventbook/internal/domain/catalog"
	"eventbook/internal/domain/settlement"
)

func goldPackage() catalog.Package {
	return catalog.Package{
		ID:         "pkg-gold",
		SupplierID: "S1",
		Title:      "Gold wedding",
		Currency:   "aoa",
		BasePrice:  8000,
		Options: []catalog.Option{
			{Name: "Drone footage", Price: 1500},
			{Name: "Extra hour", Price: 500},
		},
	}
}

func TestQuoteSumsCustomizations(t *testing.T) {
	q, err := goldPackage().Quote([]string{"extra hour", " Drone footage ", "EXTRA HOUR"}, settlement.PlatformDefault())
	require.NoError(t, err)

	assert.Equal(t, int64(10000), q.Total.Amount)
	assert.Equal(t, "AOA", q.Total.Currency)
	require.Len(t, q.Lines, 2)
	assert.Equal(t, "Drone footage", q.Lines[0].Name)
	assert.Equal(t, int64(1500), q.Lines[0].Price.Amount)
	assert.Equal(t, "platform-default", q.Policy.ID)
}

func TestQuoteRejectsUnknownCustomization(t *testing.T) {
	_, err := goldPackage().Quote([]string{"fireworks"}, settlement.PlatformDefault())
	assert.ErrorIs(t, err, catalog.ErrUnknownCustomization)
}

func TestQuoteUsesPackagePolicy(t *testing.T) {
	pkg := goldPackage()
	pkg.Cancellation = &settlement.Policy{ID: "strict", PlatformFee: 500}
	q, err := pkg.Quote(nil, settlement.PlatformDefault())
	require.NoError(t, err)
	assert.Equal(t, "strict", q.Policy.ID)
	assert.Equal(t, int64(8000), q.Total.Amount)
}

func TestPackageValidate(t *testing.T) {
	pkg := goldPackage()
	pkg.Options = append(pkg.Options, catalog.Option{Name: "extra hour", Price: 1})
	assert.ErrorIs(t, pkg.Validate(), catalog.ErrInvalidPackage)

	pkg = goldPackage()
	pkg.Currency = ""
	assert.ErrorIs(t, pkg.Validate(), catalog.ErrCurrencyUnset)
}
