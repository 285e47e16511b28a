package cj

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuoteShippingZones(t *testing.T) {
	for country, zone := range map[string]string{
		"US": ZoneDomestic,
		"DE": ZoneNear,
		"AU": ZoneFar,
		"XX": ZoneFar, // unknown countries quote at the far zone
	} {
		q, err := QuoteShipping(QuoteRequest{CostPrice: 10, WeightGrams: 400, CountryCode: country})
		require.NoError(t, err, country)
		assert.Equal(t, zone, q.Zone, country)
	}
}

func TestQuoteShippingWeightSteps(t *testing.T) {
	light, err := QuoteShipping(QuoteRequest{CostPrice: 10, WeightGrams: 499, CountryCode: "US"})
	require.NoError(t, err)
	boundary, err := QuoteShipping(QuoteRequest{CostPrice: 10, WeightGrams: 500, CountryCode: "US"})
	require.NoError(t, err)
	heavier, err := QuoteShipping(QuoteRequest{CostPrice: 10, WeightGrams: 501, CountryCode: "US"})
	require.NoError(t, err)

	// 499g and 500g both bill one 500g unit; 501g rolls into the second.
	assert.Equal(t, light.Freight, boundary.Freight)
	assert.Greater(t, heavier.Freight, boundary.Freight)
}

func TestQuoteShippingRetailRounding(t *testing.T) {
	q, err := QuoteShipping(QuoteRequest{CostPrice: 10, WeightGrams: 400, CountryCode: "US"})
	require.NoError(t, err)

	// Retail is landed cost times margin, rounded to a .99 ending at or
	// above the raw value.
	cents := q.RetailPrice - float64(int(q.RetailPrice))
	assert.InDelta(t, 0.99, cents, 0.001)
	assert.GreaterOrEqual(t, q.RetailPrice, q.LandedCost*2-1)
}

func TestQuoteShippingMarginDefault(t *testing.T) {
	def, err := QuoteShipping(QuoteRequest{CostPrice: 10, WeightGrams: 400, CountryCode: "US"})
	require.NoError(t, err)
	tooLow, err := QuoteShipping(QuoteRequest{CostPrice: 10, WeightGrams: 400, CountryCode: "US", MarginFactor: 0.5})
	require.NoError(t, err)
	assert.Equal(t, def.RetailPrice, tooLow.RetailPrice)

	higher, err := QuoteShipping(QuoteRequest{CostPrice: 10, WeightGrams: 400, CountryCode: "US", MarginFactor: 3})
	require.NoError(t, err)
	assert.Greater(t, higher.RetailPrice, def.RetailPrice)
}

func TestQuoteShippingRejectsBadInput(t *testing.T) {
	for _, req := range []QuoteRequest{
		{CostPrice: -1, WeightGrams: 100, CountryCode: "US"},
		{CostPrice: 1, WeightGrams: 0, CountryCode: "US"},
		{CostPrice: 1, WeightGrams: 100},
	} {
		_, err := QuoteShipping(req)
		assert.ErrorIs(t, err, ErrBadQuote)
	}
}
