package cj

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// Shipping zones, coarsest useful granularity for quoting.
const (
	ZoneDomestic = "domestic"
	ZoneNear     = "near"
	ZoneFar      = "far"
)

var zoneByCountry = map[string]string{
	"US": ZoneDomestic,
	"CA": ZoneNear, "MX": ZoneNear, "GB": ZoneNear, "DE": ZoneNear,
	"FR": ZoneNear, "ES": ZoneNear, "IT": ZoneNear, "NL": ZoneNear,
	"AU": ZoneFar, "NZ": ZoneFar, "JP": ZoneFar, "KR": ZoneFar,
	"SA": ZoneFar, "AE": ZoneFar, "BR": ZoneFar, "ZA": ZoneFar,
}

// freight base + per-500g rates by zone, in USD.
var freightTable = map[string][2]string{
	ZoneDomestic: {"4.50", "1.20"},
	ZoneNear:     {"6.90", "1.80"},
	ZoneFar:      {"9.90", "2.60"},
}

var ErrBadQuote = errors.New("invalid quote request")

// QuoteRequest asks for a landed-cost and suggested-retail calculation.
type QuoteRequest struct {
	CostPrice    float64 `json:"costPrice"`
	WeightGrams  int     `json:"weightGrams"`
	CountryCode  string  `json:"countryCode"`
	MarginFactor float64 `json:"marginFactor,omitempty"` // default 2.0
}

type Quote struct {
	Zone        string  `json:"zone"`
	Freight     float64 `json:"freight"`
	LandedCost  float64 `json:"landedCost"`
	RetailPrice float64 `json:"retailPrice"`
}

// QuoteShipping computes freight by zone and weight, the landed cost, and
// a suggested retail price (margin multiplier with .99 rounding). All math
// runs on decimals; floats only at the JSON boundary.
func QuoteShipping(req QuoteRequest) (*Quote, error) {
	if req.CostPrice < 0 || req.WeightGrams <= 0 || req.CountryCode == "" {
		return nil, ErrBadQuote
	}

	zone, ok := zoneByCountry[strings.ToUpper(req.CountryCode)]
	if !ok {
		zone = ZoneFar
	}
	rates := freightTable[zone]
	base, _ := decimal.NewFromString(rates[0])
	per500, _ := decimal.NewFromString(rates[1])

	// Weight is billed in whole 500g increments.
	units := decimal.NewFromInt(int64((req.WeightGrams + 499) / 500))
	freight := base.Add(per500.Mul(units))

	cost := decimal.NewFromFloat(req.CostPrice)
	landed := cost.Add(freight)

	margin := decimal.NewFromFloat(req.MarginFactor)
	if margin.LessThanOrEqual(decimal.NewFromInt(1)) {
		margin = decimal.NewFromInt(2)
	}
	retail := psychPrice(landed.Mul(margin))

	return &Quote{
		Zone:        zone,
		Freight:     freight.Round(2).InexactFloat64(),
		LandedCost:  landed.Round(2).InexactFloat64(),
		RetailPrice: retail.InexactFloat64(),
	}, nil
}

// psychPrice rounds to the nearest .99 ending at or above the input:
// 23.40 -> 23.99, 23.995 -> 24.99.
func psychPrice(d decimal.Decimal) decimal.Decimal {
	cent := decimal.NewFromFloat(0.99)
	whole := d.Floor()
	candidate := whole.Add(cent)
	if candidate.GreaterThanOrEqual(d) {
		return candidate
	}
	return whole.Add(decimal.NewFromInt(1)).Add(cent)
}
