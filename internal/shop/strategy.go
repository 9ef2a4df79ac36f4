package shop

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// PriceStrategy holds the price and stock settings for one shop item.
//
// Buy and sell prices follow the same curve shape with independent
// base/floor/ceiling values but a shared stock pool: depleting stock raises
// both the buy and the sell price, restocking lowers both. Sell price is not
// derived from buy price.
type PriceStrategy struct {
	// Base buy price when stock is full.
	PriceBuy float64 `mapstructure:"price"`
	// Base sell price when stock is full.
	PriceSell float64 `mapstructure:"sell_price"`
	// Buy price bounds.
	BuyMin float64 `mapstructure:"min"`
	BuyMax float64 `mapstructure:"max"`
	// Sell price bounds.
	SellMin float64 `mapstructure:"sell_min"`
	SellMax float64 `mapstructure:"sell_max"`
	// Maximum stock. 0 disables dynamic pricing entirely.
	StockMax int `mapstructure:"stock_max"`
	// Fraction of max stock per price tier, in (0,1]. 0 means continuous.
	Step float64 `mapstructure:"step"`
	// Round prices to the nearest multiple of this value. 0 disables rounding.
	Rounding float64 `mapstructure:"rounding"`
}

// BuyPrice returns the unit buy price at the given stock level.
func (s PriceStrategy) BuyPrice(stock int) decimal.Decimal {
	return s.dynamic(stock, s.PriceBuy, s.BuyMin, s.BuyMax)
}

// SellPrice returns the unit sell price at the given stock level.
func (s PriceStrategy) SellPrice(stock int) decimal.Decimal {
	return s.dynamic(stock, s.PriceSell, s.SellMin, s.SellMax)
}

// dynamic interpolates from base toward max as stock is consumed:
//
//	soldRatio = (stockMax - stock) / stockMax
//	raw       = base + (max - base) * quantize(soldRatio)
//
// clamped to [min, max] and rounded half-up to the nearest multiple of
// Rounding. With StockMax == 0 the price is the clamped, rounded base.
func (s PriceStrategy) dynamic(stock int, base, min, max float64) decimal.Decimal {
	b := decimal.NewFromFloat(base)
	lo := decimal.NewFromFloat(min)
	hi := decimal.NewFromFloat(max)
	if s.StockMax <= 0 {
		return s.round(clamp(b, lo, hi))
	}
	if stock < 0 {
		stock = 0
	}
	if stock > s.StockMax {
		stock = s.StockMax
	}
	sold := decimal.NewFromInt(int64(s.StockMax - stock)).
		Div(decimal.NewFromInt(int64(s.StockMax)))
	stepped := sold
	if s.Step > 0 {
		step := decimal.NewFromFloat(s.Step)
		stepped = sold.Div(step).Floor().Mul(step)
	}
	raw := b.Add(hi.Sub(b).Mul(stepped))
	return s.round(clamp(raw, lo, hi))
}

func (s PriceStrategy) round(v decimal.Decimal) decimal.Decimal {
	if s.Rounding <= 0 {
		return v
	}
	r := decimal.NewFromFloat(s.Rounding)
	return v.Div(r).Round(0).Mul(r)
}

func clamp(v, lo, hi decimal.Decimal) decimal.Decimal {
	if v.LessThan(lo) {
		return lo
	}
	if v.GreaterThan(hi) {
		return hi
	}
	return v
}

// Validate rejects strategies that can never price correctly. Runs at
// catalog load so a malformed strategy fails before any transaction.
func (s PriceStrategy) Validate() error {
	if s.StockMax < 0 {
		return fmt.Errorf("stock_max must not be negative")
	}
	if s.Step < 0 || s.Step > 1 {
		return fmt.Errorf("step must be within [0, 1]")
	}
	if s.Rounding < 0 {
		return fmt.Errorf("rounding must not be negative")
	}
	if s.PriceBuy < 0 || s.PriceSell < 0 {
		return fmt.Errorf("base prices must not be negative")
	}
	if s.BuyMin > s.BuyMax {
		return fmt.Errorf("min must not exceed max")
	}
	if s.SellMin > s.SellMax {
		return fmt.Errorf("sell_min must not exceed sell_max")
	}
	// The curve is only monotonic in scarcity when the ceiling is at or
	// above the base; an unset (zero) max with a positive base would clamp
	// every price to zero.
	if s.PriceBuy > 0 && s.BuyMax < s.PriceBuy {
		return fmt.Errorf("max must be at least the base buy price")
	}
	if s.PriceSell > 0 && s.SellMax < s.PriceSell {
		return fmt.Errorf("sell_max must be at least the base sell price")
	}
	return nil
}
