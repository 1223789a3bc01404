// Package pricing computes stay quotes: per-night rates, weekend counts and
// the long-stay discount.
package pricing

import (
	"math"
	"time"
)

const dateKeyLayout = "2006-01-02"

// DateRange is a stay from check-in (inclusive) to check-out (exclusive).
type DateRange struct {
	CheckIn  time.Time `json:"check_in"`
	CheckOut time.Time `json:"check_out"`
}

// Nights returns the number of nights in the range, never negative.
func (r DateRange) Nights() int {
	if r.CheckIn.IsZero() || r.CheckOut.IsZero() {
		return 0
	}
	n := WholeDaysBetween(r.CheckIn, r.CheckOut)
	if n < 0 {
		return 0
	}
	return n
}

// Result is a price breakdown for a stay.
type Result struct {
	Nights          int     `json:"nights"`
	WeekdayNights   int     `json:"weekday_nights"`
	WeekendNights   int     `json:"weekend_nights"`
	Subtotal        int64   `json:"subtotal"`
	DiscountPercent float64 `json:"discount_percent"`
	DiscountAmount  float64 `json:"discount_amount"`
	Total           int64   `json:"total"`
}

// DiscountTier grants Percent off the subtotal for stays of at least MinNights.
type DiscountTier struct {
	MinNights int     `yaml:"min_nights" json:"min_nights"`
	Percent   float64 `yaml:"percent" json:"percent"`
}

// DefaultTiers: 5% from 28 nights, 3% from 7 nights.
var DefaultTiers = []DiscountTier{
	{MinNights: 28, Percent: 0.05},
	{MinNights: 7, Percent: 0.03},
}

// Calculator prices stays. The zero value is not usable; Rates must be set.
type Calculator struct {
	Rates RateStrategy
	// Tiers defaults to DefaultTiers when nil. An empty slice grants no
	// discount.
	Tiers []DiscountTier
}

// NewCalculator creates a calculator. With no tiers, DefaultTiers apply.
func NewCalculator(rates RateStrategy, tiers ...DiscountTier) *Calculator {
	c := &Calculator{Rates: rates}
	if len(tiers) > 0 {
		c.Tiers = append([]DiscountTier(nil), tiers...)
	}
	return c
}

// Default returns the calculator for DefaultSettings.
func Default() *Calculator {
	return DefaultSettings().Calculator()
}

// Quote prices a DateRange.
func (c *Calculator) Quote(r DateRange) Result {
	return c.Compute(r.CheckIn, r.CheckOut)
}

// Compute prices the stay from checkIn to checkOut. A zero time means the
// date has not been chosen yet and yields the zero Result.
func (c *Calculator) Compute(checkIn, checkOut time.Time) Result {
	nights := DateRange{CheckIn: checkIn, CheckOut: checkOut}.Nights()
	if nights == 0 {
		return Result{}
	}

	res := Result{Nights: nights}
	for i := 0; i < nights; i++ {
		night := checkIn.AddDate(0, 0, i)
		if c.Rates.IsWeekend(night) {
			res.WeekendNights++
		} else {
			res.WeekdayNights++
		}
		res.Subtotal += c.Rates.NightlyRate(night)
	}

	res.DiscountPercent = c.discountFor(nights)
	res.DiscountAmount = float64(res.Subtotal) * res.DiscountPercent
	res.Total = int64(math.Round(float64(res.Subtotal) - res.DiscountAmount))
	return res
}

// discountFor returns the percent of the highest tier the stay qualifies for.
func (c *Calculator) discountFor(nights int) float64 {
	tiers := c.Tiers
	if tiers == nil {
		tiers = DefaultTiers
	}

	best := -1
	percent := 0.0
	for _, t := range tiers {
		if nights >= t.MinNights && t.MinNights > best {
			best = t.MinNights
			percent = t.Percent
		}
	}
	return percent
}

// WholeDaysBetween counts calendar days from one date to another, ignoring
// time of day. Both dates are read in from's location.
func WholeDaysBetween(from, to time.Time) int {
	to = to.In(from.Location())
	a := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	b := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}
