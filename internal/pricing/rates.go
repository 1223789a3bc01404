package pricing

import (
	"fmt"
	"slices"
	"time"
)

// DefaultWeekendDays are the nights charged at the weekend rate.
var DefaultWeekendDays = []time.Weekday{time.Friday, time.Saturday}

// Rate scheme names used in configuration.
const (
	SchemeWeekdayWeekend = "weekday_weekend"
	SchemeFlat           = "flat"
)

// RateStrategy maps a night (identified by its start date) to a nightly rate.
type RateStrategy interface {
	// NightlyRate returns the price of the night starting on the given date.
	NightlyRate(night time.Time) int64
	// IsWeekend reports whether the night counts as a weekend night.
	IsWeekend(night time.Time) bool
}

// WeekdayWeekendRates charges one rate on weekend nights and another otherwise.
type WeekdayWeekendRates struct {
	Weekday     int64
	Weekend     int64
	WeekendDays []time.Weekday
}

func (r WeekdayWeekendRates) NightlyRate(night time.Time) int64 {
	if r.IsWeekend(night) {
		return r.Weekend
	}
	return r.Weekday
}

func (r WeekdayWeekendRates) IsWeekend(night time.Time) bool {
	return isWeekendDay(night.Weekday(), r.WeekendDays)
}

// FlatRate charges the same rate every night.
type FlatRate struct {
	Rate        int64
	WeekendDays []time.Weekday
}

func (r FlatRate) NightlyRate(time.Time) int64 {
	return r.Rate
}

func (r FlatRate) IsWeekend(night time.Time) bool {
	return isWeekendDay(night.Weekday(), r.WeekendDays)
}

// RateFunc adapts a plain function to a RateStrategy using the default weekend set.
type RateFunc func(night time.Time) int64

func (f RateFunc) NightlyRate(night time.Time) int64 {
	return f(night)
}

func (f RateFunc) IsWeekend(night time.Time) bool {
	return isWeekendDay(night.Weekday(), nil)
}

// RateTable looks a night up by exact date, then by weekday, then falls back
// to Default. ByDate keys use the 2006-01-02 layout.
type RateTable struct {
	Default     int64
	ByWeekday   map[time.Weekday]int64
	ByDate      map[string]int64
	WeekendDays []time.Weekday
}

func (t RateTable) NightlyRate(night time.Time) int64 {
	if rate, ok := t.ByDate[night.Format(dateKeyLayout)]; ok {
		return rate
	}
	if rate, ok := t.ByWeekday[night.Weekday()]; ok {
		return rate
	}
	return t.Default
}

func (t RateTable) IsWeekend(night time.Time) bool {
	return isWeekendDay(night.Weekday(), t.WeekendDays)
}

func isWeekendDay(day time.Weekday, weekend []time.Weekday) bool {
	if weekend == nil {
		weekend = DefaultWeekendDays
	}
	for _, d := range weekend {
		if d == day {
			return true
		}
	}
	return false
}

// Settings is the serializable form of a rate configuration.
type Settings struct {
	Scheme      string         `yaml:"scheme" json:"scheme"`
	WeekdayRate int64          `yaml:"weekday_rate" json:"weekday_rate"`
	WeekendRate int64          `yaml:"weekend_rate" json:"weekend_rate"`
	FlatRate    int64          `yaml:"flat_rate" json:"flat_rate"`
	WeekendDays []time.Weekday `yaml:"weekend_days" json:"weekend_days"`
	Tiers       []DiscountTier `yaml:"discount_tiers" json:"discount_tiers"`
}

// DefaultSettings returns the weekday/weekend scheme at 5000/6000.
func DefaultSettings() Settings {
	return Settings{
		Scheme:      SchemeWeekdayWeekend,
		WeekdayRate: 5000,
		WeekendRate: 6000,
		FlatRate:    5000,
		WeekendDays: append([]time.Weekday(nil), DefaultWeekendDays...),
		Tiers:       append([]DiscountTier(nil), DefaultTiers...),
	}
}

// Validate checks that the configured scheme can price a night.
func (s Settings) Validate() error {
	switch s.Scheme {
	case SchemeWeekdayWeekend:
		if s.WeekdayRate <= 0 || s.WeekendRate <= 0 {
			return fmt.Errorf("weekday and weekend rates must be positive")
		}
	case SchemeFlat:
		if s.FlatRate <= 0 {
			return fmt.Errorf("flat rate must be positive")
		}
	default:
		return fmt.Errorf("unknown rate scheme %q", s.Scheme)
	}

	for _, d := range s.WeekendDays {
		if d < time.Sunday || d > time.Saturday {
			return fmt.Errorf("invalid weekend day %d", d)
		}
	}
	for _, t := range s.Tiers {
		if t.MinNights < 0 || t.Percent < 0 || t.Percent >= 1 {
			return fmt.Errorf("invalid discount tier %d nights / %.2f", t.MinNights, t.Percent)
		}
	}
	return nil
}

// Strategy builds the RateStrategy described by the settings.
func (s Settings) Strategy() RateStrategy {
	if s.Scheme == SchemeFlat {
		return FlatRate{Rate: s.FlatRate, WeekendDays: s.WeekendDays}
	}
	return WeekdayWeekendRates{
		Weekday:     s.WeekdayRate,
		Weekend:     s.WeekendRate,
		WeekendDays: s.WeekendDays,
	}
}

// Calculator returns a calculator for these settings.
// An empty, non-nil Tiers disables discounts; nil uses DefaultTiers.
func (s Settings) Calculator() *Calculator {
	c := &Calculator{Rates: s.Strategy()}
	if s.Tiers != nil {
		c.Tiers = slices.Clone(s.Tiers)
	}
	return c
}
