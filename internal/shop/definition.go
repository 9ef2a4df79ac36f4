package shop

import (
	"fmt"
	"strings"
	"time"
)

// ResetPolicy determines when a shop's stock and purchase limits reset.
type ResetPolicy string

const (
	ResetNone     ResetPolicy = "none"
	ResetInterval ResetPolicy = "interval"
	ResetDaily    ResetPolicy = "daily"
	ResetWeekly   ResetPolicy = "weekly"
	ResetMonthly  ResetPolicy = "monthly"
)

// CurrencyType selects the economy provider backing a shop.
type CurrencyType string

const (
	CurrencyWallet  CurrencyType = "wallet"
	CurrencyCommand CurrencyType = "command"
	CurrencyPoints  CurrencyType = "points"
)

// Definition is the immutable, externally loaded configuration of one shop.
// It is read-only to the transaction core; replaced wholesale on reload.
type Definition struct {
	ID   string `mapstructure:"id"`
	Name string `mapstructure:"name"`

	Currency CurrencyType `mapstructure:"currency"`
	// Command provider settings. {player} and {amount} are substituted.
	BalanceCommand string `mapstructure:"balance_command"`
	AddCommand     string `mapstructure:"add_command"`
	RemoveCommand  string `mapstructure:"remove_command"`

	// Tax percentage applied on purchase cost.
	Taxes float64 `mapstructure:"taxes"`

	ResetPolicy          ResetPolicy `mapstructure:"reset_policy"`
	ResetHour            int         `mapstructure:"reset_hour"`
	ResetMinute          int         `mapstructure:"reset_minute"`
	ResetDayOfWeek       string      `mapstructure:"reset_day_of_week"`
	ResetDayOfMonth      int         `mapstructure:"reset_day_of_month"`
	ResetIntervalSeconds int64       `mapstructure:"reset_interval_seconds"`
	Timezone             string      `mapstructure:"timezone"`

	Items []ItemConfig `mapstructure:"items"`

	loc     *time.Location
	weekday time.Weekday
}

// ItemConfig configures a single tradable item inside a shop.
type ItemConfig struct {
	ItemID         string        `mapstructure:"item_id"`
	Name           string        `mapstructure:"name"`
	LimitPerPlayer int           `mapstructure:"limit_per_player"`
	Strategy       PriceStrategy `mapstructure:"strategy"`
}

// Location returns the shop's reset timezone, resolved by Normalize.
func (d *Definition) Location() *time.Location {
	if d.loc == nil {
		return time.Local
	}
	return d.loc
}

// ResetWeekday returns the parsed weekday for WEEKLY resets.
func (d *Definition) ResetWeekday() time.Weekday {
	return d.weekday
}

// Item returns the item config at index, or an error for an out-of-range index.
func (d *Definition) Item(index int) (*ItemConfig, error) {
	if index < 0 || index >= len(d.Items) {
		return nil, fmt.Errorf("shop %s: item index %d out of range", d.ID, index)
	}
	return &d.Items[index], nil
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// Normalize resolves derived fields (timezone, weekday, defaults) and
// validates the definition. Called once at catalog load; any error here is
// fatal before the first transaction.
func (d *Definition) Normalize() error {
	if strings.TrimSpace(d.ID) == "" {
		return fmt.Errorf("shop definition missing id")
	}
	if len(d.Items) == 0 {
		return fmt.Errorf("shop %s: no items configured", d.ID)
	}

	if d.Currency == "" {
		d.Currency = CurrencyWallet
	}
	switch d.Currency {
	case CurrencyWallet, CurrencyPoints:
	case CurrencyCommand:
		if strings.TrimSpace(d.BalanceCommand) == "" ||
			strings.TrimSpace(d.AddCommand) == "" ||
			strings.TrimSpace(d.RemoveCommand) == "" {
			return fmt.Errorf("shop %s: command currency requires balance_command, add_command and remove_command", d.ID)
		}
	default:
		return fmt.Errorf("shop %s: unknown currency %q", d.ID, d.Currency)
	}

	if d.Taxes < 0 {
		return fmt.Errorf("shop %s: taxes must not be negative", d.ID)
	}

	if d.ResetPolicy == "" {
		d.ResetPolicy = ResetNone
	}
	switch d.ResetPolicy {
	case ResetNone:
	case ResetInterval:
		if d.ResetIntervalSeconds <= 0 {
			return fmt.Errorf("shop %s: interval reset requires reset_interval_seconds > 0", d.ID)
		}
	case ResetDaily, ResetWeekly, ResetMonthly:
		if d.ResetHour < 0 || d.ResetHour > 23 {
			return fmt.Errorf("shop %s: reset_hour %d out of range", d.ID, d.ResetHour)
		}
		if d.ResetMinute < 0 || d.ResetMinute > 59 {
			return fmt.Errorf("shop %s: reset_minute %d out of range", d.ID, d.ResetMinute)
		}
	default:
		return fmt.Errorf("shop %s: unknown reset policy %q", d.ID, d.ResetPolicy)
	}

	d.weekday = time.Monday
	if d.ResetPolicy == ResetWeekly {
		name := strings.ToLower(strings.TrimSpace(d.ResetDayOfWeek))
		if name != "" {
			wd, ok := weekdays[name]
			if !ok {
				return fmt.Errorf("shop %s: unknown reset_day_of_week %q", d.ID, d.ResetDayOfWeek)
			}
			d.weekday = wd
		}
	}
	if d.ResetPolicy == ResetMonthly {
		if d.ResetDayOfMonth < 1 || d.ResetDayOfMonth > 31 {
			return fmt.Errorf("shop %s: reset_day_of_month %d out of range", d.ID, d.ResetDayOfMonth)
		}
	}

	d.loc = time.Local
	if tz := strings.TrimSpace(d.Timezone); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return fmt.Errorf("shop %s: invalid timezone %q: %w", d.ID, d.Timezone, err)
		}
		d.loc = loc
	}

	for i := range d.Items {
		item := &d.Items[i]
		if strings.TrimSpace(item.ItemID) == "" {
			return fmt.Errorf("shop %s: item %d missing item_id", d.ID, i)
		}
		if item.LimitPerPlayer < 0 {
			return fmt.Errorf("shop %s: item %d: limit_per_player must not be negative", d.ID, i)
		}
		if err := item.Strategy.Validate(); err != nil {
			return fmt.Errorf("shop %s: item %d: %w", d.ID, i, err)
		}
	}
	return nil
}
