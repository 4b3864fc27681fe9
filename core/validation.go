package core

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// OpenParams describes a new auction.
type OpenParams struct {
	Seller          Address
	Asset           Asset
	StartPrice      decimal.Decimal
	MinBidIncrement decimal.Decimal
	StartDelay      time.Duration
	Duration        time.Duration
}

// ValidateOpenParams checks p before any custody transfer is attempted.
func ValidateOpenParams(p OpenParams) error {
	if p.Seller == "" {
		return fmt.Errorf("missing seller: %w", ErrInvalidParams)
	}
	if p.Asset.ID == "" {
		return fmt.Errorf("missing asset id: %w", ErrInvalidParams)
	}
	if p.StartPrice.IsNegative() {
		return fmt.Errorf("negative start price %s: %w", p.StartPrice, ErrInvalidParams)
	}
	if p.MinBidIncrement.IsNegative() {
		return fmt.Errorf("negative minimum bid increment %s: %w", p.MinBidIncrement, ErrInvalidParams)
	}
	if !HasMonetaryPrecision(p.StartPrice) || !HasMonetaryPrecision(p.MinBidIncrement) {
		return fmt.Errorf("price exceeds %d decimal places: %w", monetaryPrecision, ErrInvalidParams)
	}
	if p.StartDelay < 0 {
		return fmt.Errorf("negative start delay %s: %w", p.StartDelay, ErrInvalidParams)
	}
	if p.Duration <= 0 {
		return fmt.Errorf("duration must be positive, got %s: %w", p.Duration, ErrInvalidParams)
	}
	return nil
}
