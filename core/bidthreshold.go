package core

import (
	"fmt"

	"github.com/shopspring/decimal"
)

const monetaryPrecision int32 = 18 // smallest fund unit accepted by the engine (1e-18)

// HasMonetaryPrecision reports whether amount is representable in the engine's fund unit.
func HasMonetaryPrecision(amount decimal.Decimal) bool {
	return amount.Equal(amount.Truncate(monetaryPrecision))
}

// RequiredBid returns the smallest amount the next bid on a must commit.
// With no bids it is the start price; otherwise the highest amount plus the minimum increment.
func RequiredBid(a Auction, highest *Bid) decimal.Decimal {
	if highest == nil {
		return a.StartPrice
	}
	return highest.Amount.Add(a.MinBidIncrement)
}

// BidMeetsRequired reports whether amount is acceptable as the next bid on a.
// A zero increment still demands a strictly higher amount so two bids never tie.
func BidMeetsRequired(a Auction, highest *Bid, amount decimal.Decimal) bool {
	if !amount.GreaterThanOrEqual(RequiredBid(a, highest)) {
		return false
	}
	if highest != nil && !amount.GreaterThan(highest.Amount) {
		return false
	}
	return true
}

// ValidateBidAmount checks a raw bid amount before it is compared against the auction thresholds.
func ValidateBidAmount(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return fmt.Errorf("negative bid amount %s: %w", amount, ErrInvalidParams)
	}
	if !HasMonetaryPrecision(amount) {
		return fmt.Errorf("bid amount %s exceeds %d decimal places: %w", amount, monetaryPrecision, ErrInvalidParams)
	}
	return nil
}
