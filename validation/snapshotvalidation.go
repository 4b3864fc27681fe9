package validation

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/XChenLabs/NFTAuction/core"
	"github.com/XChenLabs/NFTAuction/escrowapi"
)

// ValidateSnapshot audits a ledger snapshot offline and verifies:
// - Auction and bid ids are positional and every reference is in range
// - Each auction's highest bid is its newest and largest bid, at least the start price
// - Bid amounts strictly increase by at least the minimum increment, inside the bidding window
// - No Active auction has a claimed asset or a settled highest bid
// - Every bidding window has a positive length
//
// Returns a SnapshotValidationResult with detailed results (call result.IsValid() to check overall status).
func ValidateSnapshot(snap escrowapi.Snapshot) *SnapshotValidationResult {
	result := &SnapshotValidationResult{}

	if err := snap.CheckShape(); err != nil {
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Snapshot shape invalid: %v", err))
		return result
	}
	result.ShapeValid = true

	result.WindowValid = true
	result.HighestBidValid = true
	result.BidSequenceValid = true
	result.SettlementValid = true

	for _, rec := range snap.Auctions {
		if !validateWindow(rec, result) {
			result.WindowValid = false
		}
		if !validateHighestBid(rec, result) {
			result.HighestBidValid = false
		}
		if !validateBidSequence(rec, result) {
			result.BidSequenceValid = false
		}
		if !validateSettlement(rec, result) {
			result.SettlementValid = false
		}
	}

	if result.IsValid() {
		result.ValidationDetails = append(result.ValidationDetails,
			fmt.Sprintf("Snapshot validation passed: %d auctions, digest %s", len(snap.Auctions), snap.Digest()))
	}
	return result
}

// ValidateSignedSnapshot verifies the COSE signature of a signed snapshot against a PEM-encoded
// public key, recomputes the ledger digest and audits the signed snapshot.
//
// Returns:
//   - SignedSnapshotValidationResult with detailed results (call result.IsValid() to check overall status)
//   - error if validation cannot be performed (e.g., malformed key or message)
func ValidateSignedSnapshot(signed escrowapi.SignedSnapshot, publicKeyPEM string) (*SignedSnapshotValidationResult, error) {
	pub, err := escrowapi.ParsePublicKeyPEM(publicKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}
	return validateSigned(signed, pub)
}

func validateSigned(signed escrowapi.SignedSnapshot, pub *ecdsa.PublicKey) (*SignedSnapshotValidationResult, error) {
	// Parse first so a malformed message is an error rather than a failed check
	env, err := signed.ExtractEnvelope()
	if err != nil {
		return nil, fmt.Errorf("failed to parse signed snapshot: %w", err)
	}

	result := &SignedSnapshotValidationResult{}

	if _, err := escrowapi.VerifySnapshot(pub, signed); err != nil {
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Signature validation failed: %v", err))
	} else {
		result.SignatureValid = true
		result.ValidationDetails = append(result.ValidationDetails, "Signature validation passed")
	}

	computed := env.Snapshot.Digest()
	if computed == env.Digest {
		result.DigestValid = true
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Digest validation passed: %s", computed))
	} else {
		result.ValidationDetails = append(result.ValidationDetails,
			fmt.Sprintf("Digest mismatch: computed %s, envelope has %s", computed, env.Digest))
	}

	inner := ValidateSnapshot(env.Snapshot)
	details := append(result.ValidationDetails, inner.ValidationDetails...)
	result.SnapshotValidationResult = *inner
	result.ValidationDetails = details
	return result, nil
}

func validateWindow(rec escrowapi.AuctionRecord, result *SnapshotValidationResult) bool {
	w := rec.Auction.Window()
	if w.Start.Before(w.End) {
		return true
	}
	result.ValidationDetails = append(result.ValidationDetails,
		fmt.Sprintf("Auction %d: window start %s is not before end %s", rec.Auction.ID, w.Start, w.End))
	return false
}

func validateHighestBid(rec escrowapi.AuctionRecord, result *SnapshotValidationResult) bool {
	a := rec.Auction
	// CheckShape already rejected a highest bid id without a matching bid
	if len(rec.Bids) == 0 {
		return true
	}

	valid := true
	newest := core.BidID(len(rec.Bids) - 1)
	if a.HighestBidID != newest {
		result.ValidationDetails = append(result.ValidationDetails,
			fmt.Sprintf("Auction %d: highest bid is %s, newest bid is %s", a.ID, a.HighestBidID, newest))
		return false
	}
	if largest := core.MaxBid(rec.Bids); largest != a.HighestBidID {
		result.ValidationDetails = append(result.ValidationDetails,
			fmt.Sprintf("Auction %d: highest bid %s is not the largest (bid %s)", a.ID, a.HighestBidID, largest))
		valid = false
	}
	if highest := rec.Bids[a.HighestBidID]; highest.Amount.LessThan(a.StartPrice) {
		result.ValidationDetails = append(result.ValidationDetails,
			fmt.Sprintf("Auction %d: highest amount %s below start price %s", a.ID, highest.Amount, a.StartPrice))
		valid = false
	}
	return valid
}

func validateBidSequence(rec escrowapi.AuctionRecord, result *SnapshotValidationResult) bool {
	a := rec.Auction
	w := a.Window()
	valid := true

	var prev *core.Bid
	for i := range rec.Bids {
		b := rec.Bids[i]
		if b.Bidder == "" {
			result.ValidationDetails = append(result.ValidationDetails,
				fmt.Sprintf("Auction %d: bid %s has no bidder", a.ID, b.ID))
			valid = false
		}
		if err := core.ValidateBidAmount(b.Amount); err != nil {
			result.ValidationDetails = append(result.ValidationDetails,
				fmt.Sprintf("Auction %d: bid %s: %v", a.ID, b.ID, err))
			valid = false
		}
		if !core.BidMeetsRequired(a, prev, b.Amount) {
			result.ValidationDetails = append(result.ValidationDetails,
				fmt.Sprintf("Auction %d: bid %s amount %s below required %s", a.ID, b.ID, b.Amount, core.RequiredBid(a, prev)))
			valid = false
		}
		if !w.Accepting(b.PlacedAt) {
			result.ValidationDetails = append(result.ValidationDetails,
				fmt.Sprintf("Auction %d: bid %s placed at %s outside the bidding window", a.ID, b.ID, b.PlacedAt))
			valid = false
		}
		if prev != nil && b.PlacedAt.Before(prev.PlacedAt) {
			result.ValidationDetails = append(result.ValidationDetails,
				fmt.Sprintf("Auction %d: bid %s placed before bid %s", a.ID, b.ID, prev.ID))
			valid = false
		}
		prev = &rec.Bids[i]
	}
	return valid
}

func validateSettlement(rec escrowapi.AuctionRecord, result *SnapshotValidationResult) bool {
	a := rec.Auction
	if a.Status.Terminal() {
		return true
	}

	valid := true
	if a.AssetClaimed {
		result.ValidationDetails = append(result.ValidationDetails,
			fmt.Sprintf("Auction %d: asset claimed while %s", a.ID, a.Status))
		valid = false
	}
	if a.HasBids() && rec.Bids[a.HighestBidID].Withdrawn {
		result.ValidationDetails = append(result.ValidationDetails,
			fmt.Sprintf("Auction %d: highest bid %s settled while %s", a.ID, a.HighestBidID, a.Status))
		valid = false
	}
	return valid
}
