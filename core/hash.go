package core

import (
	"crypto/sha256"
	"fmt"
)

// ComputeBidHash computes the audit hash of a single bid record.
//
// Formula: SHA256(auction_id + "|" + bid_id + "|" + bidder + "|" + amount + "|" + withdrawn)
//
// The amount is written with its exact decimal string so that equal amounts always hash the same
// regardless of how they were constructed.
func ComputeBidHash(b Bid) string {
	data := fmt.Sprintf("%d|%d|%s|%s|%t", b.AuctionID, b.ID, b.Bidder, b.Amount.String(), b.Withdrawn)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}

// ComputeAuctionHash computes the audit hash of an auction record together with its bid history.
//
// Formula: SHA256(id|seller|asset|start_price|increment|start_unix_nano|end_unix_nano|highest|status|claimed
// followed by "|" + ComputeBidHash(bid) for every bid in id order)
func ComputeAuctionHash(a Auction, bids []Bid) string {
	data := fmt.Sprintf("%d|%s|%s|%s|%s|%d|%d|%s|%s|%t",
		a.ID, a.Seller, a.Asset, a.StartPrice.String(), a.MinBidIncrement.String(),
		a.StartTime.UnixNano(), a.EndTime.UnixNano(), a.HighestBidID, a.Status, a.AssetClaimed)
	for _, b := range bids {
		data += "|" + ComputeBidHash(b)
	}
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}

// ComputeLedgerDigest computes the digest of a whole ledger: every auction hash in id order,
// joined and hashed again. bids[i] must hold the history of auctions[i].
func ComputeLedgerDigest(auctions []Auction, bids [][]Bid) string {
	data := fmt.Sprintf("%d", len(auctions))
	for i, a := range auctions {
		var history []Bid
		if i < len(bids) {
			history = bids[i]
		}
		data += "|" + ComputeAuctionHash(a, history)
	}
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}
