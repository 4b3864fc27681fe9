package escrowapi

import (
	"fmt"
	"time"

	"github.com/XChenLabs/NFTAuction/core"
)

// SnapshotVersion is the schema version written into every snapshot.
const SnapshotVersion = 1

// AuctionRecord is one auction together with its full bid history.
type AuctionRecord struct {
	Auction core.Auction `json:"auction" cbor:"1,keyasint"`
	Bids    []core.Bid   `json:"bids" cbor:"2,keyasint"`
}

// Snapshot is the persisted shape of the engine: an append-only sequence of auctions indexed by
// id, each with an append-only sequence of bids indexed by id.
type Snapshot struct {
	Version  int             `json:"version" cbor:"1,keyasint"`
	TakenAt  time.Time       `json:"taken_at" cbor:"2,keyasint"`
	Auctions []AuctionRecord `json:"auctions" cbor:"3,keyasint"`
}

// Digest returns the ledger digest of the snapshot's records. TakenAt is not part of it.
func (s Snapshot) Digest() string {
	auctions := make([]core.Auction, len(s.Auctions))
	bids := make([][]core.Bid, len(s.Auctions))
	for i, rec := range s.Auctions {
		auctions[i] = rec.Auction
		bids[i] = rec.Bids
	}
	return core.ComputeLedgerDigest(auctions, bids)
}

// CheckShape verifies that ids are positional, every status is known and every reference stays
// in range. It does not check the bidding invariants; see package validation for a full audit.
func (s Snapshot) CheckShape() error {
	if s.Version != SnapshotVersion {
		return fmt.Errorf("unsupported snapshot version %d", s.Version)
	}
	for i, rec := range s.Auctions {
		a := rec.Auction
		if a.ID != core.AuctionID(i) {
			return fmt.Errorf("auction at position %d has id %d", i, a.ID)
		}
		if a.Status != core.StatusActive && !a.Status.Terminal() {
			return fmt.Errorf("auction %d has unknown status %s", a.ID, a.Status)
		}
		if a.HighestBidID != core.NoBid && uint64(a.HighestBidID) >= uint64(len(rec.Bids)) {
			return fmt.Errorf("auction %d references missing bid %s", a.ID, a.HighestBidID)
		}
		for j, b := range rec.Bids {
			if b.ID != core.BidID(j) || b.AuctionID != a.ID {
				return fmt.Errorf("auction %d: bid at position %d has id %d/%d", a.ID, j, b.AuctionID, b.ID)
			}
		}
	}
	return nil
}
