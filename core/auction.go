package core

// HasBids reports whether the auction has accepted at least one bid.
func (a Auction) HasBids() bool {
	return a.HighestBidID != NoBid
}

// Window returns the bidding window of the auction.
func (a Auction) Window() Window {
	return WindowOf(a)
}

// AssetRecipient returns who receives the custodied asset at settlement.
//
// The highest bidder wins only when the auction Ended with a bid; an auction that ended empty or
// was canceled returns the asset to the seller. highest must be the bid referenced by
// a.HighestBidID, or nil when there is none.
func AssetRecipient(a Auction, highest *Bid) Address {
	if a.Status == StatusEnded && highest != nil {
		return highest.Bidder
	}
	return a.Seller
}

// FundsRecipient returns who receives the highest bid's funds at settlement:
// the seller when the sale completed, the bidder (refund) when the auction was canceled.
func FundsRecipient(a Auction, highest Bid) Address {
	if a.Status == StatusCanceled {
		return highest.Bidder
	}
	return a.Seller
}

// MaxBid scans bids for the largest amount. It is an audit helper; the engine itself never
// re-derives the highest bid and instead tracks it as the most recently accepted one.
// Returns NoBid when bids is empty.
func MaxBid(bids []Bid) BidID {
	best := -1
	for i := range bids {
		if best < 0 || bids[i].Amount.GreaterThan(bids[best].Amount) {
			best = i
		}
	}
	if best < 0 {
		return NoBid
	}
	return bids[best].ID
}
