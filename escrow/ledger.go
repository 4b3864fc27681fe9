package escrow

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/XChenLabs/NFTAuction/core"
)

// PlaceBid accepts a bid of amount from caller and pulls the funds into custody.
//
// The first bid must reach the start price and every later bid the previous highest amount plus
// the minimum increment, so the newest accepted bid is always the highest. No record is created
// when the fund transfer fails.
func (e *Engine) PlaceBid(ctx context.Context, id core.AuctionID, caller core.Address, amount decimal.Decimal) (core.BidID, error) {
	if err := e.enter(); err != nil {
		return 0, fmt.Errorf("place bid on auction %d: %w", id, err)
	}
	defer e.exit()

	now := e.clock.Now()
	if err := e.checkBid(id, caller, amount, now); err != nil {
		e.auctionLog(id).WithError(err).WithField("bidder", caller).WithField("amount", amount).Debug("bid rejected")
		return 0, fmt.Errorf("place bid on auction %d: %w", id, err)
	}

	err := e.pull(ctx, core.OpFundsIn, caller, func(ctx context.Context) error {
		return e.adapter.TransferFundsIn(ctx, caller, amount)
	})
	if err != nil {
		e.auctionLog(id).WithError(err).WithField("bidder", caller).Warn("bid funds transfer failed")
		return 0, fmt.Errorf("place bid on auction %d: %w", id, err)
	}

	e.mu.Lock()
	entry := &e.auctions[id]
	bidID := core.BidID(len(entry.bids))
	entry.bids = append(entry.bids, core.Bid{
		ID:        bidID,
		AuctionID: id,
		Bidder:    caller,
		Amount:    amount,
		PlacedAt:  now,
	})
	entry.auction.HighestBidID = bidID
	asset := entry.auction.Asset
	e.mu.Unlock()

	e.auctionLog(id).WithField("bid_id", bidID).WithField("bidder", caller).
		WithField("amount", amount).Info("bid accepted")
	e.emit(Notification{
		Kind:      EventBidPlaced,
		AuctionID: id,
		BidID:     bidID,
		Party:     caller,
		Amount:    amount,
		Asset:     asset,
	})
	return bidID, nil
}

func (e *Engine) checkBid(id core.AuctionID, caller core.Address, amount decimal.Decimal, now time.Time) error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	entry, err := e.entry(id)
	if err != nil {
		return err
	}
	a := entry.auction
	if a.Status != core.StatusActive {
		return core.ErrInvalidState
	}
	if !a.Window().Accepting(now) {
		return core.ErrWindowClosed
	}
	if caller == "" {
		return fmt.Errorf("missing bidder: %w", core.ErrInvalidParams)
	}
	if err := core.ValidateBidAmount(amount); err != nil {
		return err
	}
	highest := entry.highest()
	if !core.BidMeetsRequired(a, highest, amount) {
		return fmt.Errorf("bid %s below required %s: %w", amount, core.RequiredBid(a, highest), core.ErrBidTooLow)
	}
	return nil
}

// WithdrawBid lets a bidder recover the funds of a bid that is not the auction's highest, at any
// time, without waiting for the auction to close. The highest bid is only ever settled through
// ClaimFunds.
func (e *Engine) WithdrawBid(ctx context.Context, id core.AuctionID, bidID core.BidID, caller core.Address) error {
	if err := e.enter(); err != nil {
		return fmt.Errorf("withdraw bid %s of auction %d: %w", bidID, id, err)
	}
	defer e.exit()

	bid, asset, err := e.markWithdrawn(id, bidID, caller)
	if err != nil {
		e.auctionLog(id).WithError(err).WithField("bid_id", bidID).Debug("withdrawal rejected")
		return fmt.Errorf("withdraw bid %s of auction %d: %w", bidID, id, err)
	}

	return e.push(ctx, payout{
		op:    core.OpFundsOut,
		party: bid.Bidder,
		do: func(ctx context.Context) error {
			return e.adapter.TransferFundsOut(ctx, bid.Bidder, bid.Amount)
		},
		revert: func(a *auctionEntry) {
			a.bids[bidID].Withdrawn = false
		},
		auction: id,
		success: Notification{
			Kind:      EventBidWithdrawn,
			AuctionID: id,
			BidID:     bidID,
			Party:     bid.Bidder,
			Amount:    bid.Amount,
			Asset:     asset,
		},
		failure: EventFundsTransferFailed,
	})
}

// markWithdrawn checks and sets the withdrawal flag before any refund is attempted.
func (e *Engine) markWithdrawn(id core.AuctionID, bidID core.BidID, caller core.Address) (core.Bid, core.Asset, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	entry, err := e.entry(id)
	if err != nil {
		return core.Bid{}, core.Asset{}, err
	}
	if uint64(bidID) >= uint64(len(entry.bids)) {
		return core.Bid{}, core.Asset{}, fmt.Errorf("bid %s: %w", bidID, core.ErrNotFound)
	}
	bid := &entry.bids[bidID]
	if caller != bid.Bidder {
		return core.Bid{}, core.Asset{}, core.ErrForbidden
	}
	if bidID == entry.auction.HighestBidID {
		return core.Bid{}, core.Asset{}, core.ErrProtected
	}
	if bid.Withdrawn {
		return core.Bid{}, core.Asset{}, core.ErrAlreadyWithdrawn
	}
	bid.Withdrawn = true
	return *bid, entry.auction.Asset, nil
}
