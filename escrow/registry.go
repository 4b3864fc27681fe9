package escrow

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/XChenLabs/NFTAuction/core"
)

// Open pulls the asset into custody and creates an Active auction for it.
// No record is created when validation or the custody transfer fails.
func (e *Engine) Open(ctx context.Context, p core.OpenParams) (core.AuctionID, error) {
	if err := e.enter(); err != nil {
		return 0, fmt.Errorf("open auction: %w", err)
	}
	defer e.exit()

	if err := core.ValidateOpenParams(p); err != nil {
		e.log.WithError(err).Debug("open rejected")
		return 0, fmt.Errorf("open auction: %w", err)
	}

	err := e.pull(ctx, core.OpAssetIn, p.Seller, func(ctx context.Context) error {
		return e.adapter.TransferAssetIn(ctx, p.Seller, p.Asset)
	})
	if err != nil {
		e.log.WithError(err).WithField("asset", p.Asset).Warn("asset custody transfer failed")
		return 0, fmt.Errorf("open auction: %w", err)
	}

	window := core.NewWindow(e.clock.Now(), p.StartDelay, p.Duration)

	e.mu.Lock()
	id := core.AuctionID(len(e.auctions))
	e.auctions = append(e.auctions, auctionEntry{
		auction: core.Auction{
			ID:              id,
			Seller:          p.Seller,
			Asset:           p.Asset,
			StartPrice:      p.StartPrice,
			MinBidIncrement: p.MinBidIncrement,
			StartTime:       window.Start,
			EndTime:         window.End,
			HighestBidID:    core.NoBid,
			Status:          core.StatusActive,
		},
	})
	e.mu.Unlock()

	e.auctionLog(id).WithField("seller", p.Seller).WithField("asset", p.Asset).
		WithField("end_time", window.End).Info("auction opened")
	e.emit(Notification{
		Kind:      EventAuctionOpened,
		AuctionID: id,
		BidID:     core.NoBid,
		Party:     p.Seller,
		Amount:    p.StartPrice,
		Asset:     p.Asset,
	})
	return id, nil
}

// Cancel lets the seller cancel an Active auction up to its end time. No transfers happen here:
// the asset and the highest bid are settled afterwards through ClaimAsset and ClaimFunds.
func (e *Engine) Cancel(_ context.Context, id core.AuctionID, caller core.Address) error {
	if err := e.enter(); err != nil {
		return fmt.Errorf("cancel auction %d: %w", id, err)
	}
	defer e.exit()

	a, err := e.transition(id, core.StatusCanceled, func(a core.Auction) error {
		if caller != a.Seller {
			return core.ErrUnauthorized
		}
		if a.Status != core.StatusActive {
			return core.ErrInvalidState
		}
		if !a.Window().Cancelable(e.clock.Now()) {
			return core.ErrWindowClosed
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("cancel auction %d: %w", id, err)
	}

	e.auctionLog(id).Info("auction canceled")
	e.emit(Notification{
		Kind:      EventAuctionCanceled,
		AuctionID: id,
		BidID:     a.HighestBidID,
		Party:     caller,
		Amount:    decimal.Zero,
		Asset:     a.Asset,
	})
	return nil
}

// Close ends an Active auction whose bidding window has passed. Anyone may call it.
func (e *Engine) Close(_ context.Context, id core.AuctionID) error {
	if err := e.enter(); err != nil {
		return fmt.Errorf("close auction %d: %w", id, err)
	}
	defer e.exit()

	a, err := e.transition(id, core.StatusEnded, func(a core.Auction) error {
		if a.Status != core.StatusActive {
			return core.ErrInvalidState
		}
		if !a.Window().Closable(e.clock.Now()) {
			return core.ErrWindowOpen
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("close auction %d: %w", id, err)
	}

	e.auctionLog(id).WithField("highest_bid_id", a.HighestBidID).Info("auction ended")
	e.emit(Notification{
		Kind:      EventAuctionEnded,
		AuctionID: id,
		BidID:     a.HighestBidID,
		Amount:    decimal.Zero,
		Asset:     a.Asset,
	})
	return nil
}

// transition moves an auction to a terminal status after check passes, and returns the updated record.
func (e *Engine) transition(id core.AuctionID, to core.Status, check func(core.Auction) error) (core.Auction, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	entry, err := e.entry(id)
	if err != nil {
		return core.Auction{}, err
	}
	if err := check(entry.auction); err != nil {
		e.auctionLog(id).WithError(err).WithField("status", entry.auction.Status).Debug("transition rejected")
		return core.Auction{}, err
	}
	entry.auction.Status = to
	return entry.auction, nil
}
