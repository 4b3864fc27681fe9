package escrow

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/XChenLabs/NFTAuction/core"
)

// ClaimAsset delivers the custodied asset of a Canceled or Ended auction. The winner is the
// highest bidder of an Ended auction; in every other case the asset returns to the seller.
//
// AssetClaimed is set before the transfer, so a retry after success fails with
// core.ErrAlreadyClaimed and never delivers twice.
func (e *Engine) ClaimAsset(ctx context.Context, id core.AuctionID) error {
	if err := e.enter(); err != nil {
		return fmt.Errorf("claim asset of auction %d: %w", id, err)
	}
	defer e.exit()

	a, recipient, err := e.markAssetClaimed(id)
	if err != nil {
		e.auctionLog(id).WithError(err).Debug("asset claim rejected")
		return fmt.Errorf("claim asset of auction %d: %w", id, err)
	}

	err = e.push(ctx, payout{
		op:    core.OpAssetOut,
		party: recipient,
		do: func(ctx context.Context) error {
			return e.adapter.TransferAssetOut(ctx, recipient, a.Asset)
		},
		revert: func(entry *auctionEntry) {
			entry.auction.AssetClaimed = false
		},
		auction: id,
		success: Notification{
			Kind:      EventAssetClaimed,
			AuctionID: id,
			BidID:     a.HighestBidID,
			Party:     recipient,
			Amount:    decimal.Zero,
			Asset:     a.Asset,
		},
		failure: EventAssetTransferFailed,
	})
	if err != nil {
		return fmt.Errorf("claim asset of auction %d: %w", id, err)
	}
	return nil
}

func (e *Engine) markAssetClaimed(id core.AuctionID) (core.Auction, core.Address, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	entry, err := e.entry(id)
	if err != nil {
		return core.Auction{}, "", err
	}
	if entry.auction.Status == core.StatusActive {
		return core.Auction{}, "", core.ErrInvalidState
	}
	if entry.auction.AssetClaimed {
		return core.Auction{}, "", core.ErrAlreadyClaimed
	}
	entry.auction.AssetClaimed = true
	return entry.auction, core.AssetRecipient(entry.auction, entry.highest()), nil
}

// ClaimFunds settles the highest bid of a Canceled or Ended auction: the seller receives the
// proceeds of an Ended auction, the bidder is refunded when it was Canceled.
//
// The highest bid's Withdrawn flag is set before the transfer, so a retry after success fails
// with core.ErrAlreadyWithdrawn.
func (e *Engine) ClaimFunds(ctx context.Context, id core.AuctionID) error {
	if err := e.enter(); err != nil {
		return fmt.Errorf("claim funds of auction %d: %w", id, err)
	}
	defer e.exit()

	a, highest, recipient, err := e.markFundsClaimed(id)
	if err != nil {
		e.auctionLog(id).WithError(err).Debug("funds claim rejected")
		return fmt.Errorf("claim funds of auction %d: %w", id, err)
	}

	err = e.push(ctx, payout{
		op:    core.OpFundsOut,
		party: recipient,
		do: func(ctx context.Context) error {
			return e.adapter.TransferFundsOut(ctx, recipient, highest.Amount)
		},
		revert: func(entry *auctionEntry) {
			entry.bids[highest.ID].Withdrawn = false
		},
		auction: id,
		success: Notification{
			Kind:      EventFundsClaimed,
			AuctionID: id,
			BidID:     highest.ID,
			Party:     recipient,
			Amount:    highest.Amount,
			Asset:     a.Asset,
		},
		failure: EventFundsTransferFailed,
	})
	if err != nil {
		return fmt.Errorf("claim funds of auction %d: %w", id, err)
	}
	return nil
}

func (e *Engine) markFundsClaimed(id core.AuctionID) (core.Auction, core.Bid, core.Address, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	entry, err := e.entry(id)
	if err != nil {
		return core.Auction{}, core.Bid{}, "", err
	}
	if entry.auction.Status == core.StatusActive {
		return core.Auction{}, core.Bid{}, "", core.ErrInvalidState
	}
	if !entry.auction.HasBids() {
		return core.Auction{}, core.Bid{}, "", core.ErrNoBids
	}
	highest := &entry.bids[entry.auction.HighestBidID]
	if highest.Withdrawn {
		return core.Auction{}, core.Bid{}, "", core.ErrAlreadyWithdrawn
	}
	highest.Withdrawn = true
	return entry.auction, *highest, core.FundsRecipient(entry.auction, *highest), nil
}
