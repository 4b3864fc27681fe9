package core

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// AuctionID indexes an auction in the registry. Ids are assigned from 0 and never reused.
type AuctionID uint64

// BidID indexes a bid within a single auction's history.
type BidID uint64

// NoBid is the HighestBidID of an auction that has not accepted any bid yet.
const NoBid = ^BidID(0)

func (id BidID) String() string {
	if id == NoBid {
		return "none"
	}
	return fmt.Sprintf("%d", uint64(id))
}

// Address identifies a party: a seller, a bidder or any caller.
type Address string

// AssetRef identifies the collection (contract, registry) an asset belongs to.
type AssetRef string

// AssetID identifies an asset within its collection.
type AssetID string

// Asset is the single indivisible item held in custody by an auction.
type Asset struct {
	Ref AssetRef `json:"ref" cbor:"1,keyasint"`
	ID  AssetID  `json:"id" cbor:"2,keyasint"`
}

func (a Asset) String() string {
	return fmt.Sprintf("%s/%s", a.Ref, a.ID)
}

// Status is the lifecycle state of an auction.
type Status uint8

const (
	StatusActive Status = iota
	StatusCanceled
	StatusEnded
)

func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusCanceled:
		return "canceled"
	case StatusEnded:
		return "ended"
	default:
		return fmt.Sprintf("status(%d)", uint8(s))
	}
}

// Terminal reports whether no further status transition is possible.
func (s Status) Terminal() bool {
	return s == StatusCanceled || s == StatusEnded
}

// Auction is the custody-and-bidding record for one asset.
//
// Only Status, HighestBidID and AssetClaimed ever change after creation.
type Auction struct {
	ID              AuctionID       `json:"id" cbor:"1,keyasint"`
	Seller          Address         `json:"seller" cbor:"2,keyasint"`
	Asset           Asset           `json:"asset" cbor:"3,keyasint"`
	StartPrice      decimal.Decimal `json:"start_price" cbor:"4,keyasint"`
	MinBidIncrement decimal.Decimal `json:"min_bid_increment" cbor:"5,keyasint"`
	StartTime       time.Time       `json:"start_time" cbor:"6,keyasint"`
	EndTime         time.Time       `json:"end_time" cbor:"7,keyasint"`
	HighestBidID    BidID           `json:"highest_bid_id" cbor:"8,keyasint"`
	Status          Status          `json:"status" cbor:"9,keyasint"`
	AssetClaimed    bool            `json:"asset_claimed" cbor:"10,keyasint"`
}

// Bid is a funded offer scoped to one auction. Only Withdrawn ever changes after creation.
type Bid struct {
	ID        BidID           `json:"id" cbor:"1,keyasint"`
	AuctionID AuctionID       `json:"auction_id" cbor:"2,keyasint"`
	Bidder    Address         `json:"bidder" cbor:"3,keyasint"`
	Amount    decimal.Decimal `json:"amount" cbor:"4,keyasint"`
	Withdrawn bool            `json:"withdrawn" cbor:"5,keyasint"`
	PlacedAt  time.Time       `json:"placed_at" cbor:"6,keyasint"`
}
