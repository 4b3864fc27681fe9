// Package escrow implements the escrowed competitive-bidding engine: an auction registry, a
// per-auction bid ledger and a pull-based settlement engine, all sharing one arena of records.
//
// Every mutating operation holds a non-reentrant guard for its whole duration and finalizes its
// local state before calling the TransferAdapter, so a recipient that calls back into the engine
// can neither re-enter nor observe a half-applied change. The engine expects its host to serialize
// mutating calls; an overlapping call fails with core.ErrReentrant instead of waiting.
package escrow

import (
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"

	"github.com/XChenLabs/NFTAuction/core"
	"github.com/XChenLabs/NFTAuction/escrowapi"
)

// Clock provides the current time. It enables dependency injection for deterministic testing.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to the Clock interface.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Engine custodies assets and bids and settles them after close.
type Engine struct {
	adapter TransferAdapter
	clock   Clock
	log     logrus.FieldLogger
	cfg     Config

	guard *atomic.Bool

	mu       sync.RWMutex
	auctions []auctionEntry

	observers observerSet
}

type auctionEntry struct {
	auction core.Auction
	bids    []core.Bid
}

// highest returns a copy of the current highest bid, or nil.
func (a *auctionEntry) highest() *core.Bid {
	if !a.auction.HasBids() {
		return nil
	}
	b := a.bids[a.auction.HighestBidID]
	return &b
}

// Option configures an Engine.
type Option func(*Engine)

// WithConfig sets the transfer policy and budget.
func WithConfig(cfg Config) Option {
	return func(e *Engine) { e.cfg = cfg }
}

// WithClock replaces the system clock.
func WithClock(c Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithLogger replaces the standard logrus logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(e *Engine) { e.log = l }
}

// WithObserver registers an observer for the lifetime of the engine.
func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observers.add(o) }
}

// New creates an empty engine that moves assets and funds through adapter.
func New(adapter TransferAdapter, opts ...Option) (*Engine, error) {
	if adapter == nil {
		return nil, fmt.Errorf("transfer adapter is required")
	}
	e := &Engine{
		adapter: adapter,
		clock:   systemClock{},
		log:     logrus.StandardLogger(),
		cfg:     DefaultConfig(),
		guard:   atomic.NewBool(false),
	}
	for _, opt := range opts {
		opt(e)
	}
	if err := e.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid engine config: %w", err)
	}
	return e, nil
}

// Restore creates an engine holding the records of a previously taken snapshot. New auctions and
// bids continue after the restored ids.
func Restore(snap escrowapi.Snapshot, adapter TransferAdapter, opts ...Option) (*Engine, error) {
	if err := snap.CheckShape(); err != nil {
		return nil, fmt.Errorf("restore snapshot: %w", err)
	}
	e, err := New(adapter, opts...)
	if err != nil {
		return nil, err
	}
	e.auctions = make([]auctionEntry, len(snap.Auctions))
	for i, rec := range snap.Auctions {
		e.auctions[i] = auctionEntry{
			auction: rec.Auction,
			bids:    append([]core.Bid(nil), rec.Bids...),
		}
	}
	e.log.WithField("auctions", len(e.auctions)).Info("engine restored from snapshot")
	return e, nil
}

// Config returns the engine's settlement configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// enter acquires the non-reentrant guard shared by every mutating operation.
func (e *Engine) enter() error {
	if !e.guard.CAS(false, true) {
		return core.ErrReentrant
	}
	return nil
}

func (e *Engine) exit() {
	e.guard.Store(false)
}

// entry returns the auction record for id. Callers must hold e.mu.
func (e *Engine) entry(id core.AuctionID) (*auctionEntry, error) {
	if uint64(id) >= uint64(len(e.auctions)) {
		return nil, fmt.Errorf("auction %d: %w", id, core.ErrNotFound)
	}
	return &e.auctions[id], nil
}

// Auction returns a copy of the auction record.
func (e *Engine) Auction(id core.AuctionID) (core.Auction, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	a, err := e.entry(id)
	if err != nil {
		return core.Auction{}, err
	}
	return a.auction, nil
}

// AuctionCount returns the number of auctions ever opened.
func (e *Engine) AuctionCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.auctions)
}

// Bid returns a copy of one bid of an auction.
func (e *Engine) Bid(id core.AuctionID, bidID core.BidID) (core.Bid, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	a, err := e.entry(id)
	if err != nil {
		return core.Bid{}, err
	}
	if uint64(bidID) >= uint64(len(a.bids)) {
		return core.Bid{}, fmt.Errorf("bid %s of auction %d: %w", bidID, id, core.ErrNotFound)
	}
	return a.bids[bidID], nil
}

// Bids returns a copy of an auction's full bid history in acceptance order.
func (e *Engine) Bids(id core.AuctionID) ([]core.Bid, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	a, err := e.entry(id)
	if err != nil {
		return nil, err
	}
	return append([]core.Bid(nil), a.bids...), nil
}

// HighestBid returns the current highest bid and whether one exists.
func (e *Engine) HighestBid(id core.AuctionID) (core.Bid, bool, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	a, err := e.entry(id)
	if err != nil {
		return core.Bid{}, false, err
	}
	h := a.highest()
	if h == nil {
		return core.Bid{}, false, nil
	}
	return *h, true, nil
}

// Snapshot returns a deep copy of every record in the engine.
func (e *Engine) Snapshot() escrowapi.Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	snap := escrowapi.Snapshot{
		Version:  escrowapi.SnapshotVersion,
		TakenAt:  e.clock.Now(),
		Auctions: make([]escrowapi.AuctionRecord, len(e.auctions)),
	}
	for i, a := range e.auctions {
		snap.Auctions[i] = escrowapi.AuctionRecord{
			Auction: a.auction,
			Bids:    append([]core.Bid{}, a.bids...),
		}
	}
	return snap
}

func (e *Engine) auctionLog(id core.AuctionID) logrus.FieldLogger {
	return e.log.WithField("auction_id", id)
}
