package escrow

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/XChenLabs/NFTAuction/core"
)

// EventKind names the state change a Notification reports.
type EventKind string

const (
	EventAuctionOpened       EventKind = "auction_opened"
	EventAuctionCanceled     EventKind = "auction_canceled"
	EventAuctionEnded        EventKind = "auction_ended"
	EventBidPlaced           EventKind = "bid_placed"
	EventBidWithdrawn        EventKind = "bid_withdrawn"
	EventAssetClaimed        EventKind = "asset_claimed"
	EventFundsClaimed        EventKind = "funds_claimed"
	EventAssetTransferFailed EventKind = "asset_transfer_failed"
	EventFundsTransferFailed EventKind = "funds_transfer_failed"
)

// Notification is emitted once per state change. Fields that do not apply to a kind are zero;
// BidID is core.NoBid when no bid is involved.
type Notification struct {
	ID        uuid.UUID       `json:"id"`
	Kind      EventKind       `json:"kind"`
	AuctionID core.AuctionID  `json:"auction_id"`
	BidID     core.BidID      `json:"bid_id"`
	Party     core.Address    `json:"party,omitempty"`
	Amount    decimal.Decimal `json:"amount"`
	Asset     core.Asset      `json:"asset"`
	Reason    string          `json:"reason,omitempty"`
	At        time.Time       `json:"at"`
}

// Observer receives notifications. Delivery is synchronous and best-effort: a panicking observer
// is recovered and logged, and never affects the operation that emitted the notification.
type Observer interface {
	Notify(Notification)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(Notification)

func (f ObserverFunc) Notify(n Notification) { f(n) }

type observerSet struct {
	mu     sync.Mutex
	nextID int
	ids    []int
	byID   map[int]Observer
}

func (s *observerSet) add(o Observer) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.byID == nil {
		s.byID = make(map[int]Observer)
	}
	id := s.nextID
	s.nextID++
	s.ids = append(s.ids, id)
	s.byID[id] = o

	var once sync.Once
	return func() {
		once.Do(func() { s.remove(id) })
	}
}

func (s *observerSet) remove(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byID, id)
	for i, v := range s.ids {
		if v == id {
			s.ids = append(s.ids[:i], s.ids[i+1:]...)
			break
		}
	}
}

// list returns the observers in registration order.
func (s *observerSet) list() []Observer {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Observer, 0, len(s.ids))
	for _, id := range s.ids {
		out = append(out, s.byID[id])
	}
	return out
}

// Subscribe registers o and returns a function that unregisters it.
func (e *Engine) Subscribe(o Observer) (unsubscribe func()) {
	return e.observers.add(o)
}

func (e *Engine) emit(n Notification) {
	n.ID = uuid.New()
	n.At = e.clock.Now()
	for _, o := range e.observers.list() {
		e.deliver(o, n)
	}
}

func (e *Engine) deliver(o Observer, n Notification) {
	defer func() {
		if r := recover(); r != nil {
			e.log.WithField("kind", n.Kind).WithField("auction_id", n.AuctionID).
				Warnf("observer panic recovered: %v", r)
		}
	}()
	o.Notify(n)
}
