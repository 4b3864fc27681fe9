package escrow

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"

	"github.com/XChenLabs/NFTAuction/core"
	"github.com/XChenLabs/NFTAuction/escrow/transfertest"
)

var (
	testStart = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	seller = core.Address("seller")
	alice  = core.Address("alice")
	bob    = core.Address("bob")
	carol  = core.Address("carol")

	testAsset = core.Asset{Ref: "collection", ID: "42"}
)

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// recorder collects every notification in delivery order.
type recorder struct {
	mu    sync.Mutex
	notes []Notification
}

func (r *recorder) Notify(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, n)
}

func (r *recorder) kinds() []EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventKind, len(r.notes))
	for i, n := range r.notes {
		out[i] = n.Kind
	}
	return out
}

func (r *recorder) last() Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.notes[len(r.notes)-1]
}

func (r *recorder) count(kind EventKind) int {
	n := 0
	for _, k := range r.kinds() {
		if k == kind {
			n++
		}
	}
	return n
}

type harness struct {
	engine  *Engine
	adapter *transfertest.Adapter
	clock   *fakeClock
	events  *recorder
	logs    *logtest.Hook
}

func newHarness(t *testing.T, policy Policy) *harness {
	t.Helper()
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	h := &harness{
		adapter: transfertest.NewAdapter(),
		clock:   &fakeClock{now: testStart},
		events:  &recorder{},
		logs:    hook,
	}
	cfg := DefaultConfig()
	cfg.Policy = policy

	e, err := New(h.adapter,
		WithConfig(cfg),
		WithClock(h.clock),
		WithLogger(logger),
		WithObserver(h.events),
	)
	assert.NoError(t, err)
	h.engine = e
	return h
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func defaultParams() core.OpenParams {
	return core.OpenParams{
		Seller:          seller,
		Asset:           testAsset,
		StartPrice:      d("100"),
		MinBidIncrement: d("10"),
		StartDelay:      0,
		Duration:        time.Hour,
	}
}

func (h *harness) open(t *testing.T) core.AuctionID {
	t.Helper()
	id, err := h.engine.Open(context.Background(), defaultParams())
	assert.NoError(t, err)
	return id
}

func (h *harness) bid(t *testing.T, id core.AuctionID, who core.Address, amount string) core.BidID {
	t.Helper()
	bidID, err := h.engine.PlaceBid(context.Background(), id, who, d(amount))
	assert.NoError(t, err)
	return bidID
}

// end advances past the end time and closes the auction.
func (h *harness) end(t *testing.T, id core.AuctionID) {
	t.Helper()
	h.clock.Advance(time.Hour + time.Second)
	assert.NoError(t, h.engine.Close(context.Background(), id))
}

func (h *harness) auction(t *testing.T, id core.AuctionID) core.Auction {
	t.Helper()
	a, err := h.engine.Auction(id)
	assert.NoError(t, err)
	return a
}

func (h *harness) bidRecord(t *testing.T, id core.AuctionID, bidID core.BidID) core.Bid {
	t.Helper()
	b, err := h.engine.Bid(id, bidID)
	assert.NoError(t, err)
	return b
}
