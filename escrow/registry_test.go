package escrow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"

	"github.com/XChenLabs/NFTAuction/core"
	"github.com/XChenLabs/NFTAuction/escrow/transfertest"
)

func checkErrIs(t *testing.T, err, target error) {
	t.Helper()
	check.Error(t, err)
	check.True(t, errors.Is(err, target))
}

func TestNew(t *testing.T) {
	_, err := New(nil)
	check.Error(t, err)

	_, err = New(transfertest.NewAdapter(), WithConfig(Config{Policy: PolicyResilient}))
	check.Error(t, err)

	e, err := New(transfertest.NewAdapter())
	assert.NoError(t, err)
	check.Equal(t, DefaultConfig(), e.Config())
	check.Equal(t, 0, e.AuctionCount())
}

func TestOpen(t *testing.T) {
	h := newHarness(t, PolicyResilient)

	id := h.open(t)
	check.Equal(t, core.AuctionID(0), id)

	a := h.auction(t, id)
	check.Equal(t, seller, a.Seller)
	check.Equal(t, testAsset, a.Asset)
	check.Equal(t, core.StatusActive, a.Status)
	check.Equal(t, core.NoBid, a.HighestBidID)
	check.False(t, a.AssetClaimed)
	check.True(t, a.StartTime.Equal(testStart))
	check.True(t, a.EndTime.Equal(testStart.Add(time.Hour)))

	// Asset is in custody
	owner, seen := h.adapter.Owner(testAsset)
	check.True(t, seen)
	check.Equal(t, core.Address(""), owner)

	check.Equal(t, []EventKind{EventAuctionOpened}, h.events.kinds())
	n := h.events.last()
	check.Equal(t, id, n.AuctionID)
	check.Equal(t, core.NoBid, n.BidID)
	check.Equal(t, seller, n.Party)
	check.True(t, n.At.Equal(testStart))

	// Ids are sequential
	second := h.open(t)
	check.Equal(t, core.AuctionID(1), second)
	check.Equal(t, 2, h.engine.AuctionCount())
}

func TestOpen_StartDelay(t *testing.T) {
	h := newHarness(t, PolicyResilient)
	p := defaultParams()
	p.StartDelay = 10 * time.Minute

	id, err := h.engine.Open(context.Background(), p)
	assert.NoError(t, err)

	a := h.auction(t, id)
	check.True(t, a.StartTime.Equal(testStart.Add(10*time.Minute)))
	check.True(t, a.EndTime.Equal(testStart.Add(70*time.Minute)))

	// Bidding has not started yet
	_, err = h.engine.PlaceBid(context.Background(), id, alice, d("100"))
	checkErrIs(t, err, core.ErrWindowClosed)

	h.clock.Advance(10 * time.Minute)
	h.bid(t, id, alice, "100")
}

func TestOpen_InvalidParams(t *testing.T) {
	h := newHarness(t, PolicyResilient)
	p := defaultParams()
	p.Duration = 0

	_, err := h.engine.Open(context.Background(), p)
	checkErrIs(t, err, core.ErrInvalidParams)
	check.Equal(t, core.KindValidation, core.KindOf(err))

	// Validation happens before custody
	check.Equal(t, 0, len(h.adapter.Transfers()))
	check.Equal(t, 0, h.engine.AuctionCount())
	check.Equal(t, 0, len(h.events.kinds()))
}

func TestOpen_CustodyFailureCreatesNoRecord(t *testing.T) {
	for _, policy := range []Policy{PolicyStrict, PolicyResilient} {
		t.Run(policy.String(), func(t *testing.T) {
			h := newHarness(t, policy)
			h.adapter.FailFor(seller)

			_, err := h.engine.Open(context.Background(), defaultParams())
			checkErrIs(t, err, core.ErrTransferFailed)
			checkErrIs(t, err, transfertest.ErrRejected)
			check.Equal(t, core.KindTransfer, core.KindOf(err))

			var terr *core.TransferError
			check.True(t, errors.As(err, &terr))
			check.Equal(t, core.OpAssetIn, terr.Op)
			check.Equal(t, seller, terr.Party)

			check.Equal(t, 0, h.engine.AuctionCount())
			check.Equal(t, 0, len(h.events.kinds()))

			// The next successful open still gets id 0
			h.adapter.Recover()
			check.Equal(t, core.AuctionID(0), h.open(t))
		})
	}
}

func TestCancel(t *testing.T) {
	h := newHarness(t, PolicyResilient)
	id := h.open(t)
	h.bid(t, id, alice, "100")

	assert.NoError(t, h.engine.Cancel(context.Background(), id, seller))

	a := h.auction(t, id)
	check.Equal(t, core.StatusCanceled, a.Status)
	check.Equal(t, core.BidID(0), a.HighestBidID)
	check.Equal(t, EventAuctionCanceled, h.events.last().Kind)

	// Cancel moves nothing
	check.Equal(t, 0, len(h.adapter.TransfersOf(core.OpAssetOut)))
	check.Equal(t, 0, len(h.adapter.TransfersOf(core.OpFundsOut)))

	// No further bids or transitions
	_, err := h.engine.PlaceBid(context.Background(), id, bob, d("200"))
	checkErrIs(t, err, core.ErrInvalidState)
	checkErrIs(t, h.engine.Cancel(context.Background(), id, seller), core.ErrInvalidState)
	h.clock.Advance(2 * time.Hour)
	checkErrIs(t, h.engine.Close(context.Background(), id), core.ErrInvalidState)
}

func TestCancel_Errors(t *testing.T) {
	h := newHarness(t, PolicyResilient)
	id := h.open(t)

	checkErrIs(t, h.engine.Cancel(context.Background(), 7, seller), core.ErrNotFound)
	checkErrIs(t, h.engine.Cancel(context.Background(), id, alice), core.ErrUnauthorized)

	// Cancelable up to and including the end time
	h.clock.Advance(time.Hour)
	check.NoError(t, h.engine.Cancel(context.Background(), id, seller))

	late := h.open(t)
	h.clock.Advance(time.Hour + time.Nanosecond)
	err := h.engine.Cancel(context.Background(), late, seller)
	checkErrIs(t, err, core.ErrWindowClosed)
	check.Equal(t, core.StatusActive, h.auction(t, late).Status)
}

func TestClose(t *testing.T) {
	h := newHarness(t, PolicyResilient)
	id := h.open(t)

	// Not closable while the window is open, including at the end time itself
	checkErrIs(t, h.engine.Close(context.Background(), id), core.ErrWindowOpen)
	h.clock.Advance(time.Hour)
	checkErrIs(t, h.engine.Close(context.Background(), id), core.ErrWindowOpen)

	h.clock.Advance(time.Nanosecond)
	assert.NoError(t, h.engine.Close(context.Background(), id))
	check.Equal(t, core.StatusEnded, h.auction(t, id).Status)
	check.Equal(t, EventAuctionEnded, h.events.last().Kind)

	checkErrIs(t, h.engine.Close(context.Background(), id), core.ErrInvalidState)
	checkErrIs(t, h.engine.Cancel(context.Background(), id, seller), core.ErrInvalidState)
	checkErrIs(t, h.engine.Close(context.Background(), 9), core.ErrNotFound)
}

func TestQueries_ReturnCopies(t *testing.T) {
	h := newHarness(t, PolicyResilient)
	id := h.open(t)
	h.bid(t, id, alice, "100")

	a := h.auction(t, id)
	a.Status = core.StatusEnded
	check.Equal(t, core.StatusActive, h.auction(t, id).Status)

	bids, err := h.engine.Bids(id)
	assert.NoError(t, err)
	bids[0].Withdrawn = true
	check.False(t, h.bidRecord(t, id, 0).Withdrawn)

	snap := h.engine.Snapshot()
	snap.Auctions[0].Bids[0].Amount = d("1")
	check.True(t, h.bidRecord(t, id, 0).Amount.Equal(d("100")))

	_, err = h.engine.Bid(id, 5)
	checkErrIs(t, err, core.ErrNotFound)
	_, err = h.engine.Bids(3)
	checkErrIs(t, err, core.ErrNotFound)
	_, _, err = h.engine.HighestBid(3)
	checkErrIs(t, err, core.ErrNotFound)
}

func TestStatusPaths(t *testing.T) {
	// Active -> Canceled and Active -> Ended are the only transitions, and both are terminal.
	tests := []struct {
		name  string
		reach func(h *harness, id core.AuctionID) error
		want  core.Status
	}{
		{
			name: "canceled",
			reach: func(h *harness, id core.AuctionID) error {
				return h.engine.Cancel(context.Background(), id, seller)
			},
			want: core.StatusCanceled,
		},
		{
			name: "ended",
			reach: func(h *harness, id core.AuctionID) error {
				h.clock.Advance(2 * time.Hour)
				return h.engine.Close(context.Background(), id)
			},
			want: core.StatusEnded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, PolicyResilient)
			id := h.open(t)
			assert.NoError(t, tt.reach(h, id))
			check.Equal(t, tt.want, h.auction(t, id).Status)
			check.True(t, h.auction(t, id).Status.Terminal())

			checkErrIs(t, h.engine.Cancel(context.Background(), id, seller), core.ErrInvalidState)
			checkErrIs(t, h.engine.Close(context.Background(), id), core.ErrInvalidState)
			check.Equal(t, tt.want, h.auction(t, id).Status)
		})
	}
}
