// Package transfertest provides TransferAdapter doubles for exercising the escrow engine.
package transfertest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/XChenLabs/NFTAuction/core"
)

// ErrRejected is returned for transfers configured to fail.
var ErrRejected = errors.New("transfer rejected by recipient")

// Transfer records one successful adapter call.
type Transfer struct {
	Op     core.TransferOp
	Party  core.Address
	Asset  core.Asset
	Amount decimal.Decimal
}

// Hook runs inside an adapter call, before its outcome is decided. A non-nil error fails the call.
type Hook func(ctx context.Context, t Transfer) error

// Adapter is an in-memory TransferAdapter. By default every transfer succeeds and is recorded;
// FailFor and FailOp turn selected transfers into failures.
//
// It also keeps custody books: Balance tracks net fund movement per party (negative after paying
// into custody) and Owner tracks who holds each asset (core.Address("") while in custody).
type Adapter struct {
	mu        sync.Mutex
	transfers []Transfer
	failParty map[core.Address]error
	failOp    map[core.TransferOp]error
	hook      Hook
	balances  map[core.Address]decimal.Decimal
	owners    map[core.Asset]core.Address
	custody   decimal.Decimal
}

// NewAdapter returns an Adapter on which every transfer succeeds.
func NewAdapter() *Adapter {
	return &Adapter{
		failParty: make(map[core.Address]error),
		failOp:    make(map[core.TransferOp]error),
		balances:  make(map[core.Address]decimal.Decimal),
		owners:    make(map[core.Asset]core.Address),
	}
}

// FailFor makes every transfer involving party fail with ErrRejected.
func (a *Adapter) FailFor(party core.Address) *Adapter {
	return a.FailForWith(party, ErrRejected)
}

// FailForWith makes every transfer involving party fail with err.
func (a *Adapter) FailForWith(party core.Address, err error) *Adapter {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failParty[party] = err
	return a
}

// FailOp makes every transfer of the given operation fail with ErrRejected.
func (a *Adapter) FailOp(op core.TransferOp) *Adapter {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failOp[op] = ErrRejected
	return a
}

// Recover clears all configured failures.
func (a *Adapter) Recover() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failParty = make(map[core.Address]error)
	a.failOp = make(map[core.TransferOp]error)
}

// OnTransfer installs a hook run at the start of every call, outside the adapter's lock so the
// hook may call back into the engine.
func (a *Adapter) OnTransfer(h Hook) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.hook = h
}

// Transfers returns every successful transfer in call order.
func (a *Adapter) Transfers() []Transfer {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]Transfer(nil), a.transfers...)
}

// TransfersOf returns the successful transfers of one operation.
func (a *Adapter) TransfersOf(op core.TransferOp) []Transfer {
	var out []Transfer
	for _, t := range a.Transfers() {
		if t.Op == op {
			out = append(out, t)
		}
	}
	return out
}

// Balance returns the net funds party received from custody minus what it paid in.
func (a *Adapter) Balance(party core.Address) decimal.Decimal {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.balances[party]
}

// Custody returns the funds currently held in custody.
func (a *Adapter) Custody() decimal.Decimal {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.custody
}

// Owner returns who holds asset, and whether it has ever been seen by the adapter.
func (a *Adapter) Owner(asset core.Asset) (core.Address, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	owner, ok := a.owners[asset]
	return owner, ok
}

func (a *Adapter) TransferAssetIn(ctx context.Context, owner core.Address, asset core.Asset) error {
	return a.do(ctx, Transfer{Op: core.OpAssetIn, Party: owner, Asset: asset})
}

func (a *Adapter) TransferAssetOut(ctx context.Context, recipient core.Address, asset core.Asset) error {
	return a.do(ctx, Transfer{Op: core.OpAssetOut, Party: recipient, Asset: asset})
}

func (a *Adapter) TransferFundsIn(ctx context.Context, payer core.Address, amount decimal.Decimal) error {
	return a.do(ctx, Transfer{Op: core.OpFundsIn, Party: payer, Amount: amount})
}

func (a *Adapter) TransferFundsOut(ctx context.Context, recipient core.Address, amount decimal.Decimal) error {
	return a.do(ctx, Transfer{Op: core.OpFundsOut, Party: recipient, Amount: amount})
}

func (a *Adapter) do(ctx context.Context, t Transfer) error {
	a.mu.Lock()
	hook := a.hook
	a.mu.Unlock()

	if hook != nil {
		if err := hook(ctx, t); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if err, ok := a.failParty[t.Party]; ok {
		return fmt.Errorf("%s to %s: %w", t.Op, t.Party, err)
	}
	if err, ok := a.failOp[t.Op]; ok {
		return fmt.Errorf("%s to %s: %w", t.Op, t.Party, err)
	}

	switch t.Op {
	case core.OpAssetIn:
		a.owners[t.Asset] = ""
	case core.OpAssetOut:
		a.owners[t.Asset] = t.Party
	case core.OpFundsIn:
		a.balances[t.Party] = a.balances[t.Party].Sub(t.Amount)
		a.custody = a.custody.Add(t.Amount)
	case core.OpFundsOut:
		a.balances[t.Party] = a.balances[t.Party].Add(t.Amount)
		a.custody = a.custody.Sub(t.Amount)
	}
	a.transfers = append(a.transfers, t)
	return nil
}
