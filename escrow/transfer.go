package escrow

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/XChenLabs/NFTAuction/core"
)

// TransferAdapter moves the asset and funds between parties and custody.
//
// A nil error means the movement completed; any error is a failure whose handling depends on the
// engine's Policy. Implementations may call back into the engine (a recipient hook, for example);
// such calls are rejected with core.ErrReentrant while the calling operation is in progress.
type TransferAdapter interface {
	TransferAssetIn(ctx context.Context, owner core.Address, asset core.Asset) error
	TransferAssetOut(ctx context.Context, recipient core.Address, asset core.Asset) error
	TransferFundsIn(ctx context.Context, payer core.Address, amount decimal.Decimal) error
	TransferFundsOut(ctx context.Context, recipient core.Address, amount decimal.Decimal) error
}

// invoke runs one adapter call, converting a panic into a failure.
func invoke(ctx context.Context, fn func(context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("transfer panicked: %v", r)
		}
	}()
	return fn(ctx)
}

// invokeWithin runs one adapter call but stops waiting once ctx is done, so an adapter that
// ignores cancellation cannot hold the engine past the budget. The abandoned call keeps running
// in its goroutine and its result is discarded.
func invokeWithin(ctx context.Context, fn func(context.Context) error) error {
	done := make(chan error, 1)
	go func() { done <- invoke(ctx, fn) }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("transfer budget exceeded: %w", ctx.Err())
	}
}

// pull moves an asset or funds into custody. A failure always aborts the calling operation,
// whatever the policy, because nothing has been recorded yet.
func (e *Engine) pull(ctx context.Context, op core.TransferOp, party core.Address, fn func(context.Context) error) error {
	if err := invoke(ctx, fn); err != nil {
		return &core.TransferError{Op: op, Party: party, Err: err}
	}
	return nil
}

// payout describes one outbound transfer and what to do with its outcome.
type payout struct {
	op      core.TransferOp
	party   core.Address
	do      func(context.Context) error
	revert  func(a *auctionEntry) // undoes the flag set before the transfer, called with e.mu held
	auction core.AuctionID
	success Notification
	failure EventKind
}

// push executes an outbound transfer under the configured policy.
//
// Under PolicyStrict a failure calls revert and returns the *core.TransferError. Under
// PolicyResilient the engine waits at most the transfer budget, whether or not the adapter honors
// ctx; on failure or timeout the flag stays set, a failure notification is emitted and nil is
// returned.
func (e *Engine) push(ctx context.Context, p payout) error {
	log := e.auctionLog(p.auction).WithField("op", p.op).WithField("party", p.party)

	var err error
	if e.cfg.Policy == PolicyResilient {
		callCtx, cancel := context.WithTimeout(ctx, e.cfg.TransferBudget)
		defer cancel()
		err = invokeWithin(callCtx, p.do)
	} else {
		err = invoke(ctx, p.do)
	}
	if err == nil {
		log.WithField("kind", p.success.Kind).Info("payout delivered")
		e.emit(p.success)
		return nil
	}
	terr := &core.TransferError{Op: p.op, Party: p.party, Err: err}

	if e.cfg.Policy == PolicyStrict {
		e.mu.Lock()
		p.revert(&e.auctions[p.auction])
		e.mu.Unlock()
		log.WithError(err).Warn("payout failed, state reverted")
		return terr
	}

	log.WithError(err).Warn("payout failed, custody retained")
	failed := p.success
	failed.Kind = p.failure
	failed.Reason = terr.Error()
	e.emit(failed)
	return nil
}
