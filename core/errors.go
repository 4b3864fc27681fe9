package core

import (
	"errors"
	"fmt"
)

// Kind classifies an engine error so callers and monitoring can tell a bad request apart from a
// lifecycle conflict or a failed external transfer.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindStateConflict
	KindTransfer
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindStateConflict:
		return "state_conflict"
	case KindTransfer:
		return "transfer"
	default:
		return "unknown"
	}
}

type kindError struct {
	kind Kind
	msg  string
}

func (e *kindError) Error() string { return e.msg }

func newKindError(kind Kind, msg string) error {
	return &kindError{kind: kind, msg: msg}
}

// Validation errors: malformed input, out-of-range ids, wrong caller, window violations.
var (
	ErrInvalidParams = newKindError(KindValidation, "invalid parameters")
	ErrNotFound      = newKindError(KindValidation, "not found")
	ErrUnauthorized  = newKindError(KindValidation, "caller is not the seller")
	ErrForbidden     = newKindError(KindValidation, "caller is not the bidder")
	ErrBidTooLow     = newKindError(KindValidation, "bid below required amount")
	ErrWindowClosed  = newKindError(KindValidation, "bidding window closed")
	ErrWindowOpen    = newKindError(KindValidation, "bidding window still open")
)

// State conflict errors: the operation is not permitted in the current lifecycle state.
var (
	ErrInvalidState     = newKindError(KindStateConflict, "invalid auction state")
	ErrAlreadyClaimed   = newKindError(KindStateConflict, "asset already claimed")
	ErrAlreadyWithdrawn = newKindError(KindStateConflict, "bid already withdrawn")
	ErrProtected        = newKindError(KindStateConflict, "highest bid can only be settled by claim")
	ErrNoBids           = newKindError(KindStateConflict, "auction has no bids")
	ErrReentrant        = newKindError(KindStateConflict, "reentrant call rejected")
)

// ErrTransferFailed is matched by every *TransferError.
var ErrTransferFailed = newKindError(KindTransfer, "transfer failed")

// TransferOp names the adapter operation that failed.
type TransferOp string

const (
	OpAssetIn  TransferOp = "asset_in"
	OpAssetOut TransferOp = "asset_out"
	OpFundsIn  TransferOp = "funds_in"
	OpFundsOut TransferOp = "funds_out"
)

// TransferError reports a failed asset or fund movement by the external transfer mechanism.
type TransferError struct {
	Op    TransferOp
	Party Address
	Err   error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("%s transfer for %s failed: %v", e.Op, e.Party, e.Err)
}

func (e *TransferError) Unwrap() []error {
	return []error{ErrTransferFailed, e.Err}
}

// KindOf returns the classification of err, or KindUnknown when err carries none.
func KindOf(err error) Kind {
	var ke *kindError
	if errors.As(err, &ke) {
		return ke.kind
	}
	return KindUnknown
}
