package validation

// SnapshotValidationResult contains the results of auditing a ledger snapshot
type SnapshotValidationResult struct {
	ShapeValid        bool // ids are positional and references stay in range
	HighestBidValid   bool // highest bid is the newest, the maximum and at least the start price
	BidSequenceValid  bool // amounts strictly increase by at least the increment, inside the window
	SettlementValid   bool // claim and withdrawal flags are consistent with the status
	WindowValid       bool
	ValidationDetails []string
}

// IsValid returns true if all snapshot checks passed
func (r *SnapshotValidationResult) IsValid() bool {
	return r.ShapeValid && r.HighestBidValid && r.BidSequenceValid && r.SettlementValid && r.WindowValid
}

// SignedSnapshotValidationResult contains validation results for a COSE-signed snapshot
type SignedSnapshotValidationResult struct {
	SnapshotValidationResult
	SignatureValid bool
	DigestValid    bool
}

// IsValid returns true if the signature, the digest and every snapshot check passed
func (r *SignedSnapshotValidationResult) IsValid() bool {
	return r.SignatureValid && r.DigestValid && r.SnapshotValidationResult.IsValid()
}
