package escrowapi

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// encMode produces deterministic CBOR so equal snapshots always encode to equal bytes.
// Times keep nanosecond precision.
var encMode = mustEncMode()

func mustEncMode() cbor.EncMode {
	opts := cbor.CoreDetEncOptions()
	opts.Time = cbor.TimeRFC3339Nano
	mode, err := opts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("escrowapi: invalid CBOR options: %v", err))
	}
	return mode
}

// EncodeSnapshot encodes a snapshot as deterministic CBOR.
func EncodeSnapshot(s Snapshot) ([]byte, error) {
	data, err := encMode.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, nil
}

// DecodeSnapshot decodes CBOR produced by EncodeSnapshot and checks its shape.
func DecodeSnapshot(data []byte) (Snapshot, error) {
	var s Snapshot
	if err := cbor.Unmarshal(data, &s); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	if err := s.CheckShape(); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return s, nil
}
