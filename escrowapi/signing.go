package escrowapi

import (
	"bytes"
	"compress/gzip"
	"crypto/ecdsa"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
	"github.com/veraison/go-cose"
)

// SigningAlgorithm is the COSE algorithm used for signed snapshots (ECDSA P-256 with SHA-256).
var SigningAlgorithm = cose.AlgorithmES256

// SnapshotEnvelope is the payload of a signed snapshot: the snapshot and its ledger digest.
type SnapshotEnvelope struct {
	Digest   string   `json:"digest" cbor:"1,keyasint"`
	Snapshot Snapshot `json:"snapshot" cbor:"2,keyasint"`
}

// SignedSnapshot is a tagged COSE_Sign1 message whose payload is a CBOR SnapshotEnvelope.
type SignedSnapshot []byte

// SignedSnapshotBase64 is the standard base64 transport form of a SignedSnapshot.
type SignedSnapshotBase64 string

// SignedSnapshotGzip is the gzip-compressed, URL-safe base64 form of a SignedSnapshot.
type SignedSnapshotGzip string

// SignSnapshot signs s with key. The digest is computed here so verifiers can check that the
// records were not altered independently of the signature.
func SignSnapshot(key *ecdsa.PrivateKey, s Snapshot) (SignedSnapshot, error) {
	payload, err := encMode.Marshal(SnapshotEnvelope{Digest: s.Digest(), Snapshot: s})
	if err != nil {
		return nil, fmt.Errorf("encode snapshot envelope: %w", err)
	}

	signer, err := cose.NewSigner(SigningAlgorithm, key)
	if err != nil {
		return nil, fmt.Errorf("create signer: %w", err)
	}

	msg := cose.NewSign1Message()
	msg.Headers.Protected.SetAlgorithm(SigningAlgorithm)
	msg.Payload = payload
	if err := msg.Sign(rand.Reader, nil, signer); err != nil {
		return nil, fmt.Errorf("sign snapshot: %w", err)
	}

	out, err := msg.MarshalCBOR()
	if err != nil {
		return nil, fmt.Errorf("encode COSE_Sign1: %w", err)
	}
	return out, nil
}

// ExtractEnvelope decodes the payload of a signed snapshot without verifying the signature.
func (s SignedSnapshot) ExtractEnvelope() (SnapshotEnvelope, error) {
	var msg cose.Sign1Message
	if err := msg.UnmarshalCBOR(s); err != nil {
		return SnapshotEnvelope{}, fmt.Errorf("parse COSE_Sign1: %w", err)
	}
	var env SnapshotEnvelope
	if err := cbor.Unmarshal(msg.Payload, &env); err != nil {
		return SnapshotEnvelope{}, fmt.Errorf("parse snapshot envelope: %w", err)
	}
	return env, nil
}

// VerifySnapshot checks the signature against pub and returns the signed envelope.
// It does not recompute the digest; see validation.ValidateSignedSnapshot.
func VerifySnapshot(pub *ecdsa.PublicKey, s SignedSnapshot) (SnapshotEnvelope, error) {
	var msg cose.Sign1Message
	if err := msg.UnmarshalCBOR(s); err != nil {
		return SnapshotEnvelope{}, fmt.Errorf("parse COSE_Sign1: %w", err)
	}

	verifier, err := cose.NewVerifier(SigningAlgorithm, pub)
	if err != nil {
		return SnapshotEnvelope{}, fmt.Errorf("create verifier: %w", err)
	}
	if err := msg.Verify(nil, verifier); err != nil {
		return SnapshotEnvelope{}, fmt.Errorf("COSE signature verification failed: %w", err)
	}

	var env SnapshotEnvelope
	if err := cbor.Unmarshal(msg.Payload, &env); err != nil {
		return SnapshotEnvelope{}, fmt.Errorf("parse snapshot envelope: %w", err)
	}
	return env, nil
}

// EncodeBase64 encodes the signed snapshot with standard base64.
func (s SignedSnapshot) EncodeBase64() SignedSnapshotBase64 {
	return SignedSnapshotBase64(base64.StdEncoding.EncodeToString(s))
}

func (b SignedSnapshotBase64) String() string {
	return string(b)
}

// Decode decodes the base64 form back to raw COSE bytes.
func (b SignedSnapshotBase64) Decode() (SignedSnapshot, error) {
	data, err := base64.StdEncoding.DecodeString(string(b))
	if err != nil {
		return nil, fmt.Errorf("decode signed snapshot base64: %w", err)
	}
	return data, nil
}

// CompressGzip compresses the signed snapshot and encodes it with unpadded URL-safe base64.
func (s SignedSnapshot) CompressGzip() (SignedSnapshotGzip, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(s); err != nil {
		return "", fmt.Errorf("gzip signed snapshot: %w", err)
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("gzip signed snapshot: %w", err)
	}
	return SignedSnapshotGzip(base64.RawURLEncoding.EncodeToString(buf.Bytes())), nil
}

func (g SignedSnapshotGzip) String() string {
	return string(g)
}

// Decompress reverses CompressGzip.
func (g SignedSnapshotGzip) Decompress() (SignedSnapshot, error) {
	compressed, err := base64.RawURLEncoding.DecodeString(string(g))
	if err != nil {
		return nil, fmt.Errorf("decode gzip base64: %w", err)
	}
	zr, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("open gzip reader: %w", err)
	}
	defer zr.Close()

	data, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("gunzip signed snapshot: %w", err)
	}
	return data, nil
}
