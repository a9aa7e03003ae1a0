// Package txsign implements canonical transaction encoding and signing: an
// Envelope bundles an ordered operation list with an expiration, is
// RLP-encoded the way a graphene-style chain canonically serializes a
// transaction ahead of signing, and carries one PQ signature over the
// resulting digest (spec §5's "canonical transaction signing" surface, and
// §4.10's authorization contract upstream of it).
package txsign

import (
	"encoding/json"
	"fmt"

	"aurora-chain/chain/crypto"
	"aurora-chain/chain/evaluator"
	"aurora-chain/chain/types"

	"github.com/ethereum/go-ethereum/rlp"
)

// wireOp is the RLP-encodable shadow of one operation. rlp's encoder only
// handles unsigned integers (go-ethereum/rlp rejects signed int kinds
// outright), and operation structs carry signed types.Amount/types.Time
// fields, so each operation's own body is JSON-marshaled into an opaque byte
// string first; the outer envelope of (kind, payload) pairs plus expiration
// is what gets canonically RLP-encoded and signed.
type wireOp struct {
	Kind    string
	Payload []byte
}

type envelopeBody struct {
	Ops        []wireOp
	Expiration uint64
}

// Envelope is the signed transaction envelope carried over the wire: an
// ordered operation list plus expiration, canonically encoded and signed.
type Envelope struct {
	body envelopeBody

	SigAlg    crypto.SignatureAlgorithm
	PublicKey []byte
	Signature []byte
}

func encodeOps(ops []evaluator.Operation) ([]wireOp, error) {
	wire := make([]wireOp, len(ops))
	for i, op := range ops {
		payload, err := json.Marshal(op)
		if err != nil {
			return nil, fmt.Errorf("txsign: encode op %d (%s): %w", i, op.Kind(), err)
		}
		wire[i] = wireOp{Kind: op.Kind(), Payload: payload}
	}
	return wire, nil
}

// Encode canonically RLP-encodes ops+expiration; this is the byte string a
// signature is computed over.
func Encode(ops []evaluator.Operation, expiration types.Time) ([]byte, error) {
	wire, err := encodeOps(ops)
	if err != nil {
		return nil, err
	}
	return rlp.EncodeToBytes(envelopeBody{Ops: wire, Expiration: uint64(expiration)})
}

// Sign canonically encodes ops+expiration, signs the Keccak256 digest of
// that encoding with privateKey under algorithm, and returns the completed
// Envelope.
func Sign(ops []evaluator.Operation, expiration types.Time, algorithm crypto.SignatureAlgorithm, privateKey []byte) (*Envelope, error) {
	wire, err := encodeOps(ops)
	if err != nil {
		return nil, err
	}
	body := envelopeBody{Ops: wire, Expiration: uint64(expiration)}
	encoded, err := rlp.EncodeToBytes(body)
	if err != nil {
		return nil, fmt.Errorf("txsign: encode envelope: %w", err)
	}
	digest := types.Keccak256(encoded)
	qrSig, err := crypto.SignMessage(digest, algorithm, privateKey)
	if err != nil {
		return nil, fmt.Errorf("txsign: sign: %w", err)
	}
	return &Envelope{
		body:      body,
		SigAlg:    qrSig.Algorithm,
		PublicKey: qrSig.PublicKey,
		Signature: qrSig.Signature,
	}, nil
}

// Digest returns the Keccak256 digest the envelope's signature covers.
func (e *Envelope) Digest() ([]byte, error) {
	encoded, err := rlp.EncodeToBytes(e.body)
	if err != nil {
		return nil, fmt.Errorf("txsign: encode envelope: %w", err)
	}
	return types.Keccak256(encoded), nil
}

// Verify reports whether the envelope's signature covers its own canonical
// encoding.
func (e *Envelope) Verify() (bool, error) {
	digest, err := e.Digest()
	if err != nil {
		return false, err
	}
	qrSig := &crypto.QRSignature{Algorithm: e.SigAlg, Signature: e.Signature, PublicKey: e.PublicKey}
	return crypto.VerifySignature(digest, qrSig)
}

// Expiration returns the envelope's expiration time.
func (e *Envelope) Expiration() types.Time { return types.Time(e.body.Expiration) }

// NumOps returns the number of operations sealed in the envelope.
func (e *Envelope) NumOps() int { return len(e.body.Ops) }

// DecodeOp decodes the payload at index i into dst, the caller-supplied
// concrete operation type selected by inspecting Kind(i) first.
func (e *Envelope) DecodeOp(i int, dst interface{}) error {
	if i < 0 || i >= len(e.body.Ops) {
		return fmt.Errorf("txsign: operation index %d out of range", i)
	}
	return json.Unmarshal(e.body.Ops[i].Payload, dst)
}

// Kind returns the stable kind tag of the operation at index i, without
// decoding its payload.
func (e *Envelope) Kind(i int) string {
	if i < 0 || i >= len(e.body.Ops) {
		return ""
	}
	return e.body.Ops[i].Kind
}

// wireEnvelope is the full over-the-wire form of a signed Envelope: the
// canonical body plus the signature sealing it. Separate from envelopeBody
// because the signature itself is never part of what gets signed.
type wireEnvelope struct {
	Body      envelopeBody
	SigAlg    uint8
	PublicKey []byte
	Signature []byte
}

// EncodeEnvelope serializes a complete signed envelope (body + signature)
// for wire transmission or block-file storage.
func EncodeEnvelope(e *Envelope) ([]byte, error) {
	return rlp.EncodeToBytes(wireEnvelope{
		Body:      e.body,
		SigAlg:    uint8(e.SigAlg),
		PublicKey: e.PublicKey,
		Signature: e.Signature,
	})
}

// DecodeEnvelope parses a wire-encoded envelope produced by EncodeEnvelope.
// It does not verify the signature; call Verify on the result.
func DecodeEnvelope(data []byte) (*Envelope, error) {
	var wire wireEnvelope
	if err := rlp.DecodeBytes(data, &wire); err != nil {
		return nil, fmt.Errorf("txsign: decode envelope: %w", err)
	}
	return &Envelope{
		body:      wire.Body,
		SigAlg:    crypto.SignatureAlgorithm(wire.SigAlg),
		PublicKey: wire.PublicKey,
		Signature: wire.Signature,
	}, nil
}
