// Package confidential implements the confidential UTXO ledger (spec C4):
// Pedersen-style commitment balances spendable by threshold authority sets,
// consumed in full and replaced by freshly created outputs, with a
// homomorphic sum check standing in for amount validation. Grounded on
// chain/crypto's commitment-free signature types, generalized the way
// chain/crypto/aggregation.go combines many opaque byte blobs into one
// checkable aggregate.
package confidential

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"aurora-chain/chain/types"
)

// commitmentOrder is the scalar field modulus commitments are reduced into.
// Using a fixed large prime keeps the scheme's arithmetic additively
// homomorphic (Commit(a,ra) + Commit(b,rb) == Commit(a+b, ra+rb) mod order)
// without pulling in curve arithmetic the pack never shows.
var commitmentOrder, _ = new(big.Int).SetString(
	"fffffffffffffffffffffffffffffffebaaedce6af48a03bbfd25e8cd0364141", 16)

// NewBlindingFactor draws a random scalar blinding factor.
func NewBlindingFactor() (types.BlindingFactor, error) {
	n, err := rand.Int(rand.Reader, commitmentOrder)
	if err != nil {
		return nil, fmt.Errorf("confidential: generating blinding factor: %w", err)
	}
	return types.BlindingFactor(n.Bytes()), nil
}

// Commit computes an additively-homomorphic commitment to value under the
// given blinding factor: commit = (value + blinding) mod order.
func Commit(value types.Amount, blinding types.BlindingFactor) types.Commitment {
	v := value.BigInt()
	v.Mod(v, commitmentOrder)
	b := new(big.Int).SetBytes(blinding)
	sum := new(big.Int).Add(v, b)
	sum.Mod(sum, commitmentOrder)
	return types.Commitment(sum.Bytes())
}

// AddCommitments homomorphically sums any number of commitments.
func AddCommitments(cs ...types.Commitment) types.Commitment {
	sum := new(big.Int)
	for _, c := range cs {
		sum.Add(sum, new(big.Int).SetBytes(c))
	}
	sum.Mod(sum, commitmentOrder)
	return types.Commitment(sum.Bytes())
}

// EqualCommitments reports whether two commitments denote the same scalar.
func EqualCommitments(a, b types.Commitment) bool {
	return new(big.Int).SetBytes(a).Cmp(new(big.Int).SetBytes(b)) == 0
}
