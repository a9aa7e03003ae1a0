package confidential

import "aurora-chain/chain/types"

// AccountClause is one (account, weight) member of an Authority's threshold
// set.
type AccountClause struct {
	Account types.AccountName
	Weight  uint32
}

// KeyClause is one (key, weight) member of an Authority's threshold set,
// keyed by the address derived from the signing key.
type KeyClause struct {
	Key    types.Address
	Weight uint32
}

// Authority is a weighted threshold set over accounts and keys (spec §3.4):
// an output is spendable by any signature set whose combined weight meets
// Threshold.
type Authority struct {
	Threshold uint32
	Accounts  []AccountClause
	Keys      []KeyClause
}

// WeightOf sums the authority's declared weight for the given signer set.
func (a Authority) WeightOf(signedAccounts map[types.AccountName]bool, signedKeys map[types.Address]bool) uint32 {
	var total uint32
	for _, c := range a.Accounts {
		if signedAccounts[c.Account] {
			total += c.Weight
		}
	}
	for _, c := range a.Keys {
		if signedKeys[c.Key] {
			total += c.Weight
		}
	}
	return total
}

// Satisfied reports whether the combined weight of the given signer set
// meets the authority's threshold.
func (a Authority) Satisfied(signedAccounts map[types.AccountName]bool, signedKeys map[types.Address]bool) bool {
	return a.WeightOf(signedAccounts, signedKeys) >= a.Threshold
}

// WellFormed reports whether the authority carries a reachable, non-zero
// threshold (spec §4.4: "each output's authority is well-formed").
func (a Authority) WellFormed() bool {
	if a.Threshold == 0 {
		return false
	}
	var max uint32
	for _, c := range a.Accounts {
		max += c.Weight
	}
	for _, c := range a.Keys {
		max += c.Weight
	}
	return max >= a.Threshold
}
