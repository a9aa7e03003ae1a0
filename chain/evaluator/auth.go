package evaluator

import "aurora-chain/chain/types"

// Authorizer is the account/authority service spec §6 names as an
// out-of-scope collaborator: given an account name it reports whether the
// account is active, and given an owner/signatory pair it reports whether
// the signatory is a transfer-authorized delegate under the owner's
// business permission policy. The zero value of DefaultAuthorizer is a safe
// placeholder (every account active, no delegation), the same nil-safe
// optional-collaborator shape chain/transfer's PaymentHook already uses.
type Authorizer interface {
	IsActive(account types.AccountName) bool
	IsAuthorizedTransfer(owner, signatory types.AccountName) bool
}

// DefaultAuthorizer treats every account as active and authorizes only the
// owner itself, never a delegate. Suitable until a real authority service is
// wired in.
type DefaultAuthorizer struct{}

func (DefaultAuthorizer) IsActive(types.AccountName) bool { return true }

func (DefaultAuthorizer) IsAuthorizedTransfer(owner, signatory types.AccountName) bool {
	return owner == signatory
}
