package evaluator

import "aurora-chain/chain/types"

// Operation is the sum type spec §6 describes: every concrete operation
// struct in the ops_*.go files implements it, plus the unexported apply
// method dispatch.go invokes directly through the applier interface. Kind is
// a stable string used only for receipts/logging, never for dispatch.
type Operation interface {
	Kind() string
	// Owner is the account whose state the operation primarily affects
	// (the account the authorization contract checks the signatory
	// against). Signatory is the account that actually signed.
	Owner() types.AccountName
	Signatory() types.AccountName
}

// Receipt records one operation's outcome within a transaction, the
// generalized counterpart of chain/node's per-transaction Receipt (status +
// error instead of gas/logs).
type Receipt struct {
	Index int
	Kind  string
	Err   error
}

func (r Receipt) Success() bool { return r.Err == nil }
