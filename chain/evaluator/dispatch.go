package evaluator

import (
	"aurora-chain/chain/store"
	"aurora-chain/chain/types"
	"aurora-chain/chain/xerrors"
)

// applier is the evaluator spec §4.10 describes for one operation type:
// each concrete operation in ops_*.go implements apply itself rather than
// being switched over centrally, so adding an operation never touches this
// file.
type applier interface {
	Operation
	apply(ctx *Context, sess *store.Session, now types.Time) error
}

// authorize enforces spec §4.10's authorization contract: both the owner
// and the signatory must be active, and the signatory must either be the
// owner or a transfer-authorized delegate under the owner's policy.
func authorize(ctx *Context, op Operation) error {
	const errOp = "evaluator.authorize"
	owner, signer := op.Owner(), op.Signatory()
	if !ctx.Authorizer.IsActive(owner) {
		return xerrors.New(errOp, xerrors.InactiveAccount, "%s is not active", owner)
	}
	if !ctx.Authorizer.IsActive(signer) {
		return xerrors.New(errOp, xerrors.InactiveAccount, "%s is not active", signer)
	}
	if owner != signer && !ctx.Authorizer.IsAuthorizedTransfer(owner, signer) {
		return xerrors.New(errOp, xerrors.Unauthorized, "%s is not authorized to act for %s", signer, owner)
	}
	return nil
}

// Apply runs a single operation: authorize, then dispatch to its own
// evaluator. The caller is expected to be inside a store.Session so that a
// failure here unwinds via the enclosing undo session (spec §4.10 step 4).
func Apply(ctx *Context, sess *store.Session, op Operation, now types.Time) error {
	const errOp = "evaluator.Apply"
	a, ok := op.(applier)
	if !ok {
		return xerrors.New(errOp, xerrors.Invalid, "operation %s does not implement an evaluator", op.Kind())
	}
	if err := authorize(ctx, op); err != nil {
		return err
	}
	return a.apply(ctx, sess, now)
}

// ApplyTransaction runs every operation in declared order inside one undo
// session: all commit together, or none do (spec §5, "Operations within a
// transaction execute in declared order; all or none commit").
func ApplyTransaction(ctx *Context, parent *store.Store, ops []Operation, expiration, now types.Time) ([]Receipt, error) {
	const errOp = "evaluator.ApplyTransaction"
	if expiration != 0 && now.After(expiration) {
		return nil, xerrors.New(errOp, xerrors.Expired, "transaction expired at %d, head time is %d", expiration, now)
	}
	receipts := make([]Receipt, len(ops))
	err := store.Run(parent, func(sess *store.Session) error {
		for i, op := range ops {
			err := Apply(ctx, sess, op, now)
			receipts[i] = Receipt{Index: i, Kind: op.Kind(), Err: err}
			if err != nil {
				return err
			}
		}
		return nil
	})
	return receipts, err
}
