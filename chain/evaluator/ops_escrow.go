package evaluator

import (
	"aurora-chain/chain/escrow"
	"aurora-chain/chain/store"
	"aurora-chain/chain/types"
	"aurora-chain/chain/xerrors"
)

// EscrowTransfer proposes a new bonded two-party escrow (spec §4.9 state 1).
type EscrowTransfer struct {
	Signer           types.AccountName
	From             types.AccountName
	To               types.AccountName
	EscrowID         uint64
	Symbol           types.AssetSymbol
	Payment          types.Amount
	AcceptanceTime   types.Time
	EscrowExpiration types.Time
}

func (o EscrowTransfer) Kind() string               { return "escrow_transfer" }
func (o EscrowTransfer) Owner() types.AccountName    { return o.From }
func (o EscrowTransfer) Signatory() types.AccountName { return o.Signer }

func (o EscrowTransfer) apply(ctx *Context, sess *store.Session, now types.Time) error {
	_, err := ctx.Escrow.Propose(sess, o.From, o.To, o.EscrowID, o.Symbol, o.Payment, o.AcceptanceTime, o.EscrowExpiration)
	return err
}

// EscrowApprove posts By's bond against a live escrow (spec §4.9 states 2
// and 4): before the escrow is Active this deposits a base participant's
// bond (naming their chosen mediator, if From or To), and during a dispute
// it posts a selected dispute mediator's bond instead.
type EscrowApprove struct {
	Signer   types.AccountName
	By       types.AccountName
	EscrowID uint64
	Mediator types.AccountName // from's/to's chosen mediator, when By is From or To
}

func (o EscrowApprove) Kind() string               { return "escrow_approve" }
func (o EscrowApprove) Owner() types.AccountName    { return o.By }
func (o EscrowApprove) Signatory() types.AccountName { return o.Signer }

func (o EscrowApprove) apply(ctx *Context, sess *store.Session, now types.Time) error {
	const op = "evaluator.EscrowApprove"
	x, ok := ctx.Escrow.Find(o.EscrowID)
	if !ok {
		return xerrors.New(op, xerrors.NotFound, "escrow %d not found", o.EscrowID)
	}
	if x.State == escrow.Disputed {
		return ctx.Escrow.ApproveDisputeMediator(sess, x, o.By)
	}
	switch {
	case o.By == x.From:
		return ctx.Escrow.ApproveFrom(sess, x, o.Mediator)
	case o.By == x.To:
		return ctx.Escrow.ApproveTo(sess, x, o.Mediator)
	case x.FromMediator != types.NullAccount && o.By == x.FromMediator:
		return ctx.Escrow.ApproveFromMediator(sess, x, o.By)
	case x.ToMediator != types.NullAccount && o.By == x.ToMediator:
		return ctx.Escrow.ApproveToMediator(sess, x, o.By)
	default:
		return xerrors.New(op, xerrors.Unauthorized, "%s has no pending approval on escrow %d", o.By, o.EscrowID)
	}
}

// EscrowDispute moves an Active escrow into Disputed, opening the
// dispute-mediator selection and voting window (spec §4.9 state 4).
type EscrowDispute struct {
	Signer   types.AccountName
	By       types.AccountName
	EscrowID uint64
}

func (o EscrowDispute) Kind() string               { return "escrow_dispute" }
func (o EscrowDispute) Owner() types.AccountName    { return o.By }
func (o EscrowDispute) Signatory() types.AccountName { return o.Signer }

func (o EscrowDispute) apply(ctx *Context, sess *store.Session, now types.Time) error {
	const op = "evaluator.EscrowDispute"
	x, ok := ctx.Escrow.Find(o.EscrowID)
	if !ok {
		return xerrors.New(op, xerrors.NotFound, "escrow %d not found", o.EscrowID)
	}
	return ctx.Escrow.Dispute(sess, x, o.By, now)
}

// EscrowRelease settles an escrow (spec §4.9's release paths): against an
// Active escrow it's the non-disputed release (from releases at 100%, to at
// 0%, either at any percent past expiration); against a Disputed escrow it
// instead records By's release-percent vote for the eventual median
// settlement.
type EscrowRelease struct {
	Signer     types.AccountName
	By         types.AccountName
	EscrowID   uint64
	PercentBps uint32
}

func (o EscrowRelease) Kind() string               { return "escrow_release" }
func (o EscrowRelease) Owner() types.AccountName    { return o.By }
func (o EscrowRelease) Signatory() types.AccountName { return o.Signer }

func (o EscrowRelease) apply(ctx *Context, sess *store.Session, now types.Time) error {
	const op = "evaluator.EscrowRelease"
	x, ok := ctx.Escrow.Find(o.EscrowID)
	if !ok {
		return xerrors.New(op, xerrors.NotFound, "escrow %d not found", o.EscrowID)
	}
	switch x.State {
	case escrow.Active:
		return ctx.Escrow.Release(sess, x, o.By, o.PercentBps, now)
	case escrow.Disputed:
		return ctx.Escrow.SubmitReleaseVote(sess, x, o.By, o.PercentBps)
	default:
		return xerrors.New(op, xerrors.Invalid, "escrow %d is neither active nor disputed", o.EscrowID)
	}
}

// EscrowCancel withdraws a not-yet-active escrow, refunding any bonds
// already posted — the natural counterpart the minimum operation list
// omits.
type EscrowCancel struct {
	Signer   types.AccountName
	By       types.AccountName
	EscrowID uint64
}

func (o EscrowCancel) Kind() string               { return "escrow_cancel" }
func (o EscrowCancel) Owner() types.AccountName    { return o.By }
func (o EscrowCancel) Signatory() types.AccountName { return o.Signer }

func (o EscrowCancel) apply(ctx *Context, sess *store.Session, now types.Time) error {
	const op = "evaluator.EscrowCancel"
	x, ok := ctx.Escrow.Find(o.EscrowID)
	if !ok {
		return xerrors.New(op, xerrors.NotFound, "escrow %d not found", o.EscrowID)
	}
	return ctx.Escrow.Cancel(sess, x, o.By)
}

// EscrowEdit updates a still-Proposed escrow's payment/timing terms.
type EscrowEdit struct {
	Signer           types.AccountName
	From             types.AccountName
	EscrowID         uint64
	Payment          types.Amount
	AcceptanceTime   types.Time
	EscrowExpiration types.Time
}

func (o EscrowEdit) Kind() string               { return "escrow_edit" }
func (o EscrowEdit) Owner() types.AccountName    { return o.From }
func (o EscrowEdit) Signatory() types.AccountName { return o.Signer }

func (o EscrowEdit) apply(ctx *Context, sess *store.Session, now types.Time) error {
	const op = "evaluator.EscrowEdit"
	x, ok := ctx.Escrow.Find(o.EscrowID)
	if !ok {
		return xerrors.New(op, xerrors.NotFound, "escrow %d not found", o.EscrowID)
	}
	if x.From != o.From {
		return xerrors.New(op, xerrors.Unauthorized, "%s is not escrow %d's from party", o.From, o.EscrowID)
	}
	return ctx.Escrow.Edit(sess, x, o.Payment, o.AcceptanceTime, o.EscrowExpiration)
}
