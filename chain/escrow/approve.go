package escrow

import (
	"aurora-chain/chain/store"
	"aurora-chain/chain/types"
	"aurora-chain/chain/xerrors"
)

// afterApproval records a newly posted deposit into Balance (spec §4.9's
// invariant "balance = payment·[from_approved] + bond·count(approvals)"),
// bumps Proposed to Approving on the first approval, and once all four base
// participants have approved, to Active.
func (e *Engine) afterApproval(sess *store.Session, x *Escrow, deposited types.Amount) {
	e.escrows.Modify(sess, x, func(x *Escrow) {
		x.Balance += deposited
		if x.State == Proposed {
			x.State = Approving
		}
		if x.approvalCount() == 4 {
			x.State = Active
		}
	})
}

// ApproveFrom deposits from's bond plus the full payment and names the
// from-chosen mediator (spec §4.9 state 2).
func (e *Engine) ApproveFrom(sess *store.Session, x *Escrow, fromMediator types.AccountName) error {
	const op = "escrow.ApproveFrom"
	if x.State != Proposed && x.State != Approving {
		return xerrors.New(op, xerrors.Invalid, "escrow %d is not awaiting approval", x.EscrowID)
	}
	if x.ApprovedFrom {
		return xerrors.New(op, xerrors.AlreadyExists, "from has already approved escrow %d", x.EscrowID)
	}
	if fromMediator == x.From || fromMediator == x.To {
		return xerrors.New(op, xerrors.Invalid, "from_mediator must be a third party")
	}
	deposit := x.Payment + x.Bond
	if err := e.lock(sess, x, x.From, deposit); err != nil {
		return err
	}
	e.escrows.Modify(sess, x, func(x *Escrow) {
		x.FromMediator = fromMediator
		x.ApprovedFrom = true
	})
	e.afterApproval(sess, x, deposit)
	return nil
}

// ApproveTo deposits to's bond and names the to-chosen mediator.
func (e *Engine) ApproveTo(sess *store.Session, x *Escrow, toMediator types.AccountName) error {
	const op = "escrow.ApproveTo"
	if x.State != Proposed && x.State != Approving {
		return xerrors.New(op, xerrors.Invalid, "escrow %d is not awaiting approval", x.EscrowID)
	}
	if x.ApprovedTo {
		return xerrors.New(op, xerrors.AlreadyExists, "to has already approved escrow %d", x.EscrowID)
	}
	if toMediator == x.From || toMediator == x.To {
		return xerrors.New(op, xerrors.Invalid, "to_mediator must be a third party")
	}
	if err := e.lock(sess, x, x.To, x.Bond); err != nil {
		return err
	}
	e.escrows.Modify(sess, x, func(x *Escrow) {
		x.ToMediator = toMediator
		x.ApprovedTo = true
	})
	e.afterApproval(sess, x, x.Bond)
	return nil
}

// ApproveFromMediator deposits the from-chosen mediator's bond.
func (e *Engine) ApproveFromMediator(sess *store.Session, x *Escrow, mediator types.AccountName) error {
	const op = "escrow.ApproveFromMediator"
	if x.FromMediator == types.NullAccount || x.FromMediator != mediator {
		return xerrors.New(op, xerrors.Unauthorized, "%s was not chosen as from_mediator for escrow %d", mediator, x.EscrowID)
	}
	if x.ApprovedFromMediator {
		return xerrors.New(op, xerrors.AlreadyExists, "from_mediator has already approved escrow %d", x.EscrowID)
	}
	if err := e.lock(sess, x, mediator, x.Bond); err != nil {
		return err
	}
	e.escrows.Modify(sess, x, func(x *Escrow) { x.ApprovedFromMediator = true })
	e.afterApproval(sess, x, x.Bond)
	return nil
}

// ApproveToMediator deposits the to-chosen mediator's bond.
func (e *Engine) ApproveToMediator(sess *store.Session, x *Escrow, mediator types.AccountName) error {
	const op = "escrow.ApproveToMediator"
	if x.ToMediator == types.NullAccount || x.ToMediator != mediator {
		return xerrors.New(op, xerrors.Unauthorized, "%s was not chosen as to_mediator for escrow %d", mediator, x.EscrowID)
	}
	if x.ApprovedToMediator {
		return xerrors.New(op, xerrors.AlreadyExists, "to_mediator has already approved escrow %d", x.EscrowID)
	}
	if err := e.lock(sess, x, mediator, x.Bond); err != nil {
		return err
	}
	e.escrows.Modify(sess, x, func(x *Escrow) { x.ApprovedToMediator = true })
	e.afterApproval(sess, x, x.Bond)
	return nil
}
