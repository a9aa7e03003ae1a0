package escrow

import (
	"aurora-chain/chain/store"
	"aurora-chain/chain/types"
	"aurora-chain/chain/xerrors"
)

// DisputeMediator is one account added to an escrow's dispute set beyond
// the four base participants (spec §4.9 state 4). Kept as a separate
// indexed table rather than a slice on Escrow per the shallow-copy
// constraint noted on the Escrow type.
type DisputeMediator struct {
	ID store.ID

	EscrowID uint64
	Account  types.AccountName
	Approved bool
	BondPaid bool
}

func (m *DisputeMediator) GetID() store.ID   { return m.ID }
func (m *DisputeMediator) SetID(id store.ID) { m.ID = id }

type mediatorKey struct {
	escrowID uint64
	account  types.AccountName
}

// ReleaseVote is one participant's submitted release_percent during a
// dispute (spec §4.9, "Release path (disputed)").
type ReleaseVote struct {
	ID store.ID

	EscrowID uint64
	Account  types.AccountName
	Percent  uint32 // basis points of payment owed to `to`
}

func (v *ReleaseVote) GetID() store.ID   { return v.ID }
func (v *ReleaseVote) SetID(id store.ID) { v.ID = id }

type voteKey struct {
	escrowID uint64
	account  types.AccountName
}

// alreadyInvolved reports whether account is one of the four base
// participants, or already a selected dispute mediator for escrowID.
func (e *Engine) alreadyInvolved(x *Escrow, account types.AccountName) bool {
	if account == x.From || account == x.To || account == x.FromMediator || account == x.ToMediator {
		return true
	}
	if _, ok := e.byMediatorKey.Find(mediatorKey{x.EscrowID, account}); ok {
		return true
	}
	return false
}

// Dispute moves an Active escrow to Disputed, selecting DisputeMediatorAmount
// additional eligible mediators from the pool and opening a voting window
// (spec §4.9 state 4).
func (e *Engine) Dispute(sess *store.Session, x *Escrow, by types.AccountName, now types.Time) error {
	const op = "escrow.Dispute"
	if x.State != Active {
		return xerrors.New(op, xerrors.Invalid, "escrow %d is not active", x.EscrowID)
	}
	if by != x.From && by != x.To {
		return xerrors.New(op, xerrors.Unauthorized, "%s is not a party to escrow %d", by, x.EscrowID)
	}
	if !now.Before(x.EscrowExpiration) {
		return xerrors.New(op, xerrors.Expired, "escrow %d expired at %s", x.EscrowID, x.EscrowExpiration)
	}

	var selected []types.AccountName
	for _, candidate := range e.mediatorPool {
		if len(selected) == e.params.DisputeMediatorAmount {
			break
		}
		if e.alreadyInvolved(x, candidate) {
			continue
		}
		alreadySelected := false
		for _, s := range selected {
			if s == candidate {
				alreadySelected = true
				break
			}
		}
		if alreadySelected {
			continue
		}
		selected = append(selected, candidate)
	}
	if len(selected) < e.params.DisputeMediatorAmount {
		return xerrors.New(op, xerrors.Invalid, "not enough eligible mediators to open a dispute on escrow %d", x.EscrowID)
	}

	for _, account := range selected {
		e.mediators.Create(sess, func(m *DisputeMediator) {
			m.EscrowID = x.EscrowID
			m.Account = account
		})
	}
	e.escrows.Modify(sess, x, func(x *Escrow) {
		x.State = Disputed
		x.Disputed = true
		x.DisputeReleaseTime = now.Add(e.params.DisputeDuration)
	})
	return nil
}

// ApproveDisputeMediator deposits a selected dispute mediator's bond.
func (e *Engine) ApproveDisputeMediator(sess *store.Session, x *Escrow, mediator types.AccountName) error {
	const op = "escrow.ApproveDisputeMediator"
	if x.State != Disputed {
		return xerrors.New(op, xerrors.Invalid, "escrow %d is not disputed", x.EscrowID)
	}
	m, ok := e.byMediatorKey.Find(mediatorKey{x.EscrowID, mediator})
	if !ok {
		return xerrors.New(op, xerrors.NotFound, "%s was not selected as a dispute mediator for escrow %d", mediator, x.EscrowID)
	}
	if m.BondPaid {
		return xerrors.New(op, xerrors.AlreadyExists, "%s has already posted a dispute bond for escrow %d", mediator, x.EscrowID)
	}
	if err := e.lock(sess, x, mediator, x.Bond); err != nil {
		return err
	}
	e.mediators.Modify(sess, m, func(m *DisputeMediator) {
		m.Approved = true
		m.BondPaid = true
	})
	e.escrows.Modify(sess, x, func(x *Escrow) { x.Balance += x.Bond })
	return nil
}

// SubmitReleaseVote records account's release_percent during a dispute
// (spec §4.9, "each participant submits release_percent"). account must be
// one of the four base participants or an approved dispute mediator.
func (e *Engine) SubmitReleaseVote(sess *store.Session, x *Escrow, account types.AccountName, percentBps uint32) error {
	const op = "escrow.SubmitReleaseVote"
	if x.State != Disputed {
		return xerrors.New(op, xerrors.Invalid, "escrow %d is not disputed", x.EscrowID)
	}
	if percentBps > 10000 {
		return xerrors.New(op, xerrors.Invalid, "release percent out of range")
	}
	eligible := account == x.From || account == x.To || account == x.FromMediator || account == x.ToMediator
	if !eligible {
		m, ok := e.byMediatorKey.Find(mediatorKey{x.EscrowID, account})
		eligible = ok && m.Approved
	}
	if !eligible {
		return xerrors.New(op, xerrors.Unauthorized, "%s may not vote on escrow %d", account, x.EscrowID)
	}
	if v, ok := e.byVoteKey.Find(voteKey{x.EscrowID, account}); ok {
		e.votes.Modify(sess, v, func(v *ReleaseVote) { v.Percent = percentBps })
		return nil
	}
	e.votes.Create(sess, func(v *ReleaseVote) {
		v.EscrowID = x.EscrowID
		v.Account = account
		v.Percent = percentBps
	})
	return nil
}
