// Package escrow implements the mediated two-party escrow protocol (spec
// C9): a conditional transfer between from and to, guarded by a pair of
// party-chosen mediators, bonded approvals, and a dispute path that expands
// the mediator set and resolves by the median of submitted release
// percentages. Grounded on chain/transfer/request.go's propose/accept
// record shape (a pending transfer that either party can act on before an
// expiration) generalized to a four-party bonded approval, and
// chain/governance/governance.go's weighted-vote tally generalized from
// stake-weighted yes/no to a median-of-submitted-percentages release.
package escrow

import (
	"time"

	"aurora-chain/chain/assets"
	"aurora-chain/chain/balance"
	"aurora-chain/chain/store"
	"aurora-chain/chain/types"
	"aurora-chain/chain/xerrors"
)

// State names one step of an escrow's lifecycle (spec §4.9).
type State uint8

const (
	Proposed State = iota
	Approving
	Active
	Disputed
)

// Params are the package-level economics of the escrow protocol (spec §7's
// ESCROW_BOND_PERCENT / ESCROW_DISPUTE_MEDIATOR_AMOUNT / ESCROW_DISPUTE_DURATION).
type Params struct {
	BondBps               uint32 // escrow_bond_percent, in basis points of payment
	DisputeMediatorAmount int
	DisputeDuration       time.Duration
	ToleranceBps          uint32 // band around the median within which a bond is not forfeit
}

// DefaultParams mirrors the spec's worked example (S4/S6): a 5% bond, five
// extra mediators on dispute, and a visible tolerance band.
var DefaultParams = Params{
	BondBps:               500,
	DisputeMediatorAmount: 5,
	DisputeDuration:       3 * 24 * time.Hour,
	ToleranceBps:          1000,
}

// Escrow is one two-party conditional transfer (spec §3.12). The four base
// participants and their approval/bond state live as fixed fields rather
// than a map, since store.Table.Modify snapshots for rollback with a
// shallow struct copy; a map field would share its backing storage between
// the snapshot and the live record and silently corrupt undo. The dispute
// mediator set and the per-participant release votes are bounded but
// variable in size, so they are kept as separate indexed child records
// instead (mediator.go), the same pattern chain/balance uses for proxy
// votes and chain/transfer uses for recurring transfer schedules.
type Escrow struct {
	ID store.ID

	EscrowID     uint64
	From, To     types.AccountName
	FromMediator types.AccountName
	ToMediator   types.AccountName
	Symbol       types.AssetSymbol
	Payment      types.Amount
	Bond         types.Amount
	Balance      types.Amount

	State    State
	Disputed bool

	AcceptanceTime     types.Time
	EscrowExpiration   types.Time
	DisputeReleaseTime types.Time

	ApprovedFrom         bool
	ApprovedTo           bool
	ApprovedFromMediator bool
	ApprovedToMediator   bool
}

func (e *Escrow) GetID() store.ID   { return e.ID }
func (e *Escrow) SetID(id store.ID) { e.ID = id }

// approvalCount reports how many of the four base participants have
// deposited their bond.
func (e *Escrow) approvalCount() int {
	n := 0
	for _, ok := range [...]bool{e.ApprovedFrom, e.ApprovedTo, e.ApprovedFromMediator, e.ApprovedToMediator} {
		if ok {
			n++
		}
	}
	return n
}

// Engine owns every live escrow plus its child dispute-mediator and
// release-vote records.
type Engine struct {
	assets       *assets.Registry
	bal          *balance.Engine
	params       Params
	mediatorPool []types.AccountName

	escrows    *store.Table[Escrow, *Escrow]
	byEscrowID *store.UniqueIndex[Escrow, uint64]

	mediators         *store.Table[DisputeMediator, *DisputeMediator]
	byMediatorKey     *store.UniqueIndex[DisputeMediator, mediatorKey]
	byEscrowMediators *store.MultiIndex[DisputeMediator, uint64]

	votes         *store.Table[ReleaseVote, *ReleaseVote]
	byVoteKey     *store.UniqueIndex[ReleaseVote, voteKey]
	byEscrowVotes *store.MultiIndex[ReleaseVote, uint64]
}

// NewEngine creates an empty escrow engine. mediatorPool is the full set of
// accounts eligible for dispute-mediator selection.
func NewEngine(reg *assets.Registry, bal *balance.Engine, params Params, mediatorPool []types.AccountName) *Engine {
	e := &Engine{assets: reg, bal: bal, params: params, mediatorPool: mediatorPool}

	e.escrows = store.NewTable[Escrow]("escrow")
	e.byEscrowID = store.AddUniqueIndex(e.escrows, func(x *Escrow) uint64 { return x.EscrowID })

	e.mediators = store.NewTable[DisputeMediator]("escrow_dispute_mediator")
	e.byMediatorKey = store.AddUniqueIndex(e.mediators, func(m *DisputeMediator) mediatorKey {
		return mediatorKey{m.EscrowID, m.Account}
	})
	e.byEscrowMediators = store.AddMultiIndex(e.mediators, func(m *DisputeMediator) uint64 { return m.EscrowID })

	e.votes = store.NewTable[ReleaseVote]("escrow_release_vote")
	e.byVoteKey = store.AddUniqueIndex(e.votes, func(v *ReleaseVote) voteKey { return voteKey{v.EscrowID, v.Account} })
	e.byEscrowVotes = store.AddMultiIndex(e.votes, func(v *ReleaseVote) uint64 { return v.EscrowID })

	return e
}

// Find looks up a live escrow by its escrow_id.
func (e *Engine) Find(escrowID uint64) (*Escrow, bool) {
	return e.byEscrowID.Find(escrowID)
}

// Range calls fn for every live escrow in unspecified order, stopping early
// if fn returns false.
func (e *Engine) Range(fn func(*Escrow) bool) {
	e.escrows.Range(fn)
}

// DueDisputes returns every Disputed escrow whose voting window has closed,
// ready for ResolveDispute (spec §5's fixed maintenance order).
func (e *Engine) DueDisputes(now types.Time) []*Escrow {
	var due []*Escrow
	e.escrows.Range(func(x *Escrow) bool {
		if x.State == Disputed && !now.Before(x.DisputeReleaseTime) {
			due = append(due, x)
		}
		return true
	})
	return due
}

func bondFor(payment types.Amount, bps uint32) types.Amount {
	return types.Amount(int64(payment) * int64(bps) / 10000)
}

// lock debits account's liquid balance and mirrors the same amount into the
// asset's pending_supply partition, the same escrow-custody pattern
// chain/market uses for resting order collateral.
func (e *Engine) lock(sess *store.Session, x *Escrow, account types.AccountName, amount types.Amount) error {
	if err := e.bal.Adjust(sess, account, x.Symbol, balance.Liquid, -amount); err != nil {
		return err
	}
	return e.assets.AdjustPendingSupply(sess, x.Symbol, amount)
}

// release credits account's liquid balance out of escrow custody and
// mirrors the inverse pending_supply delta.
func (e *Engine) release(sess *store.Session, x *Escrow, account types.AccountName, amount types.Amount) error {
	if err := e.assets.AdjustPendingSupply(sess, x.Symbol, -amount); err != nil {
		return err
	}
	return e.bal.Adjust(sess, account, x.Symbol, balance.Liquid, amount)
}

// Propose creates a new escrow in the Proposed state (spec §4.9 state 1).
func (e *Engine) Propose(sess *store.Session, from, to types.AccountName, escrowID uint64, symbol types.AssetSymbol, payment types.Amount, acceptanceTime, escrowExpiration types.Time) (*Escrow, error) {
	const op = "escrow.Propose"
	if payment <= 0 {
		return nil, xerrors.New(op, xerrors.Invalid, "payment must be positive")
	}
	if from == to {
		return nil, xerrors.New(op, xerrors.Invalid, "from and to must differ")
	}
	if _, exists := e.byEscrowID.Find(escrowID); exists {
		return nil, xerrors.New(op, xerrors.AlreadyExists, "escrow %d already exists", escrowID)
	}
	return e.escrows.Create(sess, func(x *Escrow) {
		x.EscrowID = escrowID
		x.From = from
		x.To = to
		x.Symbol = symbol
		x.Payment = payment
		x.Bond = bondFor(payment, e.params.BondBps)
		x.State = Proposed
		x.AcceptanceTime = acceptanceTime
		x.EscrowExpiration = escrowExpiration
	}), nil
}

// Edit updates payment/timing fields while the escrow is still Proposed
// (spec §4.9 state 1, "parameters editable while approvals are all false").
func (e *Engine) Edit(sess *store.Session, x *Escrow, payment types.Amount, acceptanceTime, escrowExpiration types.Time) error {
	const op = "escrow.Edit"
	if x.State != Proposed {
		return xerrors.New(op, xerrors.Invalid, "escrow %d is no longer editable", x.EscrowID)
	}
	if payment <= 0 {
		return xerrors.New(op, xerrors.Invalid, "payment must be positive")
	}
	e.escrows.Modify(sess, x, func(x *Escrow) {
		x.Payment = payment
		x.Bond = bondFor(payment, e.params.BondBps)
		x.AcceptanceTime = acceptanceTime
		x.EscrowExpiration = escrowExpiration
	})
	return nil
}

// Cancel removes a Proposed escrow at either party's request, refunding any
// bonds already posted (spec §4.9, "Cancellation").
func (e *Engine) Cancel(sess *store.Session, x *Escrow, by types.AccountName) error {
	const op = "escrow.Cancel"
	if x.State != Proposed && x.State != Approving {
		return xerrors.New(op, xerrors.Invalid, "escrow %d is already active", x.EscrowID)
	}
	if by != x.From && by != x.To {
		return xerrors.New(op, xerrors.Unauthorized, "%s is not a party to escrow %d", by, x.EscrowID)
	}
	return e.refundAndRemove(sess, x)
}

// refundAndRemove returns every deposit currently posted against x and
// deletes the record along with its child mediator/vote rows.
func (e *Engine) refundAndRemove(sess *store.Session, x *Escrow) error {
	if x.ApprovedFrom {
		if err := e.release(sess, x, x.From, x.Payment+x.Bond); err != nil {
			return err
		}
	}
	if x.ApprovedTo {
		if err := e.release(sess, x, x.To, x.Bond); err != nil {
			return err
		}
	}
	if x.ApprovedFromMediator {
		if err := e.release(sess, x, x.FromMediator, x.Bond); err != nil {
			return err
		}
	}
	if x.ApprovedToMediator {
		if err := e.release(sess, x, x.ToMediator, x.Bond); err != nil {
			return err
		}
	}
	for _, m := range e.byEscrowMediators.All(x.EscrowID) {
		if m.BondPaid {
			if err := e.release(sess, x, m.Account, x.Bond); err != nil {
				return err
			}
		}
		e.mediators.Remove(sess, m)
	}
	for _, v := range e.byEscrowVotes.All(x.EscrowID) {
		e.votes.Remove(sess, v)
	}
	e.escrows.Remove(sess, x)
	return nil
}

// ExpireUnaccepted auto-refunds every escrow whose acceptance_time has
// lapsed without reaching Active (spec §4.9, "If acceptance time lapses
// without full approval, auto-refund").
func (e *Engine) ExpireUnaccepted(sess *store.Session, now types.Time) error {
	var lapsed []*Escrow
	e.escrows.Range(func(x *Escrow) bool {
		if x.State != Active && x.State != Disputed && x.AcceptanceTime.Before(now) {
			lapsed = append(lapsed, x)
		}
		return true
	})
	for _, x := range lapsed {
		if err := e.refundAndRemove(sess, x); err != nil {
			return err
		}
	}
	return nil
}
