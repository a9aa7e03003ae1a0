package escrow

import (
	"sort"

	"aurora-chain/chain/store"
	"aurora-chain/chain/types"
	"aurora-chain/chain/xerrors"
)

// payout credits percentBps (basis points owed to `to`) of payment split
// between to and from, and refunds every posted bond to its depositor, then
// removes the escrow and its child records.
func (e *Engine) payout(sess *store.Session, x *Escrow, percentBps uint32) error {
	toAmount := types.Amount(int64(x.Payment) * int64(percentBps) / 10000)
	fromAmount := x.Payment - toAmount
	if toAmount > 0 {
		if err := e.release(sess, x, x.To, toAmount); err != nil {
			return err
		}
	}
	if fromAmount > 0 {
		if err := e.release(sess, x, x.From, fromAmount); err != nil {
			return err
		}
	}
	for _, account := range [...]types.AccountName{x.From, x.To, x.FromMediator, x.ToMediator} {
		if account == types.NullAccount {
			continue
		}
		if err := e.release(sess, x, account, x.Bond); err != nil {
			return err
		}
	}
	e.escrows.Remove(sess, x)
	return nil
}

// Release settles a non-disputed Active escrow (spec §4.9, "Release path
// (non-disputed)"): from may release at 100% (to `to`) or to may release at
// 0% (back to `from`) any time before expiration; after expiration, either
// party may release at any percent.
func (e *Engine) Release(sess *store.Session, x *Escrow, by types.AccountName, percentBps uint32, now types.Time) error {
	const op = "escrow.Release"
	if x.State != Active {
		return xerrors.New(op, xerrors.Invalid, "escrow %d is not active", x.EscrowID)
	}
	if percentBps > 10000 {
		return xerrors.New(op, xerrors.Invalid, "release percent out of range")
	}
	if by != x.From && by != x.To {
		return xerrors.New(op, xerrors.Unauthorized, "%s is not a party to escrow %d", by, x.EscrowID)
	}
	expired := now.After(x.EscrowExpiration)
	if !expired {
		if by == x.From && percentBps != 10000 {
			return xerrors.New(op, xerrors.Unauthorized, "from may only release escrow %d at 100%% before expiration", x.EscrowID)
		}
		if by == x.To && percentBps != 0 {
			return xerrors.New(op, xerrors.Unauthorized, "to may only release escrow %d at 0%% before expiration", x.EscrowID)
		}
	}
	return e.payout(sess, x, percentBps)
}

// medianBps returns the median of a non-empty set of basis-point votes,
// averaging the two middle values for an even count.
func medianBps(votes []uint32) uint32 {
	sorted := append([]uint32(nil), votes...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// ResolveDispute settles a Disputed escrow at or after dispute_release_time:
// the payment splits by the median of every submitted release vote, and
// each bonded participant's bond is returned if their own submission fell
// within ToleranceBps of the median, otherwise forfeits to the counterparty
// whose side of the median they mispredicted — a submission below the
// tolerance band favored `from` more than consensus and forfeits to `to`;
// one above favored `to` more and forfeits to `from`. A bonded participant
// who never voted forfeits their bond split evenly between both principals
// (spec §4.9, "Release path (disputed)").
func (e *Engine) ResolveDispute(sess *store.Session, x *Escrow, now types.Time) error {
	const op = "escrow.ResolveDispute"
	if x.State != Disputed {
		return xerrors.New(op, xerrors.Invalid, "escrow %d is not disputed", x.EscrowID)
	}
	if now.Before(x.DisputeReleaseTime) {
		return xerrors.New(op, xerrors.Invalid, "escrow %d's dispute voting window has not closed", x.EscrowID)
	}

	voteByAccount := make(map[types.AccountName]uint32)
	var percents []uint32
	for _, v := range e.byEscrowVotes.All(x.EscrowID) {
		voteByAccount[v.Account] = v.Percent
		percents = append(percents, v.Percent)
	}
	if len(percents) == 0 {
		return xerrors.New(op, xerrors.Invalid, "escrow %d has no submitted release votes", x.EscrowID)
	}
	median := medianBps(percents)

	type bonded struct {
		account types.AccountName
		voted   bool
		percent uint32
	}
	var participants []bonded
	for _, account := range [...]types.AccountName{x.From, x.To, x.FromMediator, x.ToMediator} {
		if account == types.NullAccount {
			continue
		}
		p, ok := voteByAccount[account]
		participants = append(participants, bonded{account, ok, p})
	}
	dmediators := e.byEscrowMediators.All(x.EscrowID)
	for _, m := range dmediators {
		if !m.BondPaid {
			continue
		}
		p, ok := voteByAccount[m.Account]
		participants = append(participants, bonded{m.Account, ok, p})
	}

	toleranceLow := uint32(0)
	if median > e.params.ToleranceBps {
		toleranceLow = median - e.params.ToleranceBps
	}
	toleranceHigh := median + e.params.ToleranceBps
	if toleranceHigh > 10000 {
		toleranceHigh = 10000
	}

	toAmount := types.Amount(int64(x.Payment) * int64(median) / 10000)
	fromAmount := x.Payment - toAmount
	if toAmount > 0 {
		if err := e.release(sess, x, x.To, toAmount); err != nil {
			return err
		}
	}
	if fromAmount > 0 {
		if err := e.release(sess, x, x.From, fromAmount); err != nil {
			return err
		}
	}

	for _, p := range participants {
		switch {
		case !p.voted:
			half := x.Bond / 2
			if half > 0 {
				if err := e.release(sess, x, x.To, half); err != nil {
					return err
				}
				if err := e.release(sess, x, x.From, x.Bond-half); err != nil {
					return err
				}
			}
		case p.percent < toleranceLow:
			if err := e.release(sess, x, x.To, x.Bond); err != nil {
				return err
			}
		case p.percent > toleranceHigh:
			if err := e.release(sess, x, x.From, x.Bond); err != nil {
				return err
			}
		default:
			if err := e.release(sess, x, p.account, x.Bond); err != nil {
				return err
			}
		}
	}

	for _, m := range dmediators {
		e.mediators.Remove(sess, m)
	}
	for _, v := range e.byEscrowVotes.All(x.EscrowID) {
		e.votes.Remove(sess, v)
	}
	e.escrows.Remove(sess, x)
	return nil
}
