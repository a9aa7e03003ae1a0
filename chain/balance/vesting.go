package balance

import (
	"aurora-chain/chain/assets"
	"aurora-chain/chain/store"
	"aurora-chain/chain/types"
	"aurora-chain/chain/xerrors"
)

// VestingBalance is a time-locked per-(owner,asset) balance compartment kept
// outside the six Compartment values: it confers no voting power (excluded
// from VotingPower and Total) and cannot be divested before ReleaseTime
// (original account_vesting_balance_object).
type VestingBalance struct {
	ID     store.ID
	Owner  types.AccountName
	Symbol types.AssetSymbol

	Amount      types.Amount
	ReleaseTime types.Time
}

func (v *VestingBalance) GetID() store.ID   { return v.ID }
func (v *VestingBalance) SetID(id store.ID) { v.ID = id }

type vestingKey struct {
	owner  types.AccountName
	symbol types.AssetSymbol
}

// FindVesting looks up an owner's vesting balance in symbol without failing.
func (e *Engine) FindVesting(owner types.AccountName, symbol types.AssetSymbol) (*VestingBalance, bool) {
	return e.vestingByKey.Find(vestingKey{owner, symbol})
}

// CreateVestingBalance locks amount out of owner's liquid compartment into a
// new (or topped-up) vesting balance that releases at releaseTime. A
// top-up's release time only ever moves later, matching the original's
// "adjust_vesting_balance" contract of never shortening an existing lock.
func (e *Engine) CreateVestingBalance(sess *store.Session, owner types.AccountName, symbol types.AssetSymbol, amount types.Amount, releaseTime types.Time) (*VestingBalance, error) {
	const op = "balance.CreateVestingBalance"
	if amount <= 0 {
		return nil, xerrors.New(op, xerrors.Invalid, "vesting amount must be positive")
	}
	if err := e.Adjust(sess, owner, symbol, Liquid, -amount); err != nil {
		return nil, err
	}
	if err := e.assets.AdjustPartition(sess, symbol, assets.PartitionVesting, amount); err != nil {
		return nil, err
	}

	if v, ok := e.vestingByKey.Find(vestingKey{owner, symbol}); ok {
		e.vesting.Modify(sess, v, func(v *VestingBalance) {
			v.Amount += amount
			if releaseTime.After(v.ReleaseTime) {
				v.ReleaseTime = releaseTime
			}
		})
		return v, nil
	}
	return e.vesting.Create(sess, func(v *VestingBalance) {
		v.Owner = owner
		v.Symbol = symbol
		v.Amount = amount
		v.ReleaseTime = releaseTime
	}), nil
}

// WithdrawVesting releases up to amount from a matured vesting balance back
// to the owner's liquid compartment. Withdrawal before ReleaseTime is
// rejected outright: the original object type confers no early-divest path.
func (e *Engine) WithdrawVesting(sess *store.Session, owner types.AccountName, symbol types.AssetSymbol, amount types.Amount, now types.Time) error {
	const op = "balance.WithdrawVesting"
	if amount <= 0 {
		return xerrors.New(op, xerrors.Invalid, "withdrawal amount must be positive")
	}
	v, ok := e.vestingByKey.Find(vestingKey{owner, symbol})
	if !ok {
		return xerrors.New(op, xerrors.NotFound, "%s has no vesting balance in %s", owner, symbol)
	}
	if now.Before(v.ReleaseTime) {
		return xerrors.New(op, xerrors.Invalid, "%s vesting balance in %s has not released yet", owner, symbol)
	}
	if amount > v.Amount {
		return xerrors.New(op, xerrors.InsufficientBalance, "%s vesting balance in %s holds only %s", owner, symbol, v.Amount)
	}

	if err := e.assets.AdjustPartition(sess, symbol, assets.PartitionVesting, -amount); err != nil {
		return err
	}
	if err := e.Adjust(sess, owner, symbol, Liquid, amount); err != nil {
		return err
	}
	if amount == v.Amount {
		e.vesting.Remove(sess, v)
		return nil
	}
	e.vesting.Modify(sess, v, func(v *VestingBalance) { v.Amount -= amount })
	return nil
}
