package balance

import (
	"aurora-chain/chain/store"
	"aurora-chain/chain/types"
	"aurora-chain/chain/xerrors"
)

type delegationKey struct {
	delegator types.AccountName
	delegatee types.AccountName
	symbol    types.AssetSymbol
}

// Delegation is the active lend-out-stake record (spec §3.6).
type Delegation struct {
	ID        store.ID
	Delegator types.AccountName
	Delegatee types.AccountName
	Symbol    types.AssetSymbol
	Amount    types.Amount
}

func (d *Delegation) GetID() store.ID   { return d.ID }
func (d *Delegation) SetID(id store.ID) { d.ID = id }

// DelegationExpiration is a maturing un-delegation (spec §3.6).
type DelegationExpiration struct {
	ID         store.ID
	Delegator  types.AccountName
	Delegatee  types.AccountName
	Symbol     types.AssetSymbol
	Amount     types.Amount
	Expiration types.Time
}

func (d *DelegationExpiration) GetID() store.ID   { return d.ID }
func (d *DelegationExpiration) SetID(id store.ID) { d.ID = id }

// Delegate sets the active delegation from delegator to delegatee to
// exactly amountNew (spec §4.3.4). Increases take effect immediately,
// subject to the delegator having enough free staked balance and no active
// unstake schedule; decreases create an expiration record that only
// releases the freed amount after params.DelegationReturnDelay.
func (e *Engine) Delegate(sess *store.Session, delegator, delegatee types.AccountName, symbol types.AssetSymbol, amountNew types.Amount, now types.Time) error {
	const op = "balance.Delegate"
	if amountNew < 0 {
		return xerrors.New(op, xerrors.Invalid, "delegation amount cannot be negative")
	}

	rec, exists := e.delegationsByKey.Find(delegationKey{delegator, delegatee, symbol})
	current := types.Amount(0)
	if exists {
		current = rec.Amount
	}
	if amountNew == current {
		return nil
	}

	if amountNew > current {
		delta := amountNew - current
		delBal, ok := e.Find(delegator, symbol)
		if !ok {
			return xerrors.New(op, xerrors.InsufficientBalance, "%s has no %s balance", delegator, symbol)
		}
		if delBal.NextUnstakeTime != types.InfiniteTime {
			return xerrors.New(op, xerrors.InvariantViolation, "%s has an active unstake schedule on %s", delegator, symbol)
		}
		if delBal.StakedAmt-delBal.DelegateAmt < delta {
			return xerrors.New(op, xerrors.InsufficientBalance, "%s has insufficient free staked %s", delegator, symbol)
		}
		if err := e.Adjust(sess, delegator, symbol, Delegated, delta); err != nil {
			return err
		}
		if err := e.Adjust(sess, delegatee, symbol, Receiving, delta); err != nil {
			return err
		}
	} else {
		delta := current - amountNew
		e.expirations.Create(sess, func(x *DelegationExpiration) {
			x.Delegator = delegator
			x.Delegatee = delegatee
			x.Symbol = symbol
			x.Amount = delta
			x.Expiration = now.Add(e.params.DelegationReturnDelay)
		})
	}

	if exists {
		if amountNew == 0 {
			e.delegations.Remove(sess, rec)
		} else {
			e.delegations.Modify(sess, rec, func(d *Delegation) { d.Amount = amountNew })
		}
	} else if amountNew > 0 {
		e.delegations.Create(sess, func(d *Delegation) {
			d.Delegator = delegator
			d.Delegatee = delegatee
			d.Symbol = symbol
			d.Amount = amountNew
		})
	}
	return nil
}

// ProcessDelegationExpirations releases every matured un-delegation at or
// before now, returning the freed stake to the delegator's free balance and
// removing it from the delegatee's receiving compartment (spec §3.6,
// testable scenario S2).
func (e *Engine) ProcessDelegationExpirations(sess *store.Session, now types.Time) error {
	var due []*DelegationExpiration
	e.expirations.Range(func(x *DelegationExpiration) bool {
		if !x.Expiration.After(now) {
			due = append(due, x)
		}
		return true
	})
	for _, x := range due {
		if err := e.Adjust(sess, x.Delegator, x.Symbol, Delegated, -x.Amount); err != nil {
			return err
		}
		if err := e.Adjust(sess, x.Delegatee, x.Symbol, Receiving, -x.Amount); err != nil {
			return err
		}
		e.expirations.Remove(sess, x)
	}
	return nil
}
