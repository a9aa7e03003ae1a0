package balance

import (
	"aurora-chain/chain/store"
	"aurora-chain/chain/types"
	"aurora-chain/chain/xerrors"
)

// StakeAsset moves amount from `from`'s liquid compartment into a pending
// bucket, then schedules it onto `to`'s staked compartment over
// params.NIntervals equal tranches (spec §4.3.2).
func (e *Engine) StakeAsset(sess *store.Session, from, to types.AccountName, symbol types.AssetSymbol, amount types.Amount, now types.Time) error {
	const op = "balance.StakeAsset"
	if amount <= 0 {
		return xerrors.New(op, xerrors.Invalid, "stake amount must be positive")
	}
	if err := e.Adjust(sess, from, symbol, Liquid, -amount); err != nil {
		return err
	}
	if err := e.assets.AdjustPendingSupply(sess, symbol, amount); err != nil {
		return err
	}

	toBal := e.getOrCreate(sess, to, symbol)
	e.balance.Modify(sess, toBal, func(b *Balance) {
		b.ToStake += amount
		b.StakeRate = b.ToStake / types.Amount(e.params.NIntervals)
		b.NextStakeTime = now.Add(e.params.StakeInterval)
	})
	return nil
}

// ProcessStakeSchedules advances every balance whose stake tranche is due at
// or before now (spec §4.3.2 step 3, testable property #4).
func (e *Engine) ProcessStakeSchedules(sess *store.Session, now types.Time) error {
	due := e.dueStakes(now)
	for _, b := range due {
		remaining := b.ToStake - b.TotalStaked
		tick := b.StakeRate
		if tick > remaining {
			tick = remaining
		}
		if tick <= 0 {
			e.balance.Modify(sess, b, func(b *Balance) {
				b.StakeRate = 0
				b.ToStake = 0
				b.TotalStaked = 0
				b.NextStakeTime = types.InfiniteTime
			})
			continue
		}
		if err := e.Adjust(sess, b.Owner, b.Symbol, Staked, tick); err != nil {
			return err
		}
		if err := e.assets.AdjustPendingSupply(sess, b.Symbol, -tick); err != nil {
			return err
		}
		newTotal := b.TotalStaked + tick
		toStake := b.ToStake
		interval := e.params.StakeInterval
		e.balance.Modify(sess, b, func(b *Balance) {
			b.TotalStaked = newTotal
			if newTotal >= toStake {
				b.StakeRate = 0
				b.ToStake = 0
				b.TotalStaked = 0
				b.NextStakeTime = types.InfiniteTime
			} else {
				b.NextStakeTime = b.NextStakeTime.Add(interval)
			}
		})
	}
	return nil
}

func (e *Engine) dueStakes(now types.Time) []*Balance {
	var due []*Balance
	e.balance.Range(func(b *Balance) bool {
		if b.NextStakeTime != types.InfiniteTime && !b.NextStakeTime.After(now) && b.StakeRate > 0 {
			due = append(due, b)
		}
		return true
	})
	return due
}

// UnstakeAsset moves amount from `from`'s staked compartment out over
// params.NIntervals equal tranches, routed through any registered unstake
// routes on completion of each tranche (spec §4.3.2, §3.7).
func (e *Engine) UnstakeAsset(sess *store.Session, from types.AccountName, symbol types.AssetSymbol, amount types.Amount, now types.Time) error {
	const op = "balance.UnstakeAsset"
	if amount <= 0 {
		return xerrors.New(op, xerrors.Invalid, "unstake amount must be positive")
	}
	bal, ok := e.Find(from, symbol)
	if !ok {
		return xerrors.New(op, xerrors.InsufficientBalance, "%s has no %s balance", from, symbol)
	}
	if bal.StakedAmt-bal.DelegateAmt < amount {
		return xerrors.New(op, xerrors.InsufficientBalance, "%s staked balance, net of delegations, is insufficient", from)
	}

	e.balance.Modify(sess, bal, func(b *Balance) {
		b.ToUnstake += amount
		b.UnstakeRate = b.ToUnstake / types.Amount(e.params.NIntervals)
		b.NextUnstakeTime = now.Add(e.params.StakeInterval)
	})
	return nil
}

// ProcessUnstakeSchedules advances every balance whose unstake tranche is
// due at or before now, splitting each tranche across unstake routes.
func (e *Engine) ProcessUnstakeSchedules(sess *store.Session, now types.Time) error {
	due := e.dueUnstakes(now)
	for _, b := range due {
		remaining := b.ToUnstake - b.TotalUnstaked
		tick := b.UnstakeRate
		if tick > remaining {
			tick = remaining
		}
		if tick <= 0 {
			e.balance.Modify(sess, b, func(b *Balance) {
				b.UnstakeRate = 0
				b.ToUnstake = 0
				b.TotalUnstaked = 0
				b.NextUnstakeTime = types.InfiniteTime
			})
			continue
		}
		if err := e.Adjust(sess, b.Owner, b.Symbol, Staked, -tick); err != nil {
			return err
		}
		if err := e.distributeUnstakeTranche(sess, b.Owner, b.Symbol, tick, now); err != nil {
			return err
		}
		newTotal := b.TotalUnstaked + tick
		toUnstake := b.ToUnstake
		interval := e.params.StakeInterval
		e.balance.Modify(sess, b, func(b *Balance) {
			b.TotalUnstaked = newTotal
			if newTotal >= toUnstake {
				b.UnstakeRate = 0
				b.ToUnstake = 0
				b.TotalUnstaked = 0
				b.NextUnstakeTime = types.InfiniteTime
			} else {
				b.NextUnstakeTime = b.NextUnstakeTime.Add(interval)
			}
		})
	}
	return nil
}

func (e *Engine) dueUnstakes(now types.Time) []*Balance {
	var due []*Balance
	e.balance.Range(func(b *Balance) bool {
		if b.NextUnstakeTime != types.InfiniteTime && !b.NextUnstakeTime.After(now) && b.UnstakeRate > 0 {
			due = append(due, b)
		}
		return true
	})
	return due
}

// distributeUnstakeTranche routes one matured unstake tranche to the
// account's unstake routes (by percent), sending any unrouted remainder to
// the account's own liquid compartment (spec §3.7, §4.3.2). Auto-stake
// routes credit the destination's staked compartment immediately rather
// than opening a fresh four-tranche schedule, since the funds are already
// mid-flight through this one.
func (e *Engine) distributeUnstakeTranche(sess *store.Session, from types.AccountName, symbol types.AssetSymbol, amount types.Amount, now types.Time) error {
	routes := e.routesByFrom.All(ownerSymbolKey{from, symbol})
	if len(routes) == 0 {
		return e.Adjust(sess, from, symbol, Liquid, amount)
	}

	var totalPercent uint32
	var routed types.Amount
	for _, r := range routes {
		totalPercent += r.PercentBps
		share := types.Amount((int64(amount) * int64(r.PercentBps)) / 10000)
		routed += share
		if share == 0 {
			continue
		}
		var err error
		if r.AutoStake {
			err = e.Adjust(sess, r.To, symbol, Staked, share)
		} else {
			err = e.Adjust(sess, r.To, symbol, Liquid, share)
		}
		if err != nil {
			return err
		}
	}
	remainder := amount - routed
	if remainder > 0 {
		if err := e.Adjust(sess, from, symbol, Liquid, remainder); err != nil {
			return err
		}
	}
	_ = totalPercent
	return nil
}

// UnstakeRoute is a routing rule for matured unstake tranches (spec §3.7).
type UnstakeRoute struct {
	ID         store.ID
	From       types.AccountName
	To         types.AccountName
	Symbol     types.AssetSymbol
	PercentBps uint32 // basis points, 0-10000
	AutoStake  bool
}

func (r *UnstakeRoute) GetID() store.ID   { return r.ID }
func (r *UnstakeRoute) SetID(id store.ID) { r.ID = id }

// AddUnstakeRoute registers a new route, enforcing that the sum of percents
// per `from` stays at or below 100% and that a route carries a positive
// percent (spec §9 Open Question (b): the source did not enforce percent>0;
// we add that guard here).
func (e *Engine) AddUnstakeRoute(sess *store.Session, from, to types.AccountName, symbol types.AssetSymbol, percentBps uint32, autoStake bool) (*UnstakeRoute, error) {
	const op = "balance.AddUnstakeRoute"
	if percentBps == 0 {
		return nil, xerrors.New(op, xerrors.Invalid, "route percent must be positive")
	}
	var sum uint32
	for _, r := range e.routesByFrom.All(ownerSymbolKey{from, symbol}) {
		sum += r.PercentBps
	}
	if sum+percentBps > 10000 {
		return nil, xerrors.New(op, xerrors.Invalid, "route percents for %s would exceed 100%%", from)
	}
	route := e.routes.Create(sess, func(r *UnstakeRoute) {
		r.From = from
		r.To = to
		r.Symbol = symbol
		r.PercentBps = percentBps
		r.AutoStake = autoStake
	})
	return route, nil
}
