// Package balance implements the balance engine (spec C3): the six
// compartments of a per-(owner,asset) balance, stake/unstake tranche
// schedules, savings withdrawal delay, delegations with expiry, unstake
// routes, and voting power. Grounded on chain/types/token.go's
// Stake/Unstake/Transfer shape (moving amounts between named buckets,
// updating a running total under a lock), generalized from the teacher's
// single liquid/staked/circulating split to the spec's six compartments and
// their schedules.
package balance

import (
	"time"

	"aurora-chain/chain/assets"
	"aurora-chain/chain/store"
	"aurora-chain/chain/types"
	"aurora-chain/chain/xerrors"
)

// Compartment names one of the six per-(owner,asset) balance subdivisions.
type Compartment uint8

const (
	Liquid Compartment = iota
	Staked
	Reward
	Savings
	Delegated
	Receiving
)

func (c Compartment) partition() assets.Partition {
	switch c {
	case Liquid:
		return assets.PartitionLiquid
	case Staked:
		return assets.PartitionStaked
	case Reward:
		return assets.PartitionReward
	case Savings:
		return assets.PartitionSavings
	case Delegated:
		return assets.PartitionDelegated
	case Receiving:
		return assets.PartitionReceiving
	default:
		panic("balance: unknown compartment")
	}
}

// Params is the network parameter table slice relevant to the balance
// engine (spec §6).
type Params struct {
	StakeInterval         time.Duration
	NIntervals            int
	SavingsDelay          time.Duration
	DelegationReturnDelay time.Duration
	NetworkRevenueAccount types.AccountName
	CoreAsset             types.AssetSymbol
}

// DefaultParams mirrors the representative defaults of spec §6.
func DefaultParams(core types.AssetSymbol) Params {
	return Params{
		StakeInterval:         7 * 24 * time.Hour,
		NIntervals:            4,
		SavingsDelay:          3 * 24 * time.Hour,
		DelegationReturnDelay: 5 * 24 * time.Hour,
		NetworkRevenueAccount: types.AccountName("network-revenue"),
		CoreAsset:             core,
	}
}

// Balance is the per-(owner,asset) record (spec §3.2).
type Balance struct {
	ID     store.ID
	Owner  types.AccountName
	Symbol types.AssetSymbol

	LiquidAmt   types.Amount
	StakedAmt   types.Amount
	RewardAmt   types.Amount
	SavingsAmt  types.Amount
	DelegateAmt types.Amount
	ReceiveAmt  types.Amount

	StakeRate     types.Amount
	ToStake       types.Amount
	TotalStaked   types.Amount
	NextStakeTime types.Time

	UnstakeRate     types.Amount
	ToUnstake       types.Amount
	TotalUnstaked   types.Amount
	NextUnstakeTime types.Time

	LastInterestTime types.Time
}

func (b *Balance) GetID() store.ID   { return b.ID }
func (b *Balance) SetID(id store.ID) { b.ID = id }

func (b *Balance) field(c Compartment) *types.Amount {
	switch c {
	case Liquid:
		return &b.LiquidAmt
	case Staked:
		return &b.StakedAmt
	case Reward:
		return &b.RewardAmt
	case Savings:
		return &b.SavingsAmt
	case Delegated:
		return &b.DelegateAmt
	case Receiving:
		return &b.ReceiveAmt
	default:
		panic("balance: unknown compartment")
	}
}

// Get reads a compartment's current value.
func (b *Balance) Get(c Compartment) types.Amount { return *b.field(c) }

// Total is the spec §3.2 invariant #4 aggregate: liquid+staked+reward+savings.
func (b *Balance) Total() types.Amount {
	return b.LiquidAmt + b.StakedAmt + b.RewardAmt + b.SavingsAmt
}

// VotingPower is spec §3.2 invariant #3: staked - delegated + receiving.
func (b *Balance) VotingPower() types.Amount {
	return b.StakedAmt - b.DelegateAmt + b.ReceiveAmt
}

type ownerSymbolKey struct {
	owner  types.AccountName
	symbol types.AssetSymbol
}

// Engine owns the balance table and every schedule/route/savings table that
// hangs off it.
type Engine struct {
	assets  *assets.Registry
	params  Params
	balance *store.Table[Balance, *Balance]
	byKey   *store.UniqueIndex[Balance, ownerSymbolKey]
	byOwner *store.MultiIndex[Balance, types.AccountName]

	withdrawals      *store.Table[SavingsWithdrawal, *SavingsWithdrawal]
	withdrawalsByKey *store.UniqueIndex[SavingsWithdrawal, withdrawKey]

	delegations      *store.Table[Delegation, *Delegation]
	delegationsByKey *store.UniqueIndex[Delegation, delegationKey]

	expirations *store.Table[DelegationExpiration, *DelegationExpiration]

	routes       *store.Table[UnstakeRoute, *UnstakeRoute]
	routesByFrom *store.MultiIndex[UnstakeRoute, ownerSymbolKey]

	vesting      *store.Table[VestingBalance, *VestingBalance]
	vestingByKey *store.UniqueIndex[VestingBalance, vestingKey]
}

// NewEngine creates a balance engine backed by the given asset registry.
func NewEngine(reg *assets.Registry, params Params) *Engine {
	e := &Engine{assets: reg, params: params}
	e.balance = store.NewTable[Balance]("balance")
	e.byKey = store.AddUniqueIndex(e.balance, func(b *Balance) ownerSymbolKey {
		return ownerSymbolKey{b.Owner, b.Symbol}
	})
	e.byOwner = store.AddMultiIndex(e.balance, func(b *Balance) types.AccountName { return b.Owner })

	e.withdrawals = store.NewTable[SavingsWithdrawal]("savings_withdrawal")
	e.withdrawalsByKey = store.AddUniqueIndex(e.withdrawals, func(w *SavingsWithdrawal) withdrawKey {
		return withdrawKey{w.From, w.RequestID}
	})

	e.delegations = store.NewTable[Delegation]("delegation")
	e.delegationsByKey = store.AddUniqueIndex(e.delegations, func(d *Delegation) delegationKey {
		return delegationKey{d.Delegator, d.Delegatee, d.Symbol}
	})

	e.expirations = store.NewTable[DelegationExpiration]("delegation_expiration")

	e.routes = store.NewTable[UnstakeRoute]("unstake_route")
	e.routesByFrom = store.AddMultiIndex(e.routes, func(r *UnstakeRoute) ownerSymbolKey {
		return ownerSymbolKey{r.From, r.Symbol}
	})

	e.vesting = store.NewTable[VestingBalance]("vesting_balance")
	e.vestingByKey = store.AddUniqueIndex(e.vesting, func(v *VestingBalance) vestingKey {
		return vestingKey{v.Owner, v.Symbol}
	})
	return e
}

// Find looks up a balance record without failing.
func (e *Engine) Find(owner types.AccountName, symbol types.AssetSymbol) (*Balance, bool) {
	return e.byKey.Find(ownerSymbolKey{owner, symbol})
}

// ForOwner returns every balance record held by owner, across assets.
func (e *Engine) ForOwner(owner types.AccountName) []*Balance {
	return e.byOwner.All(owner)
}

func (e *Engine) getOrCreate(sess *store.Session, owner types.AccountName, symbol types.AssetSymbol) *Balance {
	if b, ok := e.byKey.Find(ownerSymbolKey{owner, symbol}); ok {
		return b
	}
	return e.balance.Create(sess, func(b *Balance) {
		b.Owner = owner
		b.Symbol = symbol
		b.NextStakeTime = types.InfiniteTime
		b.NextUnstakeTime = types.InfiniteTime
	})
}

// Adjust is the single compartment-adjustment primitive (spec §4.3.1): a
// zero delta is a no-op; a delta against NullAccount is only legal as a
// positive delta in the core asset, routed to the network revenue account;
// a negative delta against a non-existent balance fails; every adjustment
// mirrors onto the asset registry's matching supply partition in the same
// step.
func (e *Engine) Adjust(sess *store.Session, owner types.AccountName, symbol types.AssetSymbol, c Compartment, delta types.Amount) error {
	return e.adjust(sess, owner, symbol, c, delta, true)
}

// AdjustMinted applies a compartment delta without mirroring it onto the
// asset registry's supply partition. Use this only when the caller has
// already moved Total via assets.Issue/assets.Burn directly (crediting newly
// minted supply into a balance, or debiting a balance whose supply is being
// destroyed) — a compartment move within existing supply must always go
// through Adjust instead.
func (e *Engine) AdjustMinted(sess *store.Session, owner types.AccountName, symbol types.AssetSymbol, c Compartment, delta types.Amount) error {
	return e.adjust(sess, owner, symbol, c, delta, false)
}

func (e *Engine) adjust(sess *store.Session, owner types.AccountName, symbol types.AssetSymbol, c Compartment, delta types.Amount, mirror bool) error {
	const op = "balance.Adjust"
	if delta == 0 {
		return nil
	}
	if owner == types.NullAccount {
		if delta < 0 {
			return xerrors.New(op, xerrors.Invalid, "negative delta against the null account")
		}
		if symbol != e.params.CoreAsset {
			return xerrors.New(op, xerrors.AssetRestricted, "null-account deltas are only legal in the core asset")
		}
		owner = e.params.NetworkRevenueAccount
	}

	bal, ok := e.byKey.Find(ownerSymbolKey{owner, symbol})
	if !ok {
		if delta < 0 {
			return xerrors.New(op, xerrors.InsufficientBalance, "%s has no %s balance", owner, symbol)
		}
		bal = e.getOrCreate(sess, owner, symbol)
	}

	next := bal.Get(c) + delta
	if next < 0 {
		return xerrors.New(op, xerrors.InsufficientBalance, "%s %s compartment %d would go negative", owner, symbol, c)
	}
	if c == Staked && next < bal.DelegateAmt {
		return xerrors.New(op, xerrors.InvariantViolation, "%s staked would fall below delegated", owner)
	}

	e.balance.Modify(sess, bal, func(b *Balance) {
		*b.field(c) = next
	})
	if !mirror {
		return nil
	}
	return e.assets.AdjustPartition(sess, symbol, c.partition(), delta)
}
