// Package assets implements the asset registry (spec C2): asset
// definitions, dynamic supply counters partitioned the same way account
// balances are, and issuer policy flags. Grounded on chain/economics's
// tokenomics supply bookkeeping (totalSupply/circulatingSupply/totalStaked/
// totalBurned fields in TokenomicsEngine), generalized from one native
// token to an arbitrary registry of symbols.
package assets

import (
	"aurora-chain/chain/store"
	"aurora-chain/chain/types"
	"aurora-chain/chain/xerrors"
)

// AssetType enumerates the kinds of asset the registry can hold.
type AssetType uint8

const (
	Currency AssetType = iota
	Standard
	Equity
	Credit
	BitAsset
	LiquidityPoolShare
	CreditPoolShare
	Option
	Prediction
	Gateway
	Unique
)

// MarketIssued reports whether an asset's supply is controlled by the
// matching engine rather than freely minted by its issuer (spec §4.2).
func (t AssetType) MarketIssued() bool {
	switch t {
	case BitAsset, Prediction, LiquidityPoolShare, CreditPoolShare, Option:
		return true
	default:
		return false
	}
}

// Flags are the per-asset issuer policy flags from spec §4.2.
type Flags struct {
	TransferRestricted      bool
	ConfidentialEnabled     bool
	ForceSettleDisabled     bool
	RequireBalanceWhitelist bool
	OverrideAuthority       bool
	ChargeMarketFee         bool
}

// Object is the asset definition record.
type Object struct {
	ID        store.ID
	Symbol    types.AssetSymbol
	Type      AssetType
	Issuer    types.AccountName
	Flags     Flags
	Precision uint8
	Created   types.Time
}

func (a *Object) GetID() store.ID   { return a.ID }
func (a *Object) SetID(id store.ID) { a.ID = id }

// Partition names the eight non-overlapping pieces of an asset's total supply
// (liquid, staked, reward, savings, pending, confidential, fees, vesting;
// spec §3.3), plus the two out-of-band delegated/receiving counters.
type Partition uint8

const (
	PartitionLiquid Partition = iota
	PartitionStaked
	PartitionReward
	PartitionSavings
	PartitionPending
	PartitionConfidential
	PartitionFees
	PartitionDelegated
	PartitionReceiving
	PartitionVesting
)

// Dynamic is the per-symbol dynamic supply data (spec §3.3).
type Dynamic struct {
	ID       store.ID
	Symbol   types.AssetSymbol
	Total    types.Amount
	Liquid   types.Amount
	Staked   types.Amount
	Reward   types.Amount
	Savings  types.Amount
	Pending  types.Amount
	Confid   types.Amount
	Fees     types.Amount
	FeePool  types.Amount
	Delegate types.Amount
	Receive  types.Amount
	Vesting  types.Amount
}

func (d *Dynamic) GetID() store.ID   { return d.ID }
func (d *Dynamic) SetID(id store.ID) { d.ID = id }

func (d *Dynamic) partition(p Partition) *types.Amount {
	switch p {
	case PartitionLiquid:
		return &d.Liquid
	case PartitionStaked:
		return &d.Staked
	case PartitionReward:
		return &d.Reward
	case PartitionSavings:
		return &d.Savings
	case PartitionPending:
		return &d.Pending
	case PartitionConfidential:
		return &d.Confid
	case PartitionFees:
		return &d.Fees
	case PartitionDelegated:
		return &d.Delegate
	case PartitionReceiving:
		return &d.Receive
	case PartitionVesting:
		return &d.Vesting
	default:
		panic("assets: unknown partition")
	}
}

// Registry is the asset table plus its dynamic-data table.
type Registry struct {
	assets       *store.Table[Object, *Object]
	assetsBySym  *store.UniqueIndex[Object, types.AssetSymbol]
	dynamics     *store.Table[Dynamic, *Dynamic]
	dynamicsBySy *store.UniqueIndex[Dynamic, types.AssetSymbol]
}

// NewRegistry creates an empty asset registry.
func NewRegistry() *Registry {
	r := &Registry{
		assets:   store.NewTable[Object]("asset_object"),
		dynamics: store.NewTable[Dynamic]("asset_dynamic_data"),
	}
	r.assetsBySym = store.AddUniqueIndex(r.assets, func(a *Object) types.AssetSymbol { return a.Symbol })
	r.dynamicsBySy = store.AddUniqueIndex(r.dynamics, func(d *Dynamic) types.AssetSymbol { return d.Symbol })
	return r
}

// Create registers a new asset and its zeroed dynamic data.
func (r *Registry) Create(sess *store.Session, symbol types.AssetSymbol, issuer types.AccountName, typ AssetType, flags Flags, precision uint8, now types.Time) (*Object, error) {
	if _, ok := r.assetsBySym.Find(symbol); ok {
		return nil, xerrors.New("assets.Create", xerrors.AlreadyExists, "asset %s already exists", symbol)
	}
	obj := r.assets.Create(sess, func(a *Object) {
		a.Symbol = symbol
		a.Issuer = issuer
		a.Type = typ
		a.Flags = flags
		a.Precision = precision
		a.Created = now
	})
	r.dynamics.Create(sess, func(d *Dynamic) {
		d.Symbol = symbol
	})
	return obj, nil
}

// Find looks up an asset definition without failing.
func (r *Registry) Find(symbol types.AssetSymbol) (*Object, bool) {
	return r.assetsBySym.Find(symbol)
}

// Range calls fn for every registered asset in unspecified order, stopping
// early if fn returns false. Used by chain/monitoring to report aggregate
// supply across the whole registry without knowing symbols in advance.
func (r *Registry) Range(fn func(*Object) bool) {
	r.assets.Range(fn)
}

// Get looks up an asset definition, failing if it does not exist.
func (r *Registry) Get(symbol types.AssetSymbol) (*Object, error) {
	obj, ok := r.assetsBySym.Find(symbol)
	if !ok {
		return nil, xerrors.New("assets.Get", xerrors.NotFound, "asset %s not found", symbol)
	}
	return obj, nil
}

// Dynamic looks up an asset's dynamic supply data, failing if it does not
// exist.
func (r *Registry) Dynamic(symbol types.AssetSymbol) (*Dynamic, error) {
	d, ok := r.dynamicsBySy.Find(symbol)
	if !ok {
		return nil, xerrors.New("assets.Dynamic", xerrors.NotFound, "asset %s not found", symbol)
	}
	return d, nil
}

// AdjustPendingSupply is the single canonical pending-supply adjustment
// primitive (spec §9 Open Question (a): the source defined two identically
// signed members; this registry defines exactly one and every caller uses
// it).
func (r *Registry) AdjustPendingSupply(sess *store.Session, symbol types.AssetSymbol, delta types.Amount) error {
	return r.AdjustPartition(sess, symbol, PartitionPending, delta)
}

// AdjustPartition deltas a single supply partition without touching Total —
// used when a balance compartment moves within an account's own balance
// (liquid->pending, pending->staked, etc.) and the corresponding account
// compartment adjustment is the caller's responsibility in the same
// transactional step (spec §3.3).
func (r *Registry) AdjustPartition(sess *store.Session, symbol types.AssetSymbol, p Partition, delta types.Amount) error {
	d, err := r.Dynamic(symbol)
	if err != nil {
		return err
	}
	field := d.partition(p)
	next := *field + delta
	if next < 0 {
		return xerrors.New("assets.AdjustPartition", xerrors.InsufficientBalance, "%s partition %d would go negative", symbol, p)
	}
	r.dynamics.Modify(sess, d, func(d *Dynamic) {
		*d.partition(p) = next
	})
	return nil
}

// Issue mints new supply into partition p and raises Total by the same
// amount (new reward issuance, initial genesis allocation, confidential
// issuance, etc).
func (r *Registry) Issue(sess *store.Session, symbol types.AssetSymbol, p Partition, amount types.Amount) error {
	if amount < 0 {
		return xerrors.New("assets.Issue", xerrors.Invalid, "negative issuance")
	}
	d, err := r.Dynamic(symbol)
	if err != nil {
		return err
	}
	r.dynamics.Modify(sess, d, func(d *Dynamic) {
		*d.partition(p) += amount
		d.Total += amount
	})
	return nil
}

// Burn destroys supply from partition p and lowers Total by the same
// amount.
func (r *Registry) Burn(sess *store.Session, symbol types.AssetSymbol, p Partition, amount types.Amount) error {
	if amount < 0 {
		return xerrors.New("assets.Burn", xerrors.Invalid, "negative burn")
	}
	d, err := r.Dynamic(symbol)
	if err != nil {
		return err
	}
	field := d.partition(p)
	if *field < amount {
		return xerrors.New("assets.Burn", xerrors.InsufficientBalance, "%s partition %d insufficient to burn", symbol, p)
	}
	if d.Total < amount {
		return xerrors.New("assets.Burn", xerrors.InvariantViolation, "%s total supply insufficient to burn", symbol)
	}
	r.dynamics.Modify(sess, d, func(d *Dynamic) {
		*d.partition(p) -= amount
		d.Total -= amount
	})
	return nil
}

// Move shifts amount from partition `from` to partition `to` within the same
// asset's dynamic data, leaving Total unchanged — the supply-side mirror of
// an account balance compartment move (stake, unstake, savings, etc).
func (r *Registry) Move(sess *store.Session, symbol types.AssetSymbol, from, to Partition, amount types.Amount) error {
	if amount < 0 {
		return xerrors.New("assets.Move", xerrors.Invalid, "negative move")
	}
	if from == to || amount == 0 {
		return nil
	}
	d, err := r.Dynamic(symbol)
	if err != nil {
		return err
	}
	fromField := d.partition(from)
	if *fromField < amount {
		return xerrors.New("assets.Move", xerrors.InsufficientBalance, "%s partition %d insufficient", symbol, from)
	}
	r.dynamics.Modify(sess, d, func(d *Dynamic) {
		*d.partition(from) -= amount
		*d.partition(to) += amount
	})
	return nil
}

// AdjustFeePool deltas the prepaid core-asset fee pool used to subsidize fee
// conversion for this asset.
func (r *Registry) AdjustFeePool(sess *store.Session, symbol types.AssetSymbol, delta types.Amount) error {
	d, err := r.Dynamic(symbol)
	if err != nil {
		return err
	}
	if d.FeePool+delta < 0 {
		return xerrors.New("assets.AdjustFeePool", xerrors.InsufficientBalance, "%s fee pool would go negative", symbol)
	}
	r.dynamics.Modify(sess, d, func(d *Dynamic) {
		d.FeePool += delta
	})
	return nil
}

// CheckSupplyConservation verifies testable property #1: every partition
// that contributes to Total sums back to it exactly.
func (d *Dynamic) CheckSupplyConservation() bool {
	return d.Liquid+d.Staked+d.Reward+d.Savings+d.Pending+d.Confid+d.Fees+d.Vesting == d.Total
}
