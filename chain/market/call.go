package market

import (
	"aurora-chain/chain/assets"
	"aurora-chain/chain/balance"
	"aurora-chain/chain/feed"
	"aurora-chain/chain/store"
	"aurora-chain/chain/types"
	"aurora-chain/chain/xerrors"
)

// CallParams are the package-level collateral-ratio thresholds for
// collateralized stablecoin debt (spec §4.8.4).
type CallParams struct {
	MaintenanceCollateralization float64 // e.g. 1.75
}

// DefaultCallParams mirrors a representative maintenance ratio.
var DefaultCallParams = CallParams{MaintenanceCollateralization: 1.75}

// CallOrder is a collateralized debt position in a stablecoin asset (spec
// §3.11, §4.8.4).
type CallOrder struct {
	ID store.ID

	Borrower              types.AccountName
	OrderID               uint64
	DebtSymbol            types.AssetSymbol
	CollateralSymbol      types.AssetSymbol
	Debt                  types.Amount
	Collateral            types.Amount
	TargetCollateralRatio float64
	MarginCalled          bool
}

func (o *CallOrder) GetID() store.ID   { return o.ID }
func (o *CallOrder) SetID(id store.ID) { o.ID = id }

// Ratio returns collateral/debt valued at price (collateral denominated in
// the debt asset).
func (o *CallOrder) Ratio(price types.Price) float64 {
	value, err := price.Mul(types.NewAsset(o.Collateral, o.CollateralSymbol))
	if err != nil || o.Debt == 0 {
		return 0
	}
	return float64(value.Amount) / float64(o.Debt)
}

// GlobalSettlement is the one-shot wind-down state for a stablecoin asset
// once a settlement price has been triggered (spec §4.8.4).
type GlobalSettlement struct {
	Asset        types.AssetSymbol
	Price        types.Price
	FundBalance  types.Amount
	Active       bool
}

// CallEngine owns every call order for a debt asset, plus that asset's
// global settlement state once triggered.
type CallEngine struct {
	assets *assets.Registry
	bal    *balance.Engine
	params CallParams

	orders  *store.Table[CallOrder, *CallOrder]
	byOrder *store.UniqueIndex[CallOrder, uint64]

	settlements map[types.AssetSymbol]*GlobalSettlement
}

// NewCallEngine creates an empty call-order engine.
func NewCallEngine(reg *assets.Registry, bal *balance.Engine, params CallParams) *CallEngine {
	e := &CallEngine{assets: reg, bal: bal, params: params, settlements: make(map[types.AssetSymbol]*GlobalSettlement)}
	e.orders = store.NewTable[CallOrder]("call_order")
	e.byOrder = store.AddUniqueIndex(e.orders, func(o *CallOrder) uint64 { return o.OrderID })
	return e
}

// Open borrows debtAmount of a stablecoin asset against collateralAmount,
// requiring the position opens above maintenance collateralization.
func (e *CallEngine) Open(sess *store.Session, borrower types.AccountName, orderID uint64, debtSymbol, collateralSymbol types.AssetSymbol, collateralAmount, debtAmount types.Amount, targetRatio float64, price types.Price) (*CallOrder, error) {
	const op = "market.CallOpen"
	if collateralAmount <= 0 || debtAmount <= 0 {
		return nil, xerrors.New(op, xerrors.Invalid, "collateral and debt must be positive")
	}
	if e.settlementActive(debtSymbol) {
		return nil, xerrors.New(op, xerrors.Invalid, "%s is in global settlement", debtSymbol)
	}
	o := &CallOrder{Collateral: collateralAmount, Debt: debtAmount, CollateralSymbol: collateralSymbol}
	if o.Ratio(price) <= e.params.MaintenanceCollateralization {
		return nil, xerrors.New(op, xerrors.InsufficientCollateral, "opening ratio below maintenance collateralization")
	}

	if err := e.bal.Adjust(sess, borrower, collateralSymbol, balance.Liquid, -collateralAmount); err != nil {
		return nil, err
	}
	if err := e.assets.AdjustPendingSupply(sess, collateralSymbol, collateralAmount); err != nil {
		return nil, err
	}
	if err := e.assets.Issue(sess, debtSymbol, assets.PartitionLiquid, debtAmount); err != nil {
		return nil, err
	}
	if err := e.bal.AdjustMinted(sess, borrower, debtSymbol, balance.Liquid, debtAmount); err != nil {
		return nil, err
	}

	return e.orders.Create(sess, func(o *CallOrder) {
		o.Borrower = borrower
		o.OrderID = orderID
		o.DebtSymbol = debtSymbol
		o.CollateralSymbol = collateralSymbol
		o.Debt = debtAmount
		o.Collateral = collateralAmount
		o.TargetCollateralRatio = targetRatio
	}), nil
}

func (e *CallEngine) settlementActive(asset types.AssetSymbol) bool {
	s, ok := e.settlements[asset]
	return ok && s.Active
}

// CheckMarginCalls scans every live order on debtSymbol against the
// publisher-median settlement price, flagging any whose ratio has fallen to
// or below maintenance collateralization for matching against the limit
// book by the caller's dispatcher (spec §4.8.4).
func (e *CallEngine) CheckMarginCalls(sess *store.Session, debtSymbol types.AssetSymbol, publishers *feed.Publishers, lifetime int64, now types.Time) ([]*CallOrder, error) {
	price, err := publishers.Median(debtSymbol, lifetime, now)
	if err != nil {
		return nil, err
	}
	var due []*CallOrder
	e.orders.Range(func(o *CallOrder) bool {
		if o.DebtSymbol == debtSymbol && !o.MarginCalled && o.Ratio(price) <= e.params.MaintenanceCollateralization {
			due = append(due, o)
		}
		return true
	})
	for _, o := range due {
		e.orders.Modify(sess, o, func(o *CallOrder) { o.MarginCalled = true })
	}
	return due, nil
}

// SettleMarginCall closes a margin-called order against the limit book at
// the settlement price: collateral is liquidated to repay debt, with any
// residual collateral returned to the borrower and any shortfall absorbed
// (the position is forced closed regardless).
func (e *CallEngine) SettleMarginCall(sess *store.Session, o *CallOrder, settlementPrice types.Price) error {
	debtValueInCollateral, err := settlementPrice.Invert().Mul(types.NewAsset(o.Debt, o.DebtSymbol))
	if err != nil {
		return err
	}
	seized := debtValueInCollateral.Amount
	if seized > o.Collateral {
		seized = o.Collateral
	}
	residual := o.Collateral - seized

	if err := e.assets.Burn(sess, o.DebtSymbol, assets.PartitionLiquid, o.Debt); err != nil {
		return err
	}
	if err := e.bal.AdjustMinted(sess, o.Borrower, o.DebtSymbol, balance.Liquid, -o.Debt); err != nil {
		return err
	}
	if err := e.assets.AdjustPendingSupply(sess, o.CollateralSymbol, -seized); err != nil {
		return err
	}
	if residual > 0 {
		if err := e.assets.AdjustPendingSupply(sess, o.CollateralSymbol, -residual); err != nil {
			return err
		}
		if err := e.bal.Adjust(sess, o.Borrower, o.CollateralSymbol, balance.Liquid, residual); err != nil {
			return err
		}
	}
	e.orders.Remove(sess, o)
	return nil
}

// TriggerGlobalSettlement freezes every remaining call order on asset,
// seizing collateral into the settlement fund at triggerPrice and
// discharging debt, after which force-settlement is the only exit (spec
// §4.8.4).
func (e *CallEngine) TriggerGlobalSettlement(sess *store.Session, asset types.AssetSymbol, triggerPrice types.Price) error {
	s, ok := e.settlements[asset]
	if !ok {
		s = &GlobalSettlement{Asset: asset}
		e.settlements[asset] = s
	}
	if s.Active {
		return xerrors.New("market.TriggerGlobalSettlement", xerrors.Invalid, "%s is already in global settlement", asset)
	}
	s.Active = true
	s.Price = triggerPrice

	var toSettle []*CallOrder
	e.orders.Range(func(o *CallOrder) bool {
		if o.DebtSymbol == asset {
			toSettle = append(toSettle, o)
		}
		return true
	})
	for _, o := range toSettle {
		value, err := triggerPrice.Invert().Mul(types.NewAsset(o.Debt, o.DebtSymbol))
		if err != nil {
			return err
		}
		seized := value.Amount
		if seized > o.Collateral {
			seized = o.Collateral
		}
		residual := o.Collateral - seized
		s.FundBalance += seized
		if err := e.assets.AdjustPendingSupply(sess, o.CollateralSymbol, -seized); err != nil {
			return err
		}
		if residual > 0 {
			if err := e.assets.AdjustPendingSupply(sess, o.CollateralSymbol, -residual); err != nil {
				return err
			}
			if err := e.bal.Adjust(sess, o.Borrower, o.CollateralSymbol, balance.Liquid, residual); err != nil {
				return err
			}
		}
		e.orders.Remove(sess, o)
	}
	return nil
}

// ForceSettle redeems debtAmount of a globally-settled asset from the
// caller at the triggering price against the settlement fund, until the
// fund is exhausted.
func (e *CallEngine) ForceSettle(sess *store.Session, account types.AccountName, asset types.AssetSymbol, debtAmount types.Amount) (types.Amount, error) {
	const op = "market.ForceSettle"
	s, ok := e.settlements[asset]
	if !ok || !s.Active {
		return 0, xerrors.New(op, xerrors.Invalid, "%s is not in global settlement", asset)
	}
	payout, err := s.Price.Invert().Mul(types.NewAsset(debtAmount, asset))
	if err != nil {
		return 0, err
	}
	if payout.Amount > s.FundBalance {
		payout.Amount = s.FundBalance
		clamped, err := s.Price.Mul(types.NewAsset(payout.Amount, payout.Symbol))
		if err != nil {
			return 0, err
		}
		debtAmount = clamped.Amount
	}
	if payout.Amount <= 0 {
		return 0, xerrors.New(op, xerrors.PoolExhausted, "settlement fund for %s is exhausted", asset)
	}

	collateralSymbol := payout.Symbol
	if err := e.assets.Burn(sess, asset, assets.PartitionLiquid, debtAmount); err != nil {
		return 0, err
	}
	if err := e.bal.AdjustMinted(sess, account, asset, balance.Liquid, -debtAmount); err != nil {
		return 0, err
	}
	s.FundBalance -= payout.Amount
	if err := e.bal.Adjust(sess, account, collateralSymbol, balance.Liquid, payout.Amount); err != nil {
		return 0, err
	}
	if err := e.assets.AdjustPendingSupply(sess, collateralSymbol, -payout.Amount); err != nil {
		return 0, err
	}
	return payout.Amount, nil
}
