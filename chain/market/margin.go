package market

import (
	"time"

	"aurora-chain/chain/assets"
	"aurora-chain/chain/balance"
	"aurora-chain/chain/credit"
	"aurora-chain/chain/pool"
	"aurora-chain/chain/store"
	"aurora-chain/chain/types"
	"aurora-chain/chain/xerrors"
)

// MarginParams are the package-level collateralization thresholds spec
// §4.8.2 treats as parametric (DESIGN.md Open Question (c)).
type MarginParams struct {
	MinOpeningCollateralization  float64 // e.g. 1.20 == 20% over debt value
	MaintenanceCollateralization float64 // e.g. 1.05
}

// DefaultMarginParams mirrors representative defaults.
var DefaultMarginParams = MarginParams{MinOpeningCollateralization: 1.20, MaintenanceCollateralization: 1.05}

// MarginOrder is an open leveraged position: debt borrowed against posted
// collateral, exposed as a resting sell of the debt asset for the position
// asset (spec §3.11, §4.8.2).
type MarginOrder struct {
	ID store.ID

	Owner   types.AccountName
	OrderID uint64

	DebtSymbol       types.AssetSymbol
	CollateralSymbol types.AssetSymbol
	PositionSymbol   types.AssetSymbol

	Collateral        types.Amount
	DebtBalance       types.Amount
	SellPrice         types.Price
	Collateralization float64
	Liquidating       bool
	Expiration        types.Time

	LastInterestTime types.Time
}

func (m *MarginOrder) GetID() store.ID   { return m.ID }
func (m *MarginOrder) SetID(id store.ID) { m.ID = id }

// MarginBook holds every open margin order.
type MarginBook struct {
	assets *assets.Registry
	bal    *balance.Engine
	params MarginParams

	orders  *store.Table[MarginOrder, *MarginOrder]
	byOwner *store.MultiIndex[MarginOrder, types.AccountName]
}

// NewMarginBook creates an empty margin-order book.
func NewMarginBook(reg *assets.Registry, bal *balance.Engine, params MarginParams) *MarginBook {
	b := &MarginBook{assets: reg, bal: bal, params: params}
	b.orders = store.NewTable[MarginOrder]("margin_order")
	b.byOwner = store.AddMultiIndex(b.orders, func(m *MarginOrder) types.AccountName { return m.Owner })
	return b
}

// Open borrows debtAmount of p's base asset against collateralAmount of
// collateral already held in owner's liquid balance, rejecting the open if
// the resulting collateralization falls below the minimum (spec §4.8.2).
func (b *MarginBook) Open(sess *store.Session, p *credit.Pool, cp *credit.Engine, owner types.AccountName, orderID uint64, collateralSymbol types.AssetSymbol, collateralAmount, debtAmount types.Amount, positionSymbol types.AssetSymbol, sellPrice, medianPrice types.Price, now types.Time) (*MarginOrder, error) {
	const op = "market.Open"
	if collateralAmount <= 0 || debtAmount <= 0 {
		return nil, xerrors.New(op, xerrors.Invalid, "collateral and debt must be positive")
	}
	if debtAmount > p.BaseBalance {
		return nil, xerrors.New(op, xerrors.PoolExhausted, "credit pool has insufficient base liquidity")
	}
	collateralValue, err := medianPrice.Mul(types.NewAsset(collateralAmount, collateralSymbol))
	if err != nil {
		return nil, err
	}
	collateralization := float64(collateralValue.Amount) / float64(debtAmount)
	if collateralization < b.params.MinOpeningCollateralization {
		return nil, xerrors.New(op, xerrors.InsufficientCollateral, "opening collateralization %.4f below minimum %.4f", collateralization, b.params.MinOpeningCollateralization)
	}

	if err := b.bal.Adjust(sess, owner, collateralSymbol, balance.Liquid, -collateralAmount); err != nil {
		return nil, err
	}
	if err := b.assets.AdjustPendingSupply(sess, collateralSymbol, collateralAmount); err != nil {
		return nil, err
	}
	cp.AccrueInterest(sess, p)
	cp.DrawAgainstPool(sess, p, debtAmount)
	if err := b.assets.AdjustPendingSupply(sess, p.BaseSymbol, debtAmount); err != nil {
		return nil, err
	}

	order := b.orders.Create(sess, func(m *MarginOrder) {
		m.Owner = owner
		m.OrderID = orderID
		m.DebtSymbol = p.BaseSymbol
		m.CollateralSymbol = collateralSymbol
		m.PositionSymbol = positionSymbol
		m.Collateral = collateralAmount
		m.DebtBalance = debtAmount
		m.SellPrice = sellPrice
		m.Collateralization = collateralization
		m.Expiration = types.InfiniteTime
		m.LastInterestTime = now
	})
	return order, nil
}

// AccrueInterest advances every open order borrowing against p's debt by
// debt·rate·Δt/year and recomputes its collateralization against
// medianPrice, returning orders whose collateralization has fallen below
// maintenance so the caller can force-close them (spec §4.8.2).
func (b *MarginBook) AccrueInterest(sess *store.Session, p *credit.Pool, rate float64, medianPrice types.Price, now types.Time) ([]*MarginOrder, error) {
	var due []*MarginOrder
	b.orders.Range(func(m *MarginOrder) bool {
		if m.DebtSymbol == p.BaseSymbol && !m.Liquidating {
			due = append(due, m)
		}
		return true
	})

	const year = 365 * 24 * time.Hour
	var forceClosed []*MarginOrder
	for _, m := range due {
		elapsed := now.Std().Sub(m.LastInterestTime.Std())
		if elapsed > 0 {
			growth := types.Amount(float64(m.DebtBalance) * rate * elapsed.Hours() / year.Hours())
			b.orders.Modify(sess, m, func(m *MarginOrder) {
				m.DebtBalance += growth
				m.LastInterestTime = now
			})
		}
		collateralValue, err := medianPrice.Mul(types.NewAsset(m.Collateral, m.CollateralSymbol))
		if err != nil {
			return nil, err
		}
		collateralization := float64(collateralValue.Amount) / float64(m.DebtBalance)
		b.orders.Modify(sess, m, func(m *MarginOrder) { m.Collateralization = collateralization })
		if collateralization < b.params.MaintenanceCollateralization {
			b.orders.Modify(sess, m, func(m *MarginOrder) { m.Liquidating = true })
			forceClosed = append(forceClosed, m)
		}
	}
	return forceClosed, nil
}

// ForceClose liquidates an order's collateral back into the debt asset
// through the liquidity pool at current market, repays the credit pool,
// and returns any surplus to the owner (spec §4.8.2).
func (b *MarginBook) ForceClose(sess *store.Session, pe *pool.Engine, cp *credit.Engine, p *credit.Pool, m *MarginOrder) error {
	const op = "market.ForceClose"
	lp, ok := pe.Find(m.CollateralSymbol, m.DebtSymbol)
	if !ok {
		return xerrors.New(op, xerrors.NotFound, "no liquidity pool to liquidate %s into %s", m.CollateralSymbol, m.DebtSymbol)
	}

	// Release the escrowed collateral to the owner just long enough to
	// route it through the pool exchange, which debits what it sells.
	if err := b.bal.Adjust(sess, m.Owner, m.CollateralSymbol, balance.Liquid, m.Collateral); err != nil {
		return err
	}
	if err := b.assets.AdjustPendingSupply(sess, m.CollateralSymbol, -m.Collateral); err != nil {
		return err
	}
	proceeds, err := pe.ExchangeExactInput(sess, m.Owner, lp, m.CollateralSymbol, m.Collateral, 0)
	if err != nil {
		return err
	}

	owed := m.DebtBalance
	repay := proceeds
	if repay > owed {
		repay = owed
	}
	if err := b.bal.Adjust(sess, m.Owner, m.DebtSymbol, balance.Liquid, -repay); err != nil {
		return err
	}
	if err := b.assets.AdjustPendingSupply(sess, m.DebtSymbol, -repay); err != nil {
		return err
	}
	cp.RepayPool(sess, p, repay)

	b.orders.Remove(sess, m)
	return nil
}
