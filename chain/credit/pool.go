// Package credit implements the credit pool (spec C7) and the collateral/
// loan book built on top of it (spec §3.10): depositors lend a base asset
// and receive credit-pool shares priced off the pool's implicit share
// price, borrowers post collateral and draw debt at a utilization-scaled
// interest rate. Grounded on chain/pool's reserve bookkeeping, generalized
// from a two-sided AMM reserve to a single lend/borrow reserve plus an
// outstanding-debt counter.
package credit

import (
	"aurora-chain/chain/assets"
	"aurora-chain/chain/balance"
	"aurora-chain/chain/store"
	"aurora-chain/chain/types"
	"aurora-chain/chain/xerrors"
)

// Params are the credit pool's rate-curve constants (spec §4.7).
type Params struct {
	MinRate  float64 // minimum interest rate at zero utilization
	VarRate  float64 // slope against utilization
	FixedCap float64 // hard ceiling on the computed rate
}

// DefaultParams mirrors representative defaults.
var DefaultParams = Params{MinRate: 0.02, VarRate: 0.18, FixedCap: 0.50}

// Pool is a single base/credit pair (spec §3.9).
type Pool struct {
	ID store.ID

	BaseSymbol   types.AssetSymbol
	CreditSymbol types.AssetSymbol

	BaseBalance     types.Amount
	BorrowedBalance types.Amount
	CreditBalance   types.Amount

	LastInterestRate float64
	LastPrice        types.Price
}

func (p *Pool) GetID() store.ID   { return p.ID }
func (p *Pool) SetID(id store.ID) { p.ID = id }

// SharePrice is the implicit price of one credit-pool share in base asset
// terms: (base_balance + borrowed_balance) / credit_balance.
func (p *Pool) SharePrice() types.Price {
	if p.CreditBalance == 0 {
		return types.Price{
			Base:  types.NewAsset(types.PrecisionUnit, p.CreditSymbol),
			Quote: types.NewAsset(types.PrecisionUnit, p.BaseSymbol),
		}
	}
	return types.Price{
		Base:  types.NewAsset(p.CreditBalance, p.CreditSymbol),
		Quote: types.NewAsset(p.BaseBalance+p.BorrowedBalance, p.BaseSymbol),
	}
}

// InterestRate computes spec §4.7's utilization-scaled rate:
// min(FixedCap, min_rate + var_rate·(borrowed+ε)/(base+ε)).
func (p *Params) InterestRate(borrowed, base types.Amount) float64 {
	eps := float64(types.PrecisionUnit)
	util := (float64(borrowed) + eps) / (float64(base) + eps)
	rate := p.MinRate + p.VarRate*util
	if rate > p.FixedCap {
		rate = p.FixedCap
	}
	return rate
}

type pairKey struct {
	base, credit types.AssetSymbol
}

// Engine owns every credit pool.
type Engine struct {
	assets *assets.Registry
	bal    *balance.Engine
	params Params

	pools  *store.Table[Pool, *Pool]
	byPair *store.UniqueIndex[Pool, pairKey]
}

// NewEngine creates a credit pool engine.
func NewEngine(reg *assets.Registry, bal *balance.Engine, params Params) *Engine {
	e := &Engine{assets: reg, bal: bal, params: params}
	e.pools = store.NewTable[Pool]("credit_pool")
	e.byPair = store.AddUniqueIndex(e.pools, func(p *Pool) pairKey { return pairKey{p.BaseSymbol, p.CreditSymbol} })
	return e
}

// Range calls fn for every credit pool, stopping early if fn returns false.
func (e *Engine) Range(fn func(*Pool) bool) {
	e.pools.Range(fn)
}

// Find looks up the pool for a base asset.
func (e *Engine) Find(base types.AssetSymbol) (*Pool, bool) {
	var found *Pool
	e.pools.Range(func(p *Pool) bool {
		if p.BaseSymbol == base {
			found = p
			return false
		}
		return true
	})
	return found, found != nil
}

// Create opens a new credit pool for baseSymbol/creditSymbol.
func (e *Engine) Create(sess *store.Session, baseSymbol, creditSymbol types.AssetSymbol) (*Pool, error) {
	const op = "credit.Create"
	if _, exists := e.byPair.Find(pairKey{baseSymbol, creditSymbol}); exists {
		return nil, xerrors.New(op, xerrors.AlreadyExists, "a credit pool for %s/%s already exists", baseSymbol, creditSymbol)
	}
	return e.pools.Create(sess, func(p *Pool) {
		p.BaseSymbol = baseSymbol
		p.CreditSymbol = creditSymbol
	}), nil
}

// Lend deposits amount of the base asset from lender, minting
// amount/current_price credit-pool shares (spec §4.7).
func (e *Engine) Lend(sess *store.Session, lender types.AccountName, p *Pool, amount types.Amount) (types.Amount, error) {
	const op = "credit.Lend"
	if amount <= 0 {
		return 0, xerrors.New(op, xerrors.Invalid, "deposit must be positive")
	}
	shares, err := p.SharePrice().Invert().Mul(types.NewAsset(amount, p.BaseSymbol))
	if err != nil {
		return 0, err
	}

	if err := e.bal.Adjust(sess, lender, p.BaseSymbol, balance.Liquid, -amount); err != nil {
		return 0, err
	}
	if err := e.assets.AdjustPendingSupply(sess, p.BaseSymbol, amount); err != nil {
		return 0, err
	}
	if err := e.assets.Issue(sess, p.CreditSymbol, assets.PartitionLiquid, shares.Amount); err != nil {
		return 0, err
	}
	if err := e.bal.AdjustMinted(sess, lender, p.CreditSymbol, balance.Liquid, shares.Amount); err != nil {
		return 0, err
	}
	e.pools.Modify(sess, p, func(p *Pool) {
		p.BaseBalance += amount
		p.CreditBalance += shares.Amount
	})
	return shares.Amount, nil
}

// Withdraw burns shares credit-pool shares, returning base asset at the
// current share price. Withdrawals may only draw from base_balance, never
// borrowed_balance (spec §4.7).
func (e *Engine) Withdraw(sess *store.Session, lender types.AccountName, p *Pool, shares types.Amount) (types.Amount, error) {
	const op = "credit.Withdraw"
	if shares <= 0 {
		return 0, xerrors.New(op, xerrors.Invalid, "withdrawal must be positive")
	}
	out, err := p.SharePrice().Mul(types.NewAsset(shares, p.CreditSymbol))
	if err != nil {
		return 0, err
	}
	if out.Amount > p.BaseBalance {
		return 0, xerrors.New(op, xerrors.InsufficientBalance, "withdrawal would draw from borrowed balance")
	}

	if err := e.bal.AdjustMinted(sess, lender, p.CreditSymbol, balance.Liquid, -shares); err != nil {
		return 0, err
	}
	if err := e.assets.Burn(sess, p.CreditSymbol, assets.PartitionLiquid, shares); err != nil {
		return 0, err
	}
	if err := e.bal.Adjust(sess, lender, p.BaseSymbol, balance.Liquid, out.Amount); err != nil {
		return 0, err
	}
	if err := e.assets.AdjustPendingSupply(sess, p.BaseSymbol, -out.Amount); err != nil {
		return 0, err
	}
	e.pools.Modify(sess, p, func(p *Pool) {
		p.BaseBalance -= out.Amount
		p.CreditBalance -= shares
	})
	return out.Amount, nil
}

// AccrueInterest recomputes the pool's current rate from utilization and
// records it; callers that hold loans against this pool apply the rate to
// their own debt (see loan.go).
func (e *Engine) AccrueInterest(sess *store.Session, p *Pool) float64 {
	rate := e.params.InterestRate(p.BorrowedBalance, p.BaseBalance)
	e.pools.Modify(sess, p, func(p *Pool) { p.LastInterestRate = rate })
	return rate
}

// DrawAgainstPool records amount as newly borrowed from p's base reserve
// for a debt position that isn't a Loan record (a margin order holds its
// own debt directly rather than through the collateral/loan book).
func (e *Engine) DrawAgainstPool(sess *store.Session, p *Pool, amount types.Amount) {
	e.pools.Modify(sess, p, func(p *Pool) {
		p.BaseBalance -= amount
		p.BorrowedBalance += amount
	})
}

// RepayPool moves amount from p's borrowed balance back into its base
// reserve for a non-Loan debt position being repaid or liquidated.
func (e *Engine) RepayPool(sess *store.Session, p *Pool, amount types.Amount) {
	e.pools.Modify(sess, p, func(p *Pool) {
		p.BaseBalance += amount
		p.BorrowedBalance -= amount
	})
}
