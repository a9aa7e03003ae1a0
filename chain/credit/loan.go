package credit

import (
	"time"

	"aurora-chain/chain/assets"
	"aurora-chain/chain/balance"
	"aurora-chain/chain/store"
	"aurora-chain/chain/types"
	"aurora-chain/chain/xerrors"
)

// Collateral is a free (unlent-against) collateral balance (spec §3.10).
type Collateral struct {
	ID     store.ID
	Owner  types.AccountName
	Symbol types.AssetSymbol
	Amount types.Amount
}

func (c *Collateral) GetID() store.ID   { return c.ID }
func (c *Collateral) SetID(id store.ID) { c.ID = id }

// Loan is an open collateralized debt position against a credit pool
// (spec §3.10).
type Loan struct {
	ID store.ID

	Owner            types.AccountName
	LoanID           uint64
	BaseSymbol       types.AssetSymbol
	CollateralSymbol types.AssetSymbol

	Debt             types.Amount
	Interest         types.Amount
	Collateral       types.Amount
	LiquidationPrice types.Price

	LastInterestRate float64
	LastInterestTime types.Time
	FlashLoan        bool
}

func (l *Loan) GetID() store.ID   { return l.ID }
func (l *Loan) SetID(id store.ID) { l.ID = id }

type collateralKey struct {
	owner  types.AccountName
	symbol types.AssetSymbol
}

type loanKey struct {
	owner  types.AccountName
	loanID uint64
}

// LoanBook holds collateral accounts and loans layered on top of an Engine's
// credit pools.
type LoanBook struct {
	assets *assets.Registry
	bal    *balance.Engine

	collateral *store.Table[Collateral, *Collateral]
	byColKey   *store.UniqueIndex[Collateral, collateralKey]

	loans    *store.Table[Loan, *Loan]
	byLoanID *store.UniqueIndex[Loan, loanKey]
}

// NewLoanBook creates an empty collateral/loan book.
func NewLoanBook(reg *assets.Registry, bal *balance.Engine) *LoanBook {
	b := &LoanBook{assets: reg, bal: bal}
	b.collateral = store.NewTable[Collateral]("credit_collateral")
	b.byColKey = store.AddUniqueIndex(b.collateral, func(c *Collateral) collateralKey {
		return collateralKey{c.Owner, c.Symbol}
	})
	b.loans = store.NewTable[Loan]("credit_loan")
	b.byLoanID = store.AddUniqueIndex(b.loans, func(l *Loan) loanKey { return loanKey{l.Owner, l.LoanID} })
	return b
}

func (b *LoanBook) getOrCreateCollateral(sess *store.Session, owner types.AccountName, symbol types.AssetSymbol) *Collateral {
	if c, ok := b.byColKey.Find(collateralKey{owner, symbol}); ok {
		return c
	}
	return b.collateral.Create(sess, func(c *Collateral) {
		c.Owner = owner
		c.Symbol = symbol
	})
}

// DepositCollateral moves amount from owner's liquid balance into their free
// collateral register.
func (b *LoanBook) DepositCollateral(sess *store.Session, owner types.AccountName, symbol types.AssetSymbol, amount types.Amount) error {
	const op = "credit.DepositCollateral"
	if amount <= 0 {
		return xerrors.New(op, xerrors.Invalid, "deposit must be positive")
	}
	if err := b.bal.Adjust(sess, owner, symbol, balance.Liquid, -amount); err != nil {
		return err
	}
	if err := b.assets.AdjustPendingSupply(sess, symbol, amount); err != nil {
		return err
	}
	c := b.getOrCreateCollateral(sess, owner, symbol)
	b.collateral.Modify(sess, c, func(c *Collateral) { c.Amount += amount })
	return nil
}

// WithdrawCollateral returns amount of free (unlocked) collateral to owner's
// liquid balance.
func (b *LoanBook) WithdrawCollateral(sess *store.Session, owner types.AccountName, symbol types.AssetSymbol, amount types.Amount) error {
	const op = "credit.WithdrawCollateral"
	if amount <= 0 {
		return xerrors.New(op, xerrors.Invalid, "withdrawal must be positive")
	}
	c, ok := b.byColKey.Find(collateralKey{owner, symbol})
	if !ok || c.Amount < amount {
		return xerrors.New(op, xerrors.InsufficientBalance, "%s has insufficient free collateral in %s", owner, symbol)
	}
	b.collateral.Modify(sess, c, func(c *Collateral) { c.Amount -= amount })
	if err := b.assets.AdjustPendingSupply(sess, symbol, -amount); err != nil {
		return err
	}
	return b.bal.Adjust(sess, owner, symbol, balance.Liquid, amount)
}

// Find looks up an open loan by its (owner, loanID) key.
func (b *LoanBook) Find(owner types.AccountName, loanID uint64) (*Loan, bool) {
	return b.byLoanID.Find(loanKey{owner, loanID})
}

// Range calls fn for every open loan, stopping early if fn returns false.
func (b *LoanBook) Range(fn func(*Loan) bool) {
	b.loans.Range(fn)
}

// Borrow opens a new loan: amount of free collateral is locked, debtAmount
// is drawn from the pool's base reserve and credited to owner's liquid
// balance. A loan whose collateral, valued at price, does not exceed
// debtAmount is rejected with InsufficientCollateral and never opens.
func (b *LoanBook) Borrow(sess *store.Session, e *Engine, owner types.AccountName, p *Pool, loanID uint64, collateralSymbol types.AssetSymbol, collateralAmount, debtAmount types.Amount, price types.Price, now types.Time) (*Loan, error) {
	const op = "credit.Borrow"
	if collateralAmount <= 0 || debtAmount <= 0 {
		return nil, xerrors.New(op, xerrors.Invalid, "collateral and debt must be positive")
	}
	if _, exists := b.byLoanID.Find(loanKey{owner, loanID}); exists {
		return nil, xerrors.New(op, xerrors.AlreadyExists, "%s already has loan %d", owner, loanID)
	}
	c, ok := b.byColKey.Find(collateralKey{owner, collateralSymbol})
	if !ok || c.Amount < collateralAmount {
		return nil, xerrors.New(op, xerrors.InsufficientBalance, "%s has insufficient free collateral", owner)
	}
	if debtAmount > p.BaseBalance {
		return nil, xerrors.New(op, xerrors.PoolExhausted, "credit pool has insufficient base liquidity")
	}

	collateralValue, err := price.Mul(types.NewAsset(collateralAmount, collateralSymbol))
	if err != nil {
		return nil, err
	}
	if collateralValue.Amount <= debtAmount {
		return nil, xerrors.New(op, xerrors.InsufficientCollateral, "collateral value does not exceed debt")
	}
	liquidationPrice := types.Price{
		Base:  types.NewAsset(debtAmount, p.BaseSymbol),
		Quote: types.NewAsset(collateralAmount, collateralSymbol),
	}

	b.collateral.Modify(sess, c, func(c *Collateral) { c.Amount -= collateralAmount })
	rate := e.AccrueInterest(sess, p)
	e.pools.Modify(sess, p, func(p *Pool) {
		p.BaseBalance -= debtAmount
		p.BorrowedBalance += debtAmount
	})
	if err := b.assets.AdjustPendingSupply(sess, p.BaseSymbol, -debtAmount); err != nil {
		return nil, err
	}
	if err := b.bal.Adjust(sess, owner, p.BaseSymbol, balance.Liquid, debtAmount); err != nil {
		return nil, err
	}

	loan := b.loans.Create(sess, func(l *Loan) {
		l.Owner = owner
		l.LoanID = loanID
		l.BaseSymbol = p.BaseSymbol
		l.CollateralSymbol = collateralSymbol
		l.Debt = debtAmount
		l.Collateral = collateralAmount
		l.LiquidationPrice = liquidationPrice
		l.LastInterestRate = rate
		l.LastInterestTime = now
	})
	return loan, nil
}

// AccrueLoanInterest adds debt·rate·Δt/year to the loan's accrued interest,
// Δt being the time elapsed since its last accrual (spec §4.8.2's interest-accrual shape,
// applied here to credit-pool loans per spec §3.10).
func (b *LoanBook) AccrueLoanInterest(sess *store.Session, l *Loan, rate float64, now types.Time) {
	elapsed := now.Std().Sub(l.LastInterestTime.Std())
	if elapsed <= 0 {
		return
	}
	const year = 365 * 24 * time.Hour
	growth := float64(l.Debt) * rate * elapsed.Hours() / (year.Hours())
	b.loans.Modify(sess, l, func(l *Loan) {
		l.Interest += types.Amount(growth)
		l.LastInterestRate = rate
		l.LastInterestTime = now
	})
}

// IsUnderwater reports whether the loan's collateral, valued at
// currentPrice (one unit of collateral priced in the debt asset), has
// fallen to or below outstanding debt+interest (spec §3.10 invariant:
// "collateral / debt > liquidation_price or the loan is immediately
// liquidated").
func (l *Loan) IsUnderwater(currentPrice types.Price) bool {
	value, err := currentPrice.Mul(types.NewAsset(l.Collateral, l.CollateralSymbol))
	if err != nil {
		return false
	}
	return value.Amount <= l.Debt+l.Interest
}

// Repay reduces the loan's debt+interest by amount, returning the debt and
// any freed collateral to owner once fully repaid.
func (b *LoanBook) Repay(sess *store.Session, e *Engine, p *Pool, l *Loan, amount types.Amount) error {
	const op = "credit.Repay"
	if amount <= 0 {
		return xerrors.New(op, xerrors.Invalid, "repayment must be positive")
	}
	owed := l.Debt + l.Interest
	if amount > owed {
		amount = owed
	}
	if err := b.bal.Adjust(sess, l.Owner, l.BaseSymbol, balance.Liquid, -amount); err != nil {
		return err
	}
	if err := b.assets.AdjustPendingSupply(sess, l.BaseSymbol, amount); err != nil {
		return err
	}

	toInterest := amount
	if toInterest > l.Interest {
		toInterest = l.Interest
	}
	toDebt := amount - toInterest

	e.pools.Modify(sess, p, func(p *Pool) {
		p.BaseBalance += amount
		p.BorrowedBalance -= toDebt
	})

	remaining := owed - amount
	if remaining <= 0 {
		freed := l.Collateral
		c := b.getOrCreateCollateral(sess, l.Owner, l.CollateralSymbol)
		b.collateral.Modify(sess, c, func(c *Collateral) { c.Amount += freed })
		b.loans.Remove(sess, l)
		return nil
	}
	b.loans.Modify(sess, l, func(l *Loan) {
		l.Interest -= toInterest
		l.Debt -= toDebt
	})
	return nil
}

// Liquidate force-closes an underwater loan, sending its collateral to the
// pool's base reserve as the proceeds of seizure and discharging the debt.
func (b *LoanBook) Liquidate(sess *store.Session, e *Engine, p *Pool, l *Loan, currentPrice types.Price) error {
	const op = "credit.Liquidate"
	if !l.IsUnderwater(currentPrice) {
		return xerrors.New(op, xerrors.Invalid, "loan is not underwater")
	}
	e.pools.Modify(sess, p, func(p *Pool) { p.BorrowedBalance -= l.Debt })
	b.loans.Remove(sess, l)
	return nil
}
