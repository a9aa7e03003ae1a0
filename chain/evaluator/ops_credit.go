package evaluator

import (
	"aurora-chain/chain/store"
	"aurora-chain/chain/types"
	"aurora-chain/chain/xerrors"
)

// CreditPoolLend deposits a credit pool's base asset for interest-bearing
// pool shares (spec §4.7).
type CreditPoolLend struct {
	Signer types.AccountName
	Lender types.AccountName
	Base   types.AssetSymbol
	Amount types.Amount
}

func (o CreditPoolLend) Kind() string               { return "credit_pool_lend" }
func (o CreditPoolLend) Owner() types.AccountName    { return o.Lender }
func (o CreditPoolLend) Signatory() types.AccountName { return o.Signer }

func (o CreditPoolLend) apply(ctx *Context, sess *store.Session, now types.Time) error {
	const op = "evaluator.CreditPoolLend"
	p, ok := ctx.Credit.Find(o.Base)
	if !ok {
		return xerrors.New(op, xerrors.NotFound, "no credit pool for %s", o.Base)
	}
	_, err := ctx.Credit.Lend(sess, o.Lender, p, o.Amount)
	return err
}

// CreditPoolWithdraw burns credit pool shares for a slice of the base
// reserve (spec §4.7).
type CreditPoolWithdraw struct {
	Signer types.AccountName
	Lender types.AccountName
	Base   types.AssetSymbol
	Shares types.Amount
}

func (o CreditPoolWithdraw) Kind() string               { return "credit_pool_withdraw" }
func (o CreditPoolWithdraw) Owner() types.AccountName    { return o.Lender }
func (o CreditPoolWithdraw) Signatory() types.AccountName { return o.Signer }

func (o CreditPoolWithdraw) apply(ctx *Context, sess *store.Session, now types.Time) error {
	const op = "evaluator.CreditPoolWithdraw"
	p, ok := ctx.Credit.Find(o.Base)
	if !ok {
		return xerrors.New(op, xerrors.NotFound, "no credit pool for %s", o.Base)
	}
	_, err := ctx.Credit.Withdraw(sess, o.Lender, p, o.Shares)
	return err
}

// CreditPoolBorrow opens a new collateralized loan against a credit pool
// (spec §3.10/§4.7). The collateral's current value is priced off the
// published feed median rather than a caller-supplied price, so a borrower
// cannot understate their own collateral.
type CreditPoolBorrow struct {
	Signer            types.AccountName
	Owner_            types.AccountName
	Base              types.AssetSymbol
	LoanID            uint64
	CollateralSymbol  types.AssetSymbol
	CollateralAmount  types.Amount
	DebtAmount        types.Amount
}

func (o CreditPoolBorrow) Kind() string               { return "credit_pool_borrow" }
func (o CreditPoolBorrow) Owner() types.AccountName    { return o.Owner_ }
func (o CreditPoolBorrow) Signatory() types.AccountName { return o.Signer }

func (o CreditPoolBorrow) apply(ctx *Context, sess *store.Session, now types.Time) error {
	const op = "evaluator.CreditPoolBorrow"
	p, ok := ctx.Credit.Find(o.Base)
	if !ok {
		return xerrors.New(op, xerrors.NotFound, "no credit pool for %s", o.Base)
	}
	price, err := ctx.Feeds.Median(o.CollateralSymbol, ctx.FeedLifetime, now)
	if err != nil {
		return err
	}
	_, err = ctx.Loans.Borrow(sess, ctx.Credit, o.Owner_, p, o.LoanID, o.CollateralSymbol, o.CollateralAmount, o.DebtAmount, price, now)
	return err
}

// CreditPoolCollateral adjusts a borrower's free collateral register: a
// positive Amount deposits, a negative Amount withdraws, mirroring
// balance.Adjust's signed-delta convention.
type CreditPoolCollateral struct {
	Signer types.AccountName
	Owner_ types.AccountName
	Symbol types.AssetSymbol
	Amount types.Amount
}

func (o CreditPoolCollateral) Kind() string               { return "credit_pool_collateral" }
func (o CreditPoolCollateral) Owner() types.AccountName    { return o.Owner_ }
func (o CreditPoolCollateral) Signatory() types.AccountName { return o.Signer }

func (o CreditPoolCollateral) apply(ctx *Context, sess *store.Session, now types.Time) error {
	const op = "evaluator.CreditPoolCollateral"
	if o.Amount == 0 {
		return xerrors.New(op, xerrors.Invalid, "amount must be nonzero")
	}
	if o.Amount > 0 {
		return ctx.Loans.DepositCollateral(sess, o.Owner_, o.Symbol, o.Amount)
	}
	return ctx.Loans.WithdrawCollateral(sess, o.Owner_, o.Symbol, -o.Amount)
}

// CreditPoolRepay reduces an open loan's debt, the natural counterpart to
// credit_pool_borrow that the minimum operation list omits.
type CreditPoolRepay struct {
	Signer types.AccountName
	Owner_ types.AccountName
	Base   types.AssetSymbol
	LoanID uint64
	Amount types.Amount
}

func (o CreditPoolRepay) Kind() string               { return "credit_pool_repay" }
func (o CreditPoolRepay) Owner() types.AccountName    { return o.Owner_ }
func (o CreditPoolRepay) Signatory() types.AccountName { return o.Signer }

func (o CreditPoolRepay) apply(ctx *Context, sess *store.Session, now types.Time) error {
	const op = "evaluator.CreditPoolRepay"
	p, ok := ctx.Credit.Find(o.Base)
	if !ok {
		return xerrors.New(op, xerrors.NotFound, "no credit pool for %s", o.Base)
	}
	l, ok := ctx.Loans.Find(o.Owner_, o.LoanID)
	if !ok {
		return xerrors.New(op, xerrors.NotFound, "%s has no loan %d", o.Owner_, o.LoanID)
	}
	return ctx.Loans.Repay(sess, ctx.Credit, p, l, o.Amount)
}
