package evaluator

import (
	"aurora-chain/chain/store"
	"aurora-chain/chain/types"
	"aurora-chain/chain/xerrors"
)

// LiquidityPoolCreate opens a new constant-product pool for a pair of assets
// (spec §4.6).
type LiquidityPoolCreate struct {
	Signer       types.AccountName
	Founder      types.AccountName
	X, Y         types.AssetSymbol
	LiquidSymbol types.AssetSymbol
	InitialA     types.Amount
	InitialB     types.Amount
	FeeBps       uint32
}

func (o LiquidityPoolCreate) Kind() string               { return "liquidity_pool_create" }
func (o LiquidityPoolCreate) Owner() types.AccountName    { return o.Founder }
func (o LiquidityPoolCreate) Signatory() types.AccountName { return o.Signer }

func (o LiquidityPoolCreate) apply(ctx *Context, sess *store.Session, now types.Time) error {
	_, err := ctx.Pools.Create(sess, o.Founder, o.X, o.Y, o.LiquidSymbol, o.InitialA, o.InitialB, o.FeeBps, now)
	return err
}

// LiquidityPoolExchange trades through a pool (spec §4.6): exactly one of
// InputAmount/OutputAmount is set, selecting exact-input or exact-output
// pricing, and Routed allows the trade to hop through an intermediate
// pool pair via the core asset.
type LiquidityPoolExchange struct {
	Signer       types.AccountName
	Trader       types.AccountName
	InputSymbol  types.AssetSymbol
	OutputSymbol types.AssetSymbol
	InputAmount  types.Amount
	OutputAmount types.Amount
	MinOutput    types.Amount
	MaxInput     types.Amount
	Routed       bool
}

func (o LiquidityPoolExchange) Kind() string               { return "liquidity_pool_exchange" }
func (o LiquidityPoolExchange) Owner() types.AccountName    { return o.Trader }
func (o LiquidityPoolExchange) Signatory() types.AccountName { return o.Signer }

func (o LiquidityPoolExchange) apply(ctx *Context, sess *store.Session, now types.Time) error {
	const op = "evaluator.LiquidityPoolExchange"
	if o.Routed {
		_, err := ctx.Pools.ExchangeRouted(sess, o.Trader, o.InputSymbol, o.OutputSymbol, o.InputAmount, o.MinOutput)
		return err
	}
	p, ok := ctx.Pools.Find(o.InputSymbol, o.OutputSymbol)
	if !ok {
		return xerrors.New(op, xerrors.NotFound, "no pool for %s/%s", o.InputSymbol, o.OutputSymbol)
	}
	switch {
	case o.InputAmount > 0:
		_, err := ctx.Pools.ExchangeExactInput(sess, o.Trader, p, o.InputSymbol, o.InputAmount, o.MinOutput)
		return err
	case o.OutputAmount > 0:
		_, err := ctx.Pools.ExchangeExactOutput(sess, o.Trader, p, o.OutputSymbol, o.OutputAmount, o.MaxInput)
		return err
	default:
		return xerrors.New(op, xerrors.Invalid, "exactly one of input_amount/output_amount must be set")
	}
}

// LiquidityPoolFund deposits a single side of a pool for LP shares (spec
// §4.6).
type LiquidityPoolFund struct {
	Signer    types.AccountName
	Depositor types.AccountName
	X, Y      types.AssetSymbol
	Side      types.AssetSymbol
	Amount    types.Amount
}

func (o LiquidityPoolFund) Kind() string               { return "liquidity_pool_fund" }
func (o LiquidityPoolFund) Owner() types.AccountName    { return o.Depositor }
func (o LiquidityPoolFund) Signatory() types.AccountName { return o.Signer }

func (o LiquidityPoolFund) apply(ctx *Context, sess *store.Session, now types.Time) error {
	const op = "evaluator.LiquidityPoolFund"
	p, ok := ctx.Pools.Find(o.X, o.Y)
	if !ok {
		return xerrors.New(op, xerrors.NotFound, "no pool for %s/%s", o.X, o.Y)
	}
	_, err := ctx.Pools.Fund(sess, o.Depositor, p, o.Side, o.Amount)
	return err
}

// LiquidityPoolWithdraw burns LP shares for a proportional slice of both
// reserves (spec §4.6).
type LiquidityPoolWithdraw struct {
	Signer types.AccountName
	Owner_ types.AccountName
	X, Y   types.AssetSymbol
	Shares types.Amount
}

func (o LiquidityPoolWithdraw) Kind() string               { return "liquidity_pool_withdraw" }
func (o LiquidityPoolWithdraw) Owner() types.AccountName    { return o.Owner_ }
func (o LiquidityPoolWithdraw) Signatory() types.AccountName { return o.Signer }

func (o LiquidityPoolWithdraw) apply(ctx *Context, sess *store.Session, now types.Time) error {
	const op = "evaluator.LiquidityPoolWithdraw"
	p, ok := ctx.Pools.Find(o.X, o.Y)
	if !ok {
		return xerrors.New(op, xerrors.NotFound, "no pool for %s/%s", o.X, o.Y)
	}
	_, _, err := ctx.Pools.Withdraw(sess, o.Owner_, p, o.Shares)
	return err
}
