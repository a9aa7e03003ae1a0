package pool

import (
	"github.com/holiman/uint256"

	"aurora-chain/chain/assets"
	"aurora-chain/chain/balance"
	"aurora-chain/chain/store"
	"aurora-chain/chain/types"
	"aurora-chain/chain/xerrors"
)

func u(a types.Amount) *uint256.Int { return uint256.NewInt(uint64(a)) }

func mulDiv(x, y, z *uint256.Int) types.Amount {
	num := new(uint256.Int).Mul(x, y)
	num.Div(num, z)
	return types.Amount(num.Uint64())
}

func (p *Pool) reserves(symbol types.AssetSymbol) (in, out types.Amount, outSymbol types.AssetSymbol, err error) {
	switch symbol {
	case p.SymbolA:
		return p.BalanceA, p.BalanceB, p.SymbolB, nil
	case p.SymbolB:
		return p.BalanceB, p.BalanceA, p.SymbolA, nil
	default:
		return 0, 0, "", xerrors.New("pool.reserves", xerrors.Invalid, "%s is not a side of this pool", symbol)
	}
}

// quoteExactInput returns the pre-fee output R = Br*I/(I+Bi) for input I
// against reserves (Br, Bi) (spec §4.6).
func quoteExactInput(input, reserveIn, reserveOut types.Amount) types.Amount {
	i := u(input)
	bi := u(reserveIn)
	br := u(reserveOut)
	denom := new(uint256.Int).Add(i, bi)
	return mulDiv(br, i, denom)
}

// ExchangeExactInput sells exactly inputAmount of inputSymbol into the pool,
// crediting trader with the output net of the protocol fee, which is routed
// to the output asset's accumulated fees (spec §4.6).
func (e *Engine) ExchangeExactInput(sess *store.Session, trader types.AccountName, p *Pool, inputSymbol types.AssetSymbol, inputAmount, minOutput types.Amount) (types.Amount, error) {
	const op = "pool.ExchangeExactInput"
	if inputAmount <= 0 {
		return 0, xerrors.New(op, xerrors.Invalid, "input amount must be positive")
	}
	reserveIn, reserveOut, outSymbol, err := p.reserves(inputSymbol)
	if err != nil {
		return 0, err
	}

	grossOut := quoteExactInput(inputAmount, reserveIn, reserveOut)
	if grossOut <= 0 || grossOut >= reserveOut {
		return 0, xerrors.New(op, xerrors.PoolExhausted, "insufficient liquidity for this trade size")
	}
	fee := types.Amount((int64(grossOut) * int64(p.FeeBps)) / 10000)
	netOut := grossOut - fee
	if netOut < minOutput {
		return 0, xerrors.New(op, xerrors.Invalid, "output %s below minimum %s", netOut, minOutput)
	}

	if err := e.bal.Adjust(sess, trader, inputSymbol, balance.Liquid, -inputAmount); err != nil {
		return 0, err
	}
	if err := e.assets.AdjustPendingSupply(sess, inputSymbol, inputAmount); err != nil {
		return 0, err
	}
	if err := e.bal.Adjust(sess, trader, outSymbol, balance.Liquid, netOut); err != nil {
		return 0, err
	}
	if err := e.assets.AdjustPendingSupply(sess, outSymbol, -netOut); err != nil {
		return 0, err
	}
	if fee > 0 {
		if err := e.assets.Move(sess, outSymbol, assets.PartitionPending, assets.PartitionFees, fee); err != nil {
			return 0, err
		}
	}

	e.pools.Modify(sess, p, func(p *Pool) {
		if inputSymbol == p.SymbolA {
			p.BalanceA += inputAmount
			p.BalanceB -= grossOut
		} else {
			p.BalanceB += inputAmount
			p.BalanceA -= grossOut
		}
	})
	return netOut, nil
}

// ExchangeExactOutput acquires exactly outputAmount of outputSymbol,
// inverting quoteExactInput to solve for the required input: from
// R = Br·I/(I+Bi), I = Bi·R/(Br-R).
func (e *Engine) ExchangeExactOutput(sess *store.Session, trader types.AccountName, p *Pool, outputSymbol types.AssetSymbol, outputAmount, maxInput types.Amount) (types.Amount, error) {
	const op = "pool.ExchangeExactOutput"
	if outputAmount <= 0 {
		return 0, xerrors.New(op, xerrors.Invalid, "output amount must be positive")
	}
	reserveOut, reserveIn, inSymbol, err := p.reserves(outputSymbol)
	if err != nil {
		return 0, err
	}
	// grossOut accounts for the fee being carved from the output: the trader
	// wants `outputAmount` net, so the pool must release grossOut where
	// grossOut - fee(grossOut) == outputAmount.
	grossOut := types.Amount((int64(outputAmount) * 10000) / int64(10000-int64(p.FeeBps)))
	if grossOut <= 0 || grossOut >= reserveOut {
		return 0, xerrors.New(op, xerrors.PoolExhausted, "insufficient liquidity for this trade size")
	}
	fee := grossOut - outputAmount

	bi := u(reserveIn)
	br := u(reserveOut)
	g := u(grossOut)
	denom := new(uint256.Int).Sub(br, g)
	if denom.IsZero() {
		return 0, xerrors.New(op, xerrors.PoolExhausted, "insufficient liquidity for this trade size")
	}
	inputAmount := mulDiv(bi, g, denom)
	if inputAmount > maxInput {
		return 0, xerrors.New(op, xerrors.Invalid, "required input %s exceeds maximum %s", inputAmount, maxInput)
	}

	if err := e.bal.Adjust(sess, trader, inSymbol, balance.Liquid, -inputAmount); err != nil {
		return 0, err
	}
	if err := e.assets.AdjustPendingSupply(sess, inSymbol, inputAmount); err != nil {
		return 0, err
	}
	if err := e.bal.Adjust(sess, trader, outputSymbol, balance.Liquid, outputAmount); err != nil {
		return 0, err
	}
	if err := e.assets.AdjustPendingSupply(sess, outputSymbol, -outputAmount); err != nil {
		return 0, err
	}
	if fee > 0 {
		if err := e.assets.Move(sess, outputSymbol, assets.PartitionPending, assets.PartitionFees, fee); err != nil {
			return 0, err
		}
	}

	e.pools.Modify(sess, p, func(p *Pool) {
		if outputSymbol == p.SymbolA {
			p.BalanceA -= grossOut
			p.BalanceB += inputAmount
		} else {
			p.BalanceB -= grossOut
			p.BalanceA += inputAmount
		}
	})
	return inputAmount, nil
}

// MaxInputForPrice returns the maximum input against reserve (Br, Bi) to
// move the pool's price no further than target final price Pf:
// √(Br·Bi/Pf) − Bi (spec §4.6).
func MaxInputForPrice(reserveOut, reserveIn types.Amount, targetFinalPrice types.Price) types.Amount {
	if targetFinalPrice.IsNull() {
		return 0
	}
	num := new(uint256.Int).Mul(u(reserveOut), u(reserveIn))
	num.Mul(num, u(targetFinalPrice.Quote.Amount))
	denom := u(targetFinalPrice.Base.Amount)
	num.Div(num, denom)
	root := isqrt(num)
	if root.Uint64() <= uint64(reserveIn) {
		return 0
	}
	return types.Amount(root.Uint64()) - reserveIn
}

// Route finds a path between x and y: a direct pool if one exists, else a
// two-hop path through the core asset pool, else through the USD asset pool
// (spec §4.6's fixed preference order).
func (e *Engine) Route(x, y types.AssetSymbol) ([]*Pool, bool) {
	if direct, ok := e.Find(x, y); ok {
		return []*Pool{direct}, true
	}
	for _, via := range []types.AssetSymbol{e.core, e.usd} {
		if via == x || via == y {
			continue
		}
		first, ok1 := e.Find(x, via)
		second, ok2 := e.Find(via, y)
		if ok1 && ok2 {
			return []*Pool{first, second}, true
		}
	}
	return nil, false
}

// ExchangeRouted sells inputAmount of x for y along a direct or one-hop
// routed path, applying ExchangeExactInput at each hop.
func (e *Engine) ExchangeRouted(sess *store.Session, trader types.AccountName, x, y types.AssetSymbol, inputAmount, minOutput types.Amount) (types.Amount, error) {
	const op = "pool.ExchangeRouted"
	path, ok := e.Route(x, y)
	if !ok {
		return 0, xerrors.New(op, xerrors.NotFound, "no route between %s and %s", x, y)
	}
	cur := inputAmount
	curSymbol := x
	for i, hop := range path {
		min := types.Amount(0)
		if i == len(path)-1 {
			min = minOutput
		}
		out, err := e.ExchangeExactInput(sess, trader, hop, curSymbol, cur, min)
		if err != nil {
			return 0, err
		}
		cur = out
		if curSymbol == hop.SymbolA {
			curSymbol = hop.SymbolB
		} else {
			curSymbol = hop.SymbolA
		}
	}
	return cur, nil
}
