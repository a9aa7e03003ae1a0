package pool

import (
	"github.com/holiman/uint256"

	"aurora-chain/chain/assets"
	"aurora-chain/chain/balance"
	"aurora-chain/chain/store"
	"aurora-chain/chain/types"
	"aurora-chain/chain/xerrors"
)

// quoteFund returns the LP shares minted for a single-sided deposit of
// input into the side with reserve reserveIn, given the pool's current
// share supply reserveShares: Sr = Bs·(√(1 + I/Bi) − 1) (spec §4.6).
func quoteFund(input, reserveIn, reserveShares types.Amount) types.Amount {
	bi := u(reserveIn)
	numerator := new(uint256.Int).Add(bi, u(input)) // Bi + I
	product := new(uint256.Int).Mul(numerator, bi)  // (Bi+I)*Bi
	root := isqrt(product)                          // √((Bi+I)*Bi) == Bi·√(1+I/Bi)
	scaled := mulDiv(u(reserveShares), root, bi)     // Bs·√(1+I/Bi)
	return scaled - reserveShares
}

// Fund deposits amount of one side of the pool, minting LP shares for
// depositor.
func (e *Engine) Fund(sess *store.Session, depositor types.AccountName, p *Pool, side types.AssetSymbol, amount types.Amount) (types.Amount, error) {
	const op = "pool.Fund"
	if amount <= 0 {
		return 0, xerrors.New(op, xerrors.Invalid, "deposit amount must be positive")
	}
	reserveIn, _, _, err := p.reserves(side)
	if err != nil {
		return 0, err
	}
	shares := quoteFund(amount, reserveIn, p.BalanceLiquid)
	if shares <= 0 {
		return 0, xerrors.New(op, xerrors.Invalid, "deposit too small to mint a share")
	}

	if err := e.bal.Adjust(sess, depositor, side, balance.Liquid, -amount); err != nil {
		return 0, err
	}
	if err := e.assets.AdjustPendingSupply(sess, side, amount); err != nil {
		return 0, err
	}
	if err := e.assets.Issue(sess, p.SymbolLiquid, assets.PartitionLiquid, shares); err != nil {
		return 0, err
	}
	if err := e.bal.AdjustMinted(sess, depositor, p.SymbolLiquid, balance.Liquid, shares); err != nil {
		return 0, err
	}

	e.pools.Modify(sess, p, func(p *Pool) {
		if side == p.SymbolA {
			p.BalanceA += amount
		} else {
			p.BalanceB += amount
		}
		p.BalanceLiquid += shares
	})
	return shares, nil
}

// quoteWithdraw returns the amount of reserveOut returned for burning
// shares LP shares out of shareSupply total: Br·(1 − (1 − Si/Bs)²)
// (spec §4.6), rearranged to Br·Si·(2·Bs − Si) / Bs².
func quoteWithdraw(shares, shareSupply, reserveOut types.Amount) types.Amount {
	bs := u(shareSupply)
	si := u(shares)
	twoBsMinusSi := new(uint256.Int).Sub(new(uint256.Int).Mul(uint256.NewInt(2), bs), si)
	num := new(uint256.Int).Mul(u(reserveOut), si)
	num.Mul(num, twoBsMinusSi)
	denom := new(uint256.Int).Mul(bs, bs)
	num.Div(num, denom)
	return types.Amount(num.Uint64())
}

// Withdraw burns shares LP shares held by owner, returning Br·(1−(1−Si/Bs)²)
// of each reserve Br, as computed by quoteWithdraw.
func (e *Engine) Withdraw(sess *store.Session, owner types.AccountName, p *Pool, shares types.Amount) (types.Amount, types.Amount, error) {
	const op = "pool.Withdraw"
	if shares <= 0 || shares > p.BalanceLiquid {
		return 0, 0, xerrors.New(op, xerrors.Invalid, "invalid withdrawal share amount")
	}
	outA := quoteWithdraw(shares, p.BalanceLiquid, p.BalanceA)
	outB := quoteWithdraw(shares, p.BalanceLiquid, p.BalanceB)

	if err := e.bal.AdjustMinted(sess, owner, p.SymbolLiquid, balance.Liquid, -shares); err != nil {
		return 0, 0, err
	}
	if err := e.assets.Burn(sess, p.SymbolLiquid, assets.PartitionLiquid, shares); err != nil {
		return 0, 0, err
	}
	if err := e.bal.Adjust(sess, owner, p.SymbolA, balance.Liquid, outA); err != nil {
		return 0, 0, err
	}
	if err := e.assets.AdjustPendingSupply(sess, p.SymbolA, -outA); err != nil {
		return 0, 0, err
	}
	if err := e.bal.Adjust(sess, owner, p.SymbolB, balance.Liquid, outB); err != nil {
		return 0, 0, err
	}
	if err := e.assets.AdjustPendingSupply(sess, p.SymbolB, -outB); err != nil {
		return 0, 0, err
	}

	e.pools.Modify(sess, p, func(p *Pool) {
		p.BalanceA -= outA
		p.BalanceB -= outB
		p.BalanceLiquid -= shares
	})
	return outA, outB, nil
}
