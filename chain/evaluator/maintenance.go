package evaluator

import (
	"aurora-chain/chain/credit"
	"aurora-chain/chain/store"
	"aurora-chain/chain/types"
)

// RunMaintenance runs the fixed per-block upkeep sweep in the declared order
// (spec §5: "expired savings withdrawals, expired delegations, recurring
// transfers due, credit interest accrual, liquidation sweep, escrow dispute
// resolutions, pool price sampling, option strike roll"), inside the
// caller's undo session.
func RunMaintenance(ctx *Context, sess *store.Session, now types.Time) error {
	if err := ctx.Balance.ProcessSavingsWithdrawals(sess, now); err != nil {
		return err
	}
	if err := ctx.Balance.ProcessDelegationExpirations(sess, now); err != nil {
		return err
	}

	ctx.Requests.ExpireRequests(sess, now)
	ctx.RecurringRequest.ExpireRecurringRequests(sess, now)
	if err := ctx.Transfer.ProcessRecurringTransfers(sess, ctx.Recurring, now); err != nil {
		return err
	}

	if err := accrueCreditInterest(ctx, sess, now); err != nil {
		return err
	}
	if err := sweepLiquidations(ctx, sess, now); err != nil {
		return err
	}

	if err := ctx.Escrow.ExpireUnaccepted(sess, now); err != nil {
		return err
	}
	for _, x := range ctx.Escrow.DueDisputes(now) {
		if err := ctx.Escrow.ResolveDispute(sess, x, now); err != nil {
			return err
		}
	}

	ctx.Pools.SampleAllDue(sess, now)

	rollOptionChains(ctx, sess, now)
	return nil
}

// accrueCreditInterest recomputes every credit pool's utilization-scaled
// rate, then applies it to every open loan drawn against that pool (spec
// §4.7).
func accrueCreditInterest(ctx *Context, sess *store.Session, now types.Time) error {
	var pools []*credit.Pool
	ctx.Credit.Range(func(p *credit.Pool) bool {
		pools = append(pools, p)
		return true
	})
	rates := make(map[types.AssetSymbol]float64, len(pools))
	for _, p := range pools {
		rates[p.BaseSymbol] = ctx.Credit.AccrueInterest(sess, p)
	}

	var loans []*credit.Loan
	ctx.Loans.Range(func(l *credit.Loan) bool {
		loans = append(loans, l)
		return true
	})
	for _, l := range loans {
		rate, ok := rates[l.BaseSymbol]
		if !ok {
			continue
		}
		ctx.Loans.AccrueLoanInterest(sess, l, rate, now)
	}
	return nil
}

// sweepLiquidations force-closes every credit-pool loan that has fallen
// underwater at the loan's collateral asset's published median price (spec
// §3.10, §5's "liquidation sweep").
func sweepLiquidations(ctx *Context, sess *store.Session, now types.Time) error {
	var loans []*credit.Loan
	ctx.Loans.Range(func(l *credit.Loan) bool {
		loans = append(loans, l)
		return true
	})
	for _, l := range loans {
		p, ok := ctx.Credit.Find(l.BaseSymbol)
		if !ok {
			continue
		}
		price, err := ctx.Feeds.Median(l.CollateralSymbol, ctx.FeedLifetime, now)
		if err != nil {
			continue
		}
		if !l.IsUnderwater(price) {
			continue
		}
		if err := ctx.Loans.Liquidate(sess, ctx.Credit, p, l, price); err != nil {
			return err
		}
	}
	return nil
}

// rollOptionChains rolls every configured option chain sheet against its
// underlying's published median price, priced in the chain's quote asset.
// Chains whose median is unavailable keep their current listing unchanged.
func rollOptionChains(ctx *Context, sess *store.Session, now types.Time) {
	for _, spec := range ctx.OptionChains {
		mid, err := ctx.Feeds.Median(spec.Underlying, ctx.FeedLifetime, now)
		if err != nil {
			continue
		}
		ctx.Option.RollChain(spec.Underlying, spec.Quote, spec.Params, now, mid, spec.Multiple)
	}
}
