package market

import (
	"aurora-chain/chain/feed"
	"aurora-chain/chain/pool"
	"aurora-chain/chain/store"
	"aurora-chain/chain/types"
)

// Dispatcher is the top-level matching entry point (spec §4.8.6): a newly
// submitted limit order (a) may cross against the liquidity pool up front
// when the pool's spot already beats the order's limit and the order
// permits it, (b) triggers any bit-asset margin calls on either side of the
// pair, then (c) matches whatever remains against the opposing limit book
// best-first. Every step runs inside the caller's undo session, so a
// failure anywhere rolls the whole submission back.
type Dispatcher struct {
	Limit    *Engine
	Calls    *CallEngine
	Pools    *pool.Engine
	Feeds    *feed.Publishers
	Lifetime int64
}

// NewDispatcher wires the three matching surfaces together.
func NewDispatcher(limit *Engine, calls *CallEngine, pools *pool.Engine, feeds *feed.Publishers, feedLifetime int64) *Dispatcher {
	return &Dispatcher{Limit: limit, Calls: calls, Pools: pools, Feeds: feeds, Lifetime: feedLifetime}
}

// settleDueMarginCalls flags and closes every call order on symbol whose
// ratio has fallen to or below maintenance, at the live publisher median.
func (d *Dispatcher) settleDueMarginCalls(sess *store.Session, symbol types.AssetSymbol, now types.Time) {
	if d.Calls == nil || d.Feeds == nil {
		return
	}
	due, err := d.Calls.CheckMarginCalls(sess, symbol, d.Feeds, d.Lifetime, now)
	if err != nil {
		return
	}
	for _, o := range due {
		settlementPrice, err := d.Feeds.Median(o.DebtSymbol, d.Lifetime, now)
		if err != nil {
			continue
		}
		_ = d.Calls.SettleMarginCall(sess, o, settlementPrice)
	}
}

// SubmitLimitOrder is the full §4.8.6 pipeline for a limit order.
// allowPoolCross authorizes step (a); when the pool does not exist or does
// not beat the order's own limit, the full amount instead matches the
// limit book (and rests any unfilled remainder) exactly as PlaceLimitOrder
// does on its own.
func (d *Dispatcher) SubmitLimitOrder(sess *store.Session, seller types.AccountName, orderID uint64, sellSymbol, buySymbol types.AssetSymbol, forSale types.Amount, price types.Price, expiration types.Time, fillOrKill, allowPoolCross bool, now types.Time) (*LimitOrder, error) {
	d.settleDueMarginCalls(sess, sellSymbol, now)
	d.settleDueMarginCalls(sess, buySymbol, now)

	remaining := forSale
	if allowPoolCross && d.Pools != nil {
		if lp, ok := d.Pools.Find(sellSymbol, buySymbol); ok {
			poolSellPrice := poolPriceOf(lp, sellSymbol)
			if !poolSellPrice.IsNull() && !poolSellPrice.Less(price) {
				out, err := d.Pools.ExchangeExactInput(sess, seller, lp, sellSymbol, remaining, 0)
				if err == nil {
					_ = out
					remaining = 0
				}
			}
		}
	}
	if remaining <= 0 {
		return nil, nil
	}

	return d.Limit.PlaceLimitOrder(sess, seller, orderID, sellSymbol, buySymbol, remaining, price, expiration, fillOrKill)
}

// poolPriceOf returns the pool's current spot price of sellSymbol
// denominated in its counterpart side, or the null price if sellSymbol is
// not one of the pool's two sides.
func poolPriceOf(p *pool.Pool, sellSymbol types.AssetSymbol) types.Price {
	spot := p.SpotPrice()
	switch sellSymbol {
	case spot.Base.Symbol:
		return spot
	case spot.Quote.Symbol:
		return spot.Invert()
	default:
		return types.NullPrice
	}
}
