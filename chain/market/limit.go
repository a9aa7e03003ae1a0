// Package market implements the order book and matching engine (spec C8):
// limit, margin, auction, call, and option orders, plus the dispatcher that
// matches a newly inserted order against the opposing book, margin calls,
// and the liquidity pool. Grounded on chain/store's SortedIndex (best-price-
// first scan) and chain/pool's reserve-engine shape for the orders that
// hold collateral/debt balances of their own.
package market

import (
	"aurora-chain/chain/assets"
	"aurora-chain/chain/balance"
	"aurora-chain/chain/store"
	"aurora-chain/chain/types"
	"aurora-chain/chain/xerrors"
)

// LimitOrder is a resting offer to sell ForSale of SellSymbol at or above
// SellPrice, denominated as (SellSymbol amount, BuySymbol amount) (spec
// §3.11).
type LimitOrder struct {
	ID store.ID

	Seller     types.AccountName
	OrderID    uint64
	SellSymbol types.AssetSymbol
	BuySymbol  types.AssetSymbol
	ForSale    types.Amount
	SellPrice  types.Price
	Expiration types.Time
}

func (o *LimitOrder) GetID() store.ID   { return o.ID }
func (o *LimitOrder) SetID(id store.ID) { o.ID = id }

type bookKey struct{ sell, buy types.AssetSymbol }

type sortKey struct {
	price   types.Price
	orderID uint64
}

func lessKey(a, b sortKey) bool {
	if !a.price.Equal(b.price) {
		return a.price.Less(b.price)
	}
	return a.orderID < b.orderID
}

// book is one directed (sell X for Y) side of the market, sorted
// best-price-first.
type book struct {
	orders  *store.Table[LimitOrder, *LimitOrder]
	byOrder *store.UniqueIndex[LimitOrder, uint64]
	byKey   *store.SortedIndex[LimitOrder, sortKey]
}

func newBook() *book {
	b := &book{orders: store.NewTable[LimitOrder]("limit_order")}
	b.byOrder = store.AddUniqueIndex(b.orders, func(o *LimitOrder) uint64 { return o.OrderID })
	b.byKey = store.AddSortedIndex(b.orders, func(o *LimitOrder) sortKey {
		return sortKey{o.SellPrice, o.OrderID}
	}, lessKey)
	return b
}

// Engine owns every directed order book.
type Engine struct {
	assets *assets.Registry
	bal    *balance.Engine
	books  map[bookKey]*book
}

// NewEngine creates an empty order-matching engine.
func NewEngine(reg *assets.Registry, bal *balance.Engine) *Engine {
	return &Engine{assets: reg, bal: bal, books: make(map[bookKey]*book)}
}

func (e *Engine) getOrCreateBook(sell, buy types.AssetSymbol) *book {
	k := bookKey{sell, buy}
	if b, ok := e.books[k]; ok {
		return b
	}
	b := newBook()
	e.books[k] = b
	return b
}

func (e *Engine) bookFor(sell, buy types.AssetSymbol) (*book, bool) {
	b, ok := e.books[bookKey{sell, buy}]
	return b, ok
}

// OpenOrders reports the total number of resting limit orders across every
// directed book, for observability.
func (e *Engine) OpenOrders() int {
	n := 0
	for _, b := range e.books {
		n += b.orders.Len()
	}
	return n
}

// FindOrder looks up a resting order by the (sellSymbol, buySymbol) book it
// rests in and its order_id.
func (e *Engine) FindOrder(sellSymbol, buySymbol types.AssetSymbol, orderID uint64) (*LimitOrder, bool) {
	b, ok := e.bookFor(sellSymbol, buySymbol)
	if !ok {
		return nil, false
	}
	return b.byOrder.Find(orderID)
}

// crosses reports whether resting order b (selling Y for X) will fill at
// least part of incoming order a (selling X for Y), i.e. a's asking price
// for X (in Y) is at or below b's implied bid for X (spec §4.8.1).
func crosses(a, b *LimitOrder) bool {
	bid := b.SellPrice.Invert()
	return a.SellPrice.Less(bid) || a.SellPrice.Equal(bid)
}

// PlaceLimitOrder inserts a new sell order, matching it against the
// opposing book best-price-first before resting any unfilled remainder
// (spec §4.8.1). fillOrKill rejects the order outright unless it fully
// fills.
func (e *Engine) PlaceLimitOrder(sess *store.Session, seller types.AccountName, orderID uint64, sellSymbol, buySymbol types.AssetSymbol, forSale types.Amount, price types.Price, expiration types.Time, fillOrKill bool) (*LimitOrder, error) {
	const op = "market.PlaceLimitOrder"
	if forSale <= 0 {
		return nil, xerrors.New(op, xerrors.Invalid, "for-sale amount must be positive")
	}
	if err := e.bal.Adjust(sess, seller, sellSymbol, balance.Liquid, -forSale); err != nil {
		return nil, err
	}
	if err := e.assets.AdjustPendingSupply(sess, sellSymbol, forSale); err != nil {
		return nil, err
	}

	incoming := &LimitOrder{
		Seller: seller, OrderID: orderID,
		SellSymbol: sellSymbol, BuySymbol: buySymbol,
		ForSale: forSale, SellPrice: price, Expiration: expiration,
	}

	remaining, err := e.matchAgainstBook(sess, incoming)
	if err != nil {
		return nil, err
	}
	if fillOrKill && remaining > 0 {
		if err := e.assets.AdjustPendingSupply(sess, sellSymbol, -remaining); err != nil {
			return nil, err
		}
		if err := e.bal.Adjust(sess, seller, sellSymbol, balance.Liquid, remaining); err != nil {
			return nil, err
		}
		return nil, xerrors.New(op, xerrors.Invalid, "fill-or-kill order did not fully fill")
	}
	if remaining == 0 {
		return nil, nil
	}

	b := e.getOrCreateBook(sellSymbol, buySymbol)
	rested := b.orders.Create(sess, func(o *LimitOrder) {
		*o = *incoming
		o.ForSale = remaining
	})
	return rested, nil
}

// matchAgainstBook repeatedly crosses incoming against the best opposite
// order until either side is exhausted or prices no longer cross, settling
// each fill at the resting order's price, and returns incoming's
// unfilled remainder.
func (e *Engine) matchAgainstBook(sess *store.Session, incoming *LimitOrder) (types.Amount, error) {
	opposite, ok := e.bookFor(incoming.BuySymbol, incoming.SellSymbol)
	if !ok {
		return incoming.ForSale, nil
	}

	for incoming.ForSale > 0 {
		resting, ok := opposite.byKey.Best()
		if !ok || !crosses(incoming, resting) {
			break
		}

		maxX, err := resting.SellPrice.Mul(types.NewAsset(resting.ForSale, resting.SellSymbol))
		if err != nil {
			return 0, err
		}
		fillX := incoming.ForSale
		if maxX.Amount < fillX {
			fillX = maxX.Amount
		}
		if fillX <= 0 {
			break
		}
		fillY, err := resting.SellPrice.Invert().Mul(types.NewAsset(fillX, incoming.SellSymbol))
		if err != nil {
			return 0, err
		}

		if err := e.settleFill(sess, incoming.Seller, resting, fillX, fillY.Amount); err != nil {
			return 0, err
		}

		incoming.ForSale -= fillX
		remaining := resting.ForSale - fillY.Amount
		if remaining <= 0 {
			opposite.orders.Remove(sess, resting)
		} else {
			opposite.orders.Modify(sess, resting, func(o *LimitOrder) { o.ForSale = remaining })
		}
	}
	return incoming.ForSale, nil
}

// settleFill pays the incoming seller fillY of resting's sell asset and
// resting's owner fillX of incoming's sell asset, both already escrowed
// into pending_supply at order placement.
func (e *Engine) settleFill(sess *store.Session, incomingSeller types.AccountName, resting *LimitOrder, fillX, fillY types.Amount) error {
	if err := e.bal.Adjust(sess, incomingSeller, resting.SellSymbol, balance.Liquid, fillY); err != nil {
		return err
	}
	if err := e.assets.AdjustPendingSupply(sess, resting.SellSymbol, -fillY); err != nil {
		return err
	}
	if err := e.bal.Adjust(sess, resting.Seller, resting.BuySymbol, balance.Liquid, fillX); err != nil {
		return err
	}
	return e.assets.AdjustPendingSupply(sess, resting.BuySymbol, -fillX)
}

// CancelLimitOrder removes a resting order, returning its unfilled amount
// to the seller.
func (e *Engine) CancelLimitOrder(sess *store.Session, sellSymbol, buySymbol types.AssetSymbol, orderID uint64) error {
	const op = "market.CancelLimitOrder"
	b, ok := e.bookFor(sellSymbol, buySymbol)
	if !ok {
		return xerrors.New(op, xerrors.NotFound, "no order book for %s/%s", sellSymbol, buySymbol)
	}
	o, ok := b.byOrder.Find(orderID)
	if !ok {
		return xerrors.New(op, xerrors.NotFound, "order %d not found", orderID)
	}
	if err := e.assets.AdjustPendingSupply(sess, sellSymbol, -o.ForSale); err != nil {
		return err
	}
	if err := e.bal.Adjust(sess, o.Seller, sellSymbol, balance.Liquid, o.ForSale); err != nil {
		return err
	}
	b.orders.Remove(sess, o)
	return nil
}

// ExpireLimitOrders removes every order past its expiration, refunding the
// unfilled remainder.
func (e *Engine) ExpireLimitOrders(sess *store.Session, now types.Time) error {
	for k, b := range e.books {
		var expired []*LimitOrder
		b.orders.Range(func(o *LimitOrder) bool {
			if o.Expiration != types.InfiniteTime && o.Expiration.Before(now) {
				expired = append(expired, o)
			}
			return true
		})
		for _, o := range expired {
			if err := e.assets.AdjustPendingSupply(sess, k.sell, -o.ForSale); err != nil {
				return err
			}
			if err := e.bal.Adjust(sess, o.Seller, k.sell, balance.Liquid, o.ForSale); err != nil {
				return err
			}
			b.orders.Remove(sess, o)
		}
	}
	return nil
}
