package market

import (
	"aurora-chain/chain/assets"
	"aurora-chain/chain/balance"
	"aurora-chain/chain/store"
	"aurora-chain/chain/types"
	"aurora-chain/chain/xerrors"
)

// AuctionOrder escrows AmountToSell of SellSymbol, to be cleared once per
// daily tick at a single uniform price against the opposing book, never
// worse than LimitClosePrice (a price of SellSymbol denominated in
// BuySymbol) (spec §3.11, §4.8.3).
type AuctionOrder struct {
	ID store.ID

	Owner           types.AccountName
	OrderID         uint64
	SellSymbol      types.AssetSymbol
	BuySymbol       types.AssetSymbol
	AmountToSell    types.Amount
	LimitClosePrice types.Price
	Expiration      types.Time
}

func (o *AuctionOrder) GetID() store.ID   { return o.ID }
func (o *AuctionOrder) SetID(id store.ID) { o.ID = id }

type auctionBook struct {
	orders  *store.Table[AuctionOrder, *AuctionOrder]
	byOrder *store.UniqueIndex[AuctionOrder, uint64]
}

func newAuctionBook() *auctionBook {
	b := &auctionBook{orders: store.NewTable[AuctionOrder]("auction_order")}
	b.byOrder = store.AddUniqueIndex(b.orders, func(o *AuctionOrder) uint64 { return o.OrderID })
	return b
}

// AuctionEngine owns every directed auction book, one per (sell, buy)
// symbol pair, cleared once a day by ClearAuctions.
type AuctionEngine struct {
	assets *assets.Registry
	bal    *balance.Engine
	books  map[bookKey]*auctionBook
}

// NewAuctionEngine creates an empty auction engine.
func NewAuctionEngine(reg *assets.Registry, bal *balance.Engine) *AuctionEngine {
	return &AuctionEngine{assets: reg, bal: bal, books: make(map[bookKey]*auctionBook)}
}

func (e *AuctionEngine) getOrCreateBook(sell, buy types.AssetSymbol) *auctionBook {
	k := bookKey{sell, buy}
	if b, ok := e.books[k]; ok {
		return b
	}
	b := newAuctionBook()
	e.books[k] = b
	return b
}

// PlaceAuctionOrder escrows amountToSell and rests it until the next daily
// clearing tick.
func (e *AuctionEngine) PlaceAuctionOrder(sess *store.Session, owner types.AccountName, orderID uint64, sellSymbol, buySymbol types.AssetSymbol, amountToSell types.Amount, limitClosePrice types.Price, expiration types.Time) (*AuctionOrder, error) {
	const op = "market.PlaceAuctionOrder"
	if amountToSell <= 0 {
		return nil, xerrors.New(op, xerrors.Invalid, "amount to sell must be positive")
	}
	if err := e.bal.Adjust(sess, owner, sellSymbol, balance.Liquid, -amountToSell); err != nil {
		return nil, err
	}
	if err := e.assets.AdjustPendingSupply(sess, sellSymbol, amountToSell); err != nil {
		return nil, err
	}
	b := e.getOrCreateBook(sellSymbol, buySymbol)
	return b.orders.Create(sess, func(o *AuctionOrder) {
		o.Owner = owner
		o.OrderID = orderID
		o.SellSymbol = sellSymbol
		o.BuySymbol = buySymbol
		o.AmountToSell = amountToSell
		o.LimitClosePrice = limitClosePrice
		o.Expiration = expiration
	}), nil
}

// FindAuctionOrder looks up a resting auction order by the book it rests in
// and its order_id.
func (e *AuctionEngine) FindAuctionOrder(sellSymbol, buySymbol types.AssetSymbol, orderID uint64) (*AuctionOrder, bool) {
	b, ok := e.books[bookKey{sellSymbol, buySymbol}]
	if !ok {
		return nil, false
	}
	return b.byOrder.Find(orderID)
}

// CancelAuctionOrder removes a resting order, refunding its escrow.
func (e *AuctionEngine) CancelAuctionOrder(sess *store.Session, sellSymbol, buySymbol types.AssetSymbol, orderID uint64) error {
	const op = "market.CancelAuctionOrder"
	b, ok := e.books[bookKey{sellSymbol, buySymbol}]
	if !ok {
		return xerrors.New(op, xerrors.NotFound, "no auction book for %s/%s", sellSymbol, buySymbol)
	}
	o, ok := b.byOrder.Find(orderID)
	if !ok {
		return xerrors.New(op, xerrors.NotFound, "order %d not found", orderID)
	}
	if err := e.assets.AdjustPendingSupply(sess, sellSymbol, -o.AmountToSell); err != nil {
		return err
	}
	if err := e.bal.Adjust(sess, o.Owner, sellSymbol, balance.Liquid, o.AmountToSell); err != nil {
		return err
	}
	b.orders.Remove(sess, o)
	return nil
}

// clearPair clears one (x,y) pair's two directed books by the intersection
// of their cumulative volumes: the single price p (x in y) that exactly
// balances total sell volume in x against total buy volume in y, p =
// Σbuy_y / Σsell_x, iteratively dropping any order whose own
// LimitClosePrice the candidate price would violate and recomputing until
// the surviving set is stable (spec §4.8.3).
func (e *AuctionEngine) clearPair(sess *store.Session, x, y types.AssetSymbol) error {
	sellBook, hasSell := e.books[bookKey{x, y}]
	buyBook, hasBuy := e.books[bookKey{y, x}]
	if !hasSell || !hasBuy {
		return nil
	}

	var sellers, buyers []*AuctionOrder
	sellBook.orders.Range(func(o *AuctionOrder) bool { sellers = append(sellers, o); return true })
	buyBook.orders.Range(func(o *AuctionOrder) bool { buyers = append(buyers, o); return true })

	for {
		if len(sellers) == 0 || len(buyers) == 0 {
			return nil
		}
		var sumX, sumY types.Amount
		for _, s := range sellers {
			sumX += s.AmountToSell
		}
		for _, b := range buyers {
			sumY += b.AmountToSell
		}
		if sumX <= 0 || sumY <= 0 {
			return nil
		}
		clearXinY := types.Price{Base: types.NewAsset(sumX, x), Quote: types.NewAsset(sumY, y)}
		clearYinX := clearXinY.Invert()

		var survivingSellers, survivingBuyers []*AuctionOrder
		for _, s := range sellers {
			if s.LimitClosePrice.IsNull() || !clearXinY.Less(s.LimitClosePrice) {
				survivingSellers = append(survivingSellers, s)
			}
		}
		for _, b := range buyers {
			if b.LimitClosePrice.IsNull() || !clearYinX.Less(b.LimitClosePrice) {
				survivingBuyers = append(survivingBuyers, b)
			}
		}
		if len(survivingSellers) == len(sellers) && len(survivingBuyers) == len(buyers) {
			for _, s := range sellers {
				if err := e.settleAuctionFill(sess, s, x, y, clearXinY); err != nil {
					return err
				}
			}
			for _, b := range buyers {
				if err := e.settleAuctionFill(sess, b, y, x, clearYinX); err != nil {
					return err
				}
			}
			return nil
		}
		sellers, buyers = survivingSellers, survivingBuyers
	}
}

// settleAuctionFill fully fills order (which escrowed AmountToSell of
// sellSymbol) at clearPrice, a price of sellSymbol denominated in
// buySymbol, crediting the owner's liquid balance with the proceeds and
// removing the order.
func (e *AuctionEngine) settleAuctionFill(sess *store.Session, o *AuctionOrder, sellSymbol, buySymbol types.AssetSymbol, clearPrice types.Price) error {
	proceeds, err := clearPrice.Mul(types.NewAsset(o.AmountToSell, sellSymbol))
	if err != nil {
		return err
	}
	if err := e.assets.AdjustPendingSupply(sess, sellSymbol, -o.AmountToSell); err != nil {
		return err
	}
	if err := e.bal.Adjust(sess, o.Owner, buySymbol, balance.Liquid, proceeds.Amount); err != nil {
		return err
	}
	b := e.books[bookKey{sellSymbol, buySymbol}]
	b.orders.Remove(sess, o)
	return nil
}

// ClearAuctions runs the daily clearing tick across every distinct symbol
// pair with resting orders on both sides.
func (e *AuctionEngine) ClearAuctions(sess *store.Session) error {
	seen := make(map[bookKey]bool)
	for k := range e.books {
		reverse := bookKey{k.buy, k.sell}
		if seen[k] || seen[reverse] {
			continue
		}
		seen[k] = true
		if err := e.clearPair(sess, k.sell, k.buy); err != nil {
			return err
		}
	}
	return nil
}

// ExpireAuctionOrders removes every order past its expiration, refunding
// the unfilled escrow.
func (e *AuctionEngine) ExpireAuctionOrders(sess *store.Session, now types.Time) error {
	for k, b := range e.books {
		var expired []*AuctionOrder
		b.orders.Range(func(o *AuctionOrder) bool {
			if o.Expiration != types.InfiniteTime && o.Expiration.Before(now) {
				expired = append(expired, o)
			}
			return true
		})
		for _, o := range expired {
			if err := e.assets.AdjustPendingSupply(sess, k.sell, -o.AmountToSell); err != nil {
				return err
			}
			if err := e.bal.Adjust(sess, o.Owner, k.sell, balance.Liquid, o.AmountToSell); err != nil {
				return err
			}
			b.orders.Remove(sess, o)
		}
	}
	return nil
}
