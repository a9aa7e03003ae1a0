package evaluator

import (
	"aurora-chain/chain/market"
	"aurora-chain/chain/store"
	"aurora-chain/chain/types"
	"aurora-chain/chain/xerrors"
)

// LimitOrder rests an offer to sell ForSale of SellSymbol for BuySymbol at
// SellPrice or better, through the full dispatch pipeline (spec §4.8.1/
// §4.8.6): pool crossing, due margin calls, then the opposing book.
type LimitOrder struct {
	Signer         types.AccountName
	Seller         types.AccountName
	OrderID        uint64
	SellSymbol     types.AssetSymbol
	BuySymbol      types.AssetSymbol
	ForSale        types.Amount
	SellPrice      types.Price
	Expiration     types.Time
	FillOrKill     bool
	AllowPoolCross bool
}

func (o LimitOrder) Kind() string               { return "limit_order" }
func (o LimitOrder) Owner() types.AccountName    { return o.Seller }
func (o LimitOrder) Signatory() types.AccountName { return o.Signer }

func (o LimitOrder) apply(ctx *Context, sess *store.Session, now types.Time) error {
	_, err := ctx.Dispatch.SubmitLimitOrder(sess, o.Seller, o.OrderID, o.SellSymbol, o.BuySymbol, o.ForSale, o.SellPrice, o.Expiration, o.FillOrKill, o.AllowPoolCross, now)
	return err
}

// MarginOrder opens a leveraged position, borrowing DebtAmount against the
// credit pool for DebtSymbol's base asset (spec §4.8.2). CollateralSymbol's
// value is priced off the published feed median.
type MarginOrder struct {
	Signer           types.AccountName
	Owner_           types.AccountName
	OrderID          uint64
	DebtSymbol       types.AssetSymbol
	CollateralSymbol types.AssetSymbol
	CollateralAmount types.Amount
	DebtAmount       types.Amount
	PositionSymbol   types.AssetSymbol
	SellPrice        types.Price
}

func (o MarginOrder) Kind() string               { return "margin_order" }
func (o MarginOrder) Owner() types.AccountName    { return o.Owner_ }
func (o MarginOrder) Signatory() types.AccountName { return o.Signer }

func (o MarginOrder) apply(ctx *Context, sess *store.Session, now types.Time) error {
	const op = "evaluator.MarginOrder"
	p, ok := ctx.Credit.Find(o.DebtSymbol)
	if !ok {
		return xerrors.New(op, xerrors.NotFound, "no credit pool for %s", o.DebtSymbol)
	}
	medianPrice, err := ctx.Feeds.Median(o.CollateralSymbol, ctx.FeedLifetime, now)
	if err != nil {
		return err
	}
	_, err = ctx.Margin.Open(sess, p, ctx.Credit, o.Owner_, o.OrderID, o.CollateralSymbol, o.CollateralAmount, o.DebtAmount, o.PositionSymbol, o.SellPrice, medianPrice, now)
	return err
}

// AuctionOrder escrows AmountToSell for uniform-price clearing on the next
// daily tick, never worse than LimitClosePrice (spec §4.8.3).
type AuctionOrder struct {
	Signer          types.AccountName
	Owner_          types.AccountName
	OrderID         uint64
	SellSymbol      types.AssetSymbol
	BuySymbol       types.AssetSymbol
	AmountToSell    types.Amount
	LimitClosePrice types.Price
	Expiration      types.Time
}

func (o AuctionOrder) Kind() string               { return "auction_order" }
func (o AuctionOrder) Owner() types.AccountName    { return o.Owner_ }
func (o AuctionOrder) Signatory() types.AccountName { return o.Signer }

func (o AuctionOrder) apply(ctx *Context, sess *store.Session, now types.Time) error {
	_, err := ctx.Auction.PlaceAuctionOrder(sess, o.Owner_, o.OrderID, o.SellSymbol, o.BuySymbol, o.AmountToSell, o.LimitClosePrice, o.Expiration)
	return err
}

// CallOrder opens a stablecoin-style collateralized debt position against a
// bit-asset (spec §4.8.4). Price is sourced from the published feed median
// for CollateralSymbol.
type CallOrder struct {
	Signer           types.AccountName
	Borrower         types.AccountName
	OrderID          uint64
	DebtSymbol       types.AssetSymbol
	CollateralSymbol types.AssetSymbol
	CollateralAmount types.Amount
	DebtAmount       types.Amount
	TargetRatio      float64
}

func (o CallOrder) Kind() string               { return "call_order" }
func (o CallOrder) Owner() types.AccountName    { return o.Borrower }
func (o CallOrder) Signatory() types.AccountName { return o.Signer }

func (o CallOrder) apply(ctx *Context, sess *store.Session, now types.Time) error {
	price, err := ctx.Feeds.Median(o.CollateralSymbol, ctx.FeedLifetime, now)
	if err != nil {
		return err
	}
	_, err = ctx.Call.Open(sess, o.Borrower, o.OrderID, o.DebtSymbol, o.CollateralSymbol, o.CollateralAmount, o.DebtAmount, o.TargetRatio, price)
	return err
}

// OptionOrder writes (issues) an option position against a listed strike on
// the underlying/quote chain (spec §4.8.5).
type OptionOrder struct {
	Signer           types.AccountName
	Writer           types.AccountName
	OrderID          uint64
	Underlying       types.AssetSymbol
	Quote            types.AssetSymbol
	Strike           market.Strike
	Units            types.Amount
	UnderlyingAmount types.Amount
}

func (o OptionOrder) Kind() string               { return "option_order" }
func (o OptionOrder) Owner() types.AccountName    { return o.Writer }
func (o OptionOrder) Signatory() types.AccountName { return o.Signer }

func (o OptionOrder) apply(ctx *Context, sess *store.Session, now types.Time) error {
	chain := ctx.Option.Chain(o.Underlying, o.Quote, market.DefaultOptionParams)
	_, err := ctx.Option.IssueOption(sess, o.Writer, o.OrderID, chain, o.Strike, o.Units, o.UnderlyingAmount)
	return err
}

// OrderCancel withdraws a resting limit or auction order, the natural
// counterpart the minimum operation list omits. AuctionBook set selects the
// auction book; otherwise the order is cancelled against the limit book.
type OrderCancel struct {
	Signer      types.AccountName
	Owner_      types.AccountName
	SellSymbol  types.AssetSymbol
	BuySymbol   types.AssetSymbol
	OrderID     uint64
	AuctionBook bool
}

func (o OrderCancel) Kind() string               { return "order_cancel" }
func (o OrderCancel) Owner() types.AccountName    { return o.Owner_ }
func (o OrderCancel) Signatory() types.AccountName { return o.Signer }

func (o OrderCancel) apply(ctx *Context, sess *store.Session, now types.Time) error {
	const op = "evaluator.OrderCancel"
	if o.AuctionBook {
		a, ok := ctx.Auction.FindAuctionOrder(o.SellSymbol, o.BuySymbol, o.OrderID)
		if !ok {
			return xerrors.New(op, xerrors.NotFound, "auction order %d not found", o.OrderID)
		}
		if a.Owner != o.Owner_ {
			return xerrors.New(op, xerrors.Unauthorized, "%s does not own auction order %d", o.Owner_, o.OrderID)
		}
		return ctx.Auction.CancelAuctionOrder(sess, o.SellSymbol, o.BuySymbol, o.OrderID)
	}
	l, ok := ctx.Limit.FindOrder(o.SellSymbol, o.BuySymbol, o.OrderID)
	if !ok {
		return xerrors.New(op, xerrors.NotFound, "limit order %d not found", o.OrderID)
	}
	if l.Seller != o.Owner_ {
		return xerrors.New(op, xerrors.Unauthorized, "%s does not own limit order %d", o.Owner_, o.OrderID)
	}
	return ctx.Limit.CancelLimitOrder(sess, o.SellSymbol, o.BuySymbol, o.OrderID)
}
