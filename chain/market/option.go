package market

import (
	"time"

	"aurora-chain/chain/assets"
	"aurora-chain/chain/balance"
	"aurora-chain/chain/store"
	"aurora-chain/chain/types"
	"aurora-chain/chain/xerrors"
)

// StrikeKind distinguishes a call strike (right to buy) from a put strike
// (right to sell).
type StrikeKind uint8

const (
	Call StrikeKind = iota
	Put
)

// monthPeriod approximates the "listed month" roll cadence (spec §4.8.5).
const monthPeriod = 30 * 24 * time.Hour

// Strike is the quadruple identifying one option asset (spec §3.11,
// Glossary "Strike descriptor"): strike price, call/put, contract
// multiple, and expiration date.
type Strike struct {
	Price      types.Price
	Kind       StrikeKind
	Multiple   int64
	Expiration types.Time
}

// OptionParams shapes the rolling chain sheet (spec §4.8.5).
type OptionParams struct {
	NumStrikes         int     // chain lists 2*NumStrikes+1 strikes per listed month
	StrikeWidthPercent float64 // spacing between adjacent strikes, e.g. 0.05
}

// DefaultOptionParams mirrors a representative chain shape.
var DefaultOptionParams = OptionParams{NumStrikes: 5, StrikeWidthPercent: 0.05}

// OptionChain is one underlying/quote pair's rolling twelve-month strike
// sheet.
type OptionChain struct {
	Underlying types.AssetSymbol
	Quote      types.AssetSymbol
	Params     OptionParams

	ListedMonths []types.Time // ascending expiration dates currently listed
	Strikes      []Strike     // every currently-listed, unexpired strike
}

// NewOptionChain creates an empty chain sheet; call Roll to populate it.
func NewOptionChain(underlying, quote types.AssetSymbol, params OptionParams) *OptionChain {
	return &OptionChain{Underlying: underlying, Quote: quote, Params: params}
}

// strikeLadder builds the 2*NumStrikes+1 strikes for one listed month,
// geometrically spaced around mid by StrikeWidthPercent (spec §4.8.5).
func strikeLadder(mid types.Price, params OptionParams, kind StrikeKind, multiple int64, expiration types.Time) []Strike {
	out := make([]Strike, 0, 2*params.NumStrikes+1)
	for i := -params.NumStrikes; i <= params.NumStrikes; i++ {
		factor := 1 + float64(i)*params.StrikeWidthPercent
		if factor <= 0 {
			continue
		}
		quoteAmt := types.Amount(float64(mid.Quote.Amount) * factor)
		out = append(out, Strike{
			Price:      types.Price{Base: mid.Base, Quote: types.NewAsset(quoteAmt, mid.Quote.Symbol)},
			Kind:       kind,
			Multiple:   multiple,
			Expiration: expiration,
		})
	}
	return out
}

// Roll drops every expired month/strike and lists new far months (each a
// full call+put ladder around mid) until twelve forward months are listed
// (spec §4.8.5: "on every month's roll, expired strikes are removed and a
// new far-month is added").
func (c *OptionChain) Roll(now types.Time, mid types.Price, multiple int64) {
	var liveMonths []types.Time
	for _, m := range c.ListedMonths {
		if !m.Before(now) {
			liveMonths = append(liveMonths, m)
		}
	}
	var liveStrikes []Strike
	for _, s := range c.Strikes {
		if !s.Expiration.Before(now) {
			liveStrikes = append(liveStrikes, s)
		}
	}
	c.ListedMonths = liveMonths
	c.Strikes = liveStrikes

	const forwardMonths = 12
	for len(c.ListedMonths) < forwardMonths {
		var next types.Time
		if len(c.ListedMonths) == 0 {
			next = now.Add(monthPeriod)
		} else {
			next = c.ListedMonths[len(c.ListedMonths)-1].Add(monthPeriod)
		}
		c.ListedMonths = append(c.ListedMonths, next)
		c.Strikes = append(c.Strikes, strikeLadder(mid, c.Params, Call, multiple, next)...)
		c.Strikes = append(c.Strikes, strikeLadder(mid, c.Params, Put, multiple, next)...)
	}
}

// OptionPosition is one issued option: underlying_amount locked as backing,
// the option_position units of the option asset delivered to the owner,
// and exercise_amount owed on exercise (spec §3.11).
type OptionPosition struct {
	ID store.ID

	Owner            types.AccountName
	OrderID          uint64
	UnderlyingAmount types.Amount
	ExerciseAmount   types.Amount
	Units            types.Amount
	Strike           Strike
	UnderlyingSymbol types.AssetSymbol
	QuoteSymbol      types.AssetSymbol
}

func (p *OptionPosition) GetID() store.ID   { return p.ID }
func (p *OptionPosition) SetID(id store.ID) { p.ID = id }

type optionOrderKey struct {
	owner   types.AccountName
	orderID uint64
}

// OptionEngine issues and exercises option positions against a registry of
// chain sheets, one per underlying/quote pair.
type OptionEngine struct {
	assets *assets.Registry
	bal    *balance.Engine
	chains map[bookKey]*OptionChain

	positions *store.Table[OptionPosition, *OptionPosition]
	byOrder   *store.UniqueIndex[OptionPosition, optionOrderKey]
}

// NewOptionEngine creates an empty option engine.
func NewOptionEngine(reg *assets.Registry, bal *balance.Engine) *OptionEngine {
	e := &OptionEngine{assets: reg, bal: bal, chains: make(map[bookKey]*OptionChain)}
	e.positions = store.NewTable[OptionPosition]("option_position")
	e.byOrder = store.AddUniqueIndex(e.positions, func(p *OptionPosition) optionOrderKey {
		return optionOrderKey{p.Owner, p.OrderID}
	})
	return e
}

// Chain returns (creating if needed) the chain sheet for an underlying/
// quote pair.
func (e *OptionEngine) Chain(underlying, quote types.AssetSymbol, params OptionParams) *OptionChain {
	k := bookKey{underlying, quote}
	if c, ok := e.chains[k]; ok {
		return c
	}
	c := NewOptionChain(underlying, quote, params)
	e.chains[k] = c
	return c
}

// RollAll rolls every registered chain sheet against its pool's current mid
// price (spec §5's fixed maintenance order: "option strike roll").
func (e *OptionEngine) RollAll(now types.Time, midPrices map[bookKey]types.Price, multiple int64) {
	for k, c := range e.chains {
		mid, ok := midPrices[k]
		if !ok {
			continue
		}
		c.Roll(now, mid, multiple)
	}
}

// RollChain rolls a single underlying/quote chain sheet, creating it first
// if it has never been listed. Exposed for callers outside the package that
// track their own set of underlying/quote pairs rather than building the
// unexported bookKey map RollAll takes.
func (e *OptionEngine) RollChain(underlying, quote types.AssetSymbol, params OptionParams, now types.Time, mid types.Price, multiple int64) {
	c := e.Chain(underlying, quote, params)
	c.Roll(now, mid, multiple)
}

// IssueOption locks underlyingAmount of the chain's underlying asset from
// writer as backing and delivers units of option exposure at strike (spec
// §4.8.5, invariant "option backing").
func (e *OptionEngine) IssueOption(sess *store.Session, writer types.AccountName, orderID uint64, chain *OptionChain, strike Strike, units, underlyingAmount types.Amount) (*OptionPosition, error) {
	const op = "market.IssueOption"
	if units <= 0 || underlyingAmount <= 0 {
		return nil, xerrors.New(op, xerrors.Invalid, "units and underlying amount must be positive")
	}
	found := false
	for _, s := range chain.Strikes {
		if s == strike {
			found = true
			break
		}
	}
	if !found {
		return nil, xerrors.New(op, xerrors.NotFound, "strike is not listed on this chain")
	}

	exercise, err := strike.Price.Mul(types.NewAsset(units*strike.Multiple, chain.Underlying))
	if err != nil {
		return nil, err
	}

	if err := e.bal.Adjust(sess, writer, chain.Underlying, balance.Liquid, -underlyingAmount); err != nil {
		return nil, err
	}
	if err := e.assets.AdjustPendingSupply(sess, chain.Underlying, underlyingAmount); err != nil {
		return nil, err
	}

	return e.positions.Create(sess, func(p *OptionPosition) {
		p.Owner = writer
		p.OrderID = orderID
		p.UnderlyingAmount = underlyingAmount
		p.ExerciseAmount = exercise.Amount
		p.Units = units
		p.Strike = strike
		p.UnderlyingSymbol = chain.Underlying
		p.QuoteSymbol = chain.Quote
	}), nil
}

// Exercise consumes a position before its strike's expiration, delivering
// the strike's exercise amount to the holder against the locked underlying,
// and returning any unconsumed underlying to the writer (spec §4.8.5).
func (e *OptionEngine) Exercise(sess *store.Session, p *OptionPosition, now types.Time) error {
	const op = "market.Exercise"
	if !now.Before(p.Strike.Expiration) {
		return xerrors.New(op, xerrors.Expired, "option expired at %s", p.Strike.Expiration)
	}

	var deliverSymbol types.AssetSymbol
	var deliverAmount types.Amount
	var returnSymbol types.AssetSymbol
	var returnAmount types.Amount
	if p.Strike.Kind == Call {
		deliverSymbol, deliverAmount = p.UnderlyingSymbol, p.UnderlyingAmount
		returnSymbol, returnAmount = p.QuoteSymbol, p.ExerciseAmount
	} else {
		deliverSymbol, deliverAmount = p.QuoteSymbol, p.ExerciseAmount
		returnSymbol, returnAmount = p.UnderlyingSymbol, p.UnderlyingAmount
	}

	if err := e.bal.Adjust(sess, p.Owner, returnSymbol, balance.Liquid, -returnAmount); err != nil {
		return err
	}
	if err := e.assets.AdjustPendingSupply(sess, deliverSymbol, -deliverAmount); err != nil {
		return err
	}
	if err := e.bal.Adjust(sess, p.Owner, deliverSymbol, balance.Liquid, deliverAmount); err != nil {
		return err
	}
	if err := e.assets.AdjustPendingSupply(sess, returnSymbol, returnAmount); err != nil {
		return err
	}
	e.positions.Remove(sess, p)
	return nil
}

// ExpirePositions removes every position whose strike has expired
// unexercised, returning the locked underlying to the writer.
func (e *OptionEngine) ExpirePositions(sess *store.Session, now types.Time) error {
	var expired []*OptionPosition
	e.positions.Range(func(p *OptionPosition) bool {
		if p.Strike.Expiration.Before(now) {
			expired = append(expired, p)
		}
		return true
	})
	for _, p := range expired {
		if err := e.assets.AdjustPendingSupply(sess, p.UnderlyingSymbol, -p.UnderlyingAmount); err != nil {
			return err
		}
		if err := e.bal.Adjust(sess, p.Owner, p.UnderlyingSymbol, balance.Liquid, p.UnderlyingAmount); err != nil {
			return err
		}
		e.positions.Remove(sess, p)
	}
	return nil
}
