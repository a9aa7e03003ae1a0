// Package pool implements the liquidity pool AMM (spec C6): constant-product
// trading, single-sided LP share issuance/withdrawal, multi-pool routing,
// and a price-history ring buffer sampled at every ten-minute boundary.
// Grounded on chain/types/transaction.go's use of holiman/uint256 for
// overflow-safe numeric conversion, generalized here to the pool's
// intermediate products (reserve*reserve easily exceeds int64 range).
package pool

import (
	"sort"
	"time"

	"github.com/holiman/uint256"

	"aurora-chain/chain/assets"
	"aurora-chain/chain/balance"
	"aurora-chain/chain/store"
	"aurora-chain/chain/types"
	"aurora-chain/chain/xerrors"
)

// HistoryLength is the price-history ring buffer's fixed length (spec §3.8).
const HistoryLength = 144

// SampleCadence is the spacing between price-history samples (spec §4.6).
const SampleCadence = 10 * time.Minute

// Pool is one constant-product trading pair with its LP share asset (spec
// §3.8). SymbolA is always the canonically "smaller" side, or the core
// asset if one side is core.
type Pool struct {
	ID store.ID

	SymbolA      types.AssetSymbol
	SymbolB      types.AssetSymbol
	SymbolLiquid types.AssetSymbol

	BalanceA      types.Amount
	BalanceB      types.Amount
	BalanceLiquid types.Amount

	FeeBps uint32 // basis points taken from output amount on every exchange

	PriceHistory [HistoryLength]types.Price
	HistoryLen   int // number of valid entries, grows to HistoryLength then wraps
	HistoryHead  int // index of the oldest entry once full

	HourMedianPrice types.Price
	DayMedianPrice  types.Price
	LastSampleTime  types.Time
}

func (p *Pool) GetID() store.ID   { return p.ID }
func (p *Pool) SetID(id store.ID) { p.ID = id }

// pairKey canonically orders a pair for lookup, matching CanonicalPair.
type pairKey struct {
	a, b types.AssetSymbol
}

// Engine owns every pool and the routing preference order used when two
// assets share no direct pool.
type Engine struct {
	assets *assets.Registry
	bal    *balance.Engine
	core   types.AssetSymbol
	usd    types.AssetSymbol

	pools    *store.Table[Pool, *Pool]
	byPair   *store.UniqueIndex[Pool, pairKey]
	byLiquid *store.UniqueIndex[Pool, types.AssetSymbol]
}

// NewEngine creates a pool engine. usd may equal core if no distinct USD
// routing asset exists.
func NewEngine(reg *assets.Registry, bal *balance.Engine, core, usd types.AssetSymbol) *Engine {
	e := &Engine{assets: reg, bal: bal, core: core, usd: usd}
	e.pools = store.NewTable[Pool]("liquidity_pool")
	e.byPair = store.AddUniqueIndex(e.pools, func(p *Pool) pairKey { return pairKey{p.SymbolA, p.SymbolB} })
	e.byLiquid = store.AddUniqueIndex(e.pools, func(p *Pool) types.AssetSymbol { return p.SymbolLiquid })
	return e
}

// CanonicalPair orders two symbols the way spec §3.8 requires: the core
// asset is always symbol_a; otherwise lexical order.
func (e *Engine) CanonicalPair(x, y types.AssetSymbol) (types.AssetSymbol, types.AssetSymbol, error) {
	if x == y {
		return "", "", xerrors.New("pool.CanonicalPair", xerrors.Invalid, "a pool requires two distinct assets")
	}
	if x == e.core {
		return x, y, nil
	}
	if y == e.core {
		return y, x, nil
	}
	if x < y {
		return x, y, nil
	}
	return y, x, nil
}

// Find looks up the pool for an (unordered) asset pair.
func (e *Engine) Find(x, y types.AssetSymbol) (*Pool, bool) {
	a, b, err := e.CanonicalPair(x, y)
	if err != nil {
		return nil, false
	}
	return e.byPair.Find(pairKey{a, b})
}

// Range calls fn for every liquidity pool in unspecified order, stopping
// early if fn returns false.
func (e *Engine) Range(fn func(*Pool) bool) {
	e.pools.Range(fn)
}

// Create opens a new pool for the given pair, seeded with an initial
// two-sided deposit from founder, and mints the LP share asset.
func (e *Engine) Create(sess *store.Session, founder types.AccountName, x, y types.AssetSymbol, liquidSymbol types.AssetSymbol, initialA, initialB types.Amount, feeBps uint32, now types.Time) (*Pool, error) {
	const op = "pool.Create"
	a, b, err := e.CanonicalPair(x, y)
	if err != nil {
		return nil, err
	}
	if _, exists := e.byPair.Find(pairKey{a, b}); exists {
		return nil, xerrors.New(op, xerrors.AlreadyExists, "a pool for %s/%s already exists", a, b)
	}
	if initialA <= 0 || initialB <= 0 {
		return nil, xerrors.New(op, xerrors.Invalid, "initial reserves must be positive")
	}

	shares := types.Amount(new(uint256.Int).Mul(isqrt64(initialA), isqrt64(initialB)).Uint64())

	if err := e.bal.Adjust(sess, founder, a, balance.Liquid, -initialA); err != nil {
		return nil, err
	}
	if err := e.bal.Adjust(sess, founder, b, balance.Liquid, -initialB); err != nil {
		return nil, err
	}
	if err := e.assets.AdjustPendingSupply(sess, a, initialA); err != nil {
		return nil, err
	}
	if err := e.assets.AdjustPendingSupply(sess, b, initialB); err != nil {
		return nil, err
	}
	if err := e.assets.Issue(sess, liquidSymbol, assets.PartitionLiquid, shares); err != nil {
		return nil, err
	}
	if err := e.bal.AdjustMinted(sess, founder, liquidSymbol, balance.Liquid, shares); err != nil {
		return nil, err
	}

	p := e.pools.Create(sess, func(p *Pool) {
		p.SymbolA = a
		p.SymbolB = b
		p.SymbolLiquid = liquidSymbol
		p.BalanceA = initialA
		p.BalanceB = initialB
		p.BalanceLiquid = shares
		p.FeeBps = feeBps
		p.LastSampleTime = now
	})
	e.sample(sess, p, now)
	return p, nil
}

func isqrt64(a types.Amount) *uint256.Int { return isqrt(uint256.NewInt(uint64(a))) }

func isqrt(x *uint256.Int) *uint256.Int {
	return new(uint256.Int).Sqrt(x)
}

// SpotPrice is the pool's current instantaneous price of SymbolA in terms
// of SymbolB.
func (p *Pool) SpotPrice() types.Price {
	return types.Price{
		Base:  types.NewAsset(p.BalanceA, p.SymbolA),
		Quote: types.NewAsset(p.BalanceB, p.SymbolB),
	}
}

func (e *Engine) sample(sess *store.Session, p *Pool, now types.Time) {
	price := p.SpotPrice()
	e.pools.Modify(sess, p, func(p *Pool) {
		idx := (p.HistoryHead + p.HistoryLen) % HistoryLength
		if p.HistoryLen < HistoryLength {
			p.HistoryLen++
		} else {
			p.HistoryHead = (p.HistoryHead + 1) % HistoryLength
		}
		p.PriceHistory[idx] = price
		p.LastSampleTime = now
		p.HourMedianPrice = medianPrice(p.recentPrices(6))
		p.DayMedianPrice = medianPrice(p.recentPrices(p.HistoryLen))
	})
}

// recentPrices returns the n most recently sampled prices, newest last.
func (p *Pool) recentPrices(n int) []types.Price {
	if n > p.HistoryLen {
		n = p.HistoryLen
	}
	out := make([]types.Price, 0, n)
	for i := p.HistoryLen - n; i < p.HistoryLen; i++ {
		idx := (p.HistoryHead + i) % HistoryLength
		out = append(out, p.PriceHistory[idx])
	}
	return out
}

func medianPrice(prices []types.Price) types.Price {
	if len(prices) == 0 {
		return types.NullPrice
	}
	sorted := make([]types.Price, len(prices))
	copy(sorted, prices)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Less(sorted[j]) })
	return sorted[len(sorted)/2]
}

// SamplePriceAtBoundary appends the current spot price if now has crossed a
// SampleCadence boundary since the pool's last sample (spec §4.6: "at every
// 10-minute block boundary").
func (e *Engine) SamplePriceAtBoundary(sess *store.Session, p *Pool, now types.Time) {
	if now.Std().Sub(p.LastSampleTime.Std()) < SampleCadence {
		return
	}
	e.sample(sess, p, now)
}

// SampleAllDue runs SamplePriceAtBoundary over every pool.
func (e *Engine) SampleAllDue(sess *store.Session, now types.Time) {
	var all []*Pool
	e.pools.Range(func(p *Pool) bool { all = append(all, p); return true })
	for _, p := range all {
		e.SamplePriceAtBoundary(sess, p, now)
	}
}
