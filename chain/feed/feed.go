// Package feed implements the price-feed publisher set backing call-order
// settlement (spec §4.8.4): a set of authorized producers publish per-asset
// prices, and the settlement price for an asset is the median of every
// feed newer than its configured lifetime. Grounded on
// chain/consensus/validator.go's stake-sorted validator set, generalized
// from "select a block proposer by stake" to "admit and rank a set of
// trusted feed producers."
package feed

import (
	"sort"

	"aurora-chain/chain/types"
	"aurora-chain/chain/xerrors"
)

// Publisher is one account authorized to publish price feeds.
type Publisher struct {
	Account types.AccountName
	Weight  uint64 // stake-weighted influence, descending sort order
}

// ProducerSet is the ordered, deduplicated set of authorized feed
// producers for one asset.
type ProducerSet struct {
	producers []Publisher
	byAccount map[types.AccountName]int
}

// NewProducerSet builds a producer set, sorted by descending weight for
// deterministic iteration (mirrors the teacher's stake-ordered validator
// set).
func NewProducerSet(publishers []Publisher) *ProducerSet {
	ps := &ProducerSet{byAccount: make(map[types.AccountName]int, len(publishers))}
	ps.producers = append(ps.producers, publishers...)
	sort.SliceStable(ps.producers, func(i, j int) bool { return ps.producers[i].Weight > ps.producers[j].Weight })
	for i, p := range ps.producers {
		ps.byAccount[p.Account] = i
	}
	return ps
}

// IsProducer reports whether account is an authorized publisher.
func (ps *ProducerSet) IsProducer(account types.AccountName) bool {
	_, ok := ps.byAccount[account]
	return ok
}

// Feed is one producer's published price for one asset, timestamped.
type Feed struct {
	Producer  types.AccountName
	Price     types.Price // collateral priced in the debt asset
	Published types.Time
}

// Publisher keeps the most recent feed per (asset, producer) and computes
// the median settlement price over feeds newer than a configurable
// lifetime.
type Publishers struct {
	sets  map[types.AssetSymbol]*ProducerSet
	feeds map[types.AssetSymbol]map[types.AccountName]Feed
}

// NewPublishers creates an empty feed registry.
func NewPublishers() *Publishers {
	return &Publishers{
		sets:  make(map[types.AssetSymbol]*ProducerSet),
		feeds: make(map[types.AssetSymbol]map[types.AccountName]Feed),
	}
}

// SetProducers (re)assigns the authorized producer set for symbol.
func (p *Publishers) SetProducers(symbol types.AssetSymbol, ps *ProducerSet) {
	p.sets[symbol] = ps
	if _, ok := p.feeds[symbol]; !ok {
		p.feeds[symbol] = make(map[types.AccountName]Feed)
	}
}

// Publish records producer's price for symbol at now, rejecting
// unauthorized producers.
func (p *Publishers) Publish(symbol types.AssetSymbol, producer types.AccountName, price types.Price, now types.Time) error {
	const op = "feed.Publish"
	ps, ok := p.sets[symbol]
	if !ok || !ps.IsProducer(producer) {
		return xerrors.New(op, xerrors.Unauthorized, "%s is not an authorized feed producer for %s", producer, symbol)
	}
	p.feeds[symbol][producer] = Feed{Producer: producer, Price: price, Published: now}
	return nil
}

// Median returns the median of every feed for symbol published within
// lifetime of now, failing with PriceFeedMissing if none qualify (spec
// §4.8.4: "producer-published feeds newer than feed_lifetime").
func (p *Publishers) Median(symbol types.AssetSymbol, lifetime int64, now types.Time) (types.Price, error) {
	const op = "feed.Median"
	byProducer, ok := p.feeds[symbol]
	if !ok {
		return types.NullPrice, xerrors.New(op, xerrors.PriceFeedMissing, "no feeds registered for %s", symbol)
	}
	var live []types.Price
	for _, f := range byProducer {
		if int64(now-f.Published) <= lifetime {
			live = append(live, f.Price)
		}
	}
	if len(live) == 0 {
		return types.NullPrice, xerrors.New(op, xerrors.PriceFeedMissing, "no live feeds for %s", symbol)
	}
	sort.Slice(live, func(i, j int) bool { return live[i].Less(live[j]) })
	return live[len(live)/2], nil
}
