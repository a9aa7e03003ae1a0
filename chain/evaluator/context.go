// Package evaluator implements the dispatch layer (spec C10): one evaluator
// per operation type, each re-validating its arguments, checking the
// authorization contract, mutating state through the already-built engines,
// and asserting postconditions — failure unwinds the enclosing undo session.
// Grounded on chain/node/blockchain.go's executeTransaction (per-transaction
// apply loop producing a Receipt), generalized from a single EVM call to a
// type-switch over the full operation sum type, and on
// other_examples/opcode_dispatcher.go's name-to-handler registration,
// generalized to a static Go type switch instead of a runtime opcode table.
package evaluator

import (
	"aurora-chain/chain/assets"
	"aurora-chain/chain/balance"
	"aurora-chain/chain/confidential"
	"aurora-chain/chain/credit"
	"aurora-chain/chain/escrow"
	"aurora-chain/chain/feed"
	"aurora-chain/chain/market"
	"aurora-chain/chain/pool"
	"aurora-chain/chain/transfer"
	"aurora-chain/chain/types"
)

// Context wires together every engine an operation might dispatch into. It
// is built once at node startup and shared across every block.
type Context struct {
	Assets       *assets.Registry
	Balance      *balance.Engine
	Confidential *confidential.Ledger

	Transfer         *transfer.Engine
	Requests         *transfer.RequestBook
	Recurring        *transfer.RecurringBook
	RecurringRequest *transfer.RecurringRequestBook

	Pools *pool.Engine

	Credit *credit.Engine
	Loans  *credit.LoanBook

	Limit    *market.Engine
	Margin   *market.MarginBook
	Auction  *market.AuctionEngine
	Call     *market.CallEngine
	Option   *market.OptionEngine
	Dispatch *market.Dispatcher

	Feeds        *feed.Publishers
	FeedLifetime int64

	Escrow *escrow.Engine

	// OptionChains lists every underlying/quote pair the option strike roll
	// maintains, since market.OptionEngine.RollAll's map key type is
	// unexported; RollChain is called once per configured pair instead.
	OptionChains []OptionChainSpec

	Authorizer Authorizer
}

// OptionChainSpec names one option chain the maintenance loop rolls every
// tick, and the contract multiple its strikes are issued at.
type OptionChainSpec struct {
	Underlying types.AssetSymbol
	Quote      types.AssetSymbol
	Params     market.OptionParams
	Multiple   int64
}

// NewContext wires a Context from already-constructed engines. authorizer
// may be nil, in which case DefaultAuthorizer is used.
func NewContext(
	reg *assets.Registry,
	bal *balance.Engine,
	conf *confidential.Ledger,
	xfer *transfer.Engine,
	requests *transfer.RequestBook,
	recurring *transfer.RecurringBook,
	recurringRequests *transfer.RecurringRequestBook,
	pools *pool.Engine,
	creditEngine *credit.Engine,
	loans *credit.LoanBook,
	limit *market.Engine,
	margin *market.MarginBook,
	auction *market.AuctionEngine,
	call *market.CallEngine,
	option *market.OptionEngine,
	dispatch *market.Dispatcher,
	feeds *feed.Publishers,
	feedLifetime int64,
	esc *escrow.Engine,
	optionChains []OptionChainSpec,
	authorizer Authorizer,
) *Context {
	if authorizer == nil {
		authorizer = DefaultAuthorizer{}
	}
	return &Context{
		Assets: reg, Balance: bal, Confidential: conf,
		Transfer: xfer, Requests: requests, Recurring: recurring, RecurringRequest: recurringRequests,
		Pools:  pools,
		Credit: creditEngine, Loans: loans,
		Limit: limit, Margin: margin, Auction: auction, Call: call, Option: option, Dispatch: dispatch,
		Feeds: feeds, FeedLifetime: feedLifetime,
		Escrow:       esc,
		OptionChains: optionChains,
		Authorizer:   authorizer,
	}
}
