// Package config loads the genesis configuration — the asset registry,
// account allocations, and network parameter table a node boots from —
// and bootstraps every engine chain/evaluator.Context wires together.
// Grounded on the teacher's chain/config/genesis.go (JSON genesis file ->
// typed struct, with a Validate pass and a DefaultGenesisConfig fallback),
// generalized from an EVM chain's {ChainConfig, Alloc, Validators} triple
// to a ledger's {assets, account balances, engine parameters} triple.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"aurora-chain/chain/assets"
	"aurora-chain/chain/balance"
	"aurora-chain/chain/confidential"
	"aurora-chain/chain/credit"
	"aurora-chain/chain/escrow"
	"aurora-chain/chain/evaluator"
	"aurora-chain/chain/feed"
	"aurora-chain/chain/market"
	"aurora-chain/chain/pool"
	"aurora-chain/chain/store"
	"aurora-chain/chain/transfer"
	"aurora-chain/chain/types"
)

// GenesisAsset declares one asset the registry is seeded with.
type GenesisAsset struct {
	Symbol    types.AssetSymbol `json:"symbol"`
	Issuer    types.AccountName `json:"issuer"`
	Type      assets.AssetType  `json:"type"`
	Precision uint8             `json:"precision"`
	Flags     assets.Flags      `json:"flags"`
}

// GenesisAllocation credits a liquid balance to an account at genesis.
type GenesisAllocation struct {
	Account types.AccountName `json:"account"`
	Symbol  types.AssetSymbol `json:"symbol"`
	Amount  types.Amount      `json:"amount"`
}

// GenesisOptionChain seeds one maintained option chain (spec §4.9).
type GenesisOptionChain struct {
	Underlying types.AssetSymbol       `json:"underlying"`
	Quote      types.AssetSymbol       `json:"quote"`
	NumStrikes int                     `json:"numStrikes"`
	StrikeBps  float64                 `json:"strikeWidthPercent"`
	Multiple   int64                   `json:"multiple"`
}

// GenesisConfig is the full network bootstrap: chain identity, the core/USD
// routing assets every pool/credit engine is parameterized against, the
// asset registry seed, initial balances, and the escrow mediator pool.
type GenesisConfig struct {
	ChainID     uint64            `json:"chainId"`
	NetworkName string            `json:"networkName"`
	GenesisTime types.Time        `json:"genesisTime"`
	CoreAsset   types.AssetSymbol `json:"coreAsset"`
	USDAsset    types.AssetSymbol `json:"usdAsset"`

	Assets       []GenesisAsset       `json:"assets"`
	Allocations  []GenesisAllocation  `json:"allocations"`
	Mediators    []types.AccountName  `json:"mediators"`
	OptionChains []GenesisOptionChain `json:"optionChains"`
}

// LoadGenesisConfig loads and validates a genesis file.
func LoadGenesisConfig(path string) (*GenesisConfig, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("genesis config file not found: %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read genesis config: %w", err)
	}
	var genesis GenesisConfig
	if err := json.Unmarshal(data, &genesis); err != nil {
		return nil, fmt.Errorf("failed to parse genesis config: %w", err)
	}
	if err := genesis.Validate(); err != nil {
		return nil, fmt.Errorf("invalid genesis config: %w", err)
	}
	return &genesis, nil
}

// Validate checks the genesis config is internally consistent before any
// engine is bootstrapped from it.
func (g *GenesisConfig) Validate() error {
	if g.ChainID == 0 {
		return fmt.Errorf("invalid chain ID: must be greater than 0")
	}
	if g.CoreAsset == "" {
		return fmt.Errorf("missing core asset symbol")
	}
	seen := make(map[types.AssetSymbol]bool, len(g.Assets))
	haveCore := false
	for _, a := range g.Assets {
		if a.Symbol == "" {
			return fmt.Errorf("genesis asset with empty symbol")
		}
		if seen[a.Symbol] {
			return fmt.Errorf("duplicate genesis asset %s", a.Symbol)
		}
		seen[a.Symbol] = true
		if a.Symbol == g.CoreAsset {
			haveCore = true
		}
	}
	if !haveCore {
		return fmt.Errorf("core asset %s is not among the genesis assets", g.CoreAsset)
	}
	for _, alloc := range g.Allocations {
		if alloc.Account == types.NullAccount {
			return fmt.Errorf("allocation to the null account")
		}
		if !seen[alloc.Symbol] {
			return fmt.Errorf("allocation references unknown asset %s", alloc.Symbol)
		}
		if alloc.Amount <= 0 {
			return fmt.Errorf("allocation to %s in %s must be positive", alloc.Account, alloc.Symbol)
		}
	}
	return nil
}

// DefaultGenesisConfig is a minimal, internally consistent genesis suitable
// for local demonstration: a core asset, a USD-pegged asset, and three funded
// accounts.
func DefaultGenesisConfig() *GenesisConfig {
	return &GenesisConfig{
		ChainID:     1,
		NetworkName: "aurora-devnet",
		GenesisTime: 0,
		CoreAsset:   "AUR",
		USDAsset:    "USD",
		Assets: []GenesisAsset{
			{Symbol: "AUR", Issuer: types.NullAccount, Type: assets.Currency, Precision: types.Precision},
			{Symbol: "USD", Issuer: "genesis", Type: assets.BitAsset, Precision: types.Precision},
		},
		Allocations: []GenesisAllocation{
			{Account: "genesis", Symbol: "AUR", Amount: 1_000_000 * types.Amount(1e8)},
			{Account: "alice", Symbol: "AUR", Amount: 1_000 * types.Amount(1e8)},
			{Account: "bob", Symbol: "AUR", Amount: 1_000 * types.Amount(1e8)},
		},
		Mediators: []types.AccountName{"genesis"},
	}
}

// defaultFeedLifetime bounds how stale a published price feed may be
// before ctx.Feeds.Median stops counting it (spec §4.8.4), expressed in the
// same unit as types.Time (microseconds): one hour.
const defaultFeedLifetime = 3_600_000_000

// Engines is every engine chain/evaluator.Context wires, returned alongside
// the Context itself so a caller can reach the concrete engines directly
// (e.g. to publish feeds or seed additional pools after boot).
type Engines struct {
	Store   *store.Store
	Assets  *assets.Registry
	Balance *balance.Engine

	Confidential *confidential.Ledger

	Transfer         *transfer.Engine
	Requests         *transfer.RequestBook
	Recurring        *transfer.RecurringBook
	RecurringRequest *transfer.RecurringRequestBook

	Pools  *pool.Engine
	Credit *credit.Engine
	Loans  *credit.LoanBook

	Limit   *market.Engine
	Margin  *market.MarginBook
	Auction *market.AuctionEngine
	Call    *market.CallEngine
	Option  *market.OptionEngine

	Feeds  *feed.Publishers
	Escrow *escrow.Engine

	Context *evaluator.Context
}

// Bootstrap constructs every engine, wires a Context, and applies the
// genesis asset/allocation seed inside one session.
func Bootstrap(g *GenesisConfig) (*Engines, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}

	st := store.New()
	reg := assets.NewRegistry()
	bal := balance.NewEngine(reg, balance.DefaultParams(g.CoreAsset))
	conf := confidential.NewLedger(reg)

	xfer := transfer.NewEngine(reg, bal, nil)
	requests := transfer.NewRequestBook()
	recurring := transfer.NewRecurringBook()
	recurringRequests := transfer.NewRecurringRequestBook()

	pools := pool.NewEngine(reg, bal, g.CoreAsset, g.USDAsset)
	creditEngine := credit.NewEngine(reg, bal, credit.DefaultParams)
	loans := credit.NewLoanBook(reg, bal)

	limit := market.NewEngine(reg, bal)
	margin := market.NewMarginBook(reg, bal, market.DefaultMarginParams)
	auction := market.NewAuctionEngine(reg, bal)
	call := market.NewCallEngine(reg, bal, market.DefaultCallParams)
	option := market.NewOptionEngine(reg, bal)

	feeds := feed.NewPublishers()
	esc := escrow.NewEngine(reg, bal, escrow.DefaultParams, g.Mediators)
	dispatch := market.NewDispatcher(limit, call, pools, feeds, defaultFeedLifetime)

	var optionChains []evaluator.OptionChainSpec
	for _, oc := range g.OptionChains {
		params := market.DefaultOptionParams
		if oc.NumStrikes > 0 {
			params.NumStrikes = oc.NumStrikes
		}
		if oc.StrikeBps > 0 {
			params.StrikeWidthPercent = oc.StrikeBps
		}
		multiple := oc.Multiple
		if multiple == 0 {
			multiple = 1
		}
		optionChains = append(optionChains, evaluator.OptionChainSpec{
			Underlying: oc.Underlying,
			Quote:      oc.Quote,
			Params:     params,
			Multiple:   multiple,
		})
	}

	ctx := evaluator.NewContext(
		reg, bal, conf,
		xfer, requests, recurring, recurringRequests,
		pools,
		creditEngine, loans,
		limit, margin, auction, call, option, dispatch,
		feeds, defaultFeedLifetime,
		esc,
		optionChains,
		nil,
	)

	err := store.Run(st, func(sess *store.Session) error {
		for _, a := range g.Assets {
			if _, err := reg.Create(sess, a.Symbol, a.Issuer, a.Type, a.Flags, a.Precision, g.GenesisTime); err != nil {
				return fmt.Errorf("genesis asset %s: %w", a.Symbol, err)
			}
		}
		for _, alloc := range g.Allocations {
			if err := bal.AdjustMinted(sess, alloc.Account, alloc.Symbol, balance.Liquid, alloc.Amount); err != nil {
				return fmt.Errorf("genesis allocation %s/%s: %w", alloc.Account, alloc.Symbol, err)
			}
			if err := reg.Issue(sess, alloc.Symbol, assets.PartitionLiquid, alloc.Amount); err != nil {
				return fmt.Errorf("genesis issuance %s/%s: %w", alloc.Account, alloc.Symbol, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &Engines{
		Store: st, Assets: reg, Balance: bal,
		Confidential: conf,
		Transfer:     xfer, Requests: requests, Recurring: recurring, RecurringRequest: recurringRequests,
		Pools:  pools,
		Credit: creditEngine, Loans: loans,
		Limit: limit, Margin: margin, Auction: auction, Call: call, Option: option,
		Feeds: feeds, Escrow: esc,
		Context: ctx,
	}, nil
}
