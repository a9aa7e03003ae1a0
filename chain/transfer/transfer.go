// Package transfer implements the transfer services (spec C5): immediate,
// request/accept, and recurring transfers between accounts. Grounded on
// chain/types/token.go's Transfer method (compartment-to-compartment move
// under a single lock), generalized to the asset-permission checks and the
// three transfer shapes the ledger needs.
package transfer

import (
	"aurora-chain/chain/assets"
	"aurora-chain/chain/balance"
	"aurora-chain/chain/store"
	"aurora-chain/chain/types"
	"aurora-chain/chain/xerrors"
)

// PaymentHook opportunistically records a memo-tagged payment against an
// external system (e.g. a content record keyed by @author/permlink). It is
// an optional collaborator: Engine works with a nil hook, and a hook
// returning an error never fails the transfer itself (spec §4.5: "absence
// is not an error").
type PaymentHook interface {
	RecordPayment(memo string, payer, payee types.AccountName, amount types.Asset)
}

// Engine wires the balance/asset engines transfers mutate, plus an optional
// payment hook.
type Engine struct {
	assets *assets.Registry
	bal    *balance.Engine
	hook   PaymentHook
}

// NewEngine creates a transfer engine. hook may be nil.
func NewEngine(reg *assets.Registry, bal *balance.Engine, hook PaymentHook) *Engine {
	return &Engine{assets: reg, bal: bal, hook: hook}
}

func checkTransferable(reg *assets.Registry, symbol types.AssetSymbol) error {
	const op = "transfer.checkTransferable"
	asset, err := reg.Get(symbol)
	if err != nil {
		return err
	}
	if asset.Flags.TransferRestricted {
		return xerrors.New(op, xerrors.AssetRestricted, "%s is transfer-restricted", symbol)
	}
	return nil
}

// hasContentMemo reports whether memo looks like an @author/permlink
// reference (spec §4.5), without resolving it — resolution is the optional
// hook's concern.
func hasContentMemo(memo string) bool {
	return len(memo) > 1 && memo[0] == '@'
}

// Transfer moves amount of symbol from sender to receiver immediately,
// opportunistically notifying the payment hook for @author/permlink memos.
func (e *Engine) Transfer(sess *store.Session, from, to types.AccountName, symbol types.AssetSymbol, amount types.Amount, memo string) error {
	const op = "transfer.Transfer"
	if amount <= 0 {
		return xerrors.New(op, xerrors.Invalid, "amount must be positive")
	}
	if err := checkTransferable(e.assets, symbol); err != nil {
		return err
	}
	if err := e.bal.Adjust(sess, from, symbol, balance.Liquid, -amount); err != nil {
		return err
	}
	if err := e.bal.Adjust(sess, to, symbol, balance.Liquid, amount); err != nil {
		return err
	}
	if e.hook != nil && hasContentMemo(memo) {
		e.hook.RecordPayment(memo, from, to, types.NewAsset(amount, symbol))
	}
	return nil
}
