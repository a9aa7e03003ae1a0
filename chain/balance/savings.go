package balance

import (
	"aurora-chain/chain/store"
	"aurora-chain/chain/types"
	"aurora-chain/chain/xerrors"
)

type withdrawKey struct {
	from      types.AccountName
	requestID uint64
}

// SavingsWithdrawal is a pending transfer-from-savings request (spec §3.5).
type SavingsWithdrawal struct {
	ID        store.ID
	From      types.AccountName
	To        types.AccountName
	Symbol    types.AssetSymbol
	Amount    types.Amount
	RequestID uint64
	Memo      string
	Complete  types.Time
}

func (w *SavingsWithdrawal) GetID() store.ID   { return w.ID }
func (w *SavingsWithdrawal) SetID(id store.ID) { w.ID = id }

// TransferToSavings immediately debits liquid and credits savings (spec
// §4.3.3).
func (e *Engine) TransferToSavings(sess *store.Session, owner types.AccountName, symbol types.AssetSymbol, amount types.Amount) error {
	if amount <= 0 {
		return xerrors.New("balance.TransferToSavings", xerrors.Invalid, "amount must be positive")
	}
	if err := e.Adjust(sess, owner, symbol, Liquid, -amount); err != nil {
		return err
	}
	return e.Adjust(sess, owner, symbol, Savings, amount)
}

// TransferFromSavings immediately debits savings and creates a withdrawal
// record that matures after params.SavingsDelay (spec §4.3.3).
func (e *Engine) TransferFromSavings(sess *store.Session, from, to types.AccountName, symbol types.AssetSymbol, amount types.Amount, requestID uint64, memo string, now types.Time) (*SavingsWithdrawal, error) {
	const op = "balance.TransferFromSavings"
	if amount <= 0 {
		return nil, xerrors.New(op, xerrors.Invalid, "amount must be positive")
	}
	if _, exists := e.withdrawalsByKey.Find(withdrawKey{from, requestID}); exists {
		return nil, xerrors.New(op, xerrors.AlreadyExists, "%s already has a pending withdrawal request %d", from, requestID)
	}
	if err := e.Adjust(sess, from, symbol, Savings, -amount); err != nil {
		return nil, err
	}
	if err := e.assets.AdjustPendingSupply(sess, symbol, amount); err != nil {
		return nil, err
	}
	w := e.withdrawals.Create(sess, func(w *SavingsWithdrawal) {
		w.From = from
		w.To = to
		w.Symbol = symbol
		w.Amount = amount
		w.RequestID = requestID
		w.Memo = memo
		w.Complete = now.Add(e.params.SavingsDelay)
	})
	return w, nil
}

// ProcessSavingsWithdrawals completes every withdrawal whose delay has
// elapsed at or before now (spec §3.5, testable scenario S3).
func (e *Engine) ProcessSavingsWithdrawals(sess *store.Session, now types.Time) error {
	var due []*SavingsWithdrawal
	e.withdrawals.Range(func(w *SavingsWithdrawal) bool {
		if !w.Complete.After(now) {
			due = append(due, w)
		}
		return true
	})
	for _, w := range due {
		if err := e.Adjust(sess, w.To, w.Symbol, Liquid, w.Amount); err != nil {
			return err
		}
		if err := e.assets.AdjustPendingSupply(sess, w.Symbol, -w.Amount); err != nil {
			return err
		}
		e.withdrawals.Remove(sess, w)
	}
	return nil
}

// CancelSavingsWithdrawal lets `from` cancel a not-yet-matured request,
// returning the funds to savings immediately.
func (e *Engine) CancelSavingsWithdrawal(sess *store.Session, from types.AccountName, requestID uint64) error {
	const op = "balance.CancelSavingsWithdrawal"
	w, ok := e.withdrawalsByKey.Find(withdrawKey{from, requestID})
	if !ok {
		return xerrors.New(op, xerrors.NotFound, "%s has no pending withdrawal request %d", from, requestID)
	}
	if err := e.Adjust(sess, from, w.Symbol, Savings, w.Amount); err != nil {
		return err
	}
	if err := e.assets.AdjustPendingSupply(sess, w.Symbol, -w.Amount); err != nil {
		return err
	}
	e.withdrawals.Remove(sess, w)
	return nil
}
