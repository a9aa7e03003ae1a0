package transfer

import (
	"time"

	"aurora-chain/chain/store"
	"aurora-chain/chain/types"
	"aurora-chain/chain/xerrors"
)

// Recurring is a sender-authored, cancellable schedule of equal payments
// (spec §4.5).
type Recurring struct {
	ID store.ID

	From      types.AccountName
	To        types.AccountName
	Symbol    types.AssetSymbol
	Amount    types.Amount
	Memo      string
	ContractID uint64

	Interval          time.Duration
	PaymentsRemaining uint32
	Extensible        bool
	FillOrKill        bool
	NextTransfer      types.Time
	EndTime           types.Time
}

func (r *Recurring) GetID() store.ID   { return r.ID }
func (r *Recurring) SetID(id store.ID) { r.ID = id }

type recurringKey struct {
	from       types.AccountName
	contractID uint64
}

// RecurringBook holds every active recurring-transfer schedule.
type RecurringBook struct {
	schedules *store.Table[Recurring, *Recurring]
	byKey     *store.UniqueIndex[Recurring, recurringKey]
}

// NewRecurringBook creates an empty recurring-transfer book.
func NewRecurringBook() *RecurringBook {
	b := &RecurringBook{schedules: store.NewTable[Recurring]("recurring_transfer")}
	b.byKey = store.AddUniqueIndex(b.schedules, func(r *Recurring) recurringKey {
		return recurringKey{r.From, r.ContractID}
	})
	return b
}

// Begin opens a new recurring-transfer schedule (spec §4.5: "authored by
// sender"). begin is the instant of the first payment; the schedule ends
// after `payments` ticks, absent any extensible slide.
func (b *RecurringBook) Begin(sess *store.Session, from, to types.AccountName, symbol types.AssetSymbol, amount types.Amount, memo string, contractID uint64, begin types.Time, interval time.Duration, payments uint32, extensible, fillOrKill bool) (*Recurring, error) {
	const op = "transfer.Begin"
	if amount <= 0 {
		return nil, xerrors.New(op, xerrors.Invalid, "amount must be positive")
	}
	if payments == 0 {
		return nil, xerrors.New(op, xerrors.Invalid, "payments must be positive")
	}
	if _, exists := b.byKey.Find(recurringKey{from, contractID}); exists {
		return nil, xerrors.New(op, xerrors.AlreadyExists, "%s already has a recurring contract %d", from, contractID)
	}
	end := begin.Add(interval * time.Duration(payments))
	return b.schedules.Create(sess, func(r *Recurring) {
		r.From = from
		r.To = to
		r.Symbol = symbol
		r.Amount = amount
		r.Memo = memo
		r.ContractID = contractID
		r.Interval = interval
		r.PaymentsRemaining = payments
		r.Extensible = extensible
		r.FillOrKill = fillOrKill
		r.NextTransfer = begin
		r.EndTime = end
	}), nil
}

// Find looks up an active recurring schedule by its (from, contractID) key.
func (b *RecurringBook) Find(from types.AccountName, contractID uint64) (*Recurring, bool) {
	return b.byKey.Find(recurringKey{from, contractID})
}

// Cancel removes an active recurring schedule.
func (b *RecurringBook) Cancel(sess *store.Session, from types.AccountName, contractID uint64) error {
	const op = "transfer.Cancel"
	r, ok := b.byKey.Find(recurringKey{from, contractID})
	if !ok {
		return xerrors.New(op, xerrors.NotFound, "%s has no recurring contract %d", from, contractID)
	}
	b.schedules.Remove(sess, r)
	return nil
}

// ProcessRecurringTransfers ticks every schedule due at or before now (spec
// §4.5):
//   - on success: transfers amount, decrements payments_remaining, advances
//     next_transfer by one interval; the schedule is removed once
//     payments_remaining reaches zero.
//   - on insufficient funds with fill_or_kill: cancels the schedule.
//   - on insufficient funds with extensible: skips the tick without
//     decrementing payments_remaining, sliding end_time forward by one
//     interval.
//   - on insufficient funds otherwise: skips the tick, still decrementing
//     payments_remaining.
func (e *Engine) ProcessRecurringTransfers(sess *store.Session, b *RecurringBook, now types.Time) error {
	var due []*Recurring
	b.schedules.Range(func(r *Recurring) bool {
		if !r.NextTransfer.After(now) {
			due = append(due, r)
		}
		return true
	})

	for _, r := range due {
		err := e.Transfer(sess, r.From, r.To, r.Symbol, r.Amount, r.Memo)
		insufficient := xerrors.Is(err, xerrors.InsufficientBalance)
		if err != nil && !insufficient {
			return err
		}

		switch {
		case err == nil:
			remaining := r.PaymentsRemaining - 1
			if remaining == 0 {
				b.schedules.Remove(sess, r)
				continue
			}
			interval := r.Interval
			b.schedules.Modify(sess, r, func(r *Recurring) {
				r.PaymentsRemaining = remaining
				r.NextTransfer = r.NextTransfer.Add(interval)
			})
		case r.FillOrKill:
			b.schedules.Remove(sess, r)
		case r.Extensible:
			interval := r.Interval
			b.schedules.Modify(sess, r, func(r *Recurring) {
				r.NextTransfer = r.NextTransfer.Add(interval)
				r.EndTime = r.EndTime.Add(interval)
			})
		default:
			remaining := r.PaymentsRemaining - 1
			interval := r.Interval
			if remaining == 0 {
				b.schedules.Remove(sess, r)
				continue
			}
			b.schedules.Modify(sess, r, func(r *Recurring) {
				r.PaymentsRemaining = remaining
				r.NextTransfer = r.NextTransfer.Add(interval)
			})
		}
	}
	return nil
}
