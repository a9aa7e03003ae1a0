package transfer

import (
	"time"

	"aurora-chain/chain/store"
	"aurora-chain/chain/types"
	"aurora-chain/chain/xerrors"
)

// RecurringRequest is a receiver-proposed recurring schedule awaiting the
// sender's acceptance, the recurring counterpart of Request (spec §6's
// transfer_recurring_request/transfer_recurring_accept, alongside
// transfer_recurring's direct sender-authored form in recurring.go).
type RecurringRequest struct {
	ID store.ID

	From       types.AccountName
	To         types.AccountName
	Symbol     types.AssetSymbol
	Amount     types.Amount
	Memo       string
	ContractID uint64

	Interval   time.Duration
	Payments   uint32
	Extensible bool
	FillOrKill bool
	Begin      types.Time
	Expiration types.Time
}

func (r *RecurringRequest) GetID() store.ID   { return r.ID }
func (r *RecurringRequest) SetID(id store.ID) { r.ID = id }

type recurringRequestKey struct {
	from       types.AccountName
	contractID uint64
}

// RecurringRequestBook holds pending recurring-schedule proposals.
type RecurringRequestBook struct {
	requests *store.Table[RecurringRequest, *RecurringRequest]
	byKey    *store.UniqueIndex[RecurringRequest, recurringRequestKey]
}

// NewRecurringRequestBook creates an empty recurring-request book.
func NewRecurringRequestBook() *RecurringRequestBook {
	b := &RecurringRequestBook{requests: store.NewTable[RecurringRequest]("recurring_transfer_request")}
	b.byKey = store.AddUniqueIndex(b.requests, func(r *RecurringRequest) recurringRequestKey {
		return recurringRequestKey{r.From, r.ContractID}
	})
	return b
}

// Propose records to's proposal that from open a recurring schedule paying
// to, valid until now+duration.
func (b *RecurringRequestBook) Propose(sess *store.Session, from, to types.AccountName, symbol types.AssetSymbol, amount types.Amount, memo string, contractID uint64, begin types.Time, interval time.Duration, payments uint32, extensible, fillOrKill bool, duration time.Duration, now types.Time) (*RecurringRequest, error) {
	const op = "transfer.ProposeRecurring"
	if amount <= 0 {
		return nil, xerrors.New(op, xerrors.Invalid, "amount must be positive")
	}
	if payments == 0 {
		return nil, xerrors.New(op, xerrors.Invalid, "payments must be positive")
	}
	if _, exists := b.byKey.Find(recurringRequestKey{from, contractID}); exists {
		return nil, xerrors.New(op, xerrors.AlreadyExists, "%s already has a pending recurring request %d", from, contractID)
	}
	return b.requests.Create(sess, func(r *RecurringRequest) {
		r.From = from
		r.To = to
		r.Symbol = symbol
		r.Amount = amount
		r.Memo = memo
		r.ContractID = contractID
		r.Interval = interval
		r.Payments = payments
		r.Extensible = extensible
		r.FillOrKill = fillOrKill
		r.Begin = begin
		r.Expiration = now.Add(duration)
	}), nil
}

// Find looks up a pending recurring request by its (from, contractID) key.
func (b *RecurringRequestBook) Find(from types.AccountName, contractID uint64) (*RecurringRequest, bool) {
	return b.byKey.Find(recurringRequestKey{from, contractID})
}

// Accept opens the recurring schedule a not-yet-expired request describes,
// removing the request record.
func (b *RecurringRequestBook) Accept(sess *store.Session, schedules *RecurringBook, from types.AccountName, contractID uint64, now types.Time) (*Recurring, error) {
	const op = "transfer.AcceptRecurring"
	req, ok := b.byKey.Find(recurringRequestKey{from, contractID})
	if !ok {
		return nil, xerrors.New(op, xerrors.NotFound, "no pending recurring request %d for %s", contractID, from)
	}
	if req.Expiration.Before(now) {
		b.requests.Remove(sess, req)
		return nil, xerrors.New(op, xerrors.Expired, "recurring request %d for %s has expired", contractID, from)
	}
	r, err := schedules.Begin(sess, req.From, req.To, req.Symbol, req.Amount, req.Memo, req.ContractID, req.Begin, req.Interval, req.Payments, req.Extensible, req.FillOrKill)
	if err != nil {
		return nil, err
	}
	b.requests.Remove(sess, req)
	return r, nil
}

// Cancel withdraws a pending recurring request without opening it.
func (b *RecurringRequestBook) Cancel(sess *store.Session, from types.AccountName, contractID uint64) error {
	const op = "transfer.CancelRecurringRequest"
	req, ok := b.byKey.Find(recurringRequestKey{from, contractID})
	if !ok {
		return xerrors.New(op, xerrors.NotFound, "no pending recurring request %d for %s", contractID, from)
	}
	b.requests.Remove(sess, req)
	return nil
}

// ExpireRecurringRequests removes every recurring request whose expiration
// has passed without being accepted.
func (b *RecurringRequestBook) ExpireRecurringRequests(sess *store.Session, now types.Time) {
	var expired []*RecurringRequest
	b.requests.Range(func(r *RecurringRequest) bool {
		if r.Expiration.Before(now) {
			expired = append(expired, r)
		}
		return true
	})
	for _, r := range expired {
		b.requests.Remove(sess, r)
	}
}
