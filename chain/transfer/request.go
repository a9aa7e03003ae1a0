package transfer

import (
	"time"

	"aurora-chain/chain/store"
	"aurora-chain/chain/types"
	"aurora-chain/chain/xerrors"
)

// DefaultRequestDuration is TRANSFER_REQUEST_DURATION's representative
// default (spec §6).
const DefaultRequestDuration = 7 * 24 * time.Hour

// Request is a receiver-proposed transfer awaiting the sender's acceptance
// (spec §4.5).
type Request struct {
	ID         store.ID
	From       types.AccountName
	To         types.AccountName
	Symbol     types.AssetSymbol
	Amount     types.Amount
	Memo       string
	RequestID  uint64
	Expiration types.Time
}

func (r *Request) GetID() store.ID   { return r.ID }
func (r *Request) SetID(id store.ID) { r.ID = id }

type requestKey struct {
	to        types.AccountName
	requestID uint64
}

// RequestBook holds pending transfer requests.
type RequestBook struct {
	requests *store.Table[Request, *Request]
	byKey    *store.UniqueIndex[Request, requestKey]
}

// NewRequestBook creates an empty request book.
func NewRequestBook() *RequestBook {
	b := &RequestBook{requests: store.NewTable[Request]("transfer_request")}
	b.byKey = store.AddUniqueIndex(b.requests, func(r *Request) requestKey {
		return requestKey{r.To, r.RequestID}
	})
	return b
}

// Propose records to's request that from pay amount, valid until
// now+duration.
func (b *RequestBook) Propose(sess *store.Session, from, to types.AccountName, symbol types.AssetSymbol, amount types.Amount, memo string, requestID uint64, duration time.Duration, now types.Time) (*Request, error) {
	const op = "transfer.Propose"
	if amount <= 0 {
		return nil, xerrors.New(op, xerrors.Invalid, "amount must be positive")
	}
	if _, exists := b.byKey.Find(requestKey{to, requestID}); exists {
		return nil, xerrors.New(op, xerrors.AlreadyExists, "%s already has a pending request %d", to, requestID)
	}
	return b.requests.Create(sess, func(r *Request) {
		r.From = from
		r.To = to
		r.Symbol = symbol
		r.Amount = amount
		r.Memo = memo
		r.RequestID = requestID
		r.Expiration = now.Add(duration)
	}), nil
}

// Find looks up a pending request by its (to, requestID) key.
func (b *RequestBook) Find(to types.AccountName, requestID uint64) (*Request, bool) {
	return b.byKey.Find(requestKey{to, requestID})
}

// Accept fulfils a not-yet-expired request, transferring the funds and
// removing the request record.
func (e *Engine) Accept(sess *store.Session, b *RequestBook, to types.AccountName, requestID uint64, now types.Time) error {
	const op = "transfer.Accept"
	req, ok := b.byKey.Find(requestKey{to, requestID})
	if !ok {
		return xerrors.New(op, xerrors.NotFound, "no pending request %d for %s", requestID, to)
	}
	if req.Expiration.Before(now) {
		b.requests.Remove(sess, req)
		return xerrors.New(op, xerrors.Expired, "request %d for %s has expired", requestID, to)
	}
	if err := e.Transfer(sess, req.From, req.To, req.Symbol, req.Amount, req.Memo); err != nil {
		return err
	}
	b.requests.Remove(sess, req)
	return nil
}

// Cancel withdraws a pending request without fulfilling it.
func (b *RequestBook) Cancel(sess *store.Session, to types.AccountName, requestID uint64) error {
	const op = "transfer.Cancel"
	req, ok := b.byKey.Find(requestKey{to, requestID})
	if !ok {
		return xerrors.New(op, xerrors.NotFound, "no pending request %d for %s", requestID, to)
	}
	b.requests.Remove(sess, req)
	return nil
}

// ExpireRequests removes every request whose expiration has passed,
// without transferring funds.
func (b *RequestBook) ExpireRequests(sess *store.Session, now types.Time) {
	var expired []*Request
	b.requests.Range(func(r *Request) bool {
		if r.Expiration.Before(now) {
			expired = append(expired, r)
		}
		return true
	})
	for _, r := range expired {
		b.requests.Remove(sess, r)
	}
}
