package confidential

import (
	"encoding/binary"

	"aurora-chain/chain/assets"
	"aurora-chain/chain/store"
	"aurora-chain/chain/types"
	"aurora-chain/chain/xerrors"
)

// Output is a confidential balance: a Pedersen-style commitment spendable in
// full by its owner authority (spec §3.4).
type Output struct {
	ID store.ID

	OwnerAuthority Authority
	Commitment     types.Commitment
	Symbol         types.AssetSymbol
	PrevTxID       types.Hash
	OpIndex        uint32
	OutputIndex    uint32
	Created        types.Time

	hash types.Hash // memoized digest, computed once on creation
}

func (o *Output) GetID() store.ID   { return o.ID }
func (o *Output) SetID(id store.ID) { o.ID = id }

// Hash is the digest of the output's identifying tuple (spec §3.4), used as
// the public handle inputs reference.
func (o *Output) Hash() types.Hash { return o.hash }

func computeHash(o *Output) types.Hash {
	buf := make([]byte, 0, 64+len(o.Commitment))
	buf = append(buf, o.PrevTxID[:]...)
	var idx [8]byte
	binary.BigEndian.PutUint32(idx[:4], o.OpIndex)
	binary.BigEndian.PutUint32(idx[4:], o.OutputIndex)
	buf = append(buf, idx[:]...)
	buf = append(buf, []byte(o.Symbol)...)
	buf = append(buf, o.Commitment...)
	return types.Keccak256Hash(buf)
}

// Ledger holds every live (unconsumed) confidential output.
type Ledger struct {
	assets  *assets.Registry
	outputs *store.Table[Output, *Output]
	byHash  *store.UniqueIndex[Output, types.Hash]
}

// NewLedger creates an empty confidential ledger backed by the given asset
// registry (for confidential_supply bookkeeping and asset-flag checks).
func NewLedger(reg *assets.Registry) *Ledger {
	l := &Ledger{assets: reg}
	l.outputs = store.NewTable[Output]("confidential_output")
	l.byHash = store.AddUniqueIndex(l.outputs, func(o *Output) types.Hash { return o.hash })
	return l
}

// Find looks up a live output by its public hash handle.
func (l *Ledger) Find(hash types.Hash) (*Output, bool) { return l.byHash.Find(hash) }

func (l *Ledger) create(sess *store.Session, owner Authority, symbol types.AssetSymbol, commitment types.Commitment, prevTxID types.Hash, opIndex, outputIndex uint32, now types.Time) *Output {
	return l.outputs.Create(sess, func(o *Output) {
		o.OwnerAuthority = owner
		o.Commitment = commitment
		o.Symbol = symbol
		o.PrevTxID = prevTxID
		o.OpIndex = opIndex
		o.OutputIndex = outputIndex
		o.Created = now
		o.hash = computeHash(o)
	})
}

func (l *Ledger) checkAssetEligible(symbol types.AssetSymbol) error {
	const op = "confidential.checkAssetEligible"
	asset, err := l.assets.Get(symbol)
	if err != nil {
		return err
	}
	if !asset.Flags.ConfidentialEnabled {
		return xerrors.New(op, xerrors.AssetRestricted, "%s does not allow confidential use", symbol)
	}
	if asset.Flags.TransferRestricted {
		return xerrors.New(op, xerrors.AssetRestricted, "%s is transfer-restricted", symbol)
	}
	if asset.Flags.RequireBalanceWhitelist {
		return xerrors.New(op, xerrors.AssetRestricted, "%s requires a balance whitelist", symbol)
	}
	return nil
}

// NewOutputSpec describes one output to be created by an operation, prior to
// its hash being assigned.
type NewOutputSpec struct {
	Owner      Authority
	Commitment types.Commitment
}

// Transfer consumes every input hash in full and creates the given outputs,
// enforcing the homomorphic sum check against the fee's public commitment
// (spec §4.4). Pass a zero fee commitment (Commit(0, nil)) when no fee
// applies. txID/opIndex key the newly created outputs' hashes.
func (l *Ledger) Transfer(sess *store.Session, txID types.Hash, opIndex uint32, symbol types.AssetSymbol, inputs []types.Hash, outputs []NewOutputSpec, feeCommitment types.Commitment, now types.Time) ([]*Output, error) {
	const op = "confidential.Transfer"
	if err := l.checkAssetEligible(symbol); err != nil {
		return nil, err
	}

	inputRecords := make([]*Output, len(inputs))
	var inputSum []types.Commitment
	for i, h := range inputs {
		rec, ok := l.byHash.Find(h)
		if !ok {
			return nil, xerrors.New(op, xerrors.NotFound, "confidential input %x not found", h)
		}
		if rec.Symbol != symbol {
			return nil, xerrors.New(op, xerrors.Invalid, "confidential input asset mismatch")
		}
		inputRecords[i] = rec
		inputSum = append(inputSum, rec.Commitment)
	}

	var outputSum []types.Commitment
	for _, o := range outputs {
		if !o.Owner.WellFormed() {
			return nil, xerrors.New(op, xerrors.Invalid, "malformed output authority")
		}
		outputSum = append(outputSum, o.Commitment)
	}
	outputSum = append(outputSum, feeCommitment)

	lhs := AddCommitments(inputSum...)
	rhs := AddCommitments(outputSum...)
	if !EqualCommitments(lhs, rhs) {
		return nil, xerrors.New(op, xerrors.InvariantViolation, "confidential commitment sum mismatch")
	}

	for _, rec := range inputRecords {
		l.outputs.Remove(sess, rec)
	}
	created := make([]*Output, len(outputs))
	for i, o := range outputs {
		created[i] = l.create(sess, o.Owner, symbol, o.Commitment, txID, opIndex, uint32(i), now)
	}
	return created, nil
}
