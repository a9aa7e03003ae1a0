package confidential

import (
	"aurora-chain/chain/assets"
	"aurora-chain/chain/balance"
	"aurora-chain/chain/store"
	"aurora-chain/chain/types"
	"aurora-chain/chain/xerrors"
)

// TransferToConfidential moves amount from owner's public liquid
// compartment into a brand new confidential output, raising
// confidential_supply by amount (spec §4.4: "the variant that includes
// public in/out legs").
func (l *Ledger) TransferToConfidential(sess *store.Session, bal *balance.Engine, owner types.AccountName, symbol types.AssetSymbol, amount types.Amount, txID types.Hash, opIndex uint32, out NewOutputSpec, blinding types.BlindingFactor, now types.Time) (*Output, error) {
	const op = "confidential.TransferToConfidential"
	if amount <= 0 {
		return nil, xerrors.New(op, xerrors.Invalid, "amount must be positive")
	}
	if err := l.checkAssetEligible(symbol); err != nil {
		return nil, err
	}
	if !out.Owner.WellFormed() {
		return nil, xerrors.New(op, xerrors.Invalid, "malformed output authority")
	}
	if !EqualCommitments(out.Commitment, Commit(amount, blinding)) {
		return nil, xerrors.New(op, xerrors.InvariantViolation, "output commitment does not open to the declared amount")
	}

	if err := bal.Adjust(sess, owner, symbol, balance.Liquid, -amount); err != nil {
		return nil, err
	}
	if err := l.assets.AdjustPartition(sess, symbol, assets.PartitionConfidential, amount); err != nil {
		return nil, err
	}
	return l.create(sess, out.Owner, symbol, out.Commitment, txID, opIndex, 0, now), nil
}

// TransferFromConfidential consumes the given confidential input in full and
// credits to's public liquid compartment with amount, lowering
// confidential_supply by amount+fee and adding fee to the fee partition.
func (l *Ledger) TransferFromConfidential(sess *store.Session, bal *balance.Engine, to types.AccountName, symbol types.AssetSymbol, input types.Hash, amount, fee types.Amount, blinding types.BlindingFactor, now types.Time) error {
	const op = "confidential.TransferFromConfidential"
	if amount <= 0 {
		return xerrors.New(op, xerrors.Invalid, "amount must be positive")
	}
	if err := l.checkAssetEligible(symbol); err != nil {
		return err
	}
	rec, ok := l.byHash.Find(input)
	if !ok {
		return xerrors.New(op, xerrors.NotFound, "confidential input %x not found", input)
	}
	if rec.Symbol != symbol {
		return xerrors.New(op, xerrors.Invalid, "confidential input asset mismatch")
	}
	if !EqualCommitments(rec.Commitment, Commit(amount+fee, blinding)) {
		return xerrors.New(op, xerrors.InvariantViolation, "input commitment does not open to amount+fee")
	}

	l.outputs.Remove(sess, rec)
	if err := l.assets.AdjustPartition(sess, symbol, assets.PartitionConfidential, -(amount + fee)); err != nil {
		return err
	}
	if err := bal.Adjust(sess, to, symbol, balance.Liquid, amount); err != nil {
		return err
	}
	if fee > 0 {
		if err := l.assets.AdjustPartition(sess, symbol, assets.PartitionFees, fee); err != nil {
			return err
		}
	}
	return nil
}
