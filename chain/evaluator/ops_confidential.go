package evaluator

import (
	"aurora-chain/chain/confidential"
	"aurora-chain/chain/store"
	"aurora-chain/chain/types"
	"aurora-chain/chain/xerrors"
)

// TransferToConfidential moves funds from a public liquid balance into a new
// confidential output (spec §4.4). Authorization is the ordinary
// owner/signatory contract since the source leg is a public account.
type TransferToConfidential struct {
	Signer   types.AccountName
	Owner_   types.AccountName
	Symbol   types.AssetSymbol
	Amount   types.Amount
	TxID     types.Hash
	OpIndex  uint32
	Out      confidential.NewOutputSpec
	Blinding types.BlindingFactor
}

func (o TransferToConfidential) Kind() string               { return "transfer_to_confidential" }
func (o TransferToConfidential) Owner() types.AccountName    { return o.Owner_ }
func (o TransferToConfidential) Signatory() types.AccountName { return o.Signer }

func (o TransferToConfidential) apply(ctx *Context, sess *store.Session, now types.Time) error {
	_, err := ctx.Confidential.TransferToConfidential(sess, ctx.Balance, o.Owner_, o.Symbol, o.Amount, o.TxID, o.OpIndex, o.Out, o.Blinding, now)
	return err
}

// TransferFromConfidential spends a confidential output in full and credits
// a public liquid balance (spec §4.4). The output's spend authority is a
// weighted account/key threshold, not a single owning account, so standard
// owner/signatory authorization only covers the Signer being active; the
// actual spend is gated by Authority.Satisfied against the signer sets
// carried on the operation.
type TransferFromConfidential struct {
	Signer        types.AccountName
	To            types.AccountName
	Symbol        types.AssetSymbol
	Input         types.Hash
	Amount        types.Amount
	Fee           types.Amount
	Blinding      types.BlindingFactor
	SignedAccounts map[types.AccountName]bool
	SignedKeys     map[types.Address]bool
}

func (o TransferFromConfidential) Kind() string               { return "transfer_from_confidential" }
func (o TransferFromConfidential) Owner() types.AccountName    { return o.Signer }
func (o TransferFromConfidential) Signatory() types.AccountName { return o.Signer }

func (o TransferFromConfidential) apply(ctx *Context, sess *store.Session, now types.Time) error {
	const op = "evaluator.TransferFromConfidential"
	rec, ok := ctx.Confidential.Find(o.Input)
	if !ok {
		return xerrors.New(op, xerrors.NotFound, "confidential input %x not found", o.Input)
	}
	if !rec.OwnerAuthority.Satisfied(o.SignedAccounts, o.SignedKeys) {
		return xerrors.New(op, xerrors.Unauthorized, "signer set does not satisfy the input's spend authority")
	}
	return ctx.Confidential.TransferFromConfidential(sess, ctx.Balance, o.To, o.Symbol, o.Input, o.Amount, o.Fee, o.Blinding, now)
}

// TransferConfidential moves value between confidential outputs only (spec
// §4.4's fully-shielded variant): every input's spend authority must be
// satisfied by the signer sets carried on the operation.
type TransferConfidential struct {
	Signer         types.AccountName
	Symbol         types.AssetSymbol
	TxID           types.Hash
	OpIndex        uint32
	Inputs         []types.Hash
	Outputs        []confidential.NewOutputSpec
	FeeCommitment  types.Commitment
	SignedAccounts map[types.AccountName]bool
	SignedKeys     map[types.Address]bool
}

func (o TransferConfidential) Kind() string               { return "transfer_confidential" }
func (o TransferConfidential) Owner() types.AccountName    { return o.Signer }
func (o TransferConfidential) Signatory() types.AccountName { return o.Signer }

func (o TransferConfidential) apply(ctx *Context, sess *store.Session, now types.Time) error {
	const op = "evaluator.TransferConfidential"
	for _, h := range o.Inputs {
		rec, ok := ctx.Confidential.Find(h)
		if !ok {
			return xerrors.New(op, xerrors.NotFound, "confidential input %x not found", h)
		}
		if !rec.OwnerAuthority.Satisfied(o.SignedAccounts, o.SignedKeys) {
			return xerrors.New(op, xerrors.Unauthorized, "signer set does not satisfy input %x's spend authority", h)
		}
	}
	_, err := ctx.Confidential.Transfer(sess, o.TxID, o.OpIndex, o.Symbol, o.Inputs, o.Outputs, o.FeeCommitment, now)
	return err
}
