package evaluator

import (
	"time"

	"aurora-chain/chain/store"
	"aurora-chain/chain/transfer"
	"aurora-chain/chain/types"
	"aurora-chain/chain/xerrors"
)

// Transfer is the immediate-transfer operation (spec §4.5).
type Transfer struct {
	Signer types.AccountName
	From   types.AccountName
	To     types.AccountName
	Symbol types.AssetSymbol
	Amount types.Amount
	Memo   string
}

func (o Transfer) Kind() string               { return "transfer" }
func (o Transfer) Owner() types.AccountName    { return o.From }
func (o Transfer) Signatory() types.AccountName { return o.Signer }

func (o Transfer) apply(ctx *Context, sess *store.Session, now types.Time) error {
	return ctx.Transfer.Transfer(sess, o.From, o.To, o.Symbol, o.Amount, o.Memo)
}

// TransferRequest is the receiver-proposed pending transfer (spec §4.5,
// "Request"). The owner is the proposer (To): they alone can later cancel
// it, and no funds move until TransferAccept.
type TransferRequest struct {
	Signer    types.AccountName
	From      types.AccountName
	To        types.AccountName
	Symbol    types.AssetSymbol
	Amount    types.Amount
	Memo      string
	RequestID uint64
	Duration  time.Duration
}

func (o TransferRequest) Kind() string               { return "transfer_request" }
func (o TransferRequest) Owner() types.AccountName    { return o.To }
func (o TransferRequest) Signatory() types.AccountName { return o.Signer }

func (o TransferRequest) apply(ctx *Context, sess *store.Session, now types.Time) error {
	duration := o.Duration
	if duration == 0 {
		duration = transfer.DefaultRequestDuration
	}
	_, err := ctx.Requests.Propose(sess, o.From, o.To, o.Symbol, o.Amount, o.Memo, o.RequestID, duration, now)
	return err
}

// TransferAccept fulfils a pending TransferRequest. The owner is From, the
// payer whose consent the accept actually spends.
type TransferAccept struct {
	Signer    types.AccountName
	From      types.AccountName
	To        types.AccountName
	RequestID uint64
}

func (o TransferAccept) Kind() string               { return "transfer_accept" }
func (o TransferAccept) Owner() types.AccountName    { return o.From }
func (o TransferAccept) Signatory() types.AccountName { return o.Signer }

func (o TransferAccept) apply(ctx *Context, sess *store.Session, now types.Time) error {
	const op = "evaluator.TransferAccept"
	req, ok := ctx.Requests.Find(o.To, o.RequestID)
	if !ok {
		return xerrors.New(op, xerrors.NotFound, "no pending request %d for %s", o.RequestID, o.To)
	}
	if req.From != o.From {
		return xerrors.New(op, xerrors.Invalid, "request %d for %s is not payable by %s", o.RequestID, o.To, o.From)
	}
	return ctx.Transfer.Accept(sess, ctx.Requests, o.To, o.RequestID, now)
}

// TransferRecurring opens a sender-authored recurring schedule directly
// (spec §4.5, "Recurring").
type TransferRecurring struct {
	Signer     types.AccountName
	From       types.AccountName
	To         types.AccountName
	Symbol     types.AssetSymbol
	Amount     types.Amount
	Memo       string
	ContractID uint64
	Begin      types.Time
	Interval   time.Duration
	Payments   uint32
	Extensible bool
	FillOrKill bool
}

func (o TransferRecurring) Kind() string               { return "transfer_recurring" }
func (o TransferRecurring) Owner() types.AccountName    { return o.From }
func (o TransferRecurring) Signatory() types.AccountName { return o.Signer }

func (o TransferRecurring) apply(ctx *Context, sess *store.Session, now types.Time) error {
	_, err := ctx.Recurring.Begin(sess, o.From, o.To, o.Symbol, o.Amount, o.Memo, o.ContractID, o.Begin, o.Interval, o.Payments, o.Extensible, o.FillOrKill)
	return err
}

// TransferRecurringCancel withdraws an active recurring schedule.
type TransferRecurringCancel struct {
	Signer     types.AccountName
	From       types.AccountName
	ContractID uint64
}

func (o TransferRecurringCancel) Kind() string               { return "transfer_recurring_cancel" }
func (o TransferRecurringCancel) Owner() types.AccountName    { return o.From }
func (o TransferRecurringCancel) Signatory() types.AccountName { return o.Signer }

func (o TransferRecurringCancel) apply(ctx *Context, sess *store.Session, now types.Time) error {
	return ctx.Recurring.Cancel(sess, o.From, o.ContractID)
}

// TransferRecurringRequest is the receiver-proposed counterpart of
// TransferRecurring: To proposes the schedule's terms, From accepts to open
// it (spec §6).
type TransferRecurringRequest struct {
	Signer     types.AccountName
	From       types.AccountName
	To         types.AccountName
	Symbol     types.AssetSymbol
	Amount     types.Amount
	Memo       string
	ContractID uint64
	Begin      types.Time
	Interval   time.Duration
	Payments   uint32
	Extensible bool
	FillOrKill bool
	Duration   time.Duration
}

func (o TransferRecurringRequest) Kind() string               { return "transfer_recurring_request" }
func (o TransferRecurringRequest) Owner() types.AccountName    { return o.To }
func (o TransferRecurringRequest) Signatory() types.AccountName { return o.Signer }

func (o TransferRecurringRequest) apply(ctx *Context, sess *store.Session, now types.Time) error {
	duration := o.Duration
	if duration == 0 {
		duration = transfer.DefaultRequestDuration
	}
	_, err := ctx.RecurringRequest.Propose(sess, o.From, o.To, o.Symbol, o.Amount, o.Memo, o.ContractID, o.Begin, o.Interval, o.Payments, o.Extensible, o.FillOrKill, duration, now)
	return err
}

// TransferRecurringAccept fulfils a pending TransferRecurringRequest.
type TransferRecurringAccept struct {
	Signer     types.AccountName
	From       types.AccountName
	To         types.AccountName
	ContractID uint64
}

func (o TransferRecurringAccept) Kind() string               { return "transfer_recurring_accept" }
func (o TransferRecurringAccept) Owner() types.AccountName    { return o.From }
func (o TransferRecurringAccept) Signatory() types.AccountName { return o.Signer }

func (o TransferRecurringAccept) apply(ctx *Context, sess *store.Session, now types.Time) error {
	const op = "evaluator.TransferRecurringAccept"
	req, ok := ctx.RecurringRequest.Find(o.From, o.ContractID)
	if !ok {
		return xerrors.New(op, xerrors.NotFound, "no pending recurring request %d for %s", o.ContractID, o.From)
	}
	if req.To != o.To {
		return xerrors.New(op, xerrors.Invalid, "recurring request %d for %s does not belong to %s", o.ContractID, o.From, o.To)
	}
	_, err := ctx.RecurringRequest.Accept(sess, ctx.Recurring, o.From, o.ContractID, now)
	return err
}

// TransferToSavings moves liquid funds into the savings compartment (spec
// §4.3.3).
type TransferToSavings struct {
	Signer types.AccountName
	Owner_ types.AccountName
	Symbol types.AssetSymbol
	Amount types.Amount
}

func (o TransferToSavings) Kind() string               { return "transfer_to_savings" }
func (o TransferToSavings) Owner() types.AccountName    { return o.Owner_ }
func (o TransferToSavings) Signatory() types.AccountName { return o.Signer }

func (o TransferToSavings) apply(ctx *Context, sess *store.Session, now types.Time) error {
	return ctx.Balance.TransferToSavings(sess, o.Owner_, o.Symbol, o.Amount)
}

// TransferFromSavings requests a delayed savings withdrawal (spec §4.3.3).
type TransferFromSavings struct {
	Signer    types.AccountName
	From      types.AccountName
	To        types.AccountName
	Symbol    types.AssetSymbol
	Amount    types.Amount
	RequestID uint64
	Memo      string
}

func (o TransferFromSavings) Kind() string               { return "transfer_from_savings" }
func (o TransferFromSavings) Owner() types.AccountName    { return o.From }
func (o TransferFromSavings) Signatory() types.AccountName { return o.Signer }

func (o TransferFromSavings) apply(ctx *Context, sess *store.Session, now types.Time) error {
	_, err := ctx.Balance.TransferFromSavings(sess, o.From, o.To, o.Symbol, o.Amount, o.RequestID, o.Memo, now)
	return err
}

// StakeAsset begins a staking tranche schedule (spec §4.3.2).
type StakeAsset struct {
	Signer types.AccountName
	From   types.AccountName
	To     types.AccountName
	Symbol types.AssetSymbol
	Amount types.Amount
}

func (o StakeAsset) Kind() string               { return "stake_asset" }
func (o StakeAsset) Owner() types.AccountName    { return o.From }
func (o StakeAsset) Signatory() types.AccountName { return o.Signer }

func (o StakeAsset) apply(ctx *Context, sess *store.Session, now types.Time) error {
	return ctx.Balance.StakeAsset(sess, o.From, o.To, o.Symbol, o.Amount, now)
}

// UnstakeAsset begins an unstaking tranche schedule (spec §4.3.2).
type UnstakeAsset struct {
	Signer types.AccountName
	From   types.AccountName
	Symbol types.AssetSymbol
	Amount types.Amount
}

func (o UnstakeAsset) Kind() string               { return "unstake_asset" }
func (o UnstakeAsset) Owner() types.AccountName    { return o.From }
func (o UnstakeAsset) Signatory() types.AccountName { return o.Signer }

func (o UnstakeAsset) apply(ctx *Context, sess *store.Session, now types.Time) error {
	return ctx.Balance.UnstakeAsset(sess, o.From, o.Symbol, o.Amount, now)
}

// UnstakeAssetRoute declares a standing route for a percentage of future
// unstake tranches (spec §3.7).
type UnstakeAssetRoute struct {
	Signer     types.AccountName
	From       types.AccountName
	To         types.AccountName
	Symbol     types.AssetSymbol
	PercentBps uint32
	AutoStake  bool
}

func (o UnstakeAssetRoute) Kind() string               { return "unstake_asset_route" }
func (o UnstakeAssetRoute) Owner() types.AccountName    { return o.From }
func (o UnstakeAssetRoute) Signatory() types.AccountName { return o.Signer }

func (o UnstakeAssetRoute) apply(ctx *Context, sess *store.Session, now types.Time) error {
	_, err := ctx.Balance.AddUnstakeRoute(sess, o.From, o.To, o.Symbol, o.PercentBps, o.AutoStake)
	return err
}

// DelegateAsset delegates staked voting power to another account (spec
// §4.3.4).
type DelegateAsset struct {
	Signer     types.AccountName
	Delegator  types.AccountName
	Delegatee  types.AccountName
	Symbol     types.AssetSymbol
	AmountNew  types.Amount
}

func (o DelegateAsset) Kind() string               { return "delegate_asset" }
func (o DelegateAsset) Owner() types.AccountName    { return o.Delegator }
func (o DelegateAsset) Signatory() types.AccountName { return o.Signer }

func (o DelegateAsset) apply(ctx *Context, sess *store.Session, now types.Time) error {
	return ctx.Balance.Delegate(sess, o.Delegator, o.Delegatee, o.Symbol, o.AmountNew, now)
}

// ClaimRewardBalance moves reward-compartment funds into liquid (spec §6). A
// zero Amount claims the full reward balance.
type ClaimRewardBalance struct {
	Signer types.AccountName
	Owner_ types.AccountName
	Symbol types.AssetSymbol
	Amount types.Amount
}

func (o ClaimRewardBalance) Kind() string               { return "claim_reward_balance" }
func (o ClaimRewardBalance) Owner() types.AccountName    { return o.Owner_ }
func (o ClaimRewardBalance) Signatory() types.AccountName { return o.Signer }

func (o ClaimRewardBalance) apply(ctx *Context, sess *store.Session, now types.Time) error {
	return ctx.Balance.ClaimReward(sess, o.Owner_, o.Symbol, o.Amount)
}

// CreateVestingBalance locks liquid funds into a time-locked vesting balance
// that releases at ReleaseTime (original account_vesting_balance_object,
// supplemented from the original_source/ C++ since the distilled spec never
// named this compartment).
type CreateVestingBalance struct {
	Signer      types.AccountName
	Owner_      types.AccountName
	Symbol      types.AssetSymbol
	Amount      types.Amount
	ReleaseTime types.Time
}

func (o CreateVestingBalance) Kind() string               { return "create_vesting_balance" }
func (o CreateVestingBalance) Owner() types.AccountName    { return o.Owner_ }
func (o CreateVestingBalance) Signatory() types.AccountName { return o.Signer }

func (o CreateVestingBalance) apply(ctx *Context, sess *store.Session, now types.Time) error {
	_, err := ctx.Balance.CreateVestingBalance(sess, o.Owner_, o.Symbol, o.Amount, o.ReleaseTime)
	return err
}

// WithdrawVestingBalance releases matured vesting funds back to liquid.
type WithdrawVestingBalance struct {
	Signer types.AccountName
	Owner_ types.AccountName
	Symbol types.AssetSymbol
	Amount types.Amount
}

func (o WithdrawVestingBalance) Kind() string               { return "withdraw_vesting_balance" }
func (o WithdrawVestingBalance) Owner() types.AccountName    { return o.Owner_ }
func (o WithdrawVestingBalance) Signatory() types.AccountName { return o.Signer }

func (o WithdrawVestingBalance) apply(ctx *Context, sess *store.Session, now types.Time) error {
	return ctx.Balance.WithdrawVesting(sess, o.Owner_, o.Symbol, o.Amount, now)
}
