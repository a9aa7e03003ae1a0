package evaluator

import (
	"testing"

	"aurora-chain/chain/assets"
	"aurora-chain/chain/balance"
	"aurora-chain/chain/credit"
	"aurora-chain/chain/escrow"
	"aurora-chain/chain/feed"
	"aurora-chain/chain/pool"
	"aurora-chain/chain/store"
	"aurora-chain/chain/transfer"
	"aurora-chain/chain/types"
	"aurora-chain/chain/xerrors"
)

const (
	core  types.AssetSymbol = "CORE"
	usd   types.AssetSymbol = "USD"
	gold  types.AssetSymbol = "GOLD"
	share types.AssetSymbol = "GOLDUSD"
	csh   types.AssetSymbol = "CSH" // credit-pool share asset
)

// harness bundles every engine a test needs plus the Context wiring them
// into the evaluator, built with only the pieces a given test exercises
// left non-nil.
type harness struct {
	st      *store.Store
	reg     *assets.Registry
	bal     *balance.Engine
	pools   *pool.Engine
	credit  *credit.Engine
	loans   *credit.LoanBook
	feeds   *feed.Publishers
	ctx     *Context
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{st: store.New()}
	h.reg = assets.NewRegistry()
	h.bal = balance.NewEngine(h.reg, balance.DefaultParams(core))
	h.pools = pool.NewEngine(h.reg, h.bal, core, usd)
	h.credit = credit.NewEngine(h.reg, h.bal, credit.DefaultParams)
	h.loans = credit.NewLoanBook(h.reg, h.bal)
	h.feeds = feed.NewPublishers()

	xfer := transfer.NewEngine(h.reg, h.bal, nil)
	requests := transfer.NewRequestBook()
	recurring := transfer.NewRecurringBook()
	recurringRequests := transfer.NewRecurringRequestBook()

	err := store.Run(h.st, func(sess *store.Session) error {
		for _, sym := range []types.AssetSymbol{core, usd, gold, share, csh} {
			if _, err := h.reg.Create(sess, sym, "issuer", assets.Currency, assets.Flags{}, types.Precision, 0); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("setup assets: %v", err)
	}

	h.ctx = NewContext(
		h.reg, h.bal, nil,
		xfer, requests, recurring, recurringRequests,
		h.pools,
		h.credit, h.loans,
		nil, nil, nil, nil, nil, nil,
		h.feeds, 3600,
		escrow.NewEngine(h.reg, h.bal, escrow.DefaultParams, nil),
		nil,
		nil,
	)
	return h
}

func (h *harness) fund(t *testing.T, account types.AccountName, symbol types.AssetSymbol, amount types.Amount) {
	t.Helper()
	err := store.Run(h.st, func(sess *store.Session) error {
		return h.bal.Adjust(sess, account, symbol, balance.Liquid, amount)
	})
	if err != nil {
		t.Fatalf("fund %s %s: %v", account, symbol, err)
	}
}

func (h *harness) liquid(account types.AccountName, symbol types.AssetSymbol) types.Amount {
	b, ok := h.bal.Find(account, symbol)
	if !ok {
		return 0
	}
	return b.Get(balance.Liquid)
}

func TestTransferMovesLiquidBalance(t *testing.T) {
	h := newHarness(t)
	h.fund(t, "alice", core, 1000_00000000)

	err := store.Run(h.st, func(sess *store.Session) error {
		return Apply(h.ctx, sess, Transfer{Signer: "alice", From: "alice", To: "bob", Symbol: core, Amount: 100_00000000}, types.Time(1000))
	})
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if got, want := h.liquid("alice", core), types.Amount(900_00000000); got != want {
		t.Errorf("alice balance = %d, want %d", got, want)
	}
	if got, want := h.liquid("bob", core), types.Amount(100_00000000); got != want {
		t.Errorf("bob balance = %d, want %d", got, want)
	}
}

func TestTransferRejectsUnauthorizedSignatory(t *testing.T) {
	h := newHarness(t)
	h.fund(t, "alice", core, 1000_00000000)

	err := store.Run(h.st, func(sess *store.Session) error {
		return Apply(h.ctx, sess, Transfer{Signer: "mallory", From: "alice", To: "bob", Symbol: core, Amount: 1_00000000}, types.Time(1000))
	})
	if !xerrors.Is(err, xerrors.Unauthorized) {
		t.Fatalf("expected Unauthorized, got %v", err)
	}
	if got := h.liquid("alice", core); got != 1000_00000000 {
		t.Errorf("alice balance should be unchanged, got %d", got)
	}
}

func TestApplyTransactionRollsBackOnLaterOpFailure(t *testing.T) {
	h := newHarness(t)
	h.fund(t, "alice", core, 1000_00000000)

	ops := []Operation{
		Transfer{Signer: "alice", From: "alice", To: "bob", Symbol: core, Amount: 100_00000000},
		Transfer{Signer: "alice", From: "alice", To: "bob", Symbol: core, Amount: 10_000_00000000}, // exceeds alice's remaining balance
	}
	receipts, err := ApplyTransaction(h.ctx, h.st, ops, 0, types.Time(1000))
	if err == nil {
		t.Fatal("expected the transaction to fail")
	}
	if receipts[0].Err != nil {
		t.Errorf("first op receipt should record success before the rollback, got %v", receipts[0].Err)
	}
	if receipts[1].Err == nil {
		t.Error("second op receipt should record the failure")
	}
	if got := h.liquid("alice", core); got != 1000_00000000 {
		t.Errorf("the whole transaction should have unwound, alice balance = %d", got)
	}
	if got := h.liquid("bob", core); got != 0 {
		t.Errorf("the whole transaction should have unwound, bob balance = %d", got)
	}
}

func TestLiquidityPoolCreateAndExchange(t *testing.T) {
	h := newHarness(t)
	h.fund(t, "founder", gold, 1000_00000000)
	h.fund(t, "founder", usd, 2000_00000000)
	h.fund(t, "trader", usd, 100_00000000)

	err := store.Run(h.st, func(sess *store.Session) error {
		return Apply(h.ctx, sess, LiquidityPoolCreate{
			Signer: "founder", Founder: "founder",
			X: gold, Y: usd, LiquidSymbol: share,
			InitialA: 1000_00000000, InitialB: 2000_00000000,
			FeeBps: 30,
		}, types.Time(1000))
	})
	if err != nil {
		t.Fatalf("pool create: %v", err)
	}

	err = store.Run(h.st, func(sess *store.Session) error {
		return Apply(h.ctx, sess, LiquidityPoolExchange{
			Signer: "trader", Trader: "trader",
			InputSymbol: usd, OutputSymbol: gold,
			InputAmount: 100_00000000,
		}, types.Time(1001))
	})
	if err != nil {
		t.Fatalf("pool exchange: %v", err)
	}
	if got := h.liquid("trader", gold); got <= 0 {
		t.Errorf("trader should have received gold out of the pool, got %d", got)
	}
	if got := h.liquid("trader", usd); got != 0 {
		t.Errorf("trader should have spent their entire usd balance, got %d", got)
	}
}

func TestCreditPoolBorrowAccrueRepay(t *testing.T) {
	h := newHarness(t)
	err := store.Run(h.st, func(sess *store.Session) error {
		_, err := h.credit.Create(sess, usd, csh)
		return err
	})
	if err != nil {
		t.Fatalf("credit pool create: %v", err)
	}

	h.fund(t, "lender", usd, 1000_00000000)
	err = store.Run(h.st, func(sess *store.Session) error {
		return Apply(h.ctx, sess, CreditPoolLend{Signer: "lender", Lender: "lender", Base: usd, Amount: 1000_00000000}, types.Time(1000))
	})
	if err != nil {
		t.Fatalf("lend: %v", err)
	}

	h.fund(t, "borrower", gold, 10_00000000)
	err = store.Run(h.st, func(sess *store.Session) error {
		return Apply(h.ctx, sess, CreditPoolCollateral{Signer: "borrower", Owner_: "borrower", Symbol: gold, Amount: 10_00000000}, types.Time(1000))
	})
	if err != nil {
		t.Fatalf("deposit collateral: %v", err)
	}

	// 1 GOLD = 100 USD, so 10 GOLD collateral backs a 500 USD loan comfortably.
	h.ctx.Feeds.SetProducers(gold, feed.NewProducerSet([]feed.Publisher{{Account: "oracle", Weight: 1}}))
	if err := h.feeds.Publish(gold, "oracle", types.Price{Base: types.NewAsset(1_00000000, gold), Quote: types.NewAsset(100_00000000, usd)}, types.Time(1000)); err != nil {
		t.Fatalf("publish feed: %v", err)
	}

	err = store.Run(h.st, func(sess *store.Session) error {
		return Apply(h.ctx, sess, CreditPoolBorrow{
			Signer: "borrower", Owner_: "borrower", Base: usd, LoanID: 1,
			CollateralSymbol: gold, CollateralAmount: 10_00000000, DebtAmount: 500_00000000,
		}, types.Time(1000))
	})
	if err != nil {
		t.Fatalf("borrow: %v", err)
	}
	if got := h.liquid("borrower", usd); got != 500_00000000 {
		t.Errorf("borrower should hold the drawn debt, got %d", got)
	}

	err = store.Run(h.st, func(sess *store.Session) error {
		return RunMaintenance(h.ctx, sess, types.Time(1000+3_600_000_000))
	})
	if err != nil {
		t.Fatalf("maintenance: %v", err)
	}
	loan, ok := h.loans.Find("borrower", 1)
	if !ok {
		t.Fatal("loan should still be open")
	}
	if loan.Interest <= 0 {
		t.Errorf("an hour's interest should have accrued, got %d", loan.Interest)
	}

	h.fund(t, "borrower", usd, 10_00000000)
	err = store.Run(h.st, func(sess *store.Session) error {
		return Apply(h.ctx, sess, CreditPoolRepay{Signer: "borrower", Owner_: "borrower", Base: usd, LoanID: 1, Amount: 510_00000000}, types.Time(1000+3_600_000_000))
	})
	if err != nil {
		t.Fatalf("repay: %v", err)
	}
	if _, ok := h.loans.Find("borrower", 1); ok {
		t.Error("loan should be closed after a full repayment")
	}
}

func TestMaintenanceLiquidatesUnderwaterLoan(t *testing.T) {
	h := newHarness(t)
	err := store.Run(h.st, func(sess *store.Session) error {
		_, err := h.credit.Create(sess, usd, csh)
		return err
	})
	if err != nil {
		t.Fatalf("credit pool create: %v", err)
	}

	h.fund(t, "lender", usd, 1000_00000000)
	err = store.Run(h.st, func(sess *store.Session) error {
		_, err := h.credit.Lend(sess, "lender", mustFindCreditPool(t, h, usd), 1000_00000000)
		return err
	})
	if err != nil {
		t.Fatalf("lend: %v", err)
	}

	h.fund(t, "borrower", gold, 10_00000000)
	err = store.Run(h.st, func(sess *store.Session) error {
		return h.loans.DepositCollateral(sess, "borrower", gold, 10_00000000)
	})
	if err != nil {
		t.Fatalf("deposit collateral: %v", err)
	}

	h.ctx.Feeds.SetProducers(gold, feed.NewProducerSet([]feed.Publisher{{Account: "oracle", Weight: 1}}))
	openPrice := types.Price{Base: types.NewAsset(1_00000000, gold), Quote: types.NewAsset(100_00000000, usd)}
	if err := h.feeds.Publish(gold, "oracle", openPrice, types.Time(1000)); err != nil {
		t.Fatalf("publish feed: %v", err)
	}
	err = store.Run(h.st, func(sess *store.Session) error {
		_, err := h.loans.Borrow(sess, h.credit, "borrower", mustFindCreditPool(t, h, usd), 1, gold, 10_00000000, 500_00000000, openPrice, types.Time(1000))
		return err
	})
	if err != nil {
		t.Fatalf("borrow: %v", err)
	}

	// Gold craters to 40 USD/oz: 10oz collateral (400 USD) no longer covers the 500 USD debt.
	crashPrice := types.Price{Base: types.NewAsset(1_00000000, gold), Quote: types.NewAsset(40_00000000, usd)}
	if err := h.feeds.Publish(gold, "oracle", crashPrice, types.Time(2000)); err != nil {
		t.Fatalf("publish crash feed: %v", err)
	}

	err = store.Run(h.st, func(sess *store.Session) error {
		return RunMaintenance(h.ctx, sess, types.Time(2000))
	})
	if err != nil {
		t.Fatalf("maintenance: %v", err)
	}
	if _, ok := h.loans.Find("borrower", 1); ok {
		t.Error("the underwater loan should have been liquidated during maintenance")
	}
}

func mustFindCreditPool(t *testing.T, h *harness, base types.AssetSymbol) *credit.Pool {
	t.Helper()
	p, ok := h.credit.Find(base)
	if !ok {
		t.Fatalf("no credit pool for %s", base)
	}
	return p
}
