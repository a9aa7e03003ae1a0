package balance

import (
	"testing"

	"aurora-chain/chain/assets"
	"aurora-chain/chain/store"
	"aurora-chain/chain/types"
)

const testSymbol types.AssetSymbol = "AUR"

func newTestEngine(t *testing.T) (*store.Store, *Engine, *assets.Registry) {
	t.Helper()
	st := store.New()
	reg := assets.NewRegistry()
	e := NewEngine(reg, DefaultParams(testSymbol))
	err := store.Run(st, func(sess *store.Session) error {
		_, err := reg.Create(sess, testSymbol, "issuer", assets.Currency, assets.Flags{}, types.Precision, 0)
		return err
	})
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	return st, e, reg
}

func fund(t *testing.T, st *store.Store, e *Engine, account types.AccountName, amount types.Amount) {
	t.Helper()
	err := store.Run(st, func(sess *store.Session) error {
		return e.Adjust(sess, account, testSymbol, Liquid, amount)
	})
	if err != nil {
		t.Fatalf("fund %s: %v", account, err)
	}
}

func TestAdjustRejectsNegativeBalance(t *testing.T) {
	st, e, _ := newTestEngine(t)
	err := store.Run(st, func(sess *store.Session) error {
		return e.Adjust(sess, "alice", testSymbol, Liquid, -100)
	})
	if err == nil {
		t.Fatal("expected insufficient-balance error")
	}
}

func TestAdjustMirrorsAssetPartition(t *testing.T) {
	st, e, reg := newTestEngine(t)
	fund(t, st, e, "alice", 1000)

	dyn, err := reg.Dynamic(testSymbol)
	if err != nil {
		t.Fatalf("dynamic: %v", err)
	}
	if dyn.Liquid != 1000 {
		t.Fatalf("expected liquid partition 1000, got %d", dyn.Liquid)
	}
}

func TestCreateVestingBalanceLocksLiquidFunds(t *testing.T) {
	st, e, reg := newTestEngine(t)
	fund(t, st, e, "alice", 1000)

	err := store.Run(st, func(sess *store.Session) error {
		_, err := e.CreateVestingBalance(sess, "alice", testSymbol, 400, types.Time(5000))
		return err
	})
	if err != nil {
		t.Fatalf("create vesting: %v", err)
	}

	b, _ := e.Find("alice", testSymbol)
	if b.Get(Liquid) != 600 {
		t.Fatalf("expected 600 liquid remaining, got %d", b.Get(Liquid))
	}
	v, ok := e.FindVesting("alice", testSymbol)
	if !ok {
		t.Fatal("expected a vesting balance record")
	}
	if v.Amount != 400 || v.ReleaseTime != types.Time(5000) {
		t.Fatalf("unexpected vesting record: %+v", v)
	}

	dyn, err := reg.Dynamic(testSymbol)
	if err != nil {
		t.Fatalf("dynamic: %v", err)
	}
	if dyn.Vesting != 400 {
		t.Fatalf("expected vesting partition 400, got %d", dyn.Vesting)
	}
}

func TestCreateVestingBalanceTopUpExtendsReleaseTime(t *testing.T) {
	st, e, _ := newTestEngine(t)
	fund(t, st, e, "alice", 1000)

	err := store.Run(st, func(sess *store.Session) error {
		if _, err := e.CreateVestingBalance(sess, "alice", testSymbol, 200, types.Time(1000)); err != nil {
			return err
		}
		_, err := e.CreateVestingBalance(sess, "alice", testSymbol, 100, types.Time(2000))
		return err
	})
	if err != nil {
		t.Fatalf("create vesting: %v", err)
	}

	v, ok := e.FindVesting("alice", testSymbol)
	if !ok {
		t.Fatal("expected a vesting balance record")
	}
	if v.Amount != 300 {
		t.Fatalf("expected topped-up amount 300, got %d", v.Amount)
	}
	if v.ReleaseTime != types.Time(2000) {
		t.Fatalf("expected release time to move later to 2000, got %d", v.ReleaseTime)
	}
}

func TestWithdrawVestingRejectsBeforeRelease(t *testing.T) {
	st, e, _ := newTestEngine(t)
	fund(t, st, e, "alice", 1000)

	err := store.Run(st, func(sess *store.Session) error {
		_, err := e.CreateVestingBalance(sess, "alice", testSymbol, 400, types.Time(5000))
		return err
	})
	if err != nil {
		t.Fatalf("create vesting: %v", err)
	}

	err = store.Run(st, func(sess *store.Session) error {
		return e.WithdrawVesting(sess, "alice", testSymbol, 400, types.Time(4000))
	})
	if err == nil {
		t.Fatal("expected withdrawal before release time to fail")
	}
}

func TestWithdrawVestingReleasesMaturedFunds(t *testing.T) {
	st, e, reg := newTestEngine(t)
	fund(t, st, e, "alice", 1000)

	err := store.Run(st, func(sess *store.Session) error {
		_, err := e.CreateVestingBalance(sess, "alice", testSymbol, 400, types.Time(5000))
		return err
	})
	if err != nil {
		t.Fatalf("create vesting: %v", err)
	}

	err = store.Run(st, func(sess *store.Session) error {
		return e.WithdrawVesting(sess, "alice", testSymbol, 400, types.Time(5000))
	})
	if err != nil {
		t.Fatalf("withdraw vesting: %v", err)
	}

	b, _ := e.Find("alice", testSymbol)
	if b.Get(Liquid) != 1000 {
		t.Fatalf("expected full liquid balance restored, got %d", b.Get(Liquid))
	}
	if _, ok := e.FindVesting("alice", testSymbol); ok {
		t.Fatal("expected vesting record to be removed after full withdrawal")
	}

	dyn, err := reg.Dynamic(testSymbol)
	if err != nil {
		t.Fatalf("dynamic: %v", err)
	}
	if dyn.Vesting != 0 {
		t.Fatalf("expected vesting partition back to 0, got %d", dyn.Vesting)
	}
}

func TestWithdrawVestingPartialLeavesRemainder(t *testing.T) {
	st, e, _ := newTestEngine(t)
	fund(t, st, e, "alice", 1000)

	err := store.Run(st, func(sess *store.Session) error {
		_, err := e.CreateVestingBalance(sess, "alice", testSymbol, 400, types.Time(5000))
		return err
	})
	if err != nil {
		t.Fatalf("create vesting: %v", err)
	}

	err = store.Run(st, func(sess *store.Session) error {
		return e.WithdrawVesting(sess, "alice", testSymbol, 150, types.Time(5000))
	})
	if err != nil {
		t.Fatalf("withdraw vesting: %v", err)
	}

	v, ok := e.FindVesting("alice", testSymbol)
	if !ok {
		t.Fatal("expected remaining vesting record")
	}
	if v.Amount != 250 {
		t.Fatalf("expected 250 remaining vested, got %d", v.Amount)
	}
}
