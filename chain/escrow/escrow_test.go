package escrow

import (
	"testing"

	"aurora-chain/chain/assets"
	"aurora-chain/chain/balance"
	"aurora-chain/chain/store"
	"aurora-chain/chain/types"
)

const testSymbol types.AssetSymbol = "ESC"

func newTestEngine(t *testing.T, mediatorPool []types.AccountName) (*store.Store, *Engine, *balance.Engine, *assets.Registry) {
	t.Helper()
	st := store.New()
	reg := assets.NewRegistry()
	bal := balance.NewEngine(reg, balance.DefaultParams(testSymbol))
	e := NewEngine(reg, bal, DefaultParams, mediatorPool)

	err := store.Run(st, func(sess *store.Session) error {
		if _, err := reg.Create(sess, testSymbol, "issuer", assets.Currency, assets.Flags{}, types.Precision, 0); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	return st, e, bal, reg
}

func fund(t *testing.T, st *store.Store, bal *balance.Engine, account types.AccountName, amount types.Amount) {
	t.Helper()
	err := store.Run(st, func(sess *store.Session) error {
		return bal.Adjust(sess, account, testSymbol, balance.Liquid, amount)
	})
	if err != nil {
		t.Fatalf("fund %s: %v", account, err)
	}
}

func liquid(t *testing.T, bal *balance.Engine, account types.AccountName) types.Amount {
	t.Helper()
	b, ok := bal.Find(account, testSymbol)
	if !ok {
		return 0
	}
	return b.Get(balance.Liquid)
}

// approveAll drives an escrow from Proposed through every base approval,
// funding each approver first.
func approveAll(t *testing.T, st *store.Store, e *Engine, bal *balance.Engine, x *Escrow, fromMediator, toMediator types.AccountName) {
	t.Helper()
	fund(t, st, bal, x.From, x.Payment+x.Bond)
	fund(t, st, bal, x.To, x.Bond)
	fund(t, st, bal, fromMediator, x.Bond)
	fund(t, st, bal, toMediator, x.Bond)

	steps := []func(sess *store.Session) error{
		func(sess *store.Session) error { return e.ApproveFrom(sess, x, fromMediator) },
		func(sess *store.Session) error { return e.ApproveTo(sess, x, toMediator) },
		func(sess *store.Session) error { return e.ApproveFromMediator(sess, x, fromMediator) },
		func(sess *store.Session) error { return e.ApproveToMediator(sess, x, toMediator) },
	}
	for _, step := range steps {
		if err := store.Run(st, step); err != nil {
			t.Fatalf("approval step failed: %v", err)
		}
	}
}

func TestHappyPathRelease(t *testing.T) {
	st, e, bal, _ := newTestEngine(t, nil)

	var x *Escrow
	err := store.Run(st, func(sess *store.Session) error {
		var err error
		x, err = e.Propose(sess, "alice", "bob", 1, testSymbol, 1000_00000000, types.Time(1000), types.Time(2000))
		return err
	})
	if err != nil {
		t.Fatalf("propose: %v", err)
	}

	approveAll(t, st, e, bal, x, "mediator_from", "mediator_to")
	if x.State != Active {
		t.Fatalf("expected Active after all four approvals, got %v", x.State)
	}
	if x.Balance != x.Payment+4*x.Bond {
		t.Fatalf("balance invariant violated: got %d, want %d", x.Balance, x.Payment+4*x.Bond)
	}

	err = store.Run(st, func(sess *store.Session) error {
		return e.Release(sess, x, "alice", 10000, types.Time(1500))
	})
	if err != nil {
		t.Fatalf("release: %v", err)
	}

	if got, want := liquid(t, bal, "bob"), 1000_00000000+x.Bond; got != want {
		t.Errorf("bob should receive the full payment plus its reclaimed bond, got %d want %d", got, want)
	}
	for _, approver := range []types.AccountName{"alice", "mediator_from", "mediator_to"} {
		if got := liquid(t, bal, approver); got != x.Bond {
			t.Errorf("%s should reclaim its bond, got %d want %d", approver, got, x.Bond)
		}
	}
	if _, ok := e.byEscrowID.Find(1); ok {
		t.Error("escrow record should be removed after release")
	}
}

func TestCancelWhileProposedRefundsPartialApprovals(t *testing.T) {
	st, e, bal, _ := newTestEngine(t, nil)

	var x *Escrow
	err := store.Run(st, func(sess *store.Session) error {
		var err error
		x, err = e.Propose(sess, "alice", "bob", 2, testSymbol, 500_00000000, types.Time(1000), types.Time(2000))
		return err
	})
	if err != nil {
		t.Fatalf("propose: %v", err)
	}

	fund(t, st, bal, "alice", x.Payment+x.Bond)
	err = store.Run(st, func(sess *store.Session) error {
		return e.ApproveFrom(sess, x, "mediator_from")
	})
	if err != nil {
		t.Fatalf("approve from: %v", err)
	}
	if x.State != Approving {
		t.Fatalf("expected Approving after one approval, got %v", x.State)
	}

	err = store.Run(st, func(sess *store.Session) error {
		return e.Cancel(sess, x, "bob")
	})
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if got := liquid(t, bal, "alice"); got != x.Payment+x.Bond {
		t.Errorf("alice should be refunded in full, got %d want %d", got, x.Payment+x.Bond)
	}
}

func TestDisputeResolutionByMedian(t *testing.T) {
	mediatorPool := []types.AccountName{"m1", "m2", "m3"}
	st, e, bal, _ := newTestEngine(t, mediatorPool)
	e.params.DisputeMediatorAmount = 3

	var x *Escrow
	err := store.Run(st, func(sess *store.Session) error {
		var err error
		x, err = e.Propose(sess, "alice", "bob", 3, testSymbol, 1000_00000000, types.Time(1000), types.Time(2000))
		return err
	})
	if err != nil {
		t.Fatalf("propose: %v", err)
	}
	approveAll(t, st, e, bal, x, "fmed", "tmed")

	err = store.Run(st, func(sess *store.Session) error {
		return e.Dispute(sess, x, "alice", types.Time(1100))
	})
	if err != nil {
		t.Fatalf("dispute: %v", err)
	}
	if x.State != Disputed {
		t.Fatalf("expected Disputed, got %v", x.State)
	}

	for _, m := range mediatorPool {
		fund(t, st, bal, m, x.Bond)
		account := m
		if err := store.Run(st, func(sess *store.Session) error {
			return e.ApproveDisputeMediator(sess, x, account)
		}); err != nil {
			t.Fatalf("dispute mediator approve %s: %v", m, err)
		}
	}

	votes := map[types.AccountName]uint32{
		"alice": 0,
		"bob":   10000,
		"fmed":  2500,
		"tmed":  7500,
		"m1":    2000,
		"m2":    5000,
		"m3":    8000,
	}
	for account, pct := range votes {
		account, pct := account, pct
		if err := store.Run(st, func(sess *store.Session) error {
			return e.SubmitReleaseVote(sess, x, account, pct)
		}); err != nil {
			t.Fatalf("submit vote %s: %v", account, err)
		}
	}

	err = store.Run(st, func(sess *store.Session) error {
		return e.ResolveDispute(sess, x, x.DisputeReleaseTime)
	})
	if err != nil {
		t.Fatalf("resolve dispute: %v", err)
	}

	// median=5000bps splits the payment in half. Tolerance band is
	// [4000,6000]: alice(0), fmed(2500), and m1(2000) voted below it and
	// forfeit their bonds to bob; bob(10000), tmed(7500), and m3(8000)
	// voted above it and forfeit their bonds to alice; only m2(5000) falls
	// inside the band and reclaims its own bond.
	half := x.Payment / 2
	if got, want := liquid(t, bal, "bob"), half+3*x.Bond; got != want {
		t.Errorf("bob should receive half the payment plus three forfeited bonds, got %d want %d", got, want)
	}
	if got, want := liquid(t, bal, "alice"), half+3*x.Bond; got != want {
		t.Errorf("alice should receive half the payment back plus three forfeited bonds, got %d want %d", got, want)
	}
	if got := liquid(t, bal, "m2"); got != x.Bond {
		t.Errorf("m2 voted within tolerance and should reclaim its own bond, got %d want %d", got, x.Bond)
	}
	for _, forfeiter := range []types.AccountName{"fmed", "tmed", "m1", "m3"} {
		if got := liquid(t, bal, forfeiter); got != 0 {
			t.Errorf("%s forfeited its bond and should hold nothing, got %d", forfeiter, got)
		}
	}
}

func TestExpireUnacceptedAutoRefunds(t *testing.T) {
	st, e, bal, _ := newTestEngine(t, nil)

	var x *Escrow
	err := store.Run(st, func(sess *store.Session) error {
		var err error
		x, err = e.Propose(sess, "alice", "bob", 4, testSymbol, 200_00000000, types.Time(1000), types.Time(5000))
		return err
	})
	if err != nil {
		t.Fatalf("propose: %v", err)
	}
	fund(t, st, bal, "alice", x.Payment+x.Bond)
	err = store.Run(st, func(sess *store.Session) error {
		return e.ApproveFrom(sess, x, "mediator_from")
	})
	if err != nil {
		t.Fatalf("approve from: %v", err)
	}

	err = store.Run(st, func(sess *store.Session) error {
		return e.ExpireUnaccepted(sess, types.Time(1001))
	})
	if err != nil {
		t.Fatalf("expire unaccepted: %v", err)
	}
	if got := liquid(t, bal, "alice"); got != x.Payment+x.Bond {
		t.Errorf("alice's deposit should be auto-refunded, got %d want %d", got, x.Payment+x.Bond)
	}
	if _, ok := e.byEscrowID.Find(4); ok {
		t.Error("escrow should be removed once acceptance time lapses")
	}
}
