package txsign

import (
	"testing"

	"aurora-chain/chain/crypto"
	"aurora-chain/chain/evaluator"
	"aurora-chain/chain/types"
)

func TestSignAndVerifyRoundTrip(t *testing.T) {
	priv, _, err := crypto.GenerateDilithiumKeyPair()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	ops := []evaluator.Operation{
		evaluator.Transfer{Signer: "alice", From: "alice", To: "bob", Symbol: "CORE", Amount: 500_00000000, Memo: "invoice #9"},
	}

	env, err := Sign(ops, types.Time(2000), crypto.SigAlgDilithium, priv.Bytes())
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	ok, err := env.Verify()
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !ok {
		t.Fatal("expected signature to verify")
	}
	if env.Expiration() != types.Time(2000) {
		t.Fatalf("expiration round-trip mismatch: got %d", env.Expiration())
	}
	if env.NumOps() != 1 || env.Kind(0) != "transfer" {
		t.Fatalf("unexpected envelope shape: numOps=%d kind=%q", env.NumOps(), env.Kind(0))
	}

	var decoded evaluator.Transfer
	if err := env.DecodeOp(0, &decoded); err != nil {
		t.Fatalf("decode op: %v", err)
	}
	want := ops[0].(evaluator.Transfer)
	if decoded != want {
		t.Fatalf("decoded operation mismatch: got %+v want %+v", decoded, want)
	}
}

func TestVerifyRejectsTamperedEnvelope(t *testing.T) {
	priv, _, err := crypto.GenerateDilithiumKeyPair()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	ops := []evaluator.Operation{
		evaluator.Transfer{Signer: "alice", From: "alice", To: "bob", Symbol: "CORE", Amount: 100, Memo: ""},
	}
	env, err := Sign(ops, 0, crypto.SigAlgDilithium, priv.Bytes())
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	env.body.Ops[0].Payload[len(env.body.Ops[0].Payload)-1] ^= 0xff
	ok, err := env.Verify()
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if ok {
		t.Fatal("expected verification to fail after tampering")
	}
}
