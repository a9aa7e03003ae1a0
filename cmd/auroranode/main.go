package main

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"aurora-chain/chain/config"
	"aurora-chain/chain/evaluator"
	"aurora-chain/chain/store"
	"aurora-chain/chain/txsign"
	"aurora-chain/chain/types"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "auroranode",
	Short: "Aurora ledger engine node",
	Long:  "Loads a genesis file, wires every ledger engine, and drives the block-apply loop over a block stream",
	Run:   runNode,
}

var (
	genesisPath string
	blocksPath  string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&genesisPath, "genesis", "", "genesis configuration file (defaults to the built-in devnet genesis)")
	rootCmd.PersistentFlags().StringVar(&blocksPath, "blocks", "", "block stream file to replay (defaults to a short built-in demonstration)")
	viper.BindPFlags(rootCmd.PersistentFlags())
}

// blockFile is the on-disk shape of a replayable block stream: each block
// names its timestamp and the wire-encoded (txsign.EncodeEnvelope, then
// base64) transaction envelopes carried in it.
type blockFile struct {
	Blocks []blockSpec `json:"blocks"`
}

type blockSpec struct {
	Time         types.Time `json:"time"`
	Transactions []string   `json:"transactions"`
}

func loadBlocks(path string) (*blockFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read block file: %w", err)
	}
	var bf blockFile
	if err := json.Unmarshal(data, &bf); err != nil {
		return nil, fmt.Errorf("parse block file: %w", err)
	}
	return &bf, nil
}

// decodeOps turns a verified envelope's opaque operation payloads back into
// the concrete evaluator.Operation each one names by Kind. Unknown kinds
// fail the whole transaction rather than silently dropping an operation.
func decodeOps(env *txsign.Envelope) ([]evaluator.Operation, error) {
	ops := make([]evaluator.Operation, env.NumOps())
	for i := 0; i < env.NumOps(); i++ {
		var op evaluator.Operation
		var err error
		switch kind := env.Kind(i); kind {
		case "transfer":
			var o evaluator.Transfer
			err = env.DecodeOp(i, &o)
			op = o
		case "transfer_request":
			var o evaluator.TransferRequest
			err = env.DecodeOp(i, &o)
			op = o
		case "transfer_accept":
			var o evaluator.TransferAccept
			err = env.DecodeOp(i, &o)
			op = o
		case "transfer_to_savings":
			var o evaluator.TransferToSavings
			err = env.DecodeOp(i, &o)
			op = o
		case "transfer_from_savings":
			var o evaluator.TransferFromSavings
			err = env.DecodeOp(i, &o)
			op = o
		case "stake_asset":
			var o evaluator.StakeAsset
			err = env.DecodeOp(i, &o)
			op = o
		case "unstake_asset":
			var o evaluator.UnstakeAsset
			err = env.DecodeOp(i, &o)
			op = o
		case "delegate_asset":
			var o evaluator.DelegateAsset
			err = env.DecodeOp(i, &o)
			op = o
		case "create_vesting_balance":
			var o evaluator.CreateVestingBalance
			err = env.DecodeOp(i, &o)
			op = o
		case "withdraw_vesting_balance":
			var o evaluator.WithdrawVestingBalance
			err = env.DecodeOp(i, &o)
			op = o
		default:
			return nil, fmt.Errorf("operation %d: unsupported kind %q", i, kind)
		}
		if err != nil {
			return nil, fmt.Errorf("operation %d: %w", i, err)
		}
		ops[i] = op
	}
	return ops, nil
}

// applyBlock verifies and applies every transaction in a block in order,
// then runs the fixed maintenance sweep at the block's timestamp (spec §5).
func applyBlock(eng *config.Engines, blk blockSpec) error {
	for i, encoded := range blk.Transactions {
		raw, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return fmt.Errorf("block at %d tx %d: bad encoding: %w", blk.Time, i, err)
		}
		env, err := txsign.DecodeEnvelope(raw)
		if err != nil {
			return fmt.Errorf("block at %d tx %d: %w", blk.Time, i, err)
		}
		ok, err := env.Verify()
		if err != nil {
			return fmt.Errorf("block at %d tx %d: verify: %w", blk.Time, i, err)
		}
		if !ok {
			return fmt.Errorf("block at %d tx %d: signature does not verify", blk.Time, i)
		}
		ops, err := decodeOps(env)
		if err != nil {
			return fmt.Errorf("block at %d tx %d: %w", blk.Time, i, err)
		}
		receipts, err := evaluator.ApplyTransaction(eng.Context, eng.Store, ops, env.Expiration(), blk.Time)
		for _, r := range receipts {
			if r.Success() {
				log.Printf("  ✅ op %d (%s) applied", r.Index, r.Kind)
			} else {
				log.Printf("  ⚠️  op %d (%s) failed: %v", r.Index, r.Kind, r.Err)
			}
		}
		if err != nil {
			return fmt.Errorf("block at %d tx %d: %w", blk.Time, i, err)
		}
	}
	return store.Run(eng.Store, func(sess *store.Session) error {
		return evaluator.RunMaintenance(eng.Context, sess, blk.Time)
	})
}

func runNode(cmd *cobra.Command, args []string) {
	fmt.Printf("🌌 Aurora ledger engine v%s (%s)\n", Version, BuildTime)

	gen := config.DefaultGenesisConfig()
	if genesisPath != "" {
		loaded, err := config.LoadGenesisConfig(genesisPath)
		if err != nil {
			log.Fatalf("❌ failed to load genesis: %v", err)
		}
		gen = loaded
	}
	fmt.Printf("🌱 genesis: chain %d (%s), core asset %s\n", gen.ChainID, gen.NetworkName, gen.CoreAsset)

	eng, err := config.Bootstrap(gen)
	if err != nil {
		log.Fatalf("❌ failed to bootstrap engines: %v", err)
	}
	fmt.Println("🔧 C1-C10 engines wired")

	var blocks []blockSpec
	if blocksPath != "" {
		bf, err := loadBlocks(blocksPath)
		if err != nil {
			log.Fatalf("❌ failed to load block stream: %v", err)
		}
		blocks = bf.Blocks
		fmt.Printf("📦 replaying %d blocks from %s\n", len(blocks), blocksPath)
	} else {
		fmt.Println("📦 no --blocks given; running genesis + a single empty maintenance tick")
		blocks = []blockSpec{{Time: gen.GenesisTime + 1}}
	}

	for i, blk := range blocks {
		if err := applyBlock(eng, blk); err != nil {
			log.Fatalf("❌ block %d (t=%d) failed: %v", i, blk.Time, err)
		}
		fmt.Printf("⛓️  block %d applied (t=%d, %d tx)\n", i, blk.Time, len(blk.Transactions))
	}

	fmt.Println("👋 replay complete")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
