package balance

import (
	"aurora-chain/chain/store"
	"aurora-chain/chain/types"
	"aurora-chain/chain/xerrors"
)

// ClaimReward moves amount out of owner's reward compartment into liquid
// (spec §6's claim_reward_balance). A zero amount claims the entire reward
// balance currently posted.
func (e *Engine) ClaimReward(sess *store.Session, owner types.AccountName, symbol types.AssetSymbol, amount types.Amount) error {
	const op = "balance.ClaimReward"
	b, ok := e.Find(owner, symbol)
	if !ok {
		return xerrors.New(op, xerrors.NotFound, "%s holds no %s balance", owner, symbol)
	}
	if amount == 0 {
		amount = b.RewardAmt
	}
	if amount <= 0 {
		return nil
	}
	if err := e.Adjust(sess, owner, symbol, Reward, -amount); err != nil {
		return err
	}
	return e.Adjust(sess, owner, symbol, Liquid, amount)
}
