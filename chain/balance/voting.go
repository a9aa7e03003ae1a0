package balance

import (
	"aurora-chain/chain/store"
	"aurora-chain/chain/types"
	"aurora-chain/chain/xerrors"
)

// maxProxyDepth bounds the depth-first traversal used to detect proxy
// cycles (spec §9 design note): chains deeper than this are truncated,
// i.e. the proxy right is not transitively recognized past this point.
const maxProxyDepth = 10

// ProxyVote is one account's (voter) delegation of voting power to another
// (proxy). Stored separately from Delegation/Balance because proxying
// moves no funds — only the tallying of voting power.
type ProxyVote struct {
	ID    store.ID
	Voter types.AccountName
	Proxy types.AccountName
}

func (p *ProxyVote) GetID() store.ID   { return p.ID }
func (p *ProxyVote) SetID(id store.ID) { p.ID = id }

// ProxyRegistry tracks the (voter -> proxy) assignments used by
// Engine.ProxiedVotingPower.
type ProxyRegistry struct {
	votes      *store.Table[ProxyVote, *ProxyVote]
	byVoter    *store.UniqueIndex[ProxyVote, types.AccountName]
	byProxy    *store.MultiIndex[ProxyVote, types.AccountName]
}

// NewProxyRegistry creates an empty proxy registry.
func NewProxyRegistry() *ProxyRegistry {
	r := &ProxyRegistry{votes: store.NewTable[ProxyVote]("proxy_vote")}
	r.byVoter = store.AddUniqueIndex(r.votes, func(p *ProxyVote) types.AccountName { return p.Voter })
	r.byProxy = store.AddMultiIndex(r.votes, func(p *ProxyVote) types.AccountName { return p.Proxy })
	return r
}

// SetProxy assigns voter's voting power to proxy, rejecting assignments that
// would create a cycle within maxProxyDepth hops. Passing proxy == "" clears
// the assignment.
func (r *ProxyRegistry) SetProxy(sess *store.Session, voter, proxy types.AccountName) error {
	const op = "balance.SetProxy"
	if proxy != "" {
		if proxy == voter {
			return xerrors.New(op, xerrors.Invalid, "%s cannot proxy to itself", voter)
		}
		visited := map[types.AccountName]bool{voter: true}
		cur := proxy
		for depth := 0; depth < maxProxyDepth; depth++ {
			if visited[cur] {
				return xerrors.New(op, xerrors.Invalid, "proxy assignment would create a cycle")
			}
			visited[cur] = true
			next, ok := r.byVoter.Find(cur)
			if !ok {
				break
			}
			cur = next.Proxy
		}
	}

	if existing, ok := r.byVoter.Find(voter); ok {
		if proxy == "" {
			r.votes.Remove(sess, existing)
			return nil
		}
		r.votes.Modify(sess, existing, func(p *ProxyVote) { p.Proxy = proxy })
		return nil
	}
	if proxy == "" {
		return nil
	}
	r.votes.Create(sess, func(p *ProxyVote) {
		p.Voter = voter
		p.Proxy = proxy
	})
	return nil
}

// DirectVoters returns every account currently proxying to `account`.
func (r *ProxyRegistry) DirectVoters(account types.AccountName) []*ProxyVote {
	return r.byProxy.All(account)
}

// VotingPowerPair computes spec §4.3.5's combined voting power for a single
// account over (core, equity): staked_core + staked_equity * hour_median
// price(core,equity), each already net of delegated/receiving via
// Balance.VotingPower.
func (e *Engine) VotingPowerPair(owner types.AccountName, core, equity types.AssetSymbol, equityInCore types.Price) (types.Amount, error) {
	var total types.Amount
	if coreBal, ok := e.Find(owner, core); ok {
		total += coreBal.VotingPower()
	}
	if equityBal, ok := e.Find(owner, equity); ok && equityBal.VotingPower() != 0 {
		converted, err := equityInCore.Mul(types.NewAsset(equityBal.VotingPower(), equity))
		if err != nil {
			return 0, err
		}
		total += converted.Amount
	}
	return total, nil
}

// ProxiedVotingPower sums owner's own voting power plus the transitive
// voting power of every account proxying to owner (directly or through
// further proxies), stopping at maxProxyDepth and never double-counting a
// visited account.
func (e *Engine) ProxiedVotingPower(reg *ProxyRegistry, owner types.AccountName, core, equity types.AssetSymbol, equityInCore types.Price) (types.Amount, error) {
	visited := map[types.AccountName]bool{owner: true}
	queue := []struct {
		account types.AccountName
		depth   int
	}{{owner, 0}}

	total, err := e.VotingPowerPair(owner, core, equity, equityInCore)
	if err != nil {
		return 0, err
	}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.depth >= maxProxyDepth {
			continue
		}
		for _, vote := range reg.DirectVoters(cur.account) {
			if visited[vote.Voter] {
				continue
			}
			visited[vote.Voter] = true
			vp, err := e.VotingPowerPair(vote.Voter, core, equity, equityInCore)
			if err != nil {
				return 0, err
			}
			total += vp
			queue = append(queue, struct {
				account types.AccountName
				depth   int
			}{vote.Voter, cur.depth + 1})
		}
	}
	return total, nil
}
