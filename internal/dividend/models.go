// Package dividend implements pro-rata distribution of an external reward
// asset to holders as of a snapshot. Pools are keyed by (asset, snapshot id)
// and created implicitly on first funding; claim amounts are derived at claim
// time from the ledger's historical data, never cached.
package dividend

import (
	"tessera/pkg/domain"
)

// Precision is the scaling constant used in the pro-rata share computation.
// Multiplying before dividing by it minimizes rounding loss versus a single
// division.
const Precision = 10000

// PoolKey identifies a dividend pool.
type PoolKey struct {
	Asset      domain.Address
	SnapshotID domain.SnapshotID
}

// Pool tracks one funding pool. TotalFunded only grows; Remaining shrinks as
// holders claim and admins sweep. Pools are never deleted.
type Pool struct {
	TotalFunded uint64
	Remaining   uint64
	claimed     map[domain.Address]struct{}
}

func newPool() *Pool {
	return &Pool{claimed: make(map[domain.Address]struct{})}
}

// Claimed reports whether the account already claimed from this pool.
func (p *Pool) Claimed(account domain.Address) bool {
	_, ok := p.claimed[account]
	return ok
}
