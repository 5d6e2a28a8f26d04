// Package snapshot implements the checkpointed balance history. Snapshot ids
// increase by one per explicit snapshot; id 0 is ledger genesis. Checkpoints
// are sparse: a value is recorded for the current id only on the first change
// after the snapshot boundary, so storage is bounded by the number of
// accounts that actually changed per interval.
//
// The History is not self-locking. It is owned by the balance ledger, which
// serializes all access under its own lock.
package snapshot

import (
	"sort"

	"tessera/pkg/domain"
	dErrors "tessera/pkg/domain-errors"
)

// Checkpoint records the value an account (or the total supply) held at the
// instant the snapshot with this id was taken.
type Checkpoint struct {
	ID    domain.SnapshotID
	Value uint64
}

// History holds the per-account and total-supply checkpoint arenas.
type History struct {
	current  domain.SnapshotID
	accounts map[domain.Address][]Checkpoint
	supply   []Checkpoint
}

func NewHistory() *History {
	return &History{accounts: make(map[domain.Address][]Checkpoint)}
}

// Current returns the id of the most recent snapshot (0 before any).
func (h *History) Current() domain.SnapshotID { return h.current }

// Advance creates a new snapshot and returns its id. It writes no per-account
// data; checkpoints appear lazily on the next change.
func (h *History) Advance() domain.SnapshotID {
	h.current++
	return h.current
}

// RecordBalance must be called with the account's pre-change balance before
// every balance mutation. It appends a checkpoint only when none exists yet
// for the current snapshot id.
func (h *History) RecordBalance(account domain.Address, current uint64) {
	h.accounts[account] = record(h.accounts[account], h.current, current)
}

// RecordSupply is RecordBalance for the total-supply counter.
func (h *History) RecordSupply(current uint64) {
	h.supply = record(h.supply, h.current, current)
}

func record(list []Checkpoint, id domain.SnapshotID, value uint64) []Checkpoint {
	if n := len(list); n > 0 && list[n-1].ID == id {
		return list
	}
	return append(list, Checkpoint{ID: id, Value: value})
}

// BalanceOfAt returns the account's balance as of snapshot id. live is the
// account's present balance, used when no checkpoint covers the id (meaning
// the balance has not changed since that snapshot).
func (h *History) BalanceOfAt(account domain.Address, id domain.SnapshotID, live uint64) (uint64, error) {
	if id > h.current {
		return 0, dErrors.Newf(dErrors.CodeBadRequest, "snapshot %d does not exist yet (current is %d)", id, h.current)
	}
	return valueAt(h.accounts[account], id, live), nil
}

// SupplyAt returns the total supply as of snapshot id.
func (h *History) SupplyAt(id domain.SnapshotID, live uint64) (uint64, error) {
	if id > h.current {
		return 0, dErrors.Newf(dErrors.CodeBadRequest, "snapshot %d does not exist yet (current is %d)", id, h.current)
	}
	return valueAt(h.supply, id, live), nil
}

// valueAt finds the earliest checkpoint with ID >= id: that checkpoint holds
// the value recorded on the first change after snapshot id, which is the
// value at the snapshot instant. No such checkpoint means the value never
// changed afterwards, so the live value applies.
func valueAt(list []Checkpoint, id domain.SnapshotID, live uint64) uint64 {
	i := sort.Search(len(list), func(i int) bool { return list[i].ID >= id })
	if i == len(list) {
		return live
	}
	return list[i].Value
}
