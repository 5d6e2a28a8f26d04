// Package permission manages per-address compliance attributes: transfer
// group, max balance, frozen flag, time locks, and the group approval matrix.
// The restriction engine reads these attributes; wallets and reserve admins
// mutate them.
package permission

import (
	"time"

	"tessera/pkg/domain"
)

// Lock reserves part of an account's balance until a timestamp passes.
// A lock list is kept sorted by Until and unique by Until: adding a lock with
// an existing timestamp merges amounts instead of duplicating the entry.
type Lock struct {
	Until  time.Time
	Amount uint64
}

// AddressPermission holds the compliance attributes of one account.
// The zero value is the default for unseen accounts: group 0, max balance 0
// (cannot receive until permissioned), not frozen, no locks.
type AddressPermission struct {
	Group      domain.Group
	MaxBalance uint64
	Frozen     bool
	Locks      []Lock
}

// ActiveLockedAmount sums the lock amounts that have not yet expired.
func (p AddressPermission) ActiveLockedAmount(now time.Time) uint64 {
	var total uint64
	for _, l := range p.Locks {
		if l.Until.After(now) {
			total += l.Amount
		}
	}
	return total
}

// PermissionUpdate is the batched form used by SetAddressPermissions. Each
// field is applied and evented independently, matching the single-field
// setters.
type PermissionUpdate struct {
	Group      domain.Group
	LockUntil  time.Time
	LockAmount uint64
	MaxBalance uint64
	Frozen     bool
}
