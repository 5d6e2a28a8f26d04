// Package roles implements the four admin role sets that gate every mutating
// ledger operation. Membership changes are themselves gated: only a contract
// admin may grant or revoke, and the contract admin set can never be emptied.
package roles

// Role is one of the four admin roles.
type Role string

const (
	// ContractAdmin manages roles, pause state, and snapshots.
	ContractAdmin Role = "contract_admin"
	// TransferAdmin manages the group approval matrix and the transfer
	// policy object.
	TransferAdmin Role = "transfer_admin"
	// WalletsAdmin manages per-address permissions: group, max balance,
	// time locks, and (shared with ReserveAdmin) the frozen flag.
	WalletsAdmin Role = "wallets_admin"
	// ReserveAdmin mints and burns, and may freeze addresses.
	ReserveAdmin Role = "reserve_admin"
)

// All lists every role, in grant-precedence order used by tests and seeds.
var All = []Role{ContractAdmin, TransferAdmin, WalletsAdmin, ReserveAdmin}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case ContractAdmin, TransferAdmin, WalletsAdmin, ReserveAdmin:
		return true
	}
	return false
}
