// Package domain holds the primitive identifier and value types shared by
// every context. Keeping them here avoids import cycles between the ledger,
// permission, and dividend packages.
package domain

// Address identifies an account on the ledger. The empty string is the zero
// address and is never a valid transfer participant.
type Address string

// ZeroAddress is the null account identifier.
const ZeroAddress Address = ""

// IsZero reports whether the address is the null identifier.
func (a Address) IsZero() bool { return a == ZeroAddress }

func (a Address) String() string { return string(a) }

// Group classifies an account for transfer approval purposes (jurisdiction,
// investor class, omnibus account, and so on). Group 0 is the default for
// accounts that were never assigned one.
type Group uint64

// SnapshotID identifies a point-in-time marker in the snapshot history.
// ID 0 is ledger genesis; explicit snapshots start at 1.
type SnapshotID uint64
