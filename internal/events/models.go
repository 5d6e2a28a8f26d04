// Package events defines the notification model emitted by every mutating
// ledger operation. Events are transport-agnostic so stores and sinks can
// fan out: in-memory for tests, a Postgres outbox with a Kafka drain for
// production.
package events

import (
	"time"

	"tessera/pkg/domain"
)

// Action names the kind of mutation an event records.
type Action string

const (
	ActionRoleChange           Action = "role_change"
	ActionAddressMaxBalance    Action = "address_max_balance"
	ActionAddressTransferGroup Action = "address_transfer_group"
	ActionAddressFrozen        Action = "address_frozen"
	ActionTimeLockAdded        Action = "address_timelock_added"
	ActionTimeLockRemoved      Action = "address_timelock_removed"
	ActionAllowGroupTransfer   Action = "allow_group_transfer"
	ActionPause                Action = "pause"
	ActionUpgrade              Action = "upgrade"
	ActionTransfer             Action = "transfer"
	ActionMint                 Action = "mint"
	ActionBurn                 Action = "burn"
	ActionApproval             Action = "approval"
	ActionSnapshotCreated      Action = "snapshot_created"
	ActionFunded               Action = "funded"
	ActionClaimed              Action = "claimed"
	ActionWithdrawn            Action = "withdrawn"
)

// Event records one mutation. Actor is who performed it, Subject is the
// account it affected. Old/New carry the before/after value rendered as
// strings so a single shape covers balances, groups, flags, and timestamps.
type Event struct {
	Timestamp time.Time
	Actor     domain.Address
	Subject   domain.Address
	Action    Action
	Old       string
	New       string

	// Amount is set for balance-moving and lock events.
	Amount uint64
	// FromGroup and ToGroup are set for group approval events.
	FromGroup uint64
	ToGroup   uint64
	// Asset and SnapshotID are set for dividend and snapshot events.
	Asset      domain.Address
	SnapshotID domain.SnapshotID
}
