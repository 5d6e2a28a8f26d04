package restriction

import (
	"time"

	"tessera/pkg/domain"
)

// Input is the full state snapshot a policy needs to classify one transfer.
// The caller gathers it under its own lock so the decision is a pure function
// of consistent state.
type Input struct {
	From   domain.Address
	To     domain.Address
	Amount uint64
	Now    time.Time

	// Ledger state.
	Paused        bool
	LedgerAddress domain.Address
	FromBalance   uint64
	ToBalance     uint64

	// Permission state.
	FromFrozen     bool
	ToFrozen       bool
	FromLocked     uint64 // active locked amount of the sender
	ToMaxBalance   uint64
	FromGroup      domain.Group
	ToGroup        domain.Group
	GroupApproved  bool      // the (FromGroup, ToGroup) pair has an approval entry
	GroupAllowedAt time.Time // earliest allowed timestamp when approved
}

// Policy is the pluggable rule object consulted by every balance-moving
// operation. It must be a total, deterministic, side-effect-free function of
// its input. Issuers may install an upgraded policy that layers extra codes
// on top of the built-in chain.
type Policy interface {
	Detect(in Input) Code
	MessageFor(code Code) string
}

// DefaultPolicy is the built-in rule chain.
//
// Rule precedence (first match wins):
//  1. global pause
//  2. recipient is the ledger's own account
//  3. recipient is the zero address
//  4. sender frozen
//  5. recipient frozen
//  6. amount exceeds sender's unlocked balance
//  7. group pair never approved
//  8. group pair approved but not yet in effect
//  9. recipient would exceed its max balance
type DefaultPolicy struct{}

func NewDefaultPolicy() *DefaultPolicy {
	return &DefaultPolicy{}
}

func (*DefaultPolicy) Detect(in Input) Code {
	if in.Paused {
		return CodeAllTransfersPaused
	}
	if in.To == in.LedgerAddress {
		return CodeSendToLedgerItself
	}
	if in.To.IsZero() {
		return CodeSendToEmptyAddress
	}
	if in.FromFrozen {
		return CodeSenderFrozen
	}
	if in.ToFrozen {
		return CodeRecipientFrozen
	}
	if in.FromLocked > in.FromBalance || in.Amount > in.FromBalance-in.FromLocked {
		return CodeSenderTokensLocked
	}
	if !in.GroupApproved {
		return CodeGroupNotApproved
	}
	if in.Now.Before(in.GroupAllowedAt) {
		return CodeGroupNotYetAllowed
	}
	// Overflow-safe form of: ToBalance + Amount > ToMaxBalance.
	if in.Amount > in.ToMaxBalance || in.ToBalance > in.ToMaxBalance-in.Amount {
		return CodeRecipientMaxBalanceExceeds
	}
	return CodeSuccess
}

func (*DefaultPolicy) MessageFor(code Code) string {
	return Message(code)
}
