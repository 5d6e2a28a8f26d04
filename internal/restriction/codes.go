// Package restriction implements the transfer restriction decision engine:
// a pure rule chain that classifies a prospective transfer into a numeric
// code, 0 meaning no restriction. The rules are centralized here so they stay
// testable without any store or transport wiring.
package restriction

// Code classifies why a transfer would be restricted, or 0 for success.
// The numeric values and messages are part of the public API; callers surface
// them to end users ("wait until timestamp X" style guidance), so they must
// stay stable.
type Code uint8

const (
	CodeSuccess                    Code = 0
	CodeRecipientMaxBalanceExceeds Code = 1
	CodeSenderTokensLocked         Code = 2
	CodeSendToLedgerItself         Code = 3
	CodeSendToEmptyAddress         Code = 4
	CodeSenderFrozen               Code = 5
	CodeAllTransfersPaused         Code = 6
	CodeGroupNotApproved           Code = 7
	CodeGroupNotYetAllowed         Code = 8
	CodeRecipientFrozen            Code = 9
)

// messages is the fixed code→message table. The strings are verbatim from the
// issuer's published restriction table and are asserted by tests.
var messages = map[Code]string{
	CodeSuccess:                    "SUCCESS",
	CodeRecipientMaxBalanceExceeds: "GREATER THAN RECIPIENT MAX BALANCE",
	CodeSenderTokensLocked:         "SENDER TOKENS LOCKED",
	CodeSendToLedgerItself:         "DO NOT SEND TO TOKEN CONTRACT",
	CodeSendToEmptyAddress:         "DO NOT SEND TO EMPTY ADDRESS",
	CodeSenderFrozen:               "SENDER ADDRESS IS FROZEN",
	CodeAllTransfersPaused:         "ALL TRANSFERS PAUSED",
	CodeGroupNotApproved:           "TRANSFER GROUP NOT APPROVED",
	CodeGroupNotYetAllowed:         "TRANSFER GROUP NOT ALLOWED UNTIL LATER",
	CodeRecipientFrozen:            "RECIPIENT ADDRESS IS FROZEN",
}

// Message returns the human-readable message for a built-in code.
func Message(code Code) string {
	if msg, ok := messages[code]; ok {
		return msg
	}
	return "UNKNOWN RESTRICTION CODE"
}
