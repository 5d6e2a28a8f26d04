// Package ledger implements the account-balance store: balances, allowances,
// supply, pause state, and the snapshot history it owns. Every balance-moving
// operation re-derives the restriction code before mutating, and each
// operation runs to completion under one lock so a failed call leaves no
// partial state.
package ledger

// Metadata describes the asset. Fixed at construction.
type Metadata struct {
	Symbol   string
	Name     string
	Decimals uint8
}
