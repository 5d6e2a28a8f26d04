package dividend

//go:generate mockgen -source=asset.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"tessera/pkg/domain"
)

// ExternalAsset is the fungible-asset interface the dividend ledger consumes
// to move reward assets. Implementations are untrusted: the service never
// believes a declared transfer amount and instead re-reads its own balance
// delta after every pull.
type ExternalAsset interface {
	BalanceOf(ctx context.Context, account domain.Address) (uint64, error)
	Transfer(ctx context.Context, actor, to domain.Address, amount uint64) error
	TransferFrom(ctx context.Context, actor, from, to domain.Address, amount uint64) error
}

// AssetResolver maps an asset identifier to its implementation.
type AssetResolver interface {
	Resolve(asset domain.Address) (ExternalAsset, error)
}
