// Package query serves point-in-time ledger queries through a read-through
// Redis cache. A balance or supply as of snapshot N is fixed the moment
// snapshot N is taken, so cached entries never need invalidation.
package query

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/redis/go-redis/v9"

	"tessera/pkg/domain"
)

// Ledger is the historical-read slice of the balance ledger.
type Ledger interface {
	BalanceOfAt(account domain.Address, id domain.SnapshotID) (uint64, error)
	TotalSupplyAt(id domain.SnapshotID) (uint64, error)
	GetCurrentSnapshotID() domain.SnapshotID
}

// Service answers historical queries, caching through Redis when a client is
// configured. A nil client degrades to direct ledger reads.
type Service struct {
	ledger Ledger
	rdb    *redis.Client
	logger *slog.Logger
}

func NewService(ledger Ledger, rdb *redis.Client, logger *slog.Logger) *Service {
	return &Service{ledger: ledger, rdb: rdb, logger: logger}
}

// BalanceOfAt returns the account's balance as of snapshot id.
func (s *Service) BalanceOfAt(ctx context.Context, account domain.Address, id domain.SnapshotID) (uint64, error) {
	key := fmt.Sprintf("tessera:balat:%s:%d", account, id)
	return s.cached(ctx, key, func() (uint64, error) {
		return s.ledger.BalanceOfAt(account, id)
	})
}

// TotalSupplyAt returns the total supply as of snapshot id.
func (s *Service) TotalSupplyAt(ctx context.Context, id domain.SnapshotID) (uint64, error) {
	key := fmt.Sprintf("tessera:supat:%d", id)
	return s.cached(ctx, key, func() (uint64, error) {
		return s.ledger.TotalSupplyAt(id)
	})
}

func (s *Service) cached(ctx context.Context, key string, load func() (uint64, error)) (uint64, error) {
	if s.rdb != nil {
		if raw, err := s.rdb.Get(ctx, key).Result(); err == nil {
			if v, perr := strconv.ParseUint(raw, 10, 64); perr == nil {
				return v, nil
			}
		} else if err != redis.Nil && s.logger != nil {
			s.logger.WarnContext(ctx, "query cache read failed", "key", key, "error", err)
		}
	}
	value, err := load()
	if err != nil {
		return 0, err
	}
	if s.rdb != nil {
		// Historical values are immutable; no expiry.
		if err := s.rdb.Set(ctx, key, strconv.FormatUint(value, 10), 0).Err(); err != nil && s.logger != nil {
			s.logger.WarnContext(ctx, "query cache write failed", "key", key, "error", err)
		}
	}
	return value, nil
}
