package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"tessera/internal/events"
	eventsmemory "tessera/internal/events/store/memory"
	"tessera/internal/ledger"
	"tessera/internal/permission"
	"tessera/internal/query"
	"tessera/internal/restriction"
	"tessera/internal/roles"
	"tessera/pkg/domain"
	"tessera/pkg/requestcontext"
)

// =============================================================================
// Ledger Handler Test Suite
// =============================================================================
// Wires real services behind the handler; tests cover the HTTP concerns:
// routing, parsing, status mapping. A test middleware injects the actor the
// auth middleware would normally resolve from the bearer token.

type HandlerSuite struct {
	suite.Suite
	router http.Handler
	perms  *permission.Service
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	publisher := events.NewPublisher(eventsmemory.NewInMemoryStore())

	registry, err := roles.NewRegistry("contract-admin", "reserve-admin", publisher)
	s.Require().NoError(err)
	s.Require().NoError(registry.Grant(ctx, "contract-admin", roles.WalletsAdmin, "wallets-admin"))
	s.Require().NoError(registry.Grant(ctx, "contract-admin", roles.TransferAdmin, "transfer-admin"))

	permStore := permission.NewInMemoryStore()
	s.perms = permission.NewService(permStore, registry, publisher)

	holder, err := restriction.NewHolder(restriction.NewDefaultPolicy(), registry, publisher)
	s.Require().NoError(err)

	service, err := ledger.NewService(ledger.Config{
		Address:        "ledger",
		Symbol:         "XYZ",
		Name:           "Ex Why Zee",
		Decimals:       6,
		ReserveAdmin:   "reserve-admin",
		InitialSupply:  1000,
		MaxTotalSupply: 1_000_000,
		Policy:         holder,
		Registry:       registry,
		Permissions:    permStore,
		Publisher:      publisher,
	})
	s.Require().NoError(err)

	// Open the 0->0 group and give alice headroom, then seed her balance.
	s.Require().NoError(s.perms.SetAllowGroupTransfer(ctx, "transfer-admin", 0, 0, time.Unix(0, 0)))
	s.Require().NoError(s.perms.SetMaxBalance(ctx, "wallets-admin", "alice", 10_000))
	s.Require().NoError(s.perms.SetMaxBalance(ctx, "wallets-admin", "reserve-admin", 1_000_000))
	s.Require().NoError(service.Mint(ctx, "reserve-admin", "alice", 100))

	handler := New(service, query.NewService(service, nil, logger), logger).WithAdminCounter(registry)

	r := chi.NewRouter()
	handler.Register(r)
	r.Group(func(authed chi.Router) {
		authed.Use(actorFromHeader)
		handler.RegisterAuthed(authed)
	})
	s.router = r
}

// actorFromHeader stands in for the bearer-token middleware.
func actorFromHeader(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor := domain.Address(r.Header.Get("X-Actor"))
		next.ServeHTTP(w, r.WithContext(requestcontext.WithActor(r.Context(), actor)))
	})
}

func (s *HandlerSuite) do(method, path, actor string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if actor != "" {
		req.Header.Set("X-Actor", actor)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *HandlerSuite) TestToken() {
	rec := s.do(http.MethodGet, "/token", "", nil)
	s.Equal(http.StatusOK, rec.Code)

	var resp struct {
		Symbol      string `json:"symbol"`
		TotalSupply uint64 `json:"total_supply"`
		AdminCount  int    `json:"contract_admin_count"`
	}
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Equal("XYZ", resp.Symbol)
	s.Equal(uint64(1000+100), resp.TotalSupply)
	s.Equal(1, resp.AdminCount)
}

func (s *HandlerSuite) TestAccount() {
	rec := s.do(http.MethodGet, "/accounts/alice", "", nil)
	s.Equal(http.StatusOK, rec.Code)

	var resp struct {
		Balance  uint64 `json:"balance"`
		Unlocked uint64 `json:"unlocked_balance"`
	}
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Equal(uint64(100), resp.Balance)
	s.Equal(uint64(100), resp.Unlocked)
}

func (s *HandlerSuite) TestDetect() {
	s.Run("clean transfer reports success", func() {
		rec := s.do(http.MethodGet, "/restrictions/detect?from=reserve-admin&to=alice&amount=10", "", nil)
		s.Equal(http.StatusOK, rec.Code)

		var resp struct {
			Code    uint8  `json:"code"`
			Message string `json:"message"`
		}
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
		s.Equal(uint8(0), resp.Code)
		s.Equal("SUCCESS", resp.Message)
	})

	s.Run("missing amount is a bad request", func() {
		rec := s.do(http.MethodGet, "/restrictions/detect?from=a&to=b", "", nil)
		s.Equal(http.StatusBadRequest, rec.Code)
	})
}

func (s *HandlerSuite) TestRestrictionMessage() {
	rec := s.do(http.MethodGet, "/restrictions/messages/6", "", nil)
	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), "ALL TRANSFERS PAUSED")
}

func (s *HandlerSuite) TestTransfer() {
	s.Run("moves funds for the acting address", func() {
		rec := s.do(http.MethodPost, "/transfers", "alice",
			map[string]any{"to": "reserve-admin", "amount": 10})
		s.Equal(http.StatusOK, rec.Code)
	})

	s.Run("restricted transfer maps to conflict", func() {
		rec := s.do(http.MethodPost, "/transfers", "alice",
			map[string]any{"to": "ledger", "amount": 10})
		s.Equal(http.StatusConflict, rec.Code)
		s.Contains(rec.Body.String(), "DO NOT SEND TO TOKEN CONTRACT")
	})

	s.Run("malformed body is a bad request", func() {
		req := httptest.NewRequest(http.MethodPost, "/transfers", bytes.NewReader([]byte("not json")))
		req.Header.Set("X-Actor", "alice")
		rec := httptest.NewRecorder()
		s.router.ServeHTTP(rec, req)
		s.Equal(http.StatusBadRequest, rec.Code)
	})
}

func (s *HandlerSuite) TestMintRequiresReserveAdmin() {
	rec := s.do(http.MethodPost, "/mint", "alice",
		map[string]any{"account": "alice", "amount": 5})
	s.Equal(http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodPost, "/mint", "reserve-admin",
		map[string]any{"account": "alice", "amount": 5})
	s.Equal(http.StatusOK, rec.Code)
}

func (s *HandlerSuite) TestSnapshotLifecycle() {
	rec := s.do(http.MethodPost, "/snapshots", "contract-admin", nil)
	s.Equal(http.StatusCreated, rec.Code)

	var created struct {
		SnapshotID uint64 `json:"snapshot_id"`
	}
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &created))
	s.Equal(uint64(1), created.SnapshotID)

	rec = s.do(http.MethodGet, "/accounts/alice/balance-at/1", "", nil)
	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), "100")

	rec = s.do(http.MethodGet, "/supply-at/99", "", nil)
	s.Equal(http.StatusBadRequest, rec.Code)
}
