package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/suite"

	"tessera/pkg/domain"
	"tessera/pkg/requestcontext"
)

type AuthSuite struct {
	suite.Suite
	validator *Validator
	logger    *slog.Logger
}

func TestAuthSuite(t *testing.T) {
	suite.Run(t, new(AuthSuite))
}

func (s *AuthSuite) SetupTest() {
	s.validator = NewValidator("test-signing-key")
	s.logger = slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func (s *AuthSuite) sign(claims jwt.MapClaims, key string) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(key))
	s.Require().NoError(err)
	return signed
}

func (s *AuthSuite) TestActorFromToken() {
	s.Run("valid token yields the subject address", func() {
		token := s.sign(jwt.MapClaims{"sub": "alice"}, "test-signing-key")
		actor, err := s.validator.ActorFromToken(token)
		s.NoError(err)
		s.Equal(domain.Address("alice"), actor)
	})

	s.Run("wrong key is rejected", func() {
		token := s.sign(jwt.MapClaims{"sub": "alice"}, "other-key")
		_, err := s.validator.ActorFromToken(token)
		s.Error(err)
	})

	s.Run("missing subject is rejected", func() {
		token := s.sign(jwt.MapClaims{"aud": "tessera"}, "test-signing-key")
		_, err := s.validator.ActorFromToken(token)
		s.Error(err)
	})

	s.Run("expired token is rejected", func() {
		token := s.sign(jwt.MapClaims{
			"sub": "alice",
			"exp": time.Now().Add(-time.Hour).Unix(),
		}, "test-signing-key")
		_, err := s.validator.ActorFromToken(token)
		s.Error(err)
	})
}

func (s *AuthSuite) TestRequireAuth() {
	var seen domain.Address
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = requestcontext.Actor(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	protected := RequireAuth(s.validator, s.logger)(next)

	s.Run("missing header is unauthorized", func() {
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
		s.Equal(http.StatusForbidden, rec.Code)
	})

	s.Run("valid bearer token passes the actor through", func() {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set("Authorization", "Bearer "+s.sign(jwt.MapClaims{"sub": "bob"}, "test-signing-key"))
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, req)
		s.Equal(http.StatusOK, rec.Code)
		s.Equal(domain.Address("bob"), seen)
	})
}
