package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/greenpoints/internal/logger"
	"github.com/nkiryanov/greenpoints/internal/metrics"
	"github.com/nkiryanov/greenpoints/internal/models"
	"github.com/nkiryanov/greenpoints/internal/repository"
	"github.com/nkiryanov/greenpoints/internal/repository/postgres"
	"github.com/nkiryanov/greenpoints/internal/service/account"
	"github.com/nkiryanov/greenpoints/internal/service/auth"
	"github.com/nkiryanov/greenpoints/internal/service/auth/tokenmanager"
	"github.com/nkiryanov/greenpoints/internal/service/catalog"
	"github.com/nkiryanov/greenpoints/internal/service/ledger"
	"github.com/nkiryanov/greenpoints/internal/service/recycling"
	"github.com/nkiryanov/greenpoints/internal/service/redemption"
	"github.com/nkiryanov/greenpoints/internal/testutil"
)

type server struct {
	URL      string
	Storage  repository.Storage
	Tokens   *tokenmanager.TokenManager
	Registry *prometheus.Registry
}

// Create db transaction and run server with that connection (one connection cause one transaction)
// The created transaction passed to inner function: so, you can safely use testutil.InTx with it
func serveInTx(dbpool *pgxpool.Pool, t *testing.T, fn func(tx pgx.Tx, srv server)) {
	testutil.InTx(dbpool, t, func(tx pgx.Tx) {
		l := logger.NewNoOpLogger()
		storage := postgres.NewStorage(tx)
		reg := prometheus.NewRegistry()

		tokens, err := tokenmanager.New(tokenmanager.Config{SecretKey: "test-secret"})
		require.NoError(t, err, "token manager should be created without errors")

		hooks := ledger.NewHooks(l, ledger.WithMetrics(metrics.NewLedgerMetrics(reg)))

		router := NewRouter(
			Services{
				Auth:       auth.NewService(tokens),
				Account:    account.NewService(storage.Account(), nil, l),
				Recycling:  recycling.NewService(storage, hooks),
				Catalog:    catalog.NewService(storage.Reward(), l),
				Redemption: redemption.NewService(storage, hooks),
			},
			l,
			metrics.NewHTTPMetrics(reg).Middleware(),
		)

		// Run http server with the router in transaction
		ts := httptest.NewServer(router)
		defer ts.Close()

		fn(tx, server{URL: ts.URL, Storage: storage, Tokens: tokens, Registry: reg})
	})
}

func (s server) token(t *testing.T, p models.Principal) string {
	t.Helper()

	issued, err := s.Tokens.Issue(p)
	require.NoError(t, err, "failed to issue token")
	return issued.Value
}

// Send request as principal and return status with body
func (s server) do(t *testing.T, p *models.Principal, method string, path string, body any) (int, string) {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		d, err := json.Marshal(b)
		require.NoError(t, err, "failed to marshal request")
		reader = bytes.NewReader(d)
	}

	req, err := http.NewRequest(method, s.URL+path, reader)
	require.NoError(t, err, "failed to create request")
	if p != nil {
		req.Header.Set("Authorization", "Bearer "+s.token(t, *p))
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err, "failed to send request")
	defer resp.Body.Close() // nolint:errcheck

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err, "failed to read response body")

	return resp.StatusCode, string(data)
}

// Account with given spendable balance, earned is a tenth of it
func (s server) account(t *testing.T, spendable int64) models.Principal {
	t.Helper()

	a, err := s.Storage.Account().CreateAccount(t.Context(), uuid.New(), "Alice")
	require.NoError(t, err)
	if spendable > 0 {
		_, err = s.Storage.Account().Credit(t.Context(), a.ID, dec(spendable/10), dec(spendable))
		require.NoError(t, err)
	}

	return models.Principal{AccountID: a.ID, Role: models.RoleUser}
}
