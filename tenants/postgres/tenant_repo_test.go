package postgres

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/onlyoffice-confluence/internal/errors"
	"github.com/jrsteele09/onlyoffice-confluence/tenants"
)

var tenantColumns = []string{"client_key", "kind", "base_url", "site_url", "shared_secret", "system_token",
	"token_expiry", "doc_api_url", "jwt_secret", "jwt_header", "updated_at"}

func newDB(t *testing.T) (*DB, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	return &DB{Pool: mock}, mock
}

func newRepo(t *testing.T, sealer *Sealer) (*TenantRepo, pgxmock.PgxPoolIface) {
	db, mock := newDB(t)
	r := NewTenantRepo(db, sealer)
	r.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return r, mock
}

func TestTenantRepo_Upsert(t *testing.T) {
	r, mock := newRepo(t, nil)
	defer mock.Close()
	ctx := context.Background()

	tenant := &tenants.Tenant{
		ClientKey:    "ck-1",
		Kind:         tenants.KindConnect,
		BaseURL:      "https://acme.atlassian.net/wiki",
		SharedSecret: "s3cret",
	}
	mock.ExpectExec(`INSERT INTO tenants .* ON CONFLICT \(client_key\) DO UPDATE`).
		WithArgs("ck-1", "connect", "https://acme.atlassian.net/wiki", "", "s3cret", "", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, r.Upsert(ctx, tenant))
	require.Equal(t, r.now(), tenant.UpdatedAt)

	require.ErrorIs(t, r.Upsert(ctx, &tenants.Tenant{}), errors.ErrInvalidRequest)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTenantRepo_Get(t *testing.T) {
	r, mock := newRepo(t, nil)
	defer mock.Close()
	ctx := context.Background()
	updated := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	expiry := time.Date(2026, 2, 1, 1, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT client_key, kind, base_url, .* FROM tenants WHERE client_key = \$1`).
		WithArgs("inst-1").
		WillReturnRows(pgxmock.NewRows(tenantColumns).
			AddRow("inst-1", "forge", "https://api.atlassian.com/ex/confluence/c1/wiki", "https://acme.atlassian.net", "gen", "sys-token",
				&expiry, "https://docs.example.com/", "doc-secret", "AuthorizationJwt", updated))
	got, err := r.Get(ctx, "inst-1")
	require.NoError(t, err)
	require.Equal(t, tenants.KindForge, got.Kind)
	require.Equal(t, "https://acme.atlassian.net", got.SiteURL())
	require.Equal(t, "sys-token", got.SystemToken)
	require.Equal(t, expiry, got.TokenExpiry)
	require.Equal(t, "doc-secret", got.Settings.JWTSecret)
	require.Equal(t, "AuthorizationJwt", got.Settings.Header())
	require.Equal(t, updated, got.UpdatedAt)

	mock.ExpectQuery(`SELECT client_key, kind, base_url, .* FROM tenants WHERE client_key = \$1`).
		WithArgs("ck-2").
		WillReturnRows(pgxmock.NewRows(tenantColumns).
			AddRow("ck-2", "connect", "https://acme.atlassian.net/wiki", "", "s", "", nil, "", "", "", updated))
	got, err = r.Get(ctx, "ck-2")
	require.NoError(t, err)
	require.True(t, got.TokenExpiry.IsZero())
	require.False(t, got.Settings.Signed())

	mock.ExpectQuery(`SELECT client_key, kind, base_url, .* FROM tenants WHERE client_key = \$1`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)
	_, err = r.Get(ctx, "missing")
	require.ErrorIs(t, err, errors.ErrTenantNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTenantRepo_SealedSecrets(t *testing.T) {
	sealer, err := NewSealer(strings.Repeat("ab", 32))
	require.NoError(t, err)
	r, mock := newRepo(t, sealer)
	defer mock.Close()
	ctx := context.Background()

	sealed, err := sealer.Seal("doc-secret")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(sealed, sealedPrefix))

	mock.ExpectQuery(`FROM tenants WHERE client_key = \$1`).
		WithArgs("ck-3").
		WillReturnRows(pgxmock.NewRows(tenantColumns).
			AddRow("ck-3", "connect", "https://acme.atlassian.net/wiki", "", "plain-legacy", "", nil,
				"https://docs.example.com", sealed, "", time.Now()))
	got, err := r.Get(ctx, "ck-3")
	require.NoError(t, err)
	require.Equal(t, "plain-legacy", got.SharedSecret)
	require.Equal(t, "doc-secret", got.Settings.JWTSecret)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTenantRepo_SaveSettings(t *testing.T) {
	r, mock := newRepo(t, nil)
	defer mock.Close()
	ctx := context.Background()
	s := tenants.Settings{DocAPIURL: "https://docs.example.com", JWTSecret: "k", JWTHeader: "Authorization"}

	mock.ExpectExec(`UPDATE tenants SET doc_api_url = \$2, jwt_secret = \$3, jwt_header = \$4, updated_at = \$5 WHERE client_key = \$1`).
		WithArgs("ck-1", s.DocAPIURL, "k", "Authorization", r.now()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, r.SaveSettings(ctx, "ck-1", s))

	mock.ExpectExec(`UPDATE tenants`).
		WithArgs("nobody", s.DocAPIURL, "k", "Authorization", r.now()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	require.ErrorIs(t, r.SaveSettings(ctx, "nobody", s), errors.ErrTenantNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTenantRepo_Delete(t *testing.T) {
	r, mock := newRepo(t, nil)
	defer mock.Close()

	mock.ExpectExec(`DELETE FROM tenants WHERE client_key = \$1`).
		WithArgs("ck-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	require.NoError(t, r.Delete(context.Background(), "ck-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}
