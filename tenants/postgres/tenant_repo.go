package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jrsteele09/onlyoffice-confluence/internal/errors"
	"github.com/jrsteele09/onlyoffice-confluence/tenants"
)

var _ tenants.Repo = (*TenantRepo)(nil)

// TenantRepo implements tenants.Repo using PostgreSQL. Secrets are sealed
// with the configured Sealer before they are written.
type TenantRepo struct {
	db     *DB
	sealer *Sealer
	now    func() time.Time
}

// NewTenantRepo constructs a tenant repository. sealer may be nil.
func NewTenantRepo(db *DB, sealer *Sealer) *TenantRepo {
	return &TenantRepo{db: db, sealer: sealer, now: time.Now}
}

// Upsert stores the registration part of a tenant. Document Server settings
// of an existing tenant are left untouched; they change through SaveSettings.
func (r *TenantRepo) Upsert(ctx context.Context, t *tenants.Tenant) error {
	if t == nil || t.ClientKey == "" {
		return errors.Wrapf(errors.ErrInvalidRequest, "tenant without client key")
	}
	sharedSecret, err := r.sealer.Seal(t.SharedSecret)
	if err != nil {
		return err
	}
	systemToken, err := r.sealer.Seal(t.SystemToken)
	if err != nil {
		return err
	}
	var expiry *time.Time
	if !t.TokenExpiry.IsZero() {
		e := t.TokenExpiry.UTC()
		expiry = &e
	}
	t.UpdatedAt = r.now().UTC()

	const q = `
INSERT INTO tenants (client_key, kind, base_url, site_url, shared_secret, system_token, token_expiry, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (client_key) DO UPDATE
SET kind = EXCLUDED.kind, base_url = EXCLUDED.base_url, site_url = EXCLUDED.site_url, shared_secret = EXCLUDED.shared_secret,
    system_token = EXCLUDED.system_token, token_expiry = EXCLUDED.token_expiry, updated_at = EXCLUDED.updated_at`
	_, err = r.db.Pool.Exec(ctx, q, t.ClientKey, string(t.Kind), t.BaseURL, t.Site, sharedSecret, systemToken, expiry, t.UpdatedAt)
	return err
}

// Delete removes a tenant. Deleting an unknown tenant is not an error.
func (r *TenantRepo) Delete(ctx context.Context, clientKey string) error {
	const q = `DELETE FROM tenants WHERE client_key = $1`
	_, err := r.db.Pool.Exec(ctx, q, clientKey)
	return err
}

// Get selects a tenant by client key.
func (r *TenantRepo) Get(ctx context.Context, clientKey string) (*tenants.Tenant, error) {
	const q = `
SELECT client_key, kind, base_url, site_url, shared_secret, system_token, token_expiry, doc_api_url, jwt_secret, jwt_header, updated_at
FROM tenants WHERE client_key = $1`
	var (
		t                                    tenants.Tenant
		kind                                 string
		sharedSecret, systemToken, jwtSecret string
		expiry                               *time.Time
	)
	row := r.db.Pool.QueryRow(ctx, q, clientKey)
	err := row.Scan(&t.ClientKey, &kind, &t.BaseURL, &t.Site, &sharedSecret, &systemToken, &expiry,
		&t.Settings.DocAPIURL, &jwtSecret, &t.Settings.JWTHeader, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.ErrTenantNotFound
		}
		return nil, err
	}
	t.Kind = tenants.Kind(kind)
	if expiry != nil {
		t.TokenExpiry = *expiry
	}
	if t.SharedSecret, err = r.sealer.Open(sharedSecret); err != nil {
		return nil, errors.Wrapf(err, "tenant %s shared secret", clientKey)
	}
	if t.SystemToken, err = r.sealer.Open(systemToken); err != nil {
		return nil, errors.Wrapf(err, "tenant %s system token", clientKey)
	}
	if t.Settings.JWTSecret, err = r.sealer.Open(jwtSecret); err != nil {
		return nil, errors.Wrapf(err, "tenant %s document server secret", clientKey)
	}
	return &t, nil
}

// SaveSettings replaces the Document Server settings of a tenant.
func (r *TenantRepo) SaveSettings(ctx context.Context, clientKey string, s tenants.Settings) error {
	jwtSecret, err := r.sealer.Seal(s.JWTSecret)
	if err != nil {
		return err
	}
	const q = `
UPDATE tenants
SET doc_api_url = $2, jwt_secret = $3, jwt_header = $4, updated_at = $5
WHERE client_key = $1`
	tag, err := r.db.Pool.Exec(ctx, q, clientKey, s.DocAPIURL, jwtSecret, s.JWTHeader, r.now().UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errors.ErrTenantNotFound
	}
	return nil
}
