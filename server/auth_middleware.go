package server

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/onlyoffice-confluence/hostauth"
	"github.com/jrsteele09/onlyoffice-confluence/internal/errors"
	"github.com/jrsteele09/onlyoffice-confluence/tenants"
)

// RequireConnect authenticates Connect page and API requests. allowContextQSH
// accepts tokens the browser obtained with AP.context.getToken().
func (s *Server) RequireConnect(allowContextQSH bool) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			actor, tenant, err := s.connect.Authenticate(r, allowContextQSH)
			if err != nil {
				writeError(w, err)
				return
			}
			ctx := hostauth.WithActor(r.Context(), actor)
			ctx = hostauth.WithTenant(ctx, tenant)
			next(w, r.WithContext(ctx))
		}
	}
}

// RequireForge authenticates invokeRemote calls. The first call of an
// installation registers it as a tenant, and the system token sent along
// is cached for calls made outside a Forge invocation.
func (s *Server) RequireForge() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if s.forge == nil {
				writeError(w, errors.Wrapf(errors.ErrUnsupported, "forge is not configured"))
				return
			}
			invocation, err := s.forge.Verify(r.Context(), hostauth.ForgeTokenFromRequest(r))
			if err != nil {
				writeError(w, err)
				return
			}
			tenant, err := s.forgeTenant(r.Context(), invocation, r.Header.Get(hostauth.HeaderForgeSystemToken))
			if err != nil {
				writeError(w, err)
				return
			}
			ctx := hostauth.WithActor(r.Context(), invocation.Actor())
			ctx = hostauth.WithTenant(ctx, tenant)
			next(w, r.WithContext(ctx))
		}
	}
}

// forgeTenant loads the installation, registering or refreshing it when
// the invocation carries something new.
func (s *Server) forgeTenant(ctx context.Context, invocation *hostauth.ForgeInvocation, systemToken string) (*tenants.Tenant, error) {
	tenant, err := s.tenants.Get(ctx, invocation.App.InstallationID)
	switch {
	case errors.Is(err, errors.ErrTenantNotFound):
		tenant = &tenants.Tenant{
			ClientKey: invocation.App.InstallationID,
			Kind:      tenants.KindForge,
		}
	case err != nil:
		return nil, err
	case tenant.Kind != tenants.KindForge:
		return nil, errors.Wrapf(errors.ErrInvalidToken, "installation %s is not a forge tenant", tenant.ClientKey)
	}

	changed, err := tenant.EnsureSharedSecret()
	if err != nil {
		return nil, err
	}
	if baseURL := invocation.ConfluenceBaseURL(); tenant.BaseURL != baseURL {
		tenant.BaseURL = baseURL
		changed = true
	}
	if site := invocation.SiteURL(); site != "" && tenant.Site != site {
		tenant.Site = site
		changed = true
	}
	if systemToken != "" && systemToken != tenant.SystemToken {
		tenant.SystemToken = systemToken
		tenant.TokenExpiry = invocation.Expiry
		changed = true
	}
	if !changed {
		return tenant, nil
	}

	if err := s.tenants.Upsert(ctx, tenant); err != nil {
		return nil, errors.Wrapf(err, "registering forge installation")
	}
	log.Info().Str("client_key", tenant.ClientKey).Msg("forge installation updated")
	return tenant, nil
}

// RequireAdmin lets through members of the configured admin groups. It runs
// after RequireConnect or RequireForge.
func (s *Server) RequireAdmin() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			actor, tenant, err := requestIdentity(r)
			if err != nil {
				writeError(w, err)
				return
			}
			api, err := s.hosts.ForTenant(r.Context(), tenant)
			if err != nil {
				writeError(w, err)
				return
			}
			admin, err := api.IsAdmin(r.Context(), actor.AccountID, s.config.GetAdminGroups())
			if err != nil {
				writeError(w, errors.Wrapf(errors.ErrPermissionUnknown, "admin check: %v", err))
				return
			}
			if !admin {
				writeError(w, errors.Wrapf(errors.ErrForbidden, "administrators only"))
				return
			}
			next(w, r)
		}
	}
}

// requestIdentity returns the caller and tenant set by the auth middleware.
func requestIdentity(r *http.Request) (*hostauth.Actor, *tenants.Tenant, error) {
	actor, ok := hostauth.ActorFrom(r.Context())
	if !ok || actor.AccountID == "" {
		return nil, nil, errors.ErrMissingToken
	}
	tenant, ok := hostauth.TenantFrom(r.Context())
	if !ok {
		return nil, nil, errors.ErrTenantNotFound
	}
	return actor, tenant, nil
}
