package server

import (
	"net/http"

	"github.com/jrsteele09/onlyoffice-confluence/hostauth"
	"github.com/jrsteele09/onlyoffice-confluence/internal/errors"
	"github.com/jrsteele09/onlyoffice-confluence/permissions"
	"github.com/jrsteele09/onlyoffice-confluence/tenants"
	"github.com/jrsteele09/onlyoffice-confluence/token"
)

// DownloadHandler redirects the Document Server to the attachment's
// download URL once the download token, the Document Server token (when
// the tenant has a secret) and the user's read permission check out.
func (s *Server) DownloadHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenant, claims, err := s.sessionToken(r, r.URL.Query().Get("token"), token.ScopeDownload)
		if err != nil {
			writeError(w, err)
			return
		}

		if tenant.Settings.Signed() {
			raw := token.FromHeader(r.Header.Get(tenant.Settings.Header()))
			if raw == "" {
				writeError(w, errors.Wrapf(errors.ErrMissingToken, "could not find authentication data on request"))
				return
			}
			if _, err := s.codec.VerifyPayload(raw, tenant.Settings.JWTSecret); err != nil {
				writeError(w, err)
				return
			}
		}

		api, err := s.hosts.ForTenant(r.Context(), tenant)
		if err != nil {
			writeError(w, err)
			return
		}
		actor := &hostauth.Actor{ClientKey: tenant.ClientKey, AccountID: claims.UserID, Kind: tenant.Kind}
		if err := permissions.NewGate(api).Require(r.Context(), actor, claims.EntityID, permissions.Read); err != nil {
			writeError(w, err)
			return
		}

		location, err := api.DownloadURI(r.Context(), claims.ParentID, claims.EntityID)
		if err != nil {
			writeError(w, err)
			return
		}
		w.Header().Set("Location", location)
		w.WriteHeader(http.StatusFound)
	}
}

// sessionToken verifies a session token of the given scope against the
// secret of the tenant it names.
func (s *Server) sessionToken(r *http.Request, raw string, scope token.Scope) (*tenants.Tenant, *token.Claims, error) {
	clientKey, err := s.codec.PeekClientKey(raw)
	if err != nil {
		return nil, nil, err
	}
	tenant, err := s.tenants.Get(r.Context(), clientKey)
	if err != nil {
		return nil, nil, err
	}
	claims, err := s.codec.Verify(raw, tenant.SharedSecret, scope)
	if err != nil {
		return nil, nil, err
	}
	return tenant, claims, nil
}
