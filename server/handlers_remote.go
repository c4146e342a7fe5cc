package server

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/onlyoffice-confluence/editor"
	"github.com/jrsteele09/onlyoffice-confluence/hostauth"
	"github.com/jrsteele09/onlyoffice-confluence/internal/errors"
	"github.com/jrsteele09/onlyoffice-confluence/tenants"
	"github.com/jrsteele09/onlyoffice-confluence/token"
)

type authorizationRequest struct {
	ParentID string `json:"parentId"`
	EntityID string `json:"entityId"`
	SiteURL  string `json:"siteUrl"` // custom UI context, used when the invocation has none
}

// RemoteAuthorizationHandler issues the editor session token for the
// custom UI, on open and on every renewal.
func (s *Server) RemoteAuthorizationHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, tenant, err := requestIdentity(r)
		if err != nil {
			writeError(w, err)
			return
		}
		var req authorizationRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, err)
			return
		}
		if err := s.rememberSite(r, tenant, req.SiteURL); err != nil {
			writeError(w, err)
			return
		}
		auth, err := s.issuer.Issue(r.Context(), tenant, req.ParentID, req.EntityID, actor)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, auth)
	}
}

// rememberSite records the site root reported by the custom UI for a Forge
// tenant that does not have one yet.
func (s *Server) rememberSite(r *http.Request, tenant *tenants.Tenant, raw string) error {
	if tenant.Site != "" || raw == "" {
		return nil
	}
	site, ok := hostauth.NormalizeSiteURL(raw)
	if !ok {
		return errors.Wrapf(errors.ErrInvalidRequest, "siteUrl %q is not an Atlassian site", raw)
	}
	tenant.Site = site
	if err := s.tenants.Upsert(r.Context(), tenant); err != nil {
		return err
	}
	log.Info().Str("client_key", tenant.ClientKey).Str("site", site).Msg("forge site recorded")
	return nil
}

// RemoteReferenceDataHandler resolves an "insert reference" lookup made
// from an editor opened on parentId.
func (s *Server) RemoteReferenceDataHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, tenant, err := requestIdentity(r)
		if err != nil {
			writeError(w, err)
			return
		}
		var req editor.ReferenceRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, err)
			return
		}
		resp, err := s.opener.ResolveReference(r.Context(), tenant, actor, r.URL.Query().Get("parentId"), req)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// RemoteSettingsGetHandler returns the settings with the Forge keys.
func (s *Server) RemoteSettingsGetHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, tenant, err := requestIdentity(r)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, tenant.Settings.ForgeProperties())
	}
}

// RemoteSettingsPutHandler saves settings sent with the Forge keys. The
// secret may be left empty to run the Document Server leg unsigned.
func (s *Server) RemoteSettingsPutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, tenant, err := requestIdentity(r)
		if err != nil {
			writeError(w, err)
			return
		}
		props := map[string]string{}
		if err := decodeJSON(r, &props); err != nil {
			writeError(w, err)
			return
		}
		settings := tenants.SettingsFromForge(props)
		if settings.DocAPIURL == "" {
			writeError(w, errors.Wrapf(errors.ErrInvalidRequest, "%s is required", tenants.ForgeKeyURL))
			return
		}
		if err := s.saveSettings(r, tenant, settings); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, settings.ForgeProperties())
	}
}

type remoteEditorResponse struct {
	DocAPIURL    string         `json:"docApiUrl"`
	EditorConfig *editor.Config `json:"editorConfig"`
}

// RemoteEditorHandler serves the editor page the custom UI frames, or its
// config as JSON with format=json. The editor token in the query
// authenticates the request.
func (s *Server) RemoteEditorHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		tenant, claims, err := s.sessionToken(r, query.Get("token"), token.ScopeEditor)
		if err != nil {
			writeError(w, err)
			return
		}
		actor := &hostauth.Actor{ClientKey: tenant.ClientKey, AccountID: claims.UserID, Kind: tenant.Kind}
		cfg, err := s.opener.Open(r.Context(), tenant, actor, claims.ParentID, claims.EntityID, query.Get("mode"))

		if query.Get("format") == "json" {
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, remoteEditorResponse{DocAPIURL: tenant.Settings.DocumentServerURL(), EditorConfig: cfg})
			return
		}
		s.renderEditor(w, tenant, cfg, err, true)
	}
}
