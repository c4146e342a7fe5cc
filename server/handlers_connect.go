package server

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/onlyoffice-confluence/editor"
	"github.com/jrsteele09/onlyoffice-confluence/internal/errors"
	"github.com/jrsteele09/onlyoffice-confluence/tenants"
)

const pageTitle = "ONLYOFFICE"

// installPayload is the Connect lifecycle body.
type installPayload struct {
	Key          string `json:"key"`
	ClientKey    string `json:"clientKey"`
	SharedSecret string `json:"sharedSecret"`
	BaseURL      string `json:"baseUrl"`
	EventType    string `json:"eventType"`
}

// InstalledHandler registers a Connect installation. Re-installing an
// existing tenant must be signed with the secret already on file.
func (s *Server) InstalledHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload installPayload
		if err := decodeJSON(r, &payload); err != nil {
			writeError(w, err)
			return
		}
		if payload.ClientKey == "" || payload.SharedSecret == "" || payload.BaseURL == "" {
			writeError(w, errors.Wrapf(errors.ErrInvalidRequest, "clientKey, sharedSecret and baseUrl are required"))
			return
		}

		existing, err := s.tenants.Get(r.Context(), payload.ClientKey)
		switch {
		case err == nil:
			if err := s.connect.VerifyLifecycle(r, existing); err != nil {
				writeError(w, err)
				return
			}
		case !errors.Is(err, errors.ErrTenantNotFound):
			writeError(w, err)
			return
		}

		tenant := &tenants.Tenant{
			ClientKey:    payload.ClientKey,
			Kind:         tenants.KindConnect,
			BaseURL:      strings.TrimRight(payload.BaseURL, "/"),
			SharedSecret: payload.SharedSecret,
		}
		if err := s.tenants.Upsert(r.Context(), tenant); err != nil {
			writeError(w, err)
			return
		}
		log.Info().Str("client_key", tenant.ClientKey).Str("base_url", tenant.BaseURL).Msg("connect tenant installed")
		w.WriteHeader(http.StatusNoContent)
	}
}

// UninstalledHandler removes a Connect installation.
func (s *Server) UninstalledHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload installPayload
		if err := decodeJSON(r, &payload); err != nil {
			writeError(w, err)
			return
		}
		tenant, err := s.tenants.Get(r.Context(), payload.ClientKey)
		if err != nil {
			writeError(w, err)
			return
		}
		if err := s.connect.VerifyLifecycle(r, tenant); err != nil {
			writeError(w, err)
			return
		}
		if err := s.tenants.Delete(r.Context(), tenant.ClientKey); err != nil {
			writeError(w, err)
			return
		}
		log.Info().Str("client_key", tenant.ClientKey).Msg("connect tenant uninstalled")
		w.WriteHeader(http.StatusNoContent)
	}
}

type editorPage struct {
	Title     string
	DocAPIURL string
	Config    *editor.Config
	Error     string
	Remote    bool // embedded by the Forge custom UI
	Demo      bool
}

// EditorPageHandler renders the Connect editor page for an attachment.
func (s *Server) EditorPageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, tenant, err := requestIdentity(r)
		if err != nil {
			writeError(w, err)
			return
		}
		pageID := r.URL.Query().Get("pageId")
		attachmentID := r.URL.Query().Get("attachmentId")

		cfg, err := s.opener.Open(r.Context(), tenant, actor, pageID, attachmentID, r.URL.Query().Get("mode"))
		s.renderEditor(w, tenant, cfg, err, false)
	}
}

// renderEditor writes the editor page. Failures to open the document are
// shown as an inline banner at the status the error maps to.
func (s *Server) renderEditor(w http.ResponseWriter, tenant *tenants.Tenant, cfg *editor.Config, err error, remote bool) {
	page := editorPage{
		Title:     pageTitle,
		DocAPIURL: tenant.Settings.DocumentServerURL(),
		Config:    cfg,
		Remote:    remote,
		Demo:      tenant.Settings.Demo(),
	}
	if err != nil {
		status, message := editorBanner(err)
		page.Error = message
		page.Config = nil
		page.DocAPIURL = ""
		s.renderPage(w, status, "editor.html", page)
		return
	}
	page.Title = cfg.Document.Title + " - " + pageTitle
	s.renderPage(w, http.StatusOK, "editor.html", page)
}

// editorBanner maps an open failure to the page status and the text shown
// to the user. Unsupported formats still render at 200.
func editorBanner(err error) (int, string) {
	var formatErr *editor.FormatError
	if errors.As(err, &formatErr) {
		return http.StatusOK, formatErr.Error()
	}
	status := errors.HTTPStatus(err)
	switch {
	case status == http.StatusForbidden:
		return status, "You do not have permission to open this file."
	case status == http.StatusNotFound:
		return status, "The file could not be found. It may have been moved or deleted."
	case status >= http.StatusInternalServerError:
		log.Err(err).Int("status", status).Msg("editor could not be opened")
		return status, "The file could not be opened. Please try again later."
	default:
		return status, err.Error()
	}
}

type configurePage struct {
	Title    string
	Action   string
	Settings tenants.Settings
}

// ConfigureGetHandler renders the Connect settings page.
func (s *Server) ConfigureGetHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, tenant, err := requestIdentity(r)
		if err != nil {
			writeError(w, err)
			return
		}
		s.renderPage(w, http.StatusOK, "configure.html", configurePage{
			Title:    pageTitle,
			Action:   s.config.GetBaseURL() + RouteConfigure,
			Settings: tenant.Settings,
		})
	}
}

// ConfigurePostHandler saves the Connect settings. docApiUrl and jwtSecret
// are required.
func (s *Server) ConfigurePostHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, tenant, err := requestIdentity(r)
		if err != nil {
			writeError(w, err)
			return
		}

		props := map[string]string{}
		if strings.HasPrefix(r.Header.Get("Content-Type"), contentTypeJSON) {
			if err := decodeJSON(r, &props); err != nil {
				writeError(w, err)
				return
			}
		} else {
			if err := r.ParseForm(); err != nil {
				writeError(w, errors.Wrapf(errors.ErrInvalidRequest, "malformed form"))
				return
			}
			for _, key := range []string{tenants.ConnectKeyDocAPIURL, tenants.ConnectKeyJWTSecret, tenants.ConnectKeyJWTHeader} {
				props[key] = r.PostForm.Get(key)
			}
		}

		settings := tenants.SettingsFromConnect(props)
		if settings.DocAPIURL == "" || settings.JWTSecret == "" {
			writeError(w, errors.Wrapf(errors.ErrInvalidRequest, "docApiUrl and jwtSecret are required"))
			return
		}
		if err := s.saveSettings(r, tenant, settings); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

func (s *Server) saveSettings(r *http.Request, tenant *tenants.Tenant, settings tenants.Settings) error {
	if settings.JWTHeader == "" {
		settings.JWTHeader = s.config.GetDefaultJWTHeader()
	}
	if err := s.tenants.SaveSettings(r.Context(), tenant.ClientKey, settings); err != nil {
		return err
	}
	log.Info().Str("client_key", tenant.ClientKey).Bool("signed", settings.Signed()).Msg("settings saved")
	return nil
}
