package server

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/onlyoffice-confluence/confluence/confluencefakes"
	"github.com/jrsteele09/onlyoffice-confluence/hostauth"
	"github.com/jrsteele09/onlyoffice-confluence/internal/config"
	"github.com/jrsteele09/onlyoffice-confluence/tenants"
	tenantrepofakes "github.com/jrsteele09/onlyoffice-confluence/tenants/repofakes"
	"github.com/jrsteele09/onlyoffice-confluence/token"
)

const (
	testBaseURL      = "https://relay.example.com"
	testForgeAppID   = "ari:cloud:ecosystem::app/0000-1111"
	testInstallation = "ari:cloud:ecosystem::installation/abc"
)

var testNow = time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

type fakeDownloader struct {
	mu    sync.Mutex
	calls int
}

func (d *fakeDownloader) Download(context.Context, string) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	return []byte("saved document bytes"), nil
}

type fixture struct {
	srv        *Server
	repo       *tenantrepofakes.FakeTenantRepo
	api        *confluencefakes.FakeAPI
	downloader *fakeDownloader
	codec      *token.Codec
	forgeKey   *rsa.PrivateKey
	forgeSite  string // context.siteUrl of invocation tokens, if set
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	t.Setenv("BASE_URL", testBaseURL)
	t.Setenv("ENV", "TEST")
	t.Setenv("ALLOWED_ORIGINS", "https://custom-ui.example.com")

	repo := tenantrepofakes.NewFakeTenantRepo()
	require.NoError(t, repo.Upsert(context.Background(), &tenants.Tenant{
		ClientKey:    "ck-1",
		Kind:         tenants.KindConnect,
		BaseURL:      "https://acme.atlassian.net/wiki",
		SharedSecret: "shared",
		Settings:     tenants.Settings{DocAPIURL: "https://docs.example.com/"},
	}))

	api := confluencefakes.NewFakeAPI()
	api.AddAttachment("page456", "att123", "Report.docx")
	api.AddAttachment("page456", "att9", "archive.zip")
	api.Allow("u1", "att123", "read", "update").Allow("u1", "att9", "read")
	api.Groups["u1"] = []string{"confluence-admins"}

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	now := func() time.Time { return testNow }
	forge := hostauth.NewForgeVerifierWithKeySet(testForgeAppID, &oidc.StaticKeySet{PublicKeys: []crypto.PublicKey{&key.PublicKey}}, now)

	downloader := &fakeDownloader{}
	srv, err := New(config.New(), Deps{
		Tenants:    repo,
		Hosts:      &confluencefakes.FakeProvider{API: api},
		Forge:      forge,
		Downloader: downloader,
		Now:        now,
	})
	require.NoError(t, err)

	return &fixture{srv: srv, repo: repo, api: api, downloader: downloader, codec: token.NewCodec(now), forgeKey: key}
}

func (f *fixture) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.srv.ServeHTTP(rec, req)
	return rec
}

// connectRequest signs target for the Connect tenant ck-1. An empty qsh
// signs the canonical request.
func (f *fixture) connectRequest(t *testing.T, method, target, accountID, qsh string, body string) *http.Request {
	t.Helper()
	u, err := url.Parse(target)
	require.NoError(t, err)
	if qsh == "" {
		qsh = hostauth.QueryStringHash(method, u, "")
	}
	raw, err := token.NewHMACSigner("shared").Sign(&hostauth.ConnectClaims{
		QSH: qsh,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "ck-1",
			Subject:   accountID,
			ExpiresAt: jwt.NewNumericDate(testNow.Add(3 * time.Minute)),
		},
	})
	require.NoError(t, err)

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Authorization", "JWT "+raw)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

func (f *fixture) forgeRequest(t *testing.T, method, target, principal, body string) *http.Request {
	t.Helper()
	claims := jwt.MapClaims{
		"iss":       hostauth.ForgeIssuer,
		"aud":       testForgeAppID,
		"iat":       testNow.Unix(),
		"exp":       testNow.Add(time.Minute).Unix(),
		"principal": principal,
		"app": map[string]any{
			"id":             testForgeAppID,
			"installationId": testInstallation,
			"apiBaseUrl":     "https://api.atlassian.com/ex/confluence/cloud-1",
		},
	}
	if f.forgeSite != "" {
		claims["context"] = map[string]any{"cloudId": "cloud-1", "siteUrl": f.forgeSite}
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(f.forgeKey)
	require.NoError(t, err)

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+raw)
	req.Header.Set(hostauth.HeaderForgeSystemToken, "system-token")
	req.Header.Set("Content-Type", "application/json")
	return req
}

func (f *fixture) sessionToken(t *testing.T, scope token.Scope, userID string) string {
	t.Helper()
	raw, err := f.codec.Sign(token.Claims{
		ParentID:  "page456",
		EntityID:  "att123",
		ClientKey: "ck-1",
		UserID:    userID,
		Scope:     scope,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(testNow.Add(10 * time.Minute)),
		},
	}, "shared")
	require.NoError(t, err)
	return raw
}

func (f *fixture) setSecret(t *testing.T, secret string) {
	t.Helper()
	require.NoError(t, f.repo.SaveSettings(context.Background(), "ck-1", tenants.Settings{
		DocAPIURL: "https://docs.example.com",
		JWTSecret: secret,
	}))
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	rec := f.do(httptest.NewRequest(http.MethodGet, RouteHealth, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestInstalledAndUninstalled(t *testing.T) {
	f := newFixture(t)
	payload := `{"key":"onlyoffice","clientKey":"ck-2","sharedSecret":"secret-2","baseUrl":"https://beta.atlassian.net/wiki/"}`

	rec := f.do(httptest.NewRequest(http.MethodPost, RouteInstalled, strings.NewReader(payload)))
	require.Equal(t, http.StatusNoContent, rec.Code)
	tenant, err := f.repo.Get(context.Background(), "ck-2")
	require.NoError(t, err)
	require.Equal(t, tenants.KindConnect, tenant.Kind)
	require.Equal(t, "https://beta.atlassian.net/wiki", tenant.BaseURL)

	// a second install must prove it owns the tenant
	rec = f.do(httptest.NewRequest(http.MethodPost, RouteInstalled, strings.NewReader(payload)))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(httptest.NewRequest(http.MethodPost, RouteInstalled, strings.NewReader(`{"clientKey":"ck-3"}`)))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	// ck-1 uninstalls with a lifecycle token signed by its secret
	req := f.connectRequest(t, http.MethodPost, RouteUninstalled, "", "", `{"clientKey":"ck-1"}`)
	rec = f.do(req)
	require.Equal(t, http.StatusNoContent, rec.Code)
	_, err = f.repo.Get(context.Background(), "ck-1")
	require.Error(t, err)
}

func TestEditorPage(t *testing.T) {
	target := RouteEditor + "?pageId=page456&attachmentId=att123"

	t.Run("renders editor", func(t *testing.T) {
		f := newFixture(t)
		rec := f.do(f.connectRequest(t, http.MethodGet, target, "u1", "", ""))
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, frameAncestors, rec.Header().Get("Content-Security-Policy"))
		body := rec.Body.String()
		require.Contains(t, body, "https://docs.example.com/web-apps/apps/api/documents/api.js")
		require.Contains(t, body, "DocsAPI.DocEditor")
		require.Contains(t, body, "Report.docx - ONLYOFFICE")
		require.Contains(t, body, "att123_1")
	})

	t.Run("no read permission", func(t *testing.T) {
		f := newFixture(t)
		rec := f.do(f.connectRequest(t, http.MethodGet, target, "u2", "", ""))
		require.Equal(t, http.StatusForbidden, rec.Code)
		require.Contains(t, rec.Header().Get("Content-Type"), "text/html")
		require.Contains(t, rec.Body.String(), `role="alert"`)
		require.Contains(t, rec.Body.String(), "You do not have permission to open this file.")
		require.NotContains(t, rec.Body.String(), "DocsAPI.DocEditor")
	})

	t.Run("confluence unavailable", func(t *testing.T) {
		f := newFixture(t)
		f.api.PermissionErr = context.DeadlineExceeded
		rec := f.do(f.connectRequest(t, http.MethodGet, target, "u1", "", ""))
		require.Equal(t, http.StatusBadGateway, rec.Code)
		require.Contains(t, rec.Body.String(), "The file could not be opened. Please try again later.")
		require.NotContains(t, rec.Body.String(), "deadline")
	})

	t.Run("unsupported format", func(t *testing.T) {
		f := newFixture(t)
		rec := f.do(f.connectRequest(t, http.MethodGet, RouteEditor+"?pageId=page456&attachmentId=att9", "u1", "", ""))
		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, rec.Body.String(), "Sorry, this file format is not supported (zip)")
		require.NotContains(t, rec.Body.String(), "DocsAPI.DocEditor")
	})

	t.Run("query string hash mismatch", func(t *testing.T) {
		f := newFixture(t)
		rec := f.do(f.connectRequest(t, http.MethodGet, target, "u1", "not-the-hash", ""))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestDownload(t *testing.T) {
	t.Run("redirects to confluence", func(t *testing.T) {
		f := newFixture(t)
		rec := f.do(httptest.NewRequest(http.MethodGet, RouteDownload+"?token="+f.sessionToken(t, token.ScopeDownload, "u1"), nil))
		require.Equal(t, http.StatusFound, rec.Code)
		require.Equal(t, "https://media.example.com/page456/att123", rec.Header().Get("Location"))
	})

	t.Run("wrong scope", func(t *testing.T) {
		f := newFixture(t)
		rec := f.do(httptest.NewRequest(http.MethodGet, RouteDownload+"?token="+f.sessionToken(t, token.ScopeEditor, "u1"), nil))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Zero(t, f.api.PermissionCalls)
	})

	t.Run("no read permission", func(t *testing.T) {
		f := newFixture(t)
		rec := f.do(httptest.NewRequest(http.MethodGet, RouteDownload+"?token="+f.sessionToken(t, token.ScopeDownload, "u2"), nil))
		require.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("signed tenant needs document server token", func(t *testing.T) {
		f := newFixture(t)
		f.setSecret(t, "ds-secret")
		target := RouteDownload + "?token=" + f.sessionToken(t, token.ScopeDownload, "u1")

		rec := f.do(httptest.NewRequest(http.MethodGet, target, nil))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Zero(t, f.api.PermissionCalls)

		dsToken, err := f.codec.SignPayload(map[string]any{"payload": map[string]any{"url": target}}, "ds-secret")
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, target, nil)
		req.Header.Set("Authorization", "Bearer "+dsToken)
		rec = f.do(req)
		require.Equal(t, http.StatusFound, rec.Code)
	})
}

func TestCallbackRoute(t *testing.T) {
	f := newFixture(t)
	target := RouteCallback + "?token=" + f.sessionToken(t, token.ScopeCallback, "u1")
	body := `{"key":"att123_1","status":2,"url":"https://docs.example.com/cache/att123.docx","actions":[{"type":0,"userid":"u1"}]}`

	rec := f.do(httptest.NewRequest(http.MethodPost, target, strings.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"error":0}`, rec.Body.String())
	require.Equal(t, 1, f.downloader.calls)
	require.Len(t, f.api.Updates, 1)
	require.Equal(t, "page456", f.api.Updates[0].PageID)
	require.Equal(t, "att123", f.api.Updates[0].AttachmentID)
	require.Equal(t, []byte("saved document bytes"), f.api.Updates[0].Data)
}

func TestConfigure(t *testing.T) {
	t.Run("get renders settings", func(t *testing.T) {
		f := newFixture(t)
		rec := f.do(f.connectRequest(t, http.MethodGet, RouteConfigure, "u1", "", ""))
		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, rec.Body.String(), `value="https://docs.example.com/"`)
	})

	t.Run("post saves settings", func(t *testing.T) {
		f := newFixture(t)
		req := f.connectRequest(t, http.MethodPost, RouteConfigure, "u1", hostauth.ContextQSH,
			`{"docApiUrl":"https://docs2.example.com","jwtSecret":"ds-secret"}`)
		rec := f.do(req)
		require.Equal(t, http.StatusOK, rec.Code)

		tenant, err := f.repo.Get(context.Background(), "ck-1")
		require.NoError(t, err)
		require.Equal(t, "https://docs2.example.com", tenant.Settings.DocAPIURL)
		require.Equal(t, "ds-secret", tenant.Settings.JWTSecret)
		require.Equal(t, "Authorization", tenant.Settings.JWTHeader)
	})

	t.Run("post requires secret", func(t *testing.T) {
		f := newFixture(t)
		req := f.connectRequest(t, http.MethodPost, RouteConfigure, "u1", hostauth.ContextQSH, `{"docApiUrl":"https://docs2.example.com"}`)
		require.Equal(t, http.StatusBadRequest, f.do(req).Code)
	})

	t.Run("admins only", func(t *testing.T) {
		f := newFixture(t)
		req := f.connectRequest(t, http.MethodPost, RouteConfigure, "u2", hostauth.ContextQSH,
			`{"docApiUrl":"https://docs2.example.com","jwtSecret":"ds-secret"}`)
		require.Equal(t, http.StatusForbidden, f.do(req).Code)
	})
}

func TestRemoteAuthorizationAndEditor(t *testing.T) {
	f := newFixture(t)

	rec := f.do(f.forgeRequest(t, http.MethodPost, RouteRemoteAuthorization, "u1", `{"parentId":"page456","entityId":"att123"}`))
	require.Equal(t, http.StatusOK, rec.Code)
	var auth struct {
		Token          string `json:"token"`
		RemoteAppURL   string `json:"remoteAppUrl"`
		SessionExpires int64  `json:"sessionExpires"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &auth))
	require.Equal(t, testBaseURL, auth.RemoteAppURL)
	require.Equal(t, testNow.Add(30*time.Minute).UnixMilli(), auth.SessionExpires)

	tenant, err := f.repo.Get(context.Background(), testInstallation)
	require.NoError(t, err)
	require.Equal(t, tenants.KindForge, tenant.Kind)
	require.Equal(t, "https://api.atlassian.com/ex/confluence/cloud-1/wiki", tenant.BaseURL)
	require.Equal(t, "system-token", tenant.SystemToken)
	require.NotEmpty(t, tenant.SharedSecret)

	claims, err := f.codec.Verify(auth.Token, tenant.SharedSecret, token.ScopeEditor)
	require.NoError(t, err)
	require.Equal(t, "u1", claims.UserID)

	rec = f.do(httptest.NewRequest(http.MethodGet, RouteRemoteEditor+"?mode=EDIT&format=json&token="+auth.Token, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var editorResp struct {
		EditorConfig struct {
			Document struct {
				Key string `json:"key"`
			} `json:"document"`
			EditorConfig struct {
				Mode string `json:"mode"`
			} `json:"editorConfig"`
		} `json:"editorConfig"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &editorResp))
	require.Equal(t, "att123_1", editorResp.EditorConfig.Document.Key)
	require.Equal(t, "edit", editorResp.EditorConfig.EditorConfig.Mode)

	rec = f.do(httptest.NewRequest(http.MethodGet, RouteRemoteEditor+"?mode=VIEW&token="+auth.Token, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "DOCS_API_UNDEFINED")

	rec = f.do(httptest.NewRequest(http.MethodGet, RouteRemoteEditor+"?token="+f.sessionToken(t, token.ScopeDownload, "u1"), nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRemoteEditorPageSpeaksFrameProtocol(t *testing.T) {
	f := newFixture(t)
	rec := f.do(f.forgeRequest(t, http.MethodPost, RouteRemoteAuthorization, "u1", `{"parentId":"page456","entityId":"att123"}`))
	require.Equal(t, http.StatusOK, rec.Code)
	var auth struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &auth))

	t.Run("iframe side of the protocol", func(t *testing.T) {
		rec := f.do(httptest.NewRequest(http.MethodGet, RouteRemoteEditor+"?mode=EDIT&token="+auth.Token, nil))
		require.Equal(t, http.StatusOK, rec.Code)
		body := rec.Body.String()
		require.Regexp(t, `var remote =\s*true\s*;`, body)
		require.Regexp(t, `var demo =\s*false\s*;`, body)
		for _, want := range []string{
			"onRequestRefreshFile",
			`post("SESSION_EXPIRED"`,
			`case "UPDATE_CONFIG"`,
			"editor.refreshFile(config)",
			`post("CONFIG_UPDATED"`,
			`post("ERROR_UPDATE_CONFIG"`,
			`case "STOP_EDITING"`,
			"editor.denyEditingRights",
			`case "REFRESH_SESSION"`,
			`next.searchParams.set("token", currentToken)`,
			"event.origin !== parentOrigin",
			"event.source !== window.parent",
		} {
			require.Contains(t, body, want)
		}
		require.NotContains(t, body, `"*")`)
	})

	t.Run("demo server is announced", func(t *testing.T) {
		require.NoError(t, f.repo.SaveSettings(context.Background(), testInstallation,
			tenants.Settings{DocAPIURL: "https://onlinedocs.docs.onlyoffice.com/"}))
		rec := f.do(httptest.NewRequest(http.MethodGet, RouteRemoteEditor+"?mode=EDIT&token="+auth.Token, nil))
		require.Equal(t, http.StatusOK, rec.Code)
		require.Regexp(t, `var demo =\s*true\s*;`, rec.Body.String())
		require.Contains(t, rec.Body.String(), "https://onlinedocs.docs.onlyoffice.com/web-apps/apps/api/documents/api.js")
	})

	t.Run("open failure renders banner", func(t *testing.T) {
		f.api.PermissionErr = context.DeadlineExceeded
		defer func() { f.api.PermissionErr = nil }()
		rec := f.do(httptest.NewRequest(http.MethodGet, RouteRemoteEditor+"?mode=EDIT&token="+auth.Token, nil))
		require.Equal(t, http.StatusBadGateway, rec.Code)
		require.Contains(t, rec.Body.String(), `role="alert"`)
		require.NotContains(t, rec.Body.String(), "api.js")
	})
}

func TestRemoteAuthorizationRecordsForgeSite(t *testing.T) {
	t.Run("from invocation context", func(t *testing.T) {
		f := newFixture(t)
		f.forgeSite = "https://acme.atlassian.net/"
		rec := f.do(f.forgeRequest(t, http.MethodPost, RouteRemoteAuthorization, "u1", `{"parentId":"page456","entityId":"att123"}`))
		require.Equal(t, http.StatusOK, rec.Code)

		tenant, err := f.repo.Get(context.Background(), testInstallation)
		require.NoError(t, err)
		require.Equal(t, "https://acme.atlassian.net", tenant.SiteURL())
	})

	t.Run("from custom UI", func(t *testing.T) {
		f := newFixture(t)
		rec := f.do(f.forgeRequest(t, http.MethodPost, RouteRemoteAuthorization, "u1",
			`{"parentId":"page456","entityId":"att123","siteUrl":"https://acme.atlassian.net"}`))
		require.Equal(t, http.StatusOK, rec.Code)

		tenant, err := f.repo.Get(context.Background(), testInstallation)
		require.NoError(t, err)
		require.Equal(t, "https://acme.atlassian.net", tenant.SiteURL())

		var auth struct {
			Token string `json:"token"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &auth))
		rec = f.do(httptest.NewRequest(http.MethodGet, RouteRemoteEditor+"?format=json&token="+auth.Token, nil))
		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, rec.Body.String(), `"image":"https://acme.atlassian.net/wiki/aa-avatar/u1"`)
	})

	t.Run("rejects foreign sites", func(t *testing.T) {
		f := newFixture(t)
		rec := f.do(f.forgeRequest(t, http.MethodPost, RouteRemoteAuthorization, "u1",
			`{"parentId":"page456","entityId":"att123","siteUrl":"https://evil.example.com"}`))
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestRemoteRoutesRequireInvocationToken(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodPost, RouteRemoteAuthorization, strings.NewReader(`{"parentId":"page456","entityId":"att123"}`))
	require.Equal(t, http.StatusUnauthorized, f.do(req).Code)
}

func TestRemoteReferenceData(t *testing.T) {
	f := newFixture(t)
	rec := f.do(f.forgeRequest(t, http.MethodPost, RouteRemoteReferenceData+"?parentId=page456", "u1", `{"path":"Report.docx"}`))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"fileKey":"att123"`)

	rec = f.do(f.forgeRequest(t, http.MethodPost, RouteRemoteReferenceData+"?parentId=page456", "u1", `{"path":"Missing.docx"}`))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRemoteSettings(t *testing.T) {
	f := newFixture(t)

	rec := f.do(f.forgeRequest(t, http.MethodPut, RouteRemoteSettings, "u1",
		`{"url":"https://docs.example.com","security.key":"ds-secret","security.header":"AuthorizationJwt"}`))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(f.forgeRequest(t, http.MethodGet, RouteRemoteSettings, "u1", ""))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"url":"https://docs.example.com","security.key":"ds-secret","security.header":"AuthorizationJwt"}`, rec.Body.String())

	rec = f.do(f.forgeRequest(t, http.MethodPut, RouteRemoteSettings, "u1", `{"security.key":"x"}`))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(f.forgeRequest(t, http.MethodGet, RouteRemoteSettings, "u2", ""))
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestMiddleware(t *testing.T) {
	f := newFixture(t)

	t.Run("recover", func(t *testing.T) {
		handler := ChainMiddleware(func(http.ResponseWriter, *http.Request) { panic("boom") }, f.srv.APIMiddleware()...)
		rec := httptest.NewRecorder()
		handler(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusInternalServerError, rec.Code)
	})

	t.Run("cors", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, RouteDownload, nil)
		req.Header.Set("Origin", "https://custom-ui.example.com")
		rec := f.do(req)
		require.Equal(t, "https://custom-ui.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

		req = httptest.NewRequest(http.MethodGet, RouteDownload, nil)
		req.Header.Set("Origin", "https://evil.example.com")
		rec = f.do(req)
		require.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})
}
