package hostauth

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"

	"github.com/jrsteele09/onlyoffice-confluence/internal/errors"
	"github.com/jrsteele09/onlyoffice-confluence/tenants"
)

const (
	// ForgeIssuer is the iss claim of Forge remote invocation tokens.
	ForgeIssuer = "forge/invocation-token"

	// HeaderForgeSystemToken carries the app system token on invokeRemote
	// calls when the remote declares it needs one.
	HeaderForgeSystemToken = "x-forge-oauth-system"
)

// ForgeInvocation is the verified content of a Forge invocation token.
type ForgeInvocation struct {
	Principal string `json:"principal"` // account id of the user, if any
	App       struct {
		ID             string `json:"id"`
		InstallationID string `json:"installationId"`
		APIBaseURL     string `json:"apiBaseUrl"`
		Environment    struct {
			Type string `json:"type"`
			ID   string `json:"id"`
		} `json:"environment"`
	} `json:"app"`
	Context struct {
		CloudID   string `json:"cloudId"`
		ModuleKey string `json:"moduleKey"`
		SiteURL   string `json:"siteUrl"`
	} `json:"context"`
	Expiry time.Time `json:"-"`
}

// ConfluenceBaseURL is the REST base for calls made with the system token.
func (f *ForgeInvocation) ConfluenceBaseURL() string {
	return strings.TrimRight(f.App.APIBaseURL, "/") + "/wiki"
}

// SiteURL is the browser-facing site root carried by the invocation
// context, or "" when absent or not an Atlassian site.
func (f *ForgeInvocation) SiteURL() string {
	site, _ := NormalizeSiteURL(f.Context.SiteURL)
	return site
}

// NormalizeSiteURL accepts https Atlassian site roots and returns them
// without trailing slash.
func NormalizeSiteURL(raw string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Scheme != "https" || u.User != nil {
		return "", false
	}
	host := strings.ToLower(u.Hostname())
	if !strings.HasSuffix(host, ".atlassian.net") && !strings.HasSuffix(host, ".jira.com") {
		return "", false
	}
	return "https://" + u.Host, true
}

// Actor returns the caller described by the invocation.
func (f *ForgeInvocation) Actor() *Actor {
	return &Actor{ClientKey: f.App.InstallationID, AccountID: f.Principal, Kind: tenants.KindForge}
}

// ForgeVerifier checks invocation tokens against Atlassian's JWKS.
type ForgeVerifier struct {
	appID    string
	verifier *oidc.IDTokenVerifier
}

// NewForgeVerifier fetches signing keys from jwksURL on demand.
func NewForgeVerifier(ctx context.Context, appID, jwksURL string, now func() time.Time) *ForgeVerifier {
	return NewForgeVerifierWithKeySet(appID, oidc.NewRemoteKeySet(ctx, jwksURL), now)
}

// NewForgeVerifierWithKeySet verifies against the given key set.
func NewForgeVerifierWithKeySet(appID string, keys oidc.KeySet, now func() time.Time) *ForgeVerifier {
	return &ForgeVerifier{
		appID: appID,
		verifier: oidc.NewVerifier(ForgeIssuer, keys, &oidc.Config{
			ClientID:             appID,
			SupportedSigningAlgs: []string{oidc.RS256},
			Now:                  now,
		}),
	}
}

// Verify checks the signature, issuer, audience and expiry of raw.
func (v *ForgeVerifier) Verify(ctx context.Context, raw string) (*ForgeInvocation, error) {
	if v.appID == "" {
		return nil, errors.Wrapf(errors.ErrUnsupported, "forge app id is not configured")
	}
	if raw == "" {
		return nil, errors.ErrMissingToken
	}
	idToken, err := v.verifier.Verify(ctx, raw)
	if err != nil {
		var expired *oidc.TokenExpiredError
		if errors.As(err, &expired) {
			return nil, errors.ErrTokenExpired
		}
		return nil, errors.Wrapf(errors.ErrInvalidToken, "forge invocation token")
	}
	invocation := &ForgeInvocation{Expiry: idToken.Expiry}
	if err := idToken.Claims(invocation); err != nil {
		return nil, errors.Wrapf(errors.ErrInvalidToken, "forge invocation claims")
	}
	if invocation.App.InstallationID == "" || invocation.App.APIBaseURL == "" {
		return nil, errors.Wrapf(errors.ErrInvalidToken, "forge invocation without installation")
	}
	return invocation, nil
}

// ForgeTokenFromRequest reads the bearer invocation token.
func ForgeTokenFromRequest(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}
