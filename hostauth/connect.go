package hostauth

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/onlyoffice-confluence/internal/errors"
	"github.com/jrsteele09/onlyoffice-confluence/tenants"
	"github.com/jrsteele09/onlyoffice-confluence/token"
)

const (
	connectAuthScheme   = "JWT "
	connectQueryParam   = "jwt"
	outboundTokenExpiry = 3 * time.Minute
)

// TenantGetter looks up installed tenants.
type TenantGetter interface {
	Get(ctx context.Context, clientKey string) (*tenants.Tenant, error)
}

// ConnectClaims are the claims of a Connect JWT.
type ConnectClaims struct {
	QSH     string `json:"qsh"`
	Context struct {
		User struct {
			AccountID string `json:"accountId"`
		} `json:"user"`
	} `json:"context"`
	jwt.RegisteredClaims
}

// AccountID is the user the token was issued for.
func (c *ConnectClaims) AccountID() string {
	if c.Subject != "" {
		return c.Subject
	}
	return c.Context.User.AccountID
}

// ConnectAuthenticator verifies inbound Connect requests.
type ConnectAuthenticator struct {
	tenants  TenantGetter
	basePath string
	now      func() time.Time
}

// NewConnectAuthenticator creates an authenticator for an app served under
// baseURL. A nil now uses time.Now.
func NewConnectAuthenticator(repo TenantGetter, baseURL string, now func() time.Time) *ConnectAuthenticator {
	if now == nil {
		now = time.Now
	}
	basePath := ""
	if u, err := url.Parse(baseURL); err == nil {
		basePath = u.Path
	}
	return &ConnectAuthenticator{tenants: repo, basePath: basePath, now: now}
}

// Authenticate verifies the request JWT against the tenant's shared secret
// and the request's query string hash. allowContextQSH accepts tokens minted
// by the browser for calls made from inside an add-on page.
func (a *ConnectAuthenticator) Authenticate(r *http.Request, allowContextQSH bool) (*Actor, *tenants.Tenant, error) {
	raw := ConnectTokenFromRequest(r)
	if raw == "" {
		return nil, nil, errors.ErrMissingToken
	}

	unverified := &ConnectClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, unverified); err != nil {
		return nil, nil, errors.Wrapf(errors.ErrInvalidToken, "connect token")
	}
	tenant, err := a.tenants.Get(r.Context(), unverified.Issuer)
	if err != nil {
		return nil, nil, err
	}
	if tenant.Kind != tenants.KindConnect {
		return nil, nil, errors.Wrapf(errors.ErrInvalidToken, "tenant %s is not a connect installation", tenant.ClientKey)
	}

	claims, err := a.verify(raw, tenant.SharedSecret)
	if err != nil {
		return nil, nil, err
	}

	expected := QueryStringHash(r.Method, r.URL, a.basePath)
	if claims.QSH != expected && !(allowContextQSH && claims.QSH == ContextQSH) {
		log.Warn().Str("client_key", tenant.ClientKey).Str("route", r.URL.Path).Msg("connect token qsh mismatch")
		return nil, nil, errors.Wrapf(errors.ErrInvalidToken, "query string hash mismatch")
	}

	return &Actor{ClientKey: tenant.ClientKey, AccountID: claims.AccountID(), Kind: tenants.KindConnect}, tenant, nil
}

// VerifyLifecycle checks a lifecycle request against a secret already on
// file. The query string hash is checked the same way as for other requests.
func (a *ConnectAuthenticator) VerifyLifecycle(r *http.Request, tenant *tenants.Tenant) error {
	raw := ConnectTokenFromRequest(r)
	if raw == "" {
		return errors.ErrMissingToken
	}
	claims, err := a.verify(raw, tenant.SharedSecret)
	if err != nil {
		return err
	}
	if claims.Issuer != tenant.ClientKey {
		return errors.Wrapf(errors.ErrInvalidToken, "token issued by another tenant")
	}
	if claims.QSH != QueryStringHash(r.Method, r.URL, a.basePath) {
		return errors.Wrapf(errors.ErrInvalidToken, "query string hash mismatch")
	}
	return nil
}

func (a *ConnectAuthenticator) verify(raw, secret string) (*ConnectClaims, error) {
	signer := token.NewHMACSigner(secret)
	claims := &ConnectClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, signer.GetVerificationKey,
		jwt.WithValidMethods([]string{signer.GetSigningMethod().Alg()}),
		jwt.WithTimeFunc(a.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, errors.ErrTokenExpired
		}
		return nil, errors.Wrapf(errors.ErrInvalidToken, "connect token")
	}
	return claims, nil
}

// ConnectTokenFromRequest reads a Connect JWT from the jwt query parameter or
// an "Authorization: JWT ..." header.
func ConnectTokenFromRequest(r *http.Request) string {
	if raw := r.URL.Query().Get(connectQueryParam); raw != "" {
		return raw
	}
	header := r.Header.Get("Authorization")
	if len(header) > len(connectAuthScheme) && strings.EqualFold(header[:len(connectAuthScheme)], connectAuthScheme) {
		return strings.TrimSpace(header[len(connectAuthScheme):])
	}
	return ""
}

// ConnectTransport signs every outgoing request with a short-lived JWT
// bound to that request, as Connect apps do when calling the host product.
type ConnectTransport struct {
	Base     http.RoundTripper
	AppKey   string
	Secret   string
	BasePath string // path of the tenant base URL, usually /wiki
	Now      func() time.Time
}

// NewConnectTransport creates a signing transport for one tenant.
func NewConnectTransport(base http.RoundTripper, appKey string, tenant *tenants.Tenant, now func() time.Time) *ConnectTransport {
	basePath := ""
	if u, err := url.Parse(tenant.BaseURL); err == nil {
		basePath = u.Path
	}
	if now == nil {
		now = time.Now
	}
	return &ConnectTransport{Base: base, AppKey: appKey, Secret: tenant.SharedSecret, BasePath: basePath, Now: now}
}

func (t *ConnectTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	now := t.Now()
	claims := &ConnectClaims{
		QSH: QueryStringHash(req.Method, req.URL, t.BasePath),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.AppKey,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(outboundTokenExpiry)),
		},
	}
	signed, err := token.NewHMACSigner(t.Secret).Sign(claims)
	if err != nil {
		return nil, err
	}

	out := req.Clone(req.Context())
	out.Header.Set("Authorization", connectAuthScheme+signed)

	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(out)
}
