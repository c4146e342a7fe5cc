package confluence

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"github.com/jrsteele09/onlyoffice-confluence/hostauth"
	"github.com/jrsteele09/onlyoffice-confluence/internal/errors"
	"github.com/jrsteele09/onlyoffice-confluence/internal/retry"
	"github.com/jrsteele09/onlyoffice-confluence/tenants"
)

var _ Provider = (*Factory)(nil)

// Factory builds a client for a tenant, authenticated the way the tenant's
// framework expects: a request-bound JWT for Connect, the cached system
// token for Forge.
type Factory struct {
	appKey    string
	transport http.RoundTripper
	policy    retry.Policy
	timeout   time.Duration
	now       func() time.Time
}

// NewFactory creates a factory. A nil transport uses http.DefaultTransport.
func NewFactory(appKey string, transport http.RoundTripper, policy retry.Policy) *Factory {
	if transport == nil {
		transport = http.DefaultTransport
	}
	return &Factory{appKey: appKey, transport: transport, policy: policy, timeout: 60 * time.Second, now: time.Now}
}

func (f *Factory) ForTenant(ctx context.Context, tenant *tenants.Tenant) (API, error) {
	switch tenant.Kind {
	case tenants.KindConnect:
		transport := hostauth.NewConnectTransport(f.transport, f.appKey, tenant, f.now)
		return New(tenant.BaseURL, &http.Client{Transport: transport, Timeout: f.timeout}, f.policy), nil
	case tenants.KindForge:
		return New(tenant.BaseURL, f.NewForgeHTTPClient(ctx, tenant), f.policy), nil
	default:
		return nil, errors.Wrapf(errors.ErrUnsupported, "tenant %s has unknown kind %q", tenant.ClientKey, tenant.Kind)
	}
}

// NewForgeHTTPClient returns a client sending the tenant's system token as a
// bearer token.
func (f *Factory) NewForgeHTTPClient(ctx context.Context, tenant *tenants.Tenant) *http.Client {
	if tenant.SystemToken == "" {
		log.Warn().Str("client_key", tenant.ClientKey).Msg("forge tenant has no system token; calls will be rejected")
	} else if !tenant.TokenExpiry.IsZero() && f.now().After(tenant.TokenExpiry) {
		log.Warn().Str("client_key", tenant.ClientKey).Time("expired", tenant.TokenExpiry).Msg("forge system token is past its expiry")
	}
	base := &http.Client{Transport: f.transport, Timeout: f.timeout}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, base)
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: tenant.SystemToken, TokenType: "Bearer"})
	client := oauth2.NewClient(ctx, src)
	client.Timeout = f.timeout
	return client
}
