// Package hostauth authenticates requests coming from Confluence, both the
// Connect flavour (HS256 JWT with a query string hash) and the Forge flavour
// (RS256 invocation tokens), and signs requests going back to it.
package hostauth

import (
	"context"

	"github.com/jrsteele09/onlyoffice-confluence/tenants"
)

// Actor is the authenticated caller of a request.
type Actor struct {
	ClientKey string       // tenant the request belongs to
	AccountID string       // Atlassian account id, empty for app-only calls
	Kind      tenants.Kind // framework that authenticated the request
}

type contextKey string

const (
	contextKeyActor  contextKey = "actor"
	contextKeyTenant contextKey = "tenant"
)

func WithActor(ctx context.Context, actor *Actor) context.Context {
	return context.WithValue(ctx, contextKeyActor, actor)
}

func ActorFrom(ctx context.Context) (*Actor, bool) {
	actor, ok := ctx.Value(contextKeyActor).(*Actor)
	return actor, ok && actor != nil
}

func WithTenant(ctx context.Context, tenant *tenants.Tenant) context.Context {
	return context.WithValue(ctx, contextKeyTenant, tenant)
}

func TenantFrom(ctx context.Context) (*tenants.Tenant, bool) {
	tenant, ok := ctx.Value(contextKeyTenant).(*tenants.Tenant)
	return tenant, ok && tenant != nil
}
