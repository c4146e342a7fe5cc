package bridge

import (
	"context"

	"github.com/jrsteele09/onlyoffice-confluence/editor"
	"github.com/jrsteele09/onlyoffice-confluence/hostauth"
	"github.com/jrsteele09/onlyoffice-confluence/tenants"
)

// Session binds the editor services to one open attachment, serving as
// the Authorizer and ReferenceResolver of a Bridge running in-process.
type Session struct {
	Issuer   *editor.Issuer
	Opener   *editor.Opener
	Tenant   *tenants.Tenant
	Actor    *hostauth.Actor
	ParentID string
	EntityID string
}

var (
	_ Authorizer        = (*Session)(nil)
	_ ReferenceResolver = (*Session)(nil)
)

func (s *Session) Authorize(ctx context.Context) (*editor.Authorization, error) {
	return s.Issuer.Issue(ctx, s.Tenant, s.ParentID, s.EntityID, s.Actor)
}

func (s *Session) ResolveReference(ctx context.Context, req editor.ReferenceRequest) (*editor.ReferenceResponse, error) {
	return s.Opener.ResolveReference(ctx, s.Tenant, s.Actor, s.ParentID, req)
}
