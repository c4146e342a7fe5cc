package editor

import (
	"context"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jrsteele09/onlyoffice-confluence/confluence"
	"github.com/jrsteele09/onlyoffice-confluence/hostauth"
	"github.com/jrsteele09/onlyoffice-confluence/internal/errors"
	"github.com/jrsteele09/onlyoffice-confluence/permissions"
	"github.com/jrsteele09/onlyoffice-confluence/tenants"
	"github.com/jrsteele09/onlyoffice-confluence/token"
)

// Authorization is what the host page needs to embed the remote editor.
type Authorization struct {
	Token          string `json:"token"`
	RemoteAppURL   string `json:"remoteAppUrl"`
	SessionExpires int64  `json:"sessionExpires"` // epoch milliseconds
}

// Issuer hands out editor session tokens. It is called when the editor is
// opened and again shortly before each session expires.
type Issuer struct {
	codec   *token.Codec
	hosts   confluence.Provider
	baseURL string
	ttl     time.Duration
	now     func() time.Time
}

func NewIssuer(codec *token.Codec, hosts confluence.Provider, baseURL string, ttl time.Duration, now func() time.Time) *Issuer {
	if now == nil {
		now = time.Now
	}
	return &Issuer{codec: codec, hosts: hosts, baseURL: strings.TrimRight(baseURL, "/"), ttl: ttl, now: now}
}

// Issue checks that actor can read the attachment and returns a fresh
// editor-scope token.
func (i *Issuer) Issue(ctx context.Context, tenant *tenants.Tenant, parentID, entityID string, actor *hostauth.Actor) (*Authorization, error) {
	if !permissions.ValidContentID(parentID) || !permissions.ValidContentID(entityID) {
		return nil, errors.Wrapf(errors.ErrInvalidContentID, "parentId %q entityId %q", parentID, entityID)
	}
	api, err := i.hosts.ForTenant(ctx, tenant)
	if err != nil {
		return nil, err
	}
	if err := permissions.NewGate(api).Require(ctx, actor, entityID, permissions.Read); err != nil {
		return nil, err
	}

	expires := i.now().Add(i.ttl)
	claims := token.Claims{
		ParentID:  parentID,
		EntityID:  entityID,
		ClientKey: tenant.ClientKey,
		UserID:    actor.AccountID,
		Scope:     token.ScopeEditor,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	raw, err := i.codec.Sign(claims, tenant.SharedSecret)
	if err != nil {
		return nil, err
	}
	return &Authorization{
		Token:          raw,
		RemoteAppURL:   i.baseURL,
		SessionExpires: expires.UnixMilli(),
	}, nil
}
