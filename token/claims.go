package token

import (
	"github.com/golang-jwt/jwt/v5"
)

// Scope is the permitted use of a session token.
type Scope string

const (
	ScopeDownload Scope = "download" // fetch the attachment for the Document Server
	ScopeCallback Scope = "callback" // save notifications from the Document Server
	ScopeEditor   Scope = "editor"   // open the remote editor page
)

// Claims is the payload of a session token. It binds one user to one
// attachment of one tenant for one scope.
type Claims struct {
	ParentID  string `json:"parentId"`  // page or blog post holding the attachment
	EntityID  string `json:"entityId"`  // attachment id
	ClientKey string `json:"clientKey"` // tenant
	UserID    string `json:"userId"`    // Atlassian account id
	Scope     Scope  `json:"scope"`
	jwt.RegisteredClaims
}

// WithScope returns a copy of the claims for another scope.
func (c Claims) WithScope(scope Scope) Claims {
	c.Scope = scope
	return c
}
