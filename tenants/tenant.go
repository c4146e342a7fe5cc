package tenants

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// Kind tells which Atlassian framework installed the tenant.
type Kind string

const (
	KindConnect Kind = "connect"
	KindForge   Kind = "forge"
)

// Tenant is one Confluence site that installed the add-on.
// Connect tenants are keyed by the install clientKey, Forge tenants by the
// installation id found in invocation tokens.
type Tenant struct {
	ClientKey    string    `json:"clientKey"`
	Kind         Kind      `json:"kind"`
	BaseURL      string    `json:"baseUrl"`  // Confluence base, ending in /wiki
	Site         string    `json:"siteUrl"`  // browser-facing site root; Forge only
	SharedSecret string    `json:"-"`        // signs session tokens (and Connect JWTs)
	SystemToken  string    `json:"-"`        // Forge app system token for REST calls
	TokenExpiry  time.Time `json:"-"`        // expiry of SystemToken
	Settings     Settings  `json:"settings"` // Document Server settings
	UpdatedAt    time.Time `json:"updatedAt"`
}

// SiteURL is the Confluence site root without the /wiki context path, the
// address users reach the site at. Forge tenants call the REST API through
// the api.atlassian.com gateway, so their site is recorded separately.
func (t *Tenant) SiteURL() string {
	if t.Site != "" {
		return strings.TrimRight(t.Site, "/")
	}
	return strings.TrimSuffix(strings.TrimRight(t.BaseURL, "/"), "/wiki")
}

// EnsureSharedSecret generates a session secret for tenants that did not
// receive one at install time (Forge). Returns true when one was generated.
func (t *Tenant) EnsureSharedSecret() (bool, error) {
	if t.SharedSecret != "" {
		return false, nil
	}
	secret := make([]byte, 32) // 256 bits
	if _, err := rand.Read(secret); err != nil {
		return false, fmt.Errorf("failed to generate session secret: %w", err)
	}
	t.SharedSecret = hex.EncodeToString(secret)
	return true, nil
}
