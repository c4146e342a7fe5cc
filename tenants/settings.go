package tenants

import (
	"net/url"
	"strings"
)

// Property keys under which the two add-on generations store their settings.
const (
	ConnectKeyDocAPIURL = "docApiUrl"
	ConnectKeyJWTSecret = "jwtSecret"
	ConnectKeyJWTHeader = "jwtHeader"

	ForgeKeyURL            = "url"
	ForgeKeySecurityKey    = "security.key"
	ForgeKeySecurityHeader = "security.header"
)

const DefaultJWTHeader = "Authorization"

// DemoServerHost is ONLYOFFICE's public trial Document Server.
const DemoServerHost = "onlinedocs.docs.onlyoffice.com"

// Settings is the per-tenant Document Server configuration.
type Settings struct {
	DocAPIURL string `json:"docApiUrl"`
	JWTSecret string `json:"-"`
	JWTHeader string `json:"jwtHeader"`
}

// Signed reports whether the Document Server leg is signed. Without a secret
// editor configs go out unsigned and callbacks are trusted on the session
// token alone.
func (s Settings) Signed() bool {
	return s.JWTSecret != ""
}

// Header returns the header the Document Server puts its token in.
func (s Settings) Header() string {
	if strings.TrimSpace(s.JWTHeader) == "" {
		return DefaultJWTHeader
	}
	return s.JWTHeader
}

// DocumentServerURL is the Document Server root without trailing slash.
func (s Settings) DocumentServerURL() string {
	return strings.TrimRight(s.DocAPIURL, "/")
}

// Demo reports whether the tenant points at the public trial server, which
// the editor announces to the user.
func (s Settings) Demo() bool {
	u, err := url.Parse(strings.TrimSpace(s.DocAPIURL))
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Hostname(), DemoServerHost)
}

// ConnectProperties renders the settings with the Connect property keys.
func (s Settings) ConnectProperties() map[string]string {
	return map[string]string{
		ConnectKeyDocAPIURL: s.DocAPIURL,
		ConnectKeyJWTSecret: s.JWTSecret,
		ConnectKeyJWTHeader: s.JWTHeader,
	}
}

// ForgeProperties renders the settings with the Forge storage keys.
func (s Settings) ForgeProperties() map[string]string {
	return map[string]string{
		ForgeKeyURL:            s.DocAPIURL,
		ForgeKeySecurityKey:    s.JWTSecret,
		ForgeKeySecurityHeader: s.JWTHeader,
	}
}

func SettingsFromConnect(props map[string]string) Settings {
	return Settings{
		DocAPIURL: strings.TrimSpace(props[ConnectKeyDocAPIURL]),
		JWTSecret: props[ConnectKeyJWTSecret],
		JWTHeader: strings.TrimSpace(props[ConnectKeyJWTHeader]),
	}
}

func SettingsFromForge(props map[string]string) Settings {
	return Settings{
		DocAPIURL: strings.TrimSpace(props[ForgeKeyURL]),
		JWTSecret: props[ForgeKeySecurityKey],
		JWTHeader: strings.TrimSpace(props[ForgeKeySecurityHeader]),
	}
}
