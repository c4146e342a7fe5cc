package config

type SecurityConfig interface {
	GetConnectAppKey() string
	GetForgeAppID() string
	GetForgeJWKSURL() string
	GetSettingsMasterKey() string
	GetAdminGroups() []string
	GetDefaultJWTHeader() string
}

type Security struct{}

var _ SecurityConfig = Security{}

func (Security) GetConnectAppKey() string {
	return GetEnv("CONNECT_APP_KEY", "onlyoffice-confluence-cloud")
}

// GetForgeAppID is the app ARI expected as audience of Forge invocation tokens.
func (Security) GetForgeAppID() string {
	return GetEnv("FORGE_APP_ID", "")
}

func (Security) GetForgeJWKSURL() string {
	return GetEnv("FORGE_JWKS_URL", "https://forge.cdn.prod.atlassian-dev.net/.well-known/jwks.json")
}

// GetSettingsMasterKey seals tenant secrets at rest (32 bytes, hex encoded).
func (Security) GetSettingsMasterKey() string {
	return GetEnv("SETTINGS_MASTER_KEY", "")
}

func (Security) GetAdminGroups() []string {
	return GetEnvList("ADMIN_GROUPS", []string{"confluence-admins", "site-admins", "administrators"})
}

func (Security) GetDefaultJWTHeader() string {
	return GetEnv("DEFAULT_JWT_HEADER", "Authorization")
}
