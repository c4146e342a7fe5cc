package config

import "time"

type SessionConfig interface {
	GetSessionTTL() time.Duration
	GetDownloadTokenTTL() time.Duration
	GetCallbackTokenTTL() time.Duration
}

type Session struct{}

var _ SessionConfig = Session{}

// GetSessionTTL is the lifetime of an editor session token. The custom UI
// re-authorizes shortly before it runs out.
func (Session) GetSessionTTL() time.Duration {
	return GetEnvDuration("SESSION_TTL", 30*time.Minute)
}

func (Session) GetDownloadTokenTTL() time.Duration {
	return GetEnvDuration("DOWNLOAD_TOKEN_TTL", 10*time.Minute)
}

// GetCallbackTokenTTL must outlive the editing session: the Document Server
// sends the final MustSave callback some seconds after the last user leaves.
func (Session) GetCallbackTokenTTL() time.Duration {
	return GetEnvDuration("CALLBACK_TOKEN_TTL", 24*time.Hour)
}
