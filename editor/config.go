package editor

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jrsteele09/onlyoffice-confluence/confluence"
	"github.com/jrsteele09/onlyoffice-confluence/hostauth"
	"github.com/jrsteele09/onlyoffice-confluence/internal/errors"
	"github.com/jrsteele09/onlyoffice-confluence/tenants"
	"github.com/jrsteele09/onlyoffice-confluence/token"
)

// Editor modes.
const (
	ModeEdit = "edit"
	ModeView = "view"
)

// Routes the Document Server is pointed at.
const (
	DownloadPath = "/onlyoffice-download"
	CallbackPath = "/onlyoffice-callback"
)

// Config is the object handed to DocsAPI.DocEditor.
type Config struct {
	Document     Document     `json:"document"`
	DocumentType DocumentType `json:"documentType"`
	EditorConfig EditorConfig `json:"editorConfig"`
	Token        string       `json:"token,omitempty"`
}

type Document struct {
	FileType      string         `json:"fileType"`
	Key           string         `json:"key"`
	Title         string         `json:"title"`
	URL           string         `json:"url"`
	Permissions   Permissions    `json:"permissions"`
	ReferenceData *ReferenceData `json:"referenceData,omitempty"`
}

type Permissions struct {
	Edit     bool `json:"edit"`
	Download bool `json:"download"`
	Print    bool `json:"print"`
}

// ReferenceData identifies a file across "insert reference" lookups.
type ReferenceData struct {
	FileKey    string `json:"fileKey"`
	InstanceID string `json:"instanceId"`
}

type EditorConfig struct {
	CallbackURL string `json:"callbackUrl,omitempty"`
	Mode        string `json:"mode"`
	User        User   `json:"user"`
}

type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Image string `json:"image,omitempty"`
}

// BuildRequest carries everything needed to configure one editor session.
type BuildRequest struct {
	Tenant     *tenants.Tenant
	Actor      *hostauth.Actor
	Attachment *confluence.Attachment
	User       *confluence.User
	ParentID   string
	CanEdit    bool   // update permission of the actor
	Mode       string // requested mode; anything but "view" asks for edit
}

// Builder creates editor configs and the download and callback URLs in them.
type Builder struct {
	codec       *token.Codec
	baseURL     string
	now         func() time.Time
	downloadTTL time.Duration
	callbackTTL time.Duration
}

// NewBuilder creates a builder for an app served under baseURL.
func NewBuilder(codec *token.Codec, baseURL string, downloadTTL, callbackTTL time.Duration, now func() time.Time) *Builder {
	if now == nil {
		now = time.Now
	}
	return &Builder{
		codec:       codec,
		baseURL:     strings.TrimRight(baseURL, "/"),
		now:         now,
		downloadTTL: downloadTTL,
		callbackTTL: callbackTTL,
	}
}

// Build returns the editor config. When the tenant has a Document Server
// secret the config carries a token signing it as a whole.
func (b *Builder) Build(req BuildRequest) (*Config, error) {
	att := req.Attachment
	format, err := LookupFormat(att.Title)
	if err != nil {
		return nil, err
	}
	parentID := req.ParentID
	if parentID == "" {
		parentID = att.ParentID()
	}

	claims := token.Claims{
		ParentID:  parentID,
		EntityID:  att.ID,
		ClientKey: req.Tenant.ClientKey,
		UserID:    req.Actor.AccountID,
	}
	downloadURL, err := b.DownloadURL(req.Tenant, claims)
	if err != nil {
		return nil, err
	}

	mode := ModeView
	if req.CanEdit && format.Editable && !strings.EqualFold(req.Mode, ModeView) {
		mode = ModeEdit
	}

	cfg := &Config{
		Document: Document{
			FileType: format.Extension,
			Key:      DocumentKey(att),
			Title:    att.Title,
			URL:      downloadURL,
			Permissions: Permissions{
				Edit:     mode == ModeEdit,
				Download: true,
				Print:    true,
			},
			ReferenceData: &ReferenceData{FileKey: att.ID, InstanceID: req.Tenant.SiteURL()},
		},
		DocumentType: format.Type,
		EditorConfig: EditorConfig{
			Mode: mode,
			User: userOf(req.Tenant, req.Actor, req.User),
		},
	}

	if mode == ModeEdit {
		callback, err := b.sign(req.Tenant, claims.WithScope(token.ScopeCallback), b.callbackTTL)
		if err != nil {
			return nil, err
		}
		cfg.EditorConfig.CallbackURL = b.baseURL + CallbackPath + "?" + url.Values{"token": {callback}}.Encode()
	}

	if req.Tenant.Settings.Signed() {
		signed, err := b.codec.SignPayload(cfg, req.Tenant.Settings.JWTSecret)
		if err != nil {
			return nil, errors.Wrapf(err, "signing editor config")
		}
		cfg.Token = signed
	}
	return cfg, nil
}

// DownloadURL returns the relay URL the Document Server fetches the file
// from.
func (b *Builder) DownloadURL(tenant *tenants.Tenant, claims token.Claims) (string, error) {
	raw, err := b.sign(tenant, claims.WithScope(token.ScopeDownload), b.downloadTTL)
	if err != nil {
		return "", err
	}
	return b.baseURL + DownloadPath + "?" + url.Values{"token": {raw}}.Encode(), nil
}

func (b *Builder) sign(tenant *tenants.Tenant, claims token.Claims, ttl time.Duration) (string, error) {
	claims.ExpiresAt = jwt.NewNumericDate(b.now().Add(ttl))
	raw, err := b.codec.Sign(claims, tenant.SharedSecret)
	if err != nil {
		return "", errors.Wrapf(err, "signing %s token", claims.Scope)
	}
	return raw, nil
}

// DocumentKey identifies one version of an attachment for the Document
// Server's co-editing cache.
func DocumentKey(att *confluence.Attachment) string {
	return att.ID + "_" + strconv.Itoa(att.Version.Number)
}

// AvatarURL is the avatar of an account as served by the site.
func AvatarURL(tenant *tenants.Tenant, accountID string) string {
	return tenant.SiteURL() + "/wiki/aa-avatar/" + url.PathEscape(accountID)
}

func userOf(tenant *tenants.Tenant, actor *hostauth.Actor, user *confluence.User) User {
	u := User{ID: actor.AccountID, Image: AvatarURL(tenant, actor.AccountID)}
	if user != nil {
		u.Name = user.Name()
	}
	return u
}
