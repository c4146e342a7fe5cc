package editor

import (
	"context"
	"path"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/onlyoffice-confluence/confluence"
	"github.com/jrsteele09/onlyoffice-confluence/hostauth"
	"github.com/jrsteele09/onlyoffice-confluence/internal/errors"
	"github.com/jrsteele09/onlyoffice-confluence/permissions"
	"github.com/jrsteele09/onlyoffice-confluence/tenants"
	"github.com/jrsteele09/onlyoffice-confluence/token"
)

// Opener prepares editor sessions and reference lookups for a tenant.
type Opener struct {
	hosts   confluence.Provider
	builder *Builder
	codec   *token.Codec
}

func NewOpener(hosts confluence.Provider, builder *Builder, codec *token.Codec) *Opener {
	return &Opener{hosts: hosts, builder: builder, codec: codec}
}

// Open checks read access and returns the editor config for an attachment.
// Edit mode is granted only with update permission; a failed update check
// falls back to view mode.
func (o *Opener) Open(ctx context.Context, tenant *tenants.Tenant, actor *hostauth.Actor, parentID, attachmentID, mode string) (*Config, error) {
	api, err := o.hosts.ForTenant(ctx, tenant)
	if err != nil {
		return nil, err
	}
	gate := permissions.NewGate(api)
	if err := gate.Require(ctx, actor, attachmentID, permissions.Read); err != nil {
		return nil, err
	}

	att, err := api.GetAttachment(ctx, attachmentID)
	if err != nil {
		return nil, err
	}
	if parentID != "" && att.ParentID() != "" && att.ParentID() != parentID {
		return nil, errors.Wrapf(errors.ErrNotFound, "attachment %s is not on %s", attachmentID, parentID)
	}

	user, err := api.GetUser(ctx, actor.AccountID)
	if err != nil {
		log.Warn().Err(err).Str("client_key", tenant.ClientKey).Msg("could not load user details")
	}

	canEdit, err := gate.Check(ctx, actor, attachmentID, permissions.Update)
	if err != nil {
		log.Warn().Err(err).Str("client_key", tenant.ClientKey).Str("attachment_id", attachmentID).Msg("update permission unknown, opening read-only")
		canEdit = false
	}

	return o.builder.Build(BuildRequest{
		Tenant:     tenant,
		Actor:      actor,
		Attachment: att,
		User:       user,
		ParentID:   parentID,
		CanEdit:    canEdit,
		Mode:       mode,
	})
}

// ReferenceRequest is the body of an "insert reference" lookup sent by the
// editor.
type ReferenceRequest struct {
	ReferenceData *ReferenceData `json:"referenceData,omitempty"`
	Path          string         `json:"path,omitempty"`
	Link          string         `json:"link,omitempty"`
}

// ReferenceResponse is handed back to the editor as SET_REFERENCE_DATA.
type ReferenceResponse struct {
	FileType      string        `json:"fileType"`
	Key           string        `json:"key"`
	URL           string        `json:"url"`
	ReferenceData ReferenceData `json:"referenceData"`
	Path          string        `json:"path"`
	Token         string        `json:"token,omitempty"`
}

// ResolveReference finds the referenced attachment, by its key when it
// belongs to this site and by file name on parentID otherwise.
func (o *Opener) ResolveReference(ctx context.Context, tenant *tenants.Tenant, actor *hostauth.Actor, parentID string, req ReferenceRequest) (*ReferenceResponse, error) {
	api, err := o.hosts.ForTenant(ctx, tenant)
	if err != nil {
		return nil, err
	}

	var att *confluence.Attachment
	switch {
	case req.ReferenceData != nil && req.ReferenceData.FileKey != "" && req.ReferenceData.InstanceID == tenant.SiteURL():
		if !permissions.ValidContentID(req.ReferenceData.FileKey) {
			return nil, errors.Wrapf(errors.ErrInvalidContentID, "%q", req.ReferenceData.FileKey)
		}
		att, err = api.GetAttachment(ctx, req.ReferenceData.FileKey)
	case req.Path != "":
		if !permissions.ValidContentID(parentID) {
			return nil, errors.Wrapf(errors.ErrInvalidContentID, "%q", parentID)
		}
		att, err = api.FindAttachment(ctx, parentID, path.Base(req.Path))
	default:
		return nil, errors.Wrapf(errors.ErrInvalidRequest, "reference without file key or path")
	}
	if err != nil {
		return nil, err
	}

	if err := permissions.NewGate(api).Require(ctx, actor, att.ID, permissions.Read); err != nil {
		return nil, err
	}
	format, err := LookupFormat(att.Title)
	if err != nil {
		return nil, err
	}
	downloadURL, err := o.builder.DownloadURL(tenant, token.Claims{
		ParentID:  att.ParentID(),
		EntityID:  att.ID,
		ClientKey: tenant.ClientKey,
		UserID:    actor.AccountID,
	})
	if err != nil {
		return nil, err
	}

	resp := &ReferenceResponse{
		FileType:      format.Extension,
		Key:           DocumentKey(att),
		URL:           downloadURL,
		ReferenceData: ReferenceData{FileKey: att.ID, InstanceID: tenant.SiteURL()},
		Path:          att.Title,
	}
	if tenant.Settings.Signed() {
		signed, err := o.codec.SignPayload(resp, tenant.Settings.JWTSecret)
		if err != nil {
			return nil, err
		}
		resp.Token = signed
	}
	return resp, nil
}
