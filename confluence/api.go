package confluence

import (
	"context"

	"github.com/jrsteele09/onlyoffice-confluence/tenants"
)

var _ API = (*Client)(nil)

// API is the set of Confluence calls the relay makes for a tenant.
type API interface {
	CheckPermission(ctx context.Context, accountID, contentID, operation string) (bool, error)
	GetAttachment(ctx context.Context, attachmentID string) (*Attachment, error)
	FindAttachment(ctx context.Context, pageID, filename string) (*Attachment, error)
	DownloadURI(ctx context.Context, pageID, attachmentID string) (string, error)
	UpdateAttachmentData(ctx context.Context, pageID, attachmentID, filename string, data []byte) error
	GetUser(ctx context.Context, accountID string) (*User, error)
	GetUserGroups(ctx context.Context, accountID string) ([]string, error)
	IsAdmin(ctx context.Context, accountID string, adminGroups []string) (bool, error)
}

// Provider hands out an API bound to a tenant.
type Provider interface {
	ForTenant(ctx context.Context, tenant *tenants.Tenant) (API, error)
}
