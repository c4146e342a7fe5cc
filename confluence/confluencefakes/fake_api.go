package confluencefakes

import (
	"context"
	"sync"

	"github.com/jrsteele09/onlyoffice-confluence/confluence"
	"github.com/jrsteele09/onlyoffice-confluence/internal/errors"
	"github.com/jrsteele09/onlyoffice-confluence/tenants"
)

var (
	_ confluence.API      = (*FakeAPI)(nil)
	_ confluence.Provider = (*FakeProvider)(nil)
)

// Update is one recorded UpdateAttachmentData call.
type Update struct {
	PageID       string
	AttachmentID string
	Filename     string
	Data         []byte
}

// FakeAPI is an in-memory Confluence. Permissions are keyed
// "accountId/contentId/operation".
type FakeAPI struct {
	mu sync.Mutex

	Permissions map[string]bool
	Attachments map[string]*confluence.Attachment
	Users       map[string]*confluence.User
	Groups      map[string][]string
	DownloadURL string

	PermissionErr error
	UpdateErr     error

	PermissionCalls int
	Updates         []Update
}

func NewFakeAPI() *FakeAPI {
	return &FakeAPI{
		Permissions: map[string]bool{},
		Attachments: map[string]*confluence.Attachment{},
		Users:       map[string]*confluence.User{},
		Groups:      map[string][]string{},
	}
}

// Allow grants accountID the operations on contentID.
func (f *FakeAPI) Allow(accountID, contentID string, operations ...string) *FakeAPI {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, op := range operations {
		f.Permissions[accountID+"/"+contentID+"/"+op] = true
	}
	return f
}

// AddAttachment stores an attachment at version 1 under pageID.
func (f *FakeAPI) AddAttachment(pageID, id, title string) *confluence.Attachment {
	f.mu.Lock()
	defer f.mu.Unlock()
	att := &confluence.Attachment{ID: id, Title: title, PageID: pageID}
	att.Version.Number = 1
	f.Attachments[id] = att
	return att
}

func (f *FakeAPI) CheckPermission(_ context.Context, accountID, contentID, operation string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.PermissionCalls++
	if f.PermissionErr != nil {
		return false, f.PermissionErr
	}
	return f.Permissions[accountID+"/"+contentID+"/"+operation], nil
}

func (f *FakeAPI) GetAttachment(_ context.Context, attachmentID string) (*confluence.Attachment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	att, ok := f.Attachments[attachmentID]
	if !ok {
		return nil, &errors.UpstreamError{Method: "GetAttachment", Code: 404, Status: "Not Found"}
	}
	cp := *att
	return &cp, nil
}

func (f *FakeAPI) FindAttachment(_ context.Context, pageID, filename string) (*confluence.Attachment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, att := range f.Attachments {
		if att.ParentID() == pageID && att.Title == filename {
			cp := *att
			return &cp, nil
		}
	}
	return nil, errors.ErrNotFound
}

func (f *FakeAPI) DownloadURI(_ context.Context, pageID, attachmentID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.DownloadURL != "" {
		return f.DownloadURL, nil
	}
	return "https://media.example.com/" + pageID + "/" + attachmentID, nil
}

func (f *FakeAPI) UpdateAttachmentData(_ context.Context, pageID, attachmentID, filename string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.UpdateErr != nil {
		return f.UpdateErr
	}
	f.Updates = append(f.Updates, Update{PageID: pageID, AttachmentID: attachmentID, Filename: filename, Data: append([]byte(nil), data...)})
	if att, ok := f.Attachments[attachmentID]; ok {
		att.Version.Number++
	}
	return nil
}

func (f *FakeAPI) GetUser(_ context.Context, accountID string) (*confluence.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.Users[accountID]; ok {
		return u, nil
	}
	return &confluence.User{AccountID: accountID, DisplayName: accountID}, nil
}

func (f *FakeAPI) GetUserGroups(_ context.Context, accountID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Groups[accountID], nil
}

func (f *FakeAPI) IsAdmin(ctx context.Context, accountID string, adminGroups []string) (bool, error) {
	groups, _ := f.GetUserGroups(ctx, accountID)
	for _, g := range groups {
		for _, a := range adminGroups {
			if g == a {
				return true, nil
			}
		}
	}
	return false, nil
}

// UpdateCount is the number of successful writes.
func (f *FakeAPI) UpdateCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Updates)
}

// FakeProvider hands out the same FakeAPI for every tenant.
type FakeProvider struct {
	API *FakeAPI
	Err error
}

func (p *FakeProvider) ForTenant(context.Context, *tenants.Tenant) (confluence.API, error) {
	if p.Err != nil {
		return nil, p.Err
	}
	return p.API, nil
}
