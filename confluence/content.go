package confluence

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"

	"github.com/jrsteele09/onlyoffice-confluence/internal/errors"
)

// Permission operations understood by the permission check endpoint.
const (
	OperationRead   = "read"
	OperationUpdate = "update"
	OperationDelete = "delete"
)

type permissionCheckRequest struct {
	Subject struct {
		Type       string `json:"type"`
		Identifier string `json:"identifier"`
	} `json:"subject"`
	Operation string `json:"operation"`
}

type permissionCheckResponse struct {
	HasPermission bool `json:"hasPermission"`
	Errors        []struct {
		Message struct {
			Key string `json:"key"`
		} `json:"message"`
	} `json:"errors"`
}

// CheckPermission asks whether accountID may perform operation on contentID.
func (c *Client) CheckPermission(ctx context.Context, accountID, contentID, operation string) (bool, error) {
	in := permissionCheckRequest{Operation: operation}
	in.Subject.Type = "user"
	in.Subject.Identifier = accountID

	var out permissionCheckResponse
	err := c.postJSON(ctx, "CheckPermission", "/rest/api/content/"+escape(contentID)+"/permission/check",
		in, &out, map[string]string{"X-Atlassian-Token": "no-check"})
	if err != nil {
		return false, err
	}
	if len(out.Errors) > 0 {
		return false, fmt.Errorf("CheckPermission: confluence reported %s", out.Errors[0].Message.Key)
	}
	return out.HasPermission, nil
}

// Attachment is the v2 attachment representation.
type Attachment struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	MediaType    string `json:"mediaType"`
	FileSize     int64  `json:"fileSize"`
	PageID       string `json:"pageId"`
	BlogPostID   string `json:"blogPostId"`
	DownloadLink string `json:"downloadLink"`
	WebUILink    string `json:"webuiLink"`
	Version      struct {
		Number    int    `json:"number"`
		CreatedAt string `json:"createdAt"`
		AuthorID  string `json:"authorId"`
	} `json:"version"`
}

// ParentID is the page or blog post holding the attachment.
func (a *Attachment) ParentID() string {
	if a.PageID != "" {
		return a.PageID
	}
	return a.BlogPostID
}

func (c *Client) GetAttachment(ctx context.Context, attachmentID string) (*Attachment, error) {
	var out Attachment
	if err := c.getJSON(ctx, "GetAttachment", "/api/v2/attachments/"+escape(attachmentID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DownloadURI resolves the short-lived download location of an attachment
// without following the redirect.
func (c *Client) DownloadURI(ctx context.Context, pageID, attachmentID string) (string, error) {
	path := "/rest/api/content/" + escape(pageID) + "/child/attachment/" + escape(attachmentID) + "/download"
	var location string
	call := apiCall{method: http.MethodGet, path: path, noRedirect: true}
	err := c.do(ctx, "DownloadURI", call, func(resp *http.Response) error {
		location = resp.Header.Get("Location")
		if location == "" {
			location = resp.Request.URL.String()
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	if u, err := url.Parse(location); err == nil && !u.IsAbs() {
		base, _ := url.Parse(c.baseURL)
		location = base.ResolveReference(u).String()
	}
	return location, nil
}

// UpdateAttachmentData uploads data as a new version of the attachment.
func (c *Client) UpdateAttachmentData(ctx context.Context, pageID, attachmentID, filename string, data []byte) error {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return err
	}
	if _, err := part.Write(data); err != nil {
		return err
	}
	if err := mw.WriteField("minorEdit", "true"); err != nil {
		return err
	}
	if err := mw.Close(); err != nil {
		return err
	}

	call := apiCall{
		method:      http.MethodPost,
		path:        "/rest/api/content/" + escape(pageID) + "/child/attachment/" + escape(attachmentID) + "/data",
		body:        body.Bytes(),
		contentType: mw.FormDataContentType(),
		headers:     map[string]string{"X-Atlassian-Token": "no-check"},
	}
	return c.do(ctx, "UpdateAttachmentData", call, nil)
}

// FindAttachment looks up an attachment of a page by file name.
func (c *Client) FindAttachment(ctx context.Context, pageID, filename string) (*Attachment, error) {
	var out struct {
		Results []Attachment `json:"results"`
	}
	query := url.Values{"filename": {filename}, "limit": {"1"}}
	if err := c.getJSON(ctx, "FindAttachment", "/api/v2/pages/"+escape(pageID)+"/attachments", query, &out); err != nil {
		return nil, err
	}
	if len(out.Results) == 0 {
		return nil, errors.Wrapf(errors.ErrNotFound, "no attachment %q on page %s", filename, pageID)
	}
	return &out.Results[0], nil
}
