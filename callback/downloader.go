package callback

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jrsteele09/onlyoffice-confluence/internal/errors"
	"github.com/jrsteele09/onlyoffice-confluence/internal/retry"
)

// DefaultMaxFileSize caps a downloaded document.
const DefaultMaxFileSize = 100 << 20

// Downloader fetches the saved document from the Document Server.
type Downloader interface {
	Download(ctx context.Context, url string) ([]byte, error)
}

// HTTPDownloader downloads over HTTP under a retry policy.
type HTTPDownloader struct {
	client  *http.Client
	policy  retry.Policy
	maxSize int64
}

func NewHTTPDownloader(client *http.Client, policy retry.Policy, maxSize int64) *HTTPDownloader {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}
	return &HTTPDownloader{client: client, policy: policy, maxSize: maxSize}
}

func (d *HTTPDownloader) Download(ctx context.Context, url string) ([]byte, error) {
	var data []byte
	err := d.policy.Do(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return errors.Wrapf(errors.ErrInvalidRequest, "download url: %v", err)
		}
		resp, err := d.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return &errors.UpstreamError{Method: "Download", Code: resp.StatusCode, Status: resp.Status}
		}
		body, err := io.ReadAll(io.LimitReader(resp.Body, d.maxSize+1))
		if err != nil {
			return err
		}
		if int64(len(body)) > d.maxSize {
			return fmt.Errorf("document exceeds %d bytes", d.maxSize)
		}
		data = body
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "downloading document")
	}
	return data, nil
}
