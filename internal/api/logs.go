package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// DownloadJobLog streams the raw log text served at a job's logs URL.
// GitHub answers with a redirect to short-lived storage which the
// transport follows.
func (c *Client) DownloadJobLog(ctx context.Context, logsURL string) (io.ReadCloser, error) {
	resp, err := c.request(ctx, http.MethodGet, logsURL)
	if err != nil {
		return nil, fmt.Errorf("download job log: %w", err)
	}
	return resp.Body, nil
}
