// Package uploader sends source documents to the extraction service and
// returns the text it produced.
package uploader

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	appErr "github.com/xxxsen/licitarag/internal/pkg/errors"
)

const maxErrorBody = 512

type Client struct {
	url    string
	client *http.Client
}

func New(url string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{url: url, client: &http.Client{Timeout: timeout}}
}

type uploadResponse struct {
	Data struct {
		Content *string `json:"content"`
	} `json:"data"`
}

// Upload posts r as the multipart field "file" and returns data.content.
func (c *Client) Upload(ctx context.Context, filename string, r io.Reader) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, r); err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload %s: %w: %w", filename, err, appErr.ErrExternalProvider)
	}
	defer resp.Body.Close()
	logutil.GetLogger(ctx).Debug("extraction service responded",
		zap.String("filename", filename),
		zap.Int("status", resp.StatusCode),
		zap.Duration("cost", time.Since(start)),
	)
	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", fmt.Errorf("upload %s: status %d: %s: %w", filename, resp.StatusCode, bytes.TrimSpace(snippet), appErr.ErrExternalProvider)
	}
	var out uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode upload response: %w: %w", err, appErr.ErrExternalProvider)
	}
	if out.Data.Content == nil {
		return "", fmt.Errorf("upload response has no content: %w", appErr.ErrExternalProvider)
	}
	return *out.Data.Content, nil
}
