package files

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"
)

const defaultAPIEndpoint = "https://api.telegram.org"

// RetrievalError reports a failed or malformed file retrieval. StatusCode is
// zero when the response was malformed rather than an HTTP failure.
type RetrievalError struct {
	Op         string
	StatusCode int
	Reason     string
}

func (e *RetrievalError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("telegram %s failed with status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("telegram %s failed: %s", e.Op, e.Reason)
}

// Downloader retrieves the raw bytes behind an opaque platform file reference.
type Downloader interface {
	Fetch(ctx context.Context, fileID string) ([]byte, error)
}

// Client downloads files through the Telegram Bot API: a getFile call to
// resolve the file path, then a download from the file endpoint.
type Client struct {
	apiEndpoint string
	token       string
	httpClient  *http.Client
	logger      *logrus.Logger
}

// NewClient creates a file download client. apiEndpoint overrides the
// Telegram API host when non-empty (used by tests and self-hosted API
// servers).
func NewClient(token, apiEndpoint string, logger *logrus.Logger) *Client {
	if apiEndpoint == "" {
		apiEndpoint = defaultAPIEndpoint
	}
	return &Client{
		apiEndpoint: apiEndpoint,
		token:       token,
		httpClient: &http.Client{
			Timeout: 20 * time.Second,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{Timeout: 10 * time.Second}).DialContext,
			},
		},
		logger: logger,
	}
}

// Fetch resolves the file path for fileID and downloads its contents.
func (c *Client) Fetch(ctx context.Context, fileID string) ([]byte, error) {
	filePath, err := c.fetchFilePath(ctx, fileID)
	if err != nil {
		return nil, err
	}

	downloadURL := fmt.Sprintf("%s/file/bot%s/%s", c.apiEndpoint, c.token, filePath)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build download request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("file download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &RetrievalError{Op: "file download", StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read file download: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"file_path": filePath,
		"bytes":     len(data),
	}).Debug("Telegram file downloaded")
	return data, nil
}

func (c *Client) fetchFilePath(ctx context.Context, fileID string) (string, error) {
	getFileURL := fmt.Sprintf("%s/bot%s/getFile?file_id=%s", c.apiEndpoint, c.token, url.QueryEscape(fileID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, getFileURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build getFile request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("getFile request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &RetrievalError{Op: "getFile", StatusCode: resp.StatusCode}
	}

	var payload struct {
		OK     bool `json:"ok"`
		Result struct {
			FilePath string `json:"file_path"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", &RetrievalError{Op: "getFile", Reason: "malformed response"}
	}
	if !payload.OK || payload.Result.FilePath == "" {
		return "", &RetrievalError{Op: "getFile", Reason: "response missing file_path"}
	}

	return payload.Result.FilePath, nil
}
