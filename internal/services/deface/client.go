package deface

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/deface-tgbot-go/internal/config"
	"github.com/sirupsen/logrus"
)

const errorBodyPreviewLimit = 8192

// ProcessingError reports a non-2xx response from the deface API.
type ProcessingError struct {
	StatusCode int
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("deface API returned status %d", e.StatusCode)
}

// Service processes an image with the given filter and paste style. Bytes in,
// bytes out; implementations own transport details.
type Service interface {
	Process(ctx context.Context, image []byte, filter, pasteStyle string) ([]byte, error)
}

// Client calls the deface HTTP endpoint
type Client struct {
	endpoint   string
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewClient creates a deface API client
func NewClient(cfg *config.DefaceConfig, logger *logrus.Logger) *Client {
	return &Client{
		endpoint: cfg.Endpoint,
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{Timeout: cfg.ConnectTimeout}).DialContext,
			},
		},
		logger: logger,
	}
}

// Process uploads the image as multipart form data with the filter and paste
// style passed as query parameters, and returns the processed bytes.
func (c *Client) Process(ctx context.Context, image []byte, filter, pasteStyle string) ([]byte, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("input_file", "image.jpg")
	if err != nil {
		return nil, fmt.Errorf("failed to build multipart body: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return nil, fmt.Errorf("failed to build multipart body: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to build multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.buildURL(filter, pasteStyle), &body)
	if err != nil {
		return nil, fmt.Errorf("failed to build deface request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	c.logger.WithFields(logrus.Fields{
		"filter": filter,
		"paste":  pasteStyle,
		"bytes":  len(image),
	}).Info("Sending image to deface API")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("deface request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		preview, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyPreviewLimit))
		c.logger.WithFields(logrus.Fields{
			"status":       resp.StatusCode,
			"content_type": resp.Header.Get("Content-Type"),
			"body":         string(preview),
		}).Error("Deface API returned an error")
		return nil, &ProcessingError{StatusCode: resp.StatusCode}
	}

	processed, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read deface response: %w", err)
	}

	c.logger.WithField("bytes", len(processed)).Info("Deface API responded")
	return processed, nil
}

func (c *Client) buildURL(filter, pasteStyle string) string {
	params := url.Values{}
	params.Set("filter_name", filter)
	params.Set("paste_ellipse_name", pasteStyle)

	separator := "?"
	if strings.Contains(c.endpoint, "?") {
		separator = "&"
	}
	return c.endpoint + separator + params.Encode()
}
