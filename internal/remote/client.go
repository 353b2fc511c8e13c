// Package remote is the typed client for the authoritative placement store.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/holoboard/placesync/internal/placement/domain"
)

const (
	DefaultTimeout = 10 * time.Second
	UploadTimeout  = 60 * time.Second
)

// Client handles communication with the placement store service.
type Client struct {
	baseURL       string
	defaultClient *http.Client
	uploadClient  *http.Client // content uploads need longer timeouts
}

// Option configures a Client.
type Option func(*Client)

// WithTimeouts overrides the default and upload timeouts.
func WithTimeouts(request, upload time.Duration) Option {
	return func(c *Client) {
		c.defaultClient.Timeout = request
		c.uploadClient.Timeout = upload
	}
}

// NewClient creates a store client for the given base URL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		defaultClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		uploadClient: &http.Client{
			Timeout: UploadTimeout,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetByPlacement fetches metadata for one placement.
// Returns domain.ErrNotFound when the placement does not exist (it may have
// been deleted by another client).
func (c *Client) GetByPlacement(ctx context.Context, id int) (*domain.PlacementMeta, error) {
	reqURL := fmt.Sprintf("%s/api/v1/placements/%d", c.baseURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	start := time.Now()
	resp, err := c.defaultClient.Do(req)
	if err != nil {
		recordStoreCall(time.Since(start), err)
		return nil, fmt.Errorf("%w: %v", domain.ErrTransport, err)
	}
	defer resp.Body.Close()
	recordStoreCall(time.Since(start), statusErr(resp.StatusCode))

	if resp.StatusCode == http.StatusNotFound {
		return nil, domain.ErrNotFound
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: status %d", domain.ErrTransport, resp.StatusCode)
	}

	var meta domain.PlacementMeta
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	return &meta, nil
}

// ListAll fetches metadata for every placement. Used at session start and to
// compute the smallest unused id when creating a placement.
func (c *Client) ListAll(ctx context.Context) ([]*domain.PlacementMeta, error) {
	reqURL := c.baseURL + "/api/v1/placements"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	start := time.Now()
	resp, err := c.defaultClient.Do(req)
	if err != nil {
		recordStoreCall(time.Since(start), err)
		return nil, fmt.Errorf("%w: %v", domain.ErrTransport, err)
	}
	defer resp.Body.Close()
	recordStoreCall(time.Since(start), statusErr(resp.StatusCode))

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: status %d", domain.ErrTransport, resp.StatusCode)
	}

	var metas []*domain.PlacementMeta
	if err := json.NewDecoder(resp.Body).Decode(&metas); err != nil {
		return nil, fmt.Errorf("decode metadata list: %w", err)
	}
	return metas, nil
}

// CreateAsset creates a placement with optional content bytes, sent as a
// multipart form (metadata JSON part + content part).
func (c *Client) CreateAsset(ctx context.Context, meta *domain.PlacementMeta, content []byte) error {
	if err := meta.Validate(); err != nil {
		return err
	}
	return c.sendAsset(ctx, http.MethodPost, c.baseURL+"/api/v1/placements", meta, content)
}

// UpdateAsset updates a placement's metadata and, when content is non-nil,
// replaces its content bytes.
func (c *Client) UpdateAsset(ctx context.Context, meta *domain.PlacementMeta, content []byte) error {
	if err := meta.Validate(); err != nil {
		return err
	}
	reqURL := fmt.Sprintf("%s/api/v1/placements/%d", c.baseURL, meta.ID)
	return c.sendAsset(ctx, http.MethodPut, reqURL, meta, content)
}

// UpdateTransform pushes a pose-only update for a placement.
func (c *Client) UpdateTransform(ctx context.Context, id int, pose domain.Pose) error {
	update := domain.NewTransformUpdate(id, pose)
	body, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("marshal transform: %w", err)
	}

	reqURL := fmt.Sprintf("%s/api/v1/placements/%d/transform", c.baseURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, reqURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.defaultClient.Do(req)
	if err != nil {
		recordStoreCall(time.Since(start), err)
		return fmt.Errorf("%w: %v", domain.ErrTransport, err)
	}
	defer resp.Body.Close()
	recordStoreCall(time.Since(start), statusErr(resp.StatusCode))

	return responseErr(resp)
}

// DeleteAsset removes a placement and its content.
func (c *Client) DeleteAsset(ctx context.Context, id int) error {
	reqURL := fmt.Sprintf("%s/api/v1/placements/%d", c.baseURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, reqURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	start := time.Now()
	resp, err := c.defaultClient.Do(req)
	if err != nil {
		recordStoreCall(time.Since(start), err)
		return fmt.Errorf("%w: %v", domain.ErrTransport, err)
	}
	defer resp.Body.Close()
	recordStoreCall(time.Since(start), statusErr(resp.StatusCode))

	return responseErr(resp)
}

// FetchContent downloads the content bytes behind a placement's content URL.
// Relative URLs are resolved against the store base URL.
func (c *Client) FetchContent(ctx context.Context, contentURL string) ([]byte, error) {
	if contentURL == "" {
		return nil, fmt.Errorf("%w: empty content url", domain.ErrValidation)
	}
	reqURL := contentURL
	if contentURL[0] == '/' {
		reqURL = c.baseURL + contentURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	start := time.Now()
	resp, err := c.uploadClient.Do(req)
	if err != nil {
		recordStoreCall(time.Since(start), err)
		return nil, fmt.Errorf("%w: %v", domain.ErrTransport, err)
	}
	defer resp.Body.Close()
	recordStoreCall(time.Since(start), statusErr(resp.StatusCode))

	if resp.StatusCode == http.StatusNotFound {
		return nil, domain.ErrNotFound
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: status %d", domain.ErrTransport, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read content: %v", domain.ErrTransport, err)
	}
	return data, nil
}

func (c *Client) sendAsset(ctx context.Context, method, reqURL string, meta *domain.PlacementMeta, content []byte) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	if err := mw.WriteField("metadata", string(metaJSON)); err != nil {
		return fmt.Errorf("write metadata part: %w", err)
	}
	if content != nil {
		fw, err := mw.CreateFormFile("content", "content.bin")
		if err != nil {
			return fmt.Errorf("create content part: %w", err)
		}
		if _, err := fw.Write(content); err != nil {
			return fmt.Errorf("write content part: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, &buf)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	start := time.Now()
	resp, err := c.uploadClient.Do(req)
	if err != nil {
		recordStoreCall(time.Since(start), err)
		return fmt.Errorf("%w: %v", domain.ErrTransport, err)
	}
	defer resp.Body.Close()
	recordStoreCall(time.Since(start), statusErr(resp.StatusCode))

	return responseErr(resp)
}

func responseErr(resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return domain.ErrNotFound
	case resp.StatusCode == http.StatusBadRequest:
		return fmt.Errorf("%w: status 400", domain.ErrValidation)
	case resp.StatusCode >= 400:
		return fmt.Errorf("%w: status %d", domain.ErrTransport, resp.StatusCode)
	}
	return nil
}

func statusErr(code int) error {
	if code >= 400 {
		return errors.New(http.StatusText(code))
	}
	return nil
}
