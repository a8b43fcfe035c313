// internal/ipfs/client.go
package ipfs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Metadata describes the token the uploaded content belongs to.
type Metadata struct {
	Name        string
	Symbol      string
	Description string
}

// UploadResult is delivered exactly once on the Upload's result channel.
type UploadResult struct {
	Success bool
	URI     string
	Err     error
}

// ProgressFunc reports cumulative bytes sent against the total payload.
type ProgressFunc func(uploaded, total int64)

// Upload is a cancelable in-flight upload handle.
type Upload struct {
	cancel context.CancelFunc
	result chan UploadResult
}

// Cancel aborts the upload; the result channel then yields a context error.
func (u *Upload) Cancel() { u.cancel() }

// Result yields the single outcome of the upload.
func (u *Upload) Result() <-chan UploadResult { return u.result }

// NewUpload runs fn in a goroutine and returns a handle resolved by its
// outcome. Canceling the handle cancels fn's context.
func NewUpload(ctx context.Context, fn func(ctx context.Context) (string, error)) *Upload {
	ctx, cancel := context.WithCancel(ctx)
	u := &Upload{cancel: cancel, result: make(chan UploadResult, 1)}

	go func() {
		defer cancel()
		uri, err := fn(ctx)
		if err != nil {
			u.result <- UploadResult{Err: err}
			return
		}
		u.result <- UploadResult{Success: true, URI: uri}
	}()
	return u
}

// Uploader pins token content to a content-addressed store.
type Uploader interface {
	Upload(ctx context.Context, image []byte, imageName string, meta Metadata, onProgress ProgressFunc) *Upload
}

// tokenMetadataDoc is the JSON document pinned as the token's metadata URI.
type tokenMetadataDoc struct {
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	Description string `json:"description,omitempty"`
	Image       string `json:"image,omitempty"`
}

type addResponse struct {
	Name string `json:"Name"`
	Hash string `json:"Hash"`
	Size string `json:"Size"`
}

// Client talks to an IPFS node's HTTP API (go-ipfs /api/v0/add).
type Client struct {
	endpoint string
	http     *http.Client
	logger   *zap.Logger
}

func NewClient(endpoint string, logger *zap.Logger) *Client {
	return &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: 2 * time.Minute},
		logger:   logger.Named("ipfs"),
	}
}

// Upload pins the image (when present) and then the metadata document
// referencing it. The returned handle resolves to the metadata URI.
func (c *Client) Upload(ctx context.Context, image []byte, imageName string, meta Metadata, onProgress ProgressFunc) *Upload {
	return NewUpload(ctx, func(ctx context.Context) (string, error) {
		return c.run(ctx, image, imageName, meta, onProgress)
	})
}

func (c *Client) run(ctx context.Context, image []byte, imageName string, meta Metadata, onProgress ProgressFunc) (string, error) {
	doc := tokenMetadataDoc{
		Name:        meta.Name,
		Symbol:      meta.Symbol,
		Description: meta.Description,
	}

	var sent atomic.Int64
	total := int64(len(image))
	progress := func(n int64) {
		if onProgress == nil {
			return
		}
		cur := sent.Add(n)
		if cur > total {
			cur = total
		}
		onProgress(cur, total)
	}

	if len(image) > 0 {
		cid, err := c.add(ctx, imageName, image, progress)
		if err != nil {
			return "", fmt.Errorf("image upload failed: %w", err)
		}
		doc.Image = "ipfs://" + cid
		c.logger.Info("Image pinned", zap.String("cid", cid), zap.Int("bytes", len(image)))
	}

	docBytes, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("failed to encode metadata: %w", err)
	}
	cid, err := c.add(ctx, "metadata.json", docBytes, nil)
	if err != nil {
		return "", fmt.Errorf("metadata upload failed: %w", err)
	}
	c.logger.Info("Metadata pinned", zap.String("cid", cid))

	return "ipfs://" + cid, nil
}

// add pins one file via the node's add endpoint and returns its CID.
func (c *Client) add(ctx context.Context, name string, data []byte, onChunk func(int64)) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", name)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(data); err != nil {
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	var reader io.Reader = &body
	if onChunk != nil {
		reader = &countingReader{r: reader, onRead: onChunk}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/api/v0/add?pin=true", reader)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("ipfs add returned %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	var parsed addResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to decode ipfs response: %w", err)
	}
	if parsed.Hash == "" {
		return "", fmt.Errorf("ipfs response missing hash")
	}
	return parsed.Hash, nil
}

// countingReader reports bytes as the HTTP transport consumes them.
type countingReader struct {
	r      io.Reader
	onRead func(int64)
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if n > 0 {
		c.onRead(int64(n))
	}
	return n, err
}
