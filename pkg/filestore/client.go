package filestore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/cocotrade/ops-backend/pkg/config"
	pkgerrors "github.com/cocotrade/ops-backend/pkg/errors"
	"github.com/cocotrade/ops-backend/pkg/logger"
)

const defaultTimeout = 30 * time.Second

var (
	errBaseURLRequired = errors.New("filestore base url is required")
	errLoggerRequired  = errors.New("filestore logger is required")
)

// allowedExtensions is the upload allow-list. Anything else is rejected
// before the request leaves the process.
var allowedExtensions = map[string]struct{}{
	".png":  {},
	".jpg":  {},
	".jpeg": {},
	".gif":  {},
	".pdf":  {},
	".txt":  {},
	".csv":  {},
	".md":   {},
}

// Entry is one file or directory listed by the store.
type Entry struct {
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	IsDir     bool      `json:"isDir"`
	Size      int64     `json:"size"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Client proxies the file manager microservice.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *logger.Logger
}

// NewClient wires the file manager client from configuration.
func NewClient(cfg config.FileStoreConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errBaseURLRequired
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: base,
		http:    &http.Client{Timeout: timeout},
		logger:  logg,
	}, nil
}

// AllowedExtension reports whether the filename passes the upload allow-list.
func AllowedExtension(filename string) bool {
	ext := strings.ToLower(path.Ext(filename))
	_, ok := allowedExtensions[ext]
	return ok
}

// List returns entries under dir ("" for the root).
func (c *Client) List(ctx context.Context, dir string) ([]Entry, error) {
	q := url.Values{}
	if strings.TrimSpace(dir) != "" {
		q.Set("path", dir)
	}
	var entries []Entry
	if err := c.doJSON(ctx, http.MethodGet, "/list", q, nil, "", &entries); err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []Entry{}
	}
	return entries, nil
}

// Upload streams one file into dir. The filename must pass the allow-list.
func (c *Client) Upload(ctx context.Context, dir, filename string, content io.Reader) error {
	name := strings.TrimSpace(filename)
	if name == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "filename is required")
	}
	if !AllowedExtension(name) {
		return pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("file type %q is not allowed", path.Ext(name)))
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", name)
	if err != nil {
		return fmt.Errorf("building multipart form: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return fmt.Errorf("copying file content: %w", err)
	}
	if dir != "" {
		if err := writer.WriteField("path", dir); err != nil {
			return fmt.Errorf("writing path field: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("closing multipart form: %w", err)
	}

	return c.doJSON(ctx, http.MethodPost, "/upload", nil, &buf, writer.FormDataContentType(), nil)
}

// Download fetches the file body. The caller owns the returned reader.
func (c *Client) Download(ctx context.Context, filePath string) (io.ReadCloser, string, error) {
	q := url.Values{}
	q.Set("path", filePath)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/download?"+q.Encode(), nil)
	if err != nil {
		return nil, "", fmt.Errorf("building download request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("calling filestore: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, "", storeError(resp.StatusCode, payload)
	}
	return resp.Body, resp.Header.Get("Content-Type"), nil
}

// Preview returns an inline-renderable body for the allow-listed file types.
func (c *Client) Preview(ctx context.Context, filePath string) (io.ReadCloser, string, error) {
	if !AllowedExtension(filePath) {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("file type %q cannot be previewed", path.Ext(filePath)))
	}
	q := url.Values{}
	q.Set("path", filePath)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/preview?"+q.Encode(), nil)
	if err != nil {
		return nil, "", fmt.Errorf("building preview request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("calling filestore: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, "", storeError(resp.StatusCode, payload)
	}
	return resp.Body, resp.Header.Get("Content-Type"), nil
}

// Delete removes a file or empty directory.
func (c *Client) Delete(ctx context.Context, filePath string) error {
	q := url.Values{}
	q.Set("path", filePath)
	return c.doJSON(ctx, http.MethodDelete, "/delete", q, nil, "", nil)
}

// Rename moves a file within the store.
func (c *Client) Rename(ctx context.Context, from, to string) error {
	body := map[string]string{"from": from, "to": to}
	encoded, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding rename request: %w", err)
	}
	return c.doJSON(ctx, http.MethodPost, "/rename", nil, bytes.NewReader(encoded), "application/json", nil)
}

// Mkdir creates a directory.
func (c *Client) Mkdir(ctx context.Context, dir string) error {
	body := map[string]string{"path": dir}
	encoded, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding mkdir request: %w", err)
	}
	return c.doJSON(ctx, http.MethodPost, "/mkdir", nil, bytes.NewReader(encoded), "application/json", nil)
}

func (c *Client) doJSON(ctx context.Context, method, endpoint string, query url.Values, body io.Reader, contentType string, out any) error {
	target := c.baseURL + endpoint
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("building filestore request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("calling filestore: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return storeError(resp.StatusCode, payload)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding filestore response: %w", err)
	}
	return nil
}

func storeError(status int, payload []byte) error {
	message := strings.TrimSpace(string(payload))
	if message == "" {
		message = http.StatusText(status)
	}
	switch {
	case status == http.StatusNotFound:
		return pkgerrors.New(pkgerrors.CodeNotFound, "file not found")
	case status >= 400 && status < 500:
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("filestore rejected request: %s", message))
	default:
		return pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("filestore error (%d): %s", status, message))
	}
}
