// Package backend is the typed HTTP client for the external REST backend that
// owns employees, vehicles, expenses and requisitions.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/odyssey-erp/odyssey-admin/internal/listview"
	"github.com/odyssey-erp/odyssey-admin/internal/shared"
)

// Config configures a Client.
type Config struct {
	BaseURL string
	Token   string
	// Timeout bounds every call. There are no retries; failures surface to
	// the caller immediately.
	Timeout time.Duration
	// RPS caps outbound requests per second. Zero disables the limiter.
	RPS    float64
	Logger *slog.Logger
}

// Client talks to the REST backend.
type Client struct {
	baseURL    string
	token      string
	timeout    time.Duration
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// NewClient constructs a client.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RPS > 0 {
		burst := int(cfg.RPS)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RPS), burst)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		token:      cfg.Token,
		timeout:    timeout,
		httpClient: &http.Client{},
		limiter:    limiter,
		logger:     logger,
	}
}

// Resource is a list endpoint returning DTOs of type D.
type Resource[D any] struct {
	client *Client
	path   string
}

// NewResource binds a list endpoint path.
func NewResource[D any](client *Client, path string) *Resource[D] {
	return &Resource[D]{client: client, path: path}
}

// List implements listview.Source.
func (r *Resource[D]) List(ctx context.Context, q listview.Query) (listview.Result[D], error) {
	var out listview.Result[D]
	err := r.client.do(ctx, http.MethodGet, r.path, q.Encode(), nil, "", func(resp *http.Response) error {
		return json.NewDecoder(resp.Body).Decode(&out)
	})
	if err != nil {
		return listview.Result[D]{}, err
	}
	if out.Data == nil {
		out.Data = []D{}
	}
	return out, nil
}

// Download is an exported file returned by the backend.
type Download struct {
	ContentType string
	Body        []byte
}

// Export requests the spreadsheet export of path with the given filters.
func (c *Client) Export(ctx context.Context, path string, params map[string]string) (Download, error) {
	var dl Download
	err := c.do(ctx, http.MethodGet, path, params, nil, "", func(resp *http.Response) error {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		dl = Download{ContentType: resp.Header.Get("Content-Type"), Body: body}
		return nil
	})
	return dl, err
}

// Create posts body as JSON and decodes the response into out when non-nil.
func (c *Client) Create(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("backend: encode %s: %w", path, err)
	}
	return c.do(ctx, http.MethodPost, path, nil, payload, "application/json", decodeInto(out))
}

// File is one multipart attachment.
type File struct {
	Field       string
	Name        string
	ContentType string
	Data        []byte
}

// CreateMultipart posts form fields and files as multipart/form-data.
func (c *Client) CreateMultipart(ctx context.Context, path string, fields map[string]string, files []File, out any) error {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			return err
		}
	}
	for _, f := range files {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, quoteEscaper.Replace(f.Field), quoteEscaper.Replace(f.Name)))
		ct := f.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		header.Set("Content-Type", ct)
		part, err := writer.CreatePart(header)
		if err != nil {
			return err
		}
		if _, err := part.Write(f.Data); err != nil {
			return err
		}
	}
	if err := writer.Close(); err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, path, nil, body.Bytes(), writer.FormDataContentType(), decodeInto(out))
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func decodeInto(out any) func(*http.Response) error {
	return func(resp *http.Response) error {
		if out == nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			return nil
		}
		return json.NewDecoder(resp.Body).Decode(out)
	}
}

func (c *Client) do(ctx context.Context, method, path string, params map[string]string, body []byte, contentType string, handle func(*http.Response) error) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: rate limiter: %v", shared.ErrUnavailable, err)
	}

	target := c.baseURL + path
	if len(params) > 0 {
		values := url.Values{}
		for k, v := range params {
			values.Set(k, v)
		}
		target += "?" + values.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("backend: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if actor := shared.ActorFromContext(ctx); actor.Token != "" {
		req.Header.Set("Authorization", "Bearer "+actor.Token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("backend request failed",
			slog.String("method", method), slog.String("path", path), slog.Any("error", err))
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %s %s timed out after %s", shared.ErrUnavailable, method, path, c.timeout)
		}
		return fmt.Errorf("%w: %s %s: %v", shared.ErrUnavailable, method, path, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	c.logger.Debug("backend request",
		slog.String("method", method), slog.String("path", path),
		slog.Int("status", resp.StatusCode), slog.Duration("duration", time.Since(start)))

	if resp.StatusCode >= 400 {
		return classify(resp)
	}
	if err := handle(resp); err != nil {
		return fmt.Errorf("backend: decode %s %s: %w", method, path, err)
	}
	return nil
}
