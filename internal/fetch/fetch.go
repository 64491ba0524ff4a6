// Package fetch downloads schedule workbooks from fixed URLs.
package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	apperrors "attendcalc/internal/errors"
)

// DefaultMaxBytes caps a download at 20MB.
const DefaultMaxBytes = 20 << 20

// Fetcher performs schedule downloads
type Fetcher struct {
	client    *http.Client
	userAgent string
	maxBytes  int64
	logger    *slog.Logger
}

// Option configures a Fetcher
type Option func(*Fetcher)

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) { f.userAgent = ua }
}

// WithMaxBytes limits the accepted body size.
func WithMaxBytes(n int64) Option {
	return func(f *Fetcher) { f.maxBytes = n }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(f *Fetcher) { f.logger = l }
}

// New returns a Fetcher whose requests time out after timeout.
func New(timeout time.Duration, opts ...Option) *Fetcher {
	f := &Fetcher{
		client:   &http.Client{Timeout: timeout},
		maxBytes: DefaultMaxBytes,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.logger = f.logger.With(slog.String("component", "fetcher"))
	return f
}

// Fetch downloads rawURL, converting SharePoint share links first. Only a
// 200 response counts as success; everything else is a network error.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	target, err := ShareLinkToDownloadURL(rawURL)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, apperrors.NewNetworkError("failed to build request", err).WithContext("url", target)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, apperrors.NewNetworkError("download failed", err).WithContext("url", target)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.NewNetworkError(
			fmt.Sprintf("download failed with HTTP %d", resp.StatusCode), nil).
			WithContext("url", target).
			WithContext("status", resp.StatusCode)
	}

	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, apperrors.NewNetworkError("failed to read response body", err).WithContext("url", target)
	}
	if n > f.maxBytes {
		return nil, apperrors.NewNetworkError(
			fmt.Sprintf("download exceeds %d bytes", f.maxBytes), nil).WithContext("url", target)
	}

	f.logger.InfoContext(ctx, "schedule downloaded",
		slog.String("url", target),
		slog.Int64("bytes", n),
		slog.Duration("duration", time.Since(start)))
	return buf.Bytes(), nil
}

// FetchToFile downloads rawURL and writes the body to path. The file is
// replaced only after the whole body has been written.
func (f *Fetcher) FetchToFile(ctx context.Context, rawURL, path string) error {
	data, err := f.Fetch(ctx, rawURL)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return apperrors.NewStorageError("failed to create download directory", err)
	}

	tmp, err := os.CreateTemp(dir, ".download-*")
	if err != nil {
		return apperrors.NewStorageError("failed to save download", err).WithContext("path", path)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return apperrors.NewStorageError("failed to save download", err).WithContext("path", path)
	}
	if err := tmp.Close(); err != nil {
		return apperrors.NewStorageError("failed to save download", err).WithContext("path", path)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return apperrors.NewStorageError("failed to save download", err).WithContext("path", path)
	}
	return nil
}

// ShareLinkToDownloadURL turns a SharePoint/OneDrive share link such as
//
//	https://tenant-my.sharepoint.com/:x:/g/personal/user/TOKEN?e=abc
//
// into its direct download form
//
//	https://tenant-my.sharepoint.com/personal/user/_layouts/15/download.aspx?share=TOKEN
//
// Other URLs are returned unchanged.
func ShareLinkToDownloadURL(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", apperrors.NewValidationError(fmt.Sprintf("invalid download URL %q", rawURL), err)
	}
	if !strings.HasSuffix(strings.ToLower(u.Hostname()), ".sharepoint.com") {
		return u.String(), nil
	}

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	// :x:/g/personal/<user>/<token>
	if len(segments) < 5 || !strings.HasPrefix(segments[0], ":") || !strings.HasSuffix(segments[0], ":") {
		return u.String(), nil
	}
	personal := -1
	for i, s := range segments {
		if s == "personal" {
			personal = i
			break
		}
	}
	if personal < 0 || personal+2 >= len(segments) {
		return u.String(), nil
	}

	user := segments[personal+1]
	token := segments[len(segments)-1]
	download := url.URL{
		Scheme:   u.Scheme,
		Host:     u.Host,
		Path:     "/personal/" + user + "/_layouts/15/download.aspx",
		RawQuery: url.Values{"share": {token}}.Encode(),
	}
	return download.String(), nil
}
