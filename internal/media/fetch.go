// Package media fetches and prepares image/video bytes for the pipeline:
// bounded HTTP downloads with content-type enforcement, and JPEG
// recompression to fit the platform's blob size limit.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrTooLarge is returned when a download exceeds its byte ceiling.
// The transfer is aborted mid-stream, not completed and discarded.
var ErrTooLarge = errors.New("media: download exceeds size limit")

// ErrWrongType is returned when the response content-type does not match
// the expected prefix ("image/", "video/").
var ErrWrongType = errors.New("media: unexpected content type")

// Fetcher downloads media with per-request type and size enforcement.
type Fetcher struct {
	http *http.Client
}

// NewFetcher creates a Fetcher. A nil client uses a default with a 30s
// timeout.
func NewFetcher(h *http.Client) *Fetcher {
	if h == nil {
		h = &http.Client{Timeout: 30 * time.Second}
	}
	return &Fetcher{http: h}
}

// Fetch downloads a URL, rejecting responses whose Content-Type does not
// start with typePrefix and aborting once more than maxBytes have been read.
func (f *Fetcher) Fetch(ctx context.Context, rawURL, typePrefix string, maxBytes int64) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("media: fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("media: fetch %s: status %d", rawURL, resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, typePrefix) {
		return nil, fmt.Errorf("%w: got %q, want %s*", ErrWrongType, ct, typePrefix)
	}
	if resp.ContentLength > maxBytes {
		return nil, fmt.Errorf("%w: content-length %d > %d", ErrTooLarge, resp.ContentLength, maxBytes)
	}

	// Read one byte past the limit so an at-limit body still succeeds.
	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(resp.Body, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("media: fetch %s: %w", rawURL, err)
	}
	if n > maxBytes {
		return nil, fmt.Errorf("%w: aborted past %d bytes", ErrTooLarge, maxBytes)
	}
	return buf.Bytes(), nil
}

// FetchBlob downloads a blob from a PDS getBlob endpoint.
func (f *Fetcher) FetchBlob(ctx context.Context, pdsEndpoint, did, cid, typePrefix string, maxBytes int64) ([]byte, error) {
	u := fmt.Sprintf("%s/xrpc/com.atproto.sync.getBlob?did=%s&cid=%s",
		strings.TrimRight(pdsEndpoint, "/"), url.QueryEscape(did), url.QueryEscape(cid))
	slog.Debug("media: fetching blob from PDS", "pds", pdsEndpoint, "cid", cid)
	return f.Fetch(ctx, u, typePrefix, maxBytes)
}

// MimeFromURL guesses a media MIME type from a URL extension, falling back
// to the given default.
func MimeFromURL(rawURL, fallback string) string {
	lower := strings.ToLower(rawURL)
	// strip query
	if i := strings.IndexByte(lower, '?'); i >= 0 {
		lower = lower[:i]
	}
	switch {
	case strings.HasSuffix(lower, ".png"):
		return "image/png"
	case strings.HasSuffix(lower, ".gif"):
		return "image/gif"
	case strings.HasSuffix(lower, ".webp"):
		return "image/webp"
	case strings.HasSuffix(lower, ".jpg"), strings.HasSuffix(lower, ".jpeg"):
		return "image/jpeg"
	case strings.HasSuffix(lower, ".webm"):
		return "video/webm"
	case strings.HasSuffix(lower, ".mov"):
		return "video/quicktime"
	case strings.HasSuffix(lower, ".mp4"):
		return "video/mp4"
	}
	return fallback
}
