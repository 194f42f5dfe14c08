// Package fetch provides HTTP retrieval of remote dataset archives.
// A download is a single attempt; callers that want retries layer them on top.
package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"time"
)

// DefaultTimeout is the default HTTP request timeout.
const DefaultTimeout = 5 * time.Minute

// DefaultUserAgent is the user agent string for HTTP requests.
const DefaultUserAgent = "Mozilla/5.0 (compatible; CensusIngestion/1.0)"

// Result describes a completed download.
type Result struct {
	URL         string
	Path        string
	Bytes       int64
	ContentType string
	StatusCode  int
	// SHA256 is the hex digest of the body as written to Path.
	SHA256 string
}

// Error represents an error during a download.
type Error struct {
	URL     string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("fetch error for %s: %s: %v", e.URL, e.Message, e.Cause)
	}
	return fmt.Sprintf("fetch error for %s: %s", e.URL, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Options configures the fetch behavior.
type Options struct {
	Timeout   time.Duration
	UserAgent string
	Headers   map[string]string
	Client    *http.Client
}

// DefaultOptions returns sensible defaults for fetching.
func DefaultOptions() *Options {
	return &Options{
		Timeout:   DefaultTimeout,
		UserAgent: DefaultUserAgent,
	}
}

func (o *Options) client() *http.Client {
	if o.Client != nil {
		return o.Client
	}
	return &http.Client{Timeout: o.Timeout}
}

// FileName returns the base name of the URL path, ignoring any query or fragment.
func FileName(urlStr string) (string, error) {
	parsedURL, err := url.Parse(urlStr)
	if err != nil || parsedURL.Scheme == "" || parsedURL.Host == "" {
		return "", &Error{URL: urlStr, Message: "invalid URL", Cause: err}
	}

	name := path.Base(parsedURL.Path)
	if name == "" || name == "." || name == "/" {
		return "", &Error{URL: urlStr, Message: "URL path has no file name"}
	}
	return name, nil
}

// Download retrieves urlStr and writes the response body to destPath.
// On failure any partially written file is removed.
func Download(ctx context.Context, urlStr, destPath string, opts *Options) (*Result, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	if _, err := FileName(urlStr); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, &Error{
			URL:     urlStr,
			Message: "failed to create request",
			Cause:   err,
		}
	}

	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	req.Header.Set("User-Agent", userAgent)
	for key, value := range opts.Headers {
		req.Header.Set(key, value)
	}

	resp, err := opts.client().Do(req)
	if err != nil {
		return nil, &Error{
			URL:     urlStr,
			Message: "HTTP request failed",
			Cause:   err,
		}
	}
	defer func() { _ = resp.Body.Close() }()

	result := &Result{
		URL:         urlStr,
		Path:        destPath,
		ContentType: resp.Header.Get("Content-Type"),
		StatusCode:  resp.StatusCode,
	}

	if resp.StatusCode != http.StatusOK {
		return result, &Error{
			URL:     urlStr,
			Message: fmt.Sprintf("HTTP status %d", resp.StatusCode),
		}
	}

	out, err := os.Create(destPath)
	if err != nil {
		return result, &Error{
			URL:     urlStr,
			Message: fmt.Sprintf("failed to create %s", destPath),
			Cause:   err,
		}
	}

	hash := sha256.New()
	written, copyErr := io.Copy(io.MultiWriter(out, hash), resp.Body)
	closeErr := out.Close()
	if copyErr == nil {
		copyErr = closeErr
	}
	if copyErr != nil {
		_ = os.Remove(destPath)
		return result, &Error{
			URL:     urlStr,
			Message: "failed to write response body",
			Cause:   copyErr,
		}
	}

	result.Bytes = written
	result.SHA256 = hex.EncodeToString(hash.Sum(nil))
	return result, nil
}
