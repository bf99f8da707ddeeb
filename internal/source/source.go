// Package source reads definition and hint documents from the local disk, an
// fs.FS or an HTTP(S) URL.
package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// ErrHTTPDisabled is returned for URLs when remote reads are turned off.
var ErrHTTPDisabled = errors.New("source: http support disabled")

const defaultTimeout = 10 * time.Second

// Kind tells where a location is read from.
type Kind int

const (
	KindFile Kind = iota
	KindFS
	KindURL
)

// Reader resolves locations into bytes.
type Reader struct {
	files     fs.FS
	http      *resty.Client
	allowHTTP bool
}

// Option configures a Reader.
type Option func(*Reader)

// WithFS reads every non-URL location from files instead of the disk.
func WithFS(files fs.FS) Option {
	return func(r *Reader) {
		r.files = files
	}
}

// WithHTTPClient replaces the client used for URLs.
func WithHTTPClient(client *resty.Client) Option {
	return func(r *Reader) {
		if client != nil {
			r.http = client
		}
	}
}

// WithTimeout bounds every remote read.
func WithTimeout(timeout time.Duration) Option {
	return func(r *Reader) {
		if timeout > 0 {
			r.http.SetTimeout(timeout)
		}
	}
}

// WithoutHTTP refuses URLs.
func WithoutHTTP() Option {
	return func(r *Reader) {
		r.allowHTTP = false
	}
}

// New builds a Reader. URLs are allowed by default.
func New(options ...Option) *Reader {
	r := &Reader{
		http:      resty.New().SetTimeout(defaultTimeout),
		allowHTTP: true,
	}
	for _, opt := range options {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// KindOf classifies location for this reader.
func (r *Reader) KindOf(location string) Kind {
	switch {
	case IsURL(location):
		return KindURL
	case r.files != nil:
		return KindFS
	default:
		return KindFile
	}
}

// Read returns the document at location.
func (r *Reader) Read(ctx context.Context, location string) ([]byte, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return nil, errors.New("source: location is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch r.KindOf(location) {
	case KindURL:
		if !r.allowHTTP {
			return nil, ErrHTTPDisabled
		}
		return r.readHTTP(ctx, location)
	case KindFS:
		data, err := fs.ReadFile(r.files, strings.TrimPrefix(location, "/"))
		if err != nil {
			return nil, fmt.Errorf("source: %w", err)
		}
		return data, nil
	default:
		data, err := os.ReadFile(location)
		if err != nil {
			return nil, fmt.Errorf("source: %w", err)
		}
		return data, nil
	}
}

func (r *Reader) readHTTP(ctx context.Context, url string) ([]byte, error) {
	resp, err := r.http.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, fmt.Errorf("source: get %s: %w", url, err)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("source: get %s: unexpected status %s", url, resp.Status())
	}
	return resp.Body(), nil
}

// IsURL reports whether location is an http or https URL.
func IsURL(location string) bool {
	return strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://")
}

// Base returns the last path element of location, ignoring any URL query.
func Base(location string) string {
	location = strings.TrimRight(location, "/")
	if IsURL(location) {
		if i := strings.IndexAny(location, "?#"); i >= 0 {
			location = location[:i]
		}
	}
	if i := strings.LastIndex(location, "/"); i >= 0 {
		return location[i+1:]
	}
	return location
}
