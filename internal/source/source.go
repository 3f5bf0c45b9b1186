// Package source reads knowledge-base text from local files or http(s) URLs.
package source

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/pbaille/expertkb/internal/errors"
)

// Defaults used when a Reader field is zero
const (
	DefaultTimeout  = 30 * time.Second
	DefaultMaxBytes = 5 * 1024 * 1024
)

// ErrTooLarge is returned when a source exceeds the configured size limit
var ErrTooLarge = errors.New("source too large")

// Reader reads sources with a size limit and, for URLs, a timeout
type Reader struct {
	Timeout  time.Duration
	MaxBytes int64
	Client   *http.Client
}

// Read reads location with default limits
func Read(ctx context.Context, location string) (string, error) {
	return (&Reader{}).Read(ctx, location)
}

// IsURL checks if a string looks like a URL
func IsURL(s string) bool {
	s = strings.TrimSpace(s)
	return strings.HasPrefix(s, "http://") ||
		strings.HasPrefix(s, "https://")
}

// Read returns the text at location
func (r *Reader) Read(ctx context.Context, location string) (string, error) {
	if IsURL(location) {
		return r.fetch(ctx, location)
	}
	return r.readFile(location)
}

func (r *Reader) maxBytes() int64 {
	if r.MaxBytes > 0 {
		return r.MaxBytes
	}
	return DefaultMaxBytes
}

func (r *Reader) readFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.Wrap(err, "open source")
	}
	defer f.Close()

	return r.readLimited(f)
}

func (r *Reader) fetch(ctx context.Context, rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", errors.Wrap(err, "invalid URL")
	}

	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", errors.Wrap(err, "create request")
	}
	req.Header.Set("User-Agent", "expertkb/1.0")

	client := r.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "fetch")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", errors.Newf("fetch %s: HTTP %d", u.Redacted(), resp.StatusCode)
	}

	return r.readLimited(resp.Body)
}

func (r *Reader) readLimited(rd io.Reader) (string, error) {
	limit := r.maxBytes()
	body, err := io.ReadAll(io.LimitReader(rd, limit+1))
	if err != nil {
		return "", errors.Wrap(err, "read source")
	}
	if int64(len(body)) > limit {
		return "", errors.Wrapf(ErrTooLarge, "limit is %d bytes", limit)
	}
	return string(body), nil
}

// Describe returns a short display name for location
func Describe(location string) string {
	if IsURL(location) {
		if u, err := url.Parse(location); err == nil {
			return u.Host + u.Path
		}
		return location
	}
	if i := strings.LastIndexAny(location, `/\`); i >= 0 {
		return location[i+1:]
	}
	return location
}
