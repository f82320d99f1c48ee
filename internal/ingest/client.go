package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/rafaelperez-debug/assistente-ia-map/internal/utils"
)

// MaxDownload bounds remote CSV downloads.
const MaxDownload = 64 << 20

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

func NewHTTPClient(timeout time.Duration) HTTPClient {
	return &http.Client{Timeout: timeout}
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("non-2xx: %d body=%s", e.Code, e.Body)
}

func retryable(code int) bool {
	return code >= 500 || code == http.StatusTooManyRequests
}

// Client downloads remote exports with retries.
type Client struct {
	http    HTTPClient
	backoff utils.Backoff
	log     *slog.Logger
}

func NewClient(c HTTPClient, b utils.Backoff, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	return &Client{http: c, backoff: b, log: log}
}

// Download fetches url. Transport errors, 5xx and 429 are retried;
// other 4xx fail at once.
func (c *Client) Download(ctx context.Context, url string) ([]byte, error) {
	if url == "" {
		return nil, errors.New("empty url")
	}
	var body []byte
	err := c.backoff.Do(ctx, func(i int) error {
		if i > 0 {
			c.log.Warn("download retry", slog.String("url", url), slog.Int("attempt", i))
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return utils.Permanent(err)
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
			se := &StatusError{Code: resp.StatusCode, Body: string(b)}
			if retryable(resp.StatusCode) {
				return se
			}
			return utils.Permanent(se)
		}
		b, err := io.ReadAll(io.LimitReader(resp.Body, MaxDownload+1))
		if err != nil {
			return err
		}
		if len(b) > MaxDownload {
			return utils.Permanent(fmt.Errorf("download exceeds %d bytes", MaxDownload))
		}
		body = b
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", url, err)
	}
	return body, nil
}

// DownloadToTemp saves url into a temp file and returns its path.
// The caller removes it.
func (c *Client) DownloadToTemp(ctx context.Context, url, suffix string) (string, error) {
	b, err := c.Download(ctx, url)
	if err != nil {
		return "", err
	}
	f, err := os.CreateTemp("", "ads-*"+suffix)
	if err != nil {
		return "", err
	}
	if _, err := f.Write(b); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}
