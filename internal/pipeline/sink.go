package pipeline

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/rafaelperez-debug/assistente-ia-map/internal/ingest"
	"github.com/rafaelperez-debug/assistente-ia-map/internal/models"
)

// Sink posts KPI rows to an external collector. The body is signed with
// HMAC-SHA256 in the X-Signature header.
type Sink struct {
	URL    string
	Secret string
	HTTP   ingest.HTTPClient
}

func (s *Sink) Configured() bool { return s.URL != "" && s.Secret != "" }

func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func (s *Sink) Export(ctx context.Context, rows []models.KPIRow) (int, error) {
	if !s.Configured() {
		return 0, fmt.Errorf("sink: %w", ErrNotConfigured)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	b, err := json.Marshal(rows)
	if err != nil {
		return 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL, bytes.NewReader(b))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Signature", Sign(s.Secret, b))
	resp, err := s.HTTP.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return 0, fmt.Errorf("export sink non-2xx: %d %s", resp.StatusCode, msg)
	}
	return len(rows), nil
}
