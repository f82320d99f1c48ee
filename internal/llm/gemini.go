// Package llm wraps the Gemini API for answer generation and embeddings.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"

	"github.com/rafaelperez-debug/assistente-ia-map/internal/utils"
)

var ErrNotConfigured = errors.New("GOOGLE_API_KEY not set")

// maxBatch is the API limit of contents per embedding request.
const maxBatch = 100

type Options struct {
	APIKey     string
	Model      string
	EmbedModel string
	BaseURL    string
	Backoff    utils.Backoff
	Log        *slog.Logger
}

type Client struct {
	api        *genai.Client
	model      string
	embedModel string
	backoff    utils.Backoff
	log        *slog.Logger
}

func New(ctx context.Context, o Options) (*Client, error) {
	if o.APIKey == "" {
		return nil, ErrNotConfigured
	}
	if o.Log == nil {
		o.Log = slog.Default()
	}
	cc := &genai.ClientConfig{APIKey: o.APIKey, Backend: genai.BackendGeminiAPI}
	if o.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: o.BaseURL}
	}
	api, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("genai client: %w", err)
	}
	return &Client{api: api, model: o.Model, embedModel: o.EmbedModel, backoff: o.Backoff, log: o.Log}, nil
}

// Generate returns the trimmed model answer for prompt.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	var out string
	err := c.backoff.Do(ctx, func(i int) error {
		if i > 0 {
			c.log.Warn("generate retry", slog.Int("attempt", i))
		}
		resp, err := c.api.Models.GenerateContent(ctx, c.model, genai.Text(prompt), nil)
		if err != nil {
			return err
		}
		out = strings.TrimSpace(resp.Text())
		if out == "" {
			return utils.Permanent(errors.New("empty model response"))
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("generate %s: %w", c.model, err)
	}
	return out, nil
}

func (c *Client) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	return c.embed(ctx, texts, "RETRIEVAL_DOCUMENT")
}

func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	v, err := c.embed(ctx, []string{text}, "RETRIEVAL_QUERY")
	if err != nil {
		return nil, err
	}
	return v[0], nil
}

func (c *Client) embed(ctx context.Context, texts []string, task string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for _, b := range batches(len(texts), maxBatch) {
		contents := make([]*genai.Content, 0, b[1]-b[0])
		for _, t := range texts[b[0]:b[1]] {
			contents = append(contents, genai.NewContentFromText(t, genai.RoleUser))
		}
		var res *genai.EmbedContentResponse
		err := c.backoff.Do(ctx, func(int) error {
			var err error
			res, err = c.api.Models.EmbedContent(ctx, c.embedModel, contents, &genai.EmbedContentConfig{TaskType: task})
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("embed %s: %w", c.embedModel, err)
		}
		if len(res.Embeddings) != len(contents) {
			return nil, fmt.Errorf("embed %s: got %d vectors for %d texts", c.embedModel, len(res.Embeddings), len(contents))
		}
		for _, e := range res.Embeddings {
			out = append(out, e.Values)
		}
	}
	return out, nil
}

// batches splits [0,n) into half-open ranges of at most size.
func batches(n, size int) [][2]int {
	var out [][2]int
	for lo := 0; lo < n; lo += size {
		out = append(out, [2]int{lo, min(lo+size, n)})
	}
	return out
}
