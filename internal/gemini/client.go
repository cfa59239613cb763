// Package gemini wraps the Gemini API for text prompts and image
// descriptions.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"google.golang.org/genai"

	"gemini-bot/internal/apperr"
	"gemini-bot/internal/logger"
)

const (
	serviceName = "gemini"

	DefaultImagePrompt = "Describe this image."
	// MaxDescription keeps an image description inside one Telegram message.
	MaxDescription = 4000

	emptyReply       = "I'm sorry, I couldn't process that."
	emptyDescription = "No description available."
)

// contentGenerator is the part of *genai.Models the client uses.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type Config struct {
	APIKey  string
	Model   string
	Timeout time.Duration
	Retries int
}

type Client struct {
	models  contentGenerator
	model   string
	timeout time.Duration
	retries int
	backoff time.Duration
	log     *logger.Logger
}

func NewClient(ctx context.Context, cfg Config, log *logger.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return newClient(gc.Models, cfg, log), nil
}

func newClient(models contentGenerator, cfg Config, log *logger.Logger) *Client {
	if log == nil {
		log = logger.Nop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-1.5-flash"
	}
	return &Client{
		models:  models,
		model:   cfg.Model,
		timeout: cfg.Timeout,
		retries: cfg.Retries,
		backoff: 500 * time.Millisecond,
		log:     log,
	}
}

// Generate answers a text prompt.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	contents := genai.Text(prompt)
	text, err := c.generate(ctx, contents)
	if err != nil {
		return "", err
	}
	if text == "" {
		return emptyReply, nil
	}
	return text, nil
}

// DescribeImage sends the image bytes together with prompt. An empty
// mimeType is sniffed from the data.
func (c *Client) DescribeImage(ctx context.Context, data []byte, mimeType, prompt string) (string, error) {
	if len(data) == 0 {
		return "", apperr.External(serviceName, errors.New("empty image"))
	}
	if prompt == "" {
		prompt = DefaultImagePrompt
	}
	if mimeType == "" || !strings.HasPrefix(mimeType, "image/") {
		mimeType = mimetype.Detect(data).String()
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(data, mimeType),
			genai.NewPartFromText(prompt),
		}, genai.RoleUser),
	}
	text, err := c.generate(ctx, contents)
	if err != nil {
		return "", err
	}
	if text == "" {
		return emptyDescription, nil
	}
	return Truncate(text, MaxDescription), nil
}

func (c *Client) generate(ctx context.Context, contents []*genai.Content) (string, error) {
	backoff := c.backoff
	var last error

	for attempt := 0; attempt <= c.retries; attempt++ {
		if ctx.Err() != nil {
			return "", apperr.External(serviceName, ctx.Err())
		}

		attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
		resp, err := c.models.GenerateContent(attemptCtx, c.model, contents, nil)
		cancel()
		if err == nil {
			return responseText(resp), nil
		}
		last = err
		c.log.Warn("gemini request failed", "attempt", attempt+1, "error", err)

		if attempt == c.retries || ctx.Err() != nil {
			break
		}
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return "", apperr.External(serviceName, ctx.Err())
		}
		backoff *= 2
	}
	return "", apperr.External(serviceName, last)
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	cand := resp.Candidates[0]
	if cand == nil || cand.Content == nil {
		return ""
	}
	var b strings.Builder
	for _, p := range cand.Content.Parts {
		if p != nil {
			b.WriteString(p.Text)
		}
	}
	return strings.TrimSpace(b.String())
}

// Truncate cuts s to limit runes and appends "..." when it had to cut.
func Truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + "..."
}
