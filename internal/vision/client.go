package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/smendez-hq/ticket-verifier/constants"
	"github.com/smendez-hq/ticket-verifier/internal/extract"
)

const anthropicVersion = "2023-06-01"

// prompt is the fixed instruction sent with every receipt image. The reply
// must be a strict JSON object with null for unreadable fields; the wire keys
// are the ones the verification service has always used.
const prompt = `Analyze this image of a FIFA World Cup 2026 ticket-transfer receipt.

Extract the following fields visible in the image:
1. **email**: the address in the "Transfer Recipient's email address" input (inside the modal form)
2. **match**: the match number at the TOP of the image (format "Match X" or "Match XX")
3. **cantidad**: the number of tickets being TRANSFERRED. IMPORTANT: look for "X tickets" in the bar at the BOTTOM of the image, near the "TRANSFER TICKET(S)" button. Do NOT use the number at the top, which is the total available.
4. **categoria**: the category shown next to the tickets (format "Category X")

IMPORTANT:
- The match number is ALWAYS at the top of the image; ignore any number behind the modal
- The email is inside the form's text input
- The transfer quantity is in the BOTTOM bar, not the top

Reply ONLY with a valid JSON object in exactly this format:
{"email": "email@example.com", "match": 25, "cantidad": 4, "categoria": 3}

If you cannot read a field, use null for that field.`

// Config for the vision-service client.
type Config struct {
	APIKey     string        // if empty, falls back to env ANTHROPIC_API_KEY
	BaseURL    string        // default https://api.anthropic.com
	Model      string
	MaxTokens  int
	MaxRetries int           // attempts before giving up, default 3
	RetryDelay time.Duration // base for linear backoff, default 2s
	Timeout    time.Duration // http client timeout
}

type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.anthropic.com"
	}
	if cfg.Model == "" {
		cfg.Model = "claude-sonnet-4-20250514"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 200
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 2 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// Extract sends the image to the vision service with bounded retries and
// linear backoff. A successful parse is never retried, even with incomplete
// fields: the service is the authority of last resort. After exhausting the
// retries the error is captured in the result, never raised.
func (c *Client) Extract(ctx context.Context, img extract.Image) extract.Result {
	rid := uuid.New().String()
	start := time.Now()

	c.logger.Info("vision.extract.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"file", img.Name,
		"image_bytes", len(img.Data),
	)

	var lastErr error
	for attempt := 0; attempt < c.cfg.MaxRetries; attempt++ {
		res, err := c.extractOnce(ctx, img)
		if err == nil {
			res.Retries = attempt
			c.logger.Info("vision.extract.ok",
				"req_id", rid,
				"file", img.Name,
				"attempt", attempt,
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
			return res
		}

		lastErr = err
		c.logger.Warn("vision.extract.attempt_failed",
			"req_id", rid,
			"file", img.Name,
			"attempt", attempt,
			"error", err,
		)

		if attempt < c.cfg.MaxRetries-1 {
			if err := sleepCtx(ctx, c.cfg.RetryDelay*time.Duration(attempt+1)); err != nil {
				lastErr = err
				break
			}
		}
	}

	c.logger.Error("vision.extract.failed",
		"req_id", rid,
		"file", img.Name,
		"retries", c.cfg.MaxRetries,
		"error", lastErr,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return extract.Result{
		Method:  constants.MethodRemote,
		Retries: c.cfg.MaxRetries,
		Err:     fmt.Sprintf("failed after %d attempts: %v", c.cfg.MaxRetries, lastErr),
	}
}

func (c *Client) extractOnce(ctx context.Context, img extract.Image) (extract.Result, error) {
	mediaType := constants.MediaTypeForExt(filepath.Ext(img.Name))
	body := map[string]any{
		"model":      c.cfg.Model,
		"max_tokens": c.cfg.MaxTokens,
		"messages": []map[string]any{
			{
				"role": "user",
				"content": []map[string]any{
					{
						"type": "image",
						"source": map[string]any{
							"type":       "base64",
							"media_type": mediaType,
							"data":       base64.StdEncoding.EncodeToString(img.Data),
						},
					},
					{"type": "text", "text": prompt},
				},
			},
		},
	}

	raw, err := c.post(ctx, strings.TrimRight(c.cfg.BaseURL, "/")+"/v1/messages", body)
	if err != nil {
		return extract.Result{}, err
	}

	var reply struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.Unmarshal(raw, &reply); err != nil {
		return extract.Result{}, fmt.Errorf("decode response: %w", err)
	}
	if len(reply.Content) == 0 {
		return extract.Result{}, fmt.Errorf("empty response content")
	}

	text := stripFences(strings.TrimSpace(reply.Content[0].Text))
	if err := validateAgainstSchema(replySchema(), []byte(text)); err != nil {
		return extract.Result{}, err
	}

	var fields struct {
		Email     *string `json:"email"`
		Match     *int    `json:"match"`
		Cantidad  *int    `json:"cantidad"`
		Categoria any     `json:"categoria"`
	}
	if err := json.Unmarshal([]byte(text), &fields); err != nil {
		return extract.Result{}, fmt.Errorf("unmarshal fields: %w", err)
	}

	res := extract.Result{Method: constants.MethodRemote}
	if fields.Email != nil && *fields.Email != "" {
		res.Email = strings.ToLower(*fields.Email)
	}
	res.Match = fields.Match
	res.Quantity = fields.Cantidad
	res.Category = categoryString(fields.Categoria)
	return res, nil
}

func (c *Client) post(ctx context.Context, url string, body map[string]any) ([]byte, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-api-key", c.cfg.APIKey)
	req.Header.Set("anthropic-version", anthropicVersion)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("vision http error: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Warn("vision response body close error", "error", err)
		}
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("vision status %d: %s", resp.StatusCode, truncate(string(data), 512))
	}
	return data, nil
}

// stripFences removes surrounding markdown code-fence markers the service
// sometimes wraps its JSON in.
func stripFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	parts := strings.Split(s, "```")
	if len(parts) < 2 {
		return s
	}
	inner := parts[1]
	inner = strings.TrimPrefix(inner, "json")
	return strings.TrimSpace(inner)
}

// categoryString normalizes the categoria field, which the service may answer
// as a bare number or a string, into the "Category {n}" form.
func categoryString(v any) string {
	switch t := v.(type) {
	case float64:
		return "Category " + strconv.Itoa(int(t))
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return ""
		}
		if strings.HasPrefix(strings.ToLower(s), "category") {
			return s
		}
		return "Category " + s
	default:
		return ""
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
