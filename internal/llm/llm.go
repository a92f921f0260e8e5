// Package llm wraps the Gemini SDK behind narrow capability interfaces: a
// structured-JSON text generator with retry, and image/video generation with
// long-running operation polling. Pipeline stages depend on the interfaces,
// never on the SDK, so every stage is testable with fakes.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"net/url"
	"regexp"
	"strings"
	"syscall"
	"time"

	"adforge/internal/logger"
	"adforge/internal/prompts"
)

// ErrEmptyResponse is returned when the model yields no usable text.
var ErrEmptyResponse = errors.New("empty response from model")

// ParseError is returned when the model's text is not valid JSON. It carries
// the offending text so callers can log or persist it for audit.
type ParseError struct {
	Tag  string // Caller-supplied tag identifying the generation call
	Text string // The text that failed to parse
	Err  error  // Underlying json error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse JSON for %s: %v", e.Tag, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Part is one content part of a model response.
type Part struct {
	Text       string // Plain text content
	InlineData []byte // Inline binary payload, decoded; treated as UTF-8 text when joining
}

// Response is the provider-agnostic shape of a text-generation response.
type Response struct {
	Text  string // Direct text field, preferred when present
	Parts []Part // Heterogeneous content parts, used when Text is empty
}

// TextGenerator is the capability interface for text generation.
type TextGenerator interface {
	GenerateContent(ctx context.Context, model, prompt, system string, temperature float32) (*Response, error)
}

// JSONRequest describes one structured-generation call.
type JSONRequest struct {
	Prompt      prompts.Definition // Versioned prompt template
	Variables   map[string]string  // Template variables
	Model       string             // Model identifier
	Temperature float32            // Generation temperature
	MaxRetries  int                // Additional attempts after the first failure
	Tag         string             // Identifies the call in logs and errors
}

// JSONResult is the outcome of a successful structured generation.
type JSONResult struct {
	Data     any    // Parsed JSON payload, for schema validation
	Stripped string // Fence-stripped JSON text, for typed unmarshaling
	RawText  string // Full extracted model text, kept for audit
}

// Client executes structured generation calls with retry.
type Client struct {
	text   TextGenerator
	jitter func() time.Duration
}

// NewClient wraps a TextGenerator in a retrying structured-JSON client.
func NewClient(text TextGenerator) *Client {
	return &Client{
		text: text,
		jitter: func() time.Duration {
			// Uniform jitter in [250ms, 500ms); deliberately not exponential,
			// the retry budget is small and provider hiccups are short.
			return time.Duration(250+rand.Intn(250)) * time.Millisecond
		},
	}
}

// GenerateJSON renders the prompt, invokes the model, extracts and parses the
// JSON payload, retrying on empty responses, parse failures and transport
// errors up to MaxRetries additional attempts. Exhausted retries surface the
// last error unmodified. Schema validation is the caller's responsibility and
// is never retried here.
func (c *Client) GenerateJSON(ctx context.Context, req JSONRequest) (*JSONResult, error) {
	rendered := prompts.Render(req.Prompt.Template, req.Variables)
	payloadBytes := len(rendered)

	var lastErr error
	for attempt := 0; attempt <= req.MaxRetries; attempt++ {
		result, err := c.generateOnce(ctx, req, rendered)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if attempt == req.MaxRetries {
			break
		}

		logArgs := []any{
			"tag", req.Tag,
			"attempt", attempt + 1,
			"max_retries", req.MaxRetries,
			"payload_bytes", payloadBytes,
			"error", err.Error(),
		}
		if cause := summarizeCause(err); cause != nil {
			logArgs = append(logArgs, "cause", cause)
		}
		logger.Warn("LLM call failed, retrying", logArgs...)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.jitter()):
		}
	}

	return nil, lastErr
}

func (c *Client) generateOnce(ctx context.Context, req JSONRequest, rendered string) (*JSONResult, error) {
	resp, err := c.text.GenerateContent(ctx, req.Model, rendered, req.Prompt.System, req.Temperature)
	if err != nil {
		return nil, err
	}

	text := strings.TrimSpace(ExtractText(resp))
	if text == "" {
		return nil, fmt.Errorf("%s: %w", req.Tag, ErrEmptyResponse)
	}

	stripped := StripCodeFences(text)
	var data any
	if err := json.Unmarshal([]byte(stripped), &data); err != nil {
		return nil, &ParseError{Tag: req.Tag, Text: text, Err: err}
	}

	return &JSONResult{Data: data, Stripped: stripped, RawText: text}, nil
}

// ExtractText extracts the textual payload from a response: the direct text
// field when present, otherwise the content parts joined with newlines.
// Inline-data payloads are treated as UTF-8 text.
func ExtractText(resp *Response) string {
	if resp == nil {
		return ""
	}
	if resp.Text != "" {
		return strings.TrimSpace(resp.Text)
	}

	var collected []string
	for _, part := range resp.Parts {
		switch {
		case part.Text != "":
			collected = append(collected, part.Text)
		case len(part.InlineData) > 0:
			collected = append(collected, string(part.InlineData))
		}
	}
	return strings.TrimSpace(strings.Join(collected, "\n"))
}

var fenceRegex = regexp.MustCompile("(?is)```(?:json)?\\s*(.*?)```")

// StripCodeFences removes a surrounding markdown code fence (```json ... ```
// or ``` ... ```) from the payload. Without a fence the trimmed text is
// returned unchanged.
func StripCodeFences(payload string) string {
	if match := fenceRegex.FindStringSubmatch(payload); len(match) > 1 && strings.TrimSpace(match[1]) != "" {
		return strings.TrimSpace(match[1])
	}
	return strings.TrimSpace(payload)
}

// summarizeCause condenses a transport error into loggable fields without
// dumping full stack traces or response bodies into user-facing output.
func summarizeCause(err error) map[string]any {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		cause := map[string]any{"op": urlErr.Op, "url": urlErr.URL}
		var opErr *net.OpError
		if errors.As(urlErr.Err, &opErr) {
			cause["net"] = opErr.Net
			if opErr.Addr != nil {
				cause["address"] = opErr.Addr.String()
			}
			var errno syscall.Errno
			if errors.As(opErr.Err, &errno) {
				cause["errno"] = int(errno)
			}
		}
		return cause
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		cause := map[string]any{"op": opErr.Op, "net": opErr.Net}
		if opErr.Addr != nil {
			cause["address"] = opErr.Addr.String()
		}
		return cause
	}

	return nil
}
