package llm

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
)

var errEmptyReply = errors.New("empty completion reply")

// repairNote is the corrective instruction inserted after a parse failure.
// It asks for a strict JSON object with null for missing fields.
const repairNote = "上一次输出格式错误。请严格只输出 JSON 对象，缺失字段使用 null，并补充 uncertain_reason。"

// Client wraps a Completer with the retry/repair/fallback protocol shared by
// every structured call site (claim extraction, query expansion, entailment
// scoring, verdict generation).
type Client struct {
	backend    Completer
	maxRetries int
	logger     *slog.Logger
}

// NewClient creates a structured call client. maxRetries bounds the extra
// attempts after the first; a nil logger falls back to slog.Default.
func NewClient(backend Completer, maxRetries int, logger *slog.Logger) *Client {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{backend: backend, maxRetries: maxRetries, logger: logger}
}

// Configured reports whether the underlying backend can be called at all
func (c *Client) Configured() bool {
	return c != nil && c.backend != nil && c.backend.Configured()
}

// WithRepairNote returns the message list for a retry attempt: the original
// messages with one corrective system message inserted immediately after the
// first. Computing the retry payload from the original request keeps every
// attempt's exact payload reproducible.
func WithRepairNote(messages []Message) []Message {
	note := Message{Role: RoleSystem, Content: repairNote}
	if len(messages) == 0 {
		return []Message{note}
	}
	out := make([]Message, 0, len(messages)+1)
	out = append(out, messages[0], note)
	out = append(out, messages[1:]...)
	return out
}

// CallJSON requests a completion and decodes it into T. It attempts up to
// maxRetries+1 completions, inserting the repair note before each retry, and
// salvages almost-JSON replies before giving up on an attempt. On an
// unconfigured backend or exhausted attempts it returns fallback unchanged.
// CallJSON never returns an error; failures are logged.
func CallJSON[T any](ctx context.Context, c *Client, messages []Message, fallback T, modelName string) T {
	if !c.Configured() {
		return fallback
	}

	payload := messages
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		raw, err := c.backend.Complete(ctx, payload, modelName)
		if err == nil {
			var parsed T
			err = decodeJSON(raw, &parsed)
			if err == nil {
				return parsed
			}
		}

		lastErr = err
		if attempt < c.maxRetries {
			payload = WithRepairNote(messages)
		}
	}

	c.logger.Warn("structured completion failed, using fallback",
		slog.String("backend", c.backend.Name()),
		slog.Int("attempts", c.maxRetries+1),
		slog.Any("error", lastErr))
	return fallback
}

// decodeJSON tries a strict decode first, then one salvage pass
func decodeJSON(raw string, out any) error {
	if err := json.Unmarshal([]byte(raw), out); err == nil {
		return nil
	}
	salvaged, ok := Salvage(raw)
	if !ok {
		return errors.New("no JSON object found in reply")
	}
	return json.Unmarshal([]byte(salvaged), out)
}
