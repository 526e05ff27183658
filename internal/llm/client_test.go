package llm

import (
	"context"
	"errors"
	"testing"
)

// mockCompleter implements Completer with scripted replies
type mockCompleter struct {
	configured bool
	replies    []string
	errs       []error
	calls      [][]Message
}

func (m *mockCompleter) Name() string     { return "mock" }
func (m *mockCompleter) Configured() bool { return m.configured }

func (m *mockCompleter) Complete(ctx context.Context, messages []Message, modelName string) (string, error) {
	idx := len(m.calls)
	m.calls = append(m.calls, messages)
	if idx < len(m.errs) && m.errs[idx] != nil {
		return "", m.errs[idx]
	}
	if idx < len(m.replies) {
		return m.replies[idx], nil
	}
	return "", errors.New("no scripted reply")
}

type testShape struct {
	Value string `json:"value"`
}

func baseMessages() []Message {
	return []Message{
		{Role: RoleSystem, Content: "instruction"},
		{Role: RoleUser, Content: "payload"},
	}
}

func TestCallJSON_Unconfigured(t *testing.T) {
	backend := &mockCompleter{configured: false}
	client := NewClient(backend, 2, nil)

	fallback := testShape{Value: "fallback"}
	got := CallJSON(context.Background(), client, baseMessages(), fallback, "m")
	if got != fallback {
		t.Errorf("expected fallback, got %+v", got)
	}
	if len(backend.calls) != 0 {
		t.Errorf("expected no backend calls, got %d", len(backend.calls))
	}
}

func TestCallJSON_FirstAttemptSucceeds(t *testing.T) {
	backend := &mockCompleter{configured: true, replies: []string{`{"value": "ok"}`}}
	client := NewClient(backend, 2, nil)

	got := CallJSON(context.Background(), client, baseMessages(), testShape{}, "m")
	if got.Value != "ok" {
		t.Errorf("expected ok, got %q", got.Value)
	}
	if len(backend.calls) != 1 {
		t.Errorf("expected 1 call, got %d", len(backend.calls))
	}
}

func TestCallJSON_RetryInsertsSingleRepairNote(t *testing.T) {
	backend := &mockCompleter{
		configured: true,
		replies:    []string{"not json", "still not json", `{"value": "third"}`},
	}
	client := NewClient(backend, 2, nil)

	got := CallJSON(context.Background(), client, baseMessages(), testShape{}, "m")
	if got.Value != "third" {
		t.Fatalf("expected third, got %q", got.Value)
	}
	if len(backend.calls) != 3 {
		t.Fatalf("expected 3 calls, got %d", len(backend.calls))
	}

	// First attempt uses the original payload untouched
	if len(backend.calls[0]) != 2 {
		t.Errorf("first attempt: expected 2 messages, got %d", len(backend.calls[0]))
	}

	// Every retry carries exactly one repair note, right after the system
	// message; it never accumulates
	for attempt := 1; attempt < 3; attempt++ {
		msgs := backend.calls[attempt]
		if len(msgs) != 3 {
			t.Fatalf("attempt %d: expected 3 messages, got %d", attempt, len(msgs))
		}
		if msgs[0].Content != "instruction" {
			t.Errorf("attempt %d: system message moved: %q", attempt, msgs[0].Content)
		}
		if msgs[1].Role != RoleSystem || msgs[1].Content != repairNote {
			t.Errorf("attempt %d: expected repair note at position 1, got %+v", attempt, msgs[1])
		}
		if msgs[2].Content != "payload" {
			t.Errorf("attempt %d: user message moved: %q", attempt, msgs[2].Content)
		}
	}
}

func TestCallJSON_ExhaustedReturnsFallback(t *testing.T) {
	backend := &mockCompleter{
		configured: true,
		replies:    []string{"garbage", "garbage", "garbage"},
	}
	client := NewClient(backend, 2, nil)

	fallback := testShape{Value: "fallback"}
	got := CallJSON(context.Background(), client, baseMessages(), fallback, "m")
	if got != fallback {
		t.Errorf("expected fallback, got %+v", got)
	}
	if len(backend.calls) != 3 {
		t.Errorf("expected 3 attempts, got %d", len(backend.calls))
	}
}

func TestCallJSON_BackendErrorThenSuccess(t *testing.T) {
	backend := &mockCompleter{
		configured: true,
		errs:       []error{errors.New("upstream 500"), nil},
		replies:    []string{"", `{"value": "recovered"}`},
	}
	client := NewClient(backend, 1, nil)

	got := CallJSON(context.Background(), client, baseMessages(), testShape{}, "m")
	if got.Value != "recovered" {
		t.Errorf("expected recovered, got %q", got.Value)
	}
}

func TestCallJSON_SalvagesAlmostJSON(t *testing.T) {
	backend := &mockCompleter{
		configured: true,
		replies:    []string{"```json\n{\"value\": \"fenced\",}\n```"},
	}
	client := NewClient(backend, 0, nil)

	got := CallJSON(context.Background(), client, baseMessages(), testShape{}, "m")
	if got.Value != "fenced" {
		t.Errorf("expected fenced value from salvage, got %q", got.Value)
	}
	if len(backend.calls) != 1 {
		t.Errorf("expected salvage to avoid a retry, got %d calls", len(backend.calls))
	}
}

func TestWithRepairNote_PureFunction(t *testing.T) {
	original := baseMessages()
	first := WithRepairNote(original)
	second := WithRepairNote(original)

	if len(original) != 2 {
		t.Errorf("original mutated: %d messages", len(original))
	}
	if len(first) != 3 || len(second) != 3 {
		t.Errorf("expected 3 messages per derived payload, got %d and %d", len(first), len(second))
	}
}
