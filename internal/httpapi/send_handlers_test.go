package httpapi

import (
	"errors"
	"net/http"
	"testing"

	"mailbridge.org/internal/dispatch"
)

func TestSendSuccess(t *testing.T) {
	provider := &okProvider{}
	env := newTestEnv(t, provider)
	token := env.api.register("alice-1", "correct-horse-battery")

	resp := env.api.post("/v1/send", map[string]any{
		"to":      []string{"bob@example.org"},
		"subject": "greetings",
		"text":    "hello bob",
	}, bearer(token))
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("send status: %d", resp.StatusCode)
	}
	result := decode[sendResponse](t, resp)
	if !result.Success || result.MessageID != "relay-ok" {
		t.Fatalf("unexpected result: %+v", result)
	}
	if provider.calls != 1 {
		t.Fatalf("provider calls = %d, want 1", provider.calls)
	}
}

func TestSendValidation(t *testing.T) {
	env := newTestEnv(t, &okProvider{})
	token := env.api.register("alice-1", "correct-horse-battery")

	cases := map[string]map[string]any{
		"no recipients":  {"subject": "x", "text": "y"},
		"bad recipient":  {"to": []string{"not-an-address"}, "text": "y"},
		"no body at all": {"to": []string{"bob@example.org"}, "subject": "x"},
	}
	for name, body := range cases {
		resp := env.api.post("/v1/send", body, bearer(token))
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", name, resp.StatusCode)
		}
	}
}

func TestSendRejectsForeignSenderAddress(t *testing.T) {
	env := newTestEnv(t, &okProvider{})
	token := env.api.register("alice-1", "correct-horse-battery")

	resp := env.api.post("/v1/send", map[string]any{
		"from": "alice-1@evil.example.org",
		"to":   []string{"bob@example.org"},
		"text": "hi",
	}, bearer(token))
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", resp.StatusCode)
	}
}

func TestSendReportsRetryableFailureAsResult(t *testing.T) {
	env := newTestEnv(t, &failProvider{err: &dispatch.Error{
		Kind:   dispatch.KindRateLimited,
		Status: 429,
		Err:    errors.New("slow down"),
	}})
	token := env.api.register("alice-1", "correct-horse-battery")

	resp := env.api.post("/v1/send", map[string]any{
		"to":   []string{"bob@example.org"},
		"text": "hi",
	}, bearer(token))
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", resp.StatusCode)
	}
	result := decode[sendResponse](t, resp)
	if result.Success {
		t.Fatal("expected failure result")
	}
	if !result.Retryable {
		t.Fatal("rate limited failure must be marked retryable")
	}
	if result.Error == "" {
		t.Fatal("error message missing")
	}
}

func TestSendReportsFatalFailureAsResult(t *testing.T) {
	env := newTestEnv(t, &failProvider{err: &dispatch.Error{
		Kind:   dispatch.KindInvalid,
		Status: 422,
		Err:    errors.New("mailbox does not exist"),
	}})
	token := env.api.register("alice-1", "correct-horse-battery")

	resp := env.api.post("/v1/send", map[string]any{
		"to":   []string{"bob@example.org"},
		"text": "hi",
	}, bearer(token))
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	result := decode[sendResponse](t, resp)
	if result.Success || result.Retryable {
		t.Fatalf("unexpected result: %+v", result)
	}
}
