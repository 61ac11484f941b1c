package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

// RelayClient implements Provider against the relay's REST API. It is the
// only component that inspects transport errors, HTTP statuses, and provider
// error payloads; everything it returns is a *Error with a tagged Kind.
type RelayClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// RelayOption configures RelayClient behavior.
type RelayOption func(*RelayClient)

// WithHTTPClient overrides the underlying HTTP client (useful for tests).
func WithHTTPClient(c *http.Client) RelayOption {
	return func(r *RelayClient) {
		if c != nil {
			r.client = c
		}
	}
}

// NewRelayClient constructs a provider client with sensible timeouts.
func NewRelayClient(baseURL, apiKey string, opts ...RelayOption) *RelayClient {
	c := &RelayClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type relayError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type relayResponse struct {
	ID    string      `json:"id"`
	Error *relayError `json:"error,omitempty"`
}

// Send posts the message to the relay and maps every failure mode onto the
// closed Kind set.
func (c *RelayClient) Send(ctx context.Context, msg OutboundMessage) (Receipt, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return Receipt{}, &Error{Kind: KindInvalid, Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(payload))
	if err != nil {
		return Receipt{}, &Error{Kind: KindInvalid, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return Receipt{}, classifyTransportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Receipt{}, &Error{Kind: KindNetwork, Status: resp.StatusCode, Err: err}
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		var out relayResponse
		if err := json.Unmarshal(body, &out); err != nil || out.ID == "" {
			return Receipt{}, &Error{Kind: KindServer, Status: resp.StatusCode,
				Err: errors.New("provider returned malformed acceptance body")}
		}
		return Receipt{ProviderID: out.ID, AcceptedAt: time.Now().UTC()}, nil
	}

	return Receipt{}, classifyStatus(resp.StatusCode, body)
}

func classifyTransportError(err error) *Error {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &Error{Kind: KindTimeout, Err: err}
	case errors.As(err, &netErr) && netErr.Timeout():
		return &Error{Kind: KindTimeout, Err: err}
	default:
		return &Error{Kind: KindNetwork, Err: err}
	}
}

// classifyStatus maps provider rejections to kinds. The provider marks some
// logically-retryable rejections only in the error payload ("rate limit",
// "temporary_failure", ...), so the text is inspected here and nowhere else.
func classifyStatus(status int, body []byte) *Error {
	var out relayResponse
	_ = json.Unmarshal(body, &out)

	errType, errMsg := "", ""
	if out.Error != nil {
		errType = out.Error.Type
		errMsg = out.Error.Message
	}
	wrapped := fmt.Errorf("provider rejected request: %s %s", errType, errMsg)

	switch {
	case status == http.StatusTooManyRequests:
		return &Error{Kind: KindRateLimited, Status: status, Err: wrapped}
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &Error{Kind: KindAuth, Status: status, Err: wrapped}
	case status >= 500:
		return &Error{Kind: KindServer, Status: status, Err: wrapped}
	}

	text := strings.ToLower(errType + " " + errMsg)
	for _, marker := range []string{"rate limit", "rate_limit_exceeded", "temporary_failure", "server_error", "timeout", "connection"} {
		if strings.Contains(text, marker) {
			return &Error{Kind: KindUnknown, Status: status, Retryable: true, Err: wrapped}
		}
	}
	return &Error{Kind: KindInvalid, Status: status, Err: wrapped}
}
