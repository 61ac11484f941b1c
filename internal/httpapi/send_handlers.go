package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"mailbridge.org/internal/audit"
	"mailbridge.org/internal/dispatch"
)

type sendRequest struct {
	From    string   `json:"from,omitempty"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Text    string   `json:"text,omitempty"`
	HTML    string   `json:"html,omitempty"`
}

// sendResponse is always a result object: failures are reported as data, not
// as opaque 5xx bodies, so callers can branch on success and retryable.
type sendResponse struct {
	Success   bool   `json:"success"`
	MessageID string `json:"message_id,omitempty"`
	Error     string `json:"error,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

func (a *API) handleSend(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if a.sender == nil {
		writeError(w, r, http.StatusServiceUnavailable, "outbound mail disabled")
		return
	}
	identity, ok := identityOr401(w, r)
	if !ok {
		return
	}

	var req sendRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.To) == 0 {
		writeError(w, r, http.StatusBadRequest, "at least one recipient is required")
		return
	}
	for _, addr := range req.To {
		if !strings.Contains(addr, "@") {
			writeError(w, r, http.StatusBadRequest, "invalid recipient address: "+addr)
			return
		}
	}
	if req.Text == "" && req.HTML == "" {
		writeError(w, r, http.StatusBadRequest, "message body is required")
		return
	}

	from := strings.TrimSpace(req.From)
	if from == "" {
		from = identity + "@" + a.domain
	} else if !strings.HasSuffix(from, "@"+a.domain) {
		// Senders may only use addresses on the local domain.
		writeError(w, r, http.StatusForbidden, "sender address must belong to "+a.domain)
		return
	}

	receipt, err := a.sender.Send(r.Context(), dispatch.OutboundMessage{
		From:     from,
		To:       req.To,
		Subject:  req.Subject,
		TextBody: req.Text,
		HTMLBody: req.HTML,
	})
	if err != nil {
		code, resp := sendFailure(err)
		_ = audit.LogEvent(r.Context(), "message.send.failed", map[string]any{
			"error":     resp.Error,
			"retryable": resp.Retryable,
		})
		writeJSON(w, code, resp)
		return
	}

	_ = audit.LogEvent(r.Context(), "message.send", map[string]any{
		"provider_id": receipt.ProviderID,
		"recipients":  len(req.To),
	})
	writeJSON(w, http.StatusAccepted, sendResponse{
		Success:   true,
		MessageID: receipt.ProviderID,
	})
}

// sendFailure maps a dispatch failure onto an HTTP status and result body.
func sendFailure(err error) (int, sendResponse) {
	resp := sendResponse{Success: false, Error: err.Error(), Retryable: dispatch.IsRetryable(err)}

	if errors.Is(err, dispatch.ErrCircuitOpen) {
		return http.StatusServiceUnavailable, resp
	}
	var de *dispatch.Error
	if errors.As(err, &de) {
		switch de.Kind {
		case dispatch.KindRateLimited:
			return http.StatusTooManyRequests, resp
		case dispatch.KindInvalid:
			return http.StatusBadRequest, resp
		case dispatch.KindTimeout:
			return http.StatusGatewayTimeout, resp
		default:
			return http.StatusBadGateway, resp
		}
	}
	return http.StatusBadGateway, resp
}
