package httpapi

import (
	"crypto/subtle"
	"errors"
	"io"
	"net/http"
	"strings"

	"mailbridge.org/internal/inbound"
)

type inboundResponse struct {
	Delivered int      `json:"delivered"`
	Owners    []string `json:"owners"`
}

// handleInbound receives raw RFC 5322 payloads from the relay's delivery
// webhook. It is not bearer-authenticated: the relay proves itself with the
// shared secret in X-Webhook-Secret. Envelope recipients may be passed in
// X-Envelope-To (comma separated) and take precedence over the To header.
func (a *API) handleInbound(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if a.ingestor == nil {
		writeError(w, r, http.StatusServiceUnavailable, "inbound mail disabled")
		return
	}
	if a.webhookSecret == "" {
		writeError(w, r, http.StatusServiceUnavailable, "inbound webhook not configured")
		return
	}
	got := r.Header.Get("X-Webhook-Secret")
	if subtle.ConstantTimeCompare([]byte(got), []byte(a.webhookSecret)) != 1 {
		writeError(w, r, http.StatusUnauthorized, "invalid webhook secret")
		return
	}

	raw, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "unreadable payload")
		return
	}
	if len(raw) == 0 {
		writeError(w, r, http.StatusBadRequest, "empty payload")
		return
	}

	var rcptTo []string
	if hdr := strings.TrimSpace(r.Header.Get("X-Envelope-To")); hdr != "" {
		for _, addr := range strings.Split(hdr, ",") {
			if addr = strings.TrimSpace(addr); addr != "" {
				rcptTo = append(rcptTo, addr)
			}
		}
	}

	stored, err := a.ingestor.Ingest(r.Context(), raw, rcptTo)
	if err != nil {
		if errors.Is(err, inbound.ErrNoLocalRecipient) {
			writeError(w, r, http.StatusUnprocessableEntity, err.Error())
			return
		}
		logInternalError(r, "inbound", err)
		writeError(w, r, http.StatusInternalServerError, "ingestion failed")
		return
	}

	owners := make([]string, 0, len(stored))
	for _, m := range stored {
		owners = append(owners, m.Owner)
	}
	writeJSON(w, http.StatusAccepted, inboundResponse{
		Delivered: len(stored),
		Owners:    owners,
	})
}
