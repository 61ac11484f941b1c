package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"mailbridge.org/internal/audit"
	"mailbridge.org/internal/mailbox"
)

type listMessagesResponse struct {
	Items     []mailbox.Message `json:"items"`
	NextAfter uint64            `json:"next_after"`
	AsOf      time.Time         `json:"as_of"`
}

func (a *API) handleMessagesCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listMessages(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet)
	}
}

func (a *API) handleMessageResource(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/v1/messages/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		a.getMessage(w, r, id)
	case http.MethodDelete:
		a.deleteMessage(w, r, id)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodDelete)
	}
}

func (a *API) listMessages(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOr401(w, r)
	if !ok {
		return
	}

	limit, err := parsePositiveInt(r.URL.Query().Get("limit"), 100, 1, 1000)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	afterParam := strings.TrimSpace(r.URL.Query().Get("after"))
	var after uint64
	if afterParam != "" {
		v, err := strconv.ParseUint(afterParam, 10, 64)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "after must be a non-negative integer")
			return
		}
		after = v
	}

	items, next, err := a.mailbox.List(r.Context(), identity, limit, after)
	if err != nil {
		handleMailboxError(w, r, err)
		return
	}
	if items == nil {
		items = []mailbox.Message{}
	}
	writeJSON(w, http.StatusOK, listMessagesResponse{
		Items:     items,
		NextAfter: next,
		AsOf:      time.Now().UTC(),
	})
}

func (a *API) getMessage(w http.ResponseWriter, r *http.Request, id string) {
	identity, ok := identityOr401(w, r)
	if !ok {
		return
	}
	msg, err := a.mailbox.Find(r.Context(), identity, id)
	if err != nil {
		handleMailboxError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, msg)
}

func (a *API) deleteMessage(w http.ResponseWriter, r *http.Request, id string) {
	identity, ok := identityOr401(w, r)
	if !ok {
		return
	}
	if err := a.mailbox.Delete(r.Context(), identity, id); err != nil {
		handleMailboxError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "message.delete", map[string]any{
		"message_id": id,
	})
	w.WriteHeader(http.StatusNoContent)
}

func parsePositiveInt(raw string, def, min, max int) (int, error) {
	if strings.TrimSpace(raw) == "" {
		return def, nil
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New("limit must be an integer")
	}
	if val < min || val > max {
		return 0, errors.New("limit must be between 1 and 1000")
	}
	return val, nil
}

func handleMailboxError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, mailbox.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "message not found")
	case errors.Is(err, mailbox.ErrInvalidMessage):
		writeError(w, r, http.StatusBadRequest, err.Error())
	default:
		logInternalError(r, "mailbox", err)
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
