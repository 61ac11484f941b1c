package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"mailbridge.org/internal/auth"
	"mailbridge.org/internal/dispatch"
	"mailbridge.org/internal/inbound"
	"mailbridge.org/internal/mailbox"
	"mailbridge.org/internal/obs"
	"mailbridge.org/internal/stream"
)

// ReadyProbe reports whether the service can take traffic (DB reachable).
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// API is the HTTP layer. All collaborators are injected; the API owns no
// business state of its own.
type API struct {
	mux        *http.ServeMux
	readyProbe ReadyProbe
	version    string

	auth     *auth.Service
	mailbox  mailbox.Store
	sender   *dispatch.Sender
	ingestor *inbound.Ingestor
	events   *stream.Stream

	domain        string
	webhookSecret string
	rateBurst     int
	ratePerSec    int
	maxBodyBytes  int64
}

// Option adjusts API construction.
type Option func(*API)

// WithRateLimit overrides the default per-IP rate limit.
func WithRateLimit(perSec, burst int) Option {
	return func(a *API) {
		if perSec > 0 {
			a.ratePerSec = perSec
		}
		if burst > 0 {
			a.rateBurst = burst
		}
	}
}

// WithWebhookSecret sets the shared secret required on /v1/inbound.
func WithWebhookSecret(secret string) Option {
	return func(a *API) { a.webhookSecret = secret }
}

// WithDomain sets the local mail domain used for default sender addresses.
func WithDomain(domain string) Option {
	return func(a *API) {
		if domain != "" {
			a.domain = domain
		}
	}
}

// New wires the routes. sender and ingestor may be nil when outbound or
// inbound mail is disabled; the matching endpoints then answer 503.
func New(rp ReadyProbe, version string, authSvc *auth.Service, store mailbox.Store,
	sender *dispatch.Sender, ingestor *inbound.Ingestor, events *stream.Stream, opts ...Option) *API {
	a := &API{
		mux:          http.NewServeMux(),
		readyProbe:   rp,
		version:      version,
		auth:         authSvc,
		mailbox:      store,
		sender:       sender,
		ingestor:     ingestor,
		events:       events,
		domain:       "mailbridge.org",
		rateBurst:    100,
		ratePerSec:   50,
		maxBodyBytes: 1 << 20,
	}
	for _, opt := range opts {
		opt(a)
	}

	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)
	a.mux.Handle("/metrics", obs.Handler())

	a.mux.HandleFunc("/v1/auth/register", a.handleRegister)
	a.mux.HandleFunc("/v1/auth/login", a.handleLogin)
	a.mux.HandleFunc("/v1/auth/refresh", a.handleRefresh)

	a.mux.HandleFunc("/v1/messages", a.handleMessagesCollection)
	a.mux.HandleFunc("/v1/messages/stream", a.Stream)
	a.mux.HandleFunc("/v1/messages/", a.handleMessageResource)

	a.mux.HandleFunc("/v1/send", a.handleSend)
	a.mux.HandleFunc("/v1/inbound", a.handleInbound)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler returns the fully wrapped handler chain for the server.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = a.withAuth(h)
	h = MaxBodyBytes(h, a.maxBodyBytes)
	h = RateLimit(h, a.rateBurst, a.ratePerSec)
	h = CORS(h)
	h = SecurityHeaders(h)
	h = LoggingJSON(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

// --- infrastructure handlers ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "mailbridge-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	info := map[string]any{
		"name":    "mailbridge-api",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
		"domain":  a.domain,
	}
	if a.sender != nil {
		info["circuit_state"] = a.sender.Breaker().State().String()
	}
	writeJSON(w, http.StatusOK, info)
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// logInternalError records the real failure server-side; the client only
// ever sees the generic message passed to writeError.
func logInternalError(r *http.Request, scope string, err error) {
	obs.LogEntry(map[string]any{
		"level":      "error",
		"msg":        "internal_error",
		"scope":      scope,
		"error":      err.Error(),
		"method":     r.Method,
		"path":       r.URL.Path,
		"request_id": RequestIDFromContext(r.Context()),
	})
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	payload := map[string]any{
		"error": msg,
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}
