package obs

import "testing"

func TestCanonicalPath(t *testing.T) {
	cases := map[string]string{
		"":                          "/",
		"/metrics":                  "/metrics",
		"/v1/messages":              "/v1/messages",
		"/v1/messages/01J5X2":       "/v1/messages/:id",
		"/v1/messages/stream":       "/v1/messages/stream",
		"/v1/messages/abc/extra":    "/v1/messages/abc/extra",
		"/v1/messages/01J5X2?raw=1": "/v1/messages/:id",
		"/v1/send":                  "/v1/send",
		"/v1/auth/login":            "/v1/auth/login",
		"/v1/messages?limit=10":     "/v1/messages",
	}
	for input, expected := range cases {
		if got := CanonicalPath(input); got != expected {
			t.Fatalf("CanonicalPath(%q)=%q, want %q", input, got, expected)
		}
	}
}
