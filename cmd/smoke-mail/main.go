package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"time"
)

// Smoke test against a running mailbridge-api: register a throwaway user,
// log in, list the (empty) mailbox, and optionally send a message when
// SMOKE_SEND_TO is set.
func main() {
	base := os.Getenv("MAILBRIDGE_API_URL")
	if base == "" {
		base = "http://localhost:8080"
	}

	client := &http.Client{Timeout: 10 * time.Second}
	identity := fmt.Sprintf("smoke-%d", rand.New(rand.NewSource(time.Now().UnixNano())).Intn(1_000_000))
	secret := "smoke-test-secret-1"

	var session struct {
		Identity string `json:"identity"`
		Token    string `json:"token"`
	}
	post(client, base+"/v1/auth/register", map[string]any{
		"identity": identity,
		"secret":   secret,
	}, "", http.StatusCreated, &session)
	if session.Token == "" {
		log.Fatal("register returned no token")
	}

	post(client, base+"/v1/auth/login", map[string]any{
		"identity": identity,
		"secret":   secret,
	}, "", http.StatusOK, &session)

	var listing struct {
		Items []json.RawMessage `json:"items"`
	}
	get(client, base+"/v1/messages", session.Token, &listing)
	if len(listing.Items) != 0 {
		log.Fatalf("fresh mailbox not empty: %d items", len(listing.Items))
	}

	if to := os.Getenv("SMOKE_SEND_TO"); to != "" {
		var result struct {
			Success   bool   `json:"success"`
			MessageID string `json:"message_id"`
			Error     string `json:"error"`
		}
		post(client, base+"/v1/send", map[string]any{
			"to":      []string{to},
			"subject": "mailbridge smoke test",
			"text":    "hello from the smoke test",
		}, session.Token, http.StatusAccepted, &result)
		if !result.Success {
			log.Fatalf("send failed: %s", result.Error)
		}
		fmt.Printf("sent message %s to %s\n", result.MessageID, to)
	}

	fmt.Printf("✅ mailbridge smoke test passed: identity=%s\n", identity)
}

func post(client *http.Client, url string, body map[string]any, token string, wantStatus int, out any) {
	payload, err := json.Marshal(body)
	if err != nil {
		log.Fatalf("marshal request: %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		log.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	if err != nil {
		log.Fatalf("POST %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != wantStatus {
		log.Fatalf("POST %s: status %d, want %d", url, resp.StatusCode, wantStatus)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			log.Fatalf("decode %s response: %v", url, err)
		}
	}
}

func get(client *http.Client, url, token string, out any) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		log.Fatalf("new request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := client.Do(req)
	if err != nil {
		log.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		log.Fatalf("GET %s: status %d", url, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		log.Fatalf("decode %s response: %v", url, err)
	}
}
