package inbound

import (
	"strings"
	"testing"
)

const simpleMessage = "From: Sender <sender@example.org>\r\n" +
	"To: Alice <alice@mailbridge.org>, bob@mailbridge.org\r\n" +
	"Subject: weekly report\r\n" +
	"Date: Mon, 24 Aug 2026 10:00:00 +0000\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"All systems nominal.\r\n"

const multipartMessage = "From: sender@example.org\r\n" +
	"To: alice@mailbridge.org\r\n" +
	"Subject: invoice\r\n" +
	"MIME-Version: 1.0\r\n" +
	"Content-Type: multipart/mixed; boundary=xyzzy\r\n" +
	"\r\n" +
	"--xyzzy\r\n" +
	"Content-Type: multipart/alternative; boundary=inner\r\n" +
	"\r\n" +
	"--inner\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"See attached invoice.\r\n" +
	"--inner\r\n" +
	"Content-Type: text/html; charset=utf-8\r\n" +
	"\r\n" +
	"<p>See attached invoice.</p>\r\n" +
	"--inner--\r\n" +
	"--xyzzy\r\n" +
	"Content-Type: application/pdf\r\n" +
	"Content-Disposition: attachment; filename=\"invoice.pdf\"\r\n" +
	"Content-Transfer-Encoding: base64\r\n" +
	"\r\n" +
	"JVBERi0xLjQKJcTl8uXrp/Og0MTGCg==\r\n" +
	"--xyzzy--\r\n"

func TestParseSimpleMessage(t *testing.T) {
	p := Parse([]byte(simpleMessage))

	if p.From != "sender@example.org" {
		t.Fatalf("from = %q", p.From)
	}
	if len(p.To) != 2 || p.To[0] != "alice@mailbridge.org" || p.To[1] != "bob@mailbridge.org" {
		t.Fatalf("to = %v", p.To)
	}
	if p.Subject != "weekly report" {
		t.Fatalf("subject = %q", p.Subject)
	}
	if !strings.Contains(p.TextBody, "All systems nominal.") {
		t.Fatalf("text body = %q", p.TextBody)
	}
	if p.HTMLBody != "" || len(p.Attachments) != 0 {
		t.Fatalf("unexpected extras: html=%q attachments=%v", p.HTMLBody, p.Attachments)
	}
	if p.Date.IsZero() {
		t.Fatal("date not parsed")
	}
}

func TestParseMultipartWithAttachment(t *testing.T) {
	p := Parse([]byte(multipartMessage))

	if !strings.Contains(p.TextBody, "See attached invoice.") {
		t.Fatalf("text body = %q", p.TextBody)
	}
	if !strings.Contains(p.HTMLBody, "<p>See attached invoice.</p>") {
		t.Fatalf("html body = %q", p.HTMLBody)
	}
	if len(p.Attachments) != 1 {
		t.Fatalf("attachments = %v", p.Attachments)
	}
	att := p.Attachments[0]
	if att.Filename != "invoice.pdf" || att.ContentType != "application/pdf" {
		t.Fatalf("attachment metadata = %+v", att)
	}
	if att.Size <= 0 {
		t.Fatalf("attachment size = %d", att.Size)
	}
}

func TestParseUnparseableFallsBackToRawText(t *testing.T) {
	raw := "this is not a mime message at all\njust some lines\n"
	p := Parse([]byte(raw))

	if p.TextBody != raw {
		t.Fatalf("raw payload not preserved: %q", p.TextBody)
	}
	if p.From != "" || len(p.To) != 0 {
		t.Fatalf("fallback should carry no envelope: from=%q to=%v", p.From, p.To)
	}
	if p.Date.IsZero() {
		t.Fatal("fallback must stamp a date")
	}
}

func TestOwnerForAddress(t *testing.T) {
	cases := map[string]struct {
		addr string
		want string
	}{
		"local":             {"alice@mailbridge.org", "alice"},
		"case folded":       {"Alice@MAILBRIDGE.ORG", "alice"},
		"foreign domain":    {"alice@example.org", ""},
		"no at sign":        {"alice", ""},
		"empty local part":  {"@mailbridge.org", ""},
		"plus suffix stays": {"alice+tag@mailbridge.org", "alice+tag"},
	}
	for name, tc := range cases {
		if got := OwnerForAddress(tc.addr, "mailbridge.org"); got != tc.want {
			t.Errorf("%s: OwnerForAddress(%q) = %q, want %q", name, tc.addr, got, tc.want)
		}
	}
}
