package inbound

import (
	"bytes"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"

	"mailbridge.org/internal/mailbox"
)

// Parsed is the result of decoding one raw RFC 5322 message.
type Parsed struct {
	From        string
	To          []string
	Subject     string
	Date        time.Time
	TextBody    string
	HTMLBody    string
	Attachments []mailbox.Attachment
}

// Parse decodes a raw MIME message. It never fails outright: when the input
// cannot be parsed as MIME, the whole payload becomes the text body so that
// no inbound message is silently lost.
func Parse(raw []byte) Parsed {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		return Parsed{TextBody: string(raw), Date: time.Now().UTC()}
	}
	defer mr.Close()

	var p Parsed
	if from, err := mr.Header.AddressList("From"); err == nil && len(from) > 0 {
		p.From = from[0].Address
	}
	if to, err := mr.Header.AddressList("To"); err == nil {
		for _, a := range to {
			p.To = append(p.To, a.Address)
		}
	}
	if subject, err := mr.Header.Subject(); err == nil {
		p.Subject = subject
	}
	if date, err := mr.Header.Date(); err == nil {
		p.Date = date.UTC()
	} else {
		p.Date = time.Now().UTC()
	}

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}

		switch h := part.Header.(type) {
		case *mail.InlineHeader:
			contentType, _, _ := h.ContentType()
			body, readErr := io.ReadAll(part.Body)
			if readErr != nil {
				continue
			}
			switch {
			case strings.HasPrefix(contentType, "text/plain"):
				p.TextBody = string(body)
			case strings.HasPrefix(contentType, "text/html"):
				p.HTMLBody = string(body)
			}

		case *mail.AttachmentHeader:
			filename, _ := h.Filename()
			contentType, _, _ := h.ContentType()
			// Only metadata is kept; the size comes from draining the part.
			n, readErr := io.Copy(io.Discard, part.Body)
			if readErr != nil {
				continue
			}
			p.Attachments = append(p.Attachments, mailbox.Attachment{
				Filename:    filename,
				ContentType: contentType,
				Size:        n,
			})
		}
	}

	if p.TextBody == "" && p.HTMLBody == "" && len(p.Attachments) == 0 {
		// Headers parsed but no usable part: keep the raw payload.
		p.TextBody = string(raw)
	}
	return p
}

// OwnerForAddress maps a recipient address to a mailbox owner identity: the
// lowercased local part. An empty string means the address is not local.
func OwnerForAddress(addr, domain string) string {
	at := strings.LastIndexByte(addr, '@')
	if at <= 0 {
		return ""
	}
	if !strings.EqualFold(addr[at+1:], domain) {
		return ""
	}
	return strings.ToLower(addr[:at])
}
