package mailbox

import "time"

// Attachment carries attachment metadata only. Bodies of attachments are not
// stored; the relay keeps the original MIME part.
type Attachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// Message is a stored inbound message owned by exactly one identity.
type Message struct {
	ID          string       `json:"id"`
	Owner       string       `json:"owner"`
	From        string       `json:"from"`
	To          []string     `json:"to"`
	Subject     string       `json:"subject"`
	TextBody    string       `json:"text,omitempty"`
	HTMLBody    string       `json:"html,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
	ReceivedAt  time.Time    `json:"received_at"`
	Sequence    uint64       `json:"sequence"`
}
