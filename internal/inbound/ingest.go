package inbound

import (
	"context"
	"errors"

	"mailbridge.org/internal/mailbox"
	"mailbridge.org/internal/obs"
	"mailbridge.org/internal/stream"
)

// ErrNoLocalRecipient is returned when none of the recipients belongs to the
// served domain.
var ErrNoLocalRecipient = errors.New("inbound: no local recipient")

// Ingestor parses raw inbound mail and delivers it into local mailboxes,
// one stored copy per local recipient.
type Ingestor struct {
	domain string
	store  mailbox.Store
	events *stream.Stream
}

// NewIngestor builds an ingestor for the given local domain. The stream is
// optional; pass nil to skip delivery notifications.
func NewIngestor(domain string, store mailbox.Store, events *stream.Stream) *Ingestor {
	return &Ingestor{domain: domain, store: store, events: events}
}

// Ingest parses raw and appends one message per local recipient. The
// envelope recipients (rcptTo) take precedence over the To header; pass nil
// to fall back to the header. Recipients outside the domain are skipped.
// When no recipient is local it returns ErrNoLocalRecipient and stores
// nothing.
func (i *Ingestor) Ingest(ctx context.Context, raw []byte, rcptTo []string) ([]mailbox.Message, error) {
	parsed := Parse(raw)

	recipients := rcptTo
	if len(recipients) == 0 {
		recipients = parsed.To
	}
	owners := make([]string, 0, len(recipients))
	seen := make(map[string]bool)
	for _, addr := range recipients {
		owner := OwnerForAddress(addr, i.domain)
		if owner == "" || seen[owner] {
			continue
		}
		seen[owner] = true
		owners = append(owners, owner)
	}
	if len(owners) == 0 {
		return nil, ErrNoLocalRecipient
	}

	from := parsed.From
	if from == "" {
		// NULL reverse-path (bounces) or unparseable headers.
		from = "mailer-daemon@" + i.domain
	}

	stored := make([]mailbox.Message, 0, len(owners))
	for _, owner := range owners {
		msg, err := i.store.Append(ctx, mailbox.Message{
			Owner:       owner,
			From:        from,
			To:          parsed.To,
			Subject:     parsed.Subject,
			TextBody:    parsed.TextBody,
			HTMLBody:    parsed.HTMLBody,
			Attachments: parsed.Attachments,
			ReceivedAt:  parsed.Date,
		})
		if err != nil {
			return stored, err
		}
		obs.MessageIngested()
		if i.events != nil {
			i.events.Publish(stream.DeliveryEvent{
				Owner:      msg.Owner,
				MessageID:  msg.ID,
				From:       msg.From,
				Subject:    msg.Subject,
				ReceivedAt: msg.ReceivedAt,
			})
		}
		stored = append(stored, msg)
	}
	return stored, nil
}
