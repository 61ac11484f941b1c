package mailbox

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"mailbridge.org/internal/ids"
)

// PGStore implements Store on Postgres via database/sql (pgx stdlib driver).
type PGStore struct {
	db *sql.DB
}

// NewPGStore wraps an open connection pool.
func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

const insertMessageSQL = `
insert into messages(id, owner, from_addr, to_addrs, subject, text_body, html_body, attachments, received_at)
values($1, $2, $3, $4, $5, $6, $7, $8, $9)
returning seq`

func (s *PGStore) Append(ctx context.Context, msg Message) (Message, error) {
	if msg.Owner == "" || msg.From == "" {
		return Message{}, ErrInvalidMessage
	}
	if msg.ID == "" {
		msg.ID = ids.New()
	}
	if msg.ReceivedAt.IsZero() {
		msg.ReceivedAt = time.Now().UTC()
	}
	to, err := json.Marshal(msg.To)
	if err != nil {
		return Message{}, fmt.Errorf("mailbox: encode recipients: %w", err)
	}
	atts, err := json.Marshal(msg.Attachments)
	if err != nil {
		return Message{}, fmt.Errorf("mailbox: encode attachments: %w", err)
	}
	row := s.db.QueryRowContext(ctx, insertMessageSQL,
		msg.ID, msg.Owner, msg.From, to, msg.Subject, msg.TextBody, msg.HTMLBody, atts, msg.ReceivedAt)
	if err := row.Scan(&msg.Sequence); err != nil {
		return Message{}, fmt.Errorf("mailbox: insert message: %w", err)
	}
	return msg, nil
}

const listMessagesSQL = `
select id, owner, from_addr, to_addrs, subject, text_body, html_body, attachments, received_at, seq
from messages
where owner = $1 and seq > $2
order by seq asc
limit $3`

func (s *PGStore) List(ctx context.Context, owner string, limit int, afterSeq uint64) ([]Message, uint64, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, listMessagesSQL, owner, afterSeq, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("mailbox: list messages: %w", err)
	}
	defer rows.Close()

	var res []Message
	var last uint64
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, 0, err
		}
		res = append(res, m)
		last = m.Sequence
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("mailbox: list messages: %w", err)
	}
	return res, last, nil
}

const findMessageSQL = `
select id, owner, from_addr, to_addrs, subject, text_body, html_body, attachments, received_at, seq
from messages
where owner = $1 and id = $2`

func (s *PGStore) Find(ctx context.Context, owner, id string) (Message, error) {
	row := s.db.QueryRowContext(ctx, findMessageSQL, owner, id)
	m, err := scanMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Message{}, ErrNotFound
	}
	if err != nil {
		return Message{}, err
	}
	return m, nil
}

func (s *PGStore) Delete(ctx context.Context, owner, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from messages where owner = $1 and id = $2`, owner, id)
	if err != nil {
		return fmt.Errorf("mailbox: delete message: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mailbox: delete message: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(row rowScanner) (Message, error) {
	var m Message
	var to, atts []byte
	if err := row.Scan(&m.ID, &m.Owner, &m.From, &to, &m.Subject, &m.TextBody, &m.HTMLBody, &atts, &m.ReceivedAt, &m.Sequence); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Message{}, err
		}
		return Message{}, fmt.Errorf("mailbox: scan message: %w", err)
	}
	if len(to) > 0 {
		if err := json.Unmarshal(to, &m.To); err != nil {
			return Message{}, fmt.Errorf("mailbox: decode recipients: %w", err)
		}
	}
	if len(atts) > 0 {
		if err := json.Unmarshal(atts, &m.Attachments); err != nil {
			return Message{}, fmt.Errorf("mailbox: decode attachments: %w", err)
		}
	}
	return m, nil
}
