package mailbox

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

var messageColumns = []string{"id", "owner", "from_addr", "to_addrs", "subject", "text_body", "html_body", "attachments", "received_at", "seq"}

func TestPGStoreAppend(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("insert into messages")).
		WithArgs("m1", "alice", "x@example.org", []byte(`["alice@mailbridge.org"]`), "hello", "body", "", []byte(`null`), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"seq"}).AddRow(7))

	s := NewPGStore(db)
	got, err := s.Append(context.Background(), Message{
		ID:       "m1",
		Owner:    "alice",
		From:     "x@example.org",
		To:       []string{"alice@mailbridge.org"},
		Subject:  "hello",
		TextBody: "body",
	})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if got.Sequence != 7 {
		t.Fatalf("sequence = %d, want 7", got.Sequence)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestPGStoreFind(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	received := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("select id, owner, from_addr")).
		WithArgs("alice", "m1").
		WillReturnRows(sqlmock.NewRows(messageColumns).AddRow(
			"m1", "alice", "x@example.org", []byte(`["alice@mailbridge.org"]`),
			"hello", "body", "", []byte(`[{"filename":"a.pdf","content_type":"application/pdf","size":10}]`),
			received, 7,
		))

	got, err := NewPGStore(db).Find(context.Background(), "alice", "m1")
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if got.Subject != "hello" || len(got.To) != 1 || got.Sequence != 7 {
		t.Fatalf("unexpected message: %+v", got)
	}
	if len(got.Attachments) != 1 || got.Attachments[0].Filename != "a.pdf" {
		t.Fatalf("attachments not decoded: %+v", got.Attachments)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestPGStoreFindMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("select id, owner, from_addr")).
		WithArgs("alice", "missing").
		WillReturnRows(sqlmock.NewRows(messageColumns))

	_, err = NewPGStore(db).Find(context.Background(), "alice", "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestPGStoreList(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	received := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("where owner = $1 and seq > $2")).
		WithArgs("alice", uint64(3), 100).
		WillReturnRows(sqlmock.NewRows(messageColumns).
			AddRow("m4", "alice", "x@example.org", []byte(`[]`), "four", "", "", []byte(`[]`), received, 4).
			AddRow("m5", "alice", "x@example.org", []byte(`[]`), "five", "", "", []byte(`[]`), received, 5))

	msgs, last, err := NewPGStore(db).List(context.Background(), "alice", 0, 3)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(msgs) != 2 || last != 5 {
		t.Fatalf("got %d messages, last=%d; want 2, 5", len(msgs), last)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestPGStoreDelete(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("delete from messages")).
		WithArgs("alice", "m1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("delete from messages")).
		WithArgs("bob", "m1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	s := NewPGStore(db)
	if err := s.Delete(context.Background(), "alice", "m1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete(context.Background(), "bob", "m1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("cross-owner delete: got %v, want ErrNotFound", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}
