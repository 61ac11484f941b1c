package mailbox

import "context"

// Store defines per-owner mailbox operations. Every read and delete is
// scoped by owner: one identity can never observe another identity's
// messages, not even their existence.
type Store interface {
	Append(ctx context.Context, msg Message) (Message, error)
	List(ctx context.Context, owner string, limit int, afterSeq uint64) ([]Message, uint64, error)
	Find(ctx context.Context, owner, id string) (Message, error)
	Delete(ctx context.Context, owner, id string) error
}
