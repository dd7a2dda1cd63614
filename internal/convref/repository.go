package convref

import "context"

type Repository interface {
	// Upsert stores the reference, replacing any previous reference for the
	// same email. Every inbound activity refreshes the stored addressing.
	Upsert(ctx context.Context, ref *ConversationReference) error
	Get(ctx context.Context, email string) (*ConversationReference, error)
	List(ctx context.Context) ([]*ConversationReference, error)
	Delete(ctx context.Context, email string) error
}
