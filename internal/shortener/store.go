package shortener

import "context"

// Authenticator verifies that the current call is authorized by an identity.
// Implementations return an error wrapping ErrAuthenticationFailed when it is not.
type Authenticator interface {
	RequireAuth(ctx context.Context, id Identity) error
}

// Ledger exposes the environment's sequence counter and timestamp.
type Ledger interface {
	Sequence() Sequence
	Timestamp() uint64
}

// Store is the persistent key-value store holding the links and owners tables.
//
// Update runs fn in a read-write transaction. Writes issued through the Tx
// become visible together when fn returns nil and are discarded otherwise.
type Store interface {
	View(ctx context.Context, fn func(tx Tx) error) error
	Update(ctx context.Context, fn func(tx Tx) error) error
}

// Tx addresses both tables inside a single transaction.
// Link and Owner return ErrNotFound for absent keys.
type Tx interface {
	Link(key ShortKey) (*LinkRecord, error)
	Owner(key ShortKey) (Identity, error)
	PutLink(key ShortKey, record *LinkRecord) error
	PutOwner(key ShortKey, owner Identity) error
	DeleteLink(key ShortKey) error
	DeleteOwner(key ShortKey) error
	ExtendRetention(table Table, key ShortKey, r Retention) error
}
