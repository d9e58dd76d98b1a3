package shortener

import (
	"context"
	"errors"
	"fmt"
)

// Registry maps short keys to destination URLs and gates mutation on ownership.
type Registry struct {
	store       Store
	auth        Authenticator
	ledger      Ledger
	keys        KeyGenerator
	retention   Retention
	keyAttempts int
}

// Option configures a Registry.
type Option func(*Registry)

// WithKeyGenerator replaces the default LedgerKeys generator.
func WithKeyGenerator(g KeyGenerator) Option {
	return func(r *Registry) { r.keys = g }
}

// WithKeyAttempts sets how many generated keys Create tries before reporting
// ErrKeyConflict. One attempt means a collision fails immediately.
func WithKeyAttempts(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.keyAttempts = n
		}
	}
}

// WithRetention overrides the retention hint applied on writes.
func WithRetention(ret Retention) Option {
	return func(r *Registry) { r.retention = ret }
}

// NewRegistry creates a registry over the given collaborators.
func NewRegistry(store Store, auth Authenticator, ledger Ledger, opts ...Option) *Registry {
	r := &Registry{
		store:       store,
		auth:        auth,
		ledger:      ledger,
		keys:        LedgerKeys{},
		retention:   DefaultRetention,
		keyAttempts: 1,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Create files destination under customKey, or under a generated key when
// customKey is nil, and records owner as its creator.
func (r *Registry) Create(ctx context.Context, owner Identity, destination string, customKey *ShortKey) (ShortKey, error) {
	if err := r.auth.RequireAuth(ctx, owner); err != nil {
		return "", authFailure(err)
	}

	if destination == "" {
		return "", fmt.Errorf("%w: url cannot be empty", ErrInvalidInput)
	}

	if customKey != nil {
		if !customKey.Valid() {
			return "", fmt.Errorf("%w: custom key must be between 1 and %d characters", ErrInvalidInput, MaxKeyLength)
		}

		if err := r.insert(ctx, *customKey, owner, destination); err != nil {
			return "", err
		}

		return *customKey, nil
	}

	seq, ts := r.ledger.Sequence(), r.ledger.Timestamp()

	var err error

	for attempt := range r.keyAttempts {
		key := r.keys.Generate(seq, ts, attempt)

		err = r.insert(ctx, key, owner, destination)
		if err == nil {
			return key, nil
		}

		if !errors.Is(err, ErrKeyConflict) {
			return "", err
		}
	}

	return "", err
}

func (r *Registry) insert(ctx context.Context, key ShortKey, owner Identity, destination string) error {
	return r.store.Update(ctx, func(tx Tx) error {
		_, err := tx.Link(key)
		if err == nil {
			return fmt.Errorf("%w: %q", ErrKeyConflict, key)
		}

		if !errors.Is(err, ErrNotFound) {
			return err
		}

		record := &LinkRecord{
			DestinationURL: destination,
			CreatedAt:      r.ledger.Sequence(),
			Owner:          owner,
		}

		if err = tx.PutLink(key, record); err != nil {
			return err
		}

		if err = tx.PutOwner(key, owner); err != nil {
			return err
		}

		if err = tx.ExtendRetention(TableLinks, key, r.retention); err != nil {
			return err
		}

		return tx.ExtendRetention(TableOwners, key, r.retention)
	})
}

// Update replaces the destination of key. Only the owner may call it.
func (r *Registry) Update(ctx context.Context, caller Identity, key ShortKey, destination string) error {
	if err := r.auth.RequireAuth(ctx, caller); err != nil {
		return authFailure(err)
	}

	return r.store.Update(ctx, func(tx Tx) error {
		if err := checkOwner(tx, caller, key); err != nil {
			return err
		}

		if destination == "" {
			return fmt.Errorf("%w: url cannot be empty", ErrInvalidInput)
		}

		record, err := tx.Link(key)
		if err != nil {
			return err
		}

		record.DestinationURL = destination

		if err = tx.PutLink(key, record); err != nil {
			return err
		}

		return tx.ExtendRetention(TableLinks, key, r.retention)
	})
}

// Delete removes key from both tables. Only the owner may call it.
func (r *Registry) Delete(ctx context.Context, caller Identity, key ShortKey) error {
	if err := r.auth.RequireAuth(ctx, caller); err != nil {
		return authFailure(err)
	}

	return r.store.Update(ctx, func(tx Tx) error {
		if err := checkOwner(tx, caller, key); err != nil {
			return err
		}

		if err := tx.DeleteLink(key); err != nil {
			return err
		}

		return tx.DeleteOwner(key)
	})
}

// Destination returns the URL filed under key.
func (r *Registry) Destination(ctx context.Context, key ShortKey) (string, error) {
	record, err := r.Record(ctx, key)
	if err != nil {
		return "", err
	}

	return record.DestinationURL, nil
}

// Record returns the full link record filed under key.
func (r *Registry) Record(ctx context.Context, key ShortKey) (*LinkRecord, error) {
	var record *LinkRecord

	err := r.store.View(ctx, func(tx Tx) error {
		var err error

		record, err = tx.Link(key)

		return err
	})
	if err != nil {
		return nil, err
	}

	return record, nil
}

// Owner returns the identity that created key.
func (r *Registry) Owner(ctx context.Context, key ShortKey) (Identity, error) {
	var owner Identity

	err := r.store.View(ctx, func(tx Tx) error {
		var err error

		owner, err = tx.Owner(key)

		return err
	})

	return owner, err
}

func checkOwner(tx Tx, caller Identity, key ShortKey) error {
	owner, err := tx.Owner(key)
	if err != nil {
		return err
	}

	if owner != caller {
		return ErrUnauthorized
	}

	return nil
}

func authFailure(err error) error {
	if errors.Is(err, ErrAuthenticationFailed) {
		return err
	}

	return fmt.Errorf("%w: %w", ErrAuthenticationFailed, err)
}
