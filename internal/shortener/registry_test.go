package shortener_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/serroba/link-registry/internal/ledger"
	"github.com/serroba/link-registry/internal/shortener"
	"github.com/serroba/link-registry/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	alice shortener.Identity = "alice"
	bob   shortener.Identity = "bob"
)

func errWrap(err error) error {
	return fmt.Errorf("context: %w", err)
}

// fakeAuth authorizes every identity except those listed in denied.
type fakeAuth struct {
	denied map[shortener.Identity]bool
}

func (f *fakeAuth) RequireAuth(_ context.Context, id shortener.Identity) error {
	if f.denied[id] {
		return errors.New("signature mismatch")
	}

	return nil
}

type fixture struct {
	registry *shortener.Registry
	store    *store.MemoryStore
	ledger   *ledger.Manual
	auth     *fakeAuth
}

func newFixture(opts ...shortener.Option) *fixture {
	f := &fixture{
		store:  store.NewMemoryStore(),
		ledger: ledger.NewManual(0, 0),
		auth:   &fakeAuth{denied: map[shortener.Identity]bool{}},
	}
	f.registry = shortener.NewRegistry(f.store, f.auth, f.ledger, opts...)

	return f
}

func keyPtr(k shortener.ShortKey) *shortener.ShortKey {
	return &k
}

func TestRegistry_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("round trips destination and owner", func(t *testing.T) {
		f := newFixture()

		key, err := f.registry.Create(ctx, alice, "https://example.com/very/long/url", keyPtr("mylink"))
		require.NoError(t, err)
		assert.Equal(t, shortener.ShortKey("mylink"), key)

		dest, err := f.registry.Destination(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, "https://example.com/very/long/url", dest)

		owner, err := f.registry.Owner(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, alice, owner)
	})

	t.Run("stamps the ledger sequence", func(t *testing.T) {
		f := newFixture()
		f.ledger.Set(1234, 99)

		key, err := f.registry.Create(ctx, alice, "https://example.com", keyPtr("stamped"))
		require.NoError(t, err)

		record, err := f.registry.Record(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, shortener.Sequence(1234), record.CreatedAt)
		assert.Equal(t, alice, record.Owner)
	})

	t.Run("rejects duplicate key from any owner", func(t *testing.T) {
		f := newFixture()

		_, err := f.registry.Create(ctx, alice, "https://example.com/url1", keyPtr("duplicate"))
		require.NoError(t, err)

		_, err = f.registry.Create(ctx, bob, "https://example.com/url2", keyPtr("duplicate"))
		require.ErrorIs(t, err, shortener.ErrKeyConflict)

		dest, _ := f.registry.Destination(ctx, "duplicate")
		assert.Equal(t, "https://example.com/url1", dest)
	})

	t.Run("rejects empty url without creating a record", func(t *testing.T) {
		f := newFixture()

		_, err := f.registry.Create(ctx, alice, "", keyPtr("empty"))
		require.ErrorIs(t, err, shortener.ErrInvalidInput)

		links, owners := f.store.Len()
		assert.Zero(t, links)
		assert.Zero(t, owners)
	})

	t.Run("rejects custom key outside 1..64 characters", func(t *testing.T) {
		f := newFixture()

		_, err := f.registry.Create(ctx, alice, "https://example.com", keyPtr(""))
		require.ErrorIs(t, err, shortener.ErrInvalidInput)

		_, err = f.registry.Create(ctx, alice, "https://example.com", keyPtr(shortener.ShortKey(strings.Repeat("a", 65))))
		require.ErrorIs(t, err, shortener.ErrInvalidInput)

		key, err := f.registry.Create(ctx, alice, "https://example.com", keyPtr(shortener.ShortKey(strings.Repeat("a", 64))))
		require.NoError(t, err)
		assert.Len(t, string(key), 64)
	})

	t.Run("fails when authentication fails", func(t *testing.T) {
		f := newFixture()
		f.auth.denied[alice] = true

		_, err := f.registry.Create(ctx, alice, "https://example.com", keyPtr("nope"))
		require.ErrorIs(t, err, shortener.ErrAuthenticationFailed)
		assert.Equal(t, shortener.KindAuthenticationFailed, shortener.Kind(err))

		links, _ := f.store.Len()
		assert.Zero(t, links)
	})

	t.Run("extends retention on both tables", func(t *testing.T) {
		f := newFixture()

		key, err := f.registry.Create(ctx, alice, "https://example.com", keyPtr("kept"))
		require.NoError(t, err)

		r, ok := f.store.RetentionOf(shortener.TableLinks, key)
		assert.True(t, ok)
		assert.Equal(t, shortener.DefaultRetention, r)

		_, ok = f.store.RetentionOf(shortener.TableOwners, key)
		assert.True(t, ok)
	})
}

func TestRegistry_CreateGenerated(t *testing.T) {
	ctx := context.Background()

	t.Run("generates a seven character key from the alphabet", func(t *testing.T) {
		f := newFixture()
		f.ledger.Set(10, 1_700_000_000)

		key, err := f.registry.Create(ctx, alice, "https://example.com/another/url", nil)
		require.NoError(t, err)
		assert.Len(t, string(key), shortener.GeneratedKeyLength)

		for _, c := range string(key) {
			assert.True(t, strings.ContainsRune(shortener.Alphabet, c))
		}

		assert.Equal(t, shortener.LedgerKeys{}.Generate(10, 1_700_000_000, 0), key)

		dest, err := f.registry.Destination(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, "https://example.com/another/url", dest)
	})

	t.Run("different ledger position yields different key", func(t *testing.T) {
		f := newFixture()

		first, err := f.registry.Create(ctx, alice, "https://example.com/a", nil)
		require.NoError(t, err)

		f.ledger.Set(1, 5)

		second, err := f.registry.Create(ctx, alice, "https://example.com/b", nil)
		require.NoError(t, err)
		assert.NotEqual(t, first, second)
	})

	t.Run("same ledger position conflicts with a single attempt", func(t *testing.T) {
		f := newFixture(shortener.WithKeyAttempts(1))

		_, err := f.registry.Create(ctx, alice, "https://example.com/a", nil)
		require.NoError(t, err)

		_, err = f.registry.Create(ctx, bob, "https://example.com/b", nil)
		require.ErrorIs(t, err, shortener.ErrKeyConflict)
	})

	t.Run("retries generated keys when attempts allow", func(t *testing.T) {
		f := newFixture(shortener.WithKeyAttempts(3))

		first, err := f.registry.Create(ctx, alice, "https://example.com/a", nil)
		require.NoError(t, err)

		second, err := f.registry.Create(ctx, bob, "https://example.com/b", nil)
		require.NoError(t, err)
		assert.NotEqual(t, first, second)

		owner, _ := f.registry.Owner(ctx, second)
		assert.Equal(t, bob, owner)
	})

	t.Run("custom keys never retry", func(t *testing.T) {
		f := newFixture(shortener.WithKeyAttempts(5))

		_, _ = f.registry.Create(ctx, alice, "https://example.com/a", keyPtr("taken"))

		_, err := f.registry.Create(ctx, alice, "https://example.com/b", keyPtr("taken"))
		require.ErrorIs(t, err, shortener.ErrKeyConflict)
	})
}

func TestRegistry_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("changes only the destination", func(t *testing.T) {
		f := newFixture()
		f.ledger.Set(50, 500)

		_, err := f.registry.Create(ctx, alice, "https://example.com/original", keyPtr("updateme"))
		require.NoError(t, err)

		before, _ := f.registry.Record(ctx, "updateme")

		f.ledger.Set(80, 800)

		err = f.registry.Update(ctx, alice, "updateme", "https://example.com/updated")
		require.NoError(t, err)

		after, err := f.registry.Record(ctx, "updateme")
		require.NoError(t, err)
		assert.Equal(t, "https://example.com/updated", after.DestinationURL)
		assert.Equal(t, before.CreatedAt, after.CreatedAt)
		assert.Equal(t, before.Owner, after.Owner)
	})

	t.Run("rejects non-owner and leaves record unchanged", func(t *testing.T) {
		f := newFixture()

		_, _ = f.registry.Create(ctx, alice, "https://example.com/original", keyPtr("owned"))

		err := f.registry.Update(ctx, bob, "owned", "https://evil.example.com")
		require.ErrorIs(t, err, shortener.ErrUnauthorized)

		dest, _ := f.registry.Destination(ctx, "owned")
		assert.Equal(t, "https://example.com/original", dest)
	})

	t.Run("returns NotFound for absent key", func(t *testing.T) {
		f := newFixture()

		err := f.registry.Update(ctx, alice, "ghost", "https://example.com")
		require.ErrorIs(t, err, shortener.ErrNotFound)
	})

	t.Run("rejects empty url", func(t *testing.T) {
		f := newFixture()

		_, _ = f.registry.Create(ctx, alice, "https://example.com/original", keyPtr("keep"))

		err := f.registry.Update(ctx, alice, "keep", "")
		require.ErrorIs(t, err, shortener.ErrInvalidInput)

		dest, _ := f.registry.Destination(ctx, "keep")
		assert.Equal(t, "https://example.com/original", dest)
	})

	t.Run("ownership is checked before input", func(t *testing.T) {
		f := newFixture()

		_, _ = f.registry.Create(ctx, alice, "https://example.com/original", keyPtr("order"))

		err := f.registry.Update(ctx, bob, "order", "")
		require.ErrorIs(t, err, shortener.ErrUnauthorized)
	})

	t.Run("fails when authentication fails", func(t *testing.T) {
		f := newFixture()

		_, _ = f.registry.Create(ctx, alice, "https://example.com/original", keyPtr("auth"))
		f.auth.denied[alice] = true

		err := f.registry.Update(ctx, alice, "auth", "https://example.com/new")
		require.ErrorIs(t, err, shortener.ErrAuthenticationFailed)
	})
}

func TestRegistry_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("removes every trace of the key", func(t *testing.T) {
		f := newFixture()

		_, _ = f.registry.Create(ctx, alice, "https://example.com/delete", keyPtr("deleteme"))

		require.NoError(t, f.registry.Delete(ctx, alice, "deleteme"))

		_, err := f.registry.Destination(ctx, "deleteme")
		require.ErrorIs(t, err, shortener.ErrNotFound)

		_, err = f.registry.Record(ctx, "deleteme")
		require.ErrorIs(t, err, shortener.ErrNotFound)

		_, err = f.registry.Owner(ctx, "deleteme")
		require.ErrorIs(t, err, shortener.ErrNotFound)

		links, owners := f.store.Len()
		assert.Zero(t, links)
		assert.Zero(t, owners)
	})

	t.Run("deleted key can be recreated by anyone", func(t *testing.T) {
		f := newFixture()

		_, _ = f.registry.Create(ctx, alice, "https://example.com/a", keyPtr("reuse"))
		require.NoError(t, f.registry.Delete(ctx, alice, "reuse"))

		key, err := f.registry.Create(ctx, bob, "https://example.com/b", keyPtr("reuse"))
		require.NoError(t, err)

		owner, _ := f.registry.Owner(ctx, key)
		assert.Equal(t, bob, owner)
	})

	t.Run("rejects non-owner", func(t *testing.T) {
		f := newFixture()

		_, _ = f.registry.Create(ctx, alice, "https://example.com/a", keyPtr("mine"))

		err := f.registry.Delete(ctx, bob, "mine")
		require.ErrorIs(t, err, shortener.ErrUnauthorized)

		dest, err := f.registry.Destination(ctx, "mine")
		require.NoError(t, err)
		assert.Equal(t, "https://example.com/a", dest)
	})

	t.Run("returns NotFound for absent key", func(t *testing.T) {
		f := newFixture()

		err := f.registry.Delete(ctx, alice, "ghost")
		require.ErrorIs(t, err, shortener.ErrNotFound)
	})
}

func TestRegistry_Reads(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	_, err := f.registry.Destination(ctx, "missing")
	require.ErrorIs(t, err, shortener.ErrNotFound)

	_, err = f.registry.Record(ctx, "missing")
	require.ErrorIs(t, err, shortener.ErrNotFound)

	_, err = f.registry.Owner(ctx, "missing")
	require.ErrorIs(t, err, shortener.ErrNotFound)
}

func TestRegistry_Scenarios(t *testing.T) {
	ctx := context.Background()

	t.Run("full lifecycle of a custom key", func(t *testing.T) {
		f := newFixture()

		key, err := f.registry.Create(ctx, alice, "https://example.com/x", keyPtr("abc"))
		require.NoError(t, err)
		assert.Equal(t, shortener.ShortKey("abc"), key)

		dest, _ := f.registry.Destination(ctx, "abc")
		assert.Equal(t, "https://example.com/x", dest)

		require.NoError(t, f.registry.Update(ctx, alice, "abc", "https://example.com/y"))

		dest, _ = f.registry.Destination(ctx, "abc")
		assert.Equal(t, "https://example.com/y", dest)

		require.NoError(t, f.registry.Delete(ctx, alice, "abc"))

		_, err = f.registry.Destination(ctx, "abc")
		require.ErrorIs(t, err, shortener.ErrNotFound)
	})

	t.Run("two owners only touch their own keys", func(t *testing.T) {
		f := newFixture()

		_, err := f.registry.Create(ctx, alice, "https://example.com/alice", keyPtr("alice-link"))
		require.NoError(t, err)

		_, err = f.registry.Create(ctx, bob, "https://example.com/bob", keyPtr("bob-link"))
		require.NoError(t, err)

		require.ErrorIs(t, f.registry.Update(ctx, bob, "alice-link", "https://x.example.com"), shortener.ErrUnauthorized)
		require.ErrorIs(t, f.registry.Update(ctx, alice, "bob-link", "https://x.example.com"), shortener.ErrUnauthorized)
		require.ErrorIs(t, f.registry.Delete(ctx, bob, "alice-link"), shortener.ErrUnauthorized)
		require.ErrorIs(t, f.registry.Delete(ctx, alice, "bob-link"), shortener.ErrUnauthorized)

		require.NoError(t, f.registry.Update(ctx, alice, "alice-link", "https://example.com/alice2"))
		require.NoError(t, f.registry.Update(ctx, bob, "bob-link", "https://example.com/bob2"))

		dest, _ := f.registry.Destination(ctx, "alice-link")
		assert.Equal(t, "https://example.com/alice2", dest)

		require.NoError(t, f.registry.Delete(ctx, alice, "alice-link"))
		require.NoError(t, f.registry.Delete(ctx, bob, "bob-link"))
	})
}
