package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/serroba/link-registry/internal/shortener"
)

const uniqueViolation = "23505"

const schema = `
CREATE TABLE IF NOT EXISTS links (
	short_key       TEXT PRIMARY KEY,
	destination_url TEXT NOT NULL,
	created_ledger  BIGINT NOT NULL,
	owner           TEXT NOT NULL,
	retain_until    TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS owners (
	short_key    TEXT PRIMARY KEY,
	owner        TEXT NOT NULL,
	retain_until TIMESTAMPTZ
);
`

// PostgresStore is a PostgreSQL implementation of shortener.Store. Each
// logical table is a real table and every Update runs in one transaction.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed link store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Migrate creates the links and owners tables if they do not exist.
func (p *PostgresStore) Migrate(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, schema)

	return err
}

func (p *PostgresStore) View(ctx context.Context, fn func(tx shortener.Tx) error) error {
	return pgx.BeginTxFunc(ctx, p.pool, pgx.TxOptions{AccessMode: pgx.ReadOnly}, func(tx pgx.Tx) error {
		return fn(&postgresTx{ctx: ctx, tx: tx})
	})
}

func (p *PostgresStore) Update(ctx context.Context, fn func(tx shortener.Tx) error) error {
	err := pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		return fn(&postgresTx{ctx: ctx, tx: tx, writable: true})
	})

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", shortener.ErrKeyConflict, pgErr.Detail)
	}

	return err
}

type postgresTx struct {
	ctx      context.Context
	tx       pgx.Tx
	writable bool
}

// lockClause locks rows read inside a write transaction.
func (t *postgresTx) lockClause() string {
	if t.writable {
		return " FOR UPDATE"
	}

	return ""
}

func (t *postgresTx) Link(key shortener.ShortKey) (*shortener.LinkRecord, error) {
	query := `
		SELECT destination_url, created_ledger, owner
		FROM links
		WHERE short_key = $1` + t.lockClause()

	var (
		record    shortener.LinkRecord
		createdAt int64
		owner     string
	)

	err := t.tx.QueryRow(t.ctx, query, string(key)).Scan(&record.DestinationURL, &createdAt, &owner)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shortener.ErrNotFound
		}

		return nil, err
	}

	record.CreatedAt = shortener.Sequence(createdAt)
	record.Owner = shortener.Identity(owner)

	return &record, nil
}

func (t *postgresTx) Owner(key shortener.ShortKey) (shortener.Identity, error) {
	query := `SELECT owner FROM owners WHERE short_key = $1` + t.lockClause()

	var owner string

	err := t.tx.QueryRow(t.ctx, query, string(key)).Scan(&owner)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", shortener.ErrNotFound
		}

		return "", err
	}

	return shortener.Identity(owner), nil
}

func (t *postgresTx) PutLink(key shortener.ShortKey, record *shortener.LinkRecord) error {
	if !t.writable {
		return errReadOnly
	}

	query := `
		INSERT INTO links (short_key, destination_url, created_ledger, owner)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (short_key) DO UPDATE SET destination_url = EXCLUDED.destination_url
	`

	_, err := t.tx.Exec(t.ctx, query,
		string(key),
		record.DestinationURL,
		int64(record.CreatedAt),
		string(record.Owner),
	)

	return err
}

// PutOwner never overwrites: a concurrent create of the same key fails the
// transaction with a unique violation.
func (t *postgresTx) PutOwner(key shortener.ShortKey, owner shortener.Identity) error {
	if !t.writable {
		return errReadOnly
	}

	_, err := t.tx.Exec(t.ctx, `INSERT INTO owners (short_key, owner) VALUES ($1, $2)`, string(key), string(owner))

	return err
}

func (t *postgresTx) DeleteLink(key shortener.ShortKey) error {
	if !t.writable {
		return errReadOnly
	}

	_, err := t.tx.Exec(t.ctx, `DELETE FROM links WHERE short_key = $1`, string(key))

	return err
}

func (t *postgresTx) DeleteOwner(key shortener.ShortKey) error {
	if !t.writable {
		return errReadOnly
	}

	_, err := t.tx.Exec(t.ctx, `DELETE FROM owners WHERE short_key = $1`, string(key))

	return err
}

// ExtendRetention stores the hint as retain_until, one second per unit.
func (t *postgresTx) ExtendRetention(table shortener.Table, key shortener.ShortKey, r shortener.Retention) error {
	if !t.writable {
		return errReadOnly
	}

	var query string

	switch table {
	case shortener.TableLinks:
		query = `
			UPDATE links SET retain_until = now() + make_interval(secs => $2)
			WHERE short_key = $1
			  AND (retain_until IS NULL OR retain_until < now() + make_interval(secs => $3))
		`
	case shortener.TableOwners:
		query = `
			UPDATE owners SET retain_until = now() + make_interval(secs => $2)
			WHERE short_key = $1
			  AND (retain_until IS NULL OR retain_until < now() + make_interval(secs => $3))
		`
	default:
		return fmt.Errorf("store: unknown table %q", table)
	}

	_, err := t.tx.Exec(t.ctx, query, string(key), float64(r.ExtendTo), float64(r.Threshold))

	return err
}

// Compile-time check.
var _ shortener.Store = (*PostgresStore)(nil)
