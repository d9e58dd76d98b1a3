package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/serroba/link-registry/internal/shortener"
)

const maxTxRetries = 5

var errTxContention = errors.New("store: too much contention on redis transaction")

// RedisStore is a Redis implementation of shortener.Store. Links live in
// hashes under "links:<key>" and owners in strings under "owners:<key>".
// Writes commit in a MULTI/EXEC block guarded by WATCH on every key read.
// Retention hints become key expiry. A link and its owner entry always share
// one absolute deadline so the two tables never hold different keys.
type RedisStore struct {
	client      *redis.Client
	linksPrefix string
	ownerPrefix string
	unit        time.Duration // duration of one retention unit
}

// NewRedisStore creates a new Redis-backed link store. Retention hints are
// applied as key TTLs, one second per unit.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{
		client:      client,
		linksPrefix: "links:",
		ownerPrefix: "owners:",
		unit:        time.Second,
	}
}

func (r *RedisStore) View(ctx context.Context, fn func(tx shortener.Tx) error) error {
	return fn(r.newTx(ctx, r.client, false))
}

func (r *RedisStore) Update(ctx context.Context, fn func(tx shortener.Tx) error) error {
	for range maxTxRetries {
		err := r.client.Watch(ctx, func(rtx *redis.Tx) error {
			tx := r.newTx(ctx, rtx, true)
			tx.watch = func(key string) error { return rtx.Watch(ctx, key).Err() }

			if err := fn(tx); err != nil {
				return err
			}

			expiries, err := tx.expiries()
			if err != nil {
				return err
			}

			_, err = rtx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				tx.flush(pipe, expiries)

				return nil
			})

			return err
		})
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}

		return err
	}

	return errTxContention
}

// redisReader is the read surface shared by *redis.Client and *redis.Tx.
type redisReader interface {
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	TTL(ctx context.Context, key string) *redis.DurationCmd
	Time(ctx context.Context) *redis.TimeCmd
}

type redisTx struct {
	ctx       context.Context
	store     *RedisStore
	reader    redisReader
	writable  bool
	watch     func(key string) error
	links     map[shortener.ShortKey]*shortener.LinkRecord
	owners    map[shortener.ShortKey]*shortener.Identity
	retention map[retentionKey]shortener.Retention
}

func (r *RedisStore) newTx(ctx context.Context, reader redisReader, writable bool) *redisTx {
	return &redisTx{
		ctx:       ctx,
		store:     r,
		reader:    reader,
		writable:  writable,
		watch:     func(string) error { return nil },
		links:     make(map[shortener.ShortKey]*shortener.LinkRecord),
		owners:    make(map[shortener.ShortKey]*shortener.Identity),
		retention: make(map[retentionKey]shortener.Retention),
	}
}

func (t *redisTx) linkKey(key shortener.ShortKey) string {
	return t.store.linksPrefix + string(key)
}

func (t *redisTx) ownerKey(key shortener.ShortKey) string {
	return t.store.ownerPrefix + string(key)
}

func (t *redisTx) Link(key shortener.ShortKey) (*shortener.LinkRecord, error) {
	if staged, ok := t.links[key]; ok {
		if staged == nil {
			return nil, shortener.ErrNotFound
		}

		record := *staged

		return &record, nil
	}

	if err := t.watch(t.linkKey(key)); err != nil {
		return nil, err
	}

	fields, err := t.reader.HGetAll(t.ctx, t.linkKey(key)).Result()
	if err != nil {
		return nil, err
	}

	if len(fields) == 0 {
		return nil, shortener.ErrNotFound
	}

	createdAt, err := strconv.ParseUint(fields["created_at"], 10, 32)
	if err != nil {
		return nil, fmt.Errorf("store: corrupt created_at for %q: %w", key, err)
	}

	return &shortener.LinkRecord{
		DestinationURL: fields["destination_url"],
		CreatedAt:      shortener.Sequence(createdAt),
		Owner:          shortener.Identity(fields["owner"]),
	}, nil
}

func (t *redisTx) Owner(key shortener.ShortKey) (shortener.Identity, error) {
	if staged, ok := t.owners[key]; ok {
		if staged == nil {
			return "", shortener.ErrNotFound
		}

		return *staged, nil
	}

	if err := t.watch(t.ownerKey(key)); err != nil {
		return "", err
	}

	owner, err := t.reader.Get(t.ctx, t.ownerKey(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", shortener.ErrNotFound
		}

		return "", err
	}

	return shortener.Identity(owner), nil
}

func (t *redisTx) PutLink(key shortener.ShortKey, record *shortener.LinkRecord) error {
	if !t.writable {
		return errReadOnly
	}

	staged := *record
	t.links[key] = &staged

	return nil
}

func (t *redisTx) PutOwner(key shortener.ShortKey, owner shortener.Identity) error {
	if !t.writable {
		return errReadOnly
	}

	t.owners[key] = &owner

	return nil
}

func (t *redisTx) DeleteLink(key shortener.ShortKey) error {
	if !t.writable {
		return errReadOnly
	}

	t.links[key] = nil

	return nil
}

func (t *redisTx) DeleteOwner(key shortener.ShortKey) error {
	if !t.writable {
		return errReadOnly
	}

	t.owners[key] = nil

	return nil
}

func (t *redisTx) ExtendRetention(table shortener.Table, key shortener.ShortKey, r shortener.Retention) error {
	if !t.writable {
		return errReadOnly
	}

	t.retention[retentionKey{table: table, key: key}] = r

	return nil
}

func (t *redisTx) redisKey(rk retentionKey) string {
	if rk.table == shortener.TableLinks {
		return t.linkKey(rk.key)
	}

	return t.ownerKey(rk.key)
}

// expiries resolves the deadline each hinted short key expires at. It runs
// before MULTI because TTL and TIME reads cannot be queued.
func (t *redisTx) expiries() (map[shortener.ShortKey]time.Time, error) {
	out := make(map[shortener.ShortKey]time.Time, len(t.retention))
	if len(t.retention) == 0 {
		return out, nil
	}

	now, err := t.reader.Time(t.ctx).Result()
	if err != nil {
		return nil, err
	}

	for rk, r := range t.retention {
		if t.deleted(rk.key) {
			continue
		}

		ttl, err := t.reader.TTL(t.ctx, t.redisKey(rk)).Result()
		if err != nil {
			return nil, err
		}

		if ttl >= time.Duration(r.Threshold)*t.store.unit {
			continue
		}

		deadline := now.Add(time.Duration(r.ExtendTo) * t.store.unit)
		if current, ok := out[rk.key]; !ok || deadline.After(current) {
			out[rk.key] = deadline
		}
	}

	return out, nil
}

func (t *redisTx) deleted(key shortener.ShortKey) bool {
	link, staged := t.links[key]

	return staged && link == nil
}

func (t *redisTx) flush(pipe redis.Pipeliner, expiries map[shortener.ShortKey]time.Time) {
	for key, record := range t.links {
		if record == nil {
			pipe.Del(t.ctx, t.linkKey(key))

			continue
		}

		pipe.HSet(t.ctx, t.linkKey(key), map[string]interface{}{
			"destination_url": record.DestinationURL,
			"created_at":      uint32(record.CreatedAt),
			"owner":           string(record.Owner),
		})
	}

	for key, owner := range t.owners {
		if owner == nil {
			pipe.Del(t.ctx, t.ownerKey(key))

			continue
		}

		pipe.Set(t.ctx, t.ownerKey(key), string(*owner), redis.KeepTTL)
	}

	for key, deadline := range expiries {
		pipe.PExpireAt(t.ctx, t.linkKey(key), deadline)
		pipe.PExpireAt(t.ctx, t.ownerKey(key), deadline)
	}
}

// Compile-time check.
var _ shortener.Store = (*RedisStore)(nil)
