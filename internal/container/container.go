// Package container wires the link registry services with samber/do.
package container

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	_ "github.com/danielgtaylor/huma/v2/formats/cbor" // CBOR format support for huma
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"github.com/serroba/link-registry/internal/audit"
	"github.com/serroba/link-registry/internal/auth"
	"github.com/serroba/link-registry/internal/handlers"
	"github.com/serroba/link-registry/internal/health"
	"github.com/serroba/link-registry/internal/ledger"
	"github.com/serroba/link-registry/internal/messaging"
	"github.com/serroba/link-registry/internal/middleware"
	"github.com/serroba/link-registry/internal/shortener"
	"github.com/serroba/link-registry/internal/store"
	"go.uber.org/zap"
)

const (
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"

	EventsNone   = "none"
	EventsMemory = "memory"
	EventsRedis  = "redis"

	KeySchemeLedger = "ledger"
	KeySchemeRandom = "random"
)

// closer adapts resources with a Close method to do.Shutdownable. It is
// invoked from inside the resource's provider so the injector shuts it down
// after every service built on top of it.
type closer func() error

func (c closer) Shutdown() error { return c() }

// LoggerPackage provides the process logger.
func LoggerPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*zap.Logger, error) {
		opts := do.MustInvoke[*Options](i)

		if opts.LogFormat == "console" {
			return zap.NewDevelopment()
		}

		return zap.NewProduction()
	})
}

// RedisPackage provides the Redis client shared by the store, the event
// transport and the health check.
func RedisPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*redis.Client, error) {
		opts := do.MustInvoke[*Options](i)

		client := redis.NewClient(&redis.Options{
			Addr: opts.RedisAddr,
		})

		do.ProvideNamedValue(i, "redis-closer", closer(client.Close))
		do.MustInvokeNamed[closer](i, "redis-closer")

		return client, nil
	})
}

// PostgresPackage provides the connection pool and applies the schema.
func PostgresPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*pgxpool.Pool, error) {
		opts := do.MustInvoke[*Options](i)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		pool, err := pgxpool.New(ctx, opts.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}

		if err = store.NewPostgresStore(pool).Migrate(ctx); err != nil {
			pool.Close()

			return nil, fmt.Errorf("migrate postgres: %w", err)
		}

		do.ProvideNamedValue(i, "postgres-closer", closer(func() error {
			pool.Close()

			return nil
		}))
		do.MustInvokeNamed[closer](i, "postgres-closer")

		return pool, nil
	})
}

// StorePackage provides the link store selected by Options.Store.
func StorePackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (shortener.Store, error) {
		opts := do.MustInvoke[*Options](i)

		switch opts.Store {
		case StoreMemory:
			return store.NewMemoryStore(), nil
		case StoreRedis:
			return store.NewRedisStore(do.MustInvoke[*redis.Client](i)), nil
		case StorePostgres:
			pool, err := do.Invoke[*pgxpool.Pool](i)
			if err != nil {
				return nil, err
			}

			return store.NewPostgresStore(pool), nil
		default:
			return nil, fmt.Errorf("unknown store %q", opts.Store)
		}
	})
}

// LedgerPackage provides the clock-backed ledger.
func LedgerPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (shortener.Ledger, error) {
		opts := do.MustInvoke[*Options](i)

		interval, err := time.ParseDuration(opts.LedgerInterval)
		if err != nil {
			return nil, fmt.Errorf("ledger interval: %w", err)
		}

		genesis, err := time.Parse(time.RFC3339, opts.LedgerGenesis)
		if err != nil {
			return nil, fmt.Errorf("ledger genesis: %w", err)
		}

		return ledger.NewClock(genesis, interval), nil
	})
}

// AuthPackage provides the bearer token authenticator.
func AuthPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (shortener.Authenticator, error) {
		opts := do.MustInvoke[*Options](i)

		maxAge, err := time.ParseDuration(opts.TokenMaxAge)
		if err != nil {
			return nil, fmt.Errorf("token max age: %w", err)
		}

		return auth.NewVerifier(maxAge), nil
	})
}

// RegistryPackage provides the link registry.
func RegistryPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*shortener.Registry, error) {
		opts := do.MustInvoke[*Options](i)

		linkStore, err := do.Invoke[shortener.Store](i)
		if err != nil {
			return nil, err
		}

		l, err := do.Invoke[shortener.Ledger](i)
		if err != nil {
			return nil, err
		}

		authenticator, err := do.Invoke[shortener.Authenticator](i)
		if err != nil {
			return nil, err
		}

		registryOpts := []shortener.Option{shortener.WithKeyAttempts(opts.KeyAttempts)}

		switch opts.KeyScheme {
		case KeySchemeLedger:
		case KeySchemeRandom:
			keys, err := shortener.NewRandomKeys()
			if err != nil {
				return nil, err
			}

			registryOpts = append(registryOpts, shortener.WithKeyGenerator(keys))
		default:
			return nil, fmt.Errorf("unknown key scheme %q", opts.KeyScheme)
		}

		return shortener.NewRegistry(linkStore, authenticator, l, registryOpts...), nil
	})
}

// PublisherGroupPackage provides the lifecycle event publishers selected by
// Options.Events.
func PublisherGroupPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*gochannel.GoChannel, error) {
		logger := do.MustInvoke[*zap.Logger](i)

		return gochannel.NewGoChannel(gochannel.Config{}, messaging.NewZapLogger(logger)), nil
	})

	do.Provide(i, func(i *do.Injector) (*messaging.PublisherGroup, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)

		switch opts.Events {
		case EventsMemory:
			return messaging.NewPublisherGroup(do.MustInvoke[*gochannel.GoChannel](i)), nil
		case EventsRedis:
			publisher, err := redisstream.NewPublisher(redisstream.PublisherConfig{
				Client: do.MustInvoke[*redis.Client](i),
			}, messaging.NewZapLogger(logger))
			if err != nil {
				return nil, fmt.Errorf("redis stream publisher: %w", err)
			}

			return messaging.NewPublisherGroup(publisher), nil
		default:
			return nil, fmt.Errorf("no publisher for event transport %q", opts.Events)
		}
	})

	do.Provide(i, func(i *do.Injector) (audit.Publishers, error) {
		opts := do.MustInvoke[*Options](i)

		if opts.Events == EventsNone {
			return audit.DiscardPublishers(), nil
		}

		group, err := do.Invoke[*messaging.PublisherGroup](i)
		if err != nil {
			return audit.Publishers{}, err
		}

		return audit.NewPublishers(group.Publisher()), nil
	})
}

// HTTPPackage provides the router and the huma API with every route
// registered.
func HTTPPackage(i *do.Injector) {
	do.Provide(i, func(_ *do.Injector) (*chi.Mux, error) {
		return chi.NewMux(), nil
	})

	do.Provide(i, func(i *do.Injector) (huma.API, error) {
		opts := do.MustInvoke[*Options](i)
		router := do.MustInvoke[*chi.Mux](i)
		logger := do.MustInvoke[*zap.Logger](i)

		registry, err := do.Invoke[*shortener.Registry](i)
		if err != nil {
			return nil, err
		}

		events, err := do.Invoke[audit.Publishers](i)
		if err != nil {
			return nil, err
		}

		api := humachi.New(router, huma.DefaultConfig("Link Registry", "1.0.0"))
		api.UseMiddleware(middleware.Credentials(api))

		baseURL := opts.BaseURL
		if baseURL == "" {
			baseURL = fmt.Sprintf("http://localhost:%d", opts.Port)
		}

		health.RegisterRoutes(api, health.NewHandler(healthChecks(i, opts)))
		handlers.RegisterRoutes(api, handlers.NewLinkHandler(registry, baseURL, events, logger))

		return api, nil
	})
}

func healthChecks(i *do.Injector, opts *Options) map[string]health.Checker {
	checks := make(map[string]health.Checker)

	if opts.Store == StoreRedis || opts.Events == EventsRedis {
		checks["redis"] = health.NewRedisChecker(do.MustInvoke[*redis.Client](i))
	}

	if opts.Store == StorePostgres {
		checks["postgres"] = do.MustInvoke[*pgxpool.Pool](i)
	}

	return checks
}

// SubscriberPackage provides the subscriber reading lifecycle events: the
// in-process channel when Options.Events is memory, otherwise Redis Streams
// as a member of Options.ConsumerGroup.
func SubscriberPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (message.Subscriber, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)

		if opts.Events == EventsMemory {
			return do.MustInvoke[*gochannel.GoChannel](i), nil
		}

		subscriber, err := redisstream.NewSubscriber(redisstream.SubscriberConfig{
			Client:        do.MustInvoke[*redis.Client](i),
			ConsumerGroup: opts.ConsumerGroup,
		}, messaging.NewZapLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("redis stream subscriber: %w", err)
		}

		return subscriber, nil
	})
}

// RecorderPackage provides the audit recorder writing every lifecycle event
// to the audit log.
func RecorderPackage(i *do.Injector) {
	SubscriberPackage(i)

	do.Provide(i, func(i *do.Injector) (*audit.Recorder, error) {
		logger := do.MustInvoke[*zap.Logger](i)

		subscriber, err := do.Invoke[message.Subscriber](i)
		if err != nil {
			return nil, err
		}

		return audit.NewRecorder(subscriber, audit.NewLogSink(logger), logger), nil
	})
}
