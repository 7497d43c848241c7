package container

import (
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	_ "github.com/danielgtaylor/huma/v2/formats/cbor" // CBOR format support for huma
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/samber/do"
	"github.com/serroba/shortlink/internal/cachesync"
	"github.com/serroba/shortlink/internal/handlers"
	"github.com/serroba/shortlink/internal/health"
	"github.com/serroba/shortlink/internal/messaging"
	"github.com/serroba/shortlink/internal/middleware"
	"github.com/serroba/shortlink/internal/ratelimit"
	"github.com/serroba/shortlink/internal/shortener"
	"github.com/serroba/shortlink/internal/store"
	"go.uber.org/zap"
)

// BackfillConsumerGroup is the redis stream consumer group shared by backfill workers.
const BackfillConsumerGroup = "cache-backfill"

// RepositoryPackage provides the cache, the durable store and the shortener core built on them.
func RepositoryPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (shortener.Cache, error) {
		opts := do.MustInvoke[*Options](i)

		if opts.CacheBackend == BackendMemory {
			return store.NewMemoryCache(), nil
		}

		client := do.MustInvoke[*Redis](i)

		return store.NewRedisCache(client.Client, opts.CachePrefix), nil
	})

	do.Provide(i, func(i *do.Injector) (shortener.Store, error) {
		opts := do.MustInvoke[*Options](i)

		if opts.StoreBackend == BackendMemory {
			return store.NewMemoryStore(), nil
		}

		pg, err := do.Invoke[*Postgres](i)
		if err != nil {
			return nil, err
		}

		return store.NewPostgresStore(pg.Pool), nil
	})

	do.Provide(i, func(i *do.Injector) (*shortener.MappingStore, error) {
		durable, err := do.Invoke[shortener.Store](i)
		if err != nil {
			return nil, err
		}

		return shortener.NewMappingStore(
			durable,
			do.MustInvoke[shortener.Cache](i),
			do.MustInvoke[*zap.Logger](i),
		), nil
	})

	do.Provide(i, func(i *do.Injector) (*shortener.Generator, error) {
		opts := do.MustInvoke[*Options](i)

		source, err := shortener.NewRandomSource(opts.CodeLength)
		if err != nil {
			return nil, err
		}

		durable, err := do.Invoke[shortener.Store](i)
		if err != nil {
			return nil, err
		}

		return shortener.NewGenerator(
			do.MustInvoke[shortener.Cache](i),
			durable,
			source,
			opts.MaxAttempts,
			do.MustInvoke[*zap.Logger](i),
		), nil
	})

	do.Provide(i, func(i *do.Injector) (*shortener.Service, error) {
		opts := do.MustInvoke[*Options](i)

		generator, err := do.Invoke[*shortener.Generator](i)
		if err != nil {
			return nil, err
		}

		mapping, err := do.Invoke[*shortener.MappingStore](i)
		if err != nil {
			return nil, err
		}

		return shortener.NewService(
			generator,
			mapping,
			opts.MaxAttempts,
			do.MustInvoke[shortener.BackfillRequester](i),
			do.MustInvoke[*zap.Logger](i),
		), nil
	})
}

// BrokerPackage provides the publisher and subscriber for backfill events. The memory broker
// only delivers within the current process.
func BrokerPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*gochannel.GoChannel, error) {
		logger := do.MustInvoke[*zap.Logger](i)

		return gochannel.NewGoChannel(gochannel.Config{}, messaging.NewLoggerAdapter(logger)), nil
	})

	do.Provide(i, func(i *do.Injector) (message.Publisher, error) {
		opts := do.MustInvoke[*Options](i)

		if opts.Broker == BackendMemory {
			return do.MustInvoke[*gochannel.GoChannel](i), nil
		}

		return redisstream.NewPublisher(
			redisstream.PublisherConfig{
				Client:     do.MustInvoke[*Redis](i).Client,
				Marshaller: redisstream.DefaultMarshallerUnmarshaller{},
			},
			messaging.NewLoggerAdapter(do.MustInvoke[*zap.Logger](i)),
		)
	})

	do.Provide(i, func(i *do.Injector) (message.Subscriber, error) {
		opts := do.MustInvoke[*Options](i)

		if opts.Broker == BackendMemory {
			return do.MustInvoke[*gochannel.GoChannel](i), nil
		}

		return redisstream.NewSubscriber(
			redisstream.SubscriberConfig{
				Client:        do.MustInvoke[*Redis](i).Client,
				Unmarshaller:  redisstream.DefaultMarshallerUnmarshaller{},
				ConsumerGroup: BackfillConsumerGroup,
			},
			messaging.NewLoggerAdapter(do.MustInvoke[*zap.Logger](i)),
		)
	})
}

// PublisherGroupPackage provides the backfill requester used by the shortener service.
func PublisherGroupPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*messaging.PublisherGroup, error) {
		publisher, err := do.Invoke[message.Publisher](i)
		if err != nil {
			return nil, err
		}

		return messaging.NewPublisherGroup(publisher), nil
	})

	do.Provide(i, func(i *do.Injector) (shortener.BackfillRequester, error) {
		group, err := do.Invoke[*messaging.PublisherGroup](i)
		if err != nil {
			return nil, err
		}

		publish := messaging.NewPublishFunc[cachesync.BackfillRequested](group.Publisher(), cachesync.TopicBackfillRequested)

		return cachesync.NewRequester(publish), nil
	})
}

// ConsumerGroupPackage provides the consumer group running the cache backfill worker.
func ConsumerGroupPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*messaging.ConsumerGroup, error) {
		logger := do.MustInvoke[*zap.Logger](i)

		subscriber, err := do.Invoke[message.Subscriber](i)
		if err != nil {
			return nil, err
		}

		mapping, err := do.Invoke[*shortener.MappingStore](i)
		if err != nil {
			return nil, err
		}

		group := messaging.NewConsumerGroup(subscriber, logger)
		group.Add(messaging.NewConsumer(
			subscriber,
			cachesync.TopicBackfillRequested,
			cachesync.NewBackfillHandler(mapping, logger),
			logger,
		))

		return group, nil
	})
}

// RateLimitPackage provides the per-client limiter. Counters live in the configured
// cache backend, so every server sharing a Redis instance shares the limits.
func RateLimitPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (ratelimit.Store, error) {
		opts := do.MustInvoke[*Options](i)

		if opts.CacheBackend == BackendMemory {
			return store.NewMemoryCache(), nil
		}

		return store.NewRedisCache(do.MustInvoke[*Redis](i).Client, opts.CachePrefix), nil
	})

	do.Provide(i, func(i *do.Injector) (*ratelimit.PolicyLimiter, error) {
		counters, err := do.Invoke[ratelimit.Store](i)
		if err != nil {
			return nil, err
		}

		return ratelimit.NewPolicyLimiter(counters, ratelimit.DefaultPolicy()), nil
	})
}

// HTTPPackage provides the router and the huma API with every route registered.
func HTTPPackage(i *do.Injector) {
	do.Provide(i, func(_ *do.Injector) (*chi.Mux, error) {
		router := chi.NewMux()
		router.Use(chimiddleware.RequestID, chimiddleware.Recoverer)

		return router, nil
	})

	do.Provide(i, func(i *do.Injector) (huma.API, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)
		router := do.MustInvoke[*chi.Mux](i)

		service, err := do.Invoke[*shortener.Service](i)
		if err != nil {
			return nil, err
		}

		api := humachi.New(router, huma.DefaultConfig("URL Shortener", "1.0.0"))
		api.UseMiddleware(middleware.RequestMeta(api))

		if opts.RateLimit {
			limiter, err := do.Invoke[*ratelimit.PolicyLimiter](i)
			if err != nil {
				return nil, err
			}

			api.UseMiddleware(middleware.RateLimiter(api, limiter, logger))
		}

		handlers.RegisterRoutes(api, handlers.NewURLHandler(service, opts.BaseURL, opts.CodeLength, logger))
		health.RegisterRoutes(api, health.NewHandler(checkers(i, opts)))

		return api, nil
	})
}

func checkers(i *do.Injector, opts *Options) map[string]health.Checker {
	out := make(map[string]health.Checker)

	if opts.CacheBackend == BackendRedis || opts.Broker == BackendRedis {
		out["redis"] = health.NewRedisChecker(do.MustInvoke[*Redis](i).Client)
	}

	if opts.StoreBackend == BackendPostgres {
		out["postgres"] = health.NewPostgresChecker(do.MustInvoke[*Postgres](i).Pool)
	}

	return out
}
