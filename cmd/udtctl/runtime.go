package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"udtkit/cache"
	"udtkit/codegen"
	"udtkit/config"
	"udtkit/data/db/basic"
	"udtkit/engine"
	"udtkit/errors"
	"udtkit/examples/catalog"
	"udtkit/invalidate"
	"udtkit/logging"
	"udtkit/messaging"
	"udtkit/messaging/transport/memory"
	"udtkit/messaging/transport/natsjetstream"
	"udtkit/messaging/transport/redisstreams"
	"udtkit/meta"
	"udtkit/reference"
	"udtkit/store"
	"udtkit/store/redisseq"
	"udtkit/store/sqlstore"
)

// runtime holds everything a command needs.
type runtime struct {
	cfg      *config.Config
	logger   logging.Logger
	db       *basic.DB
	store    *sqlstore.Store
	registry *meta.Registry
	repo     store.Repository
	rows     *cache.Cache[string, store.Row]

	items      *engine.Engine[catalog.Item, *catalog.Item]
	warehouses *engine.Engine[catalog.Warehouse, *catalog.Warehouse]
	notes      *engine.Engine[catalog.Note, *catalog.Note]

	closers []func() error
}

func newRuntime(ctx context.Context, path string) (_ *runtime, err error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := cfg.Logger()
	if err != nil {
		return nil, err
	}
	logging.SetLogger(logger)

	rt := &runtime{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			_ = rt.Close()
		}
	}()

	rt.db, err = basic.Open(cfg.Database.DB())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	rt.closers = append(rt.closers, rt.db.Close)
	rt.store = sqlstore.New(rt.db, sqlstore.WithLogger(logger))

	rt.registry = meta.NewRegistry(meta.WithLogger(logger))
	if err = rt.registry.Preload(ctx, catalog.Loaders()...); err != nil {
		return nil, fmt.Errorf("register models: %w", err)
	}

	if rt.repo, err = rt.repository(); err != nil {
		return nil, err
	}
	random, err := codegen.NewSource(cfg.Keys.Random, cfg.Keys.DatacenterID, cfg.Keys.WorkerID)
	if err != nil {
		return nil, err
	}
	rt.rows = cache.New[string, store.Row](cache.Config{
		Name:    "rows",
		MaxSize: cfg.Invalidation.CacheSize,
		TTL:     cfg.Invalidation.CacheTTL,
	})
	invalidator, err := rt.invalidator(ctx)
	if err != nil {
		return nil, err
	}

	opts := []engine.Option{
		engine.WithRepository(rt.repo),
		engine.WithRandomSource(random),
		engine.WithUser(cfg.User),
		engine.WithLogger(logger),
		engine.WithInvalidator(invalidator),
		engine.WithRowCache(rt.rows),
	}
	if rt.items, err = engine.New[catalog.Item](rt.registry, rt.store, opts...); err != nil {
		return nil, err
	}
	if rt.warehouses, err = engine.New[catalog.Warehouse](rt.registry, rt.store, opts...); err != nil {
		return nil, err
	}
	if rt.notes, err = engine.New[catalog.Note](rt.registry, rt.store, opts...); err != nil {
		return nil, err
	}
	return rt, nil
}

// repository picks the sequence backend and layers reference catalogs on top.
func (rt *runtime) repository() (store.Repository, error) {
	var repo store.Repository = rt.store
	if strings.EqualFold(rt.cfg.Keys.Sequence, "redis") {
		client := redis.NewClient(&redis.Options{
			Addr:     rt.cfg.Redis.Addr,
			Username: rt.cfg.Redis.Username,
			Password: rt.cfg.Redis.Password,
			DB:       rt.cfg.Redis.DB,
		})
		rt.closers = append(rt.closers, client.Close)
		repo = redisseq.New(client, rt.store,
			redisseq.WithPrefix(rt.cfg.Redis.KeyPrefix),
			redisseq.WithSeeder(rt.store.MaxSerial),
			redisseq.WithLogger(rt.logger))
	}

	if rt.cfg.Reference.Dir == "" {
		return repo, nil
	}
	catalogs, err := reference.LoadCatalogs(rt.cfg.Reference.Dir)
	if err != nil {
		return nil, fmt.Errorf("load reference catalogs: %w", err)
	}
	return reference.New(catalogs, repo), nil
}

// invalidator starts the configured transport; every transport also feeds
// this process's row cache.
func (rt *runtime) invalidator(ctx context.Context) (invalidate.Invalidator, error) {
	var transport messaging.Transport
	switch strings.ToLower(rt.cfg.Invalidation.Transport) {
	case "", "none":
		return invalidate.Nop{}, nil
	case "memory":
		transport = memory.New(0, 1, rt.logger)
	case "redis":
		transport = redisstreams.NewTransport(redisstreams.Config{
			Addr:     rt.cfg.Redis.Addr,
			Username: rt.cfg.Redis.Username,
			Password: rt.cfg.Redis.Password,
			DB:       rt.cfg.Redis.DB,
			MaxLen:   10000,
			Logger:   rt.logger,
		})
	case "nats":
		transport = natsjetstream.NewTransport(natsjetstream.Config{
			URL:    rt.cfg.Invalidation.NatsURL,
			Stream: rt.cfg.Invalidation.Stream,
			Logger: rt.logger,
		})
	default:
		return nil, fmt.Errorf("unknown invalidation transport %q", rt.cfg.Invalidation.Transport)
	}

	if err := transport.Subscribe(invalidate.MessageType, invalidate.CacheHandler(rt.rows, rt.logger)); err != nil {
		return nil, fmt.Errorf("subscribe invalidations: %w", err)
	}
	if err := transport.Start(ctx); err != nil {
		return nil, fmt.Errorf("start %s transport: %w", rt.cfg.Invalidation.Transport, err)
	}
	rt.closers = append(rt.closers, transport.Close)

	publisher := invalidate.NewPublisher(transport,
		invalidate.WithTimeout(rt.cfg.Invalidation.Timeout),
		invalidate.WithLogger(rt.logger))
	rt.closers = append(rt.closers, func() error {
		publisher.Wait()
		return nil
	})
	return publisher, nil
}

// Close releases resources in reverse order of acquisition.
func (rt *runtime) Close() error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	rt.closers = nil
	return errors.Join(errs...)
}
