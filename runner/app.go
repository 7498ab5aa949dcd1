package runner

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/machimap/machimap/distance"
	"github.com/machimap/machimap/geoloc"
	"github.com/machimap/machimap/kvstore"
	"github.com/machimap/machimap/pipeline"
	"github.com/machimap/machimap/search"
	"github.com/machimap/machimap/venue"
	"github.com/machimap/machimap/web"
)

// App is the assembled process: pipelines, caches, engines and HTTP surface.
type App struct {
	cfg    *Config
	log    *zap.Logger
	store  *kvstore.Store
	pipe   *pipeline.Pipeline
	events *pipeline.Pipeline
	dist   *distance.Engine
	sess   *geoloc.Session
}

// NewApp builds every component from cfg. The cache tier prefers Redis when
// configured, then the SQLite file; both failing still yields a working app
// on the in-memory fallback.
func NewApp(ctx context.Context, cfg *Config, log *zap.Logger) (*App, error) {
	backend := openBackend(ctx, cfg, log)
	store := kvstore.New(backend, log)

	resolver := venue.ImageResolver{ProxyBase: cfg.ImageProxyBase}

	pipe := pipeline.New(pipeline.Config{
		DataURL:  cfg.DataURL,
		Store:    store,
		Resolver: resolver,
		CacheTTL: cfg.CacheTTL,
		Logger:   log,
	})

	// the event listing is session-scoped: its cache lives only as long as
	// the process, never in the durable tier
	var events *pipeline.Pipeline
	if cfg.EventDataURL != "" {
		events = pipeline.New(pipeline.Config{
			DataURL:  cfg.EventDataURL,
			Store:    kvstore.New(nil, log),
			Resolver: resolver,
			CacheKey: "eventListCache",
			CacheTTL: cfg.CacheTTL,
			Logger:   log,
		})
	}

	sess := geoloc.NewSession(positionSource(cfg), store, log)

	return &App{
		cfg:    cfg,
		log:    log,
		store:  store,
		pipe:   pipe,
		events: events,
		dist:   distance.NewEngine(log),
		sess:   sess,
	}, nil
}

// Run loads the dataset and serves HTTP until ctx is cancelled. A first-load
// failure with no cache is fatal; afterwards the pipeline degrades instead
// of exiting.
func (a *App) Run(ctx context.Context) error {
	a.sess.Start(ctx)

	if err := a.pipe.Load(ctx); err != nil {
		return fmt.Errorf("initial dataset load: %w", err)
	}

	// a failed event load leaves the endpoint empty but never kills the
	// venue surface
	if a.events != nil {
		if err := a.events.Load(ctx); err != nil {
			a.log.Warn("event dataset load failed", zap.Error(err))
		}
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return web.Start(ctx, web.Config{
			Addr:      a.cfg.Addr,
			Debug:     a.cfg.Debug,
			Pipeline:  a.pipe,
			Events:    a.events,
			Distances: a.dist,
			Session:   a.sess,
			Search:    search.NewEngine(),
			Logger:    a.log,
		})
	})

	return g.Wait()
}

// Close releases the cache backends.
func (a *App) Close(context.Context) error {
	return a.store.Close()
}

func openBackend(ctx context.Context, cfg *Config, log *zap.Logger) kvstore.Backend {
	if cfg.RedisAddr != "" {
		backend, err := kvstore.NewRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err == nil {
			return backend
		}

		log.Warn("redis cache unavailable, trying sqlite", zap.Error(err))
	}

	backend, err := kvstore.NewSQLite(cfg.CachePath)
	if err != nil {
		log.Warn("sqlite cache unavailable, using in-memory store only", zap.Error(err))

		return nil
	}

	return backend
}

func positionSource(cfg *Config) geoloc.Source {
	raw := strings.TrimSpace(cfg.Position)
	if raw == "" {
		return geoloc.NoSource()
	}

	parts := strings.Split(raw, ",")
	if len(parts) != 2 {
		return geoloc.NoSource()
	}

	lng, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lat, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)

	if err1 != nil || err2 != nil {
		return geoloc.NoSource()
	}

	return geoloc.StaticSource(venue.Position{lng, lat})
}
