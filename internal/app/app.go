package app

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/hibiken/asynq"
	log "github.com/sirupsen/logrus"

	"histreader/internal/config"
	"histreader/internal/services"
	"histreader/internal/store"
	"histreader/internal/store/local"
	"histreader/internal/store/primary"
	"histreader/internal/wiki"
)

type App struct {
	Config *config.Config

	Store     store.Store
	JobClient store.JobClient // nil unless redis.address is set
	Wiki      *wiki.Client

	// --- Initialized Services ---
	Selector          *services.TopicSelector
	Fetcher           *services.ArticleFetcher
	ReaderService     *services.ReaderService
	PreferenceService *services.PreferenceService
	HistoryService    *services.HistoryService
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	app := &App{Config: cfg}

	if err := app.initStore(ctx); err != nil {
		return nil, err
	}
	if err := app.initJobClient(); err != nil {
		app.Close()
		return nil, err
	}
	app.initWikiClient()
	app.initCoreServices()

	log.Debug("Application initialization complete.")
	return app, nil
}

// --- Private Helper Methods ---

func (a *App) initStore(ctx context.Context) error {
	db := a.Config.Database
	switch db.Driver {
	case "postgres":
		ps, err := primary.NewPrimaryStore(ctx, db.DSN)
		if err != nil {
			return fmt.Errorf("init primary store: %w", err)
		}
		a.Store = ps
	case "sqlite", "":
		ls, err := local.NewDB(db.DSN)
		if err != nil {
			return fmt.Errorf("init local store: %w", err)
		}
		a.Store = ls
	default:
		return fmt.Errorf("unsupported database driver %q", db.Driver)
	}
	log.WithField("driver", db.Driver).Debug("store initialized")
	return nil
}

func (a *App) initJobClient() error {
	r := a.Config.Redis
	if r.Address == "" {
		log.Debug("redis.address not set, background jobs disabled")
		return nil
	}
	jc, err := store.NewAsynqJobClient(a.RedisOpts(), a.Store)
	if err != nil {
		return fmt.Errorf("init job client: %w", err)
	}
	a.JobClient = jc
	return nil
}

func (a *App) initWikiClient() {
	w := a.Config.Wiki
	a.Wiki = wiki.NewClient(wiki.Options{
		APIURL:          w.APIURL,
		Timeout:         w.Timeout,
		UserAgent:       w.UserAgent,
		FollowRedirects: w.FollowRedirects,
	})
}

func (a *App) initCoreServices() {
	cfg := a.Config
	seed := cfg.Selector.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	// The selector is only driven from ReaderService, which serializes fetches,
	// so one unsynchronized source is enough.
	rnd := rand.New(rand.NewSource(seed))

	a.Selector = services.NewTopicSelector(a.Wiki, rnd, services.SelectorConfigFrom(cfg))
	a.Fetcher = services.NewArticleFetcher(a.Selector, a.Wiki, services.RetryStrategyFrom(cfg), services.FetcherConfigFrom(cfg))
	a.ReaderService = services.NewReaderService(services.ReaderServiceDeps{
		Source:  a.Fetcher,
		History: a.Store,
	})
	a.PreferenceService = services.NewPreferenceService(a.Store)
	a.HistoryService = services.NewHistoryService(a.Store)
}

// RedisOpts returns the asynq connection options from config.
func (a *App) RedisOpts() asynq.RedisClientOpt {
	r := a.Config.Redis
	return asynq.RedisClientOpt{Addr: r.Address, Password: r.Password, DB: r.DB}
}

// Close releases the job client and the store.
func (a *App) Close() {
	if a.JobClient != nil {
		if err := a.JobClient.Close(); err != nil {
			log.Warnf("Error closing job client: %v", err)
		}
	}
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			log.Warnf("Error closing store: %v", err)
		}
	}
}
