package di

import (
	"context"
	"fmt"
	"time"

	drepo "FarePull/internal/domain/repository"
	"FarePull/internal/handler/api"
	internalrepo "FarePull/internal/repository"
	"FarePull/internal/service/flagfeed"
	"FarePull/internal/service/ratelimit"
	"FarePull/internal/service/source"
	"FarePull/internal/service/telegram"
	"FarePull/internal/services/alerts"
	"FarePull/internal/services/fares"
	"FarePull/internal/services/flags"
	"FarePull/internal/usecase"
	"FarePull/pkg/cache"
	pkgch "FarePull/pkg/clickhouse"
	"FarePull/pkg/config"
	xhttp "FarePull/pkg/http"
	pkgkafka "FarePull/pkg/kafka"
	"FarePull/pkg/logger"
	"FarePull/pkg/metrics"
	"FarePull/pkg/scheduler"
	"FarePull/pkg/server"
	"FarePull/pkg/sqlite"

	"github.com/redis/go-redis/v9"
)

const schemaTimeout = 10 * time.Second

func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	l, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

func ProvideMetrics() drepo.Metrics {
	return metrics.New()
}

// ProvideLockCache backs job locks and cached summaries. Redis lets several
// replicas share one schedule; otherwise locks are process-local.
func ProvideLockCache(cfg *config.Config) (cache.Service, error) {
	if !cfg.Redis.Enabled {
		return cache.NewMemoryCache(), nil
	}
	c, err := cache.NewRedisCache(
		cache.WithRedisHost(cfg.Redis.Host),
		cache.WithRedisPort(cfg.Redis.Port),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
		cache.WithRedisPrefix(cfg.Redis.Prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return c, nil
}

func ProvideHistoryStore(cfg *config.Config, l *logger.Logger) (drepo.HistoryStore, error) {
	switch cfg.History.Backend {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), schemaTimeout)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("redis history: %w", err)
		}
		return internalrepo.NewRedisHistory(client, cfg.Redis.Prefix, l), nil
	default:
		db, err := sqlite.Open(cfg.History.Path, sqlite.WithProfile(sqlite.ProfileLedger))
		if err != nil {
			return nil, fmt.Errorf("sqlite history: %w", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), schemaTimeout)
		defer cancel()
		store, err := internalrepo.NewSQLiteHistory(ctx, db, l)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlite history: %w", err)
		}
		return store, nil
	}
}

// ProvideClickHouseClient returns nil when ClickHouse is disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), schemaTimeout)
	defer cancel()
	if err := client.InitSchema(ctx, internalrepo.ItinerarySchema(cfg.ClickHouse.Database)); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

func ProvideItineraryStore(ch *pkgch.Client, l *logger.Logger) drepo.ItineraryStore {
	if ch == nil {
		return internalrepo.NoopItineraries{}
	}
	return internalrepo.NewClickHouseItineraries(ch, l)
}

func ProvideEventPublisher(cfg *config.Config) (drepo.EventPublisher, error) {
	if !cfg.Kafka.Enabled {
		return internalrepo.NoopEvents{}, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithClientID(cfg.Kafka.ClientID),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithMaxAttempts(cfg.Kafka.MaxAttempts),
		pkgkafka.WithBatching(cfg.Kafka.BatchSize, cfg.Kafka.BatchTimeout),
		pkgkafka.WithWriteTimeout(cfg.Kafka.WriteTimeout),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return internalrepo.NewKafkaEvents(producer, internalrepo.Topics{
		Anomalies: cfg.Kafka.Topics.Anomalies,
		Combos:    cfg.Kafka.Topics.Combos,
		Summaries: cfg.Kafka.Topics.Summaries,
		Logs:      cfg.Kafka.Topics.Logs,
	}), nil
}

func ProvideNotifier(cfg *config.Config, l *logger.Logger) drepo.Notifier {
	n := telegram.New(telegram.Config{
		Token:   cfg.Telegram.Token,
		ChatID:  cfg.Telegram.ChatID,
		APIBase: cfg.Telegram.APIBase,
		Timeout: cfg.Telegram.Timeout,
	}, l)
	if !n.Enabled() {
		l.Warn("telegram credentials missing, alerts will only be logged")
	}
	return n
}

func ProvideFareFetcher(cfg *config.Config, l *logger.Logger) drepo.FareFetcher {
	return source.New(source.Config{
		URL:      cfg.Source.URL,
		APIKey:   cfg.Source.APIKey,
		Currency: cfg.Search.Currency,
		Headers:  cfg.Source.Headers,
		Timeout:  cfg.Source.Timeout,
	}, l)
}

func ProvideFlagSource(cfg *config.Config, l *logger.Logger) drepo.FlagSource {
	return flagfeed.New(flagfeed.Config{Endpoints: cfg.Flags.Endpoints, Timeout: cfg.Flags.Timeout}, l)
}

func ProvideClassifier(cfg *config.Config) (*alerts.Classifier, error) {
	return alerts.NewClassifier(cfg.Thresholds.Model())
}

func ProvideFarePoller(
	cfg *config.Config,
	fetcher drepo.FareFetcher,
	history drepo.HistoryStore,
	itineraries drepo.ItineraryStore,
	notifier drepo.Notifier,
	events drepo.EventPublisher,
	c cache.Service,
	m drepo.Metrics,
	classifier *alerts.Classifier,
	l *logger.Logger,
) (*usecase.FarePoller, error) {
	return usecase.NewFarePoller(usecase.PollerConfig{
		Origin:      cfg.Search.Origin,
		Destination: cfg.Search.Destination,
		Passengers:  cfg.Search.Passengers,
		Currency:    cfg.Search.Currency,
		Pairs:       cfg.Search.Pairs(),
		CallTimeout: cfg.Poller.CallTimeout,
		Retention:   cfg.History.Retention,
	}, usecase.PollerDeps{
		Fetcher: fetcher,
		Pacer:   ratelimit.NewPacer(cfg.Poller.Delay, cfg.Poller.Jitter),
		Retry: &usecase.RetryPolicy{
			MaxAttempts: cfg.Poller.MaxAttempts,
			BaseDelay:   cfg.Poller.BackoffBase,
			MaxDelay:    cfg.Poller.BackoffMax,
			Retryable:   source.IsRetryable,
		},
		Combiner:   fares.NewCombiner(),
		Detector:   fares.NewDetector(fares.DefaultHierarchy().With(cfg.Hierarchy.Types, cfg.Hierarchy.Classes)),
		Classifier: classifier,
		Dedup:      alerts.NewDeduplicator(history, l, alerts.WithCooldown(cfg.Alerts.Cooldown)),
		Scareware: alerts.NewScarewareTracker(history, l, alerts.WithScarewareRule(
			cfg.Alerts.Scareware.LowSeats, cfg.Alerts.Scareware.MinSamples, cfg.Alerts.Scareware.MinAge)),
		History:     history,
		Itineraries: itineraries,
		Notifier:    notifier,
		Events:      events,
		Cache:       c,
		Metrics:     m,
	}, l)
}

func ProvideFlagWatcher(
	cfg *config.Config,
	src drepo.FlagSource,
	history drepo.HistoryStore,
	notifier drepo.Notifier,
	c cache.Service,
	m drepo.Metrics,
	l *logger.Logger,
) *usecase.FlagWatcher {
	return usecase.NewFlagWatcher(src, history, notifier, flags.NewGrader(cfg.Flags.Keywords), c, m, cfg.History.Retention, l)
}

// ProvideScheduler registers the price job and, when enabled, the flag job.
func ProvideScheduler(
	cfg *config.Config,
	locks cache.Service,
	poller *usecase.FarePoller,
	watcher *usecase.FlagWatcher,
	l *logger.Logger,
) (*scheduler.Scheduler, error) {
	s := scheduler.New(locks, l, scheduler.WithLockTTL(cfg.Schedule.LockTTL))
	if err := s.AddJob(cfg.Schedule.Prices, usecase.PriceJob{Poller: poller}); err != nil {
		return nil, err
	}
	if cfg.Flags.Enabled {
		if err := s.AddJob(cfg.Schedule.Flags, usecase.FlagJob{Watcher: watcher}); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func ProvideStatusHandler(
	l *logger.Logger,
	poller *usecase.FarePoller,
	watcher *usecase.FlagWatcher,
	sched *scheduler.Scheduler,
	history drepo.HistoryStore,
	itineraries drepo.ItineraryStore,
	classifier *alerts.Classifier,
) *api.StatusEchoHandler {
	return api.NewStatusEchoHandler(l, poller, watcher, sched, history, itineraries, classifier, ratelimit.New())
}

// ProvideApp also attaches the log digest collector when Kafka can carry it.
func ProvideApp(
	cfg *config.Config,
	l *logger.Logger,
	sched *scheduler.Scheduler,
	handler *api.StatusEchoHandler,
	history drepo.HistoryStore,
	itineraries drepo.ItineraryStore,
	events drepo.EventPublisher,
	locks cache.Service,
	ch *pkgch.Client,
) *server.App {
	if cfg.Log.Collector.Enabled {
		if pub, ok := events.(logger.Publisher); ok {
			l.AddCollector(&logger.CollectionConfig{
				Service:        "farepull",
				TimeInterval:   cfg.Log.Collector.Interval,
				CountThreshold: cfg.Log.Collector.Threshold,
				Topic:          cfg.Kafka.Topics.Logs,
				Publisher:      pub,
			})
		} else {
			l.Warn("log collector needs kafka, skipping")
		}
	}

	closers := []server.NamedCloser{
		{Name: "events", Closer: events},
		{Name: "itineraries", Closer: itineraries},
	}
	if ch != nil {
		closers = append(closers, server.NamedCloser{Name: "clickhouse", Closer: ch})
	}
	closers = append(closers,
		server.NamedCloser{Name: "history", Closer: history},
		server.NamedCloser{Name: "locks", Closer: locks},
	)

	l.Info("engine configured",
		logger.String("route", cfg.Search.Route()),
		logger.Int("pairs", len(cfg.Search.Pairs())),
		logger.Int("passengers", cfg.Search.Passengers),
		logger.String("history", cfg.History.Backend),
		logger.Bool("kafka", cfg.Kafka.Enabled),
		logger.Bool("clickhouse", cfg.ClickHouse.Enabled),
	)
	startup := []string{usecase.JobPrices}
	if cfg.Flags.Enabled {
		startup = append(startup, usecase.JobFlags)
	}
	return server.New(cfg, l, sched, []xhttp.Handler{handler}, closers, startup)
}
