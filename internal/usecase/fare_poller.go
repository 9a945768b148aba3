package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"FarePull/internal/domain/models"
	drepo "FarePull/internal/domain/repository"
	domsvc "FarePull/internal/domain/service"
	"FarePull/internal/services/alerts"
	"FarePull/pkg/cache"
	"FarePull/pkg/logger"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	JobPrices = "prices"

	lastCycleKey     = "cycle:last"
	lastSummaryTTL   = 7 * 24 * time.Hour
	finalizeTimeout  = 30 * time.Second
	defaultRetention = 500
)

// Waiter spaces out calls to the pricing source.
type Waiter interface {
	Wait(ctx context.Context) error
}

// PollerConfig is the search grid and the per-call policy of one price stream.
type PollerConfig struct {
	Origin      string
	Destination string
	Passengers  int
	Currency    string
	Pairs       []models.DatePair
	CallTimeout time.Duration
	// Retention is the number of entries kept per history stream after each cycle.
	Retention int
}

func (c PollerConfig) route() string { return c.Origin + " → " + c.Destination }

// PollerDeps are the collaborators of FarePoller. Itineraries, Events, Cache and
// Metrics may be nil.
type PollerDeps struct {
	Fetcher     drepo.FareFetcher
	Pacer       Waiter
	Retry       *RetryPolicy
	Combiner    domsvc.ItineraryCombiner
	Detector    domsvc.AnomalyDetector
	Classifier  *alerts.Classifier
	Dedup       *alerts.Deduplicator
	Scareware   *alerts.ScarewareTracker
	History     drepo.HistoryStore
	Itineraries drepo.ItineraryStore
	Notifier    drepo.Notifier
	Events      drepo.EventPublisher
	Cache       cache.Service
	Metrics     drepo.Metrics
}

// FarePoller runs one polling cycle over the configured date pairs.
type FarePoller struct {
	cfg PollerConfig
	d   PollerDeps
	l   *logger.Logger
	now func() time.Time
}

func NewFarePoller(cfg PollerConfig, deps PollerDeps, l *logger.Logger) (*FarePoller, error) {
	if deps.Fetcher == nil || deps.Combiner == nil || deps.Detector == nil || deps.Classifier == nil ||
		deps.Dedup == nil || deps.Scareware == nil || deps.History == nil || deps.Notifier == nil {
		return nil, errors.New("fare poller: missing required collaborator")
	}
	if cfg.Passengers < 1 {
		return nil, fmt.Errorf("fare poller: passengers must be >= 1, got %d", cfg.Passengers)
	}
	if cfg.Retention <= 0 {
		cfg.Retention = defaultRetention
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 30 * time.Second
	}
	if deps.Retry == nil {
		deps.Retry = &RetryPolicy{MaxAttempts: 1}
	}
	return &FarePoller{cfg: cfg, d: deps, l: l.With("fare_poller"), now: time.Now}, nil
}

// cycle accumulates what the per-pair steps find until the cycle closes.
type cycle struct {
	summary   models.CycleSummary
	combos    []models.RoundTripCombo
	active    []models.Anomaly
	promos    []models.Anomaly
	scareware []alerts.ScarewareWarning
}

// RunCycle always returns a summary. Cancellation is honoured between pairs;
// a fetch already in flight finishes or times out on its own.
func (p *FarePoller) RunCycle(ctx context.Context) models.CycleSummary {
	start := p.now()
	c := &cycle{summary: models.CycleSummary{ID: uuid.NewString(), StartedAt: start}}

	p.l.Info("cycle started",
		logger.String("cycle", c.summary.ID),
		logger.String("route", p.cfg.route()),
		logger.Int("pairs", len(p.cfg.Pairs)),
	)

	for _, pair := range p.cfg.Pairs {
		if ctx.Err() != nil {
			c.summary.Canceled = true
			break
		}
		if p.d.Pacer != nil {
			if err := p.d.Pacer.Wait(ctx); err != nil {
				c.summary.Canceled = true
				break
			}
		}
		p.runPair(ctx, pair, c)
	}

	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalizeTimeout)
	defer cancel()
	p.notify(fctx, c)
	c.summary.Duration = p.now().Sub(start)
	p.finish(fctx, c)
	return c.summary
}

func (p *FarePoller) runPair(ctx context.Context, pair models.DatePair, c *cycle) {
	c.summary.PairsAttempted++
	batch, err := p.fetch(ctx, pair)
	if err != nil {
		c.summary.PairsFailed++
		p.record(func(m drepo.Metrics) { m.RecordPair("failed"); m.RecordError("fetch") })
		p.l.Warn("pair skipped", logger.String("pair", pair.Label()), logger.Error(err))
		return
	}
	c.summary.PairsSucceeded++
	c.summary.ParseWarnings += batch.ParseWarnings
	p.record(func(m drepo.Metrics) { m.RecordPair("ok") })

	combos, anomalies := p.analyze(pair, batch.Records)
	c.summary.Combos += len(combos)
	c.combos = append(c.combos, combos...)

	p.persist(ctx, combos, anomalies)
	c.scareware = append(c.scareware, p.trackAvailability(ctx, pair, combos)...)
	p.triage(ctx, anomalies, c)

	p.l.Info("pair done",
		logger.String("pair", pair.Label()),
		logger.Int("records", len(batch.Records)),
		logger.Int("combos", len(combos)),
		logger.Int("anomalies", len(anomalies)),
	)
}

func (p *FarePoller) fetch(ctx context.Context, pair models.DatePair) (*models.FareBatch, error) {
	q := models.FareQuery{
		Origin:      p.cfg.Origin,
		Destination: p.cfg.Destination,
		Pair:        pair,
		Passengers:  p.cfg.Passengers,
		Currency:    p.cfg.Currency,
	}

	var batch *models.FareBatch
	start := time.Now()
	err := p.d.Retry.Do(ctx, func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.cfg.CallTimeout)
		defer cancel()
		b, err := p.d.Fetcher.FetchFares(callCtx, q)
		if err != nil {
			return err
		}
		if b == nil {
			b = &models.FareBatch{}
		}
		batch = b
		return nil
	}, func(attempt int, wait time.Duration, err error) {
		p.l.Warn("fetch failed, retrying",
			logger.String("pair", pair.Label()),
			logger.Int("attempt", attempt),
			logger.Duration("wait", wait),
			logger.Error(err),
		)
	})
	p.record(func(m drepo.Metrics) { m.RecordLatency("fetch", time.Since(start).Seconds()) })
	if err != nil {
		return nil, err
	}
	return batch, nil
}

// analyze runs the combiner and the detector side by side over the same records.
func (p *FarePoller) analyze(pair models.DatePair, records []models.FareRecord) ([]models.RoundTripCombo, []models.Anomaly) {
	var (
		combos    []models.RoundTripCombo
		anomalies []models.Anomaly
	)
	var g errgroup.Group
	g.Go(func() error {
		combos = p.d.Combiner.Combine(pair, records, p.cfg.Passengers)
		return nil
	})
	g.Go(func() error {
		anomalies = p.d.Detector.DetectAll(pair, records, p.cfg.Passengers)
		return nil
	})
	_ = g.Wait()
	return combos, anomalies
}

// persist is best-effort; failures are logged and counted, never fatal.
func (p *FarePoller) persist(ctx context.Context, combos []models.RoundTripCombo, anomalies []models.Anomaly) {
	if p.d.Itineraries != nil && len(combos) > 0 {
		if err := p.d.Itineraries.SaveItineraries(ctx, combos); err != nil {
			p.record(func(m drepo.Metrics) { m.RecordError("save_itineraries") })
			p.l.Error("save itineraries failed", logger.Int("combos", len(combos)), logger.Error(err))
		}
	}
	if p.d.Events == nil {
		return
	}
	if err := p.d.Events.PublishCombos(ctx, combos); err != nil {
		p.record(func(m drepo.Metrics) { m.RecordError("publish") })
		p.l.Error("publish combos failed", logger.Error(err))
	}
	if err := p.d.Events.PublishAnomalies(ctx, anomalies); err != nil {
		p.record(func(m drepo.Metrics) { m.RecordError("publish") })
		p.l.Error("publish anomalies failed", logger.Error(err))
	}
}

// trackAvailability samples every distinct leg of the pair once.
func (p *FarePoller) trackAvailability(ctx context.Context, pair models.DatePair, combos []models.RoundTripCombo) []alerts.ScarewareWarning {
	seen := make(map[string]struct{})
	var out []alerts.ScarewareWarning
	for _, combo := range combos {
		for _, leg := range []models.FareRecord{combo.Outbound, combo.Inbound} {
			key := alerts.AvailabilityKey(leg.FlightNumber, pair)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			if w, ok := p.d.Scareware.TrackLeg(ctx, pair, leg); ok {
				out = append(out, w)
			}
		}
	}
	return out
}

func (p *FarePoller) triage(ctx context.Context, anomalies []models.Anomaly, c *cycle) {
	for _, a := range anomalies {
		c.summary.AnomaliesFound++
		p.record(func(m drepo.Metrics) { m.RecordAnomaly(string(a.Kind), string(a.Severity)) })

		suppressed := p.d.Dedup.Observe(ctx, a)
		if suppressed {
			c.summary.AnomaliesSuppressed++
			continue
		}
		switch {
		case alerts.SeverityNotifies(a.Severity):
			c.active = append(c.active, a)
		case a.Kind == models.KindPromoDetected:
			c.promos = append(c.promos, a)
		default:
			p.l.Info("anomaly logged",
				logger.String("kind", string(a.Kind)),
				logger.String("severity", string(a.Severity)),
				logger.String("flight", a.FlightNumber),
				logger.String("pair", a.Pair.Label()),
			)
		}
	}
}

// notify sends at most one message per category for the whole cycle. A canceled
// cycle still ranks its combos but sends nothing.
func (p *FarePoller) notify(ctx context.Context, c *cycle) {
	at := p.now()

	if best, ok := bestCombo(c.combos); ok {
		tier := p.d.Classifier.Classify(best.Total)
		c.summary.Best = &best
		c.summary.BestTier = tier
		p.record(func(m drepo.Metrics) { m.RecordBestTotal(p.cfg.route(), best.Total.InexactFloat64()) })
		p.l.Info("best itinerary",
			logger.String("pair", best.Pair.Label()),
			logger.Decimal("total", best.Total),
			logger.String("tier", string(tier)),
		)
		if alerts.TierNotifies(tier) {
			msg := alerts.ComboMessage(p.cfg.route(), best, tier, p.d.Classifier.Thresholds(), at)
			p.send(ctx, c, msg, alerts.TierSilent(tier))
		}
	}

	if len(c.active) > 0 {
		sort.SliceStable(c.active, func(i, j int) bool {
			return c.active[i].Severity.Weight() > c.active[j].Severity.Weight()
		})
		p.send(ctx, c, alerts.AnomalyMessage(c.active, at), false)
	}
	if len(c.promos) > 0 {
		p.send(ctx, c, alerts.PromoMessage(c.promos, at), true)
	}
	if len(c.scareware) > 0 {
		c.summary.ScarewareWarnings = len(c.scareware)
		p.send(ctx, c, alerts.ScarewareMessage(c.scareware), true)
	}
}

func (p *FarePoller) send(ctx context.Context, c *cycle, text string, silent bool) {
	if c.summary.Canceled {
		p.l.Debug("cycle canceled, alert dropped", logger.Bool("silent", silent))
		return
	}
	if p.d.Notifier.Notify(ctx, text, silent) {
		c.summary.AlertsSent++
		p.record(func(m drepo.Metrics) { m.RecordAlert("sent") })
		return
	}
	p.record(func(m drepo.Metrics) { m.RecordAlert("failed") })
	p.l.Warn("alert not delivered", logger.Bool("silent", silent))
}

func (p *FarePoller) finish(ctx context.Context, c *cycle) {
	for _, stream := range []models.Stream{models.StreamAnomalies, models.StreamAvailability} {
		if err := p.d.History.Trim(ctx, stream, p.cfg.Retention); err != nil {
			p.l.Error("trim history failed", logger.String("stream", string(stream)), logger.Error(err))
		}
	}
	if p.d.Events != nil {
		if err := p.d.Events.PublishSummary(ctx, c.summary); err != nil {
			p.l.Error("publish summary failed", logger.Error(err))
		}
	}
	if p.d.Cache != nil {
		if err := p.d.Cache.Set(ctx, lastCycleKey, c.summary, lastSummaryTTL); err != nil {
			p.l.Warn("cache summary failed", logger.Error(err))
		}
	}
	p.record(func(m drepo.Metrics) { m.RecordCycle(JobPrices, c.summary.Duration) })

	p.l.Info("cycle finished",
		logger.String("cycle", c.summary.ID),
		logger.Int("attempted", c.summary.PairsAttempted),
		logger.Int("failed", c.summary.PairsFailed),
		logger.Int("combos", c.summary.Combos),
		logger.Int("anomalies", c.summary.AnomaliesFound),
		logger.Int("suppressed", c.summary.AnomaliesSuppressed),
		logger.Int("alerts", c.summary.AlertsSent),
		logger.Bool("canceled", c.summary.Canceled),
		logger.Duration("took", c.summary.Duration),
	)
}

// LastSummary returns the most recent cycle summary, if one was cached.
func (p *FarePoller) LastSummary(ctx context.Context) (*models.CycleSummary, error) {
	if p.d.Cache == nil {
		return nil, cache.ErrCacheMiss
	}
	var s models.CycleSummary
	if err := p.d.Cache.Get(ctx, lastCycleKey, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Classifier exposes the tier bounds the poller grades with.
func (p *FarePoller) Classifier() *alerts.Classifier { return p.d.Classifier }

func (p *FarePoller) record(fn func(drepo.Metrics)) {
	if p.d.Metrics != nil {
		fn(p.d.Metrics)
	}
}

// bestCombo picks the cheapest total; ties keep the first seen.
func bestCombo(combos []models.RoundTripCombo) (models.RoundTripCombo, bool) {
	if len(combos) == 0 {
		return models.RoundTripCombo{}, false
	}
	best := combos[0]
	for _, c := range combos[1:] {
		if c.Total.LessThan(best.Total) {
			best = c
		}
	}
	return best, true
}
