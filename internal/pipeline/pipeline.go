package pipeline

import (
	"context"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"go.uber.org/zap"

	"github.com/yourname/commerce-datagen/internal/config"
	"github.com/yourname/commerce-datagen/internal/event"
	"github.com/yourname/commerce-datagen/internal/filter"
	"github.com/yourname/commerce-datagen/internal/kafka"
	"github.com/yourname/commerce-datagen/internal/retry"
	"github.com/yourname/commerce-datagen/internal/roll"
	"github.com/yourname/commerce-datagen/internal/seed"
	"github.com/yourname/commerce-datagen/internal/store"
	"github.com/yourname/commerce-datagen/internal/stream"
)

const (
	StageSeed   = "seed"
	StageStream = "stream"
)

// PublishCloser is the publisher held for the duration of the stream stage.
type PublishCloser interface {
	stream.Publisher
	Close() error
}

// Openers acquire the stage resources. Each is called once per stage and the
// result is closed when the stage returns.
type Openers struct {
	Store     func(ctx context.Context) (store.SeedStore, error)
	Publisher func(ctx context.Context) (PublishCloser, error)
}

// Observer provides callbacks for stage events.
type Observer interface {
	OnStart(stage string)
	OnError(stage string, err error)
	OnStop(stage string, summary []zap.Field)
}

type Pipeline struct {
	cfg   *config.Config
	open  Openers
	obs   Observer
	faker *gofakeit.Faker
	now   func() time.Time
	log   *zap.Logger
}

// New wires the real Postgres and Kafka connectors from cfg.
func New(cfg *config.Config, log *zap.Logger) (*Pipeline, error) {
	f, err := filter.NewCEL(cfg.Filter.Expression, cfg.Filter.Enabled)
	if err != nil {
		return nil, err
	}
	policy := retry.FromConfig(cfg.Retry)
	open := Openers{
		Store: func(ctx context.Context) (store.SeedStore, error) {
			return store.Connect(ctx, &cfg.Postgres, policy, log)
		},
		Publisher: func(ctx context.Context) (PublishCloser, error) {
			return kafka.Connect(ctx, &cfg.Kafka, policy, log, f)
		},
	}
	return NewWithOpeners(cfg, open, NewLogObserver(log), log), nil
}

// NewWithOpeners constructs a Pipeline over custom resource openers.
func NewWithOpeners(cfg *config.Config, open Openers, obs Observer, log *zap.Logger) *Pipeline {
	return &Pipeline{
		cfg:   cfg,
		open:  open,
		obs:   obs,
		faker: gofakeit.New(cfg.Generator.Seed),
		now:   time.Now,
		log:   log,
	}
}

// Run seeds users rows, then emits clicks sessions.
func (p *Pipeline) Run(ctx context.Context, users, clicks int) error {
	if _, err := p.Seed(ctx, users); err != nil {
		return err
	}
	_, err := p.Stream(ctx, clicks)
	return err
}

// Seed runs the seed stage on a freshly acquired store.
func (p *Pipeline) Seed(ctx context.Context, n int) (st seed.Stats, err error) {
	p.obs.OnStart(StageSeed)
	defer func() { p.finish(StageSeed, err, zap.Int("users", st.Users), zap.Int("products", st.Products), zap.Int("updates", st.Updates)) }()

	s, err := p.open.Store(ctx)
	if err != nil {
		return st, err
	}
	defer func() {
		if cerr := s.Close(); cerr != nil {
			p.log.Warn("close store", zap.Error(cerr))
		}
	}()

	w := seed.NewWriter(s, p.faker, roll.New(p.faker), p.cfg.Generator.UpdateThreshold, p.log)
	return w.Run(ctx, n)
}

// Stream runs the event stage on a freshly acquired publisher.
func (p *Pipeline) Stream(ctx context.Context, n int) (st stream.Stats, err error) {
	p.obs.OnStart(StageStream)
	defer func() {
		p.finish(StageStream, err, zap.Int("sessions", st.Sessions), zap.Int("clicks", st.Clicks), zap.Int("checkouts", st.Checkouts), zap.Int("longestChain", st.LongestChain))
	}()

	pub, err := p.open.Publisher(ctx)
	if err != nil {
		return st, err
	}
	defer func() {
		if cerr := pub.Close(); cerr != nil {
			p.log.Warn("close publisher", zap.Error(cerr))
		}
	}()

	g := p.cfg.Generator
	opts := stream.Options{
		ClicksTopic:       p.cfg.Kafka.ClicksTopic,
		CheckoutsTopic:    p.cfg.Kafka.CheckoutsTopic,
		MaxUserID:         g.MaxUserID,
		ContinueThreshold: g.ContinueThreshold,
		MaxChain:          g.MaxChain,
	}
	gen := event.NewGeneratorWith(p.faker, p.now)
	userID := func() int { return p.faker.Number(1, g.MaxUserID) }
	d := stream.NewDriver(pub, gen, roll.New(p.faker), userID, opts, p.log)
	return d.Run(ctx, n)
}

func (p *Pipeline) finish(stage string, err error, summary ...zap.Field) {
	if err != nil {
		p.obs.OnError(stage, err)
	}
	p.obs.OnStop(stage, summary)
}
