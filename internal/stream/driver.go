// Package stream drives the click/checkout event sessions.
package stream

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/yourname/commerce-datagen/internal/event"
	"github.com/yourname/commerce-datagen/internal/roll"
)

// Publisher sends one event to a topic, keyed for partitioning.
type Publisher interface {
	Publish(ctx context.Context, topic, key string, v any) error
}

type Options struct {
	ClicksTopic       string
	CheckoutsTopic    string
	MaxUserID         int
	ContinueThreshold int // a roll >= threshold extends the chain
	MaxChain          int // 0 = uncapped
}

type Stats struct {
	Sessions     int
	Clicks       int
	Checkouts    int
	LongestChain int
}

type Driver struct {
	pub    Publisher
	gen    *event.Generator
	roller roll.Roller
	userID func() int
	opts   Options
	log    *zap.Logger
}

// NewDriver picks users with userID, which must return values in [1, opts.MaxUserID].
func NewDriver(pub Publisher, gen *event.Generator, roller roll.Roller, userID func() int, opts Options, log *zap.Logger) *Driver {
	return &Driver{pub: pub, gen: gen, roller: roller, userID: userID, opts: opts, log: log.With(zap.String("component", "stream"))}
}

// Run emits n sessions. Each starts with a click for a random user, then
// repeats a click/checkout pair on the same product while the roll allows.
func (d *Driver) Run(ctx context.Context, n int) (Stats, error) {
	var st Stats
	for i := 0; i < n; i++ {
		chain, err := d.session(ctx, &st)
		if err != nil {
			return st, fmt.Errorf("session %d: %w", i, err)
		}
		st.Sessions++
		if chain > st.LongestChain {
			st.LongestChain = chain
		}
	}
	return st, nil
}

func (d *Driver) session(ctx context.Context, st *Stats) (int, error) {
	userID := d.userID()
	click := d.gen.Click(userID, "")
	if err := d.publish(ctx, d.opts.ClicksTopic, click.ProductID, click); err != nil {
		return 0, err
	}
	st.Clicks++

	chain := 0
	for d.opts.MaxChain == 0 || chain < d.opts.MaxChain {
		if d.roller.Roll() < d.opts.ContinueThreshold {
			break
		}
		click = d.gen.Click(click.UserID, click.ProductID)
		checkout := d.gen.Checkout(click.UserID, click.ProductID)
		if err := d.publish(ctx, d.opts.ClicksTopic, click.ProductID, click); err != nil {
			return chain, err
		}
		st.Clicks++
		if err := d.publish(ctx, d.opts.CheckoutsTopic, checkout.ProductID, checkout); err != nil {
			return chain, err
		}
		st.Checkouts++
		chain++
	}
	if d.opts.MaxChain > 0 && chain == d.opts.MaxChain {
		d.log.Debug("chain capped", zap.Int("maxChain", d.opts.MaxChain), zap.String("productId", click.ProductID))
	}
	return chain, nil
}

func (d *Driver) publish(ctx context.Context, topic, key string, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return d.pub.Publish(ctx, topic, key, v)
}
