// Package seed fills the users and products tables with fake rows before the
// event stream starts.
package seed

import (
	"context"
	"fmt"

	"github.com/brianvoe/gofakeit/v7"
	"go.uber.org/zap"

	"github.com/yourname/commerce-datagen/internal/roll"
	"github.com/yourname/commerce-datagen/internal/store"
)

type Stats struct {
	Users    int
	Products int
	Updates  int
}

type Writer struct {
	store     store.SeedStore
	faker     *gofakeit.Faker
	roller    roll.Roller
	threshold int
	log       *zap.Logger
}

// NewWriter updates the seeded rows of an iteration when its roll is >= threshold.
func NewWriter(st store.SeedStore, f *gofakeit.Faker, roller roll.Roller, threshold int, log *zap.Logger) *Writer {
	return &Writer{store: st, faker: f, roller: roller, threshold: threshold, log: log.With(zap.String("component", "seed"))}
}

// Run performs n seed iterations. The first store error ends the run.
func (w *Writer) Run(ctx context.Context, n int) (Stats, error) {
	var st Stats
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return st, err
		}
		u := w.user()
		p := w.product()
		if err := w.store.InsertSeed(ctx, &u, &p); err != nil {
			return st, fmt.Errorf("insert seed %d: %w", i, err)
		}
		st.Users++
		st.Products++

		if w.roller.Roll() >= w.threshold {
			username, name := w.faker.Username(), w.faker.ProductName()
			if err := w.store.UpdateSeed(ctx, u.ID, username, p.ID, name); err != nil {
				return st, fmt.Errorf("update seed %d: %w", i, err)
			}
			st.Updates++
			w.log.Debug("seed rows updated", zap.Int64("userId", u.ID), zap.Int64("productId", p.ID))
		}
	}
	return st, nil
}

func (w *Writer) user() store.User {
	return store.User{
		Username: w.faker.Username(),
		Password: w.faker.Password(true, true, true, true, false, 12),
	}
}

func (w *Writer) product() store.Product {
	return store.Product{
		Name:        w.faker.ProductName(),
		Description: w.faker.ProductDescription(),
		Price:       w.faker.Number(1, 100),
	}
}
