package seed

import (
	"context"
	"errors"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yourname/commerce-datagen/internal/roll"
	"github.com/yourname/commerce-datagen/internal/store"
)

// memStore assigns ids like a serial column and records every call.
type memStore struct {
	nextID    int64
	users     []store.User
	products  []store.Product
	updates   [][2]int64
	insertErr error
	closed    bool
}

func (m *memStore) InsertSeed(_ context.Context, u *store.User, p *store.Product) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	// Offset product ids so a user id can never be mistaken for one.
	m.nextID++
	u.ID = m.nextID
	p.ID = m.nextID + 1000
	m.users = append(m.users, *u)
	m.products = append(m.products, *p)
	return nil
}

func (m *memStore) UpdateSeed(_ context.Context, userID int64, username string, productID int64, productName string) error {
	m.updates = append(m.updates, [2]int64{userID, productID})
	return nil
}

func (m *memStore) Close() error { m.closed = true; return nil }

type scriptedRoller struct {
	rolls []int
	i     int
}

func (r *scriptedRoller) Roll() int {
	v := r.rolls[r.i%len(r.rolls)]
	r.i++
	return v
}

func TestRunInsertsNRowsAndUpdatesOnHighRolls(t *testing.T) {
	st := &memStore{}
	rolls := &scriptedRoller{rolls: []int{1, 90, 89, 100, 50}}
	w := NewWriter(st, gofakeit.New(1), rolls, 90, zap.NewNop())

	stats, err := w.Run(context.Background(), 5)
	require.NoError(t, err)

	assert.Equal(t, Stats{Users: 5, Products: 5, Updates: 2}, stats)
	assert.Len(t, st.users, 5)
	assert.Len(t, st.products, 5)
	assert.Equal(t, [][2]int64{{2, 1002}, {4, 1004}}, st.updates, "updates target the inserted rows")
}

func TestRunZeroDoesNothing(t *testing.T) {
	st := &memStore{}
	w := NewWriter(st, gofakeit.New(1), &scriptedRoller{rolls: []int{100}}, 90, zap.NewNop())

	stats, err := w.Run(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, Stats{}, stats)
	assert.Empty(t, st.users)
}

func TestRunRowsLookRealistic(t *testing.T) {
	st := &memStore{}
	w := NewWriter(st, gofakeit.New(3), &scriptedRoller{rolls: []int{1}}, 90, zap.NewNop())

	_, err := w.Run(context.Background(), 50)
	require.NoError(t, err)
	for _, u := range st.users {
		assert.NotEmpty(t, u.Username)
		assert.Len(t, u.Password, 12)
	}
	for _, p := range st.products {
		assert.NotEmpty(t, p.Name)
		assert.NotEmpty(t, p.Description)
		assert.GreaterOrEqual(t, p.Price, 1)
		assert.LessOrEqual(t, p.Price, 100)
	}
}

func TestRunStopsOnStoreError(t *testing.T) {
	st := &memStore{insertErr: errors.New("connection reset")}
	w := NewWriter(st, gofakeit.New(1), &scriptedRoller{rolls: []int{1}}, 90, zap.NewNop())

	stats, err := w.Run(context.Background(), 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert seed 0")
	assert.Equal(t, Stats{}, stats)
}

func TestRunHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	st := &memStore{}
	w := NewWriter(st, gofakeit.New(1), &scriptedRoller{rolls: []int{1}}, 90, zap.NewNop())

	_, err := w.Run(ctx, 10)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, st.users)
}

func TestUpdateRateIsAboutTenPercent(t *testing.T) {
	st := &memStore{}
	f := gofakeit.New(99)
	w := NewWriter(st, f, roll.New(f), 90, zap.NewNop())

	stats, err := w.Run(context.Background(), 2000)
	require.NoError(t, err)
	// rolls of 90..100 hit 11 of 100 values
	assert.InDelta(t, 220, stats.Updates, 70)
}
