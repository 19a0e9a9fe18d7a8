package event

import (
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
)

const (
	maxPriceCents = 99_99  // two integer digits
	maxTotalCents = 999_99 // three integer digits
)

// Generator builds randomized click and checkout events. It is not safe for
// concurrent use.
type Generator struct {
	faker *gofakeit.Faker
	now   func() time.Time
}

// NewGenerator seeds the faker with seed; 0 picks a random seed.
func NewGenerator(seed uint64) *Generator {
	return NewGeneratorWith(gofakeit.New(seed), time.Now)
}

// NewGeneratorWith shares an existing faker and clock.
func NewGeneratorWith(f *gofakeit.Faker, now func() time.Time) *Generator {
	return &Generator{faker: f, now: now}
}

// Click returns a click for userID. An empty productID starts a new product.
func (g *Generator) Click(userID int, productID string) Click {
	if productID == "" {
		productID = uuid.NewString()
	}
	return Click{
		ClickID:    uuid.NewString(),
		UserID:     userID,
		ProductID:  productID,
		Product:    g.faker.Word(),
		Price:      g.amount(maxPriceCents),
		URL:        g.faker.URL(),
		UserAgent:  g.faker.UserAgent(),
		IPAddress:  g.faker.IPv4Address(),
		OccurredAt: Timestamp(g.now()),
	}
}

func (g *Generator) Checkout(userID int, productID string) Checkout {
	return Checkout{
		CheckoutID:      uuid.NewString(),
		UserID:          userID,
		ProductID:       productID,
		PaymentMethod:   g.faker.CreditCardType(),
		TotalAmount:     g.amount(maxTotalCents),
		ShippingAddress: g.faker.Address().Address,
		BillingAddress:  g.faker.Address().Address,
		UserAgent:       g.faker.UserAgent(),
		IPAddress:       g.faker.IPv4Address(),
		OccurredAt:      Timestamp(g.now()),
	}
}

func (g *Generator) amount(maxCents int) Amount {
	return Cents(int64(g.faker.Number(1, maxCents)))
}
