package event

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TimestampLayout is the millisecond-precision layout of datetime_occured.
const TimestampLayout = "2006-01-02 15:04:05.000"

// Timestamp serializes as a TimestampLayout string.
type Timestamp time.Time

func (t Timestamp) Time() time.Time { return time.Time(t) }

func (t Timestamp) String() string { return time.Time(t).Format(TimestampLayout) }

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.String() + `"`), nil
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	parsed, err := time.ParseInLocation(TimestampLayout, s, time.Local)
	if err != nil {
		return fmt.Errorf("timestamp %q: %w", s, err)
	}
	*t = Timestamp(parsed)
	return nil
}

// Amount is a money value serialized as a bare JSON number with exactly two
// fractional digits (12.30, not "12.3" or 12.299999).
type Amount struct {
	decimal.Decimal
}

// Cents builds an Amount from an integer number of cents.
func Cents(c int64) Amount { return Amount{decimal.New(c, -2)} }

func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.StringFixed(2)), nil
}

func (a *Amount) UnmarshalJSON(b []byte) error {
	return a.Decimal.UnmarshalJSON(b)
}

type Click struct {
	ClickID    string    `json:"click_id"`
	UserID     int       `json:"user_id"`
	ProductID  string    `json:"product_id"`
	Product    string    `json:"product"`
	Price      Amount    `json:"price"`
	URL        string    `json:"url"`
	UserAgent  string    `json:"user_agent"`
	IPAddress  string    `json:"ip_address"`
	OccurredAt Timestamp `json:"datetime_occured"`
}

type Checkout struct {
	CheckoutID      string    `json:"checkout_id"`
	UserID          int       `json:"user_id"`
	ProductID       string    `json:"product_id"`
	PaymentMethod   string    `json:"payment_method"`
	TotalAmount     Amount    `json:"total_amount"`
	ShippingAddress string    `json:"shipping_address"`
	BillingAddress  string    `json:"billing_address"`
	UserAgent       string    `json:"user_agent"`
	IPAddress       string    `json:"ip_address"`
	OccurredAt      Timestamp `json:"datetime_occured"`
}
