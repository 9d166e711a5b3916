package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Observation is one (timestamp, price) sample in a product's history
type Observation struct {
	Date  time.Time `json:"date"`
	Price float64   `json:"price"`
}

// History is a product's ordered, append-only price history. It is
// persisted as a jsonb array; insertion order is chronological order.
type History []Observation

// Value implements driver.Valuer so a History can be written to a jsonb column
func (h History) Value() (driver.Value, error) {
	if h == nil {
		h = History{}
	}
	return json.Marshal(h)
}

// Scan implements sql.Scanner so a History can be read from a jsonb column
func (h *History) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*h = History{}
		return nil
	case []byte:
		return json.Unmarshal(v, h)
	case string:
		return json.Unmarshal([]byte(v), h)
	default:
		return fmt.Errorf("unsupported history column type %T", src)
	}
}

// Last returns the most recent observation, or false for an empty history
func (h History) Last() (Observation, bool) {
	if len(h) == 0 {
		return Observation{}, false
	}
	return h[len(h)-1], true
}

// Product is a tracked e-commerce product. CurrentPrice mirrors the
// last entry of PriceHistory whenever the history is non-empty.
type Product struct {
	ID           int64     `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	URL          string    `db:"url" json:"url"`
	Image        string    `db:"image" json:"image"`
	CurrentPrice float64   `db:"current_price" json:"currentPrice"`
	PriceHistory History   `db:"price_history" json:"priceHistory"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
}

// Alert is a one-shot price-drop subscription. Once Sent becomes true
// it never reverts.
type Alert struct {
	ID        int64     `db:"id" json:"id"`
	ProductID int64     `db:"product_id" json:"productId"`
	Email     string    `db:"email" json:"email"`
	Threshold float64   `db:"threshold" json:"threshold"`
	Sent      bool      `db:"alert_sent" json:"sent"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// ComparisonResult is one row of a multi-platform price comparison.
// It exists only for the duration of one comparison request.
type ComparisonResult struct {
	Platform  string   `json:"platform"`
	URL       string   `json:"url"`
	Price     *float64 `json:"price"`
	Available bool     `json:"available"`
	Error     string   `json:"error,omitempty"`
}
