package storage

import (
	"context"
	"errors"

	"pricetracker/internal/domain"
)

// ErrNotFound is returned when a record does not exist
var ErrNotFound = errors.New("record not found")

// Store is the record store the tracker runs against. Implementations
// must make AppendObservation atomic: a reader never observes a
// current price that disagrees with the last history entry.
type Store interface {
	// CreateProduct persists a new product with exactly one observation
	CreateProduct(ctx context.Context, name, url, image string, obs domain.Observation) (*domain.Product, error)

	// ListProducts returns all products, newest-created first
	ListProducts(ctx context.Context) ([]domain.Product, error)

	// GetProduct returns one product or ErrNotFound
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)

	// DeleteProduct removes a product and its alerts
	DeleteProduct(ctx context.Context, id int64) error

	// AppendObservation appends to a product's history and syncs its
	// current price in one atomic write, returning the updated product
	AppendObservation(ctx context.Context, productID int64, obs domain.Observation) (*domain.Product, error)

	// Observations returns a product's ordered price history
	Observations(ctx context.Context, productID int64) (domain.History, error)

	// CreateAlert persists a new unsent alert
	CreateAlert(ctx context.Context, productID int64, email string, threshold float64) (*domain.Alert, error)

	// PendingAlerts returns all alerts that have not been sent yet
	PendingAlerts(ctx context.Context) ([]domain.Alert, error)

	// MarkAlertSent flips an alert to sent; the transition is one-way
	MarkAlertSent(ctx context.Context, alertID int64) error

	// Ping verifies store connectivity
	Ping(ctx context.Context) error

	// CountProducts returns the number of tracked products
	CountProducts(ctx context.Context) (int, error)
}
