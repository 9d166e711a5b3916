package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"pricetracker/internal/domain"
	apperrors "pricetracker/pkg/errors"
)

const schema = `
CREATE TABLE IF NOT EXISTS products (
	id            BIGSERIAL PRIMARY KEY,
	name          TEXT NOT NULL,
	url           TEXT NOT NULL,
	image         TEXT NOT NULL DEFAULT '',
	current_price DOUBLE PRECISION NOT NULL,
	price_history JSONB NOT NULL DEFAULT '[]'::jsonb,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS alerts (
	id         BIGSERIAL PRIMARY KEY,
	product_id BIGINT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
	email      TEXT NOT NULL,
	threshold  DOUBLE PRECISION NOT NULL,
	alert_sent BOOLEAN NOT NULL DEFAULT false,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_alerts_pending ON alerts (product_id) WHERE NOT alert_sent;
`

// PostgresStore implements Store on Postgres via sqlx
type PostgresStore struct {
	db *sqlx.DB
}

// Connect opens the database and verifies connectivity
func Connect(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	db, err := sqlx.Open("postgres", databaseURL)
	if err != nil {
		return nil, apperrors.NewStore("failed to open database", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, apperrors.NewStore("failed to reach database", err)
	}
	return &PostgresStore{db: db}, nil
}

// NewPostgresStore wraps an already-open database handle
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// InitSchema creates the tables if they do not exist
func (s *PostgresStore) InitSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return apperrors.NewStore("failed to initialize schema", err)
	}
	return nil
}

// Close closes the database handle
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) CreateProduct(ctx context.Context, name, url, image string, obs domain.Observation) (*domain.Product, error) {
	query := `
		INSERT INTO products (name, url, image, current_price, price_history, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, name, url, image, current_price, price_history, created_at`

	var p domain.Product
	err := s.db.QueryRowxContext(ctx, query,
		name, url, image, obs.Price, domain.History{obs}, obs.Date,
	).StructScan(&p)
	if err != nil {
		return nil, apperrors.NewStore("failed to insert product", err)
	}

	return &p, nil
}

func (s *PostgresStore) ListProducts(ctx context.Context) ([]domain.Product, error) {
	query := `
		SELECT id, name, url, image, current_price, price_history, created_at
		FROM products
		ORDER BY created_at DESC, id DESC`

	products := []domain.Product{}
	if err := s.db.SelectContext(ctx, &products, query); err != nil {
		return nil, apperrors.NewStore("failed to list products", err)
	}

	return products, nil
}

func (s *PostgresStore) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	query := `
		SELECT id, name, url, image, current_price, price_history, created_at
		FROM products
		WHERE id = $1`

	var p domain.Product
	err := s.db.GetContext(ctx, &p, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, apperrors.NewStore("failed to load product", err)
	}

	return &p, nil
}

func (s *PostgresStore) DeleteProduct(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id); err != nil {
		return apperrors.NewStore("failed to delete product", err)
	}
	return nil
}

// AppendObservation appends in a single UPDATE so the current price
// and the history tail can never be observed out of sync. The jsonb
// concatenation is strictly additive; existing entries are never
// reordered or discarded.
func (s *PostgresStore) AppendObservation(ctx context.Context, productID int64, obs domain.Observation) (*domain.Product, error) {
	query := `
		UPDATE products
		SET current_price = $2, price_history = price_history || $3::jsonb
		WHERE id = $1
		RETURNING id, name, url, image, current_price, price_history, created_at`

	var p domain.Product
	err := s.db.QueryRowxContext(ctx, query, productID, obs.Price, domain.History{obs}).StructScan(&p)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, apperrors.NewStore("failed to append observation", err)
	}

	return &p, nil
}

func (s *PostgresStore) Observations(ctx context.Context, productID int64) (domain.History, error) {
	var history domain.History
	err := s.db.GetContext(ctx, &history, `SELECT price_history FROM products WHERE id = $1`, productID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, apperrors.NewStore("failed to load price history", err)
	}

	return history, nil
}

func (s *PostgresStore) CreateAlert(ctx context.Context, productID int64, email string, threshold float64) (*domain.Alert, error) {
	query := `
		INSERT INTO alerts (product_id, email, threshold, alert_sent, created_at)
		VALUES ($1, $2, $3, false, now())
		RETURNING id, product_id, email, threshold, alert_sent, created_at`

	var a domain.Alert
	err := s.db.QueryRowxContext(ctx, query, productID, email, threshold).StructScan(&a)
	if err != nil {
		return nil, apperrors.NewStore("failed to insert alert", err)
	}

	return &a, nil
}

func (s *PostgresStore) PendingAlerts(ctx context.Context) ([]domain.Alert, error) {
	query := `
		SELECT id, product_id, email, threshold, alert_sent, created_at
		FROM alerts
		WHERE NOT alert_sent
		ORDER BY id`

	alerts := []domain.Alert{}
	if err := s.db.SelectContext(ctx, &alerts, query); err != nil {
		return nil, apperrors.NewStore("failed to list pending alerts", err)
	}

	return alerts, nil
}

func (s *PostgresStore) MarkAlertSent(ctx context.Context, alertID int64) error {
	res, err := s.db.ExecContext(ctx, `UPDATE alerts SET alert_sent = true WHERE id = $1`, alertID)
	if err != nil {
		return apperrors.NewStore("failed to mark alert sent", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return apperrors.NewStore("database unreachable", err)
	}
	return nil
}

func (s *PostgresStore) CountProducts(ctx context.Context) (int, error) {
	var count int
	if err := s.db.GetContext(ctx, &count, `SELECT count(*) FROM products`); err != nil {
		return 0, apperrors.NewStore("failed to count products", err)
	}
	return count, nil
}
