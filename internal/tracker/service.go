package tracker

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"pricetracker/internal/domain"
	"pricetracker/internal/fetcher"
	"pricetracker/internal/platform"
	"pricetracker/internal/scraper"
	"pricetracker/logger"
	apperrors "pricetracker/pkg/errors"
	"pricetracker/services/notifier"
	"pricetracker/services/publisher"
	"pricetracker/services/storage"
)

// Tracker coordinates fetching, extraction, persistence, alerting and
// event publishing for tracked products.
type Tracker struct {
	store    storage.Store
	static   fetcher.Fetcher
	rendered fetcher.Fetcher // nil disables the rendered fallback
	pub      publisher.Publisher
	notify   notifier.Notifier
	log      *logger.Logger

	sweepMu sync.Mutex
}

// New creates a Tracker. rendered may be nil when no browser service is
// configured; pub may be nil to disable event publishing.
func New(store storage.Store, static, rendered fetcher.Fetcher, pub publisher.Publisher, notify notifier.Notifier) *Tracker {
	return &Tracker{
		store:    store,
		static:   static,
		rendered: rendered,
		pub:      pub,
		notify:   notify,
		log:      logger.ForComponent("tracker"),
	}
}

// Track starts tracking the product at the given URL. The page is
// scraped once so the product is stored with its first observation.
func (t *Tracker) Track(ctx context.Context, pageURL string) (*domain.Product, error) {
	p := platform.Classify(pageURL)
	if !p.Supported() {
		return nil, apperrors.NewValidation("unsupported platform: " + pageURL)
	}

	info, err := t.scrape(ctx, pageURL, p)
	if err != nil {
		return nil, err
	}

	obs := newObservation(info.Price)
	product, err := t.store.CreateProduct(ctx, info.Title, pageURL, info.Image, obs)
	if err != nil {
		return nil, err
	}

	t.publishObservation(p, product.ID, obs)

	t.log.Info().
		Str("platform", p.String()).
		Int64("productId", product.ID).
		Float64("price", info.Price).
		Msg("Product tracked")

	return product, nil
}

// scrape fetches and extracts a product page. The static strategy runs
// first; when it yields markup without a price or title and a rendered
// strategy is available, the page is retried in a real browser. Fetch
// errors are terminal: retrying a 403 in a browser just burns quota.
func (t *Tracker) scrape(ctx context.Context, pageURL string, p platform.Platform) (*scraper.ProductInfo, error) {
	body, err := t.static.Fetch(ctx, pageURL, fetcher.Options{})
	if err != nil {
		return nil, err
	}

	info, err := scraper.Extract(body, p)
	if err == nil {
		return info, nil
	}
	if t.rendered == nil || !needsRendering(err) {
		return nil, err
	}

	t.log.Debug().
		Str("platform", p.String()).
		Str("url", pageURL).
		Msg("Static markup incomplete, retrying with rendered fetch")

	body, err = t.rendered.Fetch(ctx, pageURL, fetcher.Options{WaitSelector: scraper.MarkerSelector(p)})
	if err != nil {
		return nil, err
	}
	return scraper.Extract(body, p)
}

// needsRendering reports whether an extraction failure looks like
// markup that only materializes after client-side rendering
func needsRendering(err error) bool {
	return apperrors.IsExtraction(err, apperrors.ReasonNoPriceFound) ||
		apperrors.IsExtraction(err, apperrors.ReasonEmptyTitle)
}

// publishObservation broadcasts a price observation. Publishing is
// best-effort; a broker outage must not fail the pipeline.
func (t *Tracker) publishObservation(p platform.Platform, productID int64, obs domain.Observation) {
	if t.pub == nil {
		return
	}

	payload, err := json.Marshal(observationEvent{
		ProductID: productID,
		Platform:  p.String(),
		Price:     obs.Price,
		Date:      obs.Date,
	})
	if err != nil {
		return
	}

	if err := t.pub.Publish(p.String(), payload); err != nil {
		t.log.WithError(err).Warn().
			Int64("productId", productID).
			Msg("Failed to publish observation event")
	}
}

// observationEvent is the wire shape of a published price observation
type observationEvent struct {
	ProductID int64     `json:"productId"`
	Platform  string    `json:"platform"`
	Price     float64   `json:"price"`
	Date      time.Time `json:"date"`
}

func newObservation(price float64) domain.Observation {
	return domain.Observation{Date: time.Now().UTC(), Price: price}
}
