package tracker

import (
	"context"
	"errors"

	"pricetracker/internal/domain"
	"pricetracker/internal/platform"
)

// ErrSweepInProgress is returned when a sweep is requested while the
// previous one is still running
var ErrSweepInProgress = errors.New("sweep already in progress")

// SweepStats summarizes one sweep run
type SweepStats struct {
	Products   int
	Updated    int
	AlertsSent int
	Failed     int
}

// Sweep re-scrapes every tracked product, appends the new observation,
// publishes it, and dispatches any triggered alerts. One failing
// product never blocks the rest. Concurrent sweeps are rejected rather
// than queued; with a fixed product set a queued run would only repeat
// the same work.
func (t *Tracker) Sweep(ctx context.Context) (SweepStats, error) {
	if !t.sweepMu.TryLock() {
		return SweepStats{}, ErrSweepInProgress
	}
	defer t.sweepMu.Unlock()

	stats := SweepStats{}

	products, err := t.store.ListProducts(ctx)
	if err != nil {
		return stats, err
	}
	stats.Products = len(products)

	pending, err := t.store.PendingAlerts(ctx)
	if err != nil {
		return stats, err
	}
	alertsByProduct := make(map[int64][]domain.Alert, len(pending))
	for _, a := range pending {
		alertsByProduct[a.ProductID] = append(alertsByProduct[a.ProductID], a)
	}

	t.log.Info().
		Int("products", len(products)).
		Int("pendingAlerts", len(pending)).
		Msg("Sweep started")

	for i := range products {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		updated, sent, err := t.sweepProduct(ctx, &products[i], alertsByProduct[products[i].ID])
		if err != nil {
			stats.Failed++
			t.log.WithError(err).Error().
				Int64("productId", products[i].ID).
				Str("url", products[i].URL).
				Msg("Sweep failed for product")
			continue
		}
		if updated {
			stats.Updated++
		}
		stats.AlertsSent += sent
	}

	if t.pub != nil {
		if err := t.pub.TrimStreams(); err != nil {
			t.log.WithError(err).Warn().Msg("Failed to trim observation streams")
		}
	}

	t.log.Info().
		Int("updated", stats.Updated).
		Int("alertsSent", stats.AlertsSent).
		Int("failed", stats.Failed).
		Msg("Sweep finished")

	return stats, nil
}

func (t *Tracker) sweepProduct(ctx context.Context, product *domain.Product, alerts []domain.Alert) (bool, int, error) {
	p := platform.Classify(product.URL)
	if !p.Supported() {
		// A stored product can only get here if a site was delisted
		// after it was tracked; skip it instead of erroring every sweep.
		t.log.Warn().Int64("productId", product.ID).Str("url", product.URL).Msg("Skipping product on unsupported platform")
		return false, 0, nil
	}

	info, err := t.scrape(ctx, product.URL, p)
	if err != nil {
		return false, 0, err
	}

	obs := newObservation(info.Price)
	updated, err := t.store.AppendObservation(ctx, product.ID, obs)
	if err != nil {
		return false, 0, err
	}

	t.publishObservation(p, updated.ID, obs)

	sent := 0
	if triggered := EvaluateAlerts(updated.CurrentPrice, alerts); len(triggered) > 0 {
		sent = t.dispatchAlerts(ctx, updated, triggered)
	}

	return true, sent, nil
}
