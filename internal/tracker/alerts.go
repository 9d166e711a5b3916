package tracker

import (
	"context"

	"pricetracker/internal/domain"
	"pricetracker/services/notifier"
)

// EvaluateAlerts returns the alerts triggered by the given price: those
// not yet sent whose threshold is at or above the price. The threshold
// itself triggers; evaluation has no memory of previous prices.
func EvaluateAlerts(price float64, alerts []domain.Alert) []domain.Alert {
	triggered := []domain.Alert{}
	for _, a := range alerts {
		if !a.Sent && price <= a.Threshold {
			triggered = append(triggered, a)
		}
	}
	return triggered
}

// dispatchAlerts emails every triggered alert and marks it sent. The
// mark happens strictly after a successful send, so a crash between the
// two re-sends rather than silently dropping the alert.
func (t *Tracker) dispatchAlerts(ctx context.Context, product *domain.Product, triggered []domain.Alert) int {
	sent := 0
	for _, alert := range triggered {
		email := notifier.PriceDropEmail{
			ProductName: product.Name,
			Price:       product.CurrentPrice,
			Threshold:   alert.Threshold,
			ProductURL:  product.URL,
		}

		body, err := email.Render()
		if err != nil {
			t.log.WithError(err).Error().Int64("alertId", alert.ID).Msg("Failed to render alert email")
			continue
		}

		if err := t.notify.Send(ctx, alert.Email, email.Subject(), body); err != nil {
			t.log.WithError(err).Error().
				Int64("alertId", alert.ID).
				Str("email", alert.Email).
				Msg("Failed to send alert email")
			continue
		}

		if err := t.store.MarkAlertSent(ctx, alert.ID); err != nil {
			t.log.WithError(err).Error().Int64("alertId", alert.ID).Msg("Failed to mark alert sent")
			continue
		}

		sent++
		t.log.Info().
			Int64("alertId", alert.ID).
			Int64("productId", product.ID).
			Float64("price", product.CurrentPrice).
			Float64("threshold", alert.Threshold).
			Msg("Price drop alert sent")
	}
	return sent
}
