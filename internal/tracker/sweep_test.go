package tracker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pricetracker/internal/domain"
	apperrors "pricetracker/pkg/errors"
)

func TestSweepUpdatesAndAlerts(t *testing.T) {
	ctx := context.Background()
	cheapURL := "https://www.amazon.in/dp/B0CHEAP"
	steadyURL := "https://www.amazon.in/dp/B0STEADY"
	brokenURL := "https://www.amazon.in/dp/B0BROKEN"

	store := newMemStore()
	p1, _ := store.CreateProduct(ctx, "Dropper", cheapURL, "", domain.Observation{Price: 2000})
	p2, _ := store.CreateProduct(ctx, "Steady", steadyURL, "", domain.Observation{Price: 500})
	p3, _ := store.CreateProduct(ctx, "Broken", brokenURL, "", domain.Observation{Price: 100})

	// p1 drops below its alert threshold; p2 stays above its own
	store.CreateAlert(ctx, p1.ID, "drop@example.com", 1500)
	store.CreateAlert(ctx, p2.ID, "steady@example.com", 400)

	static := newStubFetcher()
	static.pages[cheapURL] = amazonPage("Dropper", 1400)
	static.pages[steadyURL] = amazonPage("Steady", 500)
	static.errs[brokenURL] = apperrors.NewNetwork("Amazon", "connection refused", nil)

	pub := &stubPublisher{}
	mail := &stubNotifier{}
	tr := New(store, static, nil, pub, mail)

	stats, err := tr.Sweep(ctx)
	require.NoError(t, err)

	assert.Equal(t, 3, stats.Products)
	assert.Equal(t, 2, stats.Updated)
	assert.Equal(t, 1, stats.AlertsSent)
	assert.Equal(t, 1, stats.Failed)

	// Histories of reachable products grew by one, in order
	updated, _ := store.GetProduct(ctx, p1.ID)
	require.Len(t, updated.PriceHistory, 2)
	assert.Equal(t, 1400.0, updated.CurrentPrice)
	assert.Equal(t, 2000.0, updated.PriceHistory[0].Price)

	// The failed product kept its history untouched
	broken, _ := store.GetProduct(ctx, p3.ID)
	assert.Len(t, broken.PriceHistory, 1)

	// One email went out, and only for the crossed threshold
	require.Len(t, mail.sent, 1)
	assert.Contains(t, mail.sent[0], "drop@example.com")

	// Observation events were published and streams trimmed once
	assert.Len(t, pub.events, 2)
	assert.Equal(t, 1, pub.trimmed)
}

func TestSweepAlertFiresOnce(t *testing.T) {
	ctx := context.Background()
	url := "https://www.amazon.in/dp/B0ONCE"

	store := newMemStore()
	p, _ := store.CreateProduct(ctx, "Once", url, "", domain.Observation{Price: 2000})
	store.CreateAlert(ctx, p.ID, "once@example.com", 1500)

	static := newStubFetcher()
	static.pages[url] = amazonPage("Once", 1400)

	mail := &stubNotifier{}
	tr := New(store, static, nil, nil, mail)

	// Price stays below the threshold across two sweeps
	_, err := tr.Sweep(ctx)
	require.NoError(t, err)
	_, err = tr.Sweep(ctx)
	require.NoError(t, err)

	assert.Len(t, mail.sent, 1)
}

func TestSweepKeepsAlertPendingOnSendFailure(t *testing.T) {
	ctx := context.Background()
	url := "https://www.amazon.in/dp/B0RETRY"

	store := newMemStore()
	p, _ := store.CreateProduct(ctx, "Retry", url, "", domain.Observation{Price: 2000})
	store.CreateAlert(ctx, p.ID, "retry@example.com", 1500)

	static := newStubFetcher()
	static.pages[url] = amazonPage("Retry", 1400)

	mail := &stubNotifier{sendErr: apperrors.NewNotification("smtp down", nil)}
	tr := New(store, static, nil, nil, mail)

	stats, err := tr.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.AlertsSent)

	// The alert stays pending so the next sweep retries it
	pending, _ := store.PendingAlerts(ctx)
	require.Len(t, pending, 1)

	mail.sendErr = nil
	stats, err = tr.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.AlertsSent)
	assert.Len(t, mail.sent, 1)
}

func TestSweepRejectsOverlap(t *testing.T) {
	tr := New(newMemStore(), newStubFetcher(), nil, nil, &stubNotifier{})

	tr.sweepMu.Lock()
	defer tr.sweepMu.Unlock()

	_, err := tr.Sweep(context.Background())
	assert.ErrorIs(t, err, ErrSweepInProgress)
}

func TestSweepHonorsCancellation(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	url := "https://www.amazon.in/dp/B0CANCEL"
	store.CreateProduct(ctx, "Cancel", url, "", domain.Observation{Price: 100})

	static := newStubFetcher()
	static.pages[url] = amazonPage("Cancel", 100)

	tr := New(store, static, nil, nil, &stubNotifier{})

	cancelled, cancel := context.WithCancel(ctx)
	cancel()

	_, err := tr.Sweep(cancelled)
	assert.ErrorIs(t, err, context.Canceled)
}
