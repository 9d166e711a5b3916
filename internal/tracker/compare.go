package tracker

import (
	"context"
	"errors"
	"sort"
	"sync"

	"pricetracker/internal/domain"
	"pricetracker/internal/platform"
	apperrors "pricetracker/pkg/errors"
)

// Compare scrapes each URL live and returns one result per input, best
// price first. A failing URL yields an unavailable row instead of
// failing the whole comparison; rows without a price sort last.
func (t *Tracker) Compare(ctx context.Context, urls []string) []domain.ComparisonResult {
	results := make([]domain.ComparisonResult, len(urls))

	var wg sync.WaitGroup
	for i, pageURL := range urls {
		wg.Add(1)
		go func(i int, pageURL string) {
			defer wg.Done()
			results[i] = t.compareOne(ctx, pageURL)
		}(i, pageURL)
	}
	wg.Wait()

	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i].Price, results[j].Price
		if a == nil {
			return false
		}
		if b == nil {
			return true
		}
		return *a < *b
	})

	return results
}

func (t *Tracker) compareOne(ctx context.Context, pageURL string) domain.ComparisonResult {
	p := platform.Classify(pageURL)
	result := domain.ComparisonResult{
		Platform: p.String(),
		URL:      pageURL,
	}

	if !p.Supported() {
		result.Error = apperrors.ReasonUnsupportedPlatform
		return result
	}

	info, err := t.scrape(ctx, pageURL, p)
	if err != nil {
		result.Error = comparisonError(err)
		t.log.WithError(err).Warn().
			Str("platform", p.String()).
			Str("url", pageURL).
			Msg("Comparison scrape failed")
		return result
	}

	price := info.Price
	result.Price = &price
	result.Available = true
	return result
}

// comparisonError reduces a pipeline error to the short code exposed in
// a comparison row
func comparisonError(err error) string {
	var te *apperrors.TrackerError
	if errors.As(err, &te) {
		if te.Type == apperrors.ErrorTypeExtraction {
			return te.Message
		}
		return string(te.Type)
	}
	return err.Error()
}
