package tracker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "pricetracker/pkg/errors"
)

func TestCompareSortsByPrice(t *testing.T) {
	amazonURL := "https://www.amazon.in/dp/B0CMP"
	flipkartURL := "https://www.flipkart.com/p/cmp"
	myntraURL := "https://www.myntra.com/cmp"

	static := newStubFetcher()
	static.pages[amazonURL] = amazonPage("Widget", 1299)
	static.pages[flipkartURL] = `<html><body>
		<span class="B_NuCI">Widget</span>
		<div class="_30jeq3">₹1,199</div>
	</body></html>`
	static.errs[myntraURL] = apperrors.NewTimeout("Myntra", "fetch timed out", nil)

	tr := New(newMemStore(), static, nil, nil, &stubNotifier{})

	results := tr.Compare(context.Background(), []string{amazonURL, flipkartURL, myntraURL})
	require.Len(t, results, 3)

	// Cheapest first; the failed row sorts last but is still reported
	assert.Equal(t, "Flipkart", results[0].Platform)
	require.NotNil(t, results[0].Price)
	assert.Equal(t, 1199.0, *results[0].Price)
	assert.True(t, results[0].Available)

	assert.Equal(t, "Amazon", results[1].Platform)
	require.NotNil(t, results[1].Price)
	assert.Equal(t, 1299.0, *results[1].Price)

	assert.Equal(t, "Myntra", results[2].Platform)
	assert.Nil(t, results[2].Price)
	assert.False(t, results[2].Available)
	assert.Equal(t, "timeout", results[2].Error)
}

func TestCompareUnsupportedURL(t *testing.T) {
	tr := New(newMemStore(), newStubFetcher(), nil, nil, &stubNotifier{})

	results := tr.Compare(context.Background(), []string{"https://www.ebay.com/itm/1"})
	require.Len(t, results, 1)
	assert.Equal(t, "Unknown", results[0].Platform)
	assert.False(t, results[0].Available)
	assert.Equal(t, apperrors.ReasonUnsupportedPlatform, results[0].Error)
}

func TestCompareExtractionFailureCode(t *testing.T) {
	url := "https://www.amazon.in/dp/B0NOPRICE"
	static := newStubFetcher()
	static.pages[url] = pageWithoutPrice("Widget")

	tr := New(newMemStore(), static, nil, nil, &stubNotifier{})

	results := tr.Compare(context.Background(), []string{url})
	require.Len(t, results, 1)
	assert.Equal(t, apperrors.ReasonNoPriceFound, results[0].Error)
}

func TestCompareEmptyInput(t *testing.T) {
	tr := New(newMemStore(), newStubFetcher(), nil, nil, &stubNotifier{})
	assert.Empty(t, tr.Compare(context.Background(), nil))
}
