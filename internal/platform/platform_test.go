package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	testCases := []struct {
		url      string
		expected Platform
	}{
		{"https://www.amazon.in/dp/B0ABCDEF", Amazon},
		{"https://www.amazon.com/gp/product/B0ABCDEF", Amazon},
		{"https://www.flipkart.com/some-product/p/itm123", Flipkart},
		{"https://www.myntra.com/tshirts/brand/123", Myntra},
		{"https://www.ebay.com/itm/123", Unknown},
		{"not a url at all", Unknown},
		{"", Unknown},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.expected, Classify(tc.url), "url: "+tc.url)
	}
}

func TestSupported(t *testing.T) {
	assert.True(t, Amazon.Supported())
	assert.True(t, Flipkart.Supported())
	assert.True(t, Myntra.Supported())
	assert.False(t, Unknown.Supported())
}
