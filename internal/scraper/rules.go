package scraper

import "pricetracker/internal/platform"

// Rule locates one field in a product page. When Attr is empty the
// element text is taken, otherwise the named attribute.
type Rule struct {
	Selector string
	Attr     string
}

// RuleSet is the ordered extraction cascade for one platform. Rules
// are tried in declared priority order and the first one yielding
// non-empty text wins; the order encodes a priority among equally
// plausible price locations (deal price vs. regular price vs. buy-box
// price).
type RuleSet struct {
	Title []Rule
	Price []Rule
	Image []Rule
	Brand []Rule

	// Marker is the element the rendered fetch strategy waits for
	// before reading the DOM.
	Marker string
}

// rulesByPlatform holds the per-platform cascades. Adding a platform
// means adding an entry here; extraction control flow never changes.
var rulesByPlatform = map[platform.Platform]RuleSet{
	platform.Amazon: {
		Title: []Rule{
			{Selector: "#productTitle"},
			{Selector: ".product-title"},
			{Selector: "h1"},
		},
		Price: []Rule{
			{Selector: "#priceblock_ourprice"},
			{Selector: "#priceblock_dealprice"},
			{Selector: "#priceblock_saleprice"},
			{Selector: ".a-price .a-offscreen"},
			{Selector: ".a-price-whole"},
			{Selector: "#price_inside_buybox"},
			{Selector: ".a-price.a-text-price.a-size-medium.apexPriceToPay .a-offscreen"},
		},
		Image: []Rule{
			{Selector: "#imgTagWrapperId img", Attr: "src"},
			{Selector: "#landingImage", Attr: "src"},
			{Selector: ".a-dynamic-image", Attr: "src"},
		},
		Brand: []Rule{
			{Selector: "#bylineInfo"},
		},
		Marker: "#productTitle",
	},
	platform.Flipkart: {
		Title: []Rule{
			{Selector: "span.B_NuCI"},
			{Selector: "h1"},
		},
		Price: []Rule{
			{Selector: "._30jeq3"},
			{Selector: ".Nx9bqj"},
		},
		Image: []Rule{
			{Selector: "img._396cs4", Attr: "src"},
		},
		Marker: "._30jeq3",
	},
	platform.Myntra: {
		Title: []Rule{
			{Selector: "h1.pdp-title"},
			{Selector: "h1.pdp-name"},
		},
		Price: []Rule{
			{Selector: "span.pdp-price strong"},
			{Selector: "span.pdp-price"},
		},
		Marker: "h1.pdp-title",
	},
}

// MarkerSelector returns the rendered-fetch marker element for a
// platform, or an empty string for platforms without a rule table.
func MarkerSelector(p platform.Platform) string {
	return rulesByPlatform[p].Marker
}
