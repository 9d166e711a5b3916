package scraper

import (
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"pricetracker/internal/platform"
	apperrors "pricetracker/pkg/errors"
)

// ProductInfo is the result of a successful extraction
type ProductInfo struct {
	Title string
	Price float64
	Image string
	Brand string
}

// Extract locates title, price and optional image/brand in fetched
// page markup using the platform's rule cascade. A price without a
// product identity is not actionable, so an empty title fails the
// extraction just like a missing price.
func Extract(r io.Reader, p platform.Platform) (*ProductInfo, error) {
	rules, ok := rulesByPlatform[p]
	if !ok {
		return nil, apperrors.NewExtraction(p.String(), apperrors.ReasonUnsupportedPlatform)
	}

	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, apperrors.New(apperrors.ErrorTypeExtraction, p.String(), "failed to parse document", err)
	}

	title := firstMatch(doc, rules.Title)
	if title == "" {
		return nil, apperrors.NewExtraction(p.String(), apperrors.ReasonEmptyTitle)
	}

	priceText := firstMatch(doc, rules.Price)
	if priceText == "" {
		return nil, apperrors.NewExtraction(p.String(), apperrors.ReasonNoPriceFound)
	}

	price, err := NormalizePrice(priceText)
	if err != nil {
		return nil, apperrors.NewExtraction(p.String(), apperrors.ReasonNoPriceFound)
	}

	return &ProductInfo{
		Title: title,
		Price: price,
		Image: firstMatch(doc, rules.Image),
		Brand: firstMatch(doc, rules.Brand),
	}, nil
}

// firstMatch evaluates rules in priority order and returns the first
// non-empty match
func firstMatch(doc *goquery.Document, rules []Rule) string {
	for _, rule := range rules {
		sel := doc.Find(rule.Selector).First()
		if sel.Length() == 0 {
			continue
		}

		var text string
		if rule.Attr != "" {
			text, _ = sel.Attr(rule.Attr)
		} else {
			text = sel.Text()
		}

		text = strings.TrimSpace(text)
		if text != "" {
			return text
		}
	}
	return ""
}
