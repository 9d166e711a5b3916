package notifier

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	apperrors "pricetracker/pkg/errors"
)

// Notifier delivers alert emails to users
type Notifier interface {
	// Send delivers a single HTML email
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// PriceDropEmail holds the values rendered into the alert email
type PriceDropEmail struct {
	ProductName string
	Price       float64
	Threshold   float64
	ProductURL  string
}

var priceDropTemplate = template.Must(template.New("priceDrop").Parse(`<h2>Price Drop Alert!</h2>
<p>The price of <strong>{{.ProductName}}</strong> has dropped to <strong>₹{{printf "%.2f" .Price}}</strong>, at or below your target of ₹{{printf "%.2f" .Threshold}}.</p>
<p><a href="{{.ProductURL}}">Buy it now</a></p>
<p>You are receiving this because you set a price alert. This alert fires only once.</p>`))

// Subject returns the subject line for the alert email
func (e PriceDropEmail) Subject() string {
	return fmt.Sprintf("Price Drop Alert: %s", e.ProductName)
}

// Render returns the HTML body for the alert email
func (e PriceDropEmail) Render() (string, error) {
	var buf bytes.Buffer
	if err := priceDropTemplate.Execute(&buf, e); err != nil {
		return "", apperrors.NewNotification("failed to render alert email", err)
	}
	return buf.String(), nil
}
