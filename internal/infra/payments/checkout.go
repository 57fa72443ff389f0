package payments

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"prediction-pool/internal/app"
)

var ErrNotConfigured = errors.New("payments: checkout url not configured")

// CheckoutLinks builds hosted checkout links. The payment provider owns the checkout page
// and reports completed payments back through the confirmation webhook.
type CheckoutLinks struct {
	base       *url.URL
	successURL string
	cancelURL  string
}

var _ app.PaymentGateway = (*CheckoutLinks)(nil)

func NewCheckoutLinks(baseURL, successURL, cancelURL string) (*CheckoutLinks, error) {
	if baseURL == "" {
		return &CheckoutLinks{successURL: successURL, cancelURL: cancelURL}, nil
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse checkout url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("checkout url %q must be absolute", baseURL)
	}
	return &CheckoutLinks{base: base, successURL: successURL, cancelURL: cancelURL}, nil
}

func (c *CheckoutLinks) CreateCheckout(ctx context.Context, req app.CheckoutRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if c.base == nil {
		return "", ErrNotConfigured
	}
	if !req.Plan.Paid() {
		return "", fmt.Errorf("tier %s does not need a checkout", req.Plan.Tier)
	}

	u := *c.base
	q := u.Query()
	q.Set("event_id", strconv.FormatInt(req.EventID, 10))
	q.Set("user_id", req.OwnerID)
	q.Set("tier", string(req.Plan.Tier))
	q.Set("amount", strconv.FormatInt(req.Plan.Amount, 10))
	q.Set("currency", "usd")
	q.Set("description", fmt.Sprintf("Publish %s (%s)", req.EventTitle, req.Plan.Tier))
	if c.successURL != "" {
		q.Set("success_url", c.successURL)
	}
	if c.cancelURL != "" {
		q.Set("cancel_url", c.cancelURL)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
