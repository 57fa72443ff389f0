package payments

import (
	"context"
	"fmt"
	"strconv"

	"prediction-pool/internal/app"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

// StripeCheckout opens Stripe Checkout sessions. The event, owner and tier travel in the
// session metadata so the confirmation relay can publish the right event.
type StripeCheckout struct {
	api        *client.API
	successURL string
	cancelURL  string
}

var _ app.PaymentGateway = (*StripeCheckout)(nil)

// NewStripeCheckout uses the default Stripe backends when backends is nil.
func NewStripeCheckout(secretKey, successURL, cancelURL string, backends *stripe.Backends) *StripeCheckout {
	return &StripeCheckout{
		api:        client.New(secretKey, backends),
		successURL: successURL,
		cancelURL:  cancelURL,
	}
}

func (s *StripeCheckout) CreateCheckout(ctx context.Context, req app.CheckoutRequest) (string, error) {
	if !req.Plan.Paid() {
		return "", fmt.Errorf("tier %s does not need a checkout", req.Plan.Tier)
	}
	eventID := strconv.FormatInt(req.EventID, 10)
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(s.successURL),
		CancelURL:         stripe.String(s.cancelURL),
		ClientReferenceID: stripe.String(eventID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			Quantity: stripe.Int64(1),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(string(stripe.CurrencyUSD)),
				UnitAmount: stripe.Int64(req.Plan.Amount),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(fmt.Sprintf("Publish %s (%s)", req.EventTitle, req.Plan.Tier)),
				},
			},
		}},
	}
	params.Context = ctx
	params.AddMetadata("event_id", eventID)
	params.AddMetadata("user_id", req.OwnerID)
	params.AddMetadata("tier", string(req.Plan.Tier))

	session, err := s.api.CheckoutSessions.New(params)
	if err != nil {
		return "", fmt.Errorf("create stripe checkout session: %w", err)
	}
	if session.URL == "" {
		return "", fmt.Errorf("stripe checkout session %s has no url", session.ID)
	}
	return session.URL, nil
}
