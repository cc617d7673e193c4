package stripeconnect

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/checkout/session"
	"github.com/stripe/stripe-go/v81/paymentintent"
	"github.com/stripe/stripe-go/v81/refund"
	"github.com/stripe/stripe-go/v81/transfer"
	"github.com/stripe/stripe-go/v81/transferreversal"

	"github.com/geocheapest/marketplace/internal/domain"
)

// Connector implements the payment port on Stripe Connect. Charges are
// collected on the platform account; vendor payouts move as transfers to
// connected accounts grouped by order.
type Connector struct {
	successURL string
	cancelURL  string
}

func NewConnector(apiKey, successURL, cancelURL string) *Connector {
	stripe.Key = apiKey
	return &Connector{successURL: successURL, cancelURL: cancelURL}
}

func (c *Connector) ChargeMultiVendorCart(ctx context.Context, req domain.ChargeRequest) (string, string, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(c.successURL),
		CancelURL:         stripe.String(c.cancelURL),
		ClientReferenceID: stripe.String(req.OrderID.String()),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(strings.ToLower(req.Currency)),
				UnitAmount: stripe.Int64(toCents(req.Amount)),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(req.Description),
				},
			},
			Quantity: stripe.Int64(1),
		}},
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			TransferGroup: stripe.String(req.OrderID.String()),
		},
	}
	params.Context = ctx
	s, err := session.New(params)
	if err != nil {
		return "", "", fmt.Errorf("create checkout session: %w", err)
	}
	return s.ID, s.URL, nil
}

// FeeForPayment reads the processor fee off the charge's balance
// transaction. The payment reference may be a checkout session or a payment
// intent id.
func (c *Connector) FeeForPayment(ctx context.Context, paymentRef string) (decimal.Decimal, error) {
	piID := paymentRef
	if strings.HasPrefix(paymentRef, "cs_") {
		var err error
		piID, err = c.paymentIntentFor(ctx, paymentRef)
		if err != nil {
			return decimal.Zero, err
		}
	}
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	params.AddExpand("latest_charge.balance_transaction")
	pi, err := paymentintent.Get(piID, params)
	if err != nil {
		return decimal.Zero, fmt.Errorf("get payment intent %s: %w", piID, err)
	}
	if pi.LatestCharge == nil || pi.LatestCharge.BalanceTransaction == nil {
		return decimal.Zero, fmt.Errorf("payment %s has no balance transaction yet", piID)
	}
	return fromCents(pi.LatestCharge.BalanceTransaction.Fee), nil
}

func (c *Connector) Transfer(ctx context.Context, connectAccount string, amount decimal.Decimal, currency string, orderID uuid.UUID) (string, error) {
	params := &stripe.TransferParams{
		Amount:        stripe.Int64(toCents(amount)),
		Currency:      stripe.String(strings.ToLower(currency)),
		Destination:   stripe.String(connectAccount),
		TransferGroup: stripe.String(orderID.String()),
	}
	params.Context = ctx
	t, err := transfer.New(params)
	if err != nil {
		return "", fmt.Errorf("transfer to %s: %w", connectAccount, err)
	}
	return t.ID, nil
}

func (c *Connector) Refund(ctx context.Context, paymentRef string) error {
	piID := paymentRef
	if strings.HasPrefix(paymentRef, "cs_") {
		var err error
		piID, err = c.paymentIntentFor(ctx, paymentRef)
		if err != nil {
			return err
		}
	}
	params := &stripe.RefundParams{PaymentIntent: stripe.String(piID)}
	params.Context = ctx
	if _, err := refund.New(params); err != nil {
		return fmt.Errorf("refund payment %s: %w", piID, err)
	}
	return nil
}

// ReverseTransfer claws a completed vendor transfer back to the platform
// balance. Transfers are separate from the charge, so refunding the buyer
// does not reverse them automatically.
func (c *Connector) ReverseTransfer(ctx context.Context, transferRef string) error {
	params := &stripe.TransferReversalParams{ID: stripe.String(transferRef)}
	params.Context = ctx
	if _, err := transferreversal.New(params); err != nil {
		return fmt.Errorf("reverse transfer %s: %w", transferRef, err)
	}
	return nil
}

func (c *Connector) paymentIntentFor(ctx context.Context, sessionID string) (string, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	s, err := session.Get(sessionID, params)
	if err != nil {
		return "", fmt.Errorf("get checkout session %s: %w", sessionID, err)
	}
	if s.PaymentIntent == nil {
		return "", fmt.Errorf("session %s has no payment intent", sessionID)
	}
	return s.PaymentIntent.ID, nil
}

func toCents(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

func fromCents(cents int64) decimal.Decimal {
	return decimal.NewFromInt(cents).Shift(-2)
}
