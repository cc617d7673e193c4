package usecase

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/geocheapest/marketplace/internal/config"
	"github.com/geocheapest/marketplace/internal/domain"
)

// SettlementUC turns a paid order into vendor payouts and moves the money.
//
// Per order: lines are grouped by vendor store; commission is charged per
// line on its product subtotal at the segment's rate, rounded half-up at
// currency precision before summing; the processor fee is split across
// vendors in proportion to their gross; net = gross - commission - fee
// share. A non-positive net is persisted on hold instead of dropped so the
// ledger still accounts for every vendor.
type SettlementUC struct {
	Orders   domain.OrderRepo
	Payouts  domain.PayoutRepo
	Stores   domain.StoreRepo
	Products domain.ProductRepo
	Payments domain.PaymentConnector
	Ledger   domain.LedgerExporter
	Rates    config.Rates
	Currency string
}

// Checkout persists the optimized cart as a pending order and opens a
// payment session for it.
func (uc *SettlementUC) Checkout(ctx context.Context, cart *OptimizedCart, customerRef string) (*domain.Order, string, error) {
	order := &domain.Order{
		ID:          uuid.New(),
		CustomerRef: customerRef,
		Currency:    uc.Currency,
		Subtotal:    cart.Subtotal,
		Shipping:    cart.Shipping,
		Total:       cart.Total,
		Status:      domain.OrderPending,
	}
	for _, sel := range cart.Selections {
		segment := domain.SegmentSealed
		if p, err := uc.Products.FindByID(ctx, sel.Item.ProductID); err == nil {
			segment = p.Segment
		}
		line := domain.OrderLine{
			ID:        uuid.New(),
			OrderID:   order.ID,
			ProductID: sel.Item.ProductID,
			ListingID: sel.Listing.ID,
			StoreID:   sel.Listing.StoreID,
			Segment:   segment,
			Quantity:  sel.Item.Quantity,
			UnitPrice: sel.UnitPrice,
			Shipping:  sel.Shipping,
		}
		uc.priceLine(&line)
		order.Commission = order.Commission.Add(line.Commission)
		order.Lines = append(order.Lines, line)
	}

	paymentRef, checkoutURL, err := uc.Payments.ChargeMultiVendorCart(ctx, domain.ChargeRequest{
		OrderID:     order.ID,
		Currency:    order.Currency,
		Amount:      order.Total,
		Description: fmt.Sprintf("order %s (%d items)", order.ID, len(order.Lines)),
		CustomerRef: customerRef,
	})
	if err != nil {
		return nil, "", fmt.Errorf("open payment session: %w", err)
	}
	order.PaymentRef = paymentRef
	if err := uc.Orders.Create(ctx, order); err != nil {
		return nil, "", fmt.Errorf("create order: %w", err)
	}
	return order, checkoutURL, nil
}

// CompletePayment is invoked when the processor confirms the charge. The
// order flips to paid and is settled immediately.
func (uc *SettlementUC) CompletePayment(ctx context.Context, paymentRef string) ([]domain.Payout, error) {
	order, err := uc.Orders.FindByPaymentRef(ctx, paymentRef)
	if err != nil {
		return nil, fmt.Errorf("order for payment %s: %w", paymentRef, err)
	}
	if err := uc.Orders.UpdateStatus(ctx, order.ID, domain.OrderPaid); err != nil {
		return nil, err
	}
	for _, line := range order.Lines {
		if err := uc.Products.IncrementSales(ctx, line.ProductID, line.Quantity); err != nil {
			log.Warn().Err(err).Str("product", line.ProductID.String()).Msg("sales counter not updated")
		}
	}
	return uc.Settle(ctx, order)
}

// Settle computes and executes one payout per vendor in the order.
func (uc *SettlementUC) Settle(ctx context.Context, order *domain.Order) ([]domain.Payout, error) {
	if len(order.Lines) == 0 {
		return nil, fmt.Errorf("order %s has no lines", order.ID)
	}

	type vendorTotals struct {
		storeID    string
		gross      decimal.Decimal
		commission decimal.Decimal
	}
	totals := make(map[string]*vendorTotals)
	var storeOrder []string
	orderGross := decimal.Zero
	orderCommission := decimal.Zero
	for i := range order.Lines {
		line := &order.Lines[i]
		uc.priceLine(line)
		vt, ok := totals[line.StoreID]
		if !ok {
			vt = &vendorTotals{storeID: line.StoreID}
			totals[line.StoreID] = vt
			storeOrder = append(storeOrder, line.StoreID)
		}
		vt.gross = vt.gross.Add(line.Gross())
		vt.commission = vt.commission.Add(line.Commission)
		orderGross = orderGross.Add(line.Gross())
		orderCommission = orderCommission.Add(line.Commission)
	}

	totalFee := uc.processorFee(ctx, order, orderGross)

	payouts := make([]domain.Payout, 0, len(totals))
	for _, storeID := range storeOrder {
		vt := totals[storeID]
		feeShare := vt.gross.Div(orderGross).Mul(totalFee).Round(2)
		net := vt.gross.Sub(vt.commission).Sub(feeShare)

		payout := domain.Payout{
			ID:         uuid.New(),
			OrderID:    order.ID,
			StoreID:    storeID,
			Currency:   order.Currency,
			Gross:      vt.gross,
			Commission: vt.commission,
			FeeShare:   feeShare,
			Net:        net,
			Status:     domain.PayoutPending,
		}
		if !net.IsPositive() {
			payout.Status = domain.PayoutOnHold
			log.Warn().
				Str("order", order.ID.String()).
				Str("store", storeID).
				Str("net", net.StringFixed(2)).
				Msg("payout not positive, held")
		}
		if err := uc.Payouts.Create(ctx, &payout); err != nil {
			return nil, fmt.Errorf("create payout for %s: %w", storeID, err)
		}
		if payout.Status == domain.PayoutPending {
			uc.transfer(ctx, &payout)
		}
		payouts = append(payouts, payout)
	}

	order.Commission = orderCommission
	order.ProcessorFee = totalFee
	order.Status = domain.OrderSettled
	if err := uc.Orders.Update(ctx, order); err != nil {
		return nil, err
	}
	return payouts, nil
}

// priceLine fixes the line's commission rate and rounds its commission at
// currency precision, so vendor totals sum already-rounded line amounts.
// A rate persisted on the line wins over the current configuration.
func (uc *SettlementUC) priceLine(line *domain.OrderLine) {
	if line.CommissionRate.IsZero() {
		line.CommissionRate = uc.rateFor(line.Segment)
	}
	line.Commission = line.ProductSubtotal().Mul(line.CommissionRate).Round(2)
	line.NetToVendor = line.Gross().Sub(line.Commission)
}

// transfer pushes one payout to the vendor's connected account. The payout
// goes processing while the transfer is in flight; failure drops it back to
// pending for a later retry pass.
func (uc *SettlementUC) transfer(ctx context.Context, payout *domain.Payout) {
	store, err := uc.Stores.FindByID(ctx, payout.StoreID)
	if err != nil || store.ConnectAccount == "" {
		log.Warn().Err(err).Str("store", payout.StoreID).Msg("no connected account, payout left pending")
		return
	}
	payout.Status = domain.PayoutProcessing
	if err := uc.Payouts.Update(ctx, payout); err != nil {
		log.Error().Err(err).Str("payout", payout.ID.String()).Msg("payout status not persisted")
	}
	ref, err := uc.Payments.Transfer(ctx, store.ConnectAccount, payout.Net, payout.Currency, payout.OrderID)
	if err != nil {
		log.Error().Err(err).Str("store", payout.StoreID).Str("order", payout.OrderID.String()).
			Msg("transfer failed, payout left pending")
		payout.Status = domain.PayoutPending
		if uerr := uc.Payouts.Update(ctx, payout); uerr != nil {
			log.Error().Err(uerr).Str("payout", payout.ID.String()).Msg("payout status not persisted")
		}
		return
	}
	payout.TransferRef = ref
	payout.Status = domain.PayoutCompleted
	if err := uc.Payouts.Update(ctx, payout); err != nil {
		log.Error().Err(err).Str("payout", payout.ID.String()).Msg("payout status not persisted")
	}
}

// processorFee asks the connector for the exact charge fee and falls back to
// the configured card rate when the connector cannot report one.
func (uc *SettlementUC) processorFee(ctx context.Context, order *domain.Order, orderGross decimal.Decimal) decimal.Decimal {
	if order.PaymentRef != "" {
		fee, err := uc.Payments.FeeForPayment(ctx, order.PaymentRef)
		if err == nil && fee.IsPositive() {
			return fee
		}
		if err != nil {
			log.Warn().Err(err).Str("order", order.ID.String()).Msg("fee lookup failed, using fallback rate")
		}
	}
	return uc.Rates.CardPercentFee.Mul(orderGross).Add(uc.Rates.CardFixedFee).Round(2)
}

func (uc *SettlementUC) rateFor(segment string) decimal.Decimal {
	switch segment {
	case domain.SegmentSingles, domain.SegmentGraded:
		return uc.Rates.CommissionSingles
	default:
		return uc.Rates.CommissionSealed
	}
}

// ReversePayouts refunds the order's charge and marks its payouts reversed.
// Held and pending payouts reverse without money movement; completed
// transfers are clawed back from the vendor's connected account first.
func (uc *SettlementUC) ReversePayouts(ctx context.Context, orderID uuid.UUID) error {
	order, err := uc.Orders.FindByID(ctx, orderID)
	if err != nil {
		return fmt.Errorf("order %s: %w", orderID, err)
	}
	if order.PaymentRef != "" {
		if err := uc.Payments.Refund(ctx, order.PaymentRef); err != nil {
			return fmt.Errorf("refund payment %s: %w", order.PaymentRef, err)
		}
	}
	payouts, err := uc.Payouts.ByOrder(ctx, orderID)
	if err != nil {
		return err
	}
	for i := range payouts {
		if payouts[i].Status == domain.PayoutCompleted && payouts[i].TransferRef != "" {
			if err := uc.Payments.ReverseTransfer(ctx, payouts[i].TransferRef); err != nil {
				return fmt.Errorf("reverse transfer for %s: %w", payouts[i].StoreID, err)
			}
		}
		payouts[i].Status = domain.PayoutReversed
		if err := uc.Payouts.Update(ctx, &payouts[i]); err != nil {
			return fmt.Errorf("reverse payout %s: %w", payouts[i].ID, err)
		}
	}
	if err := uc.Orders.UpdateStatus(ctx, orderID, domain.OrderRefunded); err != nil {
		return err
	}
	log.Info().Str("order", orderID.String()).Int("payouts", len(payouts)).Msg("payouts reversed")
	return nil
}

// ExportLedger renders the order's payout ledger as a spreadsheet.
func (uc *SettlementUC) ExportLedger(ctx context.Context, orderID uuid.UUID) ([]byte, error) {
	order, err := uc.Orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("order %s: %w", orderID, err)
	}
	payouts, err := uc.Payouts.ByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return uc.Ledger.Export(*order, payouts)
}
