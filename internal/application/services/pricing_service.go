package services

import (
	"github.com/shopspring/decimal"
	"github.com/zatekoja/orderdesk/backend/internal/domain/entities"
)

var hundred = decimal.NewFromInt(100)

// OrderTotals are the display figures derived for an order
type OrderTotals struct {
	Tests     decimal.Decimal
	Medicines decimal.Decimal
	Grand     decimal.Decimal
	Due       decimal.Decimal
}

// LineAmount returns the GST-inclusive amount of a line item at its baseline quantity
func LineAmount(item entities.LineItem) decimal.Decimal {
	return LineAmountAt(item, item.BaselineQuantity())
}

// LineAmountAt returns price*qty + price*qty*rate/100. Malformed numeric
// fields were already sanitized to zero by the line item, so the result is
// never negative.
func LineAmountAt(item entities.LineItem, quantity int) decimal.Decimal {
	if quantity <= 0 {
		return decimal.Zero
	}
	base := decimal.NewFromFloat(item.UnitPrice()).Mul(decimal.NewFromInt(int64(quantity)))
	tax := base.Mul(decimal.NewFromFloat(item.TaxRate())).Div(hundred)
	return base.Add(tax)
}

// Total sums line amounts at baseline quantity. An empty collection totals zero.
func Total[T entities.LineItem](items []T) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(LineAmount(item))
	}
	return total
}

// ComputeOrderTotals derives tests, medicines, grand and due figures for an
// order. quantity reports the working quantity of a medicine; nil uses baselines.
func ComputeOrderTotals(order *entities.Order, quantity func(itemID string) (int, bool)) OrderTotals {
	tests := Total(order.Tests())

	medicines := decimal.Zero
	for _, m := range order.Medicines() {
		qty := m.BaselineQuantity()
		if quantity != nil {
			if q, ok := quantity(m.ID); ok {
				qty = q
			}
		}
		medicines = medicines.Add(LineAmountAt(m, qty))
	}

	return OrderTotals{
		Tests:     tests.Round(2),
		Medicines: medicines.Round(2),
		Grand:     tests.Add(medicines).Round(2),
		Due:       DueAmount(tests, medicines, order.PaidAmount).Round(2),
	}
}
