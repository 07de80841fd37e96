package pricing

import (
	"github.com/shopspring/decimal"
	"github.com/sobia-kanwal/closet-on-wheels/internal/domain"
)

// Totals is the price breakdown shown at checkout and stored on an order.
type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Delivery decimal.Decimal `json:"delivery"`
	Total    decimal.Decimal `json:"total"`
}

// Calculator derives order totals from line items. TaxRate is a fraction of the subtotal;
// CODFee is charged only for cash-on-delivery orders.
type Calculator struct {
	TaxRate decimal.Decimal
	CODFee  decimal.Decimal
}

var (
	DefaultTaxRate = decimal.RequireFromString("0.05")
	DefaultCODFee  = decimal.NewFromInt(100)
)

func Default() Calculator {
	return Calculator{
		TaxRate: DefaultTaxRate,
		CODFee:  DefaultCODFee,
	}
}

// Calculate is pure: it neither rounds nor touches items.
func (c Calculator) Calculate(items []domain.LineItem, method domain.PaymentMethod) Totals {
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.LineTotal)
	}

	tax := subtotal.Mul(c.TaxRate)

	delivery := decimal.Zero
	if method == domain.PaymentCashOnDelivery {
		delivery = c.CODFee
	}

	return Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Delivery: delivery,
		Total:    subtotal.Add(tax).Add(delivery),
	}
}
