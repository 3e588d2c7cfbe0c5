// Package billing decides which students paid for the month and locks out the others.
package billing

import (
	"github.com/shopspring/decimal"

	"github.com/trezcool/alama/core/school"
)

var hundred = decimal.NewFromInt(100)

// EffectivePrice returns what the student owes against the pricing: the tier price of the
// pay's column less its discount. Percent discounts are taken from the tier price.
// The result is never negative.
func EffectivePrice(p school.Pricing, pay school.Pay) decimal.Decimal {
	price := p.Price(pay.PriceColumn)
	discount := pay.Discount
	if pay.DiscountType == school.DiscountPercent {
		discount = price.Mul(pay.Discount).Div(hundred)
	}
	return decimal.Max(price.Sub(discount), decimal.Zero)
}

// Balance is a student's standing against a pricing.
type Balance struct {
	StudentID string          `json:"student_id"`
	Price     decimal.Decimal `json:"price"`
	Paid      decimal.Decimal `json:"paid"`
	FullyPaid bool            `json:"fully_paid"`
}

// Due returns what is left to pay.
func (b Balance) Due() decimal.Decimal {
	return decimal.Max(b.Price.Sub(b.Paid), decimal.Zero)
}

type Evaluation struct {
	Pricing   school.Pricing `json:"pricing"`
	Payments  []school.Pay   `json:"payments"`
	Balances  []Balance      `json:"balances"`
	FullyPaid []string       `json:"fully_paid"`
	// Deactivated holds the students locked out by this run only.
	Deactivated []string `json:"deactivated"`
}

// Evaluate sums the pays of each student against the pricing. Only pays of the pricing
// are considered; the discount terms of a student's last pay apply.
func Evaluate(p school.Pricing, pays []school.Pay) Evaluation {
	ev := Evaluation{
		Pricing:     p,
		Payments:    make([]school.Pay, 0, len(pays)),
		Balances:    make([]Balance, 0, len(pays)),
		FullyPaid:   make([]string, 0, len(pays)),
		Deactivated: make([]string, 0),
	}

	index := make(map[string]int)
	for _, pay := range pays {
		if pay.PricingID != p.ID {
			continue
		}
		ev.Payments = append(ev.Payments, pay)

		i, ok := index[pay.StudentID]
		if !ok {
			i = len(ev.Balances)
			index[pay.StudentID] = i
			ev.Balances = append(ev.Balances, Balance{StudentID: pay.StudentID})
		}
		b := &ev.Balances[i]
		b.Paid = b.Paid.Add(pay.Amount)
		b.Price = EffectivePrice(p, pay)
	}

	for i := range ev.Balances {
		b := &ev.Balances[i]
		b.FullyPaid = b.Paid.GreaterThanOrEqual(b.Price)
		if b.FullyPaid {
			ev.FullyPaid = append(ev.FullyPaid, b.StudentID)
		}
	}
	return ev
}
