// Package money holds the pure monetary calculations shared by the order
// and return workflows. All arithmetic is exact decimal; callers are
// responsible for validating quantities and prices before calling in.
package money

import "github.com/shopspring/decimal"

// Line is a unit price paired with a quantity.
type Line struct {
	UnitPrice decimal.Decimal
	Qty       int
}

// PricedItem is a purchased line keyed by product, carrying its price
// snapshot.
type PricedItem struct {
	ProductID int64
	UnitPrice decimal.Decimal
}

// ReturnedQty is a returned quantity keyed by product.
type ReturnedQty struct {
	ProductID int64
	Qty       int
}

// TotalAmount returns the sum of UnitPrice*Qty over all lines. An empty
// input yields zero.
func TotalAmount(lines []Line) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Qty))))
	}
	return total
}

// RefundAmount accumulates UnitPrice*Qty for every returned item whose
// product appears among the purchased lines. A returned item with no
// matching purchased line contributes zero; the return workflow validates
// membership before persisting, so that case is unreachable through the
// public API.
func RefundAmount(purchased []PricedItem, returned []ReturnedQty) decimal.Decimal {
	prices := make(map[int64]decimal.Decimal, len(purchased))
	for _, p := range purchased {
		prices[p.ProductID] = p.UnitPrice
	}

	total := decimal.Zero
	for _, r := range returned {
		price, ok := prices[r.ProductID]
		if !ok {
			continue
		}
		total = total.Add(price.Mul(decimal.NewFromInt(int64(r.Qty))))
	}
	return total
}
