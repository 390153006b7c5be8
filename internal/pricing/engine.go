package pricing

// Money represents a monetary value stored in minor units (IDR has no
// fractional subunit in practice, so one unit equals one rupiah).
type Money = int64

// OrderType distinguishes full-price personal orders from quantity-discounted
// bulk orders.
type OrderType string

const (
	OrderTypePersonal OrderType = "personal"
	OrderTypeBulk     OrderType = "bulk"
)

// Line describes a cart line used for pricing calculation. CustomFeePerUnit
// is derived from the line's customization and added to the unit price before
// quantity multiplication.
type Line struct {
	Key              string
	ProductID        string
	Size             string
	ColorCode        string
	ColorName        string
	Qty              int
	UnitPrice        Money
	CustomFeePerUnit Money
}

// Snapshot aggregates the computed pricing components for a selection. It is
// immutable once returned; callers recompute on any input change.
type Snapshot struct {
	Subtotal    Money `json:"subtotalCents"`
	DiscountBps int   `json:"discountBps"`
	Discount    Money `json:"discountCents"`
	Shipping    Money `json:"shippingCents"`
	Total       Money `json:"totalCents"`
	TotalQty    int   `json:"totalQuantity"`
}

// DiscountRate reports the applied rate as a fraction for display purposes.
// Money math never touches this value.
func (s Snapshot) DiscountRate() float64 {
	return float64(s.DiscountBps) / 10000
}

// PriceSelection computes a priced snapshot over the selected lines.
//
// A nil selected set selects every line (cart totals view); an empty non-nil
// set selects nothing and yields the zero snapshot. Lines with non-positive
// quantity contribute nothing. Only bulk orders are eligible for tier
// discounting. The function is pure: identical inputs produce identical
// snapshots.
func PriceSelection(lines []Line, selected map[string]bool, orderType OrderType, shipping Money) Snapshot {
	var subtotal Money
	totalQty := 0
	for _, ln := range lines {
		if selected != nil && !selected[ln.Key] {
			continue
		}
		if ln.Qty <= 0 {
			continue
		}
		unit := ln.UnitPrice
		if unit < 0 {
			unit = 0
		}
		fee := ln.CustomFeePerUnit
		if fee < 0 {
			fee = 0
		}
		subtotal += (unit + fee) * Money(ln.Qty)
		totalQty += ln.Qty
	}

	bps := 0
	if orderType == OrderTypeBulk {
		bps = ResolveDiscountBps(totalQty)
	}
	discount := roundHalfUpBps(subtotal, bps)
	if discount > subtotal {
		discount = subtotal
	}
	if shipping < 0 {
		shipping = 0
	}
	total := subtotal - discount + shipping
	return Snapshot{
		Subtotal:    subtotal,
		DiscountBps: bps,
		Discount:    discount,
		Shipping:    shipping,
		Total:       total,
		TotalQty:    totalQty,
	}
}

// roundHalfUpBps applies a basis-point rate to an amount, rounding half up to
// the nearest whole minor unit. Amounts are non-negative by the time this is
// called.
func roundHalfUpBps(amount Money, bps int) Money {
	if amount <= 0 || bps <= 0 {
		return 0
	}
	return (amount*Money(bps) + 5000) / 10000
}
