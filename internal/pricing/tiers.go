package pricing

// Tier maps a minimum total quantity to a discount rate in basis points.
type Tier struct {
	MinQty int
	Bps    int
}

// BulkTiers is the fixed bulk-discount table, ordered by ascending threshold.
// The highest qualifying tier wins; tiers do not stack.
var BulkTiers = []Tier{
	{MinQty: 10, Bps: 1000},
	{MinQty: 25, Bps: 1500},
	{MinQty: 50, Bps: 2000},
	{MinQty: 100, Bps: 3000},
}

// ResolveDiscountBps returns the discount rate for the given total quantity.
// Quantities below the lowest threshold get 0; negative input is treated as 0.
func ResolveDiscountBps(totalQty int) int {
	if totalQty < 0 {
		totalQty = 0
	}
	for i := len(BulkTiers) - 1; i >= 0; i-- {
		if totalQty >= BulkTiers[i].MinQty {
			return BulkTiers[i].Bps
		}
	}
	return 0
}
