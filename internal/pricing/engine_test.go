package pricing

import "testing"

func TestPriceSelectionBulkScenario(t *testing.T) {
	// Three selected lines, quantities 5/10/15 (total 30), subtotal
	// 2,000,000: the 15% tier applies, discounting 300,000.
	lines := []Line{
		{Key: "a", Qty: 5, UnitPrice: 100_000},  // 500,000
		{Key: "b", Qty: 10, UnitPrice: 60_000},  // 600,000
		{Key: "c", Qty: 15, UnitPrice: 60_000},  // 900,000
		{Key: "skip", Qty: 99, UnitPrice: 10_000},
	}
	selected := map[string]bool{"a": true, "b": true, "c": true}
	snap := PriceSelection(lines, selected, OrderTypeBulk, 0)
	if snap.TotalQty != 30 {
		t.Fatalf("expected total quantity 30, got %d", snap.TotalQty)
	}
	if snap.DiscountBps != 1500 {
		t.Fatalf("expected 1500 bps, got %d", snap.DiscountBps)
	}
	if snap.Subtotal != 2_000_000 {
		t.Fatalf("expected subtotal 2000000, got %d", snap.Subtotal)
	}
	if snap.Discount != 300_000 {
		t.Fatalf("expected discount 300000, got %d", snap.Discount)
	}
	if snap.Total != 1_700_000 {
		t.Fatalf("expected total 1700000, got %d", snap.Total)
	}
}

func TestPriceSelectionRoundsHalfUp(t *testing.T) {
	// Subtotal 2,000,010 at 15% is 300,001.5, which rounds up to 300,002.
	lines := []Line{
		{Key: "a", Qty: 10, UnitPrice: 100_000},
		{Key: "b", Qty: 20, UnitPrice: 50_000, CustomFeePerUnit: 0},
		{Key: "c", Qty: 1, UnitPrice: 10},
	}
	snap := PriceSelection(lines, nil, OrderTypeBulk, 0)
	if snap.Subtotal != 2_000_010 {
		t.Fatalf("expected subtotal 2000010, got %d", snap.Subtotal)
	}
	if snap.Discount != 300_002 {
		t.Fatalf("expected discount 300002, got %d", snap.Discount)
	}
	if snap.Total != 1_700_008 {
		t.Fatalf("expected total 1700008, got %d", snap.Total)
	}
}

func TestPriceSelectionPersonalNeverDiscounts(t *testing.T) {
	lines := []Line{{Key: "a", Qty: 500, UnitPrice: 80_000}}
	snap := PriceSelection(lines, nil, OrderTypePersonal, 0)
	if snap.DiscountBps != 0 || snap.Discount != 0 {
		t.Fatalf("personal order must not discount, got bps=%d discount=%d", snap.DiscountBps, snap.Discount)
	}
	if snap.Total != 500*80_000 {
		t.Fatalf("unexpected total %d", snap.Total)
	}
}

func TestPriceSelectionCustomFeeBeforeMultiplication(t *testing.T) {
	c := Customization{Front: Part{ImageRef: "uploads/logo.png"}}
	line := Line{Key: "a", Qty: 1, UnitPrice: 120_000, CustomFeePerUnit: c.Fee()}
	snap := PriceSelection([]Line{line}, nil, OrderTypePersonal, 0)
	if snap.Subtotal != 145_000 {
		t.Fatalf("expected subtotal 145000, got %d", snap.Subtotal)
	}
	if snap.Discount != 0 {
		t.Fatalf("expected no discount, got %d", snap.Discount)
	}
}

func TestPriceSelectionEmptySelection(t *testing.T) {
	lines := []Line{{Key: "a", Qty: 3, UnitPrice: 10_000}}
	snap := PriceSelection(lines, map[string]bool{}, OrderTypeBulk, 0)
	if snap != (Snapshot{}) {
		t.Fatalf("expected zero snapshot, got %+v", snap)
	}
}

func TestPriceSelectionIdempotent(t *testing.T) {
	lines := []Line{
		{Key: "a", Qty: 12, UnitPrice: 95_000, CustomFeePerUnit: 50_000},
		{Key: "b", Qty: 7, UnitPrice: 110_000},
	}
	selected := map[string]bool{"a": true, "b": true}
	first := PriceSelection(lines, selected, OrderTypeBulk, 15_000)
	second := PriceSelection(lines, selected, OrderTypeBulk, 15_000)
	if first != second {
		t.Fatalf("expected identical snapshots, got %+v vs %+v", first, second)
	}
}

func TestPriceSelectionInvariants(t *testing.T) {
	lines := []Line{
		{Key: "a", Qty: -4, UnitPrice: 55_000},
		{Key: "b", Qty: 9, UnitPrice: -100},
		{Key: "c", Qty: 60, UnitPrice: 1, CustomFeePerUnit: -25},
	}
	for _, ot := range []OrderType{OrderTypePersonal, OrderTypeBulk} {
		snap := PriceSelection(lines, nil, ot, 0)
		if snap.Discount > snap.Subtotal {
			t.Fatalf("discount %d exceeds subtotal %d", snap.Discount, snap.Subtotal)
		}
		if snap.Total < 0 {
			t.Fatalf("negative total %d", snap.Total)
		}
	}
	// The negative quantity clamps out; 9 + 60 remain.
	snap := PriceSelection(lines, nil, OrderTypeBulk, 0)
	if snap.TotalQty != 69 {
		t.Fatalf("expected quantity 69, got %d", snap.TotalQty)
	}
}
