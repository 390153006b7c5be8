package pricing

import "strings"

// FeePerPosition is the flat charge for each printed design position,
// in minor units (IDR 25,000 per position).
const FeePerPosition Money = 25000

const (
	// MinScale and MaxScale bound the design scale slider.
	MinScale = 0.5
	MaxScale = 2.0
)

// Position identifies a printable area on a garment.
type Position string

const (
	PositionFront       Position = "front"
	PositionBack        Position = "back"
	PositionLeftSleeve  Position = "left_sleeve"
	PositionRightSleeve Position = "right_sleeve"
)

// Positions lists every printable area in canonical order.
var Positions = []Position{PositionFront, PositionBack, PositionLeftSleeve, PositionRightSleeve}

// Part holds the design placed on a single position. The storefront may send
// an "applied" toggle alongside, but that flag is never trusted: a part
// counts only when it actually carries content.
type Part struct {
	ImageRef string  `json:"imageRef,omitempty"`
	Text     string  `json:"text,omitempty"`
	OffsetX  float64 `json:"offsetX"`
	OffsetY  float64 `json:"offsetY"`
	Scale    float64 `json:"scale"`
}

// Applied reports whether the part carries printable content: an image
// reference or non-empty trimmed text. Guards against ghost charges from
// stale toggles.
func (p Part) Applied() bool {
	return strings.TrimSpace(p.ImageRef) != "" || strings.TrimSpace(p.Text) != ""
}

// Customization records the design parts for each position of one garment.
type Customization struct {
	Front       Part `json:"front"`
	Back        Part `json:"back"`
	LeftSleeve  Part `json:"leftSleeve"`
	RightSleeve Part `json:"rightSleeve"`
}

// Part returns the part at the given position.
func (c Customization) Part(pos Position) Part {
	switch pos {
	case PositionFront:
		return c.Front
	case PositionBack:
		return c.Back
	case PositionLeftSleeve:
		return c.LeftSleeve
	case PositionRightSleeve:
		return c.RightSleeve
	}
	return Part{}
}

// AppliedPositions returns the positions that carry printable content, in
// canonical order.
func (c Customization) AppliedPositions() []Position {
	out := make([]Position, 0, len(Positions))
	for _, pos := range Positions {
		if c.Part(pos).Applied() {
			out = append(out, pos)
		}
	}
	return out
}

// Fee returns the per-unit customization charge: applied positions times the
// flat per-position fee.
func (c Customization) Fee() Money {
	return Money(len(c.AppliedPositions())) * FeePerPosition
}

// Normalize clamps scales into range and zeroes the offsets of empty parts so
// equivalent customizations canonicalize to the same value (cart line keys
// hash this struct).
func (c Customization) Normalize() Customization {
	c.Front = normalizePart(c.Front)
	c.Back = normalizePart(c.Back)
	c.LeftSleeve = normalizePart(c.LeftSleeve)
	c.RightSleeve = normalizePart(c.RightSleeve)
	return c
}

func normalizePart(p Part) Part {
	p.ImageRef = strings.TrimSpace(p.ImageRef)
	p.Text = strings.TrimSpace(p.Text)
	if !p.Applied() {
		return Part{}
	}
	p.Scale = ClampScale(p.Scale)
	return p
}

// ClampScale bounds a scale factor to [MinScale, MaxScale]. A zero value
// (unset) becomes 1.
func ClampScale(s float64) float64 {
	if s == 0 {
		return 1
	}
	if s < MinScale {
		return MinScale
	}
	if s > MaxScale {
		return MaxScale
	}
	return s
}
