package engine

import "fmt"

// Variant selects one of the pictures a core renders each frame.
type Variant int

const (
	VariantRaw Variant = iota
	VariantBorder
	VariantComposite
	VariantCompositeBorder
)

// VariantFor maps the two session flags to a picture variant.
func VariantFor(composite, border bool) Variant {
	switch {
	case composite && border:
		return VariantCompositeBorder
	case composite:
		return VariantComposite
	case border:
		return VariantBorder
	default:
		return VariantRaw
	}
}

func (v Variant) String() string {
	switch v {
	case VariantRaw:
		return "raw"
	case VariantBorder:
		return "border"
	case VariantComposite:
		return "composite"
	case VariantCompositeBorder:
		return "composite+border"
	default:
		return fmt.Sprintf("Variant(%d)", int(v))
	}
}
