package ledger

import (
	"fmt"
	"strings"

	"apparel/storefront/internal/domain"

	"github.com/shopspring/decimal"
)

// VariantPolicy decides which attributes make two cart additions the same
// line item. A ledger picks one policy at construction and keeps it.
type VariantPolicy int

const (
	// TrackVariants keys line items by product, size and color.
	TrackVariants VariantPolicy = iota
	// ProductOnly keys line items by product id alone.
	ProductOnly
)

func (p VariantPolicy) String() string {
	switch p {
	case TrackVariants:
		return "track_variants"
	case ProductOnly:
		return "product_only"
	default:
		return "unknown"
	}
}

// Key identifies a line item inside one ledger.
type Key struct {
	ProductID int64
	Size      string
	Color     string
}

// String renders the key the way the cart view keys its rows.
func (k Key) String() string {
	return fmt.Sprintf("%d-%s-%s", k.ProductID, k.Size, k.Color)
}

// Descriptor describes an item the shopper wants to add, with the display
// snapshot the ledger keeps.
type Descriptor struct {
	ProductID int64
	Name      string
	ImageURL  string
	Price     decimal.Decimal
	Size      string
	Color     string
}

// DescriptorFromProduct snapshots a catalog product with the selected variant.
// The captured price is the discounted one.
func DescriptorFromProduct(p domain.Product, size, color string) Descriptor {
	return Descriptor{
		ProductID: p.ID,
		Name:      p.Name,
		ImageURL:  p.ImageURL,
		Price:     p.EffectivePrice(),
		Size:      size,
		Color:     color,
	}
}

// Resolve maps a descriptor to its identity key under this policy.
func (p VariantPolicy) Resolve(d Descriptor) (Key, error) {
	if d.ProductID == 0 {
		return Key{}, domain.ErrMissingProductID
	}
	return p.normalize(Key{ProductID: d.ProductID, Size: d.Size, Color: d.Color}), nil
}

func (p VariantPolicy) normalize(k Key) Key {
	if p == ProductOnly {
		return Key{ProductID: k.ProductID}
	}
	k.Size = strings.TrimSpace(k.Size)
	k.Color = strings.TrimSpace(k.Color)
	return k
}
