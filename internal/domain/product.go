package domain

import (
	"io"
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Product is a catalog entry as the storefront sees it.
// Variant attributes are optional: a nil Sizes or Colors slice means the
// product does not declare that attribute at all.
type Product struct {
	ID              int64
	Name            string
	Description     string
	Price           decimal.Decimal
	ImageURL        string
	CategoryID      int64 // 0 when the product has no category
	Published       bool
	Sizes           []string
	Colors          []string
	DiscountPercent int
}

// HasCategory reports whether the product carries a category reference.
func (p Product) HasCategory() bool {
	return p.CategoryID != 0
}

// EffectivePrice is the unit price after the product discount, rounded to cents.
func (p Product) EffectivePrice() decimal.Decimal {
	if p.DiscountPercent <= 0 {
		return p.Price
	}
	if p.DiscountPercent >= 100 {
		return decimal.Zero
	}
	factor := hundred.Sub(decimal.NewFromInt(int64(p.DiscountPercent))).Div(hundred)
	return p.Price.Mul(factor).Round(2)
}

// ParseSizes decodes the backend's comma-encoded size list ("S, M,L").
// Blank entries are dropped; an input with no sizes yields nil.
func ParseSizes(raw string) []string {
	var sizes []string
	for _, part := range strings.Split(raw, ",") {
		size := strings.TrimSpace(part)
		if size == "" {
			continue
		}
		sizes = append(sizes, size)
	}
	return sizes
}

// FormatSizes encodes sizes back into the comma-separated wire form.
func FormatSizes(sizes []string) string {
	trimmed := make([]string, 0, len(sizes))
	for _, size := range sizes {
		if s := strings.TrimSpace(size); s != "" {
			trimmed = append(trimmed, s)
		}
	}
	return strings.Join(trimmed, ",")
}

// ProductInput is the admin write payload for creating or replacing a product.
type ProductInput struct {
	Name        string          `validate:"required,max=100"`
	Description string          `validate:"max=5000"`
	Price       decimal.Decimal `validate:"-"`
	CategoryID  int64           `validate:"required,gt=0"`
	Sizes       []string        `validate:"dive,required,max=10"`
	Published   bool
}

// CategoryInput is the admin write payload for a category.
type CategoryInput struct {
	Name string `validate:"required,max=100"`
}

// ProductPatch is a partial product update. Nil fields are left unchanged.
type ProductPatch struct {
	Name      *string
	Price     *decimal.Decimal
	Published *bool
}

// ImageUpload is an image file sent along with a product write.
type ImageUpload struct {
	FileName string
	Content  io.Reader
}
