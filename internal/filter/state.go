package filter

import (
	"fmt"
	"slices"
	"strings"

	"apparel/storefront/internal/domain"

	"github.com/shopspring/decimal"
)

// Sizes offered by the catalog sidebar.
var Sizes = []string{"XS", "S", "M", "L", "XL", "XXL"}

// PriceRange is an inclusive [Min, Max] bound on the unit price.
type PriceRange struct {
	Min decimal.Decimal `json:"min"`
	Max decimal.Decimal `json:"max"`
}

func (r PriceRange) Contains(price decimal.Decimal) bool {
	return price.GreaterThanOrEqual(r.Min) && price.LessThanOrEqual(r.Max)
}

// State holds the facets selected in the catalog view.
// An empty facet matches everything. A nil Price means the full range.
type State struct {
	Categories []int64     `json:"categories,omitempty"`
	Sizes      []string    `json:"sizes,omitempty"`
	Colors     []string    `json:"colors,omitempty"`
	Price      *PriceRange `json:"price,omitempty"`
}

// ToggleCategory adds the category to the selection or removes it if present.
func (s *State) ToggleCategory(id int64) {
	if i := slices.Index(s.Categories, id); i >= 0 {
		s.Categories = slices.Delete(s.Categories, i, i+1)
		return
	}
	s.Categories = append(s.Categories, id)
}

func (s *State) ToggleSize(size string) {
	s.Sizes = toggleLabel(s.Sizes, normalizeSize(size))
}

func (s *State) ToggleColor(color string) {
	s.Colors = toggleLabel(s.Colors, strings.TrimSpace(color))
}

// SetPriceRange restricts prices to [lo, hi].
func (s *State) SetPriceRange(lo, hi decimal.Decimal) error {
	if lo.IsNegative() || hi.IsNegative() {
		return fmt.Errorf("%w: price bounds must not be negative", domain.ErrInvalidInput)
	}
	if lo.GreaterThan(hi) {
		return fmt.Errorf("%w: min price %s is above max price %s", domain.ErrInvalidInput, lo, hi)
	}
	s.Price = &PriceRange{Min: lo, Max: hi}
	return nil
}

func (s *State) ClearPriceRange() {
	s.Price = nil
}

// Reset restores every facet to "no restriction".
func (s *State) Reset() {
	*s = State{}
}

// ActiveCount is the number of selected facet values, counting a price range as one.
func (s State) ActiveCount() int {
	n := len(s.Categories) + len(s.Sizes) + len(s.Colors)
	if s.Price != nil {
		n++
	}
	return n
}

func (s State) IsEmpty() bool {
	return s.ActiveCount() == 0
}

// Clone returns a deep copy so a snapshot cannot be changed through the original.
func (s State) Clone() State {
	out := State{
		Categories: slices.Clone(s.Categories),
		Sizes:      slices.Clone(s.Sizes),
		Colors:     slices.Clone(s.Colors),
	}
	if s.Price != nil {
		r := *s.Price
		out.Price = &r
	}
	return out
}

func toggleLabel(labels []string, label string) []string {
	if label == "" {
		return labels
	}
	for i, l := range labels {
		if strings.EqualFold(l, label) {
			return slices.Delete(labels, i, i+1)
		}
	}
	return append(labels, label)
}

func normalizeSize(size string) string {
	return strings.ToUpper(strings.TrimSpace(size))
}
