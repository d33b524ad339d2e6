package filter

import (
	"slices"
	"strings"

	"apparel/storefront/internal/domain"
)

// Predicate reports whether a product passes the current filters.
type Predicate func(domain.Product) bool

// BuildPredicate composes one predicate per constrained facet. Facets are
// ORed internally and ANDed together. A product that does not declare an
// attribute never matches a constraint on it.
func BuildPredicate(state State) Predicate {
	state = state.Clone()

	var checks []Predicate
	if len(state.Categories) > 0 {
		checks = append(checks, func(p domain.Product) bool {
			return p.HasCategory() && slices.Contains(state.Categories, p.CategoryID)
		})
	}
	if len(state.Sizes) > 0 {
		allowed := make(map[string]struct{}, len(state.Sizes))
		for _, s := range state.Sizes {
			allowed[normalizeSize(s)] = struct{}{}
		}
		checks = append(checks, func(p domain.Product) bool {
			for _, s := range p.Sizes {
				if _, ok := allowed[normalizeSize(s)]; ok {
					return true
				}
			}
			return false
		})
	}
	if len(state.Colors) > 0 {
		checks = append(checks, func(p domain.Product) bool {
			for _, c := range p.Colors {
				for _, want := range state.Colors {
					if strings.EqualFold(strings.TrimSpace(c), strings.TrimSpace(want)) {
						return true
					}
				}
			}
			return false
		})
	}
	if state.Price != nil {
		r := *state.Price
		checks = append(checks, func(p domain.Product) bool {
			return r.Contains(p.Price)
		})
	}

	return func(p domain.Product) bool {
		for _, check := range checks {
			if !check(p) {
				return false
			}
		}
		return true
	}
}

// ApplyFilters returns the products matching state in their original order.
// The result is never nil.
func ApplyFilters(products []domain.Product, state State) []domain.Product {
	match := BuildPredicate(state)
	out := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if match(p) {
			out = append(out, p)
		}
	}
	return out
}
