package filter

import (
	"slices"
	"strings"

	"apparel/storefront/internal/domain"

	"github.com/shopspring/decimal"
)

// Metadata summarizes the facet values available in a product list, for
// rendering the filter sidebar.
type Metadata struct {
	Categories []CategoryCount `json:"categories"`
	Sizes      []string        `json:"sizes"`
	Colors     []string        `json:"colors"`
	PriceRange *PriceRange     `json:"price_range"`
}

type CategoryCount struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Describe collects the facet values present in products. Categories follow
// the order of the categories slice and only those with products are listed.
func Describe(products []domain.Product, categories []domain.Category) Metadata {
	md := Metadata{
		Categories: make([]CategoryCount, 0),
		Sizes:      make([]string, 0),
		Colors:     make([]string, 0),
	}

	counts := make(map[int64]int)
	sizes := make(map[string]struct{})
	var minPrice, maxPrice decimal.Decimal

	for i, p := range products {
		if p.HasCategory() {
			counts[p.CategoryID]++
		}
		for _, s := range p.Sizes {
			sizes[normalizeSize(s)] = struct{}{}
		}
		for _, c := range p.Colors {
			md.Colors = appendColor(md.Colors, c)
		}
		if i == 0 || p.Price.LessThan(minPrice) {
			minPrice = p.Price
		}
		if i == 0 || p.Price.GreaterThan(maxPrice) {
			maxPrice = p.Price
		}
	}

	for _, c := range categories {
		if n := counts[c.ID]; n > 0 {
			md.Categories = append(md.Categories, CategoryCount{ID: c.ID, Name: c.Name, Count: n})
		}
	}

	// Known sizes first in sidebar order, then anything unusual.
	for _, s := range Sizes {
		if _, ok := sizes[s]; ok {
			md.Sizes = append(md.Sizes, s)
			delete(sizes, s)
		}
	}
	extra := make([]string, 0, len(sizes))
	for s := range sizes {
		extra = append(extra, s)
	}
	slices.Sort(extra)
	md.Sizes = append(md.Sizes, extra...)

	if len(products) > 0 {
		md.PriceRange = &PriceRange{Min: minPrice, Max: maxPrice}
	}
	return md
}

// appendColor adds c unless a colour equal to it ignoring case is already
// listed. The first spelling seen is kept.
func appendColor(colors []string, c string) []string {
	c = strings.TrimSpace(c)
	if c == "" {
		return colors
	}
	for _, have := range colors {
		if strings.EqualFold(have, c) {
			return colors
		}
	}
	return append(colors, c)
}
