package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"apparel/storefront/internal/client"
	"apparel/storefront/internal/domain"
	"apparel/storefront/internal/filter"

	log "github.com/sirupsen/logrus"
)

// ErrSuperseded is returned by a refresh that finished after a newer one started.
var ErrSuperseded = errors.New("catalog refresh superseded")

// CatalogView holds the product list shown in the catalog and keeps it in
// step with the latest filter state. Refreshes may overlap; only the most
// recently started one may publish its result.
type CatalogView struct {
	gateway client.CatalogGateway

	mu         sync.Mutex
	seq        uint64
	cancel     context.CancelFunc
	state      filter.State
	stateGen   uint64 // bumped on every write to state
	raw        []domain.Product
	visible    []domain.Product
	categories []domain.Category
}

func NewCatalogView(gateway client.CatalogGateway) *CatalogView {
	return &CatalogView{
		gateway: gateway,
		raw:     make([]domain.Product, 0),
		visible: make([]domain.Product, 0),
	}
}

// Refresh fetches the product list and publishes it filtered by state.
// Starting a refresh cancels the one in flight. Unpublished products are
// dropped unless admin is set. On failure the published list is kept.
func (v *CatalogView) Refresh(ctx context.Context, state filter.State, admin bool) ([]domain.Product, error) {
	v.mu.Lock()
	v.seq++
	seq := v.seq
	if v.cancel != nil {
		v.cancel()
	}
	fetchCtx, cancel := context.WithCancel(ctx)
	v.cancel = cancel
	prev := v.state
	gen := v.setState(state)
	v.mu.Unlock()

	products, err := v.gateway.ListProducts(fetchCtx)

	v.mu.Lock()
	defer v.mu.Unlock()
	cancel()

	if seq != v.seq {
		log.Debugf("Discarding catalog refresh %d, refresh %d is newer", seq, v.seq)
		return nil, ErrSuperseded
	}
	v.cancel = nil

	if err != nil {
		// Put back the state the published list was built with, unless a
		// Reapply has replaced it meanwhile.
		if v.stateGen == gen {
			v.state = prev
		}
		return nil, fmt.Errorf("failed to refresh catalog: %w", err)
	}

	v.raw = visibleTo(products, admin)
	v.visible = filter.ApplyFilters(v.raw, v.state)
	log.Debugf("Catalog refresh %d: %d of %d products match %d active filters",
		seq, len(v.visible), len(v.raw), v.state.ActiveCount())

	return slices.Clone(v.visible), nil
}

// Reapply filters the last fetched list with state without going to the gateway.
func (v *CatalogView) Reapply(state filter.State) []domain.Product {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.setState(state)
	v.visible = filter.ApplyFilters(v.raw, v.state)
	return slices.Clone(v.visible)
}

// setState must be called with mu held.
func (v *CatalogView) setState(state filter.State) uint64 {
	v.state = state.Clone()
	v.stateGen++
	return v.stateGen
}

// Products returns the currently published list.
func (v *CatalogView) Products() []domain.Product {
	v.mu.Lock()
	defer v.mu.Unlock()
	return slices.Clone(v.visible)
}

// State returns the filter state the published list was computed with.
func (v *CatalogView) State() filter.State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state.Clone()
}

// LoadCategories fetches the categories offered in the filter sidebar.
func (v *CatalogView) LoadCategories(ctx context.Context) ([]domain.Category, error) {
	categories, err := v.gateway.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load categories: %w", err)
	}

	v.mu.Lock()
	v.categories = categories
	v.mu.Unlock()

	return slices.Clone(categories), nil
}

// Facets describes the facet values present in the last fetched list.
func (v *CatalogView) Facets() filter.Metadata {
	v.mu.Lock()
	defer v.mu.Unlock()
	return filter.Describe(v.raw, v.categories)
}

// ProductDetail is a product page: the product and its category, if any.
type ProductDetail struct {
	Product  domain.Product
	Category *domain.Category
}

// Product loads one product and then its category. A missing category does
// not fail the page.
func (v *CatalogView) Product(ctx context.Context, id int64, admin bool) (*ProductDetail, error) {
	if id <= 0 {
		return nil, domain.ErrMissingProductID
	}

	product, err := v.gateway.GetProduct(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load product %d: %w", id, err)
	}
	if !product.Published && !admin {
		return nil, fmt.Errorf("product %d: %w", id, domain.ErrNotFound)
	}

	detail := &ProductDetail{Product: *product}
	if !product.HasCategory() {
		return detail, nil
	}

	category, err := v.gateway.GetCategory(ctx, product.CategoryID)
	if err != nil {
		log.Warnf("Failed to load category %d for product %d: %v", product.CategoryID, id, err)
		return detail, nil
	}
	detail.Category = category
	return detail, nil
}

func visibleTo(products []domain.Product, admin bool) []domain.Product {
	if admin {
		return slices.Clone(products)
	}
	out := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if p.Published {
			out = append(out, p)
		}
	}
	return out
}
