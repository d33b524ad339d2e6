package service

import (
	"context"
	"fmt"
	"sync"

	"apparel/storefront/internal/client"
	"apparel/storefront/internal/domain"
	"apparel/storefront/internal/session"
	"apparel/storefront/internal/validator"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Dashboard is the admin view of the whole catalog, unpublished products included.
type Dashboard struct {
	Products   []domain.Product
	Categories []domain.Category
}

// Admin performs catalog writes on behalf of an admin session. Every write
// is followed by a reload of the dashboard.
type Admin struct {
	gateway client.CatalogGateway

	mu   sync.Mutex
	last *Dashboard
}

func NewAdmin(gateway client.CatalogGateway) *Admin {
	return &Admin{gateway: gateway}
}

// Dashboard loads products and categories in parallel.
func (a *Admin) Dashboard(ctx context.Context, sess *session.Session) (*Dashboard, error) {
	if err := sess.RequireAdmin(); err != nil {
		return nil, err
	}

	var dashboard Dashboard
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		products, err := a.gateway.ListProducts(gctx)
		if err != nil {
			return err
		}
		dashboard.Products = products
		return nil
	})
	g.Go(func() error {
		categories, err := a.gateway.ListCategories(gctx)
		if err != nil {
			return err
		}
		dashboard.Categories = categories
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load dashboard: %w", err)
	}

	a.mu.Lock()
	a.last = &dashboard
	a.mu.Unlock()

	return &dashboard, nil
}

// LastDashboard returns the most recently loaded dashboard, or nil.
func (a *Admin) LastDashboard() *Dashboard {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.last
}

func (a *Admin) CreateProduct(ctx context.Context, sess *session.Session, in domain.ProductInput, image *domain.ImageUpload) (*domain.Product, error) {
	if err := a.checkProduct(sess, in); err != nil {
		return nil, err
	}

	product, err := a.gateway.CreateProduct(ctx, in, image)
	if err != nil {
		return nil, err
	}
	log.Infof("Product %d created by %s", product.ID, sess.User().Username)

	a.reload(ctx, sess)
	return product, nil
}

func (a *Admin) UpdateProduct(ctx context.Context, sess *session.Session, id int64, in domain.ProductInput, image *domain.ImageUpload) (*domain.Product, error) {
	if id <= 0 {
		return nil, domain.ErrMissingProductID
	}
	if err := a.checkProduct(sess, in); err != nil {
		return nil, err
	}

	product, err := a.gateway.UpdateProduct(ctx, id, in, image)
	if err != nil {
		return nil, err
	}
	log.Infof("Product %d updated by %s", id, sess.User().Username)

	a.reload(ctx, sess)
	return product, nil
}

// TogglePublished flips the published flag with a partial update.
func (a *Admin) TogglePublished(ctx context.Context, sess *session.Session, product domain.Product) (*domain.Product, error) {
	if err := sess.RequireAdmin(); err != nil {
		return nil, err
	}
	if product.ID <= 0 {
		return nil, domain.ErrMissingProductID
	}

	published := !product.Published
	updated, err := a.gateway.PatchProduct(ctx, product.ID, domain.ProductPatch{Published: &published})
	if err != nil {
		return nil, err
	}
	log.Infof("Product %d published=%t", product.ID, updated.Published)

	a.reload(ctx, sess)
	return updated, nil
}

func (a *Admin) DeleteProduct(ctx context.Context, sess *session.Session, id int64) error {
	if err := sess.RequireAdmin(); err != nil {
		return err
	}
	if id <= 0 {
		return domain.ErrMissingProductID
	}

	if err := a.gateway.DeleteProduct(ctx, id); err != nil {
		return err
	}
	log.Infof("Product %d deleted by %s", id, sess.User().Username)

	a.reload(ctx, sess)
	return nil
}

func (a *Admin) CreateCategory(ctx context.Context, sess *session.Session, in domain.CategoryInput) (*domain.Category, error) {
	if err := a.checkCategory(sess, in); err != nil {
		return nil, err
	}

	category, err := a.gateway.CreateCategory(ctx, in)
	if err != nil {
		return nil, err
	}

	a.reload(ctx, sess)
	return category, nil
}

func (a *Admin) UpdateCategory(ctx context.Context, sess *session.Session, id int64, in domain.CategoryInput) (*domain.Category, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: category id is required", domain.ErrInvalidInput)
	}
	if err := a.checkCategory(sess, in); err != nil {
		return nil, err
	}

	category, err := a.gateway.UpdateCategory(ctx, id, in)
	if err != nil {
		return nil, err
	}

	a.reload(ctx, sess)
	return category, nil
}

func (a *Admin) DeleteCategory(ctx context.Context, sess *session.Session, id int64) error {
	if err := sess.RequireAdmin(); err != nil {
		return err
	}
	if id <= 0 {
		return fmt.Errorf("%w: category id is required", domain.ErrInvalidInput)
	}

	if err := a.gateway.DeleteCategory(ctx, id); err != nil {
		return err
	}

	a.reload(ctx, sess)
	return nil
}

func (a *Admin) checkProduct(sess *session.Session, in domain.ProductInput) error {
	if err := sess.RequireAdmin(); err != nil {
		return err
	}
	if err := validator.Validate(in); err != nil {
		return err
	}
	if in.Price.IsNegative() {
		return fmt.Errorf("%w: price must not be negative", domain.ErrInvalidInput)
	}
	return nil
}

func (a *Admin) checkCategory(sess *session.Session, in domain.CategoryInput) error {
	if err := sess.RequireAdmin(); err != nil {
		return err
	}
	return validator.Validate(in)
}

// reload refreshes the dashboard after a write. The write already succeeded,
// so a failed reload is only logged.
func (a *Admin) reload(ctx context.Context, sess *session.Session) {
	if _, err := a.Dashboard(ctx, sess); err != nil {
		log.Warnf("Failed to reload dashboard after write: %v", err)
	}
}
