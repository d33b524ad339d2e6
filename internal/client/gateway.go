package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"apparel/storefront/internal/config"
	"apparel/storefront/internal/domain"

	log "github.com/sirupsen/logrus"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/ratelimit"
	"resty.dev/v3"
)

const (
	resourceProducts   = "products"
	resourceCategories = "categories"
)

// CatalogGateway is the product and category REST API. Write operations are
// admin-only on the backend; the gateway itself does not check capabilities.
type CatalogGateway interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	CreateProduct(ctx context.Context, in domain.ProductInput, image *domain.ImageUpload) (*domain.Product, error)
	UpdateProduct(ctx context.Context, id int64, in domain.ProductInput, image *domain.ImageUpload) (*domain.Product, error)
	PatchProduct(ctx context.Context, id int64, patch domain.ProductPatch) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id int64) error

	ListCategories(ctx context.Context) ([]domain.Category, error)
	GetCategory(ctx context.Context, id int64) (*domain.Category, error)
	CreateCategory(ctx context.Context, in domain.CategoryInput) (*domain.Category, error)
	UpdateCategory(ctx context.Context, id int64, in domain.CategoryInput) (*domain.Category, error)
	DeleteCategory(ctx context.Context, id int64) error
}

var errServerStatus = errors.New("server error status")

type gatewayClient struct {
	rl            ratelimit.Limiter
	httpClient    *resty.Client
	breaker       *gobreaker.CircuitBreaker[*resty.Response]
	origin        string
	productsURL   string
	categoriesURL string
}

func NewCatalogGateway(cfg config.GatewayConfig) (CatalogGateway, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid gateway base url %q", cfg.BaseURL)
	}

	httpClient := resty.New().
		SetTimeout(cfg.TimeoutDuration()).
		SetRetryCount(cfg.MaxRetries).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "apparel-storefront/1.0")

	rl := ratelimit.NewUnlimited()
	if cfg.MaxRequestsPerSecond > 0 {
		rl = ratelimit.New(cfg.MaxRequestsPerSecond)
	}

	return &gatewayClient{
		rl:            rl,
		httpClient:    httpClient,
		breaker:       newBreaker("catalog-gateway", cfg.Breaker),
		origin:        base.Scheme + "://" + base.Host,
		productsURL:   joinURL(cfg.BaseURL, cfg.ProductsPath),
		categoriesURL: joinURL(cfg.BaseURL, cfg.CategoriesPath),
	}, nil
}

func newBreaker(name string, cfg config.BreakerConfig) *gobreaker.CircuitBreaker[*resty.Response] {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    time.Duration(cfg.Interval) * time.Second,
		Timeout:     time.Duration(cfg.Timeout) * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.FailureRatio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warnf("Circuit breaker %s changed from %s to %s", name, from, to)
			gatewayBreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
		// A shopper navigating away is not a backend failure.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	}

	gatewayBreakerState.WithLabelValues(name).Set(0)
	return gobreaker.NewCircuitBreaker[*resty.Response](settings)
}

func (c *gatewayClient) ListProducts(ctx context.Context) ([]domain.Product, error) {
	body, err := c.do(ctx, resourceProducts, http.MethodGet, c.productsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	dtos, err := decodeList[productDTO](body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode products: %w", err)
	}

	products := make([]domain.Product, 0, len(dtos))
	for _, d := range dtos {
		products = append(products, d.toDomain(c.resolveImage))
	}
	log.Debugf("Fetched %d products", len(products))
	return products, nil
}

func (c *gatewayClient) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	body, err := c.do(ctx, resourceProducts, http.MethodGet, itemURL(c.productsURL, id), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get product %d: %w", id, err)
	}
	return c.decodeProduct(body)
}

func (c *gatewayClient) CreateProduct(ctx context.Context, in domain.ProductInput, image *domain.ImageUpload) (*domain.Product, error) {
	image, err := rewindable(image)
	if err != nil {
		return nil, err
	}
	body, err := c.do(ctx, resourceProducts, http.MethodPost, c.productsURL, productPayload(in, image))
	if err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	return c.decodeProduct(body)
}

func (c *gatewayClient) UpdateProduct(ctx context.Context, id int64, in domain.ProductInput, image *domain.ImageUpload) (*domain.Product, error) {
	image, err := rewindable(image)
	if err != nil {
		return nil, err
	}
	body, err := c.do(ctx, resourceProducts, http.MethodPut, itemURL(c.productsURL, id), productPayload(in, image))
	if err != nil {
		return nil, fmt.Errorf("failed to update product %d: %w", id, err)
	}
	return c.decodeProduct(body)
}

func (c *gatewayClient) PatchProduct(ctx context.Context, id int64, patch domain.ProductPatch) (*domain.Product, error) {
	payload := patchJSON(patch)
	if len(payload) == 0 {
		return nil, fmt.Errorf("%w: empty product patch", domain.ErrInvalidInput)
	}

	body, err := c.do(ctx, resourceProducts, http.MethodPatch, itemURL(c.productsURL, id), jsonBody(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to patch product %d: %w", id, err)
	}
	return c.decodeProduct(body)
}

func (c *gatewayClient) DeleteProduct(ctx context.Context, id int64) error {
	if _, err := c.do(ctx, resourceProducts, http.MethodDelete, itemURL(c.productsURL, id), nil); err != nil {
		return fmt.Errorf("failed to delete product %d: %w", id, err)
	}
	return nil
}

func (c *gatewayClient) ListCategories(ctx context.Context) ([]domain.Category, error) {
	body, err := c.do(ctx, resourceCategories, http.MethodGet, c.categoriesURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}

	dtos, err := decodeList[categoryDTO](body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode categories: %w", err)
	}

	categories := make([]domain.Category, 0, len(dtos))
	for _, d := range dtos {
		categories = append(categories, d.toDomain())
	}
	return categories, nil
}

func (c *gatewayClient) GetCategory(ctx context.Context, id int64) (*domain.Category, error) {
	body, err := c.do(ctx, resourceCategories, http.MethodGet, itemURL(c.categoriesURL, id), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get category %d: %w", id, err)
	}
	return decodeCategory(body)
}

func (c *gatewayClient) CreateCategory(ctx context.Context, in domain.CategoryInput) (*domain.Category, error) {
	body, err := c.do(ctx, resourceCategories, http.MethodPost, c.categoriesURL, jsonBody(categoryJSON(in)))
	if err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}
	return decodeCategory(body)
}

func (c *gatewayClient) UpdateCategory(ctx context.Context, id int64, in domain.CategoryInput) (*domain.Category, error) {
	body, err := c.do(ctx, resourceCategories, http.MethodPut, itemURL(c.categoriesURL, id), jsonBody(categoryJSON(in)))
	if err != nil {
		return nil, fmt.Errorf("failed to update category %d: %w", id, err)
	}
	return decodeCategory(body)
}

func (c *gatewayClient) DeleteCategory(ctx context.Context, id int64) error {
	if _, err := c.do(ctx, resourceCategories, http.MethodDelete, itemURL(c.categoriesURL, id), nil); err != nil {
		return fmt.Errorf("failed to delete category %d: %w", id, err)
	}
	return nil
}

// do sends one request through the rate limiter and the circuit breaker and
// returns the body of a 2xx response.
func (c *gatewayClient) do(ctx context.Context, resource, method, target string, prepare func(*resty.Request)) ([]byte, error) {
	c.rl.Take()

	start := time.Now()
	resp, err := c.breaker.Execute(func() (*resty.Response, error) {
		req := c.httpClient.R().SetContext(ctx)
		if prepare != nil {
			prepare(req)
		}
		resp, err := req.Execute(method, target)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode() >= http.StatusInternalServerError {
			return resp, errServerStatus
		}
		return resp, nil
	})
	gatewayRequestDuration.WithLabelValues(resource, method).Observe(time.Since(start).Seconds())

	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		gatewayRequestsTotal.WithLabelValues(resource, method, outcomeRejected).Inc()
		log.Debugf("Request %s %s blocked by circuit breaker", method, target)
		return nil, fmt.Errorf("%w: %w", domain.ErrGatewayUnavailable, err)
	case errors.Is(err, errServerStatus):
		// handled with the other non-2xx responses below
	case err != nil:
		if ctx.Err() != nil {
			return nil, fmt.Errorf("request cancelled: %w", ctx.Err())
		}
		gatewayRequestsTotal.WithLabelValues(resource, method, outcomeNetwork).Inc()
		return nil, fmt.Errorf("%w: %s %s: %w", domain.ErrGatewayUnavailable, method, target, err)
	}

	body := []byte(resp.String())
	if resp.IsError() {
		outcome := outcomeClientError
		if resp.StatusCode() >= http.StatusInternalServerError {
			outcome = outcomeServerError
		}
		gatewayRequestsTotal.WithLabelValues(resource, method, outcome).Inc()

		gwErr := newGatewayError(method, target, resp.StatusCode(), resp.Header().Get("Content-Type"), body)
		log.Warnf("Catalog gateway returned %d for %s %s", resp.StatusCode(), method, target)
		return nil, gwErr
	}

	gatewayRequestsTotal.WithLabelValues(resource, method, outcomeSuccess).Inc()
	return body, nil
}

func (c *gatewayClient) decodeProduct(body []byte) (*domain.Product, error) {
	var d productDTO
	if err := json.Unmarshal(body, &d); err != nil {
		return nil, fmt.Errorf("failed to decode product: %w", err)
	}
	p := d.toDomain(c.resolveImage)
	return &p, nil
}

func decodeCategory(body []byte) (*domain.Category, error) {
	var d categoryDTO
	if err := json.Unmarshal(body, &d); err != nil {
		return nil, fmt.Errorf("failed to decode category: %w", err)
	}
	cat := d.toDomain()
	return &cat, nil
}

// resolveImage turns a server-relative image path into an absolute URL on
// the API origin. Absolute URLs are kept as they are.
func (c *gatewayClient) resolveImage(ref string) string {
	ref = strings.TrimSpace(ref)
	switch {
	case ref == "":
		return ""
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		return ref
	case strings.HasPrefix(ref, "/"):
		return c.origin + ref
	default:
		return c.origin + "/" + ref
	}
}

// productPayload sends multipart form data when an image accompanies the
// write and JSON otherwise.
func productPayload(in domain.ProductInput, image *domain.ImageUpload) func(*resty.Request) {
	if image == nil || image.Content == nil {
		return jsonBody(productJSON(in))
	}
	return func(req *resty.Request) {
		req.SetMultipartFormData(productFields(in)).
			SetFileReader("imagen", image.FileName, image.Content)
	}
}

// rewindable buffers image content that cannot seek, so a retried write
// sends the whole file again.
func rewindable(image *domain.ImageUpload) (*domain.ImageUpload, error) {
	if image == nil || image.Content == nil {
		return image, nil
	}
	if _, ok := image.Content.(io.ReadSeeker); ok {
		return image, nil
	}
	data, err := io.ReadAll(image.Content)
	if err != nil {
		return nil, fmt.Errorf("failed to read image %s: %w", image.FileName, err)
	}
	return &domain.ImageUpload{FileName: image.FileName, Content: bytes.NewReader(data)}, nil
}

func jsonBody(payload map[string]any) func(*resty.Request) {
	return func(req *resty.Request) {
		req.SetHeader("Content-Type", "application/json").
			SetBody(payload)
	}
}

func joinURL(base, path string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}

// itemURL keeps the collection's trailing slash convention for detail URLs.
func itemURL(collection string, id int64) string {
	if strings.HasSuffix(collection, "/") {
		return fmt.Sprintf("%s%d/", collection, id)
	}
	return fmt.Sprintf("%s/%d", collection, id)
}
