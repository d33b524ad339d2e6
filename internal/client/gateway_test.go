package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"apparel/storefront/internal/config"
	"apparel/storefront/internal/domain"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(baseURL string) config.GatewayConfig {
	return config.GatewayConfig{
		BaseURL:        baseURL + "/api/",
		ProductsPath:   "productos/",
		CategoriesPath: "categorias/",
		Timeout:        5,
		Breaker: config.BreakerConfig{
			MaxRequests:  1,
			Interval:     60,
			Timeout:      60,
			FailureRatio: 0.5,
			MinRequests:  3,
		},
	}
}

func newTestGateway(t *testing.T, handler http.HandlerFunc) (CatalogGateway, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	gw, err := NewCatalogGateway(testConfig(server.URL))
	require.NoError(t, err)
	return gw, server
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func TestNewCatalogGateway_InvalidBaseURL(t *testing.T) {
	_, err := NewCatalogGateway(config.GatewayConfig{BaseURL: "not a url"})
	assert.Error(t, err)
}

func TestListProducts_DecodesBackendFields(t *testing.T) {
	gw, server := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/productos/", r.URL.Path)
		writeJSON(w, http.StatusOK, `[
			{"id": 1, "nombre": "Vestido", "descripcion": "Floral", "precio": "59990.00",
			 "imagen": "/media/productos/vestido.jpg", "categoria": 2, "publicado": true,
			 "tallas_disponibles": "S, M,L"},
			{"id": 2, "nombre": "Blusa", "descripcion": "", "precio": "10000.00",
			 "imagen": null, "categoria": null, "publicado": false, "tallas_disponibles": ""}
		]`)
	})

	products, err := gw.ListProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 2)

	first := products[0]
	assert.Equal(t, int64(1), first.ID)
	assert.Equal(t, "Vestido", first.Name)
	assert.True(t, first.Price.Equal(decimal.RequireFromString("59990")))
	assert.Equal(t, server.URL+"/media/productos/vestido.jpg", first.ImageURL)
	assert.Equal(t, int64(2), first.CategoryID)
	assert.True(t, first.Published)
	assert.Equal(t, []string{"S", "M", "L"}, first.Sizes)

	second := products[1]
	assert.Empty(t, second.ImageURL)
	assert.False(t, second.HasCategory())
	assert.Nil(t, second.Sizes)
	assert.False(t, second.Published)
}

func TestListProducts_PaginatedEnvelope(t *testing.T) {
	gw, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"count": 1, "next": null, "results": [{"id": 5, "nombre": "Falda", "precio": 100}]}`)
	})

	products, err := gw.ListProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, int64(5), products[0].ID)
	assert.True(t, products[0].Price.Equal(decimal.NewFromInt(100)))
}

func TestGetProduct_KeepsAbsoluteImageURL(t *testing.T) {
	gw, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/productos/7/", r.URL.Path)
		writeJSON(w, http.StatusOK, `{"id": 7, "nombre": "Abrigo", "precio": "1.50",
			"imagen": "https://cdn.example.com/abrigo.jpg", "categoria": 1, "publicado": true}`)
	})

	p, err := gw.GetProduct(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/abrigo.jpg", p.ImageURL)
}

func TestGetProduct_NotFound(t *testing.T) {
	gw, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, `{"detail": "No encontrado."}`)
	})

	_, err := gw.GetProduct(context.Background(), 99)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	gwErr, ok := IsGatewayError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, gwErr.StatusCode)
	assert.Equal(t, "No encontrado.", gwErr.Detail)
}

func TestGetCategory(t *testing.T) {
	gw, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/categorias/3/", r.URL.Path)
		writeJSON(w, http.StatusOK, `{"id": 3, "nombre": "Vestidos"}`)
	})

	cat, err := gw.GetCategory(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, domain.Category{ID: 3, Name: "Vestidos"}, *cat)
}

func TestListCategories(t *testing.T) {
	gw, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/categorias/", r.URL.Path)
		writeJSON(w, http.StatusOK, `[{"id": 1, "nombre": "Blusas"}, {"id": 2, "nombre": "Faldas"}]`)
	})

	before := testutil.ToFloat64(gatewayRequestsTotal.WithLabelValues(resourceCategories, http.MethodGet, outcomeSuccess))

	categories, err := gw.ListCategories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []domain.Category{{ID: 1, Name: "Blusas"}, {ID: 2, Name: "Faldas"}}, categories)

	after := testutil.ToFloat64(gatewayRequestsTotal.WithLabelValues(resourceCategories, http.MethodGet, outcomeSuccess))
	assert.Equal(t, before+1, after)
}

func productInput() domain.ProductInput {
	return domain.ProductInput{
		Name:        "Vestido",
		Description: "Floral",
		Price:       decimal.RequireFromString("59990"),
		CategoryID:  2,
		Sizes:       []string{"S", "M"},
		Published:   true,
	}
}

func TestCreateProduct_JSONWithoutImage(t *testing.T) {
	gw, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/productos/", r.URL.Path)
		assert.Contains(t, r.Header.Get("Content-Type"), "application/json")

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Vestido", body["nombre"])
		assert.Equal(t, "59990.00", body["precio"])
		assert.Equal(t, float64(2), body["categoria"])
		assert.Equal(t, "S,M", body["tallas_disponibles"])
		assert.Equal(t, true, body["publicado"])

		writeJSON(w, http.StatusCreated, `{"id": 10, "nombre": "Vestido", "precio": "59990.00", "categoria": 2, "publicado": true, "tallas_disponibles": "S,M"}`)
	})

	p, err := gw.CreateProduct(context.Background(), productInput(), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(10), p.ID)
	assert.Equal(t, []string{"S", "M"}, p.Sizes)
}

func TestUpdateProduct_MultipartWithImage(t *testing.T) {
	gw, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/productos/10/", r.URL.Path)
		assert.Contains(t, r.Header.Get("Content-Type"), "multipart/form-data")

		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "Vestido", r.FormValue("nombre"))
		assert.Equal(t, "59990.00", r.FormValue("precio"))
		assert.Equal(t, "2", r.FormValue("categoria"))
		assert.Equal(t, "true", r.FormValue("publicado"))

		file, header, err := r.FormFile("imagen")
		require.NoError(t, err)
		defer file.Close()
		content, _ := io.ReadAll(file)
		assert.Equal(t, "vestido.jpg", header.Filename)
		assert.Equal(t, "jpeg-bytes", string(content))

		writeJSON(w, http.StatusOK, `{"id": 10, "nombre": "Vestido", "precio": "59990.00", "imagen": "/media/productos/vestido.jpg"}`)
	})

	image := &domain.ImageUpload{FileName: "vestido.jpg", Content: strings.NewReader("jpeg-bytes")}
	p, err := gw.UpdateProduct(context.Background(), 10, productInput(), image)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(p.ImageURL, "/media/productos/vestido.jpg"))
}

// onceReader hides any Seek method of the wrapped reader.
type onceReader struct{ io.Reader }

func TestUpdateProduct_RetryResendsImage(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := attempts.Add(1)

		require.NoError(t, r.ParseMultipartForm(1<<20))
		file, _, err := r.FormFile("imagen")
		require.NoError(t, err)
		defer file.Close()
		content, _ := io.ReadAll(file)
		assert.Equal(t, "jpeg-bytes", string(content), "attempt %d", n)

		if n == 1 {
			writeJSON(w, http.StatusServiceUnavailable, `{"detail": "busy"}`)
			return
		}
		writeJSON(w, http.StatusOK, `{"id": 10, "nombre": "Vestido", "precio": "59990.00"}`)
	}))
	t.Cleanup(server.Close)

	cfg := testConfig(server.URL)
	cfg.MaxRetries = 1
	gw, err := NewCatalogGateway(cfg)
	require.NoError(t, err)

	image := &domain.ImageUpload{FileName: "vestido.jpg", Content: onceReader{strings.NewReader("jpeg-bytes")}}
	p, err := gw.UpdateProduct(context.Background(), 10, productInput(), image)
	require.NoError(t, err)
	assert.Equal(t, int64(10), p.ID)
	assert.Equal(t, int32(2), attempts.Load())
}

func TestRewindable(t *testing.T) {
	img, err := rewindable(nil)
	require.NoError(t, err)
	assert.Nil(t, img)

	seekable := &domain.ImageUpload{FileName: "a.jpg", Content: strings.NewReader("x")}
	img, err = rewindable(seekable)
	require.NoError(t, err)
	assert.Same(t, seekable, img)

	img, err = rewindable(&domain.ImageUpload{FileName: "b.jpg", Content: onceReader{strings.NewReader("abc")}})
	require.NoError(t, err)
	_, ok := img.Content.(io.ReadSeeker)
	assert.True(t, ok)
	data, _ := io.ReadAll(img.Content)
	assert.Equal(t, "abc", string(data))
}

func TestCreateProduct_FieldErrors(t *testing.T) {
	gw, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, `{"nombre": ["Este campo es requerido."], "precio": "Número inválido."}`)
	})

	_, err := gw.CreateProduct(context.Background(), productInput(), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	gwErr, ok := IsGatewayError(err)
	require.True(t, ok)
	assert.Equal(t, []string{"Este campo es requerido."}, gwErr.Fields["nombre"])
	assert.Equal(t, []string{"Número inválido."}, gwErr.Fields["precio"])
	assert.Contains(t, err.Error(), "nombre: Este campo es requerido.")
}

func TestPatchProduct_SendsOnlyGivenFields(t *testing.T) {
	gw, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/api/productos/4/", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]any{"publicado": false}, body)

		writeJSON(w, http.StatusOK, `{"id": 4, "nombre": "Blusa", "precio": "10", "publicado": false}`)
	})

	published := false
	p, err := gw.PatchProduct(context.Background(), 4, domain.ProductPatch{Published: &published})
	require.NoError(t, err)
	assert.False(t, p.Published)
}

func TestPatchProduct_EmptyPatchIsRejectedLocally(t *testing.T) {
	var hits atomic.Int32
	gw, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	})

	_, err := gw.PatchProduct(context.Background(), 4, domain.ProductPatch{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Equal(t, int32(0), hits.Load())
}

func TestDeleteProductAndCategory(t *testing.T) {
	var (
		mu    sync.Mutex
		paths []string
	)
	gw, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		mu.Lock()
		paths = append(paths, r.URL.Path)
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, gw.DeleteProduct(context.Background(), 8))
	require.NoError(t, gw.DeleteCategory(context.Background(), 3))
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"/api/productos/8/", "/api/categorias/3/"}, paths)
}

func TestCategoryWrites(t *testing.T) {
	gw, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Abrigos", body["nombre"])

		switch r.Method {
		case http.MethodPost:
			assert.Equal(t, "/api/categorias/", r.URL.Path)
			writeJSON(w, http.StatusCreated, `{"id": 9, "nombre": "Abrigos"}`)
		case http.MethodPut:
			assert.Equal(t, "/api/categorias/9/", r.URL.Path)
			writeJSON(w, http.StatusOK, `{"id": 9, "nombre": "Abrigos"}`)
		default:
			t.Errorf("unexpected method %s", r.Method)
		}
	})

	created, err := gw.CreateCategory(context.Background(), domain.CategoryInput{Name: "Abrigos"})
	require.NoError(t, err)
	assert.Equal(t, int64(9), created.ID)

	updated, err := gw.UpdateCategory(context.Background(), 9, domain.CategoryInput{Name: "Abrigos"})
	require.NoError(t, err)
	assert.Equal(t, "Abrigos", updated.Name)
}

func TestServerErrorHTMLPage(t *testing.T) {
	gw, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html><head><title>502 Bad Gateway</title></head><body><h1>nginx</h1></body></html>"))
	})

	_, err := gw.ListProducts(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrGatewayUnavailable)

	gwErr, ok := IsGatewayError(err)
	require.True(t, ok)
	assert.Equal(t, "502 Bad Gateway", gwErr.Detail)
}

func TestCircuitBreaker_OpensAfterServerErrors(t *testing.T) {
	var hits atomic.Int32
	gw, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		writeJSON(w, http.StatusInternalServerError, `{"detail": "boom"}`)
	})

	for i := 0; i < 3; i++ {
		_, err := gw.ListProducts(context.Background())
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrGatewayUnavailable)
	}

	_, err := gw.ListProducts(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.ErrorIs(t, err, domain.ErrGatewayUnavailable)
	assert.Equal(t, int32(3), hits.Load())
}

func TestCircuitBreaker_IgnoresClientErrors(t *testing.T) {
	var hits atomic.Int32
	gw, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		writeJSON(w, http.StatusNotFound, `{"detail": "No encontrado."}`)
	})

	for i := 0; i < 5; i++ {
		_, err := gw.GetProduct(context.Background(), 1)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	}
	assert.Equal(t, int32(5), hits.Load())
}

func TestNetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	cfg := testConfig(server.URL)
	server.Close()

	gw, err := NewCatalogGateway(cfg)
	require.NoError(t, err)

	_, err = gw.ListCategories(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrGatewayUnavailable)
	_, isGatewayErr := IsGatewayError(err)
	assert.False(t, isGatewayErr)
}

func TestCancelledContext(t *testing.T) {
	gw, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `[]`)
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := gw.ListProducts(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestResolveImage(t *testing.T) {
	c := &gatewayClient{origin: "http://localhost:8000"}

	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"/media/a.jpg", "http://localhost:8000/media/a.jpg"},
		{"media/a.jpg", "http://localhost:8000/media/a.jpg"},
		{"https://cdn.example.com/a.jpg", "https://cdn.example.com/a.jpg"},
		{"http://other/a.jpg", "http://other/a.jpg"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, c.resolveImage(tt.in), tt.in)
	}
}

func TestURLHelpers(t *testing.T) {
	assert.Equal(t, "http://h/api/productos/", joinURL("http://h/api/", "productos/"))
	assert.Equal(t, "http://h/api/productos/", joinURL("http://h/api", "/productos/"))
	assert.Equal(t, "http://h/api/productos/3/", itemURL("http://h/api/productos/", 3))
	assert.Equal(t, "http://h/api/products/3", itemURL("http://h/api/products", 3))
}

func TestNewGatewayError(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		contentType string
		body        string
		wantDetail  string
	}{
		{"empty body", http.StatusForbidden, "", "", "Forbidden"},
		{"detail object", http.StatusForbidden, "application/json", `{"detail": "No tiene permiso."}`, "No tiene permiso."},
		{"message list", http.StatusBadRequest, "application/json", `["Error uno.", "Error dos."]`, "Error uno. Error dos."},
		{"plain text", http.StatusInternalServerError, "text/plain", "something broke", "something broke"},
		{"html without title", http.StatusInternalServerError, "text/html", "<html><body><h1>Server Error (500)</h1></body></html>", "Server Error (500)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := newGatewayError(http.MethodGet, "http://h/api/productos/", tt.status, tt.contentType, []byte(tt.body))
			assert.Equal(t, tt.wantDetail, err.Detail)
			assert.Equal(t, tt.status, err.StatusCode)
		})
	}
}

func TestGatewayError_Is(t *testing.T) {
	assert.ErrorIs(t, &GatewayError{StatusCode: 401}, domain.ErrUnauthorized)
	assert.ErrorIs(t, &GatewayError{StatusCode: 403}, domain.ErrForbidden)
	assert.ErrorIs(t, &GatewayError{StatusCode: 422}, domain.ErrInvalidInput)
	assert.ErrorIs(t, &GatewayError{StatusCode: 503}, domain.ErrGatewayUnavailable)
	assert.NotErrorIs(t, &GatewayError{StatusCode: 404}, domain.ErrGatewayUnavailable)
}
