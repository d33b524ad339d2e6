package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"apparel/storefront/internal/domain"

	"github.com/shopspring/decimal"
)

// productDTO mirrors the backend's product resource.
type productDTO struct {
	ID          int64           `json:"id"`
	Nombre      string          `json:"nombre"`
	Descripcion string          `json:"descripcion"`
	Precio      decimal.Decimal `json:"precio"`
	Imagen      *string         `json:"imagen"`
	Categoria   *int64          `json:"categoria"`
	Publicado   bool            `json:"publicado"`
	Tallas      *string         `json:"tallas_disponibles"`
	Colores     *string         `json:"colores,omitempty"`
	Descuento   int             `json:"descuento,omitempty"`
}

type categoryDTO struct {
	ID     int64  `json:"id"`
	Nombre string `json:"nombre"`
}

func (d productDTO) toDomain(resolveImage func(string) string) domain.Product {
	p := domain.Product{
		ID:              d.ID,
		Name:            d.Nombre,
		Description:     d.Descripcion,
		Price:           d.Precio,
		Published:       d.Publicado,
		DiscountPercent: d.Descuento,
	}
	if d.Imagen != nil {
		p.ImageURL = resolveImage(*d.Imagen)
	}
	if d.Categoria != nil {
		p.CategoryID = *d.Categoria
	}
	if d.Tallas != nil {
		p.Sizes = domain.ParseSizes(*d.Tallas)
	}
	if d.Colores != nil {
		p.Colors = domain.ParseSizes(*d.Colores)
	}
	return p
}

func (d categoryDTO) toDomain() domain.Category {
	return domain.Category{ID: d.ID, Name: d.Nombre}
}

// decodeList accepts either a bare JSON array or a paginated
// {"results": [...]} envelope.
func decodeList[T any](body []byte) ([]T, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty response body")
	}

	var items []T
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("failed to decode list: %w", err)
		}
		return items, nil
	}

	var page struct {
		Results []T `json:"results"`
	}
	if err := json.Unmarshal(trimmed, &page); err != nil {
		return nil, fmt.Errorf("failed to decode paginated list: %w", err)
	}
	return page.Results, nil
}

func productFields(in domain.ProductInput) map[string]string {
	return map[string]string{
		"nombre":             in.Name,
		"descripcion":        in.Description,
		"precio":             in.Price.StringFixed(2),
		"categoria":          strconv.FormatInt(in.CategoryID, 10),
		"publicado":          strconv.FormatBool(in.Published),
		"tallas_disponibles": domain.FormatSizes(in.Sizes),
	}
}

func productJSON(in domain.ProductInput) map[string]any {
	return map[string]any{
		"nombre":             in.Name,
		"descripcion":        in.Description,
		"precio":             in.Price.StringFixed(2),
		"categoria":          in.CategoryID,
		"publicado":          in.Published,
		"tallas_disponibles": domain.FormatSizes(in.Sizes),
	}
}

func patchJSON(p domain.ProductPatch) map[string]any {
	body := make(map[string]any)
	if p.Name != nil {
		body["nombre"] = *p.Name
	}
	if p.Price != nil {
		body["precio"] = p.Price.StringFixed(2)
	}
	if p.Published != nil {
		body["publicado"] = *p.Published
	}
	return body
}

func categoryJSON(in domain.CategoryInput) map[string]any {
	return map[string]any{"nombre": in.Name}
}
