package shopify

import (
	"context"
	"fmt"
	"net/http"

	"github.com/vervegrand/feedsync/internal/domain"
)

// FindByHandle looks up a product by handle. A missing product is (nil, nil).
func (c *Client) FindByHandle(ctx context.Context, handle string) (*domain.RemoteProduct, error) {
	var data productByHandleData
	err := c.graphQL(ctx, "findByHandle", productByHandleQuery, map[string]interface{}{"handle": handle}, &data)
	if err != nil {
		return nil, err
	}
	if data.ProductByHandle == nil {
		return nil, nil
	}
	remote := data.ProductByHandle.toRemote()
	return &remote, nil
}

// FetchAllPaged reads the whole catalog following the GraphQL cursor.
func (c *Client) FetchAllPaged(ctx context.Context) ([]domain.RemoteProduct, error) {
	var products []domain.RemoteProduct
	var cursor interface{}

	for page := 1; ; page++ {
		var data productsPageData
		vars := map[string]interface{}{"cursor": cursor, "first": productPageSize}
		if err := c.graphQL(ctx, "fetchAllPaged", productsPageQuery, vars, &data); err != nil {
			return nil, fmt.Errorf("page %d: %w", page, err)
		}

		for _, e := range data.Products.Edges {
			products = append(products, e.Node.toRemote())
		}

		c.logger.Debug().Int("page", page).Int("total", len(products)).Msg("Fetched product page")

		info := data.Products.PageInfo
		if !info.HasNextPage || info.EndCursor == "" {
			return products, nil
		}
		cursor = info.EndCursor
	}
}

// CreateProduct submits the full product with all variants, options and images.
func (c *Client) CreateProduct(ctx context.Context, product *domain.Product) error {
	body := productEnvelope{Product: mapCreatePayload(product)}
	return c.do(ctx, "createProduct", http.MethodPost, "/products.json", body, nil)
}

// UpdateProduct writes only the product-level fields present in update.
func (c *Client) UpdateProduct(ctx context.Context, productID string, update domain.ProductUpdate) error {
	id, err := LegacyID(productID)
	if err != nil {
		return &domain.APIError{Operation: "updateProduct", Message: fmt.Sprintf("invalid product id %q", productID), Err: err}
	}
	body := productEnvelope{Product: mapUpdatePayload(id, update)}
	return c.do(ctx, "updateProduct", http.MethodPut, fmt.Sprintf("/products/%d.json", id), body, nil)
}

// UpdateVariant writes price and/or inventory of one existing variant.
func (c *Client) UpdateVariant(ctx context.Context, update domain.VariantUpdate) error {
	id, err := LegacyID(update.VariantID)
	if err != nil {
		return &domain.APIError{Operation: "updateVariant", Message: fmt.Sprintf("invalid variant id %q", update.VariantID), Err: err}
	}
	body := variantEnvelope{Variant: mapVariantUpdatePayload(id, update)}
	return c.do(ctx, "updateVariant", http.MethodPut, fmt.Sprintf("/variants/%d.json", id), body, nil)
}

// CreateVariant appends a variant to an existing product.
func (c *Client) CreateVariant(ctx context.Context, productID string, variant domain.Variant) error {
	id, err := LegacyID(productID)
	if err != nil {
		return &domain.APIError{Operation: "createVariant", Message: fmt.Sprintf("invalid product id %q", productID), Err: err}
	}
	body := variantEnvelope{Variant: mapNewVariant(variant)}
	return c.do(ctx, "createVariant", http.MethodPost, fmt.Sprintf("/products/%d/variants.json", id), body, nil)
}

// ShopInfo returns store details and the product count; used as a connection check.
func (c *Client) ShopInfo(ctx context.Context) (*domain.ShopInfo, error) {
	var shop struct {
		Shop struct {
			Name     string `json:"name"`
			Email    string `json:"email"`
			Domain   string `json:"domain"`
			Currency string `json:"currency"`
		} `json:"shop"`
	}
	if err := c.do(ctx, "shopInfo", http.MethodGet, "/shop.json", nil, &shop); err != nil {
		return nil, err
	}

	var count struct {
		Count int `json:"count"`
	}
	if err := c.do(ctx, "productCount", http.MethodGet, "/products/count.json", nil, &count); err != nil {
		return nil, err
	}

	return &domain.ShopInfo{
		Name:         shop.Shop.Name,
		Email:        shop.Shop.Email,
		Domain:       shop.Shop.Domain,
		Currency:     shop.Shop.Currency,
		ProductCount: count.Count,
	}, nil
}
