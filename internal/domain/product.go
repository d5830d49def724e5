package domain

import "github.com/shopspring/decimal"

// DefaultVendor is stamped on every product built from the feed.
const DefaultVendor = "Vervegrand"

// DefaultProductType is used when a product has no category path.
const DefaultProductType = "Diğer"

// SizeOptionName is the single option every canonical product carries.
const SizeOptionName = "Beden"

// DefaultOptionValue stands in for a blank size; the remote rejects empty option values.
const DefaultOptionValue = "Standart"

// Product is the canonical, feed-independent representation of a catalog item.
// Handle is the reconciliation key against the remote catalog.
type Product struct {
	Handle      string    `json:"handle"`
	SourceID    string    `json:"sourceId"`
	Title       string    `json:"title"`
	BodyHTML    string    `json:"bodyHtml"`
	Vendor      string    `json:"vendor"`
	ProductType string    `json:"productType"`
	Tags        []string  `json:"tags"`
	Options     []Option  `json:"options"`
	Variants    []Variant `json:"variants"`
	Images      []Image   `json:"images"`
	CategoryID  string    `json:"categoryId,omitempty"`
}

// Variant is one purchasable size of a product. SKU is unique within its product.
type Variant struct {
	SKU               string          `json:"sku"`
	Price             decimal.Decimal `json:"price"`
	InventoryQuantity int             `json:"inventoryQuantity"`
	OptionValue       string          `json:"optionValue"`
}

// Option is a named product option with its ordered distinct values
type Option struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

// Image is a product-level image reference
type Image struct {
	Src string `json:"src"`
}

// VariantBySKU returns the variant with the given SKU, if any.
func (p *Product) VariantBySKU(sku string) (Variant, bool) {
	for _, v := range p.Variants {
		if v.SKU == sku {
			return v, true
		}
	}
	return Variant{}, false
}

// RemoteProduct is the snapshot of a product read from the remote catalog.
// Only the fields needed for matching and targeted updates are populated by a
// handle lookup; the paged listing fills the rest.
type RemoteProduct struct {
	ID       string          `json:"id"`
	Handle   string          `json:"handle,omitempty"`
	Title    string          `json:"title,omitempty"`
	Variants []RemoteVariant `json:"variants"`
}

// RemoteVariant is a variant as known by the remote catalog
type RemoteVariant struct {
	ID                string `json:"id"`
	SKU               string `json:"sku"`
	Price             string `json:"price,omitempty"`
	CompareAtPrice    string `json:"compareAtPrice,omitempty"`
	InventoryQuantity *int   `json:"inventoryQuantity,omitempty"`
}

// FindVariant returns the remote variant matching sku.
func (r *RemoteProduct) FindVariant(sku string) (RemoteVariant, bool) {
	if sku == "" {
		return RemoteVariant{}, false
	}
	for _, v := range r.Variants {
		if v.SKU == sku {
			return v, true
		}
	}
	return RemoteVariant{}, false
}

// ShopInfo describes the connected store
type ShopInfo struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Domain       string `json:"domain,omitempty"`
	Currency     string `json:"currency,omitempty"`
	ProductCount int    `json:"productCount"`
}
