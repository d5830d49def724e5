package shopify

import (
	"strconv"
	"strings"

	"github.com/vervegrand/feedsync/internal/domain"
)

// inventoryManagement lets Shopify track stock for variants we create
const inventoryManagement = "shopify"

type productEnvelope struct {
	Product interface{} `json:"product"`
}

type variantEnvelope struct {
	Variant variantPayload `json:"variant"`
}

type productPayload struct {
	ID              int64            `json:"id,omitempty"`
	Handle          string           `json:"handle,omitempty"`
	Title           *string          `json:"title,omitempty"`
	BodyHTML        *string          `json:"body_html,omitempty"`
	Vendor          *string          `json:"vendor,omitempty"`
	ProductType     *string          `json:"product_type,omitempty"`
	Tags            *string          `json:"tags,omitempty"`
	Options         []optionPayload  `json:"options,omitempty"`
	Images          []imagePayload   `json:"images,omitempty"`
	ProductCategory *categoryPayload `json:"product_category,omitempty"`
	Variants        []variantPayload `json:"variants,omitempty"`
}

type optionPayload struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

type imagePayload struct {
	Src string `json:"src"`
}

type categoryPayload struct {
	ID int64 `json:"id"`
}

type variantPayload struct {
	ID                  int64   `json:"id,omitempty"`
	Price               *string `json:"price,omitempty"`
	SKU                 string  `json:"sku,omitempty"`
	InventoryManagement string  `json:"inventory_management,omitempty"`
	InventoryQuantity   *int    `json:"inventory_quantity,omitempty"`
	Option1             string  `json:"option1,omitempty"`
}

// mapCreatePayload converts a canonical product into the full creation payload.
func mapCreatePayload(p *domain.Product) productPayload {
	payload := productPayload{
		Handle:          p.Handle,
		Title:           strPtr(p.Title),
		BodyHTML:        strPtr(p.BodyHTML),
		Vendor:          strPtr(p.Vendor),
		ProductType:     strPtr(p.ProductType),
		Tags:            strPtr(strings.Join(p.Tags, ",")),
		Images:          mapImages(p.Images),
		ProductCategory: mapCategory(p.CategoryID),
	}
	for _, o := range p.Options {
		payload.Options = append(payload.Options, optionPayload{Name: o.Name, Values: o.Values})
	}
	for _, v := range p.Variants {
		payload.Variants = append(payload.Variants, mapNewVariant(v))
	}
	return payload
}

// mapUpdatePayload includes only the fields present in the update.
func mapUpdatePayload(id int64, u domain.ProductUpdate) productPayload {
	payload := productPayload{ID: id}
	if d := u.Details; d != nil {
		payload.Title = strPtr(d.Title)
		payload.BodyHTML = strPtr(d.BodyHTML)
		payload.Vendor = strPtr(d.Vendor)
		payload.ProductType = strPtr(d.ProductType)
		payload.Tags = strPtr(strings.Join(d.Tags, ","))
		payload.ProductCategory = mapCategory(d.CategoryID)
	}
	payload.Images = mapImages(u.Images)
	return payload
}

// mapVariantUpdatePayload includes only the variant fields present in the update.
func mapVariantUpdatePayload(id int64, u domain.VariantUpdate) variantPayload {
	payload := variantPayload{ID: id}
	if u.Price != nil {
		payload.Price = strPtr(u.Price.StringFixed(2))
	}
	if u.InventoryQuantity != nil {
		qty := *u.InventoryQuantity
		payload.InventoryQuantity = &qty
	}
	return payload
}

func mapNewVariant(v domain.Variant) variantPayload {
	qty := v.InventoryQuantity
	return variantPayload{
		Price:               strPtr(v.Price.StringFixed(2)),
		SKU:                 v.SKU,
		InventoryManagement: inventoryManagement,
		InventoryQuantity:   &qty,
		Option1:             v.OptionValue,
	}
}

func mapImages(images []domain.Image) []imagePayload {
	if len(images) == 0 {
		return nil
	}
	out := make([]imagePayload, 0, len(images))
	for _, img := range images {
		out = append(out, imagePayload{Src: img.Src})
	}
	return out
}

func mapCategory(gid string) *categoryPayload {
	if gid == "" {
		return nil
	}
	id, err := LegacyID(gid)
	if err != nil {
		return nil
	}
	return &categoryPayload{ID: id}
}

// LegacyID extracts the numeric id from a GraphQL global id such as
// "gid://shopify/Product/123". Plain numeric ids are accepted as-is.
func LegacyID(gid string) (int64, error) {
	s := gid
	if i := strings.LastIndex(s, "/"); i >= 0 {
		s = s[i+1:]
	}
	if i := strings.Index(s, "?"); i >= 0 {
		s = s[:i]
	}
	return strconv.ParseInt(s, 10, 64)
}

func strPtr(s string) *string {
	return &s
}
