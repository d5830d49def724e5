package domain

import "github.com/shopspring/decimal"

// PlanAction is the kind of write a plan requires
type PlanAction string

const (
	ActionCreate PlanAction = "create"
	ActionUpdate PlanAction = "update"
)

// ProductDetails are the descriptive product-level fields
type ProductDetails struct {
	Title       string
	BodyHTML    string
	Vendor      string
	ProductType string
	Tags        []string
	CategoryID  string
}

// ProductUpdate holds only the product-level fields selected for writing.
// A nil Details or empty Images means the field is left untouched.
type ProductUpdate struct {
	Details *ProductDetails
	Images  []Image
}

// IsEmpty reports whether the update writes nothing
func (u ProductUpdate) IsEmpty() bool {
	return u.Details == nil && len(u.Images) == 0
}

// Fields lists the names of the populated fields, for logging
func (u ProductUpdate) Fields() []string {
	var fields []string
	if u.Details != nil {
		fields = append(fields, "details")
	}
	if len(u.Images) > 0 {
		fields = append(fields, "images")
	}
	return fields
}

// VariantUpdate targets one existing remote variant matched by SKU.
type VariantUpdate struct {
	VariantID         string
	SKU               string
	Price             *decimal.Decimal
	InventoryQuantity *int
}

// IsEmpty reports whether the update writes nothing
func (u VariantUpdate) IsEmpty() bool {
	return u.Price == nil && u.InventoryQuantity == nil
}

// Plan is the minimal set of writes needed to reconcile one product.
type Plan struct {
	Action          PlanAction
	Product         Product
	RemoteID        string
	ProductUpdate   ProductUpdate
	VariantUpdates  []VariantUpdate
	NewVariants     []Variant
	SkippedVariants []string
}

// IsEmpty reports whether an update plan performs no write at all
func (p *Plan) IsEmpty() bool {
	if p.Action == ActionCreate {
		return false
	}
	return p.ProductUpdate.IsEmpty() && len(p.VariantUpdates) == 0 && len(p.NewVariants) == 0
}
