package usecase

import (
	"github.com/vervegrand/feedsync/internal/domain"
)

// Plan computes the minimal writes needed to bring remote in line with product.
// A nil remote always yields a create plan carrying the whole product.
func Plan(product domain.Product, remote *domain.RemoteProduct, opts domain.SyncOptions) domain.Plan {
	if remote == nil {
		return domain.Plan{Action: domain.ActionCreate, Product: product}
	}

	plan := domain.Plan{
		Action:   domain.ActionUpdate,
		Product:  product,
		RemoteID: remote.ID,
	}

	if opts.SyncDetails() {
		plan.ProductUpdate.Details = &domain.ProductDetails{
			Title:       product.Title,
			BodyHTML:    product.BodyHTML,
			Vendor:      product.Vendor,
			ProductType: product.ProductType,
			Tags:        product.Tags,
			CategoryID:  product.CategoryID,
		}
	}
	if opts.SyncImages() && len(product.Images) > 0 {
		plan.ProductUpdate.Images = product.Images
	}

	for _, v := range product.Variants {
		rv, ok := remote.FindVariant(v.SKU)
		if !ok {
			if opts.Full {
				plan.NewVariants = append(plan.NewVariants, v)
			} else {
				plan.SkippedVariants = append(plan.SkippedVariants, v.SKU)
			}
			continue
		}

		update := domain.VariantUpdate{VariantID: rv.ID, SKU: v.SKU}
		if opts.SyncPrice() {
			price := v.Price
			update.Price = &price
		}
		if opts.SyncInventory() {
			qty := v.InventoryQuantity
			update.InventoryQuantity = &qty
		}
		if !update.IsEmpty() {
			plan.VariantUpdates = append(plan.VariantUpdates, update)
		}
	}

	return plan
}
