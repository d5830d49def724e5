package domain

import "github.com/shopspring/decimal"

// FeedProduct is one product node of the vendor feed after structural parsing.
// Prices are already normalized from the vendor's locale format.
type FeedProduct struct {
	ID              string
	Name            string
	CategoryPath    string
	ListPrice       decimal.Decimal
	DiscountedPrice decimal.Decimal
	Description     string
	Variants        []FeedVariant
}

// FeedVariant is one entry of a product's nested variant collection.
// Stock is kept raw; the normalizer decides how to interpret it.
type FeedVariant struct {
	SKU         string
	Stock       string
	OptionValue string
	Images      []string
}

// Feed is the parsed vendor feed in document order
type Feed struct {
	Schema   string
	Products []FeedProduct
}

// FeedStats summarizes the size of a feed
type FeedStats struct {
	ProductCount int `json:"productCount"`
	VariantCount int `json:"variantCount"`
}
