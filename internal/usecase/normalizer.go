package usecase

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/vervegrand/feedsync/internal/domain"
	"github.com/vervegrand/feedsync/internal/logging"
)

// Compiled patterns for handle generation
var (
	slugInvalidRegex   = regexp.MustCompile(`[^a-z0-9\s-]`)
	slugSeparatorRegex = regexp.MustCompile(`[\s-]+`)
)

// dotlessReplacer folds the Turkish letters that have no canonical decomposition
var dotlessReplacer = strings.NewReplacer("ı", "i", "İ", "I")

// Normalizer converts parsed feed records into canonical products.
type Normalizer struct {
	categories *CategoryMapper
	logger     zerolog.Logger
}

// NormalizeResult is the output of one normalization pass
type NormalizeResult struct {
	Products []domain.Product
	// Excluded counts feed products dropped for having no SKU-bearing variant
	Excluded int
	// Unmapped lists distinct category paths with no taxonomy id, first-seen order
	Unmapped []string
}

// NewNormalizer creates a normalizer. A nil mapper uses the built-in table.
func NewNormalizer(categories *CategoryMapper) *Normalizer {
	if categories == nil {
		categories = NewCategoryMapper(nil)
	}
	return &Normalizer{
		categories: categories,
		logger:     logging.Component("normalizer"),
	}
}

// Normalize builds canonical products in feed order.
func (n *Normalizer) Normalize(records []domain.FeedProduct) NormalizeResult {
	result := NormalizeResult{Products: make([]domain.Product, 0, len(records))}
	seenUnmapped := make(map[string]struct{})

	for i := range records {
		product, ok := n.normalizeProduct(&records[i])
		if !ok {
			result.Excluded++
			n.logger.Debug().Str("source_id", records[i].ID).Str("name", records[i].Name).Msg("Skipping product without SKU variants")
			continue
		}

		if product.CategoryID == "" && records[i].CategoryPath != "" {
			path := strings.TrimSpace(records[i].CategoryPath)
			if _, seen := seenUnmapped[path]; !seen {
				seenUnmapped[path] = struct{}{}
				result.Unmapped = append(result.Unmapped, path)
			}
		}

		result.Products = append(result.Products, product)
	}

	return result
}

func (n *Normalizer) normalizeProduct(r *domain.FeedProduct) (domain.Product, bool) {
	title := strings.TrimSpace(r.Name)
	if title == "" {
		return domain.Product{}, false
	}

	price := EffectivePrice(r)

	var (
		variants     []domain.Variant
		optionValues []string
		images       []domain.Image
		seenValues   = make(map[string]struct{})
		seenImages   = make(map[string]struct{})
		seenSKUs     = make(map[string]struct{})
	)

	for _, v := range r.Variants {
		sku := strings.TrimSpace(v.SKU)
		if sku == "" {
			continue
		}
		if _, dup := seenSKUs[sku]; dup {
			n.logger.Warn().Str("sku", sku).Str("title", title).Msg("Duplicate SKU in product, keeping first")
			continue
		}
		seenSKUs[sku] = struct{}{}

		value := strings.TrimSpace(v.OptionValue)
		if value == "" {
			value = domain.DefaultOptionValue
		}
		variants = append(variants, domain.Variant{
			SKU:               sku,
			Price:             price,
			InventoryQuantity: ParseStock(v.Stock),
			OptionValue:       value,
		})

		if _, seen := seenValues[value]; !seen {
			seenValues[value] = struct{}{}
			optionValues = append(optionValues, value)
		}

		for _, src := range v.Images {
			src = strings.TrimSpace(src)
			if src == "" {
				continue
			}
			if _, seen := seenImages[src]; !seen {
				seenImages[src] = struct{}{}
				images = append(images, domain.Image{Src: src})
			}
		}
	}

	if len(variants) == 0 {
		return domain.Product{}, false
	}

	segments := splitCategoryPath(r.CategoryPath)
	productType := domain.DefaultProductType
	if len(segments) > 0 {
		productType = segments[len(segments)-1]
	}
	categoryID, _ := n.categories.Resolve(r.CategoryPath)

	return domain.Product{
		Handle:      Handle(title, r.ID),
		SourceID:    strings.TrimSpace(r.ID),
		Title:       title,
		BodyHTML:    r.Description,
		Vendor:      domain.DefaultVendor,
		ProductType: productType,
		Tags:        segments,
		Options:     []domain.Option{{Name: domain.SizeOptionName, Values: optionValues}},
		Variants:    variants,
		Images:      images,
		CategoryID:  categoryID,
	}, true
}

// EffectivePrice is the discounted price when positive, otherwise the list price.
// It applies uniformly to every variant of the product.
func EffectivePrice(r *domain.FeedProduct) decimal.Decimal {
	if r.DiscountedPrice.IsPositive() {
		return r.DiscountedPrice
	}
	return r.ListPrice
}

// ParseStock parses a stock count. Unparseable or negative values yield 0.
func ParseStock(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// Handle derives the stable matching key for a product from its title and
// source id: "Keten Gömlek" + "101" -> "keten-gomlek-101". Both parts are
// slugified so the remote stores the handle exactly as sent.
func Handle(title, sourceID string) string {
	slug := Slugify(title)
	sourceID = Slugify(sourceID)
	if slug == "" {
		return sourceID
	}
	if sourceID == "" {
		return slug
	}
	return slug + "-" + sourceID
}

// Slugify lowercases, folds Turkish and other accented letters to ASCII,
// strips punctuation and joins words with hyphens.
func Slugify(s string) string {
	s = dotlessReplacer.Replace(s)

	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}

	folded = strings.ToLower(folded)
	folded = slugInvalidRegex.ReplaceAllString(folded, "")
	folded = slugSeparatorRegex.ReplaceAllString(strings.TrimSpace(folded), "-")
	return strings.Trim(folded, "-")
}
