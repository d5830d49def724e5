package usecase

import (
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-yaml"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// categorySeparator splits vendor category paths such as "KADIN > GİYİM > Elbise"
const categorySeparator = ">"

// defaultCategoryMap maps vendor category paths and leaf segments to Shopify
// product taxonomy ids.
var defaultCategoryMap = map[string]string{
	"Giyim > Kadın > Elbise": "gid://shopify/ProductCategory/123",
	"Giyim > Erkek > Tişört": "gid://shopify/ProductCategory/456",
	"Aksesuar > Çanta":       "gid://shopify/ProductCategory/789",

	"KADIN > DIŞ GİYİM > Ceket":  "gid://shopify/ProductCategory/5336",
	"KADIN > GİYİM > Bluz":       "gid://shopify/ProductCategory/5324",
	"KADIN > GİYİM > Elbise":     "gid://shopify/ProductCategory/227",
	"KADIN > GİYİM > Etek":       "gid://shopify/ProductCategory/214",
	"KADIN > GİYİM > Pantolon":   "gid://shopify/ProductCategory/207",
	"KADIN > GİYİM > Tulum":      "gid://shopify/ProductCategory/234",
	"KADIN > GİYİM > T-shirt":    "gid://shopify/ProductCategory/5324",
	"KADIN > GİYİM > Şort":       "gid://shopify/ProductCategory/212",
	"KADIN > GİYİM > Sweatshirt": "gid://shopify/ProductCategory/5324",
	"KADIN > GİYİM > Takım":      "gid://shopify/ProductCategory/5449",
	"KADIN > GİYİM > Tayt":       "gid://shopify/ProductCategory/5431",
	"KADIN > GİYİM > Gömlek":     "gid://shopify/ProductCategory/5324",
	"KADIN > GİYİM > Yelek":      "gid://shopify/ProductCategory/5336",
	"KADIN > GİYİM > Hırka":      "gid://shopify/ProductCategory/5324",
	"KADIN > GİYİM > Body":       "gid://shopify/ProductCategory/5324",
	"KADIN > GİYİM > Büstiyer":   "gid://shopify/ProductCategory/5324",
	"KADIN > GİYİM > Trençkot":   "gid://shopify/ProductCategory/5336",
	"KADIN > GİYİM > Mont":       "gid://shopify/ProductCategory/5336",
	"KADIN > GİYİM > Kaban":      "gid://shopify/ProductCategory/5336",

	// Leaf segments, used when the full path is unknown
	"Ceket":    "gid://shopify/ProductCategory/5336",
	"Elbise":   "gid://shopify/ProductCategory/227",
	"Etek":     "gid://shopify/ProductCategory/214",
	"Pantolon": "gid://shopify/ProductCategory/207",
	"Tulum":    "gid://shopify/ProductCategory/234",
	"Şort":     "gid://shopify/ProductCategory/212",
	"Takım":    "gid://shopify/ProductCategory/5449",
	"Tayt":     "gid://shopify/ProductCategory/5431",
	"Mont":     "gid://shopify/ProductCategory/5336",
	"Kaban":    "gid://shopify/ProductCategory/5336",
	"Trençkot": "gid://shopify/ProductCategory/5336",
}

// CategoryMapper resolves vendor category paths to remote taxonomy ids.
// It is safe for concurrent use once constructed.
type CategoryMapper struct {
	entries map[string]string
}

// NewCategoryMapper creates a mapper from the built-in table merged with extra.
// Keys in extra override built-in keys that compare equal.
func NewCategoryMapper(extra map[string]string) *CategoryMapper {
	m := &CategoryMapper{
		entries: make(map[string]string, len(defaultCategoryMap)+len(extra)),
	}
	for k, v := range defaultCategoryMap {
		m.entries[categoryKey(k)] = v
	}
	for k, v := range extra {
		if strings.TrimSpace(v) == "" {
			continue
		}
		m.entries[categoryKey(k)] = strings.TrimSpace(v)
	}
	return m
}

// LoadCategoryMapper builds a mapper and merges the YAML file at path, if given.
// The file is a flat mapping of category path to taxonomy id.
func LoadCategoryMapper(path string) (*CategoryMapper, error) {
	if path == "" {
		return NewCategoryMapper(nil), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read category map: %w", err)
	}

	var extra map[string]string
	if err := yaml.Unmarshal(data, &extra); err != nil {
		return nil, fmt.Errorf("parse category map %s: %w", path, err)
	}

	return NewCategoryMapper(extra), nil
}

// Resolve returns the taxonomy id for a category path. The full path is tried
// first, then each segment from the most specific to the least.
func (m *CategoryMapper) Resolve(path string) (string, bool) {
	segments := splitCategoryPath(path)
	if len(segments) == 0 {
		return "", false
	}

	if id, ok := m.entries[categoryKey(path)]; ok {
		return id, true
	}

	for i := len(segments) - 1; i >= 0; i-- {
		if id, ok := m.entries[categoryKey(segments[i])]; ok {
			return id, true
		}
	}
	return "", false
}

// Len returns the number of known keys
func (m *CategoryMapper) Len() int {
	return len(m.entries)
}

// categoryKey normalizes a path for lookup: segments trimmed, Turkish-aware lowercase.
// A Caser is not safe for concurrent use, so one is built per call.
func categoryKey(path string) string {
	return cases.Lower(language.Turkish).String(strings.Join(splitCategoryPath(path), " "+categorySeparator+" "))
}

// splitCategoryPath splits on ">" and drops blank segments
func splitCategoryPath(path string) []string {
	parts := strings.Split(path, categorySeparator)
	segments := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			segments = append(segments, p)
		}
	}
	return segments
}
