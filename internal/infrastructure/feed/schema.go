package feed

import (
	"encoding/xml"
	"strings"

	"github.com/vervegrand/feedsync/internal/domain"
)

// SchemaSentosV1 is the Sentos export layout: Urunler/Urun with nested Varyantlar/Varyant.
const SchemaSentosV1 = "sentos/v1"

// schema decodes one known feed layout starting at its root element.
type schema struct {
	name   string
	decode func(d *xml.Decoder, root *xml.StartElement) ([]domain.FeedProduct, error)
}

// schemasByRoot selects the layout from the document's root element name.
var schemasByRoot = map[string]schema{
	"Urunler": {name: SchemaSentosV1, decode: decodeSentosV1},
}

type sentosFeed struct {
	XMLName  xml.Name        `xml:"Urunler"`
	Products []sentosProduct `xml:"Urun"`
}

type sentosProduct struct {
	ID              string          `xml:"id"`
	Name            string          `xml:"urunismi"`
	CategoryPath    string          `xml:"kategori_ismi"`
	ListPrice       string          `xml:"satis_fiyati"`
	DiscountedPrice string          `xml:"indirimli_fiyat"`
	Description     string          `xml:"detayaciklama"`
	Variants        *sentosVariants `xml:"Varyantlar"`
}

type sentosVariants struct {
	Items []sentosVariant `xml:"Varyant"`
}

type sentosVariant struct {
	SKU         string   `xml:"stok_kodu"`
	Stock       string   `xml:"stok"`
	OptionValue string   `xml:"Varyant_deger"`
	Images      []string `xml:"resimler>resim"`
}

func decodeSentosV1(d *xml.Decoder, root *xml.StartElement) ([]domain.FeedProduct, error) {
	var doc sentosFeed
	if err := d.DecodeElement(&doc, root); err != nil {
		return nil, err
	}

	products := make([]domain.FeedProduct, 0, len(doc.Products))
	for _, p := range doc.Products {
		name := strings.TrimSpace(p.Name)
		if name == "" {
			continue
		}
		if p.Variants == nil || len(p.Variants.Items) == 0 {
			continue
		}

		variants := make([]domain.FeedVariant, 0, len(p.Variants.Items))
		for _, v := range p.Variants.Items {
			images := make([]string, 0, len(v.Images))
			for _, img := range v.Images {
				if img = strings.TrimSpace(img); img != "" {
					images = append(images, img)
				}
			}
			variants = append(variants, domain.FeedVariant{
				SKU:         strings.TrimSpace(v.SKU),
				Stock:       strings.TrimSpace(v.Stock),
				OptionValue: strings.TrimSpace(v.OptionValue),
				Images:      images,
			})
		}

		products = append(products, domain.FeedProduct{
			ID:              strings.TrimSpace(p.ID),
			Name:            name,
			CategoryPath:    strings.TrimSpace(p.CategoryPath),
			ListPrice:       ParsePrice(p.ListPrice),
			DiscountedPrice: ParsePrice(p.DiscountedPrice),
			Description:     strings.TrimSpace(p.Description),
			Variants:        variants,
		})
	}
	return products, nil
}
