package feed

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"mime"
	"regexp"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"

	"github.com/vervegrand/feedsync/internal/domain"
)

var prologEncodingRegex = regexp.MustCompile(`(?i)<\?xml[^>]*encoding\s*=\s*["']([A-Za-z0-9._:-]+)["']`)

// Parser decodes vendor feed documents into domain records.
type Parser struct{}

// NewParser creates a feed parser
func NewParser() *Parser {
	return &Parser{}
}

// Parse decodes data to UTF-8 using the charset declared by contentType or the XML
// prolog, then parses it with the schema matching the root element.
func (p *Parser) Parse(data []byte, contentType string) (*domain.Feed, error) {
	text, err := toUTF8(data, detectCharset(data, contentType))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrFeedMalformed, err)
	}

	d := xml.NewDecoder(bytes.NewReader(text))
	// The body is already UTF-8; the prolog may still name the original charset.
	d.CharsetReader = func(_ string, input io.Reader) (io.Reader, error) {
		return input, nil
	}

	root, err := firstElement(d)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrFeedMalformed, err)
	}

	s, ok := schemasByRoot[root.Name.Local]
	if !ok {
		return nil, fmt.Errorf("%w: unknown root element <%s>", domain.ErrFeedMalformed, root.Name.Local)
	}

	products, err := s.decode(d, root)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrFeedMalformed, err)
	}

	return &domain.Feed{Schema: s.name, Products: products}, nil
}

// Stats counts the products and variants of a parsed feed
func Stats(f *domain.Feed) domain.FeedStats {
	stats := domain.FeedStats{ProductCount: len(f.Products)}
	for _, p := range f.Products {
		stats.VariantCount += len(p.Variants)
	}
	return stats
}

func firstElement(d *xml.Decoder) (*xml.StartElement, error) {
	for {
		tok, err := d.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, errors.New("document has no root element")
			}
			return nil, err
		}
		if se, ok := tok.(xml.StartElement); ok {
			return &se, nil
		}
	}
}

// detectCharset prefers the HTTP declared charset over the XML prolog.
func detectCharset(data []byte, contentType string) string {
	if contentType != "" {
		if _, params, err := mime.ParseMediaType(contentType); err == nil {
			if cs := params["charset"]; cs != "" {
				return cs
			}
		}
	}
	head := data
	if len(head) > 256 {
		head = head[:256]
	}
	if m := prologEncodingRegex.FindSubmatch(head); m != nil {
		return string(m[1])
	}
	return "utf-8"
}

func toUTF8(data []byte, charset string) ([]byte, error) {
	var enc encoding.Encoding = unicode.UTF8BOM
	if cs := strings.ToLower(strings.TrimSpace(charset)); cs != "utf-8" && cs != "utf8" {
		e, err := htmlindex.Get(cs)
		if err != nil {
			return nil, fmt.Errorf("unsupported charset %q", charset)
		}
		enc = e
	}
	out, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", charset, err)
	}
	return out, nil
}
