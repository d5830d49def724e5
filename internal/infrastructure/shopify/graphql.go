package shopify

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/vervegrand/feedsync/internal/domain"
)

const productByHandleQuery = `query productByHandle($handle: String!) {
  productByHandle(handle: $handle) {
    id
    handle
    title
    variants(first: 100) {
      edges { node { id sku } }
    }
  }
}`

// productPageSize bounds each listing page
const productPageSize = 50

const productsPageQuery = `query getAllProducts($cursor: String, $first: Int!) {
  products(first: $first, after: $cursor) {
    pageInfo { hasNextPage endCursor }
    edges {
      node {
        id
        handle
        title
        variants(first: 100) {
          edges { node { id sku price compareAtPrice inventoryQuantity } }
        }
      }
    }
  }
}`

type graphQLRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables,omitempty"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLError  `json:"errors,omitempty"`
}

type graphQLError struct {
	Message    string                 `json:"message"`
	Extensions map[string]interface{} `json:"extensions,omitempty"`
}

// asError folds the GraphQL error list into one APIError. THROTTLED maps to 429.
func (r graphQLResponse) asError(op string) *domain.APIError {
	messages := make([]string, 0, len(r.Errors))
	status := 0
	for _, e := range r.Errors {
		messages = append(messages, e.Message)
		if code, _ := e.Extensions["code"].(string); code == "THROTTLED" {
			status = http.StatusTooManyRequests
		}
	}
	return &domain.APIError{Operation: op, StatusCode: status, Message: strings.Join(messages, "; ")}
}

type pageInfo struct {
	HasNextPage bool   `json:"hasNextPage"`
	EndCursor   string `json:"endCursor"`
}

type variantNode struct {
	ID                string `json:"id"`
	SKU               string `json:"sku"`
	Price             string `json:"price"`
	CompareAtPrice    string `json:"compareAtPrice"`
	InventoryQuantity *int   `json:"inventoryQuantity"`
}

type productNode struct {
	ID       string `json:"id"`
	Handle   string `json:"handle"`
	Title    string `json:"title"`
	Variants struct {
		Edges []struct {
			Node variantNode `json:"node"`
		} `json:"edges"`
	} `json:"variants"`
}

func (n productNode) toRemote() domain.RemoteProduct {
	remote := domain.RemoteProduct{
		ID:       n.ID,
		Handle:   n.Handle,
		Title:    n.Title,
		Variants: make([]domain.RemoteVariant, 0, len(n.Variants.Edges)),
	}
	for _, e := range n.Variants.Edges {
		remote.Variants = append(remote.Variants, domain.RemoteVariant{
			ID:                e.Node.ID,
			SKU:               e.Node.SKU,
			Price:             e.Node.Price,
			CompareAtPrice:    e.Node.CompareAtPrice,
			InventoryQuantity: e.Node.InventoryQuantity,
		})
	}
	return remote
}

type productByHandleData struct {
	ProductByHandle *productNode `json:"productByHandle"`
}

type productsPageData struct {
	Products struct {
		PageInfo pageInfo `json:"pageInfo"`
		Edges    []struct {
			Node productNode `json:"node"`
		} `json:"edges"`
	} `json:"products"`
}
