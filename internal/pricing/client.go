package pricing

import (
	"context"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/pricelens/pricelens/internal/httputil"
	"github.com/rs/zerolog/log"
)

// Sentinel values for a missing or failed lookup. These surface verbatim at
// the JSON and CSV boundaries.
const (
	PriceUnavailable = "N/A"
	LinkUnavailable  = "#"
)

// Quote is a best-effort market price with a reference link.
type Quote struct {
	Price string
	Link  string
}

// unavailableQuote is returned whenever no useful price can be resolved.
func unavailableQuote() Quote {
	return Quote{Price: PriceUnavailable, Link: LinkUnavailable}
}

// Client queries a structured product-search backend for market prices.
type Client struct {
	httpClient *resty.Client
	apiKey     string
}

// ClientOpts configures a pricing client.
type ClientOpts struct {
	BaseURL string
	APIKey  string
}

// NewClient creates a pricing client.
func NewClient(opts ClientOpts) *Client {
	return &Client{
		httpClient: resty.New().
			SetBaseURL(opts.BaseURL).
			SetHeader("Accept", "application/json"),
		apiKey: opts.APIKey,
	}
}

type searchResponse struct {
	ShoppingResults []listing `json:"shopping_results"`
}

type listing struct {
	Title             string   `json:"title"`
	Price             string   `json:"price"`
	TypicalPriceRange []string `json:"typical_price_range"`
	Link              string   `json:"link"`
}

// Lookup resolves a best-effort price for a free-text query. It never fails:
// any error or empty result set degrades to the sentinel quote, since a
// missing price must not block the pipeline.
func (c *Client) Lookup(ctx context.Context, query string) Quote {
	query = strings.TrimSpace(query)
	if query == "" || query == PriceUnavailable {
		return unavailableQuote()
	}

	result := &searchResponse{}
	_, err := httputil.HandleError(c.httpClient.NewRequest().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"key": c.apiKey,
			"q":   query,
		}).
		SetResult(result).
		Get("/v1/shopping/search"))
	if err != nil {
		log.Warn().Err(err).Str("query", query).Msg("price lookup failed")
		return unavailableQuote()
	}

	if len(result.ShoppingResults) == 0 {
		log.Debug().Str("query", query).Msg("price lookup returned no listings")
		return unavailableQuote()
	}

	return quoteFromListing(result.ShoppingResults[0])
}

// quoteFromListing resolves the price of a listing. A typical price range is
// preferred over a single listed price: one seller's number is a weaker
// signal of market value than the observed range.
func quoteFromListing(l listing) Quote {
	q := unavailableQuote()
	if len(l.TypicalPriceRange) > 0 {
		q.Price = strings.Join(l.TypicalPriceRange, " - ")
	} else if l.Price != "" {
		q.Price = l.Price
	}
	if l.Link != "" {
		q.Link = l.Link
	}
	return q
}
