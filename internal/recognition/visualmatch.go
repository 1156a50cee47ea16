package recognition

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/pricelens/pricelens/internal/httputil"
	"github.com/rs/zerolog/log"
)

// VisualMatchRecognizer identifies items by reverse visual search: the
// backend performs multi-item detection and returns every visually matching
// product listing it can find.
type VisualMatchRecognizer struct {
	httpClient *resty.Client
	apiKey     string
}

// NewVisualMatchRecognizer creates a visual-search backed recognizer.
func NewVisualMatchRecognizer(opts ClientOpts) *VisualMatchRecognizer {
	return &VisualMatchRecognizer{
		httpClient: resty.New().
			SetBaseURL(opts.BaseURL).
			SetHeader("Accept", "application/json"),
		apiKey: opts.APIKey,
	}
}

type visualSearchRequest struct {
	Content string `json:"content"` // base64
}

type visualSearchResponse struct {
	VisualMatches []visualMatch  `json:"visual_matches"`
	Error         *backendStatus `json:"error"`
}

type visualMatch struct {
	Title             string      `json:"title"`
	Source            string      `json:"source"`
	Price             *matchPrice `json:"price"`
	TypicalPriceRange []string    `json:"typical_price_range"`
	Link              string      `json:"link"`
	Thumbnail         string      `json:"thumbnail"`
	ConfidenceScore   float64     `json:"confidence_score"`
}

type matchPrice struct {
	Value          string  `json:"value"`
	ExtractedValue float64 `json:"extracted_value"`
	Currency       string  `json:"currency"`
}

// Recognize implements Recognizer. Every visual match comes back verbatim as
// a Match; an empty slice with a nil error means the backend found nothing.
func (r *VisualMatchRecognizer) Recognize(ctx context.Context, image []byte) ([]Match, error) {
	result := &visualSearchResponse{}
	_, err := httputil.HandleError(r.httpClient.NewRequest().
		SetContext(ctx).
		SetQueryParam("key", r.apiKey).
		SetBody(visualSearchRequest{Content: base64.StdEncoding.EncodeToString(image)}).
		SetResult(result).
		Post("/v1/visual-search"))
	if err != nil {
		return nil, fmt.Errorf("visual search request failed: %w", err)
	}
	if result.Error != nil {
		return nil, fmt.Errorf("visual search error: %s", result.Error.Message)
	}

	matches := make([]Match, 0, len(result.VisualMatches))
	for _, vm := range result.VisualMatches {
		matches = append(matches, matchFromVisualMatch(vm))
	}

	log.Debug().Int("matchCount", len(matches)).Msg("visual search matches")
	return matches, nil
}

// matchFromVisualMatch maps one backend visual match onto a Match. A
// directly detected price is preferred over a typical range.
func matchFromVisualMatch(vm visualMatch) Match {
	m := Match{
		Title:         vm.Title,
		SourceDomain:  vm.Source,
		ReferenceLink: vm.Link,
		ThumbnailURL:  vm.Thumbnail,
		Confidence:    vm.ConfidenceScore,
	}
	if vm.Price != nil && vm.Price.Value != "" {
		m.Price = vm.Price.Value
	}
	if len(vm.TypicalPriceRange) > 0 {
		m.PriceRange = strings.Join(vm.TypicalPriceRange, " - ")
	}
	return m
}
