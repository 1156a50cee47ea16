package recognition

import "context"

// Recognition modes selectable via configuration.
const (
	ModeWebLabel    = "weblabel"
	ModeVisualMatch = "visualmatch"
)

// UnknownItemTitle is used when the web-detection backend returns neither a
// best-guess label nor any web entity for an image.
const UnknownItemTitle = "Unknown Item"

// Match is one candidate item hypothesis returned by a recognition backend
// for one image. Title is required; everything else is best effort.
type Match struct {
	Title         string  `json:"title"`
	SourceDomain  string  `json:"sourceDomain,omitempty"`
	Price         string  `json:"price,omitempty"`      // directly detected price, e.g. "$45.00"
	PriceRange    string  `json:"priceRange,omitempty"` // typical range, e.g. "$40 - $50"
	ReferenceLink string  `json:"referenceLink,omitempty"`
	ThumbnailURL  string  `json:"thumbnailUrl,omitempty"`
	Confidence    float64 `json:"confidence,omitempty"` // [0,1]; zero when the backend omitted a score
}

// Usable reports whether the match carries enough data to become a result
// row. A match without a title cannot be normalized.
func (m Match) Usable() bool {
	return m.Title != ""
}

// PriceSignal returns the inline price for the match, preferring a directly
// detected price over a typical range.
func (m Match) PriceSignal() string {
	if m.Price != "" {
		return m.Price
	}
	return m.PriceRange
}

// Recognizer identifies retail items in an image. Implementations are
// stateless: the result is a pure function of the image bytes.
type Recognizer interface {
	Recognize(ctx context.Context, image []byte) ([]Match, error)
}

// ClientOpts configures a recognizer backed by a remote service.
type ClientOpts struct {
	BaseURL string
	APIKey  string
}
