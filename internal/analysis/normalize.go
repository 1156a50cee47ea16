package analysis

import (
	"strings"
	"unicode"

	"github.com/pricelens/pricelens/internal/imaging"
	"github.com/pricelens/pricelens/internal/pricing"
	"github.com/pricelens/pricelens/internal/recognition"
)

// BrandFromDomain derives a display brand from a match's source domain:
// strip the scheme and a leading "www.", take the first path segment, cut at
// the first dot, capitalize the first rune. "madewell.com" -> "Madewell".
func BrandFromDomain(domain string) string {
	s := strings.TrimSpace(domain)
	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimPrefix(s, "http://")
	s = strings.TrimPrefix(s, "www.")
	if i := strings.Index(s, "/"); i >= 0 {
		s = s[:i]
	}
	if i := strings.Index(s, "."); i >= 0 {
		s = s[:i]
	}
	return capitalize(s)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

// splitBrandModel removes the brand prefix from a title to produce the
// model. When the title does not start with the brand, the model is the full
// title.
func splitBrandModel(brand, title string) string {
	if brand != "" && strings.HasPrefix(strings.ToLower(title), strings.ToLower(brand)) {
		model := strings.TrimSpace(title[len(brand):])
		if model != "" {
			return model
		}
	}
	return title
}

// dedupeMatches drops unusable matches and, within one image, every match
// whose title was already seen case-insensitively. First seen wins and the
// backend's ordering is preserved.
func dedupeMatches(matches []recognition.Match) []recognition.Match {
	seen := make(map[string]bool, len(matches))
	out := make([]recognition.Match, 0, len(matches))
	for _, m := range matches {
		if !m.Usable() {
			continue
		}
		key := strings.ToLower(m.Title)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, m)
	}
	return out
}

// NormalizeVisualMatches turns one image's visual-search matches into result
// rows. The condition judgment is broadcast to every row, since condition
// describes the photographed object rather than the metadata match. Zero
// usable matches yield a single terminal "Not Found" row so the image never
// disappears from the output silently.
func NormalizeVisualMatches(fileName string, matches []recognition.Match, conditionText string) []Result {
	deduped := dedupeMatches(matches)
	if len(deduped) == 0 {
		return []Result{{
			FileName:           fileName,
			Brand:              BrandNotFound,
			Model:              ValueUnavailable,
			Description:        "No visual matches found",
			Condition:          conditionText,
			CurrentRetailPrice: ValueUnavailable,
			WebLink:            LinkUnavailable,
			Confidence:         ZeroConfidence,
			NeedsReview:        true,
		}}
	}

	results := make([]Result, 0, len(deduped))
	for _, m := range deduped {
		brand := BrandFromDomain(m.SourceDomain)
		price := m.PriceSignal()
		if price == "" {
			price = ValueUnavailable
		}
		link := m.ReferenceLink
		if link == "" {
			link = LinkUnavailable
		}
		results = append(results, Result{
			FileName:           fileName,
			Brand:              brand,
			Model:              splitBrandModel(brand, m.Title),
			Description:        m.Title,
			Condition:          conditionText,
			CurrentRetailPrice: price,
			WebLink:            link,
			ItemPictureURL:     m.ThumbnailURL,
			Confidence:         FormatConfidence(m.Confidence),
			NeedsReview:        m.Confidence < ReviewThreshold,
		})
	}
	return results
}

// NormalizeLabelMatch turns the single label-based match for an image into a
// result row, attaching the price quote and condition fetched for it. The
// brand is the first whitespace token of the description, capitalized; the
// rest is the model. A single-token description keeps the model equal to the
// full description.
func NormalizeLabelMatch(fileName string, m recognition.Match, quote pricing.Quote, conditionText string) Result {
	brand := ""
	model := m.Title
	fields := strings.Fields(m.Title)
	if len(fields) > 0 {
		brand = capitalize(fields[0])
		if len(fields) > 1 {
			model = strings.Join(fields[1:], " ")
		}
	}

	return Result{
		FileName:           fileName,
		Brand:              brand,
		Model:              model,
		Description:        m.Title,
		Condition:          conditionText,
		CurrentRetailPrice: quote.Price,
		WebLink:            quote.Link,
		ItemPictureURL:     m.ThumbnailURL,
		Confidence:         FormatConfidence(m.Confidence),
		NeedsReview:        m.Confidence < ReviewThreshold,
	}
}

// ConversionErrorResult records a failed HEIC transcode as a sentinel row so
// the rest of the batch keeps going.
func ConversionErrorResult(convErr *imaging.ConversionError) Result {
	return Result{
		FileName:           convErr.Filename,
		Brand:              BrandConversionError,
		Model:              ValueUnavailable,
		Description:        convErr.Err.Error(),
		Condition:          ValueUnavailable,
		CurrentRetailPrice: ValueUnavailable,
		WebLink:            LinkUnavailable,
		Confidence:         ZeroConfidence,
		NeedsReview:        true,
	}
}
