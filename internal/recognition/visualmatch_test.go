package recognition

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVisualMatchRecognize(t *testing.T) {
	var req *http.Request
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req = r
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"visual_matches":[
			{"title":"Madewell The Pouch Wallet","source":"madewell.com",
			 "price":{"value":"$45.00","extracted_value":45,"currency":"USD"},
			 "typical_price_range":["$40 - $50"],
			 "link":"https://madewell.com/pouch","thumbnail":"https://img/1.jpg",
			 "confidence_score":0.91},
			{"title":"Leather Wallet","source":"etsy.com",
			 "typical_price_range":["$30","$60"],
			 "link":"https://etsy.com/wallet","thumbnail":"https://img/2.jpg"}
		]}`)
	}))
	defer ts.Close()

	r := NewVisualMatchRecognizer(ClientOpts{BaseURL: ts.URL, APIKey: "k"})
	matches, err := r.Recognize(context.Background(), []byte("img"))
	require.NoError(t, err)
	require.Len(t, matches, 2)

	assert.Equal(t, "/v1/visual-search", req.URL.Path)

	assert.Equal(t, Match{
		Title:         "Madewell The Pouch Wallet",
		SourceDomain:  "madewell.com",
		Price:         "$45.00",
		PriceRange:    "$40 - $50",
		ReferenceLink: "https://madewell.com/pouch",
		ThumbnailURL:  "https://img/1.jpg",
		Confidence:    0.91,
	}, matches[0])

	// No direct price: only the joined range survives.
	assert.Equal(t, "", matches[1].Price)
	assert.Equal(t, "$30 - $60", matches[1].PriceRange)
	assert.Equal(t, 0.0, matches[1].Confidence)
}

func TestVisualMatchPriceSignalPrefersDirectPrice(t *testing.T) {
	m := Match{Price: "$45.00", PriceRange: "$40 - $50"}
	assert.Equal(t, "$45.00", m.PriceSignal())

	m = Match{PriceRange: "$40 - $50"}
	assert.Equal(t, "$40 - $50", m.PriceSignal())

	assert.Equal(t, "", Match{}.PriceSignal())
}

func TestVisualMatchRecognizeNoMatches(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"visual_matches":[]}`)
	}))
	defer ts.Close()

	r := NewVisualMatchRecognizer(ClientOpts{BaseURL: ts.URL})
	matches, err := r.Recognize(context.Background(), []byte("img"))
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestVisualMatchRecognizeServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	r := NewVisualMatchRecognizer(ClientOpts{BaseURL: ts.URL})
	_, err := r.Recognize(context.Background(), []byte("img"))
	assert.Error(t, err)
}
