package recognition

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebLabelRecognizeBestGuessLabel(t *testing.T) {
	var req *http.Request
	var reqBody []byte
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req = r
		reqBody, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"responses":[{"webDetection":{
			"bestGuessLabels":[{"label":"madewell transport tote"}],
			"webEntities":[{"description":"Tote bag","score":0.87}],
			"visuallySimilarImages":[{"url":"https://example.com/sim.jpg"}]
		}}]}`)
	}))
	defer ts.Close()

	r := NewWebLabelRecognizer(ClientOpts{BaseURL: ts.URL, APIKey: "test-key"})
	matches, err := r.Recognize(context.Background(), []byte("fake image bytes"))
	require.NoError(t, err)
	require.Len(t, matches, 1)

	assert.Equal(t, "madewell transport tote", matches[0].Title)
	assert.Equal(t, 0.87, matches[0].Confidence)
	assert.Equal(t, "https://example.com/sim.jpg", matches[0].ThumbnailURL)

	assert.Equal(t, "/v1/images:annotate", req.URL.Path)
	assert.Equal(t, "test-key", req.URL.Query().Get("key"))

	var body annotateRequest
	require.NoError(t, json.Unmarshal(reqBody, &body))
	require.Len(t, body.Requests, 1)
	assert.Equal(t, "WEB_DETECTION", body.Requests[0].Features[0].Type)
	assert.NotEmpty(t, body.Requests[0].Image.Content)
}

func TestWebLabelRecognizeEntityFallback(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"responses":[{"webDetection":{
			"webEntities":[{"description":"Hermes Hat","score":0.55},{"description":"Hat","score":0.40}]
		}}]}`)
	}))
	defer ts.Close()

	r := NewWebLabelRecognizer(ClientOpts{BaseURL: ts.URL})
	matches, err := r.Recognize(context.Background(), []byte("img"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "Hermes Hat", matches[0].Title)
	assert.Equal(t, 0.55, matches[0].Confidence)
	assert.Empty(t, matches[0].ThumbnailURL)
}

func TestWebLabelRecognizeUnknownItem(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"responses":[{"webDetection":{}}]}`)
	}))
	defer ts.Close()

	r := NewWebLabelRecognizer(ClientOpts{BaseURL: ts.URL})
	matches, err := r.Recognize(context.Background(), []byte("img"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, UnknownItemTitle, matches[0].Title)
	assert.Equal(t, 0.0, matches[0].Confidence)
}

func TestWebLabelRecognizeServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	r := NewWebLabelRecognizer(ClientOpts{BaseURL: ts.URL})
	_, err := r.Recognize(context.Background(), []byte("img"))
	assert.Error(t, err)
}

func TestWebLabelRecognizeBackendError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"responses":[{"error":{"code":7,"message":"permission denied"}}]}`)
	}))
	defer ts.Close()

	r := NewWebLabelRecognizer(ClientOpts{BaseURL: ts.URL})
	_, err := r.Recognize(context.Background(), []byte("img"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "permission denied")
}
