package recognition

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/go-resty/resty/v2"
	"github.com/pricelens/pricelens/internal/httputil"
	"github.com/rs/zerolog/log"
)

const defaultWebDetectionBaseURL = "https://vision.googleapis.com"

// WebLabelRecognizer identifies an item by web detection: the backend
// returns best-guess labels and ranked web entities, and the recognizer
// reduces them to a single labeled match.
type WebLabelRecognizer struct {
	httpClient *resty.Client
	apiKey     string
}

// NewWebLabelRecognizer creates a web-detection backed recognizer.
func NewWebLabelRecognizer(opts ClientOpts) *WebLabelRecognizer {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = defaultWebDetectionBaseURL
	}
	return &WebLabelRecognizer{
		httpClient: resty.New().
			SetBaseURL(baseURL).
			SetHeader("Accept", "application/json"),
		apiKey: opts.APIKey,
	}
}

type annotateRequest struct {
	Requests []annotateEntry `json:"requests"`
}

type annotateEntry struct {
	Image    annotateImage     `json:"image"`
	Features []annotateFeature `json:"features"`
}

type annotateImage struct {
	Content string `json:"content"` // base64
}

type annotateFeature struct {
	Type       string `json:"type"`
	MaxResults int    `json:"maxResults,omitempty"`
}

type annotateResponse struct {
	Responses []struct {
		WebDetection *webDetection  `json:"webDetection"`
		Error        *backendStatus `json:"error"`
	} `json:"responses"`
}

type backendStatus struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type webDetection struct {
	WebEntities           []webEntity      `json:"webEntities"`
	BestGuessLabels       []bestGuessLabel `json:"bestGuessLabels"`
	VisuallySimilarImages []similarImage   `json:"visuallySimilarImages"`
}

type webEntity struct {
	Description string  `json:"description"`
	Score       float64 `json:"score"`
}

type bestGuessLabel struct {
	Label string `json:"label"`
}

type similarImage struct {
	URL string `json:"url"`
}

// Recognize implements Recognizer. It always produces exactly one match.
func (r *WebLabelRecognizer) Recognize(ctx context.Context, image []byte) ([]Match, error) {
	body := annotateRequest{
		Requests: []annotateEntry{{
			Image: annotateImage{Content: base64.StdEncoding.EncodeToString(image)},
			Features: []annotateFeature{
				{Type: "WEB_DETECTION", MaxResults: 10},
			},
		}},
	}

	result := &annotateResponse{}
	_, err := httputil.HandleError(r.httpClient.NewRequest().
		SetContext(ctx).
		SetQueryParam("key", r.apiKey).
		SetBody(body).
		SetResult(result).
		Post("/v1/images:annotate"))
	if err != nil {
		return nil, fmt.Errorf("web detection request failed: %w", err)
	}

	if len(result.Responses) == 0 {
		return nil, fmt.Errorf("web detection returned no response entries")
	}
	entry := result.Responses[0]
	if entry.Error != nil {
		return nil, fmt.Errorf("web detection error: %s", entry.Error.Message)
	}

	match := matchFromWebDetection(entry.WebDetection)
	log.Debug().
		Str("title", match.Title).
		Float64("confidence", match.Confidence).
		Msg("web detection match")

	return []Match{match}, nil
}

// matchFromWebDetection reduces a web detection to a single labeled match.
// The best-guess label wins; the top entity's description is the fallback.
func matchFromWebDetection(wd *webDetection) Match {
	match := Match{Title: UnknownItemTitle}
	if wd == nil {
		return match
	}

	if len(wd.BestGuessLabels) > 0 && wd.BestGuessLabels[0].Label != "" {
		match.Title = wd.BestGuessLabels[0].Label
	} else if len(wd.WebEntities) > 0 && wd.WebEntities[0].Description != "" {
		match.Title = wd.WebEntities[0].Description
	}

	if len(wd.WebEntities) > 0 {
		match.Confidence = wd.WebEntities[0].Score
	}
	if len(wd.VisuallySimilarImages) > 0 {
		match.ThumbnailURL = wd.VisuallySimilarImages[0].URL
	}

	return match
}
