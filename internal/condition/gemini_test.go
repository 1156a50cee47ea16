package condition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/genai"
)

func TestEmptyResponse(t *testing.T) {
	assert.True(t, emptyResponse(&genai.GenerateContentResponse{}))

	// A safety block yields a candidate whose content is nil.
	assert.True(t, emptyResponse(&genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{FinishReason: genai.FinishReasonSafety}},
	}))

	assert.True(t, emptyResponse(&genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{}}},
	}))

	assert.False(t, emptyResponse(&genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{
			Parts: []*genai.Part{genai.NewPartFromText("Good - light scuffing on the corners.")},
		}}},
	}))
}
