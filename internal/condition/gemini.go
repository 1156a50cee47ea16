package condition

import (
	"context"
	"fmt"
	"strings"

	"github.com/lithammer/dedent"
	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

// AssessmentFailed is the sentinel emitted when the condition backend cannot
// be reached or returns nothing useful. Condition is advisory; a failed
// assessment never fails the pipeline.
const AssessmentFailed = "AI Analysis Failed"

const geminiModel = "gemini-2.5-flash"

var appraisalPrompt = strings.TrimSpace(dedent.Dedent(`
	You are appraising the physical condition of a secondhand retail item from a photo.

	Item: %s

	Classify the item's condition into exactly one of these buckets:
	- New
	- Like New
	- Good
	- Fair
	- Poor

	Respond with the bucket name followed by a single sentence justifying the
	classification based on what is visible in the photo. Example:
	"Good - light scuffing on the corners but no structural damage."

	Respond with ONLY the classification and justification, no other text.`))

// Assessor produces a free-text condition assessment for a photographed
// item. Implementations are stateless.
type Assessor interface {
	Assess(ctx context.Context, image []byte, description string) (string, error)
}

// GeminiAssessor implements Assessor using Google's Gemini API.
type GeminiAssessor struct {
	client *genai.Client
}

// NewGeminiAssessor creates a Gemini-backed assessor. The API key comes from
// the GEMINI_API_KEY environment variable when apiKey is empty.
func NewGeminiAssessor(ctx context.Context, apiKey string) (*GeminiAssessor, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiAssessor{client: client}, nil
}

// Assess implements Assessor. One call covers one source photo; all items
// detected in that photo share the judgment, since condition describes the
// physical object photographed.
func (g *GeminiAssessor) Assess(ctx context.Context, image []byte, description string) (string, error) {
	if description == "" {
		description = "unidentified item"
	}

	parts := []*genai.Part{
		genai.NewPartFromText(fmt.Sprintf(appraisalPrompt, description)),
		{InlineData: &genai.Blob{Data: image, MIMEType: "image/jpeg"}},
	}
	contents := []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	}

	result, err := g.client.Models.GenerateContent(ctx, geminiModel, contents, nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate condition assessment: %w", err)
	}

	if emptyResponse(result) {
		return "", fmt.Errorf("no response from Gemini")
	}

	text := strings.TrimSpace(result.Text())
	if text == "" {
		return "", fmt.Errorf("empty condition assessment from Gemini")
	}

	if result.UsageMetadata != nil {
		log.Info().
			Str("model", geminiModel).
			Int("inputTokens", int(result.UsageMetadata.PromptTokenCount)).
			Int("outputTokens", int(result.UsageMetadata.CandidatesTokenCount)).
			Msg("condition assessment llm call")
	}

	return text, nil
}

// emptyResponse reports whether the model returned no usable content. A
// safety-blocked response can carry a candidate with nil content.
func emptyResponse(result *genai.GenerateContentResponse) bool {
	return len(result.Candidates) == 0 ||
		result.Candidates[0].Content == nil ||
		len(result.Candidates[0].Content.Parts) == 0
}
