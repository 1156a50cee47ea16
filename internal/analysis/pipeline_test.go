package analysis

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/pricelens/pricelens/internal/condition"
	"github.com/pricelens/pricelens/internal/imaging"
	"github.com/pricelens/pricelens/internal/pricing"
	"github.com/pricelens/pricelens/internal/recognition"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recognizerFunc func(ctx context.Context, image []byte) ([]recognition.Match, error)

func (f recognizerFunc) Recognize(ctx context.Context, image []byte) ([]recognition.Match, error) {
	return f(ctx, image)
}

type pricerFunc func(ctx context.Context, query string) pricing.Quote

func (f pricerFunc) Lookup(ctx context.Context, query string) pricing.Quote {
	return f(ctx, query)
}

type assessorFunc func(ctx context.Context, image []byte, description string) (string, error)

func (f assessorFunc) Assess(ctx context.Context, image []byte, description string) (string, error) {
	return f(ctx, image, description)
}

func staticRecognizer(matches ...recognition.Match) recognition.Recognizer {
	return recognizerFunc(func(ctx context.Context, image []byte) ([]recognition.Match, error) {
		return matches, nil
	})
}

func staticAssessor(text string) condition.Assessor {
	return assessorFunc(func(ctx context.Context, image []byte, description string) (string, error) {
		return text, nil
	})
}

func testFiles(n int) []File {
	files := make([]File, n)
	for i := range files {
		files[i] = File{Name: fmt.Sprintf("photo-%d.jpg", i+1), Data: []byte("img")}
	}
	return files
}

func TestPipelineVisualMatchFlow(t *testing.T) {
	p := NewPipeline(
		imaging.NewPreprocessor(0),
		staticRecognizer(
			recognition.Match{Title: "Madewell Tote", SourceDomain: "madewell.com", Price: "$100", Confidence: 0.9},
			recognition.Match{Title: "Leather Tote", SourceDomain: "etsy.com", Confidence: 0.4},
		),
		nil,
		staticAssessor("Good - light wear."),
		recognition.ModeVisualMatch,
	)

	results, err := p.ProcessBatch(context.Background(), testFiles(1))
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "Good - light wear.", results[0].Condition)
	assert.Equal(t, "Good - light wear.", results[1].Condition)
	assert.Equal(t, "photo-1.jpg", results[0].FileName)
}

func TestPipelineWebLabelFlowPricesAndAssesses(t *testing.T) {
	var pricedQuery string
	p := NewPipeline(
		imaging.NewPreprocessor(0),
		staticRecognizer(recognition.Match{Title: "Hermes Hat", Confidence: 0.8}),
		pricerFunc(func(ctx context.Context, query string) pricing.Quote {
			pricedQuery = query
			return pricing.Quote{Price: "$300 - $350", Link: "https://shop.example.com"}
		}),
		staticAssessor("Fair - creased brim."),
		recognition.ModeWebLabel,
	)

	results, err := p.ProcessBatch(context.Background(), testFiles(1))
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.Equal(t, "Hermes Hat", pricedQuery)
	assert.Equal(t, "Hermes", results[0].Brand)
	assert.Equal(t, "Hat", results[0].Model)
	assert.Equal(t, "$300 - $350", results[0].CurrentRetailPrice)
	assert.Equal(t, "Fair - creased brim.", results[0].Condition)
}

func TestPipelineConditionFailureDegrades(t *testing.T) {
	p := NewPipeline(
		imaging.NewPreprocessor(0),
		staticRecognizer(recognition.Match{Title: "Lamp", SourceDomain: "ikea.com"}),
		nil,
		assessorFunc(func(ctx context.Context, image []byte, description string) (string, error) {
			return "", errors.New("model overloaded")
		}),
		recognition.ModeVisualMatch,
	)

	results, err := p.ProcessBatch(context.Background(), testFiles(1))
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, condition.AssessmentFailed, results[0].Condition)
}

func TestPipelineConversionErrorYieldsSentinelRowAndContinues(t *testing.T) {
	p := NewPipeline(
		imaging.NewPreprocessor(0),
		staticRecognizer(recognition.Match{Title: "Chair", SourceDomain: "ikea.com"}),
		nil,
		staticAssessor("Good"),
		recognition.ModeVisualMatch,
	)

	files := []File{
		{Name: "broken.heic", Data: []byte("not a heic container")},
		{Name: "fine.jpg", Data: []byte("img")},
	}

	results, err := p.ProcessBatch(context.Background(), files)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, BrandConversionError, results[0].Brand)
	assert.Equal(t, "broken.heic", results[0].FileName)
	assert.NotEmpty(t, results[0].Description)
	assert.Equal(t, "Chair", results[1].Description)
}

func TestPipelineRecognitionFailureIsFatal(t *testing.T) {
	p := NewPipeline(
		imaging.NewPreprocessor(0),
		recognizerFunc(func(ctx context.Context, image []byte) ([]recognition.Match, error) {
			return nil, errors.New("backend unreachable")
		}),
		nil,
		staticAssessor("Good"),
		recognition.ModeVisualMatch,
	)

	results, err := p.ProcessBatch(context.Background(), testFiles(2))
	require.Error(t, err)
	assert.Nil(t, results)
	assert.Contains(t, err.Error(), "recognition failed")
}

func TestPipelineZeroMatchesYieldNotFoundRow(t *testing.T) {
	p := NewPipeline(
		imaging.NewPreprocessor(0),
		staticRecognizer(),
		nil,
		staticAssessor("Good"),
		recognition.ModeVisualMatch,
	)

	results, err := p.ProcessBatch(context.Background(), testFiles(1))
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, BrandNotFound, results[0].Brand)
	assert.Equal(t, ZeroConfidence, results[0].Confidence)
}

func TestRunnerProcessesBatchesSequentially(t *testing.T) {
	var progressUpdates []Progress
	p := NewPipeline(
		imaging.NewPreprocessor(0),
		staticRecognizer(recognition.Match{Title: "Item", SourceDomain: "a.com"}),
		nil,
		staticAssessor("Good"),
		recognition.ModeVisualMatch,
	)

	runner := NewRunner(p, 2)
	runner.OnProgress(func(p Progress) {
		progressUpdates = append(progressUpdates, p)
	})

	results, err := runner.Run(context.Background(), testFiles(5))
	require.NoError(t, err)
	assert.Len(t, results, 5)
	assert.Equal(t, StateSucceeded, runner.State())

	require.Len(t, progressUpdates, 3)
	assert.Equal(t, Progress{Processed: 2, Total: 5}, progressUpdates[0])
	assert.Equal(t, Progress{Processed: 4, Total: 5}, progressUpdates[1])
	assert.Equal(t, Progress{Processed: 5, Total: 5}, progressUpdates[2])
}

func TestRunnerHaltsOnFirstFatalBatch(t *testing.T) {
	var calls int
	p := NewPipeline(
		imaging.NewPreprocessor(0),
		recognizerFunc(func(ctx context.Context, image []byte) ([]recognition.Match, error) {
			calls++
			if calls > 2 {
				return nil, errors.New("backend unreachable")
			}
			return []recognition.Match{{Title: "Item", SourceDomain: "a.com"}}, nil
		}),
		nil,
		staticAssessor("Good"),
		recognition.ModeVisualMatch,
	)

	runner := NewRunner(p, 2)
	results, err := runner.Run(context.Background(), testFiles(6))
	require.Error(t, err)

	// Rows from the first (successful) batch survive; nothing from the
	// failed batch or later.
	assert.Len(t, results, 2)
	assert.Equal(t, StateFailed, runner.State())
	assert.Equal(t, Progress{Processed: 2, Total: 6}, runner.Progress())
	// The third and later files were never dispatched past the failure.
	assert.Equal(t, 3, calls)
}

func TestRunnerEmptySelectionIsUsageError(t *testing.T) {
	runner := NewRunner(NewPipeline(imaging.NewPreprocessor(0), staticRecognizer(), nil, nil, recognition.ModeVisualMatch), 2)
	_, err := runner.Run(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoFiles)
	assert.Equal(t, StateIdle, runner.State())
}

func TestProgressPercent(t *testing.T) {
	assert.Equal(t, 0.0, Progress{}.Percent())
	assert.Equal(t, 50.0, Progress{Processed: 10, Total: 20}.Percent())
	assert.Equal(t, 100.0, Progress{Processed: 20, Total: 20}.Percent())
}
