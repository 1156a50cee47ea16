package analysis

import (
	"context"
	"errors"
	"fmt"

	"github.com/pricelens/pricelens/internal/condition"
	"github.com/pricelens/pricelens/internal/imaging"
	"github.com/pricelens/pricelens/internal/pricing"
	"github.com/pricelens/pricelens/internal/recognition"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// DefaultBatchSize is how many files one batch round trip covers.
const DefaultBatchSize = 20

// ErrNoFiles is the usage error for starting a run with an empty selection.
var ErrNoFiles = errors.New("no files selected")

// File is one uploaded image, ephemeral for the duration of a run.
type File struct {
	Name      string
	MediaType string
	Data      []byte
}

// Pricer resolves a best-effort market price for a free-text query.
type Pricer interface {
	Lookup(ctx context.Context, query string) pricing.Quote
}

// Pipeline processes images through preprocess, recognition, enrichment and
// normalization. It holds no cross-call state; all mutation lives in Runner.
type Pipeline struct {
	pre        *imaging.Preprocessor
	recognizer recognition.Recognizer
	pricer     Pricer
	assessor   condition.Assessor
	mode       string
}

// NewPipeline wires the adapters for one recognition mode. The pricer may be
// nil for the visual-match mode, which carries inline price signals.
func NewPipeline(pre *imaging.Preprocessor, recognizer recognition.Recognizer, pricer Pricer, assessor condition.Assessor, mode string) *Pipeline {
	return &Pipeline{
		pre:        pre,
		recognizer: recognizer,
		pricer:     pricer,
		assessor:   assessor,
		mode:       mode,
	}
}

// ProcessBatch analyzes one batch of files sequentially. A recognition
// failure is fatal and aborts the batch; conversion failures become sentinel
// rows and processing continues.
func (p *Pipeline) ProcessBatch(ctx context.Context, files []File) ([]Result, error) {
	results := make([]Result, 0, len(files))
	for _, f := range files {
		rows, err := p.processImage(ctx, f)
		if err != nil {
			return nil, err
		}
		results = append(results, rows...)
	}
	return results, nil
}

// processImage runs one file through the full per-image pipeline.
func (p *Pipeline) processImage(ctx context.Context, f File) ([]Result, error) {
	prepared, err := p.pre.Prepare(f.Data, f.Name)
	if err != nil {
		var convErr *imaging.ConversionError
		if errors.As(err, &convErr) {
			log.Warn().Err(convErr.Err).Str("fileName", f.Name).Msg("image conversion failed, recording sentinel row")
			return []Result{ConversionErrorResult(convErr)}, nil
		}
		return nil, fmt.Errorf("failed to prepare %s: %w", f.Name, err)
	}

	matches, err := p.recognizer.Recognize(ctx, prepared)
	if err != nil {
		// Identification is the irrecoverable dependency: without it nothing
		// downstream is meaningful.
		return nil, fmt.Errorf("recognition failed for %s: %w", f.Name, err)
	}

	if p.mode == recognition.ModeWebLabel {
		return p.enrichLabelMatch(ctx, f.Name, prepared, matches)
	}
	return p.enrichVisualMatches(ctx, f.Name, prepared, matches)
}

// enrichLabelMatch handles the label-based variant: one match per image,
// priced by description. Pricing and condition run concurrently; neither
// depends on the other's result.
func (p *Pipeline) enrichLabelMatch(ctx context.Context, fileName string, image []byte, matches []recognition.Match) ([]Result, error) {
	match := recognition.Match{Title: recognition.UnknownItemTitle}
	if len(matches) > 0 {
		match = matches[0]
	}

	var (
		quote         = pricing.Quote{Price: pricing.PriceUnavailable, Link: pricing.LinkUnavailable}
		conditionText string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if p.pricer != nil {
			quote = p.pricer.Lookup(gctx, match.Title)
		}
		return nil
	})
	g.Go(func() error {
		conditionText = p.assessCondition(gctx, image, match.Title)
		return nil
	})
	_ = g.Wait() // both goroutines always return nil

	log.Info().
		Str("fileName", fileName).
		Str("title", match.Title).
		Str("price", quote.Price).
		Msg("label match enriched")

	return []Result{NormalizeLabelMatch(fileName, match, quote, conditionText)}, nil
}

// enrichVisualMatches handles the visual-match variant. Matches carry their
// own price signals, so only the condition lookup runs, once per image.
func (p *Pipeline) enrichVisualMatches(ctx context.Context, fileName string, image []byte, matches []recognition.Match) ([]Result, error) {
	description := ""
	for _, m := range matches {
		if m.Usable() {
			description = m.Title
			break
		}
	}

	conditionText := p.assessCondition(ctx, image, description)

	log.Info().
		Str("fileName", fileName).
		Int("matchCount", len(matches)).
		Msg("visual matches enriched")

	return NormalizeVisualMatches(fileName, matches, conditionText), nil
}

// assessCondition absorbs assessor failures into the sentinel text:
// condition is advisory and must degrade gracefully.
func (p *Pipeline) assessCondition(ctx context.Context, image []byte, description string) string {
	if p.assessor == nil {
		return condition.AssessmentFailed
	}
	text, err := p.assessor.Assess(ctx, image, description)
	if err != nil {
		log.Warn().Err(err).Msg("condition assessment failed")
		return condition.AssessmentFailed
	}
	return text
}

// Runner drives a full analysis run: it partitions files into fixed-size
// batches, dispatches them strictly sequentially, aggregates results and
// tracks progress. It is the sole owner of the cumulative result list and
// progress counters.
type Runner struct {
	pipeline   *Pipeline
	batchSize  int
	onProgress func(Progress)

	state    RunState
	results  []Result
	progress Progress
}

// NewRunner creates a runner over a pipeline. A batchSize below one falls
// back to DefaultBatchSize.
func NewRunner(pipeline *Pipeline, batchSize int) *Runner {
	if batchSize < 1 {
		batchSize = DefaultBatchSize
	}
	return &Runner{
		pipeline:  pipeline,
		batchSize: batchSize,
		state:     StateIdle,
	}
}

// OnProgress registers a callback invoked after each completed batch.
func (r *Runner) OnProgress(fn func(Progress)) {
	r.onProgress = fn
}

// State returns the run's lifecycle state.
func (r *Runner) State() RunState { return r.state }

// Results returns the rows accumulated so far. After a failed run it holds
// everything from strictly earlier successful batches.
func (r *Runner) Results() []Result { return r.results }

// Progress returns the current progress counters.
func (r *Runner) Progress() Progress { return r.progress }

// Run analyzes all files batch by batch. The first fatal batch error stops
// the run; earlier batches' rows stay available through Results.
func (r *Runner) Run(ctx context.Context, files []File) ([]Result, error) {
	if len(files) == 0 {
		return nil, ErrNoFiles
	}

	r.state = StateRunning
	r.results = nil
	r.progress = Progress{Total: len(files)}

	for start := 0; start < len(files); start += r.batchSize {
		end := start + r.batchSize
		if end > len(files) {
			end = len(files)
		}
		batch := files[start:end]

		rows, err := r.pipeline.ProcessBatch(ctx, batch)
		if err != nil {
			r.state = StateFailed
			log.Error().Err(err).
				Int("processed", r.progress.Processed).
				Int("total", r.progress.Total).
				Msg("analysis run failed")
			return r.results, err
		}

		r.results = append(r.results, rows...)
		r.progress.Processed += len(batch)
		if r.onProgress != nil {
			r.onProgress(r.progress)
		}

		log.Info().
			Int("processed", r.progress.Processed).
			Int("total", r.progress.Total).
			Float64("percent", r.progress.Percent()).
			Msg("batch complete")
	}

	r.state = StateSucceeded
	return r.results, nil
}
