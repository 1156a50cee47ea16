package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pricelens/pricelens/config"
	"github.com/pricelens/pricelens/internal/analysis"
	"github.com/pricelens/pricelens/internal/condition"
	"github.com/pricelens/pricelens/internal/imaging"
	"github.com/pricelens/pricelens/internal/pricing"
	"github.com/pricelens/pricelens/internal/recognition"
	"github.com/pricelens/pricelens/internal/storage"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
	".webp": true, ".heic": true, ".heif": true,
}

func main() {
	output := flag.String("o", analysis.ExportFileName, "output CSV path")
	verbose := flag.Bool("v", false, "verbose logging")
	flag.Parse()

	zerolog.SetGlobalLevel(zerolog.WarnLevel)
	if *verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if flag.NArg() == 0 {
		fmt.Fprintf(os.Stderr, "Usage: %s [-o output.csv] [-v] <image-or-directory>...\n", os.Args[0])
		os.Exit(1)
	}

	files, err := collectFiles(flag.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read input files: %v\n", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "No image files found")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	pipeline, store, err := buildPipeline(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build pipeline: %v\n", err)
		os.Exit(1)
	}
	if store != nil {
		defer store.Close()
	}

	runner := analysis.NewRunner(pipeline, cfg.Batch.Size)
	runner.OnProgress(func(p analysis.Progress) {
		fmt.Printf("Processed %d/%d (%.0f%%)\n", p.Processed, p.Total, p.Percent())
	})

	results, runErr := runner.Run(ctx, files)
	if runErr != nil {
		fmt.Fprintf(os.Stderr, "Run failed: %v\n", runErr)
		if len(results) == 0 {
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "Exporting %d rows from completed batches\n", len(results))
	}

	data, err := analysis.ExportCSV(results)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Export failed: %v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*output, data, 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write %s: %v\n", *output, err)
		os.Exit(1)
	}

	fmt.Printf("Wrote %d rows to %s\n", len(results), *output)
	if runErr != nil {
		os.Exit(1)
	}
}

// collectFiles reads images from the given paths; directories are scanned
// one level deep for image extensions.
func collectFiles(paths []string) ([]analysis.File, error) {
	var files []analysis.File
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			f, err := readFile(path)
			if err != nil {
				return nil, err
			}
			files = append(files, f)
			continue
		}

		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			if entry.IsDir() || !imageExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
				continue
			}
			f, err := readFile(filepath.Join(path, entry.Name()))
			if err != nil {
				return nil, err
			}
			files = append(files, f)
		}
	}
	return files, nil
}

func readFile(path string) (analysis.File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return analysis.File{}, err
	}
	return analysis.File{Name: filepath.Base(path), Data: data}, nil
}

// buildPipeline wires the configured adapters, mirroring the server setup.
func buildPipeline(ctx context.Context, cfg *config.Config) (*analysis.Pipeline, storage.Store, error) {
	var store storage.Store
	if cfg.Cache.Enabled {
		s, err := storage.NewSQLiteStore(cfg.Cache.Path)
		if err != nil {
			return nil, nil, err
		}
		store = s
	}

	var recognizer recognition.Recognizer
	switch cfg.Recognition.Mode {
	case recognition.ModeWebLabel:
		recognizer = recognition.NewWebLabelRecognizer(recognition.ClientOpts{
			BaseURL: cfg.Recognition.BaseURL,
			APIKey:  cfg.Recognition.APIKey,
		})
	case recognition.ModeVisualMatch:
		recognizer = recognition.NewVisualMatchRecognizer(recognition.ClientOpts{
			BaseURL: cfg.Recognition.BaseURL,
			APIKey:  cfg.Recognition.APIKey,
		})
	}
	if store != nil {
		recognizer = recognition.NewCachedRecognizer(recognizer, cfg.Recognition.Mode, store)
	}

	var pricer analysis.Pricer
	if cfg.Recognition.Mode == recognition.ModeWebLabel {
		pricer = pricing.NewClient(pricing.ClientOpts{
			BaseURL: cfg.Pricing.BaseURL,
			APIKey:  cfg.Pricing.APIKey,
		})
	}

	var assessor condition.Assessor
	if cfg.Condition.Enabled {
		apiKey := cfg.Condition.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		gemini, err := condition.NewGeminiAssessor(ctx, apiKey)
		if err != nil {
			return nil, nil, err
		}
		assessor = gemini
		if store != nil {
			assessor = condition.NewCachedAssessor(assessor, store)
		}
	}

	pre := imaging.NewPreprocessor(cfg.Imaging.MaxEdge)
	return analysis.NewPipeline(pre, recognizer, pricer, assessor, cfg.Recognition.Mode), store, nil
}
