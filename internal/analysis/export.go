package analysis

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
)

// ExportFileName is the suggested download name for a CSV export.
const ExportFileName = "image_analysis_results.csv"

// ErrNoResults is the usage error for exporting an empty result set.
var ErrNoResults = errors.New("no results to export")

// csvHeader is the fixed nine-column header order of the export contract.
var csvHeader = []string{
	"File Name",
	"Brand",
	"Model",
	"Description",
	"Condition",
	"Current Retail Price",
	"Web Link",
	"Corresponding Item Pictures",
	"Confidence (Similarity)",
}

// ExportCSV serializes results to CSV. It is pure serialization: no network,
// no filesystem.
func ExportCSV(results []Result) ([]byte, error) {
	if len(results) == 0 {
		return nil, ErrNoResults
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, r := range results {
		record := []string{
			r.FileName,
			r.Brand,
			r.Model,
			r.Description,
			r.Condition,
			r.CurrentRetailPrice,
			r.WebLink,
			r.ItemPictureURL,
			r.Confidence,
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write csv record: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
