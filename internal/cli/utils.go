// Package cli provides CLI output utilities for Kotae.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// WriteMatchResult writes an ask result to w in the given format.
// Use OutputJSON for parseable output consumable by other apps.
func WriteMatchResult(w io.Writer, result *models.MatchResult, format OutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	default:
		writeMatchResultText(w, result)
		return nil
	}
}

func writeMatchResultText(w io.Writer, result *models.MatchResult) {
	fmt.Fprintf(w, "\n%s\n\n", result.Answer)
	if result.MatchedQuestion == nil {
		return
	}
	fmt.Fprintf(w, "Matched: %s (confidence %.4f)\n", *result.MatchedQuestion, result.Confidence)
	if result.Category != nil {
		fmt.Fprintf(w, "Category: %s\n", *result.Category)
	}
	if len(result.TopMatches) > 0 {
		fmt.Fprintln(w, "\n--- Candidates ---")
		for i, m := range result.TopMatches {
			fmt.Fprintf(w, "%d. [%.4f] %s\n   %s\n", i+1, m.Score, m.Question, utils.Truncate(m.Answer, 120))
		}
	}
	fmt.Fprintln(w)
}

// WriteCategories writes the category list with per-category pair counts.
func WriteCategories(w io.Writer, categories []string, counts map[string]int, format OutputFormat) error {
	switch format {
	case OutputJSON:
		type entry struct {
			Name  string `json:"name"`
			Pairs int    `json:"pairs"`
		}
		out := make([]entry, 0, len(categories))
		for _, name := range categories {
			out = append(out, entry{Name: name, Pairs: counts[name]})
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	default:
		fmt.Fprintf(w, "\n%d categories:\n", len(categories))
		for _, name := range categories {
			fmt.Fprintf(w, "  %s (%d)\n", name, counts[name])
		}
		fmt.Fprintln(w)
		return nil
	}
}

// WriteTrainResult writes a training summary to w in the given format.
func WriteTrainResult(w io.Writer, result *models.TrainResult, format OutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	default:
		fmt.Fprintf(w, "\nTrained on %d examples over %d epochs (batch size %d, lr %g)\n",
			result.Examples, result.Epochs, result.BatchSize, result.LearningRate)
		fmt.Fprintf(w, "Final loss: %.6f\n", result.FinalLoss)
		if result.ArtifactID != "" {
			fmt.Fprintf(w, "Artifact: %s\n", result.ArtifactID)
		}
		fmt.Fprintln(w)
		return nil
	}
}

// PrintMatchResult prints an ask result to stdout in text format.
func PrintMatchResult(result *models.MatchResult) {
	_ = WriteMatchResult(os.Stdout, result, OutputText)
}
