// Package report provides analysis result formatters.
package report

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/cropseq/genedit/internal/pipeline"
)

// TabWriter writes edit suggestions in tab-delimited format, one row per
// suggestion with its validation metrics merged in.
type TabWriter struct {
	w       *bufio.Writer
	columns []string
}

// NewTabWriter creates a new tab-delimited writer.
func NewTabWriter(w io.Writer) *TabWriter {
	return &TabWriter{
		w: bufio.NewWriter(w),
		columns: []string{
			"#Guide_sequence",
			"Target_position",
			"Edit_type",
			"Original_base",
			"Target_base",
			"Efficiency",
			"Confidence",
			"Score_change",
			"Log_odds_ratio",
			"Validated",
		},
	}
}

// WriteHeader writes the header line.
func (tw *TabWriter) WriteHeader() error {
	_, err := tw.w.WriteString(strings.Join(tw.columns, "\t") + "\n")
	return err
}

// WriteResponse writes one row per suggestion. Validation columns are
// filled from the matching result; suggestions without one get "-".
func (tw *TabWriter) WriteResponse(resp *pipeline.Response) error {
	for i := range resp.Suggestions {
		sug := &resp.Suggestions[i]

		scoreChange := "-"
		logOdds := "-"
		validated := "-"
		if i < len(resp.Validations) {
			val := &resp.Validations[i]
			scoreChange = fmt.Sprintf("%.4f", val.Difference)
			logOdds = fmt.Sprintf("%.4f", val.LogOddsRatio)
			validated = "NO"
			if val.Passed {
				validated = "YES"
			}
		}

		targetBase := sug.TargetBase
		if targetBase == "" {
			targetBase = "-"
		}

		values := []string{
			sug.GuideSequence,
			fmt.Sprintf("%d", sug.TargetPosition),
			string(sug.EditType),
			sug.OriginalBase,
			targetBase,
			fmt.Sprintf("%.1f", sug.EfficiencyScore),
			fmt.Sprintf("%.2f", sug.Confidence),
			scoreChange,
			logOdds,
			validated,
		}
		if _, err := tw.w.WriteString(strings.Join(values, "\t") + "\n"); err != nil {
			return err
		}
	}
	return nil
}

// WriteSummary appends the risk summary as comment lines.
func (tw *TabWriter) WriteSummary(resp *pipeline.Response) error {
	lines := []string{
		fmt.Sprintf("## Dataset: %s", resp.Dataset),
		fmt.Sprintf("## SNPs affected: %d", resp.Summary.TotalAffected),
		fmt.Sprintf("## High impact: %d", resp.Summary.HighImpact),
		fmt.Sprintf("## Causal candidates: %d", len(resp.Summary.CausalCandidates)),
		fmt.Sprintf("## Risk: %s", resp.Summary.RiskAssessment),
	}
	for _, line := range lines {
		if _, err := tw.w.WriteString(line + "\n"); err != nil {
			return err
		}
	}
	return nil
}

// Flush flushes buffered output.
func (tw *TabWriter) Flush() error {
	return tw.w.Flush()
}

// WriteJSON writes the full response as indented JSON.
func WriteJSON(w io.Writer, resp *pipeline.Response) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}
