// Package validate scores proposed edits by comparing the sequence-score
// oracle's prediction for the original and mutated sequences.
package validate

import (
	"context"
	"math"

	"go.uber.org/zap"

	"github.com/cropseq/genedit/internal/metrics"
	"github.com/cropseq/genedit/internal/oracle"
	"github.com/cropseq/genedit/internal/suggest"
)

// Result holds the differential metrics for one suggestion. Results are
// positionally correlated with the input suggestions.
type Result struct {
	OriginalScore    float64 `json:"original_score"`
	MutatedScore     float64 `json:"mutated_score"`
	Difference       float64 `json:"difference"`
	LogOddsRatio     float64 `json:"log_odds_ratio"`
	Passed           bool    `json:"validation_passed"`
	MutationPosition int     `json:"mutation_position"`
}

// Validator scores edits against the sequence-score oracle, degrading to
// the deterministic heuristic scorer on any oracle error.
type Validator struct {
	oracle   oracle.SequenceOracle
	fallback oracle.SequenceOracle
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

// NewValidator creates a validator. A nil oracle means heuristic-only
// operation.
func NewValidator(seq oracle.SequenceOracle) *Validator {
	return &Validator{
		oracle:   seq,
		fallback: oracle.CompositionSequence{},
		logger:   zap.NewNop(),
	}
}

// SetLogger sets the logger for degraded-mode warnings.
func (v *Validator) SetLogger(l *zap.Logger) { v.logger = l }

// SetMetrics attaches instrumentation counters.
func (v *Validator) SetMetrics(m *metrics.Metrics) { v.metrics = m }

// Validate returns exactly one result per suggestion, in input order.
// The original sequence is scored once and reused across suggestions.
func (v *Validator) Validate(ctx context.Context, original string, sugs []suggest.Suggestion, threshold float64) []Result {
	if len(sugs) == 0 {
		return nil
	}

	originalScore := v.score(ctx, original)

	results := make([]Result, 0, len(sugs))
	for i := range sugs {
		mutated := ApplyEdit(original, &sugs[i])
		mutatedScore := originalScore
		if mutated != original {
			mutatedScore = v.score(ctx, mutated)
		}

		diff := mutatedScore - originalScore
		results = append(results, Result{
			OriginalScore:    originalScore,
			MutatedScore:     mutatedScore,
			Difference:       diff,
			LogOddsRatio:     logOddsRatio(originalScore, mutatedScore),
			Passed:           math.Abs(diff) >= threshold,
			MutationPosition: sugs[i].TargetPosition,
		})
	}
	return results
}

// ApplyEdit applies one suggestion to a sequence. An out-of-range target
// position, or a substitution whose OriginalBase does not match the actual
// symbol, returns the sequence unchanged; the result then degenerates to a
// zero difference rather than an error. An empty OriginalBase never
// matches, so a substitution with no guard is a no-op.
func ApplyEdit(seq string, s *suggest.Suggestion) string {
	pos := s.TargetPosition
	if pos < 0 || pos >= len(seq) {
		return seq
	}

	switch s.EditType {
	case suggest.Substitution:
		if string(seq[pos]) != s.OriginalBase {
			return seq
		}
		return seq[:pos] + s.TargetBase + seq[pos+1:]
	case suggest.Insertion:
		return seq[:pos] + s.TargetBase + seq[pos:]
	case suggest.Deletion:
		return seq[:pos] + seq[pos+1:]
	}
	return seq
}

// logOddsRatio computes log2(o/(1-o)) - log2(m/(1-m)), defined only when
// both scores lie strictly inside (0,1); anything else yields 0 to avoid
// the log singularities at the interval edges.
func logOddsRatio(original, mutated float64) float64 {
	if original <= 0 || original >= 1 || mutated <= 0 || mutated >= 1 {
		return 0
	}
	return math.Log2(original/(1-original)) - math.Log2(mutated/(1-mutated))
}

// score scores one sequence, degrading to the heuristic on oracle errors.
func (v *Validator) score(ctx context.Context, seq string) float64 {
	if v.oracle != nil {
		score, err := v.oracle.ScoreSequence(ctx, seq)
		if err == nil {
			return score
		}
		v.logger.Warn("sequence oracle degraded to heuristic", zap.Error(err))
		if v.metrics != nil {
			v.metrics.OracleFallbacks.WithLabelValues("sequence").Inc()
		}
	}

	score, _ := v.fallback.ScoreSequence(ctx, seq)
	return score
}
