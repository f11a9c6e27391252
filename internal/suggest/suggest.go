// Package suggest generates ranked gene-edit proposals by sliding a guide
// window across a sequence and scoring each window with the edit-efficiency
// oracle.
package suggest

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/cropseq/genedit/internal/metrics"
	"github.com/cropseq/genedit/internal/oracle"
)

// Guide window geometry. Windows shorter than GuideLength are skipped.
const (
	GuideLength = 20
	WindowStep  = 3
)

// EditType classifies an edit suggestion.
type EditType string

const (
	Substitution EditType = "substitution"
	Insertion    EditType = "insertion"
	Deletion     EditType = "deletion"
)

// Suggestion is one proposed edit. Never mutated after creation.
type Suggestion struct {
	GuideSequence   string   `json:"guide_sequence"`
	TargetPosition  int      `json:"target_position"`
	EditType        EditType `json:"edit_type"`
	EfficiencyScore float64  `json:"efficiency_score"`
	Confidence      float64  `json:"confidence"`
	OriginalBase    string   `json:"original_base,omitempty"`
	TargetBase      string   `json:"target_base,omitempty"`
}

// Region restricts suggestion generation to [Start, End) of the sequence.
type Region struct {
	Start int
	End   int
}

// TargetBaseStrategy chooses the replacement base for a substitution.
// The default is a stand-in for a trait-aware allele-choice rule, so it
// stays pluggable.
type TargetBaseStrategy interface {
	TargetBase(original byte) byte
}

// FirstDifferent picks the first base in A,T,G,C order that differs from
// the original.
type FirstDifferent struct{}

// TargetBase implements TargetBaseStrategy.
func (FirstDifferent) TargetBase(original byte) byte {
	for _, b := range []byte("ATGC") {
		if b != original {
			return b
		}
	}
	return 'A'
}

// Generator produces edit suggestions. The primary oracle is tried per
// window; any oracle error degrades that window to the deterministic
// heuristic scorer rather than failing the request.
type Generator struct {
	oracle   oracle.EfficiencyOracle
	fallback oracle.EfficiencyOracle
	strategy TargetBaseStrategy
	workers  int
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

// NewGenerator creates a generator scoring windows with eff. A nil eff
// means heuristic-only operation.
func NewGenerator(eff oracle.EfficiencyOracle) *Generator {
	return &Generator{
		oracle:   eff,
		fallback: oracle.CompositionEfficiency{},
		strategy: FirstDifferent{},
		logger:   zap.NewNop(),
	}
}

// SetLogger sets the logger for degraded-mode warnings.
func (g *Generator) SetLogger(l *zap.Logger) { g.logger = l }

// SetMetrics attaches instrumentation counters.
func (g *Generator) SetMetrics(m *metrics.Metrics) { g.metrics = m }

// SetStrategy overrides the target-base selection rule.
func (g *Generator) SetStrategy(s TargetBaseStrategy) { g.strategy = s }

// SetWorkers bounds the window-scoring pool. Zero means one worker per CPU.
func (g *Generator) SetWorkers(n int) { g.workers = n }

// Suggest slides the guide window across the sequence (or region), scores
// each window, and returns at most max suggestions with efficiency >=
// minEfficiency, sorted by efficiency descending.
func (g *Generator) Suggest(ctx context.Context, seq string, region *Region, max int, minEfficiency float64) ([]Suggestion, error) {
	start, end := 0, len(seq)
	if region != nil {
		if region.Start > start {
			start = region.Start
		}
		if region.End < end {
			end = region.End
		}
	}

	var windows []window
	for pos := start; pos+GuideLength <= end; pos += WindowStep {
		windows = append(windows, window{offset: pos, guide: seq[pos : pos+GuideLength]})
	}
	if len(windows) == 0 {
		return nil, nil
	}

	scored := g.scoreAll(ctx, windows)

	var suggestions []Suggestion
	for i, eff := range scored {
		if eff.Score < minEfficiency {
			continue
		}

		w := windows[i]
		target := w.offset + GuideLength/2
		original := seq[target]

		suggestions = append(suggestions, Suggestion{
			GuideSequence:   w.guide,
			TargetPosition:  target,
			EditType:        Substitution,
			EfficiencyScore: eff.Score,
			Confidence:      eff.Confidence,
			OriginalBase:    string(original),
			TargetBase:      string(g.strategy.TargetBase(original)),
		})
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		return suggestions[i].EfficiencyScore > suggestions[j].EfficiencyScore
	})
	if max > 0 && len(suggestions) > max {
		suggestions = suggestions[:max]
	}
	return suggestions, nil
}

// score scores one window, degrading to the heuristic on any oracle error.
func (g *Generator) score(ctx context.Context, guide string) oracle.Efficiency {
	if g.oracle != nil {
		eff, err := g.oracle.ScoreWindow(ctx, guide)
		if err == nil {
			return eff
		}
		g.logger.Warn("efficiency oracle degraded to heuristic", zap.Error(err))
		if g.metrics != nil {
			g.metrics.OracleFallbacks.WithLabelValues("efficiency").Inc()
		}
	}

	eff, _ := g.fallback.ScoreWindow(ctx, guide)
	return eff
}
