// Package pipeline orchestrates edit-suggestion generation, validation,
// variant-impact mapping, and risk summarization for one request.
package pipeline

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/cropseq/genedit/internal/bim"
	"github.com/cropseq/genedit/internal/metrics"
	"github.com/cropseq/genedit/internal/registry"
	"github.com/cropseq/genedit/internal/snpindex"
	"github.com/cropseq/genedit/internal/suggest"
	"github.com/cropseq/genedit/internal/validate"
)

// Impact-mapping parameters: variants within nearWindow of the edit target
// are considered, at most maxNearby per suggestion are kept, and only those
// within affectedWindow count as affected by the edit.
const (
	nearWindow     = 1000
	maxNearby      = 5
	affectedWindow = 50
)

// highImpactEffect is the effect size above which an impact counts as
// high-impact in the summary.
const highImpactEffect = 0.3

// causalEffect is the effect size a passed validation must exceed for the
// impact to be a causal candidate.
const causalEffect = 0.2

// Request defaults, applied when the corresponding field is zero.
const (
	DefaultMaxSuggestions = 5
	DefaultMinEfficiency  = 50.0

	// DefaultThreshold is the validation threshold applied when the
	// request does not set one.
	DefaultThreshold = 0.1
)

// Stage identifies one step of the request state machine.
type Stage string

const (
	StageSelectDataset       Stage = "select_dataset"
	StageGenerateSuggestions Stage = "generate_suggestions"
	StageValidateEdits       Stage = "validate_edits"
	StageMapVariantImpacts   Stage = "map_variant_impacts"
	StageSummarize           Stage = "summarize"
)

// StageError marks a request as failed at a specific stage.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("pipeline stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Request is one analysis request. The zero values of MaxSuggestions,
// MinEfficiency, and Threshold select the service defaults.
type Request struct {
	Sequence    string `json:"dna_sequence"`
	TargetTrait string `json:"target_trait"`
	Description string `json:"description,omitempty"`

	// TargetRegion optionally restricts suggestion generation, formatted
	// "chrom:start-end" (a leading "chr" prefix is accepted).
	TargetRegion string `json:"target_region,omitempty"`

	Dataset  string `json:"dataset_name,omitempty"`
	Category string `json:"dataset_category,omitempty"`

	MaxSuggestions int     `json:"max_suggestions,omitempty"`
	MinEfficiency  float64 `json:"min_efficiency,omitempty"`
	Threshold      float64 `json:"threshold,omitempty"`
}

// VariantImpact links one suggestion to a catalog variant affected by it.
type VariantImpact struct {
	SNPID             string  `json:"snp_id"`
	Chromosome        string  `json:"chromosome"`
	Position          int64   `json:"position"`
	OriginalAllele    string  `json:"original_allele"`
	NewAllele         string  `json:"new_allele"`
	EffectSize        float64 `json:"effect_size"`
	IsCausalCandidate bool    `json:"is_causal_candidate"`
	SourceScore       float64 `json:"source_score"`
}

// Summary aggregates all impacts of one request.
type Summary struct {
	TotalAffected        int             `json:"total_snps_affected"`
	HighImpact           int             `json:"high_impact_snps"`
	CausalCandidates     []VariantImpact `json:"causal_candidate_snps"`
	TraitPredictionDelta float64         `json:"trait_prediction_change"`
	RiskAssessment       string          `json:"risk_assessment"`
	OverallConfidence    float64         `json:"overall_confidence"`
}

// Response is the composed analysis result: plain data with no behavior,
// shaped for serialization by any caller.
type Response struct {
	RequestID   string               `json:"request_id"`
	Dataset     string               `json:"dataset"`
	Suggestions []suggest.Suggestion `json:"edit_suggestions"`
	Validations []validate.Result    `json:"validations"`
	Impacts     []VariantImpact      `json:"snp_changes"`
	Summary     Summary              `json:"summary"`
	Metrics     map[string]any       `json:"metrics"`
}

// Pipeline wires the registry, catalog service, generator, and validator
// into the per-request state machine. Safe for concurrent requests: the
// only shared mutable state is the catalog service's current pointer,
// which serializes swaps internally.
type Pipeline struct {
	reg       *registry.Registry
	catalogs  *snpindex.Service
	generator *suggest.Generator
	validator *validate.Validator
	logger    *zap.Logger
	metrics   *metrics.Metrics
}

// New creates a pipeline.
func New(reg *registry.Registry, catalogs *snpindex.Service, g *suggest.Generator, v *validate.Validator) *Pipeline {
	return &Pipeline{
		reg:       reg,
		catalogs:  catalogs,
		generator: g,
		validator: v,
		logger:    zap.NewNop(),
	}
}

// SetLogger sets the request logger.
func (p *Pipeline) SetLogger(l *zap.Logger) { p.logger = l }

// SetMetrics attaches instrumentation.
func (p *Pipeline) SetMetrics(m *metrics.Metrics) { p.metrics = m }

// Run executes the request state machine:
// SelectDataset -> GenerateSuggestions -> ValidateEdits ->
// MapVariantImpacts -> Summarize. A failed stage terminates the request
// with a *StageError; there is no retry at this level.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Response, error) {
	id := requestID()
	logger := p.logger.With(zap.String("request_id", id))
	logger.Info("processing analysis request", zap.String("trait", req.TargetTrait))

	dataset, err := timed(p, StageSelectDataset, func() (string, error) {
		return p.selectDataset(ctx, req)
	})
	if err != nil {
		return nil, p.failed(logger, StageSelectDataset, err)
	}

	region, chrom := parseTargetRegion(req.TargetRegion)

	maxSuggestions := req.MaxSuggestions
	if maxSuggestions <= 0 {
		maxSuggestions = DefaultMaxSuggestions
	}
	minEfficiency := req.MinEfficiency
	if minEfficiency == 0 {
		minEfficiency = DefaultMinEfficiency
	}

	sugs, err := timed(p, StageGenerateSuggestions, func() ([]suggest.Suggestion, error) {
		return p.generator.Suggest(ctx, req.Sequence, region, maxSuggestions, minEfficiency)
	})
	if err != nil {
		return nil, p.failed(logger, StageGenerateSuggestions, err)
	}

	threshold := req.Threshold
	if threshold == 0 {
		threshold = DefaultThreshold
	}
	vals, _ := timed(p, StageValidateEdits, func() ([]validate.Result, error) {
		return p.validator.Validate(ctx, req.Sequence, sugs, threshold), nil
	})

	impacts, err := timed(p, StageMapVariantImpacts, func() ([]VariantImpact, error) {
		return p.mapImpacts(ctx, dataset, chrom, sugs, vals)
	})
	if err != nil {
		return nil, p.failed(logger, StageMapVariantImpacts, err)
	}

	summary, _ := timed(p, StageSummarize, func() (Summary, error) {
		return summarize(sugs, vals, impacts), nil
	})

	if p.metrics != nil {
		p.metrics.Requests.WithLabelValues("completed").Inc()
	}
	logger.Info("analysis request completed",
		zap.String("dataset", dataset),
		zap.Int("suggestions", len(sugs)),
		zap.Int("impacts", len(impacts)))

	return &Response{
		RequestID:   id,
		Dataset:     dataset,
		Suggestions: sugs,
		Validations: vals,
		Impacts:     impacts,
		Summary:     summary,
		Metrics:     requestMetrics(req, sugs, vals, summary),
	}, nil
}

// selectDataset resolves the catalog for a request, in priority order:
// free-text auto-detection, explicit name, explicit category, then the
// currently loaded catalog. The swap is skipped when the resolved catalog
// is already current.
func (p *Pipeline) selectDataset(ctx context.Context, req Request) (string, error) {
	var name string

	if detected, ok := p.reg.DetectFromText(req.Description + " " + req.TargetTrait); ok {
		name = detected
	} else if req.Dataset != "" {
		name = req.Dataset
	} else if req.Category != "" {
		members := p.reg.ByCategory(req.Category)
		if len(members) == 0 {
			return "", fmt.Errorf("%w: no catalog in category %q", registry.ErrNotFound, req.Category)
		}
		name = members[0].Name
	} else {
		name = p.catalogs.Current()
	}

	if name == "" {
		return "", fmt.Errorf("%w: no dataset resolved and none loaded", registry.ErrNotFound)
	}

	if name != p.catalogs.Current() {
		if err := p.catalogs.Use(ctx, name); err != nil {
			return "", err
		}
	}
	return p.catalogs.Current(), nil
}

// mapImpacts finds catalog variants near each suggestion's target position
// and links the affected ones to the suggestion's validation metrics.
func (p *Pipeline) mapImpacts(ctx context.Context, dataset, chrom string, sugs []suggest.Suggestion, vals []validate.Result) ([]VariantImpact, error) {
	var impacts []VariantImpact

	for i := range sugs {
		pos := int64(sugs[i].TargetPosition)

		nearby, err := p.catalogs.Near(ctx, dataset, chrom, pos, nearWindow)
		if err != nil {
			return nil, err
		}

		// Keep the closest records only.
		sort.SliceStable(nearby, func(a, b int) bool {
			return abs64(nearby[a].Position-pos) < abs64(nearby[b].Position-pos)
		})
		if len(nearby) > maxNearby {
			nearby = nearby[:maxNearby]
		}

		for _, rec := range nearby {
			if abs64(rec.Position-pos) >= affectedWindow {
				continue
			}
			impacts = append(impacts, impactFor(&rec, &sugs[i], &vals[i]))
		}
	}
	return impacts, nil
}

func impactFor(rec *bim.Record, sug *suggest.Suggestion, val *validate.Result) VariantImpact {
	newAllele := sug.TargetBase
	if newAllele == "" {
		newAllele = rec.AltAllele
	}

	effect := math.Abs(val.Difference)
	return VariantImpact{
		SNPID:             rec.ID,
		Chromosome:        rec.Chromosome,
		Position:          rec.Position,
		OriginalAllele:    rec.RefAllele,
		NewAllele:         newAllele,
		EffectSize:        effect,
		IsCausalCandidate: val.Passed && effect > causalEffect,
		SourceScore:       val.MutatedScore,
	}
}

// summarize computes the aggregate risk view over all impacts.
func summarize(sugs []suggest.Suggestion, vals []validate.Result, impacts []VariantImpact) Summary {
	var causal []VariantImpact
	highImpact := 0
	for _, imp := range impacts {
		if imp.EffectSize > highImpactEffect {
			highImpact++
		}
		if imp.IsCausalCandidate {
			causal = append(causal, imp)
		}
	}

	var risk string
	switch {
	case len(causal) > 3:
		risk = "High - Multiple causal candidates identified"
	case highImpact > 5:
		risk = "Medium - Several high-impact SNPs affected"
	default:
		risk = "Low - Minimal impact expected"
	}

	return Summary{
		TotalAffected:        len(impacts),
		HighImpact:           highImpact,
		CausalCandidates:     causal,
		TraitPredictionDelta: meanDifference(vals),
		RiskAssessment:       risk,
		OverallConfidence:    meanConfidence(sugs),
	}
}

func requestMetrics(req Request, sugs []suggest.Suggestion, vals []validate.Result, summary Summary) map[string]any {
	validated := 0
	meanEff := 0.0
	for _, v := range vals {
		if v.Passed {
			validated++
		}
	}
	for _, s := range sugs {
		meanEff += s.EfficiencyScore
	}
	if len(sugs) > 0 {
		meanEff /= float64(len(sugs))
	}

	return map[string]any{
		"total_suggestions":     len(sugs),
		"validated_suggestions": validated,
		"average_efficiency":    meanEff,
		"average_confidence":    summary.OverallConfidence,
		"average_score_change":  summary.TraitPredictionDelta,
		"target_trait":          req.TargetTrait,
	}
}

func meanConfidence(sugs []suggest.Suggestion) float64 {
	if len(sugs) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range sugs {
		sum += s.Confidence
	}
	return sum / float64(len(sugs))
}

func meanDifference(vals []validate.Result) float64 {
	if len(vals) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range vals {
		sum += v.Difference
	}
	return sum / float64(len(vals))
}

func abs64(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}

// failed records a terminal Failed state and wraps the cause with its stage.
func (p *Pipeline) failed(logger *zap.Logger, stage Stage, err error) error {
	if p.metrics != nil {
		p.metrics.Requests.WithLabelValues("failed").Inc()
	}
	logger.Warn("analysis request failed",
		zap.String("stage", string(stage)),
		zap.Error(err))
	return &StageError{Stage: stage, Err: err}
}

// timed runs one stage and observes its duration.
func timed[T any](p *Pipeline, stage Stage, fn func() (T, error)) (T, error) {
	start := time.Now()
	out, err := fn()
	if p.metrics != nil {
		p.metrics.StageDuration.WithLabelValues(string(stage)).Observe(time.Since(start).Seconds())
	}
	return out, err
}

func requestID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}
