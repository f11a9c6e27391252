package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cropseq/genedit/internal/metrics"
	"github.com/cropseq/genedit/internal/oracle"
	"github.com/cropseq/genedit/internal/registry"
	"github.com/cropseq/genedit/internal/snpindex"
	"github.com/cropseq/genedit/internal/suggest"
	"github.com/cropseq/genedit/internal/validate"
)

// fixedEfficiency scores every window identically.
type fixedEfficiency struct {
	score float64
	conf  float64
}

func (o fixedEfficiency) ScoreWindow(context.Context, string) (oracle.Efficiency, error) {
	return oracle.Efficiency{Score: o.score, Confidence: o.conf}, nil
}

// baselineSequence scores the unedited sequence low and every edit high,
// so each substitution yields a fixed score difference.
type baselineSequence struct {
	original string
}

func (o baselineSequence) ScoreSequence(_ context.Context, seq string) (float64, error) {
	if seq == o.original {
		return 0.5, nil
	}
	return 0.9, nil
}

func writeCatalog(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func newTestPipeline(t *testing.T, sequence string) (*Pipeline, *snpindex.Service) {
	t.Helper()

	dir := t.TempDir()
	writeCatalog(t, dir, "maize.bim",
		"1\trs_near\t0.0\t12\tA\tG\n"+
			"1\trs_far\t0.0\t5000\tC\tT\n"+
			"2\trs_chr2\t0.0\t13\tG\tA\n")
	writeCatalog(t, dir, "rice.bim", "1\trice1\t0.0\t13\tT\tC\n")

	reg, err := registry.Discover(dir, zap.NewNop())
	require.NoError(t, err)

	catalogs := snpindex.NewService(reg, nil, zap.NewNop())

	p := New(reg,
		catalogs,
		suggest.NewGenerator(fixedEfficiency{score: 90, conf: 0.8}),
		validate.NewValidator(baselineSequence{original: sequence}))
	return p, catalogs
}

func TestRun_EndToEnd(t *testing.T) {
	// 26 bases: guide windows at offsets 0, 3, 6 targeting 10, 13, 16.
	seq := "ATCGATCGATCGATCGATCGATCGAT"
	p, _ := newTestPipeline(t, seq)

	resp, err := p.Run(context.Background(), Request{
		Sequence:    seq,
		TargetTrait: "drought tolerance",
		Description: "improve corn drought tolerance",
	})
	require.NoError(t, err)

	assert.Equal(t, "maize", resp.Dataset)
	assert.NotEmpty(t, resp.RequestID)
	require.Len(t, resp.Suggestions, 3)
	require.Len(t, resp.Validations, 3)

	for i, val := range resp.Validations {
		assert.InDelta(t, 0.4, val.Difference, 1e-9)
		assert.True(t, val.Passed)
		assert.Equal(t, resp.Suggestions[i].TargetPosition, val.MutationPosition)
	}

	// rs_near at position 12 is within the affected window of every
	// target; rs_far and the other catalogs never appear.
	require.Len(t, resp.Impacts, 3)
	for _, imp := range resp.Impacts {
		assert.Equal(t, "rs_near", imp.SNPID)
		assert.Equal(t, "1", imp.Chromosome)
		assert.Equal(t, "A", imp.OriginalAllele)
		assert.InDelta(t, 0.4, imp.EffectSize, 1e-9)
		assert.True(t, imp.IsCausalCandidate)
		assert.InDelta(t, 0.9, imp.SourceScore, 1e-9)
	}

	assert.Equal(t, 3, resp.Summary.TotalAffected)
	assert.Equal(t, 3, resp.Summary.HighImpact)
	assert.Len(t, resp.Summary.CausalCandidates, 3)
	assert.Equal(t, "Low - Minimal impact expected", resp.Summary.RiskAssessment)
	assert.InDelta(t, 0.8, resp.Summary.OverallConfidence, 1e-9)
	assert.InDelta(t, 0.4, resp.Summary.TraitPredictionDelta, 1e-9)

	assert.Equal(t, 3, resp.Metrics["total_suggestions"])
	assert.Equal(t, 3, resp.Metrics["validated_suggestions"])
	assert.Equal(t, "drought tolerance", resp.Metrics["target_trait"])
}

func TestRun_TargetRegionRestrictsWindowsAndChromosome(t *testing.T) {
	seq := "ATCGATCGATCGATCGATCGATCGAT"
	p, _ := newTestPipeline(t, seq)

	resp, err := p.Run(context.Background(), Request{
		Sequence:     seq,
		Dataset:      "maize",
		TargetRegion: "chr2:3-23",
	})
	require.NoError(t, err)

	// Only the window at offset 3 fits inside [3, 23).
	require.Len(t, resp.Suggestions, 1)
	assert.Equal(t, 13, resp.Suggestions[0].TargetPosition)

	require.Len(t, resp.Impacts, 1)
	assert.Equal(t, "rs_chr2", resp.Impacts[0].SNPID)
	assert.Equal(t, "2", resp.Impacts[0].Chromosome)
}

func TestRun_DatasetResolutionPriority(t *testing.T) {
	seq := "ATCGATCGATCGATCGATCGATCGAT"

	tests := []struct {
		name string
		req  Request
		want string
	}{
		{
			name: "auto-detection beats explicit name",
			req:  Request{Sequence: seq, Description: "rice paddy yield", Dataset: "maize"},
			want: "rice",
		},
		{
			name: "explicit name",
			req:  Request{Sequence: seq, Dataset: "rice"},
			want: "rice",
		},
		{
			name: "category falls back to first member",
			req:  Request{Sequence: seq, Category: "cereals"},
			want: "maize",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, _ := newTestPipeline(t, seq)
			resp, err := p.Run(context.Background(), tt.req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.Dataset)
		})
	}
}

func TestRun_CurrentDatasetIsLastResort(t *testing.T) {
	seq := "ATCGATCGATCGATCGATCGATCGAT"
	p, catalogs := newTestPipeline(t, seq)
	require.NoError(t, catalogs.Use(context.Background(), "rice"))

	resp, err := p.Run(context.Background(), Request{Sequence: seq})
	require.NoError(t, err)
	assert.Equal(t, "rice", resp.Dataset)
}

func TestRun_UnresolvedDatasetFailsSelectStage(t *testing.T) {
	seq := "ATCGATCGATCGATCGATCGATCGAT"
	p, _ := newTestPipeline(t, seq)

	_, err := p.Run(context.Background(), Request{Sequence: seq})

	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, StageSelectDataset, stageErr.Stage)
	assert.ErrorIs(t, err, registry.ErrNotFound)
}

func TestRun_UnknownDatasetFailsSelectStage(t *testing.T) {
	seq := "ATCGATCGATCGATCGATCGATCGAT"
	p, _ := newTestPipeline(t, seq)

	_, err := p.Run(context.Background(), Request{Sequence: seq, Dataset: "wheat"})

	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, StageSelectDataset, stageErr.Stage)
}

func TestRun_ShortSequenceYieldsEmptyResponse(t *testing.T) {
	p, _ := newTestPipeline(t, "ATCG")

	resp, err := p.Run(context.Background(), Request{Sequence: "ATCG", Dataset: "maize"})
	require.NoError(t, err)

	assert.Empty(t, resp.Suggestions)
	assert.Empty(t, resp.Impacts)
	assert.Equal(t, 0, resp.Summary.TotalAffected)
	assert.Equal(t, "Low - Minimal impact expected", resp.Summary.RiskAssessment)
	assert.Zero(t, resp.Summary.OverallConfidence)
}

func TestRun_MinEfficiencyFiltersEverything(t *testing.T) {
	seq := "ATCGATCGATCGATCGATCGATCGAT"
	p, _ := newTestPipeline(t, seq)

	resp, err := p.Run(context.Background(), Request{
		Sequence:      seq,
		Dataset:       "maize",
		MinEfficiency: 95,
	})
	require.NoError(t, err)
	assert.Empty(t, resp.Suggestions)
	assert.Empty(t, resp.Impacts)
}

func TestParseTargetRegion(t *testing.T) {
	tests := []struct {
		in        string
		wantNil   bool
		wantStart int
		wantEnd   int
		wantChrom string
	}{
		{in: "", wantNil: true, wantChrom: "1"},
		{in: "chr2:3-23", wantStart: 3, wantEnd: 23, wantChrom: "2"},
		{in: "7:100-200", wantStart: 100, wantEnd: 200, wantChrom: "7"},
		{in: "100-200", wantStart: 100, wantEnd: 200, wantChrom: "1"},
		{in: " chr3 : 5-10", wantStart: 5, wantEnd: 10, wantChrom: "3"},
		{in: "chr1:20-10", wantNil: true, wantChrom: "1"},
		{in: "chr1:abc-def", wantNil: true, wantChrom: "1"},
		{in: "nonsense", wantNil: true, wantChrom: "1"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			region, chrom := parseTargetRegion(tt.in)
			assert.Equal(t, tt.wantChrom, chrom)
			if tt.wantNil {
				assert.Nil(t, region)
				return
			}
			require.NotNil(t, region)
			assert.Equal(t, tt.wantStart, region.Start)
			assert.Equal(t, tt.wantEnd, region.End)
		})
	}
}

func TestSummarize_RiskTiers(t *testing.T) {
	causal := VariantImpact{EffectSize: 0.25, IsCausalCandidate: true}
	high := VariantImpact{EffectSize: 0.35}
	low := VariantImpact{EffectSize: 0.05}

	tests := []struct {
		name    string
		impacts []VariantImpact
		want    string
	}{
		{
			name:    "more than three causal candidates",
			impacts: []VariantImpact{causal, causal, causal, causal},
			want:    "High - Multiple causal candidates identified",
		},
		{
			name:    "more than five high-impact variants",
			impacts: []VariantImpact{high, high, high, high, high, high},
			want:    "Medium - Several high-impact SNPs affected",
		},
		{
			name:    "otherwise low",
			impacts: []VariantImpact{causal, high, low},
			want:    "Low - Minimal impact expected",
		},
		{
			name:    "no impacts",
			impacts: nil,
			want:    "Low - Minimal impact expected",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := summarize(nil, nil, tt.impacts)
			assert.Equal(t, tt.want, s.RiskAssessment)
		})
	}
}

func TestStageError_Unwrap(t *testing.T) {
	cause := errors.New("boom")
	err := &StageError{Stage: StageMapVariantImpacts, Err: cause}
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "map_variant_impacts")
}

func TestRun_CountsTerminalStates(t *testing.T) {
	seq := "ATCGATCGATCGATCGATCGATCGAT"
	p, _ := newTestPipeline(t, seq)
	m := metrics.New(prometheus.NewRegistry())
	p.SetMetrics(m)

	_, err := p.Run(context.Background(), Request{Sequence: seq, Dataset: "maize"})
	require.NoError(t, err)
	_, err = p.Run(context.Background(), Request{Sequence: seq, Dataset: "wheat"})
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Requests.WithLabelValues("completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Requests.WithLabelValues("failed")))
}
