package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cropseq/genedit/internal/pipeline"
	"github.com/cropseq/genedit/internal/suggest"
	"github.com/cropseq/genedit/internal/validate"
)

func sampleResponse() *pipeline.Response {
	return &pipeline.Response{
		RequestID: "deadbeef01020304",
		Dataset:   "maize",
		Suggestions: []suggest.Suggestion{
			{
				GuideSequence:   "ATCGATCGATCGATCGATCG",
				TargetPosition:  10,
				EditType:        suggest.Substitution,
				EfficiencyScore: 90,
				Confidence:      0.85,
				OriginalBase:    "C",
				TargetBase:      "A",
			},
			{
				GuideSequence:   "GATCGATCGATCGATCGATC",
				TargetPosition:  13,
				EditType:        suggest.Substitution,
				EfficiencyScore: 75,
				Confidence:      0.7,
				OriginalBase:    "G",
				TargetBase:      "A",
			},
		},
		Validations: []validate.Result{
			{OriginalScore: 0.5, MutatedScore: 0.9, Difference: 0.4, LogOddsRatio: -3.1699, Passed: true, MutationPosition: 10},
			{OriginalScore: 0.5, MutatedScore: 0.52, Difference: 0.02, LogOddsRatio: -0.1155, Passed: false, MutationPosition: 13},
		},
		Summary: pipeline.Summary{
			TotalAffected:     1,
			HighImpact:        1,
			RiskAssessment:    "Low - Minimal impact expected",
			OverallConfidence: 0.775,
		},
	}
}

func TestTabWriter_WriteHeader(t *testing.T) {
	var buf bytes.Buffer
	w := NewTabWriter(&buf)

	require.NoError(t, w.WriteHeader())
	require.NoError(t, w.Flush())

	header := buf.String()
	for _, col := range []string{
		"#Guide_sequence",
		"Target_position",
		"Efficiency",
		"Score_change",
		"Validated",
	} {
		assert.Contains(t, header, col)
	}
}

func TestTabWriter_WriteResponse(t *testing.T) {
	var buf bytes.Buffer
	w := NewTabWriter(&buf)

	require.NoError(t, w.WriteHeader())
	require.NoError(t, w.WriteResponse(sampleResponse()))
	require.NoError(t, w.Flush())

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)

	first := strings.Split(lines[1], "\t")
	require.Len(t, first, 10)
	assert.Equal(t, "ATCGATCGATCGATCGATCG", first[0])
	assert.Equal(t, "10", first[1])
	assert.Equal(t, "substitution", first[2])
	assert.Equal(t, "90.0", first[5])
	assert.Equal(t, "0.4000", first[7])
	assert.Equal(t, "YES", first[9])

	second := strings.Split(lines[2], "\t")
	assert.Equal(t, "75.0", second[5])
	assert.Equal(t, "NO", second[9])
}

func TestTabWriter_MissingValidation(t *testing.T) {
	resp := sampleResponse()
	resp.Validations = nil

	var buf bytes.Buffer
	w := NewTabWriter(&buf)
	require.NoError(t, w.WriteResponse(resp))
	require.NoError(t, w.Flush())

	first := strings.Split(strings.SplitN(buf.String(), "\n", 2)[0], "\t")
	assert.Equal(t, "-", first[7])
	assert.Equal(t, "-", first[8])
	assert.Equal(t, "-", first[9])
}

func TestTabWriter_WriteSummary(t *testing.T) {
	var buf bytes.Buffer
	w := NewTabWriter(&buf)

	require.NoError(t, w.WriteSummary(sampleResponse()))
	require.NoError(t, w.Flush())

	out := buf.String()
	assert.Contains(t, out, "## Dataset: maize")
	assert.Contains(t, out, "## Risk: Low - Minimal impact expected")
	assert.Contains(t, out, "## SNPs affected: 1")
}

func TestWriteJSON_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, sampleResponse()))

	var decoded pipeline.Response
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "maize", decoded.Dataset)
	require.Len(t, decoded.Suggestions, 2)
	assert.Equal(t, "ATCGATCGATCGATCGATCG", decoded.Suggestions[0].GuideSequence)
	assert.True(t, decoded.Validations[0].Passed)

	// Indented output for humans.
	assert.Contains(t, buf.String(), "\n  \"request_id\"")
}
