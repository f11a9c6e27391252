package oracle

import "context"

// CompositionEfficiency is the deterministic fallback efficiency scorer,
// derived from local base composition. Guides with GC content in the
// 40-60% band score 75, everything else 50; confidence tracks efficiency
// and is capped at 0.9 so heuristic results are never reported with full
// model confidence.
type CompositionEfficiency struct{}

// ScoreWindow implements EfficiencyOracle. It never fails.
func (CompositionEfficiency) ScoreWindow(_ context.Context, window string) (Efficiency, error) {
	gc := gcContent(window)

	score := 50.0
	if gc >= 0.4 && gc <= 0.6 {
		score = 75.0
	}

	confidence := 0.5 + score/200
	if confidence > 0.9 {
		confidence = 0.9
	}

	return Efficiency{Score: score, Confidence: confidence}, nil
}

// CompositionSequence is the deterministic fallback sequence scorer:
// a bounded function of GC content and length in (0,1).
type CompositionSequence struct{}

// ScoreSequence implements SequenceOracle. It never fails.
func (CompositionSequence) ScoreSequence(_ context.Context, seq string) (float64, error) {
	lengthFactor := float64(len(seq)) / 1000
	if lengthFactor > 1 {
		lengthFactor = 1
	}

	score := 0.3 + gcContent(seq)*0.3 + lengthFactor*0.2
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score, nil
}
