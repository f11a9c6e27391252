// Package oracle defines the scoring-oracle contracts consumed by the edit
// pipeline, plus their remote and heuristic implementations.
//
// Both oracles wrap slow model inference running elsewhere. Unavailability
// is a normal state: consumers hold a heuristic fallback and degrade to it
// on any oracle error instead of failing the request.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrUnavailable indicates the oracle could not produce a score (transport
// failure, timeout, bad response). Consumers fall back, they never surface
// this as a request failure.
var ErrUnavailable = errors.New("oracle unavailable")

// Efficiency is the edit-efficiency oracle's prediction for one guide
// window.
type Efficiency struct {
	Score      float64 `json:"efficiency_score"` // 0..100
	Confidence float64 `json:"confidence"`       // 0..1
}

// EfficiencyOracle scores candidate guide windows.
type EfficiencyOracle interface {
	ScoreWindow(ctx context.Context, window string) (Efficiency, error)
}

// SequenceOracle scores a whole sequence in [0,1].
type SequenceOracle interface {
	ScoreSequence(ctx context.Context, seq string) (float64, error)
}

// Kind selects an oracle implementation at startup. The set is closed:
// configuration names one of these, not an arbitrary model string.
type Kind string

const (
	KindRemote    Kind = "remote"
	KindHeuristic Kind = "heuristic"
)

// NewEfficiency builds an efficiency oracle of the given kind.
func NewEfficiency(kind Kind, cfg HTTPConfig) (EfficiencyOracle, error) {
	switch kind {
	case KindRemote:
		return NewHTTPEfficiency(cfg), nil
	case KindHeuristic:
		return CompositionEfficiency{}, nil
	default:
		return nil, fmt.Errorf("unknown efficiency oracle kind %q", kind)
	}
}

// NewSequence builds a sequence-score oracle of the given kind.
func NewSequence(kind Kind, cfg HTTPConfig) (SequenceOracle, error) {
	switch kind {
	case KindRemote:
		return NewHTTPSequence(cfg), nil
	case KindHeuristic:
		return CompositionSequence{}, nil
	default:
		return nil, fmt.Errorf("unknown sequence oracle kind %q", kind)
	}
}

// gcContent returns the G+C fraction of a sequence, 0.5 for empty input.
func gcContent(seq string) float64 {
	if seq == "" {
		return 0.5
	}
	gc := strings.Count(seq, "G") + strings.Count(seq, "C")
	return float64(gc) / float64(len(seq))
}
