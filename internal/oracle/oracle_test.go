package oracle

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompositionEfficiency(t *testing.T) {
	tests := []struct {
		name      string
		window    string
		wantScore float64
		wantConf  float64
	}{
		{"balanced gc", "ATCGATCGATCGATCGATCG", 75.0, 0.875},
		{"gc poor", "AAAAAAAAAAAAAAAAAAAA", 50.0, 0.75},
		{"gc rich", "GCGCGCGCGCGCGCGCGCGC", 50.0, 0.75},
		{"empty", "", 75.0, 0.875}, // empty defaults to gc=0.5
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eff, err := CompositionEfficiency{}.ScoreWindow(context.Background(), tt.window)
			require.NoError(t, err)
			assert.InDelta(t, tt.wantScore, eff.Score, 1e-9)
			assert.InDelta(t, tt.wantConf, eff.Confidence, 1e-9)
		})
	}
}

func TestCompositionEfficiency_Deterministic(t *testing.T) {
	a, _ := CompositionEfficiency{}.ScoreWindow(context.Background(), "ATCGATCGATCGATCGATCG")
	b, _ := CompositionEfficiency{}.ScoreWindow(context.Background(), "ATCGATCGATCGATCGATCG")
	assert.Equal(t, a, b)
}

func TestCompositionSequence(t *testing.T) {
	score, err := CompositionSequence{}.ScoreSequence(context.Background(), "ATCG")
	require.NoError(t, err)
	// gc=0.5, length factor 4/1000
	assert.InDelta(t, 0.3+0.15+0.0008, score, 1e-9)
	assert.Greater(t, score, 0.0)
	assert.Less(t, score, 1.0)
}

func TestNewEfficiency_ClosedKindSet(t *testing.T) {
	o, err := NewEfficiency(KindHeuristic, HTTPConfig{})
	require.NoError(t, err)
	assert.IsType(t, CompositionEfficiency{}, o)

	o, err = NewEfficiency(KindRemote, HTTPConfig{URL: "http://localhost:9"})
	require.NoError(t, err)
	assert.IsType(t, &HTTPEfficiency{}, o)

	_, err = NewEfficiency(Kind("dnabert-v2"), HTTPConfig{})
	assert.Error(t, err)

	_, err = NewSequence(Kind("bogus"), HTTPConfig{})
	assert.Error(t, err)
}

func TestHTTPEfficiency_ScoreWindow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		w.Write([]byte(`{"efficiency_score": 82.5, "confidence": 0.91}`))
	}))
	defer srv.Close()

	o := NewHTTPEfficiency(HTTPConfig{URL: srv.URL})
	eff, err := o.ScoreWindow(context.Background(), "ATCGATCGATCGATCGATCG")
	require.NoError(t, err)
	assert.Equal(t, 82.5, eff.Score)
	assert.Equal(t, 0.91, eff.Confidence)
}

func TestHTTPEfficiency_ErrorStates(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}},
		{"bad json", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("not json"))
		}},
		{"out of range", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"efficiency_score": 250, "confidence": 0.5}`))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			o := NewHTTPEfficiency(HTTPConfig{URL: srv.URL})
			_, err := o.ScoreWindow(context.Background(), "ATCG")
			assert.ErrorIs(t, err, ErrUnavailable)
		})
	}
}

func TestHTTPSequence_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(`{"score": 0.5}`))
	}))
	defer srv.Close()

	o := NewHTTPSequence(HTTPConfig{URL: srv.URL, Timeout: 20 * time.Millisecond})
	_, err := o.ScoreSequence(context.Background(), "ATCG")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestHTTPSequence_ScoreSequence(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"score": 0.73}`))
	}))
	defer srv.Close()

	o := NewHTTPSequence(HTTPConfig{URL: srv.URL})
	score, err := o.ScoreSequence(context.Background(), "ATCGATCG")
	require.NoError(t, err)
	assert.Equal(t, 0.73, score)
}

func TestHTTPSequence_Unreachable(t *testing.T) {
	o := NewHTTPSequence(HTTPConfig{URL: "http://127.0.0.1:1", Timeout: 100 * time.Millisecond})
	_, err := o.ScoreSequence(context.Background(), "ATCG")
	assert.ErrorIs(t, err, ErrUnavailable)
}
