package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// HTTPConfig configures a remote oracle client.
type HTTPConfig struct {
	URL string

	// Timeout bounds each scoring call. Model inference is slow; a call
	// that exceeds this degrades to the fallback, it does not fail the
	// request.
	Timeout time.Duration
}

// HTTPEfficiency calls a remote edit-efficiency model over HTTP.
type HTTPEfficiency struct {
	url    string
	client *http.Client
}

// NewHTTPEfficiency creates a remote efficiency oracle client.
func NewHTTPEfficiency(cfg HTTPConfig) *HTTPEfficiency {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &HTTPEfficiency{
		url:    cfg.URL,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// ScoreWindow implements EfficiencyOracle.
func (o *HTTPEfficiency) ScoreWindow(ctx context.Context, window string) (Efficiency, error) {
	var eff Efficiency
	err := postJSON(ctx, o.client, o.url, map[string]string{"sequence_window": window}, &eff)
	if err != nil {
		return Efficiency{}, err
	}
	if eff.Score < 0 || eff.Score > 100 || eff.Confidence < 0 || eff.Confidence > 1 {
		return Efficiency{}, fmt.Errorf("%w: score out of range", ErrUnavailable)
	}
	return eff, nil
}

// HTTPSequence calls a remote sequence-scoring model over HTTP.
type HTTPSequence struct {
	url    string
	client *http.Client
}

// NewHTTPSequence creates a remote sequence oracle client.
func NewHTTPSequence(cfg HTTPConfig) *HTTPSequence {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &HTTPSequence{
		url:    cfg.URL,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// ScoreSequence implements SequenceOracle.
func (o *HTTPSequence) ScoreSequence(ctx context.Context, seq string) (float64, error) {
	var resp struct {
		Score float64 `json:"score"`
	}
	if err := postJSON(ctx, o.client, o.url, map[string]string{"sequence": seq}, &resp); err != nil {
		return 0, err
	}
	if resp.Score < 0 || resp.Score > 1 {
		return 0, fmt.Errorf("%w: score out of range", ErrUnavailable)
	}
	return resp.Score, nil
}

// postJSON posts a JSON body and decodes the JSON response into out.
// All failure modes collapse into ErrUnavailable: to the caller there is no
// difference between a down oracle and a misbehaving one.
func postJSON(ctx context.Context, client *http.Client, url string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%w: marshal request: %v", ErrUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%w: build request: %v", ErrUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}
	return nil
}
