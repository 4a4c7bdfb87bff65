// Package history delivers match outcomes to recorders outside the
// coordinator: a remote HTTP endpoint and fan-out to several recorders.
package history

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vovakirdan/duelhub/internal/multiplayer"
)

// Payload is the body POSTed for each participant.
type Payload struct {
	Opponent string `json:"opponent"`
	Status   string `json:"status"` // win, lose or draw
}

// HTTPRecorder posts outcomes to <endpoint>/participants/{id}/match-history.
type HTTPRecorder struct {
	endpoint string
	client   *http.Client
}

// NewHTTPRecorder creates a recorder for endpoint. A nil client gets a
// client with a 10 second timeout.
func NewHTTPRecorder(endpoint string, client *http.Client) *HTTPRecorder {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPRecorder{
		endpoint: strings.TrimRight(endpoint, "/"),
		client:   client,
	}
}

// RecordOutcome sends one record. Any non-2xx response is an error.
func (r *HTTPRecorder) RecordOutcome(ctx context.Context, rec multiplayer.HistoryRecord) error {
	body, err := json.Marshal(Payload{Opponent: rec.OpponentName, Status: string(rec.Result)})
	if err != nil {
		return fmt.Errorf("history: cannot encode record: %w", err)
	}

	target := r.endpoint + "/participants/" + url.PathEscape(string(rec.ParticipantID)) + "/match-history"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("history: cannot build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("history: cannot post record: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("history: recorder answered %s", resp.Status)
	}
	return nil
}

// Recorder is satisfied by every recorder in this package and by storage.Store.
type Recorder interface {
	RecordOutcome(ctx context.Context, rec multiplayer.HistoryRecord) error
}

// Multi records to every recorder concurrently. One failing recorder does
// not stop the others; all failures are joined.
type Multi []Recorder

// RecordOutcome implements multiplayer.HistoryRecorder.
func (m Multi) RecordOutcome(ctx context.Context, rec multiplayer.HistoryRecord) error {
	errs := make([]error, len(m))
	var g errgroup.Group
	for i, r := range m {
		g.Go(func() error {
			errs[i] = r.RecordOutcome(ctx, rec)
			return nil
		})
	}
	g.Wait()
	return errors.Join(errs...)
}
