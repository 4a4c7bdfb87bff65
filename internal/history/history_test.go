package history

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/vovakirdan/duelhub/internal/multiplayer"
)

func TestHTTPRecorderPostsPayload(t *testing.T) {
	var (
		mu      sync.Mutex
		gotPath string
		got     Payload
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		gotPath = r.URL.Path
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	rec := NewHTTPRecorder(srv.URL+"/", nil)
	err := rec.RecordOutcome(context.Background(), multiplayer.HistoryRecord{
		ParticipantID: "42",
		OpponentName:  "Bob",
		Result:        multiplayer.ResultWin,
	})
	if err != nil {
		t.Fatalf("RecordOutcome() failed: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if gotPath != "/participants/42/match-history" {
		t.Errorf("Unexpected path %s", gotPath)
	}
	if got.Opponent != "Bob" || got.Status != "win" {
		t.Errorf("Unexpected payload %+v", got)
	}
}

func TestHTTPRecorderReportsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := NewHTTPRecorder(srv.URL, nil).RecordOutcome(context.Background(), multiplayer.HistoryRecord{ParticipantID: "1"})
	if err == nil {
		t.Error("Expected an error for a 500 response")
	}
}

type stubRecorder struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (s *stubRecorder) RecordOutcome(ctx context.Context, rec multiplayer.HistoryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.err
}

func TestMultiIsolatesFailures(t *testing.T) {
	boom := errors.New("boom")
	bad := &stubRecorder{err: boom}
	good := &stubRecorder{}

	err := Multi{bad, good}.RecordOutcome(context.Background(), multiplayer.HistoryRecord{ParticipantID: "1"})
	if !errors.Is(err, boom) {
		t.Errorf("Expected the failure to be reported, got %v", err)
	}
	if good.calls != 1 || bad.calls != 1 {
		t.Errorf("Expected every recorder to be called once, got %d and %d", bad.calls, good.calls)
	}

	if err := (Multi{good}).RecordOutcome(context.Background(), multiplayer.HistoryRecord{}); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
}
