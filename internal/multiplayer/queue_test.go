package multiplayer

import (
	"testing"
	"time"
)

func TestQueuePairsOldestFirst(t *testing.T) {
	q := NewQueue()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	q.Enqueue(Participant{ID: "c"}, newRecordingHandle("c"), base.Add(3*time.Second))
	q.Enqueue(Participant{ID: "a"}, newRecordingHandle("a"), base.Add(1*time.Second))
	q.Enqueue(Participant{ID: "d"}, newRecordingHandle("d"), base.Add(4*time.Second))
	q.Enqueue(Participant{ID: "b"}, newRecordingHandle("b"), base.Add(2*time.Second))

	first, second, ok := q.TryPair()
	if !ok {
		t.Fatal("TryPair() failed with 4 entries")
	}
	if first.Participant.ID != "a" || second.Participant.ID != "b" {
		t.Errorf("Expected a and b, got %s and %s", first.Participant.ID, second.Participant.ID)
	}

	first, second, ok = q.TryPair()
	if !ok || first.Participant.ID != "c" || second.Participant.ID != "d" {
		t.Errorf("Expected c and d second")
	}

	if _, _, ok := q.TryPair(); ok {
		t.Error("Expected TryPair() on an empty queue to fail")
	}
}

func TestQueueTiesKeepArrivalOrder(t *testing.T) {
	q := NewQueue()
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	for _, id := range []ParticipantID{"x", "y", "z"} {
		q.Enqueue(Participant{ID: id}, newRecordingHandle(string(id)), at)
	}

	entries := q.Entries()
	for i, want := range []ParticipantID{"x", "y", "z"} {
		if entries[i].Participant.ID != want {
			t.Errorf("Entry %d: expected %s, got %s", i, want, entries[i].Participant.ID)
		}
	}
}

func TestQueueSingleEntryDoesNotPair(t *testing.T) {
	q := NewQueue()
	q.Enqueue(Participant{ID: "a"}, newRecordingHandle("a"), time.Now())

	if _, _, ok := q.TryPair(); ok {
		t.Error("Expected no pair with one entry")
	}
	if q.Len() != 1 {
		t.Errorf("Expected entry to stay queued, got len %d", q.Len())
	}
}

func TestQueueRemoveHandle(t *testing.T) {
	q := NewQueue()
	now := time.Now()
	q.Enqueue(Participant{ID: "a"}, newRecordingHandle("ha"), now)
	q.Enqueue(Participant{ID: "b"}, newRecordingHandle("hb"), now.Add(time.Second))

	e, ok := q.RemoveHandle("ha")
	if !ok || e.Participant.ID != "a" {
		t.Fatalf("RemoveHandle() failed: %v %+v", ok, e)
	}
	if _, ok := q.RemoveHandle("ha"); ok {
		t.Error("Expected second RemoveHandle() to be a no-op")
	}
	if _, ok := q.Find("a"); ok {
		t.Error("Expected a to be gone")
	}
	if q.Len() != 1 {
		t.Errorf("Expected 1 entry, got %d", q.Len())
	}
}

func TestRegistryStartedBefore(t *testing.T) {
	r := NewRegistry()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	r.Add(&Session{ID: "new", StartedAt: base.Add(time.Hour)})
	r.Add(&Session{ID: "old", StartedAt: base.Add(-time.Hour)})
	r.Add(&Session{ID: "older", StartedAt: base.Add(-2 * time.Hour)})

	ids := r.StartedBefore(base)
	if len(ids) != 2 || ids[0] != "older" || ids[1] != "old" {
		t.Errorf("Expected [older old], got %v", ids)
	}

	if _, ok := r.Remove("old"); !ok {
		t.Error("Remove() failed")
	}
	if _, ok := r.Remove("old"); ok {
		t.Error("Expected repeated Remove() to be a no-op")
	}
	if r.Len() != 2 {
		t.Errorf("Expected 2 sessions, got %d", r.Len())
	}
}
