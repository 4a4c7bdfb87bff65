package multiplayer

import (
	"sort"
	"time"
)

// WaitingEntry is an unmatched participant waiting for an opponent.
type WaitingEntry struct {
	Participant Participant
	Handle      Handle
	JoinedAt    time.Time

	seq uint64 // arrival order, breaks JoinedAt ties
}

// Queue is the matchmaking waiting list, ordered by (JoinedAt, arrival).
// It is owned by the coordinator's event loop and is not safe for concurrent use.
type Queue struct {
	entries []*WaitingEntry
	nextSeq uint64
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Len returns the number of waiting entries.
func (q *Queue) Len() int {
	return len(q.entries)
}

// Find returns the entry held by the participant, if any.
func (q *Queue) Find(id ParticipantID) (*WaitingEntry, bool) {
	for _, e := range q.entries {
		if e.Participant.ID == id {
			return e, true
		}
	}
	return nil, false
}

// Enqueue adds a new entry. Entries stay sorted by JoinedAt, then arrival.
func (q *Queue) Enqueue(p Participant, h Handle, joinedAt time.Time) *WaitingEntry {
	e := &WaitingEntry{
		Participant: p,
		Handle:      h,
		JoinedAt:    joinedAt,
		seq:         q.nextSeq,
	}
	q.nextSeq++

	// Usually appends; a clock that steps backwards inserts earlier.
	i := sort.Search(len(q.entries), func(i int) bool {
		return q.entries[i].JoinedAt.After(joinedAt)
	})
	q.entries = append(q.entries, nil)
	copy(q.entries[i+1:], q.entries[i:])
	q.entries[i] = e
	return e
}

// RemoveHandle removes the entry bound to the connection.
func (q *Queue) RemoveHandle(id HandleID) (*WaitingEntry, bool) {
	for i, e := range q.entries {
		if e.Handle != nil && e.Handle.ID() == id {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			return e, true
		}
	}
	return nil, false
}

// TryPair removes and returns the two longest-waiting entries.
// ok is false when fewer than two entries are waiting.
func (q *Queue) TryPair() (first, second *WaitingEntry, ok bool) {
	if len(q.entries) < 2 {
		return nil, nil, false
	}
	first, second = q.entries[0], q.entries[1]
	q.entries[0], q.entries[1] = nil, nil
	q.entries = q.entries[2:]
	return first, second, true
}

// Entries returns a copy of the waiting entries in pairing order.
func (q *Queue) Entries() []*WaitingEntry {
	out := make([]*WaitingEntry, len(q.entries))
	copy(out, q.entries)
	return out
}
