package syncproto

import "encoding/json"

// ChangeSet is the created/updated/deleted partition of one table.
type ChangeSet[R any] struct {
	Created []R      `json:"created"`
	Updated []R      `json:"updated"`
	Deleted []string `json:"deleted"`
}

// NewChangeSet returns a change set whose slices marshal as [] rather than null.
func NewChangeSet[R any]() *ChangeSet[R] {
	return &ChangeSet[R]{Created: []R{}, Updated: []R{}, Deleted: []string{}}
}

// Len is the number of records across all three partitions.
func (c *ChangeSet[R]) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Created) + len(c.Updated) + len(c.Deleted)
}

// Record is any serialized syncable row.
type Record interface {
	StableID() string
}

// PullRequest asks for everything changed since LastPulledAt (ms).
// A nil or non-positive LastPulledAt requests a full bootstrap.
type PullRequest struct {
	LastPulledAt  *int64 `json:"last_pulled_at" validate:"omitempty"`
	SchemaVersion int    `json:"schema_version" validate:"gte=0"`
}

// PullResponse carries one change set per table plus the snapshot time the
// client must send back as its next LastPulledAt.
type PullResponse struct {
	Changes   map[string]*ChangeSet[Record] `json:"changes"`
	Timestamp int64                         `json:"timestamp"`
}

// PushRequest carries local changes. Table payloads stay raw so the server
// only decodes the tables it accepts writes for.
type PushRequest struct {
	Changes      map[string]json.RawMessage `json:"changes" validate:"required"`
	LastPulledAt *int64                     `json:"last_pulled_at" validate:"required,gte=0"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
	Table string `json:"table,omitempty"`
	ID    string `json:"id,omitempty"`
}

// PulledChanges is the typed, client-side view of a PullResponse.
type PulledChanges struct {
	Changes struct {
		Projects     *ChangeSet[ProjectRecord]     `json:"projects"`
		Drawings     *ChangeSet[DrawingRecord]     `json:"drawings"`
		Observations *ChangeSet[ObservationRecord] `json:"observations"`
	} `json:"changes"`
	Timestamp int64 `json:"timestamp"`
}

// NewObservationPush builds a push request for the observations table.
func NewObservationPush(changes *ChangeSet[ObservationInput], lastPulledAt int64) (*PushRequest, error) {
	raw, err := json.Marshal(changes)
	if err != nil {
		return nil, err
	}
	return &PushRequest{
		Changes:      map[string]json.RawMessage{TableObservations: raw},
		LastPulledAt: &lastPulledAt,
	}, nil
}
