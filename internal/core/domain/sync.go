package domain

import "time"

const (
	// DefaultBatchSize is the batch window size used when the caller does not pick one.
	DefaultBatchSize = 50

	// MaxSyncIssues caps the result set a single sync run will walk.
	MaxSyncIssues = 5000

	// StaleSyncTimeout is how long a running sync may go without a progress
	// update before it is treated as abandoned and cleared on the next read.
	StaleSyncTimeout = 10 * time.Minute

	// IssueConcurrencyLimit bounds how many issues are processed in flight
	// within one batch window.
	IssueConcurrencyLimit = 3

	// SyncLogMaxEntries bounds the activity log ring.
	SyncLogMaxEntries = 100

	// SyncLogTTL is how long the activity log survives without writes.
	SyncLogTTL = time.Hour

	// MaxPayloadBytes is the conservative ceiling for serialized job payloads.
	MaxPayloadBytes = 64000
)

// NowMillis returns the current time as a millisecond epoch, the unit all
// sync timestamps are stored in.
func NowMillis() int64 {
	return time.Now().UnixMilli()
}

// SyncError records one failed batch inside a run.
type SyncError struct {
	BatchIndex int    `json:"batchIndex"`
	Error      string `json:"error"`
}

// SyncState is the durable progress record for the single active sync run.
// There is no separate job object: this state is the job's cursor, and
// currentBatchStart is the only resume point a re-invoked runner needs.
type SyncState struct {
	IsRunning          bool        `json:"isRunning"`
	StartTime          int64       `json:"startTime,omitempty"`
	LastUpdated        int64       `json:"lastUpdated,omitempty"`
	TotalWorkItems     int         `json:"totalWorkItems"`
	ProcessedWorkItems int         `json:"processedWorkItems"`
	CurrentBatchStart  int         `json:"currentBatchStart"`
	Errors             []SyncError `json:"errors"`
	BatchSize          int         `json:"batchSize"`
	ProjectID          string      `json:"projectId,omitempty"`
	ProjectKey         string      `json:"projectKey,omitempty"`
	JQLQuery           string      `json:"jqlQuery,omitempty"`
}

// NewIdleSyncState returns the zeroed not-running state.
func NewIdleSyncState() *SyncState {
	return &SyncState{
		IsRunning:          false,
		TotalWorkItems:     0,
		ProcessedWorkItems: 0,
		CurrentBatchStart:  0,
		Errors:             []SyncError{},
		LastUpdated:        NowMillis(),
		BatchSize:          DefaultBatchSize,
	}
}

// IsStale reports whether a running state has gone without progress for
// longer than the staleness threshold.
func (s *SyncState) IsStale(now time.Time) bool {
	if s == nil || !s.IsRunning || s.LastUpdated == 0 {
		return false
	}
	return now.UnixMilli()-s.LastUpdated > StaleSyncTimeout.Milliseconds()
}

// ClearStale resets a stale run to not-running, keeping the scope fields so
// the admin UI can still show what the abandoned run was doing.
func (s *SyncState) ClearStale() {
	s.IsRunning = false
	s.StartTime = 0
	s.ProcessedWorkItems = 0
	s.CurrentBatchStart = 0
	s.Errors = []SyncError{}
	s.LastUpdated = NowMillis()
}

// BatchCount is the number of windows a run of this size schedules.
func (s *SyncState) BatchCount() int {
	if s.BatchSize <= 0 {
		return 0
	}
	return (s.TotalWorkItems + s.BatchSize - 1) / s.BatchSize
}

// Completed reports whether every work item has been processed.
func (s *SyncState) Completed() bool {
	return s.ProcessedWorkItems >= s.TotalWorkItems
}

// Sync log entry types.
const (
	LogTypeStart         = "start"
	LogTypeEnqueue       = "enqueue"
	LogTypeBatchComplete = "batch-complete"
	LogTypeBatchProcess  = "batch-process"
	LogTypeComplete      = "complete"
	LogTypeStopped       = "stopped"
	LogTypeError         = "error"
)

// SyncLogEntry is one line of the bounded activity log. Extra carries
// per-type payload (counts, batch indexes, error text). The log is an
// observability aid, not an audit record: it expires with its TTL.
type SyncLogEntry struct {
	Type       string         `json:"type"`
	Timestamp  int64          `json:"timestamp"`
	ProjectID  string         `json:"projectId,omitempty"`
	ProjectKey string         `json:"projectKey,omitempty"`
	Extra      map[string]any `json:"extra,omitempty"`
}

// NewSyncLogEntry stamps an entry with the current time.
func NewSyncLogEntry(logType, projectID, projectKey string, extra map[string]any) SyncLogEntry {
	return SyncLogEntry{
		Type:       logType,
		Timestamp:  NowMillis(),
		ProjectID:  projectID,
		ProjectKey: projectKey,
		Extra:      extra,
	}
}

// SyncTypeFull marks a payload that drives a whole run; payloads without it
// are legacy single-batch messages.
const SyncTypeFull = "full-sync"

// SyncJobPayload is the immutable job snapshot handed to the queue. Settings
// are flattened to bare visibility values before enqueueing so the payload
// stays well under the message-size ceiling.
type SyncJobPayload struct {
	TotalWorkItems int              `json:"totalWorkItems"`
	BatchSize      int              `json:"batchSize"`
	ProjectID      string           `json:"projectId,omitempty"`
	ProjectKey     string           `json:"projectKey,omitempty"`
	JQLQuery       string           `json:"jqlQuery,omitempty"`
	AppSettings    *FlatAppSettings `json:"appSettings,omitempty"`
	SyncType       string           `json:"syncType,omitempty"`

	// StartIndex is only set on legacy single-batch payloads.
	StartIndex *int `json:"startIndex,omitempty"`
}

// IsFullSync reports whether this payload drives a full run.
func (p *SyncJobPayload) IsFullSync() bool {
	return p.SyncType == SyncTypeFull
}

// Validate checks the fields the runner depends on.
func (p *SyncJobPayload) Validate() error {
	if p.BatchSize <= 0 || p.TotalWorkItems <= 0 {
		return ErrInvalidInput
	}
	if p.ProjectID == "" && p.ProjectKey == "" && p.JQLQuery == "" {
		return ErrFilterRequired
	}
	return nil
}

// SyncResult is what one runner invocation reports back.
type SyncResult struct {
	Processed  int    `json:"processed"`
	Completed  bool   `json:"completed"`
	Skipped    bool   `json:"skipped,omitempty"`
	SkipReason string `json:"skipReason,omitempty"`
}
