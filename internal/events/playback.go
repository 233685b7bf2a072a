package events

import "time"

// PlaybackProgress is emitted roughly once per server tick while a
// session is playing. Offsets are seconds from the start of the item.
type PlaybackProgress struct {
	BaseEvent
	SessionKey int64     `json:"session_key"`
	ItemID     int64     `json:"item_id"`
	State      string    `json:"state"` // playing, paused, buffering, stopped
	OffsetSec  int64     `json:"offset_sec"`
	ReceivedAt time.Time `json:"received_at"`
}

// LibraryItemAdded is emitted when the media server reports a new item.
type LibraryItemAdded struct {
	BaseEvent
	ItemID int64  `json:"item_id"`
	Kind   string `json:"kind"` // episode or movie
	Title  string `json:"title"`
}

// LibraryItemRemoved is emitted when the media server deletes an item.
type LibraryItemRemoved struct {
	BaseEvent
	ItemID int64  `json:"item_id"`
	Kind   string `json:"kind"`
	Title  string `json:"title"`
}

// AnalysisCompleted is emitted after a pipeline run stores a marker
// record for an item.
type AnalysisCompleted struct {
	BaseEvent
	ItemID int64  `json:"item_id"`
	JobID  string `json:"job_id"`
}

// AnalysisFailed is emitted when a pipeline run could not produce a
// record at all (storage failure, item fetch failure).
type AnalysisFailed struct {
	BaseEvent
	ItemID int64  `json:"item_id"`
	JobID  string `json:"job_id"`
	Reason string `json:"reason"`
}

// CommandDispatched is emitted after the controller sends a seek or stop
// to a client. Mostly useful as an audit trail in the event log.
type CommandDispatched struct {
	BaseEvent
	SessionKey int64  `json:"session_key"`
	ItemID     int64  `json:"item_id"`
	Action     string `json:"action"` // seek or stop
	TargetSec  int64  `json:"target_sec"`
}
