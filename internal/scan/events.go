package scan

import "github.com/veilscan/veilscan/internal/store"

type ScanEventType string

const (
	ScanEventStatus   ScanEventType = "status"
	ScanEventProgress ScanEventType = "progress"
	ScanEventFinding  ScanEventType = "finding"
	ScanEventReport   ScanEventType = "report"
)

// ScanEvent is one streamed update of a running scan. Status events carry the
// lifecycle transition, progress events the completion counters, finding
// events each persisted probe outcome.
type ScanEvent struct {
	TaskID string           `json:"task_id"`
	Type   ScanEventType    `json:"type"`
	Status store.TaskStatus `json:"status,omitempty"`
	Error  string           `json:"error,omitempty"`

	// For progress events
	Completed int `json:"completed,omitempty"`
	Total     int `json:"total,omitempty"`
	Progress  int `json:"progress,omitempty"`

	// For finding events
	Finding *store.Finding `json:"finding,omitempty"`
}
