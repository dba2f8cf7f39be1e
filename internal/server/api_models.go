package server

import (
	"time"

	"github.com/veilscan/veilscan/internal/risk"
)

// SearchRequest is the payload for POST /search.
type SearchRequest struct {
	Query     string `json:"query"`
	QueryType string `json:"query_type"`
}

// SearchResponse acknowledges an accepted scan.
type SearchResponse struct {
	TaskID  string `json:"task_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// FindingOut is a single finding as returned to clients.
type FindingOut struct {
	Platform  string         `json:"platform"`
	URL       string         `json:"url,omitempty"`
	Found     bool           `json:"found"`
	DataFound map[string]any `json:"data_found,omitempty"`
	Category  string         `json:"risk_category,omitempty"`
	Score     float64        `json:"risk_score"`
	Error     string         `json:"error,omitempty"`
}

// ResultsResponse is the payload of GET /results/{taskID}. Clients poll it
// until status is completed or failed.
type ResultsResponse struct {
	TaskID       string             `json:"task_id"`
	Status       string             `json:"status"`
	Progress     int                `json:"progress"`
	Query        string             `json:"query"`
	QueryType    string             `json:"query_type"`
	CreatedAt    *time.Time         `json:"created_at,omitempty"`
	CompletedAt  *time.Time         `json:"completed_at,omitempty"`
	Findings     []FindingOut       `json:"findings"`
	ThreatReport *risk.ThreatReport `json:"threat_report,omitempty"`
}

// WipeResponse confirms a DELETE /results/{taskID}.
type WipeResponse struct {
	TaskID  string `json:"task_id"`
	Deleted bool   `json:"deleted"`
}

// TakedownAPIRequest is the payload for POST /takedown.
type TakedownAPIRequest struct {
	TaskID    string `json:"task_id"`
	Platform  string `json:"platform"`
	UserName  string `json:"user_name"`
	UserEmail string `json:"user_email"`
}

// ErrorResponse is a uniform error payload returned by the API.
type ErrorResponse struct {
	Error string `json:"error"`
}
