package risk

// Level buckets the overall score for display.
type Level string

const (
	LevelLow      Level = "low"
	LevelMedium   Level = "medium"
	LevelHigh     Level = "high"
	LevelCritical Level = "critical"
)

// CategoryScore is the per-category breakdown inside a ThreatReport. Every
// report carries one entry per category, hit or not, so clients can render a
// stable six-row table.
type CategoryScore struct {
	Category       string   `json:"category"`
	Score          float64  `json:"score"`
	Description    string   `json:"description"`
	PlatformsFound []string `json:"platforms_found"`
	Warnings       []string `json:"warnings"`
}

// ThreatReport is the aggregated weighted assessment for one completed scan.
// It is created once, after all findings exist, and never updated.
type ThreatReport struct {
	OverallScore    float64         `json:"overall_score"`
	RiskLevel       Level           `json:"risk_level"`
	Summary         string          `json:"summary"`
	Recommendations []string        `json:"recommendations"`
	CategoryScores  []CategoryScore `json:"category_scores"`
}
