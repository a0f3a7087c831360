package model

import "time"

type AnalysisType string

const (
	AnalysisTypeAIRecommendation AnalysisType = "ai_recommendation"
)

// Analysis is one stored result of an AI analysis run. ResultJSON holds the
// decoded (or degraded fallback) generative output re-encoded as JSON.
type Analysis struct {
	ID         string
	Type       AnalysisType
	Scope      string // "all" or a video id
	VideoID    string
	ResultJSON string
	ModelUsed  string
	CreatedAt  time.Time
}
