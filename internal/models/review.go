package models

// AnalysisResult is the structured output of one code review.
type AnalysisResult struct {
	Issues        []Issue  `json:"issues"`
	Suggestions   []string `json:"suggestions"`
	Score         int      `json:"score"`
	CorrectedCode string   `json:"editedCode"`
}

// ReviewRecord is one completed analysis as persisted in history.
// CreatedAt is an ISO-8601 timestamp set when the analysis completed.
type ReviewRecord struct {
	ID         string          `json:"id"`
	CreatedAt  string          `json:"date"`
	Language   string          `json:"language"`
	SourceCode string          `json:"code"`
	Result     *AnalysisResult `json:"result"`
}

// TimeLayout is the timestamp format used for record ids and dates.
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"
