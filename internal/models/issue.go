package models

import "strings"

// IssueCategory classifies a single finding reported by the reviewer.
type IssueCategory string

const (
	IssueCategoryLogic       IssueCategory = "Logic"
	IssueCategoryPerformance IssueCategory = "Performance"
	IssueCategoryReadability IssueCategory = "Readability"
	IssueCategorySecurity    IssueCategory = "Security"
	IssueCategoryStyle       IssueCategory = "Style"
)

// IssueCategories lists every category in display order.
var IssueCategories = []IssueCategory{
	IssueCategoryLogic,
	IssueCategoryPerformance,
	IssueCategoryReadability,
	IssueCategorySecurity,
	IssueCategoryStyle,
}

// ParseIssueCategory matches s case-insensitively against the known
// categories. The second return is false when s is not one of them.
func ParseIssueCategory(s string) (IssueCategory, bool) {
	for _, c := range IssueCategories {
		if strings.EqualFold(string(c), s) {
			return c, true
		}
	}
	return "", false
}

// Issue is one finding in an analysis result. Line is nil when the model
// did not tie the finding to a line.
type Issue struct {
	Line     *int          `json:"line,omitempty"`
	Category IssueCategory `json:"type"`
	Message  string        `json:"message"`
}
