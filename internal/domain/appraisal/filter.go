package appraisal

import "strings"

// Completion selects answer lists by completion state. The zero value
// counts completed lists only.
type Completion int

const (
	CompletionCompleted Completion = iota
	CompletionDrafts
	CompletionAny
)

func ParseCompletion(value string) (Completion, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "completed", "complete", "true":
		return CompletionCompleted, true
	case "drafts", "draft", "pending", "false":
		return CompletionDrafts, true
	case "any", "all":
		return CompletionAny, true
	}
	return CompletionCompleted, false
}

// Filter narrows the answer lists an aggregation reads. Empty ids match
// every list; Category "" or "All" applies no category filter.
type Filter struct {
	RevieweeID string
	ReviewerID string
	SurveyID   string
	Role       Role
	Category   string
	Completion Completion
}

func (f Filter) storeFilter() StoreFilter {
	sf := StoreFilter{
		RevieweeID: strings.TrimSpace(f.RevieweeID),
		ReviewerID: strings.TrimSpace(f.ReviewerID),
		SurveyID:   strings.TrimSpace(f.SurveyID),
		Role:       f.Role,
	}
	switch f.Completion {
	case CompletionCompleted:
		completed := true
		sf.IsCompleted = &completed
	case CompletionDrafts:
		completed := false
		sf.IsCompleted = &completed
	}
	return sf
}

func (f Filter) matchesCategory(category string) bool {
	c := strings.TrimSpace(f.Category)
	return c == "" || c == CategoryAll || c == category
}

func (f Filter) categoryLabel() string {
	c := strings.TrimSpace(f.Category)
	if c == "" {
		return CategoryAll
	}
	return c
}
