package shared

import (
	"net/http"
	"strings"

	"appraisal/internal/domain/appraisal"
)

// ParseFilter builds an aggregation filter from the revieweeId, reviewerId,
// surveyId, role, category and status query parameters. Categories are open:
// any value matches entries by equality and All means no filter.
func ParseFilter(r *http.Request) (appraisal.Filter, error) {
	q := r.URL.Query()
	f := appraisal.Filter{
		RevieweeID: strings.TrimSpace(q.Get("revieweeId")),
		ReviewerID: strings.TrimSpace(q.Get("reviewerId")),
		SurveyID:   strings.TrimSpace(q.Get("surveyId")),
		Category:   strings.TrimSpace(q.Get("category")),
	}
	if raw := q.Get("role"); strings.TrimSpace(raw) != "" {
		role, err := appraisal.ParseRole(raw)
		if err != nil {
			return appraisal.Filter{}, err
		}
		f.Role = role
	}

	completion, ok := appraisal.ParseCompletion(q.Get("status"))
	if !ok {
		return appraisal.Filter{}, &appraisal.ValidationError{Issues: []appraisal.ValidationIssue{
			{Field: "status", Reason: "must be completed, drafts or any"},
		}}
	}
	f.Completion = completion
	return f, nil
}
