package reports

import "appraisal/internal/domain/appraisal"

// Highlights picks the highest and lowest scoring questions of a report.
// Ties keep the earlier question. ok is false when nothing was scored.
func Highlights(report appraisal.Report) (strongest, weakest appraisal.QuestionScore, ok bool) {
	for _, q := range report.Questions {
		if q.Responses == 0 {
			continue
		}
		if !ok {
			strongest, weakest, ok = q, q, true
			continue
		}
		if q.AverageScore > strongest.AverageScore {
			strongest = q
		}
		if q.AverageScore < weakest.AverageScore {
			weakest = q
		}
	}
	return strongest, weakest, ok
}

// ScoreLabel maps an average onto the nearest Likert label.
func ScoreLabel(avg float64) string {
	score := int(avg + 0.5)
	if score < appraisal.LikertMin || score > appraisal.LikertMax {
		return ""
	}
	return appraisal.LikertLabel(score)
}
