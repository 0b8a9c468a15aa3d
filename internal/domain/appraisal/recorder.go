package appraisal

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const (
	SubmissionAccepted = "accepted"
	SubmissionRejected = "rejected"
	SubmissionNotFound = "not_found"
	SubmissionFailed   = "store_error"
)

// RecordAnswers validates answers and, when every entry is valid, replaces
// the stored answers wholesale and marks the list completed. A rejected
// submission leaves the stored list untouched.
//
// The fetch-validate-overwrite sequence is not guarded against a concurrent
// submission for the same list: the last writer wins.
func (s *Service) RecordAnswers(ctx context.Context, answerListID string, answers []AnswerEntry) (AnswerList, error) {
	started := time.Now()
	list, err := s.answers.AnswerListByID(ctx, answerListID)
	if err != nil {
		err = storeErr("get answer list", "answer list", answerListID, err)
		s.observeSubmission(submissionOutcome(err), started)
		return AnswerList{}, err
	}

	normalized, err := validateSubmission(list.Answers, answers)
	if err != nil {
		s.observeSubmission(SubmissionRejected, started)
		return AnswerList{}, err
	}

	list.Answers = normalized
	list.IsCompleted = true
	list.UpdatedAt = s.now().UTC()
	if err := s.answers.UpdateAnswerList(ctx, list); err != nil {
		err = storeErr("update answer list", "answer list", answerListID, err)
		s.observeSubmission(submissionOutcome(err), started)
		return AnswerList{}, err
	}
	s.observeSubmission(SubmissionAccepted, started)
	return list, nil
}

func (s *Service) AnswerList(ctx context.Context, id string) (AnswerList, error) {
	list, err := s.answers.AnswerListByID(ctx, id)
	if err != nil {
		return AnswerList{}, storeErr("get answer list", "answer list", id, err)
	}
	return list, nil
}

func submissionOutcome(err error) string {
	if _, ok := err.(*NotFoundError); ok {
		return SubmissionNotFound
	}
	return SubmissionFailed
}

// validateSubmission checks every incoming entry against the flag it was
// distributed with and returns the normalised entries. Likert answers must be
// whole numbers in [1,5]; numeric strings are converted to numbers.
// Open-ended answers accept any text. Null answers are allowed everywhere.
func validateSubmission(distributed, incoming []AnswerEntry) ([]AnswerEntry, error) {
	openEnded := make(map[string]bool, len(distributed))
	for _, entry := range distributed {
		openEnded[entry.Question] = entry.IsOpenEnded
	}

	var issues []ValidationIssue
	out := make([]AnswerEntry, 0, len(incoming))
	for i, entry := range incoming {
		field := fmt.Sprintf("answers[%d]", i)
		if strings.TrimSpace(entry.Question) == "" {
			issues = append(issues, ValidationIssue{Field: field + ".question", Reason: "is required"})
			continue
		}
		if flag, ok := openEnded[entry.Question]; ok && flag != entry.IsOpenEnded {
			issues = append(issues, ValidationIssue{Field: field + ".isOpenEnded", Question: entry.Question, Reason: "does not match the distributed question"})
			continue
		}

		switch {
		case entry.Answer.IsNull():
		case entry.IsOpenEnded:
			if entry.Answer.kind == answerOther {
				issues = append(issues, ValidationIssue{Field: field + ".answer", Question: entry.Question, Reason: "must be text"})
				continue
			}
			if entry.Answer.kind == answerNumber {
				entry.Answer = TextAnswer(entry.Answer.String())
			}
		default:
			score, reason := likertScore(entry.Answer)
			if reason != "" {
				issues = append(issues, ValidationIssue{Field: field + ".answer", Question: entry.Question, Reason: reason})
				continue
			}
			entry.Answer = NumberAnswer(float64(score))
		}
		out = append(out, entry)
	}
	if len(issues) > 0 {
		return nil, &ValidationError{Issues: issues}
	}
	return out, nil
}
