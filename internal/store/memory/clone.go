package memory

import (
	"slices"
	"time"

	"appraisal/internal/domain/appraisal"
)

func cloneAnswerList(list appraisal.AnswerList) appraisal.AnswerList {
	list.Answers = slices.Clone(list.Answers)
	return list
}

func cloneSurvey(survey appraisal.Survey) appraisal.Survey {
	lists := make(map[appraisal.Role][]appraisal.Question, len(survey.RoleQuestionLists))
	for role, questions := range survey.RoleQuestionLists {
		lists[role] = slices.Clone(questions)
	}
	survey.RoleQuestionLists = lists
	return survey
}

func nowUTC() time.Time {
	return time.Now().UTC()
}
