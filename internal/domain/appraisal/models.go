package appraisal

import "time"

type Question struct {
	ID          string `json:"id"`
	Text        string `json:"question"`
	Category    string `json:"category"`
	IsOpenEnded bool   `json:"isOpenEnded"`
}

type Survey struct {
	ID                string              `json:"id"`
	Name              string              `json:"name"`
	CreatorID         string              `json:"creatorId"`
	RoleQuestionLists map[Role][]Question `json:"roleQuestionLists"`
	CreatedAt         time.Time           `json:"createdAt"`
}

// QuestionsFor returns the question list distributed to reviewers acting in role.
func (s Survey) QuestionsFor(role Role) ([]Question, bool) {
	questions, ok := s.RoleQuestionLists[role]
	return questions, ok
}

type AnswerEntry struct {
	Question    string `json:"question"`
	Category    string `json:"category"`
	IsOpenEnded bool   `json:"isOpenEnded"`
	Answer      Answer `json:"answer"`
}

type AnswerList struct {
	ID          string        `json:"id"`
	SurveyID    string        `json:"surveyId"`
	ReviewerID  string        `json:"reviewerId"`
	RevieweeID  string        `json:"revieweeId"`
	Role        Role          `json:"role"`
	Answers     []AnswerEntry `json:"answers"`
	IsCompleted bool          `json:"isCompleted"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

type Team struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Members []string `json:"members"`
}

type User struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Email string   `json:"email,omitempty"`
	Role  Role     `json:"roles"`
	Teams []string `json:"teams"`
}

type DistributionFailure struct {
	ReviewerID string `json:"reviewerId"`
	Reason     string `json:"reason"`
}

type DistributionResult struct {
	Created []string              `json:"created"`
	Failed  []DistributionFailure `json:"failed"`
}

type QuestionScore struct {
	Question     string  `json:"question"`
	Category     string  `json:"category"`
	AverageScore float64 `json:"averageScore"`
	Responses    int     `json:"responses"`
}

type DatePoint struct {
	Date         string  `json:"date"`
	AverageScore float64 `json:"averageScore"`
	Responses    int     `json:"responses"`
}

type OpenEndedAnswers struct {
	Question string   `json:"question"`
	Category string   `json:"category"`
	Answers  []string `json:"answers"`
}

type ScoreBucket struct {
	Score int    `json:"score"`
	Label string `json:"label"`
	Count int    `json:"count"`
}

type QuestionHistogram struct {
	Question string        `json:"question"`
	Category string        `json:"category"`
	Buckets  []ScoreBucket `json:"buckets"`
	Total    int           `json:"total"`
}

type CategoryScore struct {
	Category     string  `json:"category"`
	AverageScore float64 `json:"averageScore"`
	Responses    int     `json:"responses"`
}

type SurveyRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Report struct {
	RevieweeID     string             `json:"revieweeId"`
	SurveyID       string             `json:"surveyId,omitempty"`
	Category       string             `json:"category"`
	AnswerLists    int                `json:"answerLists"`
	Reviewers      int                `json:"reviewers"`
	Questions      []QuestionScore    `json:"questions"`
	Categories     []CategoryScore    `json:"categories"`
	OpenEnded      []OpenEndedAnswers `json:"openEnded"`
	OverallAverage float64            `json:"overallAverage"`
	GeneratedAt    time.Time          `json:"generatedAt"`
}
