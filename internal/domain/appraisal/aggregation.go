package appraisal

import (
	"context"
	"errors"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

const (
	aggregateQuestions  = "questions"
	aggregateTimeline   = "timeline"
	aggregateOpenEnded  = "open_ended"
	aggregateReviewer   = "reviewer"
	aggregateHistogram  = "distribution"
	aggregateReport     = "report"
	aggregateSurveyRefs = "surveys"
)

// QueryAnswerLists returns the lists matching f's id, role and completion
// fields. Category does not narrow lists; it applies to entries.
func (s *Service) QueryAnswerLists(ctx context.Context, f Filter) ([]AnswerList, error) {
	lists, err := s.answers.ListAnswerLists(ctx, f.storeFilter())
	if err != nil {
		return nil, &StoreError{Op: "list answer lists", Err: err}
	}
	if lists == nil {
		lists = []AnswerList{}
	}
	return lists, nil
}

// AggregateByQuestion averages the numeric answers of every closed-ended
// question, grouped by question text. Identical text from different surveys
// is merged into one group. Questions without a numeric answer are omitted.
func (s *Service) AggregateByQuestion(ctx context.Context, f Filter) ([]QuestionScore, error) {
	started := time.Now()
	lists, err := s.QueryAnswerLists(ctx, f)
	if err != nil {
		return nil, err
	}
	scores := accumulateScores(lists, f).averages(false)
	s.observeAggregation(aggregateQuestions, len(lists), started)
	return scores, nil
}

// AggregateOverTime averages one question's numeric answers per calendar day
// (UTC) of the answer list's creation and returns the days in ascending order.
func (s *Service) AggregateOverTime(ctx context.Context, f Filter, question string) ([]DatePoint, error) {
	started := time.Now()
	points := []DatePoint{}
	if strings.TrimSpace(question) == "" {
		return points, nil
	}
	lists, err := s.QueryAnswerLists(ctx, f)
	if err != nil {
		return nil, err
	}

	type bucket struct {
		day   time.Time
		sum   float64
		count int
	}
	buckets := map[string]*bucket{}
	for _, list := range lists {
		created := list.CreatedAt.UTC()
		day := time.Date(created.Year(), created.Month(), created.Day(), 0, 0, 0, 0, time.UTC)
		for _, entry := range list.Answers {
			if entry.IsOpenEnded || entry.Question != question || !f.matchesCategory(entry.Category) {
				continue
			}
			v, ok := numericValue(entry.Answer)
			if !ok {
				continue
			}
			key := day.Format(dateLayout)
			b, ok := buckets[key]
			if !ok {
				b = &bucket{day: day}
				buckets[key] = b
			}
			b.sum += v
			b.count++
		}
	}

	days := make([]*bucket, 0, len(buckets))
	for _, b := range buckets {
		days = append(days, b)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].day.Before(days[j].day) })
	for _, b := range days {
		points = append(points, DatePoint{
			Date:         b.day.Format(dateLayout),
			AverageScore: b.sum / float64(b.count),
			Responses:    b.count,
		})
	}
	s.observeAggregation(aggregateTimeline, len(lists), started)
	return points, nil
}

// CollectOpenEnded gathers the free-text answers of open-ended questions in
// answer list order, keyed by question text. Blank answers are skipped.
func (s *Service) CollectOpenEnded(ctx context.Context, f Filter) ([]OpenEndedAnswers, error) {
	started := time.Now()
	lists, err := s.QueryAnswerLists(ctx, f)
	if err != nil {
		return nil, err
	}
	out := collectOpenEnded(lists, f)
	s.observeAggregation(aggregateOpenEnded, len(lists), started)
	return out, nil
}

// SummarizeReviewer averages what one reviewer answered about one reviewee
// across their completed lists, rounded to two decimals.
func (s *Service) SummarizeReviewer(ctx context.Context, revieweeID, reviewerID string) ([]QuestionScore, error) {
	return s.ReviewerSummary(ctx, Filter{RevieweeID: revieweeID, ReviewerID: reviewerID})
}

// ReviewerSummary is SummarizeReviewer with the survey, role and category
// narrowing of f. f.ReviewerID is required.
func (s *Service) ReviewerSummary(ctx context.Context, f Filter) ([]QuestionScore, error) {
	started := time.Now()
	if strings.TrimSpace(f.ReviewerID) == "" {
		return nil, &ValidationError{Issues: []ValidationIssue{{Field: "reviewerId", Reason: "is required"}}}
	}
	lists, err := s.QueryAnswerLists(ctx, f)
	if err != nil {
		return nil, err
	}
	scores := accumulateScores(lists, f).averages(true)
	s.observeAggregation(aggregateReviewer, len(lists), started)
	return scores, nil
}

// ScoreDistribution counts how often each Likert score was given per question.
func (s *Service) ScoreDistribution(ctx context.Context, f Filter) ([]QuestionHistogram, error) {
	started := time.Now()
	lists, err := s.QueryAnswerLists(ctx, f)
	if err != nil {
		return nil, err
	}
	acc := accumulateScores(lists, f)
	out := make([]QuestionHistogram, 0, len(acc.items))
	for _, item := range acc.items {
		h := QuestionHistogram{Question: item.question, Category: item.category, Buckets: make([]ScoreBucket, 0, LikertMax)}
		for score := LikertMin; score <= LikertMax; score++ {
			n := item.histogram[score-LikertMin]
			h.Buckets = append(h.Buckets, ScoreBucket{Score: score, Label: LikertLabel(score), Count: n})
			h.Total += n
		}
		out = append(out, h)
	}
	s.observeAggregation(aggregateHistogram, len(lists), started)
	return out, nil
}

// RevieweeReport assembles the per-question, per-category and open-ended
// views for one reviewee in a single pass over the matching lists.
func (s *Service) RevieweeReport(ctx context.Context, f Filter) (Report, error) {
	started := time.Now()
	if strings.TrimSpace(f.RevieweeID) == "" {
		return Report{}, &ValidationError{Issues: []ValidationIssue{{Field: "revieweeId", Reason: "is required"}}}
	}
	lists, err := s.QueryAnswerLists(ctx, f)
	if err != nil {
		return Report{}, err
	}

	acc := accumulateScores(lists, f)
	reviewers := map[string]struct{}{}
	for _, list := range lists {
		reviewers[list.ReviewerID] = struct{}{}
	}

	report := Report{
		RevieweeID:  f.RevieweeID,
		SurveyID:    f.SurveyID,
		Category:    f.categoryLabel(),
		AnswerLists: len(lists),
		Reviewers:   len(reviewers),
		Questions:   acc.averages(true),
		Categories:  acc.categories(),
		OpenEnded:   collectOpenEnded(lists, f),
		GeneratedAt: s.now().UTC(),
	}
	if acc.count > 0 {
		report.OverallAverage = round2(acc.sum / float64(acc.count))
	}
	s.observeAggregation(aggregateReport, len(lists), started)
	return report, nil
}

// SurveysForReviewee lists the surveys with completed answer lists about
// revieweeID, in first-seen order. Names come from the catalog; a survey the
// catalog no longer knows is listed under its id.
func (s *Service) SurveysForReviewee(ctx context.Context, revieweeID string) ([]SurveyRef, error) {
	started := time.Now()
	lists, err := s.QueryAnswerLists(ctx, Filter{RevieweeID: revieweeID})
	if err != nil {
		return nil, err
	}
	refs := []SurveyRef{}
	seen := map[string]struct{}{}
	for _, list := range lists {
		if _, ok := seen[list.SurveyID]; ok {
			continue
		}
		seen[list.SurveyID] = struct{}{}
		ref := SurveyRef{ID: list.SurveyID, Name: list.SurveyID}
		survey, err := s.surveys.SurveyByID(ctx, list.SurveyID)
		switch {
		case err == nil:
			if survey.Name != "" {
				ref.Name = survey.Name
			}
		case errors.Is(err, ErrNotFound):
		default:
			return nil, &StoreError{Op: "get survey", Err: err}
		}
		refs = append(refs, ref)
	}
	s.observeAggregation(aggregateSurveyRefs, len(lists), started)
	return refs, nil
}

type scoreItem struct {
	question  string
	category  string
	sum       float64
	count     int
	histogram [LikertMax - LikertMin + 1]int
}

type categoryItem struct {
	category string
	sum      float64
	count    int
}

type scoreAccumulator struct {
	index      map[string]int
	items      []*scoreItem
	catIndex   map[string]int
	categoryAg []*categoryItem
	sum        float64
	count      int
}

func accumulateScores(lists []AnswerList, f Filter) *scoreAccumulator {
	acc := &scoreAccumulator{index: map[string]int{}, catIndex: map[string]int{}}
	for _, list := range lists {
		for _, entry := range list.Answers {
			if entry.IsOpenEnded || !f.matchesCategory(entry.Category) {
				continue
			}
			v, ok := numericValue(entry.Answer)
			if !ok {
				continue
			}
			acc.add(entry, v)
		}
	}
	return acc
}

func (a *scoreAccumulator) add(entry AnswerEntry, v float64) {
	i, ok := a.index[entry.Question]
	if !ok {
		i = len(a.items)
		a.index[entry.Question] = i
		a.items = append(a.items, &scoreItem{question: entry.Question, category: entry.Category})
	}
	item := a.items[i]
	item.sum += v
	item.count++
	if score := int(v); float64(score) == v && score >= LikertMin && score <= LikertMax {
		item.histogram[score-LikertMin]++
	}

	c, ok := a.catIndex[entry.Category]
	if !ok {
		c = len(a.categoryAg)
		a.catIndex[entry.Category] = c
		a.categoryAg = append(a.categoryAg, &categoryItem{category: entry.Category})
	}
	a.categoryAg[c].sum += v
	a.categoryAg[c].count++

	a.sum += v
	a.count++
}

func (a *scoreAccumulator) averages(rounded bool) []QuestionScore {
	out := make([]QuestionScore, 0, len(a.items))
	for _, item := range a.items {
		if item.count == 0 {
			continue
		}
		avg := item.sum / float64(item.count)
		if rounded {
			avg = round2(avg)
		}
		out = append(out, QuestionScore{
			Question:     item.question,
			Category:     item.category,
			AverageScore: avg,
			Responses:    item.count,
		})
	}
	return out
}

func (a *scoreAccumulator) categories() []CategoryScore {
	out := make([]CategoryScore, 0, len(a.categoryAg))
	for _, c := range a.categoryAg {
		out = append(out, CategoryScore{
			Category:     c.category,
			AverageScore: round2(c.sum / float64(c.count)),
			Responses:    c.count,
		})
	}
	return out
}

func collectOpenEnded(lists []AnswerList, f Filter) []OpenEndedAnswers {
	index := map[string]int{}
	out := []OpenEndedAnswers{}
	for _, list := range lists {
		for _, entry := range list.Answers {
			if !entry.IsOpenEnded || !f.matchesCategory(entry.Category) || entry.Answer.IsNull() {
				continue
			}
			text := entry.Answer.String()
			if strings.TrimSpace(text) == "" {
				continue
			}
			i, ok := index[entry.Question]
			if !ok {
				i = len(out)
				index[entry.Question] = i
				out = append(out, OpenEndedAnswers{Question: entry.Question, Category: entry.Category, Answers: []string{}})
			}
			out[i].Answers = append(out[i].Answers, text)
		}
	}
	return out
}

// numericValue reads a closed-ended answer. Lists written before answers were
// normalised may hold numeric strings, which are parsed here.
func numericValue(a Answer) (float64, bool) {
	if v, ok := a.Number(); ok {
		return v, true
	}
	if text, ok := a.Text(); ok {
		v, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
		if err == nil && !math.IsNaN(v) && !math.IsInf(v, 0) {
			return v, true
		}
	}
	return 0, false
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
