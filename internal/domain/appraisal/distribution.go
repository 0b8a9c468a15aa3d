package appraisal

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

type DistributeRequest struct {
	SurveyID    string
	RevieweeID  string
	Role        Role
	ReviewerIDs []string
}

type distributionOutcome struct {
	reviewerID string
	listID     string
	reason     string
}

// DistributeSurvey creates one unanswered AnswerList per reviewer from the
// survey's question list for req.Role. Reviewers are independent: a failed
// create is reported in the result and never undoes the others. When any
// reviewer fails the result is returned together with a
// *PartialDistributionError.
func (s *Service) DistributeSurvey(ctx context.Context, req DistributeRequest) (DistributionResult, error) {
	started := time.Now()
	if !req.Role.Valid() {
		return DistributionResult{}, &InvalidRoleError{Value: string(req.Role)}
	}
	if strings.TrimSpace(req.RevieweeID) == "" {
		return DistributionResult{}, &ValidationError{Issues: []ValidationIssue{{Field: "revieweeId", Reason: "is required"}}}
	}

	survey, err := s.surveys.SurveyByID(ctx, req.SurveyID)
	if err != nil {
		return DistributionResult{}, storeErr("get survey", "survey", req.SurveyID, err)
	}
	questions, ok := survey.QuestionsFor(req.Role)
	if !ok {
		return DistributionResult{}, &NotFoundError{Entity: "question list", ID: string(req.Role)}
	}

	outcomes := s.fanOut(ctx, survey.ID, req.RevieweeID, req.Role, questions, uniqueReviewers(req.ReviewerIDs))
	result := collectOutcomes(outcomes)
	s.observeDistribution(req.Role, len(result.Created), len(result.Failed), started)
	slog.InfoContext(ctx, "survey distributed",
		"surveyId", survey.ID,
		"revieweeId", req.RevieweeID,
		"role", req.Role,
		"created", len(result.Created),
		"failed", len(result.Failed),
	)
	return result, partialError(result)
}

// DistributeToTeam sends the survey to every member of teamID.
func (s *Service) DistributeToTeam(ctx context.Context, surveyID, revieweeID string, role Role, teamID string) (DistributionResult, error) {
	if !role.Valid() {
		return DistributionResult{}, &InvalidRoleError{Value: string(role)}
	}
	members, err := s.teams.MembersOf(ctx, teamID)
	if err != nil {
		return DistributionResult{}, storeErr("team members", "team", teamID, err)
	}
	return s.DistributeSurvey(ctx, DistributeRequest{
		SurveyID:    surveyID,
		RevieweeID:  revieweeID,
		Role:        role,
		ReviewerIDs: members,
	})
}

// DistributeByDirectoryRole sends each reviewer the question list of the
// role recorded for them in the user directory. Reviewers whose role cannot
// be resolved, or whose role has no question list, are reported as failed.
func (s *Service) DistributeByDirectoryRole(ctx context.Context, surveyID, revieweeID string, reviewerIDs []string) (DistributionResult, error) {
	started := time.Now()
	if strings.TrimSpace(revieweeID) == "" {
		return DistributionResult{}, &ValidationError{Issues: []ValidationIssue{{Field: "revieweeId", Reason: "is required"}}}
	}
	survey, err := s.surveys.SurveyByID(ctx, surveyID)
	if err != nil {
		return DistributionResult{}, storeErr("get survey", "survey", surveyID, err)
	}

	var failed []distributionOutcome
	groups := map[Role][]string{}
	for _, reviewerID := range uniqueReviewers(reviewerIDs) {
		if reviewerID == "" {
			failed = append(failed, distributionOutcome{reason: "reviewer id required"})
			continue
		}
		role, err := s.users.RoleOf(ctx, reviewerID)
		if err != nil {
			failed = append(failed, distributionOutcome{reviewerID: reviewerID, reason: storeErr("user role", "user", reviewerID, err).Error()})
			continue
		}
		if !role.Valid() {
			failed = append(failed, distributionOutcome{reviewerID: reviewerID, reason: (&InvalidRoleError{Value: string(role)}).Error()})
			continue
		}
		groups[role] = append(groups[role], reviewerID)
	}

	var outcomes []distributionOutcome
	for _, role := range Roles {
		reviewers := groups[role]
		if len(reviewers) == 0 {
			continue
		}
		questions, ok := survey.QuestionsFor(role)
		if !ok {
			reason := (&NotFoundError{Entity: "question list", ID: string(role)}).Error()
			for _, reviewerID := range reviewers {
				outcomes = append(outcomes, distributionOutcome{reviewerID: reviewerID, reason: reason})
			}
			continue
		}
		outcomes = append(outcomes, s.fanOut(ctx, survey.ID, revieweeID, role, questions, reviewers)...)
	}
	outcomes = append(outcomes, failed...)

	result := collectOutcomes(outcomes)
	s.observeDistribution("", len(result.Created), len(result.Failed), started)
	return result, partialError(result)
}

func (s *Service) fanOut(ctx context.Context, surveyID, revieweeID string, role Role, questions []Question, reviewers []string) []distributionOutcome {
	outcomes := make([]distributionOutcome, len(reviewers))
	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, reviewerID := range reviewers {
		g.Go(func() error {
			outcomes[i] = s.distributeOne(ctx, surveyID, revieweeID, role, questions, reviewerID)
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

func (s *Service) distributeOne(ctx context.Context, surveyID, revieweeID string, role Role, questions []Question, reviewerID string) distributionOutcome {
	out := distributionOutcome{reviewerID: reviewerID}
	if reviewerID == "" {
		out.reason = "reviewer id required"
		return out
	}
	now := s.now().UTC()
	list := AnswerList{
		SurveyID:    surveyID,
		ReviewerID:  reviewerID,
		RevieweeID:  revieweeID,
		Role:        role,
		Answers:     blankEntries(questions),
		IsCompleted: false,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	id, err := s.answers.CreateAnswerList(ctx, list)
	if err != nil {
		err = storeErr("create answer list", "answer list", "", err)
		slog.WarnContext(ctx, "answer list create failed", "surveyId", surveyID, "reviewerId", reviewerID, "err", err)
		out.reason = err.Error()
		return out
	}
	out.listID = id
	return out
}

// blankEntries copies question text, category and open-ended flag by value
// so later edits to the questions never reach distributed lists.
func blankEntries(questions []Question) []AnswerEntry {
	entries := make([]AnswerEntry, 0, len(questions))
	for _, q := range questions {
		entries = append(entries, AnswerEntry{
			Question:    q.Text,
			Category:    q.Category,
			IsOpenEnded: q.IsOpenEnded,
			Answer:      NullAnswer(),
		})
	}
	return entries
}

func uniqueReviewers(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id != "" {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
		}
		out = append(out, id)
	}
	return out
}

func collectOutcomes(outcomes []distributionOutcome) DistributionResult {
	result := DistributionResult{Created: []string{}, Failed: []DistributionFailure{}}
	for _, o := range outcomes {
		if o.listID != "" {
			result.Created = append(result.Created, o.listID)
			continue
		}
		result.Failed = append(result.Failed, DistributionFailure{ReviewerID: o.reviewerID, Reason: o.reason})
	}
	return result
}

func partialError(result DistributionResult) error {
	if len(result.Failed) == 0 {
		return nil
	}
	return &PartialDistributionError{Created: result.Created, Failed: result.Failed}
}

// IsPartial reports whether err is a distribution failure that still left
// some reviewers with an answer list.
func IsPartial(err error) bool {
	var pe *PartialDistributionError
	return errors.As(err, &pe) && len(pe.Created) > 0
}
