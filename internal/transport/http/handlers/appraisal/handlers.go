package appraisalhandler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"appraisal/internal/domain/appraisal"
	"appraisal/internal/domain/audit"
	"appraisal/internal/platform/idempotency"
	"appraisal/internal/transport/http/api"
	"appraisal/internal/transport/http/middleware"
	"appraisal/internal/transport/http/shared"
)

const maxListPage = 1000

// Handler exposes distribution, answer submission and aggregation.
// Distributing requires a manager when RequireAuth is set.
type Handler struct {
	Service     *appraisal.Service
	Replies     idempotency.Store
	Audit       *audit.Service
	RequireAuth bool
}

func NewHandler(service *appraisal.Service, replies idempotency.Store, auditSvc *audit.Service, requireAuth bool) *Handler {
	return &Handler{Service: service, Replies: replies, Audit: auditSvc, RequireAuth: requireAuth}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	distribute := r.With()
	if h.RequireAuth {
		distribute = distribute.With(middleware.RequireRole(appraisal.RoleManager))
	}
	distribute.With(middleware.Idempotent(h.Replies)).Post("/surveys/{surveyID}/distributions", h.handleDistribute)

	r.Get("/answer-lists", h.handleListAnswerLists)
	r.Get("/answer-lists/{answerListID}", h.handleGetAnswerList)
	r.Put("/answer-lists/{answerListID}/answers", h.handleRecordAnswers)

	r.Get("/aggregates/questions", h.handleAggregateQuestions)
	r.Get("/aggregates/timeline", h.handleAggregateTimeline)
	r.Get("/aggregates/open-ended", h.handleOpenEnded)
	r.Get("/aggregates/distribution", h.handleScoreDistribution)
	r.Get("/aggregates/reviewers/{reviewerID}", h.handleReviewerSummary)

	r.Get("/reviewees/{revieweeID}/surveys", h.handleRevieweeSurveys)
}

type distributePayload struct {
	RevieweeID  string   `json:"revieweeId"`
	Role        string   `json:"role"`
	ReviewerIDs []string `json:"reviewerIds"`
	TeamID      string   `json:"teamId"`
}

// roleAuto routes each reviewer to the list matching their directory role.
const roleAuto = "AUTO"

// handleDistribute sends a survey to explicit reviewers, to a team, or, with
// role AUTO, to each reviewer under their directory role.
func (h *Handler) handleDistribute(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload distributePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		shared.FailPayload(w, err, reqID)
		return
	}

	v := shared.NewValidator()
	v.Required("revieweeId", payload.RevieweeID, "is required")
	if payload.TeamID != "" && len(payload.ReviewerIDs) > 0 {
		v.Add("teamId", "cannot be combined with reviewerIds")
	}
	v.Required("role", payload.Role, "is required")
	auto := strings.EqualFold(strings.TrimSpace(payload.Role), roleAuto)
	if payload.TeamID != "" && auto {
		v.Add("role", "AUTO cannot be combined with teamId")
	}
	if v.Reject(w, reqID) {
		return
	}

	surveyID := chi.URLParam(r, "surveyID")
	var (
		result appraisal.DistributionResult
		err    error
	)
	switch {
	case auto:
		result, err = h.Service.DistributeByDirectoryRole(r.Context(), surveyID, payload.RevieweeID, payload.ReviewerIDs)
	default:
		role, perr := appraisal.ParseRole(payload.Role)
		if perr != nil {
			shared.FailDomain(w, perr, reqID)
			return
		}
		if payload.TeamID != "" {
			result, err = h.Service.DistributeToTeam(r.Context(), surveyID, payload.RevieweeID, role, payload.TeamID)
		} else {
			result, err = h.Service.DistributeSurvey(r.Context(), appraisal.DistributeRequest{
				SurveyID:    surveyID,
				RevieweeID:  payload.RevieweeID,
				Role:        role,
				ReviewerIDs: payload.ReviewerIDs,
			})
		}
	}

	var partial *appraisal.PartialDistributionError
	if err == nil || errors.As(err, &partial) {
		shared.RecordAudit(r, h.Audit, audit.ActionSurveyDistribute, "survey", surveyID, map[string]any{
			"revieweeId": payload.RevieweeID,
			"role":       payload.Role,
			"teamId":     payload.TeamID,
			"created":    result.Created,
			"failed":     len(result.Failed),
		})
	}
	switch {
	case err == nil:
		api.Created(w, result, reqID)
	case errors.As(err, &partial) && len(result.Created) > 0:
		api.Partial(w, result, reqID)
	case errors.As(err, &partial):
		api.FailWithDetails(w, http.StatusUnprocessableEntity, "distribution_failed", "no answer list could be created", result, reqID)
	default:
		shared.FailDomain(w, err, reqID)
	}
}

func (h *Handler) handleListAnswerLists(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	f, ok := parseFilter(w, r)
	if !ok {
		return
	}
	lists, err := h.Service.QueryAnswerLists(r.Context(), f)
	if err != nil {
		shared.FailDomain(w, err, reqID)
		return
	}
	api.Success(w, shared.Window(lists, shared.ParsePagination(r, 0, maxListPage)), reqID)
}

func (h *Handler) handleGetAnswerList(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	list, err := h.Service.AnswerList(r.Context(), chi.URLParam(r, "answerListID"))
	if err != nil {
		shared.FailDomain(w, err, reqID)
		return
	}
	api.Success(w, list, reqID)
}

type answersPayload struct {
	AnswerListID string                  `json:"answerListId"`
	Answers      []appraisal.AnswerEntry `json:"answers"`
}

func (h *Handler) handleRecordAnswers(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload answersPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		shared.FailPayload(w, err, reqID)
		return
	}
	id := chi.URLParam(r, "answerListID")
	v := shared.NewValidator()
	if payload.AnswerListID != "" && payload.AnswerListID != id {
		v.Add("answerListId", "does not match the path")
	}
	if payload.Answers == nil {
		v.Add("answers", "is required")
	}
	if v.Reject(w, reqID) {
		return
	}

	list, err := h.Service.RecordAnswers(r.Context(), id, payload.Answers)
	if err != nil {
		shared.FailDomain(w, err, reqID)
		return
	}
	shared.RecordAudit(r, h.Audit, audit.ActionAnswersSubmit, "answer_list", list.ID, map[string]any{
		"answers":     len(payload.Answers),
		"isCompleted": list.IsCompleted,
	})
	api.Success(w, list, reqID)
}

func (h *Handler) handleAggregateQuestions(w http.ResponseWriter, r *http.Request) {
	f, ok := parseFilter(w, r)
	if !ok {
		return
	}
	scores, err := h.Service.AggregateByQuestion(r.Context(), f)
	respond(w, r, scores, err)
}

func (h *Handler) handleAggregateTimeline(w http.ResponseWriter, r *http.Request) {
	f, ok := parseFilter(w, r)
	if !ok {
		return
	}
	points, err := h.Service.AggregateOverTime(r.Context(), f, r.URL.Query().Get("question"))
	respond(w, r, points, err)
}

func (h *Handler) handleOpenEnded(w http.ResponseWriter, r *http.Request) {
	f, ok := parseFilter(w, r)
	if !ok {
		return
	}
	answers, err := h.Service.CollectOpenEnded(r.Context(), f)
	respond(w, r, answers, err)
}

func (h *Handler) handleScoreDistribution(w http.ResponseWriter, r *http.Request) {
	f, ok := parseFilter(w, r)
	if !ok {
		return
	}
	histograms, err := h.Service.ScoreDistribution(r.Context(), f)
	respond(w, r, histograms, err)
}

func (h *Handler) handleReviewerSummary(w http.ResponseWriter, r *http.Request) {
	f, ok := parseFilter(w, r)
	if !ok {
		return
	}
	f.ReviewerID = chi.URLParam(r, "reviewerID")
	scores, err := h.Service.ReviewerSummary(r.Context(), f)
	respond(w, r, scores, err)
}

func (h *Handler) handleRevieweeSurveys(w http.ResponseWriter, r *http.Request) {
	refs, err := h.Service.SurveysForReviewee(r.Context(), chi.URLParam(r, "revieweeID"))
	respond(w, r, refs, err)
}

func respond(w http.ResponseWriter, r *http.Request, data any, err error) {
	reqID := middleware.GetRequestID(r.Context())
	if err != nil {
		shared.FailDomain(w, err, reqID)
		return
	}
	api.Success(w, data, reqID)
}

// parseFilter reads the shared aggregation query parameters. It writes the
// error response itself and reports false when a parameter is invalid.
func parseFilter(w http.ResponseWriter, r *http.Request) (appraisal.Filter, bool) {
	f, err := shared.ParseFilter(r)
	if err != nil {
		shared.FailDomain(w, err, middleware.GetRequestID(r.Context()))
		return appraisal.Filter{}, false
	}
	return f, true
}
