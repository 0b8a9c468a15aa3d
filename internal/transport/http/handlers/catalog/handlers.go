package cataloghandler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"appraisal/internal/domain/appraisal"
	"appraisal/internal/domain/audit"
	"appraisal/internal/domain/catalog"
	"appraisal/internal/transport/http/api"
	"appraisal/internal/transport/http/middleware"
	"appraisal/internal/transport/http/shared"
)

const (
	defaultPage = 100
	maxPage     = 500
)

type Handler struct {
	Service     *catalog.Service
	Audit       *audit.Service
	RequireAuth bool
}

func NewHandler(service *catalog.Service, auditSvc *audit.Service, requireAuth bool) *Handler {
	return &Handler{Service: service, Audit: auditSvc, RequireAuth: requireAuth}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	write := r.With()
	if h.RequireAuth {
		write = write.With(middleware.RequireRole(appraisal.RoleManager))
	}

	write.Post("/surveys", h.handleCreateSurvey)
	r.Get("/surveys", h.handleListSurveys)
	r.Get("/surveys/{surveyID}", h.handleGetSurvey)

	write.Post("/teams", h.handleCreateTeam)
	r.Get("/teams/{teamID}", h.handleGetTeam)
	write.Post("/teams/{teamID}/members", h.handleAddMember)
	write.Delete("/teams/{teamID}/members/{userID}", h.handleRemoveMember)

	write.Post("/users", h.handleCreateUser)
	r.Get("/users", h.handleListUsers)
	r.Get("/users/{userID}", h.handleGetUser)
	r.Get("/users/{userID}/teams", h.handleUserTeams)
}

func (h *Handler) handleCreateSurvey(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload struct {
		Name              string                          `json:"name"`
		CreatorID         string                          `json:"creatorId"`
		RoleQuestionLists map[string][]appraisal.Question `json:"roleQuestionLists"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		shared.FailPayload(w, err, reqID)
		return
	}
	if payload.CreatorID == "" {
		if user, ok := middleware.GetUser(r.Context()); ok {
			payload.CreatorID = user.UserID
		}
	}

	survey, err := h.Service.CreateSurvey(r.Context(), catalog.SurveyInput{
		Name:              payload.Name,
		CreatorID:         payload.CreatorID,
		RoleQuestionLists: payload.RoleQuestionLists,
	})
	if err != nil {
		shared.FailDomain(w, err, reqID)
		return
	}
	shared.RecordAudit(r, h.Audit, audit.ActionSurveyCreate, "survey", survey.ID, map[string]any{"name": survey.Name, "creatorId": survey.CreatorID})
	api.Created(w, survey, reqID)
}

func (h *Handler) handleListSurveys(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	surveys, err := h.Service.ListSurveys(r.Context(), r.URL.Query().Get("creatorId"))
	if err != nil {
		shared.FailDomain(w, err, reqID)
		return
	}
	api.Success(w, shared.Window(surveys, shared.ParsePagination(r, defaultPage, maxPage)), reqID)
}

func (h *Handler) handleGetSurvey(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	survey, err := h.Service.SurveyByID(r.Context(), chi.URLParam(r, "surveyID"))
	if err != nil {
		shared.FailDomain(w, err, reqID)
		return
	}
	api.Success(w, survey, reqID)
}

func (h *Handler) handleCreateTeam(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload struct {
		Name    string   `json:"name"`
		Members []string `json:"members"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		shared.FailPayload(w, err, reqID)
		return
	}
	v := shared.NewValidator()
	shared.Each(v, "members", payload.Members, func(id string) string {
		if strings.TrimSpace(id) == "" {
			return "must not be blank"
		}
		return ""
	})
	if v.Reject(w, reqID) {
		return
	}
	team, err := h.Service.CreateTeam(r.Context(), payload.Name, payload.Members)
	if err != nil {
		shared.FailDomain(w, err, reqID)
		return
	}
	shared.RecordAudit(r, h.Audit, audit.ActionTeamCreate, "team", team.ID, map[string]any{"members": team.Members})
	api.Created(w, team, reqID)
}

func (h *Handler) handleGetTeam(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	team, err := h.Service.TeamByID(r.Context(), chi.URLParam(r, "teamID"))
	if err != nil {
		shared.FailDomain(w, err, reqID)
		return
	}
	api.Success(w, team, reqID)
}

func (h *Handler) handleAddMember(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload struct {
		UserID string `json:"userId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		shared.FailPayload(w, err, reqID)
		return
	}
	team, err := h.Service.AddMember(r.Context(), chi.URLParam(r, "teamID"), payload.UserID)
	if errors.Is(err, catalog.ErrAlreadyMember) {
		api.Fail(w, http.StatusConflict, "already_member", err.Error(), reqID)
		return
	}
	if err != nil {
		shared.FailDomain(w, err, reqID)
		return
	}
	shared.RecordAudit(r, h.Audit, audit.ActionTeamMemberAdd, "team", team.ID, map[string]string{"userId": payload.UserID})
	api.Success(w, team, reqID)
}

func (h *Handler) handleRemoveMember(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	userID := chi.URLParam(r, "userID")
	team, err := h.Service.RemoveMember(r.Context(), chi.URLParam(r, "teamID"), userID)
	if err != nil {
		shared.FailDomain(w, err, reqID)
		return
	}
	shared.RecordAudit(r, h.Audit, audit.ActionTeamMemberRemove, "team", team.ID, map[string]string{"userId": userID})
	api.Success(w, team, reqID)
}

func (h *Handler) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload struct {
		Name  string `json:"name"`
		Email string `json:"email"`
		Role  string `json:"roles"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		shared.FailPayload(w, err, reqID)
		return
	}
	v := shared.NewValidator()
	v.Required("roles", payload.Role, "is required")
	if v.Reject(w, reqID) {
		return
	}
	user, err := h.Service.CreateUser(r.Context(), appraisal.User{
		Name:  payload.Name,
		Email: payload.Email,
		Role:  appraisal.Role(payload.Role),
	})
	if err != nil {
		shared.FailDomain(w, err, reqID)
		return
	}
	shared.RecordAudit(r, h.Audit, audit.ActionUserCreate, "user", user.ID, map[string]string{"role": string(user.Role)})
	api.Created(w, user, reqID)
}

func (h *Handler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	users, err := h.Service.ListUsers(r.Context(), r.URL.Query().Get("role"))
	if err != nil {
		shared.FailDomain(w, err, reqID)
		return
	}
	api.Success(w, shared.Window(users, shared.ParsePagination(r, defaultPage, maxPage)), reqID)
}

func (h *Handler) handleGetUser(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, err := h.Service.UserByID(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		shared.FailDomain(w, err, reqID)
		return
	}
	api.Success(w, user, reqID)
}

func (h *Handler) handleUserTeams(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	teams, err := h.Service.TeamsForMember(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		shared.FailDomain(w, err, reqID)
		return
	}
	api.Success(w, teams, reqID)
}
