package reportshandler

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"appraisal/internal/domain/appraisal"
	"appraisal/internal/reports"
	"appraisal/internal/transport/http/api"
	"appraisal/internal/transport/http/middleware"
	"appraisal/internal/transport/http/shared"
)

// Names resolves display names for the PDF header.
type Names interface {
	UserByID(ctx context.Context, id string) (appraisal.User, error)
	SurveyByID(ctx context.Context, id string) (appraisal.Survey, error)
}

type Handler struct {
	Service *appraisal.Service
	Names   Names
}

func NewHandler(service *appraisal.Service, names Names) *Handler {
	return &Handler{Service: service, Names: names}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/reviewees/{revieweeID}/report", h.handleReport)
	r.Get("/reviewees/{revieweeID}/report.pdf", h.handleReportPDF)
}

func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	report, ok := h.build(w, r)
	if !ok {
		return
	}
	strongest, weakest, has := reports.Highlights(report)
	payload := struct {
		appraisal.Report
		Label     string                   `json:"label"`
		Strongest *appraisal.QuestionScore `json:"strongest,omitempty"`
		Weakest   *appraisal.QuestionScore `json:"weakest,omitempty"`
	}{Report: report, Label: reports.ScoreLabel(report.OverallAverage)}
	if has {
		payload.Strongest = &strongest
		payload.Weakest = &weakest
	}
	api.Success(w, payload, reqID)
}

func (h *Handler) handleReportPDF(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	report, ok := h.build(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := reports.WritePDF(&buf, report, h.names(r.Context(), report)); err != nil {
		slog.Error("render report pdf failed", "err", err, "revieweeId", report.RevieweeID, "requestId", reqID)
		api.Fail(w, http.StatusInternalServerError, "render_failed", "could not render report", reqID)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+fileName(report.RevieweeID)+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Warn("write report pdf failed", "err", err, "requestId", reqID)
	}
}

func (h *Handler) build(w http.ResponseWriter, r *http.Request) (appraisal.Report, bool) {
	reqID := middleware.GetRequestID(r.Context())
	f, err := shared.ParseFilter(r)
	if err != nil {
		shared.FailDomain(w, err, reqID)
		return appraisal.Report{}, false
	}
	f.RevieweeID = chi.URLParam(r, "revieweeID")
	report, err := h.Service.RevieweeReport(r.Context(), f)
	if err != nil {
		shared.FailDomain(w, err, reqID)
		return appraisal.Report{}, false
	}
	return report, true
}

// names looks up the reviewee and survey names. Lookup failures fall back to
// the raw ids inside WritePDF.
func (h *Handler) names(ctx context.Context, report appraisal.Report) reports.Options {
	var opts reports.Options
	if h.Names == nil {
		return opts
	}
	if user, err := h.Names.UserByID(ctx, report.RevieweeID); err == nil {
		opts.RevieweeName = user.Name
	}
	if report.SurveyID != "" {
		if survey, err := h.Names.SurveyByID(ctx, report.SurveyID); err == nil {
			opts.SurveyName = survey.Name
		}
	}
	return opts
}

func fileName(revieweeID string) string {
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return -1
	}, revieweeID)
	if safe == "" {
		safe = "reviewee"
	}
	return "report-" + safe + ".pdf"
}
