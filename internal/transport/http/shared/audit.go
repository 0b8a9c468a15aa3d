package shared

import (
	"log/slog"
	"net/http"

	"appraisal/internal/domain/audit"
	"appraisal/internal/transport/http/middleware"
)

// RecordAudit appends an audit event for the caller of r. Failures are
// logged and never fail the request.
func RecordAudit(r *http.Request, svc *audit.Service, action, entityType, entityID string, details any) {
	if svc == nil {
		return
	}
	actor := ""
	if user, ok := middleware.GetUser(r.Context()); ok {
		actor = user.UserID
	}
	reqID := middleware.GetRequestID(r.Context())
	if err := svc.Record(r.Context(), actor, action, entityType, entityID, reqID, middleware.ClientIP(r), details); err != nil {
		slog.WarnContext(r.Context(), "audit record failed", "err", err, "action", action)
	}
}
