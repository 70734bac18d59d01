package httpserver

import (
	"net/http"

	"taskassign/taskboard/internal/audit"
)

func (h *handler) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	if err := h.views.render(w, http.StatusOK, name, data); err != nil {
		h.log.ErrorContext(r.Context(), "render failed",
			"request_id", requestIDFromContext(r.Context()), "template", name, "err", err)
		http.Error(w, msgGeneric, http.StatusInternalServerError)
	}
}

func (h *handler) storeError(r *http.Request, op string, err error) {
	h.log.ErrorContext(r.Context(), op+" failed",
		"request_id", requestIDFromContext(r.Context()),
		"path", r.URL.Path,
		"err", err,
	)
}

func (h *handler) audit(r *http.Request, actor, action, target, outcome, detail string) {
	if h.deps.Audit == nil {
		return
	}
	err := h.deps.Audit.Log(r.Context(), audit.Event{
		RequestID: requestIDFromContext(r.Context()),
		Actor:     actor,
		Action:    action,
		Target:    target,
		Outcome:   outcome,
		ClientIP:  clientIP(r, h.deps.TrustProxyHeaders),
		Detail:    detail,
	})
	if err != nil {
		h.log.WarnContext(r.Context(), "audit write failed", "action", action, "err", err)
	}
}
