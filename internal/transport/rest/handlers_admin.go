package rest

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/terpspark/admission-service/internal/domain"
	"github.com/terpspark/admission-service/internal/transport/rest/response"
)

type decideFunc func(r *http.Request, a domain.Actor, id uuid.UUID, notes string) (domain.ApprovalRequest, error)

// decision wraps the four approve/reject endpoints; they differ only in the
// service call.
func (h *Handler) decision(fn decideFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, ok := actor(w, r)
		if !ok {
			return
		}
		id, ok := pathUUID(w, r, "id")
		if !ok {
			return
		}
		var req decisionRequest
		if !decode(w, r, &req, true) {
			return
		}
		out, err := fn(r, a, id, req.Notes)
		if err != nil {
			handleErr(w, r, err)
			return
		}
		response.Data(w, http.StatusOK, out)
	}
}

func (h *Handler) ApproveOrganizer() http.HandlerFunc {
	return h.decision(func(r *http.Request, a domain.Actor, id uuid.UUID, notes string) (domain.ApprovalRequest, error) {
		return h.svc.ApproveOrganizer(r.Context(), a, id, notes)
	})
}

func (h *Handler) RejectOrganizer() http.HandlerFunc {
	return h.decision(func(r *http.Request, a domain.Actor, id uuid.UUID, notes string) (domain.ApprovalRequest, error) {
		return h.svc.RejectOrganizer(r.Context(), a, id, notes)
	})
}

func (h *Handler) ApproveEvent() http.HandlerFunc {
	return h.decision(func(r *http.Request, a domain.Actor, id uuid.UUID, notes string) (domain.ApprovalRequest, error) {
		return h.svc.ApproveEvent(r.Context(), a, id, notes)
	})
}

func (h *Handler) RejectEvent() http.HandlerFunc {
	return h.decision(func(r *http.Request, a domain.Actor, id uuid.UUID, notes string) (domain.ApprovalRequest, error) {
		return h.svc.RejectEvent(r.Context(), a, id, notes)
	})
}

func (h *Handler) listApprovals(kind domain.ApprovalKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, ok := actor(w, r)
		if !ok {
			return
		}
		status := domain.ApprovalStatus(query(r, "status"))
		switch status {
		case "", domain.ApprovalPending, domain.ApprovalApproved, domain.ApprovalRejected:
		default:
			fail(w, r, http.StatusBadRequest, "request.invalid", "invalid status", map[string]string{
				"status": "must be one of: pending approved rejected",
			})
			return
		}
		items, err := h.svc.ListApprovals(r.Context(), a, kind, status)
		if err != nil {
			handleErr(w, r, err)
			return
		}
		response.Data(w, http.StatusOK, map[string]any{"items": items})
	}
}

func (h *Handler) OrganizerRequests() http.HandlerFunc { return h.listApprovals(domain.ApprovalOrganizer) }

func (h *Handler) EventSubmissions() http.HandlerFunc { return h.listApprovals(domain.ApprovalEvent) }

func (h *Handler) AuditLogs(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}

	var f domain.AuditFilter
	var err error
	bad := func(field string) {
		fail(w, r, http.StatusBadRequest, "request.invalid", "invalid "+field, nil)
	}

	if s := query(r, "action"); s != "" {
		f.Action = domain.AuditAction(s)
		if !f.Action.Valid() {
			bad("action")
			return
		}
	}
	if f.ActorID, err = parseOptionalUUID(query(r, "actor_id")); err != nil {
		bad("actor_id")
		return
	}
	if f.TargetID, err = parseOptionalUUID(query(r, "target_id")); err != nil {
		bad("target_id")
		return
	}
	if f.From, err = parseTime(query(r, "from")); err != nil {
		bad("from")
		return
	}
	if f.To, err = parseTime(query(r, "to")); err != nil {
		bad("to")
		return
	}
	if f.Cursor, err = decodeCursor(query(r, "cursor")); err != nil {
		bad("cursor")
		return
	}
	f.Search = query(r, "search")
	f.Limit = parseLimit(query(r, "limit"))

	items, next, err := h.svc.AuditLogs(r.Context(), a, f)
	if err != nil {
		handleErr(w, r, err)
		return
	}
	response.Data(w, http.StatusOK, page(items, next))
}

func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	var req createCategoryRequest
	if !decode(w, r, &req, false) {
		return
	}
	c, err := h.svc.CreateCategory(r.Context(), a, req.Name, req.Color)
	if err != nil {
		handleErr(w, r, err)
		return
	}
	response.Data(w, http.StatusCreated, c)
}

func (h *Handler) ToggleCategory(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	c, err := h.svc.ToggleCategory(r.Context(), a, id)
	if err != nil {
		handleErr(w, r, err)
		return
	}
	response.Data(w, http.StatusOK, c)
}

func (h *Handler) CreateVenue(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	var req createVenueRequest
	if !decode(w, r, &req, false) {
		return
	}
	v, err := h.svc.CreateVenue(r.Context(), a, req.Name, req.Building, req.Capacity)
	if err != nil {
		handleErr(w, r, err)
		return
	}
	response.Data(w, http.StatusCreated, v)
}

func (h *Handler) ToggleVenue(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	v, err := h.svc.ToggleVenue(r.Context(), a, id)
	if err != nil {
		handleErr(w, r, err)
		return
	}
	response.Data(w, http.StatusOK, v)
}
