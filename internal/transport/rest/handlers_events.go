package rest

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/terpspark/admission-service/internal/domain"
	"github.com/terpspark/admission-service/internal/transport/rest/response"
)

func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}

	cur, err := decodeCursor(query(r, "cursor"))
	if err != nil {
		fail(w, r, http.StatusBadRequest, "request.invalid", "invalid cursor", nil)
		return
	}
	from, err := parseTime(query(r, "from"))
	if err != nil {
		fail(w, r, http.StatusBadRequest, "request.invalid", "invalid from", nil)
		return
	}
	to, err := parseTime(query(r, "to"))
	if err != nil {
		fail(w, r, http.StatusBadRequest, "request.invalid", "invalid to", nil)
		return
	}

	items, next, err := h.svc.ListEvents(r.Context(), a, domain.EventFilter{
		Status:   domain.EventStatus(query(r, "status")),
		Category: query(r, "category"),
		Search:   query(r, "search"),
		From:     from,
		To:       to,
		Limit:    parseLimit(query(r, "limit")),
		Cursor:   cur,
	})
	if err != nil {
		handleErr(w, r, err)
		return
	}
	response.Data(w, http.StatusOK, page(items, next))
}

func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	eventID, ok := pathUUID(w, r, "eventID")
	if !ok {
		return
	}

	ev, err := h.svc.GetEvent(r.Context(), a, eventID)
	if err != nil {
		handleErr(w, r, err)
		return
	}
	response.Data(w, http.StatusOK, ev)
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	eventID, ok := pathUUID(w, r, "eventID")
	if !ok {
		return
	}
	var req registerRequest
	if !decode(w, r, &req, true) {
		return
	}

	res, err := h.svc.Register(r.Context(), a, eventID, req.toInput())
	if err != nil {
		handleErr(w, r, err)
		return
	}
	response.Data(w, http.StatusCreated, res)
}

func (h *Handler) RegistrationStatus(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	eventID, ok := pathUUID(w, r, "eventID")
	if !ok {
		return
	}

	st, err := h.svc.RegistrationStatus(r.Context(), a, eventID)
	if err != nil {
		handleErr(w, r, err)
		return
	}
	response.Data(w, http.StatusOK, st)
}

func (h *Handler) CancelRegistration(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	regID, ok := pathUUID(w, r, "registrationID")
	if !ok {
		return
	}

	res, err := h.svc.CancelRegistration(r.Context(), a, regID)
	if err != nil {
		handleErr(w, r, err)
		return
	}
	response.Data(w, http.StatusOK, res)
}

func (h *Handler) MyRegistrations(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	items, err := h.svc.MyRegistrations(r.Context(), a)
	if err != nil {
		handleErr(w, r, err)
		return
	}
	response.Data(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) MyWaitlist(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	items, err := h.svc.MyWaitlist(r.Context(), a)
	if err != nil {
		handleErr(w, r, err)
		return
	}
	response.Data(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) LeaveWaitlist(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	waitlistID, ok := pathUUID(w, r, "waitlistID")
	if !ok {
		return
	}
	if err := h.svc.LeaveWaitlist(r.Context(), a, waitlistID); err != nil {
		handleErr(w, r, err)
		return
	}
	response.Data(w, http.StatusOK, map[string]string{"msg": "left waitlist"})
}

// --- organizer ---

func (h *Handler) SubmitEvent(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	var req submitEventRequest
	if !decode(w, r, &req, false) {
		return
	}

	d := domain.EventSubmission{
		Title:       req.Title,
		Description: req.Description,
		Category:    domain.CategorySlug(req.Category),
		StartsAt:    req.StartsAt.UTC(),
		EndsAt:      req.EndsAt.UTC(),
		Capacity:    req.Capacity,
	}
	if req.VenueID != "" {
		// already validated as a uuid
		id := uuid.MustParse(req.VenueID)
		d.VenueID = &id
	}

	ev, approval, err := h.svc.SubmitEvent(r.Context(), a, d)
	if err != nil {
		handleErr(w, r, err)
		return
	}
	response.Data(w, http.StatusCreated, map[string]any{
		"event":    ev,
		"approval": approval,
	})
}

func (h *Handler) CancelEvent(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	eventID, ok := pathUUID(w, r, "eventID")
	if !ok {
		return
	}
	ev, err := h.svc.CancelEvent(r.Context(), a, eventID)
	if err != nil {
		handleErr(w, r, err)
		return
	}
	response.Data(w, http.StatusOK, ev)
}

func (h *Handler) CheckIn(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	eventID, ok := pathUUID(w, r, "eventID")
	if !ok {
		return
	}
	var req checkInRequest
	if !decode(w, r, &req, false) {
		return
	}

	reg, err := h.svc.CheckIn(r.Context(), a, eventID, req.TicketCode)
	if err != nil {
		handleErr(w, r, err)
		return
	}
	response.Data(w, http.StatusOK, reg)
}

func (h *Handler) EventWaitlist(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	eventID, ok := pathUUID(w, r, "eventID")
	if !ok {
		return
	}
	items, err := h.svc.EventWaitlist(r.Context(), a, eventID)
	if err != nil {
		handleErr(w, r, err)
		return
	}
	response.Data(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) RequestOrganizer(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	var req organizerRequest
	if !decode(w, r, &req, true) {
		return
	}
	out, err := h.svc.RequestOrganizer(r.Context(), a, req.Reason)
	if err != nil {
		handleErr(w, r, err)
		return
	}
	response.Data(w, http.StatusCreated, out)
}

// --- reference data, readable by everyone ---

func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	items, err := h.svc.ListCategories(r.Context(), a)
	if err != nil {
		handleErr(w, r, err)
		return
	}
	response.Data(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) ListVenues(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	items, err := h.svc.ListVenues(r.Context(), a)
	if err != nil {
		handleErr(w, r, err)
		return
	}
	response.Data(w, http.StatusOK, map[string]any{"items": items})
}
