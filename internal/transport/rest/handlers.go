package rest

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/terpspark/admission-service/internal/domain"
	"github.com/terpspark/admission-service/internal/pkg/logger"
	"github.com/terpspark/admission-service/internal/pkg/session"
	"github.com/terpspark/admission-service/internal/service"
	"github.com/terpspark/admission-service/internal/transport/rest/response"
)

type Handler struct {
	svc *service.Service
}

func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// actor returns the caller set by AuthMiddleware, writing 401 when absent.
func actor(w http.ResponseWriter, r *http.Request) (domain.Actor, bool) {
	a, ok := session.Actor(r.Context())
	if !ok {
		fail(w, r, http.StatusUnauthorized, "auth.unauthorized", "unauthorized", nil)
	}
	return a, ok
}

func pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		fail(w, r, http.StatusBadRequest, "request.invalid", "invalid "+name, map[string]string{
			name: "must be a valid uuid",
		})
		return uuid.Nil, false
	}
	return id, true
}

// decode reads the JSON body into dst and runs struct validation. An empty
// body is allowed for requests whose fields are all optional.
func decode(w http.ResponseWriter, r *http.Request, dst any, allowEmpty bool) bool {
	if err := render.DecodeJSON(r.Body, dst); err != nil {
		if !allowEmpty || !errors.Is(err, io.EOF) {
			fail(w, r, http.StatusBadRequest, "request.invalid", "invalid body", nil)
			return false
		}
	}
	if meta := validateRequest(dst); meta != nil {
		fail(w, r, http.StatusBadRequest, "request.invalid", "validation failed", meta)
		return false
	}
	return true
}

func handleErr(w http.ResponseWriter, r *http.Request, err error) {
	var capErr *domain.InsufficientCapacityError
	var valErr *domain.ValidationError

	switch {
	case errors.As(err, &capErr):
		fail(w, r, http.StatusConflict, "registration.insufficient_capacity", capErr.Error(), map[string]string{
			"remaining": strconv.Itoa(capErr.Remaining),
		})
	case errors.As(err, &valErr):
		fail(w, r, http.StatusBadRequest, "request.invalid", valErr.Error(), map[string]string{
			valErr.Field: valErr.Message,
		})

	case errors.Is(err, domain.ErrMissingName):
		fail(w, r, http.StatusBadRequest, "guest.missing_name", err.Error(), nil)
	case errors.Is(err, domain.ErrMissingEmail):
		fail(w, r, http.StatusBadRequest, "guest.missing_email", err.Error(), nil)
	case errors.Is(err, domain.ErrInvalidGuestDomain):
		fail(w, r, http.StatusBadRequest, "guest.invalid_domain", err.Error(), nil)
	case errors.Is(err, domain.ErrGuestLimitExceeded):
		fail(w, r, http.StatusBadRequest, "guest.limit_exceeded", err.Error(), nil)
	case errors.Is(err, domain.ErrMissingRejectionReason):
		fail(w, r, http.StatusBadRequest, "approval.reason_required", err.Error(), nil)

	case errors.Is(err, domain.ErrAlreadyRegistered):
		fail(w, r, http.StatusConflict, "registration.already_registered", err.Error(), nil)
	case errors.Is(err, domain.ErrAlreadyWaitlisted):
		fail(w, r, http.StatusConflict, "waitlist.already_joined", err.Error(), nil)
	case errors.Is(err, domain.ErrEventNotOpen):
		fail(w, r, http.StatusConflict, "event.not_open", err.Error(), nil)
	case errors.Is(err, domain.ErrEventNotPending):
		fail(w, r, http.StatusConflict, "event.not_pending", err.Error(), nil)
	case errors.Is(err, domain.ErrAlreadyDecided):
		fail(w, r, http.StatusConflict, "approval.already_decided", err.Error(), nil)
	case errors.Is(err, domain.ErrAlreadyPending):
		fail(w, r, http.StatusConflict, "approval.already_pending", err.Error(), nil)
	case errors.Is(err, domain.ErrAlreadyCheckedIn):
		fail(w, r, http.StatusConflict, "checkin.already_checked_in", err.Error(), nil)
	case errors.Is(err, domain.ErrNotConfirmed):
		fail(w, r, http.StatusConflict, "registration.not_confirmed", err.Error(), nil)

	case errors.Is(err, domain.ErrEventNotFound):
		fail(w, r, http.StatusNotFound, "event.not_found", err.Error(), nil)
	case errors.Is(err, domain.ErrNotFound):
		fail(w, r, http.StatusNotFound, "not_found", err.Error(), nil)
	case errors.Is(err, domain.ErrForbidden):
		fail(w, r, http.StatusForbidden, "auth.forbidden", err.Error(), nil)
	case errors.Is(err, domain.ErrTimeout):
		fail(w, r, http.StatusGatewayTimeout, "timeout", err.Error(), nil)

	default:
		// Do not leak internal details.
		logger.WithCtx(r.Context()).Error().Err(err).Msg("request failed")
		fail(w, r, http.StatusInternalServerError, "internal", "internal error", nil)
	}
}

func fail(w http.ResponseWriter, r *http.Request, status int, code, message string, meta map[string]string) {
	reqID := session.RequestID(r.Context())
	if reqID == "" {
		reqID = "no-request-id"
	}
	response.Fail(w, status, code, message, meta, reqID)
}

func page(items any, next *domain.KeysetCursor) map[string]any {
	return map[string]any{
		"items":       items,
		"next_cursor": encodeCursor(next),
	}
}

func query(r *http.Request, key string) string {
	return strings.TrimSpace(r.URL.Query().Get(key))
}
