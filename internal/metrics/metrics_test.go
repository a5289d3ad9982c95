package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMiddleware_UsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/events/{eventID}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/events/{eventID}", "418"))

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/events/abc", nil))

	assert.Equal(t, http.StatusTeapot, rr.Code)
	assert.Equal(t, before+1, testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/events/{eventID}", "418")))
}

func TestRecordPromotions_IgnoresZero(t *testing.T) {
	before := testutil.ToFloat64(promotionsTotal)
	RecordPromotions(0)
	RecordPromotions(2)
	assert.Equal(t, before+2, testutil.ToFloat64(promotionsTotal))
}

func TestRecordAdmission(t *testing.T) {
	before := testutil.ToFloat64(admissionsTotal.WithLabelValues(OutcomeWaitlisted))
	RecordAdmission(OutcomeWaitlisted)
	assert.Equal(t, before+1, testutil.ToFloat64(admissionsTotal.WithLabelValues(OutcomeWaitlisted)))
}
