package rest

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/terpspark/admission-service/internal/domain"
)

func TestSubmitEventRequest_LimitsMatchDomain(t *testing.T) {
	start := time.Now().Add(24 * time.Hour)
	ok := submitEventRequest{
		Title:       strings.Repeat("é", domain.MaxTitleLen),
		Description: strings.Repeat("x", domain.MaxDescriptionLen),
		Category:    "academic",
		StartsAt:    start,
		EndsAt:      start.Add(time.Hour),
		Capacity:    domain.MaxCapacity,
	}
	assert.Empty(t, validateRequest(ok))

	over := ok
	over.Title += "é"
	over.Description += "x"
	over.Capacity++
	errs := validateRequest(over)
	for _, field := range []string{"title", "description", "capacity"} {
		assert.Contains(t, errs, field)
	}

	empty := ok
	empty.Capacity = 0
	assert.Contains(t, validateRequest(empty), "capacity")
}
