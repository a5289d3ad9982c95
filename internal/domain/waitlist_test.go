package domain_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/terpspark/admission-service/internal/domain"
)

func entries(positions ...int) []domain.WaitlistEntry {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	out := make([]domain.WaitlistEntry, len(positions))
	for i, p := range positions {
		out[i] = domain.WaitlistEntry{ID: uuid.New(), Position: p, JoinedAt: base.Add(time.Duration(p) * time.Minute)}
	}
	return out
}

func TestNextWaitlistPosition(t *testing.T) {
	assert.Equal(t, 1, domain.NextWaitlistPosition(0))
	assert.Equal(t, 5, domain.NextWaitlistPosition(4))
}

func TestCompact_ClosesGapAfterLeave(t *testing.T) {
	es := entries(1, 2, 4, 5)

	changes := domain.Compact(es)

	assert.Equal(t, []domain.PositionChange{
		{ID: es[2].ID, Position: 3},
		{ID: es[3].ID, Position: 4},
	}, changes)
}

func TestCompact_DenseListUnchanged(t *testing.T) {
	assert.Empty(t, domain.Compact(entries(1, 2, 3)))
	assert.Empty(t, domain.Compact(nil))
}

func TestCompact_UnorderedInput(t *testing.T) {
	es := entries(5, 2)

	changes := domain.Compact(es)

	assert.ElementsMatch(t, []domain.PositionChange{
		{ID: es[1].ID, Position: 1},
		{ID: es[0].ID, Position: 2},
	}, changes)
}

func TestPromotionPlan(t *testing.T) {
	es := entries(3, 1, 2)

	promote, remain := domain.PromotionPlan(es, 2)
	assert.Equal(t, []uuid.UUID{es[1].ID, es[2].ID}, []uuid.UUID{promote[0].ID, promote[1].ID})
	assert.Len(t, remain, 1)
	assert.Equal(t, es[0].ID, remain[0].ID)

	promote, remain = domain.PromotionPlan(es, 10)
	assert.Len(t, promote, 3)
	assert.Empty(t, remain)

	promote, remain = domain.PromotionPlan(es, -1)
	assert.Empty(t, promote)
	assert.Len(t, remain, 3)
}
