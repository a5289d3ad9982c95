package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/terpspark/admission-service/internal/domain"
)

func TestCalculate(t *testing.T) {
	tests := []struct {
		name       string
		capacity   int
		registered int
		want       domain.Occupancy
	}{
		{"empty event", 100, 0, domain.Occupancy{Remaining: 100, Percentage: 0, IsFull: false}},
		{"half full", 100, 50, domain.Occupancy{Remaining: 50, Percentage: 50, IsFull: false}},
		{"one left", 100, 99, domain.Occupancy{Remaining: 1, Percentage: 99, IsFull: false}},
		{"exactly full", 100, 100, domain.Occupancy{Remaining: 0, Percentage: 100, IsFull: true}},
		{"overbooked", 10, 12, domain.Occupancy{Remaining: 0, Percentage: 100, IsFull: true}},
		{"zero capacity", 0, 0, domain.Occupancy{Remaining: 0, Percentage: 0, IsFull: true}},
		{"rounds half up", 8, 1, domain.Occupancy{Remaining: 7, Percentage: 13, IsFull: false}},
		{"near full never shows 100", 1000, 999, domain.Occupancy{Remaining: 1, Percentage: 99, IsFull: false}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, domain.Calculate(tt.capacity, tt.registered))
		})
	}
}

func TestCalculate_Properties(t *testing.T) {
	for capacity := 0; capacity <= 60; capacity++ {
		for registered := 0; registered <= capacity+5; registered++ {
			o := domain.Calculate(capacity, registered)

			assert.Equal(t, max(0, capacity-registered), o.Remaining)
			assert.Equal(t, o.Remaining == 0, o.IsFull, "cap=%d reg=%d", capacity, registered)

			if capacity > 0 {
				assert.GreaterOrEqual(t, o.Percentage, 0)
				assert.LessOrEqual(t, o.Percentage, 100)
				assert.Equal(t, registered >= capacity, o.Percentage == 100, "cap=%d reg=%d", capacity, registered)
			}
		}
	}
}
