package domain

import "math"

// Occupancy is the seat summary derived from capacity and registered count.
type Occupancy struct {
	Remaining  int  `json:"remaining"`
	Percentage int  `json:"percentage"`
	IsFull     bool `json:"is_full"`
}

// Calculate is pure. Negative inputs are the caller's problem.
//
// A percentage that rounds up to 100 while seats remain is held at 99, so
// 100 always means full.
func Calculate(capacity, registered int) Occupancy {
	o := Occupancy{
		Remaining: max(0, capacity-registered),
		IsFull:    registered >= capacity,
	}
	if capacity == 0 {
		return o
	}

	pct := int(math.Floor(float64(registered)*100/float64(capacity) + 0.5))
	pct = min(100, pct)
	if pct == 100 && !o.IsFull {
		pct = 99
	}
	o.Percentage = pct
	return o
}
