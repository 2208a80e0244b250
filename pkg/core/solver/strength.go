package solver

import "fmt"

// Strength is the priority of a constraint. Larger values win conflicts.
type Strength float64

// Predefined strengths. Each level dominates any combination of weaker ones
// as long as fewer than a thousand weaker constraints conflict.
var (
	Required = NewStrength(1000, 1000, 1000, 1)
	Strong   = NewStrength(1, 0, 0, 1)
	Medium   = NewStrength(0, 1, 0, 1)
	Weak     = NewStrength(0, 0, 1, 1)
)

// NewStrength builds a strength from strong, medium and weak components,
// each clamped to [0, 1000] after applying weight w.
func NewStrength(a, b, c, w float64) Strength {
	var s float64
	s += clamp(a*w, 0, 1000) * 1_000_000
	s += clamp(b*w, 0, 1000) * 1_000
	s += clamp(c*w, 0, 1000)
	return Strength(s)
}

// Clip limits s to the range [0, Required].
func (s Strength) Clip() Strength {
	return Strength(clamp(float64(s), 0, float64(Required)))
}

// IsRequired reports whether s is at least Required.
func (s Strength) IsRequired() bool { return s >= Required }

// String implements fmt.Stringer using the names of the predefined levels.
func (s Strength) String() string {
	switch s {
	case Required:
		return "required"
	case Strong:
		return "strong"
	case Medium:
		return "medium"
	case Weak:
		return "weak"
	}
	return fmt.Sprintf("%g", float64(s))
}

func clamp(v, lo, hi float64) float64 {
	return max(lo, min(v, hi))
}
