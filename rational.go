package heapkit

import "fmt"

// Rational ...
type Rational struct {
	Nominator   uint64
	Denominator uint64
}

// NewRational ...
func NewRational(nominator uint64, denominator uint64) Rational {
	return Rational{
		Nominator:   nominator,
		Denominator: denominator,
	}
}

// Percent returns the ratio as a percentage, or 0 for a zero denominator.
func (r Rational) Percent() float64 {
	if r.Denominator == 0 {
		return 0
	}
	return 100 * float64(r.Nominator) / float64(r.Denominator)
}

func (r Rational) String() string {
	return fmt.Sprintf("%d/%d (%.1f%%)", r.Nominator, r.Denominator, r.Percent())
}
