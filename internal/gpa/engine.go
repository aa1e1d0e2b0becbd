package gpa

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// MaxGPA is the ceiling applied to every derived GPA and CGPA.
const MaxGPA = 4.0

// CreditRange is the maximum raw marks obtainable for a subject.
type CreditRange int

// Supported credit ranges.
const (
	Range20  CreditRange = 20
	Range40  CreditRange = 40
	Range60  CreditRange = 60
	Range80  CreditRange = 80
	Range100 CreditRange = 100
)

var (
	// ErrUnknownCreditRange is returned when a credit range outside the fixed set is supplied.
	ErrUnknownCreditRange = errors.New("unknown credit range")
	// ErrUnknownPolicy is returned when a below-minimum policy name cannot be parsed.
	ErrUnknownPolicy = errors.New("unknown below-minimum policy")
)

var creditRanges = []CreditRange{Range20, Range40, Range60, Range80, Range100}

// CreditRanges lists the supported credit ranges in ascending order.
func CreditRanges() []CreditRange {
	out := make([]CreditRange, len(creditRanges))
	copy(out, creditRanges)
	return out
}

// ParseCreditRange validates v against the supported set.
func ParseCreditRange(v int) (CreditRange, error) {
	r := CreditRange(v)
	if !r.Valid() {
		return 0, fmt.Errorf("%w: %d", ErrUnknownCreditRange, v)
	}
	return r, nil
}

// Valid reports whether r is one of the supported credit ranges.
func (r CreditRange) Valid() bool {
	_, ok := qualityPoints[r]
	return ok
}

// Divider normalises quality points of r onto the 4.0 scale. Unknown ranges divide by 1.
func Divider(r CreditRange) float64 {
	switch r {
	case Range20:
		return 4
	case Range40:
		return 8
	case Range60:
		return 12
	case Range80:
		return 16
	case Range100:
		return 20
	default:
		return 1
	}
}

// MinimumMarks returns the lowest marks value that has a quality-point entry for r.
func MinimumMarks(r CreditRange) int {
	table, ok := qualityPoints[r]
	if !ok {
		return 0
	}
	lowest := int(r)
	for marks := range table {
		if marks < lowest {
			lowest = marks
		}
	}
	return lowest
}

// QualityPoints looks up the quality points earned by marks on r.
// The boolean is false when the table has no entry for marks.
func QualityPoints(marks int, r CreditRange) (float64, bool) {
	qp, ok := qualityPoints[r][marks]
	return qp, ok
}

// Policy decides how marks below a table's minimum key are treated.
type Policy int

const (
	// PolicyZeroPoints counts below-minimum marks as valid with zero quality points.
	PolicyZeroPoints Policy = iota
	// PolicyExclude treats below-minimum marks as undefined so they drop out of averages.
	PolicyExclude
)

// ParsePolicy accepts "zero" (the default when empty) or "exclude".
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "zero":
		return PolicyZeroPoints, nil
	case "exclude":
		return PolicyExclude, nil
	default:
		return PolicyZeroPoints, fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
	}
}

func (p Policy) String() string {
	if p == PolicyExclude {
		return "exclude"
	}
	return "zero"
}

// Subject is one row of marks entered for a semester.
type Subject struct {
	Name        string      `json:"name"`
	Marks       *int        `json:"marks"`
	CreditRange CreditRange `json:"creditRange"`
}

// Engine converts marks into GPA values under a below-minimum policy.
// The zero value applies PolicyZeroPoints.
type Engine struct {
	BelowMinimum Policy
}

// Default is the engine used by the package-level helpers.
var Default = Engine{}

// SubjectGPA converts marks on r to a 4.0-scale GPA.
// The boolean is false when no GPA can be computed for the input.
func (e Engine) SubjectGPA(marks *int, r CreditRange) (float64, bool) {
	if !r.Valid() || !IsValidMarks(marks, r) {
		return 0, false
	}
	qp, ok := QualityPoints(*marks, r)
	if !ok {
		if e.BelowMinimum == PolicyExclude {
			return 0, false
		}
		qp = 0
	}
	gpa := (qp / Divider(r)) * 4
	return Round2(math.Min(gpa, MaxGPA)), true
}

// SemesterGPA averages the subject GPAs that can be computed, skipping the rest.
// The boolean is false when none of the subjects yields a GPA.
func (e Engine) SemesterGPA(subjects []Subject) (float64, bool) {
	var (
		total float64
		count int
	)
	for _, s := range subjects {
		g, ok := e.SubjectGPA(s.Marks, s.CreditRange)
		if !ok {
			continue
		}
		total += g
		count++
	}
	if count == 0 {
		return 0, false
	}
	return math.Min(Round2(total/float64(count)), MaxGPA), true
}

// SubjectGPA applies the default engine.
func SubjectGPA(marks *int, r CreditRange) (float64, bool) {
	return Default.SubjectGPA(marks, r)
}

// SemesterGPA applies the default engine.
func SemesterGPA(subjects []Subject) (float64, bool) {
	return Default.SemesterGPA(subjects)
}

// CGPA averages semester GPAs the caller has already validated.
// An empty input yields 0, so callers must check the length to tell "no data" from a zero CGPA.
func CGPA(gpas []float64) float64 {
	if len(gpas) == 0 {
		return 0
	}
	var total float64
	for _, g := range gpas {
		total += g
	}
	return math.Min(Round2(total/float64(len(gpas))), MaxGPA)
}

// SplitValid partitions gpas into the values accepted by IsValidGPA and the indexes of the rest.
func SplitValid(gpas []float64) (valid []float64, rejected []int) {
	valid = make([]float64, 0, len(gpas))
	for i, g := range gpas {
		if IsValidGPA(g) {
			valid = append(valid, g)
			continue
		}
		rejected = append(rejected, i)
	}
	return valid, rejected
}

// IsValidMarks reports whether marks is set and lies within [0, r].
func IsValidMarks(marks *int, r CreditRange) bool {
	if marks == nil {
		return false
	}
	return *marks >= 0 && *marks <= int(r)
}

// IsValidGPA reports whether gpa lies within [0, MaxGPA].
func IsValidGPA(gpa float64) bool {
	return gpa >= 0 && gpa <= MaxGPA
}

// Round2 rounds to two decimal places, halves away from zero.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
