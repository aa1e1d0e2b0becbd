package workbook

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-gpa/internal/gpa"
)

var (
	// ErrNoValidSubjects is returned when the draft semester has no subject with usable marks.
	ErrNoValidSubjects = errors.New("no subject has valid marks")
	// ErrSubjectNotFound is returned when a subject id is not in the draft.
	ErrSubjectNotFound = errors.New("subject not found")
	// ErrManualSemesterNotFound is returned when a manual semester id is unknown.
	ErrManualSemesterNotFound = errors.New("manual semester not found")
	// ErrLastManualSemester is returned when removing the only manual semester entry.
	ErrLastManualSemester = errors.New("at least one manual semester must remain")
)

// DefaultCreditRange is the range a new subject starts with.
const DefaultCreditRange = gpa.Range20

// Subject is a draft row of the semester being entered.
type Subject struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Marks       *int            `json:"marks"`
	CreditRange gpa.CreditRange `json:"creditRange"`
}

// Semester is a snapshot of subjects frozen together with the GPA computed from them.
type Semester struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Subjects []Subject `json:"subjects"`
	GPA      float64   `json:"gpa"`
	ClosedAt time.Time `json:"closedAt"`
}

// ManualSemester is a GPA typed in directly. Set stays false until a GPA is entered,
// so the placeholder entry does not count as a 0.00 semester.
type ManualSemester struct {
	ID   string  `json:"id"`
	Name string  `json:"name"`
	GPA  float64 `json:"gpa"`
	Set  bool    `json:"set"`
}

// Valid reports whether the entry contributes to CGPA.
func (m ManualSemester) Valid() bool {
	return m.Set && gpa.IsValidGPA(m.GPA)
}

// Workbook is the caller-owned working state of one calculator session.
type Workbook struct {
	ID        string           `json:"id"`
	Policy    gpa.Policy       `json:"policy"`
	Subjects  []Subject        `json:"subjects"`
	Semesters []Semester       `json:"semesters"`
	Manual    []ManualSemester `json:"manualSemesters"`
	CreatedAt time.Time        `json:"createdAt"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

// New returns an empty workbook holding the single placeholder manual semester.
func New(policy gpa.Policy, now time.Time) *Workbook {
	wb := &Workbook{
		ID:        uuid.NewString(),
		Policy:    policy,
		Subjects:  []Subject{},
		Semesters: []Semester{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	wb.AddManualSemester("", nil)
	return wb
}

func (wb *Workbook) engine() gpa.Engine {
	return gpa.Engine{BelowMinimum: wb.Policy}
}

// AddSubject appends a draft subject. A zero range selects DefaultCreditRange.
func (wb *Workbook) AddSubject(name string, marks *int, r gpa.CreditRange) (Subject, error) {
	if r == 0 {
		r = DefaultCreditRange
	}
	if !r.Valid() {
		return Subject{}, fmt.Errorf("%w: %d", gpa.ErrUnknownCreditRange, r)
	}
	s := Subject{ID: uuid.NewString(), Name: name, Marks: copyInt(marks), CreditRange: r}
	wb.Subjects = append(wb.Subjects, s)
	return s, nil
}

// SubjectPatch carries the fields of a subject to change. Nil fields are left alone.
type SubjectPatch struct {
	Name        *string
	Marks       *int
	ClearMarks  bool
	CreditRange *gpa.CreditRange
}

// UpdateSubject applies p to the subject with id. Switching the credit range clears
// the marks unless the same patch sets new ones.
func (wb *Workbook) UpdateSubject(id string, p SubjectPatch) (Subject, error) {
	idx := wb.subjectIndex(id)
	if idx < 0 {
		return Subject{}, ErrSubjectNotFound
	}
	s := wb.Subjects[idx]
	if p.CreditRange != nil && *p.CreditRange != s.CreditRange {
		if !p.CreditRange.Valid() {
			return Subject{}, fmt.Errorf("%w: %d", gpa.ErrUnknownCreditRange, *p.CreditRange)
		}
		s.CreditRange = *p.CreditRange
		s.Marks = nil
	}
	if p.Name != nil {
		s.Name = *p.Name
	}
	if p.ClearMarks {
		s.Marks = nil
	}
	if p.Marks != nil {
		s.Marks = copyInt(p.Marks)
	}
	wb.Subjects[idx] = s
	return s, nil
}

// RemoveSubject drops the subject with id from the draft.
func (wb *Workbook) RemoveSubject(id string) error {
	idx := wb.subjectIndex(id)
	if idx < 0 {
		return ErrSubjectNotFound
	}
	wb.Subjects = append(wb.Subjects[:idx], wb.Subjects[idx+1:]...)
	return nil
}

// CurrentGPA computes the GPA of the draft without closing it.
func (wb *Workbook) CurrentGPA() (float64, error) {
	g, ok := wb.engine().SemesterGPA(wb.draft())
	if !ok {
		return 0, ErrNoValidSubjects
	}
	return g, nil
}

// CloseSemester freezes the draft into a new semester and starts an empty draft.
// The draft is left untouched when none of its subjects is valid.
func (wb *Workbook) CloseSemester(now time.Time) (Semester, error) {
	g, err := wb.CurrentGPA()
	if err != nil {
		return Semester{}, err
	}
	sem := Semester{
		ID:       uuid.NewString(),
		Name:     fmt.Sprintf("Semester %d", len(wb.Semesters)+1),
		Subjects: wb.Subjects,
		GPA:      g,
		ClosedAt: now,
	}
	wb.Semesters = append(wb.Semesters, sem)
	wb.Subjects = []Subject{}
	return sem, nil
}

// AddManualSemester appends a manual entry. An empty name becomes "Semester N".
func (wb *Workbook) AddManualSemester(name string, value *float64) ManualSemester {
	if name == "" {
		name = fmt.Sprintf("Semester %d", len(wb.Manual)+1)
	}
	m := ManualSemester{ID: uuid.NewString(), Name: name}
	if value != nil {
		m.GPA = *value
		m.Set = true
	}
	wb.Manual = append(wb.Manual, m)
	return m
}

// UpdateManualSemester renames the entry and/or sets its GPA. Out-of-range GPAs are
// stored so they can be shown back to the user, but never counted.
func (wb *Workbook) UpdateManualSemester(id string, name *string, value *float64) (ManualSemester, error) {
	idx := wb.manualIndex(id)
	if idx < 0 {
		return ManualSemester{}, ErrManualSemesterNotFound
	}
	m := wb.Manual[idx]
	if name != nil {
		m.Name = *name
	}
	if value != nil {
		m.GPA = *value
		m.Set = true
	}
	wb.Manual[idx] = m
	return m, nil
}

// RemoveManualSemester drops a manual entry, keeping at least one.
func (wb *Workbook) RemoveManualSemester(id string) error {
	idx := wb.manualIndex(id)
	if idx < 0 {
		return ErrManualSemesterNotFound
	}
	if len(wb.Manual) <= 1 {
		return ErrLastManualSemester
	}
	wb.Manual = append(wb.Manual[:idx], wb.Manual[idx+1:]...)
	return nil
}

// CGPAFromSemesters averages the computed semesters. False when there are none.
func (wb *Workbook) CGPAFromSemesters() (float64, bool) {
	gpas := wb.semesterGPAs()
	if len(gpas) == 0 {
		return 0, false
	}
	return gpa.CGPA(gpas), true
}

// CGPAFromManual averages the valid manual entries. False when there are none.
func (wb *Workbook) CGPAFromManual() (float64, bool) {
	gpas := wb.manualGPAs()
	if len(gpas) == 0 {
		return 0, false
	}
	return gpa.CGPA(gpas), true
}

// TotalCGPA averages computed semesters and valid manual entries together.
func (wb *Workbook) TotalCGPA() (float64, bool) {
	gpas := append(wb.semesterGPAs(), wb.manualGPAs()...)
	if len(gpas) == 0 {
		return 0, false
	}
	return gpa.CGPA(gpas), true
}

// Summary is every derived figure of a workbook.
type Summary struct {
	CurrentGPA      *float64      `json:"currentGpa"`
	SemesterCount   int           `json:"semesterCount"`
	ManualCount     int           `json:"manualCount"`
	InvalidManual   []string      `json:"invalidManual"`
	FromSemesters   *float64      `json:"cgpaFromSemesters"`
	FromManual      *float64      `json:"cgpaFromManual"`
	CGPA            *float64      `json:"cgpa"`
	Standing        *gpa.Standing `json:"standing,omitempty"`
	ContributingAll int           `json:"contributing"`
}

// Summarize derives all figures of wb.
func (wb *Workbook) Summarize() Summary {
	sum := Summary{
		SemesterCount: len(wb.Semesters),
		ManualCount:   len(wb.manualGPAs()),
		InvalidManual: []string{},
	}
	for _, m := range wb.Manual {
		if m.Set && !gpa.IsValidGPA(m.GPA) {
			sum.InvalidManual = append(sum.InvalidManual, m.ID)
		}
	}
	sum.ContributingAll = sum.SemesterCount + sum.ManualCount
	if g, err := wb.CurrentGPA(); err == nil {
		sum.CurrentGPA = &g
	}
	if c, ok := wb.CGPAFromSemesters(); ok {
		sum.FromSemesters = &c
	}
	if c, ok := wb.CGPAFromManual(); ok {
		sum.FromManual = &c
	}
	if c, ok := wb.TotalCGPA(); ok {
		st := gpa.StandingFor(c)
		sum.CGPA = &c
		sum.Standing = &st
	}
	return sum
}

func (wb *Workbook) draft() []gpa.Subject {
	out := make([]gpa.Subject, 0, len(wb.Subjects))
	for _, s := range wb.Subjects {
		out = append(out, gpa.Subject{Name: s.Name, Marks: s.Marks, CreditRange: s.CreditRange})
	}
	return out
}

func (wb *Workbook) semesterGPAs() []float64 {
	out := make([]float64, 0, len(wb.Semesters))
	for _, s := range wb.Semesters {
		out = append(out, s.GPA)
	}
	return out
}

func (wb *Workbook) manualGPAs() []float64 {
	out := make([]float64, 0, len(wb.Manual))
	for _, m := range wb.Manual {
		if m.Valid() {
			out = append(out, m.GPA)
		}
	}
	return out
}

func (wb *Workbook) subjectIndex(id string) int {
	for i, s := range wb.Subjects {
		if s.ID == id {
			return i
		}
	}
	return -1
}

func (wb *Workbook) manualIndex(id string) int {
	for i, m := range wb.Manual {
		if m.ID == id {
			return i
		}
	}
	return -1
}

func copyInt(v *int) *int {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
