package workbook

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-gpa/internal/gpa"
)

func intPtr(v int) *int                           { return &v }
func floatPtr(v float64) *float64                 { return &v }
func rangePtr(r gpa.CreditRange) *gpa.CreditRange { return &r }

var t0 = time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)

func TestNewWorkbookStartsWithPlaceholderManualSemester(t *testing.T) {
	wb := New(gpa.PolicyZeroPoints, t0)
	require.NotEmpty(t, wb.ID)
	require.Empty(t, wb.Subjects)
	require.Empty(t, wb.Semesters)
	require.Len(t, wb.Manual, 1)
	require.Equal(t, "Semester 1", wb.Manual[0].Name)
	require.False(t, wb.Manual[0].Set)

	sum := wb.Summarize()
	require.Nil(t, sum.CurrentGPA)
	require.Nil(t, sum.CGPA)
	require.Nil(t, sum.Standing)
	require.Zero(t, sum.ContributingAll)
}

func TestSubjectEditing(t *testing.T) {
	wb := New(gpa.PolicyZeroPoints, t0)

	s, err := wb.AddSubject("Maths", nil, 0)
	require.NoError(t, err)
	require.Equal(t, gpa.Range20, s.CreditRange)
	require.Nil(t, s.Marks)

	_, err = wb.AddSubject("Bogus", nil, 50)
	require.ErrorIs(t, err, gpa.ErrUnknownCreditRange)

	s, err = wb.UpdateSubject(s.ID, SubjectPatch{Marks: intPtr(16)})
	require.NoError(t, err)
	require.Equal(t, 16, *s.Marks)

	s, err = wb.UpdateSubject(s.ID, SubjectPatch{CreditRange: rangePtr(gpa.Range100)})
	require.NoError(t, err)
	require.Equal(t, gpa.Range100, s.CreditRange)
	require.Nil(t, s.Marks, "changing the credit range resets marks")

	s, err = wb.UpdateSubject(s.ID, SubjectPatch{CreditRange: rangePtr(gpa.Range60), Marks: intPtr(36)})
	require.NoError(t, err)
	require.Equal(t, 36, *s.Marks)

	s, err = wb.UpdateSubject(s.ID, SubjectPatch{ClearMarks: true})
	require.NoError(t, err)
	require.Nil(t, s.Marks)

	_, err = wb.UpdateSubject("missing", SubjectPatch{})
	require.ErrorIs(t, err, ErrSubjectNotFound)

	require.NoError(t, wb.RemoveSubject(s.ID))
	require.Empty(t, wb.Subjects)
	require.ErrorIs(t, wb.RemoveSubject(s.ID), ErrSubjectNotFound)
}

func TestMarksAreCopied(t *testing.T) {
	wb := New(gpa.PolicyZeroPoints, t0)
	marks := 20
	s, err := wb.AddSubject("Physics", &marks, gpa.Range20)
	require.NoError(t, err)
	marks = 0
	require.Equal(t, 20, *s.Marks)
	require.Equal(t, 20, *wb.Subjects[0].Marks)
}

func TestCloseSemester(t *testing.T) {
	wb := New(gpa.PolicyZeroPoints, t0)

	_, err := wb.CloseSemester(t0)
	require.ErrorIs(t, err, ErrNoValidSubjects)

	_, err = wb.AddSubject("Unset", nil, gpa.Range40)
	require.NoError(t, err)
	_, err = wb.CloseSemester(t0)
	require.ErrorIs(t, err, ErrNoValidSubjects)
	require.Len(t, wb.Subjects, 1, "draft is kept when nothing is valid")

	_, err = wb.AddSubject("Maths", intPtr(80), gpa.Range100)
	require.NoError(t, err)
	_, err = wb.AddSubject("Chemistry", intPtr(36), gpa.Range60)
	require.NoError(t, err)

	g, err := wb.CurrentGPA()
	require.NoError(t, err)
	require.Equal(t, 3.34, g)

	sem, err := wb.CloseSemester(t0.Add(time.Hour))
	require.NoError(t, err)
	require.Equal(t, "Semester 1", sem.Name)
	require.Equal(t, 3.34, sem.GPA)
	require.Len(t, sem.Subjects, 3)
	require.Equal(t, t0.Add(time.Hour), sem.ClosedAt)
	require.Empty(t, wb.Subjects)
	require.Len(t, wb.Semesters, 1)

	_, err = wb.AddSubject("Biology", intPtr(20), gpa.Range20)
	require.NoError(t, err)
	sem, err = wb.CloseSemester(t0)
	require.NoError(t, err)
	require.Equal(t, "Semester 2", sem.Name)
	require.Equal(t, 4.0, sem.GPA)

	c, ok := wb.CGPAFromSemesters()
	require.True(t, ok)
	require.Equal(t, 3.67, c)
}

func TestBelowMinimumPolicy(t *testing.T) {
	zero := New(gpa.PolicyZeroPoints, t0)
	_, err := zero.AddSubject("Weak", intPtr(5), gpa.Range20)
	require.NoError(t, err)
	g, err := zero.CurrentGPA()
	require.NoError(t, err)
	require.Equal(t, 0.0, g)

	exclude := New(gpa.PolicyExclude, t0)
	_, err = exclude.AddSubject("Weak", intPtr(5), gpa.Range20)
	require.NoError(t, err)
	_, err = exclude.CurrentGPA()
	require.ErrorIs(t, err, ErrNoValidSubjects)
}

func TestManualSemesters(t *testing.T) {
	wb := New(gpa.PolicyZeroPoints, t0)
	first := wb.Manual[0]

	_, ok := wb.CGPAFromManual()
	require.False(t, ok, "untouched placeholder does not count")

	m, err := wb.UpdateManualSemester(first.ID, nil, floatPtr(3.5))
	require.NoError(t, err)
	require.True(t, m.Valid())

	second := wb.AddManualSemester("", floatPtr(3.8))
	require.Equal(t, "Semester 2", second.Name)
	third := wb.AddManualSemester("Exchange term", floatPtr(4.2))
	require.False(t, third.Valid())

	c, ok := wb.CGPAFromManual()
	require.True(t, ok)
	require.Equal(t, 3.65, c)

	sum := wb.Summarize()
	require.Equal(t, []string{third.ID}, sum.InvalidManual)
	require.Equal(t, 2, sum.ManualCount)
	require.Equal(t, "excellent", sum.Standing.Band)

	name := "Year 1"
	m, err = wb.UpdateManualSemester(third.ID, &name, floatPtr(0))
	require.NoError(t, err)
	require.Equal(t, "Year 1", m.Name)
	require.True(t, m.Valid(), "an explicit 0.00 counts")
	c, _ = wb.CGPAFromManual()
	require.Equal(t, 2.43, c)

	_, err = wb.UpdateManualSemester("missing", nil, nil)
	require.ErrorIs(t, err, ErrManualSemesterNotFound)

	require.NoError(t, wb.RemoveManualSemester(second.ID))
	require.NoError(t, wb.RemoveManualSemester(third.ID))
	require.ErrorIs(t, wb.RemoveManualSemester(first.ID), ErrLastManualSemester)
	require.ErrorIs(t, wb.RemoveManualSemester("missing"), ErrManualSemesterNotFound)
}

func TestTotalCGPACombinesBothSources(t *testing.T) {
	wb := New(gpa.PolicyZeroPoints, t0)
	_, err := wb.AddSubject("Maths", intPtr(80), gpa.Range100)
	require.NoError(t, err)
	_, err = wb.AddSubject("Chemistry", intPtr(36), gpa.Range60)
	require.NoError(t, err)
	_, err = wb.CloseSemester(t0)
	require.NoError(t, err)

	_, err = wb.UpdateManualSemester(wb.Manual[0].ID, nil, floatPtr(3.5))
	require.NoError(t, err)
	wb.AddManualSemester("", floatPtr(3.8))

	total, ok := wb.TotalCGPA()
	require.True(t, ok)
	require.Equal(t, 3.55, total)

	sum := wb.Summarize()
	require.Equal(t, 3, sum.ContributingAll)
	require.Equal(t, 3.34, *sum.FromSemesters)
	require.Equal(t, 3.65, *sum.FromManual)
	require.Equal(t, 3.55, *sum.CGPA)
	require.Equal(t, "excellent", sum.Standing.Band)
	require.Nil(t, sum.CurrentGPA)
}
